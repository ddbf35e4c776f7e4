package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TraceEvent is one step of a traced chat turn.
type TraceEvent struct {
	ent.Schema
}

func (TraceEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (TraceEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id"),
		field.String("turn_id").
			Comment("Groups the events of one Chat call"),
		field.Enum("event_type").
			Values(
				"session_start", "user_input", "intent_routing", "state_transition",
				"tool_call", "tool_response", "llm_request", "llm_response",
				"agent_response", "error",
			),
		field.JSON("data", map[string]any{}),
		field.Float("duration_ms").
			Optional().
			Nillable(),
	}
}

func (TraceEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id", "sequence"),
	}
}
