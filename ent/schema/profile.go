package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// Profile holds the latest learner profile snapshot of a session. Unlike
// the event tables it is overwritten on every turn.
type Profile struct {
	ent.Schema
}

func (Profile) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").
			Unique().
			Immutable(),
		field.String("user_id").Default(""),
		field.String("state").
			Comment("Teaching state, duplicated from data for listing"),
		field.JSON("data", map[string]any{}).
			Comment("Serialized ProfileSnapshot"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now),
	}
}
