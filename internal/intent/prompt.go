package intent

import (
	"fmt"

	"github.com/abhisek/algotutor/internal/llm"
	"github.com/abhisek/algotutor/internal/tutor"
)

const routerInstructions = `You are the Orchestrator for an AI Coding Tutor.
Your job is to route the user's request to the correct specialized agent.

Available Agents:
1. TUTOR: The default mode. Helps students solve problems, gives hints, explains concepts.
2. INTERVIEWER: Conducts a strict technical interview. Use this if the user asks to be interviewed.
3. STUDENT: A simulated beginner student. Use this if the user wants to "teach" or "explain" to the AI.

Output strictly valid JSON:
{
    "target_agent": "TUTOR" | "INTERVIEWER" | "STUDENT",
    "reasoning": "brief explanation"
}
`

// BuildPrompt renders the classification prompt for one message.
func BuildPrompt(userInput string, current tutor.Persona) string {
	return fmt.Sprintf("%s\nUser Input: %s\nCurrent Mode: %s\nJSON Output:", routerInstructions, userInput, current)
}

// routeSchema is the shape the router reply must have after fence removal.
var routeSchema = &llm.Schema{
	Name:        "intent-route",
	Description: "Persona routing decision",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_agent": map[string]any{
				"type": "string",
				"enum": []any{
					string(tutor.PersonaTutor),
					string(tutor.PersonaInterviewer),
					string(tutor.PersonaStudent),
				},
			},
			"reasoning": map[string]any{"type": "string"},
		},
		"required":             []any{"target_agent", "reasoning"},
		"additionalProperties": false,
	},
}
