package tutor

import (
	"errors"
	"fmt"
)

// SkillModule is a focus area that shapes the tutor's instructions.
type SkillModule string

const (
	SkillGeneral            SkillModule = "GENERAL"
	SkillPatternRecognition SkillModule = "PATTERN_RECOGNITION"
	SkillConstraintAnalysis SkillModule = "CONSTRAINT_ANALYSIS"
	SkillExampleSimulation  SkillModule = "EXAMPLE_SIMULATION"
	SkillCodingGuidance     SkillModule = "CODING_GUIDANCE"
	SkillMetaReasoning      SkillModule = "META_REASONING"
)

// ErrUnknownSkill is returned when a value does not name a SkillModule.
var ErrUnknownSkill = errors.New("unknown skill module")

type skillInfo struct {
	name        string
	instruction string
}

var skills = map[SkillModule]skillInfo{
	SkillGeneral: {
		name:        "General Guidance",
		instruction: "Focus on general guidance.",
	},
	SkillPatternRecognition: {
		name:        "Pattern Recognition",
		instruction: "Focus on helping the student identify the underlying pattern (e.g., Sliding Window, Two Pointers). Ask: 'What does this remind you of?'",
	},
	SkillConstraintAnalysis: {
		name:        "Constraint Analysis",
		instruction: "Focus on the constraints. Ask: 'How does the input size affect your choice of algorithm? O(n) vs O(n^2)?'",
	},
	SkillExampleSimulation: {
		name:        "Example Simulation",
		instruction: "Walk through the examples step-by-step. Ask the user to trace the input manually.",
	},
	SkillCodingGuidance: {
		name:        "Coding Guidance",
		instruction: "Help the user structure their code. Focus on function signatures and edge cases.",
	},
	SkillMetaReasoning: {
		name:        "Meta Reasoning",
		instruction: "Ask the user to explain *why* they chose this approach. Challenge their assumptions.",
	},
}

// AllSkills returns every skill module in declaration order.
func AllSkills() []SkillModule {
	return []SkillModule{
		SkillGeneral,
		SkillPatternRecognition,
		SkillConstraintAnalysis,
		SkillExampleSimulation,
		SkillCodingGuidance,
		SkillMetaReasoning,
	}
}

// ParseSkill converts either the identifier ("CODING_GUIDANCE") or the
// display name ("Coding Guidance") to a SkillModule.
func ParseSkill(s string) (SkillModule, error) {
	for _, sk := range AllSkills() {
		if string(sk) == s || skills[sk].name == s {
			return sk, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSkill, s)
}

// Name returns the human-readable display name.
func (s SkillModule) Name() string {
	if info, ok := skills[s]; ok {
		return info.name
	}
	return string(s)
}

// Instruction returns the per-skill line appended to the tutor prompt.
func (s SkillModule) Instruction() string {
	if info, ok := skills[s]; ok {
		return info.instruction
	}
	return skills[SkillGeneral].instruction
}

func (s SkillModule) String() string { return string(s) }
