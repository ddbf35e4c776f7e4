package tutor

import "strings"

// WeaknessClassifier maps a user utterance to zero or more weakness labels.
// Implementations must be deterministic and side-effect free.
type WeaknessClassifier interface {
	Name() string
	Classify(input string) []string
}

// LexicalClassifier applies fixed keyword heuristics. Each rule is
// evaluated independently, so one input can yield several labels.
type LexicalClassifier struct{}

func (LexicalClassifier) Name() string { return "lexical" }

func (LexicalClassifier) Classify(input string) []string {
	lower := strings.ToLower(input)
	hasQuestion := strings.Contains(input, "?")

	var labels []string
	if (strings.Contains(lower, "constraint") || strings.Contains(lower, "limit")) && hasQuestion {
		labels = append(labels, WeaknessConstraintAnalysis)
	}
	if strings.Contains(lower, "example") && strings.Contains(lower, "don't understand") {
		labels = append(labels, WeaknessExampleSimulation)
	}
	if len(strings.Fields(input)) < 4 && hasQuestion {
		labels = append(labels, WeaknessArticulation)
	}
	return labels
}

// ClassifierFunc adapts a plain function to WeaknessClassifier.
type ClassifierFunc func(input string) []string

func (f ClassifierFunc) Name() string { return "func" }

func (f ClassifierFunc) Classify(input string) []string { return f(input) }
