package evaluation

import (
	"slices"
	"strings"
)

var (
	socraticIndicators = []string{
		"what if", "have you considered", "think about",
		"what happens", "can you", "try to", "?",
	}
	directAnswerIndicators = []string{"the answer is", "just do", "here's the solution"}
)

// ResponseMatch scores the fraction of expected keywords present in
// response, minus 0.2 for every anti-pattern found, floored at 0. With no
// expected keywords the score is 1. It also returns the anti-patterns hit.
func ResponseMatch(response string, tc TestCase) (float64, []string) {
	if len(tc.ExpectedKeywords) == 0 {
		return 1.0, nil
	}
	lower := strings.ToLower(response)

	matches := 0
	for _, kw := range tc.ExpectedKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}
	score := float64(matches) / float64(len(tc.ExpectedKeywords))

	var found []string
	for _, p := range tc.AntiPatterns {
		if strings.Contains(lower, strings.ToLower(p)) {
			found = append(found, p)
			score -= 0.2
		}
	}
	return max(0, score), found
}

// ToolTrajectory scores the fraction of expected tools that were called.
// With no expected tools the score is 1.
func ToolTrajectory(called []string, tc TestCase) float64 {
	if len(tc.ExpectedTools) == 0 {
		return 1.0
	}
	hit := 0
	for _, want := range tc.ExpectedTools {
		if slices.Contains(called, want) {
			hit++
		}
	}
	return float64(hit) / float64(len(tc.ExpectedTools))
}

// SocraticMethod scores questioning style for cases expecting a Socratic
// hint: +0.2 per guiding indicator, -0.3 per direct-answer phrase, clamped
// to [0, 1]. Other cases score 1.
func SocraticMethod(response string, tc TestCase) float64 {
	if tc.ExpectedBehavior != "socratic_hint" {
		return 1.0
	}
	lower := strings.ToLower(response)

	score := 0.0
	for _, ind := range socraticIndicators {
		if strings.Contains(lower, ind) {
			score += 0.2
		}
	}
	for _, ind := range directAnswerIndicators {
		if strings.Contains(lower, ind) {
			score -= 0.3
		}
	}
	return min(1, max(0, score))
}
