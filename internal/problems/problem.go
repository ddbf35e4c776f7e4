// Package problems fetches coding interview problems from LeetCode, either
// directly over its GraphQL API or through an MCP server exposing the same
// data as a tool.
package problems

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no problem exists for a slug.
	ErrNotFound = errors.New("problem not found")

	// ErrInvalidSlug is returned when a slug contains characters other
	// than letters, digits, '-' and '_'.
	ErrInvalidSlug = errors.New("invalid slug format")

	// ErrInvalidDifficulty is returned for difficulties outside Easy,
	// Medium and Hard.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
)

// Difficulty is LeetCode's difficulty label.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty accepts a difficulty in any letter case. An empty string
// parses to the empty Difficulty, meaning "any".
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// Problem is the normalized problem payload handed to the tutor.
type Problem struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	Categories  []string   `json:"category"`
	Description string     `json:"description"`
	Hints       []string   `json:"hints"`
	Constraints string     `json:"constraints"`
	Examples    string     `json:"examples"`
}

// JSON renders the problem as indented JSON, the form stored on the
// student profile and injected into the conversation.
func (p *Problem) JSON() string {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ErrorJSON renders err as the {"error": "..."} payload used when a fetch
// fails and the model still needs something to read.
func ErrorJSON(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return string(b)
}

// Request selects a problem. An empty Slug asks for a random problem,
// optionally narrowed by Difficulty.
type Request struct {
	Slug       string
	Difficulty Difficulty
}

// Validate normalizes the slug to lower case and checks both fields.
func (r *Request) Validate() error {
	r.Slug = strings.ToLower(strings.TrimSpace(r.Slug))
	if r.Slug != "" && !validSlug(r.Slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, r.Slug)
	}
	switch r.Difficulty {
	case "", Easy, Medium, Hard:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDifficulty, r.Difficulty)
	}
	return nil
}

func validSlug(s string) bool {
	s = strings.NewReplacer("-", "", "_", "").Replace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
