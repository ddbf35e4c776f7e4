package tutor

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// DefaultMastery is the initial mastery level for every skill module.
const DefaultMastery = 0.5

// Weakness labels recorded by the lexical classifier.
const (
	WeaknessConstraintAnalysis = "Constraint Analysis"
	WeaknessExampleSimulation  = "Example Simulation"
	WeaknessArticulation       = "Articulation"
)

// Interaction is one entry in a session transcript.
type Interaction struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Profile is the per-session learner model. History is append-only and
// weakness counters only ever grow.
type Profile struct {
	history        []Interaction
	weaknesses     map[string]int
	strengths      []string
	currentProblem string
	currentState   TeachingState
	masteryLevels  map[SkillModule]float64
}

// NewProfile returns a fresh profile in the INTAKE state.
func NewProfile() *Profile {
	mastery := make(map[SkillModule]float64, len(AllSkills()))
	for _, s := range AllSkills() {
		mastery[s] = DefaultMastery
	}
	return &Profile{
		weaknesses:    make(map[string]int),
		currentState:  StateIntake,
		masteryLevels: mastery,
	}
}

// AddInteraction appends an entry to the transcript.
func (p *Profile) AddInteraction(role, content string) {
	p.history = append(p.history, Interaction{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// RecordWeakness increments the counter for label.
func (p *Profile) RecordWeakness(label string) {
	p.weaknesses[label]++
}

// WeaknessCount returns the counter for label, or zero.
func (p *Profile) WeaknessCount(label string) int {
	return p.weaknesses[label]
}

// Weaknesses returns a copy of the weakness counters.
func (p *Profile) Weaknesses() map[string]int {
	return maps.Clone(p.weaknesses)
}

// History returns a copy of the transcript.
func (p *Profile) History() []Interaction {
	return slices.Clone(p.history)
}

// Strengths returns a copy of the recorded strengths. Nothing populates
// this list yet.
func (p *Profile) Strengths() []string {
	return slices.Clone(p.strengths)
}

// MasteryLevels returns a copy of the per-skill mastery levels.
func (p *Profile) MasteryLevels() map[SkillModule]float64 {
	return maps.Clone(p.masteryLevels)
}

func (p *Profile) CurrentState() TeachingState { return p.currentState }

func (p *Profile) CurrentProblem() string { return p.currentProblem }

// SetCurrentProblem stores the payload of the most recently fetched problem.
func (p *Profile) SetCurrentProblem(payload string) {
	p.currentProblem = payload
}

func (p *Profile) setState(s TeachingState) {
	p.currentState = s
}

// ProfileSnapshot is the serialisable form of a Profile.
type ProfileSnapshot struct {
	History        []Interaction      `json:"history"`
	Weaknesses     map[string]int     `json:"weaknesses"`
	Strengths      []string           `json:"strengths"`
	CurrentProblem string             `json:"current_problem,omitempty"`
	CurrentState   string             `json:"current_state"`
	CurrentSkill   string             `json:"current_skill"`
	MasteryLevels  map[string]float64 `json:"mastery_levels"`
}

func (p *Profile) snapshot(skill SkillModule) ProfileSnapshot {
	mastery := make(map[string]float64, len(p.masteryLevels))
	for k, v := range p.masteryLevels {
		mastery[string(k)] = v
	}
	return ProfileSnapshot{
		History:        p.History(),
		Weaknesses:     p.Weaknesses(),
		Strengths:      p.Strengths(),
		CurrentProblem: p.currentProblem,
		CurrentState:   string(p.currentState),
		CurrentSkill:   string(skill),
		MasteryLevels:  mastery,
	}
}

// restoreProfile rebuilds a Profile and active skill from a snapshot.
// Unknown states or skills are rejected; negative counters are dropped.
func restoreProfile(snap ProfileSnapshot) (*Profile, SkillModule, error) {
	p := NewProfile()

	if snap.CurrentState != "" {
		st, err := ParseState(snap.CurrentState)
		if err != nil {
			return nil, "", err
		}
		p.currentState = st
	}

	skill := SkillGeneral
	if snap.CurrentSkill != "" {
		sk, err := ParseSkill(snap.CurrentSkill)
		if err != nil {
			return nil, "", err
		}
		skill = sk
	}

	for k, v := range snap.MasteryLevels {
		sk, err := ParseSkill(k)
		if err != nil {
			return nil, "", fmt.Errorf("mastery levels: %w", err)
		}
		p.masteryLevels[sk] = v
	}

	for k, v := range snap.Weaknesses {
		if v > 0 {
			p.weaknesses[k] = v
		}
	}

	p.history = slices.Clone(snap.History)
	p.strengths = slices.Clone(snap.Strengths)
	p.currentProblem = snap.CurrentProblem
	return p, skill, nil
}
