package tutor

import (
	"errors"
	"fmt"
)

// TeachingState is the conversational phase of a tutoring session.
type TeachingState string

const (
	StateIntake        TeachingState = "INTAKE"
	StateAssessment    TeachingState = "ASSESSMENT"
	StateGuidance      TeachingState = "GUIDANCE"
	StateFeedback      TeachingState = "FEEDBACK"
	StateCompleted     TeachingState = "COMPLETED"
	StateInterviewMode TeachingState = "INTERVIEW_MODE"
	StateTeachingMode  TeachingState = "TEACHING_MODE"
)

// ErrUnknownState is returned when a persisted or external value does not
// name a TeachingState.
var ErrUnknownState = errors.New("unknown teaching state")

// AllStates returns every teaching state in declaration order.
// FEEDBACK and COMPLETED are valid values but no transition enters them.
func AllStates() []TeachingState {
	return []TeachingState{
		StateIntake,
		StateAssessment,
		StateGuidance,
		StateFeedback,
		StateCompleted,
		StateInterviewMode,
		StateTeachingMode,
	}
}

// ParseState converts a string to a TeachingState.
func ParseState(s string) (TeachingState, error) {
	for _, st := range AllStates() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownState, s)
}

func (s TeachingState) String() string { return string(s) }

// Persona is the conversational role the assistant plays.
type Persona string

const (
	PersonaTutor       Persona = "TUTOR"
	PersonaInterviewer Persona = "INTERVIEWER"
	PersonaStudent     Persona = "STUDENT"
)

// ParsePersona converts a string to a Persona.
func ParsePersona(s string) (Persona, error) {
	switch p := Persona(s); p {
	case PersonaTutor, PersonaInterviewer, PersonaStudent:
		return p, nil
	}
	return "", fmt.Errorf("unknown persona: %q", s)
}

// PersonaForState returns the persona that owns the given state.
func PersonaForState(s TeachingState) Persona {
	switch s {
	case StateInterviewMode:
		return PersonaInterviewer
	case StateTeachingMode:
		return PersonaStudent
	default:
		return PersonaTutor
	}
}

// Label returns the speaker label used by chat frontends.
func (p Persona) Label() string {
	switch p {
	case PersonaInterviewer:
		return "Interviewer"
	case PersonaStudent:
		return "Student (Alex)"
	default:
		return "Tutor"
	}
}
