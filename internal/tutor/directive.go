package tutor

// Directive is the action token handed to the language model alongside the
// user's message.
type Directive string

const (
	DirectiveSwitchToInterviewer  Directive = "SWITCH_TO_INTERVIEWER"
	DirectiveSwitchToStudent      Directive = "SWITCH_TO_STUDENT"
	DirectiveSwitchToTutor        Directive = "SWITCH_TO_TUTOR"
	DirectiveFetchProblem         Directive = "FETCH_PROBLEM"
	DirectiveGreeting             Directive = "GREETING"
	DirectiveClarifyConstraint    Directive = "CLARIFY_CONSTRAINT"
	DirectiveAskApproach          Directive = "ASK_APPROACH"
	DirectiveGiveHint             Directive = "GIVE_HINT"
	DirectiveValidateAndChallenge Directive = "VALIDATE_AND_CHALLENGE"
	DirectiveInterviewInteraction Directive = "INTERVIEW_INTERACTION"
	DirectiveStudentSimulation    Directive = "STUDENT_SIMULATION"
	DirectiveContinue             Directive = "CONTINUE"
)

var directives = map[Directive]struct{}{
	DirectiveSwitchToInterviewer:  {},
	DirectiveSwitchToStudent:      {},
	DirectiveSwitchToTutor:        {},
	DirectiveFetchProblem:         {},
	DirectiveGreeting:             {},
	DirectiveClarifyConstraint:    {},
	DirectiveAskApproach:          {},
	DirectiveGiveHint:             {},
	DirectiveValidateAndChallenge: {},
	DirectiveInterviewInteraction: {},
	DirectiveStudentSimulation:    {},
	DirectiveContinue:             {},
}

// Valid reports whether d is one of the known directive tokens.
func (d Directive) Valid() bool {
	_, ok := directives[d]
	return ok
}

func (d Directive) String() string { return string(d) }
