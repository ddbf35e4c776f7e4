package tutor

import "strings"

// Orchestrator drives one tutoring session: it owns the learner profile,
// tracks the active skill module, picks the next directive for each user
// turn, and assembles the matching system prompt.
//
// An Orchestrator is not safe for concurrent use. Callers serialise turns
// per session.
type Orchestrator struct {
	profile    *Profile
	skill      SkillModule
	classifier WeaknessClassifier
}

// NewOrchestrator returns an orchestrator with a fresh profile in INTAKE
// and the GENERAL skill. A nil classifier selects LexicalClassifier.
func NewOrchestrator(classifier WeaknessClassifier) *Orchestrator {
	if classifier == nil {
		classifier = LexicalClassifier{}
	}
	return &Orchestrator{
		profile:    NewProfile(),
		skill:      SkillGeneral,
		classifier: classifier,
	}
}

// RestoreOrchestrator rebuilds an orchestrator from a persisted snapshot.
func RestoreOrchestrator(snap ProfileSnapshot, classifier WeaknessClassifier) (*Orchestrator, error) {
	p, skill, err := restoreProfile(snap)
	if err != nil {
		return nil, err
	}
	o := NewOrchestrator(classifier)
	o.profile = p
	o.skill = skill
	return o, nil
}

// Profile returns the learner profile owned by this orchestrator.
func (o *Orchestrator) Profile() *Profile { return o.profile }

// State returns the current teaching state.
func (o *Orchestrator) State() TeachingState { return o.profile.currentState }

// Skill returns the active skill module.
func (o *Orchestrator) Skill() SkillModule { return o.skill }

// Persona returns the persona implied by the current state.
func (o *Orchestrator) Persona() Persona { return PersonaForState(o.profile.currentState) }

// SetState forces the teaching state. Used when the intent router switches
// persona ahead of DetermineNextStep.
func (o *Orchestrator) SetState(s TeachingState) {
	o.profile.setState(s)
}

// Snapshot returns the serialisable form of the session.
func (o *Orchestrator) Snapshot() ProfileSnapshot {
	return o.profile.snapshot(o.skill)
}

// RecordExchange appends a user turn and the assistant reply to history.
func (o *Orchestrator) RecordExchange(userInput, reply string) {
	o.profile.AddInteraction("user", userInput)
	o.profile.AddInteraction("assistant", reply)
}

// AnalyzeInteraction records every weakness the classifier finds in the
// user's input. lastResponse is accepted for classifiers that look at the
// previous assistant turn; the lexical rules ignore it.
func (o *Orchestrator) AnalyzeInteraction(userInput, lastResponse string) {
	for _, label := range o.classifier.Classify(userInput) {
		o.profile.RecordWeakness(label)
	}
}

// DetermineNextStep updates state and skill for the user's input and
// returns the directive for this turn. Global mode switches are checked
// first, then the per-state rules.
func (o *Orchestrator) DetermineNextStep(userInput string) Directive {
	lower := strings.ToLower(userInput)
	state := o.profile.currentState

	switch {
	case strings.Contains(lower, "interview me"):
		o.profile.setState(StateInterviewMode)
		return DirectiveSwitchToInterviewer
	case strings.Contains(lower, "i want to teach") || strings.Contains(lower, "student simulator"):
		o.profile.setState(StateTeachingMode)
		return DirectiveSwitchToStudent
	case strings.Contains(lower, "help") && (state == StateInterviewMode || state == StateTeachingMode):
		o.profile.setState(StateGuidance)
		return DirectiveSwitchToTutor
	}

	switch state {
	case StateIntake:
		if strings.Contains(lower, "start") || strings.Contains(lower, "problem") {
			o.profile.setState(StateAssessment)
			return DirectiveFetchProblem
		}
		return DirectiveGreeting

	case StateAssessment:
		if strings.Contains(userInput, "?") {
			o.skill = SkillConstraintAnalysis
			return DirectiveClarifyConstraint
		}
		o.profile.setState(StateGuidance)
		o.skill = SkillPatternRecognition
		return DirectiveAskApproach

	case StateGuidance:
		o.skill = o.guidanceSkill()
		if strings.Contains(lower, "hint") {
			return DirectiveGiveHint
		}
		return DirectiveValidateAndChallenge

	case StateInterviewMode:
		return DirectiveInterviewInteraction

	case StateTeachingMode:
		return DirectiveStudentSimulation
	}

	return DirectiveContinue
}

// guidanceSkill picks the skill for GUIDANCE from the current weakness
// counts. Constraint trouble outranks example trouble.
func (o *Orchestrator) guidanceSkill() SkillModule {
	switch {
	case o.profile.WeaknessCount(WeaknessConstraintAnalysis) > 2:
		return SkillConstraintAnalysis
	case o.profile.WeaknessCount(WeaknessExampleSimulation) > 2:
		return SkillExampleSimulation
	default:
		return SkillCodingGuidance
	}
}

// SystemPrompt returns the system prompt for the current state and skill.
func (o *Orchestrator) SystemPrompt() string {
	return buildSystemPrompt(o.profile.currentState, o.skill)
}
