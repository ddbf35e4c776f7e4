package tutor

import (
	"strings"
	"testing"
)

func TestNewOrchestrator_Defaults(t *testing.T) {
	o := NewOrchestrator(nil)
	if o.State() != StateIntake {
		t.Fatalf("initial state = %s, want INTAKE", o.State())
	}
	if o.Skill() != SkillGeneral {
		t.Fatalf("initial skill = %s, want GENERAL", o.Skill())
	}
	for _, s := range AllSkills() {
		if got := o.Profile().MasteryLevels()[s]; got != DefaultMastery {
			t.Errorf("mastery[%s] = %v, want %v", s, got, DefaultMastery)
		}
	}
	if len(o.Profile().History()) != 0 {
		t.Fatal("expected empty history")
	}
}

func TestDetermineNextStep_IntakeStart(t *testing.T) {
	o := NewOrchestrator(nil)
	d := o.DetermineNextStep("I want to start a problem")
	if d != DirectiveFetchProblem {
		t.Fatalf("directive = %s, want FETCH_PROBLEM", d)
	}
	if o.State() != StateAssessment {
		t.Fatalf("state = %s, want ASSESSMENT", o.State())
	}
}

func TestDetermineNextStep_IntakeGreeting(t *testing.T) {
	o := NewOrchestrator(nil)
	if d := o.DetermineNextStep("hello there"); d != DirectiveGreeting {
		t.Fatalf("directive = %s, want GREETING", d)
	}
	if o.State() != StateIntake {
		t.Fatalf("state = %s, want INTAKE", o.State())
	}
}

func TestDetermineNextStep_AssessmentQuestion(t *testing.T) {
	o := NewOrchestrator(nil)
	o.SetState(StateAssessment)

	d := o.DetermineNextStep("What does n mean here?")
	if d != DirectiveClarifyConstraint {
		t.Fatalf("directive = %s, want CLARIFY_CONSTRAINT", d)
	}
	if o.Skill() != SkillConstraintAnalysis {
		t.Fatalf("skill = %s, want CONSTRAINT_ANALYSIS", o.Skill())
	}
	if o.State() != StateAssessment {
		t.Fatalf("state = %s, want ASSESSMENT", o.State())
	}
}

func TestDetermineNextStep_AssessmentStatement(t *testing.T) {
	o := NewOrchestrator(nil)
	o.SetState(StateAssessment)

	if d := o.DetermineNextStep("I think I would use a hash map"); d != DirectiveAskApproach {
		t.Fatalf("directive = %s, want ASK_APPROACH", d)
	}
	if o.State() != StateGuidance {
		t.Fatalf("state = %s, want GUIDANCE", o.State())
	}
	if o.Skill() != SkillPatternRecognition {
		t.Fatalf("skill = %s, want PATTERN_RECOGNITION", o.Skill())
	}
}

func TestDetermineNextStep_Guidance(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Directive
	}{
		{"hint", "Can I get a HINT please", DirectiveGiveHint},
		{"validate", "Here is my loop over the array", DirectiveValidateAndChallenge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrchestrator(nil)
			o.SetState(StateGuidance)
			if d := o.DetermineNextStep(tt.input); d != tt.want {
				t.Fatalf("directive = %s, want %s", d, tt.want)
			}
			if o.Skill() != SkillCodingGuidance {
				t.Fatalf("skill = %s, want CODING_GUIDANCE", o.Skill())
			}
			if o.State() != StateGuidance {
				t.Fatalf("state = %s, want GUIDANCE", o.State())
			}
		})
	}
}

func TestDetermineNextStep_InterviewPriority(t *testing.T) {
	for _, st := range AllStates() {
		t.Run(string(st), func(t *testing.T) {
			o := NewOrchestrator(nil)
			o.SetState(st)
			if d := o.DetermineNextStep("Can we interview me please?"); d != DirectiveSwitchToInterviewer {
				t.Fatalf("directive = %s, want SWITCH_TO_INTERVIEWER", d)
			}
			if o.State() != StateInterviewMode {
				t.Fatalf("state = %s, want INTERVIEW_MODE", o.State())
			}
		})
	}
}

func TestDetermineNextStep_TeachingSwitch(t *testing.T) {
	for _, input := range []string{"I want to teach you heaps", "open the Student Simulator"} {
		o := NewOrchestrator(nil)
		if d := o.DetermineNextStep(input); d != DirectiveSwitchToStudent {
			t.Fatalf("%q: directive = %s, want SWITCH_TO_STUDENT", input, d)
		}
		if o.State() != StateTeachingMode {
			t.Fatalf("%q: state = %s, want TEACHING_MODE", input, o.State())
		}
	}
}

func TestDetermineNextStep_HelpReturnsToTutor(t *testing.T) {
	for _, st := range []TeachingState{StateInterviewMode, StateTeachingMode} {
		o := NewOrchestrator(nil)
		o.SetState(st)
		if d := o.DetermineNextStep("I need help"); d != DirectiveSwitchToTutor {
			t.Fatalf("%s: directive = %s, want SWITCH_TO_TUTOR", st, d)
		}
		if o.State() != StateGuidance {
			t.Fatalf("%s: state = %s, want GUIDANCE", st, o.State())
		}
	}

	// "help" outside the alternate personas is not a mode switch.
	o := NewOrchestrator(nil)
	if d := o.DetermineNextStep("help"); d != DirectiveGreeting {
		t.Fatalf("directive = %s, want GREETING", d)
	}
}

func TestDetermineNextStep_ModeInteractions(t *testing.T) {
	o := NewOrchestrator(nil)
	o.SetState(StateInterviewMode)
	if d := o.DetermineNextStep("my solution is O(n log n)"); d != DirectiveInterviewInteraction {
		t.Fatalf("directive = %s, want INTERVIEW_INTERACTION", d)
	}

	o.SetState(StateTeachingMode)
	if d := o.DetermineNextStep("recursion calls itself"); d != DirectiveStudentSimulation {
		t.Fatalf("directive = %s, want STUDENT_SIMULATION", d)
	}
	if o.State() != StateTeachingMode {
		t.Fatalf("state = %s, want TEACHING_MODE", o.State())
	}
}

func TestDetermineNextStep_UnreachableStatesContinue(t *testing.T) {
	for _, st := range []TeachingState{StateFeedback, StateCompleted} {
		o := NewOrchestrator(nil)
		o.SetState(st)
		if d := o.DetermineNextStep("anything"); d != DirectiveContinue {
			t.Fatalf("%s: directive = %s, want CONTINUE", st, d)
		}
	}
}

func TestDetermineNextStep_AlwaysValid(t *testing.T) {
	inputs := []string{
		"", "?", "interview me", "help", "hint", "start", "problem",
		"I want to teach", "what is the constraint?", "ok", "\x00\xff",
	}
	for _, st := range AllStates() {
		for _, in := range inputs {
			o := NewOrchestrator(nil)
			o.SetState(st)
			d := o.DetermineNextStep(in)
			if !d.Valid() {
				t.Fatalf("state %s input %q: invalid directive %q", st, in, d)
			}
		}
	}
}

func TestGuidanceSkill_ConstraintWeaknessAccumulates(t *testing.T) {
	o := NewOrchestrator(nil)
	o.SetState(StateAssessment)

	inputs := []string{
		"What is the constraint on n here?",
		"Is there a limit on the array length?",
		"Does the constraint allow negative values?",
	}
	for _, in := range inputs {
		o.AnalyzeInteraction(in, "")
		o.DetermineNextStep(in)
	}

	if got := o.Profile().WeaknessCount(WeaknessConstraintAnalysis); got != 3 {
		t.Fatalf("Constraint Analysis = %d, want 3", got)
	}

	o.SetState(StateGuidance)
	for range 3 {
		o.DetermineNextStep("let me write the code")
		if o.Skill() != SkillConstraintAnalysis {
			t.Fatalf("skill = %s, want CONSTRAINT_ANALYSIS", o.Skill())
		}
	}
}

func TestGuidanceSkill_ExampleWeakness(t *testing.T) {
	o := NewOrchestrator(nil)
	for range 3 {
		o.Profile().RecordWeakness(WeaknessExampleSimulation)
	}
	o.SetState(StateGuidance)
	o.DetermineNextStep("next")
	if o.Skill() != SkillExampleSimulation {
		t.Fatalf("skill = %s, want EXAMPLE_SIMULATION", o.Skill())
	}

	// Constraint trouble outranks example trouble.
	for range 3 {
		o.Profile().RecordWeakness(WeaknessConstraintAnalysis)
	}
	o.DetermineNextStep("next")
	if o.Skill() != SkillConstraintAnalysis {
		t.Fatalf("skill = %s, want CONSTRAINT_ANALYSIS", o.Skill())
	}
}

func TestSystemPrompt(t *testing.T) {
	o := NewOrchestrator(nil)

	p := o.SystemPrompt()
	if !strings.HasPrefix(p, tutorPrompt) {
		t.Fatal("tutor prompt should start with the tutor persona")
	}
	want := "\n\nCurrent Phase: INTAKE\nActive Skill Module: General Guidance\nInstruction: Focus on general guidance."
	if !strings.HasSuffix(p, want) {
		t.Fatalf("unexpected phase block:\n%s", p)
	}
	if p != o.SystemPrompt() {
		t.Fatal("SystemPrompt should be idempotent")
	}

	o.SetState(StateInterviewMode)
	if o.SystemPrompt() != interviewerPrompt {
		t.Fatal("interview mode should use the interviewer persona verbatim")
	}

	o.SetState(StateTeachingMode)
	if o.SystemPrompt() != studentPrompt {
		t.Fatal("teaching mode should use the student persona verbatim")
	}
}

func TestSystemPrompt_SkillInstruction(t *testing.T) {
	o := NewOrchestrator(nil)
	o.SetState(StateAssessment)
	o.DetermineNextStep("what?")

	p := o.SystemPrompt()
	if !strings.Contains(p, "Active Skill Module: Constraint Analysis") {
		t.Fatalf("missing skill name:\n%s", p)
	}
	if !strings.Contains(p, SkillConstraintAnalysis.Instruction()) {
		t.Fatalf("missing skill instruction:\n%s", p)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	o := NewOrchestrator(nil)
	o.DetermineNextStep("start")
	o.AnalyzeInteraction("limit?", "")
	o.RecordExchange("start", "Here is a problem")
	o.Profile().SetCurrentProblem(`{"title":"Two Sum"}`)

	restored, err := RestoreOrchestrator(o.Snapshot(), nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.State() != StateAssessment {
		t.Fatalf("state = %s, want ASSESSMENT", restored.State())
	}
	if restored.Profile().WeaknessCount(WeaknessConstraintAnalysis) != 1 {
		t.Fatal("weakness counter not restored")
	}
	if len(restored.Profile().History()) != 2 {
		t.Fatalf("history len = %d, want 2", len(restored.Profile().History()))
	}
	if restored.Profile().CurrentProblem() != `{"title":"Two Sum"}` {
		t.Fatal("current problem not restored")
	}
}

func TestRestoreOrchestrator_RejectsUnknownState(t *testing.T) {
	_, err := RestoreOrchestrator(ProfileSnapshot{CurrentState: "SLEEPING"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown state")
	}
}
