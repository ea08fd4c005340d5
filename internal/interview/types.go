package interview

// Action is the orchestrator's decision after analyzing an answer.
type Action string

const (
	ActionProbe        Action = "probe"
	ActionNextQuestion Action = "next_question"
	ActionComplete     Action = "complete"
)

// Exchange is one question/answer pair of an interview transcript.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ScreeningQuestion qualifies a respondent before the interview proper.
// The first demographicScreeningCount generated questions are demographic,
// the rest are topic-specific.
type ScreeningQuestion struct {
	Text        string `json:"text"`
	Demographic bool   `json:"demographic"`
}

const demographicScreeningCount = 4

// ObjectiveInput is the operator's research brief. Only Objective is
// required; the rest default to "not specified" in the rendered prompt.
type ObjectiveInput struct {
	Objective       string
	DesiredInsights string
	KeyQuestions    string
	Hypothesis      string
}

// ObjectiveAnalysis is the structured outcome of analyzing a brief.
type ObjectiveAnalysis struct {
	TargetAudience     string              `json:"targetAudience"`
	ScreeningQuestions []ScreeningQuestion `json:"screeningQuestions"`
	InterviewGuide     string              `json:"interviewGuide"`
}

// FirstQuestionInput opens an interview session.
type FirstQuestionInput struct {
	Objective            string
	TargetAudience       string
	Demographics         string
	CurrentQuestionCount int
	QuestionCount        int
}

// Turn carries the full running context for one answer-analysis step. The
// orchestrator is stateless; callers resupply this on every call.
type Turn struct {
	Objective            string
	Question             string
	Answer               string
	PriorQuestions       []string
	CurrentQuestionCount int
	QuestionCount        int
}

// TurnResult is the orchestrator's normalized decision. Question is empty
// only when Action is complete.
type TurnResult struct {
	Action   Action `json:"action"`
	Question string `json:"question,omitempty"`
	Analysis string `json:"analysis,omitempty"`
}

// SynthesisInput is a finished interview ready for insight synthesis.
type SynthesisInput struct {
	InterviewID string
	Objective   string
	Transcript  []Exchange
}
