// Package interview drives the phase flow of an AI-led qualitative
// interview: objective analysis, screening and first-question generation,
// per-answer probe decisions, and insight synthesis over a transcript.
//
// Every model invocation follows one template: resolve the active model and
// its key from the registry, sanitize the model id, render the stored prompt
// for the use case, call the provider, and recover structured output from
// the reply. The turn-limit guard runs before any provider call in every
// question-producing phase; it is the one hard termination guarantee here.
package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"quint/internal/catalog"
	"quint/internal/extract"
	"quint/internal/fault"
	"quint/internal/metrics"
	"quint/internal/prompt"
	"quint/internal/providers"
	"quint/internal/registry"
	"quint/internal/settings"
)

// System instruction for first-question generation. The off-objective
// constraint is passed to the model, not enforced locally; it is a
// best-effort guardrail.
const firstQuestionSystem = "You are a qualitative research interviewer. " +
	"Open the interview with a single warm, neutral question. " +
	"Ask only about the stated research objective. " +
	"Never reference a product, topic, or brand the objective does not mention. " +
	"Reply as a JSON object with a \"question\" field."

const probingSystem = "You are a qualitative research interviewer analyzing a respondent's answer. " +
	"Decide whether to probe deeper into the current topic, move to the next question, or complete the interview. " +
	"Reply as a JSON object with \"action\" (probe | next_question | complete), \"question\", and \"analysis\" fields."

const objectiveAnalysisSystem = "You are a qualitative research planner. " +
	"Reply as a JSON object with \"target_audience\", \"screening_questions\" (array of strings, the first four demographic), " +
	"and \"interview_guide\" fields."

const synthesisSystem = "You are a qualitative research analyst. " +
	"Synthesize the key insights from the full interview transcript against the research objective."

// ClientBuilder constructs a provider client from a provider id and key.
type ClientBuilder interface {
	Build(provider, apiKey string) (providers.Client, error)
}

type Orchestrator struct {
	registry *registry.Registry
	settings *settings.Service
	resolver *catalog.Resolver
	clients  ClientBuilder
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func New(reg *registry.Registry, set *settings.Service, resolver *catalog.Resolver, clients ClientBuilder, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		settings: set,
		resolver: resolver,
		clients:  clients,
		metrics:  metrics.Global(),
		logger:   logger,
	}
}

// limitReached is the single termination guard shared by every
// question-producing phase. It must run before any provider call.
func limitReached(current, max int) bool {
	return max > 0 && current >= max
}

// invoke runs the shared model-invocation template for one use case and
// returns the raw reply text.
func (o *Orchestrator) invoke(ctx context.Context, useCase, system string, values map[string]string, temperature float64) (string, error) {
	model, err := o.registry.ActiveModel(ctx)
	if err != nil {
		return "", err
	}

	safe := o.resolver.SafeModel(model.ID)
	wantsJSON := o.resolver.SupportsJSONMode(safe)

	// A fallback changes the model id, and with it the provider: the safe
	// default is an OpenAI model, so keep the provider and key in step with
	// the id actually sent.
	provider := model.Provider
	if safe != model.ID {
		provider = catalog.ProviderFor(safe)
		if provider == "" {
			provider = catalog.ProviderOpenAI
		}
		if provider != model.Provider {
			o.logger.Warn().
				Str("requested_model", model.ID).
				Str("safe_model", safe).
				Str("provider", provider).
				Msg("model fallback switched provider")
		}
	}

	key, err := o.registry.GetAPIKey(ctx, provider)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("%w: no api key configured for provider %q", fault.ErrValidation, provider)
	}

	tmpl, err := o.settings.PromptTemplate(ctx, useCase)
	if err != nil {
		return "", err
	}
	user := prompt.Render(tmpl, values)

	client, err := o.clients.Build(provider, key)
	if err != nil {
		return "", err
	}

	o.metrics.LLMRequests.Inc()
	resp, err := client.Complete(ctx, providers.CompleteRequest{
		Model:        safe,
		SystemPrompt: system,
		UserPrompt:   user,
		Temperature:  temperature,
		WantsJSON:    wantsJSON,
	})
	if err != nil {
		o.metrics.LLMFailures.Inc()
		return "", err
	}
	return resp.Text, nil
}

type objectivePayload struct {
	TargetAudience     string   `json:"target_audience"`
	ScreeningQuestions []string `json:"screening_questions"`
	InterviewGuide     string   `json:"interview_guide"`
}

// AnalyzeObjective turns a research brief into a target-audience
// description, screening questions and an interview guide.
func (o *Orchestrator) AnalyzeObjective(ctx context.Context, in ObjectiveInput) (ObjectiveAnalysis, error) {
	if strings.TrimSpace(in.Objective) == "" {
		return ObjectiveAnalysis{}, fmt.Errorf("%w: objective is empty", fault.ErrValidation)
	}

	values := map[string]string{
		"objective":       in.Objective,
		"desiredInsights": orNotSpecified(in.DesiredInsights),
		"keyQuestions":    orNotSpecified(in.KeyQuestions),
		"hypothesis":      orNotSpecified(in.Hypothesis),
	}
	raw, err := o.invoke(ctx, prompt.UseCaseObjectiveAnalysis, objectiveAnalysisSystem, values, 0.7)
	if err != nil {
		return ObjectiveAnalysis{}, err
	}

	var payload objectivePayload
	if err := extract.Object(raw, &payload); err != nil {
		o.metrics.ExtractionFailures.Inc()
		return ObjectiveAnalysis{}, err
	}
	if payload.TargetAudience == "" || len(payload.ScreeningQuestions) == 0 {
		o.metrics.ExtractionFailures.Inc()
		return ObjectiveAnalysis{}, fmt.Errorf("%w: objective analysis reply missing required fields", fault.ErrExtraction)
	}

	out := ObjectiveAnalysis{
		TargetAudience:     payload.TargetAudience,
		InterviewGuide:     payload.InterviewGuide,
		ScreeningQuestions: make([]ScreeningQuestion, 0, len(payload.ScreeningQuestions)),
	}
	for i, q := range payload.ScreeningQuestions {
		out.ScreeningQuestions = append(out.ScreeningQuestions, ScreeningQuestion{
			Text:        q,
			Demographic: i < demographicScreeningCount,
		})
	}
	return out, nil
}

type questionPayload struct {
	Question string `json:"question"`
}

// GenerateFirstQuestion opens an interview. The off-objective guardrail
// rides in the system instruction.
func (o *Orchestrator) GenerateFirstQuestion(ctx context.Context, in FirstQuestionInput) (TurnResult, error) {
	if strings.TrimSpace(in.Objective) == "" {
		return TurnResult{}, fmt.Errorf("%w: objective is empty", fault.ErrValidation)
	}
	if limitReached(in.CurrentQuestionCount, in.QuestionCount) {
		return TurnResult{Action: ActionComplete}, nil
	}

	values := map[string]string{
		"objective":      in.Objective,
		"targetAudience": orNotSpecified(in.TargetAudience),
		"demographics":   orNotSpecified(in.Demographics),
	}
	raw, err := o.invoke(ctx, prompt.UseCaseFirstQuestion, firstQuestionSystem, values, 0.8)
	if err != nil {
		return TurnResult{}, err
	}

	question, err := o.recoverQuestion(raw)
	if err != nil {
		return TurnResult{}, err
	}
	return TurnResult{Action: ActionNextQuestion, Question: question}, nil
}

type turnPayload struct {
	Action       string `json:"action"`
	Question     string `json:"question"`
	NextQuestion string `json:"next_question"`
	Analysis     string `json:"analysis"`
}

// AnalyzeAnswer decides the next step after a respondent's answer. The turn
// limit short-circuits to Complete without touching the provider.
func (o *Orchestrator) AnalyzeAnswer(ctx context.Context, t Turn) (TurnResult, error) {
	if strings.TrimSpace(t.Answer) == "" {
		return TurnResult{}, fmt.Errorf("%w: answer is empty", fault.ErrValidation)
	}
	if limitReached(t.CurrentQuestionCount, t.QuestionCount) {
		return TurnResult{Action: ActionComplete}, nil
	}

	values := map[string]string{
		"objective":      orNotSpecified(t.Objective),
		"question":       t.Question,
		"answer":         t.Answer,
		"priorQuestions": strings.Join(t.PriorQuestions, "\n"),
		"questionsAsked": fmt.Sprintf("%d of %d", t.CurrentQuestionCount, t.QuestionCount),
	}
	raw, err := o.invoke(ctx, prompt.UseCaseProbing, probingSystem, values, 0.7)
	if err != nil {
		return TurnResult{}, err
	}

	var payload turnPayload
	if err := extract.Object(raw, &payload); err != nil {
		// The reply was not parseable JSON; recover the question text and
		// advance rather than failing the whole turn.
		question, qerr := o.recoverQuestion(raw)
		if qerr != nil {
			return TurnResult{}, qerr
		}
		return TurnResult{Action: ActionNextQuestion, Question: question}, nil
	}

	question := payload.Question
	if question == "" {
		question = payload.NextQuestion
	}

	switch Action(payload.Action) {
	case ActionComplete:
		return TurnResult{Action: ActionComplete, Analysis: payload.Analysis}, nil
	case ActionProbe, ActionNextQuestion:
		if strings.TrimSpace(question) == "" {
			o.metrics.ExtractionFailures.Inc()
			return TurnResult{}, fmt.Errorf("%w: %s action carried no question text", fault.ErrExtraction, payload.Action)
		}
		return TurnResult{Action: Action(payload.Action), Question: question, Analysis: payload.Analysis}, nil
	default:
		if strings.TrimSpace(question) != "" {
			o.logger.Warn().Str("action", payload.Action).Msg("unknown turn action, treating as next_question")
			return TurnResult{Action: ActionNextQuestion, Question: question, Analysis: payload.Analysis}, nil
		}
		o.metrics.ExtractionFailures.Inc()
		return TurnResult{}, fmt.Errorf("%w: unusable turn analysis reply", fault.ErrExtraction)
	}
}

// SynthesizeInsights produces the final insight write-up for a transcript.
// The reply is free text; no structured recovery applies.
func (o *Orchestrator) SynthesizeInsights(ctx context.Context, in SynthesisInput) (string, error) {
	if strings.TrimSpace(in.Objective) == "" {
		return "", fmt.Errorf("%w: objective is empty", fault.ErrValidation)
	}
	if len(in.Transcript) == 0 {
		return "", fmt.Errorf("%w: transcript is empty", fault.ErrValidation)
	}

	cfg, err := o.settings.AIConfig(ctx)
	if err != nil {
		return "", err
	}
	weights := make([]string, 0, len(cfg.Weights))
	for name, w := range cfg.Weights {
		weights = append(weights, fmt.Sprintf("%s=%.2f", name, w))
	}

	var b strings.Builder
	for i, ex := range in.Transcript {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, ex.Question, i+1, ex.Answer)
	}

	values := map[string]string{
		"objective":  in.Objective,
		"transcript": b.String(),
		"weights":    orNotSpecified(strings.Join(weights, ", ")),
	}
	raw, err := o.invoke(ctx, prompt.UseCaseInsightSynthesis, synthesisSystem, values, 0.5)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		o.metrics.ExtractionFailures.Inc()
		return "", fmt.Errorf("%w: empty synthesis reply", fault.ErrExtraction)
	}
	return raw, nil
}

// recoverQuestion parses a question-bearing reply: strict JSON first, then
// the extraction cascade.
func (o *Orchestrator) recoverQuestion(raw string) (string, error) {
	var payload questionPayload
	if err := extract.Object(raw, &payload); err == nil && strings.TrimSpace(payload.Question) != "" {
		return payload.Question, nil
	}

	question, err := extract.Question(raw)
	if err != nil {
		o.metrics.ExtractionFailures.Inc()
		return "", err
	}
	o.metrics.ExtractionFallbacks.Inc()
	o.logger.Warn().Msg("reply was not valid json, recovered question via fallback extraction")
	return question, nil
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not specified"
	}
	return s
}
