// Package gateway is the single path from the interview engine to the text generation
// provider. Every call is bounded by a timeout and failures surface as *llm.ProviderError.
package gateway

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/observability"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/utils"
)

const DefaultTimeout = 30 * time.Second

const maxLogLength = 200

type Kind string

const (
	KindQuestion   Kind = "question"
	KindEvaluation Kind = "evaluate"
	KindAdvice     Kind = "advice"
)

// prefix carried by every placeholder returned in place of generated text
const DegradedPrefix = "[AI unavailable]"

var degradedText = map[Kind]string{
	KindQuestion:   DegradedPrefix + " A new question could not be generated right now. Please try again in a moment.",
	KindEvaluation: DegradedPrefix + " Your answer could not be evaluated right now. It was not recorded, please submit it again shortly.",
	KindAdvice:     DegradedPrefix + " Advice could not be generated right now. Please try again later.",
}

// Degraded returns the user-visible placeholder for a failed call of the given kind.
func Degraded(kind Kind) string {
	if text, ok := degradedText[kind]; ok {
		return text
	}
	return DegradedPrefix
}

// QuestionRequest carries the interview context for the next question. PriorAnswer is
// nil for the opening question of a session; PriorQuestion is the question it answered.
// LastQuestion is the newest question asked, answered or not.
type QuestionRequest struct {
	Role            string
	ExperienceLevel string
	TechStack       string
	Difficulty      string
	PriorQuestion   *string
	PriorAnswer     *string
	LastQuestion    *string
}

type Options struct {
	Timeout time.Duration
	Logger  *zap.Logger
	Tracer  trace.Tracer
}

type Gateway struct {
	provider llm.Provider
	prompts  prompts.PromptProvider
	timeout  time.Duration
	logger   *zap.Logger
	tracer   trace.Tracer
}

func New(provider llm.Provider, promptProvider prompts.PromptProvider, opts Options) *Gateway {
	g := &Gateway{
		provider: provider,
		prompts:  promptProvider,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.tracer == nil {
		g.tracer = observability.Tracer()
	}
	return g
}

// SynthesizeQuestion produces the next question. A reply that repeats the prior or the
// last question verbatim is treated as a failed call.
func (g *Gateway) SynthesizeQuestion(ctx context.Context, req QuestionRequest) (string, error) {
	data := prompts.QuestionData{
		Role:            req.Role,
		ExperienceLevel: req.ExperienceLevel,
		TechStack:       req.TechStack,
		Difficulty:      req.Difficulty,
	}
	variant := prompts.VariantOpening
	if req.PriorAnswer != nil {
		variant = prompts.VariantFollowup
		data.PriorAnswer = *req.PriorAnswer
		if req.PriorQuestion != nil {
			data.PriorQuestion = *req.PriorQuestion
		}
	}

	prompt, err := g.prompts.BuildPrompt(prompts.ModeQuestion, variant, data)
	if err != nil {
		return "", g.invalidPrompt(err)
	}

	question, err := g.generate(ctx, KindQuestion, prompt)
	if err != nil {
		return "", err
	}
	question = utils.CleanGeneratedText(question)

	if repeats(question, req.PriorQuestion) || repeats(question, req.LastQuestion) {
		metrics.ObserveGatewayCall(string(KindQuestion), llm.ErrCodeRepeated, 0)
		return "", &llm.ProviderError{
			Provider: g.provider.GetProviderName(),
			Code:     llm.ErrCodeRepeated,
			Message:  "Generated question repeats the previous question",
		}
	}
	return question, nil
}

func repeats(question string, previous *string) bool {
	return previous != nil && utils.NormalizeQuestion(question) == utils.NormalizeQuestion(*previous)
}

// Evaluate grades one answer. The returned text holds the Feedback/Score lines and a
// JSON object of skill ratings for the given vocabulary.
func (g *Gateway) Evaluate(ctx context.Context, question, answer string, skills []string) (string, error) {
	prompt, err := g.prompts.BuildPrompt(prompts.ModeEvaluate, prompts.VariantDefault, prompts.EvaluationData{
		Question: question,
		Answer:   answer,
		Skills:   skills,
	})
	if err != nil {
		return "", g.invalidPrompt(err)
	}
	return g.generate(ctx, KindEvaluation, prompt)
}

// Advise turns a rendered interview transcript into improvement advice.
func (g *Gateway) Advise(ctx context.Context, transcript string) (string, error) {
	prompt, err := g.prompts.BuildPrompt(prompts.ModeAdvice, prompts.VariantDefault, prompts.AdviceData{
		Transcript: transcript,
	})
	if err != nil {
		return "", g.invalidPrompt(err)
	}
	return g.generate(ctx, KindAdvice, prompt)
}

func (g *Gateway) generate(ctx context.Context, kind Kind, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	requestID := uuid.NewString()
	ctx, span := g.tracer.Start(ctx, "gateway."+string(kind), trace.WithAttributes(
		attribute.String("gateway.operation", string(kind)),
		attribute.String("gateway.provider", g.provider.GetProviderName()),
		attribute.String("request_id", requestID),
	))
	defer span.End()

	g.logger.Debug("generate content request",
		zap.String("operation", string(kind)),
		zap.String("request_id", requestID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, maxLogLength)),
	)

	start := time.Now()
	resp, err := g.provider.GenerateContent(ctx, prompt, requestID)
	elapsed := time.Since(start)
	if err != nil {
		provErr := g.classify(ctx, err)
		metrics.ObserveGatewayCall(string(kind), provErr.Code, elapsed)
		span.RecordError(provErr)
		span.SetStatus(codes.Error, provErr.Code)
		g.logger.Warn("text generation failed",
			zap.String("operation", string(kind)),
			zap.String("request_id", requestID),
			zap.String("code", provErr.Code),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", provErr
	}

	metrics.ObserveGatewayCall(string(kind), "ok", elapsed)
	span.SetAttributes(attribute.String("gateway.model", resp.Metadata.Model))
	g.logger.Debug("generate content response",
		zap.String("operation", string(kind)),
		zap.String("request_id", requestID),
		zap.Duration("elapsed", elapsed),
		zap.Int("response_length", utf8.RuneCountInString(resp.Content)),
		zap.String("response_preview", utils.TruncateForLog(resp.Content, maxLogLength)),
	)
	return resp.Content, nil
}

// classify maps any provider failure onto a ProviderError, reporting an expired
// deadline as a timeout regardless of how the provider surfaced it.
func (g *Gateway) classify(ctx context.Context, err error) *llm.ProviderError {
	var provErr *llm.ProviderError
	if !errors.As(err, &provErr) {
		provErr = &llm.ProviderError{
			Provider: g.provider.GetProviderName(),
			Code:     llm.ErrCodeServiceDown,
			Message:  "Text generation failed",
			Err:      err,
		}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && provErr.Code != llm.ErrCodeTimeout {
		provErr = &llm.ProviderError{
			Provider: provErr.Provider,
			Code:     llm.ErrCodeTimeout,
			Message:  "Text generation timed out after " + g.timeout.String(),
			Err:      err,
		}
	}
	return provErr
}

func (g *Gateway) invalidPrompt(err error) error {
	return &llm.ProviderError{
		Provider: g.provider.GetProviderName(),
		Code:     llm.ErrCodeInvalidInput,
		Message:  "Failed to build prompt",
		Err:      err,
	}
}
