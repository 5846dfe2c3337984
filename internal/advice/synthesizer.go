// Package advice summarizes a candidate's whole interview history into improvement advice.
package advice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"peerprep/interview/internal/gateway"
	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"
)

var (
	ErrNoSessions     = errors.New("candidate has no interview sessions")
	ErrNoInteractions = errors.New("candidate sessions have no interactions")
)

const (
	noAnswer   = "(no answer submitted)"
	noFeedback = "(no feedback)"
)

// HistorySource reads a candidate's stored sessions and turns.
type HistorySource interface {
	ListSessions(ctx context.Context, candidateID string) ([]models.Session, error)
	InteractionsForSessions(ctx context.Context, sessionIDs []string) ([]models.Interaction, error)
}

// Advisor generates advice text from a transcript.
type Advisor interface {
	Advise(ctx context.Context, transcript string) (string, error)
}

type Result struct {
	Advice       string
	Degraded     bool
	Sessions     int
	Interactions int
}

type Synthesizer struct {
	history HistorySource
	advisor Advisor
	logger  *zap.Logger
}

func NewSynthesizer(history HistorySource, advisor Advisor, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{history: history, advisor: advisor, logger: logger}
}

// Summarize reads every interaction across the candidate's sessions in chronological
// order and asks for advice. A failed generation call yields a degraded Result rather
// than an error. Nothing is written.
func (s *Synthesizer) Summarize(ctx context.Context, candidateID string) (*Result, error) {
	sessions, err := s.history.ListSessions(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}

	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.ID)
	}
	interactions, err := s.history.InteractionsForSessions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions: %w", err)
	}
	if len(interactions) == 0 {
		return nil, ErrNoInteractions
	}

	result := &Result{Sessions: len(sessions), Interactions: len(interactions)}
	text, err := s.advisor.Advise(ctx, BuildTranscript(interactions))
	if err != nil {
		s.logger.Warn("advice generation failed, returning placeholder",
			zap.String("candidate_id", candidateID),
			zap.String("code", llm.ErrorCode(err)),
			zap.Error(err),
		)
		result.Advice = gateway.Degraded(gateway.KindAdvice)
		result.Degraded = true
		return result, nil
	}
	result.Advice = text
	return result, nil
}

// BuildTranscript renders interactions in the given order, substituting placeholders
// for turns that were never answered or never evaluated.
func BuildTranscript(interactions []models.Interaction) string {
	var b strings.Builder
	for i, it := range interactions {
		if i > 0 {
			b.WriteString("\n")
		}
		answer := noAnswer
		if it.Answer != nil && strings.TrimSpace(*it.Answer) != "" {
			answer = *it.Answer
		}
		feedback := noFeedback
		if it.Feedback != nil && strings.TrimSpace(*it.Feedback) != "" {
			feedback = *it.Feedback
		}
		score := "not scored"
		if it.Score != nil {
			score = strconv.Itoa(*it.Score) + "/10"
		}

		fmt.Fprintf(&b, "Question %d: %s\n", i+1, it.Question)
		fmt.Fprintf(&b, "Answer: %s\n", answer)
		fmt.Fprintf(&b, "Feedback: %s\n", feedback)
		fmt.Fprintf(&b, "Score: %s\n", score)
	}
	return b.String()
}
