package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"peerprep/interview/internal/advice"
	"peerprep/interview/internal/gateway"
	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/session"
	"peerprep/interview/internal/skills"
	"peerprep/interview/internal/testhelpers"
	"peerprep/interview/internal/transcripts"
)

var testSkills = []string{"communication", "coding", "system_design"}

// mockProvider answers each prompt kind with its own function.
type mockProvider struct {
	mu         sync.Mutex
	questionFn func(prompt string) (string, error)
	evaluateFn func(prompt string) (string, error)
	adviceFn   func(prompt string) (string, error)
	prompts    []string
}

func (m *mockProvider) GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	var fn func(string) (string, error)
	switch {
	case strings.Contains(prompt, "grading a mock interview answer"):
		fn = m.evaluateFn
	case strings.Contains(prompt, "career coach"):
		fn = m.adviceFn
	default:
		fn = m.questionFn
	}
	if fn == nil {
		return nil, &llm.ProviderError{Provider: "mock", Code: llm.ErrCodeServiceDown, Message: "not scripted"}
	}
	text, err := fn(prompt)
	if err != nil {
		return nil, err
	}
	return &models.GenerationResponse{Content: text, RequestID: requestID}, nil
}

func (m *mockProvider) GetProviderName() string {
	return "mock"
}

func (m *mockProvider) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func reply(text string) func(string) (string, error) {
	return func(string) (string, error) { return text, nil }
}

func failing(code string) func(string) (string, error) {
	return func(string) (string, error) {
		return "", &llm.ProviderError{Provider: "mock", Code: code, Message: "mock failure", Err: errors.New(code)}
	}
}

type testEnv struct {
	db          *gorm.DB
	provider    *mockProvider
	sessions    *session.Manager
	skills      *skills.Merger
	transcripts *transcripts.Manager
	router      http.Handler
}

func newTestEnv(t *testing.T, requireSession bool) *testEnv {
	t.Helper()
	db := testhelpers.SetupTestDB(t)
	pm, err := prompts.NewPromptManager()
	if err != nil {
		t.Fatalf("NewPromptManager error: %v", err)
	}

	env := &testEnv{
		db:          db,
		provider:    &mockProvider{},
		sessions:    session.NewManager(db, session.Options{RequireSession: requireSession, Now: testhelpers.Clock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), time.Second)}),
		skills:      skills.NewMerger(db, testSkills, nil),
		transcripts: transcripts.NewManager(db, transcripts.Options{}),
	}
	gw := gateway.New(env.provider, pm, gateway.Options{Timeout: time.Second, Logger: zap.NewNop()})
	synth := advice.NewSynthesizer(env.sessions, gw, zap.NewNop())

	interview := NewInterviewHandler(env.sessions, env.skills, gw, synth, zap.NewNop())
	transcript := NewTranscriptHandler(env.transcripts, 7, zap.NewNop())

	r := chi.NewRouter()
	r.With(middleware.ValidateRequest[*models.QuestionRequest]()).Post("/question", interview.Question)
	r.With(middleware.ValidateRequest[*models.FeedbackRequest]()).Post("/feedback", interview.Feedback)
	r.Get("/session/{session_id}", interview.GetSession)
	r.Get("/sessions", interview.ListSessions)
	r.Post("/advice", interview.Advice)
	r.Get("/skills", interview.Skills)
	r.Get("/skills/history", interview.SkillHistory)
	r.Get("/transcripts/export", transcript.ExportTranscripts)
	r.Get("/transcripts/stats", transcript.GetTranscriptStats)
	env.router = r
	return env
}

// do sends a request as candidate; an empty candidate is anonymous.
func (e *testEnv) do(t *testing.T, method, path string, body any, candidate string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if candidate != "" {
		req = req.WithContext(middleware.WithCandidate(req.Context(), candidate))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
}

func expectErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	if resp := decode[models.ErrorResponse](t, rec); resp.Code != code {
		t.Fatalf("expected error code %s, got %s", code, resp.Code)
	}
}
