package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"peerprep/interview/internal/advice"
	"peerprep/interview/internal/gateway"
	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/parser"
	"peerprep/interview/internal/session"
	"peerprep/interview/internal/skills"
	"peerprep/interview/internal/utils"
)

// errForeignSession is reported as a missing session but never lets a caller create it.
var errForeignSession = fmt.Errorf("session owned by another candidate: %w", session.ErrSessionNotFound)

type InterviewHandler struct {
	sessions *session.Manager
	skills   *skills.Merger
	gateway  *gateway.Gateway
	advisor  *advice.Synthesizer
	logger   *zap.Logger
}

func NewInterviewHandler(sessions *session.Manager, merger *skills.Merger, gw *gateway.Gateway, advisor *advice.Synthesizer, logger *zap.Logger) *InterviewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterviewHandler{
		sessions: sessions,
		skills:   merger,
		gateway:  gw,
		advisor:  advisor,
		logger:   logger,
	}
}

// Question handles POST /api/v1/interview/question
func (h *InterviewHandler) Question(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.QuestionRequest](r)
	ctx := r.Context()
	candidateID, hasCandidate := middleware.CandidateFromContext(ctx)

	sessionID := req.SessionID
	if sessionID == "" {
		var owner *string
		if hasCandidate {
			owner = &candidateID
		}
		id, err := h.sessions.StartSession(ctx, owner)
		if err != nil {
			h.internalError(w, "Failed to start session", err)
			return
		}
		sessionID = id
		h.logger.Info("Session started", zap.String("session_id", sessionID), zap.Bool("authenticated", hasCandidate))
	} else if _, err := h.ownedSession(ctx, sessionID); err != nil {
		// unknown ids are materialized later when sessions are created lazily
		if !errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, errForeignSession) || h.sessions.RequiresSession() {
			h.writeError(w, err)
			return
		}
	}

	gwReq := gateway.QuestionRequest{
		Role:            req.Role,
		ExperienceLevel: req.Experience,
		TechStack:       req.TechStack,
		Difficulty:      req.Difficulty,
	}
	prior, err := h.sessions.LastAnswered(ctx, sessionID)
	if err != nil {
		h.internalError(w, "Failed to load interview context", err)
		return
	}
	if prior != nil {
		gwReq.PriorQuestion = &prior.Question
		gwReq.PriorAnswer = prior.Answer
	}
	if current, err := h.sessions.CurrentInteraction(ctx, sessionID); err == nil {
		gwReq.LastQuestion = &current.Question
	}

	question, err := h.gateway.SynthesizeQuestion(ctx, gwReq)
	if err != nil {
		h.logger.Warn("Question generation failed",
			zap.String("session_id", sessionID),
			zap.String("code", llm.ErrorCode(err)),
			zap.Error(err))
		utils.JSON(w, http.StatusOK, models.QuestionResponse{
			Question:  gateway.Degraded(gateway.KindQuestion),
			SessionID: sessionID,
			Degraded:  true,
		})
		return
	}

	interactionID, err := h.sessions.RecordQuestion(ctx, sessionID, question)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.QuestionResponse{
		Question:      question,
		SessionID:     sessionID,
		InteractionID: interactionID,
	})
}

// Feedback handles POST /api/v1/interview/feedback
func (h *InterviewHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.FeedbackRequest](r)
	ctx := r.Context()

	sess, err := h.ownedSession(ctx, req.SessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var target *models.Interaction
	if req.InteractionID != nil {
		target, err = h.sessions.GetInteraction(ctx, sess.ID, *req.InteractionID)
		if err == nil && target.Answered() {
			err = session.ErrAlreadyAnswered
		}
	} else {
		target, err = h.sessions.CurrentInteraction(ctx, sess.ID)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	vocabulary := h.skills.Vocabulary()
	raw, err := h.gateway.Evaluate(ctx, target.Question, req.Answer, vocabulary)
	if err != nil {
		// nothing is recorded so the candidate can resubmit
		h.logger.Warn("Answer evaluation failed",
			zap.String("session_id", sess.ID),
			zap.Uint("interaction_id", target.ID),
			zap.String("code", llm.ErrorCode(err)),
			zap.Error(err))
		utils.JSON(w, http.StatusOK, models.FeedbackResponse{
			Feedback:      gateway.Degraded(gateway.KindEvaluation),
			InteractionID: target.ID,
			Degraded:      true,
		})
		return
	}

	parsed := parser.ParseFeedback(raw)
	metrics.ObserveParse("feedback", string(parsed.Outcome))

	var recorded *models.Interaction
	if req.InteractionID != nil {
		recorded, err = h.sessions.RecordAnswerFor(ctx, sess.ID, *req.InteractionID, req.Answer, parsed.Feedback, parsed.Score)
	} else {
		recorded, err = h.sessions.RecordAnswer(ctx, sess.ID, req.Answer, parsed.Feedback, parsed.Score)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := models.FeedbackResponse{
		Feedback:      parsed.Feedback,
		Score:         parsed.Score,
		InteractionID: recorded.ID,
	}
	if candidateID := h.skillOwner(ctx, sess); candidateID != "" {
		resp.Skills = h.updateSkills(ctx, candidateID, raw, vocabulary, *recorded.AnsweredAt)
	}

	h.logger.Info("Answer recorded",
		zap.String("session_id", sess.ID),
		zap.Uint("interaction_id", recorded.ID),
		zap.Int("score", parsed.Score),
		zap.String("parse_outcome", string(parsed.Outcome)))

	utils.JSON(w, http.StatusOK, resp)
}

// updateSkills merges the skill ratings found in raw and returns the resulting profile.
// Failures are logged; the answer is already stored at this point.
func (h *InterviewHandler) updateSkills(ctx context.Context, candidateID, raw string, vocabulary []string, ts time.Time) map[string]float64 {
	previous, err := h.skills.GetProfile(ctx, candidateID)
	if err != nil {
		h.logger.Error("Failed to load skill profile", zap.String("candidate_id", candidateID), zap.Error(err))
		return nil
	}

	result := parser.ParseSkillScores(raw, vocabulary, previous)
	metrics.ObserveParse("skills", string(result.Outcome))
	if result.Outcome != parser.Parsed || len(result.Scores) == 0 {
		return previous
	}

	if err := h.skills.ApplyScores(ctx, candidateID, result.Scores, ts); err != nil {
		h.logger.Error("Failed to apply skill scores", zap.String("candidate_id", candidateID), zap.Error(err))
	}
	profile, err := h.skills.GetProfile(ctx, candidateID)
	if err != nil {
		h.logger.Error("Failed to reload skill profile", zap.String("candidate_id", candidateID), zap.Error(err))
		return previous
	}
	return profile
}

// GetSession handles GET /api/v1/interview/session/{session_id}
func (h *InterviewHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	offset, limit, ok := pagination(w, r)
	if !ok {
		return
	}

	if _, err := h.ownedSession(r.Context(), sessionID); err != nil {
		h.writeError(w, err)
		return
	}
	page, err := h.sessions.ListInteractions(r.Context(), sessionID, offset, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.SessionDetailResponse{
		SessionID:    sessionID,
		Interactions: page.Interactions,
		Pagination: models.Pagination{
			Offset:  page.Offset,
			Limit:   page.Limit,
			Total:   page.Total,
			HasMore: page.HasMore(),
		},
	})
}

// ListSessions handles GET /api/v1/interview/sessions
func (h *InterviewHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	candidateID, _ := middleware.CandidateFromContext(r.Context())

	sessions, err := h.sessions.ListSessions(r.Context(), candidateID)
	if err != nil {
		h.internalError(w, "Failed to list sessions", err)
		return
	}
	utils.JSON(w, http.StatusOK, models.SessionListResponse{Sessions: sessions})
}

// Advice handles POST /api/v1/interview/advice
func (h *InterviewHandler) Advice(w http.ResponseWriter, r *http.Request) {
	candidateID, _ := middleware.CandidateFromContext(r.Context())

	result, err := h.advisor.Summarize(r.Context(), candidateID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Advice generated",
		zap.String("candidate_id", candidateID),
		zap.Int("sessions", result.Sessions),
		zap.Int("interactions", result.Interactions),
		zap.Bool("degraded", result.Degraded))

	utils.JSON(w, http.StatusOK, models.AdviceResponse{
		Advice:   result.Advice,
		Degraded: result.Degraded,
	})
}

// Skills handles GET /api/v1/interview/skills
func (h *InterviewHandler) Skills(w http.ResponseWriter, r *http.Request) {
	candidateID, _ := middleware.CandidateFromContext(r.Context())

	profile, err := h.skills.GetProfile(r.Context(), candidateID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.SkillProfileResponse{CandidateID: candidateID, Skills: profile})
}

// SkillHistory handles GET /api/v1/interview/skills/history?skill=&offset=&limit=
func (h *InterviewHandler) SkillHistory(w http.ResponseWriter, r *http.Request) {
	candidateID, _ := middleware.CandidateFromContext(r.Context())
	offset, limit, ok := pagination(w, r)
	if !ok {
		return
	}
	skill := models.NormalizeSkill(r.URL.Query().Get("skill"))

	records, total, err := h.skills.History(r.Context(), candidateID, skill, offset, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, models.SkillHistoryResponse{
		CandidateID: candidateID,
		History:     records,
		Pagination: models.Pagination{
			Offset:  offset,
			Limit:   limit,
			Total:   total,
			HasMore: int64(offset+len(records)) < total,
		},
	})
}

// ownedSession loads a session visible to the caller. Sessions bound to a candidate
// are reported as missing to everyone else.
func (h *InterviewHandler) ownedSession(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := h.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CandidateID != nil {
		if caller, ok := middleware.CandidateFromContext(ctx); !ok || caller != *sess.CandidateID {
			return nil, errForeignSession
		}
	}
	return sess, nil
}

// skills are tracked for the session owner, falling back to the authenticated caller
func (h *InterviewHandler) skillOwner(ctx context.Context, sess *models.Session) string {
	if sess.CandidateID != nil {
		return *sess.CandidateID
	}
	candidateID, _ := middleware.CandidateFromContext(ctx)
	return candidateID
}

func pagination(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeBadRequest(w, "invalid_pagination", "offset must be an integer")
		return 0, 0, false
	}
	limit, err := queryInt(r, "limit", models.DefaultPageLimit)
	if err != nil {
		writeBadRequest(w, "invalid_pagination", "limit must be an integer")
		return 0, 0, false
	}
	return offset, limit, true
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{Code: code, Message: message})
}

// writeError maps domain errors onto HTTP responses.
func (h *InterviewHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{Code: "session_not_found", Message: "Session not found"})
	case errors.Is(err, session.ErrInteractionNotFound):
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{Code: "interaction_not_found", Message: "Interaction not found in this session"})
	case errors.Is(err, session.ErrNoOpenInteraction):
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{Code: "no_interaction", Message: "Session has no question to answer"})
	case errors.Is(err, session.ErrAlreadyAnswered):
		utils.JSON(w, http.StatusConflict, models.ErrorResponse{Code: "already_answered", Message: "Interaction has already been answered"})
	case errors.Is(err, advice.ErrNoSessions):
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{Code: "no_sessions", Message: "No interview sessions found"})
	case errors.Is(err, advice.ErrNoInteractions):
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{Code: "no_interactions", Message: "No interview questions found"})
	case errors.Is(err, session.ErrInvalidPagination), errors.Is(err, skills.ErrInvalidPagination):
		writeBadRequest(w, "invalid_pagination", err.Error())
	case errors.Is(err, skills.ErrUnknownSkill):
		writeBadRequest(w, "unknown_skill", err.Error())
	case errors.Is(err, skills.ErrMissingCandidate):
		utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{Code: "unauthorized", Message: "Authentication required"})
	default:
		h.internalError(w, "Internal server error", err)
	}
}

func (h *InterviewHandler) internalError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, zap.Error(err))
	utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{Code: "internal_error", Message: message})
}
