package routers

import (
	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/middleware"
	"peerprep/interview/internal/models"

	"github.com/go-chi/chi/v5"
)

func InterviewRoutes(router *chi.Mux, interviewHandler *handlers.InterviewHandler, transcriptHandler *handlers.TranscriptHandler, operatorKey string) {
	router.Route("/api/v1/interview", func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.QuestionRequest]()).Post("/question", interviewHandler.Question)
		r.With(middleware.ValidateRequest[*models.FeedbackRequest]()).Post("/feedback", interviewHandler.Feedback)
		r.Get("/session/{session_id}", interviewHandler.GetSession)

		// candidate scoped reads
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCandidate)
			r.Get("/sessions", interviewHandler.ListSessions)
			r.Post("/advice", interviewHandler.Advice)
			r.Get("/skills", interviewHandler.Skills)
			r.Get("/skills/history", interviewHandler.SkillHistory)
		})

		// cross-candidate reads for operators
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOperator(operatorKey))
			r.Get("/transcripts/export", transcriptHandler.ExportTranscripts)
			r.Get("/transcripts/stats", transcriptHandler.GetTranscriptStats)
		})
	})
}
