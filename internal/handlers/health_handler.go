package handlers

import (
	"context"
	"net/http"
	"time"

	"gorm.io/gorm"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/utils"
)

const readinessTimeout = 2 * time.Second

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"`  // "ready" | "not_ready"
	Service string                    `json:"service"` // Service name
	Checks  map[string]ReadinessCheck `json:"checks"`  // Individual check results
}

// Pinger is satisfied by the Redis event publisher.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db            *gorm.DB
	provider      llm.Provider
	promptManager prompts.PromptProvider
	events        Pinger
}

// NewHealthHandler builds the probe handler. events may be nil when no broker is configured.
func NewHealthHandler(db *gorm.DB, provider llm.Provider, promptManager prompts.PromptProvider, events Pinger) *HealthHandler {
	return &HealthHandler{
		db:            db,
		provider:      provider,
		promptManager: promptManager,
		events:        events,
	}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "interview",
		"version": "1.0.0",
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]ReadinessCheck)
	allChecksPass := true
	record := func(name string, err error) {
		if err != nil {
			checks[name] = ReadinessCheck{Status: "failed", Message: err.Error()}
			allChecksPass = false
			return
		}
		checks[name] = ReadinessCheck{Status: "ok"}
	}

	record("database", handler.pingDatabase(ctx))

	if handler.provider == nil {
		record("provider", errString("AI provider not initialized"))
	} else {
		record("provider", nil)
	}

	switch {
	case handler.promptManager == nil:
		record("prompt_manager", errString("Prompt manager not initialized"))
	case len(handler.promptManager.GetTemplates()) == 0:
		record("prompt_manager", errString("No prompt templates loaded"))
	default:
		record("prompt_manager", nil)
	}

	// the broker is optional; only report it when configured
	if handler.events != nil {
		record("events", handler.events.Ping(ctx))
	}

	response := ReadinessResponse{
		Service: "interview",
		Checks:  checks,
	}

	if allChecksPass {
		response.Status = "ready"
		utils.JSON(writer, http.StatusOK, response)
	} else {
		response.Status = "not_ready"
		utils.JSON(writer, http.StatusServiceUnavailable, response)
	}
}

func (handler *HealthHandler) pingDatabase(ctx context.Context) error {
	if handler.db == nil {
		return errString("Database not initialized")
	}
	sqlDB, err := handler.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

type errString string

func (e errString) Error() string { return string(e) }
