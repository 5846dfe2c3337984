package handlers

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/transcripts"
	"peerprep/interview/internal/utils"
)

type TranscriptHandler struct {
	manager  *transcripts.Manager
	minScore int
	now      func() time.Time
	logger   *zap.Logger
}

func NewTranscriptHandler(manager *transcripts.Manager, minScore int, logger *zap.Logger) *TranscriptHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptHandler{
		manager:  manager,
		minScore: minScore,
		now:      time.Now,
		logger:   logger,
	}
}

// ExportTranscripts handles GET /api/v1/interview/transcripts/export
// Query params:
// - days: number of days to look back (default: 7)
// - limit: maximum number of interactions scanned (optional)
// - min_score: lowest score exported (default: configured threshold)
// - format: "jsonl" (default, training examples), "ndjson" (raw interactions) or "json"
//
// On-demand exports do not move the scheduled exporter's checkpoint.
func (th *TranscriptHandler) ExportTranscripts(w http.ResponseWriter, r *http.Request) {
	days := positiveParam(r, "days", 7)
	limit := positiveParam(r, "limit", 0)
	minScore := positiveParam(r, "min_score", th.minScore)
	if minScore > models.MaxInteractionScore {
		writeBadRequest(w, "invalid_min_score", "min_score must be between 1 and 10")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "jsonl"
	}
	if format != "jsonl" && format != "ndjson" && format != "json" {
		writeBadRequest(w, "invalid_format", "format must be one of: jsonl, ndjson, json")
		return
	}

	since := th.now().AddDate(0, 0, -days)
	interactions, err := th.manager.AnsweredSince(r.Context(), since, limit)
	if err != nil {
		th.logger.Error("Failed to load transcripts", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.Resp{
			OK:   false,
			Info: "failed to export transcripts",
		})
		return
	}

	exportable := make([]models.Interaction, 0, len(interactions))
	for _, it := range interactions {
		if transcripts.Exportable(it, minScore) {
			exportable = append(exportable, it)
		}
	}
	if len(exportable) == 0 {
		utils.JSON(w, http.StatusOK, models.Resp{
			OK:   true,
			Info: "no transcripts to export",
		})
		return
	}

	switch format {
	case "jsonl":
		data, _, err := th.manager.ExportToJSONL(exportable, minScore)
		if err != nil {
			th.logger.Error("Failed to export to JSONL", zap.Error(err))
			utils.JSON(w, http.StatusInternalServerError, models.Resp{
				OK:   false,
				Info: "failed to export to JSONL",
			})
			return
		}
		w.Header().Set("Content-Type", "application/jsonl")
		w.Header().Set("Content-Disposition", "attachment; filename=transcripts_export.jsonl")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	case "ndjson":
		if err := utils.NDJSON(w, http.StatusOK, exportable); err != nil {
			th.logger.Warn("NDJSON stream interrupted", zap.Error(err))
		}
	default:
		utils.JSON(w, http.StatusOK, models.Resp{
			OK:   true,
			Info: exportable,
		})
	}

	th.logger.Info("Exported transcripts",
		zap.Int("exported", len(exportable)),
		zap.Int("days", days),
		zap.String("format", format))
}

// GetTranscriptStats handles GET /api/v1/interview/transcripts/stats
func (th *TranscriptHandler) GetTranscriptStats(w http.ResponseWriter, r *http.Request) {
	stats, err := th.manager.GetStats(r.Context(), th.minScore)
	if err != nil {
		th.logger.Error("Failed to get transcript stats", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.Resp{
			OK:   false,
			Info: "failed to get transcript stats",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.Resp{
		OK:   true,
		Info: stats,
	})
}

// positiveParam reads a positive integer query parameter, ignoring anything else.
func positiveParam(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}
