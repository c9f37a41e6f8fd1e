package api

import (
	"log/slog"
	"net/http"

	"github.com/nepalijets/nepalijets-api/internal/api/shared"
	"github.com/nepalijets/nepalijets-api/internal/platform/logger"
	"github.com/nepalijets/nepalijets-api/internal/service"
)

// LearningHandler handles the learner-facing HTTP requests.
type LearningHandler struct {
	learningService service.LearningService
	logger          *slog.Logger
}

// NewLearningHandler creates a new LearningHandler.
func NewLearningHandler(learningService service.LearningService, logger *slog.Logger) *LearningHandler {
	if learningService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("learningService cannot be nil for LearningHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for LearningHandler")
	}

	return &LearningHandler{
		learningService: learningService,
		logger:          logger.With(slog.String("component", "learning_handler")),
	}
}

// GetPath handles GET /api/path requests.
// The optional length query parameter bounds the path.
func (h *LearningHandler) GetPath(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	length, err := getQueryInt(r, "length")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Length must be an integer", err)
		return
	}

	items, err := h.learningService.GetPath(r.Context(), learnerID, length)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to generate learning path")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PathResponse{Items: nonNilItems(items)})
}

// SubmitReviews handles POST /api/reviews requests.
// Results that cannot be applied are listed in the response and do not
// fail the request.
func (h *LearningHandler) SubmitReviews(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	var req SubmitReviewsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	result, err := h.learningService.SubmitResults(r.Context(), learnerID, service.SubmitRequest{
		SessionID: req.SessionID,
		Results:   req.Results,
		PathIDs:   req.PathIDs,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to submit reviews")
		return
	}

	log.Debug("submitted reviews",
		slog.Int("updated", len(result.Updated)),
		slog.Int("failed", len(result.Failures)))

	shared.RespondWithJSON(w, r, http.StatusOK, SubmitReviewsResponse{
		Path:     nonNilItems(result.Path),
		Updated:  nonNilItems(result.Updated),
		Failures: failuresToResponse(result.Failures),
	})
}

// GetMetrics handles GET /api/metrics requests.
func (h *LearningHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	metrics, err := h.learningService.GetMetrics(r.Context(), learnerID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load learning metrics")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, metrics)
}

// GetReport handles GET /api/report requests.
func (h *LearningHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	report, err := h.learningService.GetReport(r.Context(), learnerID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to build progress report")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, report)
}

// GetReviewQueue handles GET /api/review-queue requests.
func (h *LearningHandler) GetReviewQueue(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	items, err := h.learningService.GetReviewQueue(r.Context(), learnerID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load review queue")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReviewQueueResponse{Items: nonNilItems(items)})
}

// GetSessionStats handles GET /api/sessions/stats requests.
func (h *LearningHandler) GetSessionStats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	stats, err := h.learningService.GetSessionStats(r.Context(), learnerID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load session statistics")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// StartSession handles POST /api/sessions requests.
func (h *LearningHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	session, err := h.learningService.StartSession(r.Context(), learnerID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to start session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, session)
}

// EndSession handles POST /api/sessions/{id}/end requests.
func (h *LearningHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, ok := requireLearnerID(w, r, log)
	if !ok {
		return
	}

	sessionID, err := getPathUUID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid session ID", err)
		return
	}

	session, err := h.learningService.EndSession(r.Context(), learnerID, sessionID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to end session")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, session)
}
