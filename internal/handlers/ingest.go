// internal/handlers/ingest.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/scentdb-backend/internal/config"
	"github.com/javajoker/scentdb-backend/internal/models"
	"github.com/javajoker/scentdb-backend/internal/services"
	"github.com/javajoker/scentdb-backend/internal/utils"
)

// MaxBatchSize caps one POST /v1/ingest/batch request.
const MaxBatchSize = 1000

type IngestHandler struct {
	reconciler    *services.ReconcileService
	batchService  *services.BatchService
	defaultSource models.SourceDescriptor
}

func NewIngestHandler(reconciler *services.ReconcileService, batchService *services.BatchService, source config.SourceConfig) *IngestHandler {
	return &IngestHandler{
		reconciler:    reconciler,
		batchService:  batchService,
		defaultSource: models.SourceDescriptor{Name: source.Name, BaseURL: source.BaseURL},
	}
}

type IngestCandidateRequest struct {
	Source    *models.SourceDescriptor `json:"source"`
	Candidate *models.CandidateRecord  `json:"candidate"`
}

type IngestBatchRequest struct {
	Source     *models.SourceDescriptor `json:"source"`
	Candidates []models.CandidateRecord `json:"candidates"`
}

func (h *IngestHandler) sourceOrDefault(src *models.SourceDescriptor) models.SourceDescriptor {
	if src == nil {
		return h.defaultSource
	}
	return *src
}

// POST /v1/ingest/candidates
func (h *IngestHandler) IngestCandidate(c *gin.Context) {
	var req IngestCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if req.Candidate == nil {
		utils.BadRequestResponse(c, "candidate is required", nil)
		return
	}

	outcome := h.reconciler.Apply(c.Request.Context(), req.Candidate, h.sourceOrDefault(req.Source))
	if outcome.OK() {
		utils.SuccessResponse(c, outcome)
		return
	}
	respondFailure(c, outcome.Failure, outcome.Error)
}

// POST /v1/ingest/batch
func (h *IngestHandler) IngestBatch(c *gin.Context) {
	var req IngestBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}
	if len(req.Candidates) == 0 {
		utils.BadRequestResponse(c, "candidates must not be empty", nil)
		return
	}
	if len(req.Candidates) > MaxBatchSize {
		utils.BadRequestResponse(c, fmt.Sprintf("at most %d candidates per batch", MaxBatchSize), nil)
		return
	}

	source := h.sourceOrDefault(req.Source)
	if err := utils.ValidateStruct(&source); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	report, err := h.batchService.Run(c.Request.Context(), source, req.Candidates)
	switch {
	case err == nil:
		utils.SuccessResponse(c, report)
	case errors.Is(err, services.ErrBatchHalted):
		utils.ErrorResponse(c, http.StatusInternalServerError, "BATCH_HALTED", err.Error(), report)
	default:
		utils.ServiceUnavailableResponse(c, err.Error(), report)
	}
}

// respondFailure maps the failure taxonomy onto HTTP status codes.
func respondFailure(c *gin.Context, f *services.Failure, info *services.ErrorInfo) {
	switch {
	case f.Kind == services.FailureMalformed:
		if details := utils.GetValidationErrors(f.Err); len(details) > 0 {
			utils.ValidationErrorResponse(c, details)
			return
		}
		utils.BadRequestResponse(c, f.Error(), info)
	case f.Retryable():
		utils.ServiceUnavailableResponse(c, f.Error(), info)
	default:
		_ = c.Error(f)
		utils.InternalErrorResponse(c, "Reconciliation failed")
	}
}
