package handler

import (
	"net/http"

	"github.com/boddenberg/zakah-bfa-go/internal/domain"
	"github.com/boddenberg/zakah-bfa-go/internal/service"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Assessments
// ============================================================

type assessRequest struct {
	Snapshot         domain.WealthSnapshot `json:"snapshot"`
	GoldPricePerGram *decimal.Decimal      `json:"goldPricePerGram,omitempty"`
}

type assessBatchRequest struct {
	Snapshots        []domain.WealthSnapshot `json:"snapshots"`
	GoldPricePerGram *decimal.Decimal        `json:"goldPricePerGram,omitempty"`
}

type assessBatchResponse struct {
	Results []domain.AssessmentResult `json:"results"`
}

// POST /v1/assessments
func assessHandler(svc *service.Assessor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/assessments")
		defer span.End()

		var req assessRequest
		if err := decodeBody(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.Assess(ctx, req.Snapshot, req.GoldPricePerGram)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("assessment.id", result.ID))

		logger.Info("assessment served",
			zap.String("assessment_id", result.ID),
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("subject", SubjectFromContext(ctx)),
			zap.String("price_source", string(result.PriceSource)),
			zap.Bool("above_nisab", result.Assessment.AboveNisab),
		)
		writeJSON(w, http.StatusOK, result)
	}
}

// POST /v1/assessments/batch
func assessBatchHandler(svc *service.Assessor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/assessments/batch")
		defer span.End()

		var req assessBatchRequest
		if err := decodeBody(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("batch.size", len(req.Snapshots)))

		results, err := svc.AssessBatch(ctx, req.Snapshots, req.GoldPricePerGram)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		logger.Info("batch assessment served",
			zap.Int("batch_size", len(results)),
			zap.String("request_id", middleware.GetReqID(ctx)),
			zap.String("subject", SubjectFromContext(ctx)),
		)
		writeJSON(w, http.StatusOK, assessBatchResponse{Results: results})
	}
}

// ============================================================
// Reference data
// ============================================================

// GET /v1/nisab
func nisabHandler(svc *service.Assessor, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quote, err := svc.Nisab(r.Context())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, quote)
	}
}

// GET /v1/rules
func rulesHandler(svc *service.Assessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Rules())
	}
}

// GET /v1/wizard/steps
func wizardStepsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"steps":    domain.WizardSteps(),
			"defaults": domain.DefaultSnapshot(),
		})
	}
}
