package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/medcoding/api/internal/audit"
	"github.com/medcoding/api/internal/cache"
	"github.com/medcoding/api/internal/eventbus"
	"github.com/medcoding/api/internal/middleware"
	"github.com/medcoding/api/internal/models"
	"github.com/medcoding/api/internal/prediction"
	"github.com/medcoding/api/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const defaultRecentLimit = 20

// PredictionCache is the cache used to skip repeated predictions.
type PredictionCache interface {
	Get(ctx context.Context, key string) ([]models.CodePrediction, bool, error)
	Set(ctx context.Context, key string, predictions []models.CodePrediction) error
}

// AuditLog persists answered predictions.
type AuditLog interface {
	Record(ctx context.Context, rec audit.Record) error
	Recent(ctx context.Context, limit int) ([]audit.Record, error)
}

// EventPublisher announces completed predictions.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, evt eventbus.PredictionCompleted) error
}

var registerTagNames sync.Once

// useJSONFieldNames makes gin's binding validator report JSON field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			models.RegisterValidations(v)
		}
	})
}

type PredictionHandler struct {
	predictor    prediction.Predictor
	metrics      *telemetry.Metrics
	modelVersion string
	logger       *zap.Logger

	cache  PredictionCache
	audit  AuditLog
	events EventPublisher
}

func NewPredictionHandler(predictor prediction.Predictor, metrics *telemetry.Metrics, modelVersion string, logger *zap.Logger) *PredictionHandler {
	useJSONFieldNames()
	return &PredictionHandler{
		predictor:    predictor,
		metrics:      metrics,
		modelVersion: modelVersion,
		logger:       logger,
	}
}

// WithCache enables result caching.
func (h *PredictionHandler) WithCache(c PredictionCache) *PredictionHandler {
	h.cache = c
	return h
}

// WithAudit enables the audit log and the recent predictions endpoint.
func (h *PredictionHandler) WithAudit(a AuditLog) *PredictionHandler {
	h.audit = a
	return h
}

// WithEvents enables completion events.
func (h *PredictionHandler) WithEvents(e EventPublisher) *PredictionHandler {
	h.events = e
	return h
}

// Predict returns candidate billing codes for clinical text.
// @Summary Predict medical billing codes
// @Tags prediction
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body models.PredictionRequest true "Clinical text"
// @Success 200 {object} models.PredictionResponse
// @Failure 400 {object} middleware.APIError
// @Failure 422 {object} middleware.APIError
// @Failure 500 {object} models.PredictionResponse
// @Router /predict [post]
func (h *PredictionHandler) Predict(c *gin.Context) {
	ctx, span := telemetry.Tracer().Start(c.Request.Context(), "prediction.Predict")
	defer span.End()

	start := time.Now()
	requestID := middleware.GetRequestID(c)

	var req models.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			middleware.ValidationFailed(c, models.FieldErrors(err))
			return
		}
		middleware.BadRequest(c, "request body must be a JSON object: "+err.Error())
		return
	}
	req = req.WithDefaults()
	span.SetAttributes(
		attribute.Int("prediction.max", req.Limit()),
		attribute.Float64("prediction.threshold", req.Threshold()),
	)

	predictions, cached := h.lookup(ctx, req)
	if !cached {
		var err error
		predictions, err = h.predictor.PredictCodes(ctx, req.ClinicalText)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "prediction failed")
			h.logger.Error("prediction failed", zap.String("request_id", requestID), zap.Error(err))

			elapsed := time.Since(start)
			resp := models.NewErrorResponse("prediction failed: "+err.Error(), millis(elapsed), h.modelVersion)
			h.metrics.ObservePrediction(telemetry.OutcomeError, elapsed, nil)
			h.record(ctx, audit.NewRecord(requestID, req, resp))
			c.JSON(http.StatusInternalServerError, resp)
			return
		}
		if len(predictions) > req.Limit() {
			predictions = predictions[:req.Limit()]
		}
		h.store(ctx, req, predictions)
	}

	elapsed := time.Since(start)
	resp := models.NewPredictionResponse(predictions, millis(elapsed), h.modelVersion)
	if err := resp.Validate(); err != nil {
		h.logger.Error("predictor returned an invalid response", zap.String("request_id", requestID), zap.Error(err))
		span.SetStatus(codes.Error, "invalid response")
		resp = models.NewErrorResponse("predictor returned an invalid response", millis(elapsed), h.modelVersion)
		h.metrics.ObservePrediction(telemetry.OutcomeError, elapsed, nil)
		h.record(ctx, audit.NewRecord(requestID, req, resp))
		c.JSON(http.StatusInternalServerError, resp)
		return
	}

	outcome := telemetry.OutcomeSuccess
	if cached {
		outcome = telemetry.OutcomeCached
	}
	h.metrics.ObservePrediction(outcome, elapsed, resp.Predictions)
	span.SetAttributes(attribute.Int("prediction.count", len(resp.Predictions)), attribute.Bool("prediction.cached", cached))

	rec := audit.NewRecord(requestID, req, resp)
	h.record(ctx, rec)
	h.publish(ctx, rec, cached)

	c.JSON(http.StatusOK, resp)
}

// lookup returns cached predictions. Cache errors count as misses.
func (h *PredictionHandler) lookup(ctx context.Context, req models.PredictionRequest) ([]models.CodePrediction, bool) {
	if h.cache == nil {
		return nil, false
	}
	predictions, found, err := h.cache.Get(ctx, cache.Key(req, h.modelVersion))
	switch {
	case err != nil:
		h.metrics.ObserveCacheLookup("error")
		h.logger.Warn("prediction cache lookup failed", zap.Error(err))
		return nil, false
	case found:
		h.metrics.ObserveCacheLookup("hit")
		return predictions, true
	default:
		h.metrics.ObserveCacheLookup("miss")
		return nil, false
	}
}

func (h *PredictionHandler) store(ctx context.Context, req models.PredictionRequest, predictions []models.CodePrediction) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Set(ctx, cache.Key(req, h.modelVersion), predictions); err != nil {
		h.logger.Warn("failed to cache predictions", zap.Error(err))
	}
}

func (h *PredictionHandler) record(ctx context.Context, rec audit.Record) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(ctx, rec); err != nil {
		h.logger.Error("failed to record prediction", zap.String("request_id", rec.RequestID), zap.Error(err))
	}
}

// publish announces rec. The audit id is server generated, so it is the
// event id rather than the caller's X-Request-ID.
func (h *PredictionHandler) publish(ctx context.Context, rec audit.Record, cached bool) {
	if h.events == nil {
		return
	}
	evt := eventbus.PredictionCompleted{
		EventID:          rec.ID.String(),
		RequestID:        rec.RequestID,
		ModelVersion:     rec.ModelVersion,
		Predictions:      rec.Predictions,
		ProcessingTimeMs: rec.ProcessingTimeMs,
		Cached:           cached,
		Timestamp:        rec.CreatedAt,
	}
	if err := h.events.PublishCompleted(ctx, evt); err != nil {
		h.logger.Warn("failed to publish prediction event", zap.String("request_id", rec.RequestID), zap.Error(err))
	}
}

// RecentResponse lists audited predictions, newest first.
type RecentResponse struct {
	Predictions []audit.Record `json:"predictions"`
	Count       int            `json:"count"`
}

// Recent returns the latest audited predictions.
// @Summary List recent predictions
// @Tags prediction
// @Produce json
// @Security Bearer
// @Param limit query int false "Number of records (1-100)" default(20)
// @Success 200 {object} RecentResponse
// @Failure 400 {object} middleware.APIError
// @Failure 503 {object} middleware.APIError
// @Router /predictions/recent [get]
func (h *PredictionHandler) Recent(c *gin.Context) {
	if h.audit == nil {
		middleware.ServiceUnavailable(c, "prediction audit log is not configured", 0)
		return
	}

	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.BadRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}

	records, err := h.audit.Recent(c.Request.Context(), limit)
	if errors.Is(err, audit.ErrInvalidLimit) {
		middleware.BadRequest(c, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to load recent predictions", zap.Error(err))
		middleware.RespondError(c, http.StatusInternalServerError, middleware.ErrCodeDatabaseError, "failed to load recent predictions")
		return
	}

	c.JSON(http.StatusOK, RecentResponse{Predictions: records, Count: len(records)})
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
