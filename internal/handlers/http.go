package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"predictive-maintenance/internal/analytics"
	"predictive-maintenance/internal/metrics"
	"predictive-maintenance/internal/models"
	"predictive-maintenance/internal/source"
)

// maxBodyBytes ограничение тела запроса /predict
const maxBodyBytes = 1 << 20

// Predictor прогноз риска отказа
type Predictor interface {
	Predict(ctx context.Context, reading models.SensorReading) (models.PredictionResult, error)
}

// Handler обработчик HTTP запросов
type Handler struct {
	predictor Predictor
	source    source.Source
	analyzer  *analytics.Analyzer
	logger    *zap.Logger
	artifacts map[string]interface{}
}

// NewHandler создает новый обработчик; analyzer может быть nil
func NewHandler(predictor Predictor, src source.Source, analyzer *analytics.Analyzer, logger *zap.Logger, artifacts map[string]interface{}) *Handler {
	return &Handler{
		predictor: predictor,
		source:    src,
		analyzer:  analyzer,
		logger:    logger,
		artifacts: artifacts,
	}
}

// errorResponse тело ошибки {"detail": ...}
type errorResponse struct {
	Detail interface{} `json:"detail"`
}

// HealthCheck обрабатывает GET /
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer observe(r, "/", http.StatusOK, start)

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "backend running successfully",
	})
}

// GetLatest обрабатывает GET /latest
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() { observe(r, "/latest", status, start) }()

	reading, err := h.source.Latest(r.Context())
	if err != nil {
		status = sourceStatus(err)
		metrics.SourceReads.WithLabelValues(h.source.Name(), sourceResult(err)).Inc()
		if status == http.StatusInternalServerError {
			h.logger.Error("failed to read latest reading",
				zap.String("source", h.source.Name()),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Error(err),
			)
		}
		writeJSON(w, status, errorResponse{Detail: err.Error()})
		return
	}

	metrics.SourceReads.WithLabelValues(h.source.Name(), "ok").Inc()
	writeJSON(w, status, reading)
}

// Predict обрабатывает POST /predict
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() { observe(r, "/predict", status, start) }()

	reading, problems, err := DecodeReading(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		status = http.StatusRequestEntityTooLarge
		var maxErr *http.MaxBytesError
		if !errors.As(err, &maxErr) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorResponse{Detail: err.Error()})
		return
	}
	if len(problems) > 0 {
		status = http.StatusUnprocessableEntity
		writeJSON(w, status, errorResponse{Detail: problems})
		return
	}

	result, err := h.predictor.Predict(r.Context(), reading)
	if err != nil {
		status = http.StatusInternalServerError
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, status, errorResponse{Detail: err.Error()})
		return
	}

	if h.analyzer != nil {
		h.analyzer.AddReading(analytics.ReadingData{
			Timestamp: time.Now(),
			Reading:   reading,
		})
	}

	writeJSON(w, status, result)
}

// GetStats обрабатывает GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer observe(r, "/stats", http.StatusOK, start)

	stats := map[string]interface{}{
		"source":    h.source.Name(),
		"artifacts": h.artifacts,
		"timestamp": time.Now(),
	}
	if h.analyzer != nil {
		stats["analyzer"] = h.analyzer.GetStats()
	}
	if s, ok := h.source.(interface{ GetStats() map[string]interface{} }); ok {
		stats["redis"] = s.GetStats()
	}

	writeJSON(w, http.StatusOK, stats)
}

func sourceStatus(err error) int {
	switch {
	case errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, source.ErrEmpty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func sourceResult(err error) string {
	switch {
	case errors.Is(err, source.ErrNotFound):
		return "not_found"
	case errors.Is(err, source.ErrEmpty):
		return "empty"
	default:
		return "error"
	}
}

func observe(r *http.Request, endpoint string, status int, start time.Time) {
	metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
