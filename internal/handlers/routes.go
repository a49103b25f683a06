package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// RegisterRoutes регистрирует маршруты и оборачивает mux middleware
func RegisterRoutes(mux *http.ServeMux, h *Handler, logger *zap.Logger) http.Handler {
	mux.HandleFunc("GET /{$}", h.HealthCheck)
	mux.HandleFunc("GET /latest", h.GetLatest)
	mux.HandleFunc("POST /predict", h.Predict)
	mux.HandleFunc("GET /stats", h.GetStats)

	return Chain(
		mux,
		RequestIDMiddleware,
		LoggingMiddleware(logger),
		RecoveryMiddleware(logger),
		CORSMiddleware,
	)
}
