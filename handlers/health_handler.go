package handlers

import (
	"context"
	"net/http"
)

// HealthCheck проверяет доступность базы данных.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	check HealthCheck
}

func NewHealthHandler(check HealthCheck) *HealthHandler {
	return &HealthHandler{check: check}
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonResponse{
		"message": "TEXPERIA 2026 registration API",
		"status":  "running",
	}, nil)
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, jsonResponse{
			"status":   "unhealthy",
			"database": "unreachable",
		}, nil)
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{
		"status":   "healthy",
		"database": "connected",
	}, nil)
}
