package handlers

import "net/http"

type HealthHandler struct {
	service string
}

func NewHealthHandler(service string) *HealthHandler {
	return &HealthHandler{service: service}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	successResponse(w, r, http.StatusOK, jsonResponse{"status": "ok", "service": h.service}, "")
}
