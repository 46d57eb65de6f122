package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/sports-scheduling/services"
)

type ScheduleHandler struct {
	scheduleService services.ScheduleService
}

func NewScheduleHandler(ss services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: ss}
}

// ListMatches: GET /schedulings/event-schedule/{sport}?event_id=&gender=
func (h *ScheduleHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	matches, err := h.scheduleService.ListMatches(r.Context(), sportParam(r), q.Get("event_id"), q.Get("gender"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"matches": matches}, "")
}

// TeamsPlayers: GET /schedulings/event-schedule/{sport}/teams-players?event_id=&gender=
func (h *ScheduleHandler) TeamsPlayers(w http.ResponseWriter, r *http.Request) {
	reg, ok := requester(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	result, err := h.scheduleService.EligibleParticipants(r.Context(), sportParam(r), q.Get("event_id"), q.Get("gender"), reg)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"teams": result.Teams, "players": result.Players}, "")
}

func (h *ScheduleHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	reg, ok := requester(w, r)
	if !ok {
		return
	}
	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.scheduleService.CreateMatch(r.Context(), input, reg)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusCreated, jsonResponse{"match": match},
		fmt.Sprintf("Match #%d scheduled successfully", match.MatchNumber))
}

func (h *ScheduleHandler) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	reg, ok := requester(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		badRequestResponse(w, r, errors.New("match id is required"))
		return
	}
	var input services.UpdateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.scheduleService.UpdateMatch(r.Context(), id, input, reg)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"match": match}, "Match updated successfully")
}

func (h *ScheduleHandler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	reg, ok := requester(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		badRequestResponse(w, r, errors.New("match id is required"))
		return
	}

	if _, err := h.scheduleService.DeleteMatch(r.Context(), id, reg); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, nil, "Match deleted successfully")
}
