package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Dosada05/sports-scheduling/cache"
	"github.com/Dosada05/sports-scheduling/models"
	"github.com/Dosada05/sports-scheduling/services"
)

// PointsUpdateHandler serves the scheduling → scoring trigger.
type PointsUpdateHandler struct {
	pointsService services.PointsTableService
}

func NewPointsUpdateHandler(ps services.PointsTableService) *PointsUpdateHandler {
	return &PointsUpdateHandler{pointsService: ps}
}

// Update: POST /scorings/internal/points-table/update
func (h *PointsUpdateHandler) Update(w http.ResponseWriter, r *http.Request) {
	var update models.PointsUpdate
	if err := readJSON(w, r, &update); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	applied, err := h.pointsService.ApplyMatchUpdate(r.Context(), update)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{"updated": applied}, "")
}

type genderInvalidation struct {
	EventID   string `json:"event_id"`
	Sport     string `json:"sport"`
	Team      string `json:"team"`
	RegNumber string `json:"reg_number"`
}

// GenderCacheHandler lets the roster owner drop memoized genders after a roster change.
type GenderCacheHandler struct {
	memo   cache.GenderMemo
	cache  cache.ResponseCache
	views  func(sport, eventID string) []string
	logger *slog.Logger
}

// NewGenderCacheHandler: views lists the response cache keys derived from the sport's genders.
func NewGenderCacheHandler(memo cache.GenderMemo, rc cache.ResponseCache, views func(sport, eventID string) []string, logger *slog.Logger) *GenderCacheHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenderCacheHandler{memo: memo, cache: rc, views: views, logger: logger}
}

// Invalidate: POST /internal/gender-cache/invalidate
func (h *GenderCacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req genderInvalidation
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	eventID := strings.TrimSpace(req.EventID)
	sport := strings.TrimSpace(req.Sport)
	team := strings.TrimSpace(req.Team)
	reg := strings.TrimSpace(req.RegNumber)
	if eventID == "" {
		badRequestResponse(w, r, errors.New("event_id is required"))
		return
	}
	if team != "" && sport == "" {
		badRequestResponse(w, r, errors.New("sport is required when team is set"))
		return
	}
	if sport == "" && reg == "" {
		badRequestResponse(w, r, errors.New("sport or reg_number is required"))
		return
	}

	scope := make([]string, 0, 3)
	if reg != "" {
		h.memo.InvalidatePlayer(eventID, reg)
		scope = append(scope, "player")
	}
	switch {
	case team != "":
		h.memo.InvalidateTeam(sport, eventID, team)
		scope = append(scope, "team")
	case sport != "":
		h.memo.InvalidateSport(sport, eventID)
		scope = append(scope, "sport")
	}
	if sport != "" && h.cache != nil && h.views != nil {
		h.cache.Delete(r.Context(), h.views(sport, eventID)...)
	}

	h.logger.Info("gender memo invalidated",
		slog.String("event_id", eventID), slog.String("sport", sport),
		slog.String("team", team), slog.String("reg_number", reg), slog.Any("scope", scope))
	successResponse(w, r, http.StatusOK, jsonResponse{"invalidated": scope}, "")
}
