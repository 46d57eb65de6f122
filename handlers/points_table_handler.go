package handlers

import (
	"net/http"

	"github.com/Dosada05/sports-scheduling/services"
)

type PointsTableHandler struct {
	pointsService services.PointsTableService
}

func NewPointsTableHandler(ps services.PointsTableService) *PointsTableHandler {
	return &PointsTableHandler{pointsService: ps}
}

// PointsTable: GET /scorings/points-table/{sport}?event_id=&gender=
func (h *PointsTableHandler) PointsTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.pointsService.PointsTable(r.Context(), sportParam(r), q.Get("event_id"), q.Get("gender"))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	successResponse(w, r, http.StatusOK, jsonResponse{
		"sport":              view.Sport,
		"points_table":       view.PointsTable,
		"total_participants": view.TotalParticipants,
		"has_league_matches": view.HasLeagueMatches,
	}, "")
}

// Backfill: POST /scorings/points-table/backfill/{sport}?event_id=
func (h *PointsTableHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	reg, ok := requester(w, r)
	if !ok {
		return
	}
	result, err := h.pointsService.Backfill(r.Context(), sportParam(r), r.URL.Query().Get("event_id"), reg)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	payload := jsonResponse{
		"processed": result.Processed,
		"created":   result.Created,
		"errors":    result.Errors,
	}
	if result.Snapshot != "" {
		payload["snapshot_url"] = result.Snapshot
	}
	message := result.Message
	if message == "" {
		message = "Points table backfilled successfully"
	}
	successResponse(w, r, http.StatusOK, payload, message)
}
