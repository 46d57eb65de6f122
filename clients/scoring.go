package clients

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dosada05/sports-scheduling/models"
)

// ScoringClient is used by scheduling to push league results to the points table.
type ScoringClient struct {
	baseClient
}

func NewScoringClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ScoringClient {
	return &ScoringClient{baseClient: newBaseClient("scoring", baseURL, timeout, logger)}
}

type pointsUpdateResponse struct {
	Success bool `json:"success"`
	Updated bool `json:"updated"`
}

// UpdatePointsTable reports whether scoring applied the update; false means it was a replay.
func (c *ScoringClient) UpdatePointsTable(ctx context.Context, update models.PointsUpdate) (bool, error) {
	var resp pointsUpdateResponse
	if err := c.do(ctx, http.MethodPost, "/scorings/internal/points-table/update", nil, update, &resp); err != nil {
		return false, err
	}
	return resp.Updated, nil
}

// ScheduleClient is used by scoring to read the matches of a sport.
type ScheduleClient struct {
	baseClient
}

func NewScheduleClient(baseURL string, timeout time.Duration, logger *slog.Logger) *ScheduleClient {
	return &ScheduleClient{baseClient: newBaseClient("scheduling", baseURL, timeout, logger)}
}

type matchesResponse struct {
	Matches []models.Match `json:"matches"`
}

func (c *ScheduleClient) MatchesForSport(ctx context.Context, sport, eventID string) ([]models.Match, error) {
	query := url.Values{}
	if eventID = strings.TrimSpace(eventID); eventID != "" {
		query.Set("event_id", eventID)
	}
	var resp matchesResponse
	path := "/schedulings/event-schedule/" + url.PathEscape(models.NormalizeSportName(sport))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}
