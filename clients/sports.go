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

// SportClient reads sports from the sports-participation service.
type SportClient struct {
	baseClient
}

func NewSportClient(baseURL string, timeout time.Duration, logger *slog.Logger) *SportClient {
	return &SportClient{baseClient: newBaseClient("sports-participation", baseURL, timeout, logger)}
}

func (c *SportClient) Sport(ctx context.Context, name, eventID string) (*models.Sport, error) {
	name = models.NormalizeSportName(name)
	if name == "" {
		return nil, ErrSportNotFound
	}
	query := url.Values{}
	if eventID = strings.TrimSpace(eventID); eventID != "" {
		query.Set("event_id", eventID)
	}

	var sport models.Sport
	err := c.do(ctx, http.MethodGet, "/sports-participations/sports/"+url.PathEscape(name), query, nil, &sport)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSportNotFound
		}
		return nil, err
	}
	if sport.Name == "" {
		return nil, ErrSportNotFound
	}
	sport.Name = models.NormalizeSportName(sport.Name)
	return &sport, nil
}
