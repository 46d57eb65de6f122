package clients

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/sports-scheduling/cache"
	"github.com/Dosada05/sports-scheduling/models"
)

// EventYearClient reads event years from the event-configuration service.
type EventYearClient struct {
	baseClient
	cache    cache.ResponseCache
	cacheTTL time.Duration
	loc      *time.Location
	now      func() time.Time
}

func NewEventYearClient(baseURL string, timeout time.Duration, rc cache.ResponseCache, cacheTTL time.Duration, loc *time.Location, logger *slog.Logger) *EventYearClient {
	return &EventYearClient{
		baseClient: newBaseClient("event-configuration", baseURL, timeout, logger),
		cache:      rc,
		cacheTTL:   cacheTTL,
		loc:        loc,
		now:        time.Now,
	}
}

type activeEventYearResponse struct {
	EventYear *models.EventYear `json:"eventYear"`
}

type eventYearsResponse struct {
	EventYears []models.EventYear `json:"eventYears"`
}

// stillActive re-checks a cached active year so a stale entry is not served past event end.
func (c *EventYearClient) stillActive(ey *models.EventYear) bool {
	regStart, err := models.ParseDate(ey.RegistrationDates.Start, c.loc)
	if err != nil {
		return false
	}
	eventEnd, err := models.ParseDate(ey.EventDates.End, c.loc)
	if err != nil {
		return false
	}
	today := models.StartOfDay(c.now(), c.loc)
	return models.Window{Start: regStart, End: eventEnd}.Contains(today)
}

func (c *EventYearClient) ActiveEventYear(ctx context.Context) (*models.EventYear, error) {
	if c.cache != nil {
		var cached models.EventYear
		if c.cache.Get(ctx, cache.ActiveEventYearKey, &cached) {
			if c.stillActive(&cached) {
				return &cached, nil
			}
			c.cache.Delete(ctx, cache.ActiveEventYearKey)
		}
	}

	var resp activeEventYearResponse
	err := c.do(ctx, http.MethodGet, "/event-configurations/event-years/active", nil, nil, &resp)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNoActiveEventYear
		}
		return nil, err
	}
	if resp.EventYear == nil || resp.EventYear.EventID == "" {
		return nil, ErrNoActiveEventYear
	}
	if c.cache != nil {
		c.cache.SetWithTTL(ctx, cache.ActiveEventYearKey, resp.EventYear, c.cacheTTL)
	}
	return resp.EventYear, nil
}

func (c *EventYearClient) EventYears(ctx context.Context) ([]models.EventYear, error) {
	var resp eventYearsResponse
	if err := c.do(ctx, http.MethodGet, "/event-configurations/event-years", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.EventYears, nil
}

// EventYear resolves eventID, or the active year when eventID is empty.
// Without a caller token only the active year is visible.
func (c *EventYearClient) EventYear(ctx context.Context, eventID string) (*models.EventYear, error) {
	eventID = strings.ToLower(strings.TrimSpace(eventID))
	if eventID == "" {
		return c.ActiveEventYear(ctx)
	}

	if BearerToken(ctx) == "" {
		active, err := c.ActiveEventYear(ctx)
		if err != nil {
			return nil, err
		}
		if active.EventID == eventID {
			return active, nil
		}
		return nil, ErrEventYearNotFound
	}

	years, err := c.EventYears(ctx)
	if err != nil {
		return nil, err
	}
	for i := range years {
		if strings.ToLower(years[i].EventID) == eventID {
			return &years[i], nil
		}
	}
	return nil, ErrEventYearNotFound
}
