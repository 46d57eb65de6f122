package clients

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sports-scheduling/models"
)

// До этого порога игроков ищем поштучно, выше выгружаем весь список события и фильтруем.
const individualLookupLimit = 5

// PlayerClient reads players from the identity service.
type PlayerClient struct {
	baseClient
}

func NewPlayerClient(baseURL string, timeout time.Duration, logger *slog.Logger) *PlayerClient {
	return &PlayerClient{baseClient: newBaseClient("identity", baseURL, timeout, logger)}
}

type playersResponse struct {
	Players []models.Player `json:"players"`
}

func (c *PlayerClient) listPlayers(ctx context.Context, search, eventID string) ([]models.Player, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	if eventID != "" {
		query.Set("event_id", eventID)
	}
	var resp playersResponse
	if err := c.do(ctx, http.MethodGet, "/identities/players", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Players, nil
}

func (c *PlayerClient) Player(ctx context.Context, regNumber, eventID string) (*models.Player, error) {
	regNumber = strings.TrimSpace(regNumber)
	players, err := c.listPlayers(ctx, regNumber, eventID)
	if err != nil {
		return nil, err
	}
	for i := range players {
		if players[i].RegNumber == regNumber {
			return &players[i], nil
		}
	}
	return nil, ErrPlayerNotFound
}

// PlayersByRegNumbers returns the players found, in the order of regNumbers. Missing ones are skipped.
func (c *PlayerClient) PlayersByRegNumbers(ctx context.Context, regNumbers []string, eventID string) ([]models.Player, error) {
	if len(regNumbers) == 0 {
		return []models.Player{}, nil
	}

	found := make(map[string]models.Player, len(regNumbers))
	if len(regNumbers) <= individualLookupLimit {
		results := make([]*models.Player, len(regNumbers))
		g, gctx := errgroup.WithContext(ctx)
		for i, reg := range regNumbers {
			g.Go(func() error {
				p, err := c.Player(gctx, reg, eventID)
				if errors.Is(err, ErrPlayerNotFound) {
					return nil
				}
				results[i] = p
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, p := range results {
			if p != nil {
				found[p.RegNumber] = *p
			}
		}
	} else {
		players, err := c.listPlayers(ctx, "", eventID)
		if err != nil {
			return nil, err
		}
		for _, p := range players {
			found[p.RegNumber] = p
		}
	}

	out := make([]models.Player, 0, len(regNumbers))
	seen := make(map[string]struct{}, len(regNumbers))
	for _, reg := range regNumbers {
		reg = strings.TrimSpace(reg)
		if _, dup := seen[reg]; dup {
			continue
		}
		seen[reg] = struct{}{}
		if p, ok := found[reg]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
