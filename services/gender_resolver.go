package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sports-scheduling/cache"
	"github.com/Dosada05/sports-scheduling/clients"
	"github.com/Dosada05/sports-scheduling/models"
)

// GenderResolver derives the gender of a team, player, match or points entry from the
// first listed player. Nothing here stores gender; an unresolvable participant yields ok=false.
type GenderResolver struct {
	players PlayerProvider
	memo    cache.GenderMemo
	logger  *slog.Logger
}

func NewGenderResolver(players PlayerProvider, memo cache.GenderMemo, logger *slog.Logger) *GenderResolver {
	if memo == nil {
		memo = cache.NewGenderMemo()
	}
	return &GenderResolver{players: players, memo: memo, logger: logger}
}

// Memo exposes the memo so roster changes can invalidate it.
func (r *GenderResolver) Memo() cache.GenderMemo { return r.memo }

func (r *GenderResolver) PlayerGender(ctx context.Context, regNumber, eventID string) (models.Gender, bool) {
	regNumber = strings.TrimSpace(regNumber)
	if regNumber == "" {
		return "", false
	}
	if g, ok := r.memo.Player(eventID, regNumber); ok {
		return g, true
	}
	player, err := r.players.Player(ctx, regNumber, eventID)
	if err != nil {
		if !errors.Is(err, clients.ErrPlayerNotFound) {
			r.logger.Warn("player gender lookup failed",
				slog.String("reg_number", regNumber), slog.String("event_id", eventID), slog.Any("error", err))
		}
		return "", false
	}
	if !player.Gender.IsValid() {
		return "", false
	}
	r.memo.SetPlayer(eventID, regNumber, player.Gender)
	return player.Gender, true
}

func (r *GenderResolver) TeamGender(ctx context.Context, teamName string, sport *models.Sport, eventID string) (models.Gender, bool) {
	if sport == nil {
		return "", false
	}
	if g, ok := r.memo.Team(sport.Name, eventID, teamName); ok {
		return g, true
	}
	team, ok := sport.Team(teamName)
	if !ok || len(team.Players) == 0 {
		return "", false
	}
	g, ok := r.PlayerGender(ctx, team.Players[0], eventID)
	if !ok {
		return "", false
	}
	r.memo.SetTeam(sport.Name, eventID, teamName, g)
	return g, true
}

// MatchGender resolves from the first team (team sports) or first player.
func (r *GenderResolver) MatchGender(ctx context.Context, match *models.Match, sport *models.Sport) (models.Gender, bool) {
	participants := match.Participants()
	if len(participants) == 0 {
		return "", false
	}
	if len(match.Teams) > 0 {
		return r.TeamGender(ctx, participants[0], sport, match.EventID)
	}
	return r.PlayerGender(ctx, participants[0], match.EventID)
}

// PlayerGenders resolves many players at once, consulting the memo first.
// Players that cannot be found are absent from the result.
func (r *GenderResolver) PlayerGenders(ctx context.Context, regNumbers []string, eventID string) (map[string]models.Gender, error) {
	out := make(map[string]models.Gender, len(regNumbers))
	var missing []string
	for _, reg := range uniqueTrimmed(regNumbers) {
		if g, ok := r.memo.Player(eventID, reg); ok {
			out[reg] = g
			continue
		}
		missing = append(missing, reg)
	}
	if len(missing) == 0 {
		return out, nil
	}
	players, err := r.players.PlayersByRegNumbers(ctx, missing, eventID)
	if err != nil {
		return nil, err
	}
	for _, p := range players {
		if !p.Gender.IsValid() {
			continue
		}
		out[p.RegNumber] = p.Gender
		r.memo.SetPlayer(eventID, p.RegNumber, p.Gender)
	}
	return out, nil
}

// TeamGenders resolves every named team through its first player. Teams without players,
// unknown teams and teams whose first player is unresolved are absent from the result.
func (r *GenderResolver) TeamGenders(ctx context.Context, teamNames []string, sport *models.Sport, eventID string) (map[string]models.Gender, error) {
	out := make(map[string]models.Gender, len(teamNames))
	if sport == nil {
		return out, nil
	}
	firstPlayer := make(map[string]string)
	var regs []string
	for _, name := range uniqueTrimmed(teamNames) {
		if g, ok := r.memo.Team(sport.Name, eventID, name); ok {
			out[name] = g
			continue
		}
		team, ok := sport.Team(name)
		if !ok || len(team.Players) == 0 {
			continue
		}
		reg := strings.TrimSpace(team.Players[0])
		firstPlayer[name] = reg
		regs = append(regs, reg)
	}
	if len(regs) == 0 {
		return out, nil
	}
	genders, err := r.PlayerGenders(ctx, regs, eventID)
	if err != nil {
		return nil, err
	}
	for name, reg := range firstPlayer {
		if g, ok := genders[reg]; ok {
			out[name] = g
			r.memo.SetTeam(sport.Name, eventID, name, g)
		}
	}
	return out, nil
}

// MatchGenders resolves the gender of every match, keyed by match ID, with batched lookups of
// first participants. Matches of indeterminate gender are absent.
func (r *GenderResolver) MatchGenders(ctx context.Context, matches []models.Match, sport *models.Sport, eventID string) (map[string]models.Gender, error) {
	var teams, players []string
	for i := range matches {
		p := matches[i].Participants()
		if len(p) == 0 {
			continue
		}
		if len(matches[i].Teams) > 0 {
			teams = append(teams, p[0])
		} else {
			players = append(players, p[0])
		}
	}

	var teamGenders, playerGenders map[string]models.Gender
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teamGenders, err = r.TeamGenders(gctx, teams, sport, eventID)
		return err
	})
	g.Go(func() error {
		var err error
		playerGenders, err = r.PlayerGenders(gctx, players, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, upstreamError("Failed to resolve participant genders", err)
	}

	out := make(map[string]models.Gender, len(matches))
	for i := range matches {
		p := matches[i].Participants()
		if len(p) == 0 {
			continue
		}
		src := playerGenders
		if len(matches[i].Teams) > 0 {
			src = teamGenders
		}
		if gender, ok := src[p[0]]; ok {
			out[matches[i].ID] = gender
		}
	}
	return out, nil
}
