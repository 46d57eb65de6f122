package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sports-scheduling/models"
	"github.com/Dosada05/sports-scheduling/repositories"
)

// Cohort is the elimination state of one (sport, event, gender).
type Cohort struct {
	KnockedOut ParticipantSet
	Locked     ParticipantSet
	Active     []string
}

// EligibilityTracker derives who is still in the competition from stored matches.
type EligibilityTracker struct {
	matches repositories.MatchRepository
	genders *GenderResolver
	logger  *slog.Logger
}

func NewEligibilityTracker(matches repositories.MatchRepository, genders *GenderResolver, logger *slog.Logger) *EligibilityTracker {
	return &EligibilityTracker{matches: matches, genders: genders, logger: logger}
}

// MatchesOfGender lists matches of the sport matching filter and keeps those whose derived gender is g.
// Matches with an indeterminate gender are logged and dropped.
func (t *EligibilityTracker) MatchesOfGender(ctx context.Context, sport *models.Sport, eventID string,
	gender models.Gender, filter repositories.MatchFilter) ([]models.Match, error) {
	filter.EventID = eventID
	filter.SportsName = sport.Name
	all, err := t.matches.List(ctx, filter)
	if err != nil {
		return nil, internalError("Failed to load matches", err)
	}
	genders, err := t.genders.MatchGenders(ctx, all, sport, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Match, 0, len(all))
	for _, m := range all {
		g, ok := genders[m.ID]
		if !ok {
			t.logger.Warn("match gender could not be derived",
				slog.String("match_id", m.ID), slog.String("sport", sport.Name), slog.String("event_id", eventID))
			continue
		}
		if g == gender {
			out = append(out, m)
		}
	}
	return out, nil
}

// KnockedOut returns participants eliminated by completed knockout or final matches.
// Dual sports: everyone but the winner. Multi sports: everyone not among the qualifiers.
func (t *EligibilityTracker) KnockedOut(ctx context.Context, sport *models.Sport, eventID string, gender models.Gender) (ParticipantSet, error) {
	matches, err := t.MatchesOfGender(ctx, sport, eventID, gender, repositories.MatchFilter{
		Statuses: []models.MatchStatus{models.MatchStatusCompleted},
		Types:    []models.MatchType{models.MatchTypeKnockout, models.MatchTypeFinal},
	})
	if err != nil {
		return nil, err
	}
	return knockedOutIn(matches, sport.Type), nil
}

func knockedOutIn(matches []models.Match, sportType models.SportType) ParticipantSet {
	out := newParticipantSet()
	for i := range matches {
		m := &matches[i]
		if m.Status != models.MatchStatusCompleted || !m.MatchType.IsElimination() {
			continue
		}
		for _, p := range eliminatedBy(m, sportType) {
			out.Add(p)
		}
	}
	return out
}

func eliminatedBy(m *models.Match, sportType models.SportType) []string {
	participants := m.Participants()
	if sportType.IsDual() {
		// без победителя выбывают все участники
		winner := m.WinnerName()
		out := make([]string, 0, len(participants))
		for _, p := range participants {
			if p != winner {
				out = append(out, p)
			}
		}
		return out
	}
	qualified := newParticipantSet()
	for _, q := range m.Qualifiers {
		qualified.Add(q.Participant)
	}
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		if !qualified.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Locked returns participants of knockout or final matches that are still scheduled.
func (t *EligibilityTracker) Locked(ctx context.Context, sport *models.Sport, eventID string, gender models.Gender) (ParticipantSet, error) {
	matches, err := t.MatchesOfGender(ctx, sport, eventID, gender, repositories.MatchFilter{
		Statuses: []models.MatchStatus{models.MatchStatusScheduled},
		Types:    []models.MatchType{models.MatchTypeKnockout, models.MatchTypeFinal},
	})
	if err != nil {
		return nil, err
	}
	return lockedIn(matches), nil
}

func lockedIn(matches []models.Match) ParticipantSet {
	out := newParticipantSet()
	for i := range matches {
		m := &matches[i]
		if m.Status != models.MatchStatusScheduled || !m.MatchType.IsElimination() {
			continue
		}
		for _, p := range m.Participants() {
			out.Add(p)
		}
	}
	return out
}

// Active returns roster participants of the gender not in any excluded set, in roster order.
// Teams without players and participants of unknown gender are skipped.
func (t *EligibilityTracker) Active(ctx context.Context, sport *models.Sport, eventID string, gender models.Gender, excluded ...ParticipantSet) ([]string, error) {
	isExcluded := func(name string) bool {
		for _, set := range excluded {
			if set.Has(name) {
				return true
			}
		}
		return false
	}

	var candidates []string
	if sport.Type.IsTeam() {
		for _, team := range sport.TeamsParticipated {
			name := strings.TrimSpace(team.TeamName)
			if name == "" || len(team.Players) == 0 || isExcluded(name) {
				continue
			}
			candidates = append(candidates, name)
		}
	} else {
		for _, reg := range uniqueTrimmed(sport.PlayersParticipated) {
			if !isExcluded(reg) {
				candidates = append(candidates, reg)
			}
		}
	}

	var (
		genders map[string]models.Gender
		err     error
	)
	if sport.Type.IsTeam() {
		genders, err = t.genders.TeamGenders(ctx, candidates, sport, eventID)
	} else {
		genders, err = t.genders.PlayerGenders(ctx, candidates, eventID)
	}
	if err != nil {
		return nil, upstreamError("Failed to resolve participant genders", err)
	}

	active := make([]string, 0, len(candidates))
	for _, name := range candidates {
		if genders[name] == gender {
			active = append(active, name)
		}
	}
	return active, nil
}

// Cohort computes knocked-out and locked sets concurrently, then the active list.
func (t *EligibilityTracker) Cohort(ctx context.Context, sport *models.Sport, eventID string, gender models.Gender) (*Cohort, error) {
	var c Cohort
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c.KnockedOut, err = t.KnockedOut(gctx, sport, eventID, gender)
		return err
	})
	g.Go(func() error {
		var err error
		c.Locked, err = t.Locked(gctx, sport, eventID, gender)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	active, err := t.Active(ctx, sport, eventID, gender, c.KnockedOut, c.Locked)
	if err != nil {
		return nil, err
	}
	c.Active = active
	return &c, nil
}

func (c *Cohort) String() string {
	return fmt.Sprintf("knocked_out=%d locked=%d active=%d", len(c.KnockedOut), len(c.Locked), len(c.Active))
}
