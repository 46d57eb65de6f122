package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sports-scheduling/cache"
	"github.com/Dosada05/sports-scheduling/metrics"
	"github.com/Dosada05/sports-scheduling/models"
	"github.com/Dosada05/sports-scheduling/repositories"
	"github.com/Dosada05/sports-scheduling/storage"
)

// SnapshotArchiver stores a copy of a freshly rebuilt table and returns where it went.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snapshot storage.PointsSnapshot) (string, error)
}

type PointsTableService interface {
	PointsTable(ctx context.Context, sport, eventID, gender string) (*models.PointsTableView, error)
	// ApplyMatchUpdate folds one league match change into the table and reports whether it was applied.
	// A repeated update_id is acknowledged with false.
	ApplyMatchUpdate(ctx context.Context, update models.PointsUpdate) (bool, error)
	// Recompute rebuilds the gender's table from finished league matches and returns the entries written.
	Recompute(ctx context.Context, sport, eventID string, gender models.Gender) (int, error)
	Backfill(ctx context.Context, sport, eventID, requester string) (*models.BackfillResult, error)
}

type PointsTableDeps struct {
	Points     repositories.PointsTableRepository
	EventYears EventYearProvider
	Sports     SportProvider
	Matches    MatchSource
	Genders    *GenderResolver
	Cache      cache.ResponseCache
	Archiver   SnapshotArchiver
	Metrics    *metrics.Manager

	AdminRegNumber string
	Now            func() time.Time
	Logger         *slog.Logger
}

type pointsTableService struct {
	points     repositories.PointsTableRepository
	eventYears EventYearProvider
	sports     SportProvider
	matches    MatchSource
	genders    *GenderResolver
	cache      cache.ResponseCache
	archiver   SnapshotArchiver
	metrics    *metrics.Manager
	auth       Authorizer
	now        func() time.Time
	logger     *slog.Logger
}

func NewPointsTableService(deps PointsTableDeps) PointsTableService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &pointsTableService{
		points:     deps.Points,
		eventYears: deps.EventYears,
		sports:     deps.Sports,
		matches:    deps.Matches,
		genders:    deps.Genders,
		cache:      deps.Cache,
		archiver:   deps.Archiver,
		metrics:    deps.Metrics,
		auth:       NewAuthorizer(deps.AdminRegNumber),
		now:        now,
		logger:     logger,
	}
}

const notApplicableMessage = "Sport not found or not applicable for points table (must be dual_team or dual_player)"

func contributes(m *models.Match) bool {
	return m.MatchType == models.MatchTypeLeague && m.Status.IsTerminal()
}

// tabulate folds every contributing match into per-participant tallies, in first-seen order.
func tabulate(matches []models.Match) ([]string, map[string]models.Tally) {
	var order []string
	tallies := make(map[string]models.Tally)
	for i := range matches {
		m := &matches[i]
		if !contributes(m) {
			continue
		}
		winner := m.WinnerName()
		for _, p := range m.Participants() {
			t, seen := tallies[p]
			if !seen {
				order = append(order, p)
			}
			tallies[p] = t.Add(models.Contribution(m.Status, winner, p))
		}
	}
	return order, tallies
}

func (s *pointsTableService) dualSport(ctx context.Context, name, eventID string) (*models.Sport, bool, error) {
	sport, err := s.sports.Sport(ctx, name, eventID)
	if err != nil {
		if errors.Is(err, ErrSportNotFound) || errors.Is(sportError(err), ErrSportNotFound) {
			return nil, false, nil
		}
		return nil, false, sportError(err)
	}
	return sport, sport.Type.IsDual(), nil
}

func (s *pointsTableService) Recompute(ctx context.Context, sportName, eventID string, gender models.Gender) (int, error) {
	sportName = models.NormalizeSportName(sportName)
	sport, ok, err := s.dualSport(ctx, sportName, eventID)
	if err != nil || !ok {
		return 0, err
	}
	matches, err := s.matches.MatchesForSport(ctx, sportName, eventID)
	if err != nil {
		return 0, upstreamError("Failed to fetch matches", err)
	}
	n, err := s.recompute(ctx, sport, eventID, gender, matches)
	if err == nil && s.cache != nil {
		s.cache.Delete(ctx, cache.PointsTableKey(sportName, eventID, gender))
	}
	return n, err
}

func (s *pointsTableService) recompute(ctx context.Context, sport *models.Sport, eventID string, gender models.Gender, matches []models.Match) (int, error) {
	finished := make([]models.Match, 0, len(matches))
	for i := range matches {
		if contributes(&matches[i]) {
			finished = append(finished, matches[i])
		}
	}
	genders, err := s.genders.MatchGenders(ctx, finished, sport, eventID)
	if err != nil {
		return 0, err
	}
	ofGender := make([]models.Match, 0, len(finished))
	for _, m := range finished {
		g, ok := genders[m.ID]
		if !ok {
			s.logger.Warn("skipping league match of unknown gender during recompute",
				slog.String("match_id", m.ID), slog.String("sport", sport.Name))
			continue
		}
		if g == gender {
			ofGender = append(ofGender, m)
		}
	}

	order, tallies := tabulate(ofGender)
	participantType := models.ParticipantTypeFor(sport.Type)
	entries := make([]models.PointsTableEntry, 0, len(order))
	for _, p := range order {
		entries = append(entries, models.PointsTableEntry{
			EventID:         eventID,
			SportsName:      sport.Name,
			Participant:     p,
			ParticipantType: participantType,
			Tally:           tallies[p],
		})
	}
	if len(entries) == 0 {
		return 0, nil
	}
	if err := s.points.Upsert(ctx, entries); err != nil {
		return 0, internalError("Failed to save points table", err)
	}
	return len(entries), nil
}

func (s *pointsTableService) ApplyMatchUpdate(ctx context.Context, update models.PointsUpdate) (applied bool, err error) {
	outcome := "skipped"
	defer func() {
		switch {
		case err != nil:
			outcome = "failed"
		case applied:
			outcome = "applied"
		}
		s.metrics.PointsUpdate(outcome)
	}()

	match := update.Match
	if match.ID == "" || update.PreviousStatus == "" {
		return false, validationError("match and previous_status are required")
	}
	if !update.PreviousStatus.IsValid() || !match.Status.IsValid() {
		return false, validationError("Invalid status")
	}
	if match.MatchType != models.MatchTypeLeague {
		return false, nil
	}
	sportName := models.NormalizeSportName(match.SportsName)
	sport, ok, err := s.dualSport(ctx, sportName, match.EventID)
	if err != nil || !ok {
		return false, err
	}
	participants := match.Participants()
	if len(participants) == 0 {
		return false, nil
	}

	updateID := strings.TrimSpace(update.UpdateID)
	if updateID == "" {
		updateID = uuid.NewString()
	}
	prevWinner := ""
	if update.PreviousWinner != nil {
		prevWinner = strings.TrimSpace(*update.PreviousWinner)
	}
	winner := match.WinnerName()

	applied, err = s.points.ApplyDelta(ctx,
		repositories.PointsReceipt{UpdateID: updateID, EventID: match.EventID, SportsName: sportName, MatchID: match.ID},
		models.ParticipantTypeFor(sport.Type), participants, update.UserRegNumber,
		func(participant string, current models.Tally) models.Tally {
			return current.
				Sub(models.Contribution(update.PreviousStatus, prevWinner, participant)).
				Add(models.Contribution(match.Status, winner, participant))
		})
	if err != nil {
		return false, internalError("Failed to update points table", err)
	}
	if !applied {
		outcome = "replayed"
		s.logger.Info("points update already applied", slog.String("update_id", updateID), slog.String("match_id", match.ID))
		return false, nil
	}
	s.logger.Info("points table updated",
		slog.String("update_id", updateID), slog.String("match_id", match.ID), slog.String("sport", sportName),
		slog.String("previous_status", string(update.PreviousStatus)), slog.String("status", string(match.Status)))
	if s.cache != nil {
		s.cache.DeletePrefix(ctx, cache.PointsTablePrefix(sportName, match.EventID))
	}
	return true, nil
}

func (s *pointsTableService) Backfill(ctx context.Context, sportName, eventID, requester string) (*models.BackfillResult, error) {
	ey, err := s.eventYears.EventYear(ctx, eventID)
	if err != nil {
		return nil, eventYearError(err)
	}
	sportName = models.NormalizeSportName(sportName)
	sport, err := s.sports.Sport(ctx, sportName, ey.EventID)
	if err != nil {
		return nil, sportError(err)
	}
	if err := s.auth.RequireAdminOrCoordinator(requester, sport); err != nil {
		return nil, err
	}
	if !sport.Type.IsDual() {
		return &models.BackfillResult{Message: notApplicableMessage}, nil
	}

	matches, err := s.matches.MatchesForSport(ctx, sportName, ey.EventID)
	if err != nil {
		s.metrics.Backfill("failed")
		return nil, upstreamError("Failed to fetch matches", err)
	}

	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, gender := range models.Genders {
		g.Go(func() error {
			if _, err := s.recompute(gctx, sport, ey.EventID, gender, matches); err != nil {
				s.logger.Error("points table recompute failed",
					slog.String("sport", sportName), slog.String("gender", string(gender)), slog.Any("error", err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	processed := 0
	for i := range matches {
		if contributes(&matches[i]) {
			processed++
		}
	}
	result := &models.BackfillResult{
		Processed: processed,
		Created:   (len(models.Genders) - failed) * 2,
		Errors:    failed,
		Message:   fmt.Sprintf("Recalculated points table for %d matches (both genders), %d errors", processed, failed),
	}
	if s.cache != nil {
		s.cache.DeletePrefix(ctx, cache.PointsTablePrefix(sportName, ey.EventID))
	}

	if failed > 0 && processed == 0 {
		s.metrics.Backfill("failed")
		return nil, internalError(result.Message, nil)
	}
	if failed > 0 {
		s.metrics.Backfill("partial")
	} else {
		s.metrics.Backfill("ok")
	}
	s.logger.Info("points table backfilled", slog.String("sport", sportName), slog.String("event_id", ey.EventID),
		slog.Int("processed", processed), slog.Int("errors", failed), slog.String("requested_by", requester))

	if s.archiver != nil {
		if url, err := s.archive(ctx, sport, ey.EventID, *result); err != nil {
			s.logger.Warn("points snapshot archive failed", slog.String("sport", sportName), slog.Any("error", err))
		} else {
			result.Snapshot = url
		}
	}
	return result, nil
}

func (s *pointsTableService) archive(ctx context.Context, sport *models.Sport, eventID string, result models.BackfillResult) (string, error) {
	entries, err := s.points.ListBySport(ctx, eventID, sport.Name)
	if err != nil {
		return "", err
	}
	partitions, err := s.partition(ctx, entries, sport, eventID)
	if err != nil {
		return "", err
	}
	return s.archiver.Archive(ctx, storage.PointsSnapshot{
		EventID:    eventID,
		Sport:      sport.Name,
		TakenAt:    s.now(),
		Result:     result,
		Partitions: partitions,
	})
}

// partition splits entries by derived gender; entries whose gender is unknown are logged and dropped.
func (s *pointsTableService) partition(ctx context.Context, entries []models.PointsTableEntry, sport *models.Sport, eventID string) (map[models.Gender][]models.PointsTableEntry, error) {
	var teams, players []string
	for _, e := range entries {
		if e.ParticipantType == models.ParticipantTypeTeam {
			teams = append(teams, e.Participant)
		} else {
			players = append(players, e.Participant)
		}
	}
	teamGenders, err := s.genders.TeamGenders(ctx, teams, sport, eventID)
	if err != nil {
		return nil, err
	}
	playerGenders, err := s.genders.PlayerGenders(ctx, players, eventID)
	if err != nil {
		return nil, err
	}

	out := make(map[models.Gender][]models.PointsTableEntry, len(models.Genders))
	for _, g := range models.Genders {
		out[g] = []models.PointsTableEntry{}
	}
	var unknown []string
	for _, e := range entries {
		src := playerGenders
		if e.ParticipantType == models.ParticipantTypeTeam {
			src = teamGenders
		}
		g, ok := src[e.Participant]
		if !ok {
			unknown = append(unknown, e.Participant)
			continue
		}
		out[g] = append(out[g], e)
	}
	if len(unknown) > 0 {
		if len(unknown) > 5 {
			unknown = unknown[:5]
		}
		s.logger.Warn("could not derive gender for points table entries",
			slog.String("sport", sport.Name), slog.String("event_id", eventID), slog.Any("participants", unknown))
	}
	for g := range out {
		sortEntries(out[g])
	}
	return out, nil
}

func sortEntries(entries []models.PointsTableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].MatchesWon > entries[j].MatchesWon
	})
}

func (s *pointsTableService) PointsTable(ctx context.Context, sportName, eventID, rawGender string) (*models.PointsTableView, error) {
	sportName = models.NormalizeSportName(sportName)
	empty := &models.PointsTableView{Sport: sportName, PointsTable: []models.PointsTableEntry{}}

	ey, err := s.eventYears.EventYear(ctx, eventID)
	if err != nil {
		if mapped := eventYearError(err); mapped == ErrEventYearNotFound || mapped == ErrNoActiveEventYear {
			return empty, nil
		}
		return nil, eventYearError(err)
	}
	gender, err := parseGender(rawGender, true)
	if err != nil {
		return nil, err
	}

	key := cache.PointsTableKey(sportName, ey.EventID, gender)
	var cached models.PointsTableView
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	entries, err := s.points.ListBySport(ctx, ey.EventID, sportName)
	if err != nil {
		return nil, internalError("Failed to load points table", err)
	}
	sport, err := s.sports.Sport(ctx, sportName, ey.EventID)
	if err != nil {
		s.logger.Warn("sport lookup failed while reading points table", slog.String("sport", sportName), slog.Any("error", err))
		sport = nil
	}
	if sport == nil {
		// Без документа спорта пол команд не определить.
		sport = &models.Sport{Name: sportName, EventID: ey.EventID}
	}
	partitions, err := s.partition(ctx, entries, sport, ey.EventID)
	if err != nil {
		return nil, upstreamError("Failed to resolve participant genders", err)
	}

	view := &models.PointsTableView{
		Sport:             sportName,
		EventID:           ey.EventID,
		Gender:            gender,
		PointsTable:       partitions[gender],
		TotalParticipants: len(partitions[gender]),
	}
	if len(view.PointsTable) == 0 {
		view.HasLeagueMatches = s.hasLeagueMatches(ctx, sport, ey.EventID, gender)
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, view)
	}
	return view, nil
}

func (s *pointsTableService) hasLeagueMatches(ctx context.Context, sport *models.Sport, eventID string, gender models.Gender) bool {
	matches, err := s.matches.MatchesForSport(ctx, sport.Name, eventID)
	if err != nil {
		s.logger.Warn("could not fetch matches for points table", slog.String("sport", sport.Name), slog.Any("error", err))
		return false
	}
	leagues := filterMatches(matches, ofTypes(models.MatchTypeLeague))
	genders, err := s.genders.MatchGenders(ctx, leagues, sport, eventID)
	if err != nil {
		return false
	}
	finished := 0
	found := false
	for _, m := range leagues {
		if m.Status.IsTerminal() {
			finished++
		}
		if genders[m.ID] == gender {
			found = true
		}
	}
	if !found {
		if finished > 0 {
			s.logger.Warn("no points table entries although finished league matches exist",
				slog.String("sport", sport.Name), slog.String("event_id", eventID), slog.String("gender", string(gender)))
		} else {
			s.logger.Info("no league matches found", slog.String("sport", sport.Name), slog.String("gender", string(gender)))
		}
	}
	return found
}
