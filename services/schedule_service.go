package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dosada05/sports-scheduling/cache"
	"github.com/Dosada05/sports-scheduling/metrics"
	"github.com/Dosada05/sports-scheduling/models"
	"github.com/Dosada05/sports-scheduling/realtime"
	"github.com/Dosada05/sports-scheduling/repositories"
)

type CreateMatchInput struct {
	EventID              string           `json:"event_id"`
	SportsName           string           `json:"sports_name"`
	MatchType            models.MatchType `json:"match_type"`
	MatchDate            string           `json:"match_date"`
	Teams                []string         `json:"teams"`
	Players              []string         `json:"players"`
	NumberOfParticipants *int             `json:"number_of_participants"`
	// Audit fields come from the token; a body carrying them is rejected.
	CreatedBy *string `json:"createdBy"`
	UpdatedBy *string `json:"updatedBy"`
}

type UpdateMatchInput struct {
	Status     *models.MatchStatus `json:"status"`
	Winner     *string             `json:"winner"`
	Qualifiers *[]models.Qualifier `json:"qualifiers"`
	MatchDate  *string             `json:"match_date"`
	CreatedBy  *string             `json:"createdBy"`
	UpdatedBy  *string             `json:"updatedBy"`
}

type ScheduleService interface {
	ListMatches(ctx context.Context, sport, eventID, gender string) ([]models.MatchView, error)
	EligibleParticipants(ctx context.Context, sport, eventID, gender, requester string) (*models.TeamsPlayers, error)
	CreateMatch(ctx context.Context, input CreateMatchInput, requester string) (*models.Match, error)
	// UpdateMatch persists the change and, for league matches, triggers the points table.
	// When only the trigger fails, the updated match is returned together with an upstream error.
	UpdateMatch(ctx context.Context, id string, input UpdateMatchInput, requester string) (*models.Match, error)
	DeleteMatch(ctx context.Context, id, requester string) (*models.Match, error)
}

type ScheduleDeps struct {
	Matches     repositories.MatchRepository
	EventYears  EventYearProvider
	Sports      SportProvider
	Players     PlayerProvider
	Genders     *GenderResolver
	Eligibility *EligibilityTracker
	Points      PointsUpdater
	Cache       cache.ResponseCache
	Broadcaster Broadcaster
	Metrics     *metrics.Manager

	AdminRegNumber string
	Location       *time.Location
	Now            func() time.Time
	Logger         *slog.Logger
}

type scheduleService struct {
	matches     repositories.MatchRepository
	eventYears  EventYearProvider
	sports      SportProvider
	players     PlayerProvider
	genders     *GenderResolver
	eligibility *EligibilityTracker
	points      PointsUpdater
	cache       cache.ResponseCache
	broadcaster Broadcaster
	metrics     *metrics.Manager
	auth        Authorizer
	cal         eventCalendar
	logger      *slog.Logger
}

func NewScheduleService(deps ScheduleDeps) ScheduleService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	genders := deps.Genders
	if genders == nil {
		genders = NewGenderResolver(deps.Players, nil, logger)
	}
	eligibility := deps.Eligibility
	if eligibility == nil {
		eligibility = NewEligibilityTracker(deps.Matches, genders, logger)
	}
	return &scheduleService{
		matches:     deps.Matches,
		eventYears:  deps.EventYears,
		sports:      deps.Sports,
		players:     deps.Players,
		genders:     genders,
		eligibility: eligibility,
		points:      deps.Points,
		cache:       deps.Cache,
		broadcaster: deps.Broadcaster,
		metrics:     deps.Metrics,
		auth:        NewAuthorizer(deps.AdminRegNumber),
		cal:         newEventCalendar(deps.Location, deps.Now),
		logger:      logger,
	}
}

func (s *scheduleService) reject(op string, err error) {
	if err != nil {
		s.metrics.Rejected(op, string(KindOf(err)))
	}
}

func parseGender(raw string, required bool) (models.Gender, error) {
	g := models.Gender(strings.TrimSpace(raw))
	if g == "" && !required {
		return "", nil
	}
	if !g.IsValid() {
		return "", ErrInvalidGender
	}
	return g, nil
}

func (s *scheduleService) ListMatches(ctx context.Context, sportName, eventID, rawGender string) (_ []models.MatchView, err error) {
	defer func() { s.reject("list", err) }()

	gender, err := parseGender(rawGender, false)
	if err != nil {
		return nil, err
	}
	ey, err := s.eventYears.EventYear(ctx, eventID)
	if err != nil {
		return nil, eventYearError(err)
	}
	sportName = models.NormalizeSportName(sportName)
	key := cache.ScheduleKey(sportName, ey.EventID, gender)
	var cached []models.MatchView
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	sport, err := s.sports.Sport(ctx, sportName, ey.EventID)
	if err != nil {
		// Список матчей отдаём и без документа спорта, пол командных матчей тогда null.
		s.logger.Warn("sport lookup failed while listing matches",
			slog.String("sport", sportName), slog.String("event_id", ey.EventID), slog.Any("error", err))
		sport = nil
	}

	all, err := s.matches.List(ctx, repositories.MatchFilter{EventID: ey.EventID, SportsName: sportName})
	if err != nil {
		return nil, internalError("Failed to load matches", err)
	}
	genders, err := s.genders.MatchGenders(ctx, all, sport, ey.EventID)
	cacheable := err == nil && sport != nil
	if err != nil {
		s.logger.Warn("gender lookup failed while listing matches", slog.String("sport", sportName), slog.Any("error", err))
		genders = map[string]models.Gender{}
	}

	views := make([]models.MatchView, 0, len(all))
	for _, m := range all {
		view := models.MatchView{Match: m}
		if g, ok := genders[m.ID]; ok {
			view.Gender = ptr(g)
		}
		if gender != "" && (view.Gender == nil || *view.Gender != gender) {
			continue
		}
		views = append(views, view)
	}
	if cacheable && s.cache != nil {
		s.cache.Set(ctx, key, views)
	}
	return views, nil
}

func (s *scheduleService) EligibleParticipants(ctx context.Context, sportName, eventID, rawGender, requester string) (_ *models.TeamsPlayers, err error) {
	defer func() { s.reject("teams_players", err) }()

	ey, err := s.eventYears.EventYear(ctx, eventID)
	if err != nil {
		return nil, eventYearError(err)
	}
	sportName = models.NormalizeSportName(sportName)
	sport, err := s.sports.Sport(ctx, sportName, ey.EventID)
	if err != nil {
		if errors.Is(sportError(err), ErrSportNotFound) {
			return nil, notFoundError("Sport %q not found for event year %d", sportName, ey.EventYear)
		}
		return nil, sportError(err)
	}
	if err := s.auth.RequireAdminOrCoordinator(requester, sport); err != nil {
		return nil, err
	}
	gender, err := parseGender(rawGender, true)
	if err != nil {
		return nil, err
	}

	key := cache.TeamsPlayersKey(sportName, ey.EventID, gender)
	var cached models.TeamsPlayers
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	cohort, err := s.eligibility.Cohort(ctx, sport, ey.EventID, gender)
	if err != nil {
		s.logger.Error("eligibility computation failed", slog.String("sport", sportName), slog.Any("error", err))
		return nil, internalError("Error retrieving participant eligibility data", err)
	}

	result := &models.TeamsPlayers{Teams: []models.EligibleTeam{}, Players: []models.Player{}}
	if sport.Type.IsTeam() {
		for _, name := range cohort.Active {
			result.Teams = append(result.Teams, models.EligibleTeam{TeamName: name, Gender: gender})
		}
		sort.SliceStable(result.Teams, func(i, j int) bool {
			return strings.ToLower(result.Teams[i].TeamName) < strings.ToLower(result.Teams[j].TeamName)
		})
	} else if len(cohort.Active) > 0 {
		players, err := s.players.PlayersByRegNumbers(ctx, cohort.Active, ey.EventID)
		if err != nil {
			return nil, upstreamError("Failed to fetch players", err)
		}
		for _, p := range players {
			if p.Gender == gender {
				result.Players = append(result.Players, p)
			}
		}
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, result)
	}
	return result, nil
}

func (s *scheduleService) CreateMatch(ctx context.Context, input CreateMatchInput, requester string) (_ *models.Match, err error) {
	defer func() { s.reject("create", err) }()

	if input.CreatedBy != nil || input.UpdatedBy != nil {
		return nil, ErrUserSetAuditFields
	}
	if strings.TrimSpace(input.EventID) == "" {
		return nil, validationError("event_id is required")
	}
	ey, err := s.eventYears.EventYear(ctx, strings.TrimSpace(input.EventID))
	if err != nil {
		return nil, eventYearError(err)
	}
	if err := s.cal.requireOperationPeriod(ey); err != nil {
		return nil, err
	}
	input.MatchType = models.MatchType(strings.TrimSpace(string(input.MatchType)))
	if input.MatchType == "" || strings.TrimSpace(input.SportsName) == "" || strings.TrimSpace(input.MatchDate) == "" {
		return nil, validationError("Missing required fields: match_type, sports_name, match_date")
	}
	if !input.MatchType.IsValid() {
		return nil, validationError("Invalid match_type. Must be one of: league, knockout, final")
	}

	sportName := models.NormalizeSportName(input.SportsName)
	sport, err := s.sports.Sport(ctx, sportName, ey.EventID)
	if err != nil {
		return nil, sportError(err)
	}
	if err := s.auth.RequireAdminOrCoordinator(requester, sport); err != nil {
		return nil, err
	}

	window, err := s.cal.eventWindow(ey)
	if err != nil {
		return nil, validationError("Error checking event date range. Please try again.")
	}
	matchDate, err := models.ParseDate(input.MatchDate, s.cal.loc)
	if err != nil {
		return nil, validationError("Invalid match_date format")
	}
	if !window.Contains(matchDate) {
		return nil, validationError("Match date must be within event date range (%s)", windowLabel(window))
	}

	participants, err := checkShape(sport, input)
	if err != nil {
		return nil, err
	}
	var resolved map[string]models.Gender
	if sport.Type.IsTeam() {
		resolved, err = s.genders.TeamGenders(ctx, participants, sport, ey.EventID)
	} else {
		resolved, err = s.genders.PlayerGenders(ctx, participants, ey.EventID)
	}
	if err != nil {
		return nil, upstreamError("Failed to resolve participant genders", err)
	}
	if !sport.Type.IsTeam() && len(resolved) != len(participants) {
		return nil, validationError("Some players not found")
	}
	gender, err := agreedGender(sport, participants, resolved)
	if err != nil {
		return nil, err
	}

	if err := checkMatchTypeForSport(input.MatchType, sport.Type); err != nil {
		return nil, err
	}

	genderMatches, err := s.eligibility.MatchesOfGender(ctx, sport, ey.EventID, gender, repositories.MatchFilter{})
	if err != nil {
		return nil, err
	}
	switch input.MatchType {
	case models.MatchTypeKnockout:
		err = checkKnockoutPrerequisites(genderMatches, sport.Type)
	case models.MatchTypeFinal:
		err = checkFinalPrerequisites(genderMatches, sport.Type)
	}
	if err != nil {
		return nil, err
	}

	knockedOut := knockedOutIn(genderMatches, sport.Type)
	locked := lockedIn(genderMatches)
	if input.MatchType.IsElimination() {
		if err := checkEliminationConflicts(input.MatchType, sport.Type, participants, knockedOut, locked); err != nil {
			return nil, err
		}
	} else if err := checkLeagueAllowed(genderMatches, gender); err != nil {
		return nil, err
	}
	if err := checkStageOrder(input.MatchType, matchDate, genderMatches, s.cal); err != nil {
		return nil, err
	}

	if sport.Type.IsDual() {
		active, err := s.eligibility.Active(ctx, sport, ey.EventID, gender, knockedOut, locked)
		if err != nil {
			return nil, err
		}
		if err := checkFinalRequirement(input.MatchType, participants, active); err != nil {
			return nil, err
		}
	}
	if err := checkNoFinal(genderMatches, gender); err != nil {
		return nil, err
	}
	if matchDate.Before(s.cal.today()) {
		return nil, validationError("Match date must be today or a future date")
	}

	match := &models.Match{
		EventID:    ey.EventID,
		SportsName: sportName,
		MatchType:  input.MatchType,
		MatchDate:  models.DateOf(matchDate),
		Status:     models.MatchStatusScheduled,
		Teams:      []string{},
		Players:    []string{},
		Qualifiers: []models.Qualifier{},
		CreatedBy:  requester,
	}
	if sport.Type.IsTeam() {
		match.Teams = participants
	} else {
		match.Players = participants
	}
	if err := s.matches.Create(ctx, match); err != nil {
		if errors.Is(err, repositories.ErrMatchNumberConflict) {
			return nil, &Error{Kind: KindConflict, Status: http.StatusConflict,
				Message: "Could not allocate a match number. Please try again.", Cause: err}
		}
		return nil, internalError("Failed to create match", err)
	}

	s.logger.Info("match scheduled",
		slog.String("match_id", match.ID), slog.Int("match_number", match.MatchNumber),
		slog.String("sport", sportName), slog.String("match_type", string(match.MatchType)),
		slog.String("gender", string(gender)), slog.String("created_by", requester))
	s.metrics.MatchCreated(sportName, string(match.MatchType))
	s.afterWrite(ctx, realtime.MatchCreated, match, gender)
	return match, nil
}

func (s *scheduleService) UpdateMatch(ctx context.Context, id string, input UpdateMatchInput, requester string) (_ *models.Match, err error) {
	defer func() { s.reject("update", err) }()

	if input.CreatedBy != nil || input.UpdatedBy != nil {
		return nil, ErrUserSetAuditFields
	}
	match, err := s.loadMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	sport, err := s.sports.Sport(ctx, match.SportsName, match.EventID)
	if err != nil {
		return nil, sportError(err)
	}
	if err := s.auth.RequireAdminOrCoordinator(requester, sport); err != nil {
		return nil, err
	}
	ey, err := s.eventYears.EventYear(ctx, match.EventID)
	if err != nil {
		return nil, eventYearError(err)
	}
	if err := s.cal.requireStatusUpdatePeriod(ey); err != nil {
		return nil, err
	}
	window, err := s.cal.eventWindow(ey)
	if err != nil {
		return nil, validationError("Error checking event date range. Please try again.")
	}

	previousStatus := match.Status
	var previousWinner *string
	if w := match.WinnerName(); w != "" {
		previousWinner = ptr(w)
	}

	if input.MatchDate != nil {
		d, err := models.ParseDate(*input.MatchDate, s.cal.loc)
		if err != nil {
			return nil, validationError("Invalid match_date format")
		}
		if !window.Contains(d) {
			return nil, validationError("Match date must be within event date range (%s)", windowLabel(window))
		}
		match.MatchDate = models.DateOf(d)
	}
	today := s.cal.today()
	isFuture := s.cal.day(match.MatchDate.Time).After(today)

	hasWinner := input.Winner != nil
	hasQualifiers := input.Qualifiers != nil
	if hasWinner && !sport.Type.IsDual() {
		return nil, validationError("Winner can only be set for dual_team and dual_player sports")
	}
	if hasQualifiers && sport.Type.IsDual() {
		return nil, validationError("Qualifiers can only be set for multi_team and multi_player sports")
	}

	// Результат без статуса у запланированного матча означает completed.
	var target *models.MatchStatus
	switch {
	case input.Status != nil:
		target = ptr(models.MatchStatus(strings.TrimSpace(string(*input.Status))))
	case (hasWinner || hasQualifiers) && match.Status == models.MatchStatusScheduled:
		target = ptr(models.MatchStatusCompleted)
	}

	if target != nil {
		next := *target
		if isFuture && next != models.MatchStatusScheduled {
			return nil, validationError("Cannot update status for future matches. Please wait until the match date.")
		}
		if !next.IsValid() {
			return nil, validationError("Invalid status")
		}
		if !match.Status.CanTransitionTo(next) {
			return nil, conflictError("Cannot change status from %q. Once a match is %s, the status cannot be changed.", match.Status, match.Status)
		}
		if next.IsTerminal() && !window.Contains(today) {
			return nil, validationError("Match status can only be set to %q within event date range (%s)", next, windowLabel(window))
		}
		match.Status = next
		if next != models.MatchStatusCompleted {
			match.Winner = nil
			match.Qualifiers = []models.Qualifier{}
		}
	}

	if hasWinner {
		if isFuture {
			return nil, validationError("Cannot declare winner for future matches. Please wait until the match date.")
		}
		if match.Status != models.MatchStatusCompleted {
			return nil, validationError(`Winner can only be set when match status is "completed"`)
		}
		winner := strings.TrimSpace(*input.Winner)
		if winner == "" || !match.HasParticipant(winner) {
			return nil, validationError("Winner must be one of the participating teams/players")
		}
		match.Winner = &winner
		match.Qualifiers = []models.Qualifier{}
	}

	if hasQualifiers {
		if isFuture {
			return nil, validationError("Cannot set qualifiers for future matches. Please wait until the match date.")
		}
		if match.Status != models.MatchStatusCompleted {
			return nil, validationError(`Qualifiers can only be set when match status is "completed"`)
		}
		qualifiers, err := checkQualifiers(match, *input.Qualifiers)
		if err != nil {
			return nil, err
		}
		match.Qualifiers = qualifiers
		match.Winner = nil
	}

	match.UpdatedBy = ptr(requester)
	if err := s.matches.Update(ctx, match); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMatchVersionConflict):
			return nil, ErrConcurrentModification
		case errors.Is(err, repositories.ErrMatchNotFound):
			return nil, ErrMatchNotFound
		}
		return nil, internalError("Failed to update match", err)
	}
	s.metrics.StatusTransition(string(previousStatus), string(match.Status))

	gender, _ := s.genders.MatchGender(ctx, match, sport)
	s.afterWrite(ctx, realtime.MatchUpdated, match, gender)

	winnerChanged := match.WinnerName() != derefString(previousWinner)
	if match.MatchType == models.MatchTypeLeague && (match.Status != previousStatus || winnerChanged) {
		if err := s.triggerPoints(ctx, match, previousStatus, previousWinner, requester); err != nil {
			return match, err
		}
	}
	return match, nil
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// triggerPoints sends the change to the points table. The match is already saved at this point,
// so a failure leaves the table stale until a backfill.
func (s *scheduleService) triggerPoints(ctx context.Context, match *models.Match, previousStatus models.MatchStatus, previousWinner *string, requester string) error {
	if s.points == nil {
		return nil
	}
	update := models.PointsUpdate{
		UpdateID:       uuid.NewString(),
		Match:          *match,
		PreviousStatus: previousStatus,
		PreviousWinner: previousWinner,
		UserRegNumber:  requester,
	}
	if _, err := s.points.UpdatePointsTable(ctx, update); err != nil {
		s.logger.Error("points table update failed after match update",
			slog.String("match_id", match.ID), slog.String("update_id", update.UpdateID),
			slog.String("sport", match.SportsName), slog.Any("error", err))
		return upstreamError("Match updated, but the points table could not be updated. Run a points table backfill for this sport.", err)
	}
	return nil
}

func (s *scheduleService) DeleteMatch(ctx context.Context, id, requester string) (_ *models.Match, err error) {
	defer func() { s.reject("delete", err) }()

	match, err := s.loadMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	sport, err := s.sports.Sport(ctx, match.SportsName, match.EventID)
	if err != nil {
		return nil, sportError(err)
	}
	if err := s.auth.RequireAdminOrCoordinator(requester, sport); err != nil {
		return nil, err
	}
	ey, err := s.eventYears.EventYear(ctx, match.EventID)
	if err != nil {
		return nil, eventYearError(err)
	}
	if err := s.cal.requireOperationPeriod(ey); err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusScheduled {
		return nil, validationError("Cannot delete match with status %q. Only scheduled matches can be deleted.", match.Status)
	}

	if err := s.matches.Delete(ctx, match.ID, match.Version); err != nil {
		switch {
		case errors.Is(err, repositories.ErrMatchVersionConflict):
			return nil, ErrConcurrentModification
		case errors.Is(err, repositories.ErrMatchNotFound):
			return nil, ErrMatchNotFound
		}
		return nil, internalError("Failed to delete match", err)
	}
	s.logger.Info("match deleted", slog.String("match_id", match.ID), slog.Int("match_number", match.MatchNumber),
		slog.String("sport", match.SportsName), slog.String("deleted_by", requester))
	s.metrics.MatchDeleted(match.SportsName)

	gender, _ := s.genders.MatchGender(ctx, match, sport)
	s.afterWrite(ctx, realtime.MatchDeleted, match, gender)
	return match, nil
}

func (s *scheduleService) loadMatch(ctx context.Context, id string) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, internalError("Failed to load match", err)
	}
	return match, nil
}

// afterWrite drops the cached schedule views touched by the match and notifies subscribers.
func (s *scheduleService) afterWrite(ctx context.Context, event string, match *models.Match, gender models.Gender) {
	if s.cache != nil {
		s.cache.Delete(ctx, cache.MatchKeys(match.SportsName, match.EventID, gender)...)
	}
	if s.broadcaster != nil {
		room := realtime.RoomID(match.SportsName, match.EventID)
		view := models.MatchView{Match: *match}
		if gender.IsValid() {
			view.Gender = ptr(gender)
		}
		s.broadcaster.BroadcastToRoom(room, realtime.Message{Type: event, Payload: view, RoomID: room})
	}
}
