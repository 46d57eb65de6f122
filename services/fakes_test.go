package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Dosada05/sports-scheduling/cache"
	"github.com/Dosada05/sports-scheduling/clients"
	"github.com/Dosada05/sports-scheduling/models"
	"github.com/Dosada05/sports-scheduling/realtime"
	"github.com/Dosada05/sports-scheduling/repositories"
	"github.com/Dosada05/sports-scheduling/storage"
)

// --- matches ---

type fakeMatchRepo struct {
	mu      sync.Mutex
	seq     int
	matches map[string]models.Match
	// beforeUpdate runs inside Update before the version check.
	beforeUpdate func(stored *models.Match)
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[string]models.Match)}
}

func cloneMatch(m models.Match) models.Match {
	m.Teams = append([]string{}, m.Teams...)
	m.Players = append([]string{}, m.Players...)
	m.Qualifiers = append([]models.Qualifier{}, m.Qualifiers...)
	if m.Winner != nil {
		m.Winner = ptr(*m.Winner)
	}
	return m
}

func (r *fakeMatchRepo) Create(_ context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if match.ID == "" {
		match.ID = fmt.Sprintf("m-%d", r.seq)
	}
	next := 1
	for _, m := range r.matches {
		if m.EventID == match.EventID && m.SportsName == match.SportsName && m.MatchNumber >= next {
			next = m.MatchNumber + 1
		}
	}
	match.MatchNumber = next
	match.Version = 1
	r.matches[match.ID] = cloneMatch(*match)
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id string) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	c := cloneMatch(m)
	return &c, nil
}

func (r *fakeMatchRepo) List(_ context.Context, f repositories.MatchFilter) ([]models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Match, 0)
	for _, m := range r.matches {
		if f.EventID != "" && m.EventID != f.EventID {
			continue
		}
		if f.SportsName != "" && m.SportsName != f.SportsName {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, m.Status) {
			continue
		}
		if len(f.Types) > 0 && !containsType(f.Types, m.MatchType) {
			continue
		}
		out = append(out, cloneMatch(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out, nil
}

func containsStatus(list []models.MatchStatus, s models.MatchStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsType(list []models.MatchType, t models.MatchType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func (r *fakeMatchRepo) Update(_ context.Context, match *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[match.ID]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate(&stored)
		r.matches[match.ID] = stored
	}
	if stored.Version != match.Version {
		return repositories.ErrMatchVersionConflict
	}
	match.Version++
	r.matches[match.ID] = cloneMatch(*match)
	return nil
}

func (r *fakeMatchRepo) Delete(_ context.Context, id string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if stored.Version != version {
		return repositories.ErrMatchVersionConflict
	}
	delete(r.matches, id)
	return nil
}

// MatchesForSport lets the repo double as the scoring side's view of the schedule.
func (r *fakeMatchRepo) MatchesForSport(ctx context.Context, sport, eventID string) ([]models.Match, error) {
	return r.List(ctx, repositories.MatchFilter{EventID: eventID, SportsName: models.NormalizeSportName(sport)})
}

// --- points table ---

type fakePointsRepo struct {
	mu       sync.Mutex
	entries  map[string]models.PointsTableEntry
	receipts map[string]struct{}
}

func newFakePointsRepo() *fakePointsRepo {
	return &fakePointsRepo{entries: make(map[string]models.PointsTableEntry), receipts: make(map[string]struct{})}
}

func pointsKey(eventID, sport, participant string) string {
	return eventID + "|" + sport + "|" + participant
}

func (r *fakePointsRepo) ListBySport(_ context.Context, eventID, sport string) ([]models.PointsTableEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.PointsTableEntry, 0)
	for _, e := range r.entries {
		if e.EventID == eventID && e.SportsName == sport {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].MatchesWon != out[j].MatchesWon {
			return out[i].MatchesWon > out[j].MatchesWon
		}
		return out[i].Participant < out[j].Participant
	})
	return out, nil
}

func (r *fakePointsRepo) Upsert(_ context.Context, entries []models.PointsTableEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		key := pointsKey(e.EventID, e.SportsName, e.Participant)
		if existing, ok := r.entries[key]; ok {
			existing.Tally = e.Tally
			existing.ParticipantType = e.ParticipantType
			r.entries[key] = existing
			continue
		}
		r.entries[key] = e
	}
	return nil
}

func (r *fakePointsRepo) ApplyDelta(_ context.Context, receipt repositories.PointsReceipt, pt models.ParticipantType,
	participants []string, actor string, fn repositories.TallyFunc) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.receipts[receipt.UpdateID]; done {
		return false, nil
	}
	r.receipts[receipt.UpdateID] = struct{}{}
	for _, p := range participants {
		key := pointsKey(receipt.EventID, receipt.SportsName, p)
		e, ok := r.entries[key]
		if !ok {
			e = models.PointsTableEntry{EventID: receipt.EventID, SportsName: receipt.SportsName, Participant: p, ParticipantType: pt, CreatedBy: ptr(actor)}
		} else {
			e.UpdatedBy = ptr(actor)
		}
		e.Tally = fn(p, e.Tally)
		r.entries[key] = e
	}
	return true, nil
}

// tallies returns participant → tally for comparisons.
func (r *fakePointsRepo) tallies(eventID, sport string) map[string]models.Tally {
	entries, _ := r.ListBySport(context.Background(), eventID, sport)
	out := make(map[string]models.Tally, len(entries))
	for _, e := range entries {
		out[e.Participant] = e.Tally
	}
	return out
}

// --- collaborators ---

type fakeEventYears struct {
	active *models.EventYear
	years  map[string]*models.EventYear
}

func (f *fakeEventYears) EventYear(_ context.Context, eventID string) (*models.EventYear, error) {
	if eventID == "" {
		if f.active == nil {
			return nil, clients.ErrNoActiveEventYear
		}
		return f.active, nil
	}
	ey, ok := f.years[eventID]
	if !ok {
		return nil, clients.ErrEventYearNotFound
	}
	return ey, nil
}

type fakeSports struct {
	sports map[string]*models.Sport
}

func (f *fakeSports) Sport(_ context.Context, name, _ string) (*models.Sport, error) {
	s, ok := f.sports[models.NormalizeSportName(name)]
	if !ok {
		return nil, clients.ErrSportNotFound
	}
	c := *s
	return &c, nil
}

type fakePlayers struct {
	players map[string]models.Player
	calls   atomic.Int32
	err     error
}

func (f *fakePlayers) Player(_ context.Context, reg, _ string) (*models.Player, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.players[reg]
	if !ok {
		return nil, clients.ErrPlayerNotFound
	}
	return &p, nil
}

func (f *fakePlayers) PlayersByRegNumbers(_ context.Context, regs []string, _ string) ([]models.Player, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Player, 0, len(regs))
	for _, reg := range regs {
		if p, ok := f.players[reg]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []realtime.Message
	rooms    []string
}

func (b *recordingBroadcaster) BroadcastToRoom(room string, message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, room)
	if m, ok := message.(realtime.Message); ok {
		b.messages = append(b.messages, m)
	}
}

func (b *recordingBroadcaster) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.messages))
	for i, m := range b.messages {
		out[i] = m.Type
	}
	return out
}

// pointsBridge delivers scheduling's trigger straight to the points engine.
type pointsBridge struct {
	engine  PointsTableService
	failing error
	updates []models.PointsUpdate
}

func (b *pointsBridge) UpdatePointsTable(ctx context.Context, update models.PointsUpdate) (bool, error) {
	b.updates = append(b.updates, update)
	if b.failing != nil {
		return false, b.failing
	}
	return b.engine.ApplyMatchUpdate(ctx, update)
}

type fakeArchiver struct {
	snapshots []storage.PointsSnapshot
}

func (a *fakeArchiver) Archive(_ context.Context, s storage.PointsSnapshot) (string, error) {
	a.snapshots = append(a.snapshots, s)
	return "https://cdn.example.com/" + s.Sport + ".json", nil
}

// --- fixture ---

const (
	testEventID = "2026-sports-fest"
	adminReg    = "ADMIN"
	coordReg    = "COORD1"
)

var testNow = time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

type fixture struct {
	matches   *fakeMatchRepo
	points    *fakePointsRepo
	players   *fakePlayers
	sports    *fakeSports
	years     *fakeEventYears
	cache     *cache.MemoryCache
	hub       *recordingBroadcaster
	bridge    *pointsBridge
	archiver  *fakeArchiver
	genders   *GenderResolver
	schedule  ScheduleService
	scoring   PointsTableService
	eventYear *models.EventYear
	clock     time.Time
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ey := &models.EventYear{
		EventID:           testEventID,
		EventYear:         2026,
		EventName:         "Sports Fest",
		EventDates:        models.DateRange{Start: "2026-03-03", End: "2026-03-10"},
		RegistrationDates: models.DateRange{Start: "2026-02-01", End: "2026-03-01"},
		IsActive:          true,
	}
	players := &fakePlayers{players: map[string]models.Player{}}
	for _, reg := range []string{"A", "B", "C", "D", "P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8", "Q1", "Q2", "Q3", "Q4"} {
		players.players[reg] = models.Player{RegNumber: reg, FullName: "Player " + reg, Gender: models.GenderMale}
	}
	for _, reg := range []string{"E", "F", "G", "W1", "W2"} {
		players.players[reg] = models.Player{RegNumber: reg, FullName: "Player " + reg, Gender: models.GenderFemale}
	}

	sports := &fakeSports{sports: map[string]*models.Sport{
		"chess": {
			Name: "chess", EventID: testEventID, Type: models.SportTypeDualPlayer,
			PlayersParticipated:  []string{"A", "B", "C", "D", "E", "F", "G", "UNKNOWN"},
			EligibleCoordinators: []string{coordReg},
		},
		"football": {
			Name: "football", EventID: testEventID, Type: models.SportTypeDualTeam,
			TeamsParticipated: []models.SportTeam{
				{TeamName: "Lions", Players: []string{"P1", "P2"}},
				{TeamName: "Tigers", Players: []string{"P3", "P4"}},
				{TeamName: "Bears", Players: []string{"P5"}},
				{TeamName: "Empty", Players: []string{}},
				{TeamName: "Queens", Players: []string{"W1"}},
				{TeamName: "Royals", Players: []string{"W2"}},
			},
			EligibleCoordinators: []string{coordReg},
		},
		"relay": {
			Name: "relay", EventID: testEventID, Type: models.SportTypeMultiTeam,
			TeamsParticipated: []models.SportTeam{
				{TeamName: "Red", Players: []string{"P1"}},
				{TeamName: "Blue", Players: []string{"P3"}},
				{TeamName: "Green", Players: []string{"P5"}},
				{TeamName: "Gold", Players: []string{"P7"}},
			},
		},
		"quiz": {
			Name: "quiz", EventID: testEventID, Type: models.SportTypeMultiPlayer,
			PlayersParticipated: []string{"Q1", "Q2", "Q3", "Q4"},
		},
	}}

	fx := &fixture{
		matches:   newFakeMatchRepo(),
		points:    newFakePointsRepo(),
		players:   players,
		sports:    sports,
		years:     &fakeEventYears{active: ey, years: map[string]*models.EventYear{testEventID: ey}},
		cache:     cache.NewMemoryCache(time.Minute),
		hub:       &recordingBroadcaster{},
		archiver:  &fakeArchiver{},
		eventYear: ey,
		clock:     testNow,
	}
	logger := discardLogger()
	fx.genders = NewGenderResolver(players, cache.NewGenderMemo(), logger)
	fx.scoring = NewPointsTableService(PointsTableDeps{
		Points:         fx.points,
		EventYears:     fx.years,
		Sports:         sports,
		Matches:        fx.matches,
		Genders:        fx.genders,
		Cache:          fx.cache,
		Archiver:       fx.archiver,
		AdminRegNumber: adminReg,
		Now:            func() time.Time { return fx.clock },
		Logger:         logger,
	})
	fx.bridge = &pointsBridge{engine: fx.scoring}
	fx.schedule = NewScheduleService(ScheduleDeps{
		Matches:        fx.matches,
		EventYears:     fx.years,
		Sports:         sports,
		Players:        players,
		Genders:        fx.genders,
		Points:         fx.bridge,
		Cache:          fx.cache,
		Broadcaster:    fx.hub,
		AdminRegNumber: adminReg,
		Location:       time.UTC,
		Now:            func() time.Time { return fx.clock },
		Logger:         logger,
	})
	return fx
}

func (fx *fixture) create(t *testing.T, sport string, matchType models.MatchType, date string, participants ...string) *models.Match {
	t.Helper()
	m, err := fx.tryCreate(sport, matchType, date, participants...)
	require.NoError(t, err)
	return m
}

func (fx *fixture) tryCreate(sport string, matchType models.MatchType, date string, participants ...string) (*models.Match, error) {
	input := CreateMatchInput{EventID: testEventID, SportsName: sport, MatchType: matchType, MatchDate: date}
	if s, ok := fx.sports.sports[sport]; ok && s.Type.IsTeam() {
		input.Teams = participants
	} else {
		input.Players = participants
	}
	return fx.schedule.CreateMatch(context.Background(), input, adminReg)
}

func (fx *fixture) complete(t *testing.T, matchID, winner string) *models.Match {
	t.Helper()
	m, err := fx.schedule.UpdateMatch(context.Background(), matchID, UpdateMatchInput{
		Status: ptr(models.MatchStatusCompleted),
		Winner: ptr(winner),
	}, adminReg)
	require.NoError(t, err)
	return m
}

func (fx *fixture) setStatus(matchID string, status models.MatchStatus) (*models.Match, error) {
	return fx.schedule.UpdateMatch(context.Background(), matchID, UpdateMatchInput{Status: ptr(status)}, adminReg)
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)
	var svcErr *Error
	require.True(t, errors.As(err, &svcErr), "expected *services.Error, got %T: %v", err, err)
	require.Equal(t, kind, svcErr.Kind, svcErr.Message)
	return svcErr
}

const today = "2026-03-05"
