package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Dosada05/sports-scheduling/clients"
	"github.com/Dosada05/sports-scheduling/models"
)

// --- Зависимости от соседних сервисов ---

type EventYearProvider interface {
	EventYear(ctx context.Context, eventID string) (*models.EventYear, error)
}

type SportProvider interface {
	Sport(ctx context.Context, name, eventID string) (*models.Sport, error)
}

type PlayerProvider interface {
	Player(ctx context.Context, regNumber, eventID string) (*models.Player, error)
	PlayersByRegNumbers(ctx context.Context, regNumbers []string, eventID string) ([]models.Player, error)
}

type PointsUpdater interface {
	UpdatePointsTable(ctx context.Context, update models.PointsUpdate) (bool, error)
}

type MatchSource interface {
	MatchesForSport(ctx context.Context, sport, eventID string) ([]models.Match, error)
}

type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// --- Перевод ошибок шлюзов в ошибки сервиса ---

func eventYearError(err error) error {
	switch {
	case errors.Is(err, clients.ErrNoActiveEventYear):
		return ErrNoActiveEventYear
	case errors.Is(err, clients.ErrEventYearNotFound):
		return ErrEventYearNotFound
	default:
		return upstreamError("Failed to resolve event year", err)
	}
}

func sportError(err error) error {
	if errors.Is(err, clients.ErrSportNotFound) {
		return ErrSportNotFound
	}
	return upstreamError("Failed to fetch sport", err)
}

// --- Даты ---

// eventCalendar evaluates event windows on calendar days in a fixed location.
type eventCalendar struct {
	loc *time.Location
	now func() time.Time
}

func newEventCalendar(loc *time.Location, now func() time.Time) eventCalendar {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return eventCalendar{loc: loc, now: now}
}

func (c eventCalendar) today() time.Time {
	return models.StartOfDay(c.now(), c.loc)
}

// day re-anchors a stored calendar date in the event location without shifting it.
func (c eventCalendar) day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

func (c eventCalendar) eventWindow(ey *models.EventYear) (models.Window, error) {
	return models.ParseWindow(ey.EventDates, c.loc)
}

// requireOperationPeriod allows match creation and deletion only after registration closes
// and up to the last event day.
func (c eventCalendar) requireOperationPeriod(ey *models.EventYear) error {
	regEnd, err1 := models.ParseDate(ey.RegistrationDates.End, c.loc)
	event, err2 := c.eventWindow(ey)
	if err1 != nil || err2 != nil {
		return validationError("Error checking event date range. Please try again.")
	}
	today := c.today()
	if today.After(regEnd) && !today.After(event.End) {
		return nil
	}
	return validationError("This operation is only allowed after registration period ends and before event ends (after %s and before %s).",
		models.HumanDate(regEnd), models.HumanDate(event.End))
}

// requireStatusUpdatePeriod allows match edits only during the event itself.
func (c eventCalendar) requireStatusUpdatePeriod(ey *models.EventYear) error {
	event, err := c.eventWindow(ey)
	if err != nil {
		return validationError("Error checking event status update date range. Please try again.")
	}
	if event.Contains(c.today()) {
		return nil
	}
	return validationError("Event status updates are only allowed during event period (%s to %s).",
		models.HumanDate(event.Start), models.HumanDate(event.End))
}

func windowLabel(w models.Window) string {
	return models.HumanDate(w.Start) + " to " + models.HumanDate(w.End)
}

// --- Множества участников ---

type ParticipantSet map[string]struct{}

func newParticipantSet(items ...string) ParticipantSet {
	s := make(ParticipantSet, len(items))
	for _, it := range items {
		s.Add(it)
	}
	return s
}

func (s ParticipantSet) Add(name string) {
	if name = strings.TrimSpace(name); name != "" {
		s[name] = struct{}{}
	}
}

func (s ParticipantSet) Has(name string) bool {
	_, ok := s[strings.TrimSpace(name)]
	return ok
}

// Sorted returns the members in lexical order.
func (s ParticipantSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// uniqueTrimmed trims names, drops blanks and duplicates, keeping first-seen order.
func uniqueTrimmed(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
