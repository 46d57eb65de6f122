package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Dosada05/sports-scheduling/models"
)

var (
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchVersionConflict = errors.New("match version conflict")
	ErrMatchNumberConflict  = errors.New("match number could not be allocated")
)

const (
	matchNumberConstraint = "event_schedule_match_number_key"
	matchNumberAttempts   = 3
)

// MatchFilter narrows a listing; empty fields match everything.
type MatchFilter struct {
	EventID    string
	SportsName string
	Statuses   []models.MatchStatus
	Types      []models.MatchType
}

type MatchRepository interface {
	// Create assigns the next match number for (event, sport) and persists the match.
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	List(ctx context.Context, filter MatchFilter) ([]models.Match, error)
	// Update persists mutable fields if the stored version still equals match.Version,
	// then bumps match.Version.
	Update(ctx context.Context, match *models.Match) error
	Delete(ctx context.Context, id string, version int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, event_id, sports_name, match_number, match_type, match_date, status,
	teams, players, winner, qualifiers, created_by, updated_by, version, created_at, updated_at`

func (r *postgresMatchRepository) Create(ctx context.Context, match *models.Match) error {
	if match.ID == "" {
		match.ID = uuid.NewString()
	}
	qualifiers, err := json.Marshal(nonNilQualifiers(match.Qualifiers))
	if err != nil {
		return fmt.Errorf("marshal qualifiers: %w", err)
	}

	// Номер вычисляется в том же INSERT; уникальный индекс ловит гонку, повторяем.
	query := `
		INSERT INTO event_schedule
			(id, event_id, sports_name, match_number, match_type, match_date, status,
			 teams, players, winner, qualifiers, created_by, version)
		SELECT $1, $2, $3, COALESCE(MAX(match_number), 0) + 1, $4, $5, $6, $7, $8, $9, $10, $11, 1
		FROM event_schedule
		WHERE event_id = $2 AND sports_name = $3
		RETURNING match_number, version, created_at, updated_at`

	for attempt := 1; attempt <= matchNumberAttempts; attempt++ {
		err = r.db.QueryRowContext(ctx, query,
			match.ID,
			match.EventID,
			match.SportsName,
			match.MatchType,
			match.MatchDate.Format(models.DateLayout),
			match.Status,
			pq.Array(nonNilStrings(match.Teams)),
			pq.Array(nonNilStrings(match.Players)),
			match.Winner,
			qualifiers,
			match.CreatedBy,
		).Scan(&match.MatchNumber, &match.Version, &match.CreatedAt, &match.UpdatedAt)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err, matchNumberConstraint) {
			return fmt.Errorf("failed to insert match: %w", err)
		}
	}
	return ErrMatchNumberConflict
}

func (r *postgresMatchRepository) scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var (
		m          models.Match
		matchDate  time.Time
		qualifiers []byte
		winner     sql.NullString
		updatedBy  sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.EventID, &m.SportsName, &m.MatchNumber, &m.MatchType, &matchDate, &m.Status,
		pq.Array(&m.Teams), pq.Array(&m.Players), &winner, &qualifiers, &m.CreatedBy, &updatedBy,
		&m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	// DATE приходит как полночь UTC; сохраняем только календарный день.
	m.MatchDate = models.DateOf(matchDate)
	if winner.Valid {
		m.Winner = &winner.String
	}
	if updatedBy.Valid {
		m.UpdatedBy = &updatedBy.String
	}
	if len(qualifiers) > 0 {
		if err := json.Unmarshal(qualifiers, &m.Qualifiers); err != nil {
			return nil, fmt.Errorf("decode qualifiers of match %s: %w", m.ID, err)
		}
	}
	m.Teams = nonNilStrings(m.Teams)
	m.Players = nonNilStrings(m.Players)
	m.Qualifiers = nonNilQualifiers(m.Qualifiers)
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrMatchNotFound
	}
	query := `SELECT ` + matchColumns + ` FROM event_schedule WHERE id = $1`
	return r.scanMatch(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresMatchRepository) List(ctx context.Context, filter MatchFilter) ([]models.Match, error) {
	var (
		qb   strings.Builder
		args []interface{}
	)
	qb.WriteString(`SELECT ` + matchColumns + ` FROM event_schedule WHERE 1=1`)
	addArg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.EventID != "" {
		qb.WriteString(" AND event_id = " + addArg(filter.EventID))
	}
	if filter.SportsName != "" {
		qb.WriteString(" AND sports_name = " + addArg(filter.SportsName))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		qb.WriteString(" AND status = ANY(" + addArg(pq.Array(statuses)) + ")")
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		qb.WriteString(" AND match_type = ANY(" + addArg(pq.Array(types)) + ")")
	}
	qb.WriteString(" ORDER BY match_number ASC")

	rows, err := r.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		m, err := r.scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, match *models.Match) error {
	qualifiers, err := json.Marshal(nonNilQualifiers(match.Qualifiers))
	if err != nil {
		return fmt.Errorf("marshal qualifiers: %w", err)
	}
	query := `
		UPDATE event_schedule SET
			match_date = $1, status = $2, winner = $3, qualifiers = $4, updated_by = $5,
			version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
		RETURNING version, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		match.MatchDate.Format(models.DateLayout),
		match.Status,
		match.Winner,
		qualifiers,
		match.UpdatedBy,
		match.ID,
		match.Version,
	).Scan(&match.Version, &match.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r.missingOrConflict(ctx, match.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update match %s: %w", match.ID, err)
	}
	return nil
}

func (r *postgresMatchRepository) Delete(ctx context.Context, id string, version int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM event_schedule WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("failed to delete match %s: %w", id, err)
	}
	if err := checkAffectedRows(result, ErrMatchVersionConflict); err != nil {
		if errors.Is(err, ErrMatchVersionConflict) {
			return r.missingOrConflict(ctx, id)
		}
		return err
	}
	return nil
}

func (r *postgresMatchRepository) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM event_schedule WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrMatchNotFound
	}
	return ErrMatchVersionConflict
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilQualifiers(q []models.Qualifier) []models.Qualifier {
	if q == nil {
		return []models.Qualifier{}
	}
	return q
}
