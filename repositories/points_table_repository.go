package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/sports-scheduling/models"
)

// PointsReceipt identifies one incremental update so a replay can be detected.
type PointsReceipt struct {
	UpdateID   string
	EventID    string
	SportsName string
	MatchID    string
}

// TallyFunc computes a participant's new tally from the stored one.
type TallyFunc func(participant string, current models.Tally) models.Tally

type PointsTableRepository interface {
	ListBySport(ctx context.Context, eventID, sportsName string) ([]models.PointsTableEntry, error)
	// Upsert replaces the tallies of the given entries, keeping audit fields of existing rows.
	Upsert(ctx context.Context, entries []models.PointsTableEntry) error
	// ApplyDelta locks each participant row (creating zeroed rows on demand), rewrites it with fn
	// and records the receipt, all in one transaction. It returns false without touching
	// any row when the receipt was already recorded.
	ApplyDelta(ctx context.Context, receipt PointsReceipt, participantType models.ParticipantType,
		participants []string, actor string, fn TallyFunc) (bool, error)
}

type postgresPointsTableRepository struct {
	db *sql.DB
}

func NewPostgresPointsTableRepository(db *sql.DB) PointsTableRepository {
	return &postgresPointsTableRepository{db: db}
}

const pointsColumns = `id, event_id, sports_name, participant, participant_type, points, matches_played,
	matches_won, matches_lost, matches_draw, matches_cancelled, created_by, updated_by, created_at, updated_at`

func scanEntry(row interface{ Scan(...interface{}) error }) (*models.PointsTableEntry, error) {
	var (
		e         models.PointsTableEntry
		createdBy sql.NullString
		updatedBy sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.EventID, &e.SportsName, &e.Participant, &e.ParticipantType,
		&e.Points, &e.MatchesPlayed, &e.MatchesWon, &e.MatchesLost, &e.MatchesDraw, &e.MatchesCancelled,
		&createdBy, &updatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		e.CreatedBy = &createdBy.String
	}
	if updatedBy.Valid {
		e.UpdatedBy = &updatedBy.String
	}
	return &e, nil
}

func (r *postgresPointsTableRepository) ListBySport(ctx context.Context, eventID, sportsName string) ([]models.PointsTableEntry, error) {
	query := `SELECT ` + pointsColumns + `
		FROM points_table
		WHERE event_id = $1 AND sports_name = $2
		ORDER BY points DESC, matches_won DESC, participant ASC`
	rows, err := r.db.QueryContext(ctx, query, eventID, sportsName)
	if err != nil {
		return nil, fmt.Errorf("failed to list points table: %w", err)
	}
	defer rows.Close()

	entries := make([]models.PointsTableEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

const upsertEntryQuery = `
	INSERT INTO points_table
		(event_id, sports_name, participant, participant_type, points, matches_played,
		 matches_won, matches_lost, matches_draw, matches_cancelled, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (event_id, sports_name, participant) DO UPDATE SET
		participant_type = EXCLUDED.participant_type,
		points = EXCLUDED.points,
		matches_played = EXCLUDED.matches_played,
		matches_won = EXCLUDED.matches_won,
		matches_lost = EXCLUDED.matches_lost,
		matches_draw = EXCLUDED.matches_draw,
		matches_cancelled = EXCLUDED.matches_cancelled,
		updated_at = NOW()`

func (r *postgresPointsTableRepository) Upsert(ctx context.Context, entries []models.PointsTableEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertEntryQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare points upsert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			_, err := stmt.ExecContext(ctx,
				e.EventID, e.SportsName, e.Participant, e.ParticipantType,
				e.Points, e.MatchesPlayed, e.MatchesWon, e.MatchesLost, e.MatchesDraw, e.MatchesCancelled,
				e.CreatedBy,
			)
			if err != nil {
				return fmt.Errorf("failed to upsert points for %q: %w", e.Participant, err)
			}
		}
		return nil
	})
}

func (r *postgresPointsTableRepository) ApplyDelta(ctx context.Context, receipt PointsReceipt, participantType models.ParticipantType,
	participants []string, actor string, fn TallyFunc) (bool, error) {
	applied := false
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if receipt.UpdateID != "" {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO points_table_updates (update_id, event_id, sports_name, match_id)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (update_id) DO NOTHING`,
				receipt.UpdateID, receipt.EventID, receipt.SportsName, receipt.MatchID)
			if err != nil {
				return fmt.Errorf("failed to record points update receipt: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil || n == 0 {
				return err
			}
		}

		for _, participant := range participants {
			if err := r.applyOne(ctx, tx, receipt, participantType, participant, actor, fn); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *postgresPointsTableRepository) applyOne(ctx context.Context, exec SQLExecutor, receipt PointsReceipt,
	participantType models.ParticipantType, participant, actor string, fn TallyFunc) error {
	var createdBy interface{}
	if actor != "" {
		createdBy = actor
	}
	_, err := exec.ExecContext(ctx, `
		INSERT INTO points_table (event_id, sports_name, participant, participant_type, created_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, sports_name, participant) DO NOTHING`,
		receipt.EventID, receipt.SportsName, participant, participantType, createdBy)
	if err != nil {
		return fmt.Errorf("failed to ensure points row for %q: %w", participant, err)
	}

	row := exec.QueryRowContext(ctx, `SELECT `+pointsColumns+`
		FROM points_table
		WHERE event_id = $1 AND sports_name = $2 AND participant = $3
		FOR UPDATE`,
		receipt.EventID, receipt.SportsName, participant)
	entry, err := scanEntry(row)
	if err != nil {
		return fmt.Errorf("failed to lock points row for %q: %w", participant, err)
	}

	next := fn(participant, entry.Tally)
	updatedBy := entry.UpdatedBy
	if actor != "" {
		updatedBy = &actor
	}
	result, err := exec.ExecContext(ctx, `
		UPDATE points_table SET
			points = $1, matches_played = $2, matches_won = $3, matches_lost = $4,
			matches_draw = $5, matches_cancelled = $6, updated_by = $7, updated_at = NOW()
		WHERE id = $8`,
		next.Points, next.MatchesPlayed, next.MatchesWon, next.MatchesLost,
		next.MatchesDraw, next.MatchesCancelled, updatedBy, entry.ID)
	if err != nil {
		return fmt.Errorf("failed to update points for %q: %w", participant, err)
	}
	return checkAffectedRows(result, sql.ErrNoRows)
}
