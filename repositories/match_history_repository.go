package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/pong-arena/models"
)

// MatchHistoryRepository archives finished matches. Writes are
// best-effort from the core's point of view; the settlement worker logs
// and moves on when one fails.
type MatchHistoryRepository interface {
	Create(ctx context.Context, record *models.MatchRecord) error
	ListByPlayer(ctx context.Context, playerID string, limit, offset int) ([]*models.MatchRecord, error)
}

type postgresMatchHistoryRepository struct {
	db *sql.DB
}

func NewPostgresMatchHistoryRepository(db *sql.DB) MatchHistoryRepository {
	return &postgresMatchHistoryRepository{db: db}
}

func (r *postgresMatchHistoryRepository) Create(ctx context.Context, record *models.MatchRecord) error {
	query := `
		INSERT INTO match_history
			(match_id, mode, left_player, right_player, left_kind, right_kind,
			 score_left, score_right, winner_id, duration_ms, played_at, anchor_tx_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		record.MatchID,
		record.Mode,
		record.LeftPlayer,
		record.RightPlayer,
		record.LeftKind,
		record.RightKind,
		record.ScoreLeft,
		record.ScoreRight,
		record.WinnerID,
		record.Duration.Milliseconds(),
		record.PlayedAt,
		record.AnchorTxRef,
	).Scan(&record.ID)

	if err != nil {
		return fmt.Errorf("failed to insert match record %s: %w", record.MatchID, err)
	}
	return nil
}

func (r *postgresMatchHistoryRepository) ListByPlayer(ctx context.Context, playerID string, limit, offset int) ([]*models.MatchRecord, error) {
	query := `
		SELECT id, match_id, mode, left_player, right_player, left_kind, right_kind,
		       score_left, score_right, winner_id, duration_ms, played_at, anchor_tx_ref
		FROM match_history
		WHERE left_player = $1 OR right_player = $1
		ORDER BY played_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list match history: %w", err)
	}
	defer rows.Close()

	var out []*models.MatchRecord
	for rows.Next() {
		record := &models.MatchRecord{}
		var durationMS int64
		if err := rows.Scan(
			&record.ID, &record.MatchID, &record.Mode,
			&record.LeftPlayer, &record.RightPlayer, &record.LeftKind, &record.RightKind,
			&record.ScoreLeft, &record.ScoreRight, &record.WinnerID,
			&durationMS, &record.PlayedAt, &record.AnchorTxRef,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match record row: %w", err)
		}
		record.Duration = timeDurationMS(durationMS)
		out = append(out, record)
	}
	return out, rows.Err()
}
