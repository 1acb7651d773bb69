package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/pong-arena/models"
)

var ErrTournamentMatchNotFound = errors.New("tournament match not found")

type TournamentMatchRepository interface {
	Upsert(ctx context.Context, exec SQLExecutor, match *models.TournamentMatch) error
	GetByID(ctx context.Context, id string) (*models.TournamentMatch, error)
	ListByTournament(ctx context.Context, tournamentID string) ([]*models.TournamentMatch, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id string, from, to models.MatchStatus) error
	ResetStaleActive(ctx context.Context, olderThan time.Duration) (int, error)
	NextPendingForUser(ctx context.Context, tournamentID string, userID int) (*models.TournamentMatch, error)
}

type postgresTournamentMatchRepository struct {
	db *sql.DB
}

func NewPostgresTournamentMatchRepository(db *sql.DB) TournamentMatchRepository {
	return &postgresTournamentMatchRepository{db: db}
}

// Upsert writes a bracket slot, inserting on first sight and otherwise
// replacing the mutable fields. Settlement touches existing rows and
// lazily creates next-round rows in the same transaction, so one
// statement covers both.
func (r *postgresTournamentMatchRepository) Upsert(ctx context.Context, exec SQLExecutor, m *models.TournamentMatch) error {
	query := `
		INSERT INTO tournament_matches
			(id, tournament_id, round, order_in_round, player1_id, player2_id,
			 score1, score2, winner_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			player1_id = EXCLUDED.player1_id,
			player2_id = EXCLUDED.player2_id,
			score1     = EXCLUDED.score1,
			score2     = EXCLUDED.score2,
			winner_id  = EXCLUDED.winner_id,
			status     = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`

	_, err := exec.ExecContext(ctx, query,
		m.ID,
		m.TournamentID,
		m.Round,
		m.OrderInRound,
		m.Player1ID,
		m.Player2ID,
		m.Score1,
		m.Score2,
		m.WinnerID,
		m.Status,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert tournament match %s: %w", m.ID, err)
	}
	return nil
}

func (r *postgresTournamentMatchRepository) GetByID(ctx context.Context, id string) (*models.TournamentMatch, error) {
	query := `
		SELECT id, tournament_id, round, order_in_round, player1_id, player2_id,
		       score1, score2, winner_id, status, created_at, updated_at
		FROM tournament_matches
		WHERE id = $1`

	m := &models.TournamentMatch{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.OrderInRound,
		&m.Player1ID, &m.Player2ID, &m.Score1, &m.Score2,
		&m.WinnerID, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament match %s: %w", id, err)
	}
	return m, nil
}

func (r *postgresTournamentMatchRepository) ListByTournament(ctx context.Context, tournamentID string) ([]*models.TournamentMatch, error) {
	query := `
		SELECT id, tournament_id, round, order_in_round, player1_id, player2_id,
		       score1, score2, winner_id, status, created_at, updated_at
		FROM tournament_matches
		WHERE tournament_id = $1
		ORDER BY round, order_in_round`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament matches: %w", err)
	}
	defer rows.Close()

	var out []*models.TournamentMatch
	for rows.Next() {
		m := &models.TournamentMatch{}
		if err := rows.Scan(
			&m.ID, &m.TournamentID, &m.Round, &m.OrderInRound,
			&m.Player1ID, &m.Player2ID, &m.Score1, &m.Score2,
			&m.WinnerID, &m.Status, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tournament match row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateStatus moves a match between non-terminal statuses with an atomic
// compare-and-set on the current status.
func (r *postgresTournamentMatchRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id string, from, to models.MatchStatus) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE tournament_matches SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`,
		id, from, to)
	if err != nil {
		return fmt.Errorf("failed to update match status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentMatchNotFound)
}

// ResetStaleActive flips matches stuck in active back to pending once
// they have been active longer than the given age. Administrative
// recovery path for crashed or abandoned sessions.
func (r *postgresTournamentMatchRepository) ResetStaleActive(ctx context.Context, olderThan time.Duration) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tournament_matches
		SET status = $1, updated_at = NOW()
		WHERE status = $2 AND updated_at < NOW() - $3::interval`,
		models.MatchPending, models.MatchActive, fmt.Sprintf("%d seconds", int(olderThan.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale active matches: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return int(n), nil
}

// NextPendingForUser returns the earliest bracket slot still waiting to be
// played that includes the given user.
func (r *postgresTournamentMatchRepository) NextPendingForUser(ctx context.Context, tournamentID string, userID int) (*models.TournamentMatch, error) {
	query := `
		SELECT id, tournament_id, round, order_in_round, player1_id, player2_id,
		       score1, score2, winner_id, status, created_at, updated_at
		FROM tournament_matches
		WHERE tournament_id = $1
		  AND status IN ($2, $3)
		  AND (player1_id = $4 OR player2_id = $4)
		ORDER BY round, order_in_round
		LIMIT 1`

	m := &models.TournamentMatch{}
	err := r.db.QueryRowContext(ctx, query, tournamentID, models.MatchPending, models.MatchActive, userID).Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.OrderInRound,
		&m.Player1ID, &m.Player2ID, &m.Score1, &m.Score2,
		&m.WinnerID, &m.Status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan next pending match: %w", err)
	}
	return m, nil
}
