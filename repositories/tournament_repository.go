package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/pong-arena/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict")
)

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus, limit, offset int) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id string, status models.TournamentStatus) error
	MarkStarted(ctx context.Context, exec SQLExecutor, id string, playerCount, rounds int, startedAt time.Time) error
	MarkCompleted(ctx context.Context, exec SQLExecutor, id string, winnerID int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (id, name, creator_id, type, max_players, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.ID,
		t.Name,
		t.CreatorID,
		t.Type,
		t.MaxPlayers,
		t.Status,
	).Scan(&t.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == "tournaments_name_key" {
			return ErrTournamentNameConflict
		}
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id string) (*models.Tournament, error) {
	query := `
		SELECT id, name, creator_id, type, max_players, status, player_count, rounds,
		       winner_id, created_at, started_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.CreatorID,
		&t.Type,
		&t.MaxPlayers,
		&t.Status,
		&t.PlayerCount,
		&t.Rounds,
		&t.WinnerID,
		&t.CreatedAt,
		&t.StartedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %s: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, status *models.TournamentStatus, limit, offset int) ([]*models.Tournament, error) {
	query := `
		SELECT id, name, creator_id, type, max_players, status, player_count, rounds,
		       winner_id, created_at, started_at
		FROM tournaments
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var out []*models.Tournament
	for rows.Next() {
		t := &models.Tournament{}
		if err := rows.Scan(
			&t.ID, &t.Name, &t.CreatorID, &t.Type, &t.MaxPlayers, &t.Status,
			&t.PlayerCount, &t.Rounds, &t.WinnerID, &t.CreatedAt, &t.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id string, status models.TournamentStatus) error {
	result, err := exec.ExecContext(ctx,
		`UPDATE tournaments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkStarted(ctx context.Context, exec SQLExecutor, id string, playerCount, rounds int, startedAt time.Time) error {
	result, err := exec.ExecContext(ctx, `
		UPDATE tournaments
		SET status = $2, player_count = $3, rounds = $4, started_at = $5
		WHERE id = $1 AND status = $6`,
		id, models.TournamentActive, playerCount, rounds, startedAt, models.TournamentWaiting)
	if err != nil {
		return fmt.Errorf("failed to mark tournament started: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) MarkCompleted(ctx context.Context, exec SQLExecutor, id string, winnerID int) error {
	result, err := exec.ExecContext(ctx, `
		UPDATE tournaments
		SET status = $2, winner_id = $3
		WHERE id = $1`,
		id, models.TournamentCompleted, winnerID)
	if err != nil {
		return fmt.Errorf("failed to mark tournament completed: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
