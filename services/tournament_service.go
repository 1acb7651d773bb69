package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Dosada05/pong-arena/brackets"
	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/models"
	"github.com/Dosada05/pong-arena/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Matches stuck in active longer than this are flipped back to pending by
// the recovery scheduler.
const StaleActiveMatchAge = 30 * time.Minute

type CreateTournamentInput struct {
	Name       string                `json:"name"`
	MaxPlayers int                   `json:"max_players"`
	Type       models.TournamentType `json:"type"`
}

type TournamentService interface {
	Create(ctx context.Context, creator *models.User, input CreateTournamentInput) (*models.Tournament, error)
	Get(ctx context.Context, id string) (*models.Tournament, error)
	List(ctx context.Context, status *models.TournamentStatus, limit, offset int) ([]*models.Tournament, error)
	Join(ctx context.Context, tournamentID string, user *models.User) error
	Leave(ctx context.Context, tournamentID string, userID int) error
	Start(ctx context.Context, tournamentID string, requestingUserID int) (*models.Tournament, error)
	Cancel(ctx context.Context, tournamentID string, requestingUserID int) error
	NextMatchForPlayer(ctx context.Context, tournamentID string, userID int) (*models.TournamentMatch, error)
	ResetStaleMatches(ctx context.Context) (int, error)

	// TournamentSettler: bracket advancement driven by finished sessions
	// or submitted results.
	SettleMatch(ctx context.Context, matchID string, winnerID, score1, score2 int) error
	ActivateMatch(ctx context.Context, matchID string) error
	DeactivateMatch(ctx context.Context, matchID string) error
}

type tournamentService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.TournamentMatchRepository
	settlement      SettlementService
	hub             game.Broadcaster
	logger          *slog.Logger

	// Settlements for the same tournament are serialized so sibling
	// matches finishing together cannot double-fill a next-round slot.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.TournamentMatchRepository,
	settlement SettlementService,
	hub game.Broadcaster,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		settlement:      settlement,
		hub:             hub,
		logger:          logger,
		locks:           make(map[string]*sync.Mutex),
	}
}

func (s *tournamentService) lockFor(tournamentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[tournamentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[tournamentID] = lock
	}
	return lock
}

func (s *tournamentService) Create(ctx context.Context, creator *models.User, input CreateTournamentInput) (*models.Tournament, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.MaxPlayers < 2 {
		return nil, fmt.Errorf("%w: max players must be at least 2", ErrValidationFailed)
	}
	if input.Type == "" {
		input.Type = models.TournamentSingleElimination
	}
	if input.Type != models.TournamentSingleElimination {
		return nil, fmt.Errorf("%w: unsupported tournament type %q", ErrValidationFailed, input.Type)
	}

	tournament := &models.Tournament{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(input.Name),
		CreatorID:  creator.ID,
		Type:       input.Type,
		MaxPlayers: input.MaxPlayers,
		Status:     models.TournamentWaiting,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	// The creator plays too.
	if err := s.Join(ctx, tournament.ID, creator); err != nil {
		s.logger.Warn("creator auto-join failed",
			slog.String("tournament_id", tournament.ID), slog.Any("error", err))
	}

	return tournament, nil
}

// Get loads a tournament with its participants and matches fetched in
// parallel.
func (s *tournamentService) Get(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %s: %w", id, err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load participants: %w", err)
		}
		tournament.Participants = make([]models.Participant, 0, len(participants))
		for _, p := range participants {
			tournament.Participants = append(tournament.Participants, *p)
		}
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		tournament.Matches = make([]models.TournamentMatch, 0, len(matches))
		for _, m := range matches {
			tournament.Matches = append(tournament.Matches, *m)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, status *models.TournamentStatus, limit, offset int) ([]*models.Tournament, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.tournamentRepo.List(ctx, status, limit, offset)
}

func (s *tournamentService) Join(ctx context.Context, tournamentID string, user *models.User) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to load tournament: %w", err)
	}
	if tournament.Status != models.TournamentWaiting {
		return ErrTournamentNotWaiting
	}

	count, err := s.participantRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}
	if count >= tournament.MaxPlayers {
		return ErrTournamentFull
	}

	participant := &models.Participant{
		TournamentID: tournamentID,
		UserID:       user.ID,
		DisplayName:  user.Nickname,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		if errors.Is(err, repositories.ErrParticipantConflict) {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("failed to register participant: %w", err)
	}

	s.broadcast(tournamentID, "tournament/joined", participant)
	return nil
}

func (s *tournamentService) Leave(ctx context.Context, tournamentID string, userID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to load tournament: %w", err)
	}
	if tournament.Status != models.TournamentWaiting {
		return ErrTournamentNotWaiting
	}

	if err := s.participantRepo.Delete(ctx, tournamentID, userID); err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to remove participant: %w", err)
	}

	s.broadcast(tournamentID, "tournament/left", map[string]int{"user_id": userID})
	return nil
}

// Start seeds the roster in join order, generates round 1 and flips the
// tournament active. Only the creator may start it.
func (s *tournamentService) Start(ctx context.Context, tournamentID string, requestingUserID int) (*models.Tournament, error) {
	lock := s.lockFor(tournamentID)
	lock.Lock()
	defer lock.Unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	if tournament.CreatorID != requestingUserID {
		return nil, ErrOnlyCreatorCanStart
	}
	if tournament.Status != models.TournamentWaiting {
		return nil, ErrTournamentNotWaiting
	}

	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	if len(participants) < 2 {
		return nil, ErrNotEnoughParticipants
	}

	// Seed = join order.
	for i, p := range participants {
		p.Seed = i + 1
	}

	generator := brackets.NewSingleEliminationGenerator()
	bracket, err := generator.Generate(tournamentID, participants)
	if err != nil {
		if errors.Is(err, brackets.ErrNotEnoughParticipants) {
			return nil, ErrNotEnoughParticipants
		}
		return nil, fmt.Errorf("failed to generate bracket: %w", err)
	}

	startedAt := time.Now()
	rounds := brackets.Rounds(len(participants))

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.participantRepo.UpdateSeeds(ctx, tx, participants); err != nil {
			return err
		}
		if err := s.tournamentRepo.MarkStarted(ctx, tx, tournamentID, len(participants), rounds, startedAt); err != nil {
			return err
		}
		for _, m := range bracket.Changed() {
			if err := s.matchRepo.Upsert(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament started",
		slog.String("tournament_id", tournamentID),
		slog.Int("participants", len(participants)),
		slog.Int("rounds", rounds),
	)
	s.broadcast(tournamentID, "tournament/started", map[string]interface{}{
		"tournament_id": tournamentID,
		"rounds":        rounds,
	})

	return s.Get(ctx, tournamentID)
}

// Cancel abandons a tournament that has not started. Active brackets
// cannot be canceled; they either play out or recover via stale reset.
func (s *tournamentService) Cancel(ctx context.Context, tournamentID string, requestingUserID int) error {
	lock := s.lockFor(tournamentID)
	lock.Lock()
	defer lock.Unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to load tournament: %w", err)
	}
	if tournament.CreatorID != requestingUserID {
		return ErrForbiddenOperation
	}
	if tournament.Status != models.TournamentWaiting {
		return ErrTournamentNotWaiting
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, s.db, tournamentID, models.TournamentCanceled); err != nil {
		return fmt.Errorf("failed to cancel tournament: %w", err)
	}

	s.logger.Info("tournament canceled", slog.String("tournament_id", tournamentID))
	s.broadcast(tournamentID, "tournament/canceled", map[string]string{"tournament_id": tournamentID})
	return nil
}

// SettleMatch records a result and advances the bracket. Rejected when
// the match is already terminal or the winner is not one of its players;
// bracket integrity beats convenience here.
func (s *tournamentService) SettleMatch(ctx context.Context, matchID string, winnerID, score1, score2 int) error {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentMatchNotFound) {
			return ErrMatchNotFound
		}
		return fmt.Errorf("failed to load match %s: %w", matchID, err)
	}

	lock := s.lockFor(match.TournamentID)
	lock.Lock()
	defer lock.Unlock()

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament %s: %w", match.TournamentID, err)
	}
	if tournament.Status != models.TournamentActive {
		return ErrTournamentNotActive
	}

	matches, err := s.matchRepo.ListByTournament(ctx, match.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load bracket matches: %w", err)
	}

	bracket := brackets.NewBracket(match.TournamentID, tournament.PlayerCount, matches)
	outcome, err := bracket.Settle(matchID, winnerID, score1, score2)
	if err != nil {
		switch {
		case errors.Is(err, brackets.ErrMatchNotFound):
			return ErrMatchNotFound
		case errors.Is(err, brackets.ErrMatchAlreadySettled):
			return ErrMatchAlreadySettled
		case errors.Is(err, brackets.ErrInvalidWinner):
			return ErrWinnerNotInMatch
		}
		return fmt.Errorf("bracket settlement failed: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range bracket.Changed() {
			if err := s.matchRepo.Upsert(ctx, tx, m); err != nil {
				return err
			}
		}
		if outcome.Completed {
			if err := s.tournamentRepo.MarkCompleted(ctx, tx, match.TournamentID, outcome.WinnerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcast(match.TournamentID, "tournament/match_settled", map[string]interface{}{
		"match_id":  matchID,
		"winner_id": winnerID,
		"score1":    score1,
		"score2":    score2,
	})

	if outcome.Completed {
		s.logger.Info("tournament completed",
			slog.String("tournament_id", match.TournamentID),
			slog.Int("winner_id", outcome.WinnerID),
		)
		s.broadcast(match.TournamentID, "tournament/completed", map[string]interface{}{
			"tournament_id": match.TournamentID,
			"winner_id":     outcome.WinnerID,
		})
		if completed, err := s.Get(ctx, match.TournamentID); err == nil && s.settlement != nil {
			s.settlement.RecordTournamentResult(ctx, completed)
		}
	}
	return nil
}

func (s *tournamentService) ActivateMatch(ctx context.Context, matchID string) error {
	err := s.matchRepo.UpdateStatus(ctx, s.db, matchID, models.MatchPending, models.MatchActive)
	if errors.Is(err, repositories.ErrTournamentMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}

func (s *tournamentService) DeactivateMatch(ctx context.Context, matchID string) error {
	err := s.matchRepo.UpdateStatus(ctx, s.db, matchID, models.MatchActive, models.MatchPending)
	if errors.Is(err, repositories.ErrTournamentMatchNotFound) {
		return ErrMatchNotFound
	}
	return err
}

func (s *tournamentService) NextMatchForPlayer(ctx context.Context, tournamentID string, userID int) (*models.TournamentMatch, error) {
	match, err := s.matchRepo.NextPendingForUser(ctx, tournamentID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to find next match: %w", err)
	}
	return match, nil
}

// ResetStaleMatches is the administrative recovery path for matches that
// went active and never settled.
func (s *tournamentService) ResetStaleMatches(ctx context.Context) (int, error) {
	n, err := s.matchRepo.ResetStaleActive(ctx, StaleActiveMatchAge)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale matches: %w", err)
	}
	if n > 0 {
		s.logger.Info("reset stale active matches", slog.Int("count", n))
	}
	return n, nil
}

func (s *tournamentService) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *tournamentService) broadcast(tournamentID, msgType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	room := "tournament_" + tournamentID
	s.hub.BroadcastToRoom(room, game.Message{Type: msgType, RoomID: room, Payload: payload})
}
