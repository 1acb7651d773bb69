package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/models"
)

// TournamentSettler is the slice of the tournament service the match
// layer needs: advancing brackets from finished sessions and keeping the
// bracket match status in step with its session.
type TournamentSettler interface {
	SettleMatch(ctx context.Context, matchID string, winnerID, score1, score2 int) error
	ActivateMatch(ctx context.Context, matchID string) error
	DeactivateMatch(ctx context.Context, matchID string) error
}

type MatchService interface {
	CreateMatch(ctx context.Context, input CreateMatchInput) (*game.Snapshot, error)
	JoinMatch(ctx context.Context, matchID string, input JoinMatchInput) (*game.Snapshot, error)
	StartMatch(ctx context.Context, matchID string) error
	SubmitIntent(ctx context.Context, matchID, playerID string, intent game.IntentUpdate) error
	GetSnapshot(ctx context.Context, matchID string) (*game.Snapshot, error)
	AbandonMatch(ctx context.Context, matchID, playerID string) error
	History(ctx context.Context, playerID string, limit, offset int) ([]*models.MatchRecord, error)

	// HandleSettlement consumes the one event a finished session emits.
	HandleSettlement(settlement game.Settlement)
	// HandleDisconnect runs when a realtime client drops off a match.
	HandleDisconnect(matchID string)
}

type CreateMatchInput struct {
	Mode     game.Mode `json:"mode"`
	MatchID  string    `json:"match_id,omitempty"`
	Strategy string    `json:"strategy,omitempty"` // solo mode: "reactive" (default) or "predictive"
}

type JoinMatchInput struct {
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Side        game.Side `json:"side"`
}

type matchService struct {
	registry   *game.Registry
	settlement SettlementService
	tournament TournamentSettler
	logger     *slog.Logger
}

func NewMatchService(
	registry *game.Registry,
	settlement SettlementService,
	tournament TournamentSettler,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		registry:   registry,
		settlement: settlement,
		tournament: tournament,
		logger:     logger,
	}
}

func (s *matchService) CreateMatch(ctx context.Context, input CreateMatchInput) (*game.Snapshot, error) {
	switch input.Mode {
	case game.ModeSolo, game.ModeLocal, game.ModeOnline, game.ModeTournament:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, input.Mode)
	}

	session, err := s.registry.CreateSession(input.Mode, input.MatchID)
	if err != nil {
		if errors.Is(err, game.ErrMatchExists) {
			return nil, ErrMatchIDConflict
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Solo matches get their opponent immediately: a bot on the right.
	if input.Mode == game.ModeSolo {
		source, err := botStrategy(input.Strategy)
		if err != nil {
			s.registry.RemoveSession(session.ID)
			return nil, err
		}
		botID := "bot:" + session.ID
		slot := game.BotSlot(botID, botDisplayName(input.Strategy), game.SideRight, source)
		if err := s.registry.AddPlayer(session.ID, slot); err != nil {
			s.registry.RemoveSession(session.ID)
			return nil, fmt.Errorf("failed to seat bot: %w", err)
		}
	}

	return session.Snapshot(), nil
}

func botStrategy(name string) (game.DecisionSource, error) {
	switch name {
	case "", "reactive":
		return game.NewReactiveStrategy(), nil
	case "predictive":
		return game.NewPredictiveStrategy(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrategy, name)
	}
}

func botDisplayName(strategy string) string {
	if strategy == "predictive" {
		return "Bot (predictive)"
	}
	return "Bot"
}

func (s *matchService) JoinMatch(ctx context.Context, matchID string, input JoinMatchInput) (*game.Snapshot, error) {
	if input.PlayerID == "" {
		return nil, fmt.Errorf("%w: player id is required", ErrValidationFailed)
	}
	if input.Side != game.SideLeft && input.Side != game.SideRight {
		return nil, ErrInvalidSide
	}

	slot := game.HumanSlot(input.PlayerID, input.DisplayName, input.Side)
	if err := s.registry.AddPlayer(matchID, slot); err != nil {
		switch {
		case errors.Is(err, game.ErrMatchNotFound):
			return nil, ErrMatchNotFound
		case errors.Is(err, game.ErrPlayerBusy):
			return nil, ErrPlayerBusy
		case errors.Is(err, game.ErrSessionFull), errors.Is(err, game.ErrSideTaken):
			return nil, fmt.Errorf("%w: %v", ErrSessionFull, err)
		case errors.Is(err, game.ErrSessionNotWaiting):
			return nil, ErrSessionNotWaiting
		}
		return nil, fmt.Errorf("failed to join match %s: %w", matchID, err)
	}

	session, _ := s.registry.Get(matchID)
	if session == nil {
		return nil, ErrMatchNotFound
	}
	return session.Snapshot(), nil
}

func (s *matchService) StartMatch(ctx context.Context, matchID string) error {
	session, ok := s.registry.Get(matchID)
	if !ok {
		return ErrMatchNotFound
	}
	if err := session.Start(); err != nil {
		return ErrSessionNotWaiting
	}

	if session.Mode == game.ModeTournament && s.tournament != nil {
		if err := s.tournament.ActivateMatch(ctx, matchID); err != nil {
			s.logger.Warn("failed to mark tournament match active",
				slog.String("match_id", matchID), slog.Any("error", err))
		}
	}
	return nil
}

func (s *matchService) SubmitIntent(ctx context.Context, matchID, playerID string, intent game.IntentUpdate) error {
	session, ok := s.registry.Get(matchID)
	if !ok {
		return ErrMatchNotFound
	}
	if err := session.SetIntent(playerID, intent); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

func (s *matchService) GetSnapshot(ctx context.Context, matchID string) (*game.Snapshot, error) {
	session, ok := s.registry.Get(matchID)
	if !ok {
		return nil, ErrMatchNotFound
	}
	return session.Snapshot(), nil
}

// AbandonMatch tears a session down before completion. A playing
// tournament match is forfeited to the opponent of whoever abandoned;
// other modes just disappear.
func (s *matchService) AbandonMatch(ctx context.Context, matchID, playerID string) error {
	session, ok := s.registry.Get(matchID)
	if !ok {
		return ErrMatchNotFound
	}

	if session.Mode == game.ModeTournament &&
		session.Status() == game.SessionPlaying &&
		s.tournament != nil && playerID != "" {

		snap := session.Snapshot()
		for _, player := range snap.Players {
			if player.PlayerID == playerID {
				continue
			}
			if winnerID, err := strconv.Atoi(player.PlayerID); err == nil {
				score1, score2 := snap.Score.Left, snap.Score.Right
				if err := s.tournament.SettleMatch(ctx, matchID, winnerID, score1, score2); err != nil {
					s.logger.Warn("forfeit settlement failed",
						slog.String("match_id", matchID), slog.Any("error", err))
				}
			}
		}
	}

	s.registry.RemoveSession(matchID)
	return nil
}

// History lists a player's finished matches from the settlement archive.
func (s *matchService) History(ctx context.Context, playerID string, limit, offset int) ([]*models.MatchRecord, error) {
	return s.settlement.History(ctx, playerID, limit, offset)
}

// HandleSettlement is wired as the registry's settle callback: it runs on
// a session goroutine, so every collaborator call here is queued or
// best-effort.
func (s *matchService) HandleSettlement(settlement game.Settlement) {
	s.settlement.Enqueue(settlement)

	if settlement.Mode == game.ModeTournament && s.tournament != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		winnerID, err := strconv.Atoi(settlement.WinnerID)
		if err != nil {
			s.logger.Error("tournament settlement with non-numeric winner id",
				slog.String("match_id", settlement.MatchID),
				slog.String("winner_id", settlement.WinnerID))
		} else if err := s.tournament.SettleMatch(ctx, settlement.MatchID, winnerID,
			settlement.Score.Left, settlement.Score.Right); err != nil {
			s.logger.Error("bracket advancement failed",
				slog.String("match_id", settlement.MatchID), slog.Any("error", err))
		}
	}

	s.registry.ScheduleRemoval(settlement.MatchID, game.FinishedGracePeriod)
}

// HandleDisconnect force-removes a playing session nobody is watching
// anymore instead of simulating to an empty room. Tournament matches go
// back to pending so the bracket can recover.
func (s *matchService) HandleDisconnect(matchID string) {
	session, ok := s.registry.Get(matchID)
	if !ok {
		return
	}
	if session.AttachedCount() > 0 || session.Status() != game.SessionPlaying {
		return
	}

	if session.Mode == game.ModeTournament && s.tournament != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.tournament.DeactivateMatch(ctx, matchID); err != nil {
			s.logger.Warn("failed to reset deserted tournament match",
				slog.String("match_id", matchID), slog.Any("error", err))
		}
	}

	s.logger.Info("removing deserted session", slog.String("match_id", matchID))
	s.registry.RemoveSession(matchID)
}
