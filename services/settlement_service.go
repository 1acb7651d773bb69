package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/pong-arena/game"
	"github.com/Dosada05/pong-arena/ledger"
	"github.com/Dosada05/pong-arena/models"
	"github.com/Dosada05/pong-arena/repositories"
	"github.com/Dosada05/pong-arena/storage"
)

// SettlementService is the sink for finished matches: it persists the
// history record, archives the result JSON to object storage and anchors
// it on the ledger when one is configured. Everything here is best-effort
// and asynchronous relative to match teardown; a dead collaborator is a
// log line, never a gameplay problem.
type SettlementService interface {
	Enqueue(settlement game.Settlement)
	RecordTournamentResult(ctx context.Context, tournament *models.Tournament)
	History(ctx context.Context, playerID string, limit, offset int) ([]*models.MatchRecord, error)
	Close()
}

type settlementService struct {
	historyRepo repositories.MatchHistoryRepository
	archiver    storage.ResultArchiver
	anchorer    ledger.Anchorer
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan game.Settlement
	done   chan struct{}
}

// NewSettlementService starts the background worker. archiver and
// anchorer may be nil; the corresponding step is skipped.
func NewSettlementService(
	historyRepo repositories.MatchHistoryRepository,
	archiver storage.ResultArchiver,
	anchorer ledger.Anchorer,
	logger *slog.Logger,
) SettlementService {
	s := &settlementService{
		historyRepo: historyRepo,
		archiver:    archiver,
		anchorer:    anchorer,
		logger:      logger,
		queue:       make(chan game.Settlement, 64),
		done:        make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *settlementService) run() {
	defer close(s.done)
	for settlement := range s.queue {
		s.process(settlement)
	}
}

// Enqueue hands a settlement to the background worker. When the queue is
// full or already closed the event is processed inline rather than
// dropped; history is worth a little backpressure.
func (s *settlementService) Enqueue(settlement game.Settlement) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.process(settlement)
		return
	}
	select {
	case s.queue <- settlement:
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		s.process(settlement)
	}
}

func (s *settlementService) process(settlement game.Settlement) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	record := recordFromSettlement(settlement)

	if receipt := s.anchor(ctx, settlement); receipt != nil {
		record.AnchorTxRef = receipt.TxRef
	}

	if err := s.historyRepo.Create(ctx, record); err != nil {
		s.logger.Error("failed to persist match record",
			slog.String("match_id", settlement.MatchID),
			slog.Any("error", fmt.Errorf("%w: %v", ErrCollaboratorFailed, err)),
		)
	}

	s.archive(ctx, settlement)
}

func (s *settlementService) archive(ctx context.Context, settlement game.Settlement) {
	if s.archiver == nil {
		return
	}

	payload, err := json.Marshal(settlement)
	if err != nil {
		s.logger.Error("failed to marshal settlement for archive",
			slog.String("match_id", settlement.MatchID), slog.Any("error", err))
		return
	}

	key := fmt.Sprintf("results/%s/%s.json", settlement.StartedAt.Format("2006-01-02"), settlement.MatchID)
	if _, err := s.archiver.Upload(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		s.logger.Error("failed to archive settlement",
			slog.String("match_id", settlement.MatchID),
			slog.Any("error", fmt.Errorf("%w: %v", ErrCollaboratorFailed, err)),
		)
		return
	}
	s.logger.Info("result archived", slog.String("match_id", settlement.MatchID), slog.String("key", key))
}

func (s *settlementService) anchor(ctx context.Context, settlement game.Settlement) *ledger.Receipt {
	if s.anchorer == nil {
		return nil
	}

	payload, err := json.Marshal(settlement)
	if err != nil {
		s.logger.Error("failed to marshal settlement for anchoring",
			slog.String("match_id", settlement.MatchID), slog.Any("error", err))
		return nil
	}

	receipt, err := s.anchorer.Anchor(ctx, ledger.Record{
		Kind:     "match",
		RefID:    settlement.MatchID,
		WinnerID: settlement.WinnerID,
		Payload:  payload,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			s.logger.Info("ledger anchoring unavailable, result recorded without receipt",
				slog.String("match_id", settlement.MatchID))
		} else {
			s.logger.Error("ledger anchoring failed",
				slog.String("match_id", settlement.MatchID), slog.Any("error", err))
		}
		return nil
	}

	s.logger.Info("result anchored",
		slog.String("match_id", settlement.MatchID),
		slog.String("tx_ref", receipt.TxRef),
	)
	return receipt
}

// RecordTournamentResult anchors a completed tournament. Fire-and-forget.
func (s *settlementService) RecordTournamentResult(ctx context.Context, tournament *models.Tournament) {
	if s.anchorer == nil || tournament.WinnerID == nil {
		return
	}

	payload, err := json.Marshal(tournament)
	if err != nil {
		s.logger.Error("failed to marshal tournament for anchoring",
			slog.String("tournament_id", tournament.ID), slog.Any("error", err))
		return
	}

	receipt, err := s.anchorer.Anchor(ctx, ledger.Record{
		Kind:     "tournament",
		RefID:    tournament.ID,
		WinnerID: fmt.Sprintf("%d", *tournament.WinnerID),
		Payload:  payload,
	})
	if err != nil {
		s.logger.Info("tournament anchoring skipped",
			slog.String("tournament_id", tournament.ID), slog.Any("error", err))
		return
	}
	s.logger.Info("tournament anchored",
		slog.String("tournament_id", tournament.ID),
		slog.String("tx_ref", receipt.TxRef),
	)
}

// History returns a player's finished matches, newest first.
func (s *settlementService) History(ctx context.Context, playerID string, limit, offset int) ([]*models.MatchRecord, error) {
	records, err := s.historyRepo.ListByPlayer(ctx, playerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCollaboratorFailed, err)
	}
	return records, nil
}

// Close drains and stops the worker. Settlements enqueued after Close
// are processed inline on the caller's goroutine.
func (s *settlementService) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func recordFromSettlement(settlement game.Settlement) *models.MatchRecord {
	record := &models.MatchRecord{
		MatchID:    settlement.MatchID,
		Mode:       string(settlement.Mode),
		ScoreLeft:  settlement.Score.Left,
		ScoreRight: settlement.Score.Right,
		WinnerID:   settlement.WinnerID,
		Duration:   settlement.Duration,
		PlayedAt:   settlement.StartedAt,
	}
	for _, player := range settlement.Players {
		if player.Side == game.SideLeft {
			record.LeftPlayer = player.PlayerID
			record.LeftKind = string(player.Controller)
		} else {
			record.RightPlayer = player.PlayerID
			record.RightKind = string(player.Controller)
		}
	}
	return record
}
