package game

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// Reference tick rate of the authoritative simulation.
	TickRate     = 60
	TickInterval = time.Second / TickRate

	// How long a finished session stays resolvable so late clients can
	// still render the result.
	FinishedGracePeriod = 5 * time.Second
)

var (
	ErrSessionFull       = errors.New("session already has two players")
	ErrSideTaken         = errors.New("side is already taken in this session")
	ErrSessionNotWaiting = errors.New("session is not in waiting state")
	ErrSessionNotPlaying = errors.New("session is not in playing state")
	ErrPlayerNotInMatch  = errors.New("player is not part of this match")
)

// Broadcaster pushes a message to every client subscribed to a room. The
// websocket hub implements it; tests plug in a recorder.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// SettleFunc consumes the one settlement event a session emits on finish.
type SettleFunc func(Settlement)

// IntentUpdate is a partial intent write: nil fields are left untouched,
// so up and down can be updated independently (last write per field wins).
type IntentUpdate struct {
	Up   *bool `json:"up,omitempty"`
	Down *bool `json:"down,omitempty"`
}

// MatchSession owns one match's authoritative state. All mutation happens
// under mu, either from the session's own tick loop or from the
// intent/join entry points; clients only ever see snapshots.
type MatchSession struct {
	ID   string
	Mode Mode

	mu          sync.Mutex
	status      SessionStatus
	slots       []*PlayerSlot
	intents     map[Side]Intent
	ball        Ball
	leftPaddle  Paddle
	rightPaddle Paddle
	score       Score
	tick        uint64
	startedAt   time.Time
	finishedAt  time.Time
	lastActive  time.Time
	attached    int

	stopCh   chan struct{}
	stopOnce sync.Once

	broadcaster Broadcaster
	onSettle    SettleFunc
	logger      *slog.Logger
}

func NewMatchSession(id string, mode Mode, broadcaster Broadcaster, onSettle SettleFunc, logger *slog.Logger) *MatchSession {
	s := &MatchSession{
		ID:          id,
		Mode:        mode,
		status:      SessionWaiting,
		intents:     make(map[Side]Intent, 2),
		leftPaddle:  NewPaddle(),
		rightPaddle: NewPaddle(),
		stopCh:      make(chan struct{}),
		broadcaster: broadcaster,
		onSettle:    onSettle,
		logger:      logger,
		lastActive:  time.Now(),
	}
	ResetBall(&s.ball)
	return s
}

// BotSlot builds a slot driven by the given decision source.
func BotSlot(playerID, displayName string, side Side, src DecisionSource) PlayerSlot {
	return PlayerSlot{
		PlayerID:    playerID,
		DisplayName: displayName,
		Side:        side,
		Controller:  ControllerBot,
		source:      src,
	}
}

// HumanSlot builds a slot fed by client intents.
func HumanSlot(playerID, displayName string, side Side) PlayerSlot {
	return PlayerSlot{
		PlayerID:    playerID,
		DisplayName: displayName,
		Side:        side,
		Controller:  ControllerHuman,
	}
}

// AddPlayer seats a player. It fails once two slots are taken or when the
// requested side is occupied; existing slots are never mutated by a
// rejected call.
func (s *MatchSession) AddPlayer(slot PlayerSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == SessionFinished {
		return ErrSessionNotWaiting
	}
	if len(s.slots) >= 2 {
		return ErrSessionFull
	}
	for _, existing := range s.slots {
		if existing.Side == slot.Side {
			return ErrSideTaken
		}
		if existing.PlayerID == slot.PlayerID {
			return fmt.Errorf("%w: player %s already seated", ErrSideTaken, slot.PlayerID)
		}
	}

	added := slot
	s.slots = append(s.slots, &added)
	s.lastActive = time.Now()
	return nil
}

// SetIntent merges a partial intent for the given player. Fire-and-forget
// from the caller's point of view: the tick loop picks up whatever the
// latest write left behind.
func (s *MatchSession) SetIntent(playerID string, update IntentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.slotByPlayer(playerID)
	if slot == nil {
		return ErrPlayerNotInMatch
	}

	intent := s.intents[slot.Side]
	if update.Up != nil {
		intent.Up = *update.Up
	}
	if update.Down != nil {
		intent.Down = *update.Down
	}
	s.intents[slot.Side] = intent
	s.lastActive = time.Now()
	return nil
}

// Start transitions waiting→playing and launches the tick loop. Callers
// decide when simulation begins; seating the second player does not start
// it implicitly.
func (s *MatchSession) Start() error {
	s.mu.Lock()
	if s.status != SessionWaiting {
		s.mu.Unlock()
		return ErrSessionNotWaiting
	}
	select {
	case <-s.stopCh:
		// Stopped before ever starting; the tick loop would exit
		// immediately, so refuse to report the session as playing.
		s.mu.Unlock()
		return ErrSessionNotWaiting
	default:
	}
	s.status = SessionPlaying
	s.startedAt = time.Now()
	s.lastActive = s.startedAt
	ResetBall(&s.ball)
	s.mu.Unlock()

	go s.run()
	return nil
}

func (s *MatchSession) run() {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	dt := TickInterval.Seconds()
	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			if s.Tick(dt, now) {
				return
			}
		}
	}
}

// Tick advances the simulation by dt seconds and broadcasts the resulting
// snapshot. Returns true once the session has finished. Exported so the
// loop and tests share the exact same step.
func (s *MatchSession) Tick(dt float64, now time.Time) bool {
	s.mu.Lock()
	if s.status != SessionPlaying {
		s.mu.Unlock()
		return true
	}

	// 1. Bot slots produce their intent from the pre-step snapshot.
	snap := s.snapshotLocked(now)
	for _, slot := range s.slots {
		if slot.source != nil {
			s.intents[slot.Side] = slot.source.Decide(snap, slot.Side)
		}
	}

	// 2. Apply held intents to the paddles.
	s.applyIntent(&s.leftPaddle, s.intents[SideLeft], dt)
	s.applyIntent(&s.rightPaddle, s.intents[SideRight], dt)

	// 3. Ball motion and collisions, left paddle resolved before right.
	MoveBall(&s.ball, dt)
	WallCollision(&s.ball)
	if PaddleCollision(&s.ball, &s.leftPaddle, SideLeft) {
		Reflect(&s.ball, &s.leftPaddle)
	}
	if PaddleCollision(&s.ball, &s.rightPaddle, SideRight) {
		Reflect(&s.ball, &s.rightPaddle)
	}

	// 4. Scoring.
	var finished bool
	if scorer, ok := CheckGoal(&s.ball); ok {
		if scorer == SideLeft {
			s.score.Left++
			finished = s.score.Left >= MaxScore
		} else {
			s.score.Right++
			finished = s.score.Right >= MaxScore
		}
		ResetBall(&s.ball)
	}

	s.tick++
	s.lastActive = now

	var settlement Settlement
	if finished {
		s.status = SessionFinished
		s.finishedAt = now
		settlement = s.settlementLocked()
	}
	out := s.snapshotLocked(now)
	s.mu.Unlock()

	// 5. Push the snapshot on the session's own clock; never wait on
	// client I/O.
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToRoom(s.ID, Message{Type: MsgGameState, RoomID: s.ID, Payload: out})
	}

	if finished {
		if s.broadcaster != nil {
			s.broadcaster.BroadcastToRoom(s.ID, Message{Type: MsgGameEnd, RoomID: s.ID, Payload: GameEndPayload{
				Winner: settlement.WinnerID,
				Side:   settlement.WinnerSide,
				Score:  settlement.Score,
			}})
		}
		s.Stop()
		if s.onSettle != nil {
			go s.onSettle(settlement)
		}
		if s.logger != nil {
			s.logger.Info("match finished",
				slog.String("match_id", s.ID),
				slog.String("winner", settlement.WinnerID),
				slog.Int("score_left", settlement.Score.Left),
				slog.Int("score_right", settlement.Score.Right),
			)
		}
	}
	return finished
}

// applyIntent moves a paddle by its held intent. Down takes priority when
// both directions are held.
func (s *MatchSession) applyIntent(p *Paddle, intent Intent, dt float64) {
	step := p.Speed * dt / CourtHeight
	switch {
	case intent.Down:
		p.Offset += step
	case intent.Up:
		p.Offset -= step
	}
	if p.Offset < 0 {
		p.Offset = 0
	} else if p.Offset > 1 {
		p.Offset = 1
	}
}

// Stop halts the tick loop. Idempotent and safe from any goroutine; it
// always releases the ticker.
func (s *MatchSession) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.mu.Lock()
	if s.status == SessionPlaying {
		s.status = SessionFinished
		s.finishedAt = time.Now()
	}
	s.mu.Unlock()
}

func (s *MatchSession) slotByPlayer(playerID string) *PlayerSlot {
	for _, slot := range s.slots {
		if slot.PlayerID == playerID {
			return slot
		}
	}
	return nil
}

func (s *MatchSession) settlementLocked() Settlement {
	winnerSide := SideLeft
	if s.score.Right > s.score.Left {
		winnerSide = SideRight
	}
	settlement := Settlement{
		MatchID:    s.ID,
		Mode:       s.Mode,
		Score:      s.score,
		WinnerSide: winnerSide,
		StartedAt:  s.startedAt,
		Duration:   s.finishedAt.Sub(s.startedAt),
	}
	for _, slot := range s.slots {
		settlement.Players = append(settlement.Players, *slot)
		if slot.Side == winnerSide {
			settlement.WinnerID = slot.PlayerID
		}
	}
	return settlement
}

func (s *MatchSession) snapshotLocked(now time.Time) *Snapshot {
	snap := &Snapshot{
		MatchID:     s.ID,
		Mode:        s.Mode,
		Status:      s.status,
		Ball:        s.ball,
		LeftPaddle:  s.leftPaddle,
		RightPaddle: s.rightPaddle,
		Score:       s.score,
		Tick:        s.tick,
		Timestamp:   now,
	}
	for _, slot := range s.slots {
		snap.Players = append(snap.Players, *slot)
	}
	return snap
}

// Snapshot returns the current state enriched with both slots' display
// names. Safe to call from any goroutine.
func (s *MatchSession) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(time.Now())
}

func (s *MatchSession) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *MatchSession) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}

// HasPlayer reports whether the given player occupies a slot.
func (s *MatchSession) HasPlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slotByPlayer(playerID) != nil
}

// Attach records a connected realtime client for this match.
func (s *MatchSession) Attach() {
	s.mu.Lock()
	s.attached++
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// Detach records a client disconnect and returns how many remain.
func (s *MatchSession) Detach() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached > 0 {
		s.attached--
	}
	return s.attached
}

func (s *MatchSession) AttachedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// IdleSince reports the last moment anything touched the session.
func (s *MatchSession) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// FinishedAt returns the zero time until the session has finished.
func (s *MatchSession) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}
