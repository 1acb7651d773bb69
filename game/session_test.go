package game

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// recordingBroadcaster captures frames in the order they were pushed.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []Message
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID string, message interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg, ok := message.(Message); ok {
		b.messages = append(b.messages, msg)
	}
}

func (b *recordingBroadcaster) byType(msgType string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, msg := range b.messages {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

func TestAddPlayer(t *testing.T) {
	s := NewMatchSession("m1", ModeOnline, nil, nil, nil)

	if err := s.AddPlayer(HumanSlot("alice", "Alice", SideLeft)); err != nil {
		t.Fatalf("first AddPlayer: %v", err)
	}
	if err := s.AddPlayer(HumanSlot("bob", "Bob", SideLeft)); !errors.Is(err, ErrSideTaken) {
		t.Errorf("duplicate side error = %v, want ErrSideTaken", err)
	}
	if err := s.AddPlayer(HumanSlot("bob", "Bob", SideRight)); err != nil {
		t.Fatalf("second AddPlayer: %v", err)
	}
	if err := s.AddPlayer(HumanSlot("carol", "Carol", SideRight)); !errors.Is(err, ErrSessionFull) {
		t.Errorf("third AddPlayer error = %v, want ErrSessionFull", err)
	}
	if got := s.PlayerCount(); got != 2 {
		t.Errorf("PlayerCount() = %d, want 2", got)
	}
}

func TestSetIntentMergesPerField(t *testing.T) {
	s := NewMatchSession("m1", ModeOnline, nil, nil, nil)
	if err := s.AddPlayer(HumanSlot("alice", "Alice", SideLeft)); err != nil {
		t.Fatal(err)
	}

	boolPtr := func(v bool) *bool { return &v }

	if err := s.SetIntent("alice", IntentUpdate{Up: boolPtr(true)}); err != nil {
		t.Fatal(err)
	}
	// Writing only down must not clear the held up.
	if err := s.SetIntent("alice", IntentUpdate{Down: boolPtr(true)}); err != nil {
		t.Fatal(err)
	}
	if got := s.intents[SideLeft]; !got.Up || !got.Down {
		t.Errorf("intent = %+v, want both directions held", got)
	}

	// Releasing up leaves down held.
	if err := s.SetIntent("alice", IntentUpdate{Up: boolPtr(false)}); err != nil {
		t.Fatal(err)
	}
	if got := s.intents[SideLeft]; got.Up || !got.Down {
		t.Errorf("intent after release = %+v, want only down", got)
	}

	if err := s.SetIntent("stranger", IntentUpdate{Up: boolPtr(true)}); !errors.Is(err, ErrPlayerNotInMatch) {
		t.Errorf("stranger intent error = %v, want ErrPlayerNotInMatch", err)
	}
}

func TestStartTransitions(t *testing.T) {
	s := NewMatchSession("m1", ModeOnline, nil, nil, nil)
	defer s.Stop()

	if err := s.Start(); err != nil {
		t.Fatalf("Start() from waiting: %v", err)
	}
	if got := s.Status(); got != SessionPlaying {
		t.Errorf("status = %q, want playing", got)
	}
	if err := s.Start(); !errors.Is(err, ErrSessionNotWaiting) {
		t.Errorf("second Start() error = %v, want ErrSessionNotWaiting", err)
	}
}

func TestStartAfterStopRefused(t *testing.T) {
	s := NewMatchSession("m1", ModeOnline, nil, nil, nil)
	s.Stop()

	// The stop channel is already closed, so the tick loop would exit
	// immediately; the session must not claim to be playing.
	if err := s.Start(); !errors.Is(err, ErrSessionNotWaiting) {
		t.Fatalf("Start() after Stop() error = %v, want ErrSessionNotWaiting", err)
	}
	if got := s.Status(); got != SessionWaiting {
		t.Errorf("status = %q, want still waiting", got)
	}
}

func TestApplyIntentDownPriority(t *testing.T) {
	s := NewMatchSession("m1", ModeLocal, nil, nil, nil)
	p := NewPaddle()

	s.applyIntent(&p, Intent{Up: true, Down: true}, 0.1)
	if p.Offset <= 0.5 {
		t.Errorf("offset = %v, want increased (down wins a conflict)", p.Offset)
	}
}

func TestApplyIntentClampsRange(t *testing.T) {
	s := NewMatchSession("m1", ModeLocal, nil, nil, nil)

	p := NewPaddle()
	for i := 0; i < 1000; i++ {
		s.applyIntent(&p, Intent{Up: true}, 0.05)
	}
	if p.Offset != 0 {
		t.Errorf("offset after holding up = %v, want clamped at 0", p.Offset)
	}

	for i := 0; i < 1000; i++ {
		s.applyIntent(&p, Intent{Down: true}, 0.05)
	}
	if p.Offset != 1 {
		t.Errorf("offset after holding down = %v, want clamped at 1", p.Offset)
	}
}

func forceBall(s *MatchSession, b Ball) {
	s.mu.Lock()
	s.ball = b
	s.mu.Unlock()
}

func TestTickScoresAndResets(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	s := NewMatchSession("m1", ModeLocal, broadcaster, nil, nil)
	if err := s.AddPlayer(HumanSlot("alice", "Alice", SideLeft)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPlayer(HumanSlot("bob", "Bob", SideRight)); err != nil {
		t.Fatal(err)
	}

	// Drive ticks manually instead of racing the ticker goroutine.
	s.mu.Lock()
	s.status = SessionPlaying
	s.startedAt = time.Now()
	s.mu.Unlock()
	defer s.Stop()

	// Ball about to cross the left goal line: right side scores.
	forceBall(s, Ball{Position: Vec2{X: 1, Y: 300}, Velocity: Vec2{X: -300, Y: 0}, Radius: BallRadius})
	if finished := s.Tick(TickInterval.Seconds(), time.Now()); finished {
		t.Fatal("Tick() reported finish on the first goal")
	}

	snap := s.Snapshot()
	if snap.Score.Right != 1 || snap.Score.Left != 0 {
		t.Errorf("score = %+v, want right 1 left 0", snap.Score)
	}
	if snap.Ball.Position.X != CourtWidth/2 || snap.Ball.Position.Y != CourtHeight/2 {
		t.Errorf("ball = %+v, want re-centered after a goal", snap.Ball.Position)
	}
	if len(broadcaster.byType(MsgGameState)) == 0 {
		t.Error("no game state frame broadcast after a tick")
	}
}

func TestTickFinishesAtMaxScore(t *testing.T) {
	broadcaster := &recordingBroadcaster{}
	settlements := make(chan Settlement, 1)
	s := NewMatchSession("m1", ModeOnline, broadcaster, func(settlement Settlement) {
		settlements <- settlement
	}, nil)
	if err := s.AddPlayer(HumanSlot("alice", "Alice", SideLeft)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPlayer(HumanSlot("bob", "Bob", SideRight)); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	s.status = SessionPlaying
	s.startedAt = time.Now()
	s.score = Score{Left: MaxScore - 1, Right: 2}
	s.mu.Unlock()

	// Ball about to cross the right goal line: left side reaches MaxScore.
	forceBall(s, Ball{Position: Vec2{X: CourtWidth - 1, Y: 300}, Velocity: Vec2{X: 300, Y: 0}, Radius: BallRadius})
	if finished := s.Tick(TickInterval.Seconds(), time.Now()); !finished {
		t.Fatal("Tick() did not report finish at max score")
	}

	if got := s.Status(); got != SessionFinished {
		t.Errorf("status = %q, want finished", got)
	}

	select {
	case settlement := <-settlements:
		if settlement.WinnerSide != SideLeft {
			t.Errorf("winner side = %q, want left", settlement.WinnerSide)
		}
		if settlement.WinnerID != "alice" {
			t.Errorf("winner id = %q, want alice", settlement.WinnerID)
		}
		if settlement.Score.Left != MaxScore {
			t.Errorf("final score left = %d, want %d", settlement.Score.Left, MaxScore)
		}
	case <-time.After(time.Second):
		t.Fatal("settlement callback never fired")
	}

	endFrames := broadcaster.byType(MsgGameEnd)
	if len(endFrames) != 1 {
		t.Fatalf("game end frames = %d, want exactly 1", len(endFrames))
	}
	payload, ok := endFrames[0].Payload.(GameEndPayload)
	if !ok {
		t.Fatalf("game end payload type %T", endFrames[0].Payload)
	}
	if payload.Winner != "alice" || payload.Side != SideLeft {
		t.Errorf("game end payload = %+v, want alice on the left", payload)
	}

	// A further tick on a finished session is a no-op that stays finished.
	if finished := s.Tick(TickInterval.Seconds(), time.Now()); !finished {
		t.Error("Tick() on a finished session = false, want true")
	}
	if len(broadcaster.byType(MsgGameEnd)) != 1 {
		t.Error("finished session broadcast a second game end frame")
	}
}

func TestTickDrivesBotPaddle(t *testing.T) {
	s := NewMatchSession("m1", ModeSolo, nil, nil, nil)
	if err := s.AddPlayer(HumanSlot("alice", "Alice", SideLeft)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPlayer(BotSlot("bot:m1", "Bot", SideRight, NewReactiveStrategy())); err != nil {
		t.Fatal(err)
	}

	s.mu.Lock()
	s.status = SessionPlaying
	s.startedAt = time.Now()
	s.mu.Unlock()
	defer s.Stop()

	// Ball held high: the reactive bot should climb toward it.
	forceBall(s, Ball{Position: Vec2{X: 400, Y: 50}, Velocity: Vec2{X: 10, Y: 0}, Radius: BallRadius})
	before := s.Snapshot().RightPaddle.Offset
	for i := 0; i < 10; i++ {
		s.Tick(TickInterval.Seconds(), time.Now())
		forceBall(s, Ball{Position: Vec2{X: 400, Y: 50}, Velocity: Vec2{X: 10, Y: 0}, Radius: BallRadius})
	}
	after := s.Snapshot().RightPaddle.Offset

	if after >= before {
		t.Errorf("bot paddle offset %v -> %v, want it moving up toward the ball", before, after)
	}
}
