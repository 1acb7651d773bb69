package game

import "time"

type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Opposite returns the other side of the court.
func (s Side) Opposite() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

type Mode string

const (
	ModeSolo       Mode = "solo"
	ModeLocal      Mode = "local"
	ModeOnline     Mode = "online"
	ModeTournament Mode = "tournament"
)

type SessionStatus string

const (
	SessionWaiting  SessionStatus = "waiting"
	SessionPlaying  SessionStatus = "playing"
	SessionFinished SessionStatus = "finished"
)

type ControllerKind string

const (
	ControllerHuman ControllerKind = "human"
	ControllerBot   ControllerKind = "bot"
)

// Intent is a player's currently held directional request. Both fields
// false means hold position. Writes are last-write-wins per field; when
// both end up set, down takes priority.
type Intent struct {
	Up   bool `json:"up"`
	Down bool `json:"down"`
}

// PlayerSlot binds a player identity to one side of the court. Bot slots
// carry the decision source producing their intents.
type PlayerSlot struct {
	PlayerID    string         `json:"player_id"`
	DisplayName string         `json:"display_name"`
	Side        Side           `json:"side"`
	Controller  ControllerKind `json:"controller"`

	source DecisionSource
}

type Score struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Snapshot is the read-only view of a session pushed to clients every tick
// and handed to decision sources.
type Snapshot struct {
	MatchID     string        `json:"match_id"`
	Mode        Mode          `json:"mode"`
	Status      SessionStatus `json:"status"`
	Ball        Ball          `json:"ball"`
	LeftPaddle  Paddle        `json:"left_paddle"`
	RightPaddle Paddle        `json:"right_paddle"`
	Score       Score         `json:"score"`
	Players     []PlayerSlot  `json:"players"`
	Tick        uint64        `json:"tick"`
	Timestamp   time.Time     `json:"timestamp"`
}

// PaddleFor returns the paddle defending the given side.
func (s *Snapshot) PaddleFor(side Side) Paddle {
	if side == SideLeft {
		return s.LeftPaddle
	}
	return s.RightPaddle
}

// Settlement is emitted exactly once when a session finishes.
type Settlement struct {
	MatchID    string        `json:"match_id"`
	Mode       Mode          `json:"mode"`
	Players    []PlayerSlot  `json:"players"`
	Score      Score         `json:"score"`
	WinnerSide Side          `json:"winner_side"`
	WinnerID   string        `json:"winner_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}
