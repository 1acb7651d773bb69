package models

import "time"

type MatchStatus string

const (
	MatchPending   MatchStatus = "pending"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
	MatchCanceled  MatchStatus = "cancelled"
)

// IsTerminal reports whether no further mutation of the match is allowed.
func (s MatchStatus) IsTerminal() bool {
	return s == MatchCompleted || s == MatchCanceled
}

// TournamentMatch is one bracket slot. Player ids are nil until the feeding
// matches settle; a match with one player and no possible opponent
// auto-completes with that player as winner.
type TournamentMatch struct {
	ID           string      `json:"id"`
	TournamentID string      `json:"tournament_id"`
	Round        int         `json:"round"`
	OrderInRound int         `json:"order_in_round"`
	Player1ID    *int        `json:"player1_id,omitempty"`
	Player2ID    *int        `json:"player2_id,omitempty"`
	Score1       int         `json:"score1"`
	Score2       int         `json:"score2"`
	WinnerID     *int        `json:"winner_id,omitempty"`
	Status       MatchStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// HasPlayer reports whether the given user occupies either slot.
func (m *TournamentMatch) HasPlayer(userID int) bool {
	return (m.Player1ID != nil && *m.Player1ID == userID) ||
		(m.Player2ID != nil && *m.Player2ID == userID)
}

// MatchRecord is a finished match as written to history. Fire-and-forget
// from the gameplay core's point of view.
type MatchRecord struct {
	ID          int           `json:"id"`
	MatchID     string        `json:"match_id"`
	Mode        string        `json:"mode"`
	LeftPlayer  string        `json:"left_player"`
	RightPlayer string        `json:"right_player"`
	LeftKind    string        `json:"left_kind"`
	RightKind   string        `json:"right_kind"`
	ScoreLeft   int           `json:"score_left"`
	ScoreRight  int           `json:"score_right"`
	WinnerID    string        `json:"winner_id"`
	Duration    time.Duration `json:"duration"`
	PlayedAt    time.Time     `json:"played_at"`
	// Ledger receipt when anchoring succeeded, empty otherwise.
	AnchorTxRef string `json:"anchor_tx_ref,omitempty"`
}
