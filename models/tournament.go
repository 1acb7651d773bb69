package models

import "time"

// TournamentStatus mirrors the ENUM in the database.
type TournamentStatus string

const (
	TournamentWaiting   TournamentStatus = "waiting"
	TournamentActive    TournamentStatus = "active"
	TournamentCompleted TournamentStatus = "completed"
	TournamentCanceled  TournamentStatus = "canceled"
)

type TournamentType string

const (
	TournamentSingleElimination TournamentType = "single_elimination"
)

type Tournament struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	CreatorID  int              `json:"creator_id"`
	Type       TournamentType   `json:"type"`
	MaxPlayers int              `json:"max_players"`
	Status     TournamentStatus `json:"status"`
	// Number of seeded participants, fixed at start. Zero while waiting.
	PlayerCount int       `json:"player_count"`
	Rounds      int       `json:"rounds"`
	WinnerID    *int      `json:"winner_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`

	// Optional related entities, loaded on demand.
	Participants []Participant     `json:"participants,omitempty"`
	Matches      []TournamentMatch `json:"matches,omitempty"`
}

// Participant is a user registered in a tournament. Seed is assigned when
// the tournament starts and orders round-1 pairing; zero while waiting.
type Participant struct {
	ID           int       `json:"id"`
	TournamentID string    `json:"tournament_id"`
	UserID       int       `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Seed         int       `json:"seed,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
