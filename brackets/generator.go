package brackets

import (
	"errors"
	"math"

	"github.com/Dosada05/pong-arena/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants to generate a bracket (minimum 2)")
	ErrMatchNotFound         = errors.New("bracket match not found")
	ErrMatchAlreadySettled   = errors.New("match is already settled")
	ErrInvalidWinner         = errors.New("winner is not a player of this match")
)

// Generator builds the initial round of a bracket. Later rounds are
// created lazily as winners advance.
type Generator interface {
	Generate(tournamentID string, participants []*models.Participant) (*Bracket, error)
	Name() string
}

// Rounds returns the total round count for n participants: ceil(log2(n)).
func Rounds(n int) int {
	if n < 2 {
		return 0
	}
	return int(math.Ceil(math.Log2(float64(n))))
}

// MatchesInRound returns how many matches round r holds for n
// participants in single elimination: ceil(n / 2^r).
func MatchesInRound(n, r int) int {
	div := 1 << uint(r)
	return (n + div - 1) / div
}
