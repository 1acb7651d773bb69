package brackets

import (
	"sort"

	"github.com/Dosada05/pong-arena/models"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() Generator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "SingleElimination"
}

// Generate seeds participants by their assigned seed order and builds
// round 1: pair (2i, 2i+1) for each i, and with an odd count the last
// unpaired participant auto-wins their slot without ever playing. Bye
// winners are advanced immediately, which may lazily create round-2
// placeholders.
func (g *SingleEliminationGenerator) Generate(tournamentID string, participants []*models.Participant) (*Bracket, error) {
	n := len(participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	seeded := make([]*models.Participant, n)
	copy(seeded, participants)
	sort.Slice(seeded, func(i, j int) bool { return seeded[i].Seed < seeded[j].Seed })

	b := NewBracket(tournamentID, n, nil)

	var byes []*models.TournamentMatch
	for i := 0; i*2 < n; i++ {
		m := &models.TournamentMatch{
			ID:           b.newID(),
			TournamentID: tournamentID,
			Round:        1,
			OrderInRound: i + 1,
			Status:       models.MatchPending,
			CreatedAt:    b.now(),
			UpdatedAt:    b.now(),
		}
		p1 := seeded[i*2].UserID
		m.Player1ID = &p1

		if i*2+1 < n {
			p2 := seeded[i*2+1].UserID
			m.Player2ID = &p2
		} else {
			// Odd remainder: completed on the spot, no session runs.
			m.Status = models.MatchCompleted
			m.WinnerID = &p1
			byes = append(byes, m)
		}

		b.matches[m.ID] = m
		b.changed[m.ID] = m
	}

	for _, bye := range byes {
		if _, err := b.advance(bye, *bye.WinnerID); err != nil {
			return nil, err
		}
	}

	return b, nil
}
