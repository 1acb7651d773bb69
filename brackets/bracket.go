package brackets

import (
	"fmt"
	"time"

	"github.com/Dosada05/pong-arena/models"
	"github.com/google/uuid"
)

// Bracket is the in-memory state machine over a tournament's matches. The
// caller loads it from storage, applies a settlement, and persists
// whatever Changed() reports. All methods are single-goroutine; callers
// serialize access per tournament.
type Bracket struct {
	TournamentID string
	PlayerCount  int

	matches map[string]*models.TournamentMatch
	changed map[string]*models.TournamentMatch

	newID func() string
	now   func() time.Time
}

func NewBracket(tournamentID string, playerCount int, matches []*models.TournamentMatch) *Bracket {
	b := &Bracket{
		TournamentID: tournamentID,
		PlayerCount:  playerCount,
		matches:      make(map[string]*models.TournamentMatch, len(matches)),
		changed:      make(map[string]*models.TournamentMatch),
		newID:        uuid.NewString,
		now:          time.Now,
	}
	for _, m := range matches {
		b.matches[m.ID] = m
	}
	return b
}

// Matches returns every match currently in the bracket.
func (b *Bracket) Matches() []*models.TournamentMatch {
	out := make([]*models.TournamentMatch, 0, len(b.matches))
	for _, m := range b.matches {
		out = append(out, m)
	}
	return out
}

// Changed returns the matches created or mutated since the bracket was
// loaded, for persistence.
func (b *Bracket) Changed() []*models.TournamentMatch {
	out := make([]*models.TournamentMatch, 0, len(b.changed))
	for _, m := range b.changed {
		out = append(out, m)
	}
	return out
}

// Get finds a match by id.
func (b *Bracket) Get(matchID string) (*models.TournamentMatch, bool) {
	m, ok := b.matches[matchID]
	return m, ok
}

func (b *Bracket) find(round, order int) *models.TournamentMatch {
	for _, m := range b.matches {
		if m.Round == round && m.OrderInRound == order {
			return m
		}
	}
	return nil
}

// Outcome describes the bracket-wide effect of one settlement.
type Outcome struct {
	// Completed is true when the whole bracket is done.
	Completed bool
	// WinnerID is the tournament winner, set only when Completed.
	WinnerID int
}

// Settle records a match result and advances the winner. A double
// settlement or a winner who is not one of the match's players is
// rejected; whichever sibling settles first occupies the empty slot it
// finds in the next round.
func (b *Bracket) Settle(matchID string, winnerID, score1, score2 int) (*Outcome, error) {
	m, ok := b.matches[matchID]
	if !ok {
		return nil, ErrMatchNotFound
	}
	if m.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: match %s is %s", ErrMatchAlreadySettled, matchID, m.Status)
	}
	if !m.HasPlayer(winnerID) {
		return nil, fmt.Errorf("%w: user %d in match %s", ErrInvalidWinner, winnerID, matchID)
	}

	m.Status = models.MatchCompleted
	m.WinnerID = &winnerID
	m.Score1 = score1
	m.Score2 = score2
	m.UpdatedAt = b.now()
	b.changed[m.ID] = m

	return b.advance(m, winnerID)
}

// advance carries a winner into the next round, creating that round's
// match on first need, and detects bracket completion.
func (b *Bracket) advance(m *models.TournamentMatch, winnerID int) (*Outcome, error) {
	if m.Round >= Rounds(b.PlayerCount) {
		// Final round settled; the bracket is complete only when no
		// other match remains non-terminal.
		for _, other := range b.matches {
			if other.ID != m.ID && !other.Status.IsTerminal() {
				return &Outcome{}, nil
			}
		}
		return &Outcome{Completed: true, WinnerID: winnerID}, nil
	}

	nextRound := m.Round + 1
	nextOrder := (m.OrderInRound + 1) / 2

	next := b.find(nextRound, nextOrder)
	if next == nil {
		next = &models.TournamentMatch{
			ID:           b.newID(),
			TournamentID: b.TournamentID,
			Round:        nextRound,
			OrderInRound: nextOrder,
			Player1ID:    &winnerID,
			Status:       models.MatchPending,
			CreatedAt:    b.now(),
			UpdatedAt:    b.now(),
		}
		b.matches[next.ID] = next
		b.changed[next.ID] = next
	} else {
		if next.Status.IsTerminal() {
			return nil, fmt.Errorf("next-round slot R%dM%d already settled", nextRound, nextOrder)
		}
		if next.Player1ID == nil {
			next.Player1ID = &winnerID
		} else if next.Player2ID == nil {
			next.Player2ID = &winnerID
		} else {
			return nil, fmt.Errorf("next-round slot R%dM%d already has two players", nextRound, nextOrder)
		}
		next.UpdatedAt = b.now()
		b.changed[next.ID] = next
	}

	// An odd bracket remainder leaves a slot with no second feeder; that
	// match can never get an opponent and auto-completes immediately.
	if b.feederCount(nextRound, nextOrder) < 2 && next.Player2ID == nil {
		next.Status = models.MatchCompleted
		next.WinnerID = next.Player1ID
		next.UpdatedAt = b.now()
		b.changed[next.ID] = next
		return b.advance(next, *next.Player1ID)
	}

	return &Outcome{}, nil
}

// feederCount returns how many previous-round matches feed the given
// slot. Matches k and k+1 of round r always feed match ceil(k/2) of round
// r+1, so the feeders of (r, order) are (r-1, 2*order-1) and (r-1, 2*order).
func (b *Bracket) feederCount(round, order int) int {
	prev := MatchesInRound(b.PlayerCount, round-1)
	count := 0
	if 2*order-1 <= prev {
		count++
	}
	if 2*order <= prev {
		count++
	}
	return count
}
