package game

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// Sessions idle past this long are reaped by the sweep.
	SessionIdleTimeout = 60 * time.Second
)

var (
	ErrMatchExists   = errors.New("match id already exists")
	ErrMatchNotFound = errors.New("match not found")
	ErrPlayerBusy    = errors.New("player already has an active session")
)

// Registry is the process-wide table of live sessions. One instance is
// constructed at startup and injected wherever sessions are opened; the
// invariant is that a player maps to at most one session that is not
// finished.
type Registry struct {
	mu            sync.RWMutex
	sessions      map[string]*MatchSession
	playerToMatch map[string]string

	broadcaster Broadcaster
	onSettle    SettleFunc
	logger      *slog.Logger
}

func NewRegistry(broadcaster Broadcaster, onSettle SettleFunc, logger *slog.Logger) *Registry {
	return &Registry{
		sessions:      make(map[string]*MatchSession),
		playerToMatch: make(map[string]string),
		broadcaster:   broadcaster,
		onSettle:      onSettle,
		logger:        logger,
	}
}

// SetSettleFunc replaces the settlement consumer. Intended for wiring at
// startup, before any session is created.
func (r *Registry) SetSettleFunc(onSettle SettleFunc) {
	r.onSettle = onSettle
}

// CreateSession opens a new session. With an empty id a random one is
// generated; a caller-supplied id must not collide.
func (r *Registry) CreateSession(mode Mode, id string) (*MatchSession, error) {
	if id == "" {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return nil, ErrMatchExists
	}
	session := NewMatchSession(id, mode, r.broadcaster, r.onSettle, r.logger)
	r.sessions[id] = session

	if r.logger != nil {
		r.logger.Info("session created", slog.String("match_id", id), slog.String("mode", string(mode)))
	}
	return session, nil
}

// Get returns the session for a match id.
func (r *Registry) Get(matchID string) (*MatchSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[matchID]
	return session, ok
}

// SessionForPlayer returns the session a player is currently mapped to.
func (r *Registry) SessionForPlayer(playerID string) (*MatchSession, bool) {
	r.mu.RLock()
	matchID, ok := r.playerToMatch[playerID]
	session := r.sessions[matchID]
	r.mu.RUnlock()
	if !ok || session == nil {
		return nil, false
	}
	return session, true
}

// AddPlayer seats a player in a session while holding the registry lock,
// so two concurrent joins by the same player cannot both succeed. A stale
// mapping to a finished or missing session is cleared and the add
// proceeds; a mapping to a live session rejects the join.
func (r *Registry) AddPlayer(matchID string, slot PlayerSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[matchID]
	if !ok {
		return ErrMatchNotFound
	}

	if prevID, mapped := r.playerToMatch[slot.PlayerID]; mapped && prevID != matchID {
		prev, alive := r.sessions[prevID]
		if alive && prev.Status() != SessionFinished {
			return ErrPlayerBusy
		}
		// Lazy cleanup of the stale mapping.
		delete(r.playerToMatch, slot.PlayerID)
	}

	if err := session.AddPlayer(slot); err != nil {
		return err
	}
	r.playerToMatch[slot.PlayerID] = matchID
	return nil
}

// RemoveSession stops a session and purges every player mapping that
// pointed at it.
func (r *Registry) RemoveSession(matchID string) {
	r.mu.Lock()
	session, ok := r.sessions[matchID]
	if ok {
		delete(r.sessions, matchID)
		for playerID, id := range r.playerToMatch {
			if id == matchID {
				delete(r.playerToMatch, playerID)
			}
		}
	}
	r.mu.Unlock()

	if ok {
		session.Stop()
		if r.logger != nil {
			r.logger.Info("session removed", slog.String("match_id", matchID))
		}
	}
}

// ScheduleRemoval removes a finished session after the grace period so
// late-arriving clients can still render the result.
func (r *Registry) ScheduleRemoval(matchID string, after time.Duration) {
	time.AfterFunc(after, func() {
		r.RemoveSession(matchID)
	})
}

// Sweep reaps sessions that have been idle past the timeout and finished
// sessions past their grace period. Safety net against abandoned matches
// leaking tickers.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.RLock()
	var stale []string
	for id, session := range r.sessions {
		switch session.Status() {
		case SessionFinished:
			if finishedAt := session.FinishedAt(); !finishedAt.IsZero() && now.Sub(finishedAt) > FinishedGracePeriod {
				stale = append(stale, id)
			}
		default:
			if now.Sub(session.IdleSince()) > SessionIdleTimeout {
				stale = append(stale, id)
			}
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		r.RemoveSession(id)
	}
	if len(stale) > 0 && r.logger != nil {
		r.logger.Info("session sweep", slog.Int("removed", len(stale)))
	}
	return len(stale)
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Drain stops every session. Called once at shutdown.
func (r *Registry) Drain() {
	r.mu.Lock()
	sessions := make([]*MatchSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*MatchSession)
	r.playerToMatch = make(map[string]string)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Stop()
	}
}
