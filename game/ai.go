package game

import (
	"time"
)

// DecisionSource produces an Intent on behalf of a non-human player. It is
// invoked once per simulation tick with the current snapshot and must not
// block: the tick loop budgets well under one tick for all sources.
type DecisionSource interface {
	Decide(snap *Snapshot, side Side) Intent
}

// Dead-zone around the target y, in court units. Without it the paddle
// oscillates around the ball every tick.
const aiDeadZone = 12.0

func intentToward(paddle Paddle, targetY float64) Intent {
	diff := targetY - paddle.CenterY()
	switch {
	case diff < -aiDeadZone:
		return Intent{Up: true}
	case diff > aiDeadZone:
		return Intent{Down: true}
	default:
		return Intent{}
	}
}

// ReactiveStrategy chases the ball's current vertical position. Stateless.
type ReactiveStrategy struct{}

func NewReactiveStrategy() *ReactiveStrategy {
	return &ReactiveStrategy{}
}

func (s *ReactiveStrategy) Decide(snap *Snapshot, side Side) Intent {
	return intentToward(snap.PaddleFor(side), snap.Ball.Position.Y)
}

// PredictiveStrategy samples the ball position once per wall-clock second,
// deliberately slower than the tick rate to emulate human reaction lag,
// and extrapolates a linear trajectory from the two most recent samples to
// the paddle's contact plane. The extrapolated y is folded back into the
// court by mirror reflection to account for wall bounces between samples.
type PredictiveStrategy struct {
	interval time.Duration
	now      func() time.Time

	lastSample   Vec2
	prevSample   Vec2
	sampleCount  int
	lastSampleAt time.Time
}

func NewPredictiveStrategy() *PredictiveStrategy {
	return &PredictiveStrategy{
		interval: time.Second,
		now:      time.Now,
	}
}

func (s *PredictiveStrategy) Decide(snap *Snapshot, side Side) Intent {
	now := s.now()
	if s.sampleCount == 0 || now.Sub(s.lastSampleAt) >= s.interval {
		s.prevSample = s.lastSample
		s.lastSample = snap.Ball.Position
		s.lastSampleAt = now
		s.sampleCount++
	}

	// No prediction from a single sample: hold position until warmed up.
	if s.sampleCount < 2 {
		return Intent{}
	}

	planeX := PaddlePlaneX + PaddleDepth
	if side == SideRight {
		planeX = CourtWidth - PaddlePlaneX - PaddleDepth
	}

	dx := s.lastSample.X - s.prevSample.X
	if dx == 0 {
		return intentToward(snap.PaddleFor(side), s.lastSample.Y)
	}

	slope := (s.lastSample.Y - s.prevSample.Y) / dx
	predicted := s.lastSample.Y + slope*(planeX-s.lastSample.X)
	predicted = foldIntoCourt(predicted)

	return intentToward(snap.PaddleFor(side), predicted)
}

// foldIntoCourt mirrors a y coordinate back into [0, CourtHeight] by
// repeated wall reflection, matching how the ball actually bounces.
func foldIntoCourt(y float64) float64 {
	for y < 0 || y > CourtHeight {
		if y < 0 {
			y = -y
		}
		if y > CourtHeight {
			y = 2*CourtHeight - y
		}
	}
	return y
}
