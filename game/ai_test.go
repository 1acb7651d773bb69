package game

import (
	"testing"
	"time"
)

func snapshotWithBall(x, y float64) *Snapshot {
	return &Snapshot{
		Ball:        Ball{Position: Vec2{X: x, Y: y}, Velocity: Vec2{X: BallSpeed, Y: 0}, Radius: BallRadius},
		LeftPaddle:  NewPaddle(),
		RightPaddle: NewPaddle(),
	}
}

func TestReactiveStrategy(t *testing.T) {
	strategy := NewReactiveStrategy()

	tests := []struct {
		name  string
		ballY float64
		want  Intent
	}{
		{"ball above paddle", 100, Intent{Up: true}},
		{"ball below paddle", 500, Intent{Down: true}},
		{"ball level with paddle", CourtHeight / 2, Intent{}},
		{"ball inside dead zone", CourtHeight/2 + aiDeadZone - 1, Intent{}},
		{"ball just past dead zone", CourtHeight/2 + aiDeadZone + 1, Intent{Down: true}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := strategy.Decide(snapshotWithBall(400, tc.ballY), SideRight)
			if got != tc.want {
				t.Errorf("Decide() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestPredictiveStrategyWarmup(t *testing.T) {
	clock := time.Unix(1000, 0)
	strategy := &PredictiveStrategy{
		interval: time.Second,
		now:      func() time.Time { return clock },
	}

	// First call records the initial sample and must not move the paddle,
	// whatever the ball is doing.
	got := strategy.Decide(snapshotWithBall(400, 50), SideRight)
	if got != (Intent{}) {
		t.Errorf("Decide() during warmup = %+v, want no intent", got)
	}

	// Repeated calls within the sampling interval stay in warmup.
	clock = clock.Add(100 * time.Millisecond)
	got = strategy.Decide(snapshotWithBall(420, 60), SideRight)
	if got != (Intent{}) {
		t.Errorf("Decide() before second sample = %+v, want no intent", got)
	}
}

func TestPredictiveStrategyExtrapolates(t *testing.T) {
	clock := time.Unix(1000, 0)
	strategy := &PredictiveStrategy{
		interval: time.Second,
		now:      func() time.Time { return clock },
	}

	// Ball travelling right and downward: sample (400, 300) then (500, 340).
	strategy.Decide(snapshotWithBall(400, 300), SideRight)
	clock = clock.Add(time.Second)

	// Slope 0.4/unit: predicted y at the right contact plane (x=764) is
	// 340 + 0.4*264 = 445.6, well below the centered paddle.
	got := strategy.Decide(snapshotWithBall(500, 340), SideRight)
	if !got.Down || got.Up {
		t.Errorf("Decide() = %+v, want Down toward the predicted impact", got)
	}
}

func TestPredictiveStrategyFoldsWallBounce(t *testing.T) {
	clock := time.Unix(1000, 0)
	strategy := &PredictiveStrategy{
		interval: time.Second,
		now:      func() time.Time { return clock },
	}

	// Steep upward path: the raw extrapolation leaves the court through the
	// top wall and must be mirrored back in. Samples (600, 200) → (650, 100):
	// slope -2, raw prediction at x=764 is 100 - 2*114 = -128, folded to 128.
	strategy.Decide(snapshotWithBall(600, 200), SideRight)
	clock = clock.Add(time.Second)

	got := strategy.Decide(snapshotWithBall(650, 100), SideRight)
	if !got.Up || got.Down {
		t.Errorf("Decide() = %+v, want Up toward the folded impact point", got)
	}
}

func TestFoldIntoCourt(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{300, 300},
		{0, 0},
		{CourtHeight, CourtHeight},
		{-128, 128},
		{CourtHeight + 40, CourtHeight - 40},
		// Two reflections: -700 → 700 → 500.
		{-700, 500},
	}
	for _, tc := range tests {
		if got := foldIntoCourt(tc.in); got != tc.want {
			t.Errorf("foldIntoCourt(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
