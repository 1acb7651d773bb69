package game

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestMoveBall(t *testing.T) {
	b := Ball{
		Position: Vec2{X: 390, Y: 300},
		Velocity: Vec2{X: 120, Y: -40},
		Radius:   BallRadius,
	}

	MoveBall(&b, 0.1)

	if !almostEqual(b.Position.X, 402) || !almostEqual(b.Position.Y, 296) {
		t.Errorf("position = (%v, %v), want (402, 296)", b.Position.X, b.Position.Y)
	}
	if !almostEqual(b.Velocity.X, 120) || !almostEqual(b.Velocity.Y, -40) {
		t.Errorf("velocity changed during move: (%v, %v)", b.Velocity.X, b.Velocity.Y)
	}
}

func TestWallCollision(t *testing.T) {
	tests := []struct {
		name     string
		ball     Ball
		bounced  bool
		wantVY   float64
	}{
		{
			name:    "top wall moving up",
			ball:    Ball{Position: Vec2{X: 400, Y: 5}, Velocity: Vec2{X: 100, Y: -80}, Radius: 8},
			bounced: true,
			wantVY:  80,
		},
		{
			name:    "bottom wall moving down",
			ball:    Ball{Position: Vec2{X: 400, Y: 595}, Velocity: Vec2{X: 100, Y: 80}, Radius: 8},
			bounced: true,
			wantVY:  -80,
		},
		{
			name:    "mid court",
			ball:    Ball{Position: Vec2{X: 400, Y: 300}, Velocity: Vec2{X: 100, Y: 80}, Radius: 8},
			bounced: false,
			wantVY:  80,
		},
		{
			name:    "near top wall but moving away",
			ball:    Ball{Position: Vec2{X: 400, Y: 5}, Velocity: Vec2{X: 100, Y: 80}, Radius: 8},
			bounced: false,
			wantVY:  80,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vx := tc.ball.Velocity.X
			got := WallCollision(&tc.ball)
			if got != tc.bounced {
				t.Errorf("WallCollision() = %v, want %v", got, tc.bounced)
			}
			if !almostEqual(tc.ball.Velocity.Y, tc.wantVY) {
				t.Errorf("vy = %v, want %v", tc.ball.Velocity.Y, tc.wantVY)
			}
			if !almostEqual(tc.ball.Velocity.X, vx) {
				t.Errorf("vx changed on wall bounce: %v", tc.ball.Velocity.X)
			}
		})
	}
}

func TestPaddleCollision(t *testing.T) {
	paddle := NewPaddle() // centered at y=300

	tests := []struct {
		name string
		ball Ball
		side Side
		want bool
	}{
		{
			name: "left paddle hit",
			ball: Ball{Position: Vec2{X: 30, Y: 300}, Velocity: Vec2{X: -200, Y: 0}, Radius: 8},
			side: SideLeft,
			want: true,
		},
		{
			name: "left paddle but ball moving away",
			ball: Ball{Position: Vec2{X: 30, Y: 300}, Velocity: Vec2{X: 200, Y: 0}, Radius: 8},
			side: SideLeft,
			want: false,
		},
		{
			name: "left paddle vertical miss",
			ball: Ball{Position: Vec2{X: 30, Y: 100}, Velocity: Vec2{X: -200, Y: 0}, Radius: 8},
			side: SideLeft,
			want: false,
		},
		{
			name: "ball far from plane",
			ball: Ball{Position: Vec2{X: 400, Y: 300}, Velocity: Vec2{X: -200, Y: 0}, Radius: 8},
			side: SideLeft,
			want: false,
		},
		{
			name: "right paddle hit",
			ball: Ball{Position: Vec2{X: CourtWidth - 30, Y: 300}, Velocity: Vec2{X: 200, Y: 0}, Radius: 8},
			side: SideRight,
			want: true,
		},
		{
			name: "right paddle but ball moving away",
			ball: Ball{Position: Vec2{X: CourtWidth - 30, Y: 300}, Velocity: Vec2{X: -200, Y: 0}, Radius: 8},
			side: SideRight,
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := PaddleCollision(&tc.ball, &paddle, tc.side); got != tc.want {
				t.Errorf("PaddleCollision() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReflectCenterHitIsHorizontal(t *testing.T) {
	paddle := NewPaddle()
	b := Ball{
		Position: Vec2{X: 30, Y: paddle.CenterY()},
		Velocity: Vec2{X: -200, Y: 150},
		Radius:   8,
	}
	speedBefore := math.Hypot(b.Velocity.X, b.Velocity.Y)

	Reflect(&b, &paddle)

	if b.Velocity.X <= 0 {
		t.Errorf("vx = %v, want positive after left paddle bounce", b.Velocity.X)
	}
	if !almostEqual(b.Velocity.Y, 0) {
		t.Errorf("center hit vy = %v, want 0", b.Velocity.Y)
	}
	speedAfter := math.Hypot(b.Velocity.X, b.Velocity.Y)
	if !almostEqual(speedBefore, speedAfter) {
		t.Errorf("speed = %v, want %v preserved", speedAfter, speedBefore)
	}
}

func TestReflectEdgeHitMaxAngle(t *testing.T) {
	paddle := NewPaddle()
	// Impact well past the paddle's lower edge clamps to +1.
	b := Ball{
		Position: Vec2{X: 30, Y: paddle.CenterY() + paddle.Height},
		Velocity: Vec2{X: -320, Y: 0},
		Radius:   8,
	}

	Reflect(&b, &paddle)

	gotAngle := math.Atan2(b.Velocity.Y, b.Velocity.X)
	if !almostEqual(gotAngle, MaxBounceAngle) {
		t.Errorf("exit angle = %v, want %v", gotAngle, MaxBounceAngle)
	}
}

func TestReflectSpeedPreserved(t *testing.T) {
	paddle := NewPaddle()
	for _, offset := range []float64{-45, -20, 0, 20, 45} {
		b := Ball{
			Position: Vec2{X: CourtWidth - 30, Y: paddle.CenterY() + offset},
			Velocity: Vec2{X: 250, Y: -130},
			Radius:   8,
		}
		speedBefore := math.Hypot(b.Velocity.X, b.Velocity.Y)
		Reflect(&b, &paddle)
		speedAfter := math.Hypot(b.Velocity.X, b.Velocity.Y)
		if !almostEqual(speedBefore, speedAfter) {
			t.Errorf("offset %v: speed %v -> %v, want preserved", offset, speedBefore, speedAfter)
		}
		if b.Velocity.X >= 0 {
			t.Errorf("offset %v: vx = %v, want flipped negative", offset, b.Velocity.X)
		}
	}
}

func TestCheckGoal(t *testing.T) {
	tests := []struct {
		name   string
		x      float64
		scored bool
		scorer Side
	}{
		{"past left goal line", -1, true, SideRight},
		{"past right goal line", CourtWidth + 1, true, SideLeft},
		{"mid court", CourtWidth / 2, false, ""},
		{"on left goal line", 0, false, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := Ball{Position: Vec2{X: tc.x, Y: 300}}
			scorer, scored := CheckGoal(&b)
			if scored != tc.scored || scorer != tc.scorer {
				t.Errorf("CheckGoal() = (%q, %v), want (%q, %v)", scorer, scored, tc.scorer, tc.scored)
			}
		})
	}
}

func TestResetBall(t *testing.T) {
	for i := 0; i < 100; i++ {
		var b Ball
		ResetBall(&b)

		if b.Position.X != CourtWidth/2 || b.Position.Y != CourtHeight/2 {
			t.Fatalf("position = (%v, %v), want court center", b.Position.X, b.Position.Y)
		}
		speed := math.Hypot(b.Velocity.X, b.Velocity.Y)
		if !almostEqual(speed, BallSpeed) {
			t.Fatalf("serve speed = %v, want %v", speed, BallSpeed)
		}
		// Launch angle stays within ±30° of horizontal.
		if math.Abs(b.Velocity.Y) > BallSpeed*math.Sin(MaxServeAngle)+floatTolerance {
			t.Fatalf("vy = %v exceeds a %v serve cone", b.Velocity.Y, MaxServeAngle)
		}
	}
}

func TestPaddleCenterY(t *testing.T) {
	tests := []struct {
		offset float64
		want   float64
	}{
		{0, PaddleHeight / 2},
		{0.5, CourtHeight / 2},
		{1, CourtHeight - PaddleHeight/2},
	}
	for _, tc := range tests {
		p := Paddle{Offset: tc.offset, Height: PaddleHeight, Speed: PaddleSpeed}
		if got := p.CenterY(); !almostEqual(got, tc.want) {
			t.Errorf("CenterY(offset=%v) = %v, want %v", tc.offset, got, tc.want)
		}
	}
}
