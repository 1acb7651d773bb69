package game

import (
	"math"
	"math/rand"
)

// Court geometry and simulation constants. The court is a fixed-size
// rectangle; clients scale it to their own viewport.
const (
	CourtWidth  = 800.0
	CourtHeight = 600.0

	BallRadius = 8.0
	BallSpeed  = 320.0

	PaddleHeight = 100.0
	PaddleSpeed  = 400.0
	PaddleDepth  = 12.0
	// Distance from the goal line to the paddle contact plane.
	PaddlePlaneX = 24.0

	MaxScore = 5

	// Reflection off a paddle maps the impact offset linearly into
	// [-MaxBounceAngle, +MaxBounceAngle].
	MaxBounceAngle = math.Pi / 3
	// Serve launch angle is sampled uniformly in [-MaxServeAngle, +MaxServeAngle].
	MaxServeAngle = math.Pi / 6
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Ball struct {
	Position Vec2    `json:"position"`
	Velocity Vec2    `json:"velocity"`
	Radius   float64 `json:"radius"`
}

// Paddle tracks its vertical position as a normalized offset in [0,1]
// over the paddle's travel range. Height and Speed are fixed per match.
type Paddle struct {
	Offset float64 `json:"offset"`
	Height float64 `json:"height"`
	Speed  float64 `json:"speed"`
}

func NewPaddle() Paddle {
	return Paddle{Offset: 0.5, Height: PaddleHeight, Speed: PaddleSpeed}
}

// CenterY converts the normalized offset into the paddle center's court
// coordinate. Offset 0 pins the paddle to the top wall, 1 to the bottom.
func (p Paddle) CenterY() float64 {
	return p.Height/2 + p.Offset*(CourtHeight-p.Height)
}

// MoveBall advances the ball linearly by dt seconds.
func MoveBall(b *Ball, dt float64) {
	b.Position.X += b.Velocity.X * dt
	b.Position.Y += b.Velocity.Y * dt
}

// WallCollision mirrors the vertical velocity component when the ball's
// edge crosses the top or bottom wall. The horizontal component is never
// touched and no energy is lost.
func WallCollision(b *Ball) bool {
	if b.Position.Y-b.Radius < 0 && b.Velocity.Y < 0 {
		b.Velocity.Y = -b.Velocity.Y
		return true
	}
	if b.Position.Y+b.Radius > CourtHeight && b.Velocity.Y > 0 {
		b.Velocity.Y = -b.Velocity.Y
		return true
	}
	return false
}

// PaddleCollision reports whether the ball has just hit the given side's
// paddle: it must be moving toward that side's goal, have crossed the
// paddle contact plane, and overlap the paddle's vertical extent. A ball
// moving away from a paddle never hits it, which prevents a double bounce
// while the ball is still inside the paddle plane.
func PaddleCollision(b *Ball, p *Paddle, side Side) bool {
	switch side {
	case SideLeft:
		if b.Velocity.X >= 0 {
			return false
		}
		if b.Position.X-b.Radius > PaddlePlaneX+PaddleDepth {
			return false
		}
	case SideRight:
		if b.Velocity.X <= 0 {
			return false
		}
		if b.Position.X+b.Radius < CourtWidth-PaddlePlaneX-PaddleDepth {
			return false
		}
	default:
		return false
	}

	center := p.CenterY()
	return b.Position.Y+b.Radius >= center-p.Height/2 &&
		b.Position.Y-b.Radius <= center+p.Height/2
}

// Reflect bounces the ball off a paddle. The impact offset from the paddle
// center (normalized to half-height) maps linearly to an exit angle in
// [-60°, +60°]; speed magnitude is preserved and horizontal direction flips.
func Reflect(b *Ball, p *Paddle) {
	rel := (b.Position.Y - p.CenterY()) / (p.Height / 2)
	if rel < -1 {
		rel = -1
	} else if rel > 1 {
		rel = 1
	}

	angle := rel * MaxBounceAngle
	speed := math.Hypot(b.Velocity.X, b.Velocity.Y)

	if b.Velocity.X > 0 {
		b.Velocity.X = -speed * math.Cos(angle)
	} else {
		b.Velocity.X = speed * math.Cos(angle)
	}
	b.Velocity.Y = speed * math.Sin(angle)
}

// CheckGoal reports which side scored, if any. The ball's center crossing
// the left goal line scores for the right side and vice versa.
func CheckGoal(b *Ball) (Side, bool) {
	if b.Position.X < 0 {
		return SideRight, true
	}
	if b.Position.X > CourtWidth {
		return SideLeft, true
	}
	return "", false
}

// ResetBall places the ball at court center with a fresh serve: full
// BallSpeed, launch angle uniform within ±30° of horizontal, horizontal
// direction chosen at random.
func ResetBall(b *Ball) {
	b.Position = Vec2{X: CourtWidth / 2, Y: CourtHeight / 2}
	b.Radius = BallRadius

	angle := (rand.Float64()*2 - 1) * MaxServeAngle
	dir := 1.0
	if rand.Intn(2) == 0 {
		dir = -1.0
	}
	b.Velocity = Vec2{
		X: dir * BallSpeed * math.Cos(angle),
		Y: BallSpeed * math.Sin(angle),
	}
}
