package scape

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

var _ Environment = (*SeekArena)(nil)

// SeekConfig shapes the seek arena.
type SeekConfig struct {
	Width        float64
	Height       float64
	Speed        float64
	TurnRate     float64
	FoodInterval time.Duration
}

// Body is one agent in the arena. Heading is in radians, 0 points along +x.
type Body struct {
	X       float64
	Y       float64
	Heading float64
}

// SeekArena is a headless food-chasing scene. Every agent senses the signed
// angle between its heading and the food, steers with its single output and
// earns fitness for staying close to the food. The food jumps to a random
// point every FoodInterval.
type SeekArena struct {
	cfg SeekConfig
	rng *rand.Rand

	foodX     float64
	foodY     float64
	foodTimer time.Duration
	bodies    []Body
}

func NewSeekArena(cfg SeekConfig, rng *rand.Rand) (*SeekArena, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("arena size must be > 0")
	}
	if cfg.Speed < 0 || cfg.TurnRate < 0 {
		return nil, fmt.Errorf("speed and turn rate must be >= 0")
	}
	if cfg.FoodInterval <= 0 {
		return nil, fmt.Errorf("food interval must be > 0")
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	a := &SeekArena{cfg: cfg, rng: rng}
	a.relocateFood()
	return a, nil
}

func (*SeekArena) Name() string {
	return "seek"
}

func (*SeekArena) InputSize() int {
	return 1
}

func (*SeekArena) OutputSize() int {
	return 1
}

// Reset places agents bodies at the arena centre facing +x.
func (a *SeekArena) Reset(agents int) {
	a.bodies = make([]Body, agents)
	for i := range a.bodies {
		a.bodies[i] = Body{X: a.cfg.Width / 2, Y: a.cfg.Height / 2}
	}
}

func (a *SeekArena) Body(agent int) (Body, error) {
	if agent < 0 || agent >= len(a.bodies) {
		return Body{}, fmt.Errorf("agent %d not in arena of %d bodies", agent, len(a.bodies))
	}
	return a.bodies[agent], nil
}

func (a *SeekArena) Food() (float64, float64) {
	return a.foodX, a.foodY
}

// SetFood moves the food, clamped to the arena, and restarts its timer.
func (a *SeekArena) SetFood(x, y float64) {
	a.foodX = clamp(x, 0, a.cfg.Width)
	a.foodY = clamp(y, 0, a.cfg.Height)
	a.foodTimer = 0
}

// Sense returns the angle from the agent's heading to the food, scaled to [-1, 1].
func (a *SeekArena) Sense(agent int) ([]float64, error) {
	body, err := a.Body(agent)
	if err != nil {
		return nil, err
	}
	bearing := math.Atan2(a.foodY-body.Y, a.foodX-body.X)
	return []float64{wrapAngle(bearing-body.Heading) / math.Pi}, nil
}

func (a *SeekArena) Step(agent int, output []float64, dt time.Duration) (float64, error) {
	if agent < 0 || agent >= len(a.bodies) {
		return 0, fmt.Errorf("agent %d not in arena of %d bodies", agent, len(a.bodies))
	}
	if len(output) == 0 {
		return 0, fmt.Errorf("seek requires one output, got none")
	}
	secs := dt.Seconds()
	body := &a.bodies[agent]

	body.Heading = wrapAngle(body.Heading + clamp(output[0], -1, 1)*a.cfg.TurnRate*secs)
	body.X = clamp(body.X+math.Cos(body.Heading)*a.cfg.Speed*secs, 0, a.cfg.Width)
	body.Y = clamp(body.Y+math.Sin(body.Heading)*a.cfg.Speed*secs, 0, a.cfg.Height)

	return a.closeness(*body) * secs, nil
}

func (a *SeekArena) Advance(dt time.Duration) {
	a.foodTimer += dt
	if a.foodTimer >= a.cfg.FoodInterval {
		a.relocateFood()
	}
}

// closeness is 1 on the food and 0 at the arena diagonal.
func (a *SeekArena) closeness(body Body) float64 {
	diag := math.Hypot(a.cfg.Width, a.cfg.Height)
	dist := math.Hypot(a.foodX-body.X, a.foodY-body.Y)
	return 1 - dist/diag
}

func (a *SeekArena) relocateFood() {
	a.foodX = a.rng.Float64() * a.cfg.Width
	a.foodY = a.rng.Float64() * a.cfg.Height
	a.foodTimer = 0
}

func wrapAngle(theta float64) float64 {
	theta = math.Mod(theta+math.Pi, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta - math.Pi
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
