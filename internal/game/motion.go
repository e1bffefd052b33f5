// internal/game/motion.go
//
// Target motion strategies.
//   - Jump:   every relocation samples a uniform position in the field.
//   - Bounce: the target drifts by its velocity and reflects off the edges;
//             speed grows with level.

package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// ErrUnknownMotion is returned by MotionByName for unrecognised names.
var ErrUnknownMotion = errors.New("unknown motion")

// Motion decides where the target goes.
type Motion interface {
	// Name is the config/API identifier ("jump", "bounce").
	Name() string
	// Place positions the target at the start of a level and picks its velocity.
	Place(f Field, level int, rng *rand.Rand) (pos, vel Point)
	// Step moves the target once.
	Step(f Field, level int, pos, vel Point, rng *rand.Rand) (Point, Point)
}

// MotionByName resolves a motion identifier. The empty name means Jump.
func MotionByName(name string) (Motion, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "jump", "random":
		return Jump{}, nil
	case "bounce", "bouncing":
		return Bounce{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMotion, name)
}

// Jump teleports the target to a random position on every relocation.
type Jump struct{}

func (Jump) Name() string { return "jump" }

func (Jump) Place(f Field, _ int, rng *rand.Rand) (Point, Point) {
	return randomPoint(f, rng), Point{}
}

func (Jump) Step(f Field, _ int, _, vel Point, rng *rand.Rand) (Point, Point) {
	return randomPoint(f, rng), vel
}

// Bounce moves the target in a straight line and reflects it at the field
// edges. Per-axis speed is Speed * (1 + (level-1) * Growth).
type Bounce struct {
	Speed  float64 // field units per relocation at level 1 (default 4)
	Growth float64 // fractional speed-up per level (default 0.35)
}

func (Bounce) Name() string { return "bounce" }

func (b Bounce) speed(level int) float64 {
	s, g := b.Speed, b.Growth
	if s <= 0 {
		s = 4
	}
	if g <= 0 {
		g = 0.35
	}
	if level < 1 {
		level = 1
	}
	return s * (1 + float64(level-1)*g)
}

func (b Bounce) Place(f Field, level int, rng *rand.Rand) (Point, Point) {
	v := b.speed(level)
	return randomPoint(f, rng), Point{X: v * randomSign(rng), Y: v * randomSign(rng)}
}

func (Bounce) Step(f Field, _ int, pos, vel Point, _ *rand.Rand) (Point, Point) {
	pos.X, vel.X = reflect(pos.X, vel.X, f.Width)
	pos.Y, vel.Y = reflect(pos.Y, vel.Y, f.Height)
	return pos, vel
}

// reflect advances p by v inside [0,limit], mirroring off whichever edge it
// crosses and flipping the sign of v.
func reflect(p, v, limit float64) (float64, float64) {
	p += v
	switch {
	case p < 0:
		p, v = -p, -v
	case p > limit:
		p, v = 2*limit-p, -v
	}
	return min(max(p, 0), limit), v
}

func randomPoint(f Field, rng *rand.Rand) Point {
	return Point{X: float(rng) * f.Width, Y: float(rng) * f.Height}
}

func randomSign(rng *rand.Rand) float64 {
	if float(rng) < 0.5 {
		return -1
	}
	return 1
}

// float draws from rng, or from the shared source when rng is nil.
func float(rng *rand.Rand) float64 {
	if rng == nil {
		return rand.Float64()
	}
	return rng.Float64()
}
