// internal/game/engine.go
//
// Transition rules for the star-catch challenge.
// Responsibilities:
//   - Build the initial state for a fresh challenge (Start).
//   - Apply one event to a state and return the next state (Apply).
//   - Compute the level-dependent relocation interval.
//   - Render the short text surface shown to players (Describe).
//
// State transitions (Apply):
//   - Tick:     playing only; countdown--, an exhausted countdown counts as a miss.
//   - Relocate: playing only; the configured Motion moves the target.
//   - Hit:      playing only; level_complete, or won on the last level.
//   - Miss:     playing only; lives--, game_over at zero, else the round restarts.
//   - Advance:  level_complete only; next level with fresh lives and countdown.
//   - Restart:  game_over only; back to level 1.
//
// Apply is a pure function of its inputs apart from drawing from rng.
// Events that do not apply in the current phase leave the state untouched
// and report applied == false.

package game

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	defaultMaxLevel      = 5
	defaultMaxLives      = 3
	defaultRoundSeconds  = 10
	defaultBaseInterval  = 1200 * time.Millisecond
	defaultBoostInterval = 300 * time.Millisecond
	defaultBoostWindow   = time.Second
	defaultWinDelay      = 1500 * time.Millisecond
	defaultFieldSize     = 90
	defaultHitRadius     = 5

	// minSpeedFactor caps how much faster than level 1 the target may move.
	minSpeedFactor = 0.4
	// speedStep is the per-level reduction of the relocation interval.
	speedStep = 0.15
)

// DefaultConfig returns the standard five-level, three-life, ten-second setup
// with random-jump motion.
func DefaultConfig() Config {
	return Config{
		MaxLevel:      defaultMaxLevel,
		MaxLives:      defaultMaxLives,
		RoundSeconds:  defaultRoundSeconds,
		BaseInterval:  defaultBaseInterval,
		BoostInterval: defaultBoostInterval,
		BoostWindow:   defaultBoostWindow,
		WinDelay:      defaultWinDelay,
		HitRadius:     defaultHitRadius,
		Field:         Field{Width: defaultFieldSize, Height: defaultFieldSize},
		Motion:        Jump{},
	}
}

// normalized fills unset fields from DefaultConfig.
func (c Config) normalized() Config {
	d := DefaultConfig()
	if c.MaxLevel <= 0 {
		c.MaxLevel = d.MaxLevel
	}
	if c.MaxLives <= 0 {
		c.MaxLives = d.MaxLives
	}
	if c.RoundSeconds <= 0 {
		c.RoundSeconds = d.RoundSeconds
	}
	if c.BaseInterval <= 0 {
		c.BaseInterval = d.BaseInterval
	}
	if c.BoostInterval <= 0 {
		c.BoostInterval = d.BoostInterval
	}
	if c.BoostWindow < 0 {
		c.BoostWindow = 0
	}
	if c.WinDelay < 0 {
		c.WinDelay = 0
	}
	if c.HitRadius <= 0 {
		c.HitRadius = d.HitRadius
	}
	if c.Field.Width <= 0 || c.Field.Height <= 0 {
		c.Field = d.Field
	}
	if c.Motion == nil {
		c.Motion = d.Motion
	}
	return c
}

// Caught reports whether a selection at p lands on a target at target.
func Caught(cfg Config, target, p Point) bool {
	r := cfg.normalized().HitRadius
	return math.Abs(p.X-target.X) <= r && math.Abs(p.Y-target.Y) <= r
}

// Start returns the initial state: playing at level 1 with full lives and a
// full countdown, target placed by the configured motion.
func Start(cfg Config, rng *rand.Rand) State {
	cfg = cfg.normalized()
	return newRound(cfg, 1, 0, rng)
}

// newRound builds a fresh playing state for level, carrying the miss total.
func newRound(cfg Config, level, misses int, rng *rand.Rand) State {
	pos, vel := cfg.Motion.Place(cfg.Field, level, rng)
	return State{
		Level:    level,
		Lives:    cfg.MaxLives,
		Seconds:  cfg.RoundSeconds,
		Target:   pos,
		Velocity: vel,
		Phase:    PhasePlaying,
		Misses:   misses,
	}
}

// Apply returns the state that follows s after ev.
func Apply(cfg Config, s State, ev Event, rng *rand.Rand) (State, bool) {
	cfg = cfg.normalized()
	switch ev {
	case EventTick:
		if s.Phase != PhasePlaying {
			return s, false
		}
		s.Seconds--
		if s.Seconds <= 0 {
			s.Seconds = 0
			return miss(cfg, s), true
		}
		return s, true

	case EventRelocate:
		if s.Phase != PhasePlaying {
			return s, false
		}
		s.Target, s.Velocity = cfg.Motion.Step(cfg.Field, s.Level, s.Target, s.Velocity, rng)
		return s, true

	case EventHit:
		if s.Phase != PhasePlaying {
			return s, false
		}
		if s.Level >= cfg.MaxLevel {
			s.Phase = PhaseWon
		} else {
			s.Phase = PhaseLevelComplete
		}
		return s, true

	case EventMiss:
		if s.Phase != PhasePlaying {
			return s, false
		}
		return miss(cfg, s), true

	case EventAdvance:
		if s.Phase != PhaseLevelComplete {
			return s, false
		}
		return newRound(cfg, s.Level+1, s.Misses, rng), true

	case EventRestart:
		if s.Phase != PhaseGameOver {
			return s, false
		}
		return newRound(cfg, 1, s.Misses, rng), true
	}
	return s, false
}

// miss costs one life. The last life ends the game; otherwise the round
// countdown starts over.
func miss(cfg Config, s State) State {
	s.Misses++
	s.Lives--
	if s.Lives <= 0 {
		s.Lives = 0
		s.Phase = PhaseGameOver
		return s
	}
	s.Seconds = cfg.RoundSeconds
	return s
}

// RelocateInterval is how often the target moves at level:
// round(base * max(0.4, 1 - (level-1)*0.15)).
func RelocateInterval(cfg Config, level int) time.Duration {
	cfg = cfg.normalized()
	if level < 1 {
		level = 1
	}
	factor := max(minSpeedFactor, 1-float64(level-1)*speedStep)
	ms := math.Round(float64(cfg.BaseInterval.Milliseconds()) * factor)
	return time.Duration(ms) * time.Millisecond
}

// Banner is the text a player sees for a state.
type Banner struct {
	Level     string `json:"level"`     // "2/5"
	Countdown string `json:"countdown"` // "7s"
	Lives     string `json:"lives"`     // "♥♥♡"
	Message   string `json:"message,omitempty"`
}

// Describe renders the player-facing text for s.
func Describe(cfg Config, s State) Banner {
	cfg = cfg.normalized()
	lives := min(max(s.Lives, 0), cfg.MaxLives)
	b := Banner{
		Level:     fmt.Sprintf("%d/%d", s.Level, cfg.MaxLevel),
		Countdown: fmt.Sprintf("%ds", s.Seconds),
		Lives:     strings.Repeat("♥", lives) + strings.Repeat("♡", cfg.MaxLives-lives),
	}
	switch s.Phase {
	case PhaseLevelComplete:
		b.Message = fmt.Sprintf("Level %d complete! Ready for level %d?", s.Level, s.Level+1)
	case PhaseGameOver:
		b.Message = "Game over! You ran out of lives."
	case PhaseWon:
		b.Message = "You caught the star! Decoding your message..."
	}
	return b
}
