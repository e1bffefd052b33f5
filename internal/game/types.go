// internal/game/types.go
//
// Core type definitions for the star-catch challenge.
// Defines:
//   - Phase: where a challenge is in its lifecycle.
//   - Event: inputs that drive transitions (clock ticks and player actions).
//   - Point/Field: target coordinates inside the bounded play-field.
//   - State: the full mutable state of one challenge.
//   - Config: tuning knobs (levels, lives, timings, motion).

package game

import "time"

// Phase is the coarse state of a challenge.
type Phase string

const (
	PhasePlaying       Phase = "playing"
	PhaseLevelComplete Phase = "level_complete"
	PhaseGameOver      Phase = "game_over"
	PhaseWon           Phase = "won"
)

// Event is an input to the state machine.
type Event int

const (
	EventTick     Event = iota // one second of the round clock elapsed
	EventRelocate              // the target moves
	EventHit                   // player selected the target
	EventMiss                  // player selected the background
	EventAdvance               // player acknowledged LevelComplete
	EventRestart               // player acknowledged GameOver
)

var eventNames = [...]string{"tick", "relocate", "hit", "miss", "advance", "restart"}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return "unknown"
}

// Point is a position (or, for velocities, a per-axis delta) in field units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Field bounds the play area: targets live in [0,Width] x [0,Height].
type Field struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside the field (edges included).
func (f Field) Contains(p Point) bool {
	return p.X >= 0 && p.X <= f.Width && p.Y >= 0 && p.Y <= f.Height
}

// State holds everything that changes while a challenge runs.
type State struct {
	Level    int   `json:"level"`
	Lives    int   `json:"livesRemaining"`
	Seconds  int   `json:"secondsRemaining"`
	Target   Point `json:"target"`
	Velocity Point `json:"velocity"`
	Phase    Phase `json:"phase"`
	Misses   int   `json:"misses"` // total misses across all levels and restarts
}

// Config tunes a challenge. Zero fields fall back to DefaultConfig values.
type Config struct {
	MaxLevel      int           // number of levels to clear (5)
	MaxLives      int           // lives per level (3)
	RoundSeconds  int           // countdown length per round (10)
	BaseInterval  time.Duration // relocation interval at level 1
	BoostInterval time.Duration // relocation interval during the speed boost
	BoostWindow   time.Duration // how long the speed boost lasts after a level starts
	WinDelay      time.Duration // celebratory pause before the win is signaled
	HitRadius     float64       // per-axis distance from the target a selection may land and still catch it
	Field         Field
	Motion        Motion
}
