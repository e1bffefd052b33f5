// internal/game/session.go
//
// Session runs one challenge in real (or simulated) time.
// Responsibilities:
//   - Own the State and feed it through Apply.
//   - Drive the playing phase with two periodic timers (1s countdown and
//     target relocation) plus the one-shot end of the speed boost.
//   - Hold the single-shot celebratory delay between won and the win signal.
//   - Notify the host (OnChange, OnWin, OnClose) and stream snapshots to
//     subscribers.
//
// Timer rules:
//   - All playing-phase timers belong to one activeTimers handle. The handle
//     is released whenever the phase leaves playing, on Close and on Shutdown.
//   - Every callback re-checks under the lock that its handle is still the
//     live one, so a tick that raced a release never touches the state.
//   - The win delay is tracked by a token the same way; Close and Shutdown
//     drop the token so a late callback is ignored.
//   - Hooks run after the lock is released.

package game

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hooks are callbacks from a Session to its host. Any of them may be nil.
type Hooks struct {
	OnChange func(Snapshot) // after every applied event
	OnWin    func(Snapshot) // once, WinDelay after entering won
	OnClose  func(Snapshot) // once, when the player cancels
}

// Snapshot is a read-only copy of a session for callers and the wire.
type Snapshot struct {
	ID string `json:"id"`
	State
	MaxLevel     int       `json:"maxLevel"`
	MaxLives     int       `json:"maxLives"`
	RoundSeconds int       `json:"roundSeconds"`
	Motion       string    `json:"motion"`
	Field        Field     `json:"field"`
	Boosting     bool      `json:"boosting"`
	RevealReady  bool      `json:"revealReady"`
	Closed       bool      `json:"closed"`
	Text         Banner    `json:"text"`
	StartedAt    time.Time `json:"startedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Finished reports whether the session will not change any more.
func (s Snapshot) Finished() bool { return s.RevealReady || s.Closed }

// Option customises NewSession.
type Option func(*Session)

// WithID overrides the generated session ID.
func WithID(id string) Option { return func(s *Session) { s.id = id } }

// WithClock sets the time source (SystemClock by default).
func WithClock(c Clock) Option { return func(s *Session) { s.clock = c } }

// WithRand sets the random source used for target placement.
func WithRand(r *rand.Rand) Option { return func(s *Session) { s.rng = r } }

// WithHooks installs host callbacks.
func WithHooks(h Hooks) Option { return func(s *Session) { s.hooks = h } }

// Session is a running challenge. It is safe for concurrent use.
type Session struct {
	id    string
	input string
	cfg   Config
	clock Clock
	rng   *rand.Rand
	hooks Hooks

	mu        sync.Mutex
	state     State
	timers    *activeTimers
	win       *winToken
	boosting  bool
	signaled  bool // win delay elapsed, OnWin fired
	closed    bool // player cancelled
	stopped   bool // torn down by the host
	startedAt time.Time
	updatedAt time.Time
	subs      map[uint64]chan Snapshot
	nextSub   uint64
}

// activeTimers is the set of timers owned by one playing phase.
type activeTimers struct {
	countdown Timer
	relocate  Timer
	boost     Timer
	released  bool
}

func (t *activeTimers) release() {
	if t == nil || t.released {
		return
	}
	t.released = true
	for _, tm := range []Timer{t.countdown, t.relocate, t.boost} {
		if tm != nil {
			tm.Stop()
		}
	}
}

type winToken struct{ timer Timer }

// NewSession starts a challenge for input. The countdown and relocation
// timers are armed immediately.
func NewSession(input string, cfg Config, opts ...Option) *Session {
	s := &Session{
		input: input,
		cfg:   cfg.normalized(),
		clock: SystemClock(),
		subs:  make(map[uint64]chan Snapshot),
	}
	for _, o := range opts {
		o(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Start(s.cfg, s.rng)
	s.startedAt = s.clock.Now()
	s.updatedAt = s.startedAt
	s.armLocked()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Input returns the message this challenge guards.
func (s *Session) Input() string { return s.input }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// RevealReady reports whether the win has been signaled.
func (s *Session) RevealReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signaled
}

// LastActivity is the time of the last applied event.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Hit, Miss, Advance and Restart apply player actions.
func (s *Session) Hit() (Snapshot, bool)     { return s.Do(EventHit) }
func (s *Session) Miss() (Snapshot, bool)    { return s.Do(EventMiss) }
func (s *Session) Advance() (Snapshot, bool) { return s.Do(EventAdvance) }
func (s *Session) Restart() (Snapshot, bool) { return s.Do(EventRestart) }

// Do applies a player event. Clock events (tick, relocate) belong to the
// session's own timers and are rejected, as is anything after the session
// finished.
func (s *Session) Do(ev Event) (Snapshot, bool) {
	s.mu.Lock()
	if s.finishedLocked() || ev == EventTick || ev == EventRelocate {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false
	}
	n, ok := s.applyLocked(ev)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	n.dispatch(s.hooks)
	return snap, ok
}

// Select classifies a selection at p against the live target and applies
// Hit or Miss. The check and the transition share one lock so a relocation
// cannot land between them. Only valid while playing.
func (s *Session) Select(p Point) (Snapshot, bool) {
	s.mu.Lock()
	if s.finishedLocked() || s.state.Phase != PhasePlaying {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false
	}
	ev := EventMiss
	if Caught(s.cfg, s.state.Target, p) {
		ev = EventHit
	}
	n, ok := s.applyLocked(ev)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	n.dispatch(s.hooks)
	return snap, ok
}

// Close cancels the challenge. It is accepted until the win has been
// signaled and fires OnClose once.
func (s *Session) Close() bool {
	s.mu.Lock()
	if s.finishedLocked() {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	s.releaseLocked()
	snap := s.snapshotLocked()
	s.publishFinalLocked(snap)
	s.closeSubsLocked()
	s.mu.Unlock()

	notice{change: &snap, closed: true}.dispatch(s.hooks)
	return true
}

// Shutdown releases every timer without notifying the host. Used when the
// host discards the session.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && !s.signaled {
		s.stopped = true
	}
	s.releaseLocked()
	s.closeSubsLocked()
}

// Subscribe returns a stream of snapshots starting with the current one.
// The channel is closed once the session finishes or cancel is called.
// Slow readers miss intermediate snapshots instead of blocking the session.
func (s *Session) Subscribe(buf int) (<-chan Snapshot, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Snapshot, buf+1)

	s.mu.Lock()
	defer s.mu.Unlock()
	ch <- s.snapshotLocked()
	if s.finishedLocked() {
		close(ch)
		return ch, func() {}
	}
	s.nextSub++
	id := s.nextSub
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// ----------------------------- internals ------------------------------------

func (s *Session) finishedLocked() bool { return s.signaled || s.closed || s.stopped }

// applyLocked runs ev through Apply and manages the timers around phase changes.
func (s *Session) applyLocked(ev Event) (notice, bool) {
	prev := s.state.Phase
	next, ok := Apply(s.cfg, s.state, ev, s.rng)
	if !ok {
		return notice{}, false
	}
	s.state = next
	s.updatedAt = s.clock.Now()

	switch {
	case prev == PhasePlaying && next.Phase != PhasePlaying:
		s.releaseLocked()
	case prev != PhasePlaying && next.Phase == PhasePlaying:
		s.armLocked()
	case ev == EventMiss:
		// A player miss starts a full second before the next countdown tick.
		s.restartCountdownLocked()
	}
	if next.Phase == PhaseWon {
		s.armWinLocked()
	}

	snap := s.snapshotLocked()
	s.publishLocked(snap)
	return notice{change: &snap}, true
}

// armLocked starts the timers for a new playing phase.
func (s *Session) armLocked() {
	s.releaseLocked()
	at := &activeTimers{}
	s.timers = at
	s.boosting = s.cfg.BoostWindow > 0

	at.countdown = s.clock.AfterFunc(time.Second, func() { s.onCountdown(at) })
	at.relocate = s.clock.AfterFunc(s.relocateIntervalLocked(), func() { s.onRelocate(at) })
	if s.boosting {
		at.boost = s.clock.AfterFunc(s.cfg.BoostWindow, func() { s.onBoostEnd(at) })
	}
}

func (s *Session) releaseLocked() {
	s.timers.release()
	s.timers = nil
	s.boosting = false
	if s.win != nil {
		s.win.timer.Stop()
		s.win = nil
	}
}

func (s *Session) restartCountdownLocked() {
	at := s.timers
	if at == nil {
		return
	}
	if at.countdown != nil {
		at.countdown.Stop()
	}
	at.countdown = s.clock.AfterFunc(time.Second, func() { s.onCountdown(at) })
}

func (s *Session) armWinLocked() {
	tok := &winToken{}
	s.win = tok
	tok.timer = s.clock.AfterFunc(s.cfg.WinDelay, func() { s.onWinDelay(tok) })
}

func (s *Session) relocateIntervalLocked() time.Duration {
	if s.boosting {
		return s.cfg.BoostInterval
	}
	return RelocateInterval(s.cfg, s.state.Level)
}

// liveLocked reports whether at still owns the running playing phase.
func (s *Session) liveLocked(at *activeTimers) bool {
	return s.timers == at && !at.released && !s.finishedLocked() && s.state.Phase == PhasePlaying
}

func (s *Session) onCountdown(at *activeTimers) {
	s.mu.Lock()
	if !s.liveLocked(at) {
		s.mu.Unlock()
		return
	}
	n, _ := s.applyLocked(EventTick)
	if s.liveLocked(at) {
		at.countdown = s.clock.AfterFunc(time.Second, func() { s.onCountdown(at) })
	}
	s.mu.Unlock()
	n.dispatch(s.hooks)
}

func (s *Session) onRelocate(at *activeTimers) {
	s.mu.Lock()
	if !s.liveLocked(at) {
		s.mu.Unlock()
		return
	}
	n, _ := s.applyLocked(EventRelocate)
	at.relocate = s.clock.AfterFunc(s.relocateIntervalLocked(), func() { s.onRelocate(at) })
	s.mu.Unlock()
	n.dispatch(s.hooks)
}

func (s *Session) onBoostEnd(at *activeTimers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveLocked(at) {
		s.boosting = false
	}
}

func (s *Session) onWinDelay(tok *winToken) {
	s.mu.Lock()
	if s.win != tok || s.finishedLocked() {
		s.mu.Unlock()
		return
	}
	s.win = nil
	s.signaled = true
	s.updatedAt = s.clock.Now()
	snap := s.snapshotLocked()
	s.publishFinalLocked(snap)
	s.closeSubsLocked()
	s.mu.Unlock()

	notice{change: &snap, won: true}.dispatch(s.hooks)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:           s.id,
		State:        s.state,
		MaxLevel:     s.cfg.MaxLevel,
		MaxLives:     s.cfg.MaxLives,
		RoundSeconds: s.cfg.RoundSeconds,
		Motion:       s.cfg.Motion.Name(),
		Field:        s.cfg.Field,
		Boosting:     s.boosting,
		RevealReady:  s.signaled,
		Closed:       s.closed || s.stopped,
		Text:         Describe(s.cfg, s.state),
		StartedAt:    s.startedAt,
		UpdatedAt:    s.updatedAt,
	}
}

func (s *Session) publishLocked(snap Snapshot) {
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// publishFinalLocked delivers the last snapshot before the streams close.
// A full subscriber loses its oldest buffered snapshot instead of this one.
func (s *Session) publishFinalLocked(snap Snapshot) {
	for _, ch := range s.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		// only the lock holder sends, so a slot is free now
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) closeSubsLocked() {
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// notice carries the hooks to run once the lock is released.
type notice struct {
	change *Snapshot
	won    bool
	closed bool
}

func (n notice) dispatch(h Hooks) {
	if n.change == nil {
		return
	}
	if h.OnChange != nil {
		h.OnChange(*n.change)
	}
	if n.won && h.OnWin != nil {
		h.OnWin(*n.change)
	}
	if n.closed && h.OnClose != nil {
		h.OnClose(*n.change)
	}
}
