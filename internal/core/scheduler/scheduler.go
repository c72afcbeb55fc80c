package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/model"
	"github.com/pilgrimlyieu/Focust-sub001/internal/core/suggest"
)

// ErrIdleUnsupported indicates idle detection is not available on this system.
var ErrIdleUnsupported = errors.New("idle detection unsupported")

// Command rejection reasons. Rejected commands leave the engine untouched.
var (
	ErrInvalidState = errors.New("command not valid in current state")
	ErrNotSkippable = errors.New("breaks are not skippable")
)

var errIdleQueryTimeout = errors.New("idle query timed out")

// IdleChecker reports the duration of user inactivity.
type IdleChecker interface {
	IdleDuration() (time.Duration, error)
}

// Clock provides the current time. It is injectable so the engine can be
// driven with simulated time in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options contains runtime options for the Scheduler.
type Options struct {
	TickInterval     time.Duration
	IdleQueryTimeout time.Duration
	SuggestTimeout   time.Duration
	Clock            Clock
}

// WorkSession tracks accrual toward the next break.
type WorkSession struct {
	Accrued        time.Duration
	IdleObserved   time.Duration
	ShortBreaks    int
	LastTransition time.Time
}

// Snapshot is a consistent read-only view of the engine for display.
type Snapshot struct {
	State          State
	Kind           model.BreakKind
	Session        WorkSession
	NextBreakIn    time.Duration
	BreakRemaining time.Duration
	SnoozeUntil    time.Time
	SnoozeCount    int
}

// Scheduler is the state machine that owns break timing policy. Ticks and
// commands are serialized through one mutex so transitions always apply in
// command order.
type Scheduler struct {
	mu          sync.Mutex
	config      model.ScheduleConfig
	options     Options
	clock       Clock
	state       State
	resumeState State
	session     WorkSession

	pendingKind       model.BreakKind
	pendingSuggestion *suggest.Suggestion
	dueSince          time.Time
	breakRemaining    time.Duration
	breakPlanned      time.Duration
	snoozeUntil       time.Time
	snoozeFrozen      time.Duration
	snoozeCount       int
	lastTick          time.Time

	idleChecker  IdleChecker
	idleDisabled bool
	suggestions  suggest.Provider

	events  []chan Event
	stopCh  chan struct{}
	running bool
	ticking atomic.Bool
}

// New creates a Scheduler with the provided configuration. The configuration
// must validate; the engine starts in the Idle state.
func New(config model.ScheduleConfig, options Options) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.IdleQueryTimeout <= 0 {
		options.IdleQueryTimeout = 500 * time.Millisecond
	}
	if options.SuggestTimeout <= 0 {
		options.SuggestTimeout = 250 * time.Millisecond
	}
	clock := options.Clock
	if clock == nil {
		clock = systemClock{}
	}

	return &Scheduler{
		config:  config,
		options: options,
		clock:   clock,
		state:   StateIdle,
		stopCh:  make(chan struct{}),
	}, nil
}

// SetIdleChecker injects an idle checker.
func (engine *Scheduler) SetIdleChecker(checker IdleChecker) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.idleChecker = checker
	engine.idleDisabled = false
}

// SetSuggestionProvider injects a break activity provider.
func (engine *Scheduler) SetSuggestionProvider(provider suggest.Provider) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	engine.suggestions = provider
}

// Subscribe registers a new observer channel. Events are delivered
// best-effort; an observer that falls behind misses events.
func (engine *Scheduler) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	engine.mu.Lock()
	engine.events = append(engine.events, ch)
	engine.mu.Unlock()
	return ch
}

// Run launches the ticking loop. It is a no-op if the loop already runs.
func (engine *Scheduler) Run() {
	engine.mu.Lock()
	if engine.running {
		engine.mu.Unlock()
		return
	}
	engine.running = true
	engine.mu.Unlock()

	go engine.loop()
}

// Close terminates the ticking loop and closes observer channels.
func (engine *Scheduler) Close() {
	engine.mu.Lock()
	if !engine.running {
		engine.mu.Unlock()
		return
	}
	close(engine.stopCh)
	engine.running = false
	events := engine.events
	engine.events = nil
	engine.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

func (engine *Scheduler) loop() {
	ticker := time.NewTicker(engine.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-engine.stopCh:
			return
		case <-ticker.C:
			engine.tick(engine.clock.Now())
		}
	}
}

// Snapshot returns a consistent view of the current state.
func (engine *Scheduler) Snapshot() Snapshot {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	snapshot := Snapshot{
		State:          engine.state,
		Kind:           engine.pendingKind,
		Session:        engine.session,
		BreakRemaining: engine.breakRemaining,
		SnoozeUntil:    engine.snoozeUntil,
		SnoozeCount:    engine.snoozeCount,
	}
	if engine.state == StateWorking {
		snapshot.NextBreakIn = engine.config.WorkInterval - engine.session.Accrued
		if snapshot.NextBreakIn < 0 {
			snapshot.NextBreakIn = 0
		}
	}
	return snapshot
}

// Start begins a fresh work session. Valid only from Idle.
func (engine *Scheduler) Start() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.state != StateIdle {
		return ErrInvalidState
	}

	now := engine.clock.Now()
	engine.resetAccrualLocked()
	engine.session.ShortBreaks = 0
	engine.session.LastTransition = now
	engine.lastTick = now
	engine.clearBreakLocked()
	engine.state = StateWorking

	engine.emitLocked(Event{Type: EventStarted, State: StateWorking, At: now})
	return nil
}

// Stop returns the engine to Idle and clears the work session. Stopping an
// already idle engine is a no-op and emits nothing.
func (engine *Scheduler) Stop() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.state == StateIdle {
		return nil
	}

	now := engine.clock.Now()
	engine.state = StateIdle
	engine.resumeState = StateIdle
	engine.resetAccrualLocked()
	engine.session.ShortBreaks = 0
	engine.clearBreakLocked()

	engine.emitLocked(Event{Type: EventStopped, State: StateIdle, At: now})
	return nil
}

// Pause freezes the timer. Valid from Working and Snoozed; pausing an
// already paused engine is a no-op.
func (engine *Scheduler) Pause() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	switch engine.state {
	case StatePaused:
		return nil
	case StateWorking, StateSnoozed:
	default:
		return ErrInvalidState
	}

	now := engine.clock.Now()
	if engine.state == StateSnoozed {
		engine.snoozeFrozen = engine.snoozeUntil.Sub(now)
		if engine.snoozeFrozen < 0 {
			engine.snoozeFrozen = 0
		}
	}
	engine.resumeState = engine.state
	engine.state = StatePaused
	engine.session.LastTransition = now

	engine.emitLocked(Event{Type: EventPaused, State: StatePaused, At: now})
	return nil
}

// Resume unfreezes the timer and restores the pre-pause state.
func (engine *Scheduler) Resume() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.state != StatePaused {
		return ErrInvalidState
	}

	now := engine.clock.Now()
	engine.state = engine.resumeState
	if engine.state == StateSnoozed {
		engine.snoozeUntil = now.Add(engine.snoozeFrozen)
		engine.snoozeFrozen = 0
	}
	engine.lastTick = now
	engine.session.LastTransition = now

	engine.emitLocked(Event{Type: EventResumed, State: engine.state, At: now})
	return nil
}

// Snooze defers an owed break. A non-positive duration requests the default
// snooze; any duration is clamped to the configured maximum. Once the snooze
// cap is exhausted the break starts instead of snoozing again.
func (engine *Scheduler) Snooze(duration time.Duration) error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.state != StateBreakDue {
		return ErrInvalidState
	}

	now := engine.clock.Now()
	if engine.config.MaxSnoozeCount > 0 && engine.snoozeCount >= engine.config.MaxSnoozeCount {
		engine.beginBreakLocked(now)
		return nil
	}

	if duration <= 0 {
		duration = engine.config.SnoozeDuration
	}
	if duration > engine.config.MaxSnooze {
		duration = engine.config.MaxSnooze
	}

	engine.snoozeCount++
	engine.state = StateSnoozed
	engine.snoozeUntil = now.Add(duration)
	engine.session.LastTransition = now

	engine.emitLocked(Event{
		Type:  EventSnoozed,
		State: StateSnoozed,
		Kind:  engine.pendingKind,
		Until: engine.snoozeUntil,
		At:    now,
	})
	return nil
}

// Skip abandons the active break and returns to work. Rejected unless breaks
// are configured as skippable.
func (engine *Scheduler) Skip() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	if engine.state != StateBreakActive {
		return ErrInvalidState
	}
	if !engine.config.Skippable {
		return ErrNotSkippable
	}

	engine.finishBreakLocked(engine.clock.Now())
	return nil
}

// ForceBreakNow starts a break immediately. From BreakDue or Snoozed it
// begins the owed break; from Working it owes and begins one in a single
// step.
func (engine *Scheduler) ForceBreakNow() error {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	now := engine.clock.Now()
	switch engine.state {
	case StateBreakDue, StateSnoozed:
		engine.beginBreakLocked(now)
	case StateWorking:
		engine.pendingKind = engine.nextBreakKindLocked()
		engine.pendingSuggestion = engine.requestSuggestionLocked(engine.pendingKind, now)
		engine.beginBreakLocked(now)
	default:
		return ErrInvalidState
	}
	return nil
}

// UpdateConfig applies a new schedule. Invalid configurations are rejected
// and the last valid configuration is retained. Accrued work is kept and
// re-measured against the new interval; if it already meets the new interval
// a break becomes due immediately.
func (engine *Scheduler) UpdateConfig(config model.ScheduleConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()

	engine.config = config
	if engine.state == StateWorking && engine.session.Accrued >= config.WorkInterval {
		engine.enterBreakDueLocked(engine.clock.Now(), true)
	}
	return nil
}

// tick applies one scheduler evaluation at the given time. Overlapping ticks
// are coalesced rather than queued.
func (engine *Scheduler) tick(now time.Time) {
	if !engine.ticking.CompareAndSwap(false, true) {
		return
	}
	defer engine.ticking.Store(false)

	idleDuration, idleErr := engine.readIdle()

	engine.mu.Lock()
	defer engine.mu.Unlock()

	delta := engine.tickDeltaLocked(now)

	switch engine.state {
	case StateWorking:
		engine.tickWorkingLocked(now, delta, idleDuration, idleErr)
	case StateBreakDue:
		engine.tickBreakDueLocked(now)
	case StateSnoozed:
		engine.tickSnoozedLocked(now)
	case StateBreakActive:
		engine.tickBreakActiveLocked(now, delta)
	}
}

// tickDeltaLocked computes the wall-clock delta since the previous tick.
// Backward jumps are clamped to zero elapsed.
func (engine *Scheduler) tickDeltaLocked(now time.Time) time.Duration {
	if engine.lastTick.IsZero() {
		engine.lastTick = now
		return 0
	}
	delta := now.Sub(engine.lastTick)
	engine.lastTick = now
	if delta < 0 {
		return 0
	}
	return delta
}

func (engine *Scheduler) tickWorkingLocked(now time.Time, delta time.Duration, idleDuration time.Duration, idleErr error) {
	if idleErr != nil {
		engine.handleIdleErrorLocked(now, idleErr)
		idleDuration = 0
	}

	// A delta larger than a full work interval means the host slept or
	// stalled; treat the gap as absence instead of crediting it as work.
	if delta > engine.config.WorkInterval {
		engine.resetAccrualLocked()
		engine.emitLocked(Event{Type: EventIdleReset, State: engine.state, At: now})
		return
	}

	if threshold := engine.config.IdleResetAfter; threshold > 0 && idleDuration >= threshold {
		if engine.session.Accrued > 0 || engine.session.IdleObserved > 0 {
			engine.resetAccrualLocked()
			engine.emitLocked(Event{Type: EventIdleReset, State: engine.state, At: now})
		}
		return
	}
	if threshold := engine.config.IdlePauseAfter; threshold > 0 && idleDuration >= threshold {
		engine.session.IdleObserved += delta
		return
	}

	engine.session.Accrued += delta
	if engine.session.Accrued >= engine.config.WorkInterval {
		engine.enterBreakDueLocked(now, true)
		return
	}

	remaining := engine.config.WorkInterval - engine.session.Accrued
	engine.emitLocked(Event{
		Type:      EventWorkTick,
		State:     StateWorking,
		Remaining: remaining,
		Progress:  engine.workProgressLocked(),
		At:        now,
	})
}

func (engine *Scheduler) tickBreakDueLocked(now time.Time) {
	timeout := engine.config.AutoStartAfter
	if timeout > 0 && now.Sub(engine.dueSince) >= timeout {
		engine.beginBreakLocked(now)
	}
}

func (engine *Scheduler) tickSnoozedLocked(now time.Time) {
	if now.Before(engine.snoozeUntil) {
		return
	}
	engine.enterBreakDueLocked(now, false)
}

func (engine *Scheduler) tickBreakActiveLocked(now time.Time, delta time.Duration) {
	engine.breakRemaining -= delta
	if engine.breakRemaining <= 0 {
		engine.finishBreakLocked(now)
		return
	}

	engine.emitLocked(Event{
		Type:      EventWorkTick,
		State:     StateBreakActive,
		Kind:      engine.pendingKind,
		Remaining: engine.breakRemaining,
		Progress:  engine.breakProgressLocked(),
		At:        now,
	})
}

// enterBreakDueLocked moves the engine into BreakDue. A fresh entry computes
// the break kind and requests a suggestion; re-entry after a snooze reuses
// the suggestion already chosen for this break.
func (engine *Scheduler) enterBreakDueLocked(now time.Time, fresh bool) {
	if fresh {
		engine.pendingKind = engine.nextBreakKindLocked()
		engine.pendingSuggestion = nil
		engine.snoozeCount = 0
	}
	if engine.pendingSuggestion == nil {
		engine.pendingSuggestion = engine.requestSuggestionLocked(engine.pendingKind, now)
	}

	engine.state = StateBreakDue
	engine.dueSince = now
	engine.session.LastTransition = now

	engine.emitLocked(Event{
		Type:       EventBreakDue,
		State:      StateBreakDue,
		Kind:       engine.pendingKind,
		Suggestion: engine.pendingSuggestion,
		At:         now,
	})
}

// nextBreakKindLocked decides the kind of the next owed break. When the
// short-break counter reaches the long-break interval the long break takes
// precedence and the counter resets.
func (engine *Scheduler) nextBreakKindLocked() model.BreakKind {
	if engine.config.LongBreakEvery > 0 && engine.session.ShortBreaks >= engine.config.LongBreakEvery {
		engine.session.ShortBreaks = 0
		return model.BreakLong
	}
	return model.BreakShort
}

func (engine *Scheduler) beginBreakLocked(now time.Time) {
	duration := engine.config.BreakDuration(engine.pendingKind)
	engine.state = StateBreakActive
	engine.breakPlanned = duration
	engine.breakRemaining = duration
	engine.session.LastTransition = now

	engine.emitLocked(Event{
		Type:       EventBreakStarted,
		State:      StateBreakActive,
		Kind:       engine.pendingKind,
		Duration:   duration,
		Remaining:  duration,
		Suggestion: engine.pendingSuggestion,
		At:         now,
	})
}

func (engine *Scheduler) finishBreakLocked(now time.Time) {
	kind := engine.pendingKind
	if kind == model.BreakLong {
		engine.session.ShortBreaks = 0
	} else {
		engine.session.ShortBreaks++
	}

	engine.resetAccrualLocked()
	engine.clearBreakLocked()
	engine.state = StateWorking
	engine.lastTick = now
	engine.session.LastTransition = now

	engine.emitLocked(Event{Type: EventBreakEnded, State: StateWorking, Kind: kind, At: now})
}

func (engine *Scheduler) resetAccrualLocked() {
	engine.session.Accrued = 0
	engine.session.IdleObserved = 0
}

func (engine *Scheduler) clearBreakLocked() {
	engine.pendingKind = ""
	engine.pendingSuggestion = nil
	engine.dueSince = time.Time{}
	engine.breakRemaining = 0
	engine.breakPlanned = 0
	engine.snoozeUntil = time.Time{}
	engine.snoozeFrozen = 0
	engine.snoozeCount = 0
}

func (engine *Scheduler) workProgressLocked() float64 {
	if engine.config.WorkInterval <= 0 {
		return 0
	}
	return clampProgress(float64(engine.session.Accrued) / float64(engine.config.WorkInterval))
}

func (engine *Scheduler) breakProgressLocked() float64 {
	if engine.breakPlanned <= 0 {
		return 1
	}
	return clampProgress(float64(engine.breakPlanned-engine.breakRemaining) / float64(engine.breakPlanned))
}

func clampProgress(progress float64) float64 {
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// readIdle queries the idle checker with a bounded timeout. Failures fail
// open toward "user present": the tick proceeds with zero idle time.
func (engine *Scheduler) readIdle() (time.Duration, error) {
	engine.mu.Lock()
	checker := engine.idleChecker
	needed := engine.state == StateWorking && !engine.idleDisabled &&
		(engine.config.IdlePauseAfter > 0 || engine.config.IdleResetAfter > 0)
	timeout := engine.options.IdleQueryTimeout
	engine.mu.Unlock()

	if checker == nil || !needed {
		return 0, nil
	}

	type reading struct {
		duration time.Duration
		err      error
	}
	resultCh := make(chan reading, 1)
	go func() {
		duration, err := checker.IdleDuration()
		resultCh <- reading{duration: duration, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return 0, result.err
		}
		if result.duration < 0 {
			return 0, nil
		}
		return result.duration, nil
	case <-timer.C:
		return 0, errIdleQueryTimeout
	}
}

func (engine *Scheduler) handleIdleErrorLocked(now time.Time, err error) {
	if errors.Is(err, ErrIdleUnsupported) {
		engine.idleDisabled = true
	}
	engine.emitLocked(Event{
		Type:    EventWarning,
		State:   engine.state,
		Message: err.Error(),
		At:      now,
	})
}

// requestSuggestionLocked asks the provider for an activity with a bounded
// timeout. Provider failures degrade to a suggestion-free break and never
// block the transition.
func (engine *Scheduler) requestSuggestionLocked(kind model.BreakKind, now time.Time) *suggest.Suggestion {
	provider := engine.suggestions
	if provider == nil {
		return nil
	}

	type answer struct {
		suggestion *suggest.Suggestion
		err        error
	}
	resultCh := make(chan answer, 1)
	go func() {
		suggestion, err := provider.Suggest(kind)
		resultCh <- answer{suggestion: suggestion, err: err}
	}()

	timer := time.NewTimer(engine.options.SuggestTimeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		if result.err != nil {
			engine.emitLocked(Event{
				Type:    EventWarning,
				State:   engine.state,
				Message: "suggestion provider: " + result.err.Error(),
				At:      now,
			})
			return nil
		}
		return result.suggestion
	case <-timer.C:
		engine.emitLocked(Event{
			Type:    EventWarning,
			State:   engine.state,
			Message: "suggestion provider timed out",
			At:      now,
		})
		return nil
	}
}

func (engine *Scheduler) emitLocked(event Event) {
	events := append([]chan Event(nil), engine.events...)
	for _, ch := range events {
		select {
		case ch <- event:
		default:
		}
	}
}
