package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/model"
	"github.com/pilgrimlyieu/Focust-sub001/internal/core/suggest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(duration time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(duration)
}

func (clock *fakeClock) Rewind(duration time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.now = clock.now.Add(-duration)
}

type fakeIdle struct {
	mu       sync.Mutex
	duration time.Duration
	err      error
	calls    int
}

func (idle *fakeIdle) IdleDuration() (time.Duration, error) {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	idle.calls++
	return idle.duration, idle.err
}

func (idle *fakeIdle) set(duration time.Duration) {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	idle.duration = duration
}

func (idle *fakeIdle) callCount() int {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	return idle.calls
}

type fakeSuggestions struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (provider *fakeSuggestions) Suggest(kind model.BreakKind) (*suggest.Suggestion, error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	provider.calls++
	if provider.err != nil {
		return nil, provider.err
	}
	return &suggest.Suggestion{Activity: "stretch", Kind: kind}, nil
}

func (provider *fakeSuggestions) callCount() int {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return provider.calls
}

func testConfig() model.ScheduleConfig {
	return model.ScheduleConfig{
		WorkInterval:       25 * time.Minute,
		ShortBreakDuration: 5 * time.Minute,
		LongBreakDuration:  15 * time.Minute,
		LongBreakEvery:     4,
		SnoozeDuration:     5 * time.Minute,
		MaxSnooze:          15 * time.Minute,
		Skippable:          true,
	}
}

type harness struct {
	engine *Scheduler
	clock  *fakeClock
	events <-chan Event
}

func newHarness(t *testing.T, config model.ScheduleConfig) *harness {
	t.Helper()

	clock := newFakeClock()
	engine, err := New(config, Options{TickInterval: time.Second, Clock: clock})
	require.NoError(t, err)

	return &harness{
		engine: engine,
		clock:  clock,
		events: engine.Subscribe(4096),
	}
}

// step advances the clock in fixed increments, ticking once per increment.
func (h *harness) step(increment, total time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += increment {
		h.clock.Advance(increment)
		h.engine.tick(h.clock.Now())
	}
}

func (h *harness) drain() []Event {
	var events []Event
	for {
		select {
		case event := <-h.events:
			events = append(events, event)
		default:
			return events
		}
	}
}

func countType(events []Event, eventType EventType) int {
	count := 0
	for _, event := range events {
		if event.Type == eventType {
			count++
		}
	}
	return count
}

func findType(events []Event, eventType EventType) (Event, bool) {
	for _, event := range events {
		if event.Type == eventType {
			return event, true
		}
	}
	return Event{}, false
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	config := testConfig()
	config.WorkInterval = 0
	_, err := New(config, Options{})
	require.Error(t, err)
}

func TestStaysWorkingBelowInterval(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())

	h.step(time.Minute, 24*time.Minute)

	snapshot := h.engine.Snapshot()
	assert.Equal(t, StateWorking, snapshot.State)
	assert.Equal(t, 24*time.Minute, snapshot.Session.Accrued)
	assert.Zero(t, countType(h.drain(), EventBreakDue))
}

func TestBreakDueExactlyAtInterval(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())

	h.step(time.Minute, 25*time.Minute)

	events := h.drain()
	require.Equal(t, 1, countType(events, EventBreakDue))

	due, ok := findType(events, EventBreakDue)
	require.True(t, ok)
	assert.Equal(t, model.BreakShort, due.Kind)
	assert.Equal(t, StateBreakDue, h.engine.Snapshot().State)
}

func TestFullPomodoroCycle(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())

	h.step(time.Minute, 25*time.Minute)
	require.Equal(t, StateBreakDue, h.engine.Snapshot().State)

	require.NoError(t, h.engine.ForceBreakNow())
	started, ok := findType(h.drain(), EventBreakStarted)
	require.True(t, ok)
	assert.Equal(t, model.BreakShort, started.Kind)
	assert.Equal(t, 5*time.Minute, started.Duration)

	h.step(time.Minute, 5*time.Minute)

	events := h.drain()
	assert.Equal(t, 1, countType(events, EventBreakEnded))

	snapshot := h.engine.Snapshot()
	assert.Equal(t, StateWorking, snapshot.State)
	assert.Zero(t, snapshot.Session.Accrued)
	assert.Equal(t, 1, snapshot.Session.ShortBreaks)
}

func TestSnoozeClampsToMaximum(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)

	require.NoError(t, h.engine.Snooze(30*time.Minute))

	snoozed, ok := findType(h.drain(), EventSnoozed)
	require.True(t, ok)
	assert.Equal(t, h.clock.Now().Add(15*time.Minute), snoozed.Until)
	assert.Equal(t, StateSnoozed, h.engine.Snapshot().State)
}

func TestSnoozeUsesDefaultDuration(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)

	require.NoError(t, h.engine.Snooze(0))

	snoozed, ok := findType(h.drain(), EventSnoozed)
	require.True(t, ok)
	assert.Equal(t, h.clock.Now().Add(5*time.Minute), snoozed.Until)
}

func TestSnoozeDeadlineReturnsToBreakDueOnce(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)

	require.NoError(t, h.engine.Snooze(10*time.Minute))
	h.drain()

	h.step(time.Minute, 9*time.Minute)
	assert.Equal(t, StateSnoozed, h.engine.Snapshot().State)
	assert.Zero(t, countType(h.drain(), EventBreakDue))

	h.step(time.Minute, time.Minute)
	assert.Equal(t, StateBreakDue, h.engine.Snapshot().State)
	assert.Equal(t, 1, countType(h.drain(), EventBreakDue))

	h.step(time.Minute, 3*time.Minute)
	assert.Zero(t, countType(h.drain(), EventBreakDue))
}

func TestSnoozeRejectedOutsideBreakDue(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())

	err := h.engine.Snooze(time.Minute)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, StateWorking, h.engine.Snapshot().State)
}

func TestSnoozeCapForcesBreak(t *testing.T) {
	config := testConfig()
	config.MaxSnoozeCount = 1
	h := newHarness(t, config)
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)

	require.NoError(t, h.engine.Snooze(time.Minute))
	h.step(time.Second, 2*time.Minute)
	require.Equal(t, StateBreakDue, h.engine.Snapshot().State)
	h.drain()

	// The cap is exhausted, so this snooze starts the break instead.
	require.NoError(t, h.engine.Snooze(time.Minute))
	assert.Equal(t, StateBreakActive, h.engine.Snapshot().State)
	assert.Equal(t, 1, countType(h.drain(), EventBreakStarted))
}

func TestSkipRejectedWhenNotSkippable(t *testing.T) {
	config := testConfig()
	config.Skippable = false
	h := newHarness(t, config)
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)
	require.NoError(t, h.engine.ForceBreakNow())
	h.drain()

	err := h.engine.Skip()
	assert.ErrorIs(t, err, ErrNotSkippable)
	assert.Equal(t, StateBreakActive, h.engine.Snapshot().State)
	assert.Empty(t, h.drain())
}

func TestSkipEndsBreak(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)
	require.NoError(t, h.engine.ForceBreakNow())
	h.drain()

	require.NoError(t, h.engine.Skip())

	snapshot := h.engine.Snapshot()
	assert.Equal(t, StateWorking, snapshot.State)
	assert.Zero(t, snapshot.Session.Accrued)
	assert.Equal(t, 1, countType(h.drain(), EventBreakEnded))
}

func TestSkipRejectedWhileWorking(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())

	assert.ErrorIs(t, h.engine.Skip(), ErrInvalidState)
	assert.Equal(t, StateWorking, h.engine.Snapshot().State)
}

func TestStopIsIdempotent(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 10*time.Minute)

	require.NoError(t, h.engine.Stop())
	assert.Equal(t, StateIdle, h.engine.Snapshot().State)

	require.NoError(t, h.engine.Stop())
	assert.Equal(t, StateIdle, h.engine.Snapshot().State)

	assert.Equal(t, 1, countType(h.drain(), EventStopped))
}

func TestNoTickAppliesAfterStop(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 24*time.Minute)
	h.drain()

	require.NoError(t, h.engine.Stop())
	h.drain()

	h.step(time.Minute, 5*time.Minute)
	assert.Equal(t, StateIdle, h.engine.Snapshot().State)
	assert.Empty(t, h.drain())
}

func TestLongBreakPrecedence(t *testing.T) {
	config := testConfig()
	config.WorkInterval = time.Minute
	config.ShortBreakDuration = 10 * time.Second
	config.LongBreakDuration = 30 * time.Second
	h := newHarness(t, config)
	require.NoError(t, h.engine.Start())

	completeBreak := func() Event {
		h.step(time.Second, time.Minute)
		require.Equal(t, StateBreakDue, h.engine.Snapshot().State)
		events := h.drain()
		due, ok := findType(events, EventBreakDue)
		require.True(t, ok)
		require.NoError(t, h.engine.ForceBreakNow())
		h.step(time.Second, time.Minute)
		require.Equal(t, StateWorking, h.engine.Snapshot().State)
		h.drain()
		return due
	}

	for round := 0; round < 4; round++ {
		due := completeBreak()
		assert.Equal(t, model.BreakShort, due.Kind, "round %d", round)
	}
	require.Equal(t, 4, h.engine.Snapshot().Session.ShortBreaks)

	due := completeBreak()
	assert.Equal(t, model.BreakLong, due.Kind)
	assert.Zero(t, h.engine.Snapshot().Session.ShortBreaks)
}

func TestIdlePauseStopsAccrual(t *testing.T) {
	config := testConfig()
	config.WorkInterval = time.Hour
	config.IdlePauseAfter = 60 * time.Second
	config.IdleResetAfter = time.Hour
	h := newHarness(t, config)
	idle := &fakeIdle{}
	h.engine.SetIdleChecker(idle)
	require.NoError(t, h.engine.Start())

	idle.set(90 * time.Second)
	h.step(2*time.Minute, 2*time.Minute)
	snapshot := h.engine.Snapshot()
	assert.Zero(t, snapshot.Session.Accrued)
	assert.Equal(t, 2*time.Minute, snapshot.Session.IdleObserved)

	idle.set(30 * time.Second)
	h.step(2*time.Minute, 2*time.Minute)
	assert.Equal(t, 2*time.Minute, h.engine.Snapshot().Session.Accrued)
}

func TestIdleResetClearsAccrual(t *testing.T) {
	config := testConfig()
	config.WorkInterval = time.Hour
	config.IdlePauseAfter = 60 * time.Second
	config.IdleResetAfter = 600 * time.Second
	h := newHarness(t, config)
	idle := &fakeIdle{}
	h.engine.SetIdleChecker(idle)
	require.NoError(t, h.engine.Start())

	h.step(time.Minute, 20*time.Minute)
	require.Equal(t, 20*time.Minute, h.engine.Snapshot().Session.Accrued)
	h.drain()

	idle.set(900 * time.Second)
	h.step(time.Minute, time.Minute)

	snapshot := h.engine.Snapshot()
	assert.Equal(t, StateWorking, snapshot.State)
	assert.Zero(t, snapshot.Session.Accrued)
	assert.Equal(t, 1, countType(h.drain(), EventIdleReset))
}

func TestIdleErrorFailsOpen(t *testing.T) {
	config := testConfig()
	config.IdlePauseAfter = 60 * time.Second
	config.IdleResetAfter = 600 * time.Second
	h := newHarness(t, config)
	h.engine.SetIdleChecker(&fakeIdle{err: errors.New("display gone")})
	require.NoError(t, h.engine.Start())

	h.step(time.Minute, 3*time.Minute)

	snapshot := h.engine.Snapshot()
	assert.Equal(t, 3*time.Minute, snapshot.Session.Accrued)
	assert.NotZero(t, countType(h.drain(), EventWarning))
}

func TestIdleUnsupportedDisablesChecks(t *testing.T) {
	config := testConfig()
	config.IdlePauseAfter = 60 * time.Second
	config.IdleResetAfter = 600 * time.Second
	h := newHarness(t, config)
	idle := &fakeIdle{err: ErrIdleUnsupported}
	h.engine.SetIdleChecker(idle)
	require.NoError(t, h.engine.Start())

	h.step(time.Minute, 5*time.Minute)

	assert.Equal(t, 1, idle.callCount())
	assert.Equal(t, 5*time.Minute, h.engine.Snapshot().Session.Accrued)
}

func TestBackwardClockJumpClampedToZero(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 10*time.Minute)
	require.Equal(t, 10*time.Minute, h.engine.Snapshot().Session.Accrued)

	h.clock.Rewind(5 * time.Minute)
	h.engine.tick(h.clock.Now())

	snapshot := h.engine.Snapshot()
	assert.Equal(t, StateWorking, snapshot.State)
	assert.Equal(t, 10*time.Minute, snapshot.Session.Accrued)
}

func TestSleepGapDoesNotFastForward(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 10*time.Minute)
	h.drain()

	// Host slept for two hours; no breaks are owed for the gap.
	h.clock.Advance(2 * time.Hour)
	h.engine.tick(h.clock.Now())

	events := h.drain()
	snapshot := h.engine.Snapshot()
	assert.Equal(t, StateWorking, snapshot.State)
	assert.Zero(t, snapshot.Session.Accrued)
	assert.Zero(t, countType(events, EventBreakDue))
	assert.Equal(t, 1, countType(events, EventIdleReset))
}

func TestPauseFreezesAccrual(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 10*time.Minute)

	require.NoError(t, h.engine.Pause())
	assert.Equal(t, StatePaused, h.engine.Snapshot().State)

	h.step(time.Minute, 30*time.Minute)
	assert.Equal(t, 10*time.Minute, h.engine.Snapshot().Session.Accrued)

	require.NoError(t, h.engine.Resume())
	assert.Equal(t, StateWorking, h.engine.Snapshot().State)

	h.step(time.Minute, 5*time.Minute)
	assert.Equal(t, 15*time.Minute, h.engine.Snapshot().Session.Accrued)
}

func TestPauseIsIdempotentAndResumeRequiresPause(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())

	require.NoError(t, h.engine.Pause())
	require.NoError(t, h.engine.Pause())
	require.NoError(t, h.engine.Resume())
	assert.ErrorIs(t, h.engine.Resume(), ErrInvalidState)
}

func TestPauseFromSnoozedFreezesDeadline(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)
	require.NoError(t, h.engine.Snooze(10*time.Minute))

	require.NoError(t, h.engine.Pause())
	h.step(time.Minute, 30*time.Minute)
	require.Equal(t, StatePaused, h.engine.Snapshot().State)

	require.NoError(t, h.engine.Resume())
	require.Equal(t, StateSnoozed, h.engine.Snapshot().State)
	h.drain()

	h.step(time.Minute, 9*time.Minute)
	assert.Equal(t, StateSnoozed, h.engine.Snapshot().State)

	h.step(time.Minute, time.Minute)
	assert.Equal(t, StateBreakDue, h.engine.Snapshot().State)
}

func TestPauseRejectedDuringBreak(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)
	require.NoError(t, h.engine.ForceBreakNow())

	assert.ErrorIs(t, h.engine.Pause(), ErrInvalidState)
}

func TestAutoStartTimeout(t *testing.T) {
	config := testConfig()
	config.AutoStartAfter = 2 * time.Minute
	h := newHarness(t, config)
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)
	h.drain()

	h.step(time.Second, time.Minute)
	assert.Equal(t, StateBreakDue, h.engine.Snapshot().State)

	h.step(time.Second, time.Minute)
	assert.Equal(t, StateBreakActive, h.engine.Snapshot().State)
	assert.Equal(t, 1, countType(h.drain(), EventBreakStarted))
}

func TestUpdateConfigKeepsAccrual(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 10*time.Minute)

	config := testConfig()
	config.WorkInterval = 30 * time.Minute
	require.NoError(t, h.engine.UpdateConfig(config))

	snapshot := h.engine.Snapshot()
	assert.Equal(t, StateWorking, snapshot.State)
	assert.Equal(t, 10*time.Minute, snapshot.Session.Accrued)
	assert.Equal(t, 20*time.Minute, snapshot.NextBreakIn)
}

func TestUpdateConfigBelowAccrualForcesBreakDue(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 10*time.Minute)
	h.drain()

	config := testConfig()
	config.WorkInterval = 5 * time.Minute
	require.NoError(t, h.engine.UpdateConfig(config))

	assert.Equal(t, StateBreakDue, h.engine.Snapshot().State)
	assert.Equal(t, 1, countType(h.drain(), EventBreakDue))
}

func TestUpdateConfigRejectsInvalidAndRetainsLast(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())

	invalid := testConfig()
	invalid.ShortBreakDuration = -time.Second
	require.Error(t, h.engine.UpdateConfig(invalid))

	h.step(time.Minute, 25*time.Minute)
	assert.Equal(t, StateBreakDue, h.engine.Snapshot().State)
}

func TestSuggestionRequestedOncePerBreakDue(t *testing.T) {
	h := newHarness(t, testConfig())
	provider := &fakeSuggestions{}
	h.engine.SetSuggestionProvider(provider)
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)

	due, ok := findType(h.drain(), EventBreakDue)
	require.True(t, ok)
	require.NotNil(t, due.Suggestion)
	assert.Equal(t, "stretch", due.Suggestion.Activity)
	assert.Equal(t, 1, provider.callCount())

	require.NoError(t, h.engine.Snooze(time.Minute))
	h.step(time.Second, 2*time.Minute)
	require.Equal(t, StateBreakDue, h.engine.Snapshot().State)

	// Snooze re-entry reuses the suggestion chosen when the break first
	// became due.
	assert.Equal(t, 1, provider.callCount())
	redue, ok := findType(h.drain(), EventBreakDue)
	require.True(t, ok)
	require.NotNil(t, redue.Suggestion)
	assert.Equal(t, "stretch", redue.Suggestion.Activity)
}

func TestSuggestionFailureNeverBlocksTransition(t *testing.T) {
	h := newHarness(t, testConfig())
	h.engine.SetSuggestionProvider(&fakeSuggestions{err: errors.New("pool exhausted")})
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 25*time.Minute)

	events := h.drain()
	due, ok := findType(events, EventBreakDue)
	require.True(t, ok)
	assert.Nil(t, due.Suggestion)
	assert.NotZero(t, countType(events, EventWarning))
}

func TestStartRejectedWhileRunning(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	assert.ErrorIs(t, h.engine.Start(), ErrInvalidState)
}

func TestForceBreakNowFromWorking(t *testing.T) {
	h := newHarness(t, testConfig())
	require.NoError(t, h.engine.Start())
	h.step(time.Minute, 5*time.Minute)

	require.NoError(t, h.engine.ForceBreakNow())

	snapshot := h.engine.Snapshot()
	assert.Equal(t, StateBreakActive, snapshot.State)
	assert.Equal(t, model.BreakShort, snapshot.Kind)
	assert.Equal(t, 1, countType(h.drain(), EventBreakStarted))
}

func TestForceBreakNowRejectedWhenIdle(t *testing.T) {
	h := newHarness(t, testConfig())
	assert.ErrorIs(t, h.engine.ForceBreakNow(), ErrInvalidState)
}

func TestCloseClosesSubscribers(t *testing.T) {
	h := newHarness(t, testConfig())
	h.engine.Run()
	h.engine.Close()

	for {
		if _, open := <-h.events; !open {
			return
		}
	}
}
