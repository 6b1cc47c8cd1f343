package gesture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) intents() []Intent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Intent, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Intent)
	}
	return out
}

func (r *recorder) count(i Intent) int {
	n := 0
	for _, got := range r.intents() {
		if got == i {
			n++
		}
	}
	return n
}

func newTestRecognizer() (*Recognizer, *ManualClock, *recorder) {
	clock := NewManualClock()
	rec := &recorder{}
	return NewRecognizer(7, rec.handle, WithClock(clock)), clock, rec
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func TestSingleClickSelects(t *testing.T) {
	r, clock, rec := newTestRecognizer()

	r.Down()
	clock.Advance(ms(50))
	r.Up()
	assert.Empty(t, rec.intents(), "select waits for the click window")

	clock.Advance(ms(249))
	assert.Empty(t, rec.intents())

	clock.Advance(ms(1))
	assert.Equal(t, []Intent{Select}, rec.intents())
	assert.Equal(t, Idle, r.State())

	clock.Advance(time.Second)
	assert.Equal(t, 1, rec.count(Select), "exactly one select")
}

func TestDoubleClickActivates(t *testing.T) {
	r, clock, rec := newTestRecognizer()

	r.Down()
	clock.Advance(ms(100))
	r.Up()
	clock.Advance(ms(75))
	r.Down()
	clock.Advance(ms(75))
	r.Up()

	assert.Equal(t, []Intent{Activate}, rec.intents(), "activate is immediate")

	clock.Advance(time.Second)
	assert.Equal(t, 1, rec.count(Activate))
	assert.Zero(t, rec.count(Select))
	assert.Zero(t, clock.Pending(), "click window cancelled on activate")
}

func TestLongPressDeletes(t *testing.T) {
	r, clock, rec := newTestRecognizer()

	r.Down()
	clock.Advance(ms(599))
	assert.Empty(t, rec.intents())

	clock.Advance(ms(1))
	assert.Equal(t, []Intent{LongPressDelete}, rec.intents())
	assert.Equal(t, LongPressed, r.State())

	r.Up()
	clock.Advance(time.Second)
	assert.Equal(t, []Intent{LongPressDelete}, rec.intents(), "release after long press emits nothing")
	assert.Equal(t, Idle, r.State())
}

func TestLongPressConsumesPendingClick(t *testing.T) {
	r, clock, rec := newTestRecognizer()

	// One click, then a second press held until it becomes a long press.
	// The click window expires during the hold and reports the first click.
	r.Down()
	clock.Advance(ms(50))
	r.Up()
	clock.Advance(ms(100))
	r.Down()
	clock.Advance(ms(600))
	r.Up()
	clock.Advance(time.Second)

	assert.Equal(t, []Intent{Select, LongPressDelete}, rec.intents())
}

func TestLongPressDiscardsUnresolvedClick(t *testing.T) {
	clock := NewManualClock()
	rec := &recorder{}
	r := NewRecognizer(7, rec.handle, WithClock(clock), WithThresholds(Thresholds{
		LongPress:   ms(100),
		ClickWindow: ms(250),
	}))

	// Click, then hold the second press past a short long-press threshold
	// while the click window is still open.
	r.Down()
	clock.Advance(ms(10))
	r.Up()
	clock.Advance(ms(10))
	r.Down()
	clock.Advance(ms(100))
	r.Up()
	clock.Advance(time.Second)

	assert.Equal(t, []Intent{LongPressDelete}, rec.intents(), "long press owns the cycle")
}

func TestLeaveAbortsPress(t *testing.T) {
	r, clock, rec := newTestRecognizer()

	r.Down()
	clock.Advance(ms(100))
	r.Leave()
	assert.Equal(t, Idle, r.State())

	clock.Advance(time.Second)
	assert.Empty(t, rec.intents(), "no long press after leave")

	r.Up()
	clock.Advance(time.Second)
	assert.Empty(t, rec.intents(), "stray release after leave is ignored")
}

func TestLeaveKeepsDoubleClickWindow(t *testing.T) {
	r, clock, rec := newTestRecognizer()

	r.Down()
	clock.Advance(ms(30))
	r.Up()
	clock.Advance(ms(30))
	r.Down()
	r.Leave() // jitter
	clock.Advance(ms(30))
	r.Down()
	clock.Advance(ms(30))
	r.Up()

	assert.Equal(t, []Intent{Activate}, rec.intents())
}

func TestCloseCancelsTimers(t *testing.T) {
	r, clock, rec := newTestRecognizer()

	r.Down()
	clock.Advance(ms(10))
	r.Up()
	r.Down()
	r.Close()

	assert.Zero(t, clock.Pending())
	clock.Advance(time.Second)
	assert.Empty(t, rec.intents())

	r.Down()
	r.Up()
	clock.Advance(time.Second)
	assert.Empty(t, rec.intents(), "closed recognizer ignores events")
}

func TestStaleTimerCallbackIsDiscarded(t *testing.T) {
	clock := &capturingClock{ManualClock: NewManualClock()}
	rec := &recorder{}
	r := NewRecognizer(1, rec.handle, WithClock(clock))

	r.Down()
	require.Len(t, clock.fns, 1)
	stale := clock.fns[0]

	// A new press supersedes the first long-press timer. Even if the old
	// callback still runs, it must not emit.
	r.Leave()
	r.Down()
	stale()
	assert.Empty(t, rec.intents())
	assert.Equal(t, Pressing, r.State())
}

// capturingClock records scheduled callbacks so tests can invoke them
// after their timer was stopped, as a real timer racing Stop might.
type capturingClock struct {
	*ManualClock
	fns []func()
}

func (c *capturingClock) AfterFunc(d time.Duration, f func()) Timer {
	c.fns = append(c.fns, f)
	return c.ManualClock.AfterFunc(d, f)
}

func TestHandlerMayReenter(t *testing.T) {
	clock := NewManualClock()
	var r *Recognizer
	closed := false
	r = NewRecognizer(1, func(e Event) {
		if e.Intent == LongPressDelete {
			r.Close()
			closed = true
		}
	}, WithClock(clock))

	r.Down()
	clock.Advance(DefaultLongPress)
	assert.True(t, closed)
}

func TestRealClockFires(t *testing.T) {
	done := make(chan Event, 1)
	r := NewRecognizer(3, func(e Event) { done <- e }, WithThresholds(Thresholds{
		LongPress:   20 * time.Millisecond,
		ClickWindow: 10 * time.Millisecond,
	}))
	defer r.Close()

	r.Down()
	select {
	case e := <-done:
		assert.Equal(t, Event{Target: 3, Intent: LongPressDelete}, e)
	case <-time.After(2 * time.Second):
		t.Fatal("long press never fired")
	}
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "select", Select.String())
	assert.Equal(t, "activate", Activate.String())
	assert.Equal(t, "long-press-delete", LongPressDelete.String())
	assert.Equal(t, "none", None.String())
}
