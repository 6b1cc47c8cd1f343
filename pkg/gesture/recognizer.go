// Package gesture turns raw pointer down/up/leave events on an interactive
// target into discrete intents: Select, Activate (double interaction) and
// LongPressDelete. It does not rely on any platform gesture API; timing is
// driven by a Clock so recognition can be replayed deterministically.
package gesture

import (
	"log/slog"
	"sync"
	"time"
)

// Intent is the outcome of recognizing a gesture.
type Intent int

const (
	None Intent = iota
	Select
	Activate
	LongPressDelete
)

func (i Intent) String() string {
	switch i {
	case None:
		return "none"
	case Select:
		return "select"
	case Activate:
		return "activate"
	case LongPressDelete:
		return "long-press-delete"
	default:
		return "unknown"
	}
}

// State is a recognizer's position in the press cycle.
type State int

const (
	Idle State = iota
	Pressing
	Released
	LongPressed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressing:
		return "pressing"
	case Released:
		return "released"
	case LongPressed:
		return "long-pressed"
	default:
		return "unknown"
	}
}

// Target identifies the interactive object a gesture is aimed at.
type Target uint32

// Event is an intent recognized on a target.
type Event struct {
	Target Target `json:"target"`
	Intent Intent `json:"intent"`
}

// Handler receives recognized events. It is never called with a
// recognizer lock held, so it may call back into the recognizer.
type Handler func(Event)

// Default thresholds.
const (
	DefaultLongPress   = 600 * time.Millisecond
	DefaultClickWindow = 250 * time.Millisecond
)

// Thresholds holds the gesture timing constants.
type Thresholds struct {
	// LongPress is how long a press must be held to become a delete request.
	LongPress time.Duration
	// ClickWindow is how long to wait for a second click before a single
	// click is reported as Select.
	ClickWindow time.Duration
}

// DefaultThresholds returns 600 ms long press and 250 ms click window.
func DefaultThresholds() Thresholds {
	return Thresholds{LongPress: DefaultLongPress, ClickWindow: DefaultClickWindow}
}

type options struct {
	clock      Clock
	thresholds Thresholds
	logger     *slog.Logger
}

// Option configures a Recognizer or Tracker.
type Option func(*options)

// WithClock sets the clock used for timers.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithThresholds overrides the timing constants. Non-positive fields keep
// their defaults.
func WithThresholds(t Thresholds) Option {
	return func(o *options) {
		if t.LongPress > 0 {
			o.thresholds.LongPress = t.LongPress
		}
		if t.ClickWindow > 0 {
			o.thresholds.ClickWindow = t.ClickWindow
		}
	}
}

// WithLogger sets the logger for recognized intents.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:      RealClock(),
		thresholds: DefaultThresholds(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// timerSlot owns at most one pending timer. Every arm bumps the
// generation, so a callback that was already in flight when the slot was
// cleared can tell it is stale.
type timerSlot struct {
	t   Timer
	gen uint64
}

func (s *timerSlot) clear() {
	if s.t != nil {
		s.t.Stop()
		s.t = nil
	}
	s.gen++
}

func (s *timerSlot) active() bool { return s.t != nil }

// Recognizer classifies the pointer events of a single target.
// It is safe for concurrent use.
type Recognizer struct {
	mu      sync.Mutex
	target  Target
	opts    options
	handler Handler

	state  State
	clicks int
	closed bool

	longPress timerSlot
	click     timerSlot
}

// NewRecognizer returns an idle recognizer for target.
func NewRecognizer(target Target, h Handler, opts ...Option) *Recognizer {
	return &Recognizer{
		target:  target,
		opts:    buildOptions(opts),
		handler: h,
	}
}

// State returns the current press-cycle state.
func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Down starts a press cycle and arms the long-press timer.
func (r *Recognizer) Down() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.state = Pressing
	r.arm(&r.longPress, r.opts.thresholds.LongPress, r.longPressFired)
}

// Up ends the press cycle. A release after a long press is swallowed.
func (r *Recognizer) Up() {
	r.mu.Lock()
	var intent Intent
	switch {
	case r.closed:
	case r.state == Pressing:
		r.longPress.clear()
		r.state = Released
		r.clicks++
		r.click.clear()
		if r.clicks >= 2 {
			r.clicks = 0
			intent = Activate
		} else {
			r.arm(&r.click, r.opts.thresholds.ClickWindow, r.clickWindowElapsed)
		}
	case r.state == LongPressed:
		r.state = Idle
	}
	r.mu.Unlock()

	r.emit(intent)
}

// Leave aborts a press in progress. The click counter and any running
// click window are left alone so brief pointer jitter does not break a
// double click.
func (r *Recognizer) Leave() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != Pressing {
		return
	}
	r.longPress.clear()
	r.state = Idle
}

// Close cancels every timer. Later events and timer callbacks do nothing.
func (r *Recognizer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.longPress.clear()
	r.click.clear()
	r.state = Idle
	r.clicks = 0
}

// arm replaces whatever timer slot holds with a new one that calls fire
// with the slot generation it was armed under. Caller holds r.mu.
func (r *Recognizer) arm(slot *timerSlot, d time.Duration, fire func(gen uint64)) {
	slot.clear()
	gen := slot.gen
	slot.t = r.opts.clock.AfterFunc(d, func() { fire(gen) })
}

func (r *Recognizer) longPressFired(gen uint64) {
	r.mu.Lock()
	if r.closed || gen != r.longPress.gen || r.state != Pressing {
		r.mu.Unlock()
		return
	}
	r.longPress.t = nil
	r.state = LongPressed
	// The long press consumes this press cycle.
	r.click.clear()
	r.clicks = 0
	r.mu.Unlock()

	r.emit(LongPressDelete)
}

func (r *Recognizer) clickWindowElapsed(gen uint64) {
	r.mu.Lock()
	if r.closed || gen != r.click.gen {
		r.mu.Unlock()
		return
	}
	r.click.t = nil
	var intent Intent
	if r.clicks == 1 {
		intent = Select
	}
	r.clicks = 0
	if r.state == Released {
		r.state = Idle
	}
	r.mu.Unlock()

	r.emit(intent)
}

func (r *Recognizer) emit(i Intent) {
	if i == None {
		return
	}
	r.opts.logger.Debug("gesture recognized", "target", r.target, "intent", i.String())
	if r.handler != nil {
		r.handler(Event{Target: r.target, Intent: i})
	}
}
