package gesture

import "sync"

// Tracker routes pointer events to one Recognizer per target. Recognizers
// are created on first press and live until Remove or Close, which cancel
// their timers so nothing fires against a target that no longer exists.
type Tracker struct {
	mu      sync.Mutex
	opts    []Option
	handler Handler
	targets map[Target]*Recognizer
	closed  bool
}

// NewTracker returns a tracker that reports every target's events to h.
func NewTracker(h Handler, opts ...Option) *Tracker {
	return &Tracker{
		opts:    opts,
		handler: h,
		targets: make(map[Target]*Recognizer),
	}
}

// Down forwards a pointer-down, creating the target's recognizer if needed.
func (t *Tracker) Down(id Target) {
	if r := t.recognizer(id, true); r != nil {
		r.Down()
	}
}

// Up forwards a pointer-up. Targets never pressed are ignored.
func (t *Tracker) Up(id Target) {
	if r := t.recognizer(id, false); r != nil {
		r.Up()
	}
}

// Leave forwards a pointer-leave. Targets never pressed are ignored.
func (t *Tracker) Leave(id Target) {
	if r := t.recognizer(id, false); r != nil {
		r.Leave()
	}
}

// Remove tears down a target's recognizer and its pending timers.
func (t *Tracker) Remove(id Target) {
	t.mu.Lock()
	r := t.targets[id]
	delete(t.targets, id)
	t.mu.Unlock()

	if r != nil {
		r.Close()
	}
}

// Retain tears down every recognizer whose target keep rejects. Callers
// pass the set of targets that still exist so recognizer lifetime follows
// the objects, whichever path removed them.
func (t *Tracker) Retain(keep func(Target) bool) {
	t.mu.Lock()
	var gone []*Recognizer
	for id, r := range t.targets {
		if !keep(id) {
			gone = append(gone, r)
			delete(t.targets, id)
		}
	}
	t.mu.Unlock()

	for _, r := range gone {
		r.Close()
	}
}

// Close tears down every recognizer. The tracker ignores events afterwards.
func (t *Tracker) Close() {
	t.mu.Lock()
	rs := t.targets
	t.targets = make(map[Target]*Recognizer)
	t.closed = true
	t.mu.Unlock()

	for _, r := range rs {
		r.Close()
	}
}

// Len returns the number of live recognizers.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.targets)
}

func (t *Tracker) recognizer(id Target, create bool) *Recognizer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	r, ok := t.targets[id]
	if !ok && create {
		r = NewRecognizer(id, t.handler, t.opts...)
		t.targets[id] = r
	}
	return r
}
