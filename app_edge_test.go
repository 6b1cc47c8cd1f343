package main

import (
	"math"
	"testing"
	"time"

	wailslogger "github.com/wailsapp/wails/v2/pkg/logger"

	"github.com/chazu/burl/pkg/config"
	"github.com/chazu/burl/pkg/gesture"
	"github.com/chazu/burl/pkg/kernel"
	"github.com/chazu/burl/pkg/kernel/document"
	"github.com/chazu/burl/pkg/kernel/sdfx"
)

// ---------------------------------------------------------------------------
// Pointer gestures, driven on a manual clock.
// ---------------------------------------------------------------------------

func TestPointerClickSelects(t *testing.T) {
	clock := gesture.NewManualClock()
	app, log := newTestApp(t, gesture.WithClock(clock))
	a := app.AddBox(1, 1, 1).ID
	b := app.AddSphere(1).ID

	app.PointerDown(a)
	clock.Advance(50 * time.Millisecond)
	app.PointerUp(a)
	if app.State().SelectedID != b {
		t.Fatal("select must wait for the click window")
	}
	clock.Advance(gesture.DefaultClickWindow)

	if app.State().SelectedID != a {
		t.Errorf("expected %d selected, got %d", a, app.State().SelectedID)
	}
	intents := log.named(EventIntent)
	if len(intents) != 1 || intents[0].data.(IntentData) != (IntentData{ID: a, Intent: "select"}) {
		t.Errorf("intent events = %+v", intents)
	}
	if len(log.named(EventActivate)) != 0 {
		t.Error("single click must not activate")
	}
}

func TestPointerDoubleClickActivates(t *testing.T) {
	clock := gesture.NewManualClock()
	app, log := newTestApp(t, gesture.WithClock(clock))
	a := app.AddBox(1, 1, 1).ID
	app.AddSphere(1)

	for i := 0; i < 2; i++ {
		app.PointerDown(a)
		clock.Advance(30 * time.Millisecond)
		app.PointerUp(a)
		clock.Advance(30 * time.Millisecond)
	}
	clock.Advance(time.Second)

	if app.State().SelectedID != a {
		t.Errorf("activate should select, got %d", app.State().SelectedID)
	}
	act := log.named(EventActivate)
	if len(act) != 1 || act[0].data.(IntentData).ID != a {
		t.Errorf("activate events = %+v", act)
	}
	if n := len(log.named(EventIntent)); n != 1 {
		t.Errorf("expected exactly one intent, got %d", n)
	}
}

func TestPointerLongPressDeletes(t *testing.T) {
	clock := gesture.NewManualClock()
	app, log := newTestApp(t, gesture.WithClock(clock))
	a := app.AddBox(1, 1, 1).ID

	app.PointerDown(a)
	clock.Advance(gesture.DefaultLongPress)

	state := app.State()
	if len(state.Objects) != 0 || state.SelectedID != 0 {
		t.Errorf("long press should delete and clear selection: %+v", state)
	}
	if app.tracker.Len() != 0 {
		t.Error("deleted object's recognizer should be torn down")
	}

	// The release after the long press is ignored.
	app.PointerUp(a)
	clock.Advance(time.Second)
	if n := len(log.named(EventIntent)); n != 1 {
		t.Errorf("expected one intent, got %d", n)
	}
}

func TestPointerLeaveCancelsLongPress(t *testing.T) {
	clock := gesture.NewManualClock()
	app, log := newTestApp(t, gesture.WithClock(clock))
	a := app.AddBox(1, 1, 1).ID

	app.PointerDown(a)
	clock.Advance(100 * time.Millisecond)
	app.PointerLeave(a)
	clock.Advance(time.Second)

	if len(app.State().Objects) != 1 {
		t.Error("leave must cancel the pending delete")
	}
	if n := len(log.named(EventIntent)); n != 0 {
		t.Errorf("expected no intents, got %d", n)
	}
}

func TestDeleteBindingCancelsPendingSelect(t *testing.T) {
	clock := gesture.NewManualClock()
	app, log := newTestApp(t, gesture.WithClock(clock))
	a := app.AddBox(1, 1, 1).ID

	app.PointerDown(a)
	app.PointerUp(a)
	if r := app.Delete(a); !r.OK {
		t.Fatalf("Delete: %s", r.Error)
	}
	clock.Advance(time.Second)

	if n := len(log.named(EventIntent)); n != 0 {
		t.Errorf("no select may fire for a deleted object, got %d intents", n)
	}
	if clock.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", clock.Pending())
	}
}

func TestConsoleDeleteCancelsPendingSelect(t *testing.T) {
	clock := gesture.NewManualClock()
	app, log := newTestApp(t, gesture.WithClock(clock))
	a := app.AddBox(1, 1, 1).ID

	app.PointerDown(a)
	app.PointerUp(a)
	res := app.Evaluate("(delete 1)")
	if len(res.Errors) != 0 {
		t.Fatalf("evaluate: %+v", res.Errors)
	}
	if len(app.State().Objects) != 0 {
		t.Fatal("script should have deleted the box")
	}
	if clock.Pending() != 0 {
		t.Errorf("expected no pending timers, got %d", clock.Pending())
	}
	clock.Advance(time.Second)

	if n := len(log.named(EventIntent)); n != 0 {
		t.Errorf("no select may fire for a deleted object, got %d intents", n)
	}
	if app.tracker.Len() != 0 {
		t.Errorf("recognizer should follow the object out, %d left", app.tracker.Len())
	}
}

func TestPointerOnMissingObjectIsDropped(t *testing.T) {
	clock := gesture.NewManualClock()
	app, log := newTestApp(t, gesture.WithClock(clock))
	app.AddBox(1, 1, 1)

	app.PointerDown(99)
	app.PointerUp(99)
	clock.Advance(time.Second)

	if n := len(log.named(EventIntent)); n != 0 {
		t.Errorf("expected no intents for an unknown object, got %d", n)
	}
	if app.tracker.Len() != 0 {
		t.Errorf("recognizer for an unknown object should be dropped, %d left", app.tracker.Len())
	}
}

// refuseDeletes is a kernel that rejects every delete.
type refuseDeletes struct{ kernel.Kernel }

func (refuseDeletes) DeleteObject(kernel.DocumentID, kernel.ObjectID) bool { return false }

func TestRejectedLongPressKeepsRecognizer(t *testing.T) {
	clock := gesture.NewManualClock()
	k := refuseDeletes{document.New(sdfx.New(sdfx.WithMeshCells(16)))}
	app := NewApp(testConfig(), k, nil, gesture.WithClock(clock))
	log := &eventLog{}
	app.emit = log.emit
	if err := app.session.Open(); err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { app.tracker.Close() })
	a := app.AddBox(1, 1, 1).ID

	app.PointerDown(a)
	clock.Advance(gesture.DefaultLongPress)
	app.PointerUp(a)

	if len(app.State().Objects) != 1 {
		t.Fatal("kernel refused the delete, the box must stay")
	}
	if n := len(log.named(EventIntent)); n != 0 {
		t.Errorf("a failed delete must not be announced, got %d intents", n)
	}
	if app.tracker.Len() != 1 {
		t.Errorf("surviving object should keep its recognizer, tracker has %d", app.tracker.Len())
	}

	// The object still responds to clicks.
	app.AddSphere(1)
	app.PointerDown(a)
	app.PointerUp(a)
	clock.Advance(time.Second)
	if app.State().SelectedID != a {
		t.Errorf("expected %d selected after click, got %d", a, app.State().SelectedID)
	}
}

// ---------------------------------------------------------------------------
// Failure surfaces: every binding reports errors without touching state.
// ---------------------------------------------------------------------------

func TestUnknownObjectBindings(t *testing.T) {
	app, _ := newTestApp(t)
	app.AddBox(1, 1, 1)
	before := app.State()

	for name, r := range map[string]OpResult{
		"SetParam":        app.SetParam(99, "length", 2),
		"UpdatePlacement": app.UpdatePlacement(99, [3]float64{}, [4]float64{0, 0, 0, 1}),
		"Delete":          app.Delete(99),
		"Select":          app.Select(99),
	} {
		if r.OK || r.Error == "" {
			t.Errorf("%s: expected failure, got %+v", name, r)
		}
	}

	m := app.Mesh(99)
	if m.Error == "" {
		t.Error("Mesh of unknown object should report an error")
	}
	if m.Vertices == nil || m.Indices == nil {
		t.Error("Mesh slices should be non-nil so JSON has []")
	}

	after := app.State()
	if len(after.Objects) != len(before.Objects) || after.SelectedID != before.SelectedID {
		t.Errorf("state changed: %+v -> %+v", before, after)
	}
}

func TestInvalidInputsRejected(t *testing.T) {
	app, _ := newTestApp(t)

	if r := app.AddBox(0, 1, 1); r.OK {
		t.Error("zero length box should be rejected")
	}
	if r := app.AddSphere(math.NaN()); r.OK {
		t.Error("NaN radius should be rejected")
	}
	id := app.AddSphere(1).ID
	if r := app.UpdatePlacement(id, [3]float64{math.Inf(1), 0, 0}, [4]float64{0, 0, 0, 1}); r.OK {
		t.Error("infinite position should be rejected")
	}
	if r := app.UpdatePlacement(id, [3]float64{}, [4]float64{}); r.OK {
		t.Error("zero quaternion should be rejected by the kernel")
	}
	if len(app.State().Objects) != 1 {
		t.Errorf("expected only the valid sphere, got %+v", app.State().Objects)
	}
}

func TestSelectZeroClears(t *testing.T) {
	app, _ := newTestApp(t)
	app.AddBox(1, 1, 1)

	if r := app.Select(0); !r.OK {
		t.Fatalf("Select(0): %s", r.Error)
	}
	if app.State().SelectedID != 0 {
		t.Error("selection should be cleared")
	}
}

func TestUnopenedSession(t *testing.T) {
	// startup never runs, so the session is never opened.
	k := document.New(sdfx.New(sdfx.WithMeshCells(16)))
	app := NewApp(testConfig(), k, nil)
	defer app.tracker.Close()

	r := app.AddBox(1, 1, 1)
	if r.OK {
		t.Fatal("mutation before startup must fail")
	}
	if len(app.State().Objects) != 0 {
		t.Error("state must stay empty")
	}
}

func TestEvaluateEmptySource(t *testing.T) {
	app, _ := newTestApp(t)
	result := app.Evaluate("")

	// Slices are non-nil so JSON serializes as [] not null.
	if result.Created == nil || result.Errors == nil {
		t.Fatalf("expected non-nil slices, got %+v", result)
	}
	if len(result.Created) != 0 || len(result.Errors) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	app, _ := newTestApp(t)

	result := app.Evaluate("(box :length 1\n(sphere")
	if len(result.Errors) == 0 {
		t.Fatal("expected eval error for unmatched parens")
	}
	if result.Errors[0].Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	if len(app.State().Objects) != 0 {
		t.Error("nothing should be created by a script that fails to parse")
	}
}

func TestWailsLevel(t *testing.T) {
	tests := []struct {
		level string
		want  wailslogger.LogLevel
	}{
		{"debug", wailslogger.DEBUG},
		{"info", wailslogger.INFO},
		{"warn", wailslogger.WARNING},
		{"error", wailslogger.ERROR},
	}
	for _, tt := range tests {
		l, err := config.ParseLevel(tt.level)
		if err != nil {
			t.Fatal(err)
		}
		if got := wailsLevel(l); got != tt.want {
			t.Errorf("wailsLevel(%s) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
