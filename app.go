package main

import (
	"context"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/chazu/burl/pkg/config"
	"github.com/chazu/burl/pkg/engine"
	"github.com/chazu/burl/pkg/gesture"
	"github.com/chazu/burl/pkg/kernel"
	"github.com/chazu/burl/pkg/session"
	"github.com/chazu/burl/pkg/tessellate"
)

// Events emitted to the frontend.
const (
	EventState    = "burl:state"
	EventIntent   = "burl:intent"
	EventActivate = "burl:activate"
)

// colorPalette is a default palette used to assign distinct colors to objects.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

func colorFor(id kernel.ObjectID) string {
	if id == 0 {
		return colorPalette[0]
	}
	return colorPalette[int(id-1)%len(colorPalette)]
}

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx     context.Context
	logger  *slog.Logger
	session *session.Synchronizer
	tracker *gesture.Tracker
	engine  *engine.Engine

	// emit sends an event to the frontend. Nil until startup.
	emit func(name string, data ...interface{})
}

// OpResult reports the outcome of a mutation. The frontend may show Error
// or ignore it; the state event is the source of truth either way.
type OpResult struct {
	OK    bool   `json:"ok"`
	ID    uint32 `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// ObjectData is the JSON-serializable view of one object.
type ObjectData struct {
	ID       uint32             `json:"id"`
	Kind     string             `json:"kind"`
	Params   map[string]float64 `json:"params"`
	Position [3]float64         `json:"position"`
	Rotation [4]float64         `json:"rotation"`
	Color    string             `json:"color"`
}

// StateData is the full editor state sent to the frontend.
type StateData struct {
	Objects    []ObjectData `json:"objects"`
	SelectedID uint32       `json:"selectedId"`
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	ID       uint32    `json:"id"`
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Color    string    `json:"color"`
	Error    string    `json:"error,omitempty"`
}

// IntentData is the payload of an intent event.
type IntentData struct {
	ID     uint32 `json:"id"`
	Intent string `json:"intent"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the console result returned to the frontend.
type EvalResult struct {
	Created []uint32        `json:"created"`
	Errors  []EvalErrorData `json:"errors"`
}

// NewApp creates a new App editing a fresh session on k. gestureOpts are
// passed to the pointer gesture tracker after the configured thresholds.
func NewApp(cfg config.Config, k kernel.Kernel, logger *slog.Logger, gestureOpts ...gesture.Option) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		logger: logger,
		engine: engine.NewEngine(
			engine.WithTimeout(cfg.Console.Timeout),
			engine.WithThresholds(thresholds(cfg)),
			engine.WithLogger(logger),
		),
	}
	a.session = session.New(k, session.WithLogger(logger))
	opts := append([]gesture.Option{
		gesture.WithThresholds(thresholds(cfg)),
		gesture.WithLogger(logger),
	}, gestureOpts...)
	a.tracker = gesture.NewTracker(a.handleIntent, opts...)
	a.session.Subscribe(func(snap session.Snapshot) {
		live := make(map[gesture.Target]bool, len(snap.Objects))
		for _, o := range snap.Objects {
			live[gesture.Target(o.ID)] = true
		}
		a.tracker.Retain(func(t gesture.Target) bool { return live[t] })
		a.send(EventState, stateData(snap))
	})
	return a
}

func thresholds(cfg config.Config) gesture.Thresholds {
	return gesture.Thresholds{
		LongPress:   cfg.Gesture.LongPress,
		ClickWindow: cfg.Gesture.ClickWindow,
	}
}

// startup is called by Wails on app startup. The context is saved
// so we can call Wails runtime methods later.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	a.emit = func(name string, data ...interface{}) {
		runtime.EventsEmit(ctx, name, data...)
	}
	if err := a.session.Open(); err != nil {
		a.logger.Error("open session", "err", err)
	}
}

// shutdown is called by Wails when the window closes.
func (a *App) shutdown(ctx context.Context) {
	a.tracker.Close()
}

func (a *App) send(name string, data interface{}) {
	if a.emit != nil {
		a.emit(name, data)
	}
}

func result(id kernel.ObjectID, err error) OpResult {
	if err != nil {
		return OpResult{Error: err.Error()}
	}
	return OpResult{OK: true, ID: uint32(id)}
}

// AddBox creates a box and selects it.
func (a *App) AddBox(length, width, height float64) OpResult {
	return result(a.session.CreateObject(session.Box(length, width, height)))
}

// AddCylinder creates a cylinder and selects it.
func (a *App) AddCylinder(radius, height float64) OpResult {
	return result(a.session.CreateObject(session.Cylinder(radius, height)))
}

// AddSphere creates a sphere and selects it.
func (a *App) AddSphere(radius float64) OpResult {
	return result(a.session.CreateObject(session.Sphere(radius)))
}

// SetParam changes one dimension, clamped to the editor's range.
func (a *App) SetParam(id uint32, name string, value float64) OpResult {
	oid := kernel.ObjectID(id)
	return result(oid, a.session.SetParam(oid, name, session.ClampUI(value)))
}

// UpdatePlacement commits a finished transform manipulation. rot is a
// quaternion in x, y, z, w order.
func (a *App) UpdatePlacement(id uint32, pos [3]float64, rot [4]float64) OpResult {
	oid := kernel.ObjectID(id)
	err := a.session.UpdatePlacement(oid,
		kernel.Vec3{X: pos[0], Y: pos[1], Z: pos[2]},
		kernel.Quat{X: rot[0], Y: rot[1], Z: rot[2], W: rot[3]})
	return result(oid, err)
}

// Delete removes an object.
func (a *App) Delete(id uint32) OpResult {
	oid := kernel.ObjectID(id)
	return result(oid, a.session.DeleteObject(oid))
}

// Select selects an object. Zero clears the selection.
func (a *App) Select(id uint32) OpResult {
	if id == 0 {
		a.session.ClearSelection()
		return OpResult{OK: true}
	}
	oid := kernel.ObjectID(id)
	return result(oid, a.session.Select(oid))
}

// State returns the current editor state.
func (a *App) State() StateData {
	return stateData(a.session.Snapshot())
}

// Mesh returns the tessellation of one object.
func (a *App) Mesh(id uint32) MeshData {
	oid := kernel.ObjectID(id)
	md := MeshData{ID: id, Color: colorFor(oid)}
	m, err := a.session.Mesh(oid)
	if err != nil {
		md.Error = err.Error()
		m = kernel.Decode(nil, nil)
	}
	md.Vertices, md.Normals, md.Indices = m.Vertices, m.Normals, m.Indices
	return md
}

// Meshes returns the tessellation of every object, in creation order.
func (a *App) Meshes() []MeshData {
	objs := a.session.Objects()
	out := make([]MeshData, 0, len(objs))
	for _, o := range objs {
		out = append(out, a.Mesh(uint32(o.ID)))
	}
	return out
}

// ExportSTL writes every object into one STL file at path.
func (a *App) ExportSTL(path string) OpResult {
	parts, err := tessellate.Tessellate(a.session)
	if err == nil {
		err = tessellate.SaveSTL(path, parts)
	}
	if err != nil {
		a.logger.Warn("export stl", "path", path, "err", err)
		return OpResult{Error: err.Error()}
	}
	return OpResult{OK: true}
}

// PointerDown forwards a pointer press on an object.
func (a *App) PointerDown(id uint32) { a.tracker.Down(gesture.Target(id)) }

// PointerUp forwards a pointer release on an object.
func (a *App) PointerUp(id uint32) { a.tracker.Up(gesture.Target(id)) }

// PointerLeave forwards the pointer leaving an object.
func (a *App) PointerLeave(id uint32) { a.tracker.Leave(gesture.Target(id)) }

// handleIntent applies a recognized gesture. It runs on the gesture timer
// goroutine for Select and LongPressDelete. Recognizers are torn down by
// the state subscription once their object leaves the mirror, so a
// rejected delete keeps the object's recognizer.
func (a *App) handleIntent(e gesture.Event) {
	if _, ok := a.session.Object(kernel.ObjectID(e.Target)); !ok {
		a.tracker.Remove(e.Target)
		a.logger.Debug("intent for missing object dropped", "intent", e.Intent.String(), "id", e.Target)
		return
	}
	if err := a.session.ApplyIntent(e); err != nil {
		a.logger.Warn("apply intent", "intent", e.Intent.String(), "id", e.Target, "err", err)
		return
	}
	a.send(EventIntent, IntentData{ID: uint32(e.Target), Intent: e.Intent.String()})
	if e.Intent == gesture.Activate {
		a.send(EventActivate, IntentData{ID: uint32(e.Target), Intent: e.Intent.String()})
	}
}

// Evaluate runs a console script against the current session.
func (a *App) Evaluate(source string) EvalResult {
	out := EvalResult{Created: []uint32{}, Errors: []EvalErrorData{}}

	res, evalErrs, err := a.engine.Evaluate(a.session, source)
	if err != nil {
		a.logger.Error("evaluate", "err", err)
		out.Errors = append(out.Errors, EvalErrorData{Message: err.Error()})
		return out
	}
	for _, id := range res.Created {
		out.Created = append(out.Created, uint32(id))
	}
	for _, e := range evalErrs {
		out.Errors = append(out.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
	}
	return out
}

func stateData(snap session.Snapshot) StateData {
	sd := StateData{Objects: make([]ObjectData, 0, len(snap.Objects)), SelectedID: uint32(snap.SelectedID)}
	for _, o := range snap.Objects {
		params := make(map[string]float64)
		for _, n := range session.ParamNames(o.Params.Kind) {
			params[n], _ = o.Params.Get(n)
		}
		pos, rot := o.Placement.Position, o.Placement.Orientation
		sd.Objects = append(sd.Objects, ObjectData{
			ID:       uint32(o.ID),
			Kind:     o.Params.Kind.String(),
			Params:   params,
			Position: [3]float64{pos.X, pos.Y, pos.Z},
			Rotation: [4]float64{rot.X, rot.Y, rot.Z, rot.W},
			Color:    colorFor(o.ID),
		})
	}
	return sd
}
