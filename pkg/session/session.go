// Package session keeps an editor-side mirror of the objects owned by a
// geometry kernel. Every mutation is sent to the kernel first; the mirror
// only changes after the kernel reports success, so it never holds state
// the kernel does not.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/chazu/burl/pkg/kernel"
)

var (
	// ErrKernelUnavailable is returned when the session has no initialized
	// kernel or no document.
	ErrKernelUnavailable = errors.New("kernel unavailable")
	// ErrKernelRejected is returned when the kernel reports failure.
	ErrKernelRejected = errors.New("kernel rejected operation")
	// ErrUnknownObject is returned for an id that is not in the mirror.
	ErrUnknownObject = errors.New("unknown object")
	// ErrKindMismatch is returned when new params change an object's kind.
	ErrKindMismatch = errors.New("kind mismatch")
	// ErrInvalidParams is returned for a missing kind or a dimension that
	// is not finite and positive. The kernel is not called.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrUnknownParam is returned for a parameter name the kind does not use.
	ErrUnknownParam = errors.New("unknown parameter")
)

// Object is the mirrored state of one kernel object.
type Object struct {
	ID        kernel.ObjectID  `json:"id"`
	Params    Params           `json:"params"`
	Placement kernel.Placement `json:"placement"`
}

// Snapshot is a copy of the session state at one point in time. Revision
// grows by one with every committed change.
type Snapshot struct {
	Session    string            `json:"session"`
	Revision   uint64            `json:"revision"`
	Document   kernel.DocumentID `json:"document"`
	Objects    []Object          `json:"objects"`
	SelectedID kernel.ObjectID   `json:"selectedId"`
}

// Selected returns the selected object, if any.
func (s Snapshot) Selected() (Object, bool) {
	if s.SelectedID == 0 {
		return Object{}, false
	}
	for _, o := range s.Objects {
		if o.ID == s.SelectedID {
			return o, true
		}
	}
	return Object{}, false
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Synchronizer) {
		if id != "" {
			s.id = id
		}
	}
}

// Synchronizer is an editing session bound to one kernel document.
// It is safe for concurrent use; mutations are serialized, and the lock is
// held across the kernel call and the mirror update.
type Synchronizer struct {
	mu       sync.Mutex
	k        kernel.Kernel
	id       string
	logger   *slog.Logger
	doc      kernel.DocumentID
	objects  []Object
	selected kernel.ObjectID
	rev      uint64

	subMu   sync.Mutex
	subs    map[uint64]func(Snapshot)
	nextSub uint64

	// Delivery state, guarded by deliverMu. One goroutine at a time fans
	// out snapshots; the others leave theirs in pending and return.
	deliverMu  sync.Mutex
	delivering bool
	pending    *Snapshot
	delivered  uint64
}

// New returns an unbound session over k. Call Open before mutating.
func New(k kernel.Kernel, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		k:      k,
		id:     uuid.NewString(),
		logger: slog.Default(),
		subs:   make(map[uint64]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id)
	return s
}

// ID returns the session id.
func (s *Synchronizer) ID() string { return s.id }

// Open initializes the kernel and creates the session's document.
func (s *Synchronizer) Open() error {
	s.mu.Lock()
	if s.k == nil {
		s.mu.Unlock()
		return fmt.Errorf("open: no kernel: %w", ErrKernelUnavailable)
	}
	s.k.Init()
	doc := s.k.CreateDocument()
	if doc == 0 {
		s.mu.Unlock()
		s.logger.Warn("kernel refused document")
		return fmt.Errorf("open: create document: %w", ErrKernelUnavailable)
	}
	s.doc = doc
	s.objects = nil
	s.selected = 0
	snap := s.commitLocked()
	s.mu.Unlock()

	s.logger.Info("session opened", "document", doc)
	s.notify(snap)
	return nil
}

// Bound reports whether the session has a document to work on.
func (s *Synchronizer) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc != 0
}

// CreateObject adds a primitive in the kernel and, on success, appends it
// to the mirror with the default placement and selects it.
func (s *Synchronizer) CreateObject(p Params) (kernel.ObjectID, error) {
	s.mu.Lock()
	if s.doc == 0 {
		s.mu.Unlock()
		return 0, fmt.Errorf("create %s: %w", p.Kind, ErrKernelUnavailable)
	}
	if err := p.Validate(); err != nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("create %s: %w", p.Kind, err)
	}

	var id kernel.ObjectID
	switch p.Kind {
	case KindBox:
		id = s.k.AddBox(s.doc, p.Length, p.Width, p.Height)
	case KindCylinder:
		id = s.k.AddCylinder(s.doc, p.Radius, p.Height)
	case KindSphere:
		id = s.k.AddSphere(s.doc, p.Radius)
	}
	if id == 0 {
		s.mu.Unlock()
		s.logger.Warn("kernel rejected add", "op", "create", "kind", p.Kind.String())
		return 0, fmt.Errorf("create %s: %w", p.Kind, ErrKernelRejected)
	}

	s.objects = append(s.objects, Object{ID: id, Params: p, Placement: kernel.DefaultPlacement()})
	s.selected = id
	snap := s.commitLocked()
	s.mu.Unlock()

	s.logger.Debug("object created", "op", "create", "id", id, "kind", p.Kind.String())
	s.notify(snap)
	return id, nil
}

// UpdateParams replaces an object's dimensions. The kind must not change.
func (s *Synchronizer) UpdateParams(id kernel.ObjectID, p Params) error {
	s.mu.Lock()
	if s.doc == 0 {
		s.mu.Unlock()
		return fmt.Errorf("update params %d: %w", id, ErrKernelUnavailable)
	}
	snap, err := s.updateParamsLocked(id, p)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snap)
	return nil
}

// SetParam changes one named dimension of an object, keeping the others.
func (s *Synchronizer) SetParam(id kernel.ObjectID, name string, value float64) error {
	s.mu.Lock()
	if s.doc == 0 {
		s.mu.Unlock()
		return fmt.Errorf("set %s on %d: %w", name, id, ErrKernelUnavailable)
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("set %s on %d: %w", name, id, ErrUnknownObject)
	}
	p, err := s.objects[i].Params.With(name, value)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("set param on %d: %w", id, err)
	}
	snap, err := s.updateParamsLocked(id, p)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snap)
	return nil
}

// updateParamsLocked runs the kernel update and commits it. Caller holds
// s.mu and has checked that the session is bound.
func (s *Synchronizer) updateParamsLocked(id kernel.ObjectID, p Params) (Snapshot, error) {
	i := s.indexLocked(id)
	if i < 0 {
		return Snapshot{}, fmt.Errorf("update params %d: %w", id, ErrUnknownObject)
	}
	if cur := s.objects[i].Params.Kind; cur != p.Kind {
		return Snapshot{}, fmt.Errorf("update params %d: %s to %s: %w", id, cur, p.Kind, ErrKindMismatch)
	}
	if err := p.Validate(); err != nil {
		return Snapshot{}, fmt.Errorf("update params %d: %w", id, err)
	}

	slots := p.Slots()
	if !s.k.UpdateShapeParams(s.doc, id, slots[0], slots[1], slots[2]) {
		s.logger.Warn("kernel rejected update", "op", "update_params", "id", id)
		return Snapshot{}, fmt.Errorf("update params %d: %w", id, ErrKernelRejected)
	}

	s.objects[i].Params = p
	s.logger.Debug("params updated", "op", "update_params", "id", id)
	return s.commitLocked(), nil
}

// UpdatePlacement moves and rotates an object in one kernel call.
// The orientation is passed through as given; the kernel normalizes it.
func (s *Synchronizer) UpdatePlacement(id kernel.ObjectID, position kernel.Vec3, orientation kernel.Quat) error {
	s.mu.Lock()
	if s.doc == 0 {
		s.mu.Unlock()
		return fmt.Errorf("update placement %d: %w", id, ErrKernelUnavailable)
	}
	if !position.IsFinite() || !orientation.IsFinite() {
		s.mu.Unlock()
		return fmt.Errorf("update placement %d: non-finite placement: %w", id, ErrInvalidParams)
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("update placement %d: %w", id, ErrUnknownObject)
	}

	ok := s.k.UpdatePlacement(s.doc, id,
		position.X, position.Y, position.Z,
		orientation.X, orientation.Y, orientation.Z, orientation.W)
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("kernel rejected update", "op", "update_placement", "id", id)
		return fmt.Errorf("update placement %d: %w", id, ErrKernelRejected)
	}

	s.objects[i].Placement = kernel.Placement{Position: position, Orientation: orientation}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.logger.Debug("placement updated", "op", "update_placement", "id", id)
	s.notify(snap)
	return nil
}

// DeleteObject removes an object from the kernel and then from the mirror,
// clearing the selection if it pointed at the object.
func (s *Synchronizer) DeleteObject(id kernel.ObjectID) error {
	s.mu.Lock()
	if s.doc == 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete %d: %w", id, ErrKernelUnavailable)
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("delete %d: %w", id, ErrUnknownObject)
	}
	if !s.k.DeleteObject(s.doc, id) {
		s.mu.Unlock()
		s.logger.Warn("kernel rejected delete", "op", "delete", "id", id)
		return fmt.Errorf("delete %d: %w", id, ErrKernelRejected)
	}

	s.objects = slices.Delete(s.objects, i, i+1)
	if s.selected == id {
		s.selected = 0
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.logger.Debug("object deleted", "op", "delete", "id", id)
	s.notify(snap)
	return nil
}

// Select makes id the selected object. The kernel is not involved.
func (s *Synchronizer) Select(id kernel.ObjectID) error {
	s.mu.Lock()
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("select %d: %w", id, ErrUnknownObject)
	}
	changed := s.selected != id
	s.selected = id
	var snap Snapshot
	if changed {
		snap = s.commitLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
	return nil
}

// ClearSelection deselects whatever is selected.
func (s *Synchronizer) ClearSelection() {
	s.mu.Lock()
	changed := s.selected != 0
	s.selected = 0
	var snap Snapshot
	if changed {
		snap = s.commitLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
}

// Objects returns a copy of the mirrored objects in creation order.
func (s *Synchronizer) Objects() []Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.objects)
}

// Object returns the mirrored object with the given id.
func (s *Synchronizer) Object(id kernel.ObjectID) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.objects[i], true
	}
	return Object{}, false
}

// SelectedID returns the selected object id, or 0.
func (s *Synchronizer) SelectedID() kernel.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Selected returns the selected object, if any.
func (s *Synchronizer) Selected() (Object, bool) {
	return s.Snapshot().Selected()
}

// Snapshot returns a copy of the full session state.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Mesh fetches and decodes the current tessellation of a mirrored object.
// A kernel that returns nothing, or malformed data, yields an empty mesh.
func (s *Synchronizer) Mesh(id kernel.ObjectID) (*kernel.Mesh, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == 0 {
		return nil, fmt.Errorf("mesh %d: %w", id, ErrKernelUnavailable)
	}
	if s.indexLocked(id) < 0 {
		return nil, fmt.Errorf("mesh %d: %w", id, ErrUnknownObject)
	}
	data := s.k.GetMeshData(s.doc, id)
	indices := s.k.GetMeshIndices(s.doc, id)
	return kernel.Decode(data, indices), nil
}

// Subscribe registers fn to receive snapshots of committed changes, in
// revision order and one call at a time. fn runs without the session lock
// held, usually on the goroutine that made the change; when changes race,
// intermediate snapshots may be skipped but the newest is always delivered.
// The returned func unregisters it.
func (s *Synchronizer) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	key := s.nextSub
	s.subs[key] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, key)
	}
}

// notify hands snap to the subscribers. Deliveries never overlap and
// never go backwards: if another goroutine is already delivering, snap is
// left for it and only the newest pending snapshot is delivered next.
func (s *Synchronizer) notify(snap Snapshot) {
	s.deliverMu.Lock()
	if s.pending == nil || snap.Revision > s.pending.Revision {
		s.pending = &snap
	}
	if s.delivering {
		s.deliverMu.Unlock()
		return
	}
	s.delivering = true
	locked := true
	defer func() {
		if !locked {
			s.deliverMu.Lock()
		}
		s.delivering = false
		s.deliverMu.Unlock()
	}()

	for s.pending != nil {
		next := *s.pending
		s.pending = nil
		if next.Revision <= s.delivered {
			continue
		}
		s.delivered = next.Revision
		s.deliverMu.Unlock()
		locked = false
		s.fanOut(next)
		s.deliverMu.Lock()
		locked = true
	}
}

func (s *Synchronizer) fanOut(snap Snapshot) {
	s.subMu.Lock()
	keys := make([]uint64, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fns := make([]func(Snapshot), 0, len(keys))
	for _, k := range keys {
		fns = append(fns, s.subs[k])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Caller holds s.mu.
func (s *Synchronizer) indexLocked(id kernel.ObjectID) int {
	if id == 0 {
		return -1
	}
	return slices.IndexFunc(s.objects, func(o Object) bool { return o.ID == id })
}

// commitLocked bumps the revision and returns the new state.
// Caller holds s.mu.
func (s *Synchronizer) commitLocked() Snapshot {
	s.rev++
	return s.snapshotLocked()
}

// Caller holds s.mu.
func (s *Synchronizer) snapshotLocked() Snapshot {
	return Snapshot{
		Session:    s.id,
		Revision:   s.rev,
		Document:   s.doc,
		Objects:    slices.Clone(s.objects),
		SelectedID: s.selected,
	}
}
