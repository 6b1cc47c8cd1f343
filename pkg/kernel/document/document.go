// Package document provides an in-process geometry kernel. It implements the
// kernel.Kernel entry points on top of any kernel.Modeler: it owns documents
// and their objects, validates parameters, and tessellates objects on demand.
package document

import (
	"log/slog"
	"math"
	"sync"

	"github.com/chazu/burl/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*Service)(nil)

// DefaultSegments is the circular resolution passed to modelers that build
// polygonal cylinders and spheres.
const DefaultSegments = 32

// shape distinguishes the object kinds a document can hold.
type shape int

const (
	shapeBox shape = iota
	shapeCylinder
	shapeSphere
)

func (s shape) String() string {
	switch s {
	case shapeBox:
		return "box"
	case shapeCylinder:
		return "cylinder"
	case shapeSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// slotsUsed is how many of the three positional parameter slots each
// shape reads. The rest are ignored.
func (s shape) slotsUsed() int {
	switch s {
	case shapeBox:
		return 3
	case shapeCylinder:
		return 2
	default:
		return 1
	}
}

// object is one kernel-owned solid with its cached tessellation.
type object struct {
	shape     shape
	params    [3]float64
	placement kernel.Placement

	mesh *kernel.Mesh // nil until requested, reset on change
}

// doc is a single document.
type doc struct {
	objects map[kernel.ObjectID]*object
	nextID  kernel.ObjectID
}

// Service is the in-process kernel. It is safe for concurrent use.
type Service struct {
	mu          sync.Mutex
	modeler     kernel.Modeler
	segments    int
	logger      *slog.Logger
	initialized bool
	docs        map[kernel.DocumentID]*doc
	nextDoc     kernel.DocumentID
}

// Option configures a Service.
type Option func(*Service)

// WithSegments sets the circular resolution for cylinders and spheres.
func WithSegments(n int) Option {
	return func(s *Service) {
		if n >= 3 {
			s.segments = n
		}
	}
}

// WithLogger sets the logger used for tessellation failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a kernel that builds geometry with m. Init must be called
// before any other entry point succeeds.
func New(m kernel.Modeler, opts ...Option) *Service {
	s := &Service{
		modeler:  m,
		segments: DefaultSegments,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init prepares the document store. Calling it again is harmless.
func (s *Service) Init() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.docs = make(map[kernel.DocumentID]*doc)
	s.nextDoc = 1
	s.initialized = true
}

// CreateDocument returns a new empty document, or 0 before Init.
func (s *Service) CreateDocument() kernel.DocumentID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return 0
	}
	id := s.nextDoc
	s.nextDoc++
	s.docs[id] = &doc{
		objects: make(map[kernel.ObjectID]*object),
		nextID:  1,
	}
	return id
}

// AddBox adds a box and returns its id, or 0 on failure.
func (s *Service) AddBox(d kernel.DocumentID, length, width, height float64) kernel.ObjectID {
	return s.add(d, shapeBox, [3]float64{length, width, height})
}

// AddCylinder adds a cylinder and returns its id, or 0 on failure.
func (s *Service) AddCylinder(d kernel.DocumentID, radius, height float64) kernel.ObjectID {
	return s.add(d, shapeCylinder, [3]float64{radius, height, 0})
}

// AddSphere adds a sphere and returns its id, or 0 on failure.
func (s *Service) AddSphere(d kernel.DocumentID, radius float64) kernel.ObjectID {
	return s.add(d, shapeSphere, [3]float64{radius, 0, 0})
}

func (s *Service) add(d kernel.DocumentID, sh shape, params [3]float64) kernel.ObjectID {
	if !validParams(sh, params) {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dc := s.doc(d)
	if dc == nil {
		return 0
	}
	id := dc.nextID
	dc.nextID++
	dc.objects[id] = &object{
		shape:     sh,
		params:    params,
		placement: kernel.DefaultPlacement(),
	}
	return id
}

// UpdateShapeParams replaces an object's dimensions. Slots the object's
// shape does not use are ignored.
func (s *Service) UpdateShapeParams(d kernel.DocumentID, id kernel.ObjectID, p1, p2, p3 float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj := s.object(d, id)
	if obj == nil {
		return false
	}
	params := [3]float64{p1, p2, p3}
	for i := obj.shape.slotsUsed(); i < 3; i++ {
		params[i] = 0
	}
	if !validParams(obj.shape, params) {
		return false
	}
	obj.params = params
	obj.mesh = nil
	return true
}

// UpdatePlacement moves and orients an object. The quaternion is
// normalized here; a zero or non-finite one is rejected.
func (s *Service) UpdatePlacement(d kernel.DocumentID, id kernel.ObjectID, px, py, pz, qx, qy, qz, qw float64) bool {
	pos := kernel.Vec3{X: px, Y: py, Z: pz}
	if !pos.IsFinite() {
		return false
	}
	q, ok := kernel.Quat{X: qx, Y: qy, Z: qz, W: qw}.Normalize()
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	obj := s.object(d, id)
	if obj == nil {
		return false
	}
	obj.placement = kernel.Placement{Position: pos, Orientation: q}
	obj.mesh = nil
	return true
}

// DeleteObject removes an object. Its id is never handed out again.
func (s *Service) DeleteObject(d kernel.DocumentID, id kernel.ObjectID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dc := s.doc(d)
	if dc == nil {
		return false
	}
	if _, ok := dc.objects[id]; !ok {
		return false
	}
	delete(dc.objects, id)
	return true
}

// GetMeshData returns the object's tessellation as interleaved
// position+normal floats, or an empty slice.
func (s *Service) GetMeshData(d kernel.DocumentID, id kernel.ObjectID) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mesh(d, id)
	if m == nil {
		return []float32{}
	}
	return m.Interleave()
}

// GetMeshIndices returns the object's triangle indices, or an empty slice.
func (s *Service) GetMeshIndices(d kernel.DocumentID, id kernel.ObjectID) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.mesh(d, id)
	if m == nil {
		return []uint32{}
	}
	out := make([]uint32, len(m.Indices))
	copy(out, m.Indices)
	return out
}

// doc returns the document or nil. Caller holds s.mu.
func (s *Service) doc(d kernel.DocumentID) *doc {
	if !s.initialized {
		return nil
	}
	return s.docs[d]
}

// object returns the object or nil. Caller holds s.mu.
func (s *Service) object(d kernel.DocumentID, id kernel.ObjectID) *object {
	dc := s.doc(d)
	if dc == nil {
		return nil
	}
	return dc.objects[id]
}

// mesh returns the cached tessellation, building it if needed.
// Caller holds s.mu.
func (s *Service) mesh(d kernel.DocumentID, id kernel.ObjectID) *kernel.Mesh {
	obj := s.object(d, id)
	if obj == nil {
		return nil
	}
	if obj.mesh != nil {
		return obj.mesh
	}

	m, err := s.tessellate(obj)
	if err != nil {
		s.logger.Warn("tessellation failed",
			"doc", d, "id", id, "shape", obj.shape.String(), "err", err)
		return nil
	}
	obj.mesh = m
	return m
}

func (s *Service) tessellate(obj *object) (*kernel.Mesh, error) {
	var (
		solid kernel.Solid
		err   error
	)
	switch obj.shape {
	case shapeBox:
		solid, err = s.modeler.Box(obj.params[0], obj.params[1], obj.params[2])
	case shapeCylinder:
		solid, err = s.modeler.Cylinder(obj.params[0], obj.params[1], s.segments)
	case shapeSphere:
		solid, err = s.modeler.Sphere(obj.params[0], s.segments)
	}
	if err != nil {
		return nil, err
	}
	return s.modeler.ToMesh(s.modeler.Place(solid, obj.placement))
}

// validParams reports whether every slot the shape uses is finite and
// strictly positive.
func validParams(sh shape, params [3]float64) bool {
	for i := 0; i < sh.slotsUsed(); i++ {
		v := params[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return true
}
