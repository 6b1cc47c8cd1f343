package session

import (
	"slices"
	"sync"

	"github.com/chazu/burl/pkg/kernel"
)

// Call is one recorded kernel entry point invocation.
type Call struct {
	Op   string
	Doc  kernel.DocumentID
	ID   kernel.ObjectID
	Args []float64
}

// Recorder wraps a kernel and records every call made through it.
type Recorder struct {
	kernel.Kernel

	mu    sync.Mutex
	calls []Call
}

var _ kernel.Kernel = (*Recorder)(nil)

// NewRecorder returns a Recorder forwarding to k.
func NewRecorder(k kernel.Kernel) *Recorder {
	return &Recorder{Kernel: k}
}

// Calls returns the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Last returns the most recent call named op.
func (r *Recorder) Last(op string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].Op == op {
			return r.calls[i], true
		}
	}
	return Call{}, false
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *Recorder) Init() {
	r.record(Call{Op: "Init"})
	r.Kernel.Init()
}

func (r *Recorder) CreateDocument() kernel.DocumentID {
	r.record(Call{Op: "CreateDocument"})
	return r.Kernel.CreateDocument()
}

func (r *Recorder) AddBox(doc kernel.DocumentID, length, width, height float64) kernel.ObjectID {
	r.record(Call{Op: "AddBox", Doc: doc, Args: []float64{length, width, height}})
	return r.Kernel.AddBox(doc, length, width, height)
}

func (r *Recorder) AddCylinder(doc kernel.DocumentID, radius, height float64) kernel.ObjectID {
	r.record(Call{Op: "AddCylinder", Doc: doc, Args: []float64{radius, height}})
	return r.Kernel.AddCylinder(doc, radius, height)
}

func (r *Recorder) AddSphere(doc kernel.DocumentID, radius float64) kernel.ObjectID {
	r.record(Call{Op: "AddSphere", Doc: doc, Args: []float64{radius}})
	return r.Kernel.AddSphere(doc, radius)
}

func (r *Recorder) UpdateShapeParams(doc kernel.DocumentID, id kernel.ObjectID, p1, p2, p3 float64) bool {
	r.record(Call{Op: "UpdateShapeParams", Doc: doc, ID: id, Args: []float64{p1, p2, p3}})
	return r.Kernel.UpdateShapeParams(doc, id, p1, p2, p3)
}

func (r *Recorder) UpdatePlacement(doc kernel.DocumentID, id kernel.ObjectID, px, py, pz, qx, qy, qz, qw float64) bool {
	r.record(Call{Op: "UpdatePlacement", Doc: doc, ID: id, Args: []float64{px, py, pz, qx, qy, qz, qw}})
	return r.Kernel.UpdatePlacement(doc, id, px, py, pz, qx, qy, qz, qw)
}

func (r *Recorder) DeleteObject(doc kernel.DocumentID, id kernel.ObjectID) bool {
	r.record(Call{Op: "DeleteObject", Doc: doc, ID: id})
	return r.Kernel.DeleteObject(doc, id)
}

func (r *Recorder) GetMeshData(doc kernel.DocumentID, id kernel.ObjectID) []float32 {
	r.record(Call{Op: "GetMeshData", Doc: doc, ID: id})
	return r.Kernel.GetMeshData(doc, id)
}

func (r *Recorder) GetMeshIndices(doc kernel.DocumentID, id kernel.ObjectID) []uint32 {
	r.record(Call{Op: "GetMeshIndices", Doc: doc, ID: id})
	return r.Kernel.GetMeshIndices(doc, id)
}
