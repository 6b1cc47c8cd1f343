// Package kernel defines the boundary to the geometry kernel. The kernel owns
// the true state of every document and object; callers only learn about
// success or failure through the return values of its entry points.
//
// The package also carries the value types shared across that boundary
// (placements, meshes) and the Modeler interface that solid-modeling backends
// (sdfx, manifold) implement so an in-process kernel can be built on them.
package kernel

// DocumentID is a kernel-assigned document handle. Zero is never a valid document.
type DocumentID uint32

// ObjectID is a kernel-assigned object handle, unique within a document for
// its whole lifetime. Zero signals a failed add.
type ObjectID uint32

// Kernel is the fixed-contract entry point set of the geometry kernel.
// Failure is reported only through zero ids, false, or empty slices.
type Kernel interface {
	// Init performs one-time setup and must be called before anything else.
	Init()
	CreateDocument() DocumentID

	// Primitives
	AddBox(doc DocumentID, length, width, height float64) ObjectID
	AddCylinder(doc DocumentID, radius, height float64) ObjectID
	AddSphere(doc DocumentID, radius float64) ObjectID

	// Mutation. Shape parameters share one positional entry point; the
	// meaning of p1..p3 depends on the object's kind.
	UpdateShapeParams(doc DocumentID, id ObjectID, p1, p2, p3 float64) bool
	UpdatePlacement(doc DocumentID, id ObjectID, px, py, pz, qx, qy, qz, qw float64) bool
	DeleteObject(doc DocumentID, id ObjectID) bool

	// Mesh output. GetMeshData returns interleaved position+normal floats,
	// six per vertex.
	GetMeshData(doc DocumentID, id ObjectID) []float32
	GetMeshIndices(doc DocumentID, id ObjectID) []uint32
}
