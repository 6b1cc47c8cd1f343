package kernel

// Solid is an opaque handle to a modeler solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Modeler builds and tessellates solids. Backends (sdfx, manifold) implement
// it; the in-process document kernel sits on top of one.
//
// Primitives are centered at the origin; the cylinder axis is Z.
type Modeler interface {
	// Primitives
	Box(length, width, height float64) (Solid, error)
	Cylinder(radius, height float64, segments int) (Solid, error)
	Sphere(radius float64, segments int) (Solid, error)

	// Place rotates s by p.Orientation about the origin, then moves it to
	// p.Position. p.Orientation must be unit length.
	Place(s Solid, p Placement) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
