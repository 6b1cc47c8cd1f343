// Package tessellate walks a session's objects and produces triangle meshes
// using the session's geometry kernel. One mesh is produced per object, and
// the whole scene can be written out as a single STL file.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/burl/pkg/kernel"
	"github.com/chazu/burl/pkg/session"
)

// ErrEmptyScene is returned when there are no triangles to export.
var ErrEmptyScene = errors.New("tessellate: scene has no triangles")

// Source is the read side of a session.
type Source interface {
	Objects() []session.Object
	Mesh(id kernel.ObjectID) (*kernel.Mesh, error)
}

// Part is the tessellation of one object.
type Part struct {
	ID   kernel.ObjectID
	Kind session.Kind
	Mesh *kernel.Mesh
}

// Tessellate produces one mesh per object, in creation order. The source
// is read only.
func Tessellate(src Source) ([]Part, error) {
	objs := src.Objects()
	parts := make([]Part, 0, len(objs))
	for _, o := range objs {
		m, err := src.Mesh(o.ID)
		if err != nil {
			return nil, fmt.Errorf("tessellate object %d: %w", o.ID, err)
		}
		parts = append(parts, Part{ID: o.ID, Kind: o.Params.Kind, Mesh: m})
	}
	return parts, nil
}

// Triangles flattens the parts into world-space triangles. Index triples
// that point past the vertex data are skipped.
func Triangles(parts []Part) []*sdf.Triangle3 {
	var out []*sdf.Triangle3
	for _, p := range parts {
		if p.Mesh == nil || p.Mesh.IsEmpty() {
			continue
		}
		out = append(out, meshTriangles(p.Mesh)...)
	}
	return out
}

func meshTriangles(m *kernel.Mesh) []*sdf.Triangle3 {
	n := uint32(m.VertexCount())
	tris := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if a >= n || b >= n || c >= n {
			continue
		}
		tris = append(tris, &sdf.Triangle3{vertex(m, a), vertex(m, b), vertex(m, c)})
	}
	return tris
}

func vertex(m *kernel.Mesh, i uint32) v3.Vec {
	return v3.Vec{
		X: float64(m.Vertices[i*3]),
		Y: float64(m.Vertices[i*3+1]),
		Z: float64(m.Vertices[i*3+2]),
	}
}

// SaveSTL writes every part into one STL file at path.
func SaveSTL(path string, parts []Part) error {
	tris := Triangles(parts)
	if len(tris) == 0 {
		return ErrEmptyScene
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return fmt.Errorf("save stl: %w", err)
	}
	return nil
}
