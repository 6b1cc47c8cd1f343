package kernel

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices references vertices.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
}

// floatsPerVertex is the stride of the interleaved kernel wire format:
// position.xyz followed by normal.xyz.
const floatsPerVertex = 6

// emptyMesh returns a mesh with non-nil, zero-length slices so it
// serializes as empty arrays rather than null.
func emptyMesh() *Mesh {
	return &Mesh{
		Vertices: []float32{},
		Normals:  []float32{},
		Indices:  []uint32{},
	}
}

// Decode de-interleaves a kernel mesh buffer. data holds six floats per
// vertex (position then normal); indices are passed through untouched.
//
// A data buffer that is empty or not a multiple of six decodes to an empty
// mesh with no indices: shapes with degenerate parameters are expected to
// produce no geometry, and a partial mesh is never returned.
func Decode(data []float32, indices []uint32) *Mesh {
	if len(data) == 0 || len(data)%floatsPerVertex != 0 {
		return emptyMesh()
	}

	n := len(data) / floatsPerVertex
	m := &Mesh{
		Vertices: make([]float32, n*3),
		Normals:  make([]float32, n*3),
		Indices:  make([]uint32, len(indices)),
	}
	for i := 0; i < n; i++ {
		src := data[i*floatsPerVertex : (i+1)*floatsPerVertex]
		copy(m.Vertices[i*3:i*3+3], src[0:3])
		copy(m.Normals[i*3:i*3+3], src[3:6])
	}
	copy(m.Indices, indices)
	return m
}

// Interleave produces the kernel wire format for m: for every vertex its
// position followed by its normal. It is the inverse of Decode.
func (m *Mesh) Interleave() []float32 {
	n := m.VertexCount()
	if len(m.Normals) < n*3 {
		return []float32{}
	}
	out := make([]float32, 0, n*floatsPerVertex)
	for i := 0; i < n; i++ {
		out = append(out, m.Vertices[i*3:i*3+3]...)
		out = append(out, m.Normals[i*3:i*3+3]...)
	}
	return out
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has nothing to draw.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Indices) == 0
}
