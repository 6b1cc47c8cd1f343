package kernel

import (
	"math"
	"reflect"
	"testing"
)

// --- Mesh helper method tests ---

func TestMeshVertexCount(t *testing.T) {
	tests := []struct {
		name     string
		vertices []float32
		want     int
	}{
		{"empty", nil, 0},
		{"one vertex", []float32{1, 2, 3}, 1},
		{"four vertices", []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices}
			if got := m.VertexCount(); got != tt.want {
				t.Errorf("VertexCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshTriangleCount(t *testing.T) {
	tests := []struct {
		name    string
		indices []uint32
		want    int
	}{
		{"empty", nil, 0},
		{"one triangle", []uint32{0, 1, 2}, 1},
		{"two triangles", []uint32{0, 1, 2, 2, 3, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Indices: tt.indices}
			if got := m.TriangleCount(); got != tt.want {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMeshIsEmpty(t *testing.T) {
	t.Run("empty mesh", func(t *testing.T) {
		m := &Mesh{}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for empty mesh, want true")
		}
	})
	t.Run("vertices without indices", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if !m.IsEmpty() {
			t.Error("IsEmpty() = false for mesh without indices, want true")
		}
	})
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, Indices: []uint32{0, 1, 2}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

// --- Decoder tests ---

// triangle is one triangle in the interleaved wire format, normals +Z.
var triangle = []float32{
	0, 0, 0, 0, 0, 1,
	1, 0, 0, 0, 0, 1,
	0, 1, 0, 0, 0, 1,
}

func TestDecodeDeinterleaves(t *testing.T) {
	data := []float32{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	m := Decode(data, []uint32{0, 1})

	wantV := []float32{1, 2, 3, 7, 8, 9}
	wantN := []float32{4, 5, 6, 10, 11, 12}
	if !reflect.DeepEqual(m.Vertices, wantV) {
		t.Errorf("Vertices = %v, want %v", m.Vertices, wantV)
	}
	if !reflect.DeepEqual(m.Normals, wantN) {
		t.Errorf("Normals = %v, want %v", m.Normals, wantN)
	}
	if !reflect.DeepEqual(m.Indices, []uint32{0, 1}) {
		t.Errorf("Indices = %v, want [0 1]", m.Indices)
	}
}

func TestDecodeDegenerate(t *testing.T) {
	tests := []struct {
		name string
		data []float32
	}{
		{"nil", nil},
		{"empty", []float32{}},
		{"one float", []float32{1}},
		{"five floats", []float32{1, 2, 3, 4, 5}},
		{"seven floats", []float32{1, 2, 3, 4, 5, 6, 7}},
		{"one vertex short", triangle[:len(triangle)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Decode(tt.data, []uint32{0, 1, 2})
			if len(m.Vertices) != 0 || len(m.Normals) != 0 || len(m.Indices) != 0 {
				t.Fatalf("Decode(%d floats) = %d/%d/%d, want empty mesh",
					len(tt.data), len(m.Vertices), len(m.Normals), len(m.Indices))
			}
			if m.Vertices == nil || m.Normals == nil || m.Indices == nil {
				t.Error("empty mesh should carry non-nil slices")
			}
		})
	}
}

func TestDecodeIndicesPassThrough(t *testing.T) {
	// Not a multiple of three and referencing a vertex that does not exist:
	// index validity is the kernel's business.
	idx := []uint32{0, 1, 2, 7}
	m := Decode(triangle, idx)
	if !reflect.DeepEqual(m.Indices, idx) {
		t.Errorf("Indices = %v, want %v", m.Indices, idx)
	}
}

func TestDecodeIsPure(t *testing.T) {
	data := append([]float32(nil), triangle...)
	idx := []uint32{0, 1, 2}

	a := Decode(data, idx)
	b := Decode(data, idx)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("decoding twice gave different meshes: %+v vs %+v", a, b)
	}
	if a.VertexCount() != 3 || len(a.Normals) != 9 {
		t.Errorf("got %d vertices, %d normal floats, want 3 and 9", a.VertexCount(), len(a.Normals))
	}

	// The output must not alias the inputs.
	data[0] = 99
	idx[0] = 99
	if a.Vertices[0] != 0 || a.Indices[0] != 0 {
		t.Error("decoded mesh aliases its input buffers")
	}
}

func TestInterleaveRoundTrip(t *testing.T) {
	m := Decode(triangle, []uint32{0, 1, 2})
	if got := m.Interleave(); !reflect.DeepEqual(got, triangle) {
		t.Errorf("Interleave() = %v, want %v", got, triangle)
	}
}

// --- Placement tests ---

func TestQuatNormalize(t *testing.T) {
	q, ok := Quat{W: 2}.Normalize()
	if !ok || q != IdentityQuat {
		t.Errorf("Normalize(w=2) = %v, %v; want identity, true", q, ok)
	}
	if _, ok := (Quat{}).Normalize(); ok {
		t.Error("Normalize(zero) should fail")
	}
	if _, ok := (Quat{X: math.NaN(), W: 1}).Normalize(); ok {
		t.Error("Normalize(NaN) should fail")
	}
}

func TestQuatEuler(t *testing.T) {
	half := math.Sqrt2 / 2
	tests := []struct {
		name    string
		q       Quat
		x, y, z float64
	}{
		{"identity", IdentityQuat, 0, 0, 0},
		{"90 about x", Quat{X: half, W: half}, math.Pi / 2, 0, 0},
		{"90 about y", Quat{Y: half, W: half}, 0, math.Pi / 2, 0},
		{"90 about z", Quat{Z: half, W: half}, 0, 0, math.Pi / 2},
	}
	const eps = 1e-9
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := tt.q.Euler()
			if math.Abs(x-tt.x) > eps || math.Abs(y-tt.y) > eps || math.Abs(z-tt.z) > eps {
				t.Errorf("Euler() = (%v, %v, %v), want (%v, %v, %v)", x, y, z, tt.x, tt.y, tt.z)
			}
		})
	}
}

func TestDefaultPlacement(t *testing.T) {
	p := DefaultPlacement()
	if !p.IsIdentity() {
		t.Errorf("DefaultPlacement() = %+v, want identity", p)
	}
	p.Position.X = 1
	if p.IsIdentity() {
		t.Error("moved placement reported as identity")
	}
}

// --- Compile-time interface check with a stub modeler ---

// stubSolid is a minimal Solid implementation for testing.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

// stubModeler is a minimal Modeler implementation that proves the
// interface is satisfiable.
type stubModeler struct{}

func (stubModeler) Box(l, w, h float64) (Solid, error) {
	return &stubSolid{
		minBB: [3]float64{-l / 2, -w / 2, -h / 2},
		maxBB: [3]float64{l / 2, w / 2, h / 2},
	}, nil
}

func (stubModeler) Cylinder(r, h float64, _ int) (Solid, error) {
	return &stubSolid{
		minBB: [3]float64{-r, -r, -h / 2},
		maxBB: [3]float64{r, r, h / 2},
	}, nil
}

func (stubModeler) Sphere(r float64, _ int) (Solid, error) {
	return &stubSolid{
		minBB: [3]float64{-r, -r, -r},
		maxBB: [3]float64{r, r, r},
	}, nil
}

func (stubModeler) Place(s Solid, _ Placement) Solid { return s }

func (stubModeler) ToMesh(_ Solid) (*Mesh, error) {
	return emptyMesh(), nil
}

var _ Solid = (*stubSolid)(nil)
var _ Modeler = stubModeler{}

func TestStubModelerBoxBoundingBox(t *testing.T) {
	var m Modeler = stubModeler{}
	s, err := m.Box(10, 20, 30)
	if err != nil {
		t.Fatalf("Box() error = %v", err)
	}
	min, max := s.BoundingBox()
	if min != [3]float64{-5, -10, -15} {
		t.Errorf("Box min = %v, want [-5 -10 -15]", min)
	}
	if max != [3]float64{5, 10, 15} {
		t.Errorf("Box max = %v, want [5 10 15]", max)
	}
}
