package kernel

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
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
	square := []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0}
	tests := []struct {
		name     string
		vertices []float32
		indices  []uint32
		want     int
	}{
		{"empty", nil, nil, 0},
		{"one triangle", square, []uint32{0, 1, 2}, 1},
		{"two triangles", square, []uint32{0, 1, 2, 2, 3, 0}, 2},
		{"unindexed", append(append([]float32{}, square...), square[:6]...), nil, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Vertices: tt.vertices, Indices: tt.indices}
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
	t.Run("non-empty mesh", func(t *testing.T) {
		m := &Mesh{Vertices: []float32{1, 2, 3}}
		if m.IsEmpty() {
			t.Error("IsEmpty() = true for non-empty mesh, want false")
		}
	})
}

func TestMeshTriangle(t *testing.T) {
	m := &Mesh{Indices: []uint32{}}
	a := m.AppendVertex(mgl32.Vec3{0, 0, 0})
	b := m.AppendVertex(mgl32.Vec3{1, 0, 0})
	c := m.AppendVertex(mgl32.Vec3{0, 1, 0})
	m.Indices = append(m.Indices, c, b, a)

	if !m.Indexed() {
		t.Fatal("mesh with indices should be indexed")
	}
	p0, p1, p2 := m.Triangle(0)
	if p0 != (mgl32.Vec3{0, 1, 0}) || p1 != (mgl32.Vec3{1, 0, 0}) || p2 != (mgl32.Vec3{0, 0, 0}) {
		t.Errorf("Triangle(0) = %v %v %v", p0, p1, p2)
	}

	flat := &Mesh{Vertices: m.Vertices}
	if flat.Indexed() {
		t.Fatal("mesh without indices should be unindexed")
	}
	ia, ib, ic := flat.TriangleIndices(0)
	if ia != 0 || ib != 1 || ic != 2 {
		t.Errorf("TriangleIndices(0) = %d %d %d", ia, ib, ic)
	}
}

func TestMeshNormal(t *testing.T) {
	m := &Mesh{}
	m.AppendVertex(mgl32.Vec3{1, 2, 3})
	m.AppendNormal(mgl32.Vec3{0, 1, 0})
	if got := m.Normal(0); got != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("Normal(0) = %v", got)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeShared, ModePerCube} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("triangles"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
