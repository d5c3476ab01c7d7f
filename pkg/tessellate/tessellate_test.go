package tessellate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/isomesh/pkg/density"
	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/chazu/isomesh/pkg/lattice"
	"github.com/chazu/isomesh/pkg/tessellate"
	"github.com/go-gl/mathgl/mgl32"
)

// sampledChunk builds one chunk of n^3 unit cubes and samples f into it.
func sampledChunk(t *testing.T, n uint32, f density.Field, iso float32) *lattice.Chunk {
	t.Helper()
	c, err := lattice.NewChunk(lattice.Size{}, lattice.Size{X: n, Y: n, Z: n}, 1)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	rep, err := density.Sample(context.Background(), c, f, iso)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(rep.Anomalies) != 0 {
		t.Fatalf("unexpected anomalies: %v", rep.Anomalies)
	}
	return c
}

// flatPlane is isolevel-eps below y=T and isolevel+eps above.
func flatPlane(iso, eps, threshold float32) density.Field {
	return density.StepY{Threshold: threshold, Below: iso - eps, Above: iso + eps}
}

func TestFlatPlane(t *testing.T) {
	const (
		iso       = 0.0
		eps       = 0.25
		threshold = 1.5
	)
	for _, mode := range []kernel.Mode{kernel.ModeShared, kernel.ModePerCube} {
		t.Run(mode.String(), func(t *testing.T) {
			c := sampledChunk(t, 4, flatPlane(iso, eps, threshold), iso)
			m, st, err := tessellate.Tessellate(context.Background(), c, iso, mode)
			if err != nil {
				t.Fatalf("Tessellate: %v", err)
			}
			if m.Mode != mode {
				t.Errorf("mesh mode = %v, want %v", m.Mode, mode)
			}
			// One layer of 4x4 cubes, two triangles each.
			if st.Triangles != 32 || m.TriangleCount() != 32 {
				t.Errorf("triangles = %d (stats %d), want 32", m.TriangleCount(), st.Triangles)
			}
			if st.ActiveCubes != 16 || st.Cubes != 64 {
				t.Errorf("active cubes %d of %d, want 16 of 64", st.ActiveCubes, st.Cubes)
			}
			for i := 0; i < m.VertexCount(); i++ {
				if y := m.Vertex(i).Y(); mgl32.Abs(y-threshold) > eps {
					t.Errorf("vertex %d at y=%v, want within %v of %v", i, y, eps, threshold)
				}
			}
			if len(m.Normals) != len(m.Vertices) {
				t.Fatalf("normals length %d != vertices length %d", len(m.Normals), len(m.Vertices))
			}
			// Inside is below, so every normal points up.
			for i := 0; i < m.VertexCount(); i++ {
				if n := m.Normal(i); !n.ApproxEqual(mgl32.Vec3{0, 1, 0}) {
					t.Fatalf("normal %d = %v, want +y", i, n)
				}
			}
		})
	}
}

func TestSharedModeWelds(t *testing.T) {
	c := sampledChunk(t, 4, flatPlane(0, 0.25, 1.5), 0)

	shared, st, err := tessellate.Tessellate(context.Background(), c, 0, kernel.ModeShared)
	if err != nil {
		t.Fatal(err)
	}
	if !shared.Indexed() {
		t.Fatal("shared mesh must be indexed")
	}
	// One vertex per vertical lattice edge crossing y=1.5.
	if shared.VertexCount() != 25 {
		t.Errorf("welded vertex count = %d, want 25", shared.VertexCount())
	}
	if st.RawVertices != 96 || st.Vertices != 25 {
		t.Errorf("stats raw %d welded %d, want 96 and 25", st.RawVertices, st.Vertices)
	}
	seen := make(map[mgl32.Vec3]bool)
	for i := 0; i < shared.VertexCount(); i++ {
		v := shared.Vertex(i)
		if seen[v] {
			t.Fatalf("vertex %v appears twice", v)
		}
		seen[v] = true
	}
	for _, idx := range shared.Indices {
		if int(idx) >= shared.VertexCount() {
			t.Fatalf("index %d out of range", idx)
		}
	}

	flat, _, err := tessellate.Tessellate(context.Background(), c, 0, kernel.ModePerCube)
	if err != nil {
		t.Fatal(err)
	}
	if flat.Indexed() {
		t.Error("per-cube mesh must be unindexed")
	}
	if flat.VertexCount() != 3*flat.TriangleCount() {
		t.Errorf("per-cube mesh has %d vertices for %d triangles", flat.VertexCount(), flat.TriangleCount())
	}
}

func TestSphere(t *testing.T) {
	const radius = 2.7
	center := mgl32.Vec3{4, 4, 4}
	c := sampledChunk(t, 8, density.Distance{Center: center}, radius)

	for _, mode := range []kernel.Mode{kernel.ModeShared, kernel.ModePerCube} {
		t.Run(mode.String(), func(t *testing.T) {
			m, _, err := tessellate.Tessellate(context.Background(), c, radius, mode)
			if err != nil {
				t.Fatal(err)
			}
			if m.IsEmpty() {
				t.Fatal("sphere mesh is empty")
			}
			for i := 0; i < m.VertexCount(); i++ {
				v := m.Vertex(i)
				d := v.Sub(center)
				if r := d.Len(); mgl32.Abs(r-radius) > 0.5 {
					t.Errorf("vertex %v at distance %v, want about %v", v, r, radius)
				}
				if n := m.Normal(i); n.Dot(d) <= 0 {
					t.Errorf("normal %v at %v points inward", n, v)
				}
			}
		})
	}
}

func TestEmptyChunks(t *testing.T) {
	for name, v := range map[string]float32{"all outside": 1, "all inside": -1} {
		t.Run(name, func(t *testing.T) {
			c := sampledChunk(t, 3, density.Func(func(mgl32.Vec3) float32 { return v }), 0)
			m, st, err := tessellate.Tessellate(context.Background(), c, 0, kernel.ModeShared)
			if err != nil {
				t.Fatal(err)
			}
			if !m.IsEmpty() || st.Triangles != 0 || st.ActiveCubes != 0 {
				t.Errorf("expected empty mesh, got %d triangles", st.Triangles)
			}
		})
	}
}

func TestChunkIndexRecorded(t *testing.T) {
	c, err := lattice.NewChunk(lattice.Size{X: 2, Y: 1, Z: 3}, lattice.Size{X: 1, Y: 1, Z: 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	m, _, err := tessellate.Tessellate(context.Background(), c, 0, kernel.ModeShared)
	if err != nil {
		t.Fatal(err)
	}
	if m.Chunk != [3]uint32{2, 1, 3} {
		t.Errorf("Chunk = %v, want [2 1 3]", m.Chunk)
	}
}

// TestCollapsedTriangles builds one cube with three bottom corners inside
// and the fourth exactly on the isolevel. Both surface edges that meet at
// that corner interpolate onto it, which flattens one triangle of the
// pentagon.
func TestCollapsedTriangles(t *testing.T) {
	c, err := lattice.NewChunk(lattice.Size{}, lattice.Size{X: 1, Y: 1, Z: 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := range c.Points {
		c.Points[i].Value = 1
	}
	for _, xz := range [][2]uint32{{0, 0}, {1, 0}, {0, 1}} {
		c.Points[c.PointIndex(xz[0], 0, xz[1])].Value = -1
	}
	c.Points[c.PointIndex(1, 0, 1)].Value = 0

	tests := []struct {
		mode          kernel.Mode
		wantTriangles int
		wantCollapsed int
	}{
		{kernel.ModePerCube, 3, 0},
		{kernel.ModeShared, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			m, st, err := tessellate.Tessellate(context.Background(), c, 0, tt.mode)
			if err != nil {
				t.Fatal(err)
			}
			if m.TriangleCount() != tt.wantTriangles || st.Triangles != tt.wantTriangles {
				t.Errorf("triangles = %d (stats %d), want %d", m.TriangleCount(), st.Triangles, tt.wantTriangles)
			}
			if st.Collapsed != tt.wantCollapsed {
				t.Errorf("collapsed = %d, want %d", st.Collapsed, tt.wantCollapsed)
			}
			if st.RawVertices != 9 {
				t.Errorf("raw vertices = %d, want 9", st.RawVertices)
			}
		})
	}
}

func TestTessellateErrors(t *testing.T) {
	c := sampledChunk(t, 2, density.Distance{}, 1)

	if _, _, err := tessellate.Tessellate(context.Background(), c, 1, kernel.Mode(99)); err == nil {
		t.Error("expected error for unknown mode")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := tessellate.Tessellate(ctx, c, 1, kernel.ModeShared); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestStatsAdd(t *testing.T) {
	s := tessellate.Stats{Cubes: 1, Triangles: 2}
	s.Add(tessellate.Stats{Cubes: 3, ActiveCubes: 1, Triangles: 4, Vertices: 5, RawVertices: 12, Collapsed: 2})
	want := tessellate.Stats{Cubes: 4, ActiveCubes: 1, Triangles: 6, Vertices: 5, RawVertices: 12, Collapsed: 2}
	if s != want {
		t.Errorf("Add = %+v, want %+v", s, want)
	}
}
