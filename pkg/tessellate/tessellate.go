// Package tessellate runs the marching cubes kernel over a sampled chunk and
// packs the result into a kernel.Mesh, either as a welded indexed mesh with
// smooth normals or as a flat per-cube face list.
package tessellate

import (
	"context"
	"fmt"

	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/chazu/isomesh/pkg/lattice"
	"github.com/chazu/isomesh/pkg/mc"
	"github.com/go-gl/mathgl/mgl32"
)

// Stats describes one tessellated chunk.
type Stats struct {
	Cubes       int // cubes visited
	ActiveCubes int // cubes that produced at least one triangle
	Triangles   int // triangles in the mesh
	Vertices    int // vertices in the mesh
	RawVertices int // vertices before welding (3 per triangle)
	Collapsed   int // triangles dropped because welding merged two corners
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Cubes += o.Cubes
	s.ActiveCubes += o.ActiveCubes
	s.Triangles += o.Triangles
	s.Vertices += o.Vertices
	s.RawVertices += o.RawVertices
	s.Collapsed += o.Collapsed
}

// assembler collects triangles for one chunk.
type assembler interface {
	// addCube appends tris and returns how many it dropped.
	addCube(tris []mc.Triangle) int
	finish() *kernel.Mesh
}

// Tessellate meshes a chunk whose point values are already sampled. The
// context is checked once per z layer of cubes.
//
// In shared mode a triangle whose corners weld onto fewer than three
// distinct vertices is dropped and counted in Stats.Collapsed, so the two
// modes can report different triangle counts for the same chunk when
// samples sit exactly on the isolevel. Per-cube mode keeps every triangle.
func Tessellate(ctx context.Context, c *lattice.Chunk, isolevel float32, mode kernel.Mode) (*kernel.Mesh, Stats, error) {
	var asm assembler
	switch mode {
	case kernel.ModeShared:
		asm = newSharedAssembler()
	case kernel.ModePerCube:
		asm = &perCubeAssembler{}
	default:
		return nil, Stats{}, fmt.Errorf("tessellate: unsupported mode %v", mode)
	}

	var st Stats
	var tris []mc.Triangle
	for z := uint32(0); z < c.Size.Z; z++ {
		if err := ctx.Err(); err != nil {
			return nil, st, err
		}
		for y := uint32(0); y < c.Size.Y; y++ {
			for x := uint32(0); x < c.Size.X; x++ {
				tris = mc.Polygonise(mc.GatherCube(c, x, y, z), isolevel, tris[:0])
				st.Cubes++
				if len(tris) == 0 {
					continue
				}
				st.ActiveCubes++
				st.RawVertices += 3 * len(tris)
				st.Collapsed += asm.addCube(tris)
			}
		}
	}

	m := asm.finish()
	m.Chunk = [3]uint32{c.Index.X, c.Index.Y, c.Index.Z}
	m.Mode = mode
	st.Triangles = m.TriangleCount()
	st.Vertices = m.VertexCount()
	return m, st, nil
}

// sharedAssembler welds vertices that are exactly equal within the chunk.
type sharedAssembler struct {
	mesh  kernel.Mesh
	index map[mgl32.Vec3]uint32
	pos   []mgl32.Vec3
}

func newSharedAssembler() *sharedAssembler {
	return &sharedAssembler{
		mesh:  kernel.Mesh{Indices: []uint32{}},
		index: make(map[mgl32.Vec3]uint32),
	}
}

func (a *sharedAssembler) vertex(v mgl32.Vec3) uint32 {
	if i, ok := a.index[v]; ok {
		return i
	}
	i := a.mesh.AppendVertex(v)
	a.index[v] = i
	a.pos = append(a.pos, v)
	return i
}

func (a *sharedAssembler) addCube(tris []mc.Triangle) int {
	dropped := 0
	for _, t := range tris {
		i0, i1, i2 := a.vertex(t[0]), a.vertex(t[1]), a.vertex(t[2])
		// Corners that land on the same lattice point collapse the triangle.
		if i0 == i1 || i1 == i2 || i0 == i2 {
			dropped++
			continue
		}
		a.mesh.Indices = append(a.mesh.Indices, i0, i1, i2)
	}
	return dropped
}

func (a *sharedAssembler) finish() *kernel.Mesh {
	for _, n := range SmoothNormals(a.pos, a.mesh.Indices) {
		a.mesh.AppendNormal(n)
	}
	return &a.mesh
}

// perCubeAssembler emits every triangle with its own three vertices.
type perCubeAssembler struct {
	mesh kernel.Mesh
}

func (a *perCubeAssembler) addCube(tris []mc.Triangle) int {
	for _, t := range tris {
		n := FaceNormal(t[0], t[1], t[2])
		for _, v := range t {
			a.mesh.AppendVertex(v)
			a.mesh.AppendNormal(n)
		}
	}
	return 0
}

func (a *perCubeAssembler) finish() *kernel.Mesh {
	return &a.mesh
}
