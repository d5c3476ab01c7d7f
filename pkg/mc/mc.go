// Package mc implements the per-cube marching cubes kernel: corner
// classification against the isolevel, edge interpolation and table-driven
// triangulation. Ambiguous configurations are triangulated exactly as the
// classic tables say; no disambiguation is attempted.
package mc

import (
	"github.com/chazu/isomesh/pkg/lattice"
	"github.com/go-gl/mathgl/mgl32"
)

// Cube holds the eight corner points of one unit cell in CornerOffsets order.
type Cube [8]lattice.Point

// Triangle is three interpolated surface points.
type Triangle [3]mgl32.Vec3

// Inside is the one polarity rule used everywhere: a value strictly below
// the isolevel is inside the surface.
func Inside(value, isolevel float32) bool {
	return value < isolevel
}

// GatherCube collects the corners of the cube whose minimum corner is the
// lattice coordinate (x, y, z). Callers keep x < Size.X and so on.
func GatherCube(c *lattice.Chunk, x, y, z uint32) Cube {
	var cube Cube
	for i, o := range CornerOffsets {
		cube[i] = c.Points[c.PointIndex(x+o[0], y+o[1], z+o[2])]
	}
	return cube
}

// Configuration returns the 8-bit case index of a cube: bit i is set when
// corner i is inside.
func Configuration(cube Cube, isolevel float32) uint8 {
	var cfg uint8
	for i, p := range cube {
		if Inside(p.Value, isolevel) {
			cfg |= 1 << uint(i)
		}
	}
	return cfg
}

// EdgeMask returns the 12-bit set of edges crossed by the surface for a
// configuration.
func EdgeMask(cfg uint8) uint16 {
	return edgeTable[cfg]
}

// TriangleEdges returns the edge triples of a configuration, flattened,
// without the terminating sentinel.
func TriangleEdges(cfg uint8) []int8 {
	row := triTable[cfg][:]
	for i, e := range row {
		if e < 0 {
			return row[:i]
		}
	}
	return row
}

// Interpolate returns the point on the segment p1-p2 where the field
// crosses isolevel. Equal endpoint values return p1's position.
func Interpolate(isolevel float32, p1, p2 lattice.Point) mgl32.Vec3 {
	if p1.Value == p2.Value {
		return p1.Position
	}
	t := (isolevel - p1.Value) / (p2.Value - p1.Value)
	return p1.Position.Add(p2.Position.Sub(p1.Position).Mul(t))
}

// Polygonise appends the triangles of one cube to dst. Only edges in the
// configuration's edge mask are interpolated.
func Polygonise(cube Cube, isolevel float32, dst []Triangle) []Triangle {
	cfg := Configuration(cube, isolevel)
	mask := edgeTable[cfg]
	if mask == 0 {
		return dst
	}

	var verts [12]mgl32.Vec3
	for e, ends := range EdgeCorners {
		if mask&(1<<uint(e)) != 0 {
			verts[e] = Interpolate(isolevel, cube[ends[0]], cube[ends[1]])
		}
	}

	edges := TriangleEdges(cfg)
	for i := 0; i+2 < len(edges); i += 3 {
		dst = append(dst, Triangle{verts[edges[i]], verts[edges[i+1]], verts[edges[i+2]]})
	}
	return dst
}
