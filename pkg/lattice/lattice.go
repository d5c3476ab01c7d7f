package lattice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrDegenerateConfig is returned when a lattice dimension is zero or the
// cube edge length is not positive.
var ErrDegenerateConfig = errors.New("degenerate lattice config")

// Size is an unsigned per-axis extent or coordinate.
type Size struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
	Z uint32 `json:"z"`
}

// Product returns X*Y*Z.
func (s Size) Product() int {
	return int(s.X) * int(s.Y) * int(s.Z)
}

// Grow returns s with n added to every axis.
func (s Size) Grow(n uint32) Size {
	return Size{X: s.X + n, Y: s.Y + n, Z: s.Z + n}
}

// IsZero reports whether any axis is zero.
func (s Size) IsZero() bool {
	return s.X == 0 || s.Y == 0 || s.Z == 0
}

func (s Size) String() string {
	return fmt.Sprintf("(%d,%d,%d)", s.X, s.Y, s.Z)
}

// ParseSize parses "x,y,z", or a single number used for all three axes.
func ParseSize(text string) (Size, error) {
	parts := strings.Split(text, ",")
	if len(parts) == 1 {
		parts = []string{parts[0], parts[0], parts[0]}
	}
	if len(parts) != 3 {
		return Size{}, fmt.Errorf("lattice: size %q: want x,y,z", text)
	}
	var v [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return Size{}, fmt.Errorf("lattice: size %q: %w", text, err)
		}
		v[i] = uint32(n)
	}
	return Size{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Point is one lattice sample: a fixed world position and the scalar value
// written by the latest sampling pass.
type Point struct {
	Position mgl32.Vec3
	Value    float32
}

// Chunk is an axis-aligned block of the lattice, meshed on its own.
type Chunk struct {
	Index      Size       // chunk coordinate in the chunk grid
	Origin     mgl32.Vec3 // world position of Points[0]
	Size       Size       // cubes per axis
	PointSize  Size       // Size+1 per axis
	EdgeLength float32
	Points     []Point
}

// NewChunk lays out the points of the chunk at the given chunk coordinate.
// Positions are computed from global lattice coordinates so that points on
// a boundary shared by two chunks are bit-identical in both.
func NewChunk(index, size Size, edge float32) (*Chunk, error) {
	if size.IsZero() {
		return nil, fmt.Errorf("lattice: chunk size %s: %w", size, ErrDegenerateConfig)
	}
	if !(edge > 0) {
		return nil, fmt.Errorf("lattice: cube edge length %v: %w", edge, ErrDegenerateConfig)
	}

	base := Size{X: index.X * size.X, Y: index.Y * size.Y, Z: index.Z * size.Z}
	ps := size.Grow(1)
	c := &Chunk{
		Index:      index,
		Origin:     mgl32.Vec3{float32(base.X) * edge, float32(base.Y) * edge, float32(base.Z) * edge},
		Size:       size,
		PointSize:  ps,
		EdgeLength: edge,
		Points:     make([]Point, ps.Product()),
	}

	i := 0
	for z := uint32(0); z < ps.Z; z++ {
		for y := uint32(0); y < ps.Y; y++ {
			for x := uint32(0); x < ps.X; x++ {
				c.Points[i].Position = mgl32.Vec3{
					float32(base.X+x) * edge,
					float32(base.Y+y) * edge,
					float32(base.Z+z) * edge,
				}
				i++
			}
		}
	}
	return c, nil
}

// Build creates every chunk of the grid described by cfg, z outermost and
// x innermost. The config must already be valid; see Config.Clamp.
func Build(cfg Config) ([]*Chunk, error) {
	if cfg.ChunkCount.IsZero() {
		return nil, fmt.Errorf("lattice: chunk count %s: %w", cfg.ChunkCount, ErrDegenerateConfig)
	}

	chunks := make([]*Chunk, 0, cfg.ChunkCount.Product())
	for z := uint32(0); z < cfg.ChunkCount.Z; z++ {
		for y := uint32(0); y < cfg.ChunkCount.Y; y++ {
			for x := uint32(0); x < cfg.ChunkCount.X; x++ {
				c, err := NewChunk(Size{X: x, Y: y, Z: z}, cfg.ChunkSize, cfg.CubeEdgeLength)
				if err != nil {
					return nil, err
				}
				chunks = append(chunks, c)
			}
		}
	}
	return chunks, nil
}

// PointIndex maps a lattice coordinate to its position in Points.
func (c *Chunk) PointIndex(x, y, z uint32) int {
	return int(x) + int(y)*int(c.PointSize.X) + int(z)*int(c.PointSize.X)*int(c.PointSize.Y)
}

// Coord is the inverse of PointIndex.
func (c *Chunk) Coord(i int) (x, y, z uint32) {
	px, py := int(c.PointSize.X), int(c.PointSize.Y)
	return uint32(i % px), uint32((i / px) % py), uint32(i / (px * py))
}

// At returns the point at a lattice coordinate.
func (c *Chunk) At(x, y, z uint32) Point {
	return c.Points[c.PointIndex(x, y, z)]
}

// CubeCount returns the number of unit cubes in the chunk.
func (c *Chunk) CubeCount() int {
	return c.Size.Product()
}

// Bounds returns the world-space corners of the chunk.
func (c *Chunk) Bounds() (min, max mgl32.Vec3) {
	return c.Points[0].Position, c.Points[len(c.Points)-1].Position
}
