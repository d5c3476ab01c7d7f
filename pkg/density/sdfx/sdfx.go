// Package sdfx exposes github.com/deadsy/sdfx signed distance solids as
// density fields, and wraps sdfx's own marching cubes renderer as a
// reference mesher.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/isomesh/pkg/density"
	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl32"
)

// Compile-time interface check.
var _ density.Field = (*Solid)(nil)

// DefaultReferenceCells is the resolution ReferenceMesh uses when cells <= 0.
const DefaultReferenceCells = 200

// Solid wraps an sdf.SDF3. Its signed distance is negative inside, so it
// meshes at isolevel 0.
type Solid struct {
	s sdf.SDF3
}

// Wrap creates a Solid from any sdf.SDF3.
func Wrap(s sdf.SDF3) *Solid {
	return &Solid{s: s}
}

// SDF returns the underlying sdfx value.
func (s *Solid) SDF() sdf.SDF3 {
	return s.s
}

// Evaluate returns the signed distance at p.
func (s *Solid) Evaluate(p mgl32.Vec3) (float32, error) {
	d := s.s.Evaluate(v3.Vec{X: float64(p.X()), Y: float64(p.Y()), Z: float64(p.Z())})
	return float32(d), nil
}

// Bounds returns the axis-aligned bounding box.
func (s *Solid) Bounds() (min, max mgl32.Vec3) {
	bb := s.s.BoundingBox()
	min = mgl32.Vec3{float32(bb.Min.X), float32(bb.Min.Y), float32(bb.Min.Z)}
	max = mgl32.Vec3{float32(bb.Max.X), float32(bb.Max.Y), float32(bb.Max.Z)}
	return min, max
}

// Box creates a box with the given dimensions and its minimum corner at the
// origin. sdf.Box3D centers the box, so it is shifted by half the
// dimensions.
func Box(x, y, z float64) *Solid {
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return Wrap(sdf.Transform3D(s, m))
}

// Sphere creates a sphere of the given radius centered at the origin.
func Sphere(radius float64) *Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return Wrap(s)
}

// Cylinder creates a cylinder along z, centered at the origin.
func Cylinder(height, radius float64) *Solid {
	s, err := sdf.Cylinder3D(height, radius, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return Wrap(s)
}

// Union returns the union of two solids.
func Union(a, b *Solid) *Solid {
	return Wrap(sdf.Union3D(a.s, b.s))
}

// Difference returns a - b.
func Difference(a, b *Solid) *Solid {
	return Wrap(sdf.Difference3D(a.s, b.s))
}

// Intersection returns the intersection of two solids.
func Intersection(a, b *Solid) *Solid {
	return Wrap(sdf.Intersect3D(a.s, b.s))
}

// Translate moves a solid by (x, y, z).
func Translate(s *Solid, x, y, z float64) *Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return Wrap(sdf.Transform3D(s.s, m))
}

// Rotate rotates a solid by Euler angles (degrees) around X, Y, Z axes.
func Rotate(s *Solid, x, y, z float64) *Solid {
	xRad := x * math.Pi / 180.0
	yRad := y * math.Pi / 180.0
	zRad := z * math.Pi / 180.0

	m := sdf.RotateZ(zRad).Mul(sdf.RotateY(yRad)).Mul(sdf.RotateX(xRad))
	return Wrap(sdf.Transform3D(s.s, m))
}

// ReferenceMesh tessellates s with sdfx's uniform marching cubes renderer
// over its own bounding box. The result is an unindexed mesh with flat
// normals, comparable with a kernel.ModePerCube mesh.
func ReferenceMesh(s *Solid, cells int) (*kernel.Mesh, error) {
	if s == nil || s.s == nil {
		return nil, fmt.Errorf("sdfx: reference mesh of nil solid")
	}
	if cells <= 0 {
		cells = DefaultReferenceCells
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(s.s, renderer)

	numVerts := len(triangles) * 3
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Mode:     kernel.ModePerCube,
	}
	for _, tri := range triangles {
		n := tri.Normal()
		normal := mgl32.Vec3{float32(n.X), float32(n.Y), float32(n.Z)}
		for j := 0; j < 3; j++ {
			v := tri[j]
			m.AppendVertex(mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)})
			m.AppendNormal(normal)
		}
	}
	return m, nil
}
