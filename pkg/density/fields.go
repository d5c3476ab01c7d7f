package density

import "github.com/go-gl/mathgl/mgl32"

// Compile-time interface checks.
var (
	_ Field = Plane{}
	_ Field = StepY{}
	_ Field = Sphere{}
	_ Field = Distance{}
	_ Field = Offset{}
	_ Field = Union(nil)
	_ Field = (*Noise)(nil)
)

// Plane is the signed distance to the plane through Offset*Normal with the
// given normal; the half-space behind the normal is inside.
type Plane struct {
	Normal mgl32.Vec3
	Offset float32
}

// Evaluate returns the signed distance of p to the plane.
func (pl Plane) Evaluate(p mgl32.Vec3) (float32, error) {
	n := pl.Normal
	if l := n.Len(); l != 0 && l != 1 {
		n = n.Mul(1 / l)
	}
	return p.Dot(n) - pl.Offset, nil
}

// StepY is Below for positions with y < Threshold and Above otherwise.
type StepY struct {
	Threshold float32
	Below     float32
	Above     float32
}

// Evaluate returns Below or Above depending on p's height.
func (s StepY) Evaluate(p mgl32.Vec3) (float32, error) {
	if p.Y() < s.Threshold {
		return s.Below, nil
	}
	return s.Above, nil
}

// Sphere is the signed distance to a sphere surface; negative inside.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// Evaluate returns |p-Center| - Radius.
func (s Sphere) Evaluate(p mgl32.Vec3) (float32, error) {
	return p.Sub(s.Center).Len() - s.Radius, nil
}

// Distance is the plain distance from Center. With the isolevel set to a
// radius it meshes a sphere of that radius.
type Distance struct {
	Center mgl32.Vec3
}

// Evaluate returns |p-Center|.
func (d Distance) Evaluate(p mgl32.Vec3) (float32, error) {
	return p.Sub(d.Center).Len(), nil
}

// Offset shifts another field's values by By.
type Offset struct {
	Field Field
	By    float32
}

// Evaluate returns Field(p) + By.
func (o Offset) Evaluate(p mgl32.Vec3) (float32, error) {
	v, err := o.Field.Evaluate(p)
	if err != nil {
		return 0, err
	}
	return v + o.By, nil
}

// Union takes the minimum over its fields, so a point inside any of them is
// inside the union. An empty union evaluates to 0.
type Union []Field

// Evaluate returns the smallest member value, or the first error.
func (u Union) Evaluate(p mgl32.Vec3) (float32, error) {
	var min float32
	for i, f := range u {
		v, err := f.Evaluate(p)
		if err != nil {
			return 0, err
		}
		if i == 0 || v < min {
			min = v
		}
	}
	return min, nil
}
