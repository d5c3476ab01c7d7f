// Package density defines the scalar field capability the lattice is sampled
// from, a handful of built-in fields, and the sampler that writes field
// values into a chunk.
//
// A Field must be pure: the same position always yields the same value and
// evaluation has no side effects. The sampler relies on that to evaluate
// chunks concurrently and to skip chunks whose inputs did not change.
package density

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/chazu/isomesh/pkg/lattice"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrNonFinite is reported for a point whose field value is NaN or infinite.
var ErrNonFinite = errors.New("non-finite field value")

// Field is a scalar field over world space. Values below the isolevel are
// inside the surface.
type Field interface {
	Evaluate(p mgl32.Vec3) (float32, error)
}

// Func adapts an infallible function into a Field.
type Func func(p mgl32.Vec3) float32

// Evaluate calls f.
func (f Func) Evaluate(p mgl32.Vec3) (float32, error) {
	return f(p), nil
}

// Anomaly records a point the field could not produce a usable value for.
type Anomaly struct {
	Index    int // index into the chunk's Points
	Position mgl32.Vec3
	Err      error
}

func (a Anomaly) Error() string {
	return fmt.Sprintf("point %d at %v: %v", a.Index, a.Position, a.Err)
}

// Report summarizes one sampling pass over a chunk.
type Report struct {
	Sampled   int
	Anomalies []Anomaly
}

// Sample evaluates f at every point of c and stores the values. A point the
// field fails on (error, panic, NaN or infinity) is set to isolevel, which
// counts as outside, and recorded in the report; the pass carries on. The
// only error returned is the context's, checked once per z slab.
func Sample(ctx context.Context, c *lattice.Chunk, f Field, isolevel float32) (Report, error) {
	var rep Report
	slab := int(c.PointSize.X) * int(c.PointSize.Y)

	for i := range c.Points {
		if i%slab == 0 {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
		}
		p := &c.Points[i]
		v, err := evaluate(f, p.Position)
		if err == nil && !finite(v) {
			err = ErrNonFinite
		}
		if err != nil {
			v = isolevel
			rep.Anomalies = append(rep.Anomalies, Anomaly{Index: i, Position: p.Position, Err: err})
		}
		p.Value = v
		rep.Sampled++
	}
	return rep, nil
}

// evaluate calls f, turning a panic into an error.
func evaluate(f Field, p mgl32.Vec3) (v float32, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during field evaluation: %v", r)
		}
	}()
	return f.Evaluate(p)
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
