package main

import (
	"fmt"
	"strings"

	"github.com/chazu/isomesh/pkg/density"
	"github.com/chazu/isomesh/pkg/density/script"
	"github.com/chazu/isomesh/pkg/density/sdfx"
	"github.com/chazu/isomesh/pkg/lattice"
	"github.com/go-gl/mathgl/mgl32"
)

// fieldNames lists the fields SetField accepts.
var fieldNames = []string{"plane", "sphere", "blobs", "octant", "noise", "sdfx", "script"}

// FieldSpec selects a density field. Source is only read for "script".
type FieldSpec struct {
	Name   string `json:"name"`
	Seed   int64  `json:"seed"`
	Source string `json:"source"`
}

// buildField returns the named field scaled to fill the grid described by
// cfg. Script problems come back as eval errors, not as an error.
func buildField(spec FieldSpec, cfg lattice.Config) (density.Field, []script.EvalError, error) {
	ext := cfg.Extent()
	center := ext.Mul(0.5)
	smallest := min(ext.X(), ext.Y(), ext.Z())

	switch spec.Name {
	case "plane":
		return density.Plane{Normal: mgl32.Vec3{0, 1, 0}, Offset: center.Y()}, nil, nil
	case "sphere":
		return density.Sphere{Center: center, Radius: 0.4 * smallest}, nil, nil
	case "blobs":
		r := 0.25 * smallest
		return density.Union{
			density.Sphere{Center: center.Sub(mgl32.Vec3{r / 2, 0, 0}), Radius: r},
			density.Sphere{Center: center.Add(mgl32.Vec3{r / 2, r / 2, 0}), Radius: 0.8 * r},
		}, nil, nil
	case "octant":
		// Distance from the origin corner; the isolevel is the radius.
		return density.Distance{}, nil, nil
	case "noise":
		n := density.NewNoise(spec.Seed)
		n.BaseHeight = float64(center.Y())
		n.Gradient = float64(center.Y())
		return n, nil, nil
	case "sdfx":
		return sdfxField(ext), nil, nil
	case "script":
		f, evalErrs, err := script.Compile(spec.Source)
		if err != nil || len(evalErrs) > 0 {
			return nil, evalErrs, err
		}
		return f, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown field %q, want one of %s", spec.Name, strings.Join(fieldNames, ", "))
}

// sdfxField is a box with a cylindrical hole, inset from the grid bounds.
func sdfxField(ext mgl32.Vec3) *sdfx.Solid {
	x, y, z := float64(ext.X()), float64(ext.Y()), float64(ext.Z())
	box := sdfx.Translate(sdfx.Box(0.6*x, 0.6*y, 0.6*z), 0.2*x, 0.2*y, 0.2*z)
	r := 0.15 * min(x, y)
	hole := sdfx.Translate(sdfx.Cylinder(1.2*z, r), x/2, y/2, z/2)
	return sdfx.Difference(box, hole)
}
