package density

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/isomesh/pkg/lattice"
	"github.com/go-gl/mathgl/mgl32"
)

func newChunk(t *testing.T, size uint32) *lattice.Chunk {
	t.Helper()
	c, err := lattice.NewChunk(lattice.Size{}, lattice.Size{X: size, Y: size, Z: size}, 1)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	return c
}

func TestSampleWritesEveryPoint(t *testing.T) {
	c := newChunk(t, 2)
	calls := 0
	f := Func(func(p mgl32.Vec3) float32 {
		calls++
		return p.X() + 10*p.Y() + 100*p.Z()
	})

	rep, err := Sample(context.Background(), c, f, 0)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if calls != 27 || rep.Sampled != 27 {
		t.Errorf("calls = %d, sampled = %d, want 27", calls, rep.Sampled)
	}
	if len(rep.Anomalies) != 0 {
		t.Errorf("unexpected anomalies: %v", rep.Anomalies)
	}
	for _, p := range c.Points {
		want := p.Position.X() + 10*p.Position.Y() + 100*p.Position.Z()
		if p.Value != want {
			t.Fatalf("value at %v = %v, want %v", p.Position, p.Value, want)
		}
	}
}

// flaky fails at exactly one position.
type flaky struct {
	bad  mgl32.Vec3
	mode string
}

func (f flaky) Evaluate(p mgl32.Vec3) (float32, error) {
	if p != f.bad {
		return -1, nil
	}
	switch f.mode {
	case "error":
		return 0, errors.New("no sample here")
	case "nan":
		return float32(math.NaN()), nil
	case "inf":
		return float32(math.Inf(-1)), nil
	default:
		panic("field exploded")
	}
}

func TestSampleDegradesFailures(t *testing.T) {
	bad := mgl32.Vec3{1, 1, 1}
	for _, mode := range []string{"error", "nan", "inf", "panic"} {
		t.Run(mode, func(t *testing.T) {
			c := newChunk(t, 2)
			const iso = 0.5
			rep, err := Sample(context.Background(), c, flaky{bad: bad, mode: mode}, iso)
			if err != nil {
				t.Fatalf("Sample: %v", err)
			}
			if rep.Sampled != 27 {
				t.Errorf("sampled %d points, want 27", rep.Sampled)
			}
			if len(rep.Anomalies) != 1 {
				t.Fatalf("got %d anomalies, want 1", len(rep.Anomalies))
			}
			a := rep.Anomalies[0]
			if a.Position != bad || a.Index != c.PointIndex(1, 1, 1) {
				t.Errorf("anomaly at %v (index %d)", a.Position, a.Index)
			}
			if mode == "nan" || mode == "inf" {
				if !errors.Is(a.Err, ErrNonFinite) {
					t.Errorf("err = %v, want ErrNonFinite", a.Err)
				}
			}
			if v := c.At(1, 1, 1).Value; v != iso {
				t.Errorf("failed point value = %v, want isolevel %v", v, iso)
			}
			if v := c.At(0, 0, 0).Value; v != -1 {
				t.Errorf("healthy point value = %v, want -1", v)
			}
		})
	}
}

func TestSampleCancelled(t *testing.T) {
	c := newChunk(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Sample(ctx, c, Func(func(mgl32.Vec3) float32 { return 0 }), 0); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestBuiltinFields(t *testing.T) {
	p := mgl32.Vec3{3, 4, 0}
	tests := []struct {
		name  string
		field Field
		want  float32
	}{
		{"plane y", Plane{Normal: mgl32.Vec3{0, 1, 0}, Offset: 1}, 3},
		{"plane unnormalized", Plane{Normal: mgl32.Vec3{0, 2, 0}}, 4},
		{"step below", StepY{Threshold: 5, Below: -1, Above: 1}, -1},
		{"step above", StepY{Threshold: 4, Below: -1, Above: 1}, 1},
		{"sphere", Sphere{Radius: 2}, 3},
		{"distance", Distance{}, 5},
		{"offset", Offset{Field: Distance{}, By: -5}, 0},
		{"union", Union{Sphere{Radius: 1}, Sphere{Radius: 4}}, 1},
		{"empty union", Union{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Evaluate(p)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if mgl32.Abs(got-tt.want) > 1e-5 {
				t.Errorf("Evaluate(%v) = %v, want %v", p, got, tt.want)
			}
		})
	}
}

func TestUnionPropagatesError(t *testing.T) {
	u := Union{Distance{}, flaky{bad: mgl32.Vec3{}, mode: "error"}}
	if _, err := u.Evaluate(mgl32.Vec3{}); err == nil {
		t.Error("expected error from failing member")
	}
}

func TestNoiseDeterministic(t *testing.T) {
	a, b := NewNoise(42), NewNoise(42)
	for _, p := range []mgl32.Vec3{{0, 0, 0}, {1.5, 7, -3}, {100, 2, 33}} {
		va, _ := a.Evaluate(p)
		vb, _ := b.Evaluate(p)
		if va != vb {
			t.Errorf("Evaluate(%v) differs: %v vs %v", p, va, vb)
		}
	}
}

func TestNoiseGradient(t *testing.T) {
	n := NewNoise(7)
	// Noise contributes at most 1; the gradient dominates far from BaseHeight.
	deep, _ := n.Evaluate(mgl32.Vec3{3, float32(n.BaseHeight - 3*n.Gradient), 3})
	high, _ := n.Evaluate(mgl32.Vec3{3, float32(n.BaseHeight + 3*n.Gradient), 3})
	if deep >= 0 {
		t.Errorf("deep value %v should be inside (negative)", deep)
	}
	if high <= 0 {
		t.Errorf("high value %v should be outside (positive)", high)
	}
}

func TestValueNoiseRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		x := float64(i) * 0.37
		v := octaveNoise3D(x, x*0.5, -x, 3, 4, 0.5, 2)
		if v < 0 || v > 1 {
			t.Fatalf("octaveNoise3D = %v outside [0,1]", v)
		}
	}
	if v := octaveNoise3D(1, 2, 3, 0, 0, 0.5, 2); v != 0 {
		t.Errorf("zero octaves = %v, want 0", v)
	}
}
