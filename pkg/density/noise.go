package density

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Noise is a terrain field: octave value noise in [-1,1] plus a height
// gradient that makes everything far below BaseHeight solid and everything
// far above it air. Solid ground comes out negative, i.e. inside.
type Noise struct {
	Seed        int64
	Scale       float64 // noise frequency in world units
	BaseHeight  float64 // surface level the gradient pulls toward
	Gradient    float64 // height range over which the gradient reaches 1
	Octaves     int
	Persistence float64
	Lacunarity  float64
}

// NewNoise returns a noise terrain with the usual defaults.
func NewNoise(seed int64) *Noise {
	return &Noise{
		Seed:        seed,
		Scale:       1.0 / 16.0,
		BaseHeight:  8,
		Gradient:    8,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2.0,
	}
}

// Evaluate returns the terrain density at p.
func (n *Noise) Evaluate(p mgl32.Vec3) (float32, error) {
	v := n.Raw(p)*2 - 1
	grad := 0.0
	if n.Gradient != 0 {
		grad = (n.BaseHeight - float64(p.Y())) / n.Gradient
	}
	return float32(-(v + grad)), nil
}

// Raw returns the octave noise at p in [0, 1], without the height gradient.
func (n *Noise) Raw(p mgl32.Vec3) float64 {
	return octaveNoise3D(float64(p.X())*n.Scale, float64(p.Y())*n.Scale, float64(p.Z())*n.Scale,
		n.Seed, n.Octaves, n.Persistence, n.Lacunarity)
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// hash3 is a SplitMix64 style hash of a lattice coordinate.
func hash3(x, y, z, seed int64) uint64 {
	v := uint64(x)*0x9E3779B97F4A7C15 + uint64(y)*0x517CC1B727220A95 + uint64(z)*0x6C62272E07BB0142 + uint64(seed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func cornerValue(x, y, z, seed int64) float64 {
	return float64(hash3(x, y, z, seed)&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

// valueNoise3D returns smoothly interpolated lattice noise in [0,1].
func valueNoise3D(x, y, z float64, seed int64) float64 {
	x0, y0, z0 := math.Floor(x), math.Floor(y), math.Floor(z)
	ix, iy, iz := int64(x0), int64(y0), int64(z0)
	fx, fy, fz := fade(x-x0), fade(y-y0), fade(z-z0)

	i00 := lerp(cornerValue(ix, iy, iz, seed), cornerValue(ix+1, iy, iz, seed), fx)
	i10 := lerp(cornerValue(ix, iy+1, iz, seed), cornerValue(ix+1, iy+1, iz, seed), fx)
	i01 := lerp(cornerValue(ix, iy, iz+1, seed), cornerValue(ix+1, iy, iz+1, seed), fx)
	i11 := lerp(cornerValue(ix, iy+1, iz+1, seed), cornerValue(ix+1, iy+1, iz+1, seed), fx)

	return lerp(lerp(i00, i10, fy), lerp(i01, i11, fy), fz)
}

func octaveNoise3D(x, y, z float64, seed int64, octaves int, persistence, lacunarity float64) float64 {
	amplitude, frequency := 1.0, 1.0
	sum, norm := 0.0, 0.0
	for i := range octaves {
		sum += valueNoise3D(x*frequency, y*frequency, z*frequency, seed+int64(i*131)) * amplitude
		norm += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	if norm == 0 {
		return 0
	}
	return sum / norm
}
