package tessellate

import "github.com/go-gl/mathgl/mgl32"

// FaceNormal returns the unit normal of triangle (a, b, c), or the zero
// vector for a degenerate triangle.
func FaceNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	return normalize(b.Sub(a).Cross(c.Sub(a)))
}

// SmoothNormals accumulates the unnormalized cross product of every
// triangle into its three vertices and normalizes each sum once. Larger
// triangles therefore weigh more. Vertices no triangle touches get a zero
// normal.
func SmoothNormals(pos []mgl32.Vec3, indices []uint32) []mgl32.Vec3 {
	acc := make([]mgl32.Vec3, len(pos))
	for i := 0; i+2 < len(indices); i += 3 {
		a, b, c := indices[i], indices[i+1], indices[i+2]
		n := pos[b].Sub(pos[a]).Cross(pos[c].Sub(pos[a]))
		acc[a] = acc[a].Add(n)
		acc[b] = acc[b].Add(n)
		acc[c] = acc[c].Add(n)
	}
	for i := range acc {
		acc[i] = normalize(acc[i])
	}
	return acc
}

func normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return v.Mul(1 / l)
}
