package kernel

import "github.com/go-gl/mathgl/mgl32"

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
// In ModePerCube indices is nil and every 3 vertices form a triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Chunk    [3]uint32 `json:"chunk"`    // chunk coordinate this mesh came from
	Mode     Mode      `json:"mode"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	if m.Indices == nil {
		return len(m.Vertices) / 9
	}
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Indexed reports whether triangles are described by Indices.
func (m *Mesh) Indexed() bool {
	return m.Indices != nil
}

// Vertex returns vertex i.
func (m *Mesh) Vertex(i int) mgl32.Vec3 {
	return mgl32.Vec3{m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2]}
}

// Normal returns the normal of vertex i. It panics if the mesh has no normals.
func (m *Mesh) Normal(i int) mgl32.Vec3 {
	return mgl32.Vec3{m.Normals[3*i], m.Normals[3*i+1], m.Normals[3*i+2]}
}

// TriangleIndices returns the vertex indices of triangle i in either mode.
func (m *Mesh) TriangleIndices(i int) (a, b, c int) {
	if m.Indices == nil {
		return 3 * i, 3*i + 1, 3*i + 2
	}
	return int(m.Indices[3*i]), int(m.Indices[3*i+1]), int(m.Indices[3*i+2])
}

// Triangle returns the corner positions of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c mgl32.Vec3) {
	ia, ib, ic := m.TriangleIndices(i)
	return m.Vertex(ia), m.Vertex(ib), m.Vertex(ic)
}

// AppendVertex adds a position and returns its index.
func (m *Mesh) AppendVertex(v mgl32.Vec3) uint32 {
	i := uint32(m.VertexCount())
	m.Vertices = append(m.Vertices, v[0], v[1], v[2])
	return i
}

// AppendNormal adds one normal.
func (m *Mesh) AppendNormal(n mgl32.Vec3) {
	m.Normals = append(m.Normals, n[0], n[1], n[2])
}
