// Package objexport writes chunk meshes as Wavefront OBJ.
package objexport

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/chazu/isomesh/pkg/kernel"
)

// Write writes every non-empty mesh as its own object named after its
// chunk. Vertex and normal numbers run on across objects, 1-based. Meshes
// whose normals do not match their vertices are written without normals.
func Write(w io.Writer, meshes []*kernel.Mesh) error {
	out := bufio.NewWriter(w)
	var vertexBase, normalBase int
	for _, m := range meshes {
		if m == nil || m.IsEmpty() {
			continue
		}
		hasNormals := len(m.Normals) == len(m.Vertices)

		fmt.Fprintf(out, "o chunk_%d_%d_%d\n", m.Chunk[0], m.Chunk[1], m.Chunk[2])
		for i := 0; i < m.VertexCount(); i++ {
			v := m.Vertex(i)
			fmt.Fprintf(out, "v %g %g %g\n", v.X(), v.Y(), v.Z())
		}
		if hasNormals {
			for i := 0; i < m.VertexCount(); i++ {
				n := m.Normal(i)
				fmt.Fprintf(out, "vn %g %g %g\n", n.X(), n.Y(), n.Z())
			}
		}
		for i := 0; i < m.TriangleCount(); i++ {
			a, b, c := m.TriangleIndices(i)
			if hasNormals {
				printFaceLine(out, [3]int{a, b, c}, vertexBase, normalBase)
			} else {
				printFaceLine(out, [3]int{a, b, c}, vertexBase, -1)
			}
		}

		vertexBase += m.VertexCount()
		if hasNormals {
			normalBase += m.VertexCount()
		}
	}
	return out.Flush()
}

// printFaceLine writes one face. A negative normalBase omits normals.
func printFaceLine(w io.Writer, f [3]int, vertexBase, normalBase int) {
	if normalBase < 0 {
		fmt.Fprintf(w, "f %d %d %d\n", f[0]+vertexBase+1, f[1]+vertexBase+1, f[2]+vertexBase+1)
		return
	}
	fmt.Fprintf(w, "f %d//%d %d//%d %d//%d\n",
		f[0]+vertexBase+1, f[0]+normalBase+1,
		f[1]+vertexBase+1, f[1]+normalBase+1,
		f[2]+vertexBase+1, f[2]+normalBase+1)
}

// WriteFile writes meshes to path, replacing any existing file.
func WriteFile(path string, meshes []*kernel.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("objexport: %w", err)
	}
	if err := Write(f, meshes); err != nil {
		f.Close()
		return fmt.Errorf("objexport: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("objexport: closing %s: %w", path, err)
	}
	return nil
}
