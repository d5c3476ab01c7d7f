// Package kernel defines the mesh buffers the isosurface pipeline hands to
// external consumers, and the layout modes they come in. Renderers, exporters
// and the scheduler all exchange *Mesh values; nothing here knows how a
// mesh was produced.
package kernel

import "fmt"

// Mode selects how triangles are packed into a Mesh.
type Mode int

const (
	// ModeShared welds equal vertices within a chunk and emits indexed
	// triangles with accumulated smooth normals.
	ModeShared Mode = iota
	// ModePerCube emits an unindexed face list, three vertices per triangle,
	// with flat face normals.
	ModePerCube
)

func (m Mode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModePerCube:
		return "percube"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name as printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "shared":
		return ModeShared, nil
	case "percube", "per-cube":
		return ModePerCube, nil
	}
	return 0, fmt.Errorf("kernel: unknown mesh mode %q, expected shared or percube", s)
}
