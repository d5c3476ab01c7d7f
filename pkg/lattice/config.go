package lattice

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultEdgeLength is the cube edge length used when none is configured.
const DefaultEdgeLength = 1.0

// Config drives lattice layout and surface extraction. A generation pass
// takes it by value, so it never changes under a running pass.
type Config struct {
	ChunkCount     Size    `json:"chunk_count"`
	ChunkSize      Size    `json:"chunk_size"`
	CubeEdgeLength float32 `json:"cube_edge_length"`
	Isolevel       float32 `json:"isolevel"`
}

// DefaultConfig returns a single one-cube chunk with unit edges.
func DefaultConfig() Config {
	return Config{
		ChunkCount:     Size{X: 1, Y: 1, Z: 1},
		ChunkSize:      Size{X: 1, Y: 1, Z: 1},
		CubeEdgeLength: DefaultEdgeLength,
	}
}

// Validate reports every invalid field. It returns nil for a usable config.
func (c Config) Validate() error {
	var errs []error
	check := func(field string, v uint32) {
		if v == 0 {
			errs = append(errs, fmt.Errorf("%s is 0, must be at least 1: %w", field, ErrDegenerateConfig))
		}
	}
	check("chunk_count.x", c.ChunkCount.X)
	check("chunk_count.y", c.ChunkCount.Y)
	check("chunk_count.z", c.ChunkCount.Z)
	check("chunk_size.x", c.ChunkSize.X)
	check("chunk_size.y", c.ChunkSize.Y)
	check("chunk_size.z", c.ChunkSize.Z)
	if !(c.CubeEdgeLength > 0) {
		errs = append(errs, fmt.Errorf("cube_edge_length is %v, must be positive: %w", c.CubeEdgeLength, ErrDegenerateConfig))
	}
	return errors.Join(errs...)
}

// Clamp raises every zero dimension to 1 and replaces a non-positive edge
// length with DefaultEdgeLength.
func (c Config) Clamp() Config {
	c.ChunkCount = clampSize(c.ChunkCount)
	c.ChunkSize = clampSize(c.ChunkSize)
	if !(c.CubeEdgeLength > 0) {
		c.CubeEdgeLength = DefaultEdgeLength
	}
	return c
}

func clampSize(s Size) Size {
	if s.X == 0 {
		s.X = 1
	}
	if s.Y == 0 {
		s.Y = 1
	}
	if s.Z == 0 {
		s.Z = 1
	}
	return s
}

// Extent returns the world size of the whole chunk grid.
func (c Config) Extent() mgl32.Vec3 {
	e := c.CubeEdgeLength
	return mgl32.Vec3{
		float32(c.ChunkCount.X*c.ChunkSize.X) * e,
		float32(c.ChunkCount.Y*c.ChunkSize.Y) * e,
		float32(c.ChunkCount.Z*c.ChunkSize.Z) * e,
	}
}

// SameLattice reports whether c and other lay out identical chunk grids.
// Isolevel is ignored since changing it only requires resampling.
func (c Config) SameLattice(other Config) bool {
	return c.ChunkCount == other.ChunkCount &&
		c.ChunkSize == other.ChunkSize &&
		c.CubeEdgeLength == other.CubeEdgeLength
}

// LoadConfig reads a JSON config file. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("lattice: reading config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("lattice: parsing config %s: %w", path, err)
	}
	return cfg, nil
}
