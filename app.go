package main

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/chazu/isomesh/pkg/density"
	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/chazu/isomesh/pkg/lattice"
	"github.com/chazu/isomesh/pkg/regen"
)

// colorPalette is a default palette used to assign distinct colors to chunks.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the front end of the mesher. It owns a scheduler and mirrors the
// meshes it delivers, the way a renderer would.
type App struct {
	ctx   context.Context
	sched *regen.Scheduler

	mu     sync.Mutex
	meshes map[lattice.Size]*kernel.Mesh
	field  density.Field
}

// MeshData is the JSON-serializable mesh format handed to renderers.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Chunk    [3]uint32 `json:"chunk"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable error for the front end.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// StatsData summarizes one pass.
type StatsData struct {
	Trigger   string `json:"trigger"`
	Chunks    int    `json:"chunks"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Anomalies int    `json:"anomalies"`
	Triangles int    `json:"triangles"`
	Vertices  int    `json:"vertices"`
}

// GenerateResult is the full result of a Generate or Regenerate call.
type GenerateResult struct {
	Meshes []MeshData      `json:"meshes"`
	Errors []EvalErrorData `json:"errors"`
	Stats  StatsData       `json:"stats"`
}

// NewApp creates an App with its own scheduler.
func NewApp(ctx context.Context, opts regen.Options) *App {
	a := &App{
		ctx:    ctx,
		meshes: make(map[lattice.Size]*kernel.Mesh),
	}
	a.sched = regen.New(a, opts)
	return a
}

// Close stops the scheduler.
func (a *App) Close() {
	a.sched.Close()
}

// Replace implements regen.Consumer.
func (a *App) Replace(m *kernel.Mesh) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.meshes[lattice.Size{X: m.Chunk[0], Y: m.Chunk[1], Z: m.Chunk[2]}] = m
}

// Discard implements regen.Consumer.
func (a *App) Discard(index lattice.Size) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.meshes, index)
}

// SetConfig applies a lattice config. Invalid fields are clamped and
// reported as errors; the clamped config is still applied.
func (a *App) SetConfig(cfg lattice.Config) []EvalErrorData {
	errs := []EvalErrorData{}
	if err := cfg.Validate(); err != nil {
		log.Printf("SetConfig: %v", err)
		errs = append(errs, EvalErrorData{Message: "config clamped: " + err.Error()})
		cfg = cfg.Clamp()
	}
	if err := a.sched.SetConfig(cfg); err != nil {
		errs = append(errs, EvalErrorData{Message: err.Error()})
	}
	return errs
}

// SetField builds the named field against the current config and hands it
// to the scheduler. On any error the previous field stays in place.
func (a *App) SetField(spec FieldSpec) []EvalErrorData {
	errs := []EvalErrorData{}

	f, evalErrs, err := buildField(spec, a.sched.Config())
	if err != nil {
		// Fatal error (panic, timeout, unknown field).
		log.Printf("SetField fatal error: %v", err)
		return append(errs, EvalErrorData{Message: err.Error()})
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			errs = append(errs, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return errs
	}

	a.mu.Lock()
	a.field = f
	a.mu.Unlock()
	a.sched.SetField(f)
	return errs
}

// Field returns the field last accepted by SetField.
func (a *App) Field() density.Field {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.field
}

// Generate rebuilds every chunk.
func (a *App) Generate() GenerateResult {
	return a.trigger(regen.GenerateAll)
}

// Regenerate re-meshes the chunks whose inputs changed.
func (a *App) Regenerate() GenerateResult {
	return a.trigger(regen.Regenerate)
}

// Update runs whichever pass the scheduler suggests for the current inputs.
func (a *App) Update() GenerateResult {
	return a.trigger(a.sched.Suggest())
}

func (a *App) trigger(t regen.Trigger) GenerateResult {
	result := GenerateResult{
		Meshes: []MeshData{},
		Errors: []EvalErrorData{},
	}

	res, err := a.sched.Trigger(a.ctx, t)
	result.Stats = StatsData{
		Trigger:   t.String(),
		Chunks:    res.Chunks,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
		Anomalies: res.Anomalies,
		Triangles: res.Stats.Triangles,
		Vertices:  res.Stats.Vertices,
	}
	if err != nil {
		log.Printf("%s error: %v", t, err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	result.Meshes = a.MeshData()
	return result
}

// Meshes returns the meshes the scheduler delivered, in chunk order (z,
// then y, then x).
func (a *App) Meshes() []*kernel.Mesh {
	a.mu.Lock()
	out := make([]*kernel.Mesh, 0, len(a.meshes))
	for _, m := range a.meshes {
		out = append(out, m)
	}
	a.mu.Unlock()

	slices.SortFunc(out, func(x, y *kernel.Mesh) int {
		for _, axis := range []int{2, 1, 0} {
			if x.Chunk[axis] != y.Chunk[axis] {
				if x.Chunk[axis] < y.Chunk[axis] {
					return -1
				}
				return 1
			}
		}
		return 0
	})
	return out
}

// MeshData converts the current meshes to the renderer format.
func (a *App) MeshData() []MeshData {
	meshes := a.Meshes()
	cfg := a.sched.Config()
	out := make([]MeshData, 0, len(meshes))
	for _, m := range meshes {
		linear := int(m.Chunk[0]) + int(m.Chunk[1])*int(cfg.ChunkCount.X) +
			int(m.Chunk[2])*int(cfg.ChunkCount.X)*int(cfg.ChunkCount.Y)
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			Chunk:    m.Chunk,
			Name:     fmt.Sprintf("chunk_%d_%d_%d", m.Chunk[0], m.Chunk[1], m.Chunk[2]),
			Color:    colorPalette[linear%len(colorPalette)],
		})
	}
	return out
}
