// Package regen schedules sampling and meshing passes over a chunk grid.
//
// A Scheduler holds the current lattice config and density field. A
// GenerateAll trigger rebuilds every chunk from the config; a Regenerate
// trigger keeps the built lattices and re-samples and re-meshes only the
// chunks whose mesh predates the latest input change. Chunks run in
// parallel on a worker pool, and meshes are handed to a Consumer as they
// finish.
package regen

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/chazu/isomesh/pkg/lattice"
)

var (
	// ErrSuperseded is returned by a trigger whose pass was overtaken by a
	// newer trigger before it finished.
	ErrSuperseded = errors.New("regen: pass superseded by newer trigger")
	// ErrNoField is returned when a trigger fires before SetField.
	ErrNoField = errors.New("regen: no density field set")
	// ErrNotBuilt is returned by Regenerate before any GenerateAll.
	ErrNotBuilt = errors.New("regen: no chunks built yet")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("regen: scheduler closed")
)

// Trigger selects the kind of pass.
type Trigger int

const (
	// GenerateAll discards every chunk and rebuilds the grid.
	GenerateAll Trigger = iota
	// Regenerate re-samples and re-meshes the existing chunks.
	Regenerate
)

func (t Trigger) String() string {
	switch t {
	case GenerateAll:
		return "generate-all"
	case Regenerate:
		return "regenerate"
	}
	return fmt.Sprintf("Trigger(%d)", int(t))
}

// State is what the scheduler is doing.
type State int

const (
	Idle State = iota
	FullRebuild
	PerChunkRemesh
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FullRebuild:
		return "full-rebuild"
	case PerChunkRemesh:
		return "per-chunk-remesh"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Consumer receives meshes. Replace is called at most once per chunk per
// pass and supersedes any earlier mesh for m.Chunk. Discard is called, at
// the end of the pass that completes as the current one, for every chunk it
// was given a mesh for that is no longer in the grid. Calls are never
// concurrent.
type Consumer interface {
	Replace(m *kernel.Mesh)
	Discard(index lattice.Size)
}

// ConsumerFuncs adapts plain functions to Consumer. Nil funcs are skipped.
type ConsumerFuncs struct {
	ReplaceFunc func(m *kernel.Mesh)
	DiscardFunc func(index lattice.Size)
}

func (c ConsumerFuncs) Replace(m *kernel.Mesh) {
	if c.ReplaceFunc != nil {
		c.ReplaceFunc(m)
	}
}

func (c ConsumerFuncs) Discard(index lattice.Size) {
	if c.DiscardFunc != nil {
		c.DiscardFunc(index)
	}
}

// Options tune a Scheduler.
type Options struct {
	Mode         kernel.Mode
	Workers      int           // defaults to runtime.NumCPU()
	ChunkTimeout time.Duration // zero means no limit
	Logger       *log.Logger   // defaults to log.Default()
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}
