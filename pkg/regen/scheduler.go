package regen

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/chazu/isomesh/pkg/density"
	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/chazu/isomesh/pkg/lattice"
	"github.com/chazu/isomesh/pkg/tessellate"
)

// Result summarizes one pass.
type Result struct {
	Trigger   Trigger
	Pass      uint64
	Chunks    int // chunks sampled and meshed
	Skipped   int // chunks already up to date
	Failed    int // chunks whose pass errored or timed out
	Anomalies int // sample points degraded to outside
	Stats     tessellate.Stats
}

// chunkState is one chunk plus the mesh built from it. mu is held for the
// whole sample-and-mesh of the chunk, so two passes never touch the same
// points at once.
type chunkState struct {
	mu    sync.Mutex
	chunk *lattice.Chunk
	gen   uint64 // input generation mesh reflects; 0 before the first mesh
	mesh  *kernel.Mesh
}

// Scheduler runs passes. All methods are safe for concurrent use.
type Scheduler struct {
	consumer Consumer
	opts     Options
	log      *log.Logger
	pool     pond.Pool

	mu       sync.Mutex
	cfg      lattice.Config
	field    density.Field
	inputGen uint64
	pass     uint64
	cancel   context.CancelFunc
	state    State
	built    lattice.Config
	hasBuilt bool
	chunks   []*chunkState
	closed   bool

	// deliverMu serializes consumer calls together with the pass check and
	// guards delivered.
	deliverMu sync.Mutex
	delivered map[lattice.Size]bool // chunks the consumer holds a mesh for
	// runMu is read-held by running triggers so Close can wait for them
	// before stopping the pool.
	runMu sync.RWMutex
}

// New creates a Scheduler that delivers to consumer, which may be nil.
func New(consumer Consumer, opts Options) *Scheduler {
	opts = opts.withDefaults()
	if consumer == nil {
		consumer = ConsumerFuncs{}
	}
	return &Scheduler{
		consumer:  consumer,
		opts:      opts,
		log:       opts.Logger,
		pool:      pond.NewPool(opts.Workers),
		cfg:       lattice.DefaultConfig(),
		inputGen:  1,
		delivered: make(map[lattice.Size]bool),
	}
}

// SetConfig replaces the config used by the next trigger.
func (s *Scheduler) SetConfig(cfg lattice.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("regen: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.inputGen++
	return nil
}

// Config returns the current config.
func (s *Scheduler) Config() lattice.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// SetField replaces the density field used by the next trigger.
func (s *Scheduler) SetField(f density.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.field = f
	s.inputGen++
}

// Invalidate marks every chunk out of date, for fields whose output changed
// without a new Field value.
func (s *Scheduler) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputGen++
}

// State returns what the scheduler is doing.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Suggest returns GenerateAll when nothing is built or the config lays out
// a different grid than the built one, and Regenerate otherwise.
func (s *Scheduler) Suggest() Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasBuilt || !s.cfg.SameLattice(s.built) {
		return GenerateAll
	}
	return Regenerate
}

// Meshes returns the latest mesh of every chunk that has one, in chunk
// order.
func (s *Scheduler) Meshes() []*kernel.Mesh {
	s.mu.Lock()
	chunks := s.chunks
	s.mu.Unlock()

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	out := make([]*kernel.Mesh, 0, len(chunks))
	for _, cs := range chunks {
		if cs.mesh != nil {
			out = append(out, cs.mesh)
		}
	}
	return out
}

// Close cancels any running pass and stops the worker pool.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.pool.StopAndWait()
}

// passInput is everything a pass reads, captured under s.mu.
type passInput struct {
	trigger Trigger
	pass    uint64
	gen     uint64
	field   density.Field
	iso     float32
	chunks  []*chunkState
}

// Trigger runs a pass and blocks until it finishes. Starting a trigger
// cancels the pass before it; that pass returns ErrSuperseded and none of
// its later results reach the consumer.
func (s *Scheduler) Trigger(ctx context.Context, t Trigger) (Result, error) {
	s.runMu.RLock()
	defer s.runMu.RUnlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in, err := s.begin(t, cancel)
	if err != nil {
		return Result{Trigger: t}, err
	}

	res := Result{Trigger: t, Pass: in.pass}
	var resMu sync.Mutex
	var wg sync.WaitGroup
	for _, cs := range in.chunks {
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			out := s.processChunk(ctx, in, cs)
			resMu.Lock()
			res.add(out)
			resMu.Unlock()
		})
	}
	wg.Wait()

	s.deliverMu.Lock()
	current := s.isCurrent(in.pass)
	if current {
		s.discardStale()
	}
	s.deliverMu.Unlock()

	s.mu.Lock()
	if s.pass == in.pass {
		s.state = Idle
	}
	s.mu.Unlock()

	if !current {
		return res, ErrSuperseded
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("regen: %s pass %d: %w", t, in.pass, err)
	}
	return res, nil
}

// begin takes a new pass token, cancels the previous pass and snapshots the
// inputs. For GenerateAll it also rebuilds the chunk grid.
func (s *Scheduler) begin(t Trigger, cancel context.CancelFunc) (passInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return passInput{}, ErrClosed
	case s.field == nil:
		return passInput{}, ErrNoField
	case t == Regenerate && !s.hasBuilt:
		return passInput{}, ErrNotBuilt
	case t != GenerateAll && t != Regenerate:
		return passInput{}, fmt.Errorf("regen: unknown trigger %v", t)
	}

	in := passInput{
		trigger: t,
		gen:     s.inputGen,
		field:   s.field,
		iso:     s.cfg.Isolevel,
	}

	if t == GenerateAll {
		built, err := lattice.Build(s.cfg)
		if err != nil {
			return passInput{}, fmt.Errorf("regen: %w", err)
		}
		chunks := make([]*chunkState, len(built))
		for i, c := range built {
			chunks[i] = &chunkState{chunk: c}
		}
		s.chunks = chunks
		s.built = s.cfg
		s.hasBuilt = true
		s.state = FullRebuild
	} else {
		s.state = PerChunkRemesh
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.pass++
	in.pass = s.pass
	in.chunks = s.chunks
	return in, nil
}

// discardStale tells the consumer to drop every delivered chunk that is not
// part of the current grid, including chunks left over from superseded
// passes. deliverMu must be held.
func (s *Scheduler) discardStale() {
	s.mu.Lock()
	keep := make(map[lattice.Size]bool, len(s.chunks))
	for _, cs := range s.chunks {
		keep[cs.chunk.Index] = true
	}
	s.mu.Unlock()

	var stale []lattice.Size
	for idx := range s.delivered {
		if !keep[idx] {
			stale = append(stale, idx)
		}
	}
	slices.SortFunc(stale, compareIndex)
	for _, idx := range stale {
		s.consumer.Discard(idx)
		delete(s.delivered, idx)
	}
}

// compareIndex orders chunk indices z first, then y, then x.
func compareIndex(a, b lattice.Size) int {
	switch {
	case a.Z != b.Z:
		return cmp.Compare(a.Z, b.Z)
	case a.Y != b.Y:
		return cmp.Compare(a.Y, b.Y)
	}
	return cmp.Compare(a.X, b.X)
}

func (s *Scheduler) isCurrent(pass uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pass == pass
}

// chunkOutcome is the result of one chunk in one pass.
type chunkOutcome struct {
	skipped   bool
	failed    bool
	anomalies int
	stats     tessellate.Stats
}

func (r *Result) add(o chunkOutcome) {
	switch {
	case o.skipped:
		r.Skipped++
	case o.failed:
		r.Failed++
	default:
		r.Chunks++
	}
	r.Anomalies += o.anomalies
	r.Stats.Add(o.stats)
}

// processChunk samples and meshes one chunk and delivers the mesh if the
// pass is still current.
func (s *Scheduler) processChunk(ctx context.Context, in passInput, cs *chunkState) chunkOutcome {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if in.trigger == Regenerate && cs.gen == in.gen {
		return chunkOutcome{skipped: true}
	}
	if ctx.Err() != nil {
		return chunkOutcome{failed: true}
	}

	if s.opts.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ChunkTimeout)
		defer cancel()
	}

	idx := cs.chunk.Index
	rep, err := density.Sample(ctx, cs.chunk, in.field, in.iso)
	if err != nil {
		s.logFailure(in.pass, idx, "sampling", err)
		return chunkOutcome{failed: true}
	}
	if n := len(rep.Anomalies); n > 0 {
		s.log.Printf("regen: chunk %s: %d of %d samples failed, first: %v", idx, n, rep.Sampled, rep.Anomalies[0])
	}

	m, st, err := tessellate.Tessellate(ctx, cs.chunk, in.iso, s.opts.Mode)
	if err != nil {
		s.logFailure(in.pass, idx, "meshing", err)
		return chunkOutcome{failed: true, anomalies: len(rep.Anomalies)}
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.isCurrent(in.pass) {
		return chunkOutcome{failed: true, anomalies: len(rep.Anomalies)}
	}
	cs.mesh = m
	cs.gen = in.gen
	s.delivered[cs.chunk.Index] = true
	s.consumer.Replace(m)
	return chunkOutcome{anomalies: len(rep.Anomalies), stats: st}
}

// logFailure logs chunk errors except the cancellation of a superseded
// pass, which is expected.
func (s *Scheduler) logFailure(pass uint64, idx lattice.Size, stage string, err error) {
	if !s.isCurrent(pass) {
		return
	}
	s.log.Printf("regen: chunk %s: %s failed: %v", idx, stage, err)
}

// GenerateOnce builds and meshes every chunk of cfg once with a throwaway
// scheduler and returns the meshes in chunk order.
func GenerateOnce(ctx context.Context, cfg lattice.Config, field density.Field, opts Options) ([]*kernel.Mesh, error) {
	s := New(nil, opts)
	defer s.Close()

	if err := s.SetConfig(cfg); err != nil {
		return nil, err
	}
	s.SetField(field)
	if _, err := s.Trigger(ctx, GenerateAll); err != nil {
		return nil, err
	}
	return s.Meshes(), nil
}
