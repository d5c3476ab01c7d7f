// Command isomesh extracts isosurface meshes from a density field sampled on
// a chunked lattice and writes them as Wavefront OBJ.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/chazu/isomesh/pkg/density/sdfx"
	"github.com/chazu/isomesh/pkg/kernel"
	"github.com/chazu/isomesh/pkg/lattice"
	"github.com/chazu/isomesh/pkg/objexport"
	"github.com/chazu/isomesh/pkg/regen"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

// options are the parsed command line flags.
type options struct {
	configPath string
	chunks     string
	size       string
	edge       float64
	iso        float64
	field      string
	scriptPath string
	seed       int64
	mode       string
	workers    int
	timeout    time.Duration
	out        string
	reference  int
	regenerate bool
}

func parseFlags(args []string, stderr io.Writer) (options, map[string]bool, error) {
	var o options
	fs := flag.NewFlagSet("isomesh", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "JSON lattice config file")
	fs.StringVar(&o.chunks, "chunks", "", "chunk count as x,y,z")
	fs.StringVar(&o.size, "size", "", "cubes per chunk as x,y,z")
	fs.Float64Var(&o.edge, "edge", lattice.DefaultEdgeLength, "cube edge length")
	fs.Float64Var(&o.iso, "iso", 0, "isolevel")
	fs.StringVar(&o.field, "field", "sphere", "density field: plane, sphere, blobs, octant, noise, sdfx or script")
	fs.StringVar(&o.scriptPath, "script", "", "zygomys script defining (defn density [x y z] ...), for -field script")
	fs.Int64Var(&o.seed, "seed", 1, "noise seed")
	fs.StringVar(&o.mode, "mode", "shared", "mesh mode: shared or percube")
	fs.IntVar(&o.workers, "workers", 0, "worker goroutines, 0 for one per CPU")
	fs.DurationVar(&o.timeout, "timeout", 0, "per-chunk time limit, 0 for none")
	fs.StringVar(&o.out, "out", "", "write meshes to this OBJ file")
	fs.IntVar(&o.reference, "reference", 0, "also mesh -field sdfx with sdfx's renderer at this many cells and log the counts")
	fs.BoolVar(&o.regenerate, "regenerate", false, "run a second, incremental pass after the first")
	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

// loadConfig starts from the config file, if any, and applies the lattice
// flags given on the command line over it.
func loadConfig(o options, set map[string]bool) (lattice.Config, error) {
	cfg := lattice.DefaultConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = lattice.LoadConfig(o.configPath); err != nil {
			return cfg, err
		}
	}
	if set["chunks"] {
		s, err := lattice.ParseSize(o.chunks)
		if err != nil {
			return cfg, err
		}
		cfg.ChunkCount = s
	}
	if set["size"] {
		s, err := lattice.ParseSize(o.size)
		if err != nil {
			return cfg, err
		}
		cfg.ChunkSize = s
	}
	if set["edge"] {
		cfg.CubeEdgeLength = float32(o.edge)
	}
	if set["iso"] {
		cfg.Isolevel = float32(o.iso)
	}
	return cfg, nil
}

func run(args []string, stderr io.Writer) error {
	o, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	mode, err := kernel.ParseMode(o.mode)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(o, set)
	if err != nil {
		return err
	}

	spec := FieldSpec{Name: o.field, Seed: o.seed}
	if o.field == "script" {
		if o.scriptPath == "" {
			return fmt.Errorf("-field script needs -script")
		}
		src, err := os.ReadFile(o.scriptPath)
		if err != nil {
			return err
		}
		spec.Source = string(src)
	}

	app := NewApp(context.Background(), regen.Options{
		Mode:         mode,
		Workers:      o.workers,
		ChunkTimeout: o.timeout,
	})
	defer app.Close()

	for _, e := range app.SetConfig(cfg) {
		log.Printf("config: %s", e.Message)
	}
	if errs := app.SetField(spec); len(errs) > 0 {
		for _, e := range errs {
			if e.Line > 0 {
				log.Printf("%s:%d: %s", o.scriptPath, e.Line, e.Message)
			} else {
				log.Printf("field: %s", e.Message)
			}
		}
		return fmt.Errorf("field %q rejected", o.field)
	}

	res := app.Generate()
	if err := report(res); err != nil {
		return err
	}
	if o.regenerate {
		if err := report(app.Regenerate()); err != nil {
			return err
		}
	}

	if o.reference > 0 {
		if err := logReference(app, o.reference); err != nil {
			return err
		}
	}

	if o.out != "" {
		if err := objexport.WriteFile(o.out, app.Meshes()); err != nil {
			return err
		}
		log.Printf("wrote %s", o.out)
	}
	return nil
}

func report(res GenerateResult) error {
	s := res.Stats
	log.Printf("%s: %d chunks meshed, %d skipped, %d failed, %d anomalies, %d triangles, %d vertices",
		s.Trigger, s.Chunks, s.Skipped, s.Failed, s.Anomalies, s.Triangles, s.Vertices)
	if len(res.Errors) > 0 {
		return errors.New(res.Errors[0].Message)
	}
	return nil
}

// logReference meshes the current sdfx field with sdfx's own renderer so
// its counts can be compared with ours.
func logReference(app *App, cells int) error {
	solid, ok := app.Field().(*sdfx.Solid)
	if !ok {
		return fmt.Errorf("-reference needs -field sdfx")
	}
	m, err := sdfx.ReferenceMesh(solid, cells)
	if err != nil {
		return err
	}
	log.Printf("sdfx reference: %d triangles at %d cells", m.TriangleCount(), cells)
	return nil
}
