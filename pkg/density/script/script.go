// Package script provides density fields written in zygomys Lisp. A script
// is loaded into a sandboxed interpreter and must define
//
//	(defn density [x y z] ...)
//
// which is then called once per lattice point.
package script

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/isomesh/pkg/density"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl32"
)

// Compile-time interface check.
var _ density.Field = (*Field)(nil)

// EntryPoint is the function every script must define.
const EntryPoint = "density"

// ErrNotNumber is returned by Field.Evaluate when the script's density
// function returns something other than a number.
var ErrNotNumber = errors.New("script: density did not return a number")

// EvalError represents a non-fatal error in user code, such as a parse
// error or a missing density function.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Field is a compiled script. The interpreter is not safe for concurrent
// use, so Evaluate calls are serialized.
type Field struct {
	mu  sync.Mutex
	env *zygo.Zlisp
	fn  *zygo.SexpFunction
}

// Engine compiles scripts. Each Compile creates a fresh sandbox; a compile
// that finishes after a newer one has started is discarded.
type Engine struct {
	// Timeout bounds each Compile. Zero means CompileTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Compile compiles source with a one-off Engine.
func Compile(source string) (*Field, []EvalError, error) {
	return NewEngine().Compile(source)
}

// Compile loads source into a fresh sandbox and looks up its density
// function.
//
// Return semantics:
//   - On success: returns field + nil errors + nil error
//   - On parse/eval failure: returns nil field + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Compile(source string) (*Field, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan compileResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- compileResult{err: fmt.Errorf("script: panic during compile: %v", r)}
			}
		}()

		f, evalErrs, err := compile(source)
		ch <- compileResult{field: f, errors: evalErrs, err: err}
	}()

	return e.wait(ch, gen)
}

func compile(source string) (*Field, []EvalError, error) {
	if strings.TrimSpace(source) == "" {
		return nil, []EvalError{{Message: "empty script"}}, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	registerBuiltins(env)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		env.Stop()
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		env.Stop()
		return nil, parseZygomysError(err), nil
	}

	obj, ok := env.FindObject(EntryPoint)
	if !ok {
		env.Stop()
		return nil, []EvalError{{Message: fmt.Sprintf("script does not define (defn %s [x y z] ...)", EntryPoint)}}, nil
	}
	fn, ok := obj.(*zygo.SexpFunction)
	if !ok {
		env.Stop()
		return nil, []EvalError{{Message: fmt.Sprintf("%s is %T, not a function", EntryPoint, obj)}}, nil
	}
	return &Field{env: env, fn: fn}, nil, nil
}

// Evaluate calls the script's density function with p's coordinates.
func (f *Field) Evaluate(p mgl32.Vec3) (float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	args := []zygo.Sexp{
		&zygo.SexpFloat{Val: float64(p.X())},
		&zygo.SexpFloat{Val: float64(p.Y())},
		&zygo.SexpFloat{Val: float64(p.Z())},
	}
	res, err := f.env.Apply(f.fn, args)
	if err != nil {
		// Drop whatever the failed call left on the stacks; definitions
		// live in the global scope and survive.
		f.env.Clear()
		return 0, fmt.Errorf("script: %s at %v: %w", EntryPoint, p, err)
	}
	v, err := toFloat64(res)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotNumber, err)
	}
	return float32(v), nil
}

// Close stops the interpreter. The field must not be used afterwards.
func (f *Field) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.env.Stop()
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
