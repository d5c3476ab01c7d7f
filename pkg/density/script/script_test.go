package script

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

func mustCompile(t *testing.T, source string) *Field {
	t.Helper()
	f, evalErrs, err := Compile(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if f == nil {
		t.Fatal("expected non-nil field")
	}
	t.Cleanup(f.Close)
	return f
}

func TestCompileAndEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		source string
		p      mgl32.Vec3
		want   float32
	}{
		{
			name:   "plane",
			source: "(defn density [x y z] (- y 2.0))",
			p:      mgl32.Vec3{7, 5, -3},
			want:   3,
		},
		{
			name:   "integer result",
			source: "(defn density [x y z] 4)",
			p:      mgl32.Vec3{1, 2, 3},
			want:   4,
		},
		{
			name: "comments",
			source: `;; a sphere of radius 3
(defn density [x y z]
  ; distance minus radius
  (- (length x y z) 3.0))`,
			p:    mgl32.Vec3{3, 4, 0},
			want: 2,
		},
		{
			name: "kebab-case helper",
			source: `(defn wave-height [x] (* 0.5 x))
(defn density [x y z] (- y (wave-height x)))`,
			p:    mgl32.Vec3{4, 3, 0},
			want: 1,
		},
		{
			name:   "math builtins",
			source: "(defn density [x y z] (+ (sqrt x) (abs y) (floor z)))",
			p:      mgl32.Vec3{9, -2, 1.5},
			want:   6,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := mustCompile(t, tt.source)
			got, err := f.Evaluate(tt.p)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if mgl32.Abs(got-tt.want) > 1e-5 {
				t.Errorf("Evaluate(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestNoiseBuiltin(t *testing.T) {
	f := mustCompile(t, "(defn density [x y z] (noise 7 x y z))")
	a, err := f.Evaluate(mgl32.Vec3{1.5, 2.5, 3.5})
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Evaluate(mgl32.Vec3{1.5, 2.5, 3.5})
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("noise not deterministic: %v vs %v", a, b)
	}
	if a < 0 || a > 1 {
		t.Errorf("noise %v outside [0, 1]", a)
	}
}

func TestCompileEvalErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t  "},
		{"unbalanced", "(defn density [x y z] (- y 2)"},
		{"no density", "(defn other [x y z] y)"},
		{"density not a function", "(def density 3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, evalErrs, err := Compile(tt.source)
			if err != nil {
				t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
			}
			if f != nil {
				t.Fatal("expected nil field")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected at least one eval error")
			}
			if evalErrs[0].Message == "" {
				t.Error("eval error message should not be empty")
			}
		})
	}
}

func TestEvaluateRuntimeError(t *testing.T) {
	f := mustCompile(t, `(defn density [x y z] (sqrt "high"))`)
	if _, err := f.Evaluate(mgl32.Vec3{}); err == nil {
		t.Fatal("expected runtime error")
	}
}

func TestEvaluateNotNumber(t *testing.T) {
	f := mustCompile(t, `(defn density [x y z] "solid")`)
	_, err := f.Evaluate(mgl32.Vec3{})
	if !errors.Is(err, ErrNotNumber) {
		t.Fatalf("err = %v, want ErrNotNumber", err)
	}
}

func TestEvaluateConcurrent(t *testing.T) {
	f := mustCompile(t, "(defn density [x y z] (+ x y z))")
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				v, err := f.Evaluate(mgl32.Vec3{float32(i), float32(j), 1})
				if err != nil {
					errs <- err
					return
				}
				if v != float32(i+j+1) {
					errs <- errors.New("wrong value under concurrency")
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	var err error = EvalError{Line: 3, Message: "bad token"}
	if err.Error() != "line 3: bad token" {
		t.Errorf("Error() = %q", err.Error())
	}
	err = EvalError{Message: "no line"}
	if err.Error() != "no line" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line comment", "(+ 1 2) ; sum", "(+ 1 2) // sum"},
		{"double semicolon", ";; header\n(f)", "// header\n(f)"},
		{"kebab", "(wave-height x)", "(wave_height x)"},
		{"minus operator", "(- y 2)", "(- y 2)"},
		{"negative literal", "(+ x -2)", "(+ x -2)"},
		{"string untouched", `"a-b ; c"`, `"a-b ; c"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.in); got != tt.want {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompileTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"engine timeout", 20 * time.Millisecond, 20 * time.Millisecond},
		{"zero uses default", 0, CompileTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Engine{Timeout: tt.timeout}
			if got := e.timeout(); got != tt.want {
				t.Errorf("timeout() = %v, want %v", got, tt.want)
			}
		})
	}

	e := &Engine{Timeout: 20 * time.Millisecond, generation: 1}
	ch := make(chan compileResult) // never sends

	start := time.Now()
	_, _, err := e.wait(ch, 1)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !strings.Contains(err.Error(), "timed out after 20ms") {
		t.Errorf("expected timeout error message, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("wait took %v with a 20ms timeout", elapsed)
	}
}

func TestCompileWithEngineTimeout(t *testing.T) {
	e := &Engine{Timeout: 10 * time.Second}
	f, evalErrs, err := e.Compile("(defn density [x y z] (- y 1.0))")
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("Compile: %v %v", evalErrs, err)
	}
	defer f.Close()
	if v, err := f.Evaluate(mgl32.Vec3{0, 3, 0}); err != nil || v != 2 {
		t.Errorf("Evaluate = %v, %v, want 2", v, err)
	}
}

func TestCompileGenerationDiscardsStale(t *testing.T) {
	e := &Engine{generation: 2}

	ch := make(chan compileResult, 1)
	ch <- compileResult{}

	_, _, err := e.wait(ch, 1)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"short line format", "line 12: missing paren", 12, "missing paren"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}
