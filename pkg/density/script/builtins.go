package script

import (
	"fmt"
	"math"

	"github.com/chazu/isomesh/pkg/density"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl32"
)

// preprocessSource rewrites source before it reaches zygomys:
//
//  1. ; line comments become // comments, which is what zygomys reads.
//  2. Kebab-case identifiers become underscores: wave-height -> wave_height.
//     zygomys reads the hyphen as subtraction otherwise.
//
// Both transformations respect string literal boundaries.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Only a hyphen between identifier characters; (- y 2) is untouched.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func numericArgs(name string, args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", name, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

// unary registers a one-argument float function under name.
func unary(env *zygo.Zlisp, name string, f func(float64) float64) {
	env.AddFunction(name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numericArgs(name, args, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpFloat{Val: f(v[0])}, nil
	})
}

// registerBuiltins adds the math helpers density scripts use.
//
//	(sqrt v) (abs v) (floor v) (sin v) (cos v)
//	(length x y z)     Euclidean length of a vector
//	(noise seed x y z) layered value noise in [0, 1]
func registerBuiltins(env *zygo.Zlisp) {
	unary(env, "sqrt", math.Sqrt)
	unary(env, "abs", math.Abs)
	unary(env, "floor", math.Floor)
	unary(env, "sin", math.Sin)
	unary(env, "cos", math.Cos)

	env.AddFunction("length", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numericArgs(name, args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpFloat{Val: math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])}, nil
	})

	env.AddFunction("noise", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numericArgs(name, args, 4)
		if err != nil {
			return zygo.SexpNull, err
		}
		n := density.NewNoise(int64(v[0]))
		p := mgl32.Vec3{float32(v[1]), float32(v[2]), float32(v[3])}
		return &zygo.SexpFloat{Val: n.Raw(p)}, nil
	})
}
