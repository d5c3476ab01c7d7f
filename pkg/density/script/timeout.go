package script

import (
	"fmt"
	"time"
)

// CompileTimeout is the default limit for loading and running a script's
// top level.
const CompileTimeout = 5 * time.Second

type compileResult struct {
	field  *Field
	errors []EvalError
	err    error
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return CompileTimeout
}

// wait returns the result of compile number gen, or an error once the
// engine's timeout passes. A result that arrives after a newer Compile has
// started is closed and reported as superseded.
//
// The compiling goroutine may outlive a timeout; its field is dropped when
// it eventually sends, since nothing reads ch any more.
func (e *Engine) wait(ch <-chan compileResult, gen uint64) (*Field, []EvalError, error) {
	limit := e.timeout()
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()

		if gen != current {
			if res.field != nil {
				res.field.Close()
			}
			return nil, nil, fmt.Errorf("script: compile %d superseded by %d", gen, current)
		}
		return res.field, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("script: compile timed out after %s", limit)
	}
}
