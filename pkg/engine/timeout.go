package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/boxel/pkg/scene"
)

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrSuperseded is returned when a newer evaluation started while this
	// one was running.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
	// ErrTimeout is returned when an evaluation outlives its deadline.
	ErrTimeout = errors.New("evaluation timed out")
)

type evalResult struct {
	objects []scene.SceneObject
	errors  []EvalError
	err     error
}

// await blocks until the evaluation tagged gen reports on ch, the engine
// timeout elapses, or ctx is done. The interpreter goroutine is not
// interrupted on timeout; its late result is dropped because ch is
// buffered and nobody reads it.
func (e *Engine) await(ctx context.Context, ch <-chan evalResult, gen uint64) ([]scene.SceneObject, []EvalError, error) {
	limit := e.Timeout
	if limit <= 0 {
		limit = EvalTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	select {
	case res := <-ch:
		if !e.current(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.objects, res.errors, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, limit)
		}
		return nil, nil, ctx.Err()
	}
}

func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == gen
}
