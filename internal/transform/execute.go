package transform

import (
	"context"
	"time"

	"github.com/krishnapaul242/gati-sub004"
)

// TransformRequest walks the chain from `from` to `to` over versions,
// applying each adjacent step's request transform (spec §4.2
// "transform-request").
func (e *Engine) TransformRequest(ctx context.Context, data []byte, from, to timescape.RID, versions []timescape.RID, opts Options) Result {
	return e.run(ctx, data, from, to, versions, opts, FlavorRequest)
}

// TransformResponse is the response-flavored counterpart of TransformRequest.
func (e *Engine) TransformResponse(ctx context.Context, data []byte, from, to timescape.RID, versions []timescape.RID, opts Options) Result {
	return e.run(ctx, data, from, to, versions, opts, FlavorResponse)
}

func (e *Engine) run(ctx context.Context, data []byte, from, to timescape.RID, versions []timescape.RID, opts Options, flavor Flavor) Result {
	chain, err := e.BuildChain(from, to, versions)
	if err != nil {
		return e.fail(data, nil, err, opts)
	}
	if len(chain) == 0 {
		if from == to {
			return Result{Data: data, Visited: []timescape.RID{from}}
		}
		return e.fail(data, nil, timescape.NewError(timescape.CodeVersionNotFound, "endpoint not present among versions", nil), opts)
	}

	visited := make([]timescape.RID, 0, len(chain))
	current := data
	visited = append(visited, chain[0])

	for i := 0; i < len(chain)-1; i++ {
		u, v := chain[i], chain[i+1]

		pair, ok := e.Get(u, v)
		if !ok {
			return e.fail(data, visited, ErrNoTransformer, opts)
		}

		fn := selectFunc(pair, u, v, flavor)
		visited = append(visited, v)

		if fn == nil {
			continue // identity
		}

		next, stepErr := e.runStep(ctx, fn, current, opts.Timeout)
		if stepErr != nil {
			return e.fail(data, visited, stepErr, opts)
		}
		current = next
	}

	return Result{Data: current, Visited: visited}
}

// selectFunc picks the forward or backward branch for the u->v step, and
// the request or response function per flavor. Direction is derived from
// embedded timestamps, never registration order (spec §4.2 "Invariants").
func selectFunc(pair *Pair, u, v timescape.RID, flavor Flavor) Func {
	tu, _ := u.Timestamp()
	tv, _ := v.Timestamp()
	forward := tu < tv

	switch {
	case forward && flavor == FlavorRequest:
		return pair.ForwardRequest
	case forward && flavor == FlavorResponse:
		return pair.ForwardResponse
	case !forward && flavor == FlavorRequest:
		return pair.BackwardRequest
	default:
		return pair.BackwardResponse
	}
}

// runStep races fn against opts.Timeout (if set), per spec §5 "per-step
// promise-vs-timer race". On timer fire, the step is abandoned: runStep
// returns ErrTransformerTimeout but the goroutine running fn is not
// cancelled (fn should itself honor ctx).
func (e *Engine) runStep(ctx context.Context, fn Func, data []byte, timeout time.Duration) ([]byte, error) {
	stepCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		data []byte
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		out, err := fn(stepCtx, data)
		done <- outcome{out, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, timescape.NewError(timescape.CodeTransformerFailed, "transformer step failed", o.err)
		}
		return o.data, nil
	case <-stepCtx.Done():
		return nil, timescape.NewError(timescape.CodeTransformerTimeout, "transformer step timed out", stepCtx.Err())
	}
}

func (e *Engine) fail(data []byte, visited []timescape.RID, err error, opts Options) Result {
	if opts.FallbackOnError {
		return Result{Data: data, Visited: visited, Err: err}
	}
	return Result{Visited: visited, Err: err}
}
