// Package sqlplustest provides a fake SQL*Plus process runner for tests.
package sqlplustest

import (
	"context"
	"strings"
	"sync"
)

// Invocation is one recorded run.
type Invocation struct {
	Binary string
	Args   []string
	Stdin  string
}

type response struct {
	match  string
	stdout string
	err    error
}

// Runner answers runs with canned output. The first registered response whose
// match string occurs in the script wins; unmatched scripts get empty output.
type Runner struct {
	mu          sync.Mutex
	responses   []response
	invocations []Invocation
}

// NewRunner returns a runner with no responses.
func NewRunner() *Runner {
	return &Runner{}
}

// On registers stdout for scripts containing match.
func (r *Runner) On(match, stdout string) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{match: match, stdout: stdout})
	return r
}

// OnProcedure registers stdout for calls to the named procedure.
func (r *Runner) OnProcedure(name, stdout string) *Runner {
	return r.On("."+name, stdout)
}

// Fail makes scripts containing match fail to run with err.
func (r *Runner) Fail(match string, err error) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{match: match, err: err})
	return r
}

// Run implements sqlplus.Runner.
func (r *Runner) Run(ctx context.Context, binary string, args []string, stdin string) ([]byte, []byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.invocations = append(r.invocations, Invocation{
		Binary: binary,
		Args:   append([]string(nil), args...),
		Stdin:  stdin,
	})

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	for _, resp := range r.responses {
		if strings.Contains(stdin, resp.match) {
			if resp.err != nil {
				return nil, nil, resp.err
			}
			return []byte(resp.stdout), nil, nil
		}
	}
	return nil, nil, nil
}

// Invocations returns every recorded run in order.
func (r *Runner) Invocations() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Invocation(nil), r.invocations...)
}

// Called reports whether any script called the named procedure.
func (r *Runner) Called(procedure string) bool {
	for _, inv := range r.Invocations() {
		if strings.Contains(inv.Stdin, "."+procedure) {
			return true
		}
	}
	return false
}
