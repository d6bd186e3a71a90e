// Package providertest provides a scripted in-memory ModelProvider for
// tests that need deterministic model behavior.
package providertest

import (
	"context"
	"sync"

	"github.com/hexborne/vulndetective/api/schemas"
)

// Step is one scripted response: either a payload or an error.
type Step struct {
	Response string
	Err      error
}

// Fake replays a fixed script of steps in call order, recording every
// request it receives. When the script runs out, the last step repeats.
type Fake struct {
	mu       sync.Mutex
	script   []Step
	calls    int
	Requests []schemas.GenerationRequest
}

// NewFake builds a Fake from the given script. An empty script always
// returns an empty response.
func NewFake(script ...Step) *Fake {
	return &Fake{script: script}
}

// Respond is shorthand for a single-step fake that always succeeds.
func Respond(response string) *Fake {
	return NewFake(Step{Response: response})
}

// Fail is shorthand for a fake whose every call fails with err.
func Fail(err error) *Fake {
	return NewFake(Step{Err: err})
}

// Generate implements schemas.ModelProvider.
func (f *Fake) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	f.calls++

	if len(f.script) == 0 {
		return "", nil
	}
	idx := f.calls - 1
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	step := f.script[idx]
	return step.Response, step.Err
}

// Calls reports how many times Generate was invoked.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
