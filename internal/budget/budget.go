// Package budget implements the process-wide monotonic token/cost
// counter shared by an entire agent tree. A single Accumulator is
// constructed per top-level invocation and passed by reference to
// every descendant agent; it must never be shared across invocations
// without an explicit Reset.
package budget

import (
	"strconv"
	"sync"

	"rlmdriver/internal/rlmerr"
	"rlmdriver/internal/usage"
)

// Limits holds the optional caps checked after every Track call. A
// zero value means "no cap".
type Limits struct {
	MaxPromptTokens     int64
	MaxCompletionTokens int64
}

// Accumulator is the guarded running total for one invocation tree.
// Safe for concurrent use: the increment and the snapshot of the new
// total are taken under the same lock, and the limit check reads that
// snapshot, so each tracker checks a total that includes its own call
// and every call tracked before it.
type Accumulator struct {
	mu     sync.Mutex
	total  usage.Usage
	limits Limits
}

// New constructs an Accumulator with the given limits already reset
// to zero totals.
func New(limits Limits) *Accumulator {
	return &Accumulator{limits: limits}
}

// Reset zeroes the running total. Called at the start of each
// top-level invocation.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = usage.Zero
}

// Get returns the current running total.
func (a *Accumulator) Get() usage.Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// Track adds u to the running total and then enforces the configured
// budget caps. The overflowing call is counted before the check runs
// (post-increment), so Get() after a failing Track still reflects it.
func (a *Accumulator) Track(u usage.Usage) error {
	a.mu.Lock()
	a.total = a.total.Add(u)
	total := a.total
	limits := a.limits
	a.mu.Unlock()

	if limits.MaxPromptTokens > 0 && total.PromptTokens > limits.MaxPromptTokens {
		return rlmerr.RuntimeError{Reason: budgetMessage("Prompt", total.PromptTokens, limits.MaxPromptTokens)}
	}
	if limits.MaxCompletionTokens > 0 && total.CompletionTokens > limits.MaxCompletionTokens {
		return rlmerr.RuntimeError{Reason: budgetMessage("Completion", total.CompletionTokens, limits.MaxCompletionTokens)}
	}
	return nil
}

func budgetMessage(kind string, used, limit int64) string {
	return kind + " token budget exceeded: " + strconv.FormatInt(used, 10) + " used, limit is " + strconv.FormatInt(limit, 10)
}
