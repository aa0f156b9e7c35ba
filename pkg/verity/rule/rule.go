// Package rule defines the closed interface implemented by every
// structural-compliance rule, and the registry that groups rules into
// dependency batches for the runner.
package rule

import (
	"context"

	"github.com/jamesainslie/verity/pkg/verity/fscache"
)

// Result is the outcome a rule reports for one execution.
type Result struct {
	// Passed indicates the checked structure complied.
	Passed bool

	// Evidence describes what was observed: the offending path on a
	// failure, optionally a note on a pass. Kept opaque by the engine.
	Evidence string
}

// Rule is a single structural check. Implementations must be
// side-effect-free with respect to each other: execution order within a
// batch is unspecified and rules may run concurrently.
type Rule interface {
	// ID returns the unique rule identifier.
	ID() string

	// Group returns the dependency-batch ordinal. Rules in a lower group
	// complete before any rule in a higher group starts; rules sharing a
	// group run concurrently.
	Group() int

	// Execute runs the check, reading filesystem facts through the cache.
	// An error reports an execution failure, not a rule violation.
	Execute(ctx context.Context, fs *fscache.Cache) (Result, error)
}

// Fail builds a failing result with the given evidence.
func Fail(evidence string) Result { return Result{Evidence: evidence} }

// Pass is the zero-evidence passing result.
func Pass() Result { return Result{Passed: true} }

type funcRule struct {
	id    string
	group int
	fn    func(context.Context, *fscache.Cache) (Result, error)
}

func (r *funcRule) ID() string  { return r.id }
func (r *funcRule) Group() int  { return r.group }
func (r *funcRule) Execute(ctx context.Context, fs *fscache.Cache) (Result, error) {
	return r.fn(ctx, fs)
}

// Func adapts a plain function into a Rule.
func Func(id string, group int, fn func(context.Context, *fscache.Cache) (Result, error)) Rule {
	return &funcRule{id: id, group: group, fn: fn}
}
