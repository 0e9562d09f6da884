package aggregate

import (
	"context"
	"fmt"

	"mortstat/internal/record"
)

// LineSource yields lines in file order, once. *bufio.Scanner satisfies it.
type LineSource interface {
	Scan() bool
	Text() string
	Err() error
}

// Predicate includes (true) or excludes a record.
type Predicate func(record.View) (bool, error)

// KeyFunc computes the bucket of an included record.
type KeyFunc func(record.View) (Key, error)

// All accepts every record.
func All(record.View) (bool, error) { return true, nil }

// Stats counts what happened to every line of a pass. For a completed pass
// Lines == Matched + Rejected + SkippedTotal().
type Stats struct {
	Lines       int
	Matched     int
	Rejected    int
	Substituted int
	Skipped     map[string]int
}

// SkippedTotal sums Skipped over all error kinds.
func (s Stats) SkippedTotal() int {
	t := 0
	for _, n := range s.Skipped {
		t += n
	}
	return t
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Lines += o.Lines
	s.Matched += o.Matched
	s.Rejected += o.Rejected
	s.Substituted += o.Substituted
	for k, n := range o.Skipped {
		if s.Skipped == nil {
			s.Skipped = make(map[string]int)
		}
		s.Skipped[k] += n
	}
}

// Result is the outcome of an aggregation pass.
type Result struct {
	Stats
	Dist Distribution
}

// ctxCheckEvery bounds how many lines are read between cancellation checks.
const ctxCheckEvery = 1024

// Engine runs passes over records of a fixed minimum width under an error
// Policy. An Engine holds no per-pass state and may be shared.
type Engine struct {
	Width  int
	Policy Policy

	// OnSkip, when set, observes every skipped record. It must not retain
	// the error beyond the call if memory matters.
	OnSkip func(line int, kind string, err error)
}

// New returns an Engine for records of at least width characters.
func New(width int, p Policy) *Engine {
	return &Engine{Width: width, Policy: p}
}

// Each scans src, applies pred to every record and calls fn for every
// accepted one. Errors from record construction, pred and fn are handled per
// Policy: skipped records are counted, aborts return a *PassError.
func (e *Engine) Each(ctx context.Context, src LineSource, pred Predicate, fn func(record.View) error) (Stats, error) {
	if pred == nil {
		pred = All
	}
	st := Stats{Skipped: map[string]int{}}

	handle := func(line int, err error) error {
		kind, act, ok := e.Policy.classify(err)
		if !ok || act == Abort {
			return &PassError{Processed: st.Lines - 1, Line: line, Err: err}
		}
		st.Skipped[kind]++
		if e.OnSkip != nil {
			e.OnSkip(line, kind, err)
		}
		return nil
	}

	for src.Scan() {
		st.Lines++
		if st.Lines%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return st, &PassError{Processed: st.Lines - 1, Line: st.Lines, Err: err}
			}
		}

		v, err := record.New(src.Text(), e.Width)
		if err != nil {
			if perr := handle(st.Lines, err); perr != nil {
				return st, perr
			}
			continue
		}

		ok, err := pred(v)
		if err != nil {
			if perr := handle(st.Lines, err); perr != nil {
				return st, perr
			}
			continue
		}
		if !ok {
			st.Rejected++
			continue
		}

		if err := fn(v); err != nil {
			if perr := handle(st.Lines, err); perr != nil {
				return st, perr
			}
			continue
		}
		st.Matched++
	}
	if err := src.Err(); err != nil {
		return st, &PassError{Processed: st.Lines, Err: fmt.Errorf("read source: %w", err)}
	}
	return st, nil
}

// Run counts the records accepted by pred, bucketed by key. Memory grows with
// the number of distinct keys only; lines are never retained.
func (e *Engine) Run(ctx context.Context, src LineSource, pred Predicate, key KeyFunc) (Result, error) {
	dist := make(Distribution)
	substituted := 0
	st, err := e.Each(ctx, src, pred, func(v record.View) error {
		k, err := key(v)
		if err != nil {
			rk, ok := e.Policy.Replacement(err)
			if !ok {
				return err
			}
			k = rk
			substituted++
		}
		dist[k]++
		return nil
	})
	st.Substituted = substituted
	return Result{Stats: st, Dist: dist}, err
}
