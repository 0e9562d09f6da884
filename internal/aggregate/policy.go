package aggregate

import (
	"errors"
	"fmt"

	"mortstat/internal/field"
)

// Action is what the per-record boundary does with a decode error.
type Action int

const (
	// Skip drops the record and counts it under its error kind.
	Skip Action = iota
	// Abort stops the pass and returns a *PassError.
	Abort
	// Substitute buckets the record under Policy.Sentinel. It applies to
	// unknown codes met while computing a key or an exported column; in a
	// predicate it behaves like Skip.
	Substitute
	// KeepRaw buckets the record under its raw code. Same scope as Substitute.
	KeepRaw
)

var actionNames = map[Action]string{
	Skip:       "skip",
	Abort:      "abort",
	Substitute: "substitute",
	KeepRaw:    "raw",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction maps a config string onto an Action.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return Skip, fmt.Errorf("unknown error action %q (want skip, abort, substitute or raw)", s)
}

// Error kinds used as keys of Stats.Skipped.
const (
	KindMalformed        = "malformed"
	KindUnknownCode      = "unknown_code"
	KindInvalidMagnitude = "invalid_magnitude"
)

// DefaultSentinel is the label used by Substitute when Policy.Sentinel is empty.
const DefaultSentinel = "Unknown"

// Policy chooses an Action per error kind. Errors of any other kind always
// abort the pass.
type Policy struct {
	Malformed        Action
	UnknownCode      Action
	InvalidMagnitude Action
	Sentinel         string
}

// DefaultPolicy skips structurally broken records and records with an
// unparseable magnitude, and reports unmapped codes as "Unknown".
func DefaultPolicy() Policy {
	return Policy{
		Malformed:        Skip,
		UnknownCode:      Substitute,
		InvalidMagnitude: Skip,
		Sentinel:         DefaultSentinel,
	}
}

func (p Policy) sentinel() string {
	if p.Sentinel == "" {
		return DefaultSentinel
	}
	return p.Sentinel
}

// classify returns the error kind and the action for err. ok is false for
// errors outside the decode taxonomy.
func (p Policy) classify(err error) (kind string, act Action, ok bool) {
	var (
		mErr *field.MalformedRecordError
		uErr *field.UnknownCodeError
		iErr *field.InvalidMagnitudeError
	)
	switch {
	case errors.As(err, &mErr):
		return KindMalformed, p.Malformed, true
	case errors.As(err, &uErr):
		return KindUnknownCode, p.UnknownCode, true
	case errors.As(err, &iErr):
		return KindInvalidMagnitude, p.InvalidMagnitude, true
	}
	return "", Abort, false
}

// Replacement resolves an unknown-code error into a bucket key when the
// policy substitutes unknown codes. ok is false when err must go through the
// normal skip/abort handling instead.
func (p Policy) Replacement(err error) (Key, bool) {
	var uErr *field.UnknownCodeError
	if !errors.As(err, &uErr) {
		return Key{}, false
	}
	switch p.UnknownCode {
	case Substitute:
		return LabelKey(p.sentinel()), true
	case KeepRaw:
		return Key{Code: uErr.Code, Label: field.Raw(uErr.Code).String()}, true
	}
	return Key{}, false
}

// PassError reports an aborted pass and how far it got.
type PassError struct {
	Processed int // records fully handled before the failing line
	Line      int // 1-based line number of the failure, 0 for source errors
	Err       error
}

func (e *PassError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("pass aborted at line %d after %d records: %v", e.Line, e.Processed, e.Err)
	}
	return fmt.Sprintf("pass aborted after %d records: %v", e.Processed, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }
