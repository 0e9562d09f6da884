// Package field implements the decoding framework for fixed-width records.
//
// A field is a fixed character range of a line (Range) plus a rule that turns
// the raw characters of that range into a human-readable Value. Every concrete
// field kind implements Decoder; new kinds are added by writing another type
// that satisfies the interface, without touching the existing ones.
//
// Decoders are immutable values. They are built once at startup (see package
// layout) and shared by every record and goroutine.
package field

import "fmt"

// Range is a 1-based, inclusive character range within a record line.
type Range struct {
	Start int
	End   int
}

// Len returns the number of characters covered by r.
func (r Range) Len() int { return r.End - r.Start + 1 }

// Valid reports whether r satisfies 1 <= Start <= End.
func (r Range) Valid() bool { return r.Start >= 1 && r.Start <= r.End }

func (r Range) String() string { return fmt.Sprintf("[%d,%d]", r.Start, r.End) }

// Extract returns the raw code for r from line. The result is never trimmed:
// leading zeros and spaces are part of the code. A line shorter than End
// yields a *MalformedRecordError naming the field.
func (r Range) Extract(name, line string) (string, error) {
	if len(line) < r.End {
		return "", &MalformedRecordError{Field: name, Need: r.End, Length: len(line)}
	}
	return line[r.Start-1 : r.End], nil
}

// Decoder is the capability shared by every field kind.
type Decoder interface {
	// Name identifies the field in errors, configs and reports.
	Name() string
	// Range is the character range the field occupies.
	Range() Range
	// RawCode extracts the field's raw code from a line.
	RawCode(line string) (string, error)
	// Decode turns a raw code into a Value. It is a pure function of raw.
	Decode(raw string) (Value, error)
}
