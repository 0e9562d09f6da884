package field

import "fmt"

// MalformedRecordError reports a line that is too short to contain a field's
// declared range. It indicates a truncated or corrupt record and is never
// tolerated by padding or truncation.
type MalformedRecordError struct {
	Field  string // field name, or "record" for whole-line width checks
	Need   int    // minimum line length required (the range's End offset)
	Length int    // actual line length
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %s needs %d characters, line has %d", e.Field, e.Need, e.Length)
}

// UnknownCodeError reports a raw code with no mapping in a decoder's table.
// This is a data-quality problem, not a structural one.
type UnknownCodeError struct {
	Field string
	Code  string
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown %s code %q", e.Field, e.Code)
}

// InvalidMagnitudeError reports a composite field whose numeric part is not a
// non-negative base-10 integer.
type InvalidMagnitudeError struct {
	Field     string
	Magnitude string
}

func (e *InvalidMagnitudeError) Error() string {
	return fmt.Sprintf("invalid %s magnitude %q", e.Field, e.Magnitude)
}
