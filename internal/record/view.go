// Package record provides View, the per-line access layer over a
// fixed-width record.
package record

import "mortstat/internal/field"

// View wraps one raw line. Fields are decoded on every call; nothing is
// cached and the line is never modified.
type View struct {
	line string
}

// New validates that line holds at least width characters and wraps it.
// Width is normally the layout width, so a View that was constructed
// successfully can decode every field of that layout.
func New(line string, width int) (View, error) {
	if len(line) < width {
		return View{}, &field.MalformedRecordError{Field: "record", Need: width, Length: len(line)}
	}
	return View{line: line}, nil
}

// Line returns the wrapped line.
func (v View) Line() string { return v.line }

// Code returns the raw code of d.
func (v View) Code(d field.Decoder) (string, error) { return d.RawCode(v.line) }

// Field extracts and decodes d.
func (v View) Field(d field.Decoder) (field.Value, error) {
	raw, err := d.RawCode(v.line)
	if err != nil {
		return nil, err
	}
	return d.Decode(raw)
}

// Age extracts and decodes an age field with its concrete type.
func (v View) Age(d *field.Age) (field.Composite, error) {
	raw, err := d.RawCode(v.line)
	if err != nil {
		return field.Composite{}, err
	}
	return d.DecodeAge(raw)
}

// Diagnosis extracts and decodes a diagnosis field with its concrete type.
func (v View) Diagnosis(d *field.Diagnosis) (field.FormattedCode, error) {
	raw, err := d.RawCode(v.line)
	if err != nil {
		return field.FormattedCode{}, err
	}
	return d.DecodeDiagnosis(raw)
}
