package field

import "fmt"

// Diagnosis decodes a four-character ICD-10 code: a three-character category
// and a sub-category digit that is blank when absent.
type Diagnosis struct {
	name string
	rng  Range
}

func NewDiagnosis(name string, rng Range) *Diagnosis {
	if !rng.Valid() || rng.Len() != 4 {
		panic(fmt.Sprintf("field %s: diagnosis range must span 4 characters, got %s", name, rng))
	}
	return &Diagnosis{name: name, rng: rng}
}

func (d *Diagnosis) Name() string { return d.name }
func (d *Diagnosis) Range() Range { return d.rng }

func (d *Diagnosis) RawCode(line string) (string, error) { return d.rng.Extract(d.name, line) }

func (d *Diagnosis) Decode(raw string) (Value, error) {
	c, err := d.DecodeDiagnosis(raw)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DecodeDiagnosis is Decode with a concrete result type.
func (d *Diagnosis) DecodeDiagnosis(raw string) (FormattedCode, error) {
	if len(raw) != 4 {
		return FormattedCode{}, &MalformedRecordError{Field: d.name, Need: 4, Length: len(raw)}
	}
	fc := FormattedCode{Category: raw[:3]}
	if raw[3] != ' ' {
		fc.Sub = raw[3:]
	}
	return fc, nil
}
