package field

import "fmt"

// ageUnits maps the unit digit of a detail-age code. '9' is handled
// separately as "not stated".
var ageUnits = map[byte]Unit{
	'1': UnitYears,
	'2': UnitMonths,
	'4': UnitDays,
	'5': UnitHours,
	'6': UnitMinutes,
}

const ageNotStated = '9'

// Age decodes a unit digit followed by a zero-padded magnitude, e.g. "1005"
// is 5 years and "2003" is 3 months.
type Age struct {
	name string
	rng  Range
}

// NewAge returns an age decoder over rng. The range must hold at least the
// unit digit and one magnitude digit.
func NewAge(name string, rng Range) *Age {
	if !rng.Valid() || rng.Len() < 2 {
		panic(fmt.Sprintf("field %s: invalid age range %s", name, rng))
	}
	return &Age{name: name, rng: rng}
}

func (a *Age) Name() string { return a.name }
func (a *Age) Range() Range { return a.rng }

func (a *Age) RawCode(line string) (string, error) { return a.rng.Extract(a.name, line) }

func (a *Age) Decode(raw string) (Value, error) {
	c, err := a.DecodeAge(raw)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DecodeAge is Decode with a concrete result type.
func (a *Age) DecodeAge(raw string) (Composite, error) {
	if len(raw) != a.rng.Len() {
		return Composite{}, &MalformedRecordError{Field: a.name, Need: a.rng.Len(), Length: len(raw)}
	}
	if raw[0] == ageNotStated {
		return Composite{}, nil
	}
	unit, ok := ageUnits[raw[0]]
	if !ok {
		return Composite{}, &UnknownCodeError{Field: a.name, Code: raw}
	}
	mag := raw[1:]
	n := 0
	for i := 0; i < len(mag); i++ {
		c := mag[i]
		if c < '0' || c > '9' {
			return Composite{}, &InvalidMagnitudeError{Field: a.name, Magnitude: mag}
		}
		n = n*10 + int(c-'0')
	}
	return Composite{Value: n, Unit: unit, Stated: true}, nil
}
