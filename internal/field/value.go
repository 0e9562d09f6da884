package field

import "strconv"

// Value is a decoded field value. String returns its display form.
type Value interface {
	String() string
	isValue()
}

// Label is the result of a table lookup.
type Label string

func (l Label) String() string { return string(l) }
func (Label) isValue()         {}

// Raw is a code passed through without interpretation.
type Raw string

func (r Raw) String() string { return string(r) }
func (Raw) isValue()         {}

// Unit is the unit of a Composite value.
type Unit uint8

const (
	UnitNone Unit = iota
	UnitYears
	UnitMonths
	UnitDays
	UnitHours
	UnitMinutes
)

var unitNames = [...]string{
	UnitNone:    "",
	UnitYears:   "years",
	UnitMonths:  "months",
	UnitDays:    "days",
	UnitHours:   "hours",
	UnitMinutes: "minutes",
}

func (u Unit) String() string {
	if int(u) < len(unitNames) {
		return unitNames[u]
	}
	return "unit(" + strconv.Itoa(int(u)) + ")"
}

// Composite is a magnitude paired with a unit, e.g. an age of 3 months.
// When Stated is false the value is "not stated" and Value/Unit are zero.
type Composite struct {
	Value  int
	Unit   Unit
	Stated bool
}

func (Composite) isValue() {}

func (c Composite) String() string {
	if !c.Stated {
		return "Age not stated"
	}
	return strconv.Itoa(c.Value) + " " + c.Unit.String()
}

// Years returns the magnitude when the unit is years, otherwise 0.
func (c Composite) Years() int {
	if c.Stated && c.Unit == UnitYears {
		return c.Value
	}
	return 0
}

// Months returns the value in whole months for year and month units,
// otherwise 0.
func (c Composite) Months() int {
	if !c.Stated {
		return 0
	}
	switch c.Unit {
	case UnitYears:
		return c.Value * 12
	case UnitMonths:
		return c.Value
	}
	return 0
}

// FormattedCode is a diagnosis code split into its category and optional
// sub-category digit. It displays as "W85.1" or "W85".
type FormattedCode struct {
	Category string
	Sub      string
}

func (FormattedCode) isValue() {}

func (f FormattedCode) String() string {
	if f.Sub == "" {
		return f.Category
	}
	return f.Category + "." + f.Sub
}
