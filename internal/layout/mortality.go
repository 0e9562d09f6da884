// Package layout holds the record layouts of the public-use mortality files:
// the character ranges of each field and the lookup tables that give codes
// their meaning. Everything here is data. A new dataset year supplies another
// Layout value; the decoders in package field do not change.
package layout

import (
	"fmt"
	"sort"

	"mortstat/internal/field"
)

// Field names used by configs, reports and errors.
const (
	MonthOfDeath = "month_of_death"
	Sex          = "sex"
	DetailAge    = "detail_age"
	AgeRecode12  = "age_recode_12"
	DayOfWeek    = "day_of_week"
	Manner       = "manner_of_death"
	ICD10        = "icd10"
	Race         = "race"
)

// Layout is the immutable set of decoders for one dataset revision.
type Layout struct {
	Name string

	Month       *field.Lookup
	Sex         *field.Lookup
	DetailAge   *field.Age
	AgeRecode12 *field.Lookup
	DayOfWeek   *field.Lookup
	Manner      *field.Lookup
	ICD10       *field.Diagnosis
	Race        *field.Lookup

	byName map[string]field.Decoder
	width  int
}

// Width is the minimum line length that holds every field of the layout.
func (l *Layout) Width() int { return l.width }

// Field returns the decoder registered under name.
func (l *Layout) Field(name string) (field.Decoder, bool) {
	d, ok := l.byName[name]
	return d, ok
}

// Fields returns every decoder ordered by start offset.
func (l *Layout) Fields() []field.Decoder {
	out := make([]field.Decoder, 0, len(l.byName))
	for _, d := range l.byName {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range().Start < out[j].Range().Start })
	return out
}

func (l *Layout) register(ds ...field.Decoder) {
	l.byName = make(map[string]field.Decoder, len(ds))
	for _, d := range ds {
		if _, dup := l.byName[d.Name()]; dup {
			panic(fmt.Sprintf("layout %s: duplicate field %s", l.Name, d.Name()))
		}
		l.byName[d.Name()] = d
		if end := d.Range().End; end > l.width {
			l.width = end
		}
	}
}

// Mortality2017 returns the layout of the 2017 multiple-cause-of-death
// public-use file (VS17MORT.DUSMCPUB).
func Mortality2017() *Layout {
	l := &Layout{
		Name:        "mortality-2017",
		Month:       field.NewLookup(MonthOfDeath, field.Range{Start: 65, End: 66}, monthTable),
		Sex:         field.NewLookup(Sex, field.Range{Start: 69, End: 69}, sexTable),
		DetailAge:   field.NewAge(DetailAge, field.Range{Start: 70, End: 73}),
		AgeRecode12: field.NewLookup(AgeRecode12, field.Range{Start: 79, End: 80}, ageRecode12Table),
		DayOfWeek:   field.NewLookup(DayOfWeek, field.Range{Start: 85, End: 85}, dayOfWeekTable),
		Manner:      field.NewLookup(Manner, field.Range{Start: 107, End: 107}, mannerTable),
		ICD10:       field.NewDiagnosis(ICD10, field.Range{Start: 146, End: 149}),
		Race:        field.NewLookup(Race, field.Range{Start: 445, End: 446}, raceTable),
	}
	l.register(l.Month, l.Sex, l.DetailAge, l.AgeRecode12, l.DayOfWeek, l.Manner, l.ICD10, l.Race)
	return l
}

// ByName resolves a layout by its configuration name. An empty name selects
// the default layout.
func ByName(name string) (*Layout, error) {
	switch name {
	case "", "mortality-2017":
		return Mortality2017(), nil
	default:
		return nil, fmt.Errorf("unknown layout %q", name)
	}
}
