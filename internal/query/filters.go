package query

import (
	"strings"

	"mortstat/internal/aggregate"
	"mortstat/internal/field"
	"mortstat/internal/record"
)

// AgeYears accepts records whose age in whole years lies in [lo, hi]. Ages
// stated in smaller units and unstated ages count as 0 years.
func AgeYears(d *field.Age, lo, hi int) aggregate.Predicate {
	return func(v record.View) (bool, error) {
		a, err := v.Age(d)
		if err != nil {
			return false, err
		}
		y := a.Years()
		return y >= lo && y <= hi, nil
	}
}

// AgeMonths accepts records whose age in months lies in [lo, hi]. Ages
// stated in days or smaller and unstated ages count as 0 months.
func AgeMonths(d *field.Age, lo, hi int) aggregate.Predicate {
	return func(v record.View) (bool, error) {
		a, err := v.Age(d)
		if err != nil {
			return false, err
		}
		m := a.Months()
		return m >= lo && m <= hi, nil
	}
}

// DiagnosisRange accepts records whose ICD-10 category lies between from and
// to inclusive, e.g. W85..W87 matches W85, W86.0 and W87.9. Categories are
// compared as strings, so both bounds should share the chapter letter.
func DiagnosisRange(d *field.Diagnosis, from, to string) aggregate.Predicate {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	return func(v record.View) (bool, error) {
		c, err := v.Diagnosis(d)
		if err != nil {
			return false, err
		}
		return c.Category >= from && c.Category <= to, nil
	}
}

// Equals accepts records whose raw code, or decoded display value, is one of
// values. The field is only decoded when some value is not a raw code match,
// so a code-only filter never fails on an unmapped code.
func Equals(d field.Decoder, values ...string) aggregate.Predicate {
	set := make(map[string]struct{}, len(values))
	labels := false
	for _, s := range values {
		set[s] = struct{}{}
		if len(s) != d.Range().Len() {
			labels = true
		}
	}
	if lk, ok := d.(*field.Lookup); ok && !labels {
		for _, s := range values {
			if _, known := lk.Position(s); !known {
				labels = true
				break
			}
		}
	}
	return func(v record.View) (bool, error) {
		code, err := v.Code(d)
		if err != nil {
			return false, err
		}
		if _, ok := set[code]; ok {
			return true, nil
		}
		if !labels {
			return false, nil
		}
		val, err := d.Decode(code)
		if err != nil {
			return false, err
		}
		_, ok := set[val.String()]
		return ok, nil
	}
}

// And accepts a record when every predicate does. It stops at the first
// rejection or error. And() accepts everything.
func And(preds ...aggregate.Predicate) aggregate.Predicate {
	switch len(preds) {
	case 0:
		return aggregate.All
	case 1:
		return preds[0]
	}
	return func(v record.View) (bool, error) {
		for _, p := range preds {
			ok, err := p(v)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}
