package query

import (
	"cmp"
	"strings"

	"mortstat/internal/aggregate"
	"mortstat/internal/field"
	"mortstat/internal/record"
)

const (
	// codeSep joins component codes of a composite key. It cannot occur in
	// a fixed-width record.
	codeSep = "\x1f"
	// LabelSep joins component labels of a composite key for display.
	LabelSep = " / "
)

// FieldKey buckets records by the raw code of d, labelled with its decoded
// display value.
func FieldKey(d field.Decoder) aggregate.KeyFunc {
	return func(v record.View) (aggregate.Key, error) {
		code, err := v.Code(d)
		if err != nil {
			return aggregate.Key{}, err
		}
		val, err := d.Decode(code)
		if err != nil {
			return aggregate.Key{}, err
		}
		return aggregate.Key{Code: code, Label: val.String()}, nil
	}
}

// GroupBy buckets records by one or more fields. With several fields the
// key label reads "Male / Accident". An unknown code in any component fails
// the whole key, so substitution replaces the whole key.
func GroupBy(ds ...field.Decoder) aggregate.KeyFunc {
	if len(ds) == 1 {
		return FieldKey(ds[0])
	}
	keys := make([]aggregate.KeyFunc, len(ds))
	for i, d := range ds {
		keys[i] = FieldKey(d)
	}
	return func(v record.View) (aggregate.Key, error) {
		codes := make([]string, len(keys))
		labels := make([]string, len(keys))
		for i, key := range keys {
			k, err := key(v)
			if err != nil {
				return aggregate.Key{}, err
			}
			codes[i], labels[i] = k.Code, k.Label
		}
		return aggregate.Key{
			Code:  strings.Join(codes, codeSep),
			Label: strings.Join(labels, LabelSep),
		}, nil
	}
}

// FieldOrder is the natural key order of d: table order for lookups,
// numeric-aware code order otherwise.
func FieldOrder(d field.Decoder) aggregate.KeyOrder {
	if lk, ok := d.(*field.Lookup); ok {
		return aggregate.TableOrder(lk.Position)
	}
	return aggregate.NaturalOrder
}

// GroupOrder orders keys built by GroupBy over the same fields, comparing
// component by component in each field's order.
func GroupOrder(ds ...field.Decoder) aggregate.KeyOrder {
	if len(ds) == 1 {
		return FieldOrder(ds[0])
	}
	orders := make([]aggregate.KeyOrder, len(ds))
	for i, d := range ds {
		orders[i] = FieldOrder(d)
	}
	return func(a, b aggregate.Key) int {
		ac := strings.Split(a.Code, codeSep)
		bc := strings.Split(b.Code, codeSep)
		// A substituted key has a single component and sorts last.
		if len(ac) != len(bc) {
			return cmp.Compare(len(bc), len(ac))
		}
		for i := 0; i < len(ac) && i < len(orders); i++ {
			if c := orders[i](aggregate.Key{Code: ac[i]}, aggregate.Key{Code: bc[i]}); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Label, b.Label)
	}
}
