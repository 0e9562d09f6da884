// Package aggregate implements the streaming aggregation engine: one
// sequential scan of a line source, a predicate and a key function per
// record, and grouped counts whose size depends only on the number of
// distinct keys.
package aggregate

import (
	"cmp"
	"slices"
	"strconv"
)

// Key buckets a record. Label is the display form; Code is the ordering
// token (usually the raw code, so "02" sorts before "10" in domain order).
type Key struct {
	Code  string
	Label string
}

func (k Key) String() string { return k.Label }

// LabelKey builds a key whose code and label are the same string.
func LabelKey(s string) Key { return Key{Code: s, Label: s} }

// Distribution holds grouped counts for one pass.
type Distribution map[Key]int

// Add increments k by n.
func (d Distribution) Add(k Key, n int) { d[k] += n }

// Total returns the sum of all counts.
func (d Distribution) Total() int {
	t := 0
	for _, n := range d {
		t += n
	}
	return t
}

// Merge sums distributions key-wise into a new Distribution. Inputs are not
// modified.
func Merge(ds ...Distribution) Distribution {
	out := make(Distribution)
	for _, d := range ds {
		for k, n := range d {
			out[k] += n
		}
	}
	return out
}

// KeyOrder compares two keys in their domain's natural order.
type KeyOrder func(a, b Key) int

// NaturalOrder compares codes numerically when both are integers, otherwise
// lexically, and breaks ties on the label.
func NaturalOrder(a, b Key) int {
	if c := compareCodes(a.Code, b.Code); c != 0 {
		return c
	}
	return cmp.Compare(a.Label, b.Label)
}

func compareCodes(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return cmp.Compare(ai, bi)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	}
	return cmp.Compare(a, b)
}

// TableOrder orders keys by the position of their code in a lookup table.
// Codes absent from the table sort after known codes in NaturalOrder.
func TableOrder(position func(code string) (int, bool)) KeyOrder {
	return func(a, b Key) int {
		ai, aok := position(a.Code)
		bi, bok := position(b.Code)
		switch {
		case aok && bok:
			if c := cmp.Compare(ai, bi); c != 0 {
				return c
			}
		case aok:
			return -1
		case bok:
			return 1
		}
		return NaturalOrder(a, b)
	}
}

// Order selects how Rank sorts a distribution.
type Order int

const (
	// ByCount sorts by count descending; equal counts fall back to key order.
	ByCount Order = iota
	// ByKey sorts by key order only.
	ByKey
)

func (o Order) String() string {
	if o == ByKey {
		return "key"
	}
	return "count"
}

// ParseOrder maps "count" and "key" (and "" as count) onto an Order.
func ParseOrder(s string) (Order, bool) {
	switch s {
	case "", "count":
		return ByCount, true
	case "key":
		return ByKey, true
	}
	return ByCount, false
}

// Entry is one ranked row of a report.
type Entry struct {
	Key   Key
	Count int
}

// Rank returns d as a deterministic sequence. A nil order uses NaturalOrder.
// The result never depends on map iteration or accumulation order.
func Rank(d Distribution, o Order, order KeyOrder) []Entry {
	if order == nil {
		order = NaturalOrder
	}
	out := make([]Entry, 0, len(d))
	for k, n := range d {
		out = append(out, Entry{Key: k, Count: n})
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		if o == ByCount {
			if c := cmp.Compare(b.Count, a.Count); c != 0 {
				return c
			}
		}
		return order(a.Key, b.Key)
	})
	return out
}
