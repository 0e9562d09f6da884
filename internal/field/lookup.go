package field

import "fmt"

// Entry maps one raw code to its label.
type Entry struct {
	Code  string
	Label string
}

// Lookup decodes a field by exact-match table lookup. The table is ordered;
// that order is the field's natural key order for reports.
type Lookup struct {
	name  string
	rng   Range
	table []Entry
	index map[string]int
}

// NewLookup builds a lookup decoder. It panics on an invalid range, on codes
// whose length differs from the range, or on duplicate codes; tables are
// compiled-in data so these are programming errors.
func NewLookup(name string, rng Range, table []Entry) *Lookup {
	if !rng.Valid() {
		panic(fmt.Sprintf("field %s: invalid range %s", name, rng))
	}
	idx := make(map[string]int, len(table))
	for i, e := range table {
		if len(e.Code) != rng.Len() {
			panic(fmt.Sprintf("field %s: code %q does not fit range %s", name, e.Code, rng))
		}
		if _, dup := idx[e.Code]; dup {
			panic(fmt.Sprintf("field %s: duplicate code %q", name, e.Code))
		}
		idx[e.Code] = i
	}
	t := make([]Entry, len(table))
	copy(t, table)
	return &Lookup{name: name, rng: rng, table: t, index: idx}
}

func (l *Lookup) Name() string { return l.name }
func (l *Lookup) Range() Range { return l.rng }

func (l *Lookup) RawCode(line string) (string, error) { return l.rng.Extract(l.name, line) }

// Decode returns the label for raw, or *UnknownCodeError when raw is not in
// the table.
func (l *Lookup) Decode(raw string) (Value, error) {
	i, ok := l.index[raw]
	if !ok {
		return nil, &UnknownCodeError{Field: l.name, Code: raw}
	}
	return Label(l.table[i].Label), nil
}

// Position returns the index of code in the table order.
func (l *Lookup) Position(code string) (int, bool) {
	i, ok := l.index[code]
	return i, ok
}

// Entries returns a copy of the table in declared order.
func (l *Lookup) Entries() []Entry {
	out := make([]Entry, len(l.table))
	copy(out, l.table)
	return out
}
