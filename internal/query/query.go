// Package query turns pipeline configuration into the predicates, key
// functions and column projections that the aggregation engine and the
// exporter run, and provides the built-in mortality analyses.
package query

import (
	"fmt"
	"math"
	"strconv"

	"mortstat/internal/aggregate"
	"mortstat/internal/config"
	"mortstat/internal/export"
	"mortstat/internal/field"
	"mortstat/internal/layout"
	"mortstat/internal/record"
)

// Query is a grouped count ready to run.
type Query struct {
	Name  string
	Title string

	Pred     aggregate.Predicate
	Key      aggregate.KeyFunc
	Order    aggregate.Order
	KeyOrder aggregate.KeyOrder

	// Limit keeps the first Limit ranked entries; 0 keeps all.
	Limit int
}

// Rank orders d the way the query asks for and applies its limit.
func (q Query) Rank(d aggregate.Distribution) []aggregate.Entry {
	out := aggregate.Rank(d, q.Order, q.KeyOrder)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Export is a filtered row export ready to run. The sink is opened by the
// caller from Sink.
type Export struct {
	Name    string
	Pred    aggregate.Predicate
	Columns []export.Column
	Sink    config.Sink
}

// Build resolves a configured query against l.
func Build(l *layout.Layout, c config.Query) (Query, error) {
	pred, err := Filters(l, c.Filters)
	if err != nil {
		return Query{}, fmt.Errorf("query %s: %w", c.Name, err)
	}
	if len(c.GroupBy) == 0 {
		return Query{}, fmt.Errorf("query %s: group_by is empty", c.Name)
	}
	ds := make([]field.Decoder, len(c.GroupBy))
	for i, name := range c.GroupBy {
		d, ok := l.Field(name)
		if !ok {
			return Query{}, fmt.Errorf("query %s: unknown field %q", c.Name, name)
		}
		ds[i] = d
	}
	order, ok := aggregate.ParseOrder(c.Order)
	if !ok {
		return Query{}, fmt.Errorf("query %s: unknown order %q", c.Name, c.Order)
	}
	title := c.Title
	if title == "" {
		title = c.Name
	}
	return Query{
		Name:     c.Name,
		Title:    title,
		Pred:     pred,
		Key:      GroupBy(ds...),
		Order:    order,
		KeyOrder: GroupOrder(ds...),
		Limit:    c.Limit,
	}, nil
}

// BuildExport resolves a configured export against l.
func BuildExport(l *layout.Layout, c config.Export) (Export, error) {
	pred, err := Filters(l, c.Filters)
	if err != nil {
		return Export{}, fmt.Errorf("export %s: %w", c.Name, err)
	}
	if len(c.Columns) == 0 {
		return Export{}, fmt.Errorf("export %s: no columns", c.Name)
	}
	cols := make([]export.Column, len(c.Columns))
	for i, cc := range c.Columns {
		col, err := Column(l, cc)
		if err != nil {
			return Export{}, fmt.Errorf("export %s: %w", c.Name, err)
		}
		cols[i] = col
	}
	return Export{Name: c.Name, Pred: pred, Columns: cols, Sink: c.Sink}, nil
}

// Filters combines configured filters into one predicate.
func Filters(l *layout.Layout, fs []config.Filter) (aggregate.Predicate, error) {
	preds := make([]aggregate.Predicate, 0, len(fs))
	for i, f := range fs {
		p, err := filter(l, f)
		if err != nil {
			return nil, fmt.Errorf("filters[%d]: %w", i, err)
		}
		preds = append(preds, p)
	}
	return And(preds...), nil
}

func filter(l *layout.Layout, f config.Filter) (aggregate.Predicate, error) {
	switch f.Kind {
	case config.FilterAgeYears:
		return AgeYears(l.DetailAge, f.Options.Int("min", 0), f.Options.Int("max", math.MaxInt)), nil
	case config.FilterAgeMonths:
		return AgeMonths(l.DetailAge, f.Options.Int("min", 0), f.Options.Int("max", math.MaxInt)), nil
	case config.FilterDiagnosisRange:
		from, to := f.Options.String("from", ""), f.Options.String("to", "")
		if len(from) != 3 || len(to) != 3 {
			return nil, fmt.Errorf("diagnosis_range needs 3-character from/to, got %q and %q", from, to)
		}
		return DiagnosisRange(l.ICD10, from, to), nil
	case config.FilterEquals:
		name := f.Options.String("field", "")
		d, ok := l.Field(name)
		if !ok {
			return nil, fmt.Errorf("equals: unknown field %q", name)
		}
		values := f.Options.StringSlice("values")
		if len(values) == 0 {
			return nil, fmt.Errorf("equals: no values for field %s", name)
		}
		return Equals(d, values...), nil
	}
	return nil, fmt.Errorf("unknown filter kind %q", f.Kind)
}

// Column resolves one configured export column.
func Column(l *layout.Layout, c config.Column) (export.Column, error) {
	d, ok := l.Field(c.Field)
	if !ok {
		return export.Column{}, fmt.Errorf("column %s: unknown field %q", c.Header, c.Field)
	}
	switch c.Mode {
	case "", config.ModeLabel:
		return export.FieldColumn(c.Header, d), nil
	case config.ModeCode:
		return export.CodeColumn(c.Header, d), nil
	case config.ModeYears, config.ModeMonths:
		age, ok := d.(*field.Age)
		if !ok {
			return export.Column{}, fmt.Errorf("column %s: mode %s needs an age field", c.Header, c.Mode)
		}
		if c.Mode == config.ModeYears {
			return AgeYearsColumn(c.Header, age), nil
		}
		return export.Column{Header: c.Header, Project: func(v record.View) (string, error) {
			a, err := v.Age(age)
			if err != nil {
				return "", err
			}
			return strconv.Itoa(a.Months()), nil
		}}, nil
	}
	return export.Column{}, fmt.Errorf("column %s: unknown mode %q", c.Header, c.Mode)
}

// AgeYearsColumn writes the age in whole years as a bare integer.
func AgeYearsColumn(header string, d *field.Age) export.Column {
	return export.Column{Header: header, Project: func(v record.View) (string, error) {
		a, err := v.Age(d)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(a.Years()), nil
	}}
}
