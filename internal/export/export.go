// Package export writes the records accepted by a predicate to a row sink,
// one projected row per record.
package export

import (
	"context"
	"fmt"

	"mortstat/internal/aggregate"
	"mortstat/internal/field"
	"mortstat/internal/record"
)

// RowSink consumes a header followed by rows of display strings. It owns
// escaping and is written to in record order. The row slice is reused
// between calls and must not be retained.
type RowSink interface {
	WriteHeader(cols []string) error
	WriteRow(row []string) error
	Close() error
}

// Column projects one output cell out of a record.
type Column struct {
	Header  string
	Project func(record.View) (string, error)
}

// FieldColumn displays the decoded value of d.
func FieldColumn(header string, d field.Decoder) Column {
	return Column{Header: header, Project: func(v record.View) (string, error) {
		val, err := v.Field(d)
		if err != nil {
			return "", err
		}
		return val.String(), nil
	}}
}

// CodeColumn writes the raw code of d untouched.
func CodeColumn(header string, d field.Decoder) Column {
	return Column{Header: header, Project: func(v record.View) (string, error) {
		return v.Code(d)
	}}
}

// Headers returns the header row for cols.
func Headers(cols []Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Header
	}
	return out
}

// Run streams every record of src accepted by pred into sink. Only the row
// being written is held in memory. The header is written before the first
// record is read, so a pass with no matches still produces a header. The
// sink is not closed; the caller owns it.
//
// A cell whose projection hits an unknown code is filled per the engine's
// Policy (sentinel label or raw code); any other projection error drops the
// whole row through the usual skip/abort handling.
func Run(ctx context.Context, e *aggregate.Engine, src aggregate.LineSource, pred aggregate.Predicate, cols []Column, sink RowSink) (aggregate.Stats, error) {
	if len(cols) == 0 {
		return aggregate.Stats{}, fmt.Errorf("export: no columns")
	}
	if err := sink.WriteHeader(Headers(cols)); err != nil {
		return aggregate.Stats{}, fmt.Errorf("export: write header: %w", err)
	}

	row := make([]string, len(cols))
	substituted := 0
	st, err := e.Each(ctx, src, pred, func(v record.View) error {
		n := 0
		for i, c := range cols {
			s, err := c.Project(v)
			if err != nil {
				k, ok := e.Policy.Replacement(err)
				if !ok {
					return err
				}
				s = k.Label
				n++
			}
			row[i] = s
		}
		if err := sink.WriteRow(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
		substituted += n
		return nil
	})
	st.Substituted = substituted
	return st, err
}
