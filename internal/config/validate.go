package config

import (
	"fmt"
	"strings"

	"mortstat/internal/aggregate"
	"mortstat/internal/field"
	"mortstat/internal/layout"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into the
// config (e.g. "queries[1].group_by[0]").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Filter kinds understood by the query builder.
const (
	FilterAgeYears       = "age_years"
	FilterAgeMonths      = "age_months"
	FilterDiagnosisRange = "diagnosis_range"
	FilterEquals         = "equals"
)

// Column modes.
const (
	ModeLabel  = "label"
	ModeCode   = "code"
	ModeYears  = "years"
	ModeMonths = "months"
)

// Sink kinds. The database kinds match the storage backend names.
var sinkKinds = map[string]bool{"csv": true, "sqlite": true, "postgres": true, "mssql": true}

// ValidatePipeline performs static validation of a Pipeline, including field
// names against the selected layout. It does not mutate p.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(p.Job) == "" {
		add(SeverityError, "job", "job must not be empty; it is used for metrics labeling and identifying runs")
	}

	switch {
	case strings.TrimSpace(p.Source.Kind) == "":
		add(SeverityError, "source.kind", "source.kind must not be empty")
	case p.Source.Kind != "file":
		add(SeverityError, "source.kind", "unknown source kind %q; only \"file\" is supported", p.Source.Kind)
	case strings.TrimSpace(p.Source.File.Path) == "":
		add(SeverityError, "source.file.path", "file source requires a non-empty path")
	}

	l, err := layout.ByName(p.Layout)
	if err != nil {
		add(SeverityError, "layout", "%v", err)
		l = nil
	}

	issues = append(issues, validateErrors(p.Errors)...)

	if len(p.Queries) == 0 && len(p.Exports) == 0 {
		add(SeverityWarning, "queries", "no queries or exports configured; the run will only count lines")
	}

	names := map[string]string{}
	seen := func(path, name string) {
		if strings.TrimSpace(name) == "" {
			add(SeverityError, path+".name", "name must not be empty")
			return
		}
		if prev, dup := names[name]; dup {
			add(SeverityError, path+".name", "duplicate name %q (also used by %s)", name, prev)
			return
		}
		names[name] = path
	}

	for i, q := range p.Queries {
		path := fmt.Sprintf("queries[%d]", i)
		seen(path, q.Name)
		issues = append(issues, validateFilters(l, path, q.Filters)...)
		if len(q.GroupBy) == 0 {
			add(SeverityError, path+".group_by", "group_by must name at least one field")
		}
		for j, name := range q.GroupBy {
			if l != nil {
				if _, ok := l.Field(name); !ok {
					add(SeverityError, fmt.Sprintf("%s.group_by[%d]", path, j), "unknown field %q", name)
				}
			}
		}
		if _, ok := aggregate.ParseOrder(q.Order); !ok {
			add(SeverityError, path+".order", "order must be \"count\" or \"key\", got %q", q.Order)
		}
		if q.Limit < 0 {
			add(SeverityError, path+".limit", "limit must not be negative")
		}
	}

	for i, e := range p.Exports {
		path := fmt.Sprintf("exports[%d]", i)
		seen(path, e.Name)
		issues = append(issues, validateFilters(l, path, e.Filters)...)
		issues = append(issues, validateColumns(l, path, e.Columns)...)
		issues = append(issues, validateSink(path+".sink", e.Sink, len(e.Columns))...)
	}

	r := p.Runtime
	if r.ParallelPasses < 0 {
		add(SeverityError, "runtime.parallel_passes", "parallel_passes must not be negative")
	}
	if r.Shards < 0 {
		add(SeverityError, "runtime.shards", "shards must not be negative")
	}
	if r.BatchSize < 0 {
		add(SeverityError, "runtime.batch_size", "batch_size must not be negative")
	}
	return issues
}

func validateErrors(e ErrorPolicy) []Issue {
	var issues []Issue
	check := func(path, v string, keyOnly bool) {
		if v == "" {
			return
		}
		a, err := aggregate.ParseAction(v)
		if err != nil {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: err.Error()})
			return
		}
		if keyOnly && (a == aggregate.Substitute || a == aggregate.KeepRaw) {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("%q only applies to unknown codes; it behaves like \"skip\" here", v),
			})
		}
	}
	check("errors.malformed", e.Malformed, true)
	check("errors.unknown_code", e.UnknownCode, false)
	check("errors.invalid_magnitude", e.InvalidMagnitude, true)
	return issues
}

func validateFilters(l *layout.Layout, path string, fs []Filter) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, p, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: p, Message: fmt.Sprintf(format, args...)})
	}
	for i, f := range fs {
		fp := fmt.Sprintf("%s.filters[%d]", path, i)
		switch f.Kind {
		case FilterAgeYears, FilterAgeMonths:
			if !f.Options.Has("min") && !f.Options.Has("max") {
				add(SeverityWarning, fp+".options", "%s filter has neither min nor max; it accepts every stated age", f.Kind)
			}
			lo, hi := f.Options.Int("min", 0), f.Options.Int("max", 0)
			if f.Options.Has("max") && lo > hi {
				add(SeverityError, fp+".options", "min %d is greater than max %d", lo, hi)
			}
		case FilterDiagnosisRange:
			from, to := f.Options.String("from", ""), f.Options.String("to", "")
			if len(from) != 3 || len(to) != 3 {
				add(SeverityError, fp+".options", "from and to must be 3-character ICD-10 categories, got %q and %q", from, to)
			} else if from > to {
				add(SeverityError, fp+".options", "from %q sorts after to %q", from, to)
			}
		case FilterEquals:
			name := f.Options.String("field", "")
			if l != nil {
				if _, ok := l.Field(name); !ok {
					add(SeverityError, fp+".options.field", "unknown field %q", name)
				}
			}
			if len(f.Options.StringSlice("values")) == 0 {
				add(SeverityError, fp+".options.values", "equals filter needs at least one value")
			}
		case "":
			add(SeverityError, fp+".kind", "filter kind must not be empty")
		default:
			add(SeverityError, fp+".kind", "unknown filter kind %q", f.Kind)
		}
	}
	return issues
}

func validateColumns(l *layout.Layout, path string, cols []Column) []Issue {
	var issues []Issue
	if len(cols) == 0 {
		return append(issues, Issue{Severity: SeverityError, Path: path + ".columns", Message: "export needs at least one column"})
	}
	for i, c := range cols {
		cp := fmt.Sprintf("%s.columns[%d]", path, i)
		if strings.TrimSpace(c.Header) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: cp + ".header", Message: "header must not be empty"})
		}
		var d field.Decoder
		if l != nil {
			var ok bool
			if d, ok = l.Field(c.Field); !ok {
				issues = append(issues, Issue{Severity: SeverityError, Path: cp + ".field", Message: fmt.Sprintf("unknown field %q", c.Field)})
				continue
			}
		}
		switch c.Mode {
		case "", ModeLabel, ModeCode:
		case ModeYears, ModeMonths:
			if _, isAge := d.(*field.Age); d != nil && !isAge {
				issues = append(issues, Issue{Severity: SeverityError, Path: cp + ".mode", Message: fmt.Sprintf("mode %q needs an age field, %q is not one", c.Mode, c.Field)})
			}
		default:
			issues = append(issues, Issue{Severity: SeverityError, Path: cp + ".mode", Message: fmt.Sprintf("unknown column mode %q", c.Mode)})
		}
	}
	return issues
}

func validateSink(path string, s Sink, ncols int) []Issue {
	var issues []Issue
	add := func(p, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: p, Message: fmt.Sprintf(format, args...)})
	}
	if !sinkKinds[s.Kind] {
		add(path+".kind", "unknown sink kind %q; want csv, sqlite, postgres or mssql", s.Kind)
		return issues
	}
	if s.Kind == "csv" {
		if strings.TrimSpace(s.Path) == "" {
			add(path+".path", "csv sink requires a non-empty path")
		}
		return issues
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		add(path+".db.dsn", "%s sink requires a dsn", s.Kind)
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		add(path+".db.table", "%s sink requires a table", s.Kind)
	}
	if len(s.DB.Columns) > 0 && len(s.DB.Columns) != ncols {
		add(path+".db.columns", "%d destination columns for %d export columns", len(s.DB.Columns), ncols)
	}
	return issues
}
