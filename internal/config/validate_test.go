package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func minimal() Pipeline {
	return Pipeline{
		Job:    "j",
		Source: Source{Kind: "file", File: SourceFile{Path: "in.txt"}},
		Queries: []Query{{
			Name:    "q",
			GroupBy: []string{"sex"},
		}},
	}
}

func TestValidatePipeline_Minimal(t *testing.T) {
	t.Parallel()
	assert.Empty(t, ValidatePipeline(minimal()))
}

func TestValidatePipeline_Issues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"missing job", func(p *Pipeline) { p.Job = "" }, SeverityError, "job", "must not be empty"},
		{"missing path", func(p *Pipeline) { p.Source.File.Path = "" }, SeverityError, "source.file.path", "non-empty path"},
		{"bad source kind", func(p *Pipeline) { p.Source.Kind = "s3" }, SeverityError, "source.kind", "unknown source kind"},
		{"bad layout", func(p *Pipeline) { p.Layout = "natality-2017" }, SeverityError, "layout", "unknown layout"},
		{"bad action", func(p *Pipeline) { p.Errors.Malformed = "ignore" }, SeverityError, "errors.malformed", "unknown error action"},
		{"substitute malformed", func(p *Pipeline) { p.Errors.Malformed = "substitute" }, SeverityWarning, "errors.malformed", "behaves like"},
		{"nothing to do", func(p *Pipeline) { p.Queries = nil }, SeverityWarning, "queries", "no queries"},
		{"empty group_by", func(p *Pipeline) { p.Queries[0].GroupBy = nil }, SeverityError, "queries[0].group_by", "at least one"},
		{"unknown group field", func(p *Pipeline) { p.Queries[0].GroupBy = []string{"zodiac"} }, SeverityError, "queries[0].group_by[0]", "unknown field"},
		{"bad order", func(p *Pipeline) { p.Queries[0].Order = "random" }, SeverityError, "queries[0].order", "count"},
		{"negative limit", func(p *Pipeline) { p.Queries[0].Limit = -1 }, SeverityError, "queries[0].limit", "negative"},
		{"duplicate names", func(p *Pipeline) { p.Queries = append(p.Queries, p.Queries[0]) }, SeverityError, "queries[1].name", "duplicate"},
		{"age min>max", func(p *Pipeline) {
			p.Queries[0].Filters = []Filter{{Kind: FilterAgeYears, Options: Options{"min": 9, "max": 5}}}
		}, SeverityError, "queries[0].filters[0].options", "greater than"},
		{"age without bounds", func(p *Pipeline) {
			p.Queries[0].Filters = []Filter{{Kind: FilterAgeMonths, Options: Options{}}}
		}, SeverityWarning, "queries[0].filters[0].options", "neither min nor max"},
		{"short diagnosis", func(p *Pipeline) {
			p.Queries[0].Filters = []Filter{{Kind: FilterDiagnosisRange, Options: Options{"from": "W8", "to": "W87"}}}
		}, SeverityError, "queries[0].filters[0].options", "3-character"},
		{"equals unknown field", func(p *Pipeline) {
			p.Queries[0].Filters = []Filter{{Kind: FilterEquals, Options: Options{"field": "nope", "values": []any{"1"}}}}
		}, SeverityError, "queries[0].filters[0].options.field", "unknown field"},
		{"unknown filter", func(p *Pipeline) { p.Queries[0].Filters = []Filter{{Kind: "regex"}} }, SeverityError, "queries[0].filters[0].kind", "unknown filter kind"},
		{"negative shards", func(p *Pipeline) { p.Runtime.Shards = -2 }, SeverityError, "runtime.shards", "negative"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := minimal()
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			assert.True(t, hasIssue(issues, tc.sev, tc.path, tc.msg), "issues: %+v", issues)
		})
	}
}

func TestValidatePipeline_Exports(t *testing.T) {
	t.Parallel()

	p := minimal()
	p.Exports = []Export{
		{Name: "a", Columns: []Column{{Header: "Sex", Field: "sex", Mode: ModeYears}}, Sink: Sink{Kind: "csv"}},
		{Name: "b", Sink: Sink{Kind: "parquet"}},
		{Name: "c", Columns: []Column{{Header: "x", Field: "race"}}, Sink: Sink{Kind: "postgres", DB: DBConfig{Columns: []string{"a", "b"}}}},
	}
	issues := ValidatePipeline(p)

	assert.True(t, hasIssue(issues, SeverityError, "exports[0].columns[0].mode", "needs an age field"))
	assert.True(t, hasIssue(issues, SeverityError, "exports[0].sink.path", "non-empty path"))
	assert.True(t, hasIssue(issues, SeverityError, "exports[1].columns", "at least one column"))
	assert.True(t, hasIssue(issues, SeverityError, "exports[1].sink.kind", "unknown sink kind"))
	assert.True(t, hasIssue(issues, SeverityError, "exports[2].sink.db.dsn", "requires a dsn"))
	assert.True(t, hasIssue(issues, SeverityError, "exports[2].sink.db.table", "requires a table"))
	assert.True(t, hasIssue(issues, SeverityError, "exports[2].sink.db.columns", "2 destination columns"))
	assert.True(t, HasErrors(issues))
}
