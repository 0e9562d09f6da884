// Package config defines the JSON/YAML pipeline model for mortstat runs: which
// file to read, which layout decodes it, which grouped-count queries and row
// exports to run over it, and how decode errors are handled.
//
// Example (trimmed):
//
//	{
//	  "job":    "mortality-2017",
//	  "source": { "kind": "file", "file": { "path": "VS17MORT.DUSMCPUB" } },
//	  "queries": [
//	    { "name": "manners_5_9",
//	      "filters": [ { "kind": "age_years", "options": { "min": 5, "max": 9 } } ],
//	      "group_by": ["manner_of_death"] }
//	  ],
//	  "exports": [
//	    { "name": "youth",
//	      "filters": [ { "kind": "age_years", "options": { "min": 1, "max": 18 } } ],
//	      "columns": [ { "header": "AgeYears", "field": "detail_age", "mode": "years" } ],
//	      "sink": { "kind": "csv", "path": "reduced.csv" } }
//	  ]
//	}
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pipeline is the top-level object decoded from a pipeline file
// (configs/pipelines/*.json or *.yaml).
type Pipeline struct {
	// Job names the run for logs and metrics labels.
	Job string `json:"job" yaml:"job"`

	Source Source `json:"source" yaml:"source"`

	// Layout selects the record layout; empty means the default layout.
	Layout string `json:"layout" yaml:"layout"`

	Errors ErrorPolicy `json:"errors" yaml:"errors"`

	Queries []Query  `json:"queries" yaml:"queries"`
	Exports []Export `json:"exports" yaml:"exports"`

	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// Source identifies the input. The only kind is "file".
type Source struct {
	Kind string     `json:"kind" yaml:"kind"`
	File SourceFile `json:"file" yaml:"file"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// ErrorPolicy selects the action per decode error kind: "skip", "abort",
// "substitute" or "raw". Empty values keep the defaults.
type ErrorPolicy struct {
	Malformed        string `json:"malformed" yaml:"malformed"`
	UnknownCode      string `json:"unknown_code" yaml:"unknown_code"`
	InvalidMagnitude string `json:"invalid_magnitude" yaml:"invalid_magnitude"`

	// Sentinel is the label used when unknown codes are substituted.
	Sentinel string `json:"sentinel" yaml:"sentinel"`
}

// Filter is one predicate. All filters of a query must accept a record.
//
//	age_years        options: min, max (inclusive)
//	age_months       options: min, max (inclusive)
//	diagnosis_range  options: from, to (ICD-10 categories, inclusive)
//	equals           options: field, values (codes or labels)
type Filter struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Query is a grouped count over the records accepted by Filters.
type Query struct {
	Name  string `json:"name" yaml:"name"`
	Title string `json:"title" yaml:"title"`

	Filters []Filter `json:"filters" yaml:"filters"`

	// GroupBy names one or more layout fields. Multiple fields produce a
	// composite key displayed as "a / b".
	GroupBy []string `json:"group_by" yaml:"group_by"`

	// Order is "count" (default) or "key".
	Order string `json:"order" yaml:"order"`

	// Limit keeps the first N ranked rows; 0 keeps all.
	Limit int `json:"limit" yaml:"limit"`
}

// Export writes the records accepted by Filters to a row sink.
type Export struct {
	Name    string   `json:"name" yaml:"name"`
	Filters []Filter `json:"filters" yaml:"filters"`
	Columns []Column `json:"columns" yaml:"columns"`
	Sink    Sink     `json:"sink" yaml:"sink"`
}

// Column projects one layout field into an output cell.
type Column struct {
	Header string `json:"header" yaml:"header"`
	Field  string `json:"field" yaml:"field"`

	// Mode is "label" (decoded display value, default), "code" (raw code),
	// "years" or "months" (age fields only).
	Mode string `json:"mode" yaml:"mode"`
}

// Sink selects where exported rows go. Kind "csv" writes Path; the database
// kinds ("sqlite", "postgres", "mssql") use DB.
type Sink struct {
	Kind string   `json:"kind" yaml:"kind"`
	Path string   `json:"path" yaml:"path"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures a database row sink.
type DBConfig struct {
	DSN   string `json:"dsn" yaml:"dsn"`
	Table string `json:"table" yaml:"table"`

	// Columns renames the destination columns; when empty the export headers
	// are used. Must have one entry per export column when set.
	Columns []string `json:"columns" yaml:"columns"`

	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// RuntimeConfig controls concurrency and batching. Zero values fall back to
// environment variables and then to built-in defaults.
type RuntimeConfig struct {
	// ParallelPasses bounds how many queries/exports scan the file at once.
	ParallelPasses int `json:"parallel_passes" yaml:"parallel_passes"`

	// Shards splits each query's scan into newline-aligned byte ranges.
	Shards int `json:"shards" yaml:"shards"`

	// BatchSize is the number of rows per database COPY.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Load reads a pipeline file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON. Unknown fields are rejected in both.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("read config: %w", err)
	}
	return Decode(b, filepath.Ext(path))
}

// Decode parses b as YAML when ext is ".yaml" or ".yml", otherwise as JSON.
func Decode(b []byte, ext string) (Pipeline, error) {
	var p Pipeline
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("parse json config: %w", err)
		}
	}
	return p, nil
}

// Options is a small helper to fetch typed values from free-form option
// maps. It returns the provided default when a key is absent or of an
// unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Has reports whether key is present.
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// Int returns the int value for key or def. JSON numbers decode as float64
// and YAML integers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringSlice returns a []string for key when the value is an array of
// strings. A single string is returned as a one-element slice.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		case string:
			return []string{vv}
		}
	}
	return nil
}

// UnmarshalJSON makes a missing or null "options" object decode to a
// non-nil, empty Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
