package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"mortstat/internal/aggregate"
	"mortstat/internal/config"
	"mortstat/internal/export"
)

func TestMain(m *testing.M) {
	newLogger = func(bool) (*zap.Logger, error) { return zap.NewNop(), nil }
	goleak.VerifyTestMain(m)
}

// rec builds a full-width mortality line.
func rec(age, recode, manner, icd, race string) string {
	b := []byte(strings.Repeat(" ", 446))
	copy(b[69:], age)
	copy(b[78:], recode)
	copy(b[106:], manner)
	copy(b[145:], icd)
	copy(b[444:], race)
	return string(b)
}

var sample = []string{
	rec("1007", "03", "1", "W851", "01"),
	rec("1006", "03", "7", "J189", "02"),
	rec("1008", "03", "7", "C719", "01"),
	rec("1040", "06", "1", "W86 ", "01"),
	rec("2006", "01", "1", "W870", "01"),
	"garbage short line",
	rec("1015", "04", "2", "X700", "99"),
}

const demoReport = `Leading manners of death for 5 to 9 years
Natural: 2
Accident: 1
skipped malformed=1

Electrocution deaths for each age group
Under 1 year: 1
5 - 14 years: 1
35 - 44 years: 1
skipped malformed=1
`

const youthCSV = "AgeYears,Race,ICD10Code\n7,White,W85.1\n6,Black,J18.9\n8,White,C71.9\n15,Unknown,X70.0\n"

func writeData(t *testing.T, lines []string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "VS17MORT.DUSMCPUB")
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return p
}

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestDemoCommand(t *testing.T) {
	t.Parallel()

	data := writeData(t, sample)
	csvPath := filepath.Join(t.TempDir(), "reduced.csv")

	out, _, err := runRoot(t, "demo", data, "-o", csvPath)
	require.NoError(t, err)
	assert.Equal(t, demoReport, out)

	got, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, youthCSV, string(got))
}

func TestExecute_ShardedAndParallelMatchSequential(t *testing.T) {
	t.Parallel()

	var lines []string
	for i := 0; i < 300; i++ {
		lines = append(lines, sample[i%len(sample)])
	}
	data := writeData(t, lines)

	render := func(parallel, shards int) string {
		pl := builtinPlan(data, filepath.Join(t.TempDir(), "y.csv"))
		pl.format.Plain = true
		pl.rt = runtimeConfig{parallelPasses: parallel, shards: shards, batchSize: 10}
		var b bytes.Buffer
		require.NoError(t, execute(context.Background(), zap.NewNop(), pl, &b))
		return b.String()
	}

	seq := render(1, 1)
	assert.Contains(t, seq, "Natural: 86")
	for _, c := range [][2]int{{3, 1}, {1, 4}, {3, 7}} {
		assert.Equal(t, seq, render(c[0], c[1]), "parallel=%d shards=%d", c[0], c[1])
	}
}

func TestRunCommand_ConfigWithSQLiteExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := writeData(t, sample)
	dbPath := filepath.Join(dir, "youth.db")
	cfg := fmt.Sprintf(`{
  "job": "test",
  "source": { "kind": "file", "file": { "path": %q } },
  "queries": [
    { "name": "top_manner", "title": "Manner of death, ages 5-9",
      "filters": [ { "kind": "age_years", "options": { "min": 5, "max": 9 } } ],
      "group_by": ["manner_of_death"], "limit": 1 }
  ],
  "exports": [
    { "name": "youth",
      "filters": [ { "kind": "age_years", "options": { "min": 1, "max": 18 } } ],
      "columns": [
        { "header": "AgeYears", "field": "detail_age", "mode": "years" },
        { "header": "Race", "field": "race" }
      ],
      "sink": { "kind": "sqlite", "db": { "dsn": %q, "table": "youth", "auto_create_table": true } } }
  ],
  "runtime": { "parallel_passes": 2, "batch_size": 2 }
}`, data, dbPath)
	cfgPath := filepath.Join(dir, "pipeline.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	out, _, err := runRoot(t, "run", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Manner of death, ages 5-9")
	assert.Contains(t, out, "Natural")
	assert.NotContains(t, out, "Accident")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "youth" WHERE "Race" = 'White'`).Scan(&n))
	assert.Equal(t, 2, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "youth"`).Scan(&n))
	assert.Equal(t, 4, n)
}

func TestExecute_AbortOnMalformed(t *testing.T) {
	t.Parallel()

	data := writeData(t, sample)
	pl := builtinPlan(data, filepath.Join(t.TempDir(), "y.csv"))
	pl.policy.Malformed = aggregate.Abort

	err := execute(context.Background(), zap.NewNop(), pl, &bytes.Buffer{})
	var pErr *aggregate.PassError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, 6, pErr.Line)
	assert.Equal(t, 5, pErr.Processed)
}

func TestExecute_MissingSource(t *testing.T) {
	t.Parallel()

	pl := builtinPlan(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "y.csv"))
	err := execute(context.Background(), zap.NewNop(), pl, &bytes.Buffer{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
job: j
source: { kind: file, file: { path: in.txt } }
queries:
  - name: q
    group_by: [sex, day_of_week]
`), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
job: ""
source: { kind: file, file: { path: in.txt } }
queries:
  - name: q
    group_by: [zodiac]
`), 0o644))

	out, _, err := runRoot(t, "validate", "-c", good)
	require.NoError(t, err)
	assert.Contains(t, out, "configuration is valid")

	_, errOut, err := runRoot(t, "validate", "-c", bad)
	require.Error(t, err)
	assert.Contains(t, errOut, "error: job:")
	assert.Contains(t, errOut, `unknown field "zodiac"`)
}

func TestFieldsCommand(t *testing.T) {
	t.Parallel()

	out, _, err := runRoot(t, "fields")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "mortality-2017 (record width 446)\n"))
	for _, s := range []string{"detail_age", "icd-10", "race"} {
		assert.Contains(t, out, s)
	}

	_, _, err = runRoot(t, "fields", "--layout", "natality")
	assert.Error(t, err)
}

// Tests below replace package-level seams and must not run in parallel.

func TestExecute_SinkOpenError(t *testing.T) {
	orig := openSinkFn
	t.Cleanup(func() { openSinkFn = orig })
	boom := errors.New("no space")
	openSinkFn = func(context.Context, config.Sink, int, *zap.Logger) (export.RowSink, error) { return nil, boom }

	pl := builtinPlan(writeData(t, sample), "unused.csv")
	err := execute(context.Background(), zap.NewNop(), pl, &bytes.Buffer{})
	assert.ErrorIs(t, err, boom)
}

func TestNewRuntimeConfig_EnvFallback(t *testing.T) {
	t.Setenv("MORTSTAT_SHARDS", "8")
	t.Setenv("MORTSTAT_BATCH_SIZE", "not-a-number")

	rt := newRuntimeConfig(config.Pipeline{Runtime: config.RuntimeConfig{ParallelPasses: 2}})
	assert.Equal(t, runtimeConfig{parallelPasses: 2, shards: 8, batchSize: 10000}, rt)

	rt = newRuntimeConfig(config.Pipeline{Runtime: config.RuntimeConfig{Shards: 3}})
	assert.Equal(t, 3, rt.shards)
	assert.Equal(t, 1, rt.parallelPasses)
}

func TestPolicyFrom(t *testing.T) {
	t.Parallel()

	p, err := policyFrom(config.ErrorPolicy{UnknownCode: "raw", Malformed: "abort", Sentinel: "n/a"})
	require.NoError(t, err)
	assert.Equal(t, aggregate.Policy{
		Malformed:        aggregate.Abort,
		UnknownCode:      aggregate.KeepRaw,
		InvalidMagnitude: aggregate.Skip,
		Sentinel:         "n/a",
	}, p)

	_, err = policyFrom(config.ErrorPolicy{InvalidMagnitude: "explode"})
	assert.Error(t, err)
}
