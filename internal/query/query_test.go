package query

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortstat/internal/aggregate"
	"mortstat/internal/config"
	"mortstat/internal/export"
	"mortstat/internal/field"
	"mortstat/internal/layout"
	"mortstat/internal/record"
	"mortstat/internal/sink/csvfile"
)

var mort = layout.Mortality2017()

// line describes the fields of a synthetic record; zero values stay blank.
type line struct {
	sex, age, recode, manner, icd, race string
}

func (l line) String() string {
	b := []byte(strings.Repeat(" ", mort.Width()))
	copy(b[68:], l.sex)
	copy(b[69:], l.age)
	copy(b[78:], l.recode)
	copy(b[106:], l.manner)
	copy(b[145:], l.icd)
	copy(b[444:], l.race)
	return string(b)
}

func source(ls ...line) aggregate.LineSource {
	s := make([]string, len(ls))
	for i, l := range ls {
		s[i] = l.String()
	}
	return bufio.NewScanner(strings.NewReader(strings.Join(s, "\n")))
}

func view(t *testing.T, l line) record.View {
	t.Helper()
	v, err := record.New(l.String(), mort.Width())
	require.NoError(t, err)
	return v
}

func engine() *aggregate.Engine { return aggregate.New(mort.Width(), aggregate.DefaultPolicy()) }

func TestElectrocution_CategoryBounds(t *testing.T) {
	t.Parallel()

	q := ElectrocutionByAgeGroup(mort)
	res, err := engine().Run(context.Background(), source(
		line{age: "1030", recode: "05", icd: "W860"},
		line{age: "1030", recode: "05", icd: "W84 "},
		line{age: "1030", recode: "05", icd: "W88 "},
		line{age: "1050", recode: "07", icd: "W85 "},
		line{age: "1002", recode: "02", icd: "W879"},
	), q.Pred, q.Key)
	require.NoError(t, err)

	got := q.Rank(res.Dist)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"1 - 4 years", "25 - 34 years", "45 - 54 years"},
		[]string{got[0].Key.Label, got[1].Key.Label, got[2].Key.Label})
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, 2, res.Rejected)
}

func TestMannersByAge_Ranked(t *testing.T) {
	t.Parallel()

	q := MannersByAge(mort, 5, 9)
	assert.Equal(t, "Leading manners of death for 5 to 9 years", q.Title)

	res, err := engine().Run(context.Background(), source(
		line{age: "1007", manner: "1"},
		line{age: "1005", manner: "7"},
		line{age: "1009", manner: "7"},
		line{age: "1030", manner: "2"},
		line{age: "1006", manner: "8"},
	), q.Pred, q.Key)
	require.NoError(t, err)

	got := q.Rank(res.Dist)
	require.Len(t, got, 3)
	assert.Equal(t, aggregate.Entry{Key: aggregate.Key{Code: "7", Label: "Natural"}, Count: 2}, got[0])
	assert.Equal(t, "Accident", got[1].Key.Label)
	assert.Equal(t, "Unknown", got[2].Key.Label)
	assert.Equal(t, 1, res.Substituted)
}

func TestAgeFilters(t *testing.T) {
	t.Parallel()

	infant := view(t, line{age: "2003"})
	child := view(t, line{age: "1002"})
	notStated := view(t, line{age: "9999"})

	ok, err := AgeYears(mort.DetailAge, 0, 0)(infant)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AgeMonths(mort.DetailAge, 12, 24)(child)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AgeMonths(mort.DetailAge, 1, 11)(notStated)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = AgeYears(mort.DetailAge, 0, 9)(view(t, line{age: "10x5"}))
	var iErr *field.InvalidMagnitudeError
	assert.ErrorAs(t, err, &iErr)
}

func TestEquals_CodesAndLabels(t *testing.T) {
	t.Parallel()

	male := view(t, line{sex: "M", race: "99"})

	ok, err := Equals(mort.Sex, "M")(male)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Equals(mort.Sex, "Female", "Male")(male)
	require.NoError(t, err)
	assert.True(t, ok)

	// A code-only filter never decodes, so an unmapped race just rejects.
	ok, err = Equals(mort.Race, "01", "02")(male)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Equals(mort.Race, "White")(male)
	var uErr *field.UnknownCodeError
	assert.ErrorAs(t, err, &uErr)
}

func TestAnd(t *testing.T) {
	t.Parallel()

	v := view(t, line{sex: "F", age: "1007"})
	ok, err := And()(v)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = And(Equals(mort.Sex, "F"), AgeYears(mort.DetailAge, 5, 9))(v)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = And(Equals(mort.Sex, "M"), AgeYears(mort.DetailAge, 5, 9))(v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGroupBy_CompositeKeyAndOrder(t *testing.T) {
	t.Parallel()

	key := GroupBy(mort.Sex, mort.Manner)
	k, err := key(view(t, line{sex: "F", manner: "1"}))
	require.NoError(t, err)
	assert.Equal(t, "Female / Accident", k.Label)

	d := aggregate.Distribution{}
	for _, l := range []line{
		{sex: "F", manner: "7"}, {sex: "M", manner: "1"}, {sex: "F", manner: "1"}, {sex: "M", manner: " "},
	} {
		k, err := key(view(t, l))
		require.NoError(t, err)
		d[k]++
	}
	d[aggregate.LabelKey("Unknown")] = 1

	got := aggregate.Rank(d, aggregate.ByKey, GroupOrder(mort.Sex, mort.Manner))
	labels := make([]string, len(got))
	for i, e := range got {
		labels[i] = e.Key.Label
	}
	assert.Equal(t, []string{
		"Male / Accident", "Male / Not specified", "Female / Accident", "Female / Natural", "Unknown",
	}, labels)
}

func TestBuild_FromConfig(t *testing.T) {
	t.Parallel()

	q, err := Build(mort, config.Query{
		Name: "sex_by_day",
		Filters: []config.Filter{
			{Kind: config.FilterEquals, Options: config.Options{"field": "manner_of_death", "values": []any{"Accident"}}},
		},
		GroupBy: []string{"sex"},
		Order:   "key",
		Limit:   1,
	})
	require.NoError(t, err)
	assert.Equal(t, "sex_by_day", q.Title)

	res, err := engine().Run(context.Background(), source(
		line{sex: "F", manner: "1"}, line{sex: "M", manner: "1"}, line{sex: "M", manner: "7"},
	), q.Pred, q.Key)
	require.NoError(t, err)
	got := q.Rank(res.Dist)
	require.Len(t, got, 1)
	assert.Equal(t, "Male", got[0].Key.Label)
}

func TestBuild_Errors(t *testing.T) {
	t.Parallel()

	bad := []config.Query{
		{Name: "a"},
		{Name: "b", GroupBy: []string{"zodiac"}},
		{Name: "c", GroupBy: []string{"sex"}, Order: "random"},
		{Name: "d", GroupBy: []string{"sex"}, Filters: []config.Filter{{Kind: "regex"}}},
		{Name: "e", GroupBy: []string{"sex"}, Filters: []config.Filter{{Kind: config.FilterDiagnosisRange, Options: config.Options{"from": "W8"}}}},
		{Name: "f", GroupBy: []string{"sex"}, Filters: []config.Filter{{Kind: config.FilterEquals, Options: config.Options{"field": "sex"}}}},
	}
	for _, c := range bad {
		_, err := Build(mort, c)
		assert.Error(t, err, c.Name)
	}
}

func TestBuildExport_YouthMatchesBuiltin(t *testing.T) {
	t.Parallel()

	cfg := config.Export{
		Name:    "youth",
		Filters: []config.Filter{{Kind: config.FilterAgeYears, Options: config.Options{"min": 1, "max": 18}}},
		Columns: []config.Column{
			{Header: "AgeYears", Field: "detail_age", Mode: config.ModeYears},
			{Header: "Race", Field: "race"},
			{Header: "ICD10Code", Field: "icd10"},
		},
		Sink: config.Sink{Kind: "csv", Path: "reduced.csv"},
	}
	fromCfg, err := BuildExport(mort, cfg)
	require.NoError(t, err)
	builtin := YouthExport(mort, "reduced.csv")
	assert.Equal(t, builtin.Sink, fromCfg.Sink)

	lines := []line{
		{age: "1007", race: "01", icd: "W851"},
		{age: "1019", race: "02", icd: "X700"},
		{age: "1018", race: "28", icd: "V892"},
		{age: "2006", race: "01", icd: "P071"},
	}
	run := func(e Export) string {
		var b strings.Builder
		sink := csvfile.New(&b)
		_, err := export.Run(context.Background(), engine(), source(lines...), e.Pred, e.Columns, sink)
		require.NoError(t, err)
		require.NoError(t, sink.Close())
		return b.String()
	}
	want := "AgeYears,Race,ICD10Code\n7,White,W85.1\n18,Korean,V89.2\n"
	assert.Equal(t, want, run(builtin))
	assert.Equal(t, want, run(fromCfg))
}

func TestColumn_Modes(t *testing.T) {
	t.Parallel()

	v := view(t, line{age: "1002", manner: "2"})

	col, err := Column(mort, config.Column{Header: "m", Field: "detail_age", Mode: config.ModeMonths})
	require.NoError(t, err)
	s, err := col.Project(v)
	require.NoError(t, err)
	assert.Equal(t, "24", s)

	col, err = Column(mort, config.Column{Header: "c", Field: "manner_of_death", Mode: config.ModeCode})
	require.NoError(t, err)
	s, err = col.Project(v)
	require.NoError(t, err)
	assert.Equal(t, "2", s)

	_, err = Column(mort, config.Column{Header: "x", Field: "sex", Mode: config.ModeYears})
	assert.Error(t, err)
	_, err = Column(mort, config.Column{Header: "x", Field: "sex", Mode: "upper"})
	assert.Error(t, err)
	_, err = Column(mort, config.Column{Header: "x", Field: "nope"})
	assert.Error(t, err)
}
