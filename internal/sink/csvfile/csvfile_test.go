package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_WritesHeaderAndRows(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "reduced.csv")
	s, err := Create(p)
	require.NoError(t, err)
	assert.Equal(t, p, s.Path())

	require.NoError(t, s.WriteHeader([]string{"AgeYears", "Race", "ICD10Code"}))
	require.NoError(t, s.WriteRow([]string{"7", "White", "W85.1"}))
	require.NoError(t, s.WriteRow([]string{"12", "Other Asian or Pacific Islander, \"other\"", "V89"}))
	require.NoError(t, s.Close())
	assert.Equal(t, int64(2), s.Written())

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t,
		"AgeYears,Race,ICD10Code\n7,White,W85.1\n12,\"Other Asian or Pacific Islander, \"\"other\"\"\",V89\n",
		string(got))
}

func TestCreate_BadPath(t *testing.T) {
	t.Parallel()

	_, err := Create(filepath.Join(t.TempDir(), "missing", "x.csv"))
	assert.Error(t, err)
}

func TestNew_Writer(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	s := New(&b)
	require.NoError(t, s.WriteHeader([]string{"a"}))
	require.NoError(t, s.Close())
	assert.Equal(t, "a\n", b.String())
	assert.Empty(t, s.Path())
}
