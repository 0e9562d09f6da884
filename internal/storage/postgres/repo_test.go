package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortstat/internal/storage"
)

func TestIdentQuoting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"a""b"`, pgIdent(`a"b`))
	assert.Equal(t, `"public"."youth"`, pgFQN("public.youth"))
	assert.Equal(t, pgx.Identifier{"public", "youth"}, splitFQN("public.youth"))
	assert.Equal(t, pgx.Identifier{"youth"}, splitFQN("youth"))
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	got := createTableSQL("public.youth", []string{"AgeYears", "Race"})
	assert.Equal(t, `CREATE TABLE IF NOT EXISTS "public"."youth" ("AgeYears" TEXT, "Race" TEXT)`, got)

	viaRegistry, err := storage.CreateTableSQL("postgres", "public.youth", []string{"AgeYears", "Race"})
	require.NoError(t, err)
	assert.Equal(t, got, viaRegistry)
}

// TestAdapter_UsesHookAndClose verifies the registered factory delegates to
// newRepository and that Close runs the cleanup function.
func TestAdapter_UsesHookAndClose(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	var gotCfg Config
	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		gotCfg = cfg
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://x", Table: "t"})
	require.NoError(t, err)
	assert.Equal(t, Config{DSN: "postgres://x", Table: "t"}, gotCfg)

	n, err := repo.CopyFrom(context.Background(), []string{"a"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	repo.Close()
	assert.True(t, closed)
}

func TestAdapter_PropagatesError(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	boom := errors.New("dial failed")
	newRepository = func(context.Context, Config) (*Repository, func(), error) { return nil, nil, boom }

	_, err := storage.New(context.Background(), storage.Config{Kind: "postgres"})
	assert.ErrorIs(t, err, boom)
}
