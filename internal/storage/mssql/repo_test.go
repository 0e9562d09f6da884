package mssql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mortstat/internal/storage"
)

func TestIdentQuoting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[a]]b]", msIdent("a]b"))
	assert.Equal(t, "[dbo].[youth]", msFQN("dbo.youth"))
}

func TestCreateTableSQL(t *testing.T) {
	t.Parallel()

	got, err := storage.CreateTableSQL("mssql", "dbo.youth", []string{"AgeYears", "ICD10Code"})
	require.NoError(t, err)
	assert.Equal(t,
		"IF OBJECT_ID(N'dbo.youth', N'U') IS NULL CREATE TABLE [dbo].[youth] ([AgeYears] NVARCHAR(MAX) NULL, [ICD10Code] NVARCHAR(MAX) NULL)",
		got)
}

func TestNewRepository_RejectsBadDSN(t *testing.T) {
	t.Parallel()

	_, _, err := NewRepository(context.Background(), Config{DSN: "sqlserver://host:notaport"})
	assert.Error(t, err)
}

func TestAdapter_UsesHookAndClose(t *testing.T) {
	orig := newRepository
	t.Cleanup(func() { newRepository = orig })

	closed := false
	newRepository = func(_ context.Context, cfg Config) (*Repository, func(), error) {
		return &Repository{cfg: cfg}, func() { closed = true }, nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "mssql", DSN: "sqlserver://sa@localhost", Table: "dbo.youth"})
	require.NoError(t, err)
	n, err := repo.CopyFrom(context.Background(), []string{"a"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	repo.Close()
	assert.True(t, closed)
}
