// Package storage is the backend-agnostic face of the database sinks that
// exported rows can be written to. Backends register a factory for their
// kind at init time (see storage/all); callers only depend on Repository.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	Kind    string
	DSN     string
	Table   string
	Columns []string
}

// Repository is the minimal contract a backend offers: bulk-insert rows,
// run DDL, release resources.
type Repository interface {
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// DDLFunc renders a CREATE TABLE statement for an all-text table in the
// backend's dialect. It must be a no-op when the table already exists.
type DDLFunc func(table string, columns []string) string

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
	ddls      = map[string]DDLFunc{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// RegisterDDL installs (or replaces) the table DDL renderer for kind.
func RegisterDDL(kind string, fn DDLFunc) {
	mu.Lock()
	defer mu.Unlock()
	ddls[kind] = fn
}

// New opens a Repository of cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// CreateTableSQL renders the DDL for kind, or an error when the backend did
// not register one.
func CreateTableSQL(kind, table string, columns []string) (string, error) {
	mu.RLock()
	fn, ok := ddls[kind]
	mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("no DDL registered for storage.kind=%q", kind)
	}
	return fn(table, columns), nil
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
