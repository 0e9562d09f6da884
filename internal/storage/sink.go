package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SinkOptions configures a RowSink.
type SinkOptions struct {
	// BatchSize is the number of rows per CopyFrom call.
	BatchSize int
	// AutoCreate issues the backend's CREATE TABLE before the first row.
	AutoCreate bool
}

// RowSink adapts a Repository to the export row-sink contract. Rows are
// buffered up to BatchSize and flushed with CopyFrom; the header becomes the
// column list unless Config.Columns was set.
type RowSink struct {
	ctx  context.Context
	repo Repository
	cfg  Config
	opt  SinkOptions
	log  *zap.Logger

	cols    []string
	batch   [][]any
	written int64
	batches int64
}

// NewRowSink opens a repository for cfg and wraps it. The sink owns the
// repository and closes it in Close.
func NewRowSink(ctx context.Context, cfg Config, opt SinkOptions, log *zap.Logger) (*RowSink, error) {
	repo, err := New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	return newRowSink(ctx, repo, cfg, opt, log), nil
}

func newRowSink(ctx context.Context, repo Repository, cfg Config, opt SinkOptions, log *zap.Logger) *RowSink {
	if opt.BatchSize <= 0 {
		opt.BatchSize = 10000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RowSink{
		ctx:   ctx,
		repo:  repo,
		cfg:   cfg,
		opt:   opt,
		log:   log,
		batch: make([][]any, 0, opt.BatchSize),
	}
}

// WriteHeader fixes the column list and creates the table when configured.
func (s *RowSink) WriteHeader(header []string) error {
	s.cols = header
	if len(s.cfg.Columns) > 0 {
		if len(s.cfg.Columns) != len(header) {
			return fmt.Errorf("storage sink: %d configured columns for %d exported fields", len(s.cfg.Columns), len(header))
		}
		s.cols = s.cfg.Columns
	}
	if !s.opt.AutoCreate {
		return nil
	}
	ddl, err := CreateTableSQL(s.cfg.Kind, s.cfg.Table, s.cols)
	if err != nil {
		return err
	}
	if err := s.repo.Exec(s.ctx, ddl); err != nil {
		return fmt.Errorf("apply DDL: %w", err)
	}
	s.log.Debug("table ensured", zap.String("table", s.cfg.Table), zap.Strings("columns", s.cols))
	return nil
}

// WriteRow buffers one row and flushes a full batch.
func (s *RowSink) WriteRow(row []string) error {
	if s.cols == nil {
		return fmt.Errorf("storage sink: WriteRow before WriteHeader")
	}
	vals := make([]any, len(row))
	for i, v := range row {
		vals[i] = v
	}
	s.batch = append(s.batch, vals)
	if len(s.batch) >= s.opt.BatchSize {
		return s.flush()
	}
	return nil
}

func (s *RowSink) flush() error {
	if len(s.batch) == 0 {
		return nil
	}
	n, err := s.repo.CopyFrom(s.ctx, s.cols, s.batch)
	if err != nil {
		return fmt.Errorf("copy batch of %d rows into %s: %w", len(s.batch), s.cfg.Table, err)
	}
	s.written += n
	s.batches++
	s.log.Debug("batch flushed",
		zap.String("table", s.cfg.Table),
		zap.Int64("batch", s.batches),
		zap.Int64("rows", n),
		zap.Int64("total_rows", s.written))
	s.batch = s.batch[:0]
	return nil
}

// Written returns the number of rows the backend reported as inserted.
func (s *RowSink) Written() int64 { return s.written }

// Batches returns how many batches were flushed.
func (s *RowSink) Batches() int64 { return s.batches }

// Close flushes the last batch and closes the repository.
func (s *RowSink) Close() error {
	err := s.flush()
	s.repo.Close()
	return err
}
