package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"mortstat/internal/aggregate"
	"mortstat/internal/config"
	"mortstat/internal/datasource"
	"mortstat/internal/datasource/file"
	"mortstat/internal/export"
	"mortstat/internal/layout"
	"mortstat/internal/metrics"
	"mortstat/internal/query"
	"mortstat/internal/report"
	"mortstat/internal/sink/csvfile"
	"mortstat/internal/storage"
)

// skipSamples is how many skipped-record messages are kept per pass.
const skipSamples = 5

// runtimeConfig is the resolved concurrency and batching configuration,
// derived from the pipeline with environment variable fallbacks.
type runtimeConfig struct {
	parallelPasses int
	shards         int
	batchSize      int
}

func newRuntimeConfig(p config.Pipeline) runtimeConfig {
	return runtimeConfig{
		parallelPasses: pickInt(p.Runtime.ParallelPasses, getenvInt("MORTSTAT_PARALLEL_PASSES", 1)),
		shards:         pickInt(p.Runtime.Shards, getenvInt("MORTSTAT_SHARDS", 1)),
		batchSize:      pickInt(p.Runtime.BatchSize, getenvInt("MORTSTAT_BATCH_SIZE", 10000)),
	}
}

// plan is everything execute needs; it is built once from a pipeline file
// or from the built-in analyses.
type plan struct {
	job     string
	path    string
	layout  *layout.Layout
	policy  aggregate.Policy
	rt      runtimeConfig
	queries []query.Query
	exports []query.Export
	format  *report.Formatter
}

// newPlan resolves a validated pipeline into a plan.
func newPlan(p config.Pipeline) (*plan, error) {
	l, err := layout.ByName(p.Layout)
	if err != nil {
		return nil, err
	}
	pol, err := policyFrom(p.Errors)
	if err != nil {
		return nil, err
	}
	pl := &plan{
		job:    p.Job,
		path:   p.Source.File.Path,
		layout: l,
		policy: pol,
		rt:     newRuntimeConfig(p),
		format: report.New(language.English),
	}
	for _, qc := range p.Queries {
		q, err := query.Build(l, qc)
		if err != nil {
			return nil, err
		}
		pl.queries = append(pl.queries, q)
	}
	for _, ec := range p.Exports {
		e, err := query.BuildExport(l, ec)
		if err != nil {
			return nil, err
		}
		pl.exports = append(pl.exports, e)
	}
	return pl, nil
}

// policyFrom overlays configured actions on the default policy.
func policyFrom(e config.ErrorPolicy) (aggregate.Policy, error) {
	pol := aggregate.DefaultPolicy()
	for _, f := range []struct {
		name string
		dst  *aggregate.Action
	}{
		{e.Malformed, &pol.Malformed},
		{e.UnknownCode, &pol.UnknownCode},
		{e.InvalidMagnitude, &pol.InvalidMagnitude},
	} {
		if f.name == "" {
			continue
		}
		a, err := aggregate.ParseAction(f.name)
		if err != nil {
			return aggregate.Policy{}, err
		}
		*f.dst = a
	}
	if e.Sentinel != "" {
		pol.Sentinel = e.Sentinel
	}
	return pol, nil
}

// Function variables used as test seams.
var (
	openSourceFn = func(path string) datasource.Source { return file.NewLocal(path) }
	openSinkFn   = openSink
)

// sharder is implemented by sources that can be scanned in byte ranges.
type sharder interface {
	Split(n int) ([]file.Section, error)
	OpenSection(ctx context.Context, sec file.Section) (*file.LineReader, error)
}

// passResult is the outcome of one query or export pass.
type passResult struct {
	name    string
	stats   aggregate.Stats
	dist    aggregate.Distribution
	digest  uint64
	bytes   int64
	digests bool // false for sharded passes, which read byte ranges
	written int64
	elapsed time.Duration
}

// execute runs every pass of pl, at most rt.parallelPasses at a time, each
// with its own file handle, and renders query results to out in plan order.
// The first failing pass cancels the others.
func execute(ctx context.Context, log *zap.Logger, pl *plan, out io.Writer) error {
	if log == nil {
		log = zap.NewNop()
	}
	src := openSourceFn(pl.path)
	log.Info("run starting",
		zap.String("job", pl.job),
		zap.String("source", pl.path),
		zap.String("layout", pl.layout.Name),
		zap.Int("queries", len(pl.queries)),
		zap.Int("exports", len(pl.exports)),
		zap.Int("parallel_passes", pl.rt.parallelPasses),
		zap.Int("shards", pl.rt.shards),
	)

	qres := make([]passResult, len(pl.queries))
	eres := make([]passResult, len(pl.exports))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(pl.rt.parallelPasses, 1))
	for i, q := range pl.queries {
		i, q := i, q
		g.Go(func() error {
			r, err := runQuery(gctx, log, pl, src, q)
			qres[i] = r
			return finishPass(log, pl.job, r, err)
		})
	}
	for i, e := range pl.exports {
		i, e := i, e
		g.Go(func() error {
			r, err := runExport(gctx, log, pl, src, e)
			eres[i] = r
			return finishPass(log, pl.job, r, err)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	checkFingerprints(log, append(qres, eres...))

	for i, q := range pl.queries {
		if i > 0 {
			fmt.Fprintln(out)
		}
		sec := report.Section{Title: q.Title, Entries: q.Rank(qres[i].dist), Stats: qres[i].stats}
		if err := pl.format.Render(out, sec); err != nil {
			return fmt.Errorf("render %s: %w", q.Name, err)
		}
	}
	return nil
}

func runQuery(ctx context.Context, log *zap.Logger, pl *plan, src datasource.Source, q query.Query) (passResult, error) {
	start := time.Now()
	res := passResult{name: q.Name}
	eng, skips := newEngine(pl)

	var (
		r   aggregate.Result
		err error
	)
	if sh, ok := src.(sharder); ok && pl.rt.shards > 1 {
		r, res.bytes, err = runSharded(ctx, eng, sh, pl.rt.shards, q)
	} else {
		var lr *file.LineReader
		lr, err = openLines(ctx, src)
		if err != nil {
			return res, err
		}
		r, err = eng.Run(ctx, lr, q.Pred, q.Key)
		lr.Close()
		res.digest, res.bytes, res.digests = lr.Digest(), lr.BytesRead(), true
	}
	res.stats, res.dist = r.Stats, r.Dist
	res.elapsed = time.Since(start)
	logSkips(log, q.Name, skips)
	return res, err
}

func runSharded(ctx context.Context, eng *aggregate.Engine, sh sharder, n int, q query.Query) (aggregate.Result, int64, error) {
	secs, err := sh.Split(n)
	if err != nil {
		return aggregate.Result{}, 0, err
	}
	readers := make([]*file.LineReader, 0, len(secs))
	defer func() {
		for _, lr := range readers {
			lr.Close()
		}
	}()
	srcs := make([]aggregate.LineSource, 0, len(secs))
	for _, s := range secs {
		lr, err := sh.OpenSection(ctx, s)
		if err != nil {
			return aggregate.Result{}, 0, err
		}
		readers = append(readers, lr)
		srcs = append(srcs, lr)
	}
	r, err := eng.RunShards(ctx, srcs, q.Pred, q.Key)
	var bytes int64
	for _, lr := range readers {
		bytes += lr.BytesRead()
	}
	return r, bytes, err
}

func runExport(ctx context.Context, log *zap.Logger, pl *plan, src datasource.Source, e query.Export) (passResult, error) {
	start := time.Now()
	res := passResult{name: e.Name}
	eng, skips := newEngine(pl)

	sink, err := openSinkFn(ctx, e.Sink, pl.rt.batchSize, log)
	if err != nil {
		return res, fmt.Errorf("export %s: %w", e.Name, err)
	}
	lr, err := openLines(ctx, src)
	if err != nil {
		sink.Close()
		return res, err
	}
	st, err := export.Run(ctx, eng, lr, e.Pred, e.Columns, sink)
	lr.Close()
	if cerr := sink.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("export %s: close sink: %w", e.Name, cerr)
	}
	if ss, ok := sink.(*storage.RowSink); ok {
		metrics.RecordBatches(pl.job, e.Name, ss.Batches())
	}

	res.stats = st
	res.written = int64(st.Matched)
	res.digest, res.bytes, res.digests = lr.Digest(), lr.BytesRead(), true
	res.elapsed = time.Since(start)
	logSkips(log, e.Name, skips)
	return res, err
}

func openLines(ctx context.Context, src datasource.Source) (*file.LineReader, error) {
	if l, ok := src.(*file.Local); ok {
		return l.Lines(ctx)
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	return file.NewLineReader(rc), nil
}

// openSink opens the row sink configured for an export.
func openSink(ctx context.Context, s config.Sink, batchSize int, log *zap.Logger) (export.RowSink, error) {
	if s.Kind == "csv" {
		return csvfile.Create(s.Path)
	}
	return storage.NewRowSink(ctx, storage.Config{
		Kind:    s.Kind,
		DSN:     s.DB.DSN,
		Table:   s.DB.Table,
		Columns: s.DB.Columns,
	}, storage.SinkOptions{BatchSize: batchSize, AutoCreate: s.DB.AutoCreateTable}, log)
}

func newEngine(pl *plan) (*aggregate.Engine, *errAgg) {
	eng := aggregate.New(pl.layout.Width(), pl.policy)
	skips := newErrAgg(skipSamples)
	eng.OnSkip = func(line int, kind string, err error) {
		skips.add(fmt.Sprintf("line %d: %s: %v", line, kind, err))
	}
	return eng, skips
}

// finishPass logs the pass summary and records its metrics. It returns err
// so it can be the last statement of a pass goroutine.
func finishPass(log *zap.Logger, job string, r passResult, err error) error {
	st := r.stats
	fields := []zap.Field{
		zap.String("pass", r.name),
		zap.Int("processed", st.Lines),
		zap.Int("matched", st.Matched),
		zap.Int("rejected", st.Rejected),
		zap.Int("substituted", st.Substituted),
		zap.Any("skipped", st.Skipped),
		zap.String("read", humanize.Bytes(uint64(max(r.bytes, 0)))),
		zap.Duration("elapsed", r.elapsed.Truncate(time.Millisecond)),
	}
	if secs := r.elapsed.Seconds(); secs > 0 {
		fields = append(fields, zap.String("rate", humanize.Comma(int64(float64(st.Lines)/secs))+" lines/s"))
	}
	if r.written > 0 {
		fields = append(fields, zap.Int64("written", r.written))
	}

	var pErr *aggregate.PassError
	switch {
	case errors.As(err, &pErr):
		log.Error("pass aborted", append(fields, zap.Int("line", pErr.Line), zap.Error(err))...)
	case err != nil:
		log.Error("pass failed", append(fields, zap.Error(err))...)
	default:
		log.Info("pass summary", fields...)
	}

	metrics.RecordPass(job, r.name, err, r.elapsed)
	metrics.RecordRows(job, r.name, "lines", int64(st.Lines))
	metrics.RecordRows(job, r.name, "matched", int64(st.Matched))
	metrics.RecordRows(job, r.name, "rejected", int64(st.Rejected))
	metrics.RecordRows(job, r.name, "substituted", int64(st.Substituted))
	for kind, n := range st.Skipped {
		metrics.RecordRows(job, r.name, "skipped_"+kind, int64(n))
	}
	metrics.RecordRows(job, r.name, "written", r.written)
	return err
}

// checkFingerprints warns when whole-file passes did not read the same
// bytes, which means the file changed during the run.
func checkFingerprints(log *zap.Logger, rs []passResult) {
	var first *passResult
	for i := range rs {
		r := &rs[i]
		if !r.digests {
			continue
		}
		if first == nil {
			first = r
			log.Debug("input fingerprint", zap.String("xxh3", strconv.FormatUint(r.digest, 16)), zap.String("size", humanize.Bytes(uint64(r.bytes))))
			continue
		}
		if r.digest != first.digest || r.bytes != first.bytes {
			log.Warn("input changed between passes; results may be inconsistent",
				zap.String("first_pass", first.name),
				zap.String("pass", r.name),
				zap.String("first_xxh3", strconv.FormatUint(first.digest, 16)),
				zap.String("xxh3", strconv.FormatUint(r.digest, 16)),
			)
		}
	}
}

func logSkips(log *zap.Logger, pass string, a *errAgg) {
	if a.count == 0 {
		return
	}
	log.Warn("skipped records", zap.String("pass", pass), zap.Int("count", a.count), zap.Int("showing", len(a.first)))
	for i, s := range a.first {
		log.Warn(fmt.Sprintf("  #%03d: %s", i+1, s), zap.String("pass", pass))
	}
}

// errAgg keeps the first few messages and a total count. Sharded passes
// report shard-relative line numbers.
type errAgg struct {
	mu    sync.Mutex
	limit int
	count int
	first []string
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value a, otherwise returns b.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
