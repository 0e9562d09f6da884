// Package metrics is a small, backend-agnostic abstraction for recording
// operational metrics of mortstat runs. The default backend is a no-op, so
// instrumentation is always safe to call; concrete systems live in
// subpackages (see prompush) and are installed with SetBackend.
package metrics

import (
	"sync/atomic"
	"time"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Metric names.
const (
	PassTotal           = "mortstat_pass_total"
	PassDurationSeconds = "mortstat_pass_duration_seconds"
	RecordsTotal        = "mortstat_records_total"
	BatchesTotal        = "mortstat_batches_total"
)

// Backend is the minimal interface for metrics backends. Implementations
// must be safe for concurrent use; passes report from several goroutines.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it.
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

type holder struct{ b Backend }

var current atomic.Pointer[holder]

func init() { Reset() }

func backend() Backend { return current.Load().b }

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
// It may be called while passes are recording.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	current.Store(&holder{b: b})
}

// Reset restores the no-op backend.
func Reset() { current.Store(&holder{b: nopBackend{}}) }

// Flush delegates to the current backend.
func Flush() error {
	return backend().Flush()
}

// RecordPass counts one finished pass (a query or an export) and its
// duration, labelled success or failure.
func RecordPass(job, pass string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": job, "pass": pass, "status": status}
	b := backend()
	b.IncCounter(PassTotal, 1, lbls)
	b.ObserveHistogram(PassDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds delta to the record counter of kind for a pass. Kinds
// mirror the pass summary: "lines", "matched", "rejected", "substituted",
// "skipped_<error kind>" and "written".
func RecordRows(job, pass, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend().IncCounter(RecordsTotal, float64(delta), Labels{"job": job, "pass": pass, "kind": kind})
}

// RecordBatches counts database batches flushed by an export.
func RecordBatches(job, pass string, delta int64) {
	if delta <= 0 {
		return
	}
	backend().IncCounter(BatchesTotal, float64(delta), Labels{"job": job, "pass": pass})
}
