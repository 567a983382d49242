package jobmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	if err := m.Track("reports:warmup").End(nil); err != nil {
		t.Fatalf("End(nil) = %v", err)
	}
	boom := errors.New("boom")
	if err := m.Track("reports:warmup").End(boom); !errors.Is(err, boom) {
		t.Fatalf("End must pass the error through, got %v", err)
	}

	if got := testutil.ToFloat64(m.runs.WithLabelValues("reports:warmup", statusSuccess)); got != 1 {
		t.Fatalf("success runs = %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("reports:warmup")); got != 1 {
		t.Fatalf("failures = %v", got)
	}
	if got := testutil.CollectAndCount(m.duration); got != 1 {
		t.Fatalf("duration series = %d", got)
	}
}

func TestLastSuccessOnlyMovesOnSuccess(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	fixed := time.Date(2025, 3, 1, 1, 15, 0, 0, time.UTC)

	tr := m.Track("sales:cleanup")
	tr.now = func() time.Time { return fixed }
	_ = tr.End(nil)

	tr = m.Track("sales:cleanup")
	tr.now = func() time.Time { return fixed.Add(time.Hour) }
	_ = tr.End(errors.New("locked"))

	if got := testutil.ToFloat64(m.lastSuccess.WithLabelValues("sales:cleanup")); got != float64(fixed.Unix()) {
		t.Fatalf("last success = %v, want %v", got, fixed.Unix())
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.AddDeleted("sales:cleanup", 4)
	m.AddWarmed("reports:warmup", 2)
	if err := m.Track("x").End(nil); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCountersIgnoreNonPositive(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddDeleted("sales:cleanup", 0)
	m.AddWarmed("reports:warmup", -1)
	m.AddWarmed("reports:warmup", 6)
	if got := testutil.CollectAndCount(m.deleted); got != 0 {
		t.Fatalf("deleted series = %d", got)
	}
	if got := testutil.ToFloat64(m.warmed.WithLabelValues("reports:warmup")); got != 6 {
		t.Fatalf("warmed = %v", got)
	}
}
