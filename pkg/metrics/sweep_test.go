package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestSweepJobMetricsExportsPerJobCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepJobMetrics(reg)

	m.IncSuccess("charge-sweep")
	m.IncSuccess("charge-sweep")
	m.IncFailure("outbox-retention")
	m.ObserveDuration("charge-sweep", 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "sweep_job_success_total", "job", "charge-sweep"); err != nil {
		t.Fatalf("fetch success counter: %v", err)
	} else if got != 2 {
		t.Fatalf("expected success=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "sweep_job_failure_total", "job", "outbox-retention"); err != nil {
		t.Fatalf("fetch failure counter: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if findMetricFamily(mfs, "sweep_job_duration_seconds") == nil {
		t.Fatal("sweep_job_duration_seconds not found")
	}
}

func TestSweepJobMetricsNilReceiverIsNoop(t *testing.T) {
	var m *SweepJobMetrics
	m.IncSuccess("charge-sweep")
	m.IncFailure("charge-sweep")
	m.ObserveDuration("charge-sweep", time.Second)
}

func TestSweepJobMetricsEmptyJobLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSweepJobMetrics(reg)
	m.IncSuccess("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "sweep_job_success_total", "job", "unknown"); err != nil {
		t.Fatalf("fetch unknown label: %v", err)
	} else if got != 1 {
		t.Fatalf("expected unknown=1, got %f", got)
	}
}
