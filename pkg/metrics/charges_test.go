package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestChargeMetricsExportsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChargeMetrics(reg)

	m.IncOutcome("ok")
	m.IncOutcome("ok")
	m.IncOutcome("insufficient_balance")
	m.IncLapsed()
	m.ObserveBatchSize(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "charge_outcomes_total", "outcome", "ok"); err != nil {
		t.Fatalf("fetch ok outcome: %v", err)
	} else if got != 2 {
		t.Fatalf("expected ok=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "charge_outcomes_total", "outcome", "insufficient_balance"); err != nil {
		t.Fatalf("fetch failed outcome: %v", err)
	} else if got != 1 {
		t.Fatalf("expected insufficient_balance=1, got %f", got)
	}

	lapsed := findMetricFamily(mfs, "subscriptions_lapsed_total")
	if lapsed == nil {
		t.Fatal("subscriptions_lapsed_total not found")
	}
	if got := lapsed.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected lapsed=1, got %f", got)
	}
}

func TestChargeMetricsNilReceiverIsNoop(t *testing.T) {
	var m *ChargeMetrics
	m.IncOutcome("ok")
	m.IncLapsed()
	m.ObserveBatchSize(1)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
