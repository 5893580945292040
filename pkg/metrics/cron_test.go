package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsRunsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	finished := time.Date(2024, 6, 1, 3, 0, 5, 0, time.UTC)

	m.ObserveRun("zero-value-sweep", 250*time.Millisecond, finished, nil)
	m.ObserveRun("zero-value-sweep", time.Second, finished.Add(time.Hour), errors.New("db down"))
	m.IncLockSkipped()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := counterValue(mfs, "cron_job_runs_total", map[string]string{"job": "zero-value-sweep", "result": "success"}); err != nil || got != 1 {
		t.Fatalf("expected success=1, got %f (%v)", got, err)
	}
	if got, err := counterValue(mfs, "cron_job_runs_total", map[string]string{"job": "zero-value-sweep", "result": "failure"}); err != nil || got != 1 {
		t.Fatalf("expected failure=1, got %f (%v)", got, err)
	}

	gauge := findMetricFamily(mfs, "cron_job_last_success_timestamp_seconds")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != float64(finished.Unix()) {
		t.Fatalf("expected last success to stay at the successful run, got %v", gauge)
	}

	hist := findMetricFamily(mfs, "cron_job_duration_seconds")
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two duration samples, got %v", hist)
	}

	skips := findMetricFamily(mfs, "cron_lock_skips_total")
	if skips == nil || skips.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("expected one lock skip, got %v", skips)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("", time.Second, time.Now(), nil)
	m.IncLockSkipped()
	NewCronJobMetrics(nil).ObserveRun("job", time.Second, time.Now(), nil)
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if v, ok := want[pair.GetName()]; ok && v == pair.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
