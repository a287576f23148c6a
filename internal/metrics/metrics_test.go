package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopSinkImplementsSink(t *testing.T) {
	var s Sink = NewNoopSink()
	s.StageCompleted("extract", time.Second, errors.New("x"))
	s.QualityMetric(1)
	s.RunFinished("passed", time.Second)
}

func TestPrometheusSinkRecords(t *testing.T) {
	s := NewPrometheusSink(nil)

	s.StageCompleted("extract", 2*time.Second, nil)
	s.StageCompleted("render", time.Second, errors.New("boom"))
	s.StageCompleted("render", time.Second, errors.New("boom"))
	s.QualityMetric(1_200_000)
	s.RunFinished("aborted", 3*time.Second)

	if got := testutil.ToFloat64(s.stageFailures.WithLabelValues("render")); got != 2 {
		t.Errorf("render failures = %v, want 2", got)
	}
	if got := testutil.ToFloat64(s.stageFailures.WithLabelValues("extract")); got != 0 {
		t.Errorf("extract failures = %v, want 0", got)
	}
	if got := testutil.ToFloat64(s.runsTotal.WithLabelValues("aborted")); got != 1 {
		t.Errorf("aborted runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(s.qualityMetric); got != 1_200_000 {
		t.Errorf("quality metric = %v, want 1200000", got)
	}
	if got := testutil.ToFloat64(s.runDuration); got != 3 {
		t.Errorf("run duration = %v, want 3", got)
	}
	if got := testutil.ToFloat64(s.lastRun); got <= 0 {
		t.Errorf("last run timestamp = %v, want positive", got)
	}
	if n := testutil.CollectAndCount(s.stageDuration); n != 2 {
		t.Errorf("stage duration series = %d, want 2", n)
	}
}

func TestPushSkippedWithoutURL(t *testing.T) {
	if err := NewPrometheusSink(nil).Push(context.Background(), "", "reportbot"); err != nil {
		t.Errorf("Push with empty url = %v, want nil", err)
	}
}

func TestPushToGateway(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewPrometheusSink(nil)
	s.RunFinished("passed", time.Second)
	if err := s.Push(context.Background(), srv.URL, "reportbot"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if gotPath != "/metrics/job/reportbot" {
		t.Errorf("path = %q, want /metrics/job/reportbot", gotPath)
	}
	if !strings.Contains(gotBody, "reportbot_runs_total") {
		t.Error("pushed body does not contain reportbot_runs_total")
	}
}

func TestPushGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewPrometheusSink(nil).Push(context.Background(), srv.URL, "reportbot"); err == nil {
		t.Error("expected error from failing gateway")
	}
}
