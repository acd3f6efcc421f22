package metrics

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"cryptoguide/logger"
)

func stubPublisher(t *testing.T, baseTime time.Time) *[][]cwtypes.MetricDatum {
	t.Helper()

	prevState := cwState.Load()
	cwState.Store(&cloudWatchState{client: &cloudwatch.Client{}})
	t.Cleanup(func() { cwState.Store(prevState) })

	resetMetricPublishTimes()
	t.Cleanup(resetMetricPublishTimes)

	originalInterval := cloudWatchPublishInterval
	cloudWatchPublishInterval = 50 * time.Millisecond
	t.Cleanup(func() { cloudWatchPublishInterval = originalInterval })

	timeNow = func() time.Time { return baseTime }
	t.Cleanup(func() { timeNow = time.Now })

	batches := make([][]cwtypes.MetricDatum, 0)
	publishMetricsFunc = func(ctx context.Context, state *cloudWatchState, data []cwtypes.MetricDatum) {
		copyData := make([]cwtypes.MetricDatum, len(data))
		copy(copyData, data)
		batches = append(batches, copyData)
	}
	t.Cleanup(func() { publishMetricsFunc = publishMetrics })

	return &batches
}

func TestPublishMetricDatumThrottlesToInterval(t *testing.T) {
	baseTime := time.Now()
	batches := stubPublisher(t, baseTime)

	metric := Metric{Component: "assistant", Name: "queries", Timestamp: baseTime, Fields: logger.Fields{"unit": "count"}}
	publishMetricDatum(metric, 1)

	timeNow = func() time.Time { return baseTime.Add(25 * time.Millisecond) }
	metric.Timestamp = baseTime.Add(25 * time.Millisecond)
	publishMetricDatum(metric, 2)

	if len(*batches) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(*batches))
	}

	datum := (*batches)[0][0]
	if datum.MetricName == nil || *datum.MetricName != "queries" {
		t.Fatalf("unexpected metric name: %v", datum.MetricName)
	}
	if datum.Value == nil || *datum.Value != 1 {
		t.Fatalf("unexpected metric value: %v", datum.Value)
	}
}

func TestPublishMetricDatumAllowsAfterInterval(t *testing.T) {
	baseTime := time.Now()
	batches := stubPublisher(t, baseTime)

	metric := Metric{Component: "assistant", Name: "queries", Timestamp: baseTime, Fields: logger.Fields{"unit": "count"}}
	publishMetricDatum(metric, 1)

	timeNow = func() time.Time { return baseTime.Add(75 * time.Millisecond) }
	metric.Timestamp = baseTime.Add(75 * time.Millisecond)
	publishMetricDatum(metric, 2)

	if len(*batches) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(*batches))
	}

	datum := (*batches)[1][0]
	if datum.Value == nil || *datum.Value != 2 {
		t.Fatalf("unexpected metric value: %v", datum.Value)
	}
}

func TestPublishMetricDatumDimensionsAndUnit(t *testing.T) {
	baseTime := time.Now()
	batches := stubPublisher(t, baseTime)

	metric := Metric{
		Component: "market",
		Name:      "upstream_latency_ms",
		Timestamp: baseTime,
		Fields:    logger.Fields{"unit": "milliseconds", "kind": "snapshot", "attempt": 2},
	}
	publishMetricDatum(metric, 40)

	if len(*batches) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(*batches))
	}
	datum := (*batches)[0][0]
	if datum.Unit != cwtypes.StandardUnitMilliseconds {
		t.Fatalf("unexpected unit: %s", datum.Unit)
	}
	dims := map[string]string{}
	for _, d := range datum.Dimensions {
		dims[*d.Name] = *d.Value
	}
	if dims["component"] != "market" || dims["kind"] != "snapshot" {
		t.Fatalf("unexpected dimensions: %v", dims)
	}
	if _, ok := dims["attempt"]; ok {
		t.Fatalf("non-string fields must not become dimensions: %v", dims)
	}
}

func TestPublishMetricDatumWithoutClient(t *testing.T) {
	prevState := cwState.Load()
	cwState.Store(&cloudWatchState{namespace: "CryptoGuide"})
	t.Cleanup(func() { cwState.Store(prevState) })

	called := false
	publishMetricsFunc = func(context.Context, *cloudWatchState, []cwtypes.MetricDatum) { called = true }
	t.Cleanup(func() { publishMetricsFunc = publishMetrics })

	publishMetricDatum(Metric{Component: "assistant", Name: "queries"}, 1)
	if called {
		t.Fatal("publish should be skipped when CloudWatch is not initialised")
	}
}

func TestRenderDashboard(t *testing.T) {
	body := renderDashboard(dashboardTemplate, "Bots", "eu-west-1")
	if !json.Valid([]byte(body)) {
		t.Fatal("rendered dashboard is not valid JSON")
	}
	if strings.Contains(body, "\"CryptoGuide\"") || strings.Contains(body, "\"us-east-1\"") {
		t.Fatalf("placeholders not substituted: %s", body)
	}
	if !strings.Contains(body, "\"Bots\"") || !strings.Contains(body, "\"eu-west-1\"") {
		t.Fatalf("substitutions missing: %s", body)
	}
}

func TestToFloat64(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{3, 3, true},
		{int64(4), 4, true},
		{float32(1.5), 1.5, true},
		{2.25, 2.25, true},
		{"5", 0, false},
	}
	for _, c := range cases {
		got, ok := toFloat64(c.in)
		if ok != c.ok || got != c.want {
			t.Fatalf("toFloat64(%v) = %v, %v", c.in, got, ok)
		}
	}
}
