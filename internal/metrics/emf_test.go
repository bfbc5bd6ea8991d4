package metrics

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"
	"time"
)

// captureOutput redirects flushed documents into a buffer for the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })
	return &buf
}

func TestNew_ServiceDimension(t *testing.T) {
	SetServiceName("ad-server")
	t.Cleanup(func() { SetServiceName("") })

	r := New("TestNamespace")
	if r.namespace != "TestNamespace" {
		t.Errorf("expected namespace TestNamespace, got %s", r.namespace)
	}
	if r.dimensions["Service"] != "ad-server" {
		t.Errorf("expected Service dimension ad-server, got %s", r.dimensions["Service"])
	}
}

func TestRecorder_FlushOutput(t *testing.T) {
	buf := captureOutput(t)

	New(Namespace).
		Dimension("Endpoint", "/api/create-ad").
		Metric("RequestLatencyMs", 1234.5, UnitMilliseconds).
		Metric("RequestCount", 1, UnitCount).
		Property("jobId", "ad-123").
		Flush()

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse EMF output as JSON: %v\nOutput: %s", err, buf.String())
	}

	awsMap, ok := doc["_aws"].(map[string]any)
	if !ok {
		t.Fatal("missing _aws directive in EMF output")
	}
	if _, ok := awsMap["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}
	cwArr, ok := awsMap["CloudWatchMetrics"].([]any)
	if !ok || len(cwArr) == 0 {
		t.Fatal("CloudWatchMetrics should be a non-empty array")
	}
	cw := cwArr[0].(map[string]any)
	if cw["Namespace"] != Namespace {
		t.Errorf("expected namespace %s, got %v", Namespace, cw["Namespace"])
	}
	metricsList := cw["Metrics"].([]any)
	if first := metricsList[0].(map[string]any)["Name"]; first != "RequestCount" {
		t.Errorf("metric definitions should be sorted, got %v first", first)
	}

	if doc["Endpoint"] != "/api/create-ad" {
		t.Errorf("expected Endpoint dimension, got %v", doc["Endpoint"])
	}
	if doc["RequestLatencyMs"] != 1234.5 {
		t.Errorf("expected RequestLatencyMs=1234.5, got %v", doc["RequestLatencyMs"])
	}
	if doc["jobId"] != "ad-123" {
		t.Errorf("expected jobId=ad-123, got %v", doc["jobId"])
	}
	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Errorf("EMF document must be a single line, got %q", buf.String())
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	buf := captureOutput(t)
	New("Test").Flush()
	if buf.Len() != 0 {
		t.Errorf("expected no output for empty recorder, got: %s", buf.String())
	}
}

func TestRecorder_Chaining(t *testing.T) {
	rec := New("Test").
		Dimension("Op", "test").
		Metric("Duration", 100, UnitMilliseconds).
		Count("Calls").
		Property("id", "xyz")

	if rec.dimensions["Op"] != "test" {
		t.Error("chaining Dimension failed")
	}
	if rec.values["Duration"] != float64(100) {
		t.Error("chaining Metric failed")
	}
	if m := rec.metrics["Calls"]; rec.values["Calls"] != float64(1) || m.Unit != UnitCount {
		t.Error("chaining Count failed")
	}
	if rec.properties["id"] != "xyz" {
		t.Error("chaining Property failed")
	}
}

func TestRecordJob(t *testing.T) {
	buf := captureOutput(t)

	RecordJob(JobOutcome{Status: "error", Duration: 1500 * time.Millisecond, Assets: 3, Videos: 1, JobID: "ad-1"})

	var doc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if doc["Strategy"] != "unknown" || doc["Status"] != "error" {
		t.Errorf("unexpected dimensions: %v", doc)
	}
	if doc["JobDurationMs"] != float64(1500) || doc["AssetCount"] != float64(3) || doc["JobCount"] != float64(1) {
		t.Errorf("unexpected values: %v", doc)
	}
}
