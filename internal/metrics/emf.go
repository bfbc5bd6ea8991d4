// Package metrics emits CloudWatch Embedded Metric Format (EMF) documents.
// Each flush writes one JSON line; when the process runs under the
// CloudWatch agent or a log driver that ships to CloudWatch Logs, the
// metrics are extracted without any API calls.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"
)

// Namespace is the CloudWatch namespace for all service metrics.
const Namespace = "AdUploader"

// Standard CloudWatch metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

var (
	outMu  sync.Mutex
	output io.Writer = os.Stdout

	serviceName string
)

// SetOutput redirects flushed documents. Pass io.Discard to disable metrics.
func SetOutput(w io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	output = w
}

// SetServiceName adds a Service dimension to every recorder created afterwards.
func SetServiceName(name string) {
	outMu.Lock()
	defer outMu.Unlock()
	serviceName = name
}

// Recorder accumulates dimensions, metrics, and properties for a single EMF flush.
// It is NOT safe for concurrent use from multiple goroutines; create one per operation.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]any
	properties map[string]any
}

// New creates a Recorder for the given namespace.
func New(namespace string) *Recorder {
	r := &Recorder{
		namespace:  namespace,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]any),
		properties: make(map[string]any),
	}
	outMu.Lock()
	if serviceName != "" {
		r.dimensions["Service"] = serviceName
	}
	outMu.Unlock()
	return r
}

// Dimension adds an indexed, filterable dimension.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a CloudWatch unit.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Count records a count metric of 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property adds a non-metric field. Properties are searchable in Logs
// Insights but do not create metrics.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the document as a single JSON line. A recorder with no
// metrics writes nothing. The Recorder should not be reused.
func (r *Recorder) Flush() {
	if len(r.metrics) == 0 {
		return
	}

	doc := make(map[string]any, len(r.dimensions)+len(r.values)+len(r.properties)+1)

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	metricDefs := make([]metricDef, 0, len(names))
	for _, name := range names {
		metricDefs = append(metricDefs, r.metrics[name])
	}

	dimKeys := make([]string, 0, len(r.dimensions))
	for k := range r.dimensions {
		dimKeys = append(dimKeys, k)
	}
	slices.Sort(dimKeys)

	// Properties first so dimensions and values win on key collisions.
	for k, v := range r.properties {
		doc[k] = v
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	doc["_aws"] = emfDirective{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    metricDefs,
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emf: failed to marshal metrics: %v\n", err)
		return
	}

	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(output, string(data))
}

// JobOutcome is the summary of one ad-creation job.
type JobOutcome struct {
	Strategy string
	Status   string
	Duration time.Duration
	Assets   int
	Videos   int
	JobID    string
}

// RecordJob emits per-job metrics dimensioned by strategy and final status.
func RecordJob(o JobOutcome) {
	strategy := o.Strategy
	if strategy == "" {
		strategy = "unknown"
	}
	New(Namespace).
		Dimension("Strategy", strategy).
		Dimension("Status", o.Status).
		Metric("JobDurationMs", float64(o.Duration.Milliseconds()), UnitMilliseconds).
		Metric("AssetCount", float64(o.Assets), UnitCount).
		Metric("VideoCount", float64(o.Videos), UnitCount).
		Count("JobCount").
		Property("jobId", o.JobID).
		Flush()
}
