// Package vm provides a client for the VictoriaMetrics/Prometheus query API.
package vm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// QueryResponse represents the API response from /api/v1/query endpoint.
type QueryResponse struct {
	Status    string    `json:"status"`    // success or error
	Data      QueryData `json:"data"`
	ErrorType string    `json:"errorType"` // only set when status=error
	Error     string    `json:"error"`     // only set when status=error
	Warnings  []string  `json:"warnings"`
}

// IsSuccess returns true if the query was successful.
func (r *QueryResponse) IsSuccess() bool {
	return r.Status == "success"
}

// QueryData contains the result data from a query.
type QueryData struct {
	ResultType string   `json:"resultType"` // vector, matrix, scalar, string
	Result     []Sample `json:"result"`
}

// IsVector returns true if the result type is an instant vector.
func (d *QueryData) IsVector() bool {
	return d.ResultType == "vector"
}

// Sample represents one series of an instant vector.
type Sample struct {
	Metric Metric      `json:"metric"`
	Value  SampleValue `json:"value"` // [timestamp, "value"]
}

// Label returns the value of a label, or empty string if not set.
func (s *Sample) Label(name string) string {
	return s.Metric[name]
}

// Metric represents a set of label-value pairs for a time series.
type Metric map[string]string

// Name returns the metric name (__name__ label).
func (m Metric) Name() string {
	return m["__name__"]
}

// SampleValue is the [unix_timestamp_float, "value_string"] pair of the HTTP API.
type SampleValue [2]interface{}

// Timestamp returns the Unix timestamp as float64, or 0 if missing.
func (v SampleValue) Timestamp() float64 {
	if ts, ok := v[0].(float64); ok {
		return ts
	}
	return 0
}

// Value returns the sample value as float64. "NaN", "+Inf" and "-Inf" parse
// to their float64 equivalents.
func (v SampleValue) Value() (float64, error) {
	switch val := v[1].(type) {
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse value %q: %w", val, err)
		}
		return f, nil
	case float64:
		return val, nil
	case nil:
		return 0, fmt.Errorf("sample has no value")
	default:
		return 0, fmt.Errorf("unexpected value type: %T", v[1])
	}
}

// QueryResult is one parsed, finite sample.
type QueryResult struct {
	Value     float64
	Timestamp float64
	Labels    Metric
}

// Label returns the value of a label, or empty string if not set.
func (r QueryResult) Label(name string) string {
	return r.Labels[name]
}

// ParseQueryResults converts an instant vector into QueryResults. Samples that
// are not finite or cannot be parsed are dropped.
func ParseQueryResults(resp *QueryResponse) ([]QueryResult, error) {
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("query failed: %s - %s", resp.ErrorType, resp.Error)
	}

	if !resp.Data.IsVector() {
		return nil, fmt.Errorf("unexpected result type: %s (expected vector)", resp.Data.ResultType)
	}

	results := make([]QueryResult, 0, len(resp.Data.Result))
	for _, sample := range resp.Data.Result {
		value, err := sample.Value.Value()
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}

		results = append(results, QueryResult{
			Value:     value,
			Timestamp: sample.Value.Timestamp(),
			Labels:    sample.Metric,
		})
	}

	return results, nil
}

// GroupResultsByLabel groups results by the value of one label. Results
// without that label are dropped.
func GroupResultsByLabel(results []QueryResult, label string) map[string][]QueryResult {
	grouped := make(map[string][]QueryResult)
	for _, r := range results {
		if key := r.Label(label); key != "" {
			grouped[key] = append(grouped[key], r)
		}
	}
	return grouped
}

// LabelFilter restricts every query to series carrying all of the given labels.
type LabelFilter struct {
	Labels map[string]string
}

// IsEmpty returns true if no labels are set.
func (f *LabelFilter) IsEmpty() bool {
	return f == nil || len(f.Labels) == 0
}

// Matchers renders the filter as PromQL equality matchers, sorted by label name.
func (f *LabelFilter) Matchers() []string {
	if f.IsEmpty() {
		return nil
	}
	names := make([]string, 0, len(f.Labels))
	for name := range f.Labels {
		names = append(names, name)
	}
	sort.Strings(names)

	matchers := make([]string, 0, len(names))
	for _, name := range names {
		matchers = append(matchers, fmt.Sprintf("%s=%s", name, strconv.Quote(f.Labels[name])))
	}
	return matchers
}
