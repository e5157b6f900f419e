package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-console/internal/client/vm"
	"fleet-console/internal/config"
	"fleet-console/internal/metrics"
	"fleet-console/internal/model"
)

// sample builds one vector entry with the given labels.
func sample(value string, labels ...string) vm.Sample {
	m := vm.Metric{}
	for i := 0; i+1 < len(labels); i += 2 {
		m[labels[i]] = labels[i+1]
	}
	return vm.Sample{Metric: m, Value: vm.SampleValue{float64(1767348000), value}}
}

// fleetVectors answers the queries used by createTestCounters.
var fleetVectors = map[string][]vm.Sample{
	"xen_vm_cpu_usage_ratio": {
		sample("0.9", "uuid", "vm-1", "cpu", "0"),
		sample("0.8", "uuid", "vm-1", "cpu", "1"),
	},
	"xen_vm_memory_bytes": {
		sample("1073741824", "uuid", "vm-1"),
	},
	"xen_vm_memory_internal_free_kib": {
		sample("0", "uuid", "vm-1"),
	},
	"xen_host_cpu_usage_ratio": {
		sample("0.1", "uuid", "host-1", "cpu", "0"),
		sample("0.3", "uuid", "host-1", "cpu", "1"),
	},
	"xen_host_memory_total_kib": {
		sample("1048576", "uuid", "host-1"),
	},
	"xen_host_memory_free_kib": {
		sample("524288", "uuid", "host-1"),
	},
}

// setupVMTestServer creates a test VictoriaMetrics server answering from vectors.
// Unknown queries get an empty vector.
func setupVMTestServer(t *testing.T, vectors map[string][]vm.Sample) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := vm.QueryResponse{
			Status: "success",
			Data:   vm.QueryData{ResultType: "vector", Result: vectors[r.URL.Query().Get("query")]},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

// createVMClient creates a test VM client.
func createVMClient(serverURL string) *vm.Client {
	cfg := &config.VictoriaMetricsConfig{
		Endpoint: serverURL,
		Timeout:  5 * time.Second,
	}
	retryCfg := &config.RetryConfig{
		MaxRetries: 1,
		BaseDelay:  10 * time.Millisecond,
	}
	return vm.NewClient(cfg, retryCfg, zerolog.Nop())
}

// createTestConfig creates a test configuration.
func createTestConfig() *config.Config {
	return &config.Config{
		Inspection: config.InspectionConfig{
			Concurrency: 4,
			Timeout:     10 * time.Second,
		},
		Thresholds: config.ThresholdsConfig{
			CPUUsage:    config.ThresholdPair{Warning: 80, Critical: 95},
			MemoryUsage: config.ThresholdPair{Warning: 85, Critical: 95},
		},
		Report: config.ReportConfig{Timezone: "UTC"},
	}
}

// createTestCounters mirrors configs/counters.yaml without the rate counters.
func createTestCounters() []*model.CounterDefinition {
	return []*model.CounterDefinition{
		{Counter: "cpu", Entity: model.KindVM, Query: "xen_vm_cpu_usage_ratio", DeviceLabel: "cpu"},
		{Counter: "memory", Entity: model.KindVM, Query: "xen_vm_memory_bytes"},
		{Counter: "memory_internal_free", Entity: model.KindVM, Query: "xen_vm_memory_internal_free_kib"},
		{Counter: "cpu", Entity: model.KindHost, Query: "xen_host_cpu_usage_ratio", DeviceLabel: "cpu"},
		{Counter: "memory_total_kib", Entity: model.KindHost, Query: "xen_host_memory_total_kib"},
		{Counter: "memory_free_kib", Entity: model.KindHost, Query: "xen_host_memory_free_kib"},
		{Counter: "vif_rx", Entity: model.KindVM, Status: "pending"},
	}
}

func newTestCollector(t *testing.T, serverURL string, counters []*model.CounterDefinition) *Collector {
	t.Helper()
	return NewCollector(createTestConfig(), createVMClient(serverURL), metrics.NewSnapshot(), counters, zerolog.Nop())
}

func TestNewCollector(t *testing.T) {
	c := NewCollector(nil, nil, metrics.NewSnapshot(), nil, zerolog.Nop())
	assert.Equal(t, defaultConcurrency, c.concurrency)
	assert.NotNil(t, c.Store())

	c = NewCollector(createTestConfig(), nil, metrics.NewSnapshot(), nil, zerolog.Nop())
	assert.Equal(t, 4, c.concurrency)
}

func TestCollector_CollectAll_Success(t *testing.T) {
	server := setupVMTestServer(t, fleetVectors)
	defer server.Close()

	c := newTestCollector(t, server.URL, createTestCounters())
	result, err := c.CollectAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, result.ActiveCounters)
	assert.Equal(t, 1, result.PendingCounters)
	assert.Empty(t, result.FailedCounters)
	assert.Equal(t, 8, result.Samples)
	assert.Equal(t, 8, c.Store().Len())

	store := c.Store()
	assert.Equal(t, 0.9, store.Value(metrics.Key{Kind: model.KindVM, Entity: "vm-1", Counter: metrics.CounterCPU, Device: "0"}))
	assert.Equal(t, 0.3, store.Value(metrics.Key{Kind: model.KindHost, Entity: "host-1", Counter: metrics.CounterCPU, Device: "1"}))
	assert.Equal(t, 1048576.0, store.Value(metrics.Key{Kind: model.KindHost, Entity: "host-1", Counter: metrics.CounterMemoryTotalKiB}))
}

func TestCollector_CollectAll_DropsUnlabelledSamples(t *testing.T) {
	vectors := map[string][]vm.Sample{
		"cpu": {
			sample("0.5", "uuid", "vm-1", "cpu", "0"),
			sample("0.5", "uuid", "vm-1"),         // no device
			sample("0.5", "cpu", "1"),             // no entity
			sample("0.5", "uuid", "", "cpu", "2"), // empty entity
		},
	}
	server := setupVMTestServer(t, vectors)
	defer server.Close()

	c := newTestCollector(t, server.URL, []*model.CounterDefinition{
		{Counter: "cpu", Entity: model.KindVM, Query: "cpu", DeviceLabel: "cpu"},
	})
	result, err := c.CollectAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Samples)
}

func TestCollector_CollectAll_EntityLabelAndScale(t *testing.T) {
	vectors := map[string][]vm.Sample{
		"host_mem": {sample("2", "host_uuid", "host-1")},
	}
	server := setupVMTestServer(t, vectors)
	defer server.Close()

	c := newTestCollector(t, server.URL, []*model.CounterDefinition{
		{Counter: "memory_total_kib", Entity: model.KindHost, Query: "host_mem", EntityLabel: "host_uuid", Scale: 1024},
	})
	_, err := c.CollectAll(context.Background())
	require.NoError(t, err)

	got := c.Store().Value(metrics.Key{Kind: model.KindHost, Entity: "host-1", Counter: metrics.CounterMemoryTotalKiB})
	assert.Equal(t, 2048.0, got)
}

func TestCollector_CollectAll_GroupsByEntity(t *testing.T) {
	vectors := map[string][]vm.Sample{
		"mem": {
			sample("1", "uuid", "vm-1", "instance", "a"),
			sample("2", "uuid", "vm-2"),
			sample("3", "uuid", "vm-1", "instance", "b"), // duplicate series, last wins
		},
	}
	server := setupVMTestServer(t, vectors)
	defer server.Close()

	c := newTestCollector(t, server.URL, []*model.CounterDefinition{
		{Counter: "memory", Entity: model.KindVM, Query: "mem"},
	})
	result, err := c.CollectAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Samples)

	store := c.Store()
	assert.Equal(t, 3.0, store.Value(metrics.Key{Kind: model.KindVM, Entity: "vm-1", Counter: metrics.CounterMemory}))
	assert.Equal(t, 2.0, store.Value(metrics.Key{Kind: model.KindVM, Entity: "vm-2", Counter: metrics.CounterMemory}))
}

func TestCollector_CollectAll_PartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "xen_vm_memory_bytes" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		resp := vm.QueryResponse{
			Status: "success",
			Data:   vm.QueryData{ResultType: "vector", Result: fleetVectors[r.URL.Query().Get("query")]},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := newTestCollector(t, server.URL, createTestCounters())
	result, err := c.CollectAll(context.Background())
	require.NoError(t, err)

	require.Len(t, result.FailedCounters, 1)
	assert.Equal(t, "memory", result.FailedCounters[0].Counter)
	assert.Equal(t, model.KindVM, result.FailedCounters[0].Entity)
	assert.Equal(t, 7, result.Samples)
}

func TestCollector_CollectAll_UnknownCounter(t *testing.T) {
	server := setupVMTestServer(t, fleetVectors)
	defer server.Close()

	counters := append(createTestCounters(), &model.CounterDefinition{Counter: "bogus", Entity: model.KindVM, Query: "x"})
	c := newTestCollector(t, server.URL, counters)
	result, err := c.CollectAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result.FailedCounters, 1)
	assert.Equal(t, "bogus", result.FailedCounters[0].Counter)
}

func TestCollector_CollectAll_AllFailedKeepsSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestCollector(t, server.URL, createTestCounters())
	key := metrics.Key{Kind: model.KindVM, Entity: "vm-1", Counter: metrics.CounterMemory}
	c.Store().Set(key, 42)

	_, err := c.CollectAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, 42.0, c.Store().Value(key))
}

func TestCollector_CollectAll_NoActiveCounters(t *testing.T) {
	c := newTestCollector(t, "http://127.0.0.1:1", []*model.CounterDefinition{
		{Counter: "cpu", Entity: model.KindVM, Status: "pending"},
	})
	c.Store().Set(metrics.Key{Kind: model.KindVM, Entity: "vm-1", Counter: metrics.CounterMemory}, 1)

	result, err := c.CollectAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.ActiveCounters)
	assert.Equal(t, 1, result.PendingCounters)
	assert.Equal(t, 0, c.Store().Len())
}

func TestCollector_ConcurrencyLimit(t *testing.T) {
	var inFlight, maxInFlight int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(vm.QueryResponse{Status: "success", Data: vm.QueryData{ResultType: "vector"}})
	}))
	defer server.Close()

	cfg := createTestConfig()
	cfg.Inspection.Concurrency = 2
	c := NewCollector(cfg, createVMClient(server.URL), metrics.NewSnapshot(), createTestCounters(), zerolog.Nop())

	_, err := c.CollectAll(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(2))
}
