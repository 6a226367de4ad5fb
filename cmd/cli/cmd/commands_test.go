package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gpusizer/gpusizer/internal/api"
	"github.com/gpusizer/gpusizer/internal/sizing"
	"github.com/gpusizer/gpusizer/internal/store"
)

func setupTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	// Point CLI at the test server.
	apiURL = srv.URL
	return srv
}

func TestRecommendCommand_Table(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req api.RecommendRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "meta-llama/Llama-2-7b-hf" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if req.LatencyTargetMs != 1000 {
			t.Errorf("unexpected latency target: %v", req.LatencyTargetMs)
		}
		json.NewEncoder(w).Encode(api.RecommendResponse{
			RequestID: "req-1",
			Model:     req.Model,
			RecommendationResult: sizing.RecommendationResult{
				Feasible:    true,
				Recommended: &sizing.Configuration{DeviceName: "a100-80g", DeviceCount: 2, AggregateMemoryGiB: 160},
				Alternatives: []sizing.Configuration{
					{DeviceName: "h100-sxm", DeviceCount: 2, AggregateMemoryGiB: 160, AggregateThroughputTPS: 12000},
				},
				Diagnostics: sizing.Diagnostics{
					TotalVRAMRequiredGiB: 113.81,
					RequestsPerDevice:    4,
					RequiredDeviceCount:  2,
					LatencyTargetMet:     true,
				},
			},
		})
	}))

	outputFormat = "table"
	recModel = "meta-llama/Llama-2-7b-hf"
	recUsers = 100
	recLatencyMs = 1000
	recKVOverrideGiB = 0
	recThroughput = 0
	recActiveExperts = false
	recForce = false

	if err := runRecommend(nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestRecommendCommand_JSON(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.RecommendResponse{
			RequestID:            "req-2",
			Model:                "microsoft/phi-2",
			RecommendationResult: sizing.RecommendationResult{Feasible: false, Alternatives: []sizing.Configuration{}},
		})
	}))

	outputFormat = "json"
	recModel = "microsoft/phi-2"
	recUsers = 10
	recLatencyMs = 2000

	if err := runRecommend(nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestRecommendCommand_Infeasible(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.RecommendResponse{
			RequestID: "req-3",
			Model:     "meta-llama/Llama-2-70b-hf",
			RecommendationResult: sizing.RecommendationResult{
				Feasible:     false,
				Alternatives: []sizing.Configuration{},
				Diagnostics:  sizing.Diagnostics{TotalVRAMRequiredGiB: 2013.81, LatencyTargetMet: true},
			},
		})
	}))

	outputFormat = "table"
	recModel = "meta-llama/Llama-2-70b-hf"
	recUsers = 2000
	recLatencyMs = 1000

	if err := runRecommend(nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestRecommendCommand_APIError(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "latency target below base latency"})
	}))

	outputFormat = "table"
	recModel = "meta-llama/Llama-2-7b-hf"
	recUsers = 1
	recLatencyMs = 10

	if err := runRecommend(nil, nil); err == nil {
		t.Fatal("expected error from 422 response")
	}
}

func TestModelsCommand_Table(t *testing.T) {
	now := time.Now()
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]store.ModelRecord{
			{
				ModelID:            "meta-llama/Llama-2-7b-hf",
				ParameterCount:     6738415616,
				WeightFootprintGiB: 13.81,
				KVCacheGiBPerUser:  1.0,
				BaseLatencySeconds: 0.25,
				QueryCount:         12,
				LastAccessedAt:     &now,
			},
			{ModelID: "mistralai/Mistral-7B-v0.1", BaseLatencySeconds: 1},
		})
	}))

	outputFormat = "table"
	modelsLimit = 0

	if err := runModels(nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestModelsCommand_Search(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "llama" {
			t.Errorf("expected q=llama, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]store.ModelRecord{
			{ModelID: "meta-llama/Llama-2-7b-hf", BaseLatencySeconds: 1},
		})
	}))

	outputFormat = "table"
	modelsLimit = 0

	if err := runModels(nil, []string{"llama"}); err != nil {
		t.Fatal(err)
	}
}

func TestModelsCommand_NoResults(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]store.ModelRecord{})
	}))

	outputFormat = "table"
	modelsLimit = 0

	if err := runModels(nil, []string{"nonexistent"}); err != nil {
		t.Fatal(err)
	}
}

func TestDevicesCommand_Table(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(api.DeviceList{
			Devices: []sizing.DeviceDescriptor{
				{Name: "a10g", MemoryGiB: 24, ThroughputTPS: 1500, MaxLinkedDevices: 1, LatencyFactor: 1.5, InstanceName: "g5.xlarge", HourlyPriceUSD: 1.006},
				{Name: "h100-sxm", MemoryGiB: 80, ThroughputTPS: 6000, SupportsLinking: true, MaxLinkedDevices: 8, LatencyFactor: 1.0},
			},
			SkippedEntries: 1,
		})
	}))

	outputFormat = "table"
	devicesReload = false

	if err := runDevices(nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestDevicesCommand_Reload(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/reload") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.DeviceList{
			Devices: []sizing.DeviceDescriptor{{Name: "a10g", MemoryGiB: 24, MaxLinkedDevices: 1, LatencyFactor: 1}},
		})
	}))

	outputFormat = "table"
	devicesReload = true

	err := runDevices(nil, nil)
	devicesReload = false
	if err != nil {
		t.Fatal(err)
	}
}

func TestDevicesCommand_CSV(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.DeviceList{
			Devices: []sizing.DeviceDescriptor{{Name: "a10g", MemoryGiB: 24, MaxLinkedDevices: 1, LatencyFactor: 1}},
		})
	}))

	outputFormat = "csv"
	devicesReload = false

	if err := runDevices(nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestResolveCommand_Table(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v1/models/") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(sizing.ModelDescriptor{
			Identifier:         "mistralai/Mixtral-8x7B-v0.1",
			HiddenSize:         4096,
			NumLayers:          32,
			NumAttentionHeads:  32,
			NumKeyValueHeads:   8,
			SeqLen:             2048,
			ExpertCount:        8,
			ExpertsPerToken:    2,
			BaseLatencySeconds: 1,
			WeightFootprintGiB: 95.69,
			KVCacheGiBPerUser:  0.25,
		})
	}))

	outputFormat = "table"
	resolveForce = false

	if err := runResolve(nil, []string{"mistralai/Mixtral-8x7B-v0.1"}); err != nil {
		t.Fatal(err)
	}
}

func TestResolveCommand_Force(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("force") != "true" {
			t.Errorf("expected force=true, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(sizing.ModelDescriptor{
			Identifier:          "unknown/model",
			BaseLatencySeconds:  1,
			FootprintUnresolved: true,
		})
	}))

	outputFormat = "table"
	resolveForce = true

	err := runResolve(nil, []string{"unknown/model"})
	resolveForce = false
	if err != nil {
		t.Fatal(err)
	}
}

func TestManifestCommand(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/recommend"):
			var req api.RecommendRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Model != "mistralai/Mistral-7B-v0.1" {
				t.Errorf("unexpected model: %s", req.Model)
			}
			json.NewEncoder(w).Encode(api.RecommendResponse{
				RequestID: "req-m1",
				Model:     req.Model,
				RecommendationResult: sizing.RecommendationResult{
					Feasible:    true,
					Recommended: &sizing.Configuration{DeviceName: "a10g", DeviceCount: 1, AggregateMemoryGiB: 24},
				},
			})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/devices"):
			json.NewEncoder(w).Encode(api.DeviceList{
				Devices: []sizing.DeviceDescriptor{
					{Name: "a10g", MemoryGiB: 24, MaxLinkedDevices: 1, LatencyFactor: 1.5, InstanceName: "g5.xlarge"},
				},
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	manModel = "mistralai/Mistral-7B-v0.1"
	manUsers = 20
	manLatencyMs = 1000
	manName = ""
	manNamespace = "default"
	manVersion = "latest"
	manHFToken = ""
	manMaxLen = 0
	manCPU = "4"
	manMemory = "16Gi"

	if err := runManifest(nil, nil); err != nil {
		t.Fatal(err)
	}
}

func TestManifestCommand_Infeasible(t *testing.T) {
	setupTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.RecommendResponse{
			RequestID:            "req-m2",
			Model:                "meta-llama/Llama-3.1-405B",
			RecommendationResult: sizing.RecommendationResult{Feasible: false},
		})
	}))

	manModel = "meta-llama/Llama-3.1-405B"
	manUsers = 5000
	manLatencyMs = 100

	if err := runManifest(nil, nil); err == nil {
		t.Fatal("expected error for infeasible sizing")
	}
}
