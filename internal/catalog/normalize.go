package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gpusizer/gpusizer/internal/sizing"
)

// Catalog files come from several generations of the same data set, so
// every field carries the key spellings seen in the wild.
var deviceNameKeys = []string{"name", "device_name", "gpu_type", "GPU Type", "Model", "model"}
var deviceMemoryKeys = []string{"memory_gib", "memory_gb", "Memory (GB)", "vram_gb", "VRAM (GB)", "vram_required_gb"}
var deviceThroughputKeys = []string{"throughput_tps", "tokens_per_second", "Tokens/s", "tflops_fp16", "TFLOPs (FP16)"}
var deviceLinkingKeys = []string{"supports_linking", "nvlink", "NVLink", "NVLink Support"}
var deviceMaxLinkedKeys = []string{"max_linked_devices", "max_nvlink_gpus", "Max NVLink GPUs"}
var deviceLatencyKeys = []string{"latency_factor", "Latency Factor"}
var deviceInstanceKeys = []string{"instance_name", "ec2_instance", "Instance"}
var devicePriceKeys = []string{"hourly_price_usd", "price_per_hour_usd", "Price ($/hr)"}

var modelIDKeys = []string{"identifier", "model_id", "Model", "model", "name"}
var modelWeightKeys = []string{"weight_footprint_gib", "vram_required_gb", "VRAM Required (GB)"}
var modelKVKeys = []string{"kv_cache_gib_per_user", "kv_cache_fp16_gb", "KV Cache (GB per user)"}
var modelLatencyKeys = []string{"base_latency_s", "Base Latency (s)"}

var (
	errMissingName   = errors.New("missing device name")
	errMissingMemory = errors.New("missing or non-positive memory capacity")
)

// NormalizeDevice maps one raw catalog row onto a DeviceDescriptor. Rows
// without a name or a positive memory capacity are malformed.
func NormalizeDevice(row map[string]any) (sizing.DeviceDescriptor, error) {
	dev := sizing.DeviceDescriptor{
		Name:           stringValue(row, deviceNameKeys...),
		InstanceName:   stringValue(row, deviceInstanceKeys...),
		HourlyPriceUSD: numberValue(row, devicePriceKeys...),
		LatencyFactor:  numberValue(row, deviceLatencyKeys...),
	}
	if dev.Name == "" {
		return dev, errMissingName
	}
	dev.MemoryGiB = numberValue(row, deviceMemoryKeys...)
	if dev.MemoryGiB <= 0 {
		return dev, errMissingMemory
	}
	dev.ThroughputTPS = numberValue(row, deviceThroughputKeys...)
	dev.SupportsLinking = boolValue(row, deviceLinkingKeys...)
	dev.MaxLinkedDevices = int(numberValue(row, deviceMaxLinkedKeys...))
	if !dev.SupportsLinking || dev.MaxLinkedDevices < 1 {
		dev.MaxLinkedDevices = 1
	}
	if dev.LatencyFactor <= 0 {
		dev.LatencyFactor = 1.0
	}
	return dev, nil
}

// NormalizeModel maps one raw model catalog row onto a ModelDescriptor.
// Architecture fields use the same key handling as hub configs; catalog
// rows add the identifier, precomputed footprints, and base latency.
func NormalizeModel(row map[string]any) (sizing.ModelDescriptor, error) {
	id := stringValue(row, modelIDKeys...)
	if id == "" {
		return sizing.ModelDescriptor{}, errors.New("missing model identifier")
	}
	m := sizing.ParseArchConfig(id, sizing.ArchConfig(row))
	m.WeightFootprintGiB = numberValue(row, modelWeightKeys...)
	m.KVCacheGiBPerUser = numberValue(row, modelKVKeys...)
	if base := numberValue(row, modelLatencyKeys...); base > 0 {
		m.BaseLatencySeconds = base
	}
	return m, nil
}

// LoadModels reads a model catalog from a JSON or CSV file, skipping
// malformed rows with diagnostics.
func LoadModels(path string) ([]sizing.ModelDescriptor, []SkipDiagnostic, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load model catalog: %w", err)
	}
	models := make([]sizing.ModelDescriptor, 0, len(rows))
	var skipped []SkipDiagnostic
	for i, row := range rows {
		m, err := NormalizeModel(row)
		if err != nil {
			skipped = append(skipped, SkipDiagnostic{Index: i, Reason: err.Error()})
			continue
		}
		models = append(models, m)
	}
	return models, skipped, nil
}

// InstanceName returns the row's cloud instance spelling, if any.
func InstanceName(row map[string]any) string {
	return stringValue(row, deviceInstanceKeys...)
}

// SetHourlyPriceUSD writes a refreshed price onto whichever price key the
// row already carries, defaulting to hourly_price_usd.
func SetHourlyPriceUSD(row map[string]any, usd float64) {
	for _, key := range devicePriceKeys {
		if _, ok := row[key]; ok {
			row[key] = usd
			return
		}
	}
	row[devicePriceKeys[0]] = usd
}

// numberValue returns the first key resolving to a number. CSV rows carry
// strings, so numeric strings parse too.
func numberValue(row map[string]any, keys ...string) float64 {
	for _, key := range keys {
		v, ok := row[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// stringValue returns the first key resolving to a non-empty string.
func stringValue(row map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// boolValue accepts booleans plus the yes/no and 0/1 spellings the CSV
// generations used.
func boolValue(row map[string]any, keys ...string) bool {
	for _, key := range keys {
		v, ok := row[key]
		if !ok {
			continue
		}
		switch b := v.(type) {
		case bool:
			return b
		case string:
			switch strings.ToLower(strings.TrimSpace(b)) {
			case "true", "yes", "y", "1":
				return true
			case "false", "no", "n", "0", "":
				return false
			}
		case float64:
			return b != 0
		case int:
			return b != 0
		}
	}
	return false
}
