// Package sizing implements the GPU sizing engine: model weight and KV-cache
// footprint estimation, latency budget to concurrency translation, and
// deterministic device selection and ranking over a device catalog.
package sizing

// ModelDescriptor holds the normalized architecture metadata and cached
// footprints for one model. Zero-valued numeric fields mean "unknown".
type ModelDescriptor struct {
	Identifier string `json:"identifier"`

	HiddenSize        int `json:"hidden_size,omitempty"`
	NumLayers         int `json:"num_layers,omitempty"`
	NumAttentionHeads int `json:"num_attention_heads,omitempty"`
	NumKeyValueHeads  int `json:"num_key_value_heads,omitempty"`
	IntermediateSize  int `json:"intermediate_size,omitempty"`
	VocabSize         int `json:"vocab_size,omitempty"`
	SeqLen            int `json:"seq_len,omitempty"`
	ByteWidth         int `json:"byte_width,omitempty"`

	// Mixture-of-experts fields. ExpertCount == 0 means a dense model.
	ExpertCount                  int `json:"expert_count,omitempty"`
	ExpertsPerToken              int `json:"experts_per_token,omitempty"`
	ExpertIntermediateSize       int `json:"expert_intermediate_size,omitempty"`
	SharedExpertIntermediateSize int `json:"shared_expert_intermediate_size,omitempty"`

	// BaseLatencySeconds is the minimum single-request latency on a
	// reference device. Must be > 0 for recommendations.
	BaseLatencySeconds float64 `json:"base_latency_s"`

	// Precomputed footprints take precedence over recomputation when > 0.
	WeightFootprintGiB float64 `json:"weight_footprint_gib,omitempty"`
	KVCacheGiBPerUser  float64 `json:"kv_cache_gib_per_user,omitempty"`

	// FootprintUnresolved marks descriptors whose architecture fields were
	// insufficient to estimate one or both footprints.
	FootprintUnresolved bool `json:"footprint_unresolved,omitempty"`
}

// DeviceDescriptor is one normalized entry from the device catalog.
type DeviceDescriptor struct {
	Name          string  `json:"name"`
	MemoryGiB     float64 `json:"memory_gib"`
	ThroughputTPS float64 `json:"throughput_tps,omitempty"`

	SupportsLinking  bool `json:"supports_linking"`
	MaxLinkedDevices int  `json:"max_linked_devices"`

	// LatencyFactor inflates a model's base latency on this device.
	LatencyFactor float64 `json:"latency_factor,omitempty"`

	// Display-only enrichment, never a selection constraint.
	InstanceName   string  `json:"instance_name,omitempty"`
	HourlyPriceUSD float64 `json:"hourly_price_usd,omitempty"`
}

// Configuration is one feasible device assignment for a workload.
type Configuration struct {
	DeviceName  string `json:"device_name"`
	DeviceCount int    `json:"device_count"`

	// TotalMemoryGiB is the memory the workload occupies on the
	// configuration; AggregateMemoryGiB is the hardware capacity
	// (per-device capacity × count) and is always >= TotalMemoryGiB.
	TotalMemoryGiB     float64 `json:"total_memory_gib"`
	AggregateMemoryGiB float64 `json:"aggregate_memory_gib"`

	AggregateThroughputTPS float64 `json:"aggregate_throughput_tps,omitempty"`
}

// Diagnostics carries the intermediate sizing figures behind a result.
type Diagnostics struct {
	TotalVRAMRequiredGiB  float64 `json:"total_vram_required_gib"`
	ThroughputRequiredTPS float64 `json:"throughput_required_tps,omitempty"`

	RequestsPerDevice   int `json:"requests_per_device,omitempty"`
	RequiredDeviceCount int `json:"required_device_count,omitempty"`

	// LatencyTargetMet reports whether at least one catalog device meets
	// the latency budget after applying its latency factor.
	LatencyTargetMet bool `json:"latency_target_met"`

	// LatencyFilteredDevices counts catalog entries excluded because the
	// model's adjusted latency exceeds the target on them.
	LatencyFilteredDevices int `json:"latency_filtered_devices,omitempty"`
}

// RecommendationResult is the outcome of one sizing run. Feasible false
// means no device configuration satisfies the demand; that is a finding,
// not an error, and Recommended is nil.
type RecommendationResult struct {
	Recommended  *Configuration  `json:"recommended,omitempty"`
	Alternatives []Configuration `json:"alternatives"`
	Diagnostics  Diagnostics     `json:"diagnostics"`
	Feasible     bool            `json:"feasible"`
}

const (
	// defaultVocabSize stands in when a config omits vocab_size.
	defaultVocabSize = 256000

	// defaultOverheadFraction reserves room for framework and runtime
	// allocations on top of raw parameter bytes.
	defaultOverheadFraction = 0.10

	// defaultSeqLen is assumed when a config carries no context length.
	defaultSeqLen = 2048

	// defaultBaseLatencySeconds is assumed for hub-fetched models that
	// carry no latency figure.
	defaultBaseLatencySeconds = 1.0

	gibBytes = 1024 * 1024 * 1024

	// maxAlternatives bounds the alternatives list in a result.
	maxAlternatives = 4
)
