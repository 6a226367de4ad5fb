package sizing

import "strings"

// ArchConfig is a raw architecture configuration document as decoded from a
// model hub config.json. Key names drift across model families;
// ParseArchConfig maps the known variants into one ModelDescriptor.
type ArchConfig map[string]any

// subConfigKeys name the per-modality sub-sections multimodal configs nest
// their tower dimensions under. A nested value wins over a top-level one.
var subConfigKeys = []string{"text_config", "vision_config", "audio_config"}

// ParseArchConfig normalizes a raw architecture config into a descriptor.
// Fields that cannot be resolved stay zero; the estimators decide whether
// that makes a footprint unresolvable.
func ParseArchConfig(identifier string, cfg ArchConfig) ModelDescriptor {
	m := ModelDescriptor{
		Identifier:                   identifier,
		HiddenSize:                   intField(cfg, "hidden_size", "n_embd", "d_model"),
		NumLayers:                    intField(cfg, "num_hidden_layers", "n_layer", "num_layers"),
		NumAttentionHeads:            intField(cfg, "num_attention_heads", "n_head"),
		NumKeyValueHeads:             intField(cfg, "num_key_value_heads"),
		IntermediateSize:             intField(cfg, "intermediate_size", "n_inner", "ffn_dim"),
		VocabSize:                    intField(cfg, "vocab_size"),
		SeqLen:                       intField(cfg, "max_position_embeddings", "n_positions", "seq_length"),
		ByteWidth:                    byteWidthForDtype(stringField(cfg, "torch_dtype", "dtype")),
		ExpertCount:                  intField(cfg, "num_local_experts", "n_routed_experts", "num_experts"),
		ExpertsPerToken:              intField(cfg, "num_experts_per_tok"),
		ExpertIntermediateSize:       intField(cfg, "moe_intermediate_size"),
		SharedExpertIntermediateSize: intField(cfg, "shared_expert_intermediate_size"),
		BaseLatencySeconds:           defaultBaseLatencySeconds,
	}
	if m.NumKeyValueHeads == 0 {
		// Configs without the field predate grouped-query attention.
		m.NumKeyValueHeads = m.NumAttentionHeads
	}
	if m.SeqLen == 0 {
		m.SeqLen = defaultSeqLen
	}
	return m
}

// lookup resolves a key with nested sub-configs taking precedence.
func lookup(cfg ArchConfig, key string) (any, bool) {
	for _, section := range subConfigKeys {
		sub, ok := cfg[section].(map[string]any)
		if !ok {
			continue
		}
		if v, ok := sub[key]; ok {
			return v, true
		}
	}
	v, ok := cfg[key]
	return v, ok
}

// intField returns the first key that resolves to a positive integer.
func intField(cfg ArchConfig, keys ...string) int {
	for _, key := range keys {
		v, ok := lookup(cfg, key)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			if n > 0 {
				return int(n)
			}
		case int:
			if n > 0 {
				return n
			}
		case int64:
			if n > 0 {
				return int(n)
			}
		}
	}
	return 0
}

// stringField returns the first key that resolves to a non-empty string.
func stringField(cfg ArchConfig, keys ...string) string {
	for _, key := range keys {
		if v, ok := lookup(cfg, key); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// byteWidthForDtype maps a dtype string to bytes per parameter. Anything
// that is not explicitly 32-bit float counts as the bf16/fp16 default.
func byteWidthForDtype(dtype string) int {
	d := strings.ToLower(dtype)
	if strings.Contains(d, "float32") || strings.Contains(d, "fp32") {
		return 4
	}
	return 2
}
