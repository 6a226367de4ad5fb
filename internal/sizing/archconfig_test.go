package sizing

import "testing"

func TestParseArchConfig(t *testing.T) {
	cfg := ArchConfig{
		"hidden_size":             float64(4096),
		"num_hidden_layers":       float64(32),
		"num_attention_heads":     float64(32),
		"num_key_value_heads":     float64(8),
		"intermediate_size":       float64(14336),
		"vocab_size":              float64(32000),
		"max_position_embeddings": float64(32768),
		"torch_dtype":             "bfloat16",
	}
	m := ParseArchConfig("mistralai/Mistral-7B-v0.1", cfg)
	if m.Identifier != "mistralai/Mistral-7B-v0.1" {
		t.Errorf("identifier = %q", m.Identifier)
	}
	if m.HiddenSize != 4096 || m.NumLayers != 32 {
		t.Errorf("hidden/layers = %d/%d, want 4096/32", m.HiddenSize, m.NumLayers)
	}
	if m.NumKeyValueHeads != 8 {
		t.Errorf("kv heads = %d, want 8", m.NumKeyValueHeads)
	}
	if m.SeqLen != 32768 {
		t.Errorf("seq len = %d, want 32768", m.SeqLen)
	}
	if m.ByteWidth != 2 {
		t.Errorf("byte width = %d, want 2", m.ByteWidth)
	}
	if m.BaseLatencySeconds != defaultBaseLatencySeconds {
		t.Errorf("base latency = %v, want default %v", m.BaseLatencySeconds, defaultBaseLatencySeconds)
	}
}

func TestParseArchConfigAliases(t *testing.T) {
	// GPT-2 style field names.
	cfg := ArchConfig{
		"n_embd":      float64(1600),
		"n_layer":     float64(48),
		"n_head":      float64(25),
		"n_inner":     float64(6400),
		"n_positions": float64(1024),
		"vocab_size":  float64(50257),
	}
	m := ParseArchConfig("openai-community/gpt2-xl", cfg)
	if m.HiddenSize != 1600 || m.NumLayers != 48 || m.NumAttentionHeads != 25 {
		t.Errorf("parsed %d/%d/%d, want 1600/48/25", m.HiddenSize, m.NumLayers, m.NumAttentionHeads)
	}
	if m.IntermediateSize != 6400 {
		t.Errorf("intermediate = %d, want 6400", m.IntermediateSize)
	}
	if m.SeqLen != 1024 {
		t.Errorf("seq len = %d, want 1024", m.SeqLen)
	}
	// No num_key_value_heads: classic multi-head attention.
	if m.NumKeyValueHeads != 25 {
		t.Errorf("kv heads = %d, want attention head count 25", m.NumKeyValueHeads)
	}
}

func TestParseArchConfigNestedSubConfig(t *testing.T) {
	// Multimodal configs nest the text tower; nested values win over
	// top-level ones.
	cfg := ArchConfig{
		"hidden_size": float64(1024),
		"text_config": map[string]any{
			"hidden_size":       float64(8192),
			"num_hidden_layers": float64(80),
		},
	}
	m := ParseArchConfig("acme/multimodal", cfg)
	if m.HiddenSize != 8192 {
		t.Errorf("hidden = %d, want nested 8192", m.HiddenSize)
	}
	if m.NumLayers != 80 {
		t.Errorf("layers = %d, want nested 80", m.NumLayers)
	}
}

func TestParseArchConfigMoE(t *testing.T) {
	cfg := ArchConfig{
		"hidden_size":           float64(4096),
		"num_hidden_layers":     float64(32),
		"num_local_experts":     float64(8),
		"num_experts_per_tok":   float64(2),
		"moe_intermediate_size": float64(14336),
	}
	m := ParseArchConfig("acme/moe", cfg)
	if m.ExpertCount != 8 || m.ExpertsPerToken != 2 {
		t.Errorf("experts = %d/%d, want 8/2", m.ExpertCount, m.ExpertsPerToken)
	}
	if m.ExpertIntermediateSize != 14336 {
		t.Errorf("expert intermediate = %d, want 14336", m.ExpertIntermediateSize)
	}
}

func TestParseArchConfigDefaults(t *testing.T) {
	m := ParseArchConfig("acme/bare", ArchConfig{})
	if m.SeqLen != defaultSeqLen {
		t.Errorf("seq len = %d, want default %d", m.SeqLen, defaultSeqLen)
	}
	if m.ByteWidth != 2 {
		t.Errorf("byte width = %d, want 2", m.ByteWidth)
	}
	if m.HiddenSize != 0 || m.NumLayers != 0 {
		t.Errorf("unknown fields should stay zero, got %d/%d", m.HiddenSize, m.NumLayers)
	}
}

func TestByteWidthForDtype(t *testing.T) {
	tests := []struct {
		dtype string
		want  int
	}{
		{"float32", 4},
		{"torch.float32", 4},
		{"fp32", 4},
		{"bfloat16", 2},
		{"float16", 2},
		{"", 2},
		{"int8", 2},
	}
	for _, tt := range tests {
		if got := byteWidthForDtype(tt.dtype); got != tt.want {
			t.Errorf("byteWidthForDtype(%q) = %d, want %d", tt.dtype, got, tt.want)
		}
	}
}
