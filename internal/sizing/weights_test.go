package sizing

import "testing"

// Llama 7B-like dense descriptor for testing.
var llama7BLike = ModelDescriptor{
	Identifier:         "acme/dense-7b",
	HiddenSize:         4096,
	NumLayers:          32,
	NumAttentionHeads:  32,
	NumKeyValueHeads:   32,
	IntermediateSize:   11008,
	VocabSize:          32000,
	SeqLen:             2048,
	ByteWidth:          2,
	BaseLatencySeconds: 0.25,
}

// Mixtral-like mixture-of-experts descriptor for testing.
var mixtralLike = ModelDescriptor{
	Identifier:         "acme/moe-8x7b",
	HiddenSize:         4096,
	NumLayers:          32,
	NumAttentionHeads:  32,
	NumKeyValueHeads:   8,
	IntermediateSize:   14336,
	VocabSize:          32000,
	SeqLen:             2048,
	ByteWidth:          2,
	ExpertCount:        8,
	ExpertsPerToken:    2,
	BaseLatencySeconds: 0.5,
}

func TestEstimateWeightFootprintDense(t *testing.T) {
	// Layered walk: 2·32000·4096 embeddings + 32 × (4·4096² attention +
	// 3·4096·11008 MLP) = 6,738,149,376 params. The 12·l·h² heuristic
	// gives 6,704,594,944, so the walk wins. ×2 bytes ×1.1 overhead
	// = 13.81 GiB.
	got, ok := EstimateWeightFootprint(llama7BLike, WeightOptions{})
	if !ok {
		t.Fatal("expected resolvable estimate")
	}
	if got != 13.81 {
		t.Errorf("EstimateWeightFootprint = %v GiB, want 13.81", got)
	}
}

func TestEstimateWeightFootprintFP32(t *testing.T) {
	m := llama7BLike
	m.ByteWidth = 4
	got, ok := EstimateWeightFootprint(m, WeightOptions{})
	if !ok {
		t.Fatal("expected resolvable estimate")
	}
	if got != 27.61 {
		t.Errorf("EstimateWeightFootprint fp32 = %v GiB, want 27.61", got)
	}
}

func TestEstimateWeightFootprintHeuristicWins(t *testing.T) {
	// A degenerate intermediate size starves the layered walk; the
	// attention-dominant heuristic (12·32·4096² + 2·32000·4096 params)
	// becomes the baseline: 13.74 GiB at fp16.
	m := ModelDescriptor{
		Identifier:       "acme/sparse-config",
		HiddenSize:       4096,
		NumLayers:        32,
		IntermediateSize: 1,
		VocabSize:        32000,
	}
	got, ok := EstimateWeightFootprint(m, WeightOptions{})
	if !ok {
		t.Fatal("expected resolvable estimate")
	}
	if got != 13.74 {
		t.Errorf("EstimateWeightFootprint = %v GiB, want 13.74", got)
	}
}

func TestEstimateWeightFootprintMoE(t *testing.T) {
	// All eight experts resident: attention + embeddings + 32·3·4096·
	// 14336·8 expert params = 46,701,477,888 → 95.69 GiB. Active-only
	// keeps two experts per token: 12,878,610,432 → 26.39 GiB.
	resident, ok := EstimateWeightFootprint(mixtralLike, WeightOptions{})
	if !ok {
		t.Fatal("expected resolvable estimate")
	}
	if resident != 95.69 {
		t.Errorf("resident estimate = %v GiB, want 95.69", resident)
	}

	active, ok := EstimateWeightFootprint(mixtralLike, WeightOptions{ActiveExpertsOnly: true})
	if !ok {
		t.Fatal("expected resolvable estimate")
	}
	if active != 26.39 {
		t.Errorf("active-only estimate = %v GiB, want 26.39", active)
	}
	if active >= resident {
		t.Errorf("active-only %v GiB not below resident %v GiB", active, resident)
	}

	dense := mixtralLike
	dense.ExpertCount = 0
	dense.ExpertsPerToken = 0
	denseGiB, ok := EstimateWeightFootprint(dense, WeightOptions{})
	if !ok {
		t.Fatal("expected resolvable dense estimate")
	}
	if resident < denseGiB || active < denseGiB {
		t.Errorf("MoE estimates (%v, %v) fell below dense baseline %v", resident, active, denseGiB)
	}
}

func TestEstimateWeightFootprintMoENeverBelowDense(t *testing.T) {
	// One tiny expert undercounts badly; the dense baseline must hold.
	m := mixtralLike
	m.ExpertCount = 1
	m.ExpertsPerToken = 1
	m.ExpertIntermediateSize = 128

	dense := m
	dense.ExpertCount = 0
	denseGiB, _ := EstimateWeightFootprint(dense, WeightOptions{})

	got, ok := EstimateWeightFootprint(m, WeightOptions{})
	if !ok {
		t.Fatal("expected resolvable estimate")
	}
	if got != denseGiB {
		t.Errorf("undercounting MoE estimate = %v GiB, want dense baseline %v", got, denseGiB)
	}
}

func TestEstimateWeightFootprintVocabDefault(t *testing.T) {
	// A missing vocab defaults to 256,000, which dominates the 32,000 in
	// the fixture.
	m := llama7BLike
	m.VocabSize = 0
	got, ok := EstimateWeightFootprint(m, WeightOptions{})
	if !ok {
		t.Fatal("expected resolvable estimate")
	}
	withVocab, _ := EstimateWeightFootprint(llama7BLike, WeightOptions{})
	if got <= withVocab {
		t.Errorf("defaulted-vocab estimate %v GiB not above %v", got, withVocab)
	}
}

func TestEstimateWeightFootprintUnresolvable(t *testing.T) {
	tests := []struct {
		name string
		m    ModelDescriptor
	}{
		{"no hidden size", ModelDescriptor{NumLayers: 32}},
		{"no layers", ModelDescriptor{HiddenSize: 4096}},
		{"empty descriptor", ModelDescriptor{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := EstimateWeightFootprint(tt.m, WeightOptions{}); ok {
				t.Error("expected unresolvable estimate")
			}
		})
	}
}

func TestEstimateWeightFootprintOverheadOverride(t *testing.T) {
	base, _ := EstimateWeightFootprint(llama7BLike, WeightOptions{})
	bigger, _ := EstimateWeightFootprint(llama7BLike, WeightOptions{OverheadFraction: 0.5})
	if bigger <= base {
		t.Errorf("50%% overhead estimate %v GiB not above default %v", bigger, base)
	}
}
