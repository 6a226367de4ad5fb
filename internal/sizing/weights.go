package sizing

import "math"

// WeightOptions controls weight-footprint estimation.
type WeightOptions struct {
	// ActiveExpertsOnly sizes mixture-of-experts weights by the experts
	// activated per token instead of keeping every expert resident.
	ActiveExpertsOnly bool

	// OverheadFraction overrides the default 10% allowance when > 0.
	OverheadFraction float64
}

// EstimateWeightFootprint returns the estimated GiB needed to hold the
// model's parameters, or ok=false when hidden size or layer count cannot
// be resolved. Pure function of its inputs.
func EstimateWeightFootprint(m ModelDescriptor, opts WeightOptions) (float64, bool) {
	hidden := float64(m.HiddenSize)
	layers := float64(m.NumLayers)
	if hidden <= 0 || layers <= 0 {
		return 0, false
	}
	vocab := float64(m.VocabSize)
	if vocab <= 0 {
		vocab = defaultVocabSize
	}
	intermediate := float64(m.IntermediateSize)
	if intermediate <= 0 {
		intermediate = 4 * hidden
	}
	byteWidth := float64(m.ByteWidth)
	if byteWidth <= 0 {
		byteWidth = 2
	}

	// Key/value projections shrink under grouped-query attention.
	kvDim := hidden
	if m.NumAttentionHeads > 0 && m.NumKeyValueHeads > 0 {
		kvDim = hidden / float64(m.NumAttentionHeads) * float64(m.NumKeyValueHeads)
	}

	embedParams := 2 * vocab * hidden // input embedding + output head
	attnParams := 2*hidden*hidden + 2*hidden*kvDim
	mlpParams := 3 * hidden * intermediate

	// Two dense estimates: a per-layer walk and an attention-dominant
	// scaling heuristic. Config fields are unreliable across model
	// families, so the larger of the two is the baseline.
	layered := embedParams + layers*(attnParams+mlpParams)
	heuristic := 12*layers*hidden*hidden + 2*vocab*hidden
	params := math.Max(layered, heuristic)

	if m.ExpertCount > 0 {
		experts := float64(m.ExpertCount)
		if opts.ActiveExpertsOnly && m.ExpertsPerToken > 0 {
			experts = float64(m.ExpertsPerToken)
		}
		expertIntermediate := float64(m.ExpertIntermediateSize)
		if expertIntermediate <= 0 {
			expertIntermediate = intermediate
		}
		moeParams := embedParams + layers*attnParams
		if m.SharedExpertIntermediateSize > 0 {
			moeParams += layers * 3 * hidden * float64(m.SharedExpertIntermediateSize)
		}
		moeParams += layers * 3 * hidden * expertIntermediate * experts
		// Incomplete expert fields undercount; never fall below the
		// dense baseline.
		params = math.Max(params, moeParams)
	}

	overhead := opts.OverheadFraction
	if overhead <= 0 {
		overhead = defaultOverheadFraction
	}
	bytes := params * byteWidth * (1 + overhead)
	return round2(bytes / gibBytes), true
}

// round2 rounds to 2 decimal places for GiB figures.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
