package sizing

import "math"

// EstimateKVCachePerUser returns the GiB of attention key-value cache one
// concurrent user holds at a given sequence length, or ok=false when a
// required dimension is missing.
//
// bytes = layers × seqLen × kvHeads × headDim × 2 (key+value) × byteWidth.
// headDim <= 0 derives hiddenSize / kvHeads (truncating). kvHeads must be
// the key-value head count, not the attention head count; under grouped or
// multi-query attention the two differ and the attention count overcounts.
func EstimateKVCachePerUser(layers, kvHeads, hiddenSize, seqLen, byteWidth, headDim int) (float64, bool) {
	if layers <= 0 || kvHeads <= 0 || seqLen <= 0 || byteWidth <= 0 {
		return 0, false
	}
	if headDim <= 0 {
		if hiddenSize <= 0 {
			return 0, false
		}
		headDim = hiddenSize / kvHeads
	}
	if headDim <= 0 {
		return 0, false
	}
	bytes := float64(layers) * float64(seqLen) * float64(kvHeads) * float64(headDim) * 2 * float64(byteWidth)
	return round4(bytes / gibBytes), true
}

// EstimateModelKVCache estimates the per-user KV cache for a descriptor.
// The head dimension derives from the attention head count so that
// grouped-query models shrink the estimate instead of inflating it.
func EstimateModelKVCache(m ModelDescriptor) (float64, bool) {
	kvHeads := m.NumKeyValueHeads
	if kvHeads <= 0 {
		kvHeads = m.NumAttentionHeads
	}
	headDim := 0
	if m.NumAttentionHeads > 0 && m.HiddenSize > 0 {
		headDim = m.HiddenSize / m.NumAttentionHeads
	}
	seqLen := m.SeqLen
	if seqLen <= 0 {
		seqLen = defaultSeqLen
	}
	byteWidth := m.ByteWidth
	if byteWidth <= 0 {
		byteWidth = 2
	}
	return EstimateKVCachePerUser(m.NumLayers, kvHeads, m.HiddenSize, seqLen, byteWidth, headDim)
}

// round4 rounds to 4 decimal places; per-user KV figures are small.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
