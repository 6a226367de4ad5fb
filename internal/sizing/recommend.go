package sizing

import (
	"errors"
	"fmt"
)

// ErrUnresolvable marks a recommendation whose memory footprints could not
// be estimated from the architecture fields and had no override to fall
// back on.
var ErrUnresolvable = errors.New("memory footprint unresolvable")

// RecommendOptions carries the optional knobs of a recommendation run.
type RecommendOptions struct {
	// KVCacheOverrideGiB substitutes the per-user KV estimate when > 0.
	KVCacheOverrideGiB float64

	// ThroughputRequiredTPS makes throughput a hard constraint when > 0.
	ThroughputRequiredTPS float64

	// ActiveExpertsOnly sizes mixture-of-experts weights by activated
	// experts instead of all resident experts.
	ActiveExpertsOnly bool
}

// Recommend sizes a model for the given concurrency and latency budget and
// ranks feasible device configurations from the catalog. It validates the
// request, translates the budget into per-device concurrency, resolves the
// memory demand from overrides or the estimators, and hands selection to
// SelectDevices over the latency-eligible slice of the catalog.
func Recommend(model ModelDescriptor, users int, latencyTargetMs float64, catalog []DeviceDescriptor, opts RecommendOptions) (RecommendationResult, error) {
	if users <= 0 {
		return RecommendationResult{}, fmt.Errorf("%w: users %d", ErrInvalidInput, users)
	}
	base := model.BaseLatencySeconds
	if base <= 0 {
		return RecommendationResult{}, fmt.Errorf("%w: model %q base latency %.3fs", ErrInvalidInput, model.Identifier, base)
	}
	rpd, err := EffectiveConcurrency(base, latencyTargetMs)
	if err != nil {
		return RecommendationResult{}, err
	}
	requiredCount := RequiredDeviceCount(users, rpd)

	weightGiB := model.WeightFootprintGiB
	if opts.ActiveExpertsOnly && model.ExpertCount > 0 {
		// A cached footprint sizes resident experts; the toggle asks for
		// activated experts only, so re-estimate.
		weightGiB = 0
	}
	if weightGiB <= 0 {
		w, ok := EstimateWeightFootprint(model, WeightOptions{ActiveExpertsOnly: opts.ActiveExpertsOnly})
		if !ok {
			return RecommendationResult{}, fmt.Errorf("%w: weight footprint for %q", ErrUnresolvable, model.Identifier)
		}
		weightGiB = w
	}
	kvGiB := opts.KVCacheOverrideGiB
	if kvGiB <= 0 {
		kvGiB = model.KVCacheGiBPerUser
	}
	if kvGiB <= 0 {
		kv, ok := EstimateModelKVCache(model)
		if !ok {
			return RecommendationResult{}, fmt.Errorf("%w: kv cache for %q", ErrUnresolvable, model.Identifier)
		}
		kvGiB = kv
	}
	totalGiB := round2(weightGiB + kvGiB*float64(users))

	// A device whose latency factor pushes the model past the budget can
	// never serve it, whatever its memory.
	targetSeconds := latencyTargetMs / 1000
	eligible := make([]DeviceDescriptor, 0, len(catalog))
	filtered := 0
	for _, dev := range catalog {
		factor := dev.LatencyFactor
		if factor <= 0 {
			factor = 1
		}
		if base*factor > targetSeconds+floatSlack {
			filtered++
			continue
		}
		eligible = append(eligible, dev)
	}

	res := SelectDevices(totalGiB, eligible, requiredCount, opts.ThroughputRequiredTPS)
	res.Diagnostics.RequestsPerDevice = rpd
	res.Diagnostics.LatencyTargetMet = len(eligible) > 0
	res.Diagnostics.LatencyFilteredDevices = filtered
	return res, nil
}
