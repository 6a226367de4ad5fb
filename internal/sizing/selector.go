package sizing

import (
	"math"
	"sort"
)

// candidate pairs a device with the minimum count that satisfies demand.
type candidate struct {
	dev   DeviceDescriptor
	count int
}

// minimumCount returns the smallest device count >= requiredCount that
// satisfies the memory and optional throughput demand on dev, and whether
// any feasible count exists within the device's linking limit.
func minimumCount(dev DeviceDescriptor, memoryGiB, throughputTPS float64, requiredCount int) (int, bool) {
	if dev.MemoryGiB <= 0 {
		return 0, false
	}
	count := requiredCount
	if count < 1 {
		count = 1
	}
	if memCount := int(math.Ceil(memoryGiB / dev.MemoryGiB)); memCount > count {
		count = memCount
	}
	if throughputTPS > 0 {
		// A device with unknown throughput cannot prove the demand.
		if dev.ThroughputTPS <= 0 {
			return 0, false
		}
		if tpCount := int(math.Ceil(throughputTPS / dev.ThroughputTPS)); tpCount > count {
			count = tpCount
		}
	}
	if count > 1 {
		limit := dev.MaxLinkedDevices
		if !dev.SupportsLinking {
			limit = 1
		}
		if limit < 1 {
			limit = 1
		}
		if count > limit {
			return 0, false
		}
	}
	return count, true
}

// rankCandidates orders candidates by aggregate memory ascending, device
// count ascending, aggregate throughput descending, then name ascending so
// equal inputs always produce the same order.
func rankCandidates(cands []candidate) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		amem := a.dev.MemoryGiB * float64(a.count)
		bmem := b.dev.MemoryGiB * float64(b.count)
		if amem != bmem {
			return amem < bmem
		}
		if a.count != b.count {
			return a.count < b.count
		}
		atp := a.dev.ThroughputTPS * float64(a.count)
		btp := b.dev.ThroughputTPS * float64(b.count)
		if atp != btp {
			return atp > btp
		}
		return a.dev.Name < b.dev.Name
	})
}

// configFor materializes a ranked candidate into a result configuration.
func configFor(c candidate, totalMemoryGiB float64) Configuration {
	return Configuration{
		DeviceName:             c.dev.Name,
		DeviceCount:            c.count,
		TotalMemoryGiB:         totalMemoryGiB,
		AggregateMemoryGiB:     round2(c.dev.MemoryGiB * float64(c.count)),
		AggregateThroughputTPS: c.dev.ThroughputTPS * float64(c.count),
	}
}

// SelectDevices picks device configurations satisfying a memory demand and
// an optional throughput demand. When the concurrency-required count is 1
// and any single device suffices, only single-device candidates compete;
// otherwise candidates aggregate linked devices. An infeasible demand
// yields Feasible=false with an empty recommendation, not an error.
func SelectDevices(totalMemoryGiB float64, catalog []DeviceDescriptor, requiredCount int, throughputTPS float64) RecommendationResult {
	if requiredCount < 1 {
		requiredCount = 1
	}
	res := RecommendationResult{
		Alternatives: []Configuration{},
		Diagnostics: Diagnostics{
			TotalVRAMRequiredGiB:  totalMemoryGiB,
			ThroughputRequiredTPS: throughputTPS,
			RequiredDeviceCount:   requiredCount,
		},
	}

	var single, linked []candidate
	seen := make(map[string]bool, len(catalog))
	for _, dev := range catalog {
		if dev.Name == "" || seen[dev.Name] {
			continue
		}
		count, ok := minimumCount(dev, totalMemoryGiB, throughputTPS, requiredCount)
		if !ok {
			continue
		}
		seen[dev.Name] = true
		if count == 1 {
			single = append(single, candidate{dev: dev, count: 1})
		} else {
			linked = append(linked, candidate{dev: dev, count: count})
		}
	}

	pool := single
	if requiredCount > 1 || len(single) == 0 {
		pool = linked
	}
	if len(pool) == 0 {
		return res
	}
	rankCandidates(pool)

	res.Feasible = true
	recommended := configFor(pool[0], totalMemoryGiB)
	res.Recommended = &recommended
	for _, c := range pool[1:] {
		if len(res.Alternatives) == maxAlternatives {
			break
		}
		res.Alternatives = append(res.Alternatives, configFor(c, totalMemoryGiB))
	}
	return res
}
