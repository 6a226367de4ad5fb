// Package resolver turns model identifiers into sizing descriptors,
// caching hub lookups in the record store.
package resolver

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/gpusizer/gpusizer/internal/hub"
	"github.com/gpusizer/gpusizer/internal/sizing"
	"github.com/gpusizer/gpusizer/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HubClient is the subset of the hub client the resolver needs.
type HubClient interface {
	FetchModelConfig(ctx context.Context, modelID string) (sizing.ArchConfig, *hub.ModelInfo, error)
}

// Resolver resolves model identifiers through the store with hub fallback.
type Resolver struct {
	store store.Store
	hub   HubClient
	group singleflight.Group
}

// New creates a resolver over the given store and hub client.
func New(st store.Store, hc HubClient) *Resolver {
	return &Resolver{store: st, hub: hc}
}

// Resolve returns the descriptor for a model identifier. Store hits are
// served directly; misses, forced recomputes, and records flagged
// unresolved go through the hub. Concurrent resolutions of the same
// identifier share a single flight.
func (r *Resolver) Resolve(ctx context.Context, identifier string, forceRecompute bool) (sizing.ModelDescriptor, error) {
	if !forceRecompute {
		rec, err := r.store.GetModel(ctx, identifier)
		if err != nil {
			return sizing.ModelDescriptor{}, fmt.Errorf("resolve %s: %w", identifier, err)
		}
		if rec != nil && !rec.FootprintUnresolved {
			if err := r.store.TouchModel(ctx, identifier); err != nil {
				log.Warn().Err(err).Str("model", identifier).Msg("touch model failed")
			}
			return rec.Descriptor(), nil
		}
	}

	v, err, _ := r.group.Do(identifier, func() (any, error) {
		return r.fetchAndStore(ctx, identifier)
	})
	if err != nil {
		return sizing.ModelDescriptor{}, err
	}
	return v.(sizing.ModelDescriptor), nil
}

// fetchAndStore fetches the architecture config from the hub, runs both
// estimators, and upserts the resulting record.
func (r *Resolver) fetchAndStore(ctx context.Context, identifier string) (sizing.ModelDescriptor, error) {
	cfg, info, err := r.hub.FetchModelConfig(ctx, identifier)
	if err != nil {
		var hubErr *hub.Error
		if errors.As(err, &hubErr) && hubErr.NotFound() {
			// A stale stored record still beats a not-found.
			rec, getErr := r.store.GetModel(ctx, identifier)
			if getErr == nil && rec != nil {
				return rec.Descriptor(), nil
			}
			return sizing.ModelDescriptor{}, fmt.Errorf("resolve %s: %w", identifier, store.ErrNotFound)
		}
		return sizing.ModelDescriptor{}, fmt.Errorf("resolve %s: %w", identifier, err)
	}

	m := sizing.ParseArchConfig(identifier, cfg)
	weight, wok := sizing.EstimateWeightFootprint(m, sizing.WeightOptions{})
	if wok {
		m.WeightFootprintGiB = weight
	}
	kv, kok := sizing.EstimateModelKVCache(m)
	if kok {
		m.KVCacheGiBPerUser = kv
	}
	m.FootprintUnresolved = !wok || !kok

	rec := store.FromDescriptor(m)
	if info != nil {
		rec.ParameterCount = info.ParameterCount
	}
	if raw, err := json.Marshal(cfg); err == nil {
		rec.ConfigJSON = raw
	}
	if err := r.store.UpsertModel(ctx, rec); err != nil {
		return sizing.ModelDescriptor{}, fmt.Errorf("resolve %s: %w", identifier, err)
	}

	log.Info().
		Str("model", identifier).
		Float64("weight_gib", m.WeightFootprintGiB).
		Float64("kv_gib_per_user", m.KVCacheGiBPerUser).
		Bool("unresolved", m.FootprintUnresolved).
		Msg("resolved model from hub")
	return m, nil
}
