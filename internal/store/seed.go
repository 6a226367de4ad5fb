package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gpusizer/gpusizer/internal/catalog"
)

// SeedFromFile loads a model catalog file and inserts records for models
// the store does not yet know. Existing records are left untouched, so
// seeding never clobbers hub-resolved data.
func SeedFromFile(ctx context.Context, st Store, path string) (int, error) {
	models, skipped, err := catalog.LoadModels(path)
	if err != nil {
		return 0, fmt.Errorf("seed models: %w", err)
	}
	for _, diag := range skipped {
		log.Warn().Int("index", diag.Index).Str("reason", diag.Reason).
			Msg("skipping malformed model catalog entry")
	}

	seeded := 0
	for _, m := range models {
		existing, err := st.GetModel(ctx, m.Identifier)
		if err != nil {
			return seeded, fmt.Errorf("seed models: %w", err)
		}
		if existing != nil {
			continue
		}
		if err := st.UpsertModel(ctx, FromDescriptor(m)); err != nil {
			return seeded, fmt.Errorf("seed models: %w", err)
		}
		seeded++
	}
	return seeded, nil
}
