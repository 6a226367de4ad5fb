package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL-backed model record storage.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with a connection pool.
func NewRepository(ctx context.Context, connString string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Repository{pool: pool}, nil
}

// Close closes the connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// EnsureSchema applies the model table DDL.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// GetModel returns a model record by ID, or nil if not found.
func (r *Repository) GetModel(ctx context.Context, modelID string) (*ModelRecord, error) {
	var rec ModelRecord
	err := r.pool.QueryRow(ctx,
		`SELECT model_id, hidden_size, num_layers, num_attention_heads, num_key_value_heads,
		        intermediate_size, vocab_size, seq_len, byte_width,
		        expert_count, experts_per_token, expert_intermediate_size,
		        shared_expert_intermediate_size, parameter_count,
		        base_latency_s, weight_footprint_gib, kv_cache_gib_per_user,
		        footprint_unresolved, config_json, query_count, last_accessed_at,
		        created_at, updated_at
		 FROM models WHERE model_id = $1`, modelID,
	).Scan(&rec.ModelID, &rec.HiddenSize, &rec.NumLayers, &rec.NumAttentionHeads, &rec.NumKeyValueHeads,
		&rec.IntermediateSize, &rec.VocabSize, &rec.SeqLen, &rec.ByteWidth,
		&rec.ExpertCount, &rec.ExpertsPerToken, &rec.ExpertIntermediateSize,
		&rec.SharedExpertIntermediateSize, &rec.ParameterCount,
		&rec.BaseLatencySeconds, &rec.WeightFootprintGiB, &rec.KVCacheGiBPerUser,
		&rec.FootprintUnresolved, &rec.ConfigJSON, &rec.QueryCount, &rec.LastAccessedAt,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query model: %w", err)
	}
	return &rec, nil
}

// UpsertModel inserts or updates a record keyed by model_id. Usage
// counters and created_at survive updates.
func (r *Repository) UpsertModel(ctx context.Context, rec *ModelRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO models
		   (model_id, hidden_size, num_layers, num_attention_heads, num_key_value_heads,
		    intermediate_size, vocab_size, seq_len, byte_width,
		    expert_count, experts_per_token, expert_intermediate_size,
		    shared_expert_intermediate_size, parameter_count,
		    base_latency_s, weight_footprint_gib, kv_cache_gib_per_user,
		    footprint_unresolved, config_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (model_id) DO UPDATE SET
			hidden_size                     = EXCLUDED.hidden_size,
			num_layers                      = EXCLUDED.num_layers,
			num_attention_heads             = EXCLUDED.num_attention_heads,
			num_key_value_heads             = EXCLUDED.num_key_value_heads,
			intermediate_size               = EXCLUDED.intermediate_size,
			vocab_size                      = EXCLUDED.vocab_size,
			seq_len                         = EXCLUDED.seq_len,
			byte_width                      = EXCLUDED.byte_width,
			expert_count                    = EXCLUDED.expert_count,
			experts_per_token               = EXCLUDED.experts_per_token,
			expert_intermediate_size        = EXCLUDED.expert_intermediate_size,
			shared_expert_intermediate_size = EXCLUDED.shared_expert_intermediate_size,
			parameter_count                 = EXCLUDED.parameter_count,
			base_latency_s                  = EXCLUDED.base_latency_s,
			weight_footprint_gib            = EXCLUDED.weight_footprint_gib,
			kv_cache_gib_per_user           = EXCLUDED.kv_cache_gib_per_user,
			footprint_unresolved            = EXCLUDED.footprint_unresolved,
			config_json                     = EXCLUDED.config_json,
			updated_at                      = now()`,
		rec.ModelID, rec.HiddenSize, rec.NumLayers, rec.NumAttentionHeads, rec.NumKeyValueHeads,
		rec.IntermediateSize, rec.VocabSize, rec.SeqLen, rec.ByteWidth,
		rec.ExpertCount, rec.ExpertsPerToken, rec.ExpertIntermediateSize,
		rec.SharedExpertIntermediateSize, rec.ParameterCount,
		rec.BaseLatencySeconds, rec.WeightFootprintGiB, rec.KVCacheGiBPerUser,
		rec.FootprintUnresolved, rec.ConfigJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert model: %w", err)
	}
	return nil
}

// TouchModel bumps the usage counter and access time of a model. Missing
// models are a no-op.
func (r *Repository) TouchModel(ctx context.Context, modelID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE models SET query_count = query_count + 1, last_accessed_at = now()
		 WHERE model_id = $1`, modelID)
	if err != nil {
		return fmt.Errorf("touch model: %w", err)
	}
	return nil
}

// ListModels returns records ordered by model ID.
func (r *Repository) ListModels(ctx context.Context, limit, offset int) ([]ModelRecord, error) {
	lim := 100
	if limit > 0 && limit <= 500 {
		lim = limit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx,
		`SELECT model_id, hidden_size, num_layers, num_attention_heads, num_key_value_heads,
		        intermediate_size, vocab_size, seq_len, byte_width,
		        expert_count, experts_per_token, expert_intermediate_size,
		        shared_expert_intermediate_size, parameter_count,
		        base_latency_s, weight_footprint_gib, kv_cache_gib_per_user,
		        footprint_unresolved, config_json, query_count, last_accessed_at,
		        created_at, updated_at
		 FROM models ORDER BY model_id LIMIT $1 OFFSET $2`, lim, offset)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()
	return scanModelRows(rows)
}

// SearchModels returns records whose ID contains the query,
// case-insensitive, ordered by model ID.
func (r *Repository) SearchModels(ctx context.Context, query string, limit int) ([]ModelRecord, error) {
	lim := 100
	if limit > 0 && limit <= 500 {
		lim = limit
	}
	rows, err := r.pool.Query(ctx,
		`SELECT model_id, hidden_size, num_layers, num_attention_heads, num_key_value_heads,
		        intermediate_size, vocab_size, seq_len, byte_width,
		        expert_count, experts_per_token, expert_intermediate_size,
		        shared_expert_intermediate_size, parameter_count,
		        base_latency_s, weight_footprint_gib, kv_cache_gib_per_user,
		        footprint_unresolved, config_json, query_count, last_accessed_at,
		        created_at, updated_at
		 FROM models WHERE model_id ILIKE $1 ORDER BY model_id LIMIT $2`,
		"%"+query+"%", lim)
	if err != nil {
		return nil, fmt.Errorf("search models: %w", err)
	}
	defer rows.Close()
	return scanModelRows(rows)
}

// DeleteModel removes a model record.
func (r *Repository) DeleteModel(ctx context.Context, modelID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM models WHERE model_id = $1`, modelID)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanModelRows(rows pgx.Rows) ([]ModelRecord, error) {
	var records []ModelRecord
	for rows.Next() {
		var rec ModelRecord
		err := rows.Scan(&rec.ModelID, &rec.HiddenSize, &rec.NumLayers, &rec.NumAttentionHeads, &rec.NumKeyValueHeads,
			&rec.IntermediateSize, &rec.VocabSize, &rec.SeqLen, &rec.ByteWidth,
			&rec.ExpertCount, &rec.ExpertsPerToken, &rec.ExpertIntermediateSize,
			&rec.SharedExpertIntermediateSize, &rec.ParameterCount,
			&rec.BaseLatencySeconds, &rec.WeightFootprintGiB, &rec.KVCacheGiBPerUser,
			&rec.FootprintUnresolved, &rec.ConfigJSON, &rec.QueryCount, &rec.LastAccessedAt,
			&rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan model row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
