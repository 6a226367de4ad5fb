package store

import (
	"time"

	"github.com/gpusizer/gpusizer/internal/sizing"
)

// ModelRecord is one persisted model descriptor row.
type ModelRecord struct {
	ModelID string `json:"model_id"`

	HiddenSize        int `json:"hidden_size,omitempty"`
	NumLayers         int `json:"num_layers,omitempty"`
	NumAttentionHeads int `json:"num_attention_heads,omitempty"`
	NumKeyValueHeads  int `json:"num_key_value_heads,omitempty"`
	IntermediateSize  int `json:"intermediate_size,omitempty"`
	VocabSize         int `json:"vocab_size,omitempty"`
	SeqLen            int `json:"seq_len,omitempty"`
	ByteWidth         int `json:"byte_width,omitempty"`

	ExpertCount                  int `json:"expert_count,omitempty"`
	ExpertsPerToken              int `json:"experts_per_token,omitempty"`
	ExpertIntermediateSize       int `json:"expert_intermediate_size,omitempty"`
	SharedExpertIntermediateSize int `json:"shared_expert_intermediate_size,omitempty"`

	// ParameterCount is the hub-reported safetensors total, informational.
	ParameterCount int64 `json:"parameter_count,omitempty"`

	BaseLatencySeconds  float64 `json:"base_latency_s"`
	WeightFootprintGiB  float64 `json:"weight_footprint_gib"`
	KVCacheGiBPerUser   float64 `json:"kv_cache_gib_per_user"`
	FootprintUnresolved bool    `json:"footprint_unresolved,omitempty"`

	// ConfigJSON is the raw hub config document the record was built from.
	ConfigJSON []byte `json:"-"`

	QueryCount     int64      `json:"query_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Descriptor converts the record into the sizing engine's input shape.
func (r *ModelRecord) Descriptor() sizing.ModelDescriptor {
	return sizing.ModelDescriptor{
		Identifier:                   r.ModelID,
		HiddenSize:                   r.HiddenSize,
		NumLayers:                    r.NumLayers,
		NumAttentionHeads:            r.NumAttentionHeads,
		NumKeyValueHeads:             r.NumKeyValueHeads,
		IntermediateSize:             r.IntermediateSize,
		VocabSize:                    r.VocabSize,
		SeqLen:                       r.SeqLen,
		ByteWidth:                    r.ByteWidth,
		ExpertCount:                  r.ExpertCount,
		ExpertsPerToken:              r.ExpertsPerToken,
		ExpertIntermediateSize:       r.ExpertIntermediateSize,
		SharedExpertIntermediateSize: r.SharedExpertIntermediateSize,
		BaseLatencySeconds:           r.BaseLatencySeconds,
		WeightFootprintGiB:           r.WeightFootprintGiB,
		KVCacheGiBPerUser:            r.KVCacheGiBPerUser,
		FootprintUnresolved:          r.FootprintUnresolved,
	}
}

// FromDescriptor builds a record from a descriptor. Usage counters and
// timestamps are the store's to fill.
func FromDescriptor(m sizing.ModelDescriptor) *ModelRecord {
	return &ModelRecord{
		ModelID:                      m.Identifier,
		HiddenSize:                   m.HiddenSize,
		NumLayers:                    m.NumLayers,
		NumAttentionHeads:            m.NumAttentionHeads,
		NumKeyValueHeads:             m.NumKeyValueHeads,
		IntermediateSize:             m.IntermediateSize,
		VocabSize:                    m.VocabSize,
		SeqLen:                       m.SeqLen,
		ByteWidth:                    m.ByteWidth,
		ExpertCount:                  m.ExpertCount,
		ExpertsPerToken:              m.ExpertsPerToken,
		ExpertIntermediateSize:       m.ExpertIntermediateSize,
		SharedExpertIntermediateSize: m.SharedExpertIntermediateSize,
		BaseLatencySeconds:           m.BaseLatencySeconds,
		WeightFootprintGiB:           m.WeightFootprintGiB,
		KVCacheGiBPerUser:            m.KVCacheGiBPerUser,
		FootprintUnresolved:          m.FootprintUnresolved,
	}
}

// Schema is the DDL for the model record table. cmd/server applies it at
// startup.
const Schema = `
CREATE TABLE IF NOT EXISTS models (
	model_id                        TEXT PRIMARY KEY,
	hidden_size                     INTEGER NOT NULL DEFAULT 0,
	num_layers                      INTEGER NOT NULL DEFAULT 0,
	num_attention_heads             INTEGER NOT NULL DEFAULT 0,
	num_key_value_heads             INTEGER NOT NULL DEFAULT 0,
	intermediate_size               INTEGER NOT NULL DEFAULT 0,
	vocab_size                      INTEGER NOT NULL DEFAULT 0,
	seq_len                         INTEGER NOT NULL DEFAULT 0,
	byte_width                      INTEGER NOT NULL DEFAULT 0,
	expert_count                    INTEGER NOT NULL DEFAULT 0,
	experts_per_token               INTEGER NOT NULL DEFAULT 0,
	expert_intermediate_size        INTEGER NOT NULL DEFAULT 0,
	shared_expert_intermediate_size INTEGER NOT NULL DEFAULT 0,
	parameter_count                 BIGINT NOT NULL DEFAULT 0,
	base_latency_s                  DOUBLE PRECISION NOT NULL DEFAULT 1.0,
	weight_footprint_gib            DOUBLE PRECISION NOT NULL DEFAULT 0,
	kv_cache_gib_per_user           DOUBLE PRECISION NOT NULL DEFAULT 0,
	footprint_unresolved            BOOLEAN NOT NULL DEFAULT FALSE,
	config_json                     JSONB,
	query_count                     BIGINT NOT NULL DEFAULT 0,
	last_accessed_at                TIMESTAMPTZ,
	created_at                      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                      TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
