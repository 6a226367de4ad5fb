package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gpusizer/gpusizer/internal/catalog"
	"github.com/gpusizer/gpusizer/internal/hub"
	"github.com/gpusizer/gpusizer/internal/resolver"
	"github.com/gpusizer/gpusizer/internal/sizing"
	"github.com/gpusizer/gpusizer/internal/store"
)

// ModelResolver is the subset of the resolver the handlers need.
type ModelResolver interface {
	Resolve(ctx context.Context, identifier string, forceRecompute bool) (sizing.ModelDescriptor, error)
}

var _ ModelResolver = (*resolver.Resolver)(nil)

// Server holds dependencies for API handlers.
type Server struct {
	store    store.Store
	resolver ModelResolver
	devices  *catalog.Store
}

// NewServer creates a new API server.
func NewServer(st store.Store, res ModelResolver, devices *catalog.Store) *Server {
	return &Server{
		store:    st,
		resolver: res,
		devices:  devices,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/models", s.handleListModels)
	mux.HandleFunc("GET /api/v1/models/{id...}", s.handleGetModel)
	mux.HandleFunc("DELETE /api/v1/models/{id...}", s.handleDeleteModel)
	mux.HandleFunc("GET /api/v1/devices", s.handleListDevices)
	mux.HandleFunc("POST /api/v1/devices/reload", s.handleReloadDevices)
	mux.HandleFunc("POST /api/v1/recommend", s.handleRecommend)
}

// RecommendRequest is the body of POST /api/v1/recommend.
type RecommendRequest struct {
	Model              string  `json:"model"`
	Users              int     `json:"users"`
	LatencyTargetMs    float64 `json:"latency_target_ms"`
	KVCacheOverrideGiB float64 `json:"kv_cache_override_gib,omitempty"`
	ThroughputRequired float64 `json:"throughput_required,omitempty"`
	ActiveExpertsOnly  bool    `json:"active_experts_only,omitempty"`
	ForceRecompute     bool    `json:"force_recompute,omitempty"`
}

// RecommendResponse wraps a recommendation result with its request ID.
type RecommendResponse struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	sizing.RecommendationResult
}

// DeviceList is the body of GET /api/v1/devices.
type DeviceList struct {
	Devices        []sizing.DeviceDescriptor `json:"devices"`
	SkippedEntries int                       `json:"skipped_entries,omitempty"`
	Source         string                    `json:"source,omitempty"`
	LoadedAt       time.Time                 `json:"loaded_at"`
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := 0, 0
	if v := q.Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	if v := q.Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &offset)
	}

	ctx := r.Context()
	var (
		records []store.ModelRecord
		err     error
	)
	if query := q.Get("q"); query != "" {
		records, err = s.store.SearchModels(ctx, query, limit)
	} else {
		records, err = s.store.ListModels(ctx, limit, offset)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "model query failed")
		return
	}
	if records == nil {
		records = []store.ModelRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	force := r.URL.Query().Get("force") == "true"

	m, err := s.resolver.Resolve(r.Context(), id, force)
	if err != nil {
		writeResolveError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteModel(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("model %s not found", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "delete model failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, deviceList(s.devices.Snapshot()))
}

func (s *Server) handleReloadDevices(w http.ResponseWriter, r *http.Request) {
	if err := s.devices.Load(); err != nil {
		log.Error().Err(err).Msg("device catalog reload failed")
		writeError(w, http.StatusInternalServerError, "catalog reload failed")
		return
	}
	writeJSON(w, http.StatusOK, deviceList(s.devices.Snapshot()))
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	ctx := r.Context()
	reqID := uuid.New().String()

	model, err := s.resolver.Resolve(ctx, req.Model, req.ForceRecompute)
	if err != nil {
		writeResolveError(w, req.Model, err)
		return
	}

	result, err := sizing.Recommend(model, req.Users, req.LatencyTargetMs, s.devices.Devices(), sizing.RecommendOptions{
		KVCacheOverrideGiB:    req.KVCacheOverrideGiB,
		ThroughputRequiredTPS: req.ThroughputRequired,
		ActiveExpertsOnly:     req.ActiveExpertsOnly,
	})
	if err != nil {
		switch {
		case errors.Is(err, sizing.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, sizing.ErrInvalidTarget), errors.Is(err, sizing.ErrUnresolvable):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "recommendation failed")
		}
		return
	}

	log.Info().
		Str("request_id", reqID).
		Str("model", model.Identifier).
		Int("users", req.Users).
		Float64("latency_target_ms", req.LatencyTargetMs).
		Bool("feasible", result.Feasible).
		Msg("recommendation served")

	writeJSON(w, http.StatusOK, RecommendResponse{
		RequestID:            reqID,
		Model:                model.Identifier,
		RecommendationResult: result,
	})
}

func deviceList(snap *catalog.Snapshot) DeviceList {
	devices := snap.Devices
	if devices == nil {
		devices = []sizing.DeviceDescriptor{}
	}
	return DeviceList{
		Devices:        devices,
		SkippedEntries: len(snap.Skipped),
		Source:         snap.Source,
		LoadedAt:       snap.LoadedAt,
	}
}

func writeResolveError(w http.ResponseWriter, id string, err error) {
	var hubErr *hub.Error
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("model %s not found", id))
	case errors.As(err, &hubErr):
		writeError(w, http.StatusBadGateway, hubErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, "resolve model failed")
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
