package admin

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/maxpert/marmot-pdm/vbucket"
	"github.com/rs/zerolog/log"
)

// RegistryLookup is the subset of vbucket.Registry the admin surface
// needs: resolve a vbucket ID to its PDM.
type RegistryLookup interface {
	Get(id vbucket.ID) (*vbucket.PassiveDurabilityMonitor, bool)
}

// Handlers serves introspection endpoints for a node's hosted PDMs.
type Handlers struct {
	registry RegistryLookup
}

// NewHandlers creates a new Handlers instance bound to registry.
func NewHandlers(registry RegistryLookup) *Handlers {
	return &Handlers{registry: registry}
}

func (h *Handlers) resolveVBucket(r *http.Request) (*vbucket.PassiveDurabilityMonitor, vbucket.ID, error) {
	idStr := chi.URLParam(r, "id")
	raw, err := strconv.ParseUint(idStr, 10, 16)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid vbucket id %q: %w", idStr, err)
	}

	id := vbucket.ID(raw)
	pdm, ok := h.registry.Get(id)
	if !ok {
		return nil, id, fmt.Errorf("vbucket %d not hosted on this node", id)
	}
	return pdm, id, nil
}

// handleStats serves GET /vbuckets/{id}/stats.
func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	pdm, _, err := h.resolveVBucket(r)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	var captured vbucket.Stats
	pdm.Stats(statCaptureSink{dst: &captured})
	writeJSONResponse(w, captured)
}

// handleTracked serves GET /vbuckets/{id}/tracked.
func (h *Handlers) handleTracked(w http.ResponseWriter, r *http.Request) {
	pdm, id, err := h.resolveVBucket(r)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	views := pdm.TrackedWrites()
	response := make([]map[string]interface{}, 0, len(views))
	for _, v := range views {
		response = append(response, map[string]interface{}{
			"key":     base64.StdEncoding.EncodeToString(v.Key),
			"seqno":   v.BySeqno,
			"level":   v.Level,
			"timeout": v.Timeout,
		})
	}

	writeJSONResponse(w, map[string]interface{}{
		"vbucket_id": id,
		"tracked":    response,
	})
}

// statCaptureSink adapts vbucket.StatsSink to capture a single Stats
// value, since the admin surface is answering for exactly one vbucket
// per request.
type statCaptureSink struct {
	dst *vbucket.Stats
}

func (s statCaptureSink) AddVBucketStats(st vbucket.Stats) {
	*s.dst = st
}

// writeJSONResponse writes a successful JSON response.
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("admin: failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response.
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Error().Err(err).Msg("admin: failed to encode error response")
	}
}
