package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/maxpert/marmot-pdm/durability"
	"github.com/maxpert/marmot-pdm/vbucket"
)

type fakeHandle struct {
	id vbucket.ID
}

func (f fakeHandle) ID() vbucket.ID           { return f.id }
func (f fakeHandle) State() string            { return "replica" }
func (f fakeHandle) PersistenceSeqno() int64  { return 0 }
func (f fakeHandle) SendSeqnoAck(seqno int64) {}

type fakeRegistry struct {
	pdms map[vbucket.ID]*vbucket.PassiveDurabilityMonitor
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{pdms: map[vbucket.ID]*vbucket.PassiveDurabilityMonitor{}}
}

func (r *fakeRegistry) Get(id vbucket.ID) (*vbucket.PassiveDurabilityMonitor, bool) {
	pdm, ok := r.pdms[id]
	return pdm, ok
}

func newRouter(h *Handlers) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/vbuckets/{id}/stats", h.handleStats)
	r.Get("/vbuckets/{id}/tracked", h.handleTracked)
	return r
}

func TestHandleStats_UnknownVBucketIs404(t *testing.T) {
	t.Parallel()

	h := NewHandlers(newFakeRegistry())
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/vbuckets/9/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStats_MalformedIDIs404(t *testing.T) {
	t.Parallel()

	h := NewHandlers(newFakeRegistry())
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/vbuckets/not-a-number/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleStats_ReportsCounters(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry()
	pdm := vbucket.New(fakeHandle{id: 2})
	require.NoError(t, pdm.AddSyncWrite(&durability.TrackedWrite{
		Key: []byte("k"), BySeqno: 1, Level: durability.LevelMajority, Timeout: time.Second,
	}))
	reg.pdms[2] = pdm

	h := NewHandlers(reg)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/vbuckets/2/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got vbucket.Stats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, vbucket.ID(2), got.VBucketID)
	require.Equal(t, 1, got.NumTracked)
}

func TestHandleTracked_EncodesKeysAsBase64(t *testing.T) {
	t.Parallel()

	reg := newFakeRegistry()
	pdm := vbucket.New(fakeHandle{id: 4})
	require.NoError(t, pdm.AddSyncWrite(&durability.TrackedWrite{
		Key: []byte("order-42"), BySeqno: 7, Level: durability.LevelMajority, Timeout: time.Second,
	}))
	reg.pdms[4] = pdm

	h := NewHandlers(reg)
	router := newRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/vbuckets/4/tracked", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		VBucketID vbucket.ID               `json:"vbucket_id"`
		Tracked   []map[string]interface{} `json:"tracked"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, vbucket.ID(4), body.VBucketID)
	require.Len(t, body.Tracked, 1)
	require.Equal(t, "b3JkZXItNDI=", body.Tracked[0]["key"])
}
