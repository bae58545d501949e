package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"exotransit/internal/common"
	"exotransit/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMetrics struct {
	mu                       sync.Mutex
	requests, failures, hits int
}

func (m *mockMetrics) ArchiveRequestInc()  { m.mu.Lock(); m.requests++; m.mu.Unlock() }
func (m *mockMetrics) ArchiveFailureInc()  { m.mu.Lock(); m.failures++; m.mu.Unlock() }
func (m *mockMetrics) ArchiveCacheHitInc() { m.mu.Lock(); m.hits++; m.mu.Unlock() }

const keplerRows = `[{"pl_name":"Kepler-10 b","hostname":"Kepler-10","pl_orbper":0.837,"pl_tranflag":1,"pl_rade":1.47,"default_flag":1}]`

func newTAPServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()
	calls := &atomic.Int32{}
	lastQuery := &atomic.Value{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		lastQuery.Store(r.URL.Query().Get("query"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, calls, lastQuery
}

func newTestClient(t *testing.T, url string, store Cache, m Metrics) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url, Timeout: 2 * time.Second, CacheTTL: time.Hour, CacheSize: 8}, store, m)
	require.NoError(t, err)
	return c
}

func TestSanitizeStarID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Kepler-10", "Kepler 10"},
		{"  TIC-123 ", "TIC 123"},
		{"x' OR '1'='1", "x OR 1=1"},
		{`"quoted"`, "quoted"},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeStarID(tt.in), tt.in)
	}
}

func TestBuildQuery(t *testing.T) {
	q := buildQuery("Kepler 10")
	assert.Contains(t, q, "LIKE '%KEPLER 10%'")
	assert.Contains(t, q, "default_flag = 1")
	assert.Contains(t, q, "ORDER BY disc_year DESC")
	assert.True(t, strings.HasPrefix(q, "SELECT TOP 1 "))
}

func TestParseRows(t *testing.T) {
	info, err := parseRows([]byte(keplerRows))
	require.NoError(t, err)
	assert.Equal(t, "Kepler-10 b", info["pl_name"])
	assert.Equal(t, 1, intField(info, "pl_tranflag"))

	info, err = parseRows([]byte(`{"columns":[{"name":"pl_name"},{"name":"pl_orbper"}],"data":[["HD 209458 b","3.52"]]}`))
	require.NoError(t, err)
	assert.Equal(t, "HD 209458 b", info["pl_name"])
	assert.InDelta(t, 3.52, floatField(info, "pl_orbper"), 1e-12)

	info, err = parseRows([]byte(`[]`))
	require.NoError(t, err)
	assert.Nil(t, info)

	_, err = parseRows([]byte(`<html>`))
	assert.Error(t, err)
}

func TestFetchStar_Found(t *testing.T) {
	srv, calls, lastQuery := newTAPServer(t, http.StatusOK, keplerRows)
	m := &mockMetrics{}
	c := newTestClient(t, srv.URL, nil, m)

	data, err := c.FetchStar(context.Background(), "Kepler-10")
	require.NoError(t, err)

	assert.Equal(t, "Kepler-10", data.StarID)
	assert.Equal(t, common.SourceArchive, data.Source)
	assert.Equal(t, "Kepler-10 b", data.Info["pl_name"])
	assert.Equal(t, 1500, data.LightCurve.Len())
	require.NoError(t, data.LightCurve.Validate())
	assert.Contains(t, lastQuery.Load().(string), "KEPLER 10")

	// second lookup is served from memory
	again, err := c.FetchStar(context.Background(), "kepler-10")
	require.NoError(t, err)
	assert.Equal(t, data.LightCurve, again.LightCurve)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 2, m.requests)
	assert.Equal(t, 1, m.hits)
}

func TestFetchStar_NotFoundFallsBackToMock(t *testing.T) {
	srv, _, _ := newTAPServer(t, http.StatusOK, `[]`)
	m := &mockMetrics{}
	c := newTestClient(t, srv.URL, nil, m)

	data, err := c.FetchStar(context.Background(), "TIC-987654321")
	require.NoError(t, err)
	assert.Equal(t, common.SourceMock, data.Source)
	assert.Equal(t, "TIC", data.Info["hostname"])
	assert.Equal(t, common.SourceMockStar, data.Info["source"])
	assert.Equal(t, 0, m.failures)
}

func TestFetchStar_ServerErrorFallsBackToMock(t *testing.T) {
	srv, _, _ := newTAPServer(t, http.StatusInternalServerError, "boom")
	m := &mockMetrics{}
	c := newTestClient(t, srv.URL, nil, m)

	data, err := c.FetchStar(context.Background(), "KIC-8462852")
	require.NoError(t, err)
	assert.Equal(t, common.SourceMock, data.Source)
	assert.Equal(t, 1, m.failures)
}

func TestFetchStar_MockIsReproducible(t *testing.T) {
	srv, _, _ := newTAPServer(t, http.StatusServiceUnavailable, "")
	c := newTestClient(t, srv.URL, nil, nil)

	a, err := c.FetchStar(context.Background(), "KIC-9941662")
	require.NoError(t, err)
	b, err := c.FetchStar(context.Background(), "KIC-9941662")
	require.NoError(t, err)
	assert.Equal(t, a.LightCurve, b.LightCurve)

	other, err := c.FetchStar(context.Background(), "KIC-11446443")
	require.NoError(t, err)
	assert.NotEqual(t, a.LightCurve.Flux, other.LightCurve.Flux)
}

func TestFetchStar_EmptyID(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1", nil, nil)
	_, err := c.FetchStar(context.Background(), "  - ")
	assert.ErrorIs(t, err, ErrEmptyStarID)
}

func TestFetchStar_CanceledContext(t *testing.T) {
	srv, _, _ := newTAPServer(t, http.StatusOK, keplerRows)
	c := newTestClient(t, srv.URL, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchStar(ctx, "Kepler-10")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchStar_PersistentCache(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	srv, calls, _ := newTAPServer(t, http.StatusOK, keplerRows)
	first := newTestClient(t, srv.URL, store, nil)
	data, err := first.FetchStar(context.Background(), "Kepler-10")
	require.NoError(t, err)

	// a fresh client has an empty LRU and must hit bbolt
	m := &mockMetrics{}
	second := newTestClient(t, srv.URL, store, m)
	again, err := second.FetchStar(context.Background(), "Kepler-10")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, m.hits)
	assert.Equal(t, data.LightCurve.Flux, again.LightCurve.Flux)
	assert.Equal(t, common.SourceArchive, again.Source)
}

func TestFetchStar_MockNotCached(t *testing.T) {
	srv, calls, _ := newTAPServer(t, http.StatusBadGateway, "")
	c := newTestClient(t, srv.URL, nil, nil)

	_, err := c.FetchStar(context.Background(), "Kepler-22")
	require.NoError(t, err)
	_, err = c.FetchStar(context.Background(), "Kepler-22")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
