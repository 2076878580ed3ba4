package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"audio-trends-service/internal/app/service"
	"audio-trends-service/internal/domain"
	"audio-trends-service/internal/ratelimit"
	"audio-trends-service/internal/transport/httpserver/dto"
	"audio-trends-service/internal/validator"
)

const adminToken = "admin-token"

// stubSource is a TrendSource returning canned items or an error.
type stubSource struct {
	mu      sync.Mutex
	items   []domain.TrendItem
	err     error
	cleared []string
}

func (s *stubSource) FetchTrends(context.Context, domain.FetchOptions) ([]domain.TrendItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items, s.err
}

func (s *stubSource) BreakerStates() []domain.BreakerState {
	return []domain.BreakerState{
		{Name: "proxy_grid", State: "closed"},
		{Name: "renderer", State: "open", IsOpen: true, FailureCount: 5, TimeUntilReset: 30 * time.Second},
	}
}

func (s *stubSource) ClearCache(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, pattern)
	return 2
}

func (s *stubSource) CacheStats() domain.CacheStats {
	return domain.CacheStats{Size: 1, Keys: []string{"tiktok-trends-default"}}
}

// memoryRepo is an in-memory TrendRepository.
type memoryRepo struct {
	mu      sync.Mutex
	trends  map[string]*domain.AudioTrend
	history []domain.HistoryRow
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{trends: make(map[string]*domain.AudioTrend)}
}

func (r *memoryRepo) UpsertTrends(_ context.Context, trends []*domain.AudioTrend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range trends {
		r.trends[t.ID] = t
	}
	return nil
}

func (r *memoryRepo) AppendHistory(_ context.Context, rows []domain.HistoryRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, rows...)
	return nil
}

func (r *memoryRepo) SaveSnapshot(ctx context.Context, trends []*domain.AudioTrend, rows []domain.HistoryRow) error {
	if err := r.UpsertTrends(ctx, trends); err != nil {
		return err
	}
	return r.AppendHistory(ctx, rows)
}

func (r *memoryRepo) LatestHistory(_ context.Context, ids []string) (map[string]domain.HistoryRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	latest := make(map[string]domain.HistoryRow)
	for _, row := range r.history {
		for _, id := range ids {
			if row.ID == id {
				latest[id] = row
			}
		}
	}
	return latest, nil
}

func (r *memoryRepo) ListTop(_ context.Context, params domain.ListParams) ([]*domain.AudioTrend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AudioTrend, 0, len(r.trends))
	for _, t := range r.trends {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	if params.Offset >= len(out) {
		return []*domain.AudioTrend{}, nil
	}
	out = out[params.Offset:]
	if len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.AudioTrend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trends[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

func (r *memoryRepo) History(_ context.Context, id string, limit int) ([]domain.HistoryRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.HistoryRow
	for i := len(r.history) - 1; i >= 0 && len(out) < limit; i-- {
		if r.history[i].ID == id {
			out = append(out, r.history[i])
		}
	}
	return out, nil
}

func (r *memoryRepo) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.trends)), nil
}

type testServer struct {
	app    *fiber.App
	source *stubSource
	repo   *memoryRepo
}

func newTestServer(t *testing.T, presets map[string]ratelimit.Config) *testServer {
	t.Helper()

	source := &stubSource{items: []domain.TrendItem{
		{ID: "111", Rank: 1, Title: "First", Author: "A", PlayCount: 1000},
		{ID: "222", Rank: 2, Title: "Second", Author: "B", PlayCount: 500},
	}}
	repo := newMemoryRepo()

	var limiters *ratelimit.Registry
	if presets != nil {
		var err error
		limiters, err = ratelimit.NewRegistry(presets, ratelimit.NewMemoryStore())
		require.NoError(t, err)
	}

	srv := NewServer(
		ServerConfig{AdminToken: adminToken},
		Deps{
			Trends:    service.NewTrendService(source, repo, zap.NewNop()),
			Source:    source,
			Limiters:  limiters,
			Validator: validator.New(),
		},
		zap.NewNop(),
	)

	return &testServer{app: srv.App, source: source, repo: repo}
}

func (s *testServer) do(t *testing.T, method, path string, admin bool) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if admin {
		req.Header.Set("Authorization", "Bearer "+adminToken)
	}

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, body
}

func TestTrends_Live(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, "GET", "/api/v1/trends?limit=1", false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got dto.TrendsResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Available)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "111", got.Items[0].ID)
}

func TestTrends_UpstreamDownDegrades(t *testing.T) {
	s := newTestServer(t, nil)
	s.source.err = &domain.UpstreamUnavailableError{Dependency: "proxy_grid", RetryIn: time.Minute}

	resp, body := s.do(t, "GET", "/api/v1/trends", false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var got dto.TrendsResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.False(t, got.Available)
	assert.Empty(t, got.Items)
	assert.NotEmpty(t, got.Message)
}

func TestTrends_InvalidLimit(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, "GET", "/api/v1/trends?limit=1000", false)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var got dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "VALIDATION_ERROR", got.Code)
}

func TestRefreshThenReadStoredAudio(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, "POST", "/api/v1/admin/refresh", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var refreshed dto.RefreshResponse
	require.NoError(t, json.Unmarshal(body, &refreshed))
	assert.Equal(t, 2, refreshed.Count)
	assert.Equal(t, 2, refreshed.NewEntries)

	resp, body = s.do(t, "GET", "/api/v1/audio?limit=10", false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var list dto.AudioListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, "111", list.Items[0].ID)
	assert.InDelta(t, domain.NewEntryGrowth, list.Items[0].GrowthRate, 1e-9)

	resp, body = s.do(t, "GET", "/api/v1/audio/222", false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var detail dto.AudioDetailResponse
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "Second", detail.Title)
	require.Len(t, detail.History, 1)
	require.NotNil(t, detail.History[0].Rank)
	assert.Equal(t, 2, *detail.History[0].Rank)

	resp, body = s.do(t, "GET", "/api/v1/audio/222/history?limit=5", false)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var history dto.HistoryResponse
	require.NoError(t, json.Unmarshal(body, &history))
	assert.Equal(t, "222", history.ID)
	assert.Len(t, history.History, 1)
}

func TestGetAudio_NotFoundAndInvalid(t *testing.T) {
	s := newTestServer(t, nil)

	resp, _ := s.do(t, "GET", "/api/v1/audio/999", false)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, "GET", "/api/v1/audio/bad%20id", false)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAdmin_RequiresToken(t *testing.T) {
	s := newTestServer(t, nil)

	resp, _ := s.do(t, "GET", "/api/v1/admin/breakers", false)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdmin_RefreshUpstreamDown(t *testing.T) {
	s := newTestServer(t, nil)
	s.source.err = &domain.UpstreamRequestFailedError{Attempts: 4, Err: io.ErrUnexpectedEOF}

	resp, body := s.do(t, "POST", "/api/v1/admin/refresh", true)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var got dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", got.Code)
}

func TestAdmin_Diagnostics(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, "GET", "/api/v1/admin/breakers", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var breakers struct {
		Breakers []dto.BreakerResponse `json:"breakers"`
	}
	require.NoError(t, json.Unmarshal(body, &breakers))
	require.Len(t, breakers.Breakers, 2)
	assert.Equal(t, "renderer", breakers.Breakers[1].Name)
	assert.True(t, breakers.Breakers[1].IsOpen)
	assert.Equal(t, "30s", breakers.Breakers[1].TimeUntilReset)

	resp, body = s.do(t, "GET", "/api/v1/admin/cache", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats domain.CacheStats
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats.Size)

	resp, body = s.do(t, "DELETE", "/api/v1/admin/cache?pattern=tiktok", true)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var cleared dto.ClearCacheResponse
	require.NoError(t, json.Unmarshal(body, &cleared))
	assert.Equal(t, 2, cleared.Removed)
	assert.Equal(t, []string{"tiktok"}, s.source.cleared)
}

func TestRateLimitedRoutes(t *testing.T) {
	presets := ratelimit.DefaultPresets()
	trends := presets[ratelimit.PresetTrends]
	trends.Max = 1
	presets[ratelimit.PresetTrends] = trends

	s := newTestServer(t, presets)

	resp, _ := s.do(t, "GET", "/api/v1/trends", false)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	resp, body := s.do(t, "GET", "/api/v1/trends", false)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	var got dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "RATE_LIMITED", got.Code)

	// Other presets count separately
	resp, _ = s.do(t, "GET", "/api/v1/audio", false)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The operator can lift the limit
	resp, _ = s.do(t, "DELETE", "/api/v1/admin/ratelimit/trends/ip:0.0.0.0", true)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, "GET", "/api/v1/trends", false)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestResetRateLimit_UnknownPreset(t *testing.T) {
	s := newTestServer(t, ratelimit.DefaultPresets())

	resp, _ := s.do(t, "DELETE", "/api/v1/admin/ratelimit/nope/ip:1.2.3.4", true)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, "GET", "/nope", false)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var got dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "NOT_FOUND", got.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	resp, body := s.do(t, "GET", "/metrics", false)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}
