package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/annel0/hexy-web/internal/cache"
	"github.com/annel0/hexy-web/internal/config"
	"github.com/annel0/hexy-web/internal/hexy"
	"github.com/annel0/hexy-web/internal/logging"
	"github.com/annel0/hexy-web/internal/render"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.SetLogDir("")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// failingCache имитирует недоступный Redis
type failingCache struct{ *cache.MemoryCache }

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, assert.AnError
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return assert.AnError
}

func newTestSettings(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	pages := map[string]string{
		"index.html":           "<html>home</html>",
		"favicon.ico":          "ico",
		"csv_mfr/csv_mfr.html": "<html>csv</html>",
		"hexy/hexy.html":       "<html>hexy</html>",
		"hexy/hexy.js":         "// hexy",
	}
	for name, body := range pages {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}

	settings := config.Default()
	settings.Web.PublicDir = dir
	settings.Hexy.MaxSize = 10
	return settings
}

func newTestServer(t *testing.T, settings *config.Config, repo cache.CacheRepo) (*RestServer, *prometheus.Registry) {
	t.Helper()

	// Новый регистр для изоляции тестов
	registry := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = registry

	renderer, err := render.New(render.Options{Palette: settings.Hexy.Palette, EmptyGlyph: settings.Hexy.EmptyGlyph})
	require.NoError(t, err)

	return NewRestServer(Config{Settings: settings, Renderer: renderer, Cache: repo}), registry
}

func doRequest(rs *RestServer, method, target string, body *strings.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	rs.Router().ServeHTTP(w, req)
	return w
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.Metric {
			for _, lp := range m.Label {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestRestServer_Pages(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	tests := []struct {
		path string
		body string
	}{
		{"/", "home"},
		{"/csv_mfr/", "csv"},
		{"/hexy/", "hexy"},
		{"/public/hexy/hexy.js", "// hexy"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := doRequest(rs, "GET", tt.path, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}

	w := doRequest(rs, "GET", "/public/missing.js", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRestServer_Favicon(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	w := doRequest(rs, "GET", "/favicon.ico", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/public/favicon.ico", w.Header().Get("Location"))
}

func TestRestServer_Navbar(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	w := doRequest(rs, "GET", "/navbar/hexy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `<a class="nav_link active" href="/hexy/">Hexy</a>`)
	assert.Equal(t, 1, strings.Count(w.Body.String(), "nav_link active"))
}

func TestRestServer_GetBoard(t *testing.T) {
	rs, registry := newTestServer(t, newTestSettings(t), nil)

	w := doRequest(rs, "GET", "/hexy/get_board?size=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, `<div class="hex_grid" data-size="4">`))
	assert.Equal(t, int(hexy.HexCount(4)), strings.Count(body, `class="hexagon"`))
	assert.Equal(t, int(hexy.RowCount(4)), strings.Count(body, `class="hex_row"`))

	// Повторный запрос отдаётся из кеша и совпадает побайтно
	w2 := doRequest(rs, "GET", "/hexy/get_board?size=4", nil)
	require.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, body, w2.Body.String())

	assert.Equal(t, float64(1), counterValue(t, registry, "hexy_web_board_builds_total", map[string]string{"source": "render"}))
	assert.Equal(t, float64(1), counterValue(t, registry, "hexy_web_board_builds_total", map[string]string{"source": "cache"}))
}

func TestRestServer_GetBoard_Rejected(t *testing.T) {
	rs, registry := newTestServer(t, newTestSettings(t), nil)

	for _, q := range []string{"", "?size=", "?size=0", "?size=abc", "?size=-1", "?size=11", "?size=99999999999"} {
		t.Run(q, func(t *testing.T) {
			w := doRequest(rs, "GET", "/hexy/get_board"+q, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.NotContains(t, w.Body.String(), "hex_grid")
		})
	}

	assert.Equal(t, float64(7), counterValue(t, registry, "hexy_web_board_rejected_total", nil))
}

func TestRestServer_GetBoard_CacheUnavailable(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), failingCache{cache.NewMemoryCache(1)})

	w := doRequest(rs, "GET", "/hexy/get_board?size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, strings.Count(w.Body.String(), `class="hexagon"`))
}

func TestRestServer_GetBoard_Gzip(t *testing.T) {
	settings := newTestSettings(t)
	settings.Web.Gzip = true
	rs, _ := newTestServer(t, settings, nil)

	req := httptest.NewRequest("GET", "/hexy/get_board?size=5", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	rs.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestRestServer_APIBoard(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	w := doRequest(rs, "GET", "/api/hexy/board?size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var resp struct {
		Success bool          `json:"success"`
		Data    BoardResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, uint(2), resp.Data.Size)
	assert.Equal(t, 5, resp.Data.RowCount)
	assert.Equal(t, 7, resp.Data.HexCount)
	require.Len(t, resp.Data.Rows, 5)
	assert.Equal(t, CellResponse{GridID: hexy.GridID{X: 0, Y: 0}, HexID: hexy.HexID{X: 1, Y: 1}}, resp.Data.Rows[0][0])
	assert.Equal(t, hexy.HexID{X: 3, Y: 3}, resp.Data.Rows[4][0].HexID)
}

func TestRestServer_APIBoard_Invalid(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	for _, q := range []string{"", "?size=0", "?size=x", "?size=11"} {
		w := doRequest(rs, "GET", "/api/hexy/board"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)

		var resp GenericResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.NotEmpty(t, resp.Message)
	}
}

func TestRestServer_APICount(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	w := doRequest(rs, "GET", "/api/hexy/count?size=4", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    CountResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CountResponse{Size: 4, RowCount: 13, HexCount: 37}, resp.Data)

	w = doRequest(rs, "GET", "/api/hexy/count?size=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRestServer_APIHex(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	lookup := func(t *testing.T, query string) (int, GenericResponse, HexResponse) {
		t.Helper()
		w := doRequest(rs, "GET", "/api/hexy/hex?"+query, nil)
		var resp struct {
			GenericResponse
			Data HexResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return w.Code, resp.GenericResponse, resp.Data
	}

	t.Run("по координатам гекса", func(t *testing.T) {
		code, resp, hex := lookup(t, "size=4&x=2&y=1")
		require.Equal(t, http.StatusOK, code)
		assert.True(t, resp.Success)
		assert.Equal(t, HexResponse{GridID: hexy.GridID{X: 0, Y: 1}, HexID: hexy.HexID{X: 2, Y: 1}, Free: true}, hex)
	})

	t.Run("по позиции в хранилище", func(t *testing.T) {
		code, _, hex := lookup(t, "size=4&x=2&y=4&by=grid")
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, hexy.HexID{X: 2, Y: 4}, hex.HexID)
	})

	t.Run("клетки нет на доске", func(t *testing.T) {
		for _, q := range []string{"size=4&x=9&y=9", "size=4&x=3&y=0&by=grid"} {
			code, resp, _ := lookup(t, q)
			assert.Equal(t, http.StatusNotFound, code, q)
			assert.Equal(t, hexy.ErrUnknownHex.Error(), resp.Message)
		}
	})

	t.Run("некорректный запрос", func(t *testing.T) {
		for _, q := range []string{"size=0&x=1&y=1", "size=4&y=1", "size=4&x=-1&y=1", "size=4&x=1&y=1&by=row"} {
			code, resp, _ := lookup(t, q)
			assert.Equal(t, http.StatusBadRequest, code, q)
			assert.False(t, resp.Success)
		}
	})
}

func TestRestServer_APIPreflight(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	w := doRequest(rs, "OPTIONS", "/api/hexy/count", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRestServer_PipelineStage(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	w := doRequest(rs, "GET", "/csv_mfr/get_pipeline_stage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, strings.Count(w.Body.String(), "<option "))
}

func TestRestServer_AddStage(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	form := url.Values{"stage_type": {"Map"}}
	w := doRequest(rs, "POST", "/csv_mfr/add_stage", strings.NewReader(form.Encode()))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `<textarea id="map"></textarea>`, w.Body.String())

	for _, bad := range []url.Values{{}, {"stage_type": {"sort"}}} {
		w = doRequest(rs, "POST", "/csv_mfr/add_stage", strings.NewReader(bad.Encode()))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestRestServer_StatsAndHealth(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)
	doRequest(rs, "GET", "/hexy/get_board?size=3", nil)

	w := doRequest(rs, "GET", "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Success bool `json:"success"`
		Data    struct {
			Server     ServerSnapshot     `json:"server"`
			BoardCache cache.CacheMetrics `json:"board_cache"`
			MaxSize    uint               `json:"max_size"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.True(t, stats.Success)
	assert.Equal(t, "memory", stats.Data.BoardCache.Backend)
	assert.Equal(t, int64(1), stats.Data.BoardCache.TotalKeys)
	assert.Equal(t, uint(10), stats.Data.MaxSize)
	assert.Greater(t, stats.Data.Server.Goroutines, 0)

	w = doRequest(rs, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRestServer_HealthWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	repo, err := cache.NewRedisCache(cache.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer repo.Close()

	rs, _ := newTestServer(t, newTestSettings(t), repo)

	before := mr.CommandCount()
	for i := 0; i < 3; i++ {
		w := doRequest(rs, "GET", "/health", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"cache":"redis"`)
	}
	assert.Equal(t, before, mr.CommandCount(), "health check must not query Redis")

	w := doRequest(rs, "GET", "/hexy/get_board?size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mr.Exists(cache.BoardKey(2)))

	w = doRequest(rs, "GET", "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Data struct {
			BoardCache cache.CacheMetrics `json:"board_cache"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "redis", stats.Data.BoardCache.Backend)
	assert.Equal(t, int64(1), stats.Data.BoardCache.TotalKeys)
}

func TestRestServer_HealthReportsStopping(t *testing.T) {
	healthy := true
	settings := newTestSettings(t)
	renderer, err := render.New(render.Options{Palette: settings.Hexy.Palette, EmptyGlyph: settings.Hexy.EmptyGlyph})
	require.NoError(t, err)
	prometheus.DefaultRegisterer = prometheus.NewRegistry()

	rs := NewRestServer(Config{
		Settings: settings,
		Renderer: renderer,
		Healthy:  func() bool { return healthy },
	})

	w := doRequest(rs, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	healthy = false
	w = doRequest(rs, "GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"stopping"`)
}

func TestRestServer_MetricsEndpoint(t *testing.T) {
	rs, _ := newTestServer(t, newTestSettings(t), nil)

	w := doRequest(rs, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# HELP")
}

func TestMetricNamespace(t *testing.T) {
	assert.Equal(t, "hexy_web", metricNamespace("hexy-web"))
	assert.Equal(t, "a_b_c", metricNamespace("a.b c"))
}
