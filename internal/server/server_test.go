package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/pagelume/internal/config"
)

func (p *project) config(hotReload bool) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Components: config.ComponentsConfig{
			Dir:             p.components,
			GlobalAssetsDir: filepath.Join(p.root, "global-assets"),
		},
		Development: config.DevelopmentConfig{
			HotReload: hotReload,
			Debounce:  20 * time.Millisecond,
		},
	}
}

func TestHandlerRoutes(t *testing.T) {
	p := newProject(t)
	p.card(t)
	p.write(t, "global-assets/css/pagelume-global.css", "body { margin: 0; }")
	p.write(t, "components/card/basic/assets/img/logo.svg", "<svg></svg>")

	h := New(p.config(false), nil, nil).Handler()

	rec := serve(h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.NotEmpty(t, health["version"])
	assert.Equal(t, float64(0), health["clients"])

	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodPost, "/health").Code)

	rec = serve(h, http.MethodGet, "/global-assets/css/pagelume-global.css")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body { margin: 0; }", rec.Body.String())

	rec = serve(h, http.MethodGet, "/components/card/basic/assets/img/logo.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<svg></svg>", rec.Body.String())

	rec = serve(h, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/preview/card/basic"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/preview/card/basic").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/preview/card/missing").Code)
	assert.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/nowhere").Code)
}

func TestBuildMetricsEndpoint(t *testing.T) {
	p := newProject(t)
	p.card(t)
	h := New(p.config(false), nil, nil).Handler()

	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/preview/card/basic").Code)

	rec := serve(h, http.MethodGet, "/api/build/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	var metrics struct {
		TotalBuilds      int64 `json:"total_builds"`
		SuccessfulBuilds int64 `json:"successful_builds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, int64(1), metrics.TotalBuilds)
	assert.Equal(t, int64(1), metrics.SuccessfulBuilds)
}

func TestStartShutdown(t *testing.T) {
	p := newProject(t)
	p.card(t)
	s := New(p.config(false), nil, nil)
	assert.Empty(t, s.Addr())

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()), "second start")

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, s.Shutdown(ctx))
	assert.True(t, s.IsShutdown())
	assert.Error(t, s.Start(context.Background()))
}

func TestStartFailsOnMissingComponentsRoot(t *testing.T) {
	p := newProject(t)
	cfg := p.config(true)
	cfg.Components.Dir = filepath.Join(p.root, "absent")

	s := New(cfg, nil, nil)
	require.Error(t, s.Start(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestLiveReloadEndToEnd(t *testing.T) {
	p := newProject(t)
	p.card(t)
	s := New(p.config(true), nil, nil)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws://"+s.Addr()+WebSocketPath, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(
		filepath.Join(p.components, "card", "basic", "index.html"),
		[]byte(`<h2 class="card">{{title}}!</h2>`), 0o644))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg struct {
		Type      string `json:"type"`
		Path      string `json:"path"`
		Component string `json:"component"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "component-update", msg.Type)
	assert.Equal(t, "card/basic", msg.Component)
	assert.Equal(t, "basic", filepath.Base(msg.Path))
}
