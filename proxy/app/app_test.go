package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := "ListenAddr = 127.0.0.1:0\n" +
		"LogLevel = error\n" +
		"CookieFile = " + filepath.Join(dir, "secrets", "music-cookie.json") + "\n" +
		"Database = " + filepath.Join(dir, "data", "cookies.db") + "\n" +
		extra
	path := filepath.Join(dir, "config.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStartServeShutdown(t *testing.T) {
	app, err := New(context.Background(), writeConfig(t, "[plugins.netease]\ncookie = MUSIC_U=seed\n"), BuildInfo{BinVersion: "test"})
	require.NoError(t, err)
	require.NoError(t, app.Start(context.Background()))

	resp, err := http.Get("http://" + app.Addr() + "/api/health")
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, "healthy", body["status"])

	assert.Equal(t, "MUSIC_U=seed", app.Cookies.Get(context.Background(), "netease"))
	require.NoError(t, app.Shutdown(context.Background()))
}

func TestDisabledProviderIsUnsupported(t *testing.T) {
	app, err := New(context.Background(), writeConfig(t, "[plugins.netease]\nenabled = false\n"), BuildInfo{})
	require.NoError(t, err)
	defer app.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	app.HTTP.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/music?server=netease&type=pic&id=1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSQLiteBackend(t *testing.T) {
	app, err := New(context.Background(), writeConfig(t, "CookieBackend = sqlite\n"), BuildInfo{})
	require.NoError(t, err)
	require.NotNil(t, app.DB)

	app.Cookies.Set(context.Background(), "tencent", "uin=1;")
	require.NoError(t, app.Cookies.Flush(context.Background()))

	value, err := app.DB.Get(context.Background(), "tencent")
	require.NoError(t, err)
	assert.Equal(t, "uin=1;", value)
	require.NoError(t, app.Shutdown(context.Background()))
}

func TestUnknownCookieBackend(t *testing.T) {
	_, err := New(context.Background(), writeConfig(t, "CookieBackend = redis\n"), BuildInfo{})
	assert.Error(t, err)
}

func TestInvalidTrustedProxiesFailStartup(t *testing.T) {
	_, err := New(context.Background(), writeConfig(t, "TrustedProxies = 10.0.0.0/8,bogus\n"), BuildInfo{})
	assert.ErrorContains(t, err, "trusted proxies")
}
