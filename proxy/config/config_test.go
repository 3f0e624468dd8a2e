package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExampleINI(t *testing.T) {
	path := filepath.Join("..", "..", "config_example.ini")
	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if conf.GetString("ListenAddr") != ":3000" {
		t.Fatalf("unexpected ListenAddr: %q", conf.GetString("ListenAddr"))
	}
	if got := conf.GetStringSlice("StreamProxyServers"); len(got) != 1 || got[0] != "tencent" {
		t.Fatalf("unexpected StreamProxyServers: %v", got)
	}
	if conf.GetPluginString("tencent", "cookie") == "" {
		t.Fatalf("expected tencent cookie to be present")
	}
}

func TestMissingFileFallsBackToDefaults(t *testing.T) {
	conf, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if conf.GetString("CookieBackend") != "file" {
		t.Errorf("expected default CookieBackend=file, got %q", conf.GetString("CookieBackend"))
	}
	if conf.GetSeconds("VendorTimeout") != 15*time.Second {
		t.Errorf("expected default VendorTimeout 15s, got %v", conf.GetSeconds("VendorTimeout"))
	}
	if conf.GetInt("VendorRetryMax") != 0 {
		t.Errorf("vendor retries must default to zero")
	}
	if !conf.GetBool("UseServerCookie") {
		t.Errorf("expected UseServerCookie default true")
	}
	if got := conf.GetStringSlice("TrustedProxies"); got != nil {
		t.Errorf("expected no trusted proxies by default, got %v", got)
	}
}

func TestPluginSections(t *testing.T) {
	path := writeConfig(t, `AuthSalt = pepper
AllowedOrigins = https://a.example, ,https://b.example

[plugins.netease]
cookie = MUSIC_U=abc
timeout = 30
enabled = true

[plugins.kugou]
enabled = false
`)

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if conf.GetString("AuthSalt") != "pepper" {
		t.Errorf("expected AuthSalt=pepper, got %s", conf.GetString("AuthSalt"))
	}
	origins := conf.GetStringSlice("AllowedOrigins")
	if len(origins) != 2 || origins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", origins)
	}

	if conf.GetPluginString("netease", "cookie") != "MUSIC_U=abc" {
		t.Errorf("GetPluginString failed")
	}
	if conf.GetPluginInt("netease", "timeout") != 30 {
		t.Errorf("GetPluginInt failed, got %d", conf.GetPluginInt("netease", "timeout"))
	}
	if !conf.PluginEnabled("netease") {
		t.Errorf("netease should be enabled")
	}
	if conf.PluginEnabled("kugou") {
		t.Errorf("kugou should be disabled")
	}
	if !conf.PluginEnabled("tencent") {
		t.Errorf("providers without a section default to enabled")
	}

	names := conf.PluginNames()
	if len(names) != 2 || names[0] != "kugou" || names[1] != "netease" {
		t.Errorf("unexpected plugin names: %v", names)
	}
}

func TestPluginConfigNotFound(t *testing.T) {
	conf, err := Load(writeConfig(t, `LogLevel = debug`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if _, ok := conf.GetPluginConfig("nonexistent"); ok {
		t.Error("expected nonexistent plugin to not be found")
	}
	if conf.GetPluginString("nonexistent", "key") != "" {
		t.Error("expected empty string for nonexistent plugin")
	}
	if conf.GetPluginInt("nonexistent", "key") != 0 {
		t.Error("expected 0 for nonexistent plugin")
	}
	if conf.GetPluginBool("nonexistent", "key") {
		t.Error("expected false for nonexistent plugin")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MUSICPROXY_AUTHSALT", "from-env")
	conf, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if conf.GetString("AuthSalt") != "from-env" {
		t.Errorf("expected env override, got %q", conf.GetString("AuthSalt"))
	}
}
