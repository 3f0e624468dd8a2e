package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// PluginConfig stores provider-specific configuration as key-value pairs.
type PluginConfig map[string]interface{}

// Config wraps viper and provides typed accessors.
type Config struct {
	v       *viper.Viper
	plugins map[string]PluginConfig
}

// Load reads an INI (or any viper-supported) config file and prepares defaults.
// A missing file is not an error: the service then runs on defaults and
// MUSICPROXY_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MUSICPROXY")
	v.AutomaticEnv()

	setDefaults(v)

	c := &Config{
		v:       v,
		plugins: make(map[string]PluginConfig),
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return c, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		cfg, err := loadINI(v, path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return c, nil
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		loadPlugins(cfg, c)
		return c, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenAddr", ":3000")
	v.SetDefault("PublicBaseURL", "")
	v.SetDefault("AuthSalt", "")
	v.SetDefault("AllowedOrigins", "https://www.8kkjj.com,https://www.5yxy5.com,https://u2.8kkjj.com,https://www.8kjy.com,https://277.8kkjj.com,https://www.8kja.com,localhost:8000")
	v.SetDefault("CookieBackend", "file")
	v.SetDefault("CookieFile", "secrets/music-cookie.json")
	v.SetDefault("Database", "data/cookies.db")
	v.SetDefault("CredentialURL", "http://local.zeusai.top:8898/credentials")
	v.SetDefault("CredentialTimeout", 10)
	v.SetDefault("VendorTimeout", 15)
	v.SetDefault("VendorRetryMax", 0)
	v.SetDefault("StreamProxyServers", "")
	v.SetDefault("UseServerCookie", true)
	v.SetDefault("ForwardClientCookie", false)
	v.SetDefault("SuppressSetCookie", true)
	v.SetDefault("RateLimitPerSecond", 0.0)
	v.SetDefault("RateLimitBurst", 20)
	v.SetDefault("TrustedProxies", "")
	v.SetDefault("ShutdownTimeout", 10)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("LogSource", false)
	v.SetDefault("LogDir", "")
	v.SetDefault("GormLogLevel", "warn")
	v.SetDefault("GinMode", "release")
}

// GetString returns a string value.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns an int value.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 returns a float64 value.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool returns a bool value.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetSeconds interprets an integer value as a number of seconds.
func (c *Config) GetSeconds(key string) time.Duration {
	return time.Duration(c.v.GetInt(key)) * time.Second
}

// GetStringSlice splits a comma separated value, dropping blanks.
func (c *Config) GetStringSlice(key string) []string {
	raw := c.v.GetString(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetPluginConfig retrieves provider-specific configuration by name.
func (c *Config) GetPluginConfig(name string) (PluginConfig, bool) {
	cfg, ok := c.plugins[name]
	return cfg, ok
}

// PluginNames returns the configured provider section names.
func (c *Config) PluginNames() []string {
	if len(c.plugins) == 0 {
		return nil
	}
	nameList := make([]string, 0, len(c.plugins))
	for name := range c.plugins {
		nameList = append(nameList, name)
	}
	sort.Strings(nameList)
	return nameList
}

// GetPluginString returns a string value from a provider section.
// Returns empty string if the section or key is not found.
func (c *Config) GetPluginString(plugin, key string) string {
	val, ok := c.pluginValue(plugin, key)
	if !ok {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", val)
}

// GetPluginInt returns an int value from a provider section, or 0.
func (c *Config) GetPluginInt(plugin, key string) int {
	val, ok := c.pluginValue(plugin, key)
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case string:
		num, _ := strconv.Atoi(strings.TrimSpace(v))
		return num
	default:
		return 0
	}
}

// GetPluginBool returns a bool value from a provider section, or false.
func (c *Config) GetPluginBool(plugin, key string) bool {
	val, ok := c.pluginValue(plugin, key)
	if !ok {
		return false
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		v = strings.TrimSpace(v)
		return strings.EqualFold(v, "true") || v == "1"
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return false
	}
}

// PluginEnabled reports whether a provider is enabled. Providers without an
// explicit `enabled` key are on.
func (c *Config) PluginEnabled(plugin string) bool {
	if _, ok := c.pluginValue(plugin, "enabled"); !ok {
		return true
	}
	return c.GetPluginBool(plugin, "enabled")
}

func (c *Config) pluginValue(plugin, key string) (interface{}, bool) {
	cfg, ok := c.plugins[plugin]
	if !ok {
		return nil, false
	}
	val, ok := cfg[key]
	return val, ok
}

func loadINI(v *viper.Viper, path string) (*ini.File, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}

	for _, key := range cfg.Section("").Keys() {
		v.Set(key.Name(), key.Value())
	}

	return cfg, nil
}

func loadPlugins(cfg *ini.File, c *Config) {
	const pluginPrefix = "plugins."

	for _, section := range cfg.Sections() {
		sectionName := section.Name()
		if sectionName == "" || sectionName == ini.DefaultSection {
			continue
		}
		if !strings.HasPrefix(sectionName, pluginPrefix) {
			continue
		}

		pluginName := strings.TrimPrefix(sectionName, pluginPrefix)
		pluginCfg := make(PluginConfig)
		for _, key := range section.Keys() {
			pluginCfg[key.Name()] = key.Value()
		}
		c.plugins[pluginName] = pluginCfg
	}
}
