// Copyright (c) 2026 Keymaster Team
// usermgr - user management console
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads the layered usermgr configuration: defaults, the
// config file, a .env file, USERMGR_* environment variables and finally
// command-line flags, each layer overriding the previous one.
package config // import "github.com/toeirei/usermgr/internal/config"

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved configuration.
type Config struct {
	API       API       `mapstructure:"api" yaml:"api"`
	Storage   Storage   `mapstructure:"storage" yaml:"storage"`
	Language  string    `mapstructure:"language" yaml:"language"`
	App       App       `mapstructure:"app" yaml:"app"`
	DevServer DevServer `mapstructure:"devserver" yaml:"devserver"`
}

// API configures the gateway.
type API struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Storage selects where the session token is persisted.
type Storage struct {
	Type string `mapstructure:"type" yaml:"type"`
	DSN  string `mapstructure:"dsn" yaml:"dsn"`
}

// App holds presentation settings.
type App struct {
	Title string `mapstructure:"title" yaml:"title"`
}

// DevServer configures `usermgr devserver`.
type DevServer struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
	Target string `mapstructure:"target" yaml:"target"`
}

// DotenvFile is the .env file consulted after the config file.
var DotenvFile = ".env"

// dotenvAliases maps the front-end build variables onto config keys.
var dotenvAliases = map[string]string{
	"VITE_API_URL":   "api.base_url",
	"VITE_APP_TITLE": "app.title",
}

// Defaults returns the built-in default for every key.
func Defaults() map[string]any {
	return map[string]any{
		"api.base_url":     "http://localhost:8000/api/v1",
		"api.timeout":      "5s",
		"storage.type":     "file",
		"storage.dsn":      "",
		"language":         "zh",
		"app.title":        "用户管理系统",
		"devserver.listen": ":3000",
		"devserver.target": "http://localhost:8000",
	}
}

// GetConfigPath returns the user (or system-wide) config file path.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "usermgr")
		default:
			configDir = "/etc/usermgr"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "usermgr")
	}
	return filepath.Join(configDir, "usermgr.yaml"), nil
}

// LoadConfig reads the layered configuration into T. configFile, when set,
// replaces the search of the standard locations.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("usermgr")
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	overrides, err := readDotenv(DotenvFile, defaults)
	if err != nil {
		return c, err
	}
	if len(overrides) > 0 {
		if err := v.MergeConfigMap(overrides); err != nil {
			return c, fmt.Errorf("merge %s: %w", DotenvFile, err)
		}
	}

	v.SetEnvPrefix("usermgr")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for envKey, key := range dotenvAliases {
		if err := v.BindEnv(key, envName(key), envKey); err != nil {
			return c, err
		}
	}

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// Load reads the usermgr configuration and resolves a relative API base URL
// against the dev-server target.
func Load(cmd *cobra.Command, configFile string) (Config, error) {
	c, err := LoadConfig[Config](cmd, Defaults(), configFile)
	if err != nil {
		return c, err
	}
	c.API.BaseURL, err = resolveBaseURL(c.API.BaseURL, c.DevServer.Target)
	if err != nil {
		return c, err
	}
	return c, nil
}

// resolveBaseURL turns "/api/v1" (the browser build's VITE_API_URL) into an
// absolute address on target.
func resolveBaseURL(base, target string) (string, error) {
	base = strings.TrimSpace(base)
	if !strings.HasPrefix(base, "/") {
		return base, nil
	}
	t, err := url.Parse(target)
	if err != nil || t.Host == "" {
		return "", fmt.Errorf("relative api.base_url %q needs an absolute devserver.target, got %q", base, target)
	}
	return t.JoinPath(base).String(), nil
}

// readDotenv returns the config keys set in a .env file as a nested map.
// Both USERMGR_* names and the VITE_* aliases are recognised.
func readDotenv(path string, defaults map[string]any) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := map[string]any{}
	for envKey, key := range dotenvAliases {
		if s, ok := vals[envKey]; ok {
			setNested(out, key, s)
		}
	}
	for key := range defaults {
		if s, ok := vals[envName(key)]; ok {
			setNested(out, key, s)
		}
	}
	return out, nil
}

func envName(key string) string {
	return "USERMGR_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setNested(m map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// WriteConfigFile writes settings (dotted keys) as YAML to path with mode
// 0600, creating the directory if needed.
func WriteConfigFile(path string, settings map[string]any) error {
	nested := map[string]any{}
	for k, v := range settings {
		setNested(nested, k, v)
	}
	data, err := yaml.Marshal(nested)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	return os.WriteFile(path, data, 0o600)
}

// EnsureDefaultFile writes the defaults to the user config file unless one
// already exists. It reports whether a file was written.
func EnsureDefaultFile() (string, bool, error) {
	path, err := GetConfigPath(false)
	if err != nil {
		return "", false, err
	}
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return path, false, err
	}
	if err := WriteConfigFile(path, Defaults()); err != nil {
		return path, false, err
	}
	return path, true, nil
}
