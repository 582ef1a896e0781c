package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	cfg "github.com/toeirei/usermgr/internal/config"
)

// isolate points the user config dir and the .env lookup at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	for _, k := range []string{"USERMGR_API_BASE_URL", "USERMGR_LANGUAGE", "VITE_API_URL", "VITE_APP_TITLE"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
	old := cfg.DotenvFile
	cfg.DotenvFile = filepath.Join(tmp, ".env")
	t.Cleanup(func() { cfg.DotenvFile = old })
	return tmp
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	got, err := cfg.Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.API.BaseURL != "http://localhost:8000/api/v1" {
		t.Fatalf("base url = %q", got.API.BaseURL)
	}
	if got.API.Timeout != 5*time.Second {
		t.Fatalf("timeout = %v", got.API.Timeout)
	}
	if got.Storage.Type != "file" || got.Language != "zh" || got.DevServer.Listen != ":3000" {
		t.Fatalf("unexpected defaults %+v", got)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "cfg.yaml")
	data := "api:\n  base_url: https://users.example.com/api/v1\n  timeout: 2s\nstorage:\n  type: memory\nlanguage: en\n"
	if err := os.WriteFile(file, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := cfg.Load(&cobra.Command{}, file)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.API.BaseURL != "https://users.example.com/api/v1" || got.API.Timeout != 2*time.Second {
		t.Fatalf("unexpected api config %+v", got.API)
	}
	if got.Storage.Type != "memory" || got.Language != "en" {
		t.Fatalf("unexpected config %+v", got)
	}
}

func TestLoad_DotenvAliasesAndEnvPrecedence(t *testing.T) {
	tmp := isolate(t)
	env := "VITE_API_URL=/api/v1\nVITE_APP_TITLE=Admin\nUSERMGR_LANGUAGE=en\n"
	if err := os.WriteFile(filepath.Join(tmp, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	got, err := cfg.Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.API.BaseURL != "http://localhost:8000/api/v1" {
		t.Fatalf("relative base url not resolved: %q", got.API.BaseURL)
	}
	if got.App.Title != "Admin" || got.Language != "en" {
		t.Fatalf("dotenv not applied: %+v", got)
	}

	t.Setenv("USERMGR_API_BASE_URL", "http://api.internal:9000/v1")
	got, err = cfg.Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.API.BaseURL != "http://api.internal:9000/v1" {
		t.Fatalf("environment should override .env, got %q", got.API.BaseURL)
	}
}

func TestLoad_FlagsWin(t *testing.T) {
	isolate(t)
	t.Setenv("USERMGR_LANGUAGE", "zh")
	cmd := &cobra.Command{}
	cmd.Flags().String("language", "", "")
	if err := cmd.Flags().Set("language", "en"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	got, err := cfg.Load(cmd, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Language != "en" {
		t.Fatalf("language = %q", got.Language)
	}
}

func TestLoad_RelativeBaseNeedsTarget(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(file, []byte("api:\n  base_url: /api/v1\ndevserver:\n  target: \"\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := cfg.Load(&cobra.Command{}, file); err == nil {
		t.Fatal("expected error for relative base url without target")
	}
}

func TestEnsureDefaultFile(t *testing.T) {
	isolate(t)
	path, wrote, err := cfg.EnsureDefaultFile()
	if err != nil || !wrote {
		t.Fatalf("EnsureDefaultFile: wrote=%v err=%v", wrote, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	if _, wrote, err = cfg.EnsureDefaultFile(); err != nil || wrote {
		t.Fatalf("second call: wrote=%v err=%v", wrote, err)
	}

	got, err := cfg.Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatalf("Load after write: %v", err)
	}
	if got.API.Timeout != 5*time.Second || got.Storage.Type != "file" {
		t.Fatalf("written defaults not read back: %+v", got)
	}
}
