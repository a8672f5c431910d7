package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "app_config.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestLoadConfig_FillsDefaults(t *testing.T) {
	path := writeConfig(t, `{"host": "127.0.0.1", "port": 9000, "min_players": 3}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Host != "127.0.0.1" || cfg.Port != 9000 || cfg.MinPlayers != 3 {
		t.Fatalf("explicit values lost: %+v", cfg)
	}

	if cfg.PreRoundTime != 15 || cfg.PostRoundTime != 10 || cfg.MaxHealth != 100 {
		t.Fatalf("defaults missing: %+v", cfg)
	}
	if len(cfg.BodyParts) != 6 {
		t.Fatalf("body parts = %v", cfg.BodyParts)
	}
	if cfg.SnapshotEvery() != 3 {
		t.Fatalf("snapshot every = %d, want 3", cfg.SnapshotEvery())
	}

	settings := cfg.GameSettings()
	if settings.MinPlayers != 3 || settings.RestartPostRoundTime != 3 {
		t.Fatalf("settings = %+v", settings)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"port": 9000}`)
	t.Setenv("TRAITOR_PORT", "9100")
	t.Setenv("TRAITOR_ADMIN_TOKEN", "secret")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != 9100 || cfg.AdminToken != "secret" {
		t.Fatalf("env not applied: port=%d token=%q", cfg.Port, cfg.AdminToken)
	}
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad port":          `{"port": 70000}`,
		"snapshot too fast": `{"tick_hz": 10, "snapshot_hz": 20}`,
		"zero tick":         `{"tick_hz": 0}`,
		"broken json":       `{"port": `,
	}

	for name, body := range cases {
		if _, err := LoadConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing file: expected error")
	}
}
