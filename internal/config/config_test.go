package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Bind != ":8080" {
		t.Fatalf("bind = %q", cfg.Server.Bind)
	}
	if cfg.PriorArtStagger() != 300*time.Millisecond {
		t.Fatalf("stagger = %v", cfg.PriorArtStagger())
	}
}

func TestLoadFileValues(t *testing.T) {
	path := writeConfig(t, `
[server]
bind = ":9090"

[server.tenants]
"key-1" = "tenant-a"

[storage]
db_path = "/tmp/oa.db"
blob_dir = "/tmp/blobs"

[docai]
project_id = "p"
location = "us"
processor_id = "proc"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Bind != ":9090" {
		t.Fatalf("bind = %q", cfg.Server.Bind)
	}
	if cfg.Server.Tenants["key-1"] != "tenant-a" {
		t.Fatalf("tenants = %v", cfg.Server.Tenants)
	}
	if !cfg.DocAIEnabled() {
		t.Fatal("docai should be enabled")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[storage]
db_path = "file.db"
blob_dir = "blobs"
`)
	t.Setenv("OA_DB_PATH", "/env/oa.db")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.DBPath != "/env/oa.db" {
		t.Fatalf("db path = %q", cfg.Storage.DBPath)
	}
}

func TestValidatePartialDocAIRejected(t *testing.T) {
	path := writeConfig(t, `
[docai]
project_id = "p"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("partial docai config should be rejected")
	}
}
