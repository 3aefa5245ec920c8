package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Query.Timeout() != 5*time.Second {
		t.Errorf("expected default query timeout 5s, got %v", cfg.Query.Timeout())
	}
	if cfg.Mapping.TableVersion != "2024.1" {
		t.Errorf("expected default table version 2024.1, got %s", cfg.Mapping.TableVersion)
	}
	if cfg.Pagination.MaxLimit != 100 {
		t.Errorf("expected default max limit 100, got %d", cfg.Pagination.MaxLimit)
	}
	if cfg.NATS.URL != "" {
		t.Error("expected publishing disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero query timeout",
			modify:  func(c *Config) { c.Query.TimeoutMs = 0 },
			wantErr: true,
		},
		{
			name:    "unknown table version",
			modify:  func(c *Config) { c.Mapping.TableVersion = "1999.1" },
			wantErr: true,
		},
		{
			name:    "newer table version",
			modify:  func(c *Config) { c.Mapping.TableVersion = "2025.1" },
			wantErr: false,
		},
		{
			name:    "zero max limit",
			modify:  func(c *Config) { c.Pagination.MaxLimit = 0 },
			wantErr: true,
		},
		{
			name:    "no workers",
			modify:  func(c *Config) { c.Ingest.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "bad include pattern",
			modify:  func(c *Config) { c.Ingest.Include = []string{"[unclosed"} },
			wantErr: true,
		},
		{
			name:    "relative base IRI",
			modify:  func(c *Config) { c.Ingest.BaseIRI = "catalog/" },
			wantErr: true,
		},
		{
			name:    "nats without subject",
			modify:  func(c *Config) { c.NATS.URL = "nats://localhost:4222"; c.NATS.Subject = "" },
			wantErr: true,
		},
		{
			name:    "relative catalog license",
			modify:  func(c *Config) { c.Catalog.License = "by-nc" },
			wantErr: true,
		},
		{
			name:    "unparseable catalog issued date",
			modify:  func(c *Config) { c.Catalog.Issued = "someday" },
			wantErr: true,
		},
		{
			name: "catalog metadata",
			modify: func(c *Config) {
				c.Catalog.License = "https://creativecommons.org/licenses/by/4.0/"
				c.Catalog.Issued = "2024.01.15"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
query:
  timeoutMs: 250
mapping:
  tableVersion: "2025.1"
pagination:
  maxLimit: 20
ingest:
  workers: 8
  include:
    - "**/*.dcm"
  baseIRI: "https://example.org/catalog/"
storage:
  path: "/var/lib/semcat/catalog.db"
nats:
  url: "nats://test:4222"
catalog:
  title: "Radiotherapy Imaging"
  publisher: "Example Hospital"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Query.Timeout() != 250*time.Millisecond {
		t.Errorf("expected timeout 250ms, got %v", cfg.Query.Timeout())
	}
	if cfg.Mapping.TableVersion != "2025.1" {
		t.Errorf("expected table version 2025.1, got %s", cfg.Mapping.TableVersion)
	}
	if cfg.Pagination.MaxLimit != 20 {
		t.Errorf("expected max limit 20, got %d", cfg.Pagination.MaxLimit)
	}
	if cfg.Ingest.Workers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.Ingest.Workers)
	}
	if len(cfg.Ingest.Include) != 1 {
		t.Errorf("expected 1 include pattern, got %d", len(cfg.Ingest.Include))
	}
	if cfg.Storage.Path != "/var/lib/semcat/catalog.db" {
		t.Errorf("expected storage path, got %s", cfg.Storage.Path)
	}
	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.Catalog.Title != "Radiotherapy Imaging" || cfg.Catalog.Publisher != "Example Hospital" {
		t.Errorf("unexpected catalog section %+v", cfg.Catalog)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		Query: QueryConfig{
			TimeoutMs: 1,
		},
		Storage: StorageConfig{
			Path: "/override/catalog.db",
		},
		Catalog: CatalogConfig{
			Publisher: "Example Hospital",
		},
	}

	base.Merge(override)
	if base.Catalog.Publisher != "Example Hospital" {
		t.Errorf("expected catalog publisher to merge, got %q", base.Catalog.Publisher)
	}

	if base.Query.TimeoutMs != 1 {
		t.Errorf("expected timeout 1ms, got %d", base.Query.TimeoutMs)
	}
	// Table version should remain from base since override didn't set it
	if base.Mapping.TableVersion != "2024.1" {
		t.Errorf("expected table version to remain default, got %s", base.Mapping.TableVersion)
	}
	if base.Storage.Path != "/override/catalog.db" {
		t.Errorf("expected storage path /override/catalog.db, got %s", base.Storage.Path)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Addr = ":9090"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Server.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %s", loaded.Server.Addr)
	}
}

func TestLoaderLayering(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	write := func(path, content string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(filepath.Join(home, UserConfigDir, UserConfigFile), "query:\n  timeoutMs: 100\npagination:\n  maxLimit: 7\n")
	write(filepath.Join(project, ProjectConfigFile), "query:\n  timeoutMs: 200\n")
	explicit := filepath.Join(t.TempDir(), "explicit.yaml")
	write(explicit, "server:\n  addr: \":7070\"\n")

	l := NewLoader(nil)
	l.home = home
	l.workDir = nested

	cfg, err := l.Load(explicit)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Query.TimeoutMs != 200 {
		t.Errorf("expected project timeout 200, got %d", cfg.Query.TimeoutMs)
	}
	if cfg.Pagination.MaxLimit != 7 {
		t.Errorf("expected user max limit 7, got %d", cfg.Pagination.MaxLimit)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("expected explicit addr :7070, got %s", cfg.Server.Addr)
	}

	if _, err := l.Load(filepath.Join(project, "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestLoaderRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("pagination:\n  maxLimit: -3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(nil)
	l.home = t.TempDir()
	l.workDir = dir

	if _, err := l.Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestEnsureUserConfig(t *testing.T) {
	l := NewLoader(nil)
	l.home = t.TempDir()

	path, err := l.EnsureUserConfig()
	if err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}
	if _, err := LoadFromFile(path); err != nil {
		t.Errorf("created config unreadable: %v", err)
	}
	again, err := l.EnsureUserConfig()
	if err != nil || again != path {
		t.Errorf("second call = %q, %v", again, err)
	}
}
