package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}
	if cfg.App.Port != 8085 {
		t.Errorf("default port = %d", cfg.App.Port)
	}
	if cfg.Catalog.Provider != "direct" {
		t.Errorf("default provider = %q", cfg.Catalog.Provider)
	}
	if cfg.CacheTTL() != time.Hour {
		t.Errorf("default cache ttl = %s", cfg.CacheTTL())
	}
	if cfg.RefreshInterval() != 12*time.Hour {
		t.Errorf("default refresh interval = %s", cfg.RefreshInterval())
	}
	if len(cfg.OpenSubtitles.Languages) != 1 || cfg.OpenSubtitles.Languages[0] != "en" {
		t.Errorf("default languages = %v", cfg.OpenSubtitles.Languages)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
app:
  port: 9090
  debug: true
catalog:
  provider: stremio
  language: deu
  cache_ttl_minutes: 15
stremio:
  addon_url: https://addon.test/manifest.json
library:
  refresh_interval: 6h
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != 9090 || !cfg.App.Debug {
		t.Errorf("app section = %+v", cfg.App)
	}
	if cfg.Catalog.Provider != "stremio" || cfg.Catalog.Language != "deu" {
		t.Errorf("catalog section = %+v", cfg.Catalog)
	}
	if cfg.CacheTTL() != 15*time.Minute {
		t.Errorf("cache ttl = %s", cfg.CacheTTL())
	}
	if cfg.RefreshInterval() != 6*time.Hour {
		t.Errorf("refresh interval = %s", cfg.RefreshInterval())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
tmdb:
  api_key: from-file
`)
	t.Setenv("STRMHUB_TMDB_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TMDB.APIKey != "from-env" {
		t.Errorf("api key = %q, want env to win", cfg.TMDB.APIKey)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := writeConfig(t, `
catalog:
  provider: kodi
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadRejectsUnsupportedSources(t *testing.T) {
	path := writeConfig(t, `
catalog:
  movie_source: tvdb
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported movie source")
	}

	path = writeConfig(t, `
catalog:
  series_source: anilist
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported series source")
	}
}

func TestLoadAllowsTmdbSeriesSource(t *testing.T) {
	path := writeConfig(t, `
catalog:
  series_source: tmdb
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Catalog.SeriesSource != "tmdb" {
		t.Errorf("series_source = %q", cfg.Catalog.SeriesSource)
	}
}

func TestLoadRejectsBadRefreshInterval(t *testing.T) {
	path := writeConfig(t, `
library:
  refresh_interval: often
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for bad refresh interval")
	}
}

func TestValidateClampsNonPositiveValues(t *testing.T) {
	path := writeConfig(t, `
catalog:
  max_results: -5
  cache_ttl_minutes: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Catalog.MaxResults != 20 || cfg.Catalog.CacheTTLMinutes != 60 {
		t.Errorf("clamped values = %d, %d", cfg.Catalog.MaxResults, cfg.Catalog.CacheTTLMinutes)
	}
}
