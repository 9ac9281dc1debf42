package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port     int    `yaml:"port"`
		DataPath string `yaml:"data_path"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"app"`

	Catalog struct {
		// Provider selects the active catalog variant: 'direct' or 'stremio'.
		Provider string `yaml:"provider"`
		// Per-content-type source selection for the direct variant.
		MovieSource  string `yaml:"movie_source"`
		SeriesSource string `yaml:"series_source"`
		// Language override. When empty, upstream originals are used as-is;
		// when set (e.g. "deu"), the direct variant overlays translations.
		Language        string `yaml:"language"`
		MaxResults      int    `yaml:"max_results"`
		CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	} `yaml:"catalog"`

	TMDB struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"tmdb"`

	TVDB struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"tvdb"`

	AniList struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"anilist"`

	Stremio struct {
		AddonURL string `yaml:"addon_url"`
	} `yaml:"stremio"`

	OpenSubtitles struct {
		APIKey                 string   `yaml:"api_key"`
		Username               string   `yaml:"username"`
		Password               string   `yaml:"password"`
		// When enabled, username/password are read from a sibling
		// application's config file instead of the fields above.
		UseExternalCredentials bool     `yaml:"use_external_credentials"`
		CredentialsFile        string   `yaml:"credentials_file"`
		Languages              []string `yaml:"languages"`
	} `yaml:"opensubtitles"`

	Embedarr struct {
		URL string `yaml:"url"`
	} `yaml:"embedarr"`

	AIOStreams struct {
		URL string `yaml:"url"`
	} `yaml:"aiostreams"`

	Library struct {
		Path            string `yaml:"path"`
		DatabasePath    string `yaml:"database_path"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"library"`

	Notifications struct {
		PushbulletAPIKey string `yaml:"pushbullet_api_key"`
	} `yaml:"notifications"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	loadFromEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(cfg *Config) {
	cfg.App.Port = 8085
	cfg.App.DataPath = "./data"
	cfg.App.Debug = false

	cfg.Catalog.Provider = "direct"
	cfg.Catalog.MovieSource = "tmdb"
	cfg.Catalog.SeriesSource = "tvdb"
	cfg.Catalog.MaxResults = 20
	cfg.Catalog.CacheTTLMinutes = 60

	cfg.OpenSubtitles.Languages = []string{"en"}

	cfg.Library.Path = "./data/library"
	cfg.Library.DatabasePath = "./data/strmhub.db"
	cfg.Library.RefreshInterval = "12h"
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("STRMHUB_TMDB_API_KEY"); v != "" {
		cfg.TMDB.APIKey = v
	}
	if v := os.Getenv("STRMHUB_TVDB_API_KEY"); v != "" {
		cfg.TVDB.APIKey = v
	}
	if v := os.Getenv("STRMHUB_OPENSUBTITLES_API_KEY"); v != "" {
		cfg.OpenSubtitles.APIKey = v
	}
	if v := os.Getenv("STRMHUB_STREMIO_ADDON_URL"); v != "" {
		cfg.Stremio.AddonURL = v
	}
}

func validate(cfg *Config) error {
	switch cfg.Catalog.Provider {
	case "direct", "stremio":
	default:
		return fmt.Errorf("unknown catalog provider %q", cfg.Catalog.Provider)
	}
	if cfg.Catalog.MovieSource != "tmdb" {
		return fmt.Errorf("unknown catalog movie_source %q", cfg.Catalog.MovieSource)
	}
	switch cfg.Catalog.SeriesSource {
	case "tmdb", "tvdb":
	default:
		return fmt.Errorf("unknown catalog series_source %q", cfg.Catalog.SeriesSource)
	}
	if cfg.Catalog.MaxResults <= 0 {
		cfg.Catalog.MaxResults = 20
	}
	if cfg.Catalog.CacheTTLMinutes <= 0 {
		cfg.Catalog.CacheTTLMinutes = 60
	}
	if _, err := time.ParseDuration(cfg.Library.RefreshInterval); err != nil {
		return fmt.Errorf("invalid library refresh_interval %q: %w", cfg.Library.RefreshInterval, err)
	}
	return nil
}

// CacheTTL returns the plugin-wide response cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Catalog.CacheTTLMinutes) * time.Minute
}

// RefreshInterval returns the parsed library refresh interval. Load has
// already validated the string.
func (c *Config) RefreshInterval() time.Duration {
	d, _ := time.ParseDuration(c.Library.RefreshInterval)
	return d
}
