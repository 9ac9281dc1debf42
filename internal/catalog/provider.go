package catalog

import (
	"context"
	"fmt"

	"strmhub/internal/cache"
	"strmhub/internal/clients/metadata"
	"strmhub/internal/clients/stremio"
	"strmhub/internal/config"
	"strmhub/internal/utils"
)

// Provider serves catalog searches and detail lookups from one metadata
// backend. All operations are total: failures surface as empty slices or
// nil details, never as errors, so callers can always render something.
type Provider interface {
	Name() string
	IsConfigured(mediaType MediaType) bool

	SearchMovies(ctx context.Context, query string) []CatalogItem
	SearchSeries(ctx context.Context, query string) []CatalogItem

	GetMovieDetails(ctx context.Context, id string) *CatalogItemDetails
	GetSeriesDetails(ctx context.Context, id string) *CatalogItemDetails
}

// NewProvider builds the provider named in the config, wiring in the shared
// cache and logger.
func NewProvider(cfg *config.Config, c *cache.Cache, logger *utils.Logger) (Provider, error) {
	switch cfg.Catalog.Provider {
	case "direct":
		tmdb := metadata.NewTMDBClient(cfg.TMDB.APIKey, cfg.Catalog.Language, c, logger)
		tvdb := metadata.NewTVDBClient(cfg.TVDB.APIKey, c, logger)
		return NewDirectProvider(cfg, tmdb, tvdb, logger), nil
	case "stremio":
		if cfg.Stremio.AddonURL == "" {
			return nil, fmt.Errorf("stremio provider requires stremio.addon_url")
		}
		addon := stremio.NewAddonClient(cfg.Stremio.AddonURL, c, logger)
		return NewStremioProvider(cfg, addon, logger), nil
	default:
		return nil, fmt.Errorf("unknown catalog provider %q", cfg.Catalog.Provider)
	}
}
