package catalog

import (
	"context"

	"strmhub/internal/clients/stremio"
	"strmhub/internal/config"
	"strmhub/internal/utils"
)

// StremioProvider serves the catalog from a single Stremio-compatible addon
// instead of the per-service clients. Item ids are the addon's native ids.
type StremioProvider struct {
	cfg    *config.Config
	addon  *stremio.AddonClient
	logger *utils.Logger
}

func NewStremioProvider(cfg *config.Config, addon *stremio.AddonClient, logger *utils.Logger) *StremioProvider {
	return &StremioProvider{cfg: cfg, addon: addon, logger: logger}
}

func (p *StremioProvider) Name() string { return "stremio" }

func (p *StremioProvider) IsConfigured(MediaType) bool {
	return p.addon.IsConfigured()
}

func (p *StremioProvider) SearchMovies(ctx context.Context, query string) []CatalogItem {
	return p.search(ctx, "movie", query)
}

func (p *StremioProvider) SearchSeries(ctx context.Context, query string) []CatalogItem {
	return p.search(ctx, "series", query)
}

func (p *StremioProvider) search(ctx context.Context, contentType, query string) []CatalogItem {
	if !p.addon.IsConfigured() {
		return []CatalogItem{}
	}

	metas := p.addon.SearchCatalog(ctx, contentType, "", query)
	max := p.cfg.Catalog.MaxResults
	if max > 0 && len(metas) > max {
		metas = metas[:max]
	}
	items := make([]CatalogItem, 0, len(metas))
	for _, m := range metas {
		items = append(items, itemFromStremioMeta(m))
	}
	return items
}

func (p *StremioProvider) GetMovieDetails(ctx context.Context, id string) *CatalogItemDetails {
	return p.details(ctx, "movie", id)
}

func (p *StremioProvider) GetSeriesDetails(ctx context.Context, id string) *CatalogItemDetails {
	return p.details(ctx, "series", id)
}

func (p *StremioProvider) details(ctx context.Context, contentType, id string) *CatalogItemDetails {
	if !p.addon.IsConfigured() {
		return nil
	}
	meta := p.addon.Meta(ctx, contentType, id)
	if meta == nil {
		return nil
	}
	return detailsFromStremioMeta(meta)
}
