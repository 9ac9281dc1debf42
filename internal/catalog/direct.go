package catalog

import (
	"context"
	"strconv"
	"strings"

	"strmhub/internal/clients/metadata"
	"strmhub/internal/config"
	"strmhub/internal/utils"
)

// DirectProvider aggregates the per-service metadata clients: movie lookups
// go to the configured movie source, series lookups to the series source.
type DirectProvider struct {
	cfg    *config.Config
	tmdb   *metadata.TMDBClient
	tvdb   *metadata.TVDBClient
	logger *utils.Logger
}

func NewDirectProvider(cfg *config.Config, tmdb *metadata.TMDBClient, tvdb *metadata.TVDBClient, logger *utils.Logger) *DirectProvider {
	return &DirectProvider{cfg: cfg, tmdb: tmdb, tvdb: tvdb, logger: logger}
}

func (p *DirectProvider) Name() string { return "direct" }

// IsConfigured reports whether the source selected for the given content
// type has credentials.
func (p *DirectProvider) IsConfigured(mediaType MediaType) bool {
	switch p.sourceFor(mediaType) {
	case "tmdb":
		return p.tmdb.IsConfigured()
	case "tvdb":
		return p.tvdb.IsConfigured()
	}
	return false
}

func (p *DirectProvider) sourceFor(mediaType MediaType) string {
	if mediaType == MediaTypeMovie {
		return p.cfg.Catalog.MovieSource
	}
	return p.cfg.Catalog.SeriesSource
}

func (p *DirectProvider) SearchMovies(ctx context.Context, query string) []CatalogItem {
	if !p.IsConfigured(MediaTypeMovie) {
		return []CatalogItem{}
	}

	results := p.tmdb.SearchMovies(ctx, query, p.cfg.Catalog.MaxResults)
	items := make([]CatalogItem, 0, len(results))
	for _, r := range results {
		items = append(items, itemFromTMDBMovie(ctx, p.tmdb, r))
	}
	return items
}

func (p *DirectProvider) SearchSeries(ctx context.Context, query string) []CatalogItem {
	if !p.IsConfigured(MediaTypeSeries) {
		return []CatalogItem{}
	}

	items := make([]CatalogItem, 0, p.cfg.Catalog.MaxResults)
	switch p.sourceFor(MediaTypeSeries) {
	case "tmdb":
		for _, r := range p.tmdb.SearchSeries(ctx, query, p.cfg.Catalog.MaxResults) {
			items = append(items, itemFromTMDBSeries(ctx, p.tmdb, r))
		}
	case "tvdb":
		for _, r := range p.tvdb.SearchSeries(ctx, query, p.cfg.Catalog.MaxResults) {
			items = append(items, itemFromTVDBSearch(r, p.cfg.Catalog.Language))
		}
	}
	return items
}

func (p *DirectProvider) GetMovieDetails(ctx context.Context, id string) *CatalogItemDetails {
	if !p.IsConfigured(MediaTypeMovie) {
		return nil
	}

	tmdbID := numericID(id, "tmdb")
	if tmdbID <= 0 {
		return nil
	}
	movie := p.tmdb.GetMovie(ctx, tmdbID)
	if movie == nil {
		return nil
	}
	return detailsFromTMDBMovie(ctx, p.tmdb, movie)
}

func (p *DirectProvider) GetSeriesDetails(ctx context.Context, id string) *CatalogItemDetails {
	if !p.IsConfigured(MediaTypeSeries) {
		return nil
	}

	switch p.sourceFor(MediaTypeSeries) {
	case "tmdb":
		tmdbID := numericID(id, "tmdb")
		if tmdbID <= 0 {
			return nil
		}
		series := p.tmdb.GetSeries(ctx, tmdbID)
		if series == nil {
			return nil
		}
		return detailsFromTMDBSeries(ctx, p.tmdb, series)
	case "tvdb":
		tvdbID := numericID(id, "tvdb")
		if tvdbID <= 0 {
			return nil
		}
		series := p.tvdb.GetSeries(ctx, tvdbID)
		if series == nil {
			return nil
		}
		episodes := p.tvdb.GetEpisodes(ctx, tvdbID)
		details := detailsFromTVDBSeries(series, episodes)
		p.applyTranslations(ctx, details)
		return details
	}
	return nil
}

// applyTranslations overlays the configured language onto a TVDB series
// record, field by field: a translation that lacks a name or overview keeps
// the original value for that field. Episode names fall back the same way.
func (p *DirectProvider) applyTranslations(ctx context.Context, d *CatalogItemDetails) {
	lang := p.cfg.Catalog.Language
	if lang == "" {
		return
	}

	if tr := p.tvdb.GetSeriesTranslation(ctx, d.TvdbID, lang); tr != nil {
		if tr.Name != "" && tr.Name != d.Name {
			d.OriginalName = d.Name
			d.Name = tr.Name
		}
		if tr.Overview != "" {
			d.Overview = tr.Overview
		}
	}

	for i := range d.Episodes {
		epID, err := strconv.Atoi(d.Episodes[i].ID)
		if err != nil {
			continue
		}
		tr := p.tvdb.GetEpisodeTranslation(ctx, epID, lang)
		if tr == nil {
			continue
		}
		if tr.Name != "" {
			d.Episodes[i].Name = tr.Name
		}
		if tr.Overview != "" {
			d.Episodes[i].Overview = tr.Overview
		}
	}
}

// numericID accepts both bare numeric ids and source-prefixed ones like
// "tmdb:603". A prefix for a different source is rejected.
func numericID(id, source string) int {
	if prefix, rest, ok := strings.Cut(id, ":"); ok {
		if prefix != source {
			return 0
		}
		id = rest
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0
	}
	return n
}
