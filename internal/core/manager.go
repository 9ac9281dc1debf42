package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"strmhub/internal/cache"
	"strmhub/internal/catalog"
	"strmhub/internal/clients/metadata"
	"strmhub/internal/clients/streams"
	"strmhub/internal/clients/stremio"
	"strmhub/internal/clients/subtitles"
	"strmhub/internal/config"
	"strmhub/internal/library"
	"strmhub/internal/notifications"
	"strmhub/internal/utils"
)

// Manager owns the wired clients, the library, and the background jobs.
// Handlers only ever talk to upstreams through it.
type Manager struct {
	config *config.Config
	logger *utils.Logger

	cache     *cache.Cache
	provider  catalog.Provider
	anilist   *metadata.AniListClient
	subs      *subtitles.Client
	embedarr  *streams.EmbedarrClient
	aiostream *stremio.AIOStreamsClient

	store    *library.Store
	notifier notifications.Notifier
	hub      *Hub

	scheduler *cron.Cron
}

func NewManager(cfg *config.Config, db *sql.DB, logger *utils.Logger) (*Manager, error) {
	c := cache.New(cfg.CacheTTL())

	provider, err := catalog.NewProvider(cfg, c, logger)
	if err != nil {
		return nil, err
	}

	username, password := cfg.OpenSubtitles.Username, cfg.OpenSubtitles.Password
	if cfg.OpenSubtitles.UseExternalCredentials {
		creds, err := subtitles.LoadExternalCredentials(cfg.OpenSubtitles.CredentialsFile)
		if err != nil {
			logger.Error("Could not load external subtitle credentials, continuing without:", err)
		} else {
			username, password = creds.Username, creds.Password
		}
	}

	m := &Manager{
		config:    cfg,
		logger:    logger,
		cache:     c,
		provider:  provider,
		anilist:   metadata.NewAniListClient(cfg.AniList.Enabled, c, logger),
		subs:      subtitles.NewClient(cfg.OpenSubtitles.APIKey, username, password, c, logger),
		embedarr:  streams.NewEmbedarrClient(cfg.Embedarr.URL, c, logger),
		aiostream: stremio.NewAIOStreamsClient(cfg.AIOStreams.URL, c, logger),
		store:     library.NewStore(db),
		hub:       NewHub(),
		scheduler: cron.New(),
	}

	if cfg.Notifications.PushbulletAPIKey != "" {
		m.notifier = notifications.NewPushbulletClient(cfg.Notifications.PushbulletAPIKey, logger)
	}

	return m, nil
}

func (m *Manager) Provider() catalog.Provider {
	return m.provider
}

func (m *Manager) AniList() *metadata.AniListClient {
	return m.anilist
}

func (m *Manager) Subtitles() *subtitles.Client {
	return m.subs
}

func (m *Manager) Embedarr() *streams.EmbedarrClient {
	return m.embedarr
}

func (m *Manager) AIOStreams() *stremio.AIOStreamsClient {
	return m.aiostream
}

func (m *Manager) Store() *library.Store {
	return m.store
}

func (m *Manager) Hub() *Hub {
	return m.hub
}

func (m *Manager) Notifier() notifications.Notifier {
	return m.notifier
}

// StartScheduler registers the periodic jobs and starts the cron loop.
func (m *Manager) StartScheduler() {
	m.scheduler.AddFunc("@every 1h", m.compactCache)
	m.scheduler.AddFunc(fmt.Sprintf("@every %s", m.config.RefreshInterval()), m.RefreshLibrary)
	m.scheduler.Start()
	m.logger.Info("Scheduler started")
}

func (m *Manager) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}

func (m *Manager) compactCache() {
	dropped := m.cache.Compact()
	if dropped > 0 {
		m.logger.Debug("Cache compaction dropped", dropped, "entries")
	}
}

// AddToLibrary saves a catalog item and, when a stream URL is known, writes
// its stream-reference file.
func (m *Manager) AddToLibrary(item catalog.CatalogItem, streamURL string) (*library.Item, error) {
	rec := &library.Item{
		CatalogID: item.ID,
		Source:    item.Source,
		Type:      item.Type,
		ImdbID:    item.ImdbID,
		Name:      item.Name,
		Year:      item.Year,
		Rating:    item.Rating,
	}
	if item.TmdbID > 0 {
		rec.TmdbID = &item.TmdbID
	}
	if item.TvdbID > 0 {
		rec.TvdbID = &item.TvdbID
	}
	if item.Overview != "" {
		rec.Overview = &item.Overview
	}
	if item.PosterURL != "" {
		rec.PosterURL = &item.PosterURL
	}
	if streamURL != "" {
		rec.StreamURL = &streamURL
	}

	if err := m.store.Create(rec); err != nil {
		return nil, fmt.Errorf("saving library item: %w", err)
	}

	if streamURL != "" {
		path, err := library.WriteStrm(m.config.Library.Path, rec, streamURL)
		if err != nil {
			m.logger.Error("Could not write strm file:", err)
		} else if err := m.store.SetStrmPath(rec.ID, path); err != nil {
			m.logger.Error("Could not record strm path:", err)
		}
	}

	m.hub.Publish(EventItemAdded, rec.Name)
	if m.notifier != nil {
		m.notifier.NotifyItemAdded(rec)
	}
	return rec, nil
}

// RemoveFromLibrary deletes an item; its strm file is left on disk so media
// centers can notice the removal on their own schedule.
func (m *Manager) RemoveFromLibrary(id int) error {
	item, err := m.store.GetByID(id)
	if err != nil {
		return err
	}
	if item == nil {
		return nil
	}
	if err := m.store.Delete(id); err != nil {
		return err
	}
	m.hub.Publish(EventItemRemoved, item.Name)
	return nil
}

// RefreshLibrary re-fetches metadata for every stored item. Items whose
// provider lookup comes back empty are counted as failed but kept.
func (m *Manager) RefreshLibrary() {
	items, err := m.store.GetAll()
	if err != nil {
		m.logger.Error("Library refresh aborted:", err)
		return
	}
	if len(items) == 0 {
		return
	}

	m.logger.Info("Refreshing metadata for", len(items), "library items")
	m.hub.Publish(EventRefreshStarted, fmt.Sprintf("%d items", len(items)))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	refreshed, failed := 0, 0
	for i := range items {
		item := &items[i]

		var details *catalog.CatalogItemDetails
		switch item.Type {
		case catalog.MediaTypeMovie:
			details = m.provider.GetMovieDetails(ctx, item.CatalogID)
		case catalog.MediaTypeSeries:
			details = m.provider.GetSeriesDetails(ctx, item.CatalogID)
		}
		if details == nil {
			failed++
			continue
		}

		var overview, poster *string
		if details.Overview != "" {
			overview = &details.Overview
		}
		if details.PosterURL != "" {
			poster = &details.PosterURL
		}
		if err := m.store.MarkRefreshed(item.ID, details.Name, overview, poster, details.Rating); err != nil {
			m.logger.Error("Could not update", item.Name, ":", err)
			failed++
			continue
		}
		refreshed++
	}

	m.logger.Info("Library refresh finished:", refreshed, "refreshed,", failed, "failed")
	m.hub.Publish(EventRefreshDone, fmt.Sprintf("%d refreshed, %d failed", refreshed, failed))
	if m.notifier != nil && failed > 0 {
		if refreshed == 0 {
			// Not one lookup succeeded, so the provider itself is down
			// rather than individual items being stale.
			m.notifier.NotifyUpstreamDown(m.provider.Name())
		} else {
			m.notifier.NotifyRefreshComplete(refreshed, failed)
		}
	}
}

// SearchCatalog runs a provider search for one content type. AniList results
// are appended for series searches when the anime client is enabled.
func (m *Manager) SearchCatalog(ctx context.Context, mediaType catalog.MediaType, query string) []catalog.CatalogItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return []catalog.CatalogItem{}
	}

	var items []catalog.CatalogItem
	switch mediaType {
	case catalog.MediaTypeMovie:
		items = m.provider.SearchMovies(ctx, query)
	case catalog.MediaTypeSeries:
		items = m.provider.SearchSeries(ctx, query)
	}
	if items == nil {
		items = []catalog.CatalogItem{}
	}

	if mediaType == catalog.MediaTypeSeries && m.anilist.IsConfigured() {
		items = append(items, m.animeResults(ctx, query, len(items))...)
	}
	return items
}

// animeResults maps AniList media into catalog items, skipping entries the
// primary provider already returned by name.
func (m *Manager) animeResults(ctx context.Context, query string, have int) []catalog.CatalogItem {
	max := m.config.Catalog.MaxResults - have
	if max <= 0 {
		return nil
	}

	var items []catalog.CatalogItem
	for _, media := range m.anilist.SearchAnime(ctx, query, max) {
		items = append(items, catalog.ItemFromAniList(media))
	}
	return items
}
