package core

import (
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"

	"strmhub/internal/catalog"
)

type SystemStatus struct {
	Provider       string `json:"provider"`
	MoviesReady    bool   `json:"movies_ready"`
	SeriesReady    bool   `json:"series_ready"`
	SubtitlesReady bool   `json:"subtitles_ready"`
	AnimeEnabled   bool   `json:"anime_enabled"`

	CacheEntries int `json:"cache_entries"`
	LibraryItems int `json:"library_items"`

	DiskFreeBytes uint64  `json:"disk_free_bytes,omitempty"`
	DiskUsedPct   float64 `json:"disk_used_pct,omitempty"`
	MemoryUsedPct float64 `json:"memory_used_pct,omitempty"`
}

// GetSystemStatus reports component readiness plus host disk and memory
// pressure for the library path.
func (m *Manager) GetSystemStatus() SystemStatus {
	status := SystemStatus{
		Provider:       m.provider.Name(),
		MoviesReady:    m.provider.IsConfigured(catalog.MediaTypeMovie),
		SeriesReady:    m.provider.IsConfigured(catalog.MediaTypeSeries),
		SubtitlesReady: m.subs.IsConfigured(),
		AnimeEnabled:   m.anilist.IsConfigured(),
		CacheEntries:   m.cache.Len(),
	}

	if items, err := m.store.GetAll(); err == nil {
		status.LibraryItems = len(items)
	}

	if usage, err := disk.Usage(m.config.Library.Path); err == nil {
		status.DiskFreeBytes = usage.Free
		status.DiskUsedPct = usage.UsedPercent
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status.MemoryUsedPct = vm.UsedPercent
	}

	return status
}
