// Package stremio implements a client for Stremio-compatible addon
// endpoints: manifest discovery, catalog search and meta lookups.
package stremio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"strmhub/internal/cache"
	"strmhub/internal/clients"
	"strmhub/internal/utils"
)

// addonTimeout caps every addon call so one slow endpoint cannot stall the
// whole aggregation.
const addonTimeout = 30 * time.Second

type Manifest struct {
	ID          string    `json:"id"`
	Version     string    `json:"version"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Types       []string  `json:"types"`
	Resources   []string  `json:"resources"`
	Catalogs    []Catalog `json:"catalogs"`
	IDPrefixes  []string  `json:"idPrefixes,omitempty"`
}

type Catalog struct {
	Type  string       `json:"type"`
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Extra []ExtraField `json:"extra,omitempty"`
}

type ExtraField struct {
	Name       string `json:"name"`
	IsRequired bool   `json:"isRequired,omitempty"`
}

// Meta is an addon catalog/meta entry. Cast, Director and Country come back
// as either a scalar or an array depending on the addon, hence the raw
// payloads; use the catalog normalizer to flatten them.
type Meta struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Poster      string          `json:"poster,omitempty"`
	Background  string          `json:"background,omitempty"`
	Description string          `json:"description,omitempty"`
	ReleaseInfo string          `json:"releaseInfo,omitempty"`
	IMDBRating  json.Number     `json:"imdbRating,omitempty"`
	Runtime     string          `json:"runtime,omitempty"`
	Genres      []string        `json:"genres,omitempty"`
	Cast        json.RawMessage `json:"cast,omitempty"`
	Director    json.RawMessage `json:"director,omitempty"`
	Country     json.RawMessage `json:"country,omitempty"`
	Language    string          `json:"language,omitempty"`
	Videos      []Video         `json:"videos,omitempty"`
}

type Video struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Season    int    `json:"season"`
	Episode   int    `json:"episode"`
	Released  string `json:"released,omitempty"`
	Overview  string `json:"overview,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type catalogResponse struct {
	Metas []Meta `json:"metas"`
}

type metaResponse struct {
	Meta *Meta `json:"meta"`
}

// AddonClient speaks the addon protocol against one configured base URL.
type AddonClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *utils.Logger
}

// NewAddonClient accepts the addon base URL as users paste it; a trailing
// manifest.json suffix is stripped.
func NewAddonClient(baseURL string, c *cache.Cache, logger *utils.Logger) *AddonClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimSuffix(baseURL, "/manifest.json")
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &AddonClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: addonTimeout,
		},
		cache:  c,
		logger: logger,
	}
}

func (a *AddonClient) SetHTTPClient(hc *http.Client) { a.httpClient = hc }

func (a *AddonClient) IsConfigured() bool {
	return a.baseURL != ""
}

func (a *AddonClient) BaseURL() string { return a.baseURL }

// Manifest fetches and caches the addon manifest.
func (a *AddonClient) Manifest(ctx context.Context) *Manifest {
	if !a.IsConfigured() {
		return nil
	}

	key := cache.Key("stremio_manifest", a.baseURL)
	if v, ok := a.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		m := v.(Manifest)
		return &m
	}

	var m Manifest
	if err := a.doGET(ctx, "/manifest.json", &m); err != nil {
		a.handleLookupErr("manifest", key, err)
		return nil
	}

	a.cache.Set(key, m, 0)
	return &m
}

// SearchCatalog issues the addon's search catalog request for one content
// type and returns the raw metas.
func (a *AddonClient) SearchCatalog(ctx context.Context, contentType, catalogID, query string) []Meta {
	if !a.IsConfigured() || query == "" {
		return nil
	}
	if catalogID == "" {
		catalogID = a.searchableCatalogID(ctx, contentType)
		if catalogID == "" {
			return nil
		}
	}

	key := cache.Key("stremio_catalog", a.baseURL, contentType, catalogID, query)
	if v, ok := a.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return v.([]Meta)
	}

	path := fmt.Sprintf("/catalog/%s/%s/search=%s.json",
		url.PathEscape(contentType), url.PathEscape(catalogID), url.PathEscape(query))
	var resp catalogResponse
	if err := a.doGET(ctx, path, &resp); err != nil {
		a.handleLookupErr("catalog search", key, err)
		return nil
	}

	a.cache.Set(key, resp.Metas, 0)
	return resp.Metas
}

// Meta fetches one item by the addon's native id.
func (a *AddonClient) Meta(ctx context.Context, contentType, id string) *Meta {
	if !a.IsConfigured() || id == "" {
		return nil
	}

	key := cache.Key("stremio_meta", a.baseURL, contentType, id)
	if v, ok := a.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		m := v.(Meta)
		return &m
	}

	path := fmt.Sprintf("/meta/%s/%s.json", url.PathEscape(contentType), url.PathEscape(id))
	var resp metaResponse
	if err := a.doGET(ctx, path, &resp); err != nil {
		a.handleLookupErr("meta", key, err)
		return nil
	}
	if resp.Meta == nil {
		a.cache.SetNegative(key, 0)
		return nil
	}

	a.cache.Set(key, *resp.Meta, 0)
	return resp.Meta
}

// searchableCatalogID picks the first catalog of the requested type that
// declares search support, falling back to the first catalog of that type.
func (a *AddonClient) searchableCatalogID(ctx context.Context, contentType string) string {
	m := a.Manifest(ctx)
	if m == nil {
		return ""
	}
	first := ""
	for _, c := range m.Catalogs {
		if c.Type != contentType {
			continue
		}
		if first == "" {
			first = c.ID
		}
		for _, extra := range c.Extra {
			if extra.Name == "search" {
				return c.ID
			}
		}
	}
	return first
}

func (a *AddonClient) doGET(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: addon %s: %v", clients.ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return clients.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: addon %s: %s", clients.ErrUpstream, path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: addon decode %s: %v", clients.ErrUpstream, path, err)
	}
	return nil
}

func (a *AddonClient) handleLookupErr(op, key string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, clients.ErrNotFound) {
		a.cache.SetNegative(key, 0)
		return
	}
	a.logger.Error("stremio:", op, "failed:", err)
}
