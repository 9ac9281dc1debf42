// Package streams holds clients for embed-resolver content sources.
package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"strmhub/internal/cache"
	"strmhub/internal/utils"
)

// StreamLink is one playable embed link reported by the resolver.
type StreamLink struct {
	Provider string `json:"provider"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url"`
	Quality  string `json:"quality,omitempty"`
	Language string `json:"language,omitempty"`
}

// EmbedarrClient resolves embed stream links for an IMDb id through an
// Embedarr-compatible service.
type EmbedarrClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *utils.Logger
}

func NewEmbedarrClient(baseURL string, c *cache.Cache, logger *utils.Logger) *EmbedarrClient {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	return &EmbedarrClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:  c,
		logger: logger,
	}
}

func (e *EmbedarrClient) SetHTTPClient(hc *http.Client) { e.httpClient = hc }

func (e *EmbedarrClient) IsConfigured() bool {
	return e.baseURL != ""
}

// Streams resolves links for a movie (season and episode zero) or a single
// episode. Unconfigured clients and upstream failures both yield an empty
// result.
func (e *EmbedarrClient) Streams(ctx context.Context, imdbID string, season, episode int) []StreamLink {
	if !e.IsConfigured() || imdbID == "" {
		return nil
	}

	key := cache.Key("embedarr", imdbID, strconv.Itoa(season), strconv.Itoa(episode))
	if v, ok := e.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return v.([]StreamLink)
	}

	params := url.Values{}
	params.Set("imdb_id", imdbID)
	if season > 0 {
		params.Set("season", strconv.Itoa(season))
		params.Set("episode", strconv.Itoa(episode))
	}

	u := fmt.Sprintf("%s/api/v1/streams?%s", e.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		e.logger.Error("embedarr: bad request:", err)
		return nil
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.Error("embedarr: stream lookup failed:", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		e.cache.SetNegative(key, 0)
		return nil
	}
	if resp.StatusCode >= 300 {
		e.logger.Error("embedarr: stream lookup failed:", resp.Status)
		return nil
	}

	var links []StreamLink
	if err := json.NewDecoder(resp.Body).Decode(&links); err != nil {
		e.logger.Error("embedarr: decode failed:", err)
		return nil
	}

	e.cache.Set(key, links, 0)
	return links
}
