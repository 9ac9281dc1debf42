package stremio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"strmhub/internal/cache"
	"strmhub/internal/utils"
)

// Stream is one playable source reported by a stream-resolving addon.
type Stream struct {
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	InfoHash    string `json:"infoHash,omitempty"`
	BehaviorHints struct {
		Filename string `json:"filename,omitempty"`
	} `json:"behaviorHints,omitempty"`
}

type streamResponse struct {
	Streams []Stream `json:"streams"`
}

// AIOStreamsClient resolves playable streams through an AIOStreams-style
// aggregator, which itself speaks the addon stream protocol.
type AIOStreamsClient struct {
	baseURL    string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *utils.Logger
}

func NewAIOStreamsClient(baseURL string, c *cache.Cache, logger *utils.Logger) *AIOStreamsClient {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimSuffix(baseURL, "/manifest.json")
	baseURL = strings.TrimSuffix(baseURL, "/")
	return &AIOStreamsClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: addonTimeout,
		},
		cache:  c,
		logger: logger,
	}
}

func (a *AIOStreamsClient) SetHTTPClient(hc *http.Client) { a.httpClient = hc }

func (a *AIOStreamsClient) IsConfigured() bool {
	return a.baseURL != ""
}

// Streams looks up playable sources for an id in the addon's native format
// (e.g. "tt0133093" or "tt0944947:1:1" for an episode).
func (a *AIOStreamsClient) Streams(ctx context.Context, contentType, id string) []Stream {
	if !a.IsConfigured() || id == "" {
		return nil
	}

	key := cache.Key("aiostreams", a.baseURL, contentType, id)
	if v, ok := a.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return v.([]Stream)
	}

	path := fmt.Sprintf("/stream/%s/%s.json", url.PathEscape(contentType), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		a.logger.Error("aiostreams: bad request:", err)
		return nil
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Error("aiostreams: stream lookup failed:", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		a.cache.SetNegative(key, 0)
		return nil
	}
	if resp.StatusCode >= 300 {
		a.logger.Error("aiostreams: stream lookup failed:", resp.Status)
		return nil
	}

	var sr streamResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		a.logger.Error("aiostreams: decode failed:", err)
		return nil
	}

	a.cache.Set(key, sr.Streams, 0)
	return sr.Streams
}
