// Package subtitles implements the OpenSubtitles-style subtitle service
// client: authenticated search and the two-step download flow.
package subtitles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"strmhub/internal/cache"
	"strmhub/internal/clients"
	"strmhub/internal/utils"
)

const osBaseURL = "https://api.opensubtitles.com/api/v1"

// Issued session tokens are valid for 30 days; refresh five days early.
const osTokenLifetime = 25 * 24 * time.Hour

type osToken struct {
	value  string
	expiry time.Time
}

// Client talks to an OpenSubtitles-like API. With an API key alone it runs
// in the throttled anonymous mode; adding user credentials switches search
// and download to the authenticated session.
type Client struct {
	apiKey   string
	username string
	password string

	httpClient *http.Client
	// plainClient fetches pre-authorized download links; those bypass the
	// API entirely, so no API key or token headers are attached.
	plainClient *http.Client
	cache       *cache.Cache
	logger      *utils.Logger

	// Anonymous requests are rate limited upstream; stay under it.
	anonLimiter *rate.Limiter

	token   atomic.Pointer[osToken]
	tokenMu sync.Mutex
}

func NewClient(apiKey, username, password string, c *cache.Cache, logger *utils.Logger) *Client {
	return &Client{
		apiKey:   apiKey,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		plainClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:       c,
		logger:      logger,
		anonLimiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

func (o *Client) SetHTTPClient(hc *http.Client)  { o.httpClient = hc }
func (o *Client) SetPlainClient(hc *http.Client) { o.plainClient = hc }

func (o *Client) IsConfigured() bool {
	return o.apiKey != ""
}

// Authenticated reports whether user credentials are present; without them
// the client still works in the rate-limited anonymous mode.
func (o *Client) Authenticated() bool {
	return o.username != "" && o.password != ""
}

// --- wire shapes ---

type Subtitle struct {
	ID         string `json:"id"`
	Attributes struct {
		Language        string  `json:"language"`
		Release         string  `json:"release"`
		DownloadCount   int     `json:"download_count"`
		Ratings         float64 `json:"ratings"`
		HearingImpaired bool    `json:"hearing_impaired"`
		Files           []struct {
			FileID   int    `json:"file_id"`
			FileName string `json:"file_name"`
		} `json:"files"`
	} `json:"attributes"`
}

// SearchParams narrows a subtitle search. Languages are normalized (sorted,
// lower-cased) before they reach the cache key or the wire.
type SearchParams struct {
	ImdbID    string
	Query     string
	Season    int
	Episode   int
	Languages []string
}

// --- token lifecycle ---

// getToken returns the session token, performing the login on first use and
// when the stored token is past its conservative expiry. Missing user
// credentials yield an empty token and no error: the caller proceeds
// anonymously. A failed refresh keeps the stale token in place.
func (o *Client) getToken(ctx context.Context) (string, error) {
	if !o.Authenticated() {
		return "", nil
	}

	if tok := o.token.Load(); tok != nil && time.Now().Before(tok.expiry) {
		return tok.value, nil
	}

	o.tokenMu.Lock()
	defer o.tokenMu.Unlock()

	if tok := o.token.Load(); tok != nil && time.Now().Before(tok.expiry) {
		return tok.value, nil
	}

	body, _ := json.Marshal(map[string]string{
		"username": o.username,
		"password": o.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, osBaseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: opensubtitles login: %v", clients.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: opensubtitles login: %s", clients.ErrUpstream, resp.Status)
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("%w: opensubtitles login decode: %v", clients.ErrUpstream, err)
	}

	o.token.Store(&osToken{value: data.Token, expiry: time.Now().Add(osTokenLifetime)})
	return data.Token, nil
}

// --- operations ---

// Search looks subtitles up by IMDb id or free-text query. Unconfigured
// clients return an empty list, never an error.
func (o *Client) Search(ctx context.Context, p SearchParams) []Subtitle {
	if !o.IsConfigured() {
		return nil
	}
	if p.ImdbID == "" && p.Query == "" {
		return nil
	}

	langs := normalizeLanguages(p.Languages)
	key := cache.KeySorted("ossub_search", langs,
		p.ImdbID, p.Query, strconv.Itoa(p.Season), strconv.Itoa(p.Episode))
	if v, ok := o.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return v.([]Subtitle)
	}

	params := url.Values{}
	if p.ImdbID != "" {
		params.Set("imdb_id", strings.TrimPrefix(p.ImdbID, "tt"))
	}
	if p.Query != "" {
		params.Set("query", strings.ToLower(p.Query))
	}
	if p.Season > 0 {
		params.Set("season_number", strconv.Itoa(p.Season))
		params.Set("episode_number", strconv.Itoa(p.Episode))
	}
	if len(langs) > 0 {
		params.Set("languages", strings.Join(langs, ","))
	}

	var resp struct {
		Data []Subtitle `json:"data"`
	}
	if err := o.doJSON(ctx, http.MethodGet, "/subtitles?"+params.Encode(), nil, &resp); err != nil {
		o.handleLookupErr("search", key, err)
		return nil
	}

	o.cache.Set(key, resp.Data, 0)
	return resp.Data
}

// Download fetches subtitle file content in two steps: an authenticated
// request for a time-limited link, then a plain fetch of that link. The
// link is pre-authorized, so the second step deliberately skips the API
// client. Content is cached for a day since published subtitles never
// change.
func (o *Client) Download(ctx context.Context, fileID int) []byte {
	if !o.IsConfigured() || fileID <= 0 {
		return nil
	}

	key := cache.Key("ossub_download", strconv.Itoa(fileID))
	if v, ok := o.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return v.([]byte)
	}

	body, _ := json.Marshal(map[string]int{"file_id": fileID})
	var linkResp struct {
		Link     string `json:"link"`
		FileName string `json:"file_name"`
	}
	if err := o.doJSON(ctx, http.MethodPost, "/download", bytes.NewReader(body), &linkResp); err != nil {
		o.handleLookupErr("download link", key, err)
		return nil
	}
	if linkResp.Link == "" {
		o.cache.SetNegative(key, cache.SubtitleTTL)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, linkResp.Link, nil)
	if err != nil {
		o.logger.Error("opensubtitles: bad download link:", err)
		return nil
	}
	resp, err := o.plainClient.Do(req)
	if err != nil {
		o.logger.Error("opensubtitles: content fetch failed:", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		o.logger.Error("opensubtitles: content fetch failed:", resp.Status)
		return nil
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		o.logger.Error("opensubtitles: content read failed:", err)
		return nil
	}

	o.cache.Set(key, content, cache.SubtitleTTL)
	return content
}

// --- plumbing ---

func (o *Client) doJSON(ctx context.Context, method, path string, body io.Reader, dest any) error {
	token, err := o.getToken(ctx)
	if err != nil {
		// Auth failure degrades to anonymous mode for this call rather
		// than failing it outright.
		o.logger.Error("opensubtitles: session refresh failed, proceeding anonymously:", err)
		token = ""
	}
	if token == "" {
		if err := o.anonLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", clients.ErrUpstream, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, osBaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}
	req.Header.Set("Api-Key", o.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "strmhub v1")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: opensubtitles %s: %v", clients.ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return clients.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: opensubtitles %s: %s", clients.ErrUpstream, path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: opensubtitles decode: %v", clients.ErrUpstream, err)
	}
	return nil
}

func (o *Client) handleLookupErr(op, key string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, clients.ErrNotFound) {
		o.cache.SetNegative(key, 0)
		return
	}
	o.logger.Error("opensubtitles:", op, "failed:", err)
}

func normalizeLanguages(langs []string) []string {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}
