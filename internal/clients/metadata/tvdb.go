package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"strmhub/internal/cache"
	"strmhub/internal/clients"
	"strmhub/internal/utils"
)

const tvdbBaseURL = "https://api4.thetvdb.com/v4"

// Issued tokens live a day; we refresh an hour early so a token never goes
// stale mid-request.
const tvdbTokenLifetime = 23 * time.Hour

type tvdbToken struct {
	value  string
	expiry time.Time
}

// TVDBClient talks to a TVDB-like REST API with bearer-token auth. The token
// is refreshed under a per-instance lock, with a lock-free fast path for the
// common valid-token case.
type TVDBClient struct {
	apiKey     string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *utils.Logger

	token   atomic.Pointer[tvdbToken]
	tokenMu sync.Mutex
}

func NewTVDBClient(apiKey string, c *cache.Cache, logger *utils.Logger) *TVDBClient {
	return &TVDBClient{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache:  c,
		logger: logger,
	}
}

func (t *TVDBClient) SetHTTPClient(hc *http.Client) { t.httpClient = hc }

func (t *TVDBClient) IsConfigured() bool {
	return t.apiKey != ""
}

// --- wire shapes ---

type TVDBSearchResult struct {
	TvdbID          string            `json:"tvdb_id"`
	Name            string            `json:"name"`
	Overview        string            `json:"overview"`
	ImageURL        string            `json:"image_url"`
	Year            string            `json:"year"`
	Type            string            `json:"type"`
	Country         string            `json:"country"`
	PrimaryLanguage string            `json:"primary_language"`
	Genres          []string          `json:"genres"`
	RemoteIDs       []TVDBRemoteID    `json:"remote_ids"`
	Translations    map[string]string `json:"translations"`
}

type TVDBRemoteID struct {
	ID         string `json:"id"`
	SourceName string `json:"sourceName"`
}

type TVDBSeries struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	Year         string  `json:"year"`
	Image        string  `json:"image"`
	Score        float64 `json:"score"`
	Country      string  `json:"country"`
	OriginalLanguage string `json:"originalLanguage"`
	AverageRuntime   int    `json:"averageRuntime"`
	Status       struct {
		Name string `json:"name"`
	} `json:"status"`
	FirstAired string `json:"firstAired"`
	Genres     []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Companies []struct {
		Name string `json:"name"`
	} `json:"companies"`
	Characters []TVDBCharacter `json:"characters"`
	Seasons    []TVDBSeason    `json:"seasons"`
	RemoteIDs  []TVDBRemoteID  `json:"remoteIds"`
	Artworks   []struct {
		Image string `json:"image"`
		Type  int    `json:"type"`
	} `json:"artworks"`
}

type TVDBCharacter struct {
	Name       string `json:"name"`
	PersonName string `json:"personName"`
	Image      string `json:"image"`
	Sort       int    `json:"sort"`
	PeopleType string `json:"peopleType"`
}

type TVDBSeason struct {
	ID     int    `json:"id"`
	Number int    `json:"number"`
	Name   string `json:"name"`
	Image  string `json:"image"`
	Type   struct {
		Type string `json:"type"`
	} `json:"type"`
}

type TVDBEpisode struct {
	ID             int    `json:"id"`
	SeasonNumber   int    `json:"seasonNumber"`
	Number         int    `json:"number"`
	AbsoluteNumber int    `json:"absoluteNumber"`
	Name           string `json:"name"`
	Overview       string `json:"overview"`
	Aired          string `json:"aired"`
	Runtime        int    `json:"runtime"`
	Image          string `json:"image"`
}

type TVDBTranslation struct {
	Language string `json:"language"`
	Name     string `json:"name"`
	Overview string `json:"overview"`
}

// --- token lifecycle ---

// getToken returns a valid bearer token, refreshing it if needed. An empty
// string with a nil error means the client is unconfigured; callers treat
// that as not-configured rather than an auth failure. A refresh failure
// leaves any previously stored token untouched so a transient login problem
// does not kill an otherwise live session.
func (t *TVDBClient) getToken(ctx context.Context) (string, error) {
	if t.apiKey == "" {
		return "", nil
	}

	if tok := t.token.Load(); tok != nil && time.Now().Before(tok.expiry) {
		return tok.value, nil
	}

	t.tokenMu.Lock()
	defer t.tokenMu.Unlock()

	// Another caller may have refreshed while this one waited on the lock.
	if tok := t.token.Load(); tok != nil && time.Now().Before(tok.expiry) {
		return tok.value, nil
	}

	body, _ := json.Marshal(map[string]string{"apikey": t.apiKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tvdbBaseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: tvdb login: %v", clients.ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: tvdb login: %s", clients.ErrUpstream, resp.Status)
	}

	var data struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("%w: tvdb login decode: %v", clients.ErrUpstream, err)
	}

	t.token.Store(&tvdbToken{value: data.Data.Token, expiry: time.Now().Add(tvdbTokenLifetime)})
	return data.Data.Token, nil
}

// --- operations ---

// SearchSeries returns up to maxResults raw search rows.
func (t *TVDBClient) SearchSeries(ctx context.Context, query string, maxResults int) []TVDBSearchResult {
	if !t.IsConfigured() || query == "" {
		return nil
	}

	key := cache.Key("tvdb_search_series", query)
	if v, ok := t.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return limitSlice(v.([]TVDBSearchResult), maxResults)
	}

	var resp struct {
		Data []TVDBSearchResult `json:"data"`
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", "series")
	if err := t.doGET(ctx, "/search", params, &resp); err != nil {
		t.handleLookupErr("series search", key, err)
		return nil
	}

	t.cache.Set(key, resp.Data, 0)
	return limitSlice(resp.Data, maxResults)
}

// GetSeries fetches the extended series record.
func (t *TVDBClient) GetSeries(ctx context.Context, id int) *TVDBSeries {
	if !t.IsConfigured() || id <= 0 {
		return nil
	}

	key := cache.Key("tvdb_series", strconv.Itoa(id))
	if v, ok := t.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		s := v.(TVDBSeries)
		return &s
	}

	var resp struct {
		Data TVDBSeries `json:"data"`
	}
	if err := t.doGET(ctx, "/series/"+strconv.Itoa(id)+"/extended", nil, &resp); err != nil {
		t.handleLookupErr("series details", key, err)
		return nil
	}

	t.cache.Set(key, resp.Data, 0)
	return &resp.Data
}

// GetEpisodes walks the paged official episode listing of a series.
func (t *TVDBClient) GetEpisodes(ctx context.Context, seriesID int) []TVDBEpisode {
	if !t.IsConfigured() || seriesID <= 0 {
		return nil
	}

	key := cache.Key("tvdb_episodes", strconv.Itoa(seriesID))
	if v, ok := t.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return v.([]TVDBEpisode)
	}

	endpoint := fmt.Sprintf("/series/%d/episodes/official", seriesID)
	episodes := make([]TVDBEpisode, 0, 50)
	for page := 0; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))

		var resp struct {
			Data struct {
				Episodes []TVDBEpisode `json:"episodes"`
			} `json:"data"`
			Links struct {
				Next *string `json:"next"`
			} `json:"links"`
		}
		if err := t.doGET(ctx, endpoint, params, &resp); err != nil {
			t.handleLookupErr("episodes", key, err)
			return nil
		}
		episodes = append(episodes, resp.Data.Episodes...)
		if resp.Links.Next == nil || strings.TrimSpace(*resp.Links.Next) == "" {
			break
		}
	}

	t.cache.Set(key, episodes, 0)
	return episodes
}

// GetSeriesTranslation fetches the localized name/overview of a series.
// Returns nil both when no translation exists (cached negatively) and on
// transient failure (not cached).
func (t *TVDBClient) GetSeriesTranslation(ctx context.Context, seriesID int, lang string) *TVDBTranslation {
	return t.getTranslation(ctx, "series", seriesID, lang)
}

// GetEpisodeTranslation fetches the localized name/overview of one episode.
// A series may need a hundred-plus of these per detail lookup, so each is
// cached individually, misses included.
func (t *TVDBClient) GetEpisodeTranslation(ctx context.Context, episodeID int, lang string) *TVDBTranslation {
	return t.getTranslation(ctx, "episodes", episodeID, lang)
}

func (t *TVDBClient) getTranslation(ctx context.Context, kind string, id int, lang string) *TVDBTranslation {
	if !t.IsConfigured() || id <= 0 || lang == "" {
		return nil
	}

	key := cache.Key("tvdb_translation", kind, strconv.Itoa(id), lang)
	if v, ok := t.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		tr := v.(TVDBTranslation)
		return &tr
	}

	var resp struct {
		Data TVDBTranslation `json:"data"`
	}
	endpoint := fmt.Sprintf("/%s/%d/translations/%s", kind, id, lang)
	if err := t.doGET(ctx, endpoint, nil, &resp); err != nil {
		t.handleLookupErr(kind+" translation", key, err)
		return nil
	}

	// An entry with neither name nor overview is as good as no translation.
	if strings.TrimSpace(resp.Data.Name) == "" && strings.TrimSpace(resp.Data.Overview) == "" {
		t.cache.SetNegative(key, 0)
		return nil
	}

	t.cache.Set(key, resp.Data, 0)
	return &resp.Data
}

// --- plumbing ---

func (t *TVDBClient) doGET(ctx context.Context, path string, params url.Values, dest any) error {
	token, err := t.getToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return clients.ErrNotConfigured
	}

	u := tvdbBaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: tvdb %s: %v", clients.ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return clients.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: tvdb %s: %s", clients.ErrUpstream, path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode %s: %v", clients.ErrUpstream, path, err)
	}
	return nil
}

func (t *TVDBClient) handleLookupErr(op, key string, err error) {
	if err == nil || errors.Is(err, clients.ErrNotConfigured) {
		return
	}
	if errors.Is(err, clients.ErrNotFound) {
		t.cache.SetNegative(key, 0)
		return
	}
	t.logger.Error("tvdb:", op, "failed:", err)
}
