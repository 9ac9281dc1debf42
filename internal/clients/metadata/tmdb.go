package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"strmhub/internal/cache"
	"strmhub/internal/clients"
	"strmhub/internal/utils"
)

const (
	tmdbBaseURL = "https://api.themoviedb.org/3"
	// Fallback when the configuration endpoint cannot be reached; matches
	// the asset host TMDB has used for years.
	tmdbDefaultImageBase = "https://image.tmdb.org/t/p/"

	tmdbPosterSize   = "w500"
	tmdbBackdropSize = "w780"
	tmdbProfileSize  = "w185"
)

// TMDBClient talks to a TMDB-like REST API. Credentials travel as an api_key
// query parameter, not a bearer header. The image base URL is resolved from
// /configuration once per process, lazily, under a double-checked lock.
type TMDBClient struct {
	apiKey     string
	language   string
	httpClient *http.Client
	cache      *cache.Cache
	logger     *utils.Logger
	limiter    *rate.Limiter

	imageBase atomic.Pointer[string]
	imageMu   sync.Mutex
}

func NewTMDBClient(apiKey, language string, c *cache.Cache, logger *utils.Logger) *TMDBClient {
	if language == "" {
		language = "en-US"
	}
	return &TMDBClient{
		apiKey:   apiKey,
		language: language,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache:  c,
		logger: logger,
		// 40 requests per 10 seconds, slightly under the documented limit.
		limiter: rate.NewLimiter(rate.Every(10*time.Second/40), 40),
	}
}

// SetHTTPClient replaces the transport; used by tests.
func (t *TMDBClient) SetHTTPClient(hc *http.Client) { t.httpClient = hc }

func (t *TMDBClient) IsConfigured() bool {
	return t.apiKey != ""
}

// --- wire shapes ---

type TMDBMovieResult struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	ReleaseDate      string  `json:"release_date"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	VoteAverage      float64 `json:"vote_average"`
	OriginalLanguage string  `json:"original_language"`
	GenreIDs         []int   `json:"genre_ids"`
}

type TMDBSeriesResult struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	OriginalName     string  `json:"original_name"`
	Overview         string  `json:"overview"`
	FirstAirDate     string  `json:"first_air_date"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	VoteAverage      float64 `json:"vote_average"`
	OriginalLanguage string  `json:"original_language"`
}

type TMDBGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type TMDBCastMember struct {
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type TMDBCrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

type TMDBCredits struct {
	Cast []TMDBCastMember `json:"cast"`
	Crew []TMDBCrewMember `json:"crew"`
}

type TMDBMovie struct {
	ID                  int         `json:"id"`
	ImdbID              string      `json:"imdb_id"`
	Title               string      `json:"title"`
	OriginalTitle       string      `json:"original_title"`
	Overview            string      `json:"overview"`
	Tagline             string      `json:"tagline"`
	Status              string      `json:"status"`
	ReleaseDate         string      `json:"release_date"`
	Runtime             int         `json:"runtime"`
	PosterPath          string      `json:"poster_path"`
	BackdropPath        string      `json:"backdrop_path"`
	VoteAverage         float64     `json:"vote_average"`
	OriginalLanguage    string      `json:"original_language"`
	Genres              []TMDBGenre `json:"genres"`
	ProductionCompanies []struct {
		Name string `json:"name"`
	} `json:"production_companies"`
	ProductionCountries []struct {
		Name string `json:"name"`
	} `json:"production_countries"`
	Credits TMDBCredits `json:"credits"`
}

type TMDBSeries struct {
	ID               int         `json:"id"`
	Name             string      `json:"name"`
	OriginalName     string      `json:"original_name"`
	Overview         string      `json:"overview"`
	Tagline          string      `json:"tagline"`
	Status           string      `json:"status"`
	FirstAirDate     string      `json:"first_air_date"`
	EpisodeRunTime   []int       `json:"episode_run_time"`
	PosterPath       string      `json:"poster_path"`
	BackdropPath     string      `json:"backdrop_path"`
	VoteAverage      float64     `json:"vote_average"`
	OriginalLanguage string      `json:"original_language"`
	Genres           []TMDBGenre `json:"genres"`
	Networks         []struct {
		Name string `json:"name"`
	} `json:"networks"`
	OriginCountry []string    `json:"origin_country"`
	Credits       TMDBCredits `json:"credits"`
	ExternalIDs   struct {
		ImdbID string `json:"imdb_id"`
		TvdbID int    `json:"tvdb_id"`
	} `json:"external_ids"`
}

// --- operations ---

// SearchMovies returns up to maxResults raw movie results. Missing
// configuration and upstream failures both surface as an empty slice; only
// the latter is logged.
func (t *TMDBClient) SearchMovies(ctx context.Context, query string, maxResults int) []TMDBMovieResult {
	if !t.IsConfigured() || query == "" {
		return nil
	}

	key := cache.Key("tmdb_search_movie", query, t.language)
	if v, ok := t.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return limitSlice(v.([]TMDBMovieResult), maxResults)
	}

	var resp struct {
		Results []TMDBMovieResult `json:"results"`
	}
	params := url.Values{}
	params.Set("query", query)
	err := t.doGET(ctx, "/search/movie", params, &resp)
	if err != nil {
		t.handleLookupErr("movie search", key, err)
		return nil
	}

	t.cache.Set(key, resp.Results, 0)
	return limitSlice(resp.Results, maxResults)
}

// SearchSeries returns up to maxResults raw series results.
func (t *TMDBClient) SearchSeries(ctx context.Context, query string, maxResults int) []TMDBSeriesResult {
	if !t.IsConfigured() || query == "" {
		return nil
	}

	key := cache.Key("tmdb_search_tv", query, t.language)
	if v, ok := t.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return limitSlice(v.([]TMDBSeriesResult), maxResults)
	}

	var resp struct {
		Results []TMDBSeriesResult `json:"results"`
	}
	params := url.Values{}
	params.Set("query", query)
	err := t.doGET(ctx, "/search/tv", params, &resp)
	if err != nil {
		t.handleLookupErr("series search", key, err)
		return nil
	}

	t.cache.Set(key, resp.Results, 0)
	return limitSlice(resp.Results, maxResults)
}

// GetMovie fetches full movie details with credits. Returns nil when the
// movie does not exist or the upstream is unavailable.
func (t *TMDBClient) GetMovie(ctx context.Context, id int) *TMDBMovie {
	if !t.IsConfigured() || id <= 0 {
		return nil
	}

	key := cache.Key("tmdb_movie", strconv.Itoa(id), t.language)
	if v, ok := t.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		m := v.(TMDBMovie)
		return &m
	}

	var movie TMDBMovie
	params := url.Values{}
	params.Set("append_to_response", "credits")
	err := t.doGET(ctx, "/movie/"+strconv.Itoa(id), params, &movie)
	if err != nil {
		t.handleLookupErr("movie details", key, err)
		return nil
	}

	t.cache.Set(key, movie, 0)
	return &movie
}

// GetSeries fetches full series details with credits and external ids.
func (t *TMDBClient) GetSeries(ctx context.Context, id int) *TMDBSeries {
	if !t.IsConfigured() || id <= 0 {
		return nil
	}

	key := cache.Key("tmdb_tv", strconv.Itoa(id), t.language)
	if v, ok := t.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		s := v.(TMDBSeries)
		return &s
	}

	var series TMDBSeries
	params := url.Values{}
	params.Set("append_to_response", "credits,external_ids")
	err := t.doGET(ctx, "/tv/"+strconv.Itoa(id), params, &series)
	if err != nil {
		t.handleLookupErr("series details", key, err)
		return nil
	}

	t.cache.Set(key, series, 0)
	return &series
}

// ImageBase returns the asset base URL, resolving it from /configuration on
// first use. Lock-free once resolved; concurrent first callers race to the
// mutex and the loser reuses the winner's value.
func (t *TMDBClient) ImageBase(ctx context.Context) string {
	if base := t.imageBase.Load(); base != nil {
		return *base
	}

	t.imageMu.Lock()
	defer t.imageMu.Unlock()
	if base := t.imageBase.Load(); base != nil {
		return *base
	}

	var resp struct {
		Images struct {
			SecureBaseURL string `json:"secure_base_url"`
		} `json:"images"`
	}
	if err := t.doGET(ctx, "/configuration", nil, &resp); err != nil || resp.Images.SecureBaseURL == "" {
		if err != nil {
			t.logger.Error("tmdb: configuration fetch failed, using default image base:", err)
		}
		// Not stored: a later call may still resolve the real value.
		return tmdbDefaultImageBase
	}

	base := resp.Images.SecureBaseURL
	t.imageBase.Store(&base)
	return base
}

// PosterURL builds a full poster URL from a provider-relative path.
func (t *TMDBClient) PosterURL(ctx context.Context, path string) string {
	return t.imageURL(ctx, tmdbPosterSize, path)
}

func (t *TMDBClient) BackdropURL(ctx context.Context, path string) string {
	return t.imageURL(ctx, tmdbBackdropSize, path)
}

func (t *TMDBClient) ProfileURL(ctx context.Context, path string) string {
	return t.imageURL(ctx, tmdbProfileSize, path)
}

func (t *TMDBClient) imageURL(ctx context.Context, size, path string) string {
	if path == "" {
		return ""
	}
	return t.ImageBase(ctx) + size + path
}

// --- plumbing ---

func (t *TMDBClient) doGET(ctx context.Context, path string, params url.Values, dest any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", t.apiKey)
	params.Set("language", t.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tmdbBaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return clients.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: tmdb %s: %s", clients.ErrUpstream, path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: decode %s: %v", clients.ErrUpstream, path, err)
	}
	return nil
}

// handleLookupErr applies the caching rules of the error taxonomy: definitive
// 404s are cached negatively, transient failures are only logged.
func (t *TMDBClient) handleLookupErr(op, key string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, clients.ErrNotFound) {
		t.cache.SetNegative(key, 0)
		return
	}
	t.logger.Error("tmdb:", op, "failed:", err)
}

func limitSlice[T any](s []T, max int) []T {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}
