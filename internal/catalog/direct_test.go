package catalog

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"strmhub/internal/cache"
	"strmhub/internal/clients/metadata"
	"strmhub/internal/config"
	"strmhub/internal/utils"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Catalog.Provider = "direct"
	cfg.Catalog.MovieSource = "tmdb"
	cfg.Catalog.SeriesSource = "tvdb"
	cfg.Catalog.MaxResults = 20
	return cfg
}

func TestDirectSearchMoviesUnconfigured(t *testing.T) {
	cfg := testConfig()
	c := cache.New(time.Minute)
	logger := utils.NewLoggerTo(io.Discard, false)
	tmdb := metadata.NewTMDBClient("", "", c, logger)
	tvdb := metadata.NewTVDBClient("", c, logger)

	p := NewDirectProvider(cfg, tmdb, tvdb, logger)
	got := p.SearchMovies(context.Background(), "matrix")
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestDirectSearchMoviesMapsAndCaches(t *testing.T) {
	var searchCalls int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.Contains(r.URL.Path, "/configuration"):
			return jsonResponse(200, `{"images":{"secure_base_url":"https://img.test/"}}`), nil
		case strings.Contains(r.URL.Path, "/search/movie"):
			searchCalls++
			return jsonResponse(200, `{"results":[
				{"id":603,"title":"The Matrix","original_title":"The Matrix","overview":"A hacker.","release_date":"1999-03-31","poster_path":"/p.jpg","vote_average":8.2,"original_language":"en"},
				{"id":604,"title":"The Matrix Reloaded","release_date":"2003-05-15","vote_average":0}
			]}`), nil
		}
		t.Errorf("unexpected request %s", r.URL)
		return jsonResponse(404, `{}`), nil
	})

	cfg := testConfig()
	c := cache.New(time.Minute)
	logger := utils.NewLoggerTo(io.Discard, false)
	tmdb := metadata.NewTMDBClient("key", "en-US", c, logger)
	tmdb.SetHTTPClient(&http.Client{Transport: rt})
	tvdb := metadata.NewTVDBClient("", c, logger)
	p := NewDirectProvider(cfg, tmdb, tvdb, logger)

	items := p.SearchMovies(context.Background(), "matrix")
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	first := items[0]
	if first.ID != "tmdb:603" || first.Source != SourceTmdb || first.TmdbID != 603 {
		t.Errorf("identity fields = %+v", first)
	}
	if first.OriginalName != "" {
		t.Errorf("original name %q should be omitted when equal to name", first.OriginalName)
	}
	if first.PosterURL != "https://img.test/w500/p.jpg" {
		t.Errorf("poster url = %q", first.PosterURL)
	}
	if first.Year == nil || *first.Year != 1999 {
		t.Errorf("year = %v", first.Year)
	}
	if items[1].Rating != nil {
		t.Errorf("zero vote average should map to nil rating, got %v", items[1].Rating)
	}
	if items[1].PosterURL != "" {
		t.Errorf("missing poster path should yield empty url, got %q", items[1].PosterURL)
	}

	p.SearchMovies(context.Background(), "Matrix")
	if searchCalls != 1 {
		t.Fatalf("expected 1 upstream search within TTL, got %d", searchCalls)
	}
}

func TestDirectSeriesDetailsWithTranslationOverlay(t *testing.T) {
	var translationCalls int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/login"):
			return jsonResponse(200, `{"data":{"token":"tok"}}`), nil
		case strings.HasSuffix(r.URL.Path, "/extended"):
			return jsonResponse(200, `{"data":{
				"id":81189,"name":"Breaking Bad","overview":"A teacher.","year":"2008",
				"status":{"name":"Ended"},
				"seasons":[{"id":1,"number":1,"name":"Season 1","type":{"type":"official"}}]
			}}`), nil
		case strings.Contains(r.URL.Path, "/episodes/official"):
			return jsonResponse(200, `{"data":{"episodes":[
				{"id":349232,"seasonNumber":1,"number":1,"name":"Pilot","runtime":58},
				{"id":349233,"seasonNumber":1,"number":2,"name":""}
			]},"links":{"next":null}}`), nil
		case strings.Contains(r.URL.Path, "/series/81189/translations/deu"):
			return jsonResponse(200, `{"data":{"language":"deu","name":"Breaking Bad DE","overview":"Ein Lehrer."}}`), nil
		case strings.Contains(r.URL.Path, "/episodes/349232/translations/deu"):
			translationCalls++
			return jsonResponse(200, `{"data":{"language":"deu","name":"Der Einstieg"}}`), nil
		case strings.Contains(r.URL.Path, "/episodes/349233/translations/deu"):
			translationCalls++
			return jsonResponse(404, `{}`), nil
		}
		t.Errorf("unexpected request %s", r.URL)
		return jsonResponse(404, `{}`), nil
	})

	cfg := testConfig()
	cfg.Catalog.Language = "deu"
	c := cache.New(time.Minute)
	logger := utils.NewLoggerTo(io.Discard, false)
	tvdb := metadata.NewTVDBClient("key", c, logger)
	tvdb.SetHTTPClient(&http.Client{Transport: rt})
	p := NewDirectProvider(cfg, metadata.NewTMDBClient("", "", c, logger), tvdb, logger)

	d := p.GetSeriesDetails(context.Background(), "tvdb:81189")
	if d == nil {
		t.Fatal("expected details")
	}
	if d.Name != "Breaking Bad DE" || d.OriginalName != "Breaking Bad" {
		t.Errorf("series translation overlay: name=%q original=%q", d.Name, d.OriginalName)
	}
	if d.Overview != "Ein Lehrer." {
		t.Errorf("overview = %q", d.Overview)
	}
	if len(d.Episodes) != 2 {
		t.Fatalf("episode count = %d", len(d.Episodes))
	}
	if d.Episodes[0].Name != "Der Einstieg" {
		t.Errorf("translated episode name = %q", d.Episodes[0].Name)
	}
	// Episode 2 had no translation; the synthesized fallback survives.
	if d.Episodes[1].Name != "Episode 2" {
		t.Errorf("fallback episode name = %q", d.Episodes[1].Name)
	}
	if d.Seasons[0].EpisodeCount != 2 {
		t.Errorf("season episode count = %d", d.Seasons[0].EpisodeCount)
	}

	// A second lookup serves everything from cache, including the 404
	// translation, so the upstream sees no further translation calls.
	before := translationCalls
	p.GetSeriesDetails(context.Background(), "tvdb:81189")
	if translationCalls != before {
		t.Fatalf("expected cached translations, got %d extra calls", translationCalls-before)
	}
}

func TestNumericID(t *testing.T) {
	tests := []struct {
		id     string
		source string
		want   int
	}{
		{"603", "tmdb", 603},
		{"tmdb:603", "tmdb", 603},
		{"tvdb:603", "tmdb", 0},
		{"tt0133093", "tmdb", 0},
		{"", "tmdb", 0},
	}
	for _, tt := range tests {
		if got := numericID(tt.id, tt.source); got != tt.want {
			t.Errorf("numericID(%q, %q) = %d, want %d", tt.id, tt.source, got, tt.want)
		}
	}
}
