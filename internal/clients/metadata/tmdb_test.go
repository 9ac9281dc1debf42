package metadata

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"strmhub/internal/cache"
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

func newTMDBTestClient(t *testing.T, rt roundTripFunc) *TMDBClient {
	t.Helper()
	c := NewTMDBClient("test-key", "en-US", cache.New(time.Minute), utils.NewLoggerTo(io.Discard, false))
	c.SetHTTPClient(&http.Client{Transport: rt})
	return c
}

func TestTMDBSearchMoviesCachedWithinTTL(t *testing.T) {
	var calls int
	c := newTMDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key param = %q", got)
		}
		if got := r.URL.Query().Get("language"); got != "en-US" {
			t.Errorf("language param = %q", got)
		}
		return jsonResponse(200, `{"results":[{"id":603,"title":"The Matrix","vote_average":8.2}]}`), nil
	})

	first := c.SearchMovies(context.Background(), "Matrix", 10)
	second := c.SearchMovies(context.Background(), "matrix", 10)

	if calls != 1 {
		t.Fatalf("expected 1 upstream call (case-folded cache key), got %d", calls)
	}
	if len(first) != 1 || len(second) != 1 || first[0].ID != 603 {
		t.Fatalf("results = %v / %v", first, second)
	}
}

func TestTMDBMovieNotFoundCachedNegatively(t *testing.T) {
	var calls int
	c := newTMDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(404, `{"status_message":"not found"}`), nil
	})

	for i := 0; i < 3; i++ {
		if got := c.GetMovie(context.Background(), 999999); got != nil {
			t.Fatalf("expected nil for missing movie, got %+v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
}

func TestTMDBUpstreamErrorNotCached(t *testing.T) {
	var calls int
	c := newTMDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(503, `{}`), nil
	})

	c.GetMovie(context.Background(), 603)
	c.GetMovie(context.Background(), 603)

	if calls != 2 {
		t.Fatalf("transient failures must not be cached, got %d calls", calls)
	}
}

func TestTMDBImageBaseResolvedOnceAndRetriedOnFailure(t *testing.T) {
	var configCalls int
	failing := true
	c := newTMDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		if !strings.Contains(r.URL.Path, "/configuration") {
			t.Errorf("unexpected request %s", r.URL)
		}
		configCalls++
		if failing {
			return jsonResponse(503, `{}`), nil
		}
		return jsonResponse(200, `{"images":{"secure_base_url":"https://img.test/"}}`), nil
	})

	if got := c.ImageBase(context.Background()); got != tmdbDefaultImageBase {
		t.Fatalf("failed fetch should fall back to default base, got %q", got)
	}

	failing = false
	if got := c.ImageBase(context.Background()); got != "https://img.test/" {
		t.Fatalf("recovered fetch should return the real base, got %q", got)
	}

	// Resolved value is reused without another request.
	c.ImageBase(context.Background())
	if configCalls != 2 {
		t.Fatalf("expected 2 configuration calls, got %d", configCalls)
	}
}

func TestTMDBPosterURL(t *testing.T) {
	c := newTMDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"images":{"secure_base_url":"https://img.test/"}}`), nil
	})

	if got := c.PosterURL(context.Background(), "/p.jpg"); got != "https://img.test/w500/p.jpg" {
		t.Errorf("poster url = %q", got)
	}
	if got := c.PosterURL(context.Background(), ""); got != "" {
		t.Errorf("empty path must yield empty url, got %q", got)
	}
}

func TestTMDBSearchLimitsResults(t *testing.T) {
	c := newTMDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"results":[
			{"id":1,"title":"A"},{"id":2,"title":"B"},{"id":3,"title":"C"}
		]}`), nil
	})

	if got := c.SearchMovies(context.Background(), "abc", 2); len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
}
