package metadata

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"strmhub/internal/cache"
	"strmhub/internal/utils"
)

func newTVDBTestClient(t *testing.T, rt roundTripFunc) *TVDBClient {
	t.Helper()
	c := NewTVDBClient("test-key", cache.New(time.Minute), utils.NewLoggerTo(io.Discard, false))
	c.SetHTTPClient(&http.Client{Transport: rt})
	return c
}

func TestTVDBUnconfiguredReturnsEmpty(t *testing.T) {
	c := NewTVDBClient("", cache.New(time.Minute), utils.NewLoggerTo(io.Discard, false))
	c.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatal("unconfigured client must not hit the network")
		return nil, nil
	})})

	if got := c.SearchSeries(context.Background(), "breaking bad", 10); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := c.GetSeries(context.Background(), 81189); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestTVDBLoginOnceUnderConcurrency(t *testing.T) {
	var mu sync.Mutex
	var logins, searches int
	c := newTVDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if strings.HasSuffix(r.URL.Path, "/login") {
			logins++
			return jsonResponse(200, `{"data":{"token":"tok-1"}}`), nil
		}
		searches++
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		return jsonResponse(200, `{"data":[]}`), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SearchSeries(context.Background(), "query-"+string(rune('a'+i)), 10)
		}()
	}
	wg.Wait()

	if logins != 1 {
		t.Fatalf("expected exactly 1 login, got %d", logins)
	}
	if searches != 10 {
		t.Fatalf("expected 10 searches, got %d", searches)
	}
}

func TestTVDBTokenRefreshFailureKeepsStaleToken(t *testing.T) {
	var logins int
	c := newTVDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		if strings.HasSuffix(r.URL.Path, "/login") {
			logins++
			return jsonResponse(503, `{}`), nil
		}
		t.Errorf("unexpected request %s", r.URL)
		return jsonResponse(500, `{}`), nil
	})

	// Seed an expired token.
	c.token.Store(&tvdbToken{value: "stale", expiry: time.Now().Add(-time.Minute)})

	if got := c.SearchSeries(context.Background(), "dune", 10); got != nil {
		t.Fatalf("expected nil during login outage, got %v", got)
	}
	if logins != 1 {
		t.Fatalf("expected 1 login attempt, got %d", logins)
	}
	if tok := c.token.Load(); tok == nil || tok.value != "stale" {
		t.Fatal("failed refresh must leave the stored token untouched")
	}
}

func TestTVDBMissingTranslationCachedNegatively(t *testing.T) {
	var translationCalls int
	c := newTVDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/login"):
			return jsonResponse(200, `{"data":{"token":"tok"}}`), nil
		case strings.Contains(r.URL.Path, "/translations/"):
			translationCalls++
			return jsonResponse(404, `{}`), nil
		}
		t.Errorf("unexpected request %s", r.URL)
		return jsonResponse(500, `{}`), nil
	})

	for i := 0; i < 3; i++ {
		if tr := c.GetEpisodeTranslation(context.Background(), 349232, "deu"); tr != nil {
			t.Fatalf("expected nil translation, got %+v", tr)
		}
	}
	if translationCalls != 1 {
		t.Fatalf("expected 1 upstream call for a missing translation, got %d", translationCalls)
	}
}

func TestTVDBEmptyTranslationTreatedAsMissing(t *testing.T) {
	var calls int
	c := newTVDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/login"):
			return jsonResponse(200, `{"data":{"token":"tok"}}`), nil
		case strings.Contains(r.URL.Path, "/translations/"):
			calls++
			return jsonResponse(200, `{"data":{"language":"deu","name":"","overview":" "}}`), nil
		}
		return jsonResponse(500, `{}`), nil
	})

	if tr := c.GetSeriesTranslation(context.Background(), 81189, "deu"); tr != nil {
		t.Fatalf("blank translation should map to nil, got %+v", tr)
	}
	c.GetSeriesTranslation(context.Background(), 81189, "deu")
	if calls != 1 {
		t.Fatalf("blank translation should be cached negatively, got %d calls", calls)
	}
}

func TestTVDBEpisodePaging(t *testing.T) {
	next := "/series/81189/episodes/official?page=1"
	c := newTVDBTestClient(t, func(r *http.Request) (*http.Response, error) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/login"):
			return jsonResponse(200, `{"data":{"token":"tok"}}`), nil
		case strings.Contains(r.URL.Path, "/episodes/official"):
			if r.URL.Query().Get("page") == "0" {
				return jsonResponse(200, `{"data":{"episodes":[
					{"id":1,"seasonNumber":1,"number":1,"name":"One"}
				]},"links":{"next":"`+next+`"}}`), nil
			}
			return jsonResponse(200, `{"data":{"episodes":[
				{"id":2,"seasonNumber":1,"number":2,"name":"Two"}
			]},"links":{"next":null}}`), nil
		}
		return jsonResponse(500, `{}`), nil
	})

	episodes := c.GetEpisodes(context.Background(), 81189)
	if len(episodes) != 2 {
		t.Fatalf("expected both pages collected, got %d episodes", len(episodes))
	}
	if episodes[1].Name != "Two" {
		t.Errorf("second page episode = %+v", episodes[1])
	}
}
