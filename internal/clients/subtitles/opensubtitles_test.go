package subtitles

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
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

func newTestClient(t *testing.T, user, pass string, rt roundTripFunc) *Client {
	t.Helper()
	c := NewClient("test-key", user, pass, cache.New(time.Minute), utils.NewLoggerTo(io.Discard, false))
	c.SetHTTPClient(&http.Client{Transport: rt})
	return c
}

func TestSearchUnconfiguredReturnsEmpty(t *testing.T) {
	c := NewClient("", "", "", cache.New(time.Minute), utils.NewLoggerTo(io.Discard, false))
	c.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatal("unconfigured client must not hit the network")
		return nil, nil
	})})

	if got := c.Search(context.Background(), SearchParams{ImdbID: "tt0133093"}); got != nil {
		t.Fatalf("expected nil results, got %v", got)
	}
}

func TestSearchCachesWithinTTL(t *testing.T) {
	var calls int
	c := newTestClient(t, "", "", func(r *http.Request) (*http.Response, error) {
		calls++
		if got := r.Header.Get("Api-Key"); got != "test-key" {
			t.Errorf("Api-Key header = %q", got)
		}
		if got := r.URL.Query().Get("imdb_id"); got != "0133093" {
			t.Errorf("imdb_id param = %q, want tt prefix stripped", got)
		}
		return jsonResponse(200, `{"data":[{"id":"99","attributes":{"language":"en","files":[{"file_id":42,"file_name":"matrix.srt"}]}}]}`), nil
	})

	params := SearchParams{ImdbID: "tt0133093", Languages: []string{"EN"}}
	first := c.Search(context.Background(), params)
	second := c.Search(context.Background(), params)

	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 result on both calls, got %d and %d", len(first), len(second))
	}
	if first[0].Attributes.Files[0].FileID != 42 {
		t.Errorf("file id = %d", first[0].Attributes.Files[0].FileID)
	}
}

func TestSearchLanguageOrderSharesCacheEntry(t *testing.T) {
	var calls int
	c := newTestClient(t, "", "", func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(200, `{"data":[]}`), nil
	})

	c.Search(context.Background(), SearchParams{Query: "dune", Languages: []string{"en", "es"}})
	c.Search(context.Background(), SearchParams{Query: "Dune", Languages: []string{"es", "en"}})

	if calls != 1 {
		t.Fatalf("expected 1 upstream call for equivalent searches, got %d", calls)
	}
}

func TestLoginOnceUnderConcurrency(t *testing.T) {
	var mu sync.Mutex
	var logins, searches int
	c := newTestClient(t, "user", "pass", func(r *http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		if strings.HasSuffix(r.URL.Path, "/login") {
			logins++
			return jsonResponse(200, `{"token":"tok-1"}`), nil
		}
		searches++
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		return jsonResponse(200, `{"data":[]}`), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Search(context.Background(), SearchParams{Query: "query-" + string(rune('a'+i))})
		}()
	}
	wg.Wait()

	if logins != 1 {
		t.Fatalf("expected exactly 1 login, got %d", logins)
	}
	if searches != 8 {
		t.Fatalf("expected 8 searches, got %d", searches)
	}
}

func TestDownloadTwoStep(t *testing.T) {
	var linkCalls, fetchCalls int
	c := newTestClient(t, "", "", func(r *http.Request) (*http.Response, error) {
		linkCalls++
		var body struct {
			FileID int `json:"file_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FileID != 42 {
			t.Errorf("download body file_id = %d, err = %v", body.FileID, err)
		}
		return jsonResponse(200, `{"link":"https://dl.example.com/42.srt","file_name":"matrix.srt"}`), nil
	})
	c.SetPlainClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		fetchCalls++
		if r.Header.Get("Api-Key") != "" || r.Header.Get("Authorization") != "" {
			t.Error("pre-authorized link fetch must not carry API headers")
		}
		return jsonResponse(200, "1\n00:00:01,000 --> 00:00:02,000\nhi\n"), nil
	})})

	content := c.Download(context.Background(), 42)
	if !strings.Contains(string(content), "00:00:01,000") {
		t.Fatalf("unexpected content %q", content)
	}

	// Cached content skips both steps.
	c.Download(context.Background(), 42)
	if linkCalls != 1 || fetchCalls != 1 {
		t.Fatalf("expected 1 link call and 1 fetch, got %d and %d", linkCalls, fetchCalls)
	}
}

func TestDownloadNotFoundCachesNegative(t *testing.T) {
	var calls int
	c := newTestClient(t, "", "", func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(404, `{}`), nil
	})

	if got := c.Download(context.Background(), 7); got != nil {
		t.Fatalf("expected nil content, got %q", got)
	}
	c.Download(context.Background(), 7)
	if calls != 1 {
		t.Fatalf("expected negative cache to absorb second call, got %d calls", calls)
	}
}

func TestLoadExternalCredentials(t *testing.T) {
	dir := t.TempDir()

	flat := filepath.Join(dir, "flat.json")
	os.WriteFile(flat, []byte(`{"opensubtitles_username":"u1","opensubtitles_password":"p1"}`), 0o644)
	got, err := LoadExternalCredentials(flat)
	if err != nil || got.Username != "u1" || got.Password != "p1" {
		t.Fatalf("flat layout: got %+v, err %v", got, err)
	}

	nested := filepath.Join(dir, "nested.json")
	os.WriteFile(nested, []byte(`{"opensubtitles":{"username":"u2","password":"p2"}}`), 0o644)
	got, err = LoadExternalCredentials(nested)
	if err != nil || got.Username != "u2" || got.Password != "p2" {
		t.Fatalf("nested layout: got %+v, err %v", got, err)
	}

	if _, err := LoadExternalCredentials(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
