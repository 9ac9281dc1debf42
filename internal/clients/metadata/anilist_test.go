package metadata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"strmhub/internal/cache"
	"strmhub/internal/utils"
)

func newAniListTestClient(t *testing.T, rt roundTripFunc) *AniListClient {
	t.Helper()
	c := NewAniListClient(true, cache.New(time.Minute), utils.NewLoggerTo(io.Discard, false))
	c.SetHTTPClient(&http.Client{Transport: rt})
	return c
}

func TestAniListDisabledReturnsEmpty(t *testing.T) {
	c := NewAniListClient(false, cache.New(time.Minute), utils.NewLoggerTo(io.Discard, false))
	c.SetHTTPClient(&http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		t.Fatal("disabled client must not hit the network")
		return nil, nil
	})})

	if got := c.SearchAnime(context.Background(), "frieren", 10); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestAniListSearchStripsHTMLAndCaches(t *testing.T) {
	var calls int
	c := newAniListTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		var body struct {
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Variables["search"] != "frieren" {
			t.Errorf("query variables = %v, err %v", body.Variables, err)
		}
		return jsonResponse(200, `{"data":{"Page":{"media":[
			{"id":154587,"title":{"english":"Frieren","romaji":"Sousou no Frieren"},
			 "description":"An elf.<br>A journey.","averageScore":89}
		]}}}`), nil
	})

	results := c.SearchAnime(context.Background(), "frieren", 10)
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Description != "An elf.\nA journey." {
		t.Errorf("description = %q, want markup flattened", results[0].Description)
	}

	c.SearchAnime(context.Background(), "Frieren", 10)
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
}

func TestAniListMissingMediaCachedNegatively(t *testing.T) {
	var calls int
	c := newAniListTestClient(t, func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(200, `{"data":{"Media":null}}`), nil
	})

	for i := 0; i < 3; i++ {
		if got := c.GetAnime(context.Background(), 42); got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"a<br>b", "a\nb"},
		{"a<br />b", "a\nb"},
		{"<i>italic</i> rest", "italic rest"},
		{"a &amp; b", "a & b"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripHTML(tt.in); got != tt.want {
			t.Errorf("stripHTML(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
