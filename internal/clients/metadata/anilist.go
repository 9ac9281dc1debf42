package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"strmhub/internal/cache"
	"strmhub/internal/clients"
	"strmhub/internal/utils"
)

const aniListEndpoint = "https://graphql.anilist.co"

// AniListClient talks to the AniList GraphQL API. The API needs no
// credentials, so "configured" is just an enabled switch.
type AniListClient struct {
	enabled    bool
	httpClient *http.Client
	cache      *cache.Cache
	logger     *utils.Logger
}

func NewAniListClient(enabled bool, c *cache.Cache, logger *utils.Logger) *AniListClient {
	return &AniListClient{
		enabled: enabled,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache:  c,
		logger: logger,
	}
}

func (a *AniListClient) SetHTTPClient(hc *http.Client) { a.httpClient = hc }

func (a *AniListClient) IsConfigured() bool {
	return a.enabled
}

type AniListMedia struct {
	ID    int `json:"id"`
	Title struct {
		English string `json:"english"`
		Romaji  string `json:"romaji"`
	} `json:"title"`
	Description string `json:"description"`
	CoverImage  struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	BannerImage  string   `json:"bannerImage"`
	Episodes     int      `json:"episodes"`
	Duration     int      `json:"duration"`
	Genres       []string `json:"genres"`
	AverageScore int      `json:"averageScore"`
	StartDate    struct {
		Year int `json:"year"`
	} `json:"startDate"`
	Status string `json:"status"`
	IDMal  int    `json:"idMal"`
}

type aniListQuery struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

const aniListSearchQuery = `
query ($search: String, $perPage: Int) {
  Page(perPage: $perPage) {
    media(search: $search, type: ANIME, sort: POPULARITY_DESC) {
      id
      idMal
      title { romaji english }
      description(asHtml: false)
      coverImage { large }
      bannerImage
      episodes
      duration
      genres
      averageScore
      startDate { year }
      status
    }
  }
}
`

const aniListByIDQuery = `
query ($id: Int) {
  Media(id: $id, type: ANIME) {
    id
    idMal
    title { romaji english }
    description(asHtml: false)
    coverImage { large }
    bannerImage
    episodes
    duration
    genres
    averageScore
    startDate { year }
    status
  }
}
`

// SearchAnime runs a text search against the ANIME catalog.
func (a *AniListClient) SearchAnime(ctx context.Context, query string, maxResults int) []AniListMedia {
	if !a.IsConfigured() || query == "" {
		return nil
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	key := cache.Key("anilist_search", query, strconv.Itoa(maxResults))
	if v, ok := a.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		return v.([]AniListMedia)
	}

	var resp struct {
		Data struct {
			Page struct {
				Media []AniListMedia `json:"media"`
			} `json:"Page"`
		} `json:"data"`
	}
	err := a.doQuery(ctx, aniListSearchQuery, map[string]any{"search": query, "perPage": maxResults}, &resp)
	if err != nil {
		a.handleLookupErr("search", key, err)
		return nil
	}

	media := resp.Data.Page.Media
	for i := range media {
		media[i].Description = stripHTML(media[i].Description)
	}
	a.cache.Set(key, media, 0)
	return media
}

// GetAnime looks one entry up by its AniList id.
func (a *AniListClient) GetAnime(ctx context.Context, id int) *AniListMedia {
	if !a.IsConfigured() || id <= 0 {
		return nil
	}

	key := cache.Key("anilist_media", strconv.Itoa(id))
	if v, ok := a.cache.Get(key); ok {
		if v == nil {
			return nil
		}
		m := v.(AniListMedia)
		return &m
	}

	var resp struct {
		Data struct {
			Media *AniListMedia `json:"Media"`
		} `json:"data"`
	}
	err := a.doQuery(ctx, aniListByIDQuery, map[string]any{"id": id}, &resp)
	if err != nil {
		a.handleLookupErr("lookup", key, err)
		return nil
	}
	if resp.Data.Media == nil {
		a.cache.SetNegative(key, 0)
		return nil
	}

	m := *resp.Data.Media
	m.Description = stripHTML(m.Description)
	a.cache.Set(key, m, 0)
	return &m
}

func (a *AniListClient) doQuery(ctx context.Context, query string, vars map[string]any, dest any) error {
	body, err := json.Marshal(aniListQuery{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, aniListEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", clients.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: anilist: %v", clients.ErrUpstream, err)
	}
	defer resp.Body.Close()

	// AniList reports an unknown id as a GraphQL error with a 404 status.
	if resp.StatusCode == http.StatusNotFound {
		return clients.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: anilist: %s", clients.ErrUpstream, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: anilist decode: %v", clients.ErrUpstream, err)
	}
	return nil
}

func (a *AniListClient) handleLookupErr(op, key string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, clients.ErrNotFound) {
		a.cache.SetNegative(key, 0)
		return
	}
	a.logger.Error("anilist:", op, "failed:", err)
}

// stripHTML flattens the markup AniList embeds in descriptions (<br>, <i>,
// entity escapes) into plain text.
func stripHTML(s string) string {
	if s == "" || !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	tok := html.NewTokenizer(strings.NewReader(s))
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(tok.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tok.TagName()
			if string(name) == "br" {
				b.WriteByte('\n')
			}
		}
	}
}
