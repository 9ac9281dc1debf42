package catalog

// Source identifies which upstream an item came from. Item IDs are only
// meaningful within their source; cross-provider identity goes through the
// external id fields, never by comparing IDs across sources.
type Source string

const (
	SourceTmdb    Source = "tmdb"
	SourceTvdb    Source = "tvdb"
	SourceStremio Source = "stremio"
	SourceAniList Source = "anilist"
)

type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// CatalogItem is the provider-agnostic search-result summary.
type CatalogItem struct {
	ID     string `json:"id"`
	Source Source `json:"source"`

	ImdbID string `json:"imdb_id,omitempty"`
	TmdbID int    `json:"tmdb_id,omitempty"`
	TvdbID int    `json:"tvdb_id,omitempty"`

	Name string `json:"name"`
	// OriginalName is set only when it differs from the localized Name.
	OriginalName string `json:"original_name,omitempty"`
	Overview     string `json:"overview,omitempty"`

	PosterURL   string `json:"poster_url,omitempty"`
	BackdropURL string `json:"backdrop_url,omitempty"`

	Year        *int   `json:"year,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`

	// Rating is nil when unknown. Upstreams report 0 for "not rated", so a
	// zero value is mapped to nil rather than kept.
	Rating *float64 `json:"rating,omitempty"`

	Type             MediaType `json:"type"`
	Genres           []string  `json:"genres,omitempty"`
	OriginalLanguage string    `json:"original_language,omitempty"`
}

// CatalogItemDetails extends CatalogItem with the fields a detail lookup
// provides. Seasons and Episodes are populated only for series.
type CatalogItemDetails struct {
	CatalogItem

	RuntimeMinutes *int   `json:"runtime_minutes,omitempty"`
	Status         string `json:"status,omitempty"`
	Tagline        string `json:"tagline,omitempty"`

	Directors []string     `json:"directors,omitempty"`
	Cast      []CastMember `json:"cast,omitempty"`

	Seasons  []Season  `json:"seasons,omitempty"`
	Episodes []Episode `json:"episodes,omitempty"`

	Studios   []string `json:"studios,omitempty"`
	Countries []string `json:"countries,omitempty"`
}

// CastMember keeps the provider's billing order in Ordinal.
type CastMember struct {
	Name      string `json:"name"`
	Character string `json:"character,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Ordinal   int    `json:"ordinal"`
}

type Season struct {
	Number       int    `json:"number"`
	Name         string `json:"name,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	EpisodeCount int    `json:"episode_count"`
}

type Episode struct {
	ID             string `json:"id"`
	SeasonNumber   int    `json:"season_number"`
	EpisodeNumber  int    `json:"episode_number"`
	AbsoluteNumber int    `json:"absolute_number,omitempty"`
	Name           string `json:"name"`
	Overview       string `json:"overview,omitempty"`
	AirDate        string `json:"air_date,omitempty"`
	RuntimeMinutes *int   `json:"runtime_minutes,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
}
