package catalog

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"strmhub/internal/clients/metadata"
	"strmhub/internal/clients/stremio"
)

// maxCastMembers caps cast lists at the top of the billing order.
const maxCastMembers = 20

// --- TMDB mapping ---

func itemFromTMDBMovie(ctx context.Context, t *metadata.TMDBClient, r metadata.TMDBMovieResult) CatalogItem {
	item := CatalogItem{
		ID:               "tmdb:" + strconv.Itoa(r.ID),
		Source:           SourceTmdb,
		TmdbID:           r.ID,
		Name:             r.Title,
		Overview:         r.Overview,
		PosterURL:        t.PosterURL(ctx, r.PosterPath),
		BackdropURL:      t.BackdropURL(ctx, r.BackdropPath),
		Year:             yearFromDate(r.ReleaseDate),
		ReleaseDate:      r.ReleaseDate,
		Rating:           ratingOrNil(r.VoteAverage),
		Type:             MediaTypeMovie,
		OriginalLanguage: r.OriginalLanguage,
	}
	if r.OriginalTitle != "" && r.OriginalTitle != r.Title {
		item.OriginalName = r.OriginalTitle
	}
	return item
}

func itemFromTMDBSeries(ctx context.Context, t *metadata.TMDBClient, r metadata.TMDBSeriesResult) CatalogItem {
	item := CatalogItem{
		ID:               "tmdb:" + strconv.Itoa(r.ID),
		Source:           SourceTmdb,
		TmdbID:           r.ID,
		Name:             r.Name,
		Overview:         r.Overview,
		PosterURL:        t.PosterURL(ctx, r.PosterPath),
		BackdropURL:      t.BackdropURL(ctx, r.BackdropPath),
		Year:             yearFromDate(r.FirstAirDate),
		ReleaseDate:      r.FirstAirDate,
		Rating:           ratingOrNil(r.VoteAverage),
		Type:             MediaTypeSeries,
		OriginalLanguage: r.OriginalLanguage,
	}
	if r.OriginalName != "" && r.OriginalName != r.Name {
		item.OriginalName = r.OriginalName
	}
	return item
}

func detailsFromTMDBMovie(ctx context.Context, t *metadata.TMDBClient, m *metadata.TMDBMovie) *CatalogItemDetails {
	d := &CatalogItemDetails{
		CatalogItem: CatalogItem{
			ID:               "tmdb:" + strconv.Itoa(m.ID),
			Source:           SourceTmdb,
			ImdbID:           m.ImdbID,
			TmdbID:           m.ID,
			Name:             m.Title,
			Overview:         m.Overview,
			PosterURL:        t.PosterURL(ctx, m.PosterPath),
			BackdropURL:      t.BackdropURL(ctx, m.BackdropPath),
			Year:             yearFromDate(m.ReleaseDate),
			ReleaseDate:      m.ReleaseDate,
			Rating:           ratingOrNil(m.VoteAverage),
			Type:             MediaTypeMovie,
			Genres:           genreNames(m.Genres),
			OriginalLanguage: m.OriginalLanguage,
		},
		RuntimeMinutes: intOrNil(m.Runtime),
		Status:         m.Status,
		Tagline:        m.Tagline,
		Directors:      directorsFromCrew(m.Credits.Crew),
		Cast:           castFromTMDB(ctx, t, m.Credits.Cast),
	}
	if m.OriginalTitle != "" && m.OriginalTitle != m.Title {
		d.OriginalName = m.OriginalTitle
	}
	for _, c := range m.ProductionCompanies {
		d.Studios = append(d.Studios, c.Name)
	}
	for _, c := range m.ProductionCountries {
		d.Countries = append(d.Countries, c.Name)
	}
	return d
}

func detailsFromTMDBSeries(ctx context.Context, t *metadata.TMDBClient, s *metadata.TMDBSeries) *CatalogItemDetails {
	d := &CatalogItemDetails{
		CatalogItem: CatalogItem{
			ID:               "tmdb:" + strconv.Itoa(s.ID),
			Source:           SourceTmdb,
			ImdbID:           s.ExternalIDs.ImdbID,
			TmdbID:           s.ID,
			TvdbID:           s.ExternalIDs.TvdbID,
			Name:             s.Name,
			Overview:         s.Overview,
			PosterURL:        t.PosterURL(ctx, s.PosterPath),
			BackdropURL:      t.BackdropURL(ctx, s.BackdropPath),
			Year:             yearFromDate(s.FirstAirDate),
			ReleaseDate:      s.FirstAirDate,
			Rating:           ratingOrNil(s.VoteAverage),
			Type:             MediaTypeSeries,
			Genres:           genreNames(s.Genres),
			OriginalLanguage: s.OriginalLanguage,
		},
		Status:  s.Status,
		Tagline: s.Tagline,
		Cast:    castFromTMDB(ctx, t, s.Credits.Cast),
	}
	if s.OriginalName != "" && s.OriginalName != s.Name {
		d.OriginalName = s.OriginalName
	}
	if len(s.EpisodeRunTime) > 0 {
		d.RuntimeMinutes = intOrNil(s.EpisodeRunTime[0])
	}
	for _, n := range s.Networks {
		d.Studios = append(d.Studios, n.Name)
	}
	d.Countries = append(d.Countries, s.OriginCountry...)
	return d
}

func genreNames(genres []metadata.TMDBGenre) []string {
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		out = append(out, g.Name)
	}
	return out
}

func directorsFromCrew(crew []metadata.TMDBCrewMember) []string {
	var out []string
	for _, c := range crew {
		if c.Job == "Director" {
			out = append(out, c.Name)
		}
	}
	return out
}

func castFromTMDB(ctx context.Context, t *metadata.TMDBClient, cast []metadata.TMDBCastMember) []CastMember {
	sorted := make([]metadata.TMDBCastMember, len(cast))
	copy(sorted, cast)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	if len(sorted) > maxCastMembers {
		sorted = sorted[:maxCastMembers]
	}
	out := make([]CastMember, 0, len(sorted))
	for _, c := range sorted {
		out = append(out, CastMember{
			Name:      c.Name,
			Character: c.Character,
			ImageURL:  t.ProfileURL(ctx, c.ProfilePath),
			Ordinal:   c.Order,
		})
	}
	return out
}

// --- TVDB mapping ---

func itemFromTVDBSearch(r metadata.TVDBSearchResult, language string) CatalogItem {
	tvdbID, _ := strconv.Atoi(r.TvdbID)
	item := CatalogItem{
		ID:               "tvdb:" + r.TvdbID,
		Source:           SourceTvdb,
		TvdbID:           tvdbID,
		Name:             r.Name,
		Overview:         r.Overview,
		PosterURL:        r.ImageURL,
		Year:             parseYear(r.Year),
		Type:             MediaTypeSeries,
		Genres:           r.Genres,
		OriginalLanguage: r.PrimaryLanguage,
	}
	for _, rid := range r.RemoteIDs {
		if rid.SourceName == "IMDB" {
			item.ImdbID = rid.ID
		}
	}
	// Search rows carry per-language name translations inline; the overlay
	// here avoids a translation round trip per result.
	if language != "" {
		if tr, ok := r.Translations[language]; ok && tr != "" && tr != r.Name {
			item.OriginalName = r.Name
			item.Name = tr
		}
	}
	return item
}

func detailsFromTVDBSeries(s *metadata.TVDBSeries, episodes []metadata.TVDBEpisode) *CatalogItemDetails {
	d := &CatalogItemDetails{
		CatalogItem: CatalogItem{
			ID:               "tvdb:" + strconv.Itoa(s.ID),
			Source:           SourceTvdb,
			TvdbID:           s.ID,
			Name:             s.Name,
			Overview:         s.Overview,
			PosterURL:        s.Image,
			Year:             parseYear(s.Year),
			ReleaseDate:      s.FirstAired,
			Rating:           ratingOrNil(s.Score),
			Type:             MediaTypeSeries,
			OriginalLanguage: s.OriginalLanguage,
		},
		RuntimeMinutes: intOrNil(s.AverageRuntime),
		Status:         s.Status.Name,
		Cast:           castFromTVDB(s.Characters),
		Directors:      directorsFromTVDB(s.Characters),
	}
	for _, g := range s.Genres {
		d.Genres = append(d.Genres, g.Name)
	}
	for _, c := range s.Companies {
		d.Studios = append(d.Studios, c.Name)
	}
	if s.Country != "" {
		d.Countries = []string{s.Country}
	}
	for _, rid := range s.RemoteIDs {
		if rid.SourceName == "IMDB" {
			d.ImdbID = rid.ID
		}
	}
	for _, a := range s.Artworks {
		// Artwork type 3 is the series background.
		if a.Type == 3 {
			d.BackdropURL = a.Image
			break
		}
	}

	d.Episodes = episodesFromTVDB(episodes)
	d.Seasons = seasonsFromTVDB(s.Seasons, d.Episodes)
	return d
}

func castFromTVDB(characters []metadata.TVDBCharacter) []CastMember {
	var actors []metadata.TVDBCharacter
	for _, c := range characters {
		if c.PeopleType == "Actor" {
			actors = append(actors, c)
		}
	}
	sort.SliceStable(actors, func(i, j int) bool { return actors[i].Sort < actors[j].Sort })
	if len(actors) > maxCastMembers {
		actors = actors[:maxCastMembers]
	}
	out := make([]CastMember, 0, len(actors))
	for _, c := range actors {
		out = append(out, CastMember{
			Name:      c.PersonName,
			Character: c.Name,
			ImageURL:  c.Image,
			Ordinal:   c.Sort,
		})
	}
	return out
}

func directorsFromTVDB(characters []metadata.TVDBCharacter) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range characters {
		if c.PeopleType == "Director" && !seen[c.PersonName] {
			seen[c.PersonName] = true
			out = append(out, c.PersonName)
		}
	}
	return out
}

func episodesFromTVDB(episodes []metadata.TVDBEpisode) []Episode {
	out := make([]Episode, 0, len(episodes))
	for _, e := range episodes {
		// Season 0 holds specials; keep them, ordering puts them first.
		ep := Episode{
			ID:             strconv.Itoa(e.ID),
			SeasonNumber:   e.SeasonNumber,
			EpisodeNumber:  e.Number,
			AbsoluteNumber: e.AbsoluteNumber,
			Name:           e.Name,
			Overview:       e.Overview,
			AirDate:        e.Aired,
			RuntimeMinutes: intOrNil(e.Runtime),
			ImageURL:       e.Image,
		}
		if ep.Name == "" {
			ep.Name = "Episode " + strconv.Itoa(e.Number)
		}
		out = append(out, ep)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SeasonNumber != out[j].SeasonNumber {
			return out[i].SeasonNumber < out[j].SeasonNumber
		}
		return out[i].EpisodeNumber < out[j].EpisodeNumber
	})
	return out
}

// seasonsFromTVDB takes the official season records and fills episode counts
// from the episode list. Seasons absent from the records but present in the
// episodes are synthesized.
func seasonsFromTVDB(seasons []metadata.TVDBSeason, episodes []Episode) []Season {
	counts := map[int]int{}
	for _, e := range episodes {
		counts[e.SeasonNumber]++
	}

	byNumber := map[int]Season{}
	for _, s := range seasons {
		if s.Type.Type != "official" && s.Type.Type != "" {
			continue
		}
		byNumber[s.Number] = Season{
			Number:       s.Number,
			Name:         s.Name,
			ImageURL:     s.Image,
			EpisodeCount: counts[s.Number],
		}
	}
	for number, count := range counts {
		if _, ok := byNumber[number]; !ok {
			byNumber[number] = Season{Number: number, EpisodeCount: count}
		}
	}

	out := make([]Season, 0, len(byNumber))
	for _, s := range byNumber {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// --- Stremio mapping ---

func itemFromStremioMeta(m stremio.Meta) CatalogItem {
	item := CatalogItem{
		ID:          m.ID,
		Source:      SourceStremio,
		Name:        m.Name,
		Overview:    m.Description,
		PosterURL:   m.Poster,
		BackdropURL: m.Background,
		Year:        parseYear(m.ReleaseInfo),
		Genres:      m.Genres,
		Type:        mediaTypeFromStremio(m.Type),
	}
	if strings.HasPrefix(m.ID, "tt") {
		item.ImdbID = m.ID
	}
	if f, err := m.IMDBRating.Float64(); err == nil {
		item.Rating = ratingOrNil(f)
	}
	return item
}

func detailsFromStremioMeta(m *stremio.Meta) *CatalogItemDetails {
	d := &CatalogItemDetails{
		CatalogItem:    itemFromStremioMeta(*m),
		RuntimeMinutes: parseRuntime(m.Runtime),
		Directors:      stringOrList(m.Director),
		Countries:      stringOrList(m.Country),
	}
	// Addons list cast as bare names in billing order.
	for i, name := range stringOrList(m.Cast) {
		if i >= maxCastMembers {
			break
		}
		d.Cast = append(d.Cast, CastMember{Name: name, Ordinal: i})
	}

	if d.Type == MediaTypeSeries {
		for _, v := range m.Videos {
			ep := Episode{
				ID:            v.ID,
				SeasonNumber:  v.Season,
				EpisodeNumber: v.Episode,
				Name:          v.Title,
				Overview:      v.Overview,
				AirDate:       v.Released,
				ImageURL:      v.Thumbnail,
			}
			if ep.Name == "" {
				ep.Name = "Episode " + strconv.Itoa(v.Episode)
			}
			d.Episodes = append(d.Episodes, ep)
		}
		sort.SliceStable(d.Episodes, func(i, j int) bool {
			if d.Episodes[i].SeasonNumber != d.Episodes[j].SeasonNumber {
				return d.Episodes[i].SeasonNumber < d.Episodes[j].SeasonNumber
			}
			return d.Episodes[i].EpisodeNumber < d.Episodes[j].EpisodeNumber
		})
		d.Seasons = seasonsFromTVDB(nil, d.Episodes)
	}
	return d
}

func mediaTypeFromStremio(t string) MediaType {
	if t == "movie" {
		return MediaTypeMovie
	}
	return MediaTypeSeries
}

// --- AniList mapping ---

// ItemFromAniList maps an anime record into the unified model. AniList
// scores run 0-100, so they are scaled down to the 0-10 range the other
// sources use.
func ItemFromAniList(m metadata.AniListMedia) CatalogItem {
	name := m.Title.English
	if name == "" {
		name = m.Title.Romaji
	}
	item := CatalogItem{
		ID:          "anilist:" + strconv.Itoa(m.ID),
		Source:      SourceAniList,
		Name:        name,
		Overview:    m.Description,
		PosterURL:   m.CoverImage.Large,
		BackdropURL: m.BannerImage,
		Rating:      ratingOrNil(float64(m.AverageScore) / 10),
		Type:        MediaTypeSeries,
		Genres:      m.Genres,
	}
	if m.Title.Romaji != "" && m.Title.Romaji != name {
		item.OriginalName = m.Title.Romaji
	}
	if m.StartDate.Year > 0 {
		year := m.StartDate.Year
		item.Year = &year
	}
	return item
}

// --- field helpers ---

var leadingYear = regexp.MustCompile(`^\s*(\d{4})`)

// parseYear extracts the leading four-digit year from strings like "2019",
// "2019-2023" or "2019-". Returns nil when none is present.
func parseYear(s string) *int {
	m := leadingYear.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &y
}

func yearFromDate(date string) *int {
	return parseYear(date)
}

var runtimePattern = regexp.MustCompile(`(?:(\d+)\s*h)?\s*(\d+)?\s*(?:min)?`)

// parseRuntime converts human runtime strings to minutes: "2h 28min" is 148,
// "148 min" and "148" are 148. Unparseable input yields nil.
func parseRuntime(s string) *int {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil
	}
	m := runtimePattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	total := 0
	if m[1] != "" {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m[2] != "" {
		mins, _ := strconv.Atoi(m[2])
		total += mins
	}
	if total <= 0 {
		return nil
	}
	return &total
}

// stringOrList flattens a JSON field that may be either a scalar string or
// an array of strings, preserving array order.
func stringOrList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

// ratingOrNil maps the upstream 0-means-unrated convention to nil.
func ratingOrNil(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func intOrNil(v int) *int {
	if v <= 0 {
		return nil
	}
	return &v
}
