package library

import (
	"database/sql"
	"time"

	"strmhub/internal/catalog"
)

// Item is a catalog entry the user saved into the library.
type Item struct {
	ID        int               `json:"id"`
	CatalogID string            `json:"catalog_id"`
	Source    catalog.Source    `json:"source"`
	Type      catalog.MediaType `json:"type"`

	ImdbID string `json:"imdb_id,omitempty"`
	TmdbID *int   `json:"tmdb_id,omitempty"`
	TvdbID *int   `json:"tvdb_id,omitempty"`

	Name      string   `json:"name"`
	Year      *int     `json:"year,omitempty"`
	Overview  *string  `json:"overview,omitempty"`
	PosterURL *string  `json:"poster_url,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`

	StreamURL *string `json:"stream_url,omitempty"`
	StrmPath  *string `json:"strm_path,omitempty"`

	AddedAt     time.Time  `json:"added_at"`
	RefreshedAt *time.Time `json:"refreshed_at,omitempty"`
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const itemColumns = `id, catalog_id, source, type, imdb_id, tmdb_id, tvdb_id,
       name, year, overview, poster_url, rating, stream_url, strm_path,
       added_at, refreshed_at`

func (s *Store) Create(item *Item) error {
	query := `
        INSERT INTO library_items (catalog_id, source, type, imdb_id, tmdb_id, tvdb_id,
                                   name, year, overview, poster_url, rating, stream_url, strm_path)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(source, catalog_id) DO UPDATE SET
            name = excluded.name,
            year = excluded.year,
            overview = excluded.overview,
            poster_url = excluded.poster_url,
            rating = excluded.rating
    `
	_, err := s.db.Exec(query, item.CatalogID, item.Source, item.Type,
		item.ImdbID, item.TmdbID, item.TvdbID, item.Name, item.Year,
		item.Overview, item.PosterURL, item.Rating, item.StreamURL, item.StrmPath)
	if err != nil {
		return err
	}

	// LastInsertId is meaningless when the upsert took the update branch, so
	// read the row id back by its natural key.
	row := s.db.QueryRow(`SELECT id, added_at FROM library_items WHERE source = ? AND catalog_id = ?`,
		item.Source, item.CatalogID)
	return row.Scan(&item.ID, &item.AddedAt)
}

func (s *Store) GetByID(id int) (*Item, error) {
	row := s.db.QueryRow(`SELECT `+itemColumns+` FROM library_items WHERE id = ?`, id)

	item, err := scanItem(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

func (s *Store) GetAll() ([]Item, error) {
	rows, err := s.db.Query(`SELECT ` + itemColumns + ` FROM library_items ORDER BY added_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *Store) Delete(id int) error {
	_, err := s.db.Exec("DELETE FROM library_items WHERE id = ?", id)
	return err
}

// MarkRefreshed records the latest metadata refresh of an item.
func (s *Store) MarkRefreshed(id int, name string, overview *string, posterURL *string, rating *float64) error {
	_, err := s.db.Exec(`
        UPDATE library_items
        SET name = ?, overview = ?, poster_url = ?, rating = ?, refreshed_at = CURRENT_TIMESTAMP
        WHERE id = ?
    `, name, overview, posterURL, rating, id)
	return err
}

// SetStrmPath records where the item's stream file was written.
func (s *Store) SetStrmPath(id int, path string) error {
	_, err := s.db.Exec("UPDATE library_items SET strm_path = ? WHERE id = ?", path, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.CatalogID, &item.Source, &item.Type,
		&item.ImdbID, &item.TmdbID, &item.TvdbID, &item.Name, &item.Year,
		&item.Overview, &item.PosterURL, &item.Rating, &item.StreamURL,
		&item.StrmPath, &item.AddedAt, &item.RefreshedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
