package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// MovieRepo manages the movies table.  List-valued fields are stored as
// JSON arrays.
type MovieRepo struct {
	db *sql.DB
}

func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

const movieColumns = `id, title, genres, cast_members, director, producer, synopsis, reviews, poster_url, trailer_url, rating`

func scanMovie(row rowScanner) (model.Movie, error) {
	var (
		m                     model.Movie
		genres, cast, reviews []byte
	)
	err := row.Scan(&m.ID, &m.Title, &genres, &cast, &m.Director, &m.Producer, &m.Synopsis, &reviews,
		&m.PosterURL, &m.TrailerURL, &m.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	for _, f := range []struct {
		raw []byte
		dst *[]string
	}{{genres, &m.Genres}, {cast, &m.Cast}, {reviews, &m.Reviews}} {
		if err := decodeList(f.raw, f.dst); err != nil {
			return m, err
		}
	}
	return m, nil
}

func decodeList(raw []byte, dst *[]string) error {
	*dst = []string{}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func encodeList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// List returns every movie ordered by title.  Filtering happens in the
// catalog package so the same rules apply on both sides of the API.
func (r *MovieRepo) List(ctx context.Context) ([]model.Movie, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+movieColumns+" FROM movies ORDER BY title, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Movie{}
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetByID returns ErrNotFound for unknown ids.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (model.Movie, error) {
	return scanMovie(r.db.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE id=?", id))
}

// Create inserts m and sets its ID.
func (r *MovieRepo) Create(ctx context.Context, m *model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (title, genres, cast_members, director, producer, synopsis, reviews, poster_url, trailer_url, rating)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		m.Title, encodeList(m.Genres), encodeList(m.Cast), m.Director, m.Producer, m.Synopsis,
		encodeList(m.Reviews), m.PosterURL, m.TrailerURL, m.Rating)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// Update overwrites every field of the movie with m.ID.
func (r *MovieRepo) Update(ctx context.Context, m model.Movie) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE movies SET title=?, genres=?, cast_members=?, director=?, producer=?, synopsis=?, reviews=?,
		 poster_url=?, trailer_url=?, rating=? WHERE id=?`,
		m.Title, encodeList(m.Genres), encodeList(m.Cast), m.Director, m.Producer, m.Synopsis,
		encodeList(m.Reviews), m.PosterURL, m.TrailerURL, m.Rating, m.ID)
	return affected(res, err)
}

// Delete removes a movie and its showtimes.  Movies with sold tickets
// cannot be deleted and yield ErrConflict.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM movies WHERE id=?", id)
	if isReferenced(err) {
		return ErrConflict
	}
	return affected(res, err)
}
