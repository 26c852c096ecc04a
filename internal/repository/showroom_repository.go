package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ShowroomRepo manages showrooms, their showtimes and the booked seat sets
// hanging off each showtime.  Showtime starts are stored as UTC DATETIME.
type ShowroomRepo struct {
	db *sql.DB
}

func NewShowroomRepo(db *sql.DB) *ShowroomRepo { return &ShowroomRepo{db: db} }

// Create inserts a showroom.  Duplicate names yield ErrConflict.
func (r *ShowroomRepo) Create(ctx context.Context, name string) (model.Showroom, error) {
	name = strings.TrimSpace(name)
	res, err := r.db.ExecContext(ctx, "INSERT INTO showrooms (name) VALUES (?)", name)
	if isDuplicate(err) {
		return model.Showroom{}, ErrConflict
	}
	if err != nil {
		return model.Showroom{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Showroom{}, err
	}
	return model.Showroom{ID: uint64(id), Name: name, Showtimes: []model.Showtime{}}, nil
}

// Get returns one showroom with its showtimes and booked seats.
func (r *ShowroomRepo) Get(ctx context.Context, id uint64) (model.Showroom, error) {
	var room model.Showroom
	err := r.db.QueryRowContext(ctx, "SELECT id, name FROM showrooms WHERE id=?", id).Scan(&room.ID, &room.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return room, ErrNotFound
	}
	if err != nil {
		return room, err
	}
	room.Showtimes, err = r.queryShowtimes(ctx, "WHERE st.showroom_id=?", id)
	return room, err
}

// List returns every showroom ordered by name, each with its showtimes.
func (r *ShowroomRepo) List(ctx context.Context) ([]model.Showroom, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM showrooms ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	var rooms []model.Showroom
	idx := map[uint64]int{}
	for rows.Next() {
		var room model.Showroom
		if err := rows.Scan(&room.ID, &room.Name); err != nil {
			rows.Close()
			return nil, err
		}
		room.Showtimes = []model.Showtime{}
		idx[room.ID] = len(rooms)
		rooms = append(rooms, room)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	all, err := r.queryShowtimes(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, st := range all {
		if i, ok := idx[st.ShowroomID]; ok {
			rooms[i].Showtimes = append(rooms[i].Showtimes, st)
		}
	}
	if rooms == nil {
		rooms = []model.Showroom{}
	}
	return rooms, nil
}

// Showtimes returns every showtime with its booked seats.
func (r *ShowroomRepo) Showtimes(ctx context.Context) ([]model.Showtime, error) {
	return r.queryShowtimes(ctx, "")
}

// ShowtimesOn returns the showtimes starting on the UTC calendar day of day.
func (r *ShowroomRepo) ShowtimesOn(ctx context.Context, day time.Time) ([]model.Showtime, error) {
	d := day.UTC()
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return r.queryShowtimes(ctx, "WHERE st.starts_at >= ? AND st.starts_at < ?", from, from.AddDate(0, 0, 1))
}

// GetShowtime returns one showtime with its booked seats.
func (r *ShowroomRepo) GetShowtime(ctx context.Context, id uint64) (model.Showtime, error) {
	list, err := r.queryShowtimes(ctx, "WHERE st.id=?", id)
	if err != nil {
		return model.Showtime{}, err
	}
	if len(list) == 0 {
		return model.Showtime{}, ErrNotFound
	}
	return list[0], nil
}

// queryShowtimes loads showtimes matching where, then their seats in one
// extra query.
func (r *ShowroomRepo) queryShowtimes(ctx context.Context, where string, args ...any) ([]model.Showtime, error) {
	q := "SELECT st.id, st.showroom_id, st.movie_id, st.starts_at FROM showtimes st " + where +
		" ORDER BY st.starts_at, st.id"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	out := []model.Showtime{}
	idx := map[uint64]int{}
	for rows.Next() {
		var st model.Showtime
		if err := rows.Scan(&st.ID, &st.ShowroomID, &st.MovieID, &st.Start); err != nil {
			rows.Close()
			return nil, err
		}
		st.Start = st.Start.UTC()
		st.BookedSeats = []string{}
		idx[st.ID] = len(out)
		out = append(out, st)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]any, 0, len(out))
	for _, st := range out {
		ids = append(ids, st.ID)
	}
	seatQ := "SELECT showtime_id, seat_code FROM booked_seats WHERE showtime_id IN (?" +
		strings.Repeat(",?", len(ids)-1) + ") ORDER BY showtime_id, seat_code"
	srows, err := r.db.QueryContext(ctx, seatQ, ids...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var (
			sid  uint64
			code string
		)
		if err := srows.Scan(&sid, &code); err != nil {
			return nil, err
		}
		if i, ok := idx[sid]; ok {
			out[i].BookedSeats = append(out[i].BookedSeats, code)
		}
	}
	return out, srows.Err()
}

// CreateShowtimeChecked inserts a showtime after check approves the start
// times already scheduled in the showroom.  The showroom row is locked for
// the duration so concurrent schedulers cannot both pass the check.
func (r *ShowroomRepo) CreateShowtimeChecked(ctx context.Context, roomID, movieID uint64, start time.Time,
	check func(existing []time.Time) error) (model.Showtime, error) {
	start = start.UTC().Truncate(time.Second)
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Showtime{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var locked uint64
	err = tx.QueryRowContext(ctx, "SELECT id FROM showrooms WHERE id=? FOR UPDATE", roomID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Showtime{}, ErrNotFound
	}
	if err != nil {
		return model.Showtime{}, err
	}

	rows, err := tx.QueryContext(ctx, "SELECT starts_at FROM showtimes WHERE showroom_id=? ORDER BY starts_at", roomID)
	if err != nil {
		return model.Showtime{}, err
	}
	var existing []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			rows.Close()
			return model.Showtime{}, err
		}
		existing = append(existing, t.UTC())
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.Showtime{}, err
	}
	if err := check(existing); err != nil {
		return model.Showtime{}, err
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO showtimes (showroom_id, movie_id, starts_at) VALUES (?,?,?)", roomID, movieID, start)
	switch {
	case isDuplicate(err):
		return model.Showtime{}, ErrConflict
	case isMissingParent(err):
		return model.Showtime{}, ErrNotFound
	case err != nil:
		return model.Showtime{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Showtime{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Showtime{}, err
	}
	committed = true
	return model.Showtime{ID: uint64(id), ShowroomID: roomID, MovieID: movieID, Start: start, BookedSeats: []string{}}, nil
}

// DeleteShowtime removes the showtime identified by showroom, movie and
// start.  Showtimes with tickets yield ErrConflict.
func (r *ShowroomRepo) DeleteShowtime(ctx context.Context, roomID, movieID uint64, start time.Time) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM showtimes WHERE showroom_id=? AND movie_id=? AND starts_at=?",
		roomID, movieID, start.UTC().Truncate(time.Second))
	if isReferenced(err) {
		return ErrConflict
	}
	return affected(res, err)
}

// Delete removes a showroom and its showtimes.  Showrooms with sold
// tickets yield ErrConflict.
func (r *ShowroomRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM showrooms WHERE id=?", id)
	if isReferenced(err) {
		return ErrConflict
	}
	return affected(res, err)
}
