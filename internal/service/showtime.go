package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/scheduling"
)

// ShowtimeStore is the persistence ShowtimeService needs.
type ShowtimeStore interface {
	CreateShowtimeChecked(ctx context.Context, roomID, movieID uint64, start time.Time,
		check func(existing []time.Time) error) (model.Showtime, error)
	DeleteShowtime(ctx context.Context, roomID, movieID uint64, start time.Time) error
}

// MovieLookup resolves a movie by id.
type MovieLookup interface {
	GetByID(ctx context.Context, id uint64) (model.Movie, error)
}

// ShowtimeService schedules showtimes under the conflict policy.
type ShowtimeService struct {
	rooms  ShowtimeStore
	movies MovieLookup
	policy scheduling.Policy
	now    func() time.Time
}

func NewShowtimeService(rooms ShowtimeStore, movies MovieLookup, policy scheduling.Policy) *ShowtimeService {
	return &ShowtimeService{rooms: rooms, movies: movies, policy: policy, now: time.Now}
}

// Schedule adds a showtime.  It fails with scheduling.ErrInPast,
// a *scheduling.ConflictError or repository.ErrNotFound.  The conflict
// check runs against the showroom's schedule while it is locked.
func (s *ShowtimeService) Schedule(ctx context.Context, roomID, movieID uint64, start time.Time) (model.Showtime, error) {
	start = start.UTC()
	if err := s.policy.Check(start, s.now(), nil); err != nil {
		return model.Showtime{}, err
	}
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return model.Showtime{}, err
	}
	return s.rooms.CreateShowtimeChecked(ctx, roomID, movieID, start, func(existing []time.Time) error {
		return s.policy.Check(start, s.now(), existing)
	})
}

// Remove deletes the showtime matching showroom, movie and start.
func (s *ShowtimeService) Remove(ctx context.Context, roomID, movieID uint64, start time.Time) error {
	return s.rooms.DeleteShowtime(ctx, roomID, movieID, start.UTC())
}
