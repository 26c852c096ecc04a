package client

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/scheduling"
)

// SchedulerState is a step of the admin scheduling form.
type SchedulerState int

const (
	NoShowroom SchedulerState = iota
	ShowroomSelected
	MovieSelected
	TimeSelected
	Submitted
)

func (s SchedulerState) String() string {
	switch s {
	case ShowroomSelected:
		return "showroom selected"
	case MovieSelected:
		return "movie selected"
	case TimeSelected:
		return "time selected"
	case Submitted:
		return "submitted"
	}
	return "no showroom"
}

// Scheduler drives showtime creation: showroom, then movie, then start
// time, then submit.  Conflicts and past times are caught locally before
// any request; the server checks again under a lock.  Not safe for
// concurrent use.
type Scheduler struct {
	api    *Client
	policy scheduling.Policy
	now    func() time.Time

	rooms   []model.Showroom
	state   SchedulerState
	roomID  uint64
	movieID uint64
	start   time.Time
	last    model.Showtime
}

func NewScheduler(api *Client, policy scheduling.Policy) *Scheduler {
	return &Scheduler{api: api, policy: policy, now: time.Now}
}

// Load fetches the showrooms with their showtimes.
func (s *Scheduler) Load(ctx context.Context) error {
	rooms, err := s.api.Showrooms(ctx)
	if err != nil {
		return err
	}
	s.rooms = rooms
	return nil
}

// Showrooms is the last fetched list.
func (s *Scheduler) Showrooms() []model.Showroom { return s.rooms }

// State is the current step.
func (s *Scheduler) State() SchedulerState { return s.state }

// Created is the showtime of the last successful Submit.
func (s *Scheduler) Created() model.Showtime { return s.last }

// SelectShowroom starts over with a showroom from the loaded list.
func (s *Scheduler) SelectShowroom(id uint64) error {
	if _, ok := s.room(id); !ok {
		return ErrUnknownShowroom
	}
	s.roomID, s.movieID, s.start = id, 0, time.Time{}
	s.state = ShowroomSelected
	return nil
}

// SelectMovie picks the movie; any chosen time is cleared.
func (s *Scheduler) SelectMovie(id uint64) error {
	if s.state == NoShowroom {
		return ErrNoShowroom
	}
	if id == 0 {
		return ErrNoMovie
	}
	s.movieID, s.start = id, time.Time{}
	s.state = MovieSelected
	return nil
}

// SelectTime picks the start instant.
func (s *Scheduler) SelectTime(start time.Time) error {
	switch s.state {
	case NoShowroom:
		return ErrNoShowroom
	case ShowroomSelected:
		return ErrNoMovie
	}
	if start.IsZero() {
		return ErrNoTime
	}
	s.start = start.UTC()
	s.state = TimeSelected
	return nil
}

// Check runs the past and conflict rules against the loaded showtimes of
// the selected showroom.
func (s *Scheduler) Check() error {
	room, _ := s.room(s.roomID)
	existing := make([]time.Time, 0, len(room.Showtimes))
	for _, st := range room.Showtimes {
		existing = append(existing, st.Start)
	}
	return s.policy.Check(s.start, s.now(), existing)
}

// Submit creates the showtime.  Only allowed once a time is selected; a
// local rule violation returns without a request and leaves the state
// as it was.  On success the showroom list is refetched.
func (s *Scheduler) Submit(ctx context.Context) (model.Showtime, error) {
	if s.state != TimeSelected {
		return model.Showtime{}, ErrNoTime
	}
	if err := s.Check(); err != nil {
		return model.Showtime{}, err
	}
	st, err := s.api.ScheduleShowtime(ctx, s.roomID, s.movieID, s.start)
	if err != nil {
		return model.Showtime{}, err
	}
	s.last = st
	s.state = Submitted
	if err := s.Load(ctx); err != nil {
		s.api.logger.Printf("client: refetch showrooms after scheduling: %v", err)
	}
	return st, nil
}

// Remove deletes a showtime and drops it from the local list.
func (s *Scheduler) Remove(ctx context.Context, roomID, movieID uint64, start time.Time) error {
	if err := s.api.RemoveShowtime(ctx, roomID, movieID, start); err != nil {
		return err
	}
	for i := range s.rooms {
		if s.rooms[i].ID != roomID {
			continue
		}
		kept := make([]model.Showtime, 0, len(s.rooms[i].Showtimes))
		for _, st := range s.rooms[i].Showtimes {
			if st.MovieID == movieID && st.Start.Equal(start) {
				continue
			}
			kept = append(kept, st)
		}
		s.rooms[i].Showtimes = kept
	}
	return nil
}

// Reset returns to the first step.
func (s *Scheduler) Reset() {
	s.roomID, s.movieID, s.start = 0, 0, time.Time{}
	s.state = NoShowroom
}

func (s *Scheduler) room(id uint64) (model.Showroom, bool) {
	for _, r := range s.rooms {
		if r.ID == id {
			return r, true
		}
	}
	return model.Showroom{}, false
}
