package model

import "time"

// Showroom is a physical auditorium.  Showtimes inside one showroom must
// respect the scheduling buffer.
//
// Fields:
//  ID        – showrooms.id
//  Name      – display name, unique.
//  Showtimes – scheduled screenings ordered by start.
type Showroom struct {
	ID        uint64     `json:"id"`
	Name      string     `json:"name"`
	Showtimes []Showtime `json:"showtimes"`
}

// Showtime is one screening of a movie in a showroom.  Apart from its
// booked seat set it never changes after creation.
//
// Fields:
//  ID          – showtimes.id
//  ShowroomID  – showroom hosting the screening.
//  MovieID     – movie being shown.
//  Start       – start instant, always UTC.
//  BookedSeats – seat codes held by confirmed tickets.
type Showtime struct {
	ID          uint64    `json:"id"`
	ShowroomID  uint64    `json:"showroom_id"`
	MovieID     uint64    `json:"movie_id"`
	Start       time.Time `json:"start"`
	BookedSeats []string  `json:"booked_seats"`
}
