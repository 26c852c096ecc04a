// Package catalog classifies movies as now showing or upcoming and applies
// the title, genre and date filters used by the listing pages.
package catalog

import (
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Policy selects how a movie is classified.
type Policy int

const (
	// PolicyScheduled: any showtime makes a movie now showing.
	PolicyScheduled Policy = iota
	// PolicyByDate: now showing only when some showtime starts on or
	// before the end of today; movies with only later showtimes are
	// upcoming.
	PolicyByDate
)

// ParsePolicy accepts "scheduled" or "by_date"; anything else is
// PolicyScheduled.
func ParsePolicy(s string) Policy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "by_date", "bydate", "date":
		return PolicyByDate
	}
	return PolicyScheduled
}

// Split partitions movies into now showing and upcoming, keeping input
// order.  Movies without any showtime are always upcoming.
func Split(movies []model.Movie, showtimes []model.Showtime, policy Policy, now time.Time) (nowShowing, upcoming []model.Movie) {
	y, m, d := now.Date()
	endOfToday := time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), now.Location())

	scheduled := make(map[uint64]bool)
	current := make(map[uint64]bool)
	for _, st := range showtimes {
		scheduled[st.MovieID] = true
		if !st.Start.After(endOfToday) {
			current[st.MovieID] = true
		}
	}
	nowShowing = []model.Movie{}
	upcoming = []model.Movie{}
	for _, mv := range movies {
		showing := scheduled[mv.ID]
		if policy == PolicyByDate {
			showing = current[mv.ID]
		}
		if showing {
			nowShowing = append(nowShowing, mv)
		} else {
			upcoming = append(upcoming, mv)
		}
	}
	return nowShowing, upcoming
}

// Filter narrows a listing.  All set criteria must hold.
type Filter struct {
	// Title is matched case-insensitively as a substring.
	Title string
	// Genres are fragments; each must match some genre of the movie.
	Genres []string
	// MovieIDs, when non-nil, restricts results to movies showing on the
	// selected date.  An empty non-nil set matches nothing.
	MovieIDs map[uint64]bool
}

// ParseGenres splits a comma separated query value, dropping blanks.
func ParseGenres(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// Match reports whether one movie passes the filter.
func (f Filter) Match(m model.Movie) bool {
	if f.MovieIDs != nil && !f.MovieIDs[m.ID] {
		return false
	}
	if t := strings.TrimSpace(f.Title); t != "" {
		if !strings.Contains(strings.ToLower(m.Title), strings.ToLower(t)) {
			return false
		}
	}
	for _, frag := range f.Genres {
		if !hasGenre(m.Genres, frag) {
			return false
		}
	}
	return true
}

// Apply returns the matching movies in input order.
func (f Filter) Apply(movies []model.Movie) []model.Movie {
	out := make([]model.Movie, 0, len(movies))
	for _, m := range movies {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}

// MovieIDsOn collects the movies with at least one showtime on the
// calendar date of day, evaluated in day's location.
func MovieIDsOn(showtimes []model.Showtime, day time.Time) map[uint64]bool {
	y, m, d := day.Date()
	ids := make(map[uint64]bool)
	for _, st := range showtimes {
		sy, sm, sd := st.Start.In(day.Location()).Date()
		if sy == y && sm == m && sd == d {
			ids[st.MovieID] = true
		}
	}
	return ids
}

func hasGenre(genres []string, frag string) bool {
	frag = strings.ToLower(strings.TrimSpace(frag))
	if frag == "" {
		return true
	}
	for _, g := range genres {
		if strings.Contains(strings.ToLower(g), frag) {
			return true
		}
	}
	return false
}
