package client

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/catalog"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// Query is what the browse page filters on.  A zero Date shows every
// movie; otherwise only movies with a showtime that day.
type Query struct {
	Title  string
	Genres []string
	Date   time.Time
}

// Listing is the browse page.
type Listing struct {
	NowShowing []model.Movie
	Upcoming   []model.Movie
}

// Browser categorizes and filters the catalog.
type Browser struct {
	api    *Client
	policy catalog.Policy
	now    func() time.Time
}

func NewBrowser(api *Client, policy catalog.Policy) *Browser {
	return &Browser{api: api, policy: policy, now: time.Now}
}

// Browse fetches movies and showtimes and applies q.
func (b *Browser) Browse(ctx context.Context, q Query) (Listing, error) {
	movies, err := b.api.Movies(ctx, "", nil)
	if err != nil {
		return Listing{}, err
	}
	showtimes, err := b.api.Showtimes(ctx, time.Time{})
	if err != nil {
		return Listing{}, err
	}
	f := catalog.Filter{Title: q.Title, Genres: q.Genres}
	if !q.Date.IsZero() {
		onDay, err := b.api.Showtimes(ctx, q.Date)
		if err != nil {
			return Listing{}, err
		}
		// The server reads the date as a UTC calendar day.
		y, m, d := q.Date.Date()
		f.MovieIDs = catalog.MovieIDsOn(onDay, time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
	}
	now, upcoming := catalog.Split(f.Apply(movies), showtimes, b.policy, b.now())
	return Listing{NowShowing: now, Upcoming: upcoming}, nil
}
