package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

var movies = []model.Movie{
	{ID: 1, Title: "The Long Night", Genres: []string{"Horror", "Thriller"}},
	{ID: 2, Title: "Night Shift", Genres: []string{"Comedy"}},
	{ID: 3, Title: "Paper Moon", Genres: []string{"Drama", "Comedy"}},
}

func titles(ms []model.Movie) []string {
	out := []string{}
	for _, m := range ms {
		out = append(out, m.Title)
	}
	return out
}

func TestFilterTitleAndGenres(t *testing.T) {
	assert.Equal(t, []string{"The Long Night", "Night Shift"}, titles(Filter{Title: "NIGHT"}.Apply(movies)))
	assert.Equal(t, []string{"Night Shift", "Paper Moon"}, titles(Filter{Genres: []string{"com"}}.Apply(movies)))
	assert.Equal(t, []string{"Paper Moon"}, titles(Filter{Genres: []string{"com", "dra"}}.Apply(movies)))
	assert.Equal(t, []string{"Night Shift"}, titles(Filter{Title: "night", Genres: []string{"comedy"}}.Apply(movies)))
	assert.Empty(t, Filter{Title: "night", Genres: []string{"drama"}}.Apply(movies))
	assert.Len(t, Filter{}.Apply(movies), 3)
}

func TestFilterDateSet(t *testing.T) {
	assert.Equal(t, []string{"Paper Moon"}, titles(Filter{MovieIDs: map[uint64]bool{3: true}}.Apply(movies)))
	assert.Empty(t, Filter{MovieIDs: map[uint64]bool{}}.Apply(movies))
}

func TestParseGenres(t *testing.T) {
	assert.Equal(t, []string{"Action", "Sci"}, ParseGenres(" Action, ,Sci "))
	assert.Nil(t, ParseGenres(""))
}

func TestSplitPolicies(t *testing.T) {
	now := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	showtimes := []model.Showtime{
		{MovieID: 1, Start: now.Add(10 * time.Hour)},
		{MovieID: 2, Start: now.Add(72 * time.Hour)},
	}

	nowShowing, upcoming := Split(movies, showtimes, PolicyScheduled, now)
	assert.Equal(t, []string{"The Long Night", "Night Shift"}, titles(nowShowing))
	assert.Equal(t, []string{"Paper Moon"}, titles(upcoming))

	nowShowing, upcoming = Split(movies, showtimes, PolicyByDate, now)
	assert.Equal(t, []string{"The Long Night"}, titles(nowShowing))
	assert.Equal(t, []string{"Night Shift", "Paper Moon"}, titles(upcoming))
}

func TestMovieIDsOn(t *testing.T) {
	day := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	showtimes := []model.Showtime{
		{MovieID: 1, Start: day.Add(20 * time.Hour)},
		{MovieID: 2, Start: day.Add(24 * time.Hour)},
	}
	assert.Equal(t, map[uint64]bool{1: true}, MovieIDsOn(showtimes, day))
	assert.Empty(t, MovieIDsOn(nil, day))
	assert.Equal(t, PolicyByDate, ParsePolicy("BY_DATE"))
	assert.Equal(t, PolicyScheduled, ParsePolicy("other"))
}
