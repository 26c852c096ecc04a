package model

import "strings"

// Movie is a catalog entry.  The booking workflow treats it as read-only;
// only admins create, update or delete movies.
type Movie struct {
	ID         uint64   `json:"id"`
	Title      string   `json:"title"`
	Genres     []string `json:"genres"`
	Cast       []string `json:"cast"`
	Director   string   `json:"director"`
	Producer   string   `json:"producer"`
	Synopsis   string   `json:"synopsis"`
	Reviews    []string `json:"reviews"`
	PosterURL  string   `json:"poster_url"`
	TrailerURL string   `json:"trailer_url"`
	Rating     string   `json:"rating"`
}

// Content ratings accepted by the catalog.
const (
	RatingG    = "G"
	RatingPG   = "PG"
	RatingPG13 = "PG-13"
	RatingR    = "R"
	RatingNC17 = "NC-17"
	RatingNR   = "NR"
)

// NormalizeRating maps free-form input onto one of the known ratings.
// Case, spaces, dashes and underscores are ignored; unknown values become NR.
func NormalizeRating(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
	switch s {
	case "G":
		return RatingG
	case "PG":
		return RatingPG
	case "PG13":
		return RatingPG13
	case "R":
		return RatingR
	case "NC17":
		return RatingNC17
	default:
		return RatingNR
	}
}
