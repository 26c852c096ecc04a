package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/catalog"
	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// MovieStore is the movie persistence.
type MovieStore interface {
	List(ctx context.Context) ([]model.Movie, error)
	GetByID(ctx context.Context, id uint64) (model.Movie, error)
	Create(ctx context.Context, m *model.Movie) error
	Update(ctx context.Context, m model.Movie) error
	Delete(ctx context.Context, id uint64) error
}

// ShowtimeLister lists every scheduled showtime.
type ShowtimeLister interface {
	Showtimes(ctx context.Context) ([]model.Showtime, error)
}

// MovieHandler serves the public catalog and the admin movie editor.
type MovieHandler struct {
	Movies    MovieStore
	Showtimes ShowtimeLister
	Policy    catalog.Policy
	Now       func() time.Time
}

func NewMovieHandler(movies MovieStore, showtimes ShowtimeLister, policy catalog.Policy) *MovieHandler {
	return &MovieHandler{Movies: movies, Showtimes: showtimes, Policy: policy, Now: time.Now}
}

type movieReq struct {
	Title      string   `json:"title" validate:"required,max=255"`
	Genres     []string `json:"genres"`
	Cast       []string `json:"cast"`
	Director   string   `json:"director" validate:"max=255"`
	Producer   string   `json:"producer" validate:"max=255"`
	Synopsis   string   `json:"synopsis"`
	Reviews    []string `json:"reviews"`
	PosterURL  string   `json:"poster_url" validate:"omitempty,url"`
	TrailerURL string   `json:"trailer_url" validate:"omitempty,url"`
	Rating     string   `json:"rating"`
}

func (r movieReq) movie(id uint64) model.Movie {
	return model.Movie{
		ID:         id,
		Title:      strings.TrimSpace(r.Title),
		Genres:     cleanList(r.Genres),
		Cast:       cleanList(r.Cast),
		Director:   strings.TrimSpace(r.Director),
		Producer:   strings.TrimSpace(r.Producer),
		Synopsis:   strings.TrimSpace(r.Synopsis),
		Reviews:    cleanList(r.Reviews),
		PosterURL:  strings.TrimSpace(r.PosterURL),
		TrailerURL: strings.TrimSpace(r.TrailerURL),
		Rating:     model.NormalizeRating(r.Rating),
	}
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// List handles GET /api/movies?title=&genres=a,b.
func (h *MovieHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	movies, err := h.Movies.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	f := catalog.Filter{Title: c.QueryParam("title"), Genres: catalog.ParseGenres(c.QueryParam("genres"))}
	return c.JSON(http.StatusOK, echo.Map{"items": f.Apply(movies)})
}

// Get handles GET /api/movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// NowShowing handles GET /api/movies/now-showing.
func (h *MovieHandler) NowShowing(c echo.Context) error { return h.split(c, true) }

// Upcoming handles GET /api/movies/upcoming.
func (h *MovieHandler) Upcoming(c echo.Context) error { return h.split(c, false) }

func (h *MovieHandler) split(c echo.Context, showing bool) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	movies, err := h.Movies.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	sts, err := h.Showtimes.Showtimes(ctx)
	if err != nil {
		return fail(c, err)
	}
	now, upcoming := catalog.Split(movies, sts, h.Policy, h.Now())
	if showing {
		return c.JSON(http.StatusOK, echo.Map{"items": now})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": upcoming})
}

// Create handles POST /api/movies.
func (h *MovieHandler) Create(c echo.Context) error {
	var req movieReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	m := req.movie(0)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Movies.Create(ctx, &m); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// Update handles PUT /api/movies/:id.
func (h *MovieHandler) Update(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	var req movieReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	m := req.movie(id)
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Movies.Update(ctx, m); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Delete handles DELETE /api/movies/:id.  Movies with showtimes answer 409.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid movie id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Movies.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
