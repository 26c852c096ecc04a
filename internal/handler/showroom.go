package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ShowroomStore is the showroom persistence.
type ShowroomStore interface {
	Create(ctx context.Context, name string) (model.Showroom, error)
	Get(ctx context.Context, id uint64) (model.Showroom, error)
	List(ctx context.Context) ([]model.Showroom, error)
	Delete(ctx context.Context, id uint64) error
	Showtimes(ctx context.Context) ([]model.Showtime, error)
	ShowtimesOn(ctx context.Context, day time.Time) ([]model.Showtime, error)
	GetShowtime(ctx context.Context, id uint64) (model.Showtime, error)
}

// Scheduler places and removes showtimes under the conflict policy.
type Scheduler interface {
	Schedule(ctx context.Context, roomID, movieID uint64, start time.Time) (model.Showtime, error)
	Remove(ctx context.Context, roomID, movieID uint64, start time.Time) error
}

// ShowroomHandler serves showrooms and showtimes.
type ShowroomHandler struct {
	Rooms     ShowroomStore
	Scheduler Scheduler
}

func NewShowroomHandler(rooms ShowroomStore, scheduler Scheduler) *ShowroomHandler {
	return &ShowroomHandler{Rooms: rooms, Scheduler: scheduler}
}

type showroomReq struct {
	Name string `json:"name" validate:"required,max=100"`
}

type scheduleReq struct {
	MovieID uint64    `json:"movie_id" validate:"required"`
	Start   time.Time `json:"start" validate:"required"`
}

// List handles GET /api/showrooms.
func (h *ShowroomHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	rooms, err := h.Rooms.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rooms})
}

// Showtimes handles GET /api/showrooms/:id/showtimes.
func (h *ShowroomHandler) Showtimes(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid showroom id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Rooms.Get(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": room.Showtimes})
}

// Create handles POST /api/showrooms.
func (h *ShowroomHandler) Create(c echo.Context) error {
	var req showroomReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	room, err := h.Rooms.Create(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, room)
}

// Delete handles DELETE /api/showrooms/:id.
func (h *ShowroomHandler) Delete(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid showroom id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rooms.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Schedule handles POST /api/showrooms/:id/showtimes: 400 for a past
// start, 409 for a conflict, 404 for an unknown showroom or movie.
func (h *ShowroomHandler) Schedule(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid showroom id")
	}
	var req scheduleReq
	if msg, ok := bind(c, &req); !ok {
		return badRequest(c, msg)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Scheduler.Schedule(ctx, id, req.MovieID, req.Start)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

// Unschedule handles DELETE /api/showrooms/:id/showtimes?movie_id=&start=.
func (h *ShowroomHandler) Unschedule(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid showroom id")
	}
	movieID, err := strconv.ParseUint(c.QueryParam("movie_id"), 10, 64)
	if err != nil || movieID == 0 {
		return badRequest(c, "movie_id is required")
	}
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return badRequest(c, "start must be RFC 3339")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Scheduler.Remove(ctx, id, movieID, start); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListShowtimes handles GET /api/showtimes?date=YYYY-MM-DD.  Without a
// date every showtime is returned.
func (h *ShowroomHandler) ListShowtimes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	var (
		sts []model.Showtime
		err error
	)
	if raw := strings.TrimSpace(c.QueryParam("date")); raw != "" {
		day, perr := time.Parse("2006-01-02", raw)
		if perr != nil {
			return badRequest(c, "date must be YYYY-MM-DD")
		}
		sts, err = h.Rooms.ShowtimesOn(ctx, day)
	} else {
		sts, err = h.Rooms.Showtimes(ctx)
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": sts})
}

// GetShowtime handles GET /api/showtimes/:id, including booked seats.
func (h *ShowroomHandler) GetShowtime(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	st, err := h.Rooms.GetShowtime(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
