package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pricing"
)

// Session is a successful login.
type Session struct {
	User struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	} `json:"user"`
	Access struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"access"`
	Refresh struct {
		Token   string    `json:"token"`
		Expires time.Time `json:"expires"`
	} `json:"refresh"`
}

// NewCard is a card entered at checkout.
type NewCard struct {
	Number         string        `json:"number"`
	ExpMonth       int           `json:"exp_month"`
	ExpYear        int           `json:"exp_year"`
	CVV            string        `json:"cvv"`
	BillingName    string        `json:"billing_name"`
	BillingAddress model.Address `json:"billing_address"`
}

// Complete reports whether every field checkout requires is filled.
func (n NewCard) Complete() bool {
	return strings.TrimSpace(n.Number) != "" && n.ExpMonth > 0 && n.ExpYear > 0 &&
		strings.TrimSpace(n.CVV) != "" && strings.TrimSpace(n.BillingName) != "" &&
		n.BillingAddress.Complete()
}

// BookingRequest is the body of POST /api/bookings and its quote.
type BookingRequest struct {
	ShowtimeID    uint64             `json:"showtime_id"`
	Seats         []string           `json:"seats"`
	Counts        model.TicketCounts `json:"ticket_counts"`
	PaymentCardID uint64             `json:"payment_card_id,omitempty"`
	NewCard       *NewCard           `json:"new_card,omitempty"`
	PromoCode     string             `json:"promo_code,omitempty"`
	Zip           string             `json:"zip,omitempty"`
}

// Quote is the server's price for a prospective booking.
type Quote struct {
	pricing.Breakdown
	PromoCode string `json:"promo_code,omitempty"`
	Zip       string `json:"zip,omitempty"`
}

// Promo is a validated promotion code.
type Promo struct {
	Code            string  `json:"code"`
	DiscountPercent float64 `json:"discount_percent"`
}

// Profile is the signed-in user's account page.
type Profile struct {
	User    model.User          `json:"user"`
	Cards   []model.PaymentCard `json:"cards"`
	Tickets []model.Ticket      `json:"tickets"`
}

// ReturnResult answers a ticket return.
type ReturnResult struct {
	Message          string `json:"message"`
	RefundEligible   bool   `json:"refund_eligible"`
	MinutesUntilShow int64  `json:"minutes_until_show"`
}

// Login signs in and keeps the access token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil,
		map[string]string{"email": email, "password": password}, &s)
	if err != nil {
		return Session{}, err
	}
	c.SetToken(s.Access.Token)
	return s, nil
}

// Logout ends every session of the current user and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, struct{}{}, nil)
	c.SetToken("")
	return err
}

// Movies lists the catalog, filtered on the server by title and genres.
func (c *Client) Movies(ctx context.Context, title string, genres []string) ([]model.Movie, error) {
	q := url.Values{}
	if t := strings.TrimSpace(title); t != "" {
		q.Set("title", t)
	}
	if len(genres) > 0 {
		q.Set("genres", strings.Join(genres, ","))
	}
	var resp struct {
		Items []model.Movie `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/movies", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Showtimes lists showtimes; a non-zero day restricts them to that date.
func (c *Client) Showtimes(ctx context.Context, day time.Time) ([]model.Showtime, error) {
	q := url.Values{}
	if !day.IsZero() {
		q.Set("date", day.Format("2006-01-02"))
	}
	var resp struct {
		Items []model.Showtime `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/showtimes", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Showtime loads one showtime with its booked seats.
func (c *Client) Showtime(ctx context.Context, id uint64) (model.Showtime, error) {
	var st model.Showtime
	err := c.do(ctx, http.MethodGet, "/api/showtimes/"+strconv.FormatUint(id, 10), nil, nil, &st)
	return st, err
}

// Showrooms lists every showroom with its showtimes.
func (c *Client) Showrooms(ctx context.Context) ([]model.Showroom, error) {
	var resp struct {
		Items []model.Showroom `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/showrooms", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// Prices returns the ticket price table.
func (c *Client) Prices(ctx context.Context) ([]model.TicketPrice, error) {
	var resp struct {
		Items []model.TicketPrice `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tickets/prices", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ValidatePromo checks a code against the active promotions.
func (c *Client) ValidatePromo(ctx context.Context, code string) (Promo, error) {
	var p Promo
	err := c.do(ctx, http.MethodGet, "/api/promotions/validate", url.Values{"code": {code}}, nil, &p)
	return p, err
}

// Profile loads the current user's account, cards and tickets.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodGet, "/api/profile", nil, nil, &p)
	return p, err
}

// Book submits a booking.
func (c *Client) Book(ctx context.Context, req BookingRequest) (model.Ticket, error) {
	var t model.Ticket
	err := c.do(ctx, http.MethodPost, "/api/bookings", nil, req, &t)
	return t, err
}

// QuoteBooking prices a booking on the server without persisting it.
func (c *Client) QuoteBooking(ctx context.Context, req BookingRequest) (Quote, error) {
	var q Quote
	err := c.do(ctx, http.MethodPost, "/api/bookings/quote", nil, req, &q)
	return q, err
}

// ReturnTicket gives a ticket back.
func (c *Client) ReturnTicket(ctx context.Context, ticketNumber string) (ReturnResult, error) {
	var r ReturnResult
	err := c.do(ctx, http.MethodDelete, "/api/profile/tickets/"+url.PathEscape(ticketNumber), nil, nil, &r)
	return r, err
}

// ScheduleShowtime creates a showtime (admin).
func (c *Client) ScheduleShowtime(ctx context.Context, roomID, movieID uint64, start time.Time) (model.Showtime, error) {
	var st model.Showtime
	body := map[string]any{"movie_id": movieID, "start": start.UTC()}
	err := c.do(ctx, http.MethodPost, "/api/showrooms/"+strconv.FormatUint(roomID, 10)+"/showtimes", nil, body, &st)
	return st, err
}

// RemoveShowtime deletes the showtime keyed by showroom, movie and start
// (admin).
func (c *Client) RemoveShowtime(ctx context.Context, roomID, movieID uint64, start time.Time) error {
	q := url.Values{
		"movie_id": {strconv.FormatUint(movieID, 10)},
		"start":    {start.UTC().Format(time.RFC3339)},
	}
	return c.do(ctx, http.MethodDelete, "/api/showrooms/"+strconv.FormatUint(roomID, 10)+"/showtimes", q, nil, nil)
}
