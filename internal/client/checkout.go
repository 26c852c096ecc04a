package client

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pricing"
	"github.com/iliyamo/cinema-ticketing/internal/seating"
)

// Checkout is the state of one purchase: seats, tickets, promo, payment
// and tax.  It is single-owner and not safe for concurrent use.
type Checkout struct {
	api       *Client
	showtime  model.Showtime
	selection *seating.Selection
	prices    pricing.Table

	promo   *Promo
	cards   []model.PaymentCard
	cardID  uint64
	newCard *NewCard

	manualZip  string
	profileZip string
	taxRate    float64

	notice string
	last   *model.Ticket
}

// NewCheckout loads the showtime with its booked seats and the price
// table.  When signed in, the profile supplies saved cards and the home
// ZIP; a 401 there only means the user must sign in before submitting.
func NewCheckout(ctx context.Context, api *Client, showtimeID uint64, counts model.TicketCounts) (*Checkout, error) {
	st, err := api.Showtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	prices, err := api.Prices(ctx)
	if err != nil {
		return nil, err
	}
	co := &Checkout{
		api:       api,
		showtime:  st,
		selection: seating.New(st.BookedSeats, counts),
		prices:    pricing.TableFrom(prices),
	}
	if api.Authenticated() {
		p, err := api.Profile(ctx)
		switch {
		case err == nil:
			co.cards = p.Cards
			co.profileZip = p.User.Address.Zip
		case IsUnauthorized(err):
			api.SetToken("")
		default:
			return nil, err
		}
	}
	return co, nil
}

// Showtime is the showtime being booked.
func (co *Checkout) Showtime() model.Showtime { return co.showtime }

// Selection exposes the seat map state.
func (co *Checkout) Selection() *seating.Selection { return co.selection }

// SelectSeat toggles a seat; see seating.Selection.SelectSeat.
func (co *Checkout) SelectSeat(code string) error {
	co.notice = ""
	return co.selection.SelectSeat(code)
}

// SetTicketCount changes one ticket category.  When seats are dropped
// to fit, Notice reports it.
func (co *Checkout) SetTicketCount(t model.TicketType, qty int) {
	co.notice = ""
	if co.selection.SetTicketCount(t, qty) {
		co.notice = seating.AdjustedNotice
	}
}

// Notice is the last informational message, if any.
func (co *Checkout) Notice() string { return co.notice }

// Cards are the user's saved cards.
func (co *Checkout) Cards() []model.PaymentCard { return co.cards }

// SelectCard pays with a saved card.
func (co *Checkout) SelectCard(id uint64) error {
	for _, c := range co.cards {
		if c.ID == id {
			co.cardID, co.newCard = id, nil
			return nil
		}
	}
	return ErrNoPaymentCard
}

// UseNewCard pays with a card entered now.
func (co *Checkout) UseNewCard(nc NewCard) {
	co.cardID, co.newCard = 0, &nc
}

// SetZip sets the ZIP typed at checkout; it wins over every other source.
func (co *Checkout) SetZip(zip string) { co.manualZip = strings.TrimSpace(zip) }

// TaxZip picks the ZIP used for tax: typed, then the paying card's
// billing ZIP, then the profile address.
func (co *Checkout) TaxZip() string {
	if co.manualZip != "" {
		return co.manualZip
	}
	if co.newCard != nil && co.newCard.BillingAddress.Zip != "" {
		return co.newCard.BillingAddress.Zip
	}
	for _, c := range co.cards {
		if c.ID == co.cardID && c.BillingAddress.Zip != "" {
			return c.BillingAddress.Zip
		}
	}
	return co.profileZip
}

// RefreshTax asks the server to price the current selection and keeps
// the tax rate it used.  On failure the previous rate stays.
func (co *Checkout) RefreshTax(ctx context.Context) error {
	q, err := co.api.QuoteBooking(ctx, co.request())
	if err != nil {
		return err
	}
	co.taxRate = q.TaxRate
	return nil
}

// TaxRate is the rate used by Totals.
func (co *Checkout) TaxRate() float64 { return co.taxRate }

// ApplyPromo validates code with the server.  An unknown code leaves no
// promo applied and reports MsgPromoNotFound; other failures carry the
// server's message.
func (co *Checkout) ApplyPromo(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrPromoCodeEmpty
	}
	p, err := co.api.ValidatePromo(ctx, code)
	if err != nil {
		co.promo = nil
		if IsNotFound(err) {
			return &APIError{Status: http.StatusNotFound, Message: MsgPromoNotFound}
		}
		return err
	}
	co.promo = &p
	return nil
}

// RemovePromo drops the applied promo.
func (co *Checkout) RemovePromo() { co.promo = nil }

// Promo is the applied promotion, or nil.
func (co *Checkout) Promo() *Promo { return co.promo }

// Totals prices the current tickets.  Amounts are exact; use Rounded for
// display.
func (co *Checkout) Totals() (pricing.Breakdown, error) {
	var discount float64
	if co.promo != nil {
		discount = co.promo.DiscountPercent
	}
	return pricing.Quote(co.selection.Counts(), co.prices, discount, co.taxRate)
}

// Validate checks everything Submit needs without touching the network.
func (co *Checkout) Validate() error {
	switch {
	case !co.api.Authenticated():
		return ErrNotAuthenticated
	case len(co.selection.Selected()) == 0:
		return ErrNoSeats
	case !co.selection.CanCheckout():
		return ErrSeatCountMismatch
	}
	if co.newCard != nil {
		if !co.newCard.Complete() {
			return ErrIncompleteCard
		}
		return nil
	}
	if len(co.cards) == 0 {
		return ErrIncompleteCard
	}
	if co.cardID == 0 {
		return ErrNoPaymentCard
	}
	return nil
}

// Submit books the selection with exactly one request.  On 409 the taken
// seats are marked booked and dropped from the selection, and the error
// carries MsgSeatsTaken.  A 401 comes back as is; check IsUnauthorized.
func (co *Checkout) Submit(ctx context.Context) (model.Ticket, error) {
	if err := co.Validate(); err != nil {
		return model.Ticket{}, err
	}
	t, err := co.api.Book(ctx, co.request())
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) && ae.Status == http.StatusConflict {
			co.selection.MarkBooked(ae.Seats)
			return model.Ticket{}, &APIError{Status: ae.Status, Message: MsgSeatsTaken, Seats: ae.Seats}
		}
		return model.Ticket{}, err
	}
	co.last = &t
	return t, nil
}

// LastBooking is the ticket of the last successful Submit, or nil.
func (co *Checkout) LastBooking() *model.Ticket { return co.last }

func (co *Checkout) request() BookingRequest {
	req := BookingRequest{
		ShowtimeID:    co.showtime.ID,
		Seats:         co.selection.Selected(),
		Counts:        co.selection.Counts(),
		PaymentCardID: co.cardID,
		NewCard:       co.newCard,
		Zip:           co.TaxZip(),
	}
	if co.promo != nil {
		req.PromoCode = co.promo.Code
	}
	return req
}
