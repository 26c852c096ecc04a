package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pricing"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// BookingRequest is a checkout submission.  Exactly one of PaymentCardID
// and NewCard is used; a saved card wins when both are present.
type BookingRequest struct {
	ShowtimeID    uint64             `json:"showtime_id"`
	Seats         []string           `json:"seats"`
	Counts        model.TicketCounts `json:"ticket_counts"`
	PaymentCardID uint64             `json:"payment_card_id,omitempty"`
	NewCard       *NewCard           `json:"new_card,omitempty"`
	PromoCode     string             `json:"promo_code,omitempty"`
	Zip           string             `json:"zip,omitempty"`
}

// NewCard is a card entered inline at checkout.  Number and CVV are only
// validated, never stored.
type NewCard struct {
	Number         string        `json:"number"`
	ExpMonth       int           `json:"exp_month"`
	ExpYear        int           `json:"exp_year"`
	CVV            string        `json:"cvv"`
	BillingName    string        `json:"billing_name"`
	BillingAddress model.Address `json:"billing_address"`
}

// Quote is the server-side price of a prospective booking.
type Quote struct {
	pricing.Breakdown
	PromoCode string `json:"promo_code,omitempty"`
	Zip       string `json:"zip,omitempty"`
}

// ShowtimeLookup resolves a showtime with its booked seats.
type ShowtimeLookup interface {
	GetShowtime(ctx context.Context, id uint64) (model.Showtime, error)
}

// PriceLister returns the price table.
type PriceLister interface {
	List(ctx context.Context) ([]model.TicketPrice, error)
}

// CardLookup reads a user's saved cards.
type CardLookup interface {
	GetForUser(ctx context.Context, id, userID uint64) (model.PaymentCard, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.PaymentCard, error)
}

// UserLookup resolves a user by id.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TicketBooker persists a ticket together with its seats and an optional
// inline card.
type TicketBooker interface {
	Book(ctx context.Context, t *model.Ticket, newCard *model.PaymentCard) error
}

// TaxResolver turns ZIP candidates into a rate; it never fails.
type TaxResolver interface {
	Resolve(ctx context.Context, candidates ...string) (rate float64, zip string)
}

// PromoValidator returns the active promotion for a code.
type PromoValidator interface {
	Validate(ctx context.Context, code string) (model.Promotion, error)
}

// BookingDeps groups BookingService collaborators.
type BookingDeps struct {
	Showtimes ShowtimeLookup
	Movies    MovieLookup
	Prices    PriceLister
	Cards     CardLookup
	Users     UserLookup
	Tickets   TicketBooker
	Promos    PromoValidator
	Tax       TaxResolver
	Events    BookingPublisher
}

// BookingService prices and confirms bookings.
type BookingService struct {
	BookingDeps
	logger *log.Logger
	now    func() time.Time
}

func NewBookingService(deps BookingDeps, logger *log.Logger) *BookingService {
	if logger == nil {
		logger = log.Default()
	}
	return &BookingService{BookingDeps: deps, logger: logger, now: time.Now}
}

// checkout is the validated, priced form of a request.
type checkout struct {
	user     model.User
	showtime model.Showtime
	movie    model.Movie
	seats    []string
	card     *model.PaymentCard
	newCard  *model.PaymentCard
	promo    model.Promotion
	quote    Quote
}

// Quote prices req for userID without persisting anything.  Seat and
// payment details are not required.
func (s *BookingService) Quote(ctx context.Context, userID uint64, req BookingRequest) (Quote, error) {
	if err := checkCounts(req.Counts); err != nil {
		return Quote{}, err
	}
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return Quote{}, err
	}
	var cardZip string
	if req.PaymentCardID != 0 {
		if c, err := s.Cards.GetForUser(ctx, req.PaymentCardID, userID); err == nil {
			cardZip = c.BillingAddress.Zip
		}
	} else if req.NewCard != nil {
		cardZip = req.NewCard.BillingAddress.Zip
	}
	var co checkout
	co.user = user
	if err := s.price(ctx, &co, req, cardZip); err != nil {
		return Quote{}, err
	}
	return co.quote, nil
}

// Book validates req, prices it and stores the ticket.  Seats held by
// another ticket yield a *repository.SeatTakenError.  The confirmation
// event is published after commit; a publish failure is only logged.
func (s *BookingService) Book(ctx context.Context, userID uint64, req BookingRequest) (model.Ticket, error) {
	co, err := s.prepare(ctx, userID, req)
	if err != nil {
		return model.Ticket{}, err
	}

	q := co.quote.Breakdown
	t := model.Ticket{
		TicketNumber:    uuid.NewString(),
		UserID:          userID,
		ShowtimeID:      co.showtime.ID,
		MovieID:         co.movie.ID,
		MovieTitle:      co.movie.Title,
		ShowroomID:      co.showtime.ShowroomID,
		Showtime:        co.showtime.Start,
		Seats:           co.seats,
		Counts:          req.Counts,
		Subtotal:        q.Subtotal,
		PromoCode:       co.promo.Code,
		DiscountPercent: co.promo.DiscountPercent,
		TaxRate:         q.TaxRate,
		Tax:             q.Tax,
		Total:           q.Total,
		CreatedAt:       s.now().UTC().Truncate(time.Second),
	}
	if co.card != nil {
		t.PaymentCard = co.card.Snapshot()
	}
	if err := s.Tickets.Book(ctx, &t, co.newCard); err != nil {
		return model.Ticket{}, err
	}

	ev := queue.BookingConfirmedEvent{
		TicketNumber: t.TicketNumber,
		UserID:       userID,
		Email:        co.user.Email,
		Name:         co.user.Name,
		ShowtimeID:   t.ShowtimeID,
		ShowroomID:   t.ShowroomID,
		MovieTitle:   t.MovieTitle,
		StartsAt:     t.Showtime.Format(time.RFC3339),
		Seats:        t.Seats,
		Adult:        t.Counts.Adult,
		Child:        t.Counts.Child,
		Senior:       t.Counts.Senior,
		PromoCode:    t.PromoCode,
		Subtotal:     t.Subtotal,
		Tax:          t.Tax,
		Total:        t.Total,
		CardBrand:    t.PaymentCard.Brand,
		CardLast4:    t.PaymentCard.Last4,
		ConfirmedAt:  t.CreatedAt.Format(time.RFC3339),
	}
	if s.Events != nil {
		if err := s.Events.PublishBookingConfirmed(ctx, ev); err != nil {
			s.logger.Printf("booking: publish confirmation for %s failed: %v", t.TicketNumber, err)
		}
	}
	return t, nil
}

func (s *BookingService) prepare(ctx context.Context, userID uint64, req BookingRequest) (checkout, error) {
	var co checkout
	if err := checkCounts(req.Counts); err != nil {
		return co, err
	}
	if req.Counts.Total() == 0 {
		return co, invalid("select at least one ticket")
	}
	if len(req.Seats) == 0 {
		return co, invalid("select at least one seat")
	}
	seen := make(map[string]bool, len(req.Seats))
	for _, raw := range req.Seats {
		code, err := model.ParseSeatCode(raw)
		if err != nil {
			return co, invalid("invalid seat %q", raw)
		}
		if seen[code] {
			return co, invalid("seat %s selected twice", code)
		}
		seen[code] = true
		co.seats = append(co.seats, code)
	}
	if len(co.seats) != req.Counts.Total() {
		return co, invalid("selected %d seats for %d tickets", len(co.seats), req.Counts.Total())
	}

	var err error
	if co.user, err = s.Users.GetByID(ctx, userID); err != nil {
		return co, err
	}
	if co.showtime, err = s.Showtimes.GetShowtime(ctx, req.ShowtimeID); err != nil {
		return co, err
	}
	if !co.showtime.Start.After(s.now()) {
		return co, invalid("showtime has already started")
	}
	var taken []string
	for _, code := range co.seats {
		for _, b := range co.showtime.BookedSeats {
			if b == code {
				taken = append(taken, code)
			}
		}
	}
	if len(taken) > 0 {
		return co, &repository.SeatTakenError{Seats: taken}
	}
	if co.movie, err = s.Movies.GetByID(ctx, co.showtime.MovieID); err != nil {
		return co, err
	}

	if err := s.payment(ctx, &co, userID, req); err != nil {
		return co, err
	}
	cardZip := ""
	if co.card != nil {
		cardZip = co.card.BillingAddress.Zip
	}
	if err := s.price(ctx, &co, req, cardZip); err != nil {
		return co, err
	}
	return co, nil
}

func (s *BookingService) payment(ctx context.Context, co *checkout, userID uint64, req BookingRequest) error {
	if req.PaymentCardID != 0 {
		c, err := s.Cards.GetForUser(ctx, req.PaymentCardID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("payment card not found")
		}
		if err != nil {
			return err
		}
		co.card = &c
		return nil
	}
	if req.NewCard == nil {
		saved, err := s.Cards.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(saved) > 0 {
			return invalid("select a payment card")
		}
		return invalid("payment card is required")
	}
	nc := req.NewCard
	pan, err := utils.NormalizeCardNumber(nc.Number)
	if err != nil {
		return invalid("%s", err.Error())
	}
	if err := utils.CheckExpiry(nc.ExpMonth, nc.ExpYear, s.now()); err != nil {
		return invalid("%s", err.Error())
	}
	if err := utils.CheckCVV(strings.TrimSpace(nc.CVV)); err != nil {
		return invalid("%s", err.Error())
	}
	if strings.TrimSpace(nc.BillingName) == "" || !nc.BillingAddress.Complete() {
		return invalid("billing name and full billing address are required")
	}
	co.card = &model.PaymentCard{
		UserID:         userID,
		Brand:          utils.CardBrand(pan),
		Last4:          utils.Last4(pan),
		ExpMonth:       nc.ExpMonth,
		ExpYear:        nc.ExpYear,
		BillingName:    strings.TrimSpace(nc.BillingName),
		BillingAddress: nc.BillingAddress,
	}
	co.newCard = co.card
	return nil
}

// price fills co.promo and co.quote.  ZIP priority is the manual entry,
// then the card billing ZIP, then the profile address.
func (s *BookingService) price(ctx context.Context, co *checkout, req BookingRequest, cardZip string) error {
	prices, err := s.Prices.List(ctx)
	if err != nil {
		return err
	}
	sub, err := pricing.Subtotal(req.Counts, pricing.TableFrom(prices))
	if err != nil {
		return err
	}
	if code := strings.TrimSpace(req.PromoCode); code != "" {
		p, err := s.Promos.Validate(ctx, code)
		if err != nil {
			return err
		}
		co.promo = p
	}
	rate, zip := s.Tax.Resolve(ctx, req.Zip, cardZip, co.user.Address.Zip)
	co.quote = Quote{
		Breakdown: pricing.Compute(sub, co.promo.DiscountPercent, rate).Rounded(),
		PromoCode: co.promo.Code,
		Zip:       zip,
	}
	return nil
}

func checkCounts(c model.TicketCounts) error {
	if c.Adult < 0 || c.Child < 0 || c.Senior < 0 {
		return invalid("ticket counts cannot be negative")
	}
	return nil
}
