package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

// DefaultRefundWindow is how long before the show a return still earns a
// refund.
const DefaultRefundWindow = 60 * time.Minute

// TicketStore reads and removes tickets.
type TicketStore interface {
	Get(ctx context.Context, ticketNumber string) (model.Ticket, error)
	Delete(ctx context.Context, ticketNumber string, userID uint64) error
}

// CardStore persists saved cards.
type CardStore interface {
	Create(ctx context.Context, c *model.PaymentCard) error
}

// ProfileStore updates self-service user fields.
type ProfileStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, name string, optIn bool, addr model.Address) error
	SetPassword(ctx context.Context, id uint64, password string, cost int) error
}

// ProfileService handles the signed-in user's account actions.
type ProfileService struct {
	users        ProfileStore
	tickets      TicketStore
	cards        CardStore
	emails       EmailPublisher
	refundWindow time.Duration
	bcryptCost   int
	logger       *log.Logger
	now          func() time.Time
}

func NewProfileService(users ProfileStore, tickets TicketStore, cards CardStore, emails EmailPublisher,
	refundWindow time.Duration, bcryptCost int, logger *log.Logger) *ProfileService {
	if logger == nil {
		logger = log.Default()
	}
	if refundWindow <= 0 {
		refundWindow = DefaultRefundWindow
	}
	return &ProfileService{
		users: users, tickets: tickets, cards: cards, emails: emails,
		refundWindow: refundWindow, bcryptCost: bcryptCost, logger: logger, now: time.Now,
	}
}

// ReturnResult is the outcome of a ticket return.
type ReturnResult struct {
	Message          string `json:"message"`
	RefundEligible   bool   `json:"refund_eligible"`
	MinutesUntilShow int64  `json:"minutes_until_show"`
}

// ReturnTicket deletes the user's ticket, freeing its seats.  The refund
// is granted when the show starts at least the refund window from now.
func (s *ProfileService) ReturnTicket(ctx context.Context, userID uint64, ticketNumber string) (ReturnResult, error) {
	t, err := s.tickets.Get(ctx, ticketNumber)
	if err != nil {
		return ReturnResult{}, err
	}
	if t.UserID != userID {
		return ReturnResult{}, repository.ErrNotFound
	}
	until := t.Showtime.Sub(s.now())
	res := ReturnResult{
		Message:          "Ticket returned successfully",
		RefundEligible:   until >= s.refundWindow,
		MinutesUntilShow: int64(until / time.Minute),
	}
	if err := s.tickets.Delete(ctx, ticketNumber, userID); err != nil {
		return ReturnResult{}, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.logger.Printf("profile: load user %d for return email: %v", userID, err)
		return res, nil
	}
	subject, note := "Ticket Cancelled", fmt.Sprintf(
		"Since the cancellation was within %d minutes of the showtime, no refund is available.", int(s.refundWindow/time.Minute))
	if res.RefundEligible {
		subject, note = "Ticket Refunded", fmt.Sprintf(
			"Since you cancelled more than %d minutes before the showtime, you are eligible for a full refund.", int(s.refundWindow/time.Minute))
	}
	s.queue(ctx, queue.EmailRequestedEvent{
		Kind:    queue.EmailTicketReturn,
		To:      u.Email,
		Subject: subject,
		Body: fmt.Sprintf("Hi %s,\n\nYour ticket for '%s' on %s has been cancelled.\nTicket Number: %s\nSeats: %s\n\n%s\n",
			u.Name, t.MovieTitle, t.Showtime.Format(time.RFC1123), t.TicketNumber, strings.Join(t.Seats, ", "), note),
	})
	return res, nil
}

// ProfileUpdate carries the editable profile fields.  Nil pointers leave a
// field unchanged.
type ProfileUpdate struct {
	Name            *string        `json:"name"`
	PromotionsOptIn *bool          `json:"promotions_opt_in"`
	Address         *model.Address `json:"address"`
}

// UpdateProfile applies in and sends a change notice when something
// changed.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uint64, in ProfileUpdate) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	changed := false
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return model.User{}, invalid("name cannot be empty")
		}
		u.Name, changed = name, true
	}
	if in.PromotionsOptIn != nil {
		u.PromotionsOptIn, changed = *in.PromotionsOptIn, true
	}
	if in.Address != nil {
		u.Address, changed = trimAddress(*in.Address), true
	}
	if !changed {
		return u, nil
	}
	if err := s.users.UpdateProfile(ctx, userID, u.Name, u.PromotionsOptIn, u.Address); err != nil {
		return model.User{}, err
	}
	s.queue(ctx, queue.EmailRequestedEvent{
		Kind:    queue.EmailProfileChange,
		To:      u.Email,
		Subject: "Your profile was changed",
		Body:    "We noticed profile info was updated. If this wasn't you, reset your password now.\n",
	})
	return u, nil
}

// ChangePassword replaces the password after checking the current one.
func (s *ProfileService) ChangePassword(ctx context.Context, userID uint64, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return invalid("Current password incorrect")
	}
	if err := utils.CheckPasswordStrength(next); err != nil {
		return invalid("%s", err.Error())
	}
	if err := s.users.SetPassword(ctx, userID, next, s.bcryptCost); err != nil {
		return err
	}
	s.queue(ctx, queue.EmailRequestedEvent{
		Kind:    queue.EmailProfileChange,
		To:      u.Email,
		Subject: "Your password was changed",
		Body:    "If this wasn't you, reset it now.\n",
	})
	return nil
}

// AddCard validates a card and stores its non-sensitive fields.
func (s *ProfileService) AddCard(ctx context.Context, userID uint64, nc NewCard) (model.PaymentCard, error) {
	pan, err := utils.NormalizeCardNumber(nc.Number)
	if err != nil {
		return model.PaymentCard{}, invalid("Invalid card number")
	}
	if err := utils.CheckExpiry(nc.ExpMonth, nc.ExpYear, s.now()); err != nil {
		return model.PaymentCard{}, invalid("%s", err.Error())
	}
	if strings.TrimSpace(nc.BillingName) == "" {
		return model.PaymentCard{}, invalid("billing name is required")
	}
	c := model.PaymentCard{
		UserID:         userID,
		Brand:          utils.CardBrand(pan),
		Last4:          utils.Last4(pan),
		ExpMonth:       nc.ExpMonth,
		ExpYear:        nc.ExpYear,
		BillingName:    strings.TrimSpace(nc.BillingName),
		BillingAddress: trimAddress(nc.BillingAddress),
	}
	if err := s.cards.Create(ctx, &c); err != nil {
		return model.PaymentCard{}, err
	}
	return c, nil
}

func (s *ProfileService) queue(ctx context.Context, ev queue.EmailRequestedEvent) {
	if s.emails == nil || ev.To == "" {
		return
	}
	if err := s.emails.PublishEmail(ctx, ev); err != nil {
		s.logger.Printf("profile: queue %s email failed: %v", ev.Kind, err)
	}
}

func trimAddress(a model.Address) model.Address {
	return model.Address{
		Street: strings.TrimSpace(a.Street),
		City:   strings.TrimSpace(a.City),
		State:  strings.TrimSpace(a.State),
		Zip:    strings.TrimSpace(a.Zip),
	}
}
