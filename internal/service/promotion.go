package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Promo lookup outcomes.  The messages are shown to users verbatim.
var (
	ErrPromoRequired = errors.New("Promo code is required")
	ErrPromoNotFound = errors.New("Promo not found")
	ErrPromoInactive = errors.New("Promo is not currently valid")
)

// MaxPromoCodeLen bounds promotion codes.
const MaxPromoCodeLen = 6

// PromotionStore is the persistence PromotionService needs.
type PromotionStore interface {
	GetByCode(ctx context.Context, code string) (model.Promotion, error)
	GetByID(ctx context.Context, id uint64) (model.Promotion, error)
	Create(ctx context.Context, p *model.Promotion) error
	MarkSent(ctx context.Context, id uint64, at time.Time) error
}

// RecipientStore lists users who opted into promotion emails.
type RecipientStore interface {
	PromotionRecipients(ctx context.Context) ([]model.User, error)
}

type PromotionService struct {
	promos     PromotionStore
	recipients RecipientStore
	emails     EmailPublisher
	logger     *log.Logger
	now        func() time.Time
}

func NewPromotionService(promos PromotionStore, recipients RecipientStore, emails EmailPublisher, logger *log.Logger) *PromotionService {
	if logger == nil {
		logger = log.Default()
	}
	return &PromotionService{promos: promos, recipients: recipients, emails: emails, logger: logger, now: time.Now}
}

// Validate returns the promotion for code when it is active today.
func (s *PromotionService) Validate(ctx context.Context, code string) (model.Promotion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.Promotion{}, ErrPromoRequired
	}
	p, err := s.promos.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Promotion{}, ErrPromoNotFound
	}
	if err != nil {
		return model.Promotion{}, err
	}
	if !p.ActiveOn(s.now().UTC()) {
		return model.Promotion{}, ErrPromoInactive
	}
	return p, nil
}

// PromotionInput is the admin create request.
type PromotionInput struct {
	Code            string
	DiscountPercent float64
	StartDate       string
	EndDate         string
}

// Create validates in and stores the promotion.  Duplicate codes surface as
// repository.ErrCodeExists.
func (s *PromotionService) Create(ctx context.Context, in PromotionInput) (model.Promotion, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	switch {
	case code == "":
		return model.Promotion{}, invalid("Promo code is required")
	case len(code) > MaxPromoCodeLen:
		return model.Promotion{}, invalid("Promo code must be at most %d characters", MaxPromoCodeLen)
	case in.DiscountPercent < 1 || in.DiscountPercent > 100:
		return model.Promotion{}, invalid("Discount must be between 1 and 100")
	case strings.TrimSpace(in.StartDate) == "" || strings.TrimSpace(in.EndDate) == "":
		return model.Promotion{}, invalid("Start and end date are required")
	}
	start, err1 := time.Parse(model.PromoDateLayout, strings.TrimSpace(in.StartDate))
	end, err2 := time.Parse(model.PromoDateLayout, strings.TrimSpace(in.EndDate))
	if err1 != nil || err2 != nil {
		return model.Promotion{}, invalid("Invalid date format. Expected: YYYY-MM-DD")
	}
	if end.Before(start) {
		return model.Promotion{}, invalid("End date must be on or after start date")
	}
	today, _ := time.Parse(model.PromoDateLayout, s.now().UTC().Format(model.PromoDateLayout))
	if end.Before(today) {
		return model.Promotion{}, invalid("End date cannot be in the past")
	}
	p := model.Promotion{
		Code:            code,
		DiscountPercent: in.DiscountPercent,
		StartDate:       start.Format(model.PromoDateLayout),
		EndDate:         end.Format(model.PromoDateLayout),
	}
	if err := s.promos.Create(ctx, &p); err != nil {
		return model.Promotion{}, err
	}
	return p, nil
}

// Send queues the promotion email for every opted-in active user and
// records the send time.  It returns how many emails were queued.
func (s *PromotionService) Send(ctx context.Context, id uint64) (int, error) {
	p, err := s.promos.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	users, err := s.recipients.PromotionRecipients(ctx)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, u := range users {
		ev := queue.EmailRequestedEvent{
			Kind:    queue.EmailPromotion,
			To:      u.Email,
			Subject: fmt.Sprintf("%.0f%% off with code %s", p.DiscountPercent, p.Code),
			Body: fmt.Sprintf("Hi %s,\n\nUse code %s for %.0f%% off tickets from %s to %s.\n",
				u.Name, p.Code, p.DiscountPercent, p.StartDate, p.EndDate),
		}
		if err := s.emails.PublishEmail(ctx, ev); err != nil {
			s.logger.Printf("promotion: queue email to %s failed: %v", u.Email, err)
			continue
		}
		sent++
	}
	if err := s.promos.MarkSent(ctx, p.ID, s.now()); err != nil {
		s.logger.Printf("promotion: mark %d sent failed: %v", p.ID, err)
	}
	return sent, nil
}
