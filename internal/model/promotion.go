package model

import "time"

// PromoDateLayout is the calendar-date format of promotion windows.
const PromoDateLayout = "2006-01-02"

// Promotion is a percentage discount valid between two calendar dates,
// both inclusive.
type Promotion struct {
	ID              uint64     `json:"id"`
	Code            string     `json:"code"`
	DiscountPercent float64    `json:"discount_percent"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	CreatedAt       time.Time  `json:"created_at"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
}

// ActiveOn reports whether the promotion window covers the calendar date
// of now.  Malformed dates are never active.
func (p Promotion) ActiveOn(now time.Time) bool {
	start, err := time.Parse(PromoDateLayout, p.StartDate)
	if err != nil {
		return false
	}
	end, err := time.Parse(PromoDateLayout, p.EndDate)
	if err != nil {
		return false
	}
	day, _ := time.Parse(PromoDateLayout, now.Format(PromoDateLayout))
	return !day.Before(start) && !day.After(end)
}
