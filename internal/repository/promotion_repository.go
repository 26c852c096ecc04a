package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

type PromotionRepo struct {
	db *sql.DB
}

func NewPromotionRepo(db *sql.DB) *PromotionRepo { return &PromotionRepo{db: db} }

const promoColumns = `id, code, discount_percent, start_date, end_date, created_at, sent_at`

func scanPromotion(row rowScanner) (model.Promotion, error) {
	var (
		p          model.Promotion
		start, end time.Time
		sent       sql.NullTime
	)
	err := row.Scan(&p.ID, &p.Code, &p.DiscountPercent, &start, &end, &p.CreatedAt, &sent)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.StartDate = start.Format(model.PromoDateLayout)
	p.EndDate = end.Format(model.PromoDateLayout)
	if sent.Valid {
		t := sent.Time.UTC()
		p.SentAt = &t
	}
	return p, nil
}

// List returns every promotion, newest first.
func (r *PromotionRepo) List(ctx context.Context) ([]model.Promotion, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+promoColumns+" FROM promotions ORDER BY start_date DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByCode looks a code up case-insensitively.
func (r *PromotionRepo) GetByCode(ctx context.Context, code string) (model.Promotion, error) {
	return scanPromotion(r.db.QueryRowContext(ctx,
		"SELECT "+promoColumns+" FROM promotions WHERE code=? LIMIT 1", strings.ToUpper(strings.TrimSpace(code))))
}

// GetByID returns ErrNotFound for unknown ids.
func (r *PromotionRepo) GetByID(ctx context.Context, id uint64) (model.Promotion, error) {
	return scanPromotion(r.db.QueryRowContext(ctx, "SELECT "+promoColumns+" FROM promotions WHERE id=?", id))
}

// Create inserts p with its code upper-cased.  Duplicate codes yield
// ErrCodeExists.
func (r *PromotionRepo) Create(ctx context.Context, p *model.Promotion) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO promotions (code, discount_percent, start_date, end_date) VALUES (?,?,?,?)",
		p.Code, p.DiscountPercent, p.StartDate, p.EndDate)
	if isDuplicate(err) {
		return ErrCodeExists
	}
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.CreatedAt = time.Now().UTC()
	return nil
}

// MarkSent records when the promotion email went out.
func (r *PromotionRepo) MarkSent(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, "UPDATE promotions SET sent_at=? WHERE id=?", at.UTC(), id)
	return affected(res, err)
}
