package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pricing"
)

// PriceRepo reads and edits the ticket_prices table.
type PriceRepo struct {
	db *sql.DB
}

func NewPriceRepo(db *sql.DB) *PriceRepo { return &PriceRepo{db: db} }

// List returns every configured price.
func (r *PriceRepo) List(ctx context.Context) ([]model.TicketPrice, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, type, price_cents FROM ticket_prices ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.TicketPrice{}
	for rows.Next() {
		var (
			p     model.TicketPrice
			cents int64
		)
		if err := rows.Scan(&p.ID, &p.Type, &cents); err != nil {
			return nil, err
		}
		p.Price = pricing.FromCents(cents)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update sets the price of the row id and returns the updated row.
func (r *PriceRepo) Update(ctx context.Context, id uint64, price float64) (model.TicketPrice, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE ticket_prices SET price_cents=? WHERE id=?", pricing.ToCents(price), id)
	if err := affected(res, err); err != nil {
		return model.TicketPrice{}, err
	}
	var (
		p     model.TicketPrice
		cents int64
	)
	err = r.db.QueryRowContext(ctx, "SELECT id, type, price_cents FROM ticket_prices WHERE id=?", id).Scan(&p.ID, &p.Type, &cents)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	p.Price = pricing.FromCents(cents)
	return p, err
}
