package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// CardRepo stores payment card metadata.  Full numbers never reach it.
type CardRepo struct {
	db *sql.DB
}

func NewCardRepo(db *sql.DB) *CardRepo { return &CardRepo{db: db} }

const cardColumns = `id, user_id, brand, last4, exp_month, exp_year, billing_name,
	billing_street, billing_city, billing_state, billing_zip`

func scanCard(row rowScanner) (model.PaymentCard, error) {
	var c model.PaymentCard
	err := row.Scan(&c.ID, &c.UserID, &c.Brand, &c.Last4, &c.ExpMonth, &c.ExpYear, &c.BillingName,
		&c.BillingAddress.Street, &c.BillingAddress.City, &c.BillingAddress.State, &c.BillingAddress.Zip)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// ListByUser returns the user's cards in insertion order.
func (r *CardRepo) ListByUser(ctx context.Context, userID uint64) ([]model.PaymentCard, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+cardColumns+" FROM payment_cards WHERE user_id=? ORDER BY id", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PaymentCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetForUser returns a card only when userID owns it.
func (r *CardRepo) GetForUser(ctx context.Context, id, userID uint64) (model.PaymentCard, error) {
	return scanCard(r.db.QueryRowContext(ctx,
		"SELECT "+cardColumns+" FROM payment_cards WHERE id=? AND user_id=?", id, userID))
}

// Create stores c for its user unless the user already has
// model.MaxPaymentCards cards.
func (r *CardRepo) Create(ctx context.Context, c *model.PaymentCard) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := createCardTx(ctx, tx, c); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// createCardTx enforces the per-user card limit and inserts c, setting its
// ID.  The owning user row is locked while counting.
func createCardTx(ctx context.Context, tx *sql.Tx, c *model.PaymentCard) error {
	var uid uint64
	err := tx.QueryRowContext(ctx, "SELECT id FROM users WHERE id=? FOR UPDATE", c.UserID).Scan(&uid)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM payment_cards WHERE user_id=?", c.UserID).Scan(&n); err != nil {
		return err
	}
	if n >= model.MaxPaymentCards {
		return ErrCardLimit
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payment_cards (user_id, brand, last4, exp_month, exp_year, billing_name,
		 billing_street, billing_city, billing_state, billing_zip) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		c.UserID, c.Brand, c.Last4, c.ExpMonth, c.ExpYear, c.BillingName,
		c.BillingAddress.Street, c.BillingAddress.City, c.BillingAddress.State, c.BillingAddress.Zip)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// Delete removes a card owned by userID.  Tickets keep their snapshot.
func (r *CardRepo) Delete(ctx context.Context, id, userID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM payment_cards WHERE id=? AND user_id=?", id, userID)
	return affected(res, err)
}
