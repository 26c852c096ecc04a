package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pricing"
)

// TicketRepo stores confirmed tickets and the seats they hold.  Money is
// kept in cents.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// Book inserts the ticket and claims its seats atomically.  When any seat
// is already held the whole booking is rolled back and a *SeatTakenError
// names the seats that were lost.  A non-nil newCard is stored in the same
// transaction and becomes the ticket's payment card.
func (r *TicketRepo) Book(ctx context.Context, t *model.Ticket, newCard *model.PaymentCard) error {
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
	if newCard != nil {
		if err := createCardTx(ctx, tx, newCard); err != nil {
			return err
		}
		t.PaymentCard = newCard.Snapshot()
	}
	// booked_seats references the ticket row, so the ticket goes first
	if err := r.CreateTx(ctx, tx, t); err != nil {
		return err
	}
	if err := r.BookSeatsTx(ctx, tx, t.ShowtimeID, t.TicketNumber, t.Seats); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CreateTx inserts the ticket row inside an existing transaction.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	var promo sql.NullString
	if t.PromoCode != "" {
		promo = sql.NullString{String: t.PromoCode, Valid: true}
	}
	var cardID sql.NullInt64
	if t.PaymentCard.CardID != 0 {
		cardID = sql.NullInt64{Int64: int64(t.PaymentCard.CardID), Valid: true}
	}
	const q = `INSERT INTO tickets (ticket_number, user_id, showtime_id, movie_title, adult_count, child_count,
		senior_count, subtotal_cents, promo_code, discount_percent, tax_rate, tax_cents, total_cents,
		card_id, card_brand, card_last4, created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	_, err := tx.ExecContext(ctx, q,
		t.TicketNumber, t.UserID, t.ShowtimeID, t.MovieTitle, t.Counts.Adult, t.Counts.Child, t.Counts.Senior,
		pricing.ToCents(t.Subtotal), promo, t.DiscountPercent, t.TaxRate, pricing.ToCents(t.Tax),
		pricing.ToCents(t.Total), cardID, t.PaymentCard.Brand, t.PaymentCard.Last4, t.CreatedAt.UTC())
	if isMissingParent(err) {
		return ErrNotFound
	}
	return err
}

// BookSeatsTx claims seats for a ticket.  Seats already held for the
// showtime are reported through *SeatTakenError.
func (r *TicketRepo) BookSeatsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, ticketNumber string, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	taken, err := heldSeatsTx(ctx, tx, showtimeID, seats)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return &SeatTakenError{Seats: taken}
	}

	var b strings.Builder
	b.WriteString("INSERT INTO booked_seats (showtime_id, seat_code, ticket_number) VALUES ")
	args := make([]any, 0, len(seats)*3)
	for i, s := range seats {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?,?,?)")
		args = append(args, showtimeID, s, ticketNumber)
	}
	_, err = tx.ExecContext(ctx, b.String(), args...)
	if isDuplicate(err) {
		// lost a race after the check; report whatever is held now
		taken, qerr := heldSeatsTx(ctx, tx, showtimeID, seats)
		if qerr != nil {
			return qerr
		}
		return &SeatTakenError{Seats: taken}
	}
	return err
}

func heldSeatsTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, seats []string) ([]string, error) {
	args := make([]any, 0, len(seats)+1)
	args = append(args, showtimeID)
	for _, s := range seats {
		args = append(args, s)
	}
	q := "SELECT seat_code FROM booked_seats WHERE showtime_id=? AND seat_code IN (?" +
		strings.Repeat(",?", len(seats)-1) + ") ORDER BY seat_code FOR UPDATE"
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var taken []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		taken = append(taken, code)
	}
	return taken, rows.Err()
}

const ticketSelect = `SELECT t.ticket_number, t.user_id, t.showtime_id, st.movie_id, t.movie_title, st.showroom_id,
	st.starts_at, t.adult_count, t.child_count, t.senior_count, t.subtotal_cents, t.promo_code, t.discount_percent,
	t.tax_rate, t.tax_cents, t.total_cents, t.card_id, t.card_brand, t.card_last4, t.created_at
	FROM tickets t JOIN showtimes st ON st.id = t.showtime_id `

func scanTicket(row rowScanner) (model.Ticket, error) {
	var (
		t                    model.Ticket
		subtotal, tax, total int64
		promo                sql.NullString
		cardID               sql.NullInt64
	)
	err := row.Scan(&t.TicketNumber, &t.UserID, &t.ShowtimeID, &t.MovieID, &t.MovieTitle, &t.ShowroomID,
		&t.Showtime, &t.Counts.Adult, &t.Counts.Child, &t.Counts.Senior, &subtotal, &promo, &t.DiscountPercent,
		&t.TaxRate, &tax, &total, &cardID, &t.PaymentCard.Brand, &t.PaymentCard.Last4, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Showtime = t.Showtime.UTC()
	t.Subtotal = pricing.FromCents(subtotal)
	t.Tax = pricing.FromCents(tax)
	t.Total = pricing.FromCents(total)
	t.PromoCode = promo.String
	if cardID.Valid {
		t.PaymentCard.CardID = uint64(cardID.Int64)
	}
	t.Seats = []string{}
	return t, nil
}

// ListByUser returns a user's tickets, most recent showtime first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, ticketSelect+"WHERE t.user_id=? ORDER BY st.starts_at DESC, t.created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	out := []model.Ticket{}
	idx := map[string]int{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		idx[t.TicketNumber] = len(out)
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	srows, err := r.db.QueryContext(ctx,
		`SELECT bs.ticket_number, bs.seat_code FROM booked_seats bs
		 JOIN tickets t ON t.ticket_number = bs.ticket_number
		 WHERE t.user_id=? ORDER BY bs.seat_code`, userID)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var num, code string
		if err := srows.Scan(&num, &code); err != nil {
			return nil, err
		}
		if i, ok := idx[num]; ok {
			out[i].Seats = append(out[i].Seats, code)
		}
	}
	return out, srows.Err()
}

// Get returns one ticket with its seats.
func (r *TicketRepo) Get(ctx context.Context, ticketNumber string) (model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, ticketSelect+"WHERE t.ticket_number=?", ticketNumber))
	if err != nil {
		return t, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT seat_code FROM booked_seats WHERE ticket_number=? ORDER BY seat_code", ticketNumber)
	if err != nil {
		return t, err
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return t, err
		}
		t.Seats = append(t.Seats, code)
	}
	return t, rows.Err()
}

// Delete removes a ticket owned by userID.  Its seats are released by the
// cascading foreign key.
func (r *TicketRepo) Delete(ctx context.Context, ticketNumber string, userID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tickets WHERE ticket_number=? AND user_id=?", ticketNumber, userID)
	return affected(res, err)
}
