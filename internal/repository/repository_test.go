package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

func q(s string) string { return regexp.QuoteMeta(s) }

func sampleTicket() *model.Ticket {
	return &model.Ticket{
		TicketNumber: "7d1f6a2e-0000-4000-8000-000000000001",
		UserID:       3,
		ShowtimeID:   11,
		MovieTitle:   "Heat",
		Seats:        []string{"A1", "A2"},
		Counts:       model.TicketCounts{Adult: 2},
		Subtotal:     24,
		Total:        24,
		PaymentCard:  model.CardSnapshot{CardID: 5, Brand: "Visa", Last4: "4242"},
		CreatedAt:    time.Now(),
	}
}

func TestTicketBookCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO tickets")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT seat_code FROM booked_seats WHERE showtime_id=?")).
		WithArgs(uint64(11), "A1", "A2").
		WillReturnRows(sqlmock.NewRows([]string{"seat_code"}))
	mock.ExpectExec(q("INSERT INTO booked_seats")).
		WithArgs(uint64(11), "A1", sampleTicket().TicketNumber, uint64(11), "A2", sampleTicket().TicketNumber).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, NewTicketRepo(db).Book(context.Background(), sampleTicket(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketBookReportsTakenSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO tickets")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT seat_code FROM booked_seats")).
		WillReturnRows(sqlmock.NewRows([]string{"seat_code"}).AddRow("A2"))
	mock.ExpectRollback()

	err = NewTicketRepo(db).Book(context.Background(), sampleTicket(), nil)
	require.ErrorIs(t, err, ErrSeatTaken)
	var st *SeatTakenError
	require.True(t, errors.As(err, &st))
	assert.Equal(t, []string{"A2"}, st.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketBookLosesRaceOnDuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO tickets")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT seat_code FROM booked_seats")).
		WillReturnRows(sqlmock.NewRows([]string{"seat_code"}))
	mock.ExpectExec(q("INSERT INTO booked_seats")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectQuery(q("SELECT seat_code FROM booked_seats")).
		WillReturnRows(sqlmock.NewRows([]string{"seat_code"}).AddRow("A1"))
	mock.ExpectRollback()

	err = NewTicketRepo(db).Book(context.Background(), sampleTicket(), nil)
	var st *SeatTakenError
	require.True(t, errors.As(err, &st))
	assert.Equal(t, []string{"A1"}, st.Seats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketBookStoresInlineCard(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM users WHERE id=? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM payment_cards")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectExec(q("INSERT INTO payment_cards")).WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec(q("INSERT INTO tickets")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT seat_code FROM booked_seats")).
		WillReturnRows(sqlmock.NewRows([]string{"seat_code"}))
	mock.ExpectExec(q("INSERT INTO booked_seats")).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tk := sampleTicket()
	card := &model.PaymentCard{UserID: 3, Brand: "Mastercard", Last4: "4444", ExpMonth: 1, ExpYear: 2030}
	require.NoError(t, NewTicketRepo(db).Book(context.Background(), tk, card))
	assert.Equal(t, uint64(42), card.ID)
	assert.Equal(t, model.CardSnapshot{CardID: 42, Brand: "Mastercard", Last4: "4444"}, tk.PaymentCard)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardCreateEnforcesLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM users WHERE id=? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM payment_cards")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(model.MaxPaymentCards))
	mock.ExpectRollback()

	err = NewCardRepo(db).Create(context.Background(), &model.PaymentCard{UserID: 3})
	assert.ErrorIs(t, err, ErrCardLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCardDeleteNotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(q("DELETE FROM payment_cards WHERE id=? AND user_id=?")).
		WithArgs(uint64(9), uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, NewCardRepo(db).Delete(context.Background(), 9, 3), ErrNotFound)
}

func TestMovieDeleteWithTicketsConflicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(q("DELETE FROM movies WHERE id=?")).
		WillReturnError(&mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"})
	assert.ErrorIs(t, NewMovieRepo(db).Delete(context.Background(), 1), ErrConflict)
}

func TestMovieListDecodesJSONColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cols := []string{"id", "title", "genres", "cast_members", "director", "producer", "synopsis", "reviews", "poster_url", "trailer_url", "rating"}
	mock.ExpectQuery(q("SELECT id, title, genres")).WillReturnRows(sqlmock.NewRows(cols).
		AddRow(1, "Heat", []byte(`["Crime","Drama"]`), []byte(`["Al Pacino"]`), "Mann", "", "", []byte(`[]`), "", "", "R"))

	movies, err := NewMovieRepo(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, []string{"Crime", "Drama"}, movies[0].Genres)
	assert.Equal(t, []string{"Al Pacino"}, movies[0].Cast)
	assert.Equal(t, []string{}, movies[0].Reviews)
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(q("INSERT INTO users")).
		WithArgs("ann@example.com", "Ann", sqlmock.AnyArg(), model.RoleUser, model.StatusInactive, false, true).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = NewUserRepo(db).Create(context.Background(), NewUser{
		Email: " Ann@Example.com ", Name: "Ann", Password: "secret12",
		Role: model.RoleUser, Status: model.StatusInactive, PromotionsOptIn: true,
	}, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserSetStatusMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(q("UPDATE users SET status=?")).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, NewUserRepo(db).SetStatus(context.Background(), 77, model.StatusSuspended), ErrNotFound)
}

func TestTokenValidateRejectsExpiredAndRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)
	cols := []string{"user_id", "expires_at", "revoked_at"}

	mock.ExpectQuery(q("SELECT user_id, expires_at, revoked_at FROM refresh_tokens")).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, time.Now().Add(-time.Hour), nil))
	_, err = repo.Validate(context.Background(), "h1")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(q("SELECT user_id, expires_at, revoked_at FROM refresh_tokens")).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, time.Now().Add(time.Hour), time.Now()))
	_, err = repo.Validate(context.Background(), "h2")
	assert.ErrorIs(t, err, ErrNotFound)

	mock.ExpectQuery(q("SELECT user_id, expires_at, revoked_at FROM refresh_tokens")).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(4, time.Now().Add(time.Hour), nil))
	uid, err := repo.Validate(context.Background(), "h3")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), uid)
}

func TestTokenRotateRejectsRevokedToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND user_id=?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = NewTokenRepo(db).Rotate(context.Background(), 1, "old", "new", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateShowtimeCheckedRunsCheckUnderLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	existing := time.Date(2030, 5, 1, 18, 0, 0, 0, time.UTC)
	start := existing.Add(5 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM showrooms WHERE id=? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(q("SELECT starts_at FROM showtimes WHERE showroom_id=?")).
		WillReturnRows(sqlmock.NewRows([]string{"starts_at"}).AddRow(existing))
	mock.ExpectExec(q("INSERT INTO showtimes")).
		WithArgs(uint64(2), uint64(7), start).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectCommit()

	var seen []time.Time
	st, err := NewShowroomRepo(db).CreateShowtimeChecked(context.Background(), 2, 7, start, func(ex []time.Time) error {
		seen = ex
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{existing}, seen)
	assert.Equal(t, uint64(31), st.ID)
	assert.Equal(t, start, st.Start)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateShowtimeCheckedRollsBackOnRejection(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM showrooms WHERE id=? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectQuery(q("SELECT starts_at FROM showtimes")).
		WillReturnRows(sqlmock.NewRows([]string{"starts_at"}))
	mock.ExpectRollback()

	reject := errors.New("too close")
	_, err = NewShowroomRepo(db).CreateShowtimeChecked(context.Background(), 2, 7, time.Now(), func([]time.Time) error {
		return reject
	})
	assert.ErrorIs(t, err, reject)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateShowtimeUnknownShowroom(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM showrooms WHERE id=? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err = NewShowroomRepo(db).CreateShowtimeChecked(context.Background(), 99, 7, time.Now(), func([]time.Time) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteShowtimeWithTicketsConflicts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(q("DELETE FROM showtimes WHERE showroom_id=? AND movie_id=? AND starts_at=?")).
		WillReturnError(&mysql.MySQLError{Number: 1451})
	err = NewShowroomRepo(db).DeleteShowtime(context.Background(), 1, 2, time.Now())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestShowroomListAttachesShowtimesAndSeats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	start := time.Date(2030, 1, 2, 15, 0, 0, 0, time.UTC)
	mock.ExpectQuery(q("SELECT id, name FROM showrooms ORDER BY name")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Room 1").AddRow(2, "Room 2"))
	mock.ExpectQuery(q("SELECT st.id, st.showroom_id, st.movie_id, st.starts_at FROM showtimes st")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "showroom_id", "movie_id", "starts_at"}).AddRow(10, 2, 5, start))
	mock.ExpectQuery(q("SELECT showtime_id, seat_code FROM booked_seats WHERE showtime_id IN (?)")).
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"showtime_id", "seat_code"}).AddRow(10, "B3").AddRow(10, "B4"))

	rooms, err := NewShowroomRepo(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Empty(t, rooms[0].Showtimes)
	require.Len(t, rooms[1].Showtimes, 1)
	assert.Equal(t, []string{"B3", "B4"}, rooms[1].Showtimes[0].BookedSeats)
	assert.Equal(t, start, rooms[1].Showtimes[0].Start)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromotionLookupIsCaseInsensitive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	day := func(s string) time.Time { d, _ := time.Parse(model.PromoDateLayout, s); return d }
	mock.ExpectQuery(q("SELECT id, code, discount_percent")).
		WithArgs("SAVE10").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "discount_percent", "start_date", "end_date", "created_at", "sent_at"}).
			AddRow(1, "SAVE10", 10.0, day("2030-01-01"), day("2030-01-31"), time.Now(), nil))

	p, err := NewPromotionRepo(db).GetByCode(context.Background(), " save10 ")
	require.NoError(t, err)
	assert.Equal(t, "2030-01-01", p.StartDate)
	assert.Equal(t, "2030-01-31", p.EndDate)
	assert.Nil(t, p.SentAt)
}

func TestPromotionCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(q("INSERT INTO promotions")).
		WithArgs("SAVE10", 10.0, "2030-01-01", "2030-01-31").
		WillReturnError(&mysql.MySQLError{Number: 1062})
	p := &model.Promotion{Code: "save10", DiscountPercent: 10, StartDate: "2030-01-01", EndDate: "2030-01-31"}
	assert.ErrorIs(t, NewPromotionRepo(db).Create(context.Background(), p), ErrCodeExists)
}

func TestPriceListConvertsCents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(q("SELECT id, type, price_cents FROM ticket_prices")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "price_cents"}).
			AddRow(1, "ADULT", 1200).AddRow(2, "CHILD", 850))
	prices, err := NewPriceRepo(db).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.TicketPrice{{ID: 1, Type: model.TicketAdult, Price: 12}, {ID: 2, Type: model.TicketChild, Price: 8.5}}, prices)
}

func TestPriceUpdateByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(q("UPDATE ticket_prices SET price_cents=? WHERE id=?")).
		WithArgs(int64(1350), uint64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT id, type, price_cents FROM ticket_prices WHERE id=?")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "price_cents"}).AddRow(1, "ADULT", 1350))
	p, err := NewPriceRepo(db).Update(context.Background(), 1, 13.5)
	require.NoError(t, err)
	assert.Equal(t, model.TicketPrice{ID: 1, Type: model.TicketAdult, Price: 13.5}, p)

	mock.ExpectExec(q("UPDATE ticket_prices")).WithArgs(int64(100), uint64(9)).WillReturnResult(sqlmock.NewResult(0, 0))
	_, err = NewPriceRepo(db).Update(context.Background(), 9, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
