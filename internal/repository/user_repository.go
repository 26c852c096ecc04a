package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, name, password_hash, role, status, email_verified, promotions_opt_in,
	street, city, state, zip, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.Status, &u.EmailVerified,
		&u.PromotionsOptIn, &u.Address.Street, &u.Address.City, &u.Address.State, &u.Address.Zip,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// NewUser carries the fields needed to create an account.
type NewUser struct {
	Email           string
	Name            string
	Password        string
	Role            string
	Status          string
	EmailVerified   bool
	PromotionsOptIn bool
}

// Create hashes the password and inserts the user, returning its ID.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(nu.Email))
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash, role, status, email_verified, promotions_opt_in) VALUES (?,?,?,?,?,?,?)",
		email, strings.TrimSpace(nu.Name), hash, nu.Role, nu.Status, nu.EmailVerified, nu.PromotionsOptIn)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// PromotionRecipients lists active users who opted into promotions.
func (r *UserRepo) PromotionRecipients(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE promotions_opt_in=1 AND status=? ORDER BY id", model.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile changes the self-service fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name string, optIn bool, addr model.Address) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, promotions_opt_in=?, street=?, city=?, state=?, zip=? WHERE id=?",
		name, optIn, addr.Street, addr.City, addr.State, addr.Zip, id)
	return affected(res, err)
}

// UpdateNameRole is the admin edit.
func (r *UserRepo) UpdateNameRole(ctx context.Context, id uint64, name, role string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET name=?, role=? WHERE id=?", name, role, id)
	return affected(res, err)
}

// SetStatus switches between ACTIVE and SUSPENDED.
func (r *UserRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET status=? WHERE id=?", status, id)
	return affected(res, err)
}

// Delete removes the user.  Tickets, cards and tokens cascade.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	return affected(res, err)
}

// SetVerifyToken stores the hash of a pending email verification token.
func (r *UserRepo) SetVerifyToken(ctx context.Context, id uint64, hash string, exp time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET verify_token_hash=?, verify_expires_at=? WHERE id=?", hash, exp, id)
	return affected(res, err)
}

// Verify activates the account owning an unexpired verification token.
func (r *UserRepo) Verify(ctx context.Context, hash string) (uint64, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE verify_token_hash=? AND verify_expires_at > UTC_TIMESTAMP() LIMIT 1", hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET email_verified=1, status=?, verify_token_hash=NULL, verify_expires_at=NULL WHERE id=?",
		model.StatusActive, id)
	return id, err
}

// SetResetToken stores the hash of a password reset token.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, hash string, exp time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token_hash=?, reset_expires_at=? WHERE id=?", hash, exp, id)
	return affected(res, err)
}

// ResetPassword replaces the password of the account owning an unexpired
// reset token and clears the token.
func (r *UserRepo) ResetPassword(ctx context.Context, hash, password string, cost int) (uint64, error) {
	pw, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var id uint64
	err = r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE reset_token_hash=? AND reset_expires_at > UTC_TIMESTAMP() LIMIT 1", hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, reset_token_hash=NULL, reset_expires_at=NULL WHERE id=?", pw, id)
	return id, err
}

// SetPassword hashes and stores a new password for id.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, password string, cost int) error {
	pw, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", pw, id)
	return affected(res, err)
}

// affected turns a zero-row UPDATE/DELETE into ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
