package model

import "time"

// Roles carried in the users table and the JWT "role" claim.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Account states.  New accounts stay INACTIVE until the email is verified.
const (
	StatusInactive  = "INACTIVE"
	StatusActive    = "ACTIVE"
	StatusSuspended = "SUSPENDED"
)

// MaxPaymentCards is the number of stored cards allowed per user.
const MaxPaymentCards = 4

// User represents a row of the `users` table.
//
// Fields:
//  ID              – primary key identifier.
//  Email           – unique, stored lower case.
//  Name            – display name, also carried in access tokens.
//  PasswordHash    – bcrypt hash.
//  Role            – USER or ADMIN.
//  Status          – INACTIVE, ACTIVE or SUSPENDED.
//  EmailVerified   – set once the verification link is used.
//  PromotionsOptIn – receives promotion emails when true.
//  Address         – home address; its ZIP feeds tax lookup.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
	ID              uint64    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	Status          string    `json:"status"`
	EmailVerified   bool      `json:"email_verified"`
	PromotionsOptIn bool      `json:"promotions_opt_in"`
	Address         Address   `json:"address"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Address is a postal address.  Only the ZIP matters to pricing.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Complete reports whether every field is filled.
func (a Address) Complete() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.Zip != ""
}

// PaymentCard is a stored card.  The full number and CVV are never kept.
type PaymentCard struct {
	ID             uint64  `json:"id"`
	UserID         uint64  `json:"-"`
	Brand          string  `json:"brand"`
	Last4          string  `json:"last4"`
	ExpMonth       int     `json:"exp_month"`
	ExpYear        int     `json:"exp_year"`
	BillingName    string  `json:"billing_name"`
	BillingAddress Address `json:"billing_address"`
}

// Snapshot returns the part of the card recorded on a ticket.
func (c PaymentCard) Snapshot() CardSnapshot {
	return CardSnapshot{CardID: c.ID, Brand: c.Brand, Last4: c.Last4}
}
