// Package user holds accounts, roles, and the authentication service.
package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Role controls which dashboard surfaces an account may use.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleAdmin      Role = "admin"
	RolePharmacist Role = "pharmacist"
	RoleRider      Role = "rider"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RolePharmacist, RoleRider:
		return true
	}
	return false
}

// Staff reports whether r may operate on other users' orders.
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RolePharmacist || r == RoleRider
}

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned on registration with an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a bad email/password pair. Login
	// never reveals which half was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is a registered account. PasswordHash never leaves the domain layer.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Repository defines account persistence.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	ListByRole(ctx context.Context, roles ...Role) ([]User, error)
}
