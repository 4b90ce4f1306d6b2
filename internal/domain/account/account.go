package account

import (
	"context"
	"time"

	"hireflow/internal/common"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

type Role struct {
	ID   common.UUID `json:"id"`
	Name string      `json:"name"`
}

// Account is a login identity provisioned for a hired candidate.
type Account struct {
	ID           common.UUID `json:"id"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	RoleID       common.UUID `json:"role_id"`
	Status       Status      `json:"status"`
	PasswordHash string      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type Repository interface {
	Create(ctx context.Context, acc Account) (*Account, error)
	Update(ctx context.Context, acc Account) (*Account, error)
	GetByID(ctx context.Context, id common.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	ListRoles(ctx context.Context) ([]Role, error)
}
