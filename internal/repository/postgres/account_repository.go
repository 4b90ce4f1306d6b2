package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"hireflow/internal/common"
	"hireflow/internal/domain/account"
)

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, acc account.Account) (*account.Account, error) {
	acc.ID = common.NewUUID()
	now := time.Now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `INSERT INTO accounts (id, email, name, role_id, status, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		acc.ID, acc.Email, acc.Name, acc.RoleID, acc.Status, acc.PasswordHash, acc.CreatedAt, acc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.NewError(common.CodeConflict, "account email already exists", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to create account", err)
	}
	return &acc, nil
}

func (r *AccountRepository) Update(ctx context.Context, acc account.Account) (*account.Account, error) {
	acc.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `UPDATE accounts SET name = $1, role_id = $2, status = $3, password_hash = $4, updated_at = $5 WHERE id = $6`,
		acc.Name, acc.RoleID, acc.Status, acc.PasswordHash, acc.UpdatedAt, acc.ID)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to update account", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return nil, common.NewError(common.CodeNotFound, "account not found", sql.ErrNoRows)
	}
	return &acc, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id common.UUID) (*account.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, email, name, role_id, status, password_hash, created_at, updated_at FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, email, name, role_id, status, password_hash, created_at, updated_at FROM accounts WHERE lower(email) = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanAccount(row)
}

func (r *AccountRepository) ListRoles(ctx context.Context) ([]account.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY name`)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list roles", err)
	}
	defer rows.Close()
	var roles []account.Role
	for rows.Next() {
		var role account.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan role", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var acc account.Account
	if err := row.Scan(&acc.ID, &acc.Email, &acc.Name, &acc.RoleID, &acc.Status, &acc.PasswordHash, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "account not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load account", err)
	}
	return &acc, nil
}
