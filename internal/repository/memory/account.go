package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"hireflow/internal/common"
	"hireflow/internal/domain/account"
)

type AccountRepository struct {
	mu       sync.Mutex
	accounts map[common.UUID]account.Account
	roles    []account.Role
}

// NewAccountRepository seeds the store with the given role names.
func NewAccountRepository(roleNames ...string) *AccountRepository {
	repo := &AccountRepository{accounts: make(map[common.UUID]account.Account)}
	for _, name := range roleNames {
		repo.roles = append(repo.roles, account.Role{ID: common.NewUUID(), Name: name})
	}
	return repo
}

func (r *AccountRepository) Create(ctx context.Context, acc account.Account) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if strings.EqualFold(existing.Email, acc.Email) {
			return nil, common.NewError(common.CodeConflict, "account email already exists", nil)
		}
	}
	acc.ID = common.NewUUID()
	now := time.Now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	r.accounts[acc.ID] = acc
	return &acc, nil
}

func (r *AccountRepository) Update(ctx context.Context, acc account.Account) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[acc.ID]; !ok {
		return nil, common.NewError(common.CodeNotFound, "account not found", nil)
	}
	acc.UpdatedAt = time.Now().UTC()
	r.accounts[acc.ID] = acc
	return &acc, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id common.UUID) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "account not found", nil)
	}
	return &acc, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*account.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acc := range r.accounts {
		if strings.EqualFold(acc.Email, strings.TrimSpace(email)) {
			found := acc
			return &found, nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "account not found", nil)
}

func (r *AccountRepository) ListRoles(ctx context.Context) ([]account.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]account.Role(nil), r.roles...), nil
}

func (r *AccountRepository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}
