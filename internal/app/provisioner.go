package app

import (
	"context"
	"strings"

	"hireflow/internal/common"
	"hireflow/internal/domain/account"
	"hireflow/internal/domain/application"
	"hireflow/internal/security"
)

// rolePreference is the order in which roles are picked for new candidate accounts.
var rolePreference = []string{"Candidate", "Viewer"}

type Provisioner struct {
	accounts account.Repository
	suffix   string
}

func NewProvisioner(accounts account.Repository, passwordSuffix string) *Provisioner {
	return &Provisioner{accounts: accounts, suffix: passwordSuffix}
}

// EnsureAccount creates or refreshes the login account for app's candidate and
// returns it together with the freshly reset cleartext password.
func (p *Provisioner) EnsureAccount(ctx context.Context, app application.Application) (*account.Account, string, error) {
	email := strings.ToLower(strings.TrimSpace(app.Email))
	if email == "" {
		return nil, "", common.NewError(common.CodePreconditionFailed, "application has no email address", nil)
	}
	role, err := p.candidateRole(ctx)
	if err != nil {
		return nil, "", err
	}
	existing, err := p.lookup(ctx, app, email)
	if err != nil {
		return nil, "", err
	}

	password := security.CandidatePassword(app.FirstName, p.suffix)
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, "", common.NewError(common.CodeInternal, "failed to hash password", err)
	}

	if existing != nil {
		existing.RoleID = role.ID
		existing.Status = account.StatusActive
		existing.PasswordHash = hash
		if existing.Name == "" {
			existing.Name = app.FullName()
		}
		updated, err := p.accounts.Update(ctx, *existing)
		if err != nil {
			return nil, "", err
		}
		return updated, password, nil
	}

	created, err := p.accounts.Create(ctx, account.Account{
		Email:        email,
		Name:         app.FullName(),
		RoleID:       role.ID,
		Status:       account.StatusActive,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, "", err
	}
	return created, password, nil
}

// Confirm returns the account already linked to the offer without touching
// its password. When no linked account exists it falls back to EnsureAccount,
// and the returned password is non-empty only in that case.
func (p *Provisioner) Confirm(ctx context.Context, app application.Application) (*account.Account, string, error) {
	if id, err := common.ParseUUID(app.Offer.UserID); err == nil {
		acc, err := p.accounts.GetByID(ctx, id)
		if err == nil {
			if acc.Status != account.StatusActive {
				acc.Status = account.StatusActive
				if acc, err = p.accounts.Update(ctx, *acc); err != nil {
					return nil, "", err
				}
			}
			return acc, "", nil
		}
		if !common.Is(err, common.CodeNotFound) {
			return nil, "", err
		}
	}
	return p.EnsureAccount(ctx, app)
}

func (p *Provisioner) lookup(ctx context.Context, app application.Application, email string) (*account.Account, error) {
	if id, err := common.ParseUUID(app.Offer.UserID); err == nil {
		acc, err := p.accounts.GetByID(ctx, id)
		if err == nil {
			return acc, nil
		}
		if !common.Is(err, common.CodeNotFound) {
			return nil, err
		}
	}
	acc, err := p.accounts.GetByEmail(ctx, email)
	if err == nil {
		return acc, nil
	}
	if common.Is(err, common.CodeNotFound) {
		return nil, nil
	}
	return nil, err
}

func (p *Provisioner) candidateRole(ctx context.Context) (*account.Role, error) {
	roles, err := p.accounts.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range rolePreference {
		for i := range roles {
			if strings.EqualFold(roles[i].Name, name) {
				return &roles[i], nil
			}
		}
	}
	if len(roles) == 0 {
		return nil, common.NewError(common.CodeInternal, "no role available for candidate accounts", nil)
	}
	return &roles[0], nil
}
