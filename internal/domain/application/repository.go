package application

import (
	"context"
	"errors"
	"time"

	"hireflow/internal/common"
)

type Filter struct {
	JobID  common.UUID
	Status Status
	Search string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type JobCount struct {
	JobID    common.UUID `json:"job_id"`
	JobTitle string      `json:"job_title"`
	Count    int         `json:"count"`
}

// ErrTokenInUse is wrapped by Update when a stage token is already held by
// another application.
var ErrTokenInUse = errors.New("stage token already in use")

// Repository persists the Application aggregate. Update is a compare-and-swap
// on Version and fails with common.CodeConflict when the stored row moved on
// or, wrapping ErrTokenInUse, when a stage token collides.
type Repository interface {
	Create(ctx context.Context, app Application) (*Application, error)
	GetByID(ctx context.Context, id common.UUID) (*Application, error)
	FindByToken(ctx context.Context, stage StageKind, token string) (*Application, error)
	List(ctx context.Context, filter Filter) ([]Application, int, error)
	CountByStatus(ctx context.Context, filter Filter) (map[Status]int, error)
	TopJobs(ctx context.Context, filter Filter, limit int) ([]JobCount, error)
	Update(ctx context.Context, app Application) (*Application, error)
	Delete(ctx context.Context, id common.UUID) error
}
