package app

import (
	"context"
	"errors"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
)

// applyAndSave runs mutate on app and stores it. When the stored version has
// moved on, the application is reloaded and mutate is run once more against
// the fresh copy, so mutate must re-check whatever it relies on. On a mutate
// error the copy it was given is returned with it. Token collisions are not
// retried.
func applyAndSave(ctx context.Context, repo application.Repository, app *application.Application, mutate func(*application.Application) error) (*application.Application, error) {
	current := app
	for attempt := 0; ; attempt++ {
		if err := mutate(current); err != nil {
			return current, err
		}
		updated, err := repo.Update(ctx, *current)
		if err == nil {
			return updated, nil
		}
		if !common.Is(err, common.CodeConflict) || errors.Is(err, application.ErrTokenInUse) || attempt > 0 {
			return nil, err
		}
		current, err = repo.GetByID(ctx, app.ID)
		if err != nil {
			return nil, err
		}
	}
}
