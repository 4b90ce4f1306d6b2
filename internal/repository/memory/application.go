package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
)

// ApplicationRepository keeps applications in process memory. It is used when
// DATABASE_URL is empty and as the fake store in service tests.
type ApplicationRepository struct {
	mu    sync.Mutex
	items map[common.UUID]application.Application
	clock func() time.Time
}

func NewApplicationRepository() *ApplicationRepository {
	return &ApplicationRepository{items: make(map[common.UUID]application.Application), clock: time.Now}
}

func (r *ApplicationRepository) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if app.ID == "" {
		app.ID = common.NewUUID()
	}
	if app.Status == "" {
		app.Status = application.StatusNew
	}
	now := r.clock().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	app.Version = 1
	r.items[app.ID] = cloneApplication(app)
	created := cloneApplication(app)
	return &created, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id common.UUID) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.items[id]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	found := cloneApplication(app)
	return &found, nil
}

func (r *ApplicationRepository) FindByToken(ctx context.Context, stage application.StageKind, token string) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token == "" {
		return nil, common.NewError(common.CodeNotFound, "token not found", nil)
	}
	for _, app := range r.items {
		if app.TokenFor(stage) == token {
			found := cloneApplication(app)
			return &found, nil
		}
	}
	return nil, common.NewError(common.CodeNotFound, "token not found", nil)
}

func (r *ApplicationRepository) List(ctx context.Context, filter application.Filter) ([]application.Application, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := r.filtered(filter)
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if filter.Offset >= total {
		return []application.Application{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

func (r *ApplicationRepository) CountByStatus(ctx context.Context, filter application.Filter) (map[application.Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	filter.Status = ""
	counts := make(map[application.Status]int)
	for _, app := range r.filtered(filter) {
		counts[app.Status]++
	}
	return counts, nil
}

func (r *ApplicationRepository) TopJobs(ctx context.Context, filter application.Filter, limit int) ([]application.JobCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byJob := make(map[common.UUID]*application.JobCount)
	for _, app := range r.filtered(filter) {
		entry, ok := byJob[app.JobID]
		if !ok {
			entry = &application.JobCount{JobID: app.JobID, JobTitle: app.JobTitle}
			byJob[app.JobID] = entry
		}
		entry.Count++
	}
	items := make([]application.JobCount, 0, len(byJob))
	for _, entry := range byJob {
		items = append(items, *entry)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].JobTitle < items[j].JobTitle
		}
		return items[i].Count > items[j].Count
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r *ApplicationRepository) Update(ctx context.Context, app application.Application) (*application.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[app.ID]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "application not found", nil)
	}
	if current.Version != app.Version {
		return nil, common.NewError(common.CodeConflict, "application was modified concurrently", nil)
	}
	for id, other := range r.items {
		if id == app.ID {
			continue
		}
		for _, kind := range []application.StageKind{application.StageShortlist, application.StageDocuments, application.StageOffer} {
			if token := app.TokenFor(kind); token != "" && other.TokenFor(kind) == token {
				return nil, common.NewError(common.CodeConflict, "stage token already in use", application.ErrTokenInUse)
			}
		}
	}
	app.Version++
	app.UpdatedAt = r.clock().UTC()
	r.items[app.ID] = cloneApplication(app)
	updated := cloneApplication(app)
	return &updated, nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id common.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return common.NewError(common.CodeNotFound, "application not found", nil)
	}
	delete(r.items, id)
	return nil
}

func (r *ApplicationRepository) filtered(filter application.Filter) []application.Application {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var items []application.Application
	for _, app := range r.items {
		if filter.JobID != "" && app.JobID != filter.JobID {
			continue
		}
		if filter.Status != "" && app.Status != filter.Status {
			continue
		}
		if filter.From != nil && app.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && app.CreatedAt.After(*filter.To) {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(app.FullName() + " " + app.Email)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		items = append(items, cloneApplication(app))
	}
	return items
}

func cloneApplication(app application.Application) application.Application {
	out := app
	out.ScreeningAnswers = append([]application.ScreeningAnswer(nil), app.ScreeningAnswers...)
	out.Tags = append([]string(nil), app.Tags...)
	out.Attachments = append([]application.Document(nil), app.Attachments...)
	out.Timeline = append([]application.TimelineEntry(nil), app.Timeline...)
	out.EmailLogs = append([]application.EmailLog(nil), app.EmailLogs...)
	if app.Metadata != nil {
		out.Metadata = make(map[string]string, len(app.Metadata))
		for k, v := range app.Metadata {
			out.Metadata[k] = v
		}
	}
	if app.Offer.Letter != nil {
		letter := *app.Offer.Letter
		out.Offer.Letter = &letter
	}
	if app.ProcessedBy != nil {
		processedBy := *app.ProcessedBy
		out.ProcessedBy = &processedBy
	}
	return out
}
