package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
	"hireflow/internal/offerletter"
	"hireflow/internal/storage"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	topJobsLimit    = 5
)

type ListQuery struct {
	Filter application.Filter
	Page   int
	Limit  int
}

type ListResult struct {
	Items        []application.Application  `json:"items"`
	Total        int                        `json:"total"`
	Page         int                        `json:"page"`
	Limit        int                        `json:"limit"`
	StatusCounts map[application.Status]int `json:"status_counts"`
	TopJobs      []application.JobCount     `json:"top_jobs"`
}

// Patch holds the staff-editable fields; nil fields are left unchanged.
type Patch struct {
	Status      *string                 `json:"status"`
	Tags        *[]string               `json:"tags"`
	Notes       *string                 `json:"notes"`
	Rating      *int                    `json:"rating"`
	Attachments *[]application.Document `json:"attachments"`
	Note        string                  `json:"note"`
}

type GenerateLetterRequest struct {
	Format string `json:"format"`
	offerletter.Overrides
}

type ApplicationService struct {
	repo    application.Repository
	files   *storage.Manager
	letters *OfferLetters
	logger  *slog.Logger
	now     clock
}

func NewApplicationService(repo application.Repository, files *storage.Manager, letters *OfferLetters, logger *slog.Logger) *ApplicationService {
	return &ApplicationService{repo: repo, files: files, letters: letters, logger: logger, now: utcNow}
}

// List returns one page plus the status and top-job aggregates computed over
// the same filter.
func (s *ApplicationService) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	filter := q.Filter
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	result := &ListResult{Page: page, Limit: limit}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, total, err := s.repo.List(gctx, filter)
		if err != nil {
			return err
		}
		result.Items, result.Total = items, total
		return nil
	})
	g.Go(func() error {
		counts, err := s.repo.CountByStatus(gctx, filter)
		if err != nil {
			return err
		}
		result.StatusCounts = counts
		return nil
	})
	g.Go(func() error {
		jobs, err := s.repo.TopJobs(gctx, filter, topJobsLimit)
		if err != nil {
			return err
		}
		result.TopJobs = jobs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if result.Items == nil {
		result.Items = []application.Application{}
	}
	if result.TopJobs == nil {
		result.TopJobs = []application.JobCount{}
	}
	return result, nil
}

func (s *ApplicationService) Get(ctx context.Context, rawID string) (*application.Application, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ApplicationService) Update(ctx context.Context, rawID string, patch Patch, actor Actor) (*application.Application, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	var status application.Status
	fields := map[string]string{}
	if patch.Status != nil {
		parsed, ok := application.ParseStatus(*patch.Status)
		if !ok {
			fields["status"] = "unknown status"
		}
		status = parsed
	}
	if patch.Rating != nil && (*patch.Rating < 0 || *patch.Rating > 5) {
		fields["rating"] = "rating must be between 0 and 5"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid application update", fields)
	}

	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Tags != nil {
		app.Tags = normalizeTags(*patch.Tags)
	}
	if patch.Notes != nil {
		app.Notes = *patch.Notes
	}
	if patch.Rating != nil {
		app.Rating = *patch.Rating
	}
	if patch.Attachments != nil {
		app.Attachments = append([]application.Document(nil), (*patch.Attachments)...)
	}
	if patch.Status != nil && status != app.Status {
		note := strings.TrimSpace(patch.Note)
		if note == "" {
			note = "Status changed from " + string(app.Status) + " to " + string(status)
		}
		app.SetStatus(status, note, actor.Label(), s.now())
	}
	app.ProcessedBy = actor.staffID()
	return s.repo.Update(ctx, *app)
}

func (s *ApplicationService) Delete(ctx context.Context, rawID string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// UploadOfferLetter stores a staff-supplied letter and attaches it to the
// offer stage; the next offer dispatch sends it.
func (s *ApplicationService) UploadOfferLetter(ctx context.Context, rawID, filename string, content io.Reader) (*application.Letter, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stored, err := s.files.Save(ctx, storage.PurposeOfferLetters, app.ID.String(), filename, content, storage.StaffOfferLetters)
	if err != nil {
		return nil, err
	}
	letter := application.Letter{
		Filename: stored.Filename,
		Path:     stored.Path,
		Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(stored.Filename)), "."),
		Size:     stored.Size,
	}
	if err := s.attachLetter(ctx, app, letter); err != nil {
		_ = s.files.Remove(stored.Path)
		return nil, err
	}
	return &letter, nil
}

func (s *ApplicationService) GenerateOfferLetter(ctx context.Context, rawID string, req GenerateLetterRequest) (*application.Letter, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	letter, err := s.letters.Generate(ctx, *app, req.Overrides, req.Format)
	if err != nil {
		return nil, err
	}
	if err := s.attachLetter(ctx, app, *letter); err != nil {
		return nil, err
	}
	return letter, nil
}

func (s *ApplicationService) attachLetter(ctx context.Context, app *application.Application, letter application.Letter) error {
	_, err := applyAndSave(ctx, s.repo, app, func(a *application.Application) error {
		l := letter
		a.Offer.Letter = &l
		return nil
	})
	return err
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(tag)]; ok {
			continue
		}
		seen[strings.ToLower(tag)] = struct{}{}
		out = append(out, tag)
	}
	return out
}
