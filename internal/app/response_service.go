package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
	"hireflow/internal/mail"
	"hireflow/internal/storage"
)

const (
	MaxDocumentFiles = 5

	defaultOfferLength = 3 // months
)

// ResponseOutcome reports how a candidate response was handled. When
// AlreadyResponded is set nothing was written and Decision/At describe the
// earlier response.
type ResponseOutcome struct {
	Application      *application.Application
	Decision         application.Decision
	At               *time.Time
	AlreadyResponded bool
}

type Upload struct {
	Filename string
	Label    string
	Content  io.Reader
}

type SubmitOutcome struct {
	Application *application.Application
	Saved       int
}

// ResponseService backs the token-gated candidate endpoints.
type ResponseService struct {
	repo        application.Repository
	files       *storage.Manager
	provisioner *Provisioner
	mailer      mail.Mailer
	company     string
	logger      *slog.Logger
	now         clock
}

func NewResponseService(repo application.Repository, files *storage.Manager, provisioner *Provisioner, mailer mail.Mailer, company string, logger *slog.Logger) *ResponseService {
	return &ResponseService{
		repo:        repo,
		files:       files,
		provisioner: provisioner,
		mailer:      mailer,
		company:     company,
		logger:      logger,
		now:         utcNow,
	}
}

// Resolve finds the application whose stage currently holds token.
func (s *ResponseService) Resolve(ctx context.Context, stage application.StageKind, token string) (*application.Application, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, common.NewError(common.CodeNotFound, "link is invalid or has expired", nil)
	}
	app, err := s.repo.FindByToken(ctx, stage, token)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeNotFound, "link is invalid or has expired", err)
		}
		return nil, err
	}
	return app, nil
}

func (s *ResponseService) RespondShortlist(ctx context.Context, token, decision, message string) (*ResponseOutcome, error) {
	choice, ok := application.ParseDecision(decision)
	if !ok {
		return nil, common.NewValidationError("invalid response", map[string]string{"decision": "must be accept or decline"})
	}
	app, err := s.Resolve(ctx, application.StageShortlist, token)
	if err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	return s.respond(ctx, app, func(a *application.Application) *application.Stage { return &a.Shortlist }, func(a *application.Application, now time.Time) {
		if !a.Shortlist.Respond(choice, message, now) {
			return
		}
		if choice == application.DecisionAccepted {
			a.OnboardingStatus = application.OnboardingDocumentsRequested
			a.SetStatus(application.StatusInReview, timelineNote("Candidate accepted the shortlist invitation", message), CandidateActor.Label(), now)
			return
		}
		a.OnboardingStatus = application.OnboardingDeclined
		a.SetStatus(application.StatusRejected, timelineNote("Candidate declined the shortlist invitation", message), CandidateActor.Label(), now)
	})
}

func (s *ResponseService) RespondOffer(ctx context.Context, token, decision, message string) (*ResponseOutcome, error) {
	choice, ok := application.ParseDecision(decision)
	if !ok {
		return nil, common.NewValidationError("invalid response", map[string]string{"decision": "must be accept or decline"})
	}
	app, err := s.Resolve(ctx, application.StageOffer, token)
	if err != nil {
		return nil, err
	}
	if app.Offer.State() != application.StateSent {
		return alreadyResponded(app, app.Offer.Stage), nil
	}

	var accountID, password string
	if choice == application.DecisionAccepted {
		acc, pw, err := s.provisioner.Confirm(ctx, *app)
		if err != nil {
			return nil, err
		}
		accountID, password = acc.ID.String(), pw
	}

	message = strings.TrimSpace(message)
	outcome, err := s.respond(ctx, app, func(a *application.Application) *application.Stage { return &a.Offer.Stage }, func(a *application.Application, now time.Time) {
		if !a.Offer.Respond(choice, message, now) {
			return
		}
		if choice == application.DecisionDeclined {
			a.OnboardingStatus = application.OnboardingDeclined
			a.SetStatus(application.StatusRejected, timelineNote("Candidate declined the offer", message), CandidateActor.Label(), now)
			return
		}
		if a.Offer.StartDate == nil {
			start := now
			a.Offer.StartDate = &start
		}
		if a.Offer.EndDate == nil {
			end := a.Offer.StartDate.AddDate(0, defaultOfferLength, 0)
			a.Offer.EndDate = &end
		}
		a.Offer.UserID = accountID
		a.OnboardingStatus = application.OnboardingHired
		a.SetStatus(application.StatusHired, timelineNote("Candidate accepted the offer", message), CandidateActor.Label(), now)
	})
	if err != nil {
		return nil, err
	}
	if password != "" && !outcome.AlreadyResponded {
		s.sendCredentials(ctx, *outcome.Application, password)
	}
	return outcome, nil
}

// respond applies a pending-only transition. If another response wins the
// race the stored decision is reported instead.
func (s *ResponseService) respond(ctx context.Context, app *application.Application, stageOf func(*application.Application) *application.Stage, apply func(*application.Application, time.Time)) (*ResponseOutcome, error) {
	if stage := stageOf(app); stage.State() != application.StateSent {
		return alreadyResponded(app, *stage), nil
	}
	now := s.now()
	updated, err := applyAndSave(ctx, s.repo, app, func(a *application.Application) error {
		if stageOf(a).State() != application.StateSent {
			return common.NewError(common.CodeAlreadyResponded, "already responded", nil)
		}
		apply(a, now)
		return nil
	})
	if err != nil {
		if common.Is(err, common.CodeAlreadyResponded) && updated != nil {
			return alreadyResponded(updated, *stageOf(updated)), nil
		}
		return nil, err
	}
	stage := stageOf(updated)
	return &ResponseOutcome{Application: updated, Decision: stage.ResponseStatus, At: stage.RespondedAt}, nil
}

func alreadyResponded(app *application.Application, stage application.Stage) *ResponseOutcome {
	return &ResponseOutcome{Application: app, Decision: stage.ResponseStatus, At: stage.RespondedAt, AlreadyResponded: true}
}

func (s *ResponseService) DocumentUploadPage(ctx context.Context, token string) (*application.Application, error) {
	return s.Resolve(ctx, application.StageDocuments, token)
}

// SubmitDocuments stores the uploaded files and marks the document request
// complete. Zero uploads is a no-op.
func (s *ResponseService) SubmitDocuments(ctx context.Context, token string, uploads []Upload) (*SubmitOutcome, error) {
	app, err := s.Resolve(ctx, application.StageDocuments, token)
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return &SubmitOutcome{Application: app}, nil
	}
	if len(uploads) > MaxDocumentFiles {
		return nil, common.NewValidationError("too many files", map[string]string{"files": "at most 5 files may be uploaded"})
	}

	now := s.now()
	docs := make([]application.Document, 0, len(uploads))
	for _, upload := range uploads {
		stored, err := s.files.Save(ctx, storage.PurposeDocuments, app.ID.String(), upload.Filename, upload.Content, storage.CandidateDocuments)
		if err != nil {
			s.discard(docs)
			return nil, err
		}
		docs = append(docs, application.Document{
			Filename:    stored.Filename,
			Label:       strings.TrimSpace(upload.Label),
			URL:         stored.Path,
			UploadedAt:  now,
			ByCandidate: true,
		})
	}

	updated, err := applyAndSave(ctx, s.repo, app, func(a *application.Application) error {
		a.Attachments = append(a.Attachments, docs...)
		a.DocumentRequest.Complete(now)
		a.OnboardingStatus = application.OnboardingDocumentsRequested
		a.SetStatus(a.Status, documentsNote(len(docs)), CandidateActor.Label(), now)
		return nil
	})
	if err != nil {
		s.discard(docs)
		return nil, err
	}
	return &SubmitOutcome{Application: updated, Saved: len(docs)}, nil
}

func documentsNote(n int) string {
	if n == 1 {
		return "Candidate uploaded 1 document"
	}
	return "Candidate uploaded " + strconv.Itoa(n) + " documents"
}

func (s *ResponseService) discard(docs []application.Document) {
	for _, doc := range docs {
		if err := s.files.Remove(doc.URL); err != nil {
			s.logger.Warn("failed to remove upload", slog.String("path", doc.URL), slog.String("error", err.Error()))
		}
	}
}

func (s *ResponseService) OfferPage(ctx context.Context, token string) (*application.Application, error) {
	return s.Resolve(ctx, application.StageOffer, token)
}

// OfferLetter returns the application with a letter that is present on disk.
func (s *ResponseService) OfferLetter(ctx context.Context, token string) (*application.Application, error) {
	app, err := s.Resolve(ctx, application.StageOffer, token)
	if err != nil {
		return nil, err
	}
	if app.Offer.Letter == nil {
		return nil, common.NewError(common.CodeNotFound, "offer letter unavailable", nil)
	}
	if _, _, err := s.files.Stat(app.Offer.Letter.Path); err != nil {
		s.logger.Warn("offer letter not readable", slog.String("application_id", app.ID.String()), slog.String("error", err.Error()))
		return nil, common.NewError(common.CodeNotFound, "offer letter unavailable", err)
	}
	return app, nil
}

// OpenOfferLetter opens the stored letter for streaming; callers close it.
func (s *ResponseService) OpenOfferLetter(ctx context.Context, token string) (*os.File, os.FileInfo, *application.Letter, error) {
	app, err := s.OfferLetter(ctx, token)
	if err != nil {
		return nil, nil, nil, err
	}
	f, info, err := s.files.Open(app.Offer.Letter.Path)
	if err != nil {
		return nil, nil, nil, common.NewError(common.CodeNotFound, "offer letter unavailable", err)
	}
	return f, info, app.Offer.Letter, nil
}

func (s *ResponseService) sendCredentials(ctx context.Context, app application.Application, password string) {
	subject, body, err := mail.RenderCredentials(mail.Data{
		CandidateName: firstNonEmpty(app.FirstName, "Candidate"),
		JobTitle:      firstNonEmpty(app.JobTitle, "the advertised position"),
		Company:       s.company,
		LoginEmail:    strings.ToLower(strings.TrimSpace(app.Email)),
		Password:      password,
	})
	if err == nil {
		err = s.mailer.Send(ctx, mail.Message{To: app.Email, Subject: subject, Body: body})
	}
	if err != nil {
		s.logger.Warn("credentials email not sent", slog.String("application_id", app.ID.String()), slog.String("error", err.Error()))
	}
}
