package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
	"hireflow/internal/mail"
	"hireflow/internal/offerletter"
	"hireflow/internal/security"
)

const (
	MaxBatchSize = 200

	BatchSent   = "sent"
	BatchFailed = "failed"

	maskedPassword = "********"

	batchItemTimeout = time.Minute
)

type DispatchOptions struct {
	Note              string
	OfferLetterPath   string
	AutoGenerateOffer *bool
	Actor             Actor
}

func (o DispatchOptions) autoGenerate() bool {
	return o.AutoGenerateOffer == nil || *o.AutoGenerateOffer
}

type DispatchResult struct {
	Application *application.Application `json:"application"`
	Log         application.EmailLog     `json:"log"`
}

// BatchOutcome is the result for one requested id. Repeated ids carry the
// outcome of their first occurrence with Duplicate set.
type BatchOutcome struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// WorkflowService dispatches the templated workflow emails and is the only
// place stage tokens are minted.
type WorkflowService struct {
	repo        application.Repository
	mailer      mail.Mailer
	letters     *OfferLetters
	provisioner *Provisioner
	baseURL     string
	company     string
	logger      *slog.Logger
	now         clock
	mintToken   func() (string, error)
	itemTimeout time.Duration
}

func NewWorkflowService(repo application.Repository, mailer mail.Mailer, letters *OfferLetters, provisioner *Provisioner, baseURL, company string, logger *slog.Logger) *WorkflowService {
	return &WorkflowService{
		repo:        repo,
		mailer:      mailer,
		letters:     letters,
		provisioner: provisioner,
		baseURL:     strings.TrimRight(baseURL, "/"),
		company:     company,
		logger:      logger,
		now:         utcNow,
		mintToken:   security.NewStageToken,
		itemTimeout: batchItemTimeout,
	}
}

func (s *WorkflowService) Dispatch(ctx context.Context, rawID, template string, opts DispatchOptions) (*DispatchResult, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	code, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, id, code, opts, false)
}

// DispatchBatch runs Dispatch for each distinct id in order. Item failures
// are reported in the outcomes and never stop the batch. Each item gets its
// own deadline.
func (s *WorkflowService) DispatchBatch(ctx context.Context, ids []string, template string, opts DispatchOptions) ([]BatchOutcome, error) {
	if len(ids) == 0 {
		return nil, common.NewValidationError("invalid batch", map[string]string{"applicationIds": "at least one id is required"})
	}
	if len(ids) > MaxBatchSize {
		return nil, common.NewValidationError("invalid batch", map[string]string{"applicationIds": fmt.Sprintf("at most %d ids are allowed", MaxBatchSize)})
	}
	code, err := parseTemplate(template)
	if err != nil {
		return nil, err
	}
	if code == mail.TemplateOffer && strings.TrimSpace(opts.OfferLetterPath) != "" {
		return nil, common.NewValidationError("invalid batch", map[string]string{"offerLetterPath": "batch offers only support generated letters"})
	}
	if !s.mailer.Enabled() {
		return nil, errTransportUnavailable()
	}

	outcomes := make([]BatchOutcome, 0, len(ids))
	first := make(map[string]int, len(ids))
	for _, raw := range ids {
		key := strings.ToLower(strings.TrimSpace(raw))
		if idx, ok := first[key]; ok {
			dup := outcomes[idx]
			dup.ID = raw
			dup.Duplicate = true
			outcomes = append(outcomes, dup)
			continue
		}
		first[key] = len(outcomes)

		outcome := BatchOutcome{ID: raw, Status: BatchSent}
		id, err := parseID(raw)
		if err == nil {
			itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
			_, err = s.dispatch(itemCtx, id, code, opts, true)
			cancel()
		}
		if err != nil {
			outcome.Status = BatchFailed
			outcome.Reason = common.MessageOf(err)
		}
		outcomes = append(outcomes, outcome)
	}
	s.logger.Info("workflow batch finished", slog.String("template", string(code)), slog.Int("items", len(ids)))
	return outcomes, nil
}

// SendCustom sends a free-form staff message and records it in the email log.
func (s *WorkflowService) SendCustom(ctx context.Context, rawID, subject, message string, actor Actor) (*DispatchResult, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, err
	}
	subject, message = strings.TrimSpace(subject), strings.TrimSpace(message)
	fields := map[string]string{}
	if subject == "" {
		fields["subject"] = "subject is required"
	}
	if message == "" {
		fields["message"] = "message is required"
	}
	if len(fields) > 0 {
		return nil, common.NewValidationError("invalid email", fields)
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.mailer.Enabled() {
		return nil, errTransportUnavailable()
	}
	if strings.TrimSpace(app.Email) == "" {
		return nil, common.NewError(common.CodePreconditionFailed, "application has no email address", nil)
	}
	if err := s.mailer.Send(ctx, mail.Message{To: app.Email, Subject: subject, Body: message}); err != nil {
		return nil, err
	}
	entry := application.EmailLog{Subject: subject, Body: message, To: app.Email, From: s.mailer.Sender(), SentBy: actor.Label(), At: s.now()}
	updated, err := applyAndSave(context.WithoutCancel(ctx), s.repo, app, func(a *application.Application) error {
		a.AppendEmailLog(entry)
		a.ProcessedBy = actor.staffID()
		return nil
	})
	if err != nil {
		return nil, s.savedAfterSend(app.ID, err)
	}
	return &DispatchResult{Application: updated, Log: entry}, nil
}

func (s *WorkflowService) dispatch(ctx context.Context, id common.UUID, code mail.TemplateCode, opts DispatchOptions, batch bool) (*DispatchResult, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.mailer.Enabled() {
		return nil, errTransportUnavailable()
	}
	if err := checkPreconditions(*app, code); err != nil {
		return nil, err
	}
	stage := stageFor(code)
	seen := stageSnapshot(*app, stage)
	token, err := s.freshToken(ctx, stage)
	if err != nil {
		return nil, err
	}

	data := s.mailData(*app, code, token, opts.Note)
	var (
		letter      *application.Letter
		accountID   string
		attachments []mail.Attachment
	)
	if code == mail.TemplateOffer {
		letter, err = s.resolveLetter(ctx, *app, opts, batch)
		if err != nil {
			return nil, err
		}
		abs, err := s.letters.AbsPath(*letter)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, mail.Attachment{Filename: letter.Filename, Path: abs})
		acc, password, err := s.provisioner.EnsureAccount(ctx, *app)
		if err != nil {
			return nil, err
		}
		accountID = acc.ID.String()
		data.LoginEmail = acc.Email
		data.Password = password
	}

	subject, body, err := mail.Render(code, data)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to render email", err)
	}
	if err := s.mailer.Send(ctx, mail.Message{To: app.Email, Subject: subject, Body: body, Attachments: attachments}); err != nil {
		return nil, err
	}
	if data.Password != "" {
		data.Password = maskedPassword
		if _, body, err = mail.Render(code, data); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to render email", err)
		}
	}

	now := s.now()
	entry := application.EmailLog{Subject: subject, Body: body, To: app.Email, From: s.mailer.Sender(), SentBy: opts.Actor.Label(), At: now}
	note := timelineNote(fmt.Sprintf("Workflow email %s sent", code), opts.Note)
	actor := opts.Actor.Label()
	// The email is out; the write must not be lost to a request deadline.
	updated, err := applyAndSave(context.WithoutCancel(ctx), s.repo, app, func(a *application.Application) error {
		if stageSnapshot(*a, stage) != seen {
			return common.NewError(common.CodeConflict, "stage changed while the email was being sent", nil)
		}
		if err := checkPreconditions(*a, code); err != nil {
			return err
		}
		switch code {
		case mail.TemplateShortlist:
			a.Shortlist.Send(token, now)
			a.OnboardingStatus = application.OnboardingShortlisted
			a.SetStatus(application.StatusShortlisted, note, actor, now)
		case mail.TemplateDocumentRequest:
			a.DocumentRequest.Send(token, now)
			a.OnboardingStatus = application.OnboardingDocumentsRequested
			a.AdvanceStatus(application.StatusInReview, note, actor, now)
		case mail.TemplateOffer:
			a.Offer.SendOffer(token, *letter, now)
			a.Offer.UserID = accountID
			a.OnboardingStatus = application.OnboardingOfferSent
			a.SetStatus(application.StatusOffered, note, actor, now)
		}
		a.AppendEmailLog(entry)
		a.ProcessedBy = opts.Actor.staffID()
		return nil
	})
	if err != nil {
		return nil, s.savedAfterSend(app.ID, err)
	}
	s.logger.Info("workflow email sent", slog.String("application_id", id.String()), slog.String("template", string(code)))
	return &DispatchResult{Application: updated, Log: entry}, nil
}

func checkPreconditions(app application.Application, code mail.TemplateCode) error {
	if strings.TrimSpace(app.Email) == "" {
		return common.NewError(common.CodePreconditionFailed, "application has no email address", nil)
	}
	switch code {
	case mail.TemplateDocumentRequest:
		if app.Shortlist.ResponseStatus != application.DecisionAccepted {
			return common.NewError(common.CodePreconditionFailed, "candidate has not accepted the shortlist invitation", nil)
		}
	case mail.TemplateOffer:
		if app.DocumentRequest.CompletedAt == nil {
			return common.NewError(common.CodePreconditionFailed, "candidate has not submitted the requested documents", nil)
		}
		if app.Offer.ResponseStatus == application.DecisionAccepted {
			return common.NewError(common.CodePreconditionFailed, "offer has already been accepted", nil)
		}
	}
	return nil
}

// freshToken mints a token not currently held by any application for stage.
func (s *WorkflowService) freshToken(ctx context.Context, stage application.StageKind) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := s.mintToken()
		if err != nil {
			return "", common.NewError(common.CodeInternal, "failed to mint token", err)
		}
		_, err = s.repo.FindByToken(ctx, stage, token)
		if common.Is(err, common.CodeNotFound) {
			return token, nil
		}
		if err != nil {
			return "", err
		}
		s.logger.Warn("stage token collision", slog.String("stage", string(stage)))
	}
	return "", common.NewError(common.CodeInternal, "failed to mint a unique token", nil)
}

// resolveLetter picks the offer attachment: an explicit path, then the
// letter already on the application, then a generated one.
func (s *WorkflowService) resolveLetter(ctx context.Context, app application.Application, opts DispatchOptions, batch bool) (*application.Letter, error) {
	if rel := strings.TrimSpace(opts.OfferLetterPath); rel != "" {
		letter, err := s.letters.Existing(rel)
		if err == nil {
			return letter, nil
		}
		if !common.Is(err, common.CodeNotFound) {
			return nil, err
		}
		s.logger.Warn("offer letter path not found", slog.String("application_id", app.ID.String()), slog.String("path", rel))
	}
	if !batch && app.Offer.Letter != nil {
		if letter, err := s.letters.Existing(app.Offer.Letter.Path); err == nil {
			letter.Format = app.Offer.Letter.Format
			return letter, nil
		}
	}
	if opts.autoGenerate() {
		return s.letters.Generate(ctx, app, offerletter.Overrides{}, "pdf")
	}
	return nil, common.NewError(common.CodePreconditionFailed, "no offer letter available", nil)
}

func (s *WorkflowService) mailData(app application.Application, code mail.TemplateCode, token, note string) mail.Data {
	data := mail.Data{
		CandidateName: firstNonEmpty(app.FirstName, app.FullName(), "Candidate"),
		JobTitle:      firstNonEmpty(app.JobTitle, "the advertised position"),
		Company:       s.company,
		Note:          strings.TrimSpace(note),
	}
	switch code {
	case mail.TemplateShortlist:
		data.AcceptURL = s.link("respond", token, "accept")
		data.DeclineURL = s.link("respond", token, "decline")
	case mail.TemplateDocumentRequest:
		data.UploadURL = s.link("documents", token)
	case mail.TemplateOffer:
		data.OfferURL = s.link("offer", token)
		data.AcceptURL = s.link("offer", token, "accept")
		data.DeclineURL = s.link("offer", token, "decline")
		data.LetterURL = s.link("offer-letter", token)
	}
	return data
}

func (s *WorkflowService) link(parts ...string) string {
	return s.baseURL + "/" + strings.Join(parts, "/")
}

// savedAfterSend reports a write that failed after the email went out. Lost
// races keep their conflict code; anything else is internal.
func (s *WorkflowService) savedAfterSend(id common.UUID, err error) error {
	s.logger.Error("email sent but application not saved", slog.String("application_id", id.String()), slog.String("error", err.Error()))
	switch common.CodeOf(err) {
	case common.CodeConflict, common.CodePreconditionFailed:
		return common.NewError(common.CodeConflict, "email sent but the application changed concurrently and was not updated", err)
	default:
		return common.NewError(common.CodeInternal, "email sent but application could not be saved", err)
	}
}

// stageSnapshot captures the parts of a stage a candidate or another
// dispatch can change.
func stageSnapshot(app application.Application, kind application.StageKind) string {
	switch kind {
	case application.StageShortlist:
		return app.Shortlist.Token + "|" + string(app.Shortlist.ResponseStatus)
	case application.StageDocuments:
		completed := ""
		if at := app.DocumentRequest.CompletedAt; at != nil {
			completed = at.Format(time.RFC3339Nano)
		}
		return app.DocumentRequest.Token + "|" + completed
	case application.StageOffer:
		return app.Offer.Token + "|" + string(app.Offer.ResponseStatus)
	default:
		return ""
	}
}

func parseTemplate(value string) (mail.TemplateCode, error) {
	code, ok := mail.ParseTemplateCode(strings.TrimSpace(value))
	if !ok {
		return "", common.NewValidationError("unsupported template", map[string]string{"template": "must be 001, 002 or 003"})
	}
	return code, nil
}

func stageFor(code mail.TemplateCode) application.StageKind {
	switch code {
	case mail.TemplateDocumentRequest:
		return application.StageDocuments
	case mail.TemplateOffer:
		return application.StageOffer
	default:
		return application.StageShortlist
	}
}

func errTransportUnavailable() error {
	return common.NewError(common.CodeTransportUnavailable, "email transport is not configured", nil)
}

func timelineNote(base, extra string) string {
	if extra = strings.TrimSpace(extra); extra != "" {
		return base + ": " + extra
	}
	return base
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
