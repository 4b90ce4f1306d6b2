package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
	"hireflow/internal/repository/memory"
)

func TestDispatchShortlistTokenResolvesToApplication(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t)

	result, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "001", staff())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	app := result.Application
	if app.Status != application.StatusShortlisted || app.OnboardingStatus != application.OnboardingShortlisted {
		t.Fatalf("unexpected status %s/%s", app.Status, app.OnboardingStatus)
	}
	if len(app.Shortlist.Token) != 48 || app.Shortlist.ResponseStatus != application.DecisionPending {
		t.Fatalf("unexpected shortlist stage %+v", app.Shortlist)
	}
	if len(app.EmailLogs) != 1 || app.EmailLogs[0].SentBy != "Grace" || app.ProcessedBy == nil {
		t.Fatalf("expected email log and processed_by, got %+v", app)
	}
	if !strings.Contains(f.mailer.last().Body, "https://jobs.example.com/respond/"+app.Shortlist.Token+"/accept") {
		t.Fatalf("email body missing accept link: %s", f.mailer.last().Body)
	}

	resolved, err := f.responses.Resolve(context.Background(), application.StageShortlist, app.Shortlist.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != seeded.ID {
		t.Fatalf("token resolved to %s, want %s", resolved.ID, seeded.ID)
	}
	if _, err := f.responses.Resolve(context.Background(), application.StageOffer, app.Shortlist.Token); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected token to be stage specific, got %v", err)
	}
}

func TestDispatchDocumentRequestRequiresAcceptedShortlist(t *testing.T) {
	f := newFixture(t)
	for _, decision := range []application.Decision{"", application.DecisionPending, application.DecisionDeclined} {
		seeded := f.seed(t, func(a *application.Application) { a.Shortlist.ResponseStatus = decision })
		_, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "002", staff())
		if !common.Is(err, common.CodePreconditionFailed) {
			t.Fatalf("decision %q: expected precondition failed, got %v", decision, err)
		}
		if got := f.reload(t, seeded.ID); got.Version != seeded.Version || got.DocumentRequest.Token != "" {
			t.Fatalf("decision %q: application was mutated", decision)
		}
	}
	if f.mailer.count() != 0 {
		t.Fatalf("expected no emails, got %d", f.mailer.count())
	}
}

func TestDispatchOfferRequiresCompletedDocuments(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t, func(a *application.Application) {
		a.Status = application.StatusInterview
		a.Shortlist.ResponseStatus = application.DecisionAccepted
		a.DocumentRequest.Token = "pending-documents"
	})
	_, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "003", staff())
	if !common.Is(err, common.CodePreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
	if f.mailer.count() != 0 || f.accounts.Count() != 0 {
		t.Fatalf("expected no side effects")
	}
}

func TestDispatchOfferRejectsAcceptedOffer(t *testing.T) {
	f := newFixture(t)
	completed := fixedNow
	seeded := f.seed(t, func(a *application.Application) {
		a.DocumentRequest.CompletedAt = &completed
		a.Offer.ResponseStatus = application.DecisionAccepted
	})
	if _, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "003", staff()); !common.Is(err, common.CodePreconditionFailed) {
		t.Fatalf("expected precondition failed, got %v", err)
	}
}

func TestDispatchValidatesInput(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t)
	if _, err := f.workflow.Dispatch(context.Background(), "not-an-id", "001", staff()); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation for malformed id, got %v", err)
	}
	if _, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "004", staff()); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation for template, got %v", err)
	}
	if _, err := f.workflow.Dispatch(context.Background(), common.NewUUID().String(), "001", staff()); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	noEmail := f.seed(t, func(a *application.Application) { a.Email = "" })
	if _, err := f.workflow.Dispatch(context.Background(), noEmail.ID.String(), "001", staff()); !common.Is(err, common.CodePreconditionFailed) {
		t.Fatalf("expected precondition for missing email, got %v", err)
	}
}

func TestUnknownApplicationReportedBeforeTransport(t *testing.T) {
	f := newFixture(t)
	f.mailer.disabled = true
	missing := common.NewUUID().String()
	if _, err := f.workflow.Dispatch(context.Background(), missing, "002", staff()); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("dispatch: expected not found, got %v", err)
	}
	if _, err := f.workflow.SendCustom(context.Background(), missing, "Hello", "Hi", Actor{}); !common.Is(err, common.CodeNotFound) {
		t.Fatalf("custom: expected not found, got %v", err)
	}
}

func TestDispatchWithoutTransportLeavesApplicationUntouched(t *testing.T) {
	f := newFixture(t)
	f.mailer.disabled = true
	seeded := f.seed(t)
	if _, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "001", staff()); !common.Is(err, common.CodeTransportUnavailable) {
		t.Fatalf("expected transport unavailable, got %v", err)
	}
	if got := f.reload(t, seeded.ID); got.Shortlist.Token != "" || got.Version != seeded.Version {
		t.Fatalf("application was mutated")
	}
}

func TestDispatchSendFailureDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	completed := fixedNow
	seeded := f.seed(t, func(a *application.Application) { a.DocumentRequest.CompletedAt = &completed })
	f.mailer.err = common.NewError(common.CodeTransportUnavailable, "failed to send email", errors.New("dial tcp: refused"))

	if _, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "003", staff()); !common.Is(err, common.CodeTransportUnavailable) {
		t.Fatalf("expected transport error, got %v", err)
	}
	got := f.reload(t, seeded.ID)
	if got.Offer.Token != "" || got.Offer.Letter != nil || len(got.EmailLogs) != 0 || got.Version != seeded.Version {
		t.Fatalf("offer state persisted despite send failure: %+v", got.Offer)
	}
}

func TestDispatchOfferGeneratesLetterAndProvisionsAccount(t *testing.T) {
	f := newFixture(t)
	completed := fixedNow
	seeded := f.seed(t, func(a *application.Application) { a.DocumentRequest.CompletedAt = &completed })

	result, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "003", staff())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	offer := result.Application.Offer
	if offer.Letter == nil || offer.Letter.Format != "pdf" || !strings.HasPrefix(offer.Letter.Path, "offer-letters/") {
		t.Fatalf("unexpected letter %+v", offer.Letter)
	}
	if offer.UserID == "" || f.accounts.Count() != 1 {
		t.Fatalf("expected linked account")
	}
	msg := f.mailer.last()
	if len(msg.Attachments) != 1 || !strings.Contains(msg.Body, "Password: adaacme2024") {
		t.Fatalf("unexpected offer email %+v", msg)
	}
	if strings.Contains(result.Log.Body, "adaacme2024") {
		t.Fatalf("email log must not keep the cleartext password")
	}
	if result.Application.Status != application.StatusOffered || result.Application.OnboardingStatus != application.OnboardingOfferSent {
		t.Fatalf("unexpected status %s/%s", result.Application.Status, result.Application.OnboardingStatus)
	}
}

func TestDispatchOfferWithoutLetterSource(t *testing.T) {
	f := newFixture(t)
	completed := fixedNow
	seeded := f.seed(t, func(a *application.Application) { a.DocumentRequest.CompletedAt = &completed })
	off := false
	opts := staff()
	opts.AutoGenerateOffer = &off
	opts.OfferLetterPath = "offer-letters/missing.pdf"

	if _, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "003", opts); !common.Is(err, common.CodePreconditionFailed) {
		t.Fatalf("expected no letter available, got %v", err)
	}
	opts.OfferLetterPath = "../outside.pdf"
	if _, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "003", opts); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected traversal to be rejected, got %v", err)
	}
	if f.mailer.count() != 0 {
		t.Fatalf("expected no emails")
	}
}

func TestDispatchBatchDeduplicatesAndIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t)
	id := seeded.ID.String()

	outcomes, err := f.workflow.DispatchBatch(context.Background(), []string{id, "not-an-id", id}, "001", staff())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].Status != BatchSent || outcomes[0].Duplicate {
		t.Fatalf("unexpected first outcome %+v", outcomes[0])
	}
	if outcomes[1].Status != BatchFailed || outcomes[1].Reason == "" {
		t.Fatalf("expected malformed id to fail, got %+v", outcomes[1])
	}
	if outcomes[2].Status != BatchSent || !outcomes[2].Duplicate {
		t.Fatalf("expected duplicate to mirror first outcome, got %+v", outcomes[2])
	}
	if f.mailer.count() != 1 {
		t.Fatalf("expected one email, got %d", f.mailer.count())
	}
	if got := f.reload(t, seeded.ID); len(got.EmailLogs) != 1 {
		t.Fatalf("expected a single dispatch, got %d email logs", len(got.EmailLogs))
	}
}

func TestDispatchBatchLimits(t *testing.T) {
	f := newFixture(t)
	ids := make([]string, MaxBatchSize+1)
	for i := range ids {
		ids[i] = common.NewUUID().String()
	}
	if _, err := f.workflow.DispatchBatch(context.Background(), ids, "001", staff()); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation for oversized batch, got %v", err)
	}
	opts := staff()
	opts.OfferLetterPath = "offer-letters/x.pdf"
	if _, err := f.workflow.DispatchBatch(context.Background(), ids[:1], "003", opts); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation for manual letter in batch, got %v", err)
	}
	if _, err := f.workflow.DispatchBatch(context.Background(), nil, "001", staff()); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation for empty batch, got %v", err)
	}
}

func TestFreshTokenRetriesOnCollision(t *testing.T) {
	f := newFixture(t)
	taken := f.seed(t)
	_, err := f.workflow.Dispatch(context.Background(), taken.ID.String(), "001", staff())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	used := f.reload(t, taken.ID).Shortlist.Token

	calls := 0
	f.workflow.mintToken = func() (string, error) {
		calls++
		if calls == 1 {
			return used, nil
		}
		return strings.Repeat("b", 48), nil
	}
	other := f.seed(t, func(a *application.Application) { a.Email = "alan@example.com" })
	result, err := f.workflow.Dispatch(context.Background(), other.ID.String(), "001", staff())
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if result.Application.Shortlist.Token != strings.Repeat("b", 48) || calls != 2 {
		t.Fatalf("expected second token after collision, got %q after %d calls", result.Application.Shortlist.Token, calls)
	}
}

func TestSendCustomAppendsEmailLog(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t)
	if _, err := f.workflow.SendCustom(context.Background(), seeded.ID.String(), "", "hi", Actor{}); !common.Is(err, common.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
	result, err := f.workflow.SendCustom(context.Background(), seeded.ID.String(), "Interview", "See you Monday", Actor{Name: "Grace"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(result.Application.EmailLogs) != 1 || result.Application.Status != application.StatusNew || len(result.Application.Timeline) != 0 {
		t.Fatalf("custom email must only append a log entry: %+v", result.Application)
	}
}

func TestResentOfferDoesNotOverwriteAcceptance(t *testing.T) {
	f := newFixture(t)
	completed := fixedNow
	seeded := f.seed(t, func(a *application.Application) { a.DocumentRequest.CompletedAt = &completed })
	first, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "003", staff())
	if err != nil {
		t.Fatalf("first offer: %v", err)
	}
	token := first.Application.Offer.Token

	repo := &racingRepo{ApplicationRepository: f.apps}
	repo.race = func() {
		if _, err := f.responses.RespondOffer(context.Background(), token, "accept", ""); err != nil {
			t.Errorf("accept: %v", err)
		}
	}
	f.workflow.repo = repo

	if _, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "003", staff()); !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict for resent offer, got %v", err)
	}
	got := f.reload(t, seeded.ID)
	if got.Offer.ResponseStatus != application.DecisionAccepted || got.Offer.Token != token {
		t.Fatalf("acceptance overwritten: %+v", got.Offer)
	}
	if got.Status != application.StatusHired || got.OnboardingStatus != application.OnboardingHired {
		t.Fatalf("unexpected status %s/%s", got.Status, got.OnboardingStatus)
	}
}

func TestResentShortlistLosesToNewerToken(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(t)
	newer := strings.Repeat("n", 48)

	repo := &racingRepo{ApplicationRepository: f.apps}
	repo.race = func() {
		winner := f.reload(t, seeded.ID)
		winner.Shortlist.Send(newer, fixedNow)
		if _, err := f.apps.Update(context.Background(), *winner); err != nil {
			t.Errorf("winner update: %v", err)
		}
	}
	f.workflow.repo = repo

	if _, err := f.workflow.Dispatch(context.Background(), seeded.ID.String(), "001", staff()); !common.Is(err, common.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if got := f.reload(t, seeded.ID); got.Shortlist.Token != newer || len(got.EmailLogs) != 0 {
		t.Fatalf("newer token replaced: %+v", got.Shortlist)
	}
}

// deadlineRepo refuses writes once the caller's context is done, as the
// database driver does.
type deadlineRepo struct {
	*memory.ApplicationRepository
}

func (r deadlineRepo) Update(ctx context.Context, app application.Application) (*application.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.NewError(common.CodeInternal, "database unavailable", err)
	}
	return r.ApplicationRepository.Update(ctx, app)
}

func TestSentEmailPersistsAfterRequestCancelled(t *testing.T) {
	f := newFixture(t)
	f.workflow.repo = deadlineRepo{f.apps}
	seeded := f.seed(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.mailer.onSend = func(context.Context) { cancel() }
	if _, err := f.workflow.Dispatch(ctx, seeded.ID.String(), "001", staff()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := f.reload(t, seeded.ID); got.Shortlist.Token == "" || len(got.EmailLogs) != 1 {
		t.Fatalf("sent shortlist was not stored: %+v", got.Shortlist)
	}

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	f.mailer.onSend = func(context.Context) { cancel() }
	if _, err := f.workflow.SendCustom(ctx, seeded.ID.String(), "Interview", "See you Monday", Actor{Name: "Grace"}); err != nil {
		t.Fatalf("custom: %v", err)
	}
	if got := f.reload(t, seeded.ID); len(got.EmailLogs) != 2 {
		t.Fatalf("custom email log not stored, got %d entries", len(got.EmailLogs))
	}
}

func TestDispatchBatchBoundsEachItem(t *testing.T) {
	f := newFixture(t)
	ids := []string{f.seed(t).ID.String(), f.seed(t).ID.String()}
	var bounded []bool
	f.mailer.onSend = func(ctx context.Context) {
		_, ok := ctx.Deadline()
		bounded = append(bounded, ok)
	}
	outcomes, err := f.workflow.DispatchBatch(context.Background(), ids, "001", staff())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	for i, outcome := range outcomes {
		if outcome.Status != BatchSent {
			t.Fatalf("item %d failed: %s", i, outcome.Reason)
		}
	}
	if len(bounded) != 2 || !bounded[0] || !bounded[1] {
		t.Fatalf("expected a deadline per item, got %v", bounded)
	}
}

// blindTokenRepo hides existing tokens from lookups so a collision only
// surfaces on write.
type blindTokenRepo struct {
	*memory.ApplicationRepository
	updates int
}

func (r *blindTokenRepo) FindByToken(context.Context, application.StageKind, string) (*application.Application, error) {
	return nil, common.NewError(common.CodeNotFound, "application not found", nil)
}

func (r *blindTokenRepo) Update(ctx context.Context, app application.Application) (*application.Application, error) {
	r.updates++
	return r.ApplicationRepository.Update(ctx, app)
}

func TestTokenCollisionOnWriteIsNotRetried(t *testing.T) {
	f := newFixture(t)
	holder := f.seed(t)
	if _, err := f.workflow.Dispatch(context.Background(), holder.ID.String(), "001", staff()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	used := f.reload(t, holder.ID).Shortlist.Token

	repo := &blindTokenRepo{ApplicationRepository: f.apps}
	f.workflow.repo = repo
	f.workflow.mintToken = func() (string, error) { return used, nil }
	other := f.seed(t, func(a *application.Application) { a.Email = "alan@example.com" })

	_, err := f.workflow.Dispatch(context.Background(), other.ID.String(), "001", staff())
	if !common.Is(err, common.CodeConflict) || !errors.Is(err, application.ErrTokenInUse) {
		t.Fatalf("expected token conflict, got %v", err)
	}
	if repo.updates != 1 {
		t.Fatalf("expected a single write attempt, got %d", repo.updates)
	}
	if got := f.reload(t, other.ID); got.Shortlist.Token != "" || got.Version != other.Version {
		t.Fatalf("colliding token stored: %+v", got.Shortlist)
	}
}
