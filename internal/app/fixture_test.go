package app

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"hireflow/internal/common"
	"hireflow/internal/domain/application"
	"hireflow/internal/mail"
	"hireflow/internal/offerletter"
	"hireflow/internal/repository/memory"
	"hireflow/internal/storage"
)

type fakeMailer struct {
	mu       sync.Mutex
	sent     []mail.Message
	err      error
	disabled bool
	onSend   func(context.Context)
}

func (m *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onSend != nil {
		m.onSend(ctx)
	}
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) Sender() string { return "hr@example.com" }

func (m *fakeMailer) Enabled() bool { return !m.disabled }

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *fakeMailer) last() mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

type fixture struct {
	apps         *memory.ApplicationRepository
	accounts     *memory.AccountRepository
	files        *storage.Manager
	mailer       *fakeMailer
	provisioner  *Provisioner
	workflow     *WorkflowService
	responses    *ResponseService
	applications *ApplicationService
}

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	files, err := storage.NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		apps:     memory.NewApplicationRepository(),
		accounts: memory.NewAccountRepository("Viewer", "Candidate"),
		files:    files,
		mailer:   &fakeMailer{},
	}
	letters := NewOfferLetters(offerletter.NewGenerator("Acme"), files, logger)
	f.provisioner = NewProvisioner(f.accounts, "Acme@2024")
	f.workflow = NewWorkflowService(f.apps, f.mailer, letters, f.provisioner, "https://jobs.example.com/", "Acme", logger)
	f.workflow.now = func() time.Time { return fixedNow }
	f.responses = NewResponseService(f.apps, files, f.provisioner, f.mailer, "Acme", logger)
	f.responses.now = func() time.Time { return fixedNow.Add(time.Hour) }
	f.applications = NewApplicationService(f.apps, files, letters, logger)
	return f
}

func (f *fixture) seed(t *testing.T, mutate ...func(*application.Application)) *application.Application {
	t.Helper()
	app := application.Application{
		JobID:          common.NewUUID(),
		JobTitle:       "Backend Intern",
		EmploymentType: "internship",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
	}
	for _, fn := range mutate {
		fn(&app)
	}
	created, err := f.apps.Create(context.Background(), app)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return created
}

func (f *fixture) reload(t *testing.T, id common.UUID) *application.Application {
	t.Helper()
	app, err := f.apps.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return app
}

func staff() DispatchOptions {
	return DispatchOptions{Actor: Actor{ID: common.NewUUID(), Name: "Grace"}}
}
