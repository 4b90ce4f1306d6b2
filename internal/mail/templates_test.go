package mail

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"hireflow/internal/common"
	"hireflow/internal/config"
)

func TestRenderShortlist(t *testing.T) {
	subject, body, err := Render(TemplateShortlist, Data{
		CandidateName: "Ada",
		JobTitle:      "Engineer",
		Company:       "Acme",
		AcceptURL:     "https://x/respond/tok/accept",
		DeclineURL:    "https://x/respond/tok/decline",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "You have been shortlisted for Engineer" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "https://x/respond/tok/accept") || !strings.Contains(body, "Dear Ada") {
		t.Fatalf("body missing fields: %s", body)
	}
}

func TestRenderOfferIncludesCredentials(t *testing.T) {
	_, body, err := Render(TemplateOffer, Data{LoginEmail: "ada@example.com", Password: "adaacme"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, "Password: adaacme") {
		t.Fatalf("offer body missing password: %s", body)
	}
}

func TestParseTemplateCode(t *testing.T) {
	if _, ok := ParseTemplateCode("004"); ok {
		t.Fatalf("expected 004 to be rejected")
	}
	if code, ok := ParseTemplateCode("003"); !ok || code != TemplateOffer {
		t.Fatalf("expected 003 to parse")
	}
}

func TestUnconfiguredMailer(t *testing.T) {
	m := NewMailer(config.SMTPConfig{}, slog.Default())
	if m.Enabled() {
		t.Fatalf("expected disabled mailer")
	}
	if err := m.Send(context.Background(), Message{To: "a@b.c"}); !common.Is(err, common.CodeTransportUnavailable) {
		t.Fatalf("expected transport unavailable, got %v", err)
	}
}
