package application

import (
	"testing"
	"time"
)

func TestStageLifecycle(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var s Stage
	if s.State() != StateIdle {
		t.Fatalf("zero stage must be idle")
	}
	if s.Respond(DecisionAccepted, "", at) {
		t.Fatalf("idle stage must not accept a response")
	}

	s.Send("tok-1", at)
	if s.State() != StateSent || s.ResponseStatus != DecisionPending || s.SentAt == nil {
		t.Fatalf("unexpected sent stage %+v", s)
	}
	if !s.Respond(DecisionDeclined, "no thanks", at.Add(time.Hour)) {
		t.Fatalf("sent stage must accept a response")
	}
	if s.State() != StateResponded || s.CandidateMessage != "no thanks" {
		t.Fatalf("unexpected responded stage %+v", s)
	}
	if s.Respond(DecisionAccepted, "changed my mind", at.Add(2*time.Hour)) {
		t.Fatalf("second response must be refused")
	}
	if s.ResponseStatus != DecisionDeclined {
		t.Fatalf("first response must stand, got %s", s.ResponseStatus)
	}

	s.Send("tok-2", at.Add(24*time.Hour))
	if s.State() != StateSent || s.RespondedAt != nil || s.CandidateMessage != "" {
		t.Fatalf("resend must clear the previous response: %+v", s)
	}
}

func TestOfferResendKeepsLinkedAccount(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	start := at.AddDate(0, 1, 0)
	offer := OfferStage{UserID: "acct-1", StartDate: &start}
	offer.SendOffer("tok", Letter{Filename: "a.pdf", Path: "offer-letters/a.pdf"}, at)
	if offer.UserID != "acct-1" || offer.StartDate == nil || offer.Letter == nil {
		t.Fatalf("unexpected offer %+v", offer)
	}
	if offer.State() != StateSent {
		t.Fatalf("offer must be awaiting a response")
	}
}

func TestDocumentStage(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var d DocumentStage
	d.Send("doc", at)
	if d.State() != StateSent {
		t.Fatalf("expected sent")
	}
	d.Complete(at.Add(time.Hour))
	d.Complete(at.Add(2 * time.Hour))
	if d.State() != StateResponded || !d.CompletedAt.Equal(at.Add(2*time.Hour)) {
		t.Fatalf("resubmission must overwrite completion time: %+v", d)
	}
	d.Send("doc-2", at.Add(3*time.Hour))
	if d.CompletedAt != nil {
		t.Fatalf("resend must clear completion")
	}
}

func TestParseDecision(t *testing.T) {
	cases := map[string]Decision{"accept": DecisionAccepted, "accepted": DecisionAccepted, "decline": DecisionDeclined}
	for in, want := range cases {
		got, ok := ParseDecision(in)
		if !ok || got != want {
			t.Fatalf("ParseDecision(%q) = %q %v", in, got, ok)
		}
	}
	if _, ok := ParseDecision("maybe"); ok {
		t.Fatalf("unknown decision must be rejected")
	}
}

func TestAdvanceStatus(t *testing.T) {
	at := time.Now()
	tests := []struct {
		name   string
		from   Status
		target Status
		want   Status
	}{
		{"forward", StatusNew, StatusInReview, StatusInReview},
		{"never backwards", StatusInterview, StatusInReview, StatusInterview},
		{"terminal stays", StatusRejected, StatusHired, StatusRejected},
		{"same", StatusOffered, StatusOffered, StatusOffered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := Application{Status: tt.from}
			app.AdvanceStatus(tt.target, "note", "system", at)
			if app.Status != tt.want {
				t.Fatalf("got %s, want %s", app.Status, tt.want)
			}
			if len(app.Timeline) != 1 || app.Timeline[0].Status != tt.want {
				t.Fatalf("timeline not written: %+v", app.Timeline)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	if s, ok := ParseStatus(" Review "); !ok || s != StatusInReview {
		t.Fatalf("review alias not mapped: %q %v", s, ok)
	}
	if _, ok := ParseStatus("archived"); ok {
		t.Fatalf("unknown status must be rejected")
	}
}

func TestTokenFor(t *testing.T) {
	app := Application{}
	app.Shortlist.Token = "s"
	app.DocumentRequest.Token = "d"
	app.Offer.Token = "o"
	if app.TokenFor(StageShortlist) != "s" || app.TokenFor(StageDocuments) != "d" || app.TokenFor(StageOffer) != "o" {
		t.Fatalf("unexpected tokens")
	}
	if app.TokenFor("other") != "" {
		t.Fatalf("unknown stage must have no token")
	}
}
