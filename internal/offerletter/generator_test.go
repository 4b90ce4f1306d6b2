package offerletter

import (
	"bytes"
	"testing"
	"time"

	"hireflow/internal/domain/application"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestResolveDuration(t *testing.T) {
	withDates := application.Application{}
	withDates.Offer.StartDate = date(2024, time.January, 1)
	withDates.Offer.EndDate = date(2024, time.April, 1)

	shortSpan := application.Application{}
	shortSpan.Offer.StartDate = date(2024, time.January, 20)
	shortSpan.Offer.EndDate = date(2024, time.February, 10)

	tinySpan := application.Application{}
	tinySpan.Offer.StartDate = date(2024, time.January, 1)
	tinySpan.Offer.EndDate = date(2024, time.January, 8)

	cases := []struct {
		name     string
		app      application.Application
		override string
		want     string
	}{
		{"override wins", withDates, "6 weeks", "6 weeks"},
		{"metadata", application.Application{Metadata: map[string]string{"duration": "12 Months"}}, "", "12 Months"},
		{"month span", withDates, "", "3 Months"},
		{"day approximation", shortSpan, "", "1 Month"},
		{"days", tinySpan, "", "7 Days"},
		{"internship default", application.Application{JobTitle: "Backend Intern"}, "", "3 Months"},
		{"permanent default", application.Application{EmploymentType: "full-time"}, "", "Permanent"},
		{"generic default", application.Application{}, "", "To be confirmed"},
	}
	for _, tc := range cases {
		if got := ResolveDuration(tc.app, tc.override); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDataForDefaultsDate(t *testing.T) {
	g := NewGenerator("Acme")
	g.clock = func() time.Time { return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC) }
	data := g.DataFor(application.Application{FirstName: "Ada", LastName: "Lovelace", JobTitle: "Engineer"}, Overrides{})
	if data.Date != "March 5, 2024" || data.Name != "Ada Lovelace" || data.Role != "Engineer" {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestGenerateProducesPDF(t *testing.T) {
	g := NewGenerator("Acme")
	out, err := g.Generate(TemplateData{Name: "Zoë", Role: "Engineer", Duration: "3 Months", Date: "March 5, 2024"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a pdf")
	}
}
