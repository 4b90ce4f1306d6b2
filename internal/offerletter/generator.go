package offerletter

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"hireflow/internal/domain/application"
)

const DateLayout = "January 2, 2006"

const (
	internshipDuration = "3 Months"
	permanentDuration  = "Permanent"
	genericDuration    = "To be confirmed"
)

type TemplateData struct {
	Name     string
	Role     string
	Duration string
	Date     string
	Company  string
}

// Overrides are staff-supplied values that win over derived ones.
type Overrides struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Duration string `json:"duration"`
	Date     string `json:"date"`
}

type Generator struct {
	company string
	clock   func() time.Time
}

func NewGenerator(company string) *Generator {
	return &Generator{company: company, clock: time.Now}
}

// DataFor assembles template data for app, applying overrides first.
func (g *Generator) DataFor(app application.Application, o Overrides) TemplateData {
	data := TemplateData{
		Name:     firstNonEmpty(o.Name, app.FullName(), "Candidate"),
		Role:     firstNonEmpty(o.Role, app.JobTitle, "the advertised position"),
		Duration: ResolveDuration(app, o.Duration),
		Date:     firstNonEmpty(o.Date, g.clock().Format(DateLayout)),
		Company:  g.company,
	}
	return data
}

// ResolveDuration picks the engagement length: explicit override, then the
// free-form metadata value, then the offer start/end span, then a default
// keyed on whether the role is an internship.
func ResolveDuration(app application.Application, override string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	if v := strings.TrimSpace(app.Metadata["duration"]); v != "" {
		return v
	}
	if app.Offer.StartDate != nil && app.Offer.EndDate != nil {
		if label := spanLabel(*app.Offer.StartDate, *app.Offer.EndDate); label != "" {
			return label
		}
	}
	if app.EmploymentType != "" || app.JobTitle != "" {
		if app.IsInternship() {
			return internshipDuration
		}
		return permanentDuration
	}
	return genericDuration
}

func spanLabel(start, end time.Time) string {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months > 0 {
		return plural(months, "Month")
	}
	days := end.Sub(start).Hours() / 24
	if days <= 0 {
		return ""
	}
	if approx := int(math.Round(days / 30)); approx >= 1 {
		return plural(approx, "Month")
	}
	return plural(int(math.Ceil(days)), "Day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// Generate renders the fixed one-page offer letter as PDF.
func (g *Generator) Generate(data TemplateData) ([]byte, error) {
	if data.Company == "" {
		data.Company = g.company
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Offer of Employment - "+data.Name, true)
	pdf.SetAuthor(data.Company, true)
	pdf.SetCreationDate(g.clock())
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(data.Company))
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr(data.Date))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Offer of Employment")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, paragraph := range letterBody(data) {
		pdf.MultiCell(0, 6, tr(paragraph), "", "L", false)
		pdf.Ln(3)
	}
	pdf.Ln(8)
	pdf.MultiCell(0, 6, tr("Yours sincerely,\n\n\n______________________\nHiring Team\n"+data.Company), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render offer letter: %w", err)
	}
	return buf.Bytes(), nil
}

func letterBody(data TemplateData) []string {
	return []string{
		fmt.Sprintf("Dear %s,", data.Name),
		fmt.Sprintf("We are pleased to offer you the position of %s at %s. This offer follows a careful review of your application and the documents you provided.", data.Role, data.Company),
		fmt.Sprintf("Duration of engagement: %s.", data.Duration),
		"Your exact start date, working hours and reporting line will be confirmed by the hiring team. This offer is conditional on the accuracy of the information submitted during the application process and on your acceptance of the company policies that apply to your role.",
		"Please confirm your decision using the link in the email that accompanied this letter. We look forward to welcoming you.",
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
