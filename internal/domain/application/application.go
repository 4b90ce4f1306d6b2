package application

import (
	"strings"
	"time"

	"hireflow/internal/common"
)

type Status string

const (
	StatusNew         Status = "new"
	StatusInReview    Status = "in_review"
	StatusShortlisted Status = "shortlisted"
	StatusInterview   Status = "interview"
	StatusOffered     Status = "offered"
	StatusHired       Status = "hired"
	StatusRejected    Status = "rejected"
	StatusWithdrawn   Status = "withdrawn"
)

var Statuses = []Status{StatusNew, StatusInReview, StatusShortlisted, StatusInterview, StatusOffered, StatusHired, StatusRejected, StatusWithdrawn}

// progression ranks the forward statuses; terminal statuses are absent.
var progression = map[Status]int{
	StatusNew:         0,
	StatusInReview:    1,
	StatusShortlisted: 2,
	StatusInterview:   3,
	StatusOffered:     4,
	StatusHired:       5,
}

func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "review" {
		normalized = StatusInReview
	}
	for _, status := range Statuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

type OnboardingStatus string

const (
	OnboardingNone               OnboardingStatus = ""
	OnboardingShortlisted        OnboardingStatus = "shortlisted"
	OnboardingDocumentsRequested OnboardingStatus = "documents-requested"
	OnboardingOfferSent          OnboardingStatus = "offer-sent"
	OnboardingHired              OnboardingStatus = "hired"
	OnboardingDeclined           OnboardingStatus = "declined"
)

type ScreeningAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Document is one uploaded file attached to an application.
type Document struct {
	Filename    string    `json:"filename"`
	Label       string    `json:"label,omitempty"`
	URL         string    `json:"url"`
	UploadedAt  time.Time `json:"uploaded_at"`
	ByCandidate bool      `json:"by_candidate"`
}

type TimelineEntry struct {
	Status Status    `json:"status"`
	Note   string    `json:"note,omitempty"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

type EmailLog struct {
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	To      string    `json:"to"`
	From    string    `json:"from"`
	SentBy  string    `json:"sent_by"`
	At      time.Time `json:"at"`
}

type Application struct {
	ID               common.UUID       `json:"id"`
	JobID            common.UUID       `json:"job_id"`
	JobTitle         string            `json:"job_title"`
	EmploymentType   string            `json:"employment_type,omitempty"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone,omitempty"`
	CoverLetter      string            `json:"cover_letter,omitempty"`
	ResumeURL        string            `json:"resume_url,omitempty"`
	Status           Status            `json:"status"`
	OnboardingStatus OnboardingStatus  `json:"onboarding_status"`
	ScreeningAnswers []ScreeningAnswer `json:"screening_answers"`
	Tags             []string          `json:"tags"`
	Rating           int               `json:"rating"`
	Notes            string            `json:"notes,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Shortlist        Stage             `json:"shortlist"`
	DocumentRequest  DocumentStage     `json:"document_request"`
	Offer            OfferStage        `json:"offer"`
	Attachments      []Document        `json:"attachments"`
	Timeline         []TimelineEntry   `json:"timeline"`
	EmailLogs        []EmailLog        `json:"email_logs"`
	ProcessedBy      *common.UUID      `json:"processed_by,omitempty"`
	Version          int64             `json:"version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (a Application) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// SetStatus records a status change on the timeline. Unchanged statuses are
// still logged when a note is supplied.
func (a *Application) SetStatus(status Status, note, actor string, at time.Time) {
	a.Status = status
	a.Timeline = append(a.Timeline, TimelineEntry{Status: status, Note: note, Actor: actor, At: at})
}

// AdvanceStatus moves the application forward to status unless it is already
// at or past it, or in a terminal status. The timeline entry is written either way.
func (a *Application) AdvanceStatus(status Status, note, actor string, at time.Time) {
	next := a.Status
	current, forward := progression[a.Status]
	if target, ok := progression[status]; ok && forward && current < target {
		next = status
	}
	a.SetStatus(next, note, actor, at)
}

func (a *Application) AppendEmailLog(entry EmailLog) {
	a.EmailLogs = append(a.EmailLogs, entry)
}

func (a Application) IsInternship() bool {
	kind := strings.ToLower(a.EmploymentType + " " + a.JobTitle)
	return strings.Contains(kind, "intern")
}
