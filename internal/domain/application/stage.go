package application

import (
	"time"
)

// StageKind names one of the three token-gated stages.
type StageKind string

const (
	StageShortlist StageKind = "shortlist"
	StageDocuments StageKind = "document_request"
	StageOffer     StageKind = "offer"
)

type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionAccepted Decision = "accepted"
	DecisionDeclined Decision = "declined"
)

func ParseDecision(value string) (Decision, bool) {
	switch value {
	case "accept", "accepted":
		return DecisionAccepted, true
	case "decline", "declined":
		return DecisionDeclined, true
	default:
		return "", false
	}
}

// StageState is the tag of a stage: Idle, Sent or Responded.
type StageState int

const (
	StateIdle StageState = iota
	StateSent
	StateResponded
)

// Stage is a candidate-facing stage with a token and a single accept/decline
// response. Fields are only written through Send and Respond.
type Stage struct {
	Token            string     `json:"token,omitempty"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	ResponseStatus   Decision   `json:"response_status,omitempty"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
	CandidateMessage string     `json:"candidate_message,omitempty"`
}

func (s Stage) State() StageState {
	switch {
	case s.Token == "":
		return StateIdle
	case s.ResponseStatus == DecisionAccepted || s.ResponseStatus == DecisionDeclined:
		return StateResponded
	default:
		return StateSent
	}
}

// Send arms the stage with a fresh token, discarding any previous response.
func (s *Stage) Send(token string, at time.Time) {
	sentAt := at
	*s = Stage{Token: token, SentAt: &sentAt, ResponseStatus: DecisionPending}
}

// Respond resolves a pending stage. It reports false and leaves the stage
// untouched when the stage is not awaiting a response.
func (s *Stage) Respond(decision Decision, message string, at time.Time) bool {
	if s.State() != StateSent {
		return false
	}
	respondedAt := at
	s.ResponseStatus = decision
	s.RespondedAt = &respondedAt
	s.CandidateMessage = message
	return true
}

type DocumentStage struct {
	Token       string     `json:"token,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (s DocumentStage) State() StageState {
	switch {
	case s.Token == "":
		return StateIdle
	case s.CompletedAt != nil:
		return StateResponded
	default:
		return StateSent
	}
}

func (s *DocumentStage) Send(token string, at time.Time) {
	sentAt := at
	*s = DocumentStage{Token: token, SentAt: &sentAt}
}

// Complete stamps the stage; resubmissions overwrite the timestamp.
func (s *DocumentStage) Complete(at time.Time) {
	completedAt := at
	s.CompletedAt = &completedAt
}

type Letter struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
}

type OfferStage struct {
	Stage
	UserID    string     `json:"user,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Letter    *Letter    `json:"letter,omitempty"`
}

// SendOffer arms the offer stage while keeping the linked account and dates.
func (o *OfferStage) SendOffer(token string, letter Letter, at time.Time) {
	o.Stage.Send(token, at)
	o.Letter = &letter
}

// TokenFor returns the current token of the given stage.
func (a Application) TokenFor(kind StageKind) string {
	switch kind {
	case StageShortlist:
		return a.Shortlist.Token
	case StageDocuments:
		return a.DocumentRequest.Token
	case StageOffer:
		return a.Offer.Token
	default:
		return ""
	}
}
