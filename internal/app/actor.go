package app

import (
	"time"

	"hireflow/internal/common"
)

// Actor identifies who triggered a change. Candidate actions use CandidateActor.
type Actor struct {
	ID   common.UUID
	Name string
}

var CandidateActor = Actor{Name: "candidate"}

func (a Actor) Label() string {
	switch {
	case a.Name != "":
		return a.Name
	case !a.ID.IsZero():
		return a.ID.String()
	default:
		return "system"
	}
}

func (a Actor) staffID() *common.UUID {
	if a.ID.IsZero() {
		return nil
	}
	id := a.ID
	return &id
}

type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

func parseID(value string) (common.UUID, error) {
	id, err := common.ParseUUID(value)
	if err != nil {
		return "", common.NewValidationError("invalid application id", map[string]string{"id": "must be a valid uuid"})
	}
	return id, nil
}
