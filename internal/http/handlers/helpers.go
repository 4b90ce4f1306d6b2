package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"hireflow/internal/app"
	"hireflow/internal/common"
	"hireflow/internal/http/middleware"
)

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return common.NewValidationError("request body too large", nil)
		case errors.Is(err, io.EOF):
			return common.NewValidationError("request body is required", nil)
		default:
			return common.NewValidationError("invalid json", map[string]string{"body": err.Error()})
		}
	}
	return nil
}

// segment returns the idx-th non-empty path segment.
func segment(r *http.Request, idx int) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return parts[idx]
}

func actorFrom(r *http.Request) app.Actor {
	staff, ok := middleware.StaffFromContext(r.Context())
	if !ok {
		return app.Actor{}
	}
	name := staff.Name
	if name == "" {
		name = staff.Email
	}
	return app.Actor{ID: staff.ID, Name: name}
}
