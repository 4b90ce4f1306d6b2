package response

import (
	"encoding/json"
	"net/http"

	"hireflow/internal/common"
)

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes {message, errors?}. Wrapped causes never reach the client.
func Error(w http.ResponseWriter, err error) {
	body := errorBody{Message: common.MessageOf(err)}
	if typed, ok := common.As(err); ok {
		body.Errors = typed.Fields
	}
	JSON(w, StatusOf(common.CodeOf(err)), body)
}

func StatusOf(code common.Code) int {
	switch code {
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeConflict, common.CodeAlreadyResponded:
		return http.StatusConflict
	case common.CodePreconditionFailed:
		return http.StatusPreconditionFailed
	case common.CodeRateLimited:
		return http.StatusTooManyRequests
	case common.CodeTransportUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
