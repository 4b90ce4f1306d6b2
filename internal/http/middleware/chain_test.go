package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTimeoutPerRoute(t *testing.T) {
	timeoutFor := func(r *http.Request) time.Duration {
		if r.URL.Path == "/long" {
			return 0
		}
		return time.Second
	}
	var hasDeadline bool
	h := Timeout(timeoutFor)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/short", nil))
	if !hasDeadline {
		t.Fatalf("bounded route must carry a deadline")
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/long", nil))
	if hasDeadline {
		t.Fatalf("exempt route must not carry a deadline")
	}
}

func TestStatusRecorderUnwraps(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &statusRecorder{ResponseWriter: rec, status: http.StatusOK}
	if wrapped.Unwrap() != rec {
		t.Fatalf("recorder must expose the underlying writer")
	}
}
