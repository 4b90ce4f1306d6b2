package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hireflow/internal/common"
	"hireflow/internal/http/handlers"
	"hireflow/internal/http/metrics"
	httpmw "hireflow/internal/http/middleware"
	"hireflow/internal/http/response"
	"hireflow/internal/security"
)

type RouterDependencies struct {
	ApplicationHandler *handlers.ApplicationHandler
	WorkflowHandler    *handlers.WorkflowHandler
	PublicHandler      *handlers.PublicHandler
	AuthMiddleware     *httpmw.AuthMiddleware
	Limiter            httpmw.Limiter
	PublicRateLimit    int
	Metrics            *metrics.Collector
	Logger             *slog.Logger
	RequestTimeout     time.Duration
}

type Router struct {
	deps    RouterDependencies
	handler http.Handler
}

const (
	maxBodyBytes     = 1 << 20
	maxDocumentBytes = 5*(10<<20) + maxBodyBytes
	maxLetterBytes   = 8<<20 + maxBodyBytes
)

func NewRouter(deps RouterDependencies) http.Handler {
	r := &Router{deps: deps}
	r.handler = httpmw.Chain(r.baseHandler(),
		httpmw.RequestID,
		httpmw.Logging(deps.Logger),
		httpmw.BodyLimit(bodyLimitFor),
		httpmw.Recover(deps.Logger),
		httpmw.Metrics(deps.Metrics),
		httpmw.Timeout(r.timeoutFor),
	)
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

func bodyLimitFor(req *http.Request) int64 {
	path := req.URL.Path
	switch {
	case strings.HasPrefix(path, "/documents/"):
		return maxDocumentBytes
	case strings.HasSuffix(path, "/offer-letter/upload"):
		return maxLetterBytes
	default:
		return maxBodyBytes
	}
}

const batchPath = "/applications/workflow-email/batch"

// timeoutFor exempts batch dispatch, which bounds each item itself.
func (r *Router) timeoutFor(req *http.Request) time.Duration {
	if req.URL.Path == batchPath {
		return 0
	}
	return r.deps.RequestTimeout
}

func (r *Router) baseHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path

		switch {
		case req.Method == http.MethodGet && path == "/health":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		case req.Method == http.MethodGet && path == "/metrics":
			metrics.NewHandler(r.deps.Metrics).ServeHTTP(w, req)
			return
		}

		if public, ok := r.publicRoute(req); ok {
			r.limited(public).ServeHTTP(w, req)
			return
		}

		if path == "/applications" || strings.HasPrefix(path, "/applications/") {
			protected := r.deps.AuthMiddleware.Authenticate(http.HandlerFunc(r.handleProtected))
			protected.ServeHTTP(w, req)
			return
		}

		http.NotFound(w, req)
	})
}

// publicRoute matches the unauthenticated token paths.
func (r *Router) publicRoute(req *http.Request) (http.Handler, bool) {
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	h := r.deps.PublicHandler
	get := req.Method == http.MethodGet
	switch {
	case get && len(parts) == 3 && parts[0] == "respond":
		return http.HandlerFunc(h.RespondShortlist), true
	case len(parts) == 2 && parts[0] == "documents" && get:
		return http.HandlerFunc(h.DocumentsPage), true
	case len(parts) == 2 && parts[0] == "documents" && req.Method == http.MethodPost:
		return http.HandlerFunc(h.SubmitDocuments), true
	case get && parts[0] == "offer-letter" && (len(parts) == 2 || (len(parts) == 3 && parts[2] == "download")):
		return http.HandlerFunc(h.OfferLetter), true
	case get && len(parts) == 2 && parts[0] == "offer":
		return http.HandlerFunc(h.OfferPage), true
	case get && len(parts) == 3 && parts[0] == "offer":
		return http.HandlerFunc(h.RespondOffer), true
	}
	return nil, false
}

func (r *Router) limited(next http.Handler) http.Handler {
	key := func(req *http.Request) string {
		return "public:" + httpmw.ClientIP(req) + ":" + segmentAt(req.URL.Path, 1)
	}
	onLimited := func(w http.ResponseWriter, _ *http.Request) {
		response.FailurePage(w, common.NewError(common.CodeRateLimited, "rate limit exceeded", nil))
	}
	rule := httpmw.Rule{Key: key, Limit: r.deps.PublicRateLimit, Window: time.Minute, Reject: onLimited}
	return httpmw.RateLimit(r.deps.Limiter, rule)(next)
}

func (r *Router) handleProtected(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	parts := strings.Split(strings.Trim(path, "/"), "/")
	view := httpmw.RequireCapability(security.CapabilityView)
	manage := httpmw.RequireCapability(security.CapabilityManage)
	apps := r.deps.ApplicationHandler
	workflow := r.deps.WorkflowHandler

	switch {
	case req.Method == http.MethodGet && path == "/applications":
		view(http.HandlerFunc(apps.List)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && path == batchPath:
		manage(http.HandlerFunc(workflow.DispatchBatch)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodGet && len(parts) == 2:
		view(http.HandlerFunc(apps.Get)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPatch && len(parts) == 2:
		manage(http.HandlerFunc(apps.Update)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodDelete && len(parts) == 2:
		manage(http.HandlerFunc(apps.Delete)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/offer-letter/upload") && len(parts) == 4:
		manage(http.HandlerFunc(apps.UploadOfferLetter)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/offer-letter/generate") && len(parts) == 4:
		manage(http.HandlerFunc(apps.GenerateOfferLetter)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/workflow-email") && len(parts) == 3:
		manage(http.HandlerFunc(workflow.Dispatch)).ServeHTTP(w, req)
		return
	case req.Method == http.MethodPost && strings.HasSuffix(path, "/email") && len(parts) == 3:
		manage(http.HandlerFunc(workflow.SendEmail)).ServeHTTP(w, req)
		return
	}

	http.NotFound(w, req)
}

func segmentAt(path string, idx int) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if idx >= len(parts) {
		return ""
	}
	return parts[idx]
}
