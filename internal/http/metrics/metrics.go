package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Collector keeps process-wide counters exposed at /metrics.
type Collector struct {
	requests       uint64
	errors         uint64
	emailsSent     uint64
	emailsFailed   uint64
	responses      uint64
	documentUpload uint64
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) IncRequests() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.requests, 1)
}

func (c *Collector) IncErrors() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.errors, 1)
}

func (c *Collector) IncEmailsSent(n int) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.emailsSent, uint64(n))
}

func (c *Collector) IncEmailsFailed(n int) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.emailsFailed, uint64(n))
}

func (c *Collector) IncResponses() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.responses, 1)
}

func (c *Collector) IncDocumentUploads(n int) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.documentUpload, uint64(n))
}

type Snapshot struct {
	Requests        uint64
	Errors          uint64
	EmailsSent      uint64
	EmailsFailed    uint64
	Responses       uint64
	DocumentUploads uint64
}

func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Requests:        atomic.LoadUint64(&c.requests),
		Errors:          atomic.LoadUint64(&c.errors),
		EmailsSent:      atomic.LoadUint64(&c.emailsSent),
		EmailsFailed:    atomic.LoadUint64(&c.emailsFailed),
		Responses:       atomic.LoadUint64(&c.responses),
		DocumentUploads: atomic.LoadUint64(&c.documentUpload),
	}
}

type Handler struct {
	collector *Collector
}

func NewHandler(collector *Collector) *Handler {
	return &Handler{collector: collector}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	var snap Snapshot
	if h.collector != nil {
		snap = h.collector.Snapshot()
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	counter(w, "hireflow_requests_total", "Total number of HTTP requests.", snap.Requests)
	counter(w, "hireflow_errors_total", "Total number of 5xx HTTP responses.", snap.Errors)
	counter(w, "hireflow_workflow_emails_sent_total", "Workflow emails sent.", snap.EmailsSent)
	counter(w, "hireflow_workflow_emails_failed_total", "Workflow email dispatches that failed.", snap.EmailsFailed)
	counter(w, "hireflow_candidate_responses_total", "Candidate accept or decline responses recorded.", snap.Responses)
	counter(w, "hireflow_document_uploads_total", "Candidate documents stored.", snap.DocumentUploads)
}

func counter(w http.ResponseWriter, name, help string, value uint64) {
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s counter\n", name)
	_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
}
