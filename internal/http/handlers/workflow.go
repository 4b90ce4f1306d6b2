package handlers

import (
	"net/http"
	"time"

	"hireflow/internal/app"
	"hireflow/internal/http/metrics"
	"hireflow/internal/http/response"
)

type WorkflowHandler struct {
	workflow *app.WorkflowService
	metrics  *metrics.Collector
}

func NewWorkflowHandler(workflow *app.WorkflowService, collector *metrics.Collector) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow, metrics: collector}
}

type dispatchRequest struct {
	Template          string   `json:"template"`
	ApplicationIDs    []string `json:"applicationIds,omitempty"`
	Note              string   `json:"note"`
	OfferLetterPath   string   `json:"offerLetterPath"`
	AutoGenerateOffer *bool    `json:"autoGenerateOffer"`
}

func (req dispatchRequest) options(r *http.Request) app.DispatchOptions {
	return app.DispatchOptions{
		Note:              req.Note,
		OfferLetterPath:   req.OfferLetterPath,
		AutoGenerateOffer: req.AutoGenerateOffer,
		Actor:             actorFrom(r),
	}
}

type batchResponse struct {
	Template string             `json:"template"`
	Sent     int                `json:"sent"`
	Failed   int                `json:"failed"`
	Results  []app.BatchOutcome `json:"results"`
}

type customEmailRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (h *WorkflowHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	result, err := h.workflow.Dispatch(r.Context(), segment(r, 1), req.Template, req.options(r))
	if err != nil {
		h.metrics.IncEmailsFailed(1)
		response.Error(w, err)
		return
	}
	h.metrics.IncEmailsSent(1)
	response.JSON(w, http.StatusOK, result)
}

func (h *WorkflowHandler) DispatchBatch(w http.ResponseWriter, r *http.Request) {
	// Up to MaxBatchSize sequential sends outlast the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	var req dispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	outcomes, err := h.workflow.DispatchBatch(r.Context(), req.ApplicationIDs, req.Template, req.options(r))
	if err != nil {
		response.Error(w, err)
		return
	}
	body := batchResponse{Template: req.Template, Results: outcomes}
	for _, outcome := range outcomes {
		if outcome.Duplicate {
			continue
		}
		if outcome.Status == app.BatchSent {
			body.Sent++
		} else {
			body.Failed++
		}
	}
	h.metrics.IncEmailsSent(body.Sent)
	h.metrics.IncEmailsFailed(body.Failed)
	response.JSON(w, http.StatusOK, body)
}

func (h *WorkflowHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req customEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	result, err := h.workflow.SendCustom(r.Context(), segment(r, 1), req.Subject, req.Message, actorFrom(r))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}
