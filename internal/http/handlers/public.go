package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"hireflow/internal/app"
	"hireflow/internal/common"
	"hireflow/internal/domain/application"
	"hireflow/internal/http/metrics"
	"hireflow/internal/http/response"
	"hireflow/internal/storage"
)

const (
	displayDate      = "January 2, 2006"
	multipartMemory  = 32 << 20
	documentAccepted = ".pdf,.doc,.docx,.jpg,.jpeg,.png"
)

// PublicHandler serves the token-gated candidate pages.
type PublicHandler struct {
	responses *app.ResponseService
	company   string
	metrics   *metrics.Collector
	logger    *slog.Logger
}

func NewPublicHandler(responses *app.ResponseService, company string, collector *metrics.Collector, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{responses: responses, company: company, metrics: collector, logger: logger}
}

// RespondShortlist handles GET /respond/{token}/{accept|decline}.
func (h *PublicHandler) RespondShortlist(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.responses.RespondShortlist(r.Context(), segment(r, 1), segment(r, 2), r.URL.Query().Get("message"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if outcome.AlreadyResponded {
		response.Page(w, http.StatusOK, alreadyRespondedPage(outcome, "invitation"))
		return
	}
	h.metrics.IncResponses()
	if outcome.Decision == application.DecisionAccepted {
		response.Page(w, http.StatusOK, response.PageData{
			Title:   "Thank you",
			Heading: "Thank you for confirming",
			Message: fmt.Sprintf("We are glad you want to continue with your application for %s. We will contact you shortly about the documents we need.", jobTitle(outcome.Application)),
		})
		return
	}
	response.Page(w, http.StatusOK, response.PageData{
		Title:   "Response recorded",
		Heading: "Your response has been recorded",
		Message: "Thank you for letting us know. We wish you all the best.",
	})
}

// DocumentsPage handles GET /documents/{token}.
func (h *PublicHandler) DocumentsPage(w http.ResponseWriter, r *http.Request) {
	item, err := h.responses.DocumentUploadPage(r.Context(), segment(r, 1))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := uploadPage(r.URL.Path, item)
	if at := item.DocumentRequest.CompletedAt; at != nil {
		data.Details = append(data.Details, "Documents were received on "+at.Format(displayDate)+". You can upload more files if needed.")
	}
	response.Page(w, http.StatusOK, data)
}

// SubmitDocuments handles POST /documents/{token}.
func (h *PublicHandler) SubmitDocuments(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, common.NewValidationError("upload too large", map[string]string{"files": "the upload exceeds the allowed size"}))
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			h.fail(w, r, common.NewValidationError("invalid upload", map[string]string{"files": "the upload could not be read"}))
			return
		}
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	var headers []*multipart.FileHeader
	var labels []string
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["files"]
		labels = r.MultipartForm.Value["labels"]
	}
	if len(headers) > app.MaxDocumentFiles {
		h.fail(w, r, common.NewValidationError("too many files", map[string]string{"files": "at most 5 files may be uploaded"}))
		return
	}
	uploads := make([]app.Upload, 0, len(headers))
	for i, header := range headers {
		file, err := header.Open()
		if err != nil {
			h.fail(w, r, common.NewValidationError("invalid upload", map[string]string{"files": "a file could not be read"}))
			return
		}
		defer file.Close()
		upload := app.Upload{Filename: header.Filename, Content: file}
		if i < len(labels) {
			upload.Label = labels[i]
		}
		uploads = append(uploads, upload)
	}

	outcome, err := h.responses.SubmitDocuments(r.Context(), segment(r, 1), uploads)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if outcome.Saved == 0 {
		data := uploadPage(r.URL.Path, outcome.Application)
		data.Heading = "No files were selected"
		data.Message = "Please choose at least one file to upload."
		response.Page(w, http.StatusOK, data)
		return
	}
	h.metrics.IncDocumentUploads(outcome.Saved)
	response.Page(w, http.StatusOK, response.PageData{
		Title:   "Documents received",
		Heading: "Thank you, your documents were received",
		Message: fmt.Sprintf("We received %d file(s) for your %s application.", outcome.Saved, jobTitle(outcome.Application)),
	})
}

// OfferLetter handles GET /offer-letter/{token} and /offer-letter/{token}/download.
func (h *PublicHandler) OfferLetter(w http.ResponseWriter, r *http.Request) {
	file, info, letter, err := h.responses.OpenOfferLetter(r.Context(), segment(r, 1))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer file.Close()
	disposition := "inline"
	if segment(r, 2) == "download" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, letter.Filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, letter.Filename, info.ModTime(), file)
}

// OfferPage handles GET /offer/{token}.
func (h *PublicHandler) OfferPage(w http.ResponseWriter, r *http.Request) {
	item, err := h.responses.OfferPage(r.Context(), segment(r, 1))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token := segment(r, 1)
	data := response.PageData{
		Title:   "Your offer",
		Heading: fmt.Sprintf("Your offer for %s", jobTitle(item)),
		Message: fmt.Sprintf("%s is pleased to offer you this position.", h.company),
	}
	if item.Offer.Letter != nil {
		data.Links = append(data.Links, response.Link{Label: "View offer letter", URL: "/offer-letter/" + token})
	}
	if item.Offer.State() == application.StateSent {
		data.Links = append(data.Links,
			response.Link{Label: "Accept offer", URL: "/offer/" + token + "/accept"},
			response.Link{Label: "Decline offer", URL: "/offer/" + token + "/decline"},
		)
	} else if at := item.Offer.RespondedAt; at != nil {
		data.Details = append(data.Details, fmt.Sprintf("You %s this offer on %s.", item.Offer.ResponseStatus, at.Format(displayDate)))
	}
	response.Page(w, http.StatusOK, data)
}

// RespondOffer handles GET /offer/{token}/{accept|decline}.
func (h *PublicHandler) RespondOffer(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.responses.RespondOffer(r.Context(), segment(r, 1), segment(r, 2), r.URL.Query().Get("message"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if outcome.AlreadyResponded {
		response.Page(w, http.StatusOK, alreadyRespondedPage(outcome, "offer"))
		return
	}
	h.metrics.IncResponses()
	if outcome.Decision == application.DecisionAccepted {
		data := response.PageData{
			Title:   "Welcome aboard",
			Heading: "Congratulations!",
			Message: fmt.Sprintf("You have accepted the %s position at %s.", jobTitle(outcome.Application), h.company),
		}
		if start := outcome.Application.Offer.StartDate; start != nil {
			data.Details = append(data.Details, "Start date: "+start.Format(displayDate))
		}
		response.Page(w, http.StatusOK, data)
		return
	}
	response.Page(w, http.StatusOK, response.PageData{
		Title:   "Response recorded",
		Heading: "You have declined the offer",
		Message: "Thank you for letting us know. We wish you all the best.",
	})
}

func (h *PublicHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if common.CodeOf(err) == common.CodeInternal {
		h.logger.Error("public request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	}
	response.FailurePage(w, err)
}

func alreadyRespondedPage(outcome *app.ResponseOutcome, what string) response.PageData {
	message := "You have already responded to this " + what + "."
	if outcome.At != nil && outcome.Decision != "" {
		message = fmt.Sprintf("You already %s this %s on %s.", outcome.Decision, what, outcome.At.Format(displayDate))
	}
	return response.PageData{Title: "Already responded", Heading: "You have already responded", Message: message}
}

func uploadPage(action string, item *application.Application) response.PageData {
	return response.PageData{
		Title:   "Upload documents",
		Heading: "Upload your documents",
		Message: fmt.Sprintf("Please upload the documents requested for your %s application.", jobTitle(item)),
		Form: &response.UploadForm{
			Action:    action,
			MaxFiles:  app.MaxDocumentFiles,
			MaxSizeMB: int(storage.CandidateDocuments.MaxBytes >> 20),
			Accept:    documentAccepted,
		},
	}
}

func jobTitle(item *application.Application) string {
	if item == nil || strings.TrimSpace(item.JobTitle) == "" {
		return "the advertised position"
	}
	return item.JobTitle
}
