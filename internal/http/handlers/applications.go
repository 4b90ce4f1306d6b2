package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"hireflow/internal/app"
	"hireflow/internal/common"
	"hireflow/internal/domain/application"
	"hireflow/internal/http/response"
	"hireflow/internal/storage"
)

type ApplicationHandler struct {
	applications *app.ApplicationService
}

func NewApplicationHandler(applications *app.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := listQueryFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	result, err := h.applications.List(r.Context(), query)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.applications.Get(r.Context(), segment(r, 1))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch app.Patch
	if err := decodeJSON(r, &patch); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.applications.Update(r.Context(), segment(r, 1), patch, actorFrom(r))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, updated)
}

func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.applications.Delete(r.Context(), segment(r, 1)); err != nil {
		response.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ApplicationHandler) UploadOfferLetter(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(storage.StaffOfferLetters.MaxBytes); err != nil {
		response.Error(w, common.NewValidationError("invalid upload", map[string]string{"file": "multipart form with a file is required"}))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, common.NewValidationError("invalid upload", map[string]string{"file": "file is required"}))
		return
	}
	defer file.Close()
	letter, err := h.applications.UploadOfferLetter(r.Context(), segment(r, 1), header.Filename, file)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, letter)
}

func (h *ApplicationHandler) GenerateOfferLetter(w http.ResponseWriter, r *http.Request) {
	var req app.GenerateLetterRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			response.Error(w, err)
			return
		}
	}
	letter, err := h.applications.GenerateOfferLetter(r.Context(), segment(r, 1), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, letter)
}

func listQueryFrom(r *http.Request) (app.ListQuery, error) {
	values := r.URL.Query()
	fields := map[string]string{}
	var q app.ListQuery

	if v := strings.TrimSpace(values.Get("job_id")); v != "" {
		id, err := common.ParseUUID(v)
		if err != nil {
			fields["job_id"] = "invalid uuid"
		}
		q.Filter.JobID = id
	}
	if v := strings.TrimSpace(values.Get("status")); v != "" {
		status, ok := application.ParseStatus(v)
		if !ok {
			fields["status"] = "unknown status"
		}
		q.Filter.Status = status
	}
	q.Filter.Search = strings.TrimSpace(values.Get("search"))
	for key, dst := range map[string]**time.Time{"from": &q.Filter.From, "to": &q.Filter.To} {
		v := strings.TrimSpace(values.Get(key))
		if v == "" {
			continue
		}
		t, err := parseDate(v, key == "to")
		if err != nil {
			fields[key] = "expected RFC3339 or YYYY-MM-DD"
			continue
		}
		*dst = &t
	}
	for key, dst := range map[string]*int{"page": &q.Page, "limit": &q.Limit} {
		v := strings.TrimSpace(values.Get(key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fields[key] = key + " must be a positive integer"
			continue
		}
		*dst = n
	}
	if q.Limit > app.MaxPageSize {
		fields["limit"] = "limit must be at most " + strconv.Itoa(app.MaxPageSize)
	}
	if len(fields) > 0 {
		return app.ListQuery{}, common.NewValidationError("invalid query", fields)
	}
	return q, nil
}

// parseDate accepts RFC3339 or a bare date. A bare "to" date covers the whole day.
func parseDate(value string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
