package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bluecheck/inquiries/internal/apperr"
	"github.com/bluecheck/inquiries/internal/inquiry"
	"github.com/bluecheck/inquiries/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *inquiry.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *inquiry.Service) *Handler {
	return &Handler{svc: svc}
}

// Root handles GET /api/.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "BlueCheck Inspections API is running"})
}

// CreateStatusCheck handles POST /api/status.
//
//	@Summary		Record a liveness ping
//	@Tags			status
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StatusCheckRequest	true	"Client label"
//	@Success		200		{object}	models.StatusCheck
//	@Failure		422		{object}	errResponse
//	@Router			/status [post]
func (h *Handler) CreateStatusCheck(w http.ResponseWriter, r *http.Request) {
	var req StatusCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	if req.ClientName == nil {
		writeError(w, "record status check", apperr.NewValidationError("client_name", "field required"))
		return
	}
	sc, err := h.svc.RecordPing(r.Context(), *req.ClientName)
	if err != nil {
		writeError(w, "record status check", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// ListStatusChecks handles GET /api/status.
func (h *Handler) ListStatusChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := h.svc.ListPings(r.Context())
	if err != nil {
		writeError(w, "list status checks", err)
		return
	}
	writeJSON(w, http.StatusOK, checks)
}

// CreateInquiry handles POST /api/contact/inquiry.
//
//	@Summary		Submit a contact inquiry
//	@Tags			contact
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InquiryCreateRequest	true	"Contact form"
//	@Success		200		{object}	InquiryCreateResponse
//	@Failure		422		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Router			/contact/inquiry [post]
func (h *Handler) CreateInquiry(w http.ResponseWriter, r *http.Request) {
	var req InquiryCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadJSON(w, err)
		return
	}
	res, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create inquiry", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListInquiries handles GET /api/contact/inquiries.
//
//	@Summary		List inquiries newest first
//	@Tags			contact
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(new, contacted, scheduled, completed, cancelled)
//	@Param			limit	query		int		false	"Max results (default 50)"
//	@Success		200		{array}		models.Inquiry
//	@Failure		422		{object}	errResponse
//	@Router			/contact/inquiries [get]
func (h *Handler) ListInquiries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status *models.Status
	if raw := q.Get("status"); raw != "" {
		s, ok := models.ParseStatus(raw)
		if !ok {
			writeError(w, "list inquiries", apperr.NewValidationError("status", "must be one of: "+models.StatusList()))
			return
		}
		status = &s
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, "list inquiries", apperr.NewValidationError("limit", "must be an integer"))
			return
		}
		limit = n
	}

	items, err := h.svc.List(r.Context(), status, limit)
	if err != nil {
		writeError(w, "list inquiries", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetInquiry handles GET /api/contact/inquiry/{id}. Responses carry an ETag
// so dashboards can poll with If-None-Match.
func (h *Handler) GetInquiry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	inq, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get inquiry", err, slog.String("inquiry_id", id))
		return
	}
	writeJSONWithETag(w, r, inq)
}

// UpdateInquiryStatus handles PATCH /api/contact/inquiry/{id}/status.
// The status comes from the "status" query parameter or a JSON body.
//
//	@Summary		Change an inquiry's status
//	@Tags			contact
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Inquiry ID"
//	@Param			status	query		string				false	"New status"
//	@Param			body	body		StatusUpdateRequest	false	"New status"
//	@Success		200		{object}	inquiry.UpdateResult
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Router			/contact/inquiry/{id}/status [patch]
func (h *Handler) UpdateInquiryStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status := models.Status(strings.TrimSpace(r.URL.Query().Get("status")))
	if status == "" {
		var req StatusUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeBadJSON(w, err)
			return
		}
		status = models.Status(strings.TrimSpace(string(req.Status)))
	}
	if status == "" {
		writeError(w, "update inquiry status", apperr.NewValidationError("status", "cannot be blank"))
		return
	}

	res, err := h.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, "update inquiry status", err, slog.String("inquiry_id", id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Stats handles GET /api/contact/stats.
//
//	@Summary		Inquiry counts by status, type and recency
//	@Tags			contact
//	@Produce		json
//	@Success		200	{object}	models.Stats
//	@Router			/contact/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, "inquiry stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
