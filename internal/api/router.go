package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bluecheck/inquiries/internal/inquiry"
)

// NewRouter creates a chi router with all API routes; it is mounted under /api.
// sseHandler, if non-nil, is served at GET /events.
func NewRouter(svc *inquiry.Service, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(CORS)

	r.Get("/", h.Root)

	// Liveness pings.
	r.Post("/status", h.CreateStatusCheck)
	r.Get("/status", h.ListStatusChecks)

	// Contact inquiries.
	r.Route("/contact", func(r chi.Router) {
		r.Post("/inquiry", h.CreateInquiry)
		r.Get("/inquiries", h.ListInquiries)
		r.Get("/inquiry/{id}", h.GetInquiry)
		r.Patch("/inquiry/{id}/status", h.UpdateInquiryStatus)
		r.Get("/stats", h.Stats)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
