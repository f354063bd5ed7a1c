package api

import (
	"github.com/bluecheck/inquiries/internal/inquiry"
	"github.com/bluecheck/inquiries/internal/models"
)

// InquiryCreateRequest is the contact form body.
type InquiryCreateRequest = inquiry.CreateInput

// InquiryCreateResponse is returned after a successful submission.
type InquiryCreateResponse = inquiry.CreateResult

// StatusCheckRequest is the body of POST /api/status. Any string is accepted;
// only a missing client_name is rejected.
type StatusCheckRequest struct {
	ClientName *string `json:"client_name" example:"uptime-robot"`
}

// StatusUpdateRequest is the optional body of PATCH /api/contact/inquiry/{id}/status.
type StatusUpdateRequest struct {
	Status models.Status `json:"status" example:"scheduled"`
}

// MessageResponse carries a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message" example:"BlueCheck Inspections API is running"`
}
