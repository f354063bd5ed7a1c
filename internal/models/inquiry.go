// Package models holds the inquiry records shared by the store, service and transport layers.
package models

import (
	"strings"
	"time"
)

// InspectionType is the kind of inspection a customer asks for.
type InspectionType string

const (
	InspectionPrePurchase InspectionType = "pre-purchase"
	InspectionNewHome     InspectionType = "new-home"
)

// InspectionTypes returns every accepted inspection type in display order.
func InspectionTypes() []InspectionType {
	return []InspectionType{InspectionPrePurchase, InspectionNewHome}
}

// Valid reports whether t is one of the accepted inspection types.
func (t InspectionType) Valid() bool {
	for _, v := range InspectionTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// Label is the human-readable name used in emails.
func (t InspectionType) Label() string {
	switch t {
	case InspectionPrePurchase:
		return "Pre-Purchase Inspection"
	case InspectionNewHome:
		return "New Home Inspection"
	default:
		return string(t)
	}
}

// Status tracks where an inquiry is in the follow-up workflow.
// Any status may move to any other status.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses returns every status in workflow order.
func Statuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusScheduled, StatusCompleted, StatusCancelled}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses() {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStatus converts raw input into a Status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	return s, s.Valid()
}

// StatusList renders the accepted statuses for error messages.
func StatusList() string {
	parts := make([]string, 0, len(Statuses()))
	for _, s := range Statuses() {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ", ")
}

// Inquiry is a single contact form submission.
type Inquiry struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	Phone           string         `json:"phone"`
	PropertyAddress string         `json:"property_address"`
	InspectionType  InspectionType `json:"inspection_type"`
	PreferredDate   *string        `json:"preferred_date"`
	Message         *string        `json:"message"`
	Status          Status         `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// StatusCheck is a liveness ping recorded by a client.
type StatusCheck struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stats is the aggregate view over all inquiries.
type Stats struct {
	TotalInquiries          int64                    `json:"total_inquiries"`
	StatusBreakdown         map[Status]int64         `json:"status_breakdown"`
	InspectionTypeBreakdown map[InspectionType]int64 `json:"inspection_type_breakdown"`
	RecentInquiries7Days    int64                    `json:"recent_inquiries_7_days"`
}
