package inquiry

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/bluecheck/inquiries/internal/models"
)

// CreateInput is a contact form submission. Values are stored as submitted.
type CreateInput struct {
	Name            string                `json:"name"`
	Email           string                `json:"email"`
	Phone           string                `json:"phone"`
	PropertyAddress string                `json:"property_address"`
	InspectionType  models.InspectionType `json:"inspection_type"`
	PreferredDate   *string               `json:"preferred_date"`
	Message         *string               `json:"message"`
}

// Validate checks field presence and bounds. Field keys in the returned
// validation.Errors are the JSON names.
func (in CreateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Phone, validation.Required, validation.RuneLength(8, 20)),
		validation.Field(&in.PropertyAddress, validation.Required, validation.RuneLength(5, 200)),
		validation.Field(&in.InspectionType, validation.Required, validation.In(inspectionTypeValues()...)),
		validation.Field(&in.Message, validation.RuneLength(0, 1000)),
	)
}

func inspectionTypeValues() []any {
	types := models.InspectionTypes()
	out := make([]any, len(types))
	for i, t := range types {
		out[i] = t
	}
	return out
}
