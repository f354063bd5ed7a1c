package apperr

import (
	"errors"
	"fmt"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func TestFromValidation_FieldErrors(t *testing.T) {
	in := struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}{}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Email, validation.Required),
	)
	got := FromValidation(err)

	var verr *ValidationError
	if !errors.As(got, &verr) {
		t.Fatalf("expected *ValidationError, got %T", got)
	}
	if verr.Fields["name"] == "" || verr.Fields["email"] == "" {
		t.Errorf("fields = %v", verr.Fields)
	}
	if verr.Error() != "validation failed: email: cannot be blank; name: cannot be blank" {
		t.Errorf("Error() = %q", verr.Error())
	}
}

func TestFromValidation_PassThrough(t *testing.T) {
	if FromValidation(nil) != nil {
		t.Error("nil should stay nil")
	}
	plain := fmt.Errorf("boom: %w", ErrNotFound)
	if got := FromValidation(plain); got != plain {
		t.Errorf("plain error changed: %v", got)
	}
}
