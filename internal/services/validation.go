package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a validator with the "iban" tag registered
func NewValidationHelper() *ValidationHelper {
	v := validator.New()
	_ = v.RegisterValidation("iban", validateIBAN)
	return &ValidationHelper{
		validator: v,
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// validateIBAN checks the IBAN after normalization: country code, check
// digits, 11 to 30 alphanumerics and the ISO 7064 mod-97 checksum
func validateIBAN(fl validator.FieldLevel) bool {
	return IsIBAN(fl.Field().String())
}

// IsIBAN reports whether s is a valid IBAN once spaces are removed
func IsIBAN(s string) bool {
	iban := NormalizeIBAN(s)
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	for i, r := range iban {
		switch {
		case i < 2:
			if r < 'A' || r > 'Z' {
				return false
			}
		case i < 4:
			if r < '0' || r > '9' {
				return false
			}
		default:
			if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				return false
			}
		}
	}
	return ibanChecksum(iban) == 1
}

// ibanChecksum moves the first four characters to the end, maps letters to
// 10..35 and returns the number mod 97
func ibanChecksum(iban string) int {
	rearranged := iban[4:] + iban[:4]
	rem := 0
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			rem = (rem*100 + int(r-'A') + 10) % 97
			continue
		}
		rem = (rem*10 + int(r-'0')) % 97
	}
	return rem
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}
	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}
