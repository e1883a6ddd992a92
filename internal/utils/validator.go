// internal/utils/validator.go
package utils

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/javajoker/scentdb-backend/internal/normalize"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterValidation("not_blank", validateNotBlank)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// jsonFieldName reports fields by their wire name so errors read "notes[1].position".
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// validateNotBlank rejects values whose normalized key is empty; such values
// would otherwise collapse into a single nameless entity.
func validateNotBlank(fl validator.FieldLevel) bool {
	return !normalize.IsEmptyKey(fl.Field().String())
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   FieldPath(e),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

// FieldPath strips the root struct name from the error namespace.
func FieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func getValidationMessage(e validator.FieldError) string {
	field := FieldPath(e)
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "not_blank":
		return field + " must not be blank"
	case "url":
		return field + " must be an absolute URL"
	case "oneof":
		return field + " must be one of: " + e.Param()
	case "min":
		return field + " must be at least " + e.Param()
	case "max":
		return field + " must be at most " + e.Param()
	default:
		return field + " is invalid"
	}
}
