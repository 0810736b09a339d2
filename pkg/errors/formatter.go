package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var tagMessages = map[string]string{
	"required":    "This field is required",
	"email":       "Invalid email format",
	"min":         "Value is too short or too small",
	"max":         "Value is too long or too large",
	"len":         "Value must be exact length",
	"numeric":     "Value must be numeric",
	"alpha":       "Value must contain only letters",
	"alphanum":    "Value must contain only letters and numbers",
	"url":         "Invalid URL format",
	"uri":         "Invalid URI format",
	"eqfield":     "Value must match the referenced field",
	"nefield":     "Value must not match the referenced field",
	"gt":          "Value must be greater than specified",
	"gte":         "Value must be greater than or equal to specified",
	"lt":          "Value must be less than specified",
	"lte":         "Value must be less than or equal to specified",
	"oneof":       "Value is not one of the allowed options",
	"excludesall": "Value contains characters that are not allowed",
}

// paramMessages are used instead of tagMessages when the rule carries a parameter.
var paramMessages = map[string]string{
	"min":   "Must be at least %s characters",
	"max":   "Must not exceed %s characters",
	"len":   "Must be exactly %s characters",
	"gt":    "Must be greater than %s",
	"gte":   "Must be greater than or equal to %s",
	"lt":    "Must be less than %s",
	"lte":   "Must be less than or equal to %s",
	"oneof": "Must be one of: %s",
}

func messageFor(fe validator.FieldError) string {
	if format, ok := paramMessages[fe.Tag()]; ok && fe.Param() != "" {
		return fmt.Sprintf(format, fe.Param())
	}
	if msg, ok := tagMessages[fe.Tag()]; ok {
		return msg
	}
	return "Invalid value"
}

// jsonFieldName resolves a struct field to its json name. Element suffixes such as
// "Roles[1]" are kept: "roles[1]".
func jsonFieldName(structType reflect.Type, fieldName string) string {
	if structType == nil {
		return fieldName
	}

	name, suffix := fieldName, ""
	if i := strings.IndexByte(fieldName, '['); i > 0 {
		name, suffix = fieldName[:i], fieldName[i:]
	}

	field, found := structType.FieldByName(name)
	if !found {
		return fieldName
	}
	tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if tag == "" || tag == "-" {
		return fieldName
	}
	return tag + suffix
}

// FormatValidationErrors turns binding errors into per-field messages named after the json
// keys of model. It returns nil for errors that are not about individual fields.
func FormatValidationErrors(err error, model any) []ValidationErrorResponse {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationErrorResponse{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
		}}
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	var structType reflect.Type
	if model != nil {
		structType = reflect.TypeOf(model)
		if structType.Kind() == reflect.Pointer {
			structType = structType.Elem()
		}
	}

	out := make([]ValidationErrorResponse, 0, len(validationErrors))
	for _, fe := range validationErrors {
		out = append(out, ValidationErrorResponse{
			Field:   jsonFieldName(structType, fe.Field()),
			Message: messageFor(fe),
		})
	}
	return out
}
