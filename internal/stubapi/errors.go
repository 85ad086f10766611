package stubapi

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// fieldErrors renders validation failures the way the HRM backend does: one list of
// messages per field.
func fieldErrors(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]any{"detail": "Invalid input."}
	}
	out := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "This field is required."
		case "email":
			msg = "Enter a valid email address."
		case "min":
			msg = "Ensure this field has at least " + fe.Param() + " characters."
		case "max":
			msg = "Ensure this field has no more than " + fe.Param() + " characters."
		case "oneof":
			msg = "\"" + fe.Value().(string) + "\" is not a valid choice."
		default:
			msg = "Invalid value."
		}
		out[field] = []string{msg}
	}
	return out
}
