package directory

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}[0-9]$`)
	bloodGroups  = map[string]bool{
		"A+": true, "A-": true, "B+": true, "B-": true,
		"AB+": true, "AB-": true, "O+": true, "O-": true,
	}
)

// NewValidator returns a validator with the directory's custom tags
// registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("phone_number", validatePhoneNumber)
	_ = v.RegisterValidation("blood_group", validateBloodGroup)
	return v
}

func validatePhoneNumber(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

func validateBloodGroup(fl validator.FieldLevel) bool {
	return bloodGroups[strings.ToUpper(fl.Field().String())]
}

// describeValidation flattens validator errors into "field tag" pairs for
// log lines.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		part := strings.ToLower(fe.Field()) + " " + fe.Tag()
		if fe.Param() != "" {
			part += "=" + fe.Param()
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
