package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	indianMobileRegex = regexp.MustCompile(`^[6-9][0-9]{9}$`)

	studyYears = map[string]struct{}{
		"1st Year": {},
		"2nd Year": {},
		"3rd Year": {},
		"4th Year": {},
	}
)

// Validator wraps go-playground validator with the registration rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("indian_mobile", validateIndianMobile)
	_ = v.RegisterValidation("study_year", validateStudyYear)

	return &Validator{validate: v}
}

// Struct validates s and returns the failures keyed by JSON field name, or
// nil when s is valid.
func (v *Validator) Struct(s interface{}) (map[string]string, error) {
	err := v.validate.Struct(s)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return fields, nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "indian_mobile":
		return "must be a 10 digit mobile number starting with 6-9"
	case "study_year":
		return "must be one of: 1st Year, 2nd Year, 3rd Year, 4th Year"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func validateIndianMobile(fl validator.FieldLevel) bool {
	return indianMobileRegex.MatchString(fl.Field().String())
}

func validateStudyYear(fl validator.FieldLevel) bool {
	_, ok := studyYears[fl.Field().String()]
	return ok
}
