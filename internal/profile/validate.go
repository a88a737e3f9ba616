package profile

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ArnabNath1/ArnabUniGuide/internal/apperr"
)

var profileValidate *validator.Validate

// jsonNames maps Go field names to wire names for error reporting.
var jsonNames = map[string]string{
	"Email":             "email",
	"CurrentDegree":     "current_degree",
	"CurrentUniversity": "current_university",
	"TargetCountry":     "target_country",
	"TargetDegree":      "target_degree",
	"Budget":            "budget",
}

func init() {
	profileValidate = validator.New()
	if err := profileValidate.RegisterValidation("present", validatePresent); err != nil {
		panic("registering present validator: " + err.Error())
	}
	profileValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, ok := jsonNames[f.Name]; ok {
			return name
		}
		return f.Name
	})
}

// validatePresent rejects empty and whitespace-only strings.
func validatePresent(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ValidateOnboarding checks the fields required before a profile can be
// created. It returns a *apperr.ValidationError naming every missing field.
func ValidateOnboarding(p Profile) error {
	err := profileValidate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return &apperr.ValidationError{Fields: missing}
}
