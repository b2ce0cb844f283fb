// internal/utils/validator.go
package utils

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
)

var (
	validate    *validator.Validate
	phoneNumber = regexp.MustCompile(`^[0-9]{10}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterValidation("phone", validatePhone)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// validatePhone accepts the 10-digit mobile numbers used as login names.
func validatePhone(fl validator.FieldLevel) bool {
	return phoneNumber.MatchString(fl.Field().String())
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(lang string, err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(lang, e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(lang string, e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return i18n.T(lang, i18n.KeyValidationRequired, field)
	case "min", "gte":
		return i18n.T(lang, i18n.KeyValidationMin, field, e.Param())
	case "max", "lte":
		return i18n.T(lang, i18n.KeyValidationMax, field, e.Param())
	case "len":
		return i18n.T(lang, i18n.KeyValidationLen, field, e.Param())
	case "phone":
		return i18n.T(lang, i18n.KeyValidationLen, field, "10")
	case "numeric":
		return i18n.T(lang, i18n.KeyValidationNumeric, field)
	case "oneof":
		return i18n.T(lang, i18n.KeyValidationOneOf, field, e.Param())
	case "uuid", "uuid4":
		return i18n.T(lang, i18n.KeyValidationUUID, field)
	default:
		return i18n.T(lang, i18n.KeyValidationInvalid, field)
	}
}
