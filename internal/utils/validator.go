package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/prepdeck/testprep-service/internal/errors"
	"github.com/prepdeck/testprep-service/internal/models"
)

// Validator wraps go-playground struct validation with the domain's
// custom tags and converts failures to the shared ValidationErrors type.
type Validator struct {
	structValidator *validator.Validate
}

// NewValidator creates a validator with all custom tags registered.
func NewValidator() *Validator {
	v := validator.New()
	registerCustomValidators(v)
	return &Validator{structValidator: v}
}

// Validate validates struct tags and returns ValidationErrors on failure.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("test_kind", validateTestKind)
	validate.RegisterValidation("session_status", validateSessionStatus)
	validate.RegisterValidation("answer_option", validateAnswerOption)

	// Report json field names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateTestKind(fl validator.FieldLevel) bool {
	switch models.TestKind(fl.Field().String()) {
	case models.TestKindTopic, models.TestKindModule, models.TestKindSection, models.TestKindFullLength:
		return true
	}
	return false
}

func validateSessionStatus(fl validator.FieldLevel) bool {
	switch models.SessionStatus(fl.Field().String()) {
	case models.SessionInProgress, models.SessionPaused, models.SessionCompleted, models.SessionAbandoned:
		return true
	}
	return false
}

func validateAnswerOption(fl validator.FieldLevel) bool {
	_, ok := models.NormalizeAnswerOption(fl.Field().String())
	return ok
}
