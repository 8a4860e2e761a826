package errors

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMessages(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("test_type", "is required", nil)
		assert.Equal(t, "validation error on field 'test_type': is required", err.Error())
	})

	t.Run("error collection", func(t *testing.T) {
		var errs ValidationErrors
		assert.Equal(t, "validation failed", errs.Error())

		errs = append(errs, *NewValidationError("test_id", "is required", nil))
		assert.Equal(t, "validation failed: test_id is required", errs.Error())

		errs = append(errs, *NewValidationError("time_spent", "must be at least 0", -5))
		assert.Equal(t, "validation failed: 2 field errors", errs.Error())
	})

	t.Run("with rule", func(t *testing.T) {
		err := NewValidationErrorWithRule("test_type", "must be a valid test kind", "test_kind", "quiz")
		assert.Equal(t, "test_kind", err.Rule)
		assert.Equal(t, "quiz", err.Value)
	})
}

// rejectAll reports every value invalid so each custom tag produces a
// FieldError to convert.
func rejectAll(fl validator.FieldLevel) bool { return false }

func TestToValidationErrors_DomainTags(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("test_kind", rejectAll))
	require.NoError(t, v.RegisterValidation("session_status", rejectAll))
	require.NoError(t, v.RegisterValidation("answer_option", rejectAll))

	type payload struct {
		TestKind       string `validate:"test_kind"`
		Status         string `validate:"session_status"`
		SelectedAnswer string `validate:"answer_option"`
	}

	err := v.Struct(payload{TestKind: "quiz", Status: "open", SelectedAnswer: "E"})
	require.Error(t, err)

	converted := ToValidationErrors(err)
	require.Len(t, converted, 3)

	byRule := make(map[string]ValidationError, len(converted))
	for _, ve := range converted {
		byRule[ve.Rule] = ve
	}

	assert.Equal(t, "must be a valid test kind (topic, module, section, fulllength)", byRule["test_kind"].Message)
	assert.Equal(t, "quiz", byRule["test_kind"].Value)

	assert.Equal(t, "must be a valid session status (in_progress, paused, completed, abandoned)", byRule["session_status"].Message)
	assert.Equal(t, "must be one of the answer options A-D", byRule["answer_option"].Message)
}

func TestToValidationErrors_StandardTags(t *testing.T) {
	v := validator.New()

	type payload struct {
		TestID    string `validate:"required"`
		TimeSpent int    `validate:"min=0"`
		Status    string `validate:"oneof=in_progress paused"`
	}

	err := v.Struct(payload{TimeSpent: -1, Status: "completed"})
	require.Error(t, err)

	converted := ToValidationErrors(err)
	require.Len(t, converted, 3)

	byRule := make(map[string]ValidationError, len(converted))
	for _, ve := range converted {
		byRule[ve.Rule] = ve
	}

	assert.Equal(t, "is required", byRule["required"].Message)
	assert.Equal(t, "must be at least 0", byRule["min"].Message)
	assert.Equal(t, "must be one of: in_progress paused", byRule["oneof"].Message)
}

func TestToValidationErrors_NonValidatorError(t *testing.T) {
	converted := ToValidationErrors(errors.New("storage offline"))
	assert.Empty(t, converted)
}
