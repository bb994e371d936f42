package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/sprintboard/pkg/errors"
	"github.com/charlesng35/sprintboard/pkg/response"
	appValidator "github.com/charlesng35/sprintboard/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response naming the first offending field is written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationError(err))
		return false
	}

	return true
}

func validationError(err error) *appErrors.AppError {
	ve, ok := err.(appValidator.ValidationErrors)
	if !ok {
		return appErrors.NewBadRequest("invalid request payload")
	}
	failure, ok := ve.First()
	if !ok {
		return appErrors.NewBadRequest("invalid request payload")
	}
	return appErrors.NewValidation(failure.Field, formatValidationError(ve))
}

func formatValidationError(ve appValidator.ValidationErrors) string {
	if len(ve) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, 0, len(ve))
	for _, failure := range ve {
		field := prettifyFieldName(failure.Field)
		switch failure.Tag {
		case "required", "notblank":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", field, failure.Param))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", field, failure.Param))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of %s", field, failure.Param))
		case "datetime":
			messages = append(messages, fmt.Sprintf("%s must be a date formatted YYYY-MM-DD", field))
		case "uuid4":
			messages = append(messages, fmt.Sprintf("%s must be a valid UUID", field))
		default:
			if failure.Param != "" {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
			} else {
				messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
			}
		}
	}
	return strings.Join(messages, "; ")
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}
