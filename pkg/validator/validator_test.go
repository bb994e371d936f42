package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type taskPayload struct {
	Title    string  `json:"title" validate:"required,notblank,max=200"`
	Priority string  `json:"priority" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Points   int     `json:"story_points" validate:"gte=0"`
	Goal     *string `json:"goal" validate:"omitempty,notblank"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := taskPayload{
		Title:    "Fix bug",
		Priority: "HIGH",
		Points:   3,
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	payload := taskPayload{
		Title:    "   ",
		Priority: "URGENT",
		Points:   -1,
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d: %v", len(vErrs), vErrs)
	}

	first, ok := vErrs.First()
	if !ok || first.Field != "title" || first.Tag != "notblank" {
		t.Fatalf("expected title notblank failure first, got %+v", first)
	}

	foundPoints := false
	for _, v := range vErrs {
		if v.Field == "story_points" {
			foundPoints = true
		}
	}
	if !foundPoints {
		t.Fatal("expected story_points field to be present in validation errors")
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("sprintname", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) >= 2
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"sprintname"`
	}

	if err := ValidateStruct(custom{Value: "S1"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Value: "S"}); err == nil {
		t.Fatal("expected validation to fail for a short value")
	}
}
