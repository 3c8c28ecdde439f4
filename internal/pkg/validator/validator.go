package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Flag reason validation
	validate.RegisterValidation("flag_reason", func(fl validator.FieldLevel) bool {
		reason := fl.Field().String()
		validReasons := []string{"spam", "scam", "inappropriate", "prohibited", "counterfeit", "other"}
		for _, r := range validReasons {
			if reason == r {
				return true
			}
		}
		return false
	})

	// Review decision validation (flag and appeal reviews)
	validate.RegisterValidation("review_decision", func(fl validator.FieldLevel) bool {
		decision := fl.Field().String()
		validDecisions := []string{"uphold", "dismiss", "approve", "deny"}
		for _, d := range validDecisions {
			if decision == d {
				return true
			}
		}
		return false
	})

	// Blocked word severity validation
	validate.RegisterValidation("word_severity", func(fl validator.FieldLevel) bool {
		severity := fl.Field().String()
		return severity == "warning" || severity == "block"
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "flag_reason":
			errors[field] = "Invalid reason. Must be: spam, scam, inappropriate, prohibited, counterfeit, or other"
		case "review_decision":
			errors[field] = "Invalid decision"
		case "word_severity":
			errors[field] = "Invalid severity. Must be: warning or block"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
