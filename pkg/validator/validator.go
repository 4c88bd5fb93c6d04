package validator

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Layouts accepted by the custom tags
const (
	dateLayout      = "2006-01-02"
	timeOfDayLayout = "15:04"
)

type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()

	// Report json names so errors line up with request bodies
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("date_only", validateDateOnly)
	v.RegisterValidation("slot_label", validateSlotLabel)
	v.RegisterValidation("time_of_day", validateTimeOfDay)

	return &CustomValidator{
		validator: v,
	}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// validateDateOnly accepts YYYY-MM-DD
func validateDateOnly(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

// validateTimeOfDay accepts HH:MM
func validateTimeOfDay(fl validator.FieldLevel) bool {
	return isTimeOfDay(fl.Field().String())
}

// validateSlotLabel accepts HH:MM-HH:MM with start before end
func validateSlotLabel(fl validator.FieldLevel) bool {
	start, end, ok := strings.Cut(fl.Field().String(), "-")
	if !ok || !isTimeOfDay(start) || !isTimeOfDay(end) {
		return false
	}
	return start < end
}

func isTimeOfDay(s string) bool {
	if len(s) != len(timeOfDayLayout) {
		return false
	}
	_, err := time.Parse(timeOfDayLayout, s)
	return err == nil
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errors := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errors[field] = field + " is required"
			case "min":
				errors[field] = field + " must be at least " + e.Param()
			case "max":
				errors[field] = field + " must be at most " + e.Param()
			case "gte":
				errors[field] = field + " must be greater than or equal to " + e.Param()
			case "lte":
				errors[field] = field + " must be less than or equal to " + e.Param()
			case "gt":
				errors[field] = field + " must be greater than " + e.Param()
			case "unique":
				errors[field] = field + " must not contain duplicates"
			case "uuid":
				errors[field] = field + " must be a valid UUID"
			case "date_only":
				errors[field] = field + " must be a date in YYYY-MM-DD format"
			case "slot_label":
				errors[field] = field + " must be a slot in HH:MM-HH:MM format"
			case "time_of_day":
				errors[field] = field + " must be a time in HH:MM format"
			default:
				errors[field] = field + " is invalid"
			}
		}
	}

	return errors
}
