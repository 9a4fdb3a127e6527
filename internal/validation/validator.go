// Package validation wraps a shared go-playground validator with the
// struct-level rules of the analytics domain.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError one failed rule
type FieldError struct {
	Field string
	Tag   string
	Param string
	Value interface{}
}

func (e FieldError) Error() string {
	switch e.Tag {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", e.Field, e.Param)
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", e.Field, e.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field, e.Param)
	case "anychannel":
		return "at least one of temperature, ph, tds, do_level is required"
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field, e.Tag)
	}
}

// Errors all failed rules of one struct
type Errors []FieldError

func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve))
	for i, e := range ve {
		messages[i] = e.Error()
	}
	return strings.Join(messages, "; ")
}

// Fields failed field names
func (ve Errors) Fields() []string {
	out := make([]string, len(ve))
	for i, e := range ve {
		out[i] = e.Field
	}
	return out
}

// GetValidator shared instance
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterStructValidation(manualMeasurementRules, models.ManualMeasurement{})
	})
	return validate
}

// manualMeasurementRules at least one channel must be present
func manualMeasurementRules(sl validator.StructLevel) {
	m := sl.Current().Interface().(models.ManualMeasurement)
	if !m.HasAnyChannel() {
		sl.ReportError(m.Temperature, "Temperature", "temperature", "anychannel", "")
	}
}

// ValidateStruct nil or Errors
func ValidateStruct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return out
}

// ValidateManualMeasurement field ranges plus the any-channel rule
func ValidateManualMeasurement(m *models.ManualMeasurement) error {
	if m == nil {
		return Errors{{Field: "ManualMeasurement", Tag: "required"}}
	}
	return ValidateStruct(m)
}
