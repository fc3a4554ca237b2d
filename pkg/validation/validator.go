package validation

import (
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once

	currencyCodeRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Get returns the shared validator with the custom rules registered
func Get() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("monday", validateMonday)
		_ = validate.RegisterValidation("currency_code", validateCurrencyCode)
	})
	return validate
}

// ValidateStruct validates s and converts field failures into a ValidationError
func ValidateStruct(s interface{}) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationError(verrs)
	}
	return err
}

// validateMonday accepts a YYYY-MM-DD date that falls on a Monday
func validateMonday(fl validator.FieldLevel) bool {
	d, err := time.Parse("2006-01-02", fl.Field().String())
	if err != nil {
		return false
	}
	return d.Weekday() == time.Monday
}

func validateCurrencyCode(fl validator.FieldLevel) bool {
	return currencyCodeRegex.MatchString(fl.Field().String())
}
