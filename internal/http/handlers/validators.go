package handlers

import (
	"github.com/go-playground/validator/v10"

	"github.com/you/accountsvc/domain"
)

// RegisterValidators adds the otp and username binding tags to v
func RegisterValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("otp", validateOtp); err != nil {
		return err
	}
	return v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return domain.ValidUsername(fl.Field().String())
	})
}

// validateOtp accepts exactly six ASCII digits
func validateOtp(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
