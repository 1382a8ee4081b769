package handler

import (
	"storda-registry/pkg/utils"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs custom binding rules. Call once before
// mounting routes.
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	// An IMEI is 15 digits; separators and spaces are tolerated on input.
	_ = v.RegisterValidation("imei", func(fl validator.FieldLevel) bool {
		return len(utils.SanitizeDigits(fl.Field().String())) == 15
	})
}
