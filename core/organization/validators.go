package organization

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/attendly/attendly/core"
)

var (
	tzNameTag  = "tzname"
	tzNameText = "unknown time zone"

	errNameNoSlug = "name must contain at least one letter or digit"
)

// InitValidators registers the organization validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(tzNameTag, tzNameValidation)
	core.RegisterCustomTranslation(validate, translator, tzNameTag, tzNameText)
}

// tzNameValidation checks that the field is a loadable IANA time zone name.
func tzNameValidation(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
