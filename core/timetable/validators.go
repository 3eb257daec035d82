package timetable

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/attendly/attendly/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "must be a day of the week (Monday to Sunday)"

	clockTag  = "clock"
	clockText = "must be a time such as 9:00 AM or 14:30"
)

// InitValidators registers the timetable validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, func(fl validator.FieldLevel) bool {
		return NormalizeDay(fl.Field().String()) != ""
	})
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(clockTag, func(fl validator.FieldLevel) bool {
		_, err := ParseClock(fl.Field().String())
		return err == nil
	})
	core.RegisterCustomTranslation(validate, translator, clockTag, clockText)
}
