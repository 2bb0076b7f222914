package models

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

/*
RegisterWithValidator register with the validator this custom validation support

	@param v *validator.Validate - the validator to register against
	@return whether successful
*/
func RegisterWithValidator(v *validator.Validate) error {
	if err := v.RegisterValidation(
		"access_status", validateAccessStatusType,
	); err != nil {
		return err
	}

	return nil
}

func validateAccessStatusType(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	switch AccessStatusENUMType(fl.Field().String()) {
	case AccessStatusGranted:
		fallthrough
	case AccessStatusRevoked:
		fallthrough
	case AccessStatusPending:
		return true
	}
	return false
}
