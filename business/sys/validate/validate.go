// Package validate contains the support for validating models, exposing
// go-playground/validator's struct-tag validation behind a single Check
// call the rest of the business layer can use without importing the
// validator package directly.
package validate

import (
	"errors"
	"fmt"
	"strings"

	en "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// validate holds the settings and caches for validating request structs.
var validate *validator.Validate

// translator is a cache of translations for validation messages.
var translator ut.Translator

func init() {
	validate = validator.New()

	translation := en.New()
	uni := ut.New(translation, translation)
	translator, _ = uni.GetTranslator("en")

	_ = validate.RegisterTranslation("required", translator, func(ut ut.Translator) error {
		return ut.Add("required", "{0} is a required field", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("required", fe.Field())
		return t
	})
}

// Check validates the provided struct against its validate struct tags,
// returning a single error aggregating every field that failed.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return err
		}

		var fields []string
		for _, verr := range err.(validator.ValidationErrors) {
			fields = append(fields, verr.Translate(translator))
		}

		return fmt.Errorf("field validation error: %s", strings.Join(fields, ","))
	}

	return nil
}
