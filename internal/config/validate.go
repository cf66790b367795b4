package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	vOnce      sync.Once
	validate   *validator.Validate
	translator ut.Translator
)

func initValidator() {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		translator, _ = uni.GetTranslator("en")
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = en_translations.RegisterDefaultTranslations(validate, translator)
	})
}

// Validate checks the `validate` struct tags of an options struct, returning an error
// which names the first offending field
func Validate(opts interface{}) error {
	initValidator()
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			return fmt.Errorf("Invalid options: %s", fe.Translate(translator))
		}
	}
	return fmt.Errorf("Invalid options: %w", err)
}
