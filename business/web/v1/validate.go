package v1

import (
	"fmt"
	"strings"

	en "github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	english "github.com/go-playground/validator/v10/translations/en"
)

var validate = validator.New()
var translator ut.Translator

func init() {
	uni := ut.New(en.New(), en.New())
	translator, _ = uni.GetTranslator("en")
	if err := english.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

// Check runs struct-tag validation against val and, when it fails,
// collapses every field error into a single readable message instead
// of handing the caller a raw validator.ValidationErrors.
func Check(val any) error {
	if err := validate.Struct(val); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		var msgs []string
		for _, verror := range verrors {
			msgs = append(msgs, verror.Translate(translator))
		}

		return fmt.Errorf("validation failed: %s", strings.Join(msgs, ", "))
	}

	return nil
}
