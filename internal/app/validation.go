package service

import (
	"errors"
	"html"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/microcosm-cc/bluemonday"

	"github.com/okian/grader/internal/domain/model"
)

const personNameTag = "personname"

// studentValidator checks and cleans student input.
type studentValidator struct {
	validate   *validator.Validate
	translator ut.Translator
	policy     *bluemonday.Policy
}

func newStudentValidator() *studentValidator {
	v := validator.New()

	// Register the english error messages for validation errors.
	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(personNameTag, personName)
	_ = v.RegisterTranslation(personNameTag, trans,
		func(ut.Translator) error { return nil },
		func(_ ut.Translator, fe validator.FieldError) string {
			return fe.Field() + " may only contain letters, spaces, hyphens and apostrophes"
		})

	return &studentValidator{
		validate:   v,
		translator: trans,
		policy:     bluemonday.StrictPolicy(),
	}
}

// clean strips markup from free text and normalizes s. The policy escapes
// quotes, so the result is unescaped back to plain text.
func (sv *studentValidator) clean(s model.Student) model.Student {
	s.Name = html.UnescapeString(sv.policy.Sanitize(s.Name))
	s.Normalize()
	return s
}

// check returns a *model.ValidationError listing every failed field.
func (sv *studentValidator) check(s model.Student) error {
	err := sv.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fe.Translate(sv.translator)
		}
	}
	return &model.ValidationError{Fields: fields}
}

func personName(fl validator.FieldLevel) bool {
	name, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' && r != '\'' {
			return false
		}
	}
	return strings.TrimSpace(name) != ""
}
