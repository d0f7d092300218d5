package services

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"kknotes-backend-go/internal/models"
	"kknotes-backend-go/internal/store"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	notBlankTag  = "notblank"
	notBlankText = "{0} is required"
	absURLTag    = "absurl"
	absURLText   = "{0} must be a valid absolute URL"
	semesterTag  = "semester"
	semesterText = "{0} must be one of s1 to s8"
	keyTag       = "pathkey"
	keyText      = "{0} must not contain / . # $ [ or ]"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(absURLTag, absURLValidation)
	_ = validate.RegisterValidation(semesterTag, semesterValidation)
	_ = validate.RegisterValidation(keyTag, keyValidation)
	registerTranslation(notBlankTag, notBlankText)
	registerTranslation(absURLTag, absURLText)
	registerTranslation(semesterTag, semesterText)
	registerTranslation(keyTag, keyText)
}

func registerTranslation(tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// absURLValidation accepts URLs with a scheme and a host.
func absURLValidation(fl validator.FieldLevel) bool {
	parsed, err := url.Parse(strings.TrimSpace(fl.Field().String()))
	if err != nil {
		return false
	}
	return parsed.IsAbs() && parsed.Host != ""
}

func semesterValidation(fl validator.FieldLevel) bool {
	return models.IsSemester(fl.Field().String())
}

func keyValidation(fl validator.FieldLevel) bool {
	return isPathKey(fl.Field().String())
}

// isPathKey reports whether value is usable as one store path segment.
func isPathKey(value string) bool {
	segs, err := store.SplitPath(value)
	return err == nil && len(segs) == 1 && segs[0] == value
}

// validateInput runs struct validation and converts failures into a
// validation ServiceError with per-field messages.
func validateInput(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrValidation(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, verr := range verrs {
		fields[verr.Field()] = verr.Translate(translator)
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return ServiceError{
		Status:  http.StatusBadRequest,
		Kind:    KindValidation,
		Message: fields[names[0]],
		Fields:  fields,
	}
}
