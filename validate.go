package xhr

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"golang.org/x/net/http/httpguts"
)

// configValidator checks request configs against their struct tags and
// renders failures in English.
type configValidator struct {
	v     *validator.Validate
	trans ut.Translator
}

var loadValidator = sync.OnceValue(func() *configValidator {
	trans, ok := ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("xhr: failed to get 'en' translator")
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(err)
	}

	// token matches RFC 9110 tokens, the grammar of methods and header names.
	if err := v.RegisterValidation("token", func(fl validator.FieldLevel) bool {
		return httpguts.ValidHeaderFieldName(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	// Report fields by their JSON names, e.g. "xsrfHeaderName".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &configValidator{v: v, trans: trans}
})

// Validate checks cfg against its declared tags. Failures are returned as
// FieldErrors.
func Validate(cfg *Config) error {
	return loadValidator().check(cfg)
}

func (cv *configValidator) check(cfg *Config) error {
	err := cv.v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Err: cv.message(fe)})
	}

	return fields
}

func (cv *configValidator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "token":
		return fe.Field() + " must be a valid HTTP token"
	case "oneof":
		return fe.Field() + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return fe.Translate(cv.trans)
	}
}

// FieldError is a single invalid Config field.
type FieldError struct {
	Field string `json:"field"`
	Err   string `json:"error"`
}

// FieldErrors lists every invalid field of a Config.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	var b strings.Builder
	for i, f := range fe {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Field)
		b.WriteString(": ")
		b.WriteString(f.Err)
	}
	return b.String()
}

// Fields returns the names of the invalid fields.
func (fe FieldErrors) Fields() []string {
	names := make([]string, len(fe))
	for i, f := range fe {
		names[i] = f.Field
	}
	return names
}
