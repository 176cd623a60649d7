package portfoliocms

import (
	"errors"
	"log/slog"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   = newValidator()
	translator ut.Translator
)

// messageOverrides replaces the generic translation for specific struct
// fields. Keys are "<StructField>|<tag>" so nested list items match too.
var messageOverrides = map[string]string{
	"Points|max":       "Maximum 6 offer points allowed",
	"Logos|max":        "Maximum 30 logos allowed",
	"Services|max":     "Maximum 12 services allowed",
	"Testimonials|max": "Maximum 20 testimonials allowed",
	"Description|min":  "Description must be at least 10 characters",
	"Email|email":      "A valid contact email is required",
	"Color|hexcolor":   "Color must be a hex value such as #FF5733",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("urlorpath", urlOrPath); err != nil {
		slog.Warn("could not register validation", "tag", "urlorpath", "err", err)
	}

	locale := en.New()
	translator, _ = ut.New(locale, locale).GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(v, translator); err != nil {
		slog.Warn("could not register translation", "locale", "en", "err", err)
	}
	err := v.RegisterTranslation("urlorpath", translator, func(ut ut.Translator) error {
		return ut.Add("urlorpath", "{0} must be a URL or an absolute path", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("urlorpath", fe.Field())
		return t
	})
	if err != nil {
		slog.Warn("could not register translation", "tag", "urlorpath", "err", err)
	}
	return v
}

// urlOrPath accepts site-relative paths ("/uploads/x.png") and absolute URLs.
func urlOrPath(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if strings.HasPrefix(val, "/") {
		return !strings.HasPrefix(val, "//")
	}
	u, err := url.Parse(val)
	if err != nil {
		return false
	}
	return u.Scheme != "" && (u.Host != "" || u.Scheme == "mailto")
}

// Validate checks v against its validate tags and returns a KindValidation
// *Error listing every violation.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return &Error{Kind: KindInternal, Op: "validate", Err: err}
	}
	fields := translate(ve)
	return validationError("validate", fields[0].Message, fields...)
}

func translate(ve validator.ValidationErrors) []FieldViolation {
	out := make([]FieldViolation, 0, len(ve))
	for _, fe := range ve {
		message, ok := messageOverrides[fe.StructField()+"|"+fe.Tag()]
		if !ok {
			message = fe.Translate(translator)
		}
		out = append(out, FieldViolation{
			Field:     trimRoot(fe.Namespace()),
			Violation: fe.Tag(),
			Message:   message,
		})
	}
	return out
}

// trimRoot drops the root struct name from a validator namespace.
func trimRoot(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
