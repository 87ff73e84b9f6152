package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/otpgate/internal/pkg/strcase"
)

var (
	// NIST 800-63B length bounds; bcrypt ignores bytes past 72.
	rePassword = regexp.MustCompile(`^.{8,72}$`)
	reMobile   = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	reOTPCode  = regexp.MustCompile(`^[A-Za-z0-9]{4,10}$`)
	reUsername = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,50}$`)
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError maps snake_case field names to messages.
type V10ValidationError map[string]string

func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

type rule struct {
	tag     string
	re      *regexp.Regexp
	message string
}

var rules = []rule{
	{tag: "password", re: rePassword, message: "{0} must be 8-72 characters"},
	{tag: "mobile", re: reMobile, message: "{0} must be 10-15 digits with an optional leading +"},
	{tag: "otp_code", re: reOTPCode, message: "{0} must be 4-10 letters or digits"},
	{tag: "username", re: reUsername, message: "{0} must be 3-50 letters, digits, dots, dashes or underscores"},
}

// NewV10Validator builds a validator with English messages and the custom
// password, mobile, otp_code and username rules.
func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	for _, r := range rules {
		if err := register(validate, enTrans, r); err != nil {
			return nil, fmt.Errorf("validator: rule %s: %w", r.tag, err)
		}
	}

	return &V10Validator{validate: validate, translator: enTrans}, nil
}

func register(validate *validator.Validate, trans ut.Translator, r rule) error {
	err := validate.RegisterValidation(r.tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		return ok && r.re.MatchString(s)
	})
	if err != nil {
		return err
	}

	return validate.RegisterTranslation(r.tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(r.tag, r.message, false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(fe.Tag(), fe.Field())
			if err != nil {
				return fe.Error()
			}
			return t
		},
	)
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var validateErrs validator.ValidationErrors
	if !errors.As(err, &validateErrs) {
		return err
	}

	errV10 := make(V10ValidationError, len(validateErrs))
	for _, fe := range validateErrs {
		errV10[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
	}

	return errV10
}
