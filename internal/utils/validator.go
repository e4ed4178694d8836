package utils

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/truemail-rb/truemail-go"
)

const verifierEmail = "team@mail.server-identity.tech"

// Validator bundles struct validation, payload sanitising and email verification.
type Validator struct {
	Validate    *validator.Validate
	VerifyEmail func(email string) bool
	policy      *bluemonday.Policy
}

var (
	instance *Validator
	once     sync.Once
)

// GetValidator returns the shared validator using syntax only email verification.
func GetValidator() *Validator {
	once.Do(func() {
		var err error
		instance, err = NewValidator("regex")
		if err != nil {
			panic(err)
		}
	})

	return instance
}

// NewValidator creates a validator whose email check uses the given truemail validation
// type: "regex", "mx" or "smtp".
func NewValidator(validationType string) (*Validator, error) {
	configuration, err := truemail.NewConfiguration(truemail.ConfigurationAttr{
		VerifierEmail:         verifierEmail,
		ValidationTypeDefault: validationType,
		SmtpFailFast:          true,
	})
	if err != nil {
		return nil, err
	}

	return &Validator{
		Validate: validator.New(validator.WithRequiredStructEnabled()),
		VerifyEmail: func(email string) bool {
			return truemail.IsValid(email, configuration)
		},
		policy: bluemonday.StrictPolicy(),
	}, nil
}

// SanitizeData strips markup from every string field of the struct obj points to.
// Fields tagged `sanitize:"-"`, such as passwords and tokens, are left untouched.
func (v *Validator) SanitizeData(obj interface{}) error {
	value := reflect.ValueOf(obj)
	if value.Kind() != reflect.Ptr || value.Elem().Kind() != reflect.Struct {
		return errors.New("sanitize: expected a pointer to a struct")
	}

	value = value.Elem()
	for i := 0; i < value.NumField(); i++ {
		field := value.Field(i)
		if value.Type().Field(i).Tag.Get("sanitize") == "-" || field.Kind() != reflect.String || !field.CanSet() {
			continue
		}
		field.SetString(strings.TrimSpace(v.policy.Sanitize(field.String())))
	}
	return nil
}
