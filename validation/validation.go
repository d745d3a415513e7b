// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/danielhkuo/votedesk/models"
)

// MinOptions is the smallest number of options a poll may have.
const MinOptions = 2

// CodeLength is the number of digits in a verification code.
const CodeLength = 6

var (
	validate *validator.Validate
	trans    ut.Translator

	// Digits with an optional leading +
	phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	locale := en.New()
	trans, _ = ut.New(locale, locale).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(fmt.Sprintf("validation: register translations: %v", err))
	}

	if err := validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("validation: register phone: %v", err))
	}
	if err := validate.RegisterTranslation("phone", trans,
		func(ut ut.Translator) error {
			return ut.Add("phone", "{0} must be a phone number of 7 to 15 digits", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("phone", fe.Field())
			return msg
		},
	); err != nil {
		panic(fmt.Sprintf("validation: register phone translation: %v", err))
	}
}

// Errors maps a field name to a human readable message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Struct validates v against its validate tags.
// Returns Errors on failure, nil otherwise.
func Struct(v interface{}) error {
	return convert(validate.Struct(v))
}

type pollInput struct {
	Question string   `json:"question" validate:"required"`
	Options  []string `json:"options"  validate:"min=2,unique"`
}

// Poll normalizes and validates poll input.
// Whitespace is trimmed and blank options are dropped before checking that
// the question is set and at least MinOptions unique options remain.
// Uniqueness is case-sensitive.
func Poll(question string, options []string) (string, []string, error) {
	in := pollInput{Question: strings.TrimSpace(question)}
	for _, opt := range options {
		opt = strings.TrimSpace(opt)
		if opt != "" {
			in.Options = append(in.Options, opt)
		}
	}

	if err := Struct(in); err != nil {
		return "", nil, err
	}
	return in.Question, in.Options, nil
}

type optionsInput struct {
	Options []string `json:"options" validate:"min=2,unique"`
}

// PollUpdate normalizes an edit. An empty question means keep the current
// one and nil options mean keep the current list; a non-nil list is held to
// the same rules as Poll after blank labels are dropped.
func PollUpdate(question string, options []models.OptionInput) (string, []models.OptionInput, error) {
	question = strings.TrimSpace(question)
	if options == nil {
		if question == "" {
			return "", nil, Errors{"question": "question or options must be provided"}
		}
		return question, nil, nil
	}

	kept := []models.OptionInput{}
	in := optionsInput{Options: []string{}}
	for _, opt := range options {
		opt.Label = strings.TrimSpace(opt.Label)
		if opt.Label == "" {
			continue
		}
		kept = append(kept, opt)
		in.Options = append(in.Options, opt.Label)
	}

	if err := Struct(in); err != nil {
		return "", nil, err
	}
	return question, kept, nil
}

// Destination checks the address a verification code is sent to.
func Destination(method, destination string) error {
	var tag string
	switch method {
	case models.MethodEmail:
		tag = "required,email"
	case models.MethodOTP:
		tag = "required,phone"
	default:
		return Errors{"method": "method must be one of [otp email]"}
	}

	if err := validate.Var(destination, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			// Var errors carry no field name, so the message starts with a space
			return Errors{"destination": "destination" + verrs[0].Translate(trans)}
		}
		return err
	}
	return nil
}

// Code reports whether code has the shape of a verification code.
func Code(code string) bool {
	return validate.Var(code, fmt.Sprintf("len=%d,number", CodeLength)) == nil
}

func convert(err error) error {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := Errors{}
	for _, fe := range verrs {
		field := fe.Field()
		if field == "" {
			field = fe.StructField()
		}
		if _, seen := out[field]; !seen {
			out[field] = fe.Translate(trans)
		}
	}
	return out
}
