// Package validation holds the process-wide struct validator used for catalog and rule files
package validation

import (
	"reflect"
	"strings"
	"sync"

	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldLevel aliases validator.FieldLevel
type FieldLevel = validator.FieldLevel

// Svc holds a singleton validator and translator
type Svc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *Svc
)

// Init initializes the singleton validator with english translations and yaml tag names
func Init() *Svc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// file formats are yaml first; fall back to json, then the Go name
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"yaml", "json"} {
				tag := fld.Tag.Get(key)
				if idx := strings.Index(tag, ","); idx >= 0 {
					tag = tag[:idx]
				}
				if tag != "" && tag != "-" {
					return tag
				}
			}
			return fld.Name
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerShort(v, trans, "min", "{0} must be at least {1}", true)
		registerShort(v, trans, "max", "{0} must be at most {1}", true)
		registerShort(v, trans, "oneof", "{0} must be one of [{1}]", true)

		_ = v.RegisterValidation("ident", func(fl validator.FieldLevel) bool {
			return IsIdent(fl.Field().String())
		})
		registerShort(v, trans, "ident", "{0} must be an identifier", false)

		vSvc = &Svc{Validator: v, Translator: trans}
	})
	return vSvc
}

// Get returns the validator singleton, initializing on first use
func Get() *Svc {
	if vSvc == nil {
		return Init()
	}
	return vSvc
}

// RegisterValidation registers a custom tag with a short english message
func RegisterValidation(tag, message string, fn validator.Func) error {
	s := Get()
	if err := s.Validator.RegisterValidation(tag, fn); err != nil {
		return err
	}
	registerShort(s.Validator, s.Translator, tag, message, false)
	return nil
}

// Struct validates v and returns a perr validation error listing every failing field,
// or nil. The first failing field is attached with perr.WithField
func Struct(v any) error {
	err := Get().Validator.Struct(v)
	if err == nil {
		return nil
	}
	if inv, ok := err.(*validator.InvalidValidationError); ok {
		logger.Get().Error().Err(inv).Msg("validator internal error")
		return perr.Wrap(inv, perr.ErrorCodeValidation, "validation error")
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return perr.Wrap(err, perr.ErrorCodeValidation, "validation error")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, Namespace(fe)+": "+fe.Translate(Get().Translator))
	}
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", strings.Join(msgs, "; ")), Namespace(verrs[0]))
}

// Namespace returns the field path without the root struct name, e.g. "ordering[0].op"
func Namespace(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// IsIdent reports whether s matches [A-Za-z_][A-Za-z0-9_]*
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func registerShort(v *validator.Validate, trans ut.Translator, tag, text string, withParam bool) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			if withParam {
				msg, _ := ut.T(tag, fe.Field(), fe.Param())
				return msg
			}
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
}
