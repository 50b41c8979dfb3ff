// Package validate checks admin forms before anything is sent to the server.
//
// Forms carry go-playground/validator tags. A failed check returns a
// VALIDATION-001 error listing one message per field, keyed by the API field
// name.
package validate

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
)

var (
	slugPattern    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	decimalPattern = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)
)

var (
	once     sync.Once
	instance *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		mustRegister(v, "slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
		mustRegister(v, "decimal", func(fl validator.FieldLevel) bool {
			return decimalPattern.MatchString(fl.Field().String())
		})
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validate: register %s: %v", tag, err))
	}
}

// FieldError is one failed field.
type FieldError struct {
	Field   string
	Message string
}

// Error lists every failed field of a form.
type Error struct {
	Form   string
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return strings.Join(parts, "; ")
}

// Fields returns field messages from err, or nil if err is not a validation error.
func Fields(err error) map[string]string {
	var verr *Error
	if !stderrors.As(err, &verr) {
		return nil
	}
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

// Struct validates form and converts failures into a VALIDATION-001 error.
func Struct(name string, form any) error {
	err := engine().Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(errors.ErrCodeValidation, fmt.Sprintf("invalid %s", name), err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })

	return invalid(name, fields)
}

func invalid(name string, fields []FieldError) error {
	cause := &Error{Form: name, Fields: fields}
	adminErr := errors.Wrap(errors.ErrCodeValidation, fmt.Sprintf("invalid %s", name), cause)
	for _, f := range fields {
		adminErr.WithSuggestion(fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return adminErr
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return "is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "slug":
		return "may only contain lowercase letters, numbers and dashes"
	case "decimal":
		return "must be an amount such as 19.99"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "datetime":
		return "must be a date in the form " + fe.Param()
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}
