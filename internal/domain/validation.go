package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError represents a single field's validation error.
// Field is a path such as "platform_recommendations[1].priority".
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidationError lists every violated field of one entity.
type ValidationError struct {
	Entity string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, fe := range e.Fields {
		parts[i] = fe.Error()
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// ByField groups messages by field path, the shape used in problem responses.
func (e *ValidationError) ByField() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, fe := range e.Fields {
		out[fe.Field] = append(out[fe.Field], fe.Msg)
	}
	return out
}

// Has reports whether field was flagged.
func (e *ValidationError) Has(field string) bool {
	for _, fe := range e.Fields {
		if fe.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Msg: msg})
}

// covers reports whether path, or a container above it, was already flagged.
func (e *ValidationError) covers(path string) bool {
	for _, fe := range e.Fields {
		if path == fe.Field ||
			strings.HasPrefix(path, fe.Field+".") ||
			strings.HasPrefix(path, fe.Field+"[") {
			return true
		}
	}
	return false
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AsValidationError unwraps err to a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs the struct-tag invariants of v and appends violations
// under prefix, skipping paths already reported by decoding.
func checkStruct(v any, prefix string, errs *ValidationError) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		errs.add(prefix, err.Error())
		return
	}
	for _, fe := range ves {
		path := fe.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		path = joinPath(prefix, path)
		if errs.covers(path) {
			continue
		}
		errs.add(path, tagMessage(fe))
	}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Kind() == reflect.Uint8 {
			return "must be one of high, medium, low"
		}
		if fe.Kind() == reflect.String {
			return "must not be empty"
		}
		return "field required"
	case "min":
		return fmt.Sprintf("must contain at least %s items", fe.Param())
	case "max":
		return fmt.Sprintf("must contain at most %s items", fe.Param())
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}

func joinPath(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	case strings.HasPrefix(field, "["):
		return prefix + field
	default:
		return prefix + "." + field
	}
}

// Validate checks the invariants of an already-trimmed input.
func (in StrategyInput) Validate() error {
	errs := &ValidationError{Entity: "StrategyInput"}
	checkStruct(in, "", errs)
	return errs.orNil()
}

// Validate checks the cardinality and priority invariants.
func (o StrategyOutput) Validate() error {
	errs := &ValidationError{Entity: "StrategyOutput"}
	checkStruct(o, "", errs)
	return errs.orNil()
}

func (r StrategyRecord) Validate() error {
	errs := &ValidationError{Entity: "StrategyRecord"}
	checkStruct(r, "", errs)
	return errs.orNil()
}
