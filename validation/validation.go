// Package validation collects field violations as codes that i18n can
// translate. Request structs are checked with go-playground/validator tags.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violations maps a field path (json names, "items[0].description") to a
// message code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Merge copies other into v. Existing entries win.
func (v Violations) Merge(other Violations) {
	for field, code := range other {
		if _, ok := v[field]; !ok {
			v[field] = code
		}
	}
}

// RangeFloat records out_of_range when val is outside [minVal, maxVal].
func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates s against its `validate` tags.
func Struct(s any) Violations {
	return FromValidator(validate.Struct(s))
}

// FromValidator converts a validator error into Violations. A nil error
// gives an empty set.
func FromValidator(err error) Violations {
	v := Violations{}
	if err == nil {
		return v
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v["_"] = "invalid"
		return v
	}
	for _, fe := range fieldErrs {
		v[fieldPath(fe.Namespace())] = code(fe.Tag())
	}
	return v
}

// fieldPath drops the struct name validator puts in front of the namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func code(tag string) string {
	switch tag {
	case "required", "required_if", "required_with", "required_without":
		return "required"
	case "gt", "gte":
		return "must_be_positive"
	case "min", "max", "lt", "lte", "len":
		return "out_of_range"
	}
	return "invalid"
}
