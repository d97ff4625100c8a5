// validation.go
// -------------
// The schema gate on both sides of the pipeline. Payload shapes are declared
// with `validate` struct tags:
//
//	type Patient struct {
//		Name string `json:"name" validate:"required,min=2,max=100"`
//		Age  int    `json:"age" validate:"min=0,max=150"`
//	}
//
// Outbound payloads are checked before any network activity; inbound data is
// decoded into the caller's type and checked the same way. Both report every
// violated field at once.
package securebridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/opengovern/secure-bridge/jsonvalue"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return v
}

// ValidatePayload checks payload against its validate tags. Structs, pointers
// to structs and slices of structs are checked; anything else passes.
func ValidatePayload(payload interface{}) error {
	return validatePayload("payload failed validation", payload)
}

func validatePayload(message string, payload interface{}) error {
	rv := reflect.ValueOf(payload)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Struct:
		return toValidationError(message, "", validate.Struct(rv.Interface()))
	case reflect.Slice, reflect.Array:
		var fields []FieldError
		var first error
		for i := 0; i < rv.Len(); i++ {
			item := rv.Index(i)
			for item.Kind() == reflect.Pointer && !item.IsNil() {
				item = item.Elem()
			}
			if item.Kind() != reflect.Struct {
				continue
			}
			err := toValidationError(message, fmt.Sprintf("[%d].", i), validate.Struct(item.Interface()))
			if err == nil {
				continue
			}
			if first == nil {
				first = err
			}
			if e, ok := AsError(err); ok {
				fields = append(fields, e.Fields...)
			}
		}
		if first == nil {
			return nil
		}
		return newValidationError(message, fields, errors.Unwrap(first))
	}
	return nil
}

// Decode converts response data into T and validates the result. A shape
// mismatch is reported as KindValidationError.
func Decode[T any](data jsonvalue.Value) (T, error) {
	var out T
	message := fmt.Sprintf("response does not match the expected %s shape", typeName[T]())
	if err := jsonvalue.Decode(data, &out); err != nil {
		var zero T
		return zero, newValidationError(message, decodeFieldErrors(err), err)
	}
	if err := validatePayload(message, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DecodeResponse is Decode applied to a successful APIResponse.
func DecodeResponse[T any](resp *APIResponse) (T, error) {
	if resp == nil {
		var zero T
		return zero, newValidationError("empty response", nil, nil)
	}
	return Decode[T](resp.Data)
}

func toValidationError(message, prefix string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newValidationError(message, nil, err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := prefix + fieldPath(fe)
		fields = append(fields, FieldError{
			Field:   name,
			Tag:     fe.Tag(),
			Message: fieldMessage(name, fe),
		})
	}
	return newValidationError(message, fields, err)
}

// fieldPath drops the root type name from the namespace: "Patient.address.city" -> "address.city".
// Generic root names such as "Page[example.com/pkg.Claim]" contain dots of their own.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	depth := 0
	for i, r := range ns {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case '.':
			if depth == 0 {
				return ns[i+1:]
			}
		}
	}
	return fe.Field()
}

func fieldMessage(name string, fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	isCollection := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map || fe.Kind() == reflect.Array

	switch fe.Tag() {
	case "required", "required_if", "required_with", "required_without":
		return fmt.Sprintf("%s is required", name)
	case "min", "gte":
		switch {
		case isString:
			return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
		case isCollection:
			return fmt.Sprintf("%s must contain at least %s items", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max", "lte":
		switch {
		case isString:
			return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
		case isCollection:
			return fmt.Sprintf("%s must contain at most %s items", name, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", name)
	case "e164":
		return fmt.Sprintf("%s must be a valid phone number", name)
	case "datetime":
		return fmt.Sprintf("%s must be a date in the format %s", name, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid identifier", name)
	}
	return fmt.Sprintf("%s is invalid", name)
}

func decodeFieldErrors(err error) []FieldError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return []FieldError{{
			Field:   typeErr.Field,
			Tag:     "type",
			Message: fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type.Kind()),
		}}
	}
	return nil
}

func typeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if t.Name() == "" {
		return t.Kind().String()
	}
	return t.Name()
}
