package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Codec converts a model to and from its JSON wire form.
type Codec[T any] interface {
	FromWire(data []byte) (T, error)
	ToWire(value T) ([]byte, error)
}

// JSONCodec is the Codec used by all generated models. Unknown fields are ignored;
// fields tagged validate:"required" must be present and non-zero.
type JSONCodec[T any] struct{}

// FromWire decodes data and checks required fields.
func (JSONCodec[T]) FromWire(data []byte) (T, error) {
	var value T
	typeName := fmt.Sprintf("%T", value)

	if err := json.Unmarshal(data, &value); err != nil {
		var zero T
		return zero, &DecodeError{Type: typeName, Body: data, Err: err}
	}
	if err := validateModel(&value); err != nil {
		var zero T
		decodeErr := &DecodeError{Type: typeName, Body: data, Err: err}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				decodeErr.Missing = append(decodeErr.Missing, fieldPath(fe))
			}
		}
		return zero, decodeErr
	}
	return value, nil
}

// ToWire encodes value. Optional fields left unset are omitted by their omitempty tags.
func (JSONCodec[T]) ToWire(value T) ([]byte, error) {
	return json.Marshal(value)
}

var (
	modelValidator     *validator.Validate
	modelValidatorOnce sync.Once
)

func getValidator() *validator.Validate {
	modelValidatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		modelValidator = v
	})
	return modelValidator
}

// validateModel validates structs (directly or behind pointers); other kinds pass.
func validateModel(ptr any) error {
	rv := reflect.ValueOf(ptr)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return getValidator().Struct(rv.Interface())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Struct {
			return getValidator().Var(rv.Interface(), "dive")
		}
	}
	return nil
}

// fieldPath drops the root type name from a validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// DecodeJSON is a convenience for decode functions bound to JSONCodec.
func DecodeJSON[T any](data []byte) (T, error) {
	return JSONCodec[T]{}.FromWire(data)
}

// DecodeJSONPtr decodes into a freshly allocated T and returns its address.
func DecodeJSONPtr[T any](data []byte) (*T, error) {
	v, err := JSONCodec[T]{}.FromWire(data)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
