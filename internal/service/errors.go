package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"finance-hub/internal/data"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is returned when a requested record does not exist or is
	// not visible to the caller.
	ErrNotFound = data.ErrNotFound

	ErrSlugTaken         = errors.New("slug is already in use")
	ErrAlreadySubscribed = errors.New("email is already subscribed")
	ErrCategoryInUse     = errors.New("category still has content")
	ErrCategoryMismatch  = errors.New("category belongs to a different section")
	ErrCategoryNotFound  = errors.New("category does not exist")
	ErrTopicLocked       = errors.New("topic is locked")
	ErrAssistUnavailable = errors.New("assist service unavailable")
)

// ValidationError maps form field names to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use form field names in validation errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs tag validation on in and converts failures.
func validateStruct(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return &ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Обязательное поле"
	case "email":
		return "Введите корректный email"
	case "url":
		return "Введите корректный URL"
	case "min":
		return fmt.Sprintf("Минимум %s символов", fe.Param())
	case "max":
		return fmt.Sprintf("Максимум %s символов", fe.Param())
	case "gt":
		return fmt.Sprintf("Значение должно быть больше %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Значение должно быть не меньше %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Значение должно быть не больше %s", fe.Param())
	case "oneof":
		return "Недопустимое значение"
	default:
		return "Некорректное значение"
	}
}
