package handler

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"finance-hub/internal/service"
)

// decodeForm fills the fields of dst tagged with `form` from the request's
// form values. Unchecked checkboxes decode to false and empty numbers leave
// the zero value for the validator to judge.
func decodeForm(r *http.Request, dst interface{}) error {
	if err := r.ParseForm(); err != nil {
		return service.Invalid("form", "Некорректные данные формы")
	}
	v := reflect.ValueOf(dst).Elem()
	t := v.Type()
	invalid := make(map[string]string)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := strings.SplitN(sf.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" || !sf.IsExported() {
			continue
		}
		raw := r.Form.Get(name)
		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)
		case reflect.Bool:
			field.SetBool(checked(raw))
		case reflect.Float32, reflect.Float64:
			raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
			if raw == "" {
				continue
			}
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				invalid[name] = "Введите число"
				continue
			}
			field.SetFloat(f)
		case reflect.Int, reflect.Int64:
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				invalid[name] = "Введите целое число"
				continue
			}
			field.SetInt(n)
		}
	}
	if len(invalid) > 0 {
		return &service.ValidationError{Fields: invalid}
	}
	return nil
}

func checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
