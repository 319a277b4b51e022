package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// ReadAndValidateRequest binds body and query into req, fills `default` tags
// for zero fields and runs `validate` tags. It returns nil when req is usable.
func ReadAndValidateRequest(c echo.Context, req interface{}) []ValidationError {
	if err := c.Bind(req); err != nil {
		return bindErrors(err)
	}
	if err := defaults.Set(req); err != nil {
		return []ValidationError{{Code: "ERR_DEFAULTS", Message: err.Error()}}
	}
	if err := validate.StructCtx(c.Request().Context(), req); err != nil {
		return fieldErrors(err)
	}
	return nil
}

// bindErrors names the offending field when the body has a wrong JSON type.
func bindErrors(err error) []ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []ValidationError{{
			Code:    "ERR_TYPE",
			Field:   typeErr.Field,
			Message: fmt.Sprintf("%s has the wrong type, expected %s", typeErr.Field, typeErr.Type.Kind()),
		}}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return []ValidationError{{Code: "ERR_SYNTAX", Message: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)}}
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_BIND", Message: fmt.Sprintf("%v", he.Message)}}
	}
	return []ValidationError{{Code: "ERR_BIND", Message: err.Error()}}
}

func fieldErrors(err error) []ValidationError {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []ValidationError{{Code: "ERR_VALIDATION", Message: err.Error()}}
	}
	out := make([]ValidationError, 0, len(ves))
	for _, fe := range ves {
		ve := ValidationError{
			Code:    "ERR_" + strings.ToUpper(fe.Tag()),
			Field:   fe.Field(),
			Message: messageFor(fe),
		}
		if p := fe.Param(); p != "" {
			ve.Params = map[string]interface{}{paramKey(fe.Tag()): paramValue(fe.Tag(), p)}
		}
		out = append(out, ve)
	}
	return out
}

var messages = map[string]string{
	"required": "%s is required",
	"datetime": "%s must be a date formatted as %s",
	"oneof":    "%s must be one of: %s",
	"gt":       "%s must be greater than %s",
	"gte":      "%s must be at least %s",
	"lt":       "%s must be less than %s",
	"lte":      "%s must be at most %s",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
}

func messageFor(fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
	if fe.Tag() == "required" {
		return fmt.Sprintf(tmpl, fe.Field())
	}
	param := fe.Param()
	switch fe.Tag() {
	case "datetime":
		param = "YYYY-MM-DD"
	case "oneof":
		param = strings.ReplaceAll(param, " ", ", ")
	case "min", "max":
		if fe.Kind() == reflect.String {
			param += " characters"
		} else if fe.Kind() == reflect.Slice {
			param += " items"
		}
	}
	return fmt.Sprintf(tmpl, fe.Field(), param)
}

func paramKey(tag string) string {
	switch tag {
	case "min", "gte", "gt":
		return "min"
	case "max", "lte", "lt":
		return "max"
	case "oneof":
		return "options"
	case "datetime":
		return "layout"
	default:
		return "value"
	}
}

func paramValue(tag, p string) interface{} {
	if tag == "oneof" {
		return strings.Fields(p)
	}
	return p
}
