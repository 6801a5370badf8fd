// Package request holds the input shapes shared by the REST and gRPC façades
// and the validation that both run before anything reaches the core.
package request

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"meeting-scheduler-api/internal/apperr"
	"meeting-scheduler-api/internal/model"
)


var engine = newEngine()

// newEngine reads the same "binding" tags gin does and reports fields by their
// json or form name.
func newEngine() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return v
}

func Engine() *validator.Validate { return engine }

// Struct runs the tag rules on a struct or pointer to struct; anything else passes.
func Struct(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	return engine.Struct(v)
}

// Checker adds rules the tags cannot express. It runs even when tag
// validation failed so every problem is reported at once, and must tolerate
// fields that did not parse.
type Checker interface {
	Check(today model.Date) []apperr.FieldError
}

// Validate runs the tag rules and, when req is a Checker, its own rules.
func Validate(req any, today model.Date) error {
	return Collect(req, Struct(req), today)
}

// Collect merges tag errors in err with the Checker output into a single
// Validation error. Errors other than validator.ValidationErrors pass through.
func Collect(req any, err error, today model.Date) error {
	var verrs validator.ValidationErrors
	if err != nil && !errors.As(err, &verrs) {
		return err
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{Field: fe.Field(), Message: Message(fe)})
	}
	if ck, ok := req.(Checker); ok {
		fields = append(fields, ck.Check(today)...)
	}
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must not exceed %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must not exceed %s", fe.Field(), fe.Param())
	case "gt":
		return fe.Field() + " must be a positive integer"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "unique":
		return fe.Field() + " must not contain duplicates"
	case "datetime":
		switch fe.Param() {
		case model.DateLayout:
			return fe.Field() + " must be in YYYY-MM-DD format"
		case "15:04":
			return fe.Field() + " must be in HH:MM format"
		}
	}
	return fe.Field() + " is invalid"
}

// TextLength checks a trimmed string that is already known to be present.
func TextLength(field, value string, min, max int) []apperr.FieldError {
	n := len([]rune(strings.TrimSpace(value)))
	switch {
	case value == "":
		return nil
	case n < min:
		return []apperr.FieldError{{Field: field, Message: fmt.Sprintf("%s must be at least %d characters", field, min)}}
	case n > max:
		return []apperr.FieldError{{Field: field, Message: fmt.Sprintf("%s must not exceed %d characters", field, max)}}
	}
	return nil
}

// NotPast only reports dates that parsed.
func NotPast(field, value string, today model.Date) []apperr.FieldError {
	if d, err := model.ParseDate(value); err == nil && d.Before(today.Time) {
		return []apperr.FieldError{{Field: field, Message: "Date cannot be in the past"}}
	}
	return nil
}

// ClockOrder only reports when both times parsed.
func ClockOrder(start, end string) []apperr.FieldError {
	s, err1 := model.ParseClock(start)
	e, err2 := model.ParseClock(end)
	if err1 == nil && err2 == nil && e <= s {
		return []apperr.FieldError{{Field: "end_time", Message: "end_time must be after start_time"}}
	}
	return nil
}

// ParseDate returns the zero Date for values the tag rules already rejected.
func ParseDate(s string) model.Date {
	d, _ := model.ParseDate(s)
	return d
}

func ParseClock(s string) model.Clock {
	c, _ := model.ParseClock(s)
	return c
}

// DateRange resolves optional start/end dates: start defaults to today, end
// defaults to start.
func DateRange(start, end string, today model.Date) (model.Date, model.Date) {
	from := today
	if start != "" {
		from = ParseDate(start)
	}
	to := from
	if end != "" {
		to = ParseDate(end)
	}
	return from, to
}
