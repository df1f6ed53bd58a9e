// Package validation checks request bodies against the rule sets declared in
// `validate` struct tags and rejects bad input before it reaches a handler.
package validation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"blog-api/httpx"

	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// Validator evaluates struct-tag rules and reports violations per field
type Validator struct {
	validate *validator.Validate
}

// New builds a validator that names fields by their JSON keys
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Accept absolute URLs as well as server-relative paths such as /upload/a.png
	_ = v.RegisterValidation("urlorpath", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
			return true
		}
		u, err := url.ParseRequestURI(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	})
	return &Validator{validate: v}
}

// Struct returns every rule violation in v, or nil when v is valid
func (v *Validator) Struct(s any) []httpx.FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []httpx.FieldError{{Field: "body", Message: err.Error()}}
	}

	fields := make([]httpx.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, httpx.FieldError{
			Field:   fieldPath(fe),
			Message: message(fe),
		})
	}
	return fields
}

// fieldPath drops the top-level struct name from the namespace, e.g. "PostRequest.tags[1]" -> "tags[1]"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "url", "urlorpath":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

var std = New()

type bodyKey struct{}

// Normalizer is implemented by request bodies that canonicalise input (trim,
// lowercase) before their rules are checked.
type Normalizer interface {
	Normalize()
}

// Body decodes the JSON request body into a T, normalizes and validates it and makes it
// available to the next handler through BodyFrom. Invalid requests get a 400
// listing every violation and never reach next.
func Body[T any](next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body T

		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&body); err != nil {
			httpx.WriteValidationError(w, []httpx.FieldError{{Field: "body", Message: "must be a valid JSON object"}})
			return
		}

		if n, ok := any(&body).(Normalizer); ok {
			n.Normalize()
		}

		if fields := std.Struct(&body); len(fields) > 0 {
			httpx.WriteValidationError(w, fields)
			return
		}

		ctx := context.WithValue(r.Context(), bodyKey{}, &body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BodyFrom returns the body validated by Body[T]
func BodyFrom[T any](ctx context.Context) (*T, bool) {
	body, ok := ctx.Value(bodyKey{}).(*T)
	return body, ok
}
