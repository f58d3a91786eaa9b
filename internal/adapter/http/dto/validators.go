package dto

import (
	"html"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	collateralIDRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.:]+$`)
	principalRe    = regexp.MustCompile(`^[a-zA-Z0-9_\-\.:@]{1,128}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("collateral_id", validateCollateralID)
		_ = v.RegisterValidation("principal", validatePrincipal)
	}
}

// validateCollateralID allows alphanumeric, underscore, dash, dot and colon.
func validateCollateralID(fl validator.FieldLevel) bool {
	return collateralIDRe.MatchString(fl.Field().String())
}

func validatePrincipal(fl validator.FieldLevel) bool {
	return ValidPrincipal(fl.Field().String())
}

// ValidCollateralID reports whether s can be one half of a collateral key.
func ValidCollateralID(s string) bool {
	return len(s) <= 128 && collateralIDRe.MatchString(s)
}

// ValidPrincipal reports whether s is an acceptable principal identifier.
func ValidPrincipal(s string) bool {
	return principalRe.MatchString(s)
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			if elem := f.Elem(); elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
