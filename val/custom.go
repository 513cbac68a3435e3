package val

import (
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
)

// isMIMEPattern accepts "type/subtype" values where either part may be a
// path.Match pattern, e.g. "image/*".
func isMIMEPattern(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	major, minor, ok := strings.Cut(v, "/")
	if !ok || major == "" || minor == "" || strings.Contains(minor, "/") {
		return false
	}
	_, err := path.Match(v, "x/x")
	return err == nil
}
