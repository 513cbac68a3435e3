// Package val validates decoded configuration and option structs.
package val

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator() //nolint:gochecknoglobals // validator caches struct metadata

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(tagName)
	_ = v.RegisterValidation("mimepattern", isMIMEPattern)
	return v
}

// tagName reports fields under the key users wrote them with: the
// mapstructure key, then the yaml key, then the Go field name.
func tagName(fld reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "yaml", "json"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0] //nolint:mnd // name,opts
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}
