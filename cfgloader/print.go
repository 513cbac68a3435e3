package cfgloader

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const maskTag = "mask"

func printConfig(env string, cfg any) {
	flat := Flatten(cfg)

	var b strings.Builder
	for pair := flat.Oldest(); pair != nil; pair = pair.Next() {
		fmt.Fprintf(&b, "\n  %s: %v", pair.Key, pair.Value)
	}
	slog.Info(fmt.Sprintf("[cfgloader]: loaded %s config:%s", env, b.String()))
}

// Flatten returns the fields of cfg keyed by dotted yaml names in
// declaration order. Nested structs are expanded and fields tagged
// `mask:"true"` have non-zero values replaced by a placeholder. Fields
// tagged yaml:"-" are skipped.
func Flatten(cfg any) *orderedmap.OrderedMap[string, any] {
	om := orderedmap.New[string, any]()
	if cfg == nil {
		return om
	}
	flatten(om, reflect.ValueOf(cfg), "")
	return om
}

func flatten(om *orderedmap.OrderedMap[string, any], val reflect.Value, prefix string) {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			om.Set(prefix, nil)
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		om.Set(prefix, val.Interface())
		return
	}

	typ := val.Type()
	for i := range val.NumField() {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		name, skip := yamlName(sf)
		if skip {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		field := val.Field(i)
		switch {
		case strings.EqualFold(sf.Tag.Get(maskTag), "true"):
			om.Set(name, masked(field))
		case field.Kind() == reflect.Struct && !isLeaf(field),
			field.Kind() == reflect.Pointer && !field.IsNil() && field.Elem().Kind() == reflect.Struct:
			flatten(om, field, name)
		default:
			om.Set(name, field.Interface())
		}
	}
}

// isLeaf reports whether v prints better as a value than expanded, such
// as time.Time.
func isLeaf(v reflect.Value) bool {
	_, ok := v.Interface().(fmt.Stringer)
	return ok
}

func masked(v reflect.Value) any {
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Slice || v.Kind() == reflect.Map) && v.IsNil() {
		return nil
	}
	if v.IsZero() {
		return v.Interface()
	}
	return "***"
}

func yamlName(sf reflect.StructField) (string, bool) {
	tag, ok := sf.Tag.Lookup("yaml")
	if !ok {
		return sf.Name, false
	}
	if tag == "-" {
		return "", true
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name, false
	}
	return name, false
}
