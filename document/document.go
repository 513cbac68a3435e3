package document

import (
	"maps"
	"time"

	"github.com/spf13/cast"
)

// Document is one record of a Type. A Document is not safe for concurrent
// mutation; callers own their instances.
type Document struct {
	typ   *Type
	id    string
	attrs map[string]any
}

// ID returns the identifier in its canonical string form.
func (d *Document) ID() string {
	return d.id
}

// Type returns the owning type.
func (d *Document) Type() *Type {
	return d.typ
}

// Set stores value under name, coercing it when name is a declared field.
// A nil value removes the attribute.
func (d *Document) Set(name string, value any) error {
	if value == nil {
		delete(d.attrs, name)
		return nil
	}

	if f, ok := d.typ.Field(name); ok {
		v, err := f.Kind.coerce(name, value)
		if err != nil {
			return err
		}
		value = v
	}
	d.attrs[name] = value
	return nil
}

// Unset removes name.
func (d *Document) Unset(name string) {
	delete(d.attrs, name)
}

// Get returns the raw value of name.
func (d *Document) Get(name string) (any, bool) {
	v, ok := d.attrs[name]
	return v, ok
}

// String returns name as a string, or "" when absent. Undeclared attributes
// are converted on read, so values loaded before their field was declared
// still read correctly.
func (d *Document) String(name string) string {
	return cast.ToString(d.attrs[name])
}

// Int64 returns name as an int64, or 0 when absent.
func (d *Document) Int64(name string) int64 {
	return cast.ToInt64(d.attrs[name])
}

// Time returns name as a UTC time, or the zero time when absent.
func (d *Document) Time(name string) time.Time {
	v, ok := d.attrs[name]
	if !ok {
		return time.Time{}
	}
	return cast.ToTime(v).UTC()
}

// Map returns name as a map, or nil when absent.
func (d *Document) Map(name string) map[string]any {
	v, ok := d.attrs[name]
	if !ok {
		return nil
	}
	return cast.ToStringMap(v)
}

// Attributes returns a shallow copy of all attributes.
func (d *Document) Attributes() map[string]any {
	return maps.Clone(d.attrs)
}
