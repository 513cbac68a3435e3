package document

import (
	"time"

	"github.com/code19m/errx"
	"github.com/spf13/cast"
)

// Kind is the persisted type of a declared attribute.
type Kind int

const (
	KindString Kind = iota + 1
	KindInt
	KindTime
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindTime:
		return "time"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// coerce converts v to the Go representation of k: string, int64,
// time.Time or map[string]any. Values decoded from JSON (float64 numbers,
// RFC 3339 strings, nested maps) are accepted.
func (k Kind) coerce(field string, v any) (any, error) {
	var (
		out any
		err error
	)
	switch k {
	case KindString:
		out, err = cast.ToStringE(v)
	case KindInt:
		out, err = cast.ToInt64E(v)
	case KindTime:
		var t time.Time
		t, err = cast.ToTimeE(v)
		out = t.UTC()
	case KindMap:
		out, err = cast.ToStringMapE(v)
	default:
		return v, nil
	}
	if err != nil {
		return nil, errx.New(
			"attribute value does not match declared kind",
			errx.WithCode(CodeInvalidAttribute),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"field": field, "kind": k.String(), "error": err.Error()}),
		)
	}
	return out, nil
}
