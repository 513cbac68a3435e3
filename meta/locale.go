package meta

import (
	"context"

	"golang.org/x/text/language"
)

// WithLocale returns a copy of ctx whose active locale is locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, AcceptLanguage, locale)
}

// Locale returns the highest-priority concrete locale found in ctx,
// canonicalized as a BCP 47 tag. Wildcards ("*") are skipped. It returns ""
// when ctx carries no usable locale.
func Locale(ctx context.Context) string {
	raw := Find(ctx, AcceptLanguage)
	if raw == "" {
		return ""
	}

	tags, _, err := language.ParseAcceptLanguage(raw)
	if err != nil {
		return ""
	}
	for _, tag := range tags {
		if tag == language.Und || tag == wildcard {
			continue
		}
		return tag.String()
	}
	return ""
}

// wildcard is the tag ParseAcceptLanguage yields for "*".
var wildcard = language.Make("mul")
