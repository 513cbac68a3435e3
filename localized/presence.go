package localized

import (
	"slices"

	"github.com/code19m/errx"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// IndexAttribute is the document attribute holding the encoded PresenceIndex.
const IndexAttribute = "attachment_translations"

// PresenceIndex records, per localized field, the locales currently holding
// content. Locales keep first-seen order. The zero value is ready to use.
type PresenceIndex struct {
	locales map[string][]string
}

// NewPresenceIndex returns an empty index.
func NewPresenceIndex() *PresenceIndex {
	return &PresenceIndex{locales: make(map[string][]string)}
}

// Update records whether locale of field is occupied. An occupied locale is
// appended when missing; an unoccupied one is removed when present. It
// reports whether the index changed.
func (p *PresenceIndex) Update(field, locale string, occupied bool) bool {
	if p.locales == nil {
		p.locales = make(map[string][]string)
	}

	current := p.locales[field]
	has := lo.Contains(current, locale)

	switch {
	case occupied && !has:
		p.locales[field] = append(current, locale)
	case !occupied && has:
		rest := lo.Without(current, locale)
		if len(rest) == 0 {
			delete(p.locales, field)
		} else {
			p.locales[field] = rest
		}
	default:
		return false
	}
	return true
}

// Locales returns a copy of the locales recorded for field.
func (p *PresenceIndex) Locales(field string) []string {
	return slices.Clone(p.locales[field])
}

// Has reports whether locale of field is recorded.
func (p *PresenceIndex) Has(field, locale string) bool {
	return lo.Contains(p.locales[field], locale)
}

// Fields returns the fields with at least one recorded locale, sorted.
func (p *PresenceIndex) Fields() []string {
	fields := lo.Keys(p.locales)
	slices.Sort(fields)
	return fields
}

// Empty reports whether no locale is recorded.
func (p *PresenceIndex) Empty() bool {
	return len(p.locales) == 0
}

func (p *PresenceIndex) encode() map[string]any {
	out := make(map[string]any, len(p.locales))
	for field, locales := range p.locales {
		out[field] = slices.Clone(locales)
	}
	return out
}

// decodePresence accepts both the in-memory form ([]string values) and the
// form read back from JSON ([]any values).
func decodePresence(raw map[string]any) (*PresenceIndex, error) {
	p := NewPresenceIndex()
	for field, v := range raw {
		locales, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, errx.New(
				"presence index is malformed",
				errx.WithCode(CodeInvalidPresenceIndex),
				errx.WithType(errx.T_Internal),
				errx.WithDetails(errx.D{"field": field, "error": err.Error()}),
			)
		}
		locales = lo.Uniq(lo.Compact(locales))
		if len(locales) > 0 {
			p.locales[field] = locales
		}
	}
	return p, nil
}
