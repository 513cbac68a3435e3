package localized

import (
	"strings"

	"github.com/code19m/errx"
	"golang.org/x/text/language"

	"github.com/rise-and-shine/docclip/clip"
)

// NoLocale is the locale of the single slot of a non-localized field.
const NoLocale = ""

// FieldSpec is an attachment field declared on a document type.
type FieldSpec struct {
	Name      string
	Localized bool

	// Options are the declaration options without the localize key.
	Options Options

	// Config is Options as parsed by the attachment engine.
	Config clip.Config
}

// Slot is the concrete storage unit for one (field, locale) pair. Name is the
// attachment engine slot, which prefixes the metadata attributes.
type Slot struct {
	Field  string
	Locale string
	Name   string
}

type slotKey struct {
	field  string
	locale string
}

// slotName returns the engine slot of field for locale. Hyphens of the tag
// become underscores so the name stays a valid attribute prefix:
// ("avatar", "en-US") becomes "avatar_en_us".
func slotName(field, locale string) string {
	if locale == NoLocale {
		return field
	}
	return field + "_" + strings.ToLower(strings.ReplaceAll(locale, "-", "_"))
}

// canonicalLocale validates locale as a BCP 47 tag and returns its
// canonical form ("EN-us" becomes "en-US").
func canonicalLocale(locale string) (string, error) {
	trimmed := strings.TrimSpace(locale)
	if trimmed == "" {
		return "", invalidLocale(locale, "locale is empty")
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", invalidLocale(locale, err.Error())
	}
	if tag == language.Und {
		return "", invalidLocale(locale, "locale is undetermined")
	}
	return tag.String(), nil
}

func invalidLocale(locale, reason string) error {
	return errx.New(
		"invalid locale",
		errx.WithCode(CodeInvalidLocale),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"locale": locale, "reason": reason}),
	)
}
