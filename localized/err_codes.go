package localized

import (
	"github.com/code19m/errx"

	"github.com/rise-and-shine/docclip/clip"
)

// Error codes for registry operations.
const (
	// CodeFieldNotDeclared is returned when an attachment field is used before Declare.
	CodeFieldNotDeclared = "FIELD_NOT_DECLARED"

	// CodeFieldRedeclared is returned when a field is declared again with a different localize flag.
	CodeFieldRedeclared = "FIELD_REDECLARED"

	// CodeFieldNotLocalized is returned by per-locale bulk writes on a non-localized field.
	CodeFieldNotLocalized = "FIELD_NOT_LOCALIZED"

	// CodeSlotNameConflict is returned when two (field, locale) pairs of a type map to the same slot name.
	CodeSlotNameConflict = "SLOT_NAME_CONFLICT"

	// CodeInvalidLocale is returned when a locale is not a valid BCP 47 tag.
	CodeInvalidLocale = "INVALID_LOCALE"

	// CodeInvalidPresenceIndex is returned when the persisted presence index cannot be decoded.
	CodeInvalidPresenceIndex = "INVALID_PRESENCE_INDEX"
)

// IsConfigurationError reports whether err was caused by an invalid field
// declaration or by using an undeclared field.
func IsConfigurationError(err error) bool {
	return errx.IsCodeIn(err,
		clip.CodeInvalidOptions,
		CodeFieldNotDeclared,
		CodeFieldRedeclared,
		CodeFieldNotLocalized,
		CodeSlotNameConflict,
	)
}

// IsTypeError reports whether err was caused by an invalid content handle or
// locale identifier passed to a write.
func IsTypeError(err error) bool {
	return errx.IsCodeIn(err, clip.CodeInvalidContent, CodeInvalidLocale)
}

func configurationError(code, msg string, details errx.D) error {
	return errx.New(msg, errx.WithCode(code), errx.WithType(errx.T_Validation), errx.WithDetails(details))
}
