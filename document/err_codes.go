package document

// Error codes for document operations.
const (
	// CodeFieldKindConflict is returned when a field is re-declared with a different kind.
	CodeFieldKindConflict = "FIELD_KIND_CONFLICT"

	// CodeInvalidFieldName is returned for empty field names.
	CodeInvalidFieldName = "INVALID_FIELD_NAME"

	// CodeInvalidAttribute is returned when a value cannot be coerced to the declared kind.
	CodeInvalidAttribute = "INVALID_ATTRIBUTE"

	// CodeInvalidID is returned when a document is loaded without an identifier.
	CodeInvalidID = "INVALID_DOCUMENT_ID"
)
