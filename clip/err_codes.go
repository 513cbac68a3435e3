package clip

// Error codes for attachment operations.
const (
	// CodeInvalidOptions is returned when attachment options are unknown or invalid.
	CodeInvalidOptions = "INVALID_ATTACHMENT_OPTIONS"

	// CodeInvalidContent is returned when an upload handle cannot be read as file content.
	CodeInvalidContent = "INVALID_CONTENT"

	// CodeUnsupportedContentType is returned when content does not match the allowed content types.
	CodeUnsupportedContentType = "UNSUPPORTED_CONTENT_TYPE"

	// CodeFileTooLarge is returned when content exceeds the configured maximum size.
	CodeFileTooLarge = "FILE_TOO_LARGE"

	// CodeAttachmentNotDefined is returned when a slot is used before Engine.Define.
	CodeAttachmentNotDefined = "ATTACHMENT_NOT_DEFINED"
)
