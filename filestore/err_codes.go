package filestore

// Error codes for filestore operations.
const (
	// CodeFileNotFound is returned when no object exists at the requested path.
	CodeFileNotFound = "FILE_NOT_FOUND"

	// CodeInvalidPath is returned for empty or malformed object paths.
	CodeInvalidPath = "INVALID_FILE_PATH"
)
