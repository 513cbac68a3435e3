package pgstore

// Error codes for document persistence.
const (
	// CodeDocumentNotFound is returned when no document of the type has the id.
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"

	// CodeDocumentTypeMismatch is returned when saving over a document of another type.
	CodeDocumentTypeMismatch = "DOCUMENT_TYPE_MISMATCH"
)
