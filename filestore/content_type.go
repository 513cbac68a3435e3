package filestore

// Content types the attachment code refers to by name. Anything else is
// passed through as sniffed or declared by the uploader.
const (
	ContentTypePNG         = "image/png"
	ContentTypePDF         = "application/pdf"
	ContentTypeText        = "text/plain"
	ContentTypeOctetStream = "application/octet-stream"
)
