package clip

import (
	"context"
	"time"

	"github.com/code19m/errx"

	"github.com/rise-and-shine/docclip/document"
	"github.com/rise-and-shine/docclip/filestore"
)

// Attachment is a read view of one slot on one document. It reflects the
// document attributes at the time of each call.
type Attachment struct {
	engine *Engine
	doc    *document.Document
	slot   string
	cfg    Config
}

// Slot returns the slot name.
func (a *Attachment) Slot() string { return a.slot }

// Present reports whether the slot currently holds content.
func (a *Attachment) Present() bool {
	return a.FileName() != ""
}

// FileName returns the original file name, or "" when the slot is empty.
func (a *Attachment) FileName() string {
	return a.doc.String(AttributeName(a.slot, AttrFileName))
}

// ContentType returns the stored MIME type.
func (a *Attachment) ContentType() string {
	return a.doc.String(AttributeName(a.slot, AttrContentType))
}

// Size returns the content length in bytes.
func (a *Attachment) Size() int64 {
	return a.doc.Int64(AttributeName(a.slot, AttrFileSize))
}

// UpdatedAt returns the time of the last assignment in UTC.
func (a *Attachment) UpdatedAt() time.Time {
	return a.doc.Time(AttributeName(a.slot, AttrUpdatedAt))
}

// Fingerprint is the MD5 hex digest of the content, or "" when disabled.
func (a *Attachment) Fingerprint() string {
	return a.doc.String(AttributeName(a.slot, AttrFingerprint))
}

// Path returns the storage path of the content, or "" when absent.
func (a *Attachment) Path() string {
	if !a.Present() {
		return ""
	}
	return a.engine.interpolator.Render(a.cfg.Path, a.subject(a.FileName(), a.Fingerprint()))
}

// Open returns the stored content. The caller must close File.Content.
func (a *Attachment) Open(ctx context.Context) (*filestore.File, error) {
	if !a.Present() {
		return nil, a.notFound()
	}
	f, err := a.engine.store.Get(ctx, a.Path())
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return f, nil
}

// URL returns a URL granting read access to the content for expiry.
func (a *Attachment) URL(ctx context.Context, expiry time.Duration) (string, error) {
	if !a.Present() {
		return "", a.notFound()
	}
	u, err := a.engine.store.URL(ctx, a.Path(), expiry)
	if err != nil {
		return "", errx.Wrap(err)
	}
	return u, nil
}

func (a *Attachment) subject(fileName, fingerprint string) Subject {
	return Subject{
		Class:       a.doc.Type().Name(),
		Attachment:  a.slot,
		ID:          a.doc.ID(),
		FileName:    fileName,
		Fingerprint: fingerprint,
	}
}

func (a *Attachment) notFound() error {
	return errx.New(
		"attachment is empty",
		errx.WithCode(filestore.CodeFileNotFound),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(errx.D{"slot": a.slot, "id": a.doc.ID()}),
	)
}
