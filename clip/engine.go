// Package clip attaches files to documents.
//
// An Engine owns attachment slot definitions per document type. Defining a
// slot declares the metadata attributes the engine persists on the
// document (<slot>_file_name, <slot>_content_type, <slot>_file_size,
// <slot>_updated_at and, unless disabled, <slot>_fingerprint). Assigning
// content stores the bytes in a filestore.FileStore under an interpolated
// path and records the metadata.
package clip

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // fingerprint, not a security primitive
	"encoding/hex"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/code19m/errx"
	"github.com/gabriel-vasile/mimetype"

	"github.com/rise-and-shine/docclip/document"
	"github.com/rise-and-shine/docclip/filestore"
	"github.com/rise-and-shine/docclip/logger"
)

// Metadata attribute suffixes.
const (
	AttrFileName    = "file_name"
	AttrContentType = "content_type"
	AttrFileSize    = "file_size"
	AttrUpdatedAt   = "updated_at"
	AttrFingerprint = "fingerprint"
)

// AttributeName returns the document attribute holding attr for slot.
func AttributeName(slot, attr string) string {
	return slot + "_" + attr
}

type definitionKey struct {
	typ  *document.Type
	slot string
}

// Engine stores attachment content and maintains its metadata.
// It is safe for concurrent use.
type Engine struct {
	store        filestore.FileStore
	interpolator *Interpolator
	log          logger.Logger
	now          func() time.Time

	mu   sync.RWMutex
	defs map[definitionKey]Config
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The global logger is used by default.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithClock overrides the time source for <slot>_updated_at.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithInterpolator replaces the path template renderer.
func WithInterpolator(in *Interpolator) Option {
	return func(e *Engine) {
		e.interpolator = in
	}
}

// NewEngine returns an Engine writing to store.
func NewEngine(store filestore.FileStore, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		interpolator: NewInterpolator(),
		now:          time.Now,
		defs:         make(map[definitionKey]Config),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Named("clip")
	}
	return e
}

// Interpolator returns the path template renderer, e.g. to register tokens.
func (e *Engine) Interpolator() *Interpolator {
	return e.interpolator
}

// Define registers slot on typ and declares its metadata attributes.
// Defining an already defined slot keeps the first configuration.
func (e *Engine) Define(typ *document.Type, slot string, cfg Config) error {
	key := definitionKey{typ: typ, slot: slot}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.defs[key]; ok {
		return nil
	}

	fields := []document.Field{
		{Name: AttributeName(slot, AttrFileName), Kind: document.KindString},
		{Name: AttributeName(slot, AttrContentType), Kind: document.KindString},
		{Name: AttributeName(slot, AttrFileSize), Kind: document.KindInt},
		{Name: AttributeName(slot, AttrUpdatedAt), Kind: document.KindTime},
	}
	if !cfg.DisableFingerprint {
		fields = append(fields, document.Field{Name: AttributeName(slot, AttrFingerprint), Kind: document.KindString})
	}
	for _, f := range fields {
		if err := typ.DeclareField(f.Name, f.Kind); err != nil {
			return errx.Wrap(err)
		}
	}

	e.defs[key] = cfg
	e.log.With("type", typ.Name(), "slot", slot).Debug("attachment slot defined")
	return nil
}

// Defined returns the configuration of slot on typ.
func (e *Engine) Defined(typ *document.Type, slot string) (Config, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cfg, ok := e.defs[definitionKey{typ: typ, slot: slot}]
	return cfg, ok
}

// Attachment returns a read view of slot on doc.
func (e *Engine) Attachment(doc *document.Document, slot string) (*Attachment, error) {
	cfg, err := e.definition(doc, slot)
	if err != nil {
		return nil, err
	}
	return &Attachment{engine: e, doc: doc, slot: slot, cfg: cfg}, nil
}

// Assign stores u in slot of doc and updates the metadata attributes.
// A nil u clears the slot: the stored object is removed and the metadata
// attributes are unset. Storage errors are returned as is; on error the
// document attributes are left untouched.
func (e *Engine) Assign(ctx context.Context, doc *document.Document, slot string, u *Upload) error {
	att, err := e.Attachment(doc, slot)
	if err != nil {
		return err
	}
	if u == nil {
		return e.clear(ctx, att)
	}

	data, err := u.bytes()
	if err != nil {
		return err
	}
	name := u.fileName()
	contentType := u.ContentType
	if contentType == "" {
		contentType = detectContentType(data)
	}

	if err = att.cfg.checkContent(contentType, int64(len(data))); err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"slot": slot, "file_name": name}))
	}

	sum := md5.Sum(data) //nolint:gosec // fingerprint only
	fingerprint := hex.EncodeToString(sum[:])

	oldPath := att.Path()
	newPath := e.interpolator.Render(att.cfg.Path, att.subject(name, fingerprint))

	if _, err = e.store.Put(ctx, newPath, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return errx.Wrap(err)
	}
	if oldPath != "" && oldPath != newPath {
		if err = e.store.Delete(ctx, oldPath); err != nil {
			return errx.Wrap(err)
		}
	}

	attrs := map[string]any{
		AttrFileName:    name,
		AttrContentType: contentType,
		AttrFileSize:    int64(len(data)),
		AttrUpdatedAt:   e.now().UTC(),
	}
	if !att.cfg.DisableFingerprint {
		attrs[AttrFingerprint] = fingerprint
	}
	for attr, v := range attrs {
		if err = doc.Set(AttributeName(slot, attr), v); err != nil {
			return errx.Wrap(err)
		}
	}

	e.log.WithContext(ctx).
		With("type", doc.Type().Name(), "id", doc.ID(), "slot", slot, "path", newPath, "size", len(data)).
		Debug("attachment stored")
	return nil
}

func (e *Engine) clear(ctx context.Context, att *Attachment) error {
	if p := att.Path(); p != "" {
		if err := e.store.Delete(ctx, p); err != nil {
			return errx.Wrap(err)
		}
	}
	for _, attr := range []string{AttrFileName, AttrContentType, AttrFileSize, AttrUpdatedAt, AttrFingerprint} {
		att.doc.Unset(AttributeName(att.slot, attr))
	}

	e.log.WithContext(ctx).
		With("type", att.doc.Type().Name(), "id", att.doc.ID(), "slot", att.slot).
		Debug("attachment cleared")
	return nil
}

func (e *Engine) definition(doc *document.Document, slot string) (Config, error) {
	cfg, ok := e.Defined(doc.Type(), slot)
	if !ok {
		return Config{}, errx.New(
			"attachment slot is not defined",
			errx.WithCode(CodeAttachmentNotDefined),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"type": doc.Type().Name(), "slot": slot}),
		)
	}
	return cfg, nil
}

// detectContentType sniffs data and returns the media type without parameters.
func detectContentType(data []byte) string {
	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	mt = strings.TrimSpace(mt)
	if mt == "" {
		return filestore.ContentTypeOctetStream
	}
	return mt
}

func (c Config) checkContent(contentType string, size int64) error {
	if c.MaxSize > 0 && size > c.MaxSize {
		return errx.New(
			"file is too large",
			errx.WithCode(CodeFileTooLarge),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"size": size, "max_size": c.MaxSize}),
		)
	}
	if len(c.ContentTypes) == 0 {
		return nil
	}
	for _, pattern := range c.ContentTypes {
		if ok, _ := path.Match(pattern, contentType); ok {
			return nil
		}
	}
	return errx.New(
		"content type is not allowed",
		errx.WithCode(CodeUnsupportedContentType),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"content_type": contentType, "allowed": c.ContentTypes}),
	)
}
