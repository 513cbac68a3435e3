// Package localized keeps per-locale attachments on documents.
//
// A field declared with localize=true has one attachment slot per locale,
// materialised on first use and shared by every document of the type. Each
// document carries a presence index, persisted as the attachment_translations
// attribute, listing the locales that currently hold content. The index is
// updated after every write and drives slot resolution when a document is
// loaded.
package localized

import (
	"context"
	"maps"
	"sync"

	"github.com/code19m/errx"
	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rise-and-shine/docclip/clip"
	"github.com/rise-and-shine/docclip/document"
	"github.com/rise-and-shine/docclip/logger"
	"github.com/rise-and-shine/docclip/meta"
)

// OptionLocalize is the declaration option enabling per-locale slots.
const OptionLocalize = "localize"

const extensionKey = "localized.registration"

// Options are field declaration options. Keys other than "localize" are
// passed to the attachment engine.
type Options map[string]any

// registration is the registry state of one document type.
type registration struct {
	mu        sync.RWMutex
	specs     map[string]FieldSpec
	order     []string
	slots     map[slotKey]Slot
	slotOrder []slotKey
	owners    map[string]slotKey
	hooked    bool
}

// Registry declares attachment fields and routes reads and writes to the
// attachment engine. It is safe for concurrent use.
type Registry struct {
	engine        *clip.Engine
	defaultLocale string
	log           logger.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultLocale sets the locale used by GetCurrent and SetCurrent when
// the context carries none. Defaults to "en".
func WithDefaultLocale(locale string) Option {
	return func(r *Registry) {
		r.defaultLocale = locale
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		r.log = l
	}
}

// New returns a Registry backed by engine.
func New(engine *clip.Engine, opts ...Option) (*Registry, error) {
	r := &Registry{engine: engine, defaultLocale: "en"}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Named("localized")
	}

	locale, err := canonicalLocale(r.defaultLocale)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"option": "default_locale"}))
	}
	r.defaultLocale = locale
	return r, nil
}

// DefaultLocale returns the canonical fallback locale.
func (r *Registry) DefaultLocale() string {
	return r.defaultLocale
}

// Declare registers attachment field name on typ.
//
// A non-localized field gets a single engine slot named name at once. A
// localized field only records its spec; slots are created by Resolve. The
// first localized field of a type also declares the presence index
// attribute and installs the load hook. Declaring the same field again is a
// no-op unless the localize flag differs.
func (r *Registry) Declare(typ *document.Type, name string, opts Options) error {
	if name == "" {
		return configurationError(clip.CodeInvalidOptions, "attachment field name is empty", errx.D{"type": typ.Name()})
	}

	localize, rest, err := splitOptions(opts)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"type": typ.Name(), "field": name}))
	}
	cfg, err := clip.ParseOptions(rest)
	if err != nil {
		return errx.Wrap(err, errx.WithDetails(errx.D{"type": typ.Name(), "field": name}))
	}

	reg := registrationOf(typ)
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if existing, ok := reg.specs[name]; ok {
		if existing.Localized != localize {
			return configurationError(
				CodeFieldRedeclared,
				"attachment field already declared with another localize flag",
				errx.D{"type": typ.Name(), "field": name, "localized": existing.Localized},
			)
		}
		return nil
	}

	spec := FieldSpec{Name: name, Localized: localize, Options: rest, Config: cfg}

	if localize {
		if err = typ.DeclareField(IndexAttribute, document.KindMap); err != nil {
			return errx.Wrap(err)
		}
		if !reg.hooked {
			typ.OnLoad(r.onLoad)
			reg.hooked = true
		}
	} else {
		if err = reg.claim(typ, Slot{Field: name, Locale: NoLocale, Name: name}); err != nil {
			return err
		}
		if err = r.engine.Define(typ, name, cfg); err != nil {
			return errx.Wrap(err)
		}
		reg.addSlot(Slot{Field: name, Locale: NoLocale, Name: name})
	}

	reg.specs[name] = spec
	reg.order = append(reg.order, name)

	r.log.With("type", typ.Name(), "field", name, "localized", localize).Debug("attachment field declared")
	return nil
}

// Fields returns the declared fields of typ in declaration order.
func (r *Registry) Fields(typ *document.Type) []FieldSpec {
	reg := registrationOf(typ)
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]FieldSpec, 0, len(reg.order))
	for _, name := range reg.order {
		out = append(out, reg.specs[name])
	}
	return out
}

// Field returns the declaration of name on typ.
func (r *Registry) Field(typ *document.Type, name string) (FieldSpec, bool) {
	reg := registrationOf(typ)
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	spec, ok := reg.specs[name]
	return spec, ok
}

// Resolve returns the slot of field for locale on typ, defining it with the
// attachment engine on first use. Locale is ignored for non-localized
// fields. Concurrent first calls define the slot once.
func (r *Registry) Resolve(typ *document.Type, field, locale string) (Slot, error) {
	reg := registrationOf(typ)

	reg.mu.RLock()
	spec, ok := reg.specs[field]
	reg.mu.RUnlock()
	if !ok {
		return Slot{}, configurationError(
			CodeFieldNotDeclared,
			"attachment field is not declared",
			errx.D{"type": typ.Name(), "field": field},
		)
	}
	if !spec.Localized {
		return Slot{Field: field, Locale: NoLocale, Name: field}, nil
	}

	canonical, err := canonicalLocale(locale)
	if err != nil {
		return Slot{}, errx.Wrap(err, errx.WithDetails(errx.D{"field": field}))
	}
	key := slotKey{field: field, locale: canonical}

	reg.mu.RLock()
	slot, ok := reg.slots[key]
	reg.mu.RUnlock()
	if ok {
		return slot, nil
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if slot, ok = reg.slots[key]; ok {
		return slot, nil
	}

	slot = Slot{Field: field, Locale: canonical, Name: slotName(field, canonical)}
	if err = reg.claim(typ, slot); err != nil {
		return Slot{}, err
	}
	if err = r.engine.Define(typ, slot.Name, spec.Config); err != nil {
		return Slot{}, errx.Wrap(err, errx.WithDetails(errx.D{"field": field, "locale": canonical}))
	}
	reg.addSlot(slot)

	r.log.With("type", typ.Name(), "field", field, "locale", canonical, "slot", slot.Name).
		Debug("locale slot materialised")
	return slot, nil
}

// Slots returns every slot resolved on typ so far, in resolution order.
func (r *Registry) Slots(typ *document.Type) []Slot {
	reg := registrationOf(typ)
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	out := make([]Slot, 0, len(reg.slotOrder))
	for _, key := range reg.slotOrder {
		out = append(out, reg.slots[key])
	}
	return out
}

// Get returns the attachment of field for locale on doc. The attachment may
// be empty.
func (r *Registry) Get(_ context.Context, doc *document.Document, field, locale string) (*clip.Attachment, error) {
	slot, err := r.Resolve(doc.Type(), field, locale)
	if err != nil {
		return nil, err
	}
	return r.engine.Attachment(doc, slot.Name)
}

// Set assigns content to field for locale on doc and updates the presence
// index. A nil content clears the slot. The content is returned unchanged.
// Engine errors are returned as is and leave the index untouched.
func (r *Registry) Set(
	ctx context.Context,
	doc *document.Document,
	field, locale string,
	content *clip.Upload,
) (*clip.Upload, error) {
	slot, err := r.Resolve(doc.Type(), field, locale)
	if err != nil {
		return nil, err
	}

	if err = r.engine.Assign(ctx, doc, slot.Name, content); err != nil {
		return nil, err
	}

	if slot.Locale == NoLocale {
		return content, nil
	}

	att, err := r.engine.Attachment(doc, slot.Name)
	if err != nil {
		return nil, err
	}

	idx, err := r.Presence(doc)
	if err != nil {
		return nil, err
	}
	if idx.Update(slot.Field, slot.Locale, att.Present()) {
		if err = storePresence(doc, idx); err != nil {
			return nil, err
		}
	}
	return content, nil
}

// GetCurrent is Get with the locale taken from ctx, falling back to the
// default locale.
func (r *Registry) GetCurrent(ctx context.Context, doc *document.Document, field string) (*clip.Attachment, error) {
	return r.Get(ctx, doc, field, r.currentLocale(ctx))
}

// SetCurrent is Set with the locale taken from ctx, falling back to the
// default locale.
func (r *Registry) SetCurrent(
	ctx context.Context,
	doc *document.Document,
	field string,
	content *clip.Upload,
) (*clip.Upload, error) {
	return r.Set(ctx, doc, field, r.currentLocale(ctx), content)
}

// SetTranslations applies Set for every entry in insertion order and stops
// at the first failure. Entries applied before the failure stay applied.
func (r *Registry) SetTranslations(
	ctx context.Context,
	doc *document.Document,
	field string,
	entries *orderedmap.OrderedMap[string, *clip.Upload],
) error {
	spec, ok := r.Field(doc.Type(), field)
	if !ok {
		return configurationError(
			CodeFieldNotDeclared,
			"attachment field is not declared",
			errx.D{"type": doc.Type().Name(), "field": field},
		)
	}
	if !spec.Localized {
		return configurationError(
			CodeFieldNotLocalized,
			"attachment field is not localized",
			errx.D{"type": doc.Type().Name(), "field": field},
		)
	}
	if entries == nil {
		return nil
	}

	for pair := entries.Oldest(); pair != nil; pair = pair.Next() {
		if _, err := r.Set(ctx, doc, field, pair.Key, pair.Value); err != nil {
			return errx.Wrap(err, errx.WithDetails(errx.D{"locale": pair.Key}))
		}
	}
	return nil
}

// Translations returns the locales of field holding content on doc, in
// first-seen order.
func (r *Registry) Translations(doc *document.Document, field string) ([]string, error) {
	idx, err := r.Presence(doc)
	if err != nil {
		return nil, err
	}
	return idx.Locales(field), nil
}

// Presence decodes the presence index of doc.
func (r *Registry) Presence(doc *document.Document) (*PresenceIndex, error) {
	return decodePresence(doc.Map(IndexAttribute))
}

// onLoad resolves the slot of every locale recorded in the presence index so
// that stored content stays reachable after a reload.
func (r *Registry) onLoad(ctx context.Context, doc *document.Document) error {
	idx, err := r.Presence(doc)
	if err != nil {
		return err
	}

	for _, field := range idx.Fields() {
		spec, ok := r.Field(doc.Type(), field)
		if !ok || !spec.Localized {
			r.log.WithContext(ctx).
				With("type", doc.Type().Name(), "id", doc.ID(), "field", field).
				Warn("presence index references an unknown localized field")
			continue
		}
		for _, locale := range idx.Locales(field) {
			if _, err = r.Resolve(doc.Type(), field, locale); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) currentLocale(ctx context.Context) string {
	if locale := meta.Locale(ctx); locale != "" {
		return locale
	}
	return r.defaultLocale
}

// claim fails when the engine slot of slot is already owned by another
// (field, locale) pair of typ. Callers hold reg.mu.
func (reg *registration) claim(typ *document.Type, slot Slot) error {
	owner, ok := reg.owners[slot.Name]
	if !ok || owner == (slotKey{field: slot.Field, locale: slot.Locale}) {
		return nil
	}
	return configurationError(
		CodeSlotNameConflict,
		"attachment slot name is already used by another field",
		errx.D{
			"type":         typ.Name(),
			"slot":         slot.Name,
			"field":        slot.Field,
			"locale":       slot.Locale,
			"owner_field":  owner.field,
			"owner_locale": owner.locale,
		},
	)
}

func (reg *registration) addSlot(slot Slot) {
	key := slotKey{field: slot.Field, locale: slot.Locale}
	reg.slots[key] = slot
	reg.slotOrder = append(reg.slotOrder, key)
	reg.owners[slot.Name] = key
}

func registrationOf(typ *document.Type) *registration {
	if v, ok := typ.Extension(extensionKey); ok {
		return v.(*registration) //nolint:forcetypeassert // only this package stores under extensionKey
	}
	v, _ := typ.ExtensionOrStore(extensionKey, &registration{
		specs:  make(map[string]FieldSpec),
		slots:  make(map[slotKey]Slot),
		owners: make(map[string]slotKey),
	})
	return v.(*registration) //nolint:forcetypeassert // only this package stores under extensionKey
}

func storePresence(doc *document.Document, idx *PresenceIndex) error {
	if idx.Empty() {
		doc.Unset(IndexAttribute)
		return nil
	}
	if err := doc.Set(IndexAttribute, idx.encode()); err != nil {
		return errx.Wrap(err)
	}
	return nil
}

// splitOptions separates the localize flag from the engine options.
func splitOptions(opts Options) (bool, map[string]any, error) {
	rest := maps.Clone(map[string]any(opts))
	if rest == nil {
		rest = map[string]any{}
	}

	raw, ok := rest[OptionLocalize]
	if !ok {
		return false, rest, nil
	}
	delete(rest, OptionLocalize)

	localize, err := cast.ToBoolE(raw)
	if err != nil {
		return false, nil, configurationError(
			clip.CodeInvalidOptions,
			"invalid attachment options: localize must be a boolean",
			errx.D{"localize": raw},
		)
	}
	return localize, rest, nil
}
