// Package document is a small schemaless document mapper.
//
// A Type groups documents of the same shape. Attributes may be declared on a
// Type with a Kind, in which case values are coerced on every write and on
// load; undeclared attributes are stored as given. Types also carry post-load
// hooks and named extensions so that other packages can attach behaviour
// without wrapping the Type.
package document

import (
	"context"
	"sync"

	"github.com/code19m/errx"
	"github.com/google/uuid"
)

// Field is a declared attribute.
type Field struct {
	Name string
	Kind Kind
}

// Hook runs on every document after it is populated from storage.
type Hook func(ctx context.Context, doc *Document) error

// Type describes a family of documents. It is safe for concurrent use.
type Type struct {
	name string

	mu         sync.RWMutex
	fields     []Field
	fieldIndex map[string]int
	hooks      []Hook
	extensions map[string]any
}

// NewType returns a Type without declared fields.
func NewType(name string) *Type {
	return &Type{
		name:       name,
		fieldIndex: make(map[string]int),
		extensions: make(map[string]any),
	}
}

// Name returns the type name, used as the collection or table discriminator.
func (t *Type) Name() string {
	return t.name
}

// DeclareField adds a typed attribute. Declaring the same name with the same
// kind again is a no-op.
func (t *Type) DeclareField(name string, kind Kind) error {
	if name == "" {
		return errx.New("field name is empty", errx.WithCode(CodeInvalidFieldName), errx.WithType(errx.T_Validation))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.fieldIndex[name]; ok {
		if t.fields[i].Kind == kind {
			return nil
		}
		return errx.New(
			"field already declared with another kind",
			errx.WithCode(CodeFieldKindConflict),
			errx.WithType(errx.T_Conflict),
			errx.WithDetails(errx.D{
				"type":     t.name,
				"field":    name,
				"declared": t.fields[i].Kind.String(),
				"wanted":   kind.String(),
			}),
		)
	}

	t.fieldIndex[name] = len(t.fields)
	t.fields = append(t.fields, Field{Name: name, Kind: kind})
	return nil
}

// Field returns the declaration of name.
func (t *Type) Field(name string) (Field, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	i, ok := t.fieldIndex[name]
	if !ok {
		return Field{}, false
	}
	return t.fields[i], true
}

// Fields returns all declarations in declaration order.
func (t *Type) Fields() []Field {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Field, len(t.fields))
	copy(out, t.fields)
	return out
}

// OnLoad registers a post-load hook. Hooks run in registration order.
func (t *Type) OnLoad(h Hook) {
	t.mu.Lock()
	t.hooks = append(t.hooks, h)
	t.mu.Unlock()
}

// Extension returns the value stored under key.
func (t *Type) Extension(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.extensions[key]
	return v, ok
}

// ExtensionOrStore returns the existing value for key if present. Otherwise
// it stores v and returns it. The loaded result reports whether the value
// was already there.
func (t *Type) ExtensionOrStore(key string, v any) (actual any, loaded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.extensions[key]; ok {
		return existing, true
	}
	t.extensions[key] = v
	return v, false
}

// New returns an empty document with a freshly generated identifier.
func (t *Type) New() *Document {
	return &Document{typ: t, id: uuid.NewString(), attrs: make(map[string]any)}
}

// Load builds a document from stored attributes and runs the post-load
// hooks. The first failing hook aborts the load.
func (t *Type) Load(ctx context.Context, id string, attrs map[string]any) (*Document, error) {
	if id == "" {
		return nil, errx.New(
			"document id is empty",
			errx.WithCode(CodeInvalidID),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"type": t.name}),
		)
	}

	doc := &Document{typ: t, id: id, attrs: make(map[string]any, len(attrs))}
	for k, v := range attrs {
		if err := doc.Set(k, v); err != nil {
			return nil, errx.Wrap(err, errx.WithDetails(errx.D{"id": id}))
		}
	}

	t.mu.RLock()
	hooks := make([]Hook, len(t.hooks))
	copy(hooks, t.hooks)
	t.mu.RUnlock()

	for _, h := range hooks {
		if err := h(ctx, doc); err != nil {
			return nil, errx.Wrap(err, errx.WithDetails(errx.D{"type": t.name, "id": id}))
		}
	}
	return doc, nil
}
