package localized_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rise-and-shine/docclip/clip"
	"github.com/rise-and-shine/docclip/document"
	"github.com/rise-and-shine/docclip/filestore"
	"github.com/rise-and-shine/docclip/filestore/memfs"
	"github.com/rise-and-shine/docclip/localized"
	"github.com/rise-and-shine/docclip/logger"
	"github.com/rise-and-shine/docclip/meta"
)

type fixture struct {
	store    *memfs.Store
	engine   *clip.Engine
	registry *localized.Registry
	typ      *document.Type
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memfs.New()
	engine := clip.NewEngine(store, clip.WithLogger(logger.Nop()))
	registry, err := localized.New(engine, localized.WithLogger(logger.Nop()))
	require.NoError(t, err)

	return &fixture{store: store, engine: engine, registry: registry, typ: document.NewType("users")}
}

func pngUpload(t *testing.T, name string, c color.Color) *clip.Upload {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, c)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return clip.UploadBytes(name, buf.Bytes())
}

func TestNewRejectsInvalidDefaultLocale(t *testing.T) {
	engine := clip.NewEngine(memfs.New(), clip.WithLogger(logger.Nop()))

	_, err := localized.New(engine, localized.WithDefaultLocale("not a locale"), localized.WithLogger(logger.Nop()))
	require.Error(t, err)
	assert.True(t, localized.IsTypeError(err))

	r, err := localized.New(engine, localized.WithDefaultLocale("EN-us"), localized.WithLogger(logger.Nop()))
	require.NoError(t, err)
	assert.Equal(t, "en-US", r.DefaultLocale())
}

func TestDeclareNonLocalized(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.registry.Declare(f.typ, "avatar", nil))

	names := make([]string, 0)
	for _, fd := range f.typ.Fields() {
		names = append(names, fd.Name)
	}
	assert.Equal(t, []string{
		"avatar_file_name",
		"avatar_content_type",
		"avatar_file_size",
		"avatar_updated_at",
		"avatar_fingerprint",
	}, names)

	spec, ok := f.registry.Field(f.typ, "avatar")
	require.True(t, ok)
	assert.False(t, spec.Localized)
	assert.Equal(t, clip.DefaultPath, spec.Config.Path)

	assert.Equal(t, []localized.Slot{{Field: "avatar", Locale: localized.NoLocale, Name: "avatar"}}, f.registry.Slots(f.typ))
}

func TestDeclareLocalizedDefersSlots(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.registry.Declare(f.typ, "manual", localized.Options{"localize": true, "disable_fingerprint": true}))

	assert.Equal(t, []document.Field{{Name: localized.IndexAttribute, Kind: document.KindMap}}, f.typ.Fields())
	assert.Empty(t, f.registry.Slots(f.typ))

	spec, ok := f.registry.Field(f.typ, "manual")
	require.True(t, ok)
	assert.True(t, spec.Localized)
	assert.True(t, spec.Config.DisableFingerprint)
	assert.Equal(t, localized.Options{"disable_fingerprint": true}, spec.Options)
}

func TestDeclareIsIdempotent(t *testing.T) {
	f := newFixture(t)

	declare := func() {
		require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": false}))
		require.NoError(t, f.registry.Declare(f.typ, "manual", localized.Options{"localize": "true"}))
	}
	declare()
	fields := f.typ.Fields()
	specs := f.registry.Fields(f.typ)

	declare()
	assert.Equal(t, fields, f.typ.Fields())
	assert.Equal(t, specs, f.registry.Fields(f.typ))

	doc, err := f.typ.Load(t.Context(), "abc", map[string]any{
		localized.IndexAttribute: map[string]any{"manual": []any{"en"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", doc.ID())
	assert.Len(t, f.registry.Slots(f.typ), 2)
}

func TestDeclareErrors(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", nil))

	tests := []struct {
		name  string
		field string
		opts  localized.Options
		code  string
	}{
		{name: "unknown option", field: "icon", opts: localized.Options{"styles": map[string]any{"thumb": "100x100"}}, code: clip.CodeInvalidOptions},
		{name: "invalid localize", field: "icon", opts: localized.Options{"localize": "maybe"}, code: clip.CodeInvalidOptions},
		{name: "empty name", field: "", opts: nil, code: clip.CodeInvalidOptions},
		{name: "localize mismatch", field: "avatar", opts: localized.Options{"localize": true}, code: localized.CodeFieldRedeclared},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := f.registry.Declare(f.typ, tc.field, tc.opts)
			require.Error(t, err)
			assert.True(t, localized.IsConfigurationError(err))
			assert.Equal(t, tc.code, errx.AsErrorX(err).Code())
		})
	}

	_, ok := f.registry.Field(f.typ, "icon")
	assert.False(t, ok)
}

func TestSetNonLocalizedRecordsMetadata(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", nil))
	doc := f.typ.New()

	u := pngUpload(t, "avatar.png", color.Black)
	got, err := f.registry.Set(t.Context(), doc, "avatar", localized.NoLocale, u)
	require.NoError(t, err)
	assert.Same(t, u, got)

	att, err := f.registry.Get(t.Context(), doc, "avatar", "ignored")
	require.NoError(t, err)
	assert.True(t, att.Present())
	assert.Equal(t, "avatar.png", doc.String("avatar_file_name"))
	assert.Equal(t, filestore.ContentTypePNG, doc.String("avatar_content_type"))
	assert.Positive(t, doc.Int64("avatar_file_size"))
	assert.Len(t, doc.String("avatar_fingerprint"), 32)

	_, ok := doc.Get(localized.IndexAttribute)
	assert.False(t, ok)
}

func TestTranslationsFollowWrites(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": true}))
	doc := f.typ.New()

	_, err := f.registry.Set(t.Context(), doc, "avatar", "en", pngUpload(t, "en.png", color.White))
	require.NoError(t, err)
	_, err = f.registry.Set(t.Context(), doc, "avatar", "fr", pngUpload(t, "fr.png", color.Black))
	require.NoError(t, err)

	locales, err := f.registry.Translations(doc, "avatar")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, locales)

	got, err := f.registry.Set(t.Context(), doc, "avatar", "en", nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	locales, err = f.registry.Translations(doc, "avatar")
	require.NoError(t, err)
	assert.Equal(t, []string{"fr"}, locales)

	assert.Equal(t, map[string]any{"avatar": []string{"fr"}}, doc.Map(localized.IndexAttribute))

	_, err = f.registry.Set(t.Context(), doc, "avatar", "fr", nil)
	require.NoError(t, err)
	_, ok := doc.Get(localized.IndexAttribute)
	assert.False(t, ok)
	assert.Empty(t, f.store.Paths())
}

func TestLocalesAreIsolated(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": true}))
	doc := f.typ.New()

	_, err := f.registry.Set(t.Context(), doc, "avatar", "en", pngUpload(t, "en.png", color.White))
	require.NoError(t, err)

	before, err := f.registry.Get(t.Context(), doc, "avatar", "en")
	require.NoError(t, err)
	fingerprint := before.Fingerprint()

	_, err = f.registry.Set(t.Context(), doc, "avatar", "fr", pngUpload(t, "fr.png", color.Black))
	require.NoError(t, err)

	en, err := f.registry.Get(t.Context(), doc, "avatar", "en")
	require.NoError(t, err)
	assert.Equal(t, "en.png", en.FileName())
	assert.Equal(t, fingerprint, en.Fingerprint())

	fr, err := f.registry.Get(t.Context(), doc, "avatar", "fr")
	require.NoError(t, err)
	assert.Equal(t, "fr.png", fr.FileName())
	assert.NotEqual(t, en.Path(), fr.Path())

	de, err := f.registry.Get(t.Context(), doc, "avatar", "de")
	require.NoError(t, err)
	assert.False(t, de.Present())
}

func TestSlotNamesAreOwnedByOneField(t *testing.T) {
	t.Run("plain field declared first", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.registry.Declare(f.typ, "manual", localized.Options{"localize": true}))
		require.NoError(t, f.registry.Declare(f.typ, "manual_fr", nil))
		doc := f.typ.New()

		_, err := f.registry.Set(t.Context(), doc, "manual_fr", localized.NoLocale, pngUpload(t, "plain.png", color.White))
		require.NoError(t, err)

		_, err = f.registry.Set(t.Context(), doc, "manual", "fr", pngUpload(t, "french.png", color.Black))
		require.Error(t, err)
		assert.True(t, localized.IsConfigurationError(err))
		assert.Equal(t, localized.CodeSlotNameConflict, errx.AsErrorX(err).Code())

		plain, err := f.registry.Get(t.Context(), doc, "manual_fr", localized.NoLocale)
		require.NoError(t, err)
		assert.Equal(t, "plain.png", plain.FileName())

		translations, err := f.registry.Translations(doc, "manual")
		require.NoError(t, err)
		assert.Empty(t, translations)

		_, err = f.registry.Set(t.Context(), doc, "manual", "de", pngUpload(t, "german.png", color.Black))
		require.NoError(t, err)
	})

	t.Run("locale slot resolved first", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.registry.Declare(f.typ, "manual", localized.Options{"localize": true}))
		_, err := f.registry.Resolve(f.typ, "manual", "fr")
		require.NoError(t, err)

		err = f.registry.Declare(f.typ, "manual_fr", nil)
		require.Error(t, err)
		assert.Equal(t, localized.CodeSlotNameConflict, errx.AsErrorX(err).Code())

		_, ok := f.registry.Field(f.typ, "manual_fr")
		assert.False(t, ok)
	})

	t.Run("two localized fields", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.registry.Declare(f.typ, "guide", localized.Options{"localize": true}))
		require.NoError(t, f.registry.Declare(f.typ, "guide_pt", localized.Options{"localize": true}))

		_, err := f.registry.Resolve(f.typ, "guide_pt", "br")
		require.NoError(t, err)

		_, err = f.registry.Resolve(f.typ, "guide", "pt-BR")
		require.Error(t, err)
		assert.Equal(t, localized.CodeSlotNameConflict, errx.AsErrorX(err).Code())
	})
}

func TestPresenceMatchesOccupancy(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": true, "content_types": []string{"image/*"}}))
	doc := f.typ.New()

	writes := []struct {
		locale  string
		content *clip.Upload
		fails   bool
	}{
		{locale: "en", content: pngUpload(t, "a.png", color.White)},
		{locale: "fr", content: pngUpload(t, "b.png", color.Black)},
		{locale: "de", content: clip.UploadBytes("c.txt", []byte("text")), fails: true},
		{locale: "en", content: nil},
		{locale: "de", content: pngUpload(t, "d.png", color.White)},
		{locale: "pt-BR", content: pngUpload(t, "e.png", color.Black)},
		{locale: "fr", content: nil},
		{locale: "es", content: nil},
	}
	locales := []string{"en", "fr", "de", "pt-BR", "es"}

	for _, w := range writes {
		_, err := f.registry.Set(t.Context(), doc, "avatar", w.locale, w.content)
		if w.fails {
			require.Error(t, err)
		} else {
			require.NoError(t, err)
		}

		idx, err := f.registry.Presence(doc)
		require.NoError(t, err)
		for _, l := range locales {
			att, err := f.registry.Get(t.Context(), doc, "avatar", l)
			require.NoError(t, err)
			assert.Equal(t, att.Present(), idx.Has("avatar", l), "locale %s after writing %s", l, w.locale)
		}
	}

	translations, err := f.registry.Translations(doc, "avatar")
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "pt-BR"}, translations)
}

func TestSetTypeErrors(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": true}))
	doc := f.typ.New()

	_, err := f.registry.Set(t.Context(), doc, "avatar", "not a locale", pngUpload(t, "a.png", color.White))
	require.Error(t, err)
	assert.True(t, localized.IsTypeError(err))
	assert.Equal(t, localized.CodeInvalidLocale, errx.AsErrorX(err).Code())

	_, err = f.registry.Set(t.Context(), doc, "avatar", "", pngUpload(t, "a.png", color.White))
	require.Error(t, err)
	assert.True(t, localized.IsTypeError(err))

	_, err = f.registry.Set(t.Context(), doc, "avatar", "en", clip.NewUpload("a.png", nil))
	require.Error(t, err)
	assert.True(t, localized.IsTypeError(err))
	assert.Equal(t, clip.CodeInvalidContent, errx.AsErrorX(err).Code())

	_, err = f.registry.Set(t.Context(), doc, "missing", "en", nil)
	require.Error(t, err)
	assert.True(t, localized.IsConfigurationError(err))
	assert.False(t, localized.IsTypeError(err))

	assert.Empty(t, doc.Attributes())
}

func TestLocaleCanonicalisation(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": true}))

	a, err := f.registry.Resolve(f.typ, "avatar", "EN-us")
	require.NoError(t, err)
	b, err := f.registry.Resolve(f.typ, "avatar", "en-US")
	require.NoError(t, err)

	assert.Equal(t, localized.Slot{Field: "avatar", Locale: "en-US", Name: "avatar_en_us"}, a)
	assert.Equal(t, a, b)
	assert.Len(t, f.registry.Slots(f.typ), 1)

	_, ok := f.engine.Defined(f.typ, "avatar_en_us")
	assert.True(t, ok)
}

func TestResolveIsTypeScoped(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": true}))
	other := document.NewType("posts")
	require.NoError(t, f.registry.Declare(other, "avatar", localized.Options{"localize": true}))

	_, err := f.registry.Get(t.Context(), f.typ.New(), "avatar", "en")
	require.NoError(t, err)

	att, err := f.registry.Get(t.Context(), f.typ.New(), "avatar", "en")
	require.NoError(t, err)
	assert.False(t, att.Present())

	assert.Len(t, f.registry.Slots(f.typ), 1)
	assert.Empty(t, f.registry.Slots(other))
}

func TestConcurrentResolve(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": true}))

	locales := []string{"en", "fr", "de", "uz", "ru"}
	var wg sync.WaitGroup
	for range 20 {
		for _, l := range locales {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.registry.Resolve(f.typ, "avatar", l)
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	assert.Len(t, f.registry.Slots(f.typ), len(locales))
	// four metadata attributes plus the fingerprint per slot, plus the index
	assert.Len(t, f.typ.Fields(), 1+5*len(locales))
}

func TestCurrentLocale(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": true}))
	doc := f.typ.New()

	ctx := meta.WithLocale(t.Context(), "fr-CA,fr;q=0.9")
	_, err := f.registry.SetCurrent(ctx, doc, "avatar", pngUpload(t, "fr.png", color.White))
	require.NoError(t, err)
	_, err = f.registry.SetCurrent(t.Context(), doc, "avatar", pngUpload(t, "en.png", color.Black))
	require.NoError(t, err)

	translations, err := f.registry.Translations(doc, "avatar")
	require.NoError(t, err)
	assert.Equal(t, []string{"fr-CA", "en"}, translations)

	att, err := f.registry.GetCurrent(ctx, doc, "avatar")
	require.NoError(t, err)
	assert.Equal(t, "fr.png", att.FileName())
}

func TestCurrentLocaleIgnoresWildcard(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "avatar", localized.Options{"localize": true}))
	doc := f.typ.New()

	_, err := f.registry.SetCurrent(meta.WithLocale(t.Context(), "*"), doc, "avatar", pngUpload(t, "en.png", color.White))
	require.NoError(t, err)

	translations, err := f.registry.Translations(doc, "avatar")
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, translations)
}

func TestSetTranslations(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "manual", localized.Options{"localize": true}))
	require.NoError(t, f.registry.Declare(f.typ, "avatar", nil))
	doc := f.typ.New()

	entries := orderedmap.New[string, *clip.Upload]()
	entries.Set("uz", pngUpload(t, "uz.png", color.White))
	entries.Set("ru", pngUpload(t, "ru.png", color.Black))
	require.NoError(t, f.registry.SetTranslations(t.Context(), doc, "manual", entries))

	translations, err := f.registry.Translations(doc, "manual")
	require.NoError(t, err)
	assert.Equal(t, []string{"uz", "ru"}, translations)

	// the failing entry stops the loop; earlier entries stay applied
	entries = orderedmap.New[string, *clip.Upload]()
	entries.Set("en", pngUpload(t, "en.png", color.White))
	entries.Set("??", pngUpload(t, "bad.png", color.White))
	entries.Set("de", pngUpload(t, "de.png", color.White))
	err = f.registry.SetTranslations(t.Context(), doc, "manual", entries)
	require.Error(t, err)
	assert.True(t, localized.IsTypeError(err))

	translations, err = f.registry.Translations(doc, "manual")
	require.NoError(t, err)
	assert.Equal(t, []string{"uz", "ru", "en"}, translations)

	err = f.registry.SetTranslations(t.Context(), doc, "avatar", entries)
	require.Error(t, err)
	assert.Equal(t, localized.CodeFieldNotLocalized, errx.AsErrorX(err).Code())
}

// jsonRoundTrip mimics persisting attributes as jsonb and reading them back.
func jsonRoundTrip(t *testing.T, attrs map[string]any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(attrs)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestLoadResolvesPersistedLocales(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "manual", localized.Options{"localize": true}))
	doc := f.typ.New()

	entries := orderedmap.New[string, *clip.Upload]()
	entries.Set("en", pngUpload(t, "en.png", color.White))
	entries.Set("fr", pngUpload(t, "fr.png", color.Black))
	require.NoError(t, f.registry.SetTranslations(t.Context(), doc, "manual", entries))
	stored := jsonRoundTrip(t, doc.Attributes())

	// a fresh process: new type, engine and registry over the same storage
	typ := document.NewType("users")
	engine := clip.NewEngine(f.store, clip.WithLogger(logger.Nop()))
	registry, err := localized.New(engine, localized.WithLogger(logger.Nop()))
	require.NoError(t, err)
	require.NoError(t, registry.Declare(typ, "manual", localized.Options{"localize": true}))
	assert.Empty(t, registry.Slots(typ))

	loaded, err := typ.Load(t.Context(), doc.ID(), stored)
	require.NoError(t, err)

	assert.Equal(t, []localized.Slot{
		{Field: "manual", Locale: "en", Name: "manual_en"},
		{Field: "manual", Locale: "fr", Name: "manual_fr"},
	}, registry.Slots(typ))
	_, ok := engine.Defined(typ, "manual_fr")
	assert.True(t, ok)

	translations, err := registry.Translations(loaded, "manual")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, translations)

	att, err := engine.Attachment(loaded, "manual_fr")
	require.NoError(t, err)
	assert.Equal(t, "fr.png", att.FileName())
	assert.Positive(t, att.Size())
	assert.False(t, att.UpdatedAt().IsZero())

	file, err := att.Open(t.Context())
	require.NoError(t, err)
	require.NoError(t, file.Content.Close())
}

func TestLoadRejectsMalformedIndex(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.registry.Declare(f.typ, "manual", localized.Options{"localize": true}))

	_, err := f.typ.Load(t.Context(), "abc", map[string]any{
		localized.IndexAttribute: map[string]any{"manual": 42},
	})
	require.Error(t, err)
	assert.Equal(t, localized.CodeInvalidPresenceIndex, errx.AsErrorX(err).Code())

	doc, err := f.typ.Load(t.Context(), "abc", map[string]any{
		localized.IndexAttribute: map[string]any{"gone": []any{"en"}},
	})
	require.NoError(t, err)
	assert.Empty(t, f.registry.Slots(f.typ))
	assert.Equal(t, "abc", doc.ID())
}
