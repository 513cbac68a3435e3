package main

import (
	"context"
	"maps"
	"os"
	"time"

	"github.com/code19m/errx"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rise-and-shine/docclip/cfgloader"
	"github.com/rise-and-shine/docclip/clip"
	"github.com/rise-and-shine/docclip/document"
	"github.com/rise-and-shine/docclip/document/pgstore"
	"github.com/rise-and-shine/docclip/filestore"
	"github.com/rise-and-shine/docclip/filestore/memfs"
	"github.com/rise-and-shine/docclip/filestore/miniowr"
	"github.com/rise-and-shine/docclip/localized"
	"github.com/rise-and-shine/docclip/logger"
	"github.com/rise-and-shine/docclip/meta"
)

// Config is the demo application config. Minio and Postgres are optional:
// without them attachments live in memory and documents are not persisted.
type Config struct {
	Logger   logger.Config   `yaml:"logger"`
	Minio    *miniowr.Config `yaml:"minio"`
	Postgres *pgstore.Config `yaml:"postgres"`
	Registry registryConfig  `yaml:"registry"`
	Avatar   map[string]any  `yaml:"avatar"`
	Manual   map[string]any  `yaml:"manual"`
}

type registryConfig struct {
	DefaultLocale string        `yaml:"default_locale" default:"en"`
	URLExpiry     time.Duration `yaml:"url_expiry"     default:"15m"`
}

func main() {
	cfg := cfgloader.MustLoad[Config]()

	logger.SetGlobal(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	ctx := meta.InjectMetaToContext(context.Background(), map[meta.ContextKey]string{
		meta.ServiceName:    "docclip-demo",
		meta.AcceptLanguage: "uz, ru;q=0.8",
	})

	if err := run(ctx, cfg); err != nil {
		logger.Errorx(err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

// manualOptions returns the configured manual options with localize forced on.
func manualOptions(raw map[string]any) localized.Options {
	opts := make(localized.Options, len(raw)+1)
	maps.Copy(opts, raw)
	opts[localized.OptionLocalize] = true
	return opts
}

func run(ctx context.Context, cfg Config) error {
	store, err := newFileStore(ctx, cfg)
	if err != nil {
		return err
	}

	engine := clip.NewEngine(store)
	registry, err := localized.New(engine, localized.WithDefaultLocale(cfg.Registry.DefaultLocale))
	if err != nil {
		return err
	}

	users := document.NewType("users")
	if err = registry.Declare(users, "avatar", cfg.Avatar); err != nil {
		return err
	}
	if err = registry.Declare(users, "manual", manualOptions(cfg.Manual)); err != nil {
		return err
	}

	doc := users.New()
	if _, err = registry.Set(ctx, doc, "avatar", localized.NoLocale, clip.UploadBytes("avatar.svg", avatarSVG)); err != nil {
		return err
	}

	translations := orderedmap.New[string, *clip.Upload]()
	translations.Set("en", clip.UploadBytes("manual.txt", []byte("Read the manual.")))
	translations.Set("uz", clip.UploadBytes("manual.txt", []byte("Qo'llanmani o'qing.")))
	if err = registry.SetTranslations(ctx, doc, "manual", translations); err != nil {
		return err
	}

	if cfg.Postgres != nil {
		if doc, err = roundTrip(ctx, *cfg.Postgres, users, doc); err != nil {
			return err
		}
	}

	current, err := registry.GetCurrent(ctx, doc, "manual")
	if err != nil {
		return err
	}
	url, err := current.URL(ctx, cfg.Registry.URLExpiry)
	if err != nil {
		return err
	}
	locales, err := registry.Translations(doc, "manual")
	if err != nil {
		return err
	}

	logger.WithContext(ctx).
		With("id", doc.ID(), "translations", locales, "current", current.Slot(), "url", url).
		Info("document ready")
	return nil
}

func newFileStore(ctx context.Context, cfg Config) (filestore.FileStore, error) {
	if cfg.Minio == nil {
		logger.Warn("minio is not configured, keeping attachments in memory")
		return memfs.New(memfs.WithBaseURL("http://localhost/attachments")), nil
	}
	return miniowr.New(ctx, *cfg.Minio)
}

// roundTrip saves doc and loads it back, which runs the registry load hook.
func roundTrip(ctx context.Context, cfg pgstore.Config, typ *document.Type, doc *document.Document) (*document.Document, error) {
	db, err := pgstore.NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	docs := pgstore.New(db)
	if err = docs.Migrate(ctx); err != nil {
		return nil, err
	}
	if err = docs.Save(ctx, doc); err != nil {
		return nil, err
	}

	loaded, err := docs.Find(ctx, typ, doc.ID())
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"id": doc.ID()}))
	}
	return loaded, nil
}

//nolint:gochecknoglobals // demo fixture
var avatarSVG = []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="8" height="8"><rect width="8" height="8" fill="#3b82f6"/></svg>`)
