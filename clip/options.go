package clip

import (
	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-viper/mapstructure/v2"

	"github.com/rise-and-shine/docclip/val"
)

// DefaultPath is the storage path template used when none is configured.
const DefaultPath = ":class/:attachment/:id_partition/:filename"

// Config is the parsed, validated form of attachment options.
type Config struct {
	// Path is the storage path template. See Interpolator for the tokens.
	Path string `mapstructure:"path" yaml:"path" default:":class/:attachment/:id_partition/:filename" validate:"required"`

	// ContentTypes restricts accepted content to MIME types matching one of
	// these patterns ("image/*"). Empty accepts everything.
	ContentTypes []string `mapstructure:"content_types" yaml:"content_types" validate:"dive,mimepattern"`

	// MaxSize is the largest accepted content in bytes. Zero means unlimited.
	MaxSize int64 `mapstructure:"max_size" yaml:"max_size" validate:"gte=0"`

	// DisableFingerprint skips the <slot>_fingerprint attribute.
	DisableFingerprint bool `mapstructure:"disable_fingerprint" yaml:"disable_fingerprint"`
}

// ParseOptions decodes raw options into a Config, applies defaults and
// validates the result. Unknown keys are rejected.
func ParseOptions(raw map[string]any) (Config, error) {
	var cfg Config

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, errx.Wrap(err)
	}

	if err = dec.Decode(raw); err != nil {
		return Config{}, configurationError(err.Error(), errx.D{"options": raw})
	}

	if err = defaults.Set(&cfg); err != nil {
		return Config{}, errx.Wrap(err)
	}

	if err = val.ValidateSchema(cfg); err != nil {
		e := errx.AsErrorX(err)
		return Config{}, configurationError(e.Error(), errx.D{"options": raw, "fields": e.Fields()})
	}

	return cfg, nil
}

func configurationError(msg string, details errx.D) error {
	return errx.New(
		"invalid attachment options: "+msg,
		errx.WithCode(CodeInvalidOptions),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}
