package logger

import (
	"context"
	"errors"

	"github.com/code19m/errx"
	"github.com/rise-and-shine/docclip/meta"
	"go.uber.org/zap"
)

// Logger is the logging interface shared by all packages of the module.
type Logger interface {
	Debug(msg any)
	Info(msg any)
	Warn(msg any)
	Error(msg any)

	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// Warnx logs an error at warn level, expanding errx.ErrorX metadata into fields.
	Warnx(err error)
	// Errorx logs an error at error level, expanding errx.ErrorX metadata into fields.
	Errorx(err error)

	// With returns a child logger that adds the key-value pairs to every entry.
	With(keysAndValues ...any) Logger
	// WithContext returns a child logger enriched with request metadata found in ctx.
	WithContext(ctx context.Context) Logger
	// Named adds a sub-scope to the logger's name.
	Named(name string) Logger

	// Sync flushes buffered entries.
	Sync() error
}

type logger struct {
	*zap.SugaredLogger
}

// New creates a Logger from cfg.
func New(cfg Config) (Logger, error) {
	if cfg.Disable {
		return &logger{zap.NewNop().Sugar()}, nil
	}

	zapCfg, err := cfg.zapConfig()
	if err != nil {
		return nil, errx.Wrap(err)
	}

	if cfg.Encoding == EncodingPretty {
		return &logger{newPrettyLogger(zapCfg).Sugar()}, nil
	}

	zl, err := zapCfg.Build()
	if err != nil {
		return nil, errx.Wrap(err)
	}
	return &logger{zl.Sugar()}, nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &logger{zap.NewNop().Sugar()}
}

func (l *logger) Debug(msg any) {
	l.SugaredLogger.Debug(msg)
}

func (l *logger) Info(msg any) {
	l.SugaredLogger.Info(msg)
}

func (l *logger) Warn(msg any) {
	l.SugaredLogger.Warn(msg)
}

func (l *logger) Error(msg any) {
	l.SugaredLogger.Error(msg)
}

func (l *logger) Warnx(err error) {
	l.withErr(err).Warn(err.Error())
}

func (l *logger) Errorx(err error) {
	l.withErr(err).Error(err.Error())
}

func (l *logger) withErr(err error) Logger {
	var e errx.ErrorX
	if !errors.As(err, &e) {
		return l
	}
	return l.With(
		"error_code", e.Code(),
		"error_type", e.Type().String(),
		"error_trace", e.Trace(),
		"error_details", e.Details(),
	)
}

func (l *logger) With(keysAndValues ...any) Logger {
	return &logger{l.SugaredLogger.With(keysAndValues...)}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}

	var fields []any
	for k, v := range meta.ExtractMetaFromContext(ctx) {
		fields = append(fields, string(k), v)
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

func (l *logger) Named(name string) Logger {
	return &logger{l.SugaredLogger.Named(name)}
}
