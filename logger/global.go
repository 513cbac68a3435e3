package logger

import (
	"context"
	"sync"
	"sync/atomic"
)

//nolint:gochecknoglobals // global logger singleton
var (
	global   atomic.Value
	setOnce  sync.Once
	initOnce sync.Once
)

// SetGlobal configures the global logger. It must be called at most once,
// before any package-level logging function is used.
func SetGlobal(cfg Config) {
	called := false
	setOnce.Do(func() {
		initOnce.Do(func() {})

		l, err := New(cfg)
		if err != nil {
			panic("[logger]: failed to initialize global logger: " + err.Error())
		}
		global.Store(holder{l})
		called = true
	})
	if !called {
		panic("[logger]: SetGlobal can only be called once")
	}
}

// holder keeps atomic.Value stores of a single concrete type.
type holder struct{ Logger }

func Debug(msg any) {
	get().Debug(msg)
}

func Info(msg any) {
	get().Info(msg)
}

func Warn(msg any) {
	get().Warn(msg)
}

func Error(msg any) {
	get().Error(msg)
}

func Debugf(format string, args ...any) {
	get().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	get().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	get().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	get().Errorf(format, args...)
}

func Warnx(err error) {
	get().Warnx(err)
}

func Errorx(err error) {
	get().Errorx(err)
}

func With(keysAndValues ...any) Logger {
	return get().With(keysAndValues...)
}

func WithContext(ctx context.Context) Logger {
	return get().WithContext(ctx)
}

func Named(name string) Logger {
	return get().Named(name)
}

func Sync() error {
	return get().Sync()
}

// Global returns the global logger, creating a pretty debug logger on first use
// when SetGlobal was never called.
func Global() Logger {
	return get()
}

func get() Logger {
	if h, ok := global.Load().(holder); ok {
		return h.Logger
	}
	initOnce.Do(func() {
		l, err := New(Config{Level: levelDebug, Encoding: EncodingPretty})
		if err != nil {
			panic("[logger]: failed to initialize default logger: " + err.Error())
		}
		global.Store(holder{l})
	})
	h, _ := global.Load().(holder)
	return h.Logger
}
