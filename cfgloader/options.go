package cfgloader

// Options holds configuration options for Load.
type Options struct {
	// Dir is the directory holding the ${ENVIRONMENT}.yaml files.
	Dir string

	// Silent disables printing the loaded config.
	Silent bool
}

// Option is a functional option for Load and MustLoad.
type Option func(*Options)

// WithSilent disables printing the loaded config.
func WithSilent() Option {
	return func(o *Options) {
		o.Silent = true
	}
}

// WithDir reads config files from dir instead of ./config.
func WithDir(dir string) Option {
	return func(o *Options) {
		o.Dir = dir
	}
}
