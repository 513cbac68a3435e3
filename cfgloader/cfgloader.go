// Package cfgloader loads and validates configuration at application start.
package cfgloader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvProduction = "production"
	EnvStaging    = "staging"
	EnvDev        = "dev"
	EnvLocal      = "local"
	EnvTest       = "test"
)

// CodeInvalidConfig is returned for any failure to produce a valid config.
const CodeInvalidConfig = "INVALID_CONFIG"

// MustLoad is Load that logs the error and exits the process on failure.
func MustLoad[T any](opts ...Option) T {
	cfg, err := Load[T](opts...)
	if err != nil {
		slog.Error("[cfgloader]: " + err.Error())
		os.Exit(1)
	}
	return cfg
}

// Load reads ${dir}/${ENVIRONMENT}.yaml, expands ${VAR} references from the
// environment (after loading a .env file when present), applies `default`
// tags and validates `validate` tags with go-playground/validator.
//
//	type Config struct {
//	    Host string `yaml:"host" validate:"required"`
//	    Port int    `yaml:"port" default:"8080"`
//	}
func Load[T any](opts ...Option) (T, error) {
	var cfg T

	o := Options{Dir: "./config"}
	for _, opt := range opts {
		opt(&o)
	}

	if reflect.ValueOf(cfg).Kind() == reflect.Ptr {
		return cfg, invalid("type argument must not be a pointer", nil)
	}

	_ = godotenv.Load()

	env := os.Getenv("ENVIRONMENT")
	choices := []string{EnvProduction, EnvStaging, EnvDev, EnvLocal, EnvTest}
	if !slices.Contains(choices, env) {
		return cfg, invalid(
			"ENVIRONMENT env variable is not set or invalid",
			errx.D{"value": env, "choices": choices},
		)
	}

	path := filepath.Join(o.Dir, env+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, invalid("failed to read config file", errx.D{"path": path, "error": err.Error()})
	}

	if err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, invalid("failed to unmarshal config file", errx.D{"path": path, "error": err.Error()})
	}

	if err = defaults.Set(&cfg); err != nil {
		return cfg, invalid("failed to set default values", errx.D{"error": err.Error()})
	}

	if err = validate(&cfg); err != nil {
		return cfg, errx.Wrap(err, errx.WithDetails(errx.D{"path": path}))
	}

	if !o.Silent {
		printConfig(env, cfg)
	}
	return cfg, nil
}

func validate(cfg any) error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns the concrete type
	if !ok {
		return invalid("failed to validate config", errx.D{"error": err.Error()})
	}

	failed := make([]string, 0, len(errs))
	for _, fe := range errs {
		tag := fe.Tag()
		if fe.Param() != "" {
			tag += "=" + fe.Param()
		}
		failed = append(failed, fmt.Sprintf("%s: %s", fe.Namespace(), tag))
	}
	return invalid("invalid config fields -> "+strings.Join(failed, ", "), nil)
}

func invalid(msg string, details errx.D) error {
	return errx.New(
		msg,
		errx.WithCode(CodeInvalidConfig),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}
