// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmevideo/bmevideo/constant"
	"github.com/bmevideo/bmevideo/filesystem"
	"github.com/bmevideo/bmevideo/where"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvKeyReplacer is a strings.Replacer used to normalize configuration keys into environment variable naming conventions.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// ErrInvalidValue is returned by Validate for out-of-range settings.
var ErrInvalidValue = errors.New("invalid config value")

// Setup initializes the global configuration state, including defaults, environment bindings, and localized file resolution.
func Setup() error {
	viper.SetConfigName(constant.App)
	viper.SetConfigType("toml")
	viper.SetFs(filesystem.API())
	viper.AddConfigPath(where.Config())

	viper.SetEnvPrefix(constant.App)
	viper.SetEnvKeyReplacer(EnvKeyReplacer)
	for _, env := range EnvExposed {
		viper.MustBindEnv(env)
	}

	viper.SetTypeByDefaultValue(true)
	for name, field := range Default {
		viper.SetDefault(name, field.Value)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return Validate()
		}
		return err
	}

	return Validate()
}

// Validate checks every bounded setting against its range.
func Validate() error {
	for _, field := range Fields() {
		r, ok := field.Range.Get()
		if !ok {
			continue
		}
		if v := viper.GetInt(field.Key); !r.Contains(v) {
			return fmt.Errorf("%w: %s must be %s, got %d", ErrInvalidValue, field.Key, r, v)
		}
	}
	return nil
}

// Path is the location of the configuration file.
func Path() string {
	return filepath.Join(where.Config(), constant.App+".toml")
}

// Save writes the current settings to Path, creating the file when missing.
func Save() error {
	err := viper.WriteConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return viper.SafeWriteConfig()
	}
	return err
}

// EnvVar is an environment variable the application reads.
type EnvVar struct {
	Name string
	// Key is the setting the variable overrides, empty for the config path override.
	Key string
}

// EnvVars lists every variable the application reads, ordered by name.
func EnvVars() []EnvVar {
	vars := lo.Map(Fields(), func(f Field, _ int) EnvVar {
		return EnvVar{Name: f.Env(), Key: f.Key}
	})
	vars = append(vars, EnvVar{Name: where.EnvConfigPath})
	slices.SortFunc(vars, func(a, b EnvVar) int { return strings.Compare(a.Name, b.Name) })
	return vars
}
