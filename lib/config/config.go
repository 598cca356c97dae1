// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound means no candidate file exists, or none of the
	// environment variables is set.
	ErrNotFound = errors.New("config: no configuration source found")

	// ErrParse means a source was found but could not be read, decoded,
	// or validated.
	ErrParse = errors.New("config: invalid configuration")
)

// DefaultPaths are probed in order when the caller supplies no paths:
// the system-wide file first, then one in the working directory.
var DefaultPaths = []string{
	"/etc/matrix_link/config.yaml",
	"config.yaml",
}

// Environment variable names read by LoadEnv, in the order they are
// reported.
const (
	EnvUsername = "matrix_username"
	EnvPassword = "matrix_password"
	EnvHost     = "matrix_host"
	EnvRoomName = "matrix_room_name"
)

// Config is the resolved configuration. It is returned by value and not
// modified after loading.
type Config struct {
	// Username is the Matrix localpart or full user ID to log in as.
	Username string `yaml:"username" env:"matrix_username" validate:"required"`

	// Password is the account password for m.login.password.
	Password string `yaml:"password" env:"matrix_password" validate:"required"`

	// ServerURL is the homeserver base URL (e.g., "https://matrix.example.org").
	ServerURL string `yaml:"server_url" env:"matrix_host" validate:"required,http_url"`

	// RoomName is the room ID or alias to join and post into.
	RoomName string `yaml:"room_name" env:"matrix_room_name" validate:"required"`
}

// LogValue implements slog.LogValuer. The password is never logged.
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("server_url", c.ServerURL),
		slog.String("room_name", c.RoomName),
	)
}

// fileConfig is the on-disk shape. "host" is accepted as an older
// spelling of "server_url"; server_url wins when both are present.
type fileConfig struct {
	Config `yaml:",inline"`
	Host   string `yaml:"host"`
}

// Load parses the first file in paths that exists. If paths is empty,
// DefaultPaths is used.
func Load(paths []string) (Config, error) {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Config{}, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
		}
		return LoadFile(path)
	}
	return Config{}, fmt.Errorf("%w (searched %s)", ErrNotFound, strings.Join(paths, ", "))
}

// LoadFile parses a single configuration file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return Config{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// YAML is a superset of JSON, so once comments and trailing
		// commas are gone the same decoder handles it.
		data = jsonc.ToJSON(data)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}

	config := file.Config
	if config.ServerURL == "" {
		config.ServerURL = file.Host
	}

	if err := check(config, yamlKey); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	return config, nil
}

// LoadEnvironment loads an optional .env file from the working directory
// into the process environment (variables already set are kept), then
// reads the configuration from it.
func LoadEnvironment() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: .env: %w", ErrParse, err)
	}
	return LoadEnv(os.Environ())
}

// LoadEnv reads the configuration from environ, given in os.Environ
// form ("KEY=value").
func LoadEnv(environ []string) (Config, error) {
	set, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	keys := []string{EnvUsername, EnvPassword, EnvHost, EnvRoomName}
	found := false
	for _, key := range keys {
		if set[key] != "" {
			found = true
			break
		}
	}
	if !found {
		return Config{}, fmt.Errorf("%w (none of %s is set)", ErrNotFound, strings.Join(keys, ", "))
	}

	var config Config
	if err := env.Unmarshal(set, &config); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if err := check(config, envKey); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return config, nil
}

var validate = newValidator()

// newValidator reports fields by their YAML key rather than the Go
// field name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func yamlKey(name string) string { return name }

func envKey(name string) string {
	switch name {
	case "username":
		return EnvUsername
	case "password":
		return EnvPassword
	case "server_url":
		return EnvHost
	case "room_name":
		return EnvRoomName
	}
	return name
}

// check validates config and describes every problem in one error,
// naming fields with keyFor.
func check(config Config, keyFor func(string) string) error {
	err := validate.Struct(config)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	problems := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		key := keyFor(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			problems = append(problems, key+" is required")
		case "http_url":
			problems = append(problems, fmt.Sprintf("%s %q is not an http(s) URL", key, fieldError.Value()))
		default:
			problems = append(problems, fmt.Sprintf("%s failed %q validation", key, fieldError.Tag()))
		}
	}
	return errors.New(strings.Join(problems, "; "))
}
