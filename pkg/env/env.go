// Package env reads settings from the process environment. A .env file in
// the working directory is loaded before anything is read.
package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

// ErrEmpty is returned when a variable is unset or blank.
var ErrEmpty = errors.New("environment variable is empty")

// GetEnvString returns the trimmed value of name.
func GetEnvString(name string) (string, error) {
	if name == "" {
		return "", errors.New("environment variable name is empty")
	}
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrEmpty, name)
	}
	return v, nil
}

// orDefault falls back when name is blank or parse rejects it.
func orDefault[T any](name string, fallback T, parse func(string) (T, error)) T {
	raw, err := GetEnvString(name)
	if err != nil {
		return fallback
	}
	v, err := parse(raw)
	if err != nil {
		return fallback
	}
	return v
}

func GetEnvStringOrDefault(name, fallback string) string {
	return orDefault(name, fallback, func(s string) (string, error) { return s, nil })
}

// GetEnvFirstOrDefault returns the first non-blank variable among names.
// The panel deployment still sets NODE_ENV where this service reads APP_ENV.
func GetEnvFirstOrDefault(fallback string, names ...string) string {
	for _, name := range names {
		if v, err := GetEnvString(name); err == nil {
			return v
		}
	}
	return fallback
}

func GetEnvBoolOrDefault(name string, fallback bool) bool {
	return orDefault(name, fallback, strconv.ParseBool)
}

// GetEnvIntOrDefault accepts decimal, 0x hex and 0o octal values.
func GetEnvIntOrDefault(name string, fallback int) int {
	return orDefault(name, fallback, func(s string) (int, error) {
		n, err := strconv.ParseInt(s, 0, 0)
		return int(n), err
	})
}

func GetEnvDurationOrDefault(name string, fallback time.Duration) time.Duration {
	return orDefault(name, fallback, time.ParseDuration)
}
