package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrNotConfigured is returned when a source has neither a file nor a value.
var ErrNotConfigured = errors.New("secret is not configured")

// ErrMissingFile is returned when the configured file does not exist.
var ErrMissingFile = errors.New("secret file does not exist")

// Source describes where a credential comes from.
type Source struct {
	// Name is used in error messages, e.g. "session token".
	Name string
	// Value is an inline value from configuration or the environment.
	Value string
	// File points to a file holding the value. It wins over Value.
	File string
}

// Configured reports whether the source points anywhere at all.
func (s Source) Configured() bool {
	return strings.TrimSpace(s.File) != "" || strings.TrimSpace(s.Value) != ""
}

// Load resolves the source and returns the trimmed secret. The file is read
// on every call so rotated credentials are picked up without a restart.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s file %q: %w", name, file, ErrMissingFile)
		}
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}

		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}

	return secret, nil
}
