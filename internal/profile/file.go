package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileStore reads a single student profile from a YAML, JSON or TOML file.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load parses the file on every call. A non-empty personID must match the
// person-id recorded in the file.
func (f *FileStore) Load(_ context.Context, personID string) (*Student, error) {
	path := strings.TrimSpace(f.Path)
	if path == "" {
		return nil, fmt.Errorf("profile file is not configured")
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading profile file %q: %w", path, err)
	}

	var student Student
	if err := v.Unmarshal(&student); err != nil {
		return nil, fmt.Errorf("decoding profile file %q: %w", path, err)
	}

	personID = strings.TrimSpace(personID)
	if personID != "" && student.PersonID != "" && student.PersonID != personID {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, personID)
	}

	return &student, nil
}
