// Package storage provides the file operations snapshots need on top of a
// local directory or an object store. Paths are slash separated and relative
// to the configured root.
package storage

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"db-snapshot/internal/errors"
)

// Entry is one item in a directory listing
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Filesystem is the storage contract used by the snapshot writer, catalog and rotator
type Filesystem interface {
	// MkdirAll creates dir and its parents; existing directories are not an error.
	MkdirAll(ctx context.Context, dir string) error
	Exists(ctx context.Context, p string) (bool, error)
	// ReadDir lists the direct children of dir.
	ReadDir(ctx context.Context, dir string) ([]Entry, error)
	// WriteFile replaces p with data. Readers never observe a partial file.
	WriteFile(ctx context.Context, p string, data []byte) error
	ReadFile(ctx context.Context, p string) ([]byte, error)
	Remove(ctx context.Context, p string) error
	// Location renders p for humans, e.g. an absolute path or a URL.
	Location(p string) string
	Close() error
}

// NewFilesystem builds the Filesystem selected by config
func NewFilesystem(ctx context.Context, config Config) (Filesystem, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.NewAppError(errors.ErrorTypeValidation, "invalid storage configuration", err)
	}

	switch config.Provider {
	case ProviderLocal:
		return NewLocalFilesystem(config.Local)
	case ProviderS3:
		return NewS3Filesystem(config.S3)
	case ProviderAzure:
		return NewAzureFilesystem(config.Azure)
	case ProviderGCS:
		return NewGCSFilesystem(ctx, config.GCS)
	default:
		return nil, errors.NewAppError(errors.ErrorTypeValidation, "unsupported storage provider: "+string(config.Provider), nil)
	}
}

// SupportedProviders returns every provider NewFilesystem accepts
func SupportedProviders() []ProviderType {
	return []ProviderType{ProviderLocal, ProviderS3, ProviderAzure, ProviderGCS}
}

// objectKey joins an object-store prefix and a relative path
func objectKey(prefix, p string) string {
	return strings.TrimPrefix(path.Join(prefix, p), "/")
}

// dirPrefix returns the listing prefix for a directory key
func dirPrefix(key string) string {
	if key == "" || key == "." {
		return ""
	}
	return strings.TrimSuffix(key, "/") + "/"
}

// objectInfo is what the object-store listings have in common
type objectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// directChildren folds a flat listing under prefix into the entries of one directory level
func directChildren(prefix string, objects []objectInfo) []Entry {
	seenDirs := make(map[string]bool)
	var entries []Entry

	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, prefix) {
			continue
		}
		rest := obj.Key[len(prefix):]
		if rest == "" {
			continue
		}

		if i := strings.Index(rest, "/"); i >= 0 {
			name := rest[:i]
			if name != "" && !seenDirs[name] {
				seenDirs[name] = true
				entries = append(entries, Entry{Name: name, IsDir: true})
			}
			continue
		}

		entries = append(entries, Entry{Name: rest, Size: obj.Size, ModTime: obj.ModTime})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// existsIn reports whether key is an object or a directory in a listing under key
func existsIn(key string, objects []objectInfo) bool {
	for _, obj := range objects {
		if obj.Key == key || strings.HasPrefix(obj.Key, dirPrefix(key)) {
			return true
		}
	}
	return false
}

func storageError(message string, cause error) error {
	return errors.NewAppError(errors.ErrorTypeStorage, message, cause)
}
