package storage

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// LocalFilesystem stores snapshots in a directory on disk
type LocalFilesystem struct {
	fs          afero.Fs
	root        string
	permissions os.FileMode
}

// NewLocalFilesystem roots a filesystem at config.BasePath, creating it if needed
func NewLocalFilesystem(config *LocalConfig) (*LocalFilesystem, error) {
	if config == nil {
		return nil, storageError("local storage configuration is required", nil)
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, storageError("invalid local storage configuration", err)
	}

	root, err := filepath.Abs(config.BasePath)
	if err != nil {
		return nil, storageError("failed to resolve base path", err)
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(root, config.Permissions); err != nil {
		return nil, storageError("failed to create base directory", err)
	}

	return &LocalFilesystem{
		fs:          afero.NewBasePathFs(osFs, root),
		root:        root,
		permissions: config.Permissions,
	}, nil
}

// NewLocalFilesystemFromFs wraps an existing afero filesystem. root is only used for Location.
func NewLocalFilesystemFromFs(fs afero.Fs, root string) *LocalFilesystem {
	return &LocalFilesystem{fs: fs, root: root, permissions: 0o755}
}

func (l *LocalFilesystem) MkdirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.fs.MkdirAll(clean(dir), l.permissions); err != nil {
		return storageError("failed to create directory "+dir, err)
	}
	return nil
}

func (l *LocalFilesystem) Exists(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(l.fs, clean(p))
}

func (l *LocalFilesystem) ReadDir(ctx context.Context, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := afero.ReadDir(l.fs, clean(dir))
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, Entry{
			Name:    info.Name(),
			IsDir:   info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return entries, nil
}

// WriteFile writes to a temporary sibling and renames it over p
func (l *LocalFilesystem) WriteFile(ctx context.Context, p string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := clean(p)
	tmp, err := afero.TempFile(l.fs, path.Dir(target), "."+path.Base(target)+".tmp-*")
	if err != nil {
		return storageError("failed to create temporary file for "+p, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		l.fs.Remove(tmpName)
		return storageError("failed to write "+p, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		l.fs.Remove(tmpName)
		return storageError("failed to sync "+p, err)
	}
	if err := tmp.Close(); err != nil {
		l.fs.Remove(tmpName)
		return storageError("failed to close "+p, err)
	}

	if err := l.fs.Chmod(tmpName, 0o644); err != nil {
		l.fs.Remove(tmpName)
		return storageError("failed to set permissions on "+p, err)
	}

	if err := l.fs.Rename(tmpName, target); err != nil {
		l.fs.Remove(tmpName)
		return storageError("failed to move "+p+" into place", err)
	}

	return nil
}

func (l *LocalFilesystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return afero.ReadFile(l.fs, clean(p))
}

func (l *LocalFilesystem) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.fs.Remove(clean(p))
}

func (l *LocalFilesystem) Location(p string) string {
	return filepath.Join(l.root, filepath.FromSlash(clean(p)))
}

func (l *LocalFilesystem) Close() error {
	return nil
}

// Fs exposes the underlying afero filesystem
func (l *LocalFilesystem) Fs() afero.Fs {
	return l.fs
}

func clean(p string) string {
	c := path.Clean("/" + p)
	if c == "/" {
		return "."
	}
	return c[1:]
}
