package snapshot

import (
	"context"
	"path"
	"sort"
	"strings"

	"db-snapshot/internal/storage"
)

// Catalog lists the snapshot files of one directory
type Catalog struct {
	fs  storage.Filesystem
	dir string
}

// NewCatalog creates a Catalog over dir
func NewCatalog(fs storage.Filesystem, dir string) *Catalog {
	if dir == "" {
		dir = DefaultDirectory
	}
	return &Catalog{fs: fs, dir: dir}
}

// Directory returns the snapshot directory
func (c *Catalog) Directory() string {
	return c.dir
}

// Path returns the storage path of a snapshot file
func (c *Catalog) Path(filename string) string {
	return path.Join(c.dir, filename)
}

// Location renders the snapshot file for humans
func (c *Catalog) Location(filename string) string {
	return c.fs.Location(c.Path(filename))
}

// ListSnapshots returns snapshot filenames newest first. A missing directory
// yields an empty list.
func (c *Catalog) ListSnapshots(ctx context.Context) ([]string, error) {
	exists, err := c.fs.Exists(ctx, c.dir)
	if err != nil {
		return nil, NewStorageError("failed to check snapshot directory", err)
	}
	if !exists {
		return []string{}, nil
	}

	entries, err := c.fs.ReadDir(ctx, c.dir)
	if err != nil {
		return nil, NewStorageError("failed to list snapshot directory", err).
			WithContext("directory", c.fs.Location(c.dir))
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir || !strings.HasSuffix(entry.Name, FileExtension) {
			continue
		}
		names = append(names, entry.Name)
	}

	SortNewestFirst(names)
	return names, nil
}

// Describe reads the _metadata member of one snapshot
func (c *Catalog) Describe(ctx context.Context, filename string) (Metadata, error) {
	data, err := c.fs.ReadFile(ctx, c.Path(filename))
	if err != nil {
		return Metadata{}, NewStorageError("failed to read snapshot "+filename, err)
	}
	return ReadMetadata(data)
}

// SortNewestFirst orders snapshot filenames by their timestamp suffix,
// descending. Labels do not influence the order; equal timestamps fall back
// to the full name, also descending. Names without a timestamp sort last.
func SortNewestFirst(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		ti, _ := TimestampOf(names[i])
		tj, _ := TimestampOf(names[j])
		if ti != tj {
			return ti > tj
		}
		return names[i] > names[j]
	})
}
