package snapshot

import (
	"regexp"
	"strings"
	"time"
)

// FileExtension is the suffix of every snapshot file
const FileExtension = ".json"

// DefaultLabel is used when a snapshot is created without a label
const DefaultLabel = "auto"

var (
	unsafeLabelChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	timestampSuffix  = regexp.MustCompile(`_(\d{4}-\d{2}-\d{2}T[^.]+)\.json$`)
	filenamePattern  = regexp.MustCompile(`^[A-Za-z0-9_-]+_\d{4}-\d{2}-\d{2}T[\d\-]+Z\.json$`)
)

// SanitizeLabel replaces every character outside [A-Za-z0-9_-] with an underscore
func SanitizeLabel(label string) string {
	return unsafeLabelChars.ReplaceAllString(label, "_")
}

// FormatTimestamp renders t as an ISO-8601 UTC instant with millisecond precision
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Filename builds <sanitized-label>_<timestamp>.json for a snapshot taken at t
func Filename(label string, t time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(FormatTimestamp(t))
	return SanitizeLabel(label) + "_" + stamp + FileExtension
}

// TimestampOf extracts the timestamp suffix of a snapshot filename
func TimestampOf(filename string) (string, bool) {
	match := timestampSuffix.FindStringSubmatch(filename)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// IsSnapshotFilename reports whether name has the full snapshot filename shape
func IsSnapshotFilename(name string) bool {
	return filenamePattern.MatchString(name)
}
