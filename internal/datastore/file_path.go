package datastore

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const hashPrefixLen = 6

// blobFileName derives the date-bucketed relative path for a new blob. The
// layout is browsable by hand: one directory per day, files named by time of
// first sighting plus a short hash prefix.
func blobFileName(t time.Time, contentHash, extension string) string {
	name := fmt.Sprintf("%s_%s.%s",
		t.Format("15-04-05"),
		contentHash[:hashPrefixLen],
		normalizeExtension(extension),
	)
	return filepath.Join(t.Format("2006-01-02"), name)
}

func normalizeExtension(extension string) string {
	ext := strings.TrimPrefix(strings.TrimSpace(extension), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}
