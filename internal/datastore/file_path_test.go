package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlobFileName(t *testing.T) {
	ts := time.Date(2026, 8, 31, 14, 5, 9, 0, time.Local)
	hash := "a1b2c3d4e5f60000"

	name := blobFileName(ts, hash, "json")
	assert.Equal(t, filepath.Join("2026-08-31", "14-05-09_a1b2c3.json"), name)
}

func TestNormalizeExtension(t *testing.T) {
	assert.Equal(t, "jpg", normalizeExtension("jpg"))
	assert.Equal(t, "jpg", normalizeExtension(".jpg"))
	assert.Equal(t, "jpg", normalizeExtension(" .jpg"))
	assert.Equal(t, "bin", normalizeExtension(""))
}
