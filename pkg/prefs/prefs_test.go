package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".userprefs.json")

	saved := Default()
	saved.Style = 7
	saved.ExportFormat = "jpg"
	saved.JPGQuality = 80
	Save(path, saved)

	loaded := Load(path)
	assert.Equal(t, saved, loaded)
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	loaded := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Equal(t, Default(), loaded)
}

func TestLoadCorruptFileGivesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".userprefs.json")
	assert.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	assert.Equal(t, Default(), Load(path))
}
