package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStageManifestMissingPathIsEmpty(t *testing.T) {
	got, err := LoadStageManifest("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadStageManifestMissingFileIsEmpty(t *testing.T) {
	got, err := LoadStageManifest(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadStageManifestParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	content := []byte("stages:\n  - name: Review.Script.Grammar\n    pass_threshold: 80\n  - name: Review.Script.Tone\n    pass_threshold: 60\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	got, err := LoadStageManifest(path)
	require.NoError(t, err)
	assert.Equal(t, 80, got["Review.Script.Grammar"])
	assert.Equal(t, 60, got["Review.Script.Tone"])
}
