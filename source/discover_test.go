package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"b/2.dcm",
		"a/1.dcm",
		"a/deep/3.dicom",
		"a/notes.txt",
		".cache/4.dcm",
	} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}

	refs, err := Discover(root, nil)
	require.NoError(t, err)

	want := []FileRef{
		FileRef(filepath.Join(root, "a/1.dcm")),
		FileRef(filepath.Join(root, "a/deep/3.dicom")),
		FileRef(filepath.Join(root, "b/2.dcm")),
	}
	assert.Equal(t, want, refs)

	t.Run("custom include", func(t *testing.T) {
		refs, err := Discover(root, []string{"a/*.dcm", "a/*.dcm"})
		require.NoError(t, err)
		assert.Equal(t, []FileRef{FileRef(filepath.Join(root, "a/1.dcm"))}, refs)
	})

	t.Run("single file", func(t *testing.T) {
		file := filepath.Join(root, "a/notes.txt")
		refs, err := Discover(file, nil)
		require.NoError(t, err)
		assert.Equal(t, []FileRef{FileRef(file)}, refs)
	})

	t.Run("invalid pattern", func(t *testing.T) {
		_, err := Discover(root, []string{"a/[.dcm"})
		assert.Error(t, err)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := Discover(filepath.Join(root, "nope"), nil)
		assert.Error(t, err)
	})
}

func TestMatchesInclude(t *testing.T) {
	assert.True(t, MatchesInclude("x/y/z.dcm", nil))
	assert.True(t, MatchesInclude("z.dicom", nil))
	assert.False(t, MatchesInclude("z.txt", nil))
	assert.True(t, MatchesInclude("z.txt", []string{"*.txt"}))
}
