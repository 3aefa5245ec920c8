package dicom

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_RejectsNonDICOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.dcm")
	require.NoError(t, os.WriteFile(path, make([]byte, 256), 0644))

	_, err := NewReader().ReadTags(context.Background(), path)
	assert.Error(t, err)
}

func TestReader_MissingFile(t *testing.T) {
	_, err := NewReader().ReadTags(context.Background(), filepath.Join(t.TempDir(), "absent.dcm"))
	assert.Error(t, err)
}

func TestReader_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewReader().ReadTags(ctx, "unused")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTextValues(t *testing.T) {
	assert.Equal(t, []string{"CT"}, textValues([]string{"CT"}))
	assert.Equal(t, []string{"512", "256"}, textValues([]int{512, 256}))
	assert.Equal(t, []string{"0.5"}, textValues([]float64{0.5}))
	assert.Nil(t, textValues([]byte{1, 2}))
}
