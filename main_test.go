package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOffset(t *testing.T) {
	dx, dy, err := parseOffset("5, -3")
	require.NoError(t, err)
	assert.Equal(t, 5, dx)
	assert.Equal(t, -3, dy)

	for _, bad := range []string{"5", "a,1", "1,b", "1,2,3"} {
		_, _, err := parseOffset(bad)
		assert.Error(t, err, bad)
	}
}

func TestCheckImagePath(t *testing.T) {
	for _, ok := range []string{"sheet.jpg", "scan.TIFF", "dir/photo.webp"} {
		assert.NoError(t, checkImagePath(ok), ok)
	}
	for _, bad := range []string{"sheet.pdf", "notes.txt", "noext"} {
		assert.Error(t, checkImagePath(bad), bad)
	}
}
