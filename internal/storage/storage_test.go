package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyKeepsFolderAndExtension(t *testing.T) {
	key := ObjectKey("products", "Photo.JPG")
	assert.True(t, strings.HasPrefix(key, "products/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)
	assert.NotEqual(t, key, ObjectKey("products", "Photo.JPG"))
}

func TestUnconfiguredRejectsUploads(t *testing.T) {
	_, err := Unconfigured{}.Put(context.Background(), "users", Upload{Filename: "a.png"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, Unconfigured{}.Delete(context.Background(), "users/a.png"))
}
