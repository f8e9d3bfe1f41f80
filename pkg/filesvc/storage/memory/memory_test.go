package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
)

func TestPutAndStat(t *testing.T) {
	backend := New()
	ctx := context.Background()

	key, putInfo, err := backend.Put(ctx, "device-1", strings.NewReader("hello"), "notes.txt", map[string]string{"line": "3"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, key)
	assert.NotEmpty(t, putInfo.ETag)

	info, found, err := backend.Stat(ctx, "device-1", key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(5), info.Size)
	assert.Equal(t, "notes.txt", info.Metadata["originalname"])
	assert.Equal(t, "3", info.Metadata["line"])
	assert.Equal(t, putInfo.ETag, info.ETag)
}

func TestPutGeneratesUniqueKeys(t *testing.T) {
	backend := New()
	ctx := context.Background()

	key1, _, err := backend.Put(ctx, "device-1", strings.NewReader("a"), "a.txt", nil)
	require.NoError(t, err)
	key2, _, err := backend.Put(ctx, "device-1", strings.NewReader("b"), "b.txt", nil)
	require.NoError(t, err)

	assert.NotEqual(t, key1, key2)
}

func TestStatAbsent(t *testing.T) {
	backend := New()

	info, found, err := backend.Stat(context.Background(), "device-1", uuid.New())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, info)
}

func TestStatWrongFolder(t *testing.T) {
	backend := New()
	ctx := context.Background()

	key, _, err := backend.Put(ctx, "device-1", strings.NewReader("hello"), "notes.txt", nil)
	require.NoError(t, err)

	_, found, err := backend.Stat(ctx, "device-2", key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPresignedDownloadURL(t *testing.T) {
	backend := New()
	ctx := context.Background()

	key, _, err := backend.Put(ctx, "device-1", strings.NewReader("hello"), "notes.txt", nil)
	require.NoError(t, err)

	url, err := backend.PresignedDownloadURL(ctx, "device-1", key, "notes.txt")
	require.NoError(t, err)
	assert.Contains(t, url, key.String())
	assert.Contains(t, url, "notes.txt")
}

func TestPresignedDownloadURLAbsent(t *testing.T) {
	backend := New()

	_, err := backend.PresignedDownloadURL(context.Background(), "device-1", uuid.New(), "x.txt")
	require.Error(t, err)

	var storeErr *filesvc.StoreError
	assert.ErrorAs(t, err, &storeErr)
}
