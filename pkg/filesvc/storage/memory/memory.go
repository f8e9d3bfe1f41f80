package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
)

// Backend is an in-memory implementation of the filesvc.ObjectStore
// interface, used in tests and local development.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	info    map[string]*filesvc.ObjectInfo
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string][]byte),
		info:    make(map[string]*filesvc.ObjectInfo),
	}
}

func objectPath(folder string, key uuid.UUID) string {
	return folder + "/" + key.String()
}

// Put stores the content under a freshly generated key.
func (b *Backend) Put(ctx context.Context, folder string, r io.Reader, originalFilename string, userMetadata map[string]string) (uuid.UUID, *filesvc.PutInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return uuid.Nil, nil, &filesvc.StoreError{Op: "put", Key: folder, Err: err}
	}

	key := uuid.New()
	path := objectPath(folder, key)

	metadata := make(map[string]string, len(userMetadata)+1)
	for k, v := range userMetadata {
		metadata[k] = v
	}
	metadata["originalname"] = originalFilename

	sum := md5.Sum(data)
	etag := hex.EncodeToString(sum[:])

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[path] = data
	b.info[path] = &filesvc.ObjectInfo{
		Key:          path,
		Size:         int64(len(data)),
		ContentType:  "application/octet-stream",
		LastModified: time.Now().UTC(),
		ETag:         etag,
		Metadata:     metadata,
	}

	return key, &filesvc.PutInfo{ETag: etag}, nil
}

// Stat retrieves metadata for a stored object.
func (b *Backend) Stat(ctx context.Context, folder string, key uuid.UUID) (*filesvc.ObjectInfo, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	info, exists := b.info[objectPath(folder, key)]
	if !exists {
		return nil, false, nil
	}
	return info, true, nil
}

// PresignedDownloadURL returns a synthetic URL for the stored object.
func (b *Backend) PresignedDownloadURL(ctx context.Context, folder string, key uuid.UUID, downloadFilename string) (string, error) {
	path := objectPath(folder, key)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, exists := b.objects[path]; !exists {
		return "", &filesvc.StoreError{Op: "presign", Key: path, Err: fmt.Errorf("no such object")}
	}
	return fmt.Sprintf("memory://%s?filename=%s", path, url.QueryEscape(downloadFilename)), nil
}
