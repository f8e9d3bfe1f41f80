package filesvc

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ObjectStore defines the interface for the object storage backend
type ObjectStore interface {
	// Put writes the content under folder/<generated key> and returns the
	// generated key. The original filename is stamped into the stored
	// object metadata alongside any user metadata.
	Put(ctx context.Context, folder string, r io.Reader, originalFilename string, userMetadata map[string]string) (uuid.UUID, *PutInfo, error)

	// Stat retrieves metadata for a stored object. A missing bucket and a
	// missing object both report found=false; every other backend failure
	// is an error.
	Stat(ctx context.Context, folder string, key uuid.UUID) (*ObjectInfo, bool, error)

	// PresignedDownloadURL mints a time-limited download URL that forces a
	// browser attachment with the given filename.
	PresignedDownloadURL(ctx context.Context, folder string, key uuid.UUID, downloadFilename string) (string, error)
}

// Registry defines the interface for the remote ConfigDB and Directory
// services holding file metadata and device properties.
type Registry interface {
	// CreateEntry registers the file object under the File class and then
	// writes the entry body under the file-entry application. The two
	// steps are not transactional; a failure after the first leaves a bare
	// class object behind.
	CreateEntry(ctx context.Context, fileUUID uuid.UUID, entry *FileEntry) error

	GetEntry(ctx context.Context, fileUUID uuid.UUID) (*FileEntry, error)

	// ListEntriesForDevice searches for the device's entry identifiers and
	// fetches each entry individually.
	ListEntriesForDevice(ctx context.Context, instanceUUID uuid.UUID) ([]*FileEntry, error)

	// GetSchemaFileTypeMap returns the file-type allow-list configured for
	// the schema. found=false when no map is configured.
	GetSchemaFileTypeMap(ctx context.Context, schemaUUID uuid.UUID) ([]FileType, bool, error)

	// GetDeviceProperties fetches the device's live Directory record.
	// found=false when the Directory has no record of the device.
	GetDeviceProperties(ctx context.Context, instanceUUID uuid.UUID) (*DeviceProperties, bool, error)
}

// Publisher announces new file entries over the telemetry protocol.
type Publisher interface {
	PublishFileEntry(ctx context.Context, entry *FileEntry) error
}
