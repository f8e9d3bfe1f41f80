package filesvc

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the upload/download orchestration interface for the Files
// service.
type Service interface {
	// UploadFile verifies the file against the device's schema allow-list,
	// writes it to the object store, registers the entry in the ConfigDB
	// and announces it over Sparkplug. The Sparkplug publish is
	// best-effort: its failure never fails the upload.
	UploadFile(ctx context.Context, req UploadFileRequest) (*FileEntry, *PutInfo, error)

	// DownloadFile stats the object and mints a presigned download URL.
	// An absent bucket or object reports found=false rather than an error.
	DownloadFile(ctx context.Context, req DownloadFileRequest) (*DownloadResult, bool, error)

	// ListDeviceFiles returns every file entry registered for the device.
	ListDeviceFiles(ctx context.Context, instanceUUID uuid.UUID) ([]*FileEntry, error)

	// GetFileEntry returns a single registered file entry.
	GetFileEntry(ctx context.Context, fileUUID uuid.UUID) (*FileEntry, error)

	// GetSchemaConfig returns the file-type allow-list for a schema, or an
	// empty list when none is configured.
	GetSchemaConfig(ctx context.Context, schemaUUID uuid.UUID) ([]FileType, error)
}

// UploadFileRequest contains parameters for uploading a file
type UploadFileRequest struct {
	InstanceUUID        uuid.UUID
	Filename            string
	MimeType            string
	FileTypeKey         string
	FriendlyTitle       string
	FriendlyDescription string
	Uploader            string
	Tags                map[string]any
	Content             io.Reader
}

// DownloadFileRequest contains parameters for requesting a download URL
type DownloadFileRequest struct {
	InstanceUUID uuid.UUID
	FileUUID     uuid.UUID
}

// DownloadResult carries the object's stat metadata and its presigned URL.
type DownloadResult struct {
	Info *ObjectInfo
	URL  string
}
