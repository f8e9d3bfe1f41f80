package filesvc

import (
	"time"

	"github.com/google/uuid"
)

// Device identifies the Sparkplug device a file belongs to.
type Device struct {
	InstanceUUID uuid.UUID `json:"instance_uuid"`
}

// MimeTypeCustom lists the file extensions accepted for a file type that
// bypasses MIME checking.
type MimeTypeCustom struct {
	Extensions []string `json:"extensions"`
}

// MimeType is the matching rule for a file type. When Custom is non-nil the
// extension list is authoritative and the Mime string is not consulted.
type MimeType struct {
	Mime   string          `json:"mime"`
	Custom *MimeTypeCustom `json:"custom,omitempty"`
}

// FileType is one entry of a schema's file-type allow-list.
type FileType struct {
	Title    string   `json:"title"`
	Key      string   `json:"key"`
	MimeType MimeType `json:"mime_type"`
}

// FileEntry describes a file held in the object store and registered in the
// ConfigDB. FileUUID is assigned by the object store on upload and is
// immutable thereafter.
type FileEntry struct {
	Device              Device         `json:"device"`
	Filename            string         `json:"filename"`
	FileUUID            uuid.UUID      `json:"file_uuid"`
	FriendlyTitle       string         `json:"friendly_title"`
	FriendlyDescription string         `json:"friendly_description"`
	Uploader            string         `json:"uploader"`
	Timestamp           time.Time      `json:"timestamp"`
	Tags                map[string]any `json:"tags,omitempty"`
	FileType            FileType       `json:"file_type"`
}

// DeviceProperties is the Directory service's view of a Sparkplug device.
// Always fetched fresh; TopSchema may be empty for devices that have never
// published a birth certificate.
type DeviceProperties struct {
	UUID       uuid.UUID `json:"uuid"`
	GroupID    string    `json:"group_id"`
	NodeID     string    `json:"node_id"`
	DeviceID   string    `json:"device_id"`
	Online     bool      `json:"online"`
	LastChange time.Time `json:"last_change"`
	TopSchema  string    `json:"top_schema"`
	Schemas    []string  `json:"schemas"`
}

// ObjectInfo contains the stat metadata of a stored object.
type ObjectInfo struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	LastModified time.Time         `json:"last_modified"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PutInfo is the store's receipt for a completed upload.
type PutInfo struct {
	ETag      string `json:"etag,omitempty"`
	VersionID string `json:"version_id,omitempty"`
}
