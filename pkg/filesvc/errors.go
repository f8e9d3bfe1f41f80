package filesvc

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotConnected indicates the protocol client has no live broker session
	ErrNotConnected = errors.New("protocol client not connected")

	// ErrRegistryConflict indicates the object already exists in the ConfigDB
	// under a different class
	ErrRegistryConflict = errors.New("object already exists under a different class")

	// ErrRegistrySchemaViolation indicates the entry body failed the
	// ConfigDB's own schema validation
	ErrRegistrySchemaViolation = errors.New("entry does not validate against registry schema")

	// ErrRegistryNotFound indicates the requested registry object is absent
	ErrRegistryNotFound = errors.New("registry object not found")
)

// FileTypeError reports a request/content mismatch during file type
// verification. It is user-correctable and maps to a 4xx response.
type FileTypeError struct {
	Reason string
}

func (e *FileTypeError) Error() string {
	return "file type error: " + e.Reason
}

// StoreError represents a failure of the object store backend.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// RegistryError represents a failure of the remote ConfigDB or Directory
// service. Err carries one of the registry sentinel errors when the response
// status has a defined meaning.
type RegistryError struct {
	Op     string
	Status int
	Err    error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry operation %s failed (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("registry operation %s failed: unexpected status %d", e.Op, e.Status)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}
