package filesvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	store     ObjectStore
	registry  Registry
	publisher Publisher
	log       *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithObjectStore sets the object store backend
func WithObjectStore(store ObjectStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithRegistry sets the ConfigDB/Directory registry client
func WithRegistry(registry Registry) Option {
	return func(s *service) {
		s.registry = registry
	}
}

// WithPublisher sets the Sparkplug publisher. The publisher is optional:
// without one the announce step is skipped.
func WithPublisher(publisher Publisher) Option {
	return func(s *service) {
		s.publisher = publisher
	}
}

// WithLogger sets the logger for the service
func WithLogger(log *slog.Logger) Option {
	return func(s *service) {
		s.log = log
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		log: slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, errors.New("object store is required")
	}
	if s.registry == nil {
		return nil, errors.New("registry is required")
	}

	return s, nil
}

func (s *service) UploadFile(ctx context.Context, req UploadFileRequest) (*FileEntry, *PutInfo, error) {
	props, found, err := s.registry.GetDeviceProperties(ctx, req.InstanceUUID)
	if err != nil {
		return nil, nil, err
	}
	if !found || props.TopSchema == "" {
		s.log.Error("no top_schema for device", "instance_uuid", req.InstanceUUID)
		return nil, nil, &FileTypeError{Reason: "no top_schema for device " + req.InstanceUUID.String()}
	}

	schemaUUID, err := uuid.Parse(props.TopSchema)
	if err != nil {
		return nil, nil, &FileTypeError{Reason: fmt.Sprintf("malformed top_schema %q for device %s", props.TopSchema, req.InstanceUUID)}
	}

	allowed, found, err := s.registry.GetSchemaFileTypeMap(ctx, schemaUUID)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		s.log.Error("no file type config for schema", "schema_uuid", schemaUUID)
		return nil, nil, &FileTypeError{Reason: "no file type config for schema " + schemaUUID.String()}
	}

	fileType, err := VerifyFileType(req.Filename, req.MimeType, req.FileTypeKey, allowed)
	if err != nil {
		return nil, nil, err
	}

	entry := &FileEntry{
		Device:              Device{InstanceUUID: req.InstanceUUID},
		Filename:            req.Filename,
		FriendlyTitle:       req.FriendlyTitle,
		FriendlyDescription: req.FriendlyDescription,
		Uploader:            req.Uploader,
		Timestamp:           time.Now().UTC(),
		Tags:                req.Tags,
		FileType:            *fileType,
	}

	key, putInfo, err := s.store.Put(ctx, req.InstanceUUID.String(), req.Content, req.Filename, stringifyTags(req.Tags))
	if err != nil {
		return nil, nil, err
	}
	entry.FileUUID = key

	if err := s.registry.CreateEntry(ctx, key, entry); err != nil {
		return nil, nil, err
	}

	// Telemetry is best-effort: a dead broker must not fail an upload that
	// is already durable in the store and registry.
	if s.publisher != nil {
		if err := s.publisher.PublishFileEntry(ctx, entry); err != nil {
			s.log.Warn("not publishing file entry message", "file_uuid", key, "error", err)
		}
	}

	return entry, putInfo, nil
}

func (s *service) DownloadFile(ctx context.Context, req DownloadFileRequest) (*DownloadResult, bool, error) {
	folder := req.InstanceUUID.String()

	info, found, err := s.store.Stat(ctx, folder, req.FileUUID)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	url, err := s.store.PresignedDownloadURL(ctx, folder, req.FileUUID, info.Metadata["originalname"])
	if err != nil {
		return nil, false, err
	}

	return &DownloadResult{Info: info, URL: url}, true, nil
}

func (s *service) ListDeviceFiles(ctx context.Context, instanceUUID uuid.UUID) ([]*FileEntry, error) {
	return s.registry.ListEntriesForDevice(ctx, instanceUUID)
}

func (s *service) GetFileEntry(ctx context.Context, fileUUID uuid.UUID) (*FileEntry, error) {
	return s.registry.GetEntry(ctx, fileUUID)
}

func (s *service) GetSchemaConfig(ctx context.Context, schemaUUID uuid.UUID) ([]FileType, error) {
	allowed, found, err := s.registry.GetSchemaFileTypeMap(ctx, schemaUUID)
	if err != nil {
		return nil, err
	}
	if !found {
		return []FileType{}, nil
	}
	return allowed, nil
}

// stringifyTags flattens the free-form tag map into the string-valued
// metadata the object store accepts.
func stringifyTags(tags map[string]any) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = fmt.Sprint(v)
	}
	return out
}
