// Package registry is the HTTP client for the ConfigDB and Directory
// services: file entries and schema allow-lists live in the ConfigDB, device
// properties in the Directory.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
)

// Config options for the registry client
type Config struct {
	ConfigDBURL  string // base URL of the ConfigDB service
	DirectoryURL string // base URL of the Directory service
	BearerToken  string // optional service account token

	// ConfigDB identifiers; the filesvc defaults are used when empty.
	FileEntryAppUUID     string
	FileSchemaMapAppUUID string
	FileClassUUID        string
}

// Client talks JSON over HTTP to the ConfigDB and Directory services and
// implements the filesvc.Registry interface.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

// Option represents a functional option for configuring the client
type Option func(*Client)

// WithLogger sets the logger for the client
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// New creates a new registry client
func New(cfg Config, options ...Option) (*Client, error) {
	if cfg.ConfigDBURL == "" {
		return nil, errors.New("configdb URL is required")
	}
	if cfg.DirectoryURL == "" {
		return nil, errors.New("directory URL is required")
	}
	if cfg.FileEntryAppUUID == "" {
		cfg.FileEntryAppUUID = filesvc.FileEntryAppUUID
	}
	if cfg.FileSchemaMapAppUUID == "" {
		cfg.FileSchemaMapAppUUID = filesvc.FileSchemaMapAppUUID
	}
	if cfg.FileClassUUID == "" {
		cfg.FileClassUUID = filesvc.FileClassUUID
	}

	c := &Client{
		cfg:  cfg,
		http: &http.Client{},
		log:  slog.Default(),
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

// CreateEntry registers the file in the ConfigDB. This is a two-step,
// non-transactional protocol: first the bare object is created under the
// File class, then the entry body is written under the file-entry
// application. A crash between the steps leaves an orphan class object
// behind; that window is documented and not retried here.
func (c *Client) CreateEntry(ctx context.Context, fileUUID uuid.UUID, entry *filesvc.FileEntry) error {
	createBody := map[string]string{
		"class": c.cfg.FileClassUUID,
		"uuid":  fileUUID.String(),
	}
	resp, err := c.do(ctx, http.MethodPost, c.cfg.ConfigDBURL+"/v1/object", createBody)
	if err != nil {
		return &filesvc.RegistryError{Op: "create object", Err: err}
	}
	drain(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
		// fall through to the entry body write
	case http.StatusConflict:
		c.log.Error("object already exists with a different class",
			"file_uuid", fileUUID, "class_uuid", c.cfg.FileClassUUID)
		return &filesvc.RegistryError{Op: "create object", Status: resp.StatusCode, Err: filesvc.ErrRegistryConflict}
	default:
		return &filesvc.RegistryError{Op: "create object", Status: resp.StatusCode}
	}

	entryURL := fmt.Sprintf("%s/v1/app/%s/object/%s", c.cfg.ConfigDBURL, c.cfg.FileEntryAppUUID, fileUUID)
	resp, err = c.do(ctx, http.MethodPut, entryURL, entry)
	if err != nil {
		return &filesvc.RegistryError{Op: "put entry", Err: err}
	}
	drain(resp)

	switch resp.StatusCode {
	case http.StatusNoContent:
		c.log.Info("created file entry in ConfigDB", "file_uuid", fileUUID)
		return nil
	case http.StatusForbidden:
		c.log.Error("file entry does not validate against schema", "file_uuid", fileUUID)
		return &filesvc.RegistryError{Op: "put entry", Status: resp.StatusCode, Err: filesvc.ErrRegistrySchemaViolation}
	default:
		return &filesvc.RegistryError{Op: "put entry", Status: resp.StatusCode}
	}
}

// GetEntry fetches a single file entry from the ConfigDB.
func (c *Client) GetEntry(ctx context.Context, fileUUID uuid.UUID) (*filesvc.FileEntry, error) {
	entryURL := fmt.Sprintf("%s/v1/app/%s/object/%s", c.cfg.ConfigDBURL, c.cfg.FileEntryAppUUID, fileUUID)

	var entry filesvc.FileEntry
	if err := c.getJSON(ctx, "get entry", entryURL, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListEntriesForDevice searches the ConfigDB for the device's entry
// identifiers and fetches each entry individually. The fan-out trades call
// efficiency for registry simplicity.
func (c *Client) ListEntriesForDevice(ctx context.Context, instanceUUID uuid.UUID) ([]*filesvc.FileEntry, error) {
	searchURL := fmt.Sprintf("%s/v1/app/%s/search?device.instance_uuid=%s",
		c.cfg.ConfigDBURL, c.cfg.FileEntryAppUUID, url.QueryEscape(fmt.Sprintf("%q", instanceUUID)))

	var ids []uuid.UUID
	if err := c.getJSON(ctx, "search entries", searchURL, &ids); err != nil {
		return nil, err
	}

	entries := make([]*filesvc.FileEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := c.GetEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	c.log.Info("listed file entries for device", "instance_uuid", instanceUUID, "count", len(entries))
	return entries, nil
}

// GetSchemaFileTypeMap fetches the file-type allow-list configured for a
// schema. An absent map is found=false, not an error.
func (c *Client) GetSchemaFileTypeMap(ctx context.Context, schemaUUID uuid.UUID) ([]filesvc.FileType, bool, error) {
	mapURL := fmt.Sprintf("%s/v1/app/%s/object/%s", c.cfg.ConfigDBURL, c.cfg.FileSchemaMapAppUUID, schemaUUID)

	var allowed []filesvc.FileType
	err := c.getJSON(ctx, "get schema map", mapURL, &allowed)
	if errors.Is(err, filesvc.ErrRegistryNotFound) {
		c.log.Warn("no schema map config for schema", "schema_uuid", schemaUUID)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return allowed, true, nil
}

// GetDeviceProperties fetches the device's live record from the Directory.
// An unknown device is found=false, not an error.
func (c *Client) GetDeviceProperties(ctx context.Context, instanceUUID uuid.UUID) (*filesvc.DeviceProperties, bool, error) {
	deviceURL := fmt.Sprintf("%s/v1/device/%s", c.cfg.DirectoryURL, instanceUUID)

	var props filesvc.DeviceProperties
	err := c.getJSON(ctx, "get device", deviceURL, &props)
	if errors.Is(err, filesvc.ErrRegistryNotFound) {
		c.log.Error("no directory record for device", "instance_uuid", instanceUUID)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &props, true, nil
}

// do sends a JSON request. The caller owns the response body.
func (c *Client) do(ctx context.Context, method, rawURL string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}

	return c.http.Do(req)
}

// getJSON performs a GET and decodes a 200 response into out. 404 maps to
// ErrRegistryNotFound; any other status is a RegistryError.
func (c *Client) getJSON(ctx context.Context, op, rawURL string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &filesvc.RegistryError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &filesvc.RegistryError{Op: op, Status: resp.StatusCode, Err: err}
		}
		return nil
	case http.StatusNotFound:
		return &filesvc.RegistryError{Op: op, Status: resp.StatusCode, Err: filesvc.ErrRegistryNotFound}
	default:
		return &filesvc.RegistryError{Op: op, Status: resp.StatusCode}
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
