package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
)

func testEntry(instanceUUID uuid.UUID) *filesvc.FileEntry {
	return &filesvc.FileEntry{
		Device:   filesvc.Device{InstanceUUID: instanceUUID},
		Filename: "photo.png",
		FileType: filesvc.FileType{
			Title:    "Image",
			Key:      "image",
			MimeType: filesvc.MimeType{Mime: "image/png"},
		},
	}
}

func newTestClient(t *testing.T, configDB, directory *httptest.Server) *Client {
	t.Helper()
	cfg := Config{
		ConfigDBURL:  configDB.URL,
		DirectoryURL: configDB.URL,
		BearerToken:  "token-1",
	}
	if directory != nil {
		cfg.DirectoryURL = directory.URL
	}
	client, err := New(cfg)
	require.NoError(t, err)
	return client
}

func TestNew_RequiresURLs(t *testing.T) {
	_, err := New(Config{DirectoryURL: "http://directory"})
	assert.Error(t, err)

	_, err = New(Config{ConfigDBURL: "http://configdb"})
	assert.Error(t, err)
}

func TestCreateEntry_TwoStepWrite(t *testing.T) {
	fileUUID := uuid.New()
	var objectCreated, entryPut bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/object":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, filesvc.FileClassUUID, body["class"])
			assert.Equal(t, fileUUID.String(), body["uuid"])
			objectCreated = true
			w.WriteHeader(http.StatusCreated)

		case r.Method == http.MethodPut && r.URL.Path == fmt.Sprintf("/v1/app/%s/object/%s", filesvc.FileEntryAppUUID, fileUUID):
			require.True(t, objectCreated, "entry written before object creation")
			var entry filesvc.FileEntry
			require.NoError(t, json.NewDecoder(r.Body).Decode(&entry))
			assert.Equal(t, "photo.png", entry.Filename)
			entryPut = true
			w.WriteHeader(http.StatusNoContent)

		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	err := client.CreateEntry(context.Background(), fileUUID, testEntry(uuid.New()))
	require.NoError(t, err)
	assert.True(t, entryPut)
}

func TestCreateEntry_Conflict(t *testing.T) {
	var entryPuts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusConflict)
			return
		}
		entryPuts++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	err := client.CreateEntry(context.Background(), uuid.New(), testEntry(uuid.New()))
	require.Error(t, err)

	assert.ErrorIs(t, err, filesvc.ErrRegistryConflict)
	assert.Equal(t, 0, entryPuts, "conflict must stop before the entry write")
}

func TestCreateEntry_SchemaViolation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	err := client.CreateEntry(context.Background(), uuid.New(), testEntry(uuid.New()))
	require.Error(t, err)

	assert.ErrorIs(t, err, filesvc.ErrRegistrySchemaViolation)

	var regErr *filesvc.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, http.StatusForbidden, regErr.Status)
}

func TestCreateEntry_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	err := client.CreateEntry(context.Background(), uuid.New(), testEntry(uuid.New()))
	require.Error(t, err)

	var regErr *filesvc.RegistryError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, http.StatusInternalServerError, regErr.Status)
}

func TestGetEntry(t *testing.T) {
	fileUUID := uuid.New()
	instanceUUID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/v1/app/%s/object/%s", filesvc.FileEntryAppUUID, fileUUID), r.URL.Path)
		render(w, testEntry(instanceUUID))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	entry, err := client.GetEntry(context.Background(), fileUUID)
	require.NoError(t, err)
	assert.Equal(t, instanceUUID, entry.Device.InstanceUUID)
	assert.Equal(t, "photo.png", entry.Filename)
}

func TestGetEntry_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	_, err := client.GetEntry(context.Background(), uuid.New())
	assert.ErrorIs(t, err, filesvc.ErrRegistryNotFound)
}

func TestListEntriesForDevice(t *testing.T) {
	instanceUUID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == fmt.Sprintf("/v1/app/%s/search", filesvc.FileEntryAppUUID) {
			assert.Equal(t, fmt.Sprintf("%q", instanceUUID), r.URL.Query().Get("device.instance_uuid"))
			render(w, ids)
			return
		}
		render(w, testEntry(instanceUUID))
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	entries, err := client.ListEntriesForDevice(context.Background(), instanceUUID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListEntriesForDevice_Empty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render(w, []uuid.UUID{})
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	entries, err := client.ListEntriesForDevice(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGetSchemaFileTypeMap(t *testing.T) {
	schemaUUID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/v1/app/%s/object/%s", filesvc.FileSchemaMapAppUUID, schemaUUID), r.URL.Path)
		render(w, []filesvc.FileType{{Title: "Image", Key: "image", MimeType: filesvc.MimeType{Mime: "image/png"}}})
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	allowed, found, err := client.GetSchemaFileTypeMap(context.Background(), schemaUUID)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, allowed, 1)
	assert.Equal(t, "image", allowed[0].Key)
}

func TestGetSchemaFileTypeMap_Absent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server, nil)
	allowed, found, err := client.GetSchemaFileTypeMap(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, allowed)
}

func TestGetDeviceProperties(t *testing.T) {
	instanceUUID := uuid.New()
	schemaUUID := uuid.New()

	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/device/"+instanceUUID.String(), r.URL.Path)
		render(w, filesvc.DeviceProperties{
			UUID:      instanceUUID,
			Online:    true,
			TopSchema: schemaUUID.String(),
		})
	}))
	defer directory.Close()

	configDB := httptest.NewServer(http.NotFoundHandler())
	defer configDB.Close()

	client := newTestClient(t, configDB, directory)
	props, found, err := client.GetDeviceProperties(context.Background(), instanceUUID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, schemaUUID.String(), props.TopSchema)
	assert.True(t, props.Online)
}

func TestGetDeviceProperties_Unknown(t *testing.T) {
	directory := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer directory.Close()

	configDB := httptest.NewServer(http.NotFoundHandler())
	defer configDB.Close()

	client := newTestClient(t, configDB, directory)
	props, found, err := client.GetDeviceProperties(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, props)
}

func render(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
