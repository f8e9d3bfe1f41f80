// Package api exposes the Files service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/AMRC-FactoryPlus/acs-files/pkg/filesvc"
)

// Handler routes the files endpoints onto a filesvc.Service.
type Handler struct {
	service      filesvc.Service
	log          *slog.Logger
	instanceUUID uuid.UUID
	version      string
}

// NewHandler creates a new HTTP handler for the files service
func NewHandler(service filesvc.Service, instanceUUID uuid.UUID, version string, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		service:      service,
		log:          log,
		instanceUUID: instanceUUID,
		version:      version,
	}
}

// Routes returns the router for the files endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Index)
	r.Get("/ping", h.Ping)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.Upload)
		r.Post("/download", h.Download)
		r.Get("/device/{instance_uuid}", h.ListDeviceFiles)
		r.Get("/file/{file_uuid}", h.GetFile)
		r.Get("/config/{schema_uuid}", h.SchemaConfig)
	})

	return r
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"service": filesvc.FileServiceUUID,
		"device":  h.instanceUUID.String(),
		"version": h.version,
	})
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Entry *filesvc.FileEntry `json:"entry"`
	ETag  string             `json:"etag,omitempty"`
}

// Upload accepts a multipart file with its metadata fields, runs the upload
// workflow and returns the finalized entry.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "malformed multipart request")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	instanceUUID, err := uuid.Parse(r.FormValue("instance_uuid"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid instance_uuid")
		return
	}

	var tags map[string]any
	if raw := r.FormValue("tags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			h.writeError(w, r, http.StatusBadRequest, "tags must be a JSON object")
			return
		}
	}

	entry, putInfo, err := h.service.UploadFile(r.Context(), filesvc.UploadFileRequest{
		InstanceUUID:        instanceUUID,
		Filename:            header.Filename,
		MimeType:            header.Header.Get("Content-Type"),
		FileTypeKey:         r.FormValue("file_type_key"),
		FriendlyTitle:       r.FormValue("friendly_title"),
		FriendlyDescription: r.FormValue("friendly_description"),
		Uploader:            r.FormValue("uploader"),
		Tags:                tags,
		Content:             file,
	})
	if err != nil {
		h.log.Error("upload failed", "instance_uuid", instanceUUID, "error", err)
		h.writeServiceError(w, r, err)
		return
	}

	h.log.Info("uploaded file", "file_uuid", entry.FileUUID)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, UploadResponse{Entry: entry, ETag: putInfo.ETag})
}

// DownloadRequest identifies the file to mint a download URL for.
type DownloadRequest struct {
	InstanceUUID uuid.UUID `json:"instance_uuid"`
	FileUUID     uuid.UUID `json:"file_uuid"`
}

// DownloadResponse carries the stat metadata and the presigned URL.
type DownloadResponse struct {
	*filesvc.ObjectInfo
	URL string `json:"url"`
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid download request")
		return
	}
	if req.InstanceUUID == uuid.Nil || req.FileUUID == uuid.Nil {
		h.writeError(w, r, http.StatusBadRequest, "instance_uuid and file_uuid are required")
		return
	}

	result, found, err := h.service.DownloadFile(r.Context(), filesvc.DownloadFileRequest{
		InstanceUUID: req.InstanceUUID,
		FileUUID:     req.FileUUID,
	})
	if err != nil {
		h.log.Error("download failed", "file_uuid", req.FileUUID, "error", err)
		h.writeServiceError(w, r, err)
		return
	}
	if !found {
		h.log.Info("bucket or file doesn't exist", "file_uuid", req.FileUUID)
		h.writeError(w, r, http.StatusUnprocessableEntity, "bucket or file doesn't exist")
		return
	}

	h.log.Info("download URL generated", "file_uuid", req.FileUUID)
	render.JSON(w, r, DownloadResponse{ObjectInfo: result.Info, URL: result.URL})
}

func (h *Handler) ListDeviceFiles(w http.ResponseWriter, r *http.Request) {
	instanceUUID, err := uuid.Parse(chi.URLParam(r, "instance_uuid"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid instance_uuid")
		return
	}

	entries, err := h.service.ListDeviceFiles(r.Context(), instanceUUID)
	if err != nil {
		h.log.Error("listing device files failed", "instance_uuid", instanceUUID, "error", err)
		h.writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, entries)
}

func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileUUID, err := uuid.Parse(chi.URLParam(r, "file_uuid"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid file_uuid")
		return
	}

	entry, err := h.service.GetFileEntry(r.Context(), fileUUID)
	if err != nil {
		h.log.Error("fetching file entry failed", "file_uuid", fileUUID, "error", err)
		h.writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, entry)
}

func (h *Handler) SchemaConfig(w http.ResponseWriter, r *http.Request) {
	schemaUUID, err := uuid.Parse(chi.URLParam(r, "schema_uuid"))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid schema_uuid")
		return
	}

	allowed, err := h.service.GetSchemaConfig(r.Context(), schemaUUID)
	if err != nil {
		h.log.Error("fetching schema config failed", "schema_uuid", schemaUUID, "error", err)
		h.writeServiceError(w, r, err)
		return
	}

	render.JSON(w, r, allowed)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses:
// type mismatches are the client's fault, store and registry failures are
// ours, registry not-found is 404, and anything else is a bad request.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fileTypeErr *filesvc.FileTypeError
	var storeErr *filesvc.StoreError
	var registryErr *filesvc.RegistryError

	status := http.StatusBadRequest
	switch {
	case errors.As(err, &fileTypeErr):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, filesvc.ErrRegistryNotFound):
		status = http.StatusNotFound
	case errors.As(err, &storeErr), errors.As(err, &registryErr):
		status = http.StatusInternalServerError
	}

	h.writeError(w, r, status, err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": message})
}
