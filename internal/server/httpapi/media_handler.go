package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mvasilyev/mediavault/internal/logging"
	"github.com/mvasilyev/mediavault/internal/server/models"
	"github.com/mvasilyev/mediavault/internal/server/services"
)

// multipart form memory ceiling; larger parts spill to disk.
const multipartMemory = 10 * 1024 * 1024

type mediaListResponse struct {
	Items    []*models.MediaAssetView `json:"items"`
	Total    int64                    `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"pageSize"`
}

type mediaUpdateRequest struct {
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

// MediaHandler serves the authenticated media endpoints. Identity always
// comes from the request context populated by the bearer middleware.
type MediaHandler struct {
	assets        *services.AssetService
	maxUploadSize int64
	logger        logging.Logger
}

func NewMediaHandler(assets *services.AssetService, maxUploadSize int64, logger logging.Logger) *MediaHandler {
	return &MediaHandler{
		assets:        assets,
		maxUploadSize: maxUploadSize,
		logger:        logger.With("component", "media_handler"),
	}
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	// Reject runaway bodies before buffering; the service re-checks the
	// exact payload size.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartMemory)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	var description *string
	if values, exists := r.MultipartForm.Value["description"]; exists && len(values) > 0 {
		description = &values[0]
	}

	asset, err := h.assets.Upload(r.Context(), accountID, fileBytes,
		header.Filename, header.Header.Get("Content-Type"), description, r.FormValue("tags"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, asset.View())
}

func (h *MediaHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	page, pageSize, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind := models.MediaKind(r.URL.Query().Get("mediaType"))
	if kind != "" && kind != models.MediaKindImage && kind != models.MediaKindVideo {
		writeError(w, http.StatusBadRequest, "mediaType must be image or video")
		return
	}

	items, total, err := h.assets.List(r.Context(), accountID, page, pageSize, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse(items, total, page, pageSize))
}

func (h *MediaHandler) Search(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	page, pageSize, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.assets.Search(r.Context(), accountID, query, page, pageSize)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse(items, total, page, pageSize))
}

func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	asset, err := h.assets.Get(r.Context(), accountID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, asset.View())
}

func (h *MediaHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	var req mediaUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	asset, err := h.assets.Update(r.Context(), accountID, chi.URLParam(r, "id"), &models.MediaAssetChanges{
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, asset.View())
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, ok := AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	if err := h.assets.Delete(r.Context(), accountID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func parsePagination(r *http.Request) (int, int, error) {
	page, err := intQueryParam(r, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := intQueryParam(r, "pageSize", 20)
	if err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

func intQueryParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &badParamError{name: name}
	}
	return value, nil
}

type badParamError struct{ name string }

func (e *badParamError) Error() string { return e.name + " must be an integer" }

func listResponse(items []*models.MediaAsset, total int64, page, pageSize int) mediaListResponse {
	views := make([]*models.MediaAssetView, 0, len(items))
	for _, item := range items {
		views = append(views, item.View())
	}
	return mediaListResponse{Items: views, Total: total, Page: page, PageSize: pageSize}
}
