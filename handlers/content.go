package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/studyhive/backend/middleware"
	"github.com/studyhive/backend/models"
	"github.com/studyhive/backend/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxAttachmentBytes is the fixed attachment ceiling. Oversize files are
// rejected before any store or blob call.
const MaxAttachmentBytes = 5 << 20

// multipartOverhead covers field data and part framing beyond the file
// itself.
const multipartOverhead = 512 << 10

// ContentStore is the content surface the handlers need. *store.DB satisfies
// it.
type ContentStore interface {
	InsertContent(ctx context.Context, c *models.Content) (primitive.ObjectID, error)
	ContentByID(ctx context.Context, id primitive.ObjectID) (*models.Content, error)
	ListContent(ctx context.Context) ([]models.Content, error)
	SearchContent(ctx context.Context, query string) ([]models.Content, error)
	UpdateContentMeta(ctx context.Context, id primitive.ObjectID, c *models.Content, clearAttachment bool) error
	DeleteContent(ctx context.Context, id primitive.ObjectID) error
}

type ContentHandler struct {
	DB       ContentStore
	Uploader *service.Uploader
}

type contentForm struct {
	Title   string `json:"title" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Type    string `json:"type" validate:"required"`
	Body    string `json:"body" validate:"required"`
	Stream  string `json:"stream"`
	Year    string `json:"year"`
}

type SaveContentResponse struct {
	ID           string `json:"id"`
	UploadTaskID string `json:"uploadTaskId,omitempty"`
}

// parseSubmission reads one multipart submission: metadata fields plus an
// optional file part. Validation and the size ceiling are enforced here,
// before the caller touches the store. A nil fileData means no attachment was
// selected.
func (h *ContentHandler) parseSubmission(w http.ResponseWriter, r *http.Request) (form contentForm, fileData []byte, filename, fileType string, ok bool) {
	if r.ContentLength > MaxAttachmentBytes+multipartOverhead {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the 5 MB limit")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxAttachmentBytes+multipartOverhead)
	if err := r.ParseMultipartForm(MaxAttachmentBytes + multipartOverhead); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}
	form = contentForm{
		Title:   strings.TrimSpace(r.FormValue("title")),
		Subject: strings.TrimSpace(r.FormValue("subject")),
		Type:    strings.TrimSpace(r.FormValue("type")),
		Body:    r.FormValue("body"),
		Stream:  strings.TrimSpace(r.FormValue("stream")),
		Year:    strings.TrimSpace(r.FormValue("year")),
	}
	if err := validate.Struct(form); err != nil {
		if !writeFieldErrors(w, err) {
			writeError(w, http.StatusBadRequest, "invalid request")
		}
		return
	}
	if !models.ContentTypeValid(form.Type) {
		writeError(w, http.StatusBadRequest, "type must be one of: Class Notes, PYQ, Important Question")
		return
	}
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		ok = true
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	defer file.Close()
	if header.Size > MaxAttachmentBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the 5 MB limit")
		return
	}
	fileData, err = io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	filename = header.Filename
	fileType = header.Header.Get("Content-Type")
	if fileType == "" {
		fileType = "application/octet-stream"
	}
	ok = true
	return
}

// Create saves a new content item. The metadata write is acknowledged before
// the handler returns; any attachment uploads in the background and patches
// fileUrl/fileType on the same document when it completes.
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	form, fileData, filename, fileType, ok := h.parseSubmission(w, r)
	if !ok {
		return
	}
	now := timeNow()
	c := &models.Content{
		Title:      form.Title,
		Subject:    form.Subject,
		Type:       form.Type,
		Body:       form.Body,
		Stream:     form.Stream,
		Year:       form.Year,
		AuthorID:   profile.ID,
		AuthorName: profile.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	id, err := h.DB.InsertContent(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save content")
		return
	}
	resp := SaveContentResponse{ID: id.Hex()}
	if fileData != nil {
		task := h.Uploader.Start(id, profile.ID.Hex(), filename, fileType, fileData)
		resp.UploadTaskID = task.ID
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Update rewrites an existing item's textual fields. Without a new file the
// attachment fields are left untouched; with one they are cleared in the same
// metadata write and re-populated when the new upload completes.
func (h *ContentHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content id")
		return
	}
	existing, err := h.DB.ContentByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load content")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}
	if !canModify(profile, existing) {
		writeError(w, http.StatusForbidden, "only the author or an official can edit this item")
		return
	}
	form, fileData, filename, fileType, ok := h.parseSubmission(w, r)
	if !ok {
		return
	}
	c := &models.Content{
		Title:   form.Title,
		Subject: form.Subject,
		Type:    form.Type,
		Body:    form.Body,
		Stream:  form.Stream,
		Year:    form.Year,
	}
	if err := h.DB.UpdateContentMeta(r.Context(), id, c, fileData != nil); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save content")
		return
	}
	resp := SaveContentResponse{ID: id.Hex()}
	if fileData != nil {
		task := h.Uploader.Start(id, existing.AuthorID.Hex(), filename, fileType, fileData)
		resp.UploadTaskID = task.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// Delete removes the metadata document only. Attachment blobs are left in
// the blob store; cleanup is not this flow's job.
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content id")
		return
	}
	existing, err := h.DB.ContentByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load content")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}
	if !canModify(profile, existing) {
		writeError(w, http.StatusForbidden, "only the author or an official can delete this item")
		return
	}
	if err := h.DB.DeleteContent(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete content")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "content deleted"})
}

func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.DB.ListContent(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list content")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid content id")
		return
	}
	c, err := h.DB.ContentByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load content")
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *ContentHandler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.DB.SearchContent(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search content")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// UploadStatus reports progress and outcome of a background upload task.
func (h *ContentHandler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := h.uploadTaskFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task.Snapshot())
}

// CancelUpload stops an in-flight upload. The saved metadata is unaffected.
func (h *ContentHandler) CancelUpload(w http.ResponseWriter, r *http.Request) {
	task, ok := h.uploadTaskFor(w, r)
	if !ok {
		return
	}
	task.Cancel()
	writeJSON(w, http.StatusOK, task.Snapshot())
}

// uploadTaskFor resolves the task and checks that the caller may touch it.
// A task id is not a capability: only the owning author or an official gets
// past here.
func (h *ContentHandler) uploadTaskFor(w http.ResponseWriter, r *http.Request) (*service.UploadTask, bool) {
	profile, ok := middleware.ProfileFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	task, ok := h.Uploader.Task(chi.URLParam(r, "taskId"))
	if !ok {
		writeError(w, http.StatusNotFound, "upload task not found")
		return nil, false
	}
	if task.Owner != profile.ID.Hex() && !profile.IsOfficial() {
		writeError(w, http.StatusForbidden, "only the author or an official can access this upload")
		return nil, false
	}
	return task, true
}

func canModify(profile *models.User, c *models.Content) bool {
	return profile.ID == c.AuthorID || profile.IsOfficial()
}
