package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/noteshare-io/noteshare/internal/media"
	"github.com/noteshare-io/noteshare/internal/middleware"
	"github.com/noteshare-io/noteshare/internal/models"
	"github.com/noteshare-io/noteshare/internal/services"
	"github.com/noteshare-io/noteshare/internal/utils"
	"gorm.io/gorm"
)

// NoteHandler handles the note lifecycle routes
type NoteHandler struct {
	DB       *gorm.DB
	Uploader *media.Uploader
	Blobs    media.BlobStore
}

type createNoteRequest struct {
	Title        string `json:"title"`
	FileURL      string `json:"fileUrl"`
	FileType     string `json:"fileType"`
	FileKey      string `json:"fileKey"`
	ThumbnailURL string `json:"thumbnailUrl"`
	ThumbnailKey string `json:"thumbnailKey"`
}

func notePayload(n *models.Note) fiber.Map {
	return fiber.Map{
		"id":           n.ID,
		"title":        n.Title,
		"fileUrl":      n.FileURL,
		"fileType":     n.FileType,
		"thumbnailUrl": n.ThumbnailURL,
		"uploader":     n.UploaderID,
		"uploaderName": n.UploaderName,
		"createdAt":    n.CreatedAt,
	}
}

func notesPayload(notes []models.Note) []fiber.Map {
	out := make([]fiber.Map, 0, len(notes))
	for i := range notes {
		out = append(out, notePayload(&notes[i]))
	}
	return out
}

// Create handles POST /api/notes/create for files already hosted elsewhere
// @Summary Create a note from an uploaded file
// @Tags Notes
// @Accept json
// @Produce json
// @Param body body createNoteRequest true "Note metadata"
// @Success 201 {object} utils.Envelope
// @Failure 400 {object} utils.Envelope
// @Failure 401 {object} utils.Envelope
// @Router /notes/create [post]
func (h *NoteHandler) Create(c *fiber.Ctx) error {
	var req createNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := services.GetUserByID(h.DB, middleware.UserID(c))
	if err != nil {
		return utils.FailResponse(c, err)
	}

	note, err := services.CreateNote(h.DB, user.ID, user.Name, req.Title, media.UploadResult{
		FileURL:      req.FileURL,
		FileType:     req.FileType,
		FileKey:      req.FileKey,
		ThumbnailURL: req.ThumbnailURL,
		ThumbnailKey: req.ThumbnailKey,
	})
	if err != nil {
		return utils.FailResponse(c, err)
	}

	return utils.SuccessResponse(c, fiber.StatusCreated, "Note created", notePayload(note))
}

// Upload handles POST /api/notes/upload: multipart PDF in, stored note out.
// The binary goes to object storage and page one becomes the thumbnail when
// the environment allows it.
// @Summary Upload a PDF and create its note
// @Tags Notes
// @Accept mpfd
// @Produce json
// @Param file formData file true "PDF file"
// @Param title formData string false "Note title"
// @Success 201 {object} utils.Envelope
// @Failure 400 {object} utils.Envelope
// @Failure 502 {object} utils.Envelope
// @Router /notes/upload [post]
func (h *NoteHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "A file is required")
	}

	user, err := services.GetUserByID(h.DB, middleware.UserID(c))
	if err != nil {
		return utils.FailResponse(c, err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Could not read the uploaded file")
	}
	defer src.Close()

	result, err := h.Uploader.Upload(c.UserContext(), src, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return utils.FailResponse(c, err)
	}

	title := c.FormValue("title")
	if title == "" {
		title = fileHeader.Filename
	}

	note, err := services.CreateNote(h.DB, user.ID, user.Name, title, result)
	if err != nil {
		return utils.FailResponse(c, err)
	}

	return utils.SuccessResponse(c, fiber.StatusCreated, "Note created", notePayload(note))
}

// List handles GET /api/notes
// @Summary List notes, newest first
// @Tags Notes
// @Produce json
// @Success 200 {object} utils.Envelope
// @Router /notes [get]
func (h *NoteHandler) List(c *fiber.Ctx) error {
	notes, err := services.ListNotes(h.DB)
	if err != nil {
		return utils.FailResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Notes", notesPayload(notes))
}

// ListByUser handles GET /api/notes/user/:username; the path segment is an
// uploader id or a display name.
func (h *NoteHandler) ListByUser(c *fiber.Ctx) error {
	notes, err := services.ListNotesByUploader(h.DB, c.Params("username"))
	if err != nil {
		return utils.FailResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Notes", notesPayload(notes))
}

// GetOne handles GET /api/notes/:id
func (h *NoteHandler) GetOne(c *fiber.Ctx) error {
	note, err := services.GetNoteByID(h.DB, c.Params("id"))
	if err != nil {
		return utils.FailResponse(c, err)
	}
	if note == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Note not found")
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Note", notePayload(note))
}

// Delete handles DELETE /api/notes/:id. Only the uploader may delete; the
// stored blobs are cleaned up best effort afterwards.
// @Summary Delete a note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} utils.Envelope
// @Failure 403 {object} utils.Envelope
// @Failure 404 {object} utils.Envelope
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *fiber.Ctx) error {
	note, err := services.DeleteNote(h.DB, c.Params("id"), middleware.UserID(c))
	if err != nil {
		return utils.FailResponse(c, err)
	}

	h.cleanupBlobs(note)
	return utils.SuccessResponse(c, fiber.StatusOK, "Note deleted", nil)
}

// Download handles GET /api/notes/download/:id. Notes with a storage key are
// proxied with byte-range support so client PDF viewers can seek; externally
// hosted files get a redirect to their stored URL.
func (h *NoteHandler) Download(c *fiber.Ctx) error {
	note, err := services.GetNoteByID(h.DB, c.Params("id"))
	if err != nil {
		return utils.FailResponse(c, err)
	}
	if note == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Note not found")
	}

	if note.FileKey == "" {
		return c.Redirect(note.FileURL, fiber.StatusFound)
	}

	rangeHeader := c.Get(fiber.HeaderRange)
	rc, contentLen, contentRange, contentType, err := h.Blobs.Get(c.UserContext(), note.FileKey, rangeHeader)
	if err != nil {
		log.Printf("Download proxy failed for note %s: %v", note.ID, err)
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "File is currently unavailable")
	}

	if contentType == "" {
		contentType = note.FileType
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderAcceptRanges, "bytes")
	status := fiber.StatusOK
	if contentRange != "" {
		c.Set(fiber.HeaderContentRange, contentRange)
		status = fiber.StatusPartialContent
	}
	c.Status(status)

	// contentLen can exceed int on 32-bit platforms; stream unsized there
	if contentLen > 0 && int64(int(contentLen)) == contentLen {
		return c.SendStream(rc, int(contentLen))
	}
	return c.SendStream(rc)
}

// cleanupBlobs removes the file and thumbnail objects behind a deleted note.
// Failures are logged only; the metadata is already gone.
func (h *NoteHandler) cleanupBlobs(note *models.Note) {
	if h.Blobs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, key := range []string{note.FileKey, note.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := h.Blobs.Delete(ctx, key); err != nil {
			log.Printf("Blob cleanup failed for %s: %v", key, err)
		}
	}
}
