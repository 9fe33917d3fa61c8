package services

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/noteshare-io/noteshare/internal/media"
	"github.com/noteshare-io/noteshare/internal/models"
	"github.com/noteshare-io/noteshare/internal/types"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// CreateNote persists the metadata for an uploaded file. A blank title falls
// back to "Untitled". The file URL and owner are immutable after this point.
func CreateNote(db *gorm.DB, uploaderID, uploaderName, title string, up media.UploadResult) (*models.Note, error) {
	if up.FileURL == "" {
		return nil, types.ValidationError("File URL is required")
	}
	if uploaderID == "" {
		return nil, types.ValidationError("Uploader is required")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}

	note := models.Note{
		ID:           uuid.NewString(),
		Title:        title,
		FileURL:      up.FileURL,
		FileType:     up.FileType,
		FileKey:      up.FileKey,
		ThumbnailURL: up.ThumbnailURL,
		ThumbnailKey: up.ThumbnailKey,
		UploaderID:   uploaderID,
		UploaderName: uploaderName,
	}

	if len(up.Meta) > 0 {
		payload, err := json.Marshal(up.Meta)
		if err == nil {
			note.UploadMeta.JSON = payload
		}
	}

	if err := db.Create(&note).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

// ListNotes returns every note, newest first
func ListNotes(db *gorm.DB) ([]models.Note, error) {
	var notes []models.Note
	err := db.Clauses(hints.CommentBefore("select", "notes-list")).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

// ListNotesByUploader resolves the identifier as an owner id when it is
// uuid-shaped, otherwise as an uploader display-name match. Newest first.
func ListNotesByUploader(db *gorm.DB, identifier string) ([]models.Note, error) {
	var notes []models.Note

	query := db.Order("created_at DESC")
	if _, err := uuid.Parse(identifier); err == nil {
		query = query.Where("uploader_id = ?", identifier)
	} else {
		query = query.Where("uploader_name = ?", identifier)
	}

	err := query.Find(&notes).Error
	return notes, err
}

// GetNoteByID returns nil (not an error) for a malformed id or a missing record
func GetNoteByID(db *gorm.DB, id string) (*models.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	var note models.Note
	err := db.Where("id = ?", id).First(&note).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}

// DeleteNote removes a note after checking ownership. The deleted record is
// returned so the caller can clean up its stored blobs.
func DeleteNote(db *gorm.DB, id, requesterID string) (*models.Note, error) {
	note, err := GetNoteByID(db, id)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, types.NotFoundError("Note not found")
	}
	if note.UploaderID != requesterID {
		return nil, types.ForbiddenError("Only the uploader can delete this note")
	}

	if err := db.Delete(note).Error; err != nil {
		return nil, err
	}
	return note, nil
}

// SetThumbnail populates the thumbnail fields of an existing note. A targeted
// column update, not a re-save, so a racing delete turns this into a zero-row
// no-op instead of resurrecting the record.
func SetThumbnail(db *gorm.DB, id, thumbnailURL, thumbnailKey string) error {
	return db.Model(&models.Note{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"thumbnail_url": thumbnailURL,
			"thumbnail_key": thumbnailKey,
		}).Error
}
