package models

import (
	"time"
)

// Note is the metadata record for one uploaded PDF. The binary itself lives in
// object storage; FileURL points at it and FileKey is the storage-internal
// identifier, stored explicitly at creation so it never has to be re-derived
// from the URL. UploaderName is a snapshot taken at upload time and is not
// kept in sync with later profile renames.
type Note struct {
	ID           string `gorm:"type:char(36);primaryKey"`
	Title        string `gorm:"size:255;not null"`
	FileURL      string `gorm:"size:1024;not null"`
	FileType     string `gorm:"size:128;not null"`
	FileKey      string `gorm:"size:512"`
	ThumbnailURL string `gorm:"size:1024"`
	ThumbnailKey string `gorm:"size:512"`
	UploaderID   string `gorm:"type:char(36);not null;index:idx_notes_uploader"`
	UploaderName string `gorm:"size:255;not null"`
	UploadMeta   JSON   `gorm:"type:json"`
	CreatedAt    time.Time `gorm:"index:idx_notes_created_at"`
}

// TableName overrides the table name for Note
func (Note) TableName() string {
	return "notes"
}
