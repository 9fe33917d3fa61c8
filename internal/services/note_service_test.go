package services

import (
	"errors"
	"testing"
	"time"

	"github.com/noteshare-io/noteshare/internal/media"
	"github.com/noteshare-io/noteshare/internal/models"
	"github.com/noteshare-io/noteshare/internal/types"
	"gorm.io/gorm"
)

func seedNote(t *testing.T, db *gorm.DB, uploaderID, uploaderName, title string, createdAt time.Time) *models.Note {
	t.Helper()
	note, err := CreateNote(db, uploaderID, uploaderName, title, media.UploadResult{
		FileURL:  "https://cdn.example.com/notes/" + title + ".pdf",
		FileType: "application/pdf",
		FileKey:  "notes/" + title + ".pdf",
	})
	if err != nil {
		t.Fatalf("Failed to create note: %v", err)
	}
	if !createdAt.IsZero() {
		if err := db.Model(note).Update("created_at", createdAt).Error; err != nil {
			t.Fatalf("Failed to backdate note: %v", err)
		}
	}
	return note
}

func TestCreateNoteDefaultsTitle(t *testing.T) {
	db := setupTestDB(t)

	note, err := CreateNote(db, "11111111-1111-1111-1111-111111111111", "Ana", "  ", media.UploadResult{
		FileURL:  "https://cdn.example.com/x.pdf",
		FileType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if note.Title != "Untitled" {
		t.Errorf("Expected title 'Untitled', got %q", note.Title)
	}
}

func TestCreateNoteRequiresFileURL(t *testing.T) {
	db := setupTestDB(t)

	_, err := CreateNote(db, "11111111-1111-1111-1111-111111111111", "Ana", "My Notes", media.UploadResult{})
	var ce *types.CustomError
	if !errors.As(err, &ce) || ce.Code != 400 {
		t.Fatalf("Expected a 400 validation error, got %v", err)
	}
}

func TestListNotesOrder(t *testing.T) {
	db := setupTestDB(t)
	owner := "11111111-1111-1111-1111-111111111111"

	base := time.Now().Add(-time.Hour)
	seedNote(t, db, owner, "Ana", "first", base)
	seedNote(t, db, owner, "Ana", "third", base.Add(20*time.Minute))
	seedNote(t, db, owner, "Ana", "second", base.Add(10*time.Minute))

	notes, err := ListNotes(db)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("Expected 3 notes, got %d", len(notes))
	}
	for i := 1; i < len(notes); i++ {
		if notes[i].CreatedAt.After(notes[i-1].CreatedAt) {
			t.Errorf("Notes out of order at index %d", i)
		}
	}
	if notes[0].Title != "third" {
		t.Errorf("Expected newest note first, got %q", notes[0].Title)
	}
}

func TestListNotesByUploader(t *testing.T) {
	db := setupTestDB(t)
	ana := "11111111-1111-1111-1111-111111111111"
	bob := "22222222-2222-2222-2222-222222222222"

	seedNote(t, db, ana, "Ana", "a1", time.Time{})
	seedNote(t, db, ana, "Ana", "a2", time.Time{})
	seedNote(t, db, bob, "Bob", "b1", time.Time{})

	// uuid-shaped identifier resolves as owner id
	byID, err := ListNotesByUploader(db, ana)
	if err != nil {
		t.Fatalf("List by id failed: %v", err)
	}
	if len(byID) != 2 {
		t.Errorf("Expected 2 notes by id, got %d", len(byID))
	}

	// anything else matches the display-name snapshot
	byName, err := ListNotesByUploader(db, "Bob")
	if err != nil {
		t.Fatalf("List by name failed: %v", err)
	}
	if len(byName) != 1 {
		t.Errorf("Expected 1 note by name, got %d", len(byName))
	}
}

func TestGetNoteByIDMalformed(t *testing.T) {
	db := setupTestDB(t)

	note, err := GetNoteByID(db, "not-a-uuid")
	if err != nil {
		t.Fatalf("Expected no error for a malformed id, got %v", err)
	}
	if note != nil {
		t.Error("Expected nil note for a malformed id")
	}
}

func TestDeleteNoteOwnership(t *testing.T) {
	db := setupTestDB(t)
	owner := "11111111-1111-1111-1111-111111111111"
	stranger := "22222222-2222-2222-2222-222222222222"

	note := seedNote(t, db, owner, "Ana", "mine", time.Time{})

	_, err := DeleteNote(db, note.ID, stranger)
	var ce *types.CustomError
	if !errors.As(err, &ce) || ce.Code != 403 {
		t.Fatalf("Expected a 403, got %v", err)
	}

	// The note survives the rejected delete
	still, err := GetNoteByID(db, note.ID)
	if err != nil || still == nil {
		t.Fatalf("Expected the note to still exist, got %v, %v", still, err)
	}

	if _, err := DeleteNote(db, note.ID, owner); err != nil {
		t.Fatalf("Owner delete failed: %v", err)
	}
	gone, _ := GetNoteByID(db, note.ID)
	if gone != nil {
		t.Error("Expected the note to be gone")
	}
}

func TestDeleteNoteMissing(t *testing.T) {
	db := setupTestDB(t)

	_, err := DeleteNote(db, "33333333-3333-3333-3333-333333333333", "11111111-1111-1111-1111-111111111111")
	var ce *types.CustomError
	if !errors.As(err, &ce) || ce.Code != 404 {
		t.Fatalf("Expected a 404, got %v", err)
	}
}

func TestSetThumbnailAfterDeleteIsNoop(t *testing.T) {
	db := setupTestDB(t)
	owner := "11111111-1111-1111-1111-111111111111"

	note := seedNote(t, db, owner, "Ana", "racy", time.Time{})
	if _, err := DeleteNote(db, note.ID, owner); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// A racing thumbnail update against a deleted note is a zero-row no-op
	if err := SetThumbnail(db, note.ID, "https://cdn.example.com/t.png", "thumbs/t.png"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	resurrected, _ := GetNoteByID(db, note.ID)
	if resurrected != nil {
		t.Error("Thumbnail update must not resurrect a deleted note")
	}
}

func TestSetThumbnail(t *testing.T) {
	db := setupTestDB(t)
	owner := "11111111-1111-1111-1111-111111111111"

	note := seedNote(t, db, owner, "Ana", "plain", time.Time{})
	if err := SetThumbnail(db, note.ID, "https://cdn.example.com/p.png", "thumbs/p.png"); err != nil {
		t.Fatalf("SetThumbnail failed: %v", err)
	}

	got, _ := GetNoteByID(db, note.ID)
	if got.ThumbnailURL != "https://cdn.example.com/p.png" {
		t.Errorf("Expected thumbnail URL to be set, got %q", got.ThumbnailURL)
	}
	if got.FileURL != note.FileURL {
		t.Error("File URL must not change")
	}
}
