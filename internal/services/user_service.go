package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/noteshare-io/noteshare/internal/models"
	"github.com/noteshare-io/noteshare/internal/types"
	"gorm.io/gorm"
)

// CreateUser registers a new account with a one-way password hash. Username
// and email are unique; a duplicate of either is a conflict.
func CreateUser(db *gorm.DB, username, name, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, types.ValidationError("Username, email and password are required")
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, types.ConflictError("Username or email is already taken")
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// Authenticate returns the user matching the credentials. The failure mode is
// the same whether the account is missing or the password is wrong, so the
// response cannot be used to enumerate accounts.
func Authenticate(db *gorm.DB, usernameOrEmail, password string) (*models.User, error) {
	var user models.User
	err := db.Where("username = ? OR email = ?", usernameOrEmail, usernameOrEmail).
		First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.AuthError("Invalid credentials")
		}
		return nil, err
	}

	match, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, types.AuthError("Invalid credentials")
	}

	return &user, nil
}

// GetUserByID fetches a single account
func GetUserByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.Where("id = ?", id).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, types.NotFoundError("User not found")
		}
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the display name and/or email of an account. Notes
// keep the uploader name they were created with.
func UpdateProfile(db *gorm.DB, userID, name, email string) (*models.User, error) {
	user, err := GetUserByID(db, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if email != "" && email != user.Email {
		var count int64
		if err := db.Model(&models.User{}).
			Where("email = ? AND id <> ?", email, userID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, types.ConflictError("Email is already taken")
		}
		updates["email"] = email
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// UpdatePassword replaces the password hash after checking the current password
func UpdatePassword(db *gorm.DB, userID, currentPassword, newPassword string) error {
	if newPassword == "" {
		return types.ValidationError("New password is required")
	}

	user, err := GetUserByID(db, userID)
	if err != nil {
		return err
	}

	match, err := argon2id.ComparePasswordAndHash(currentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !match {
		return types.AuthError("Current password is incorrect")
	}

	hash, err := argon2id.CreateHash(newPassword, argon2id.DefaultParams)
	if err != nil {
		return err
	}
	return db.Model(user).Update("password_hash", hash).Error
}

// ResetPassword replaces the password hash for the account behind an
// OTP-verified reset flow.
func ResetPassword(db *gorm.DB, email, newPassword string) error {
	if newPassword == "" {
		return types.ValidationError("New password is required")
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return types.NotFoundError("No account found for this email")
		}
		return err
	}

	hash, err := argon2id.CreateHash(newPassword, argon2id.DefaultParams)
	if err != nil {
		return err
	}
	return db.Model(&user).Update("password_hash", hash).Error
}

// DeleteAccount removes all notes owned by the user, then the user itself.
// Notes go first; if the user delete fails it is retried once, which is safe
// because the notes are already gone. The removed notes are returned so the
// caller can clean up their stored blobs best-effort.
func DeleteAccount(db *gorm.DB, userID string) ([]models.Note, error) {
	if _, err := GetUserByID(db, userID); err != nil {
		return nil, err
	}

	var notes []models.Note
	if err := db.Where("uploader_id = ?", userID).Find(&notes).Error; err != nil {
		return nil, err
	}

	if err := db.Where("uploader_id = ?", userID).Delete(&models.Note{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete notes for user %s: %w", userID, err)
	}

	if err := db.Where("id = ?", userID).Delete(&models.User{}).Error; err != nil {
		log.Printf("User delete failed after note cascade for %s, retrying: %v", userID, err)
		if err := db.Where("id = ?", userID).Delete(&models.User{}).Error; err != nil {
			return nil, fmt.Errorf("failed to delete user %s: %w", userID, err)
		}
	}

	return notes, nil
}
