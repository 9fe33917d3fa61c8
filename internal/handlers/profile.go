package handlers

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/noteshare-io/noteshare/internal/media"
	"github.com/noteshare-io/noteshare/internal/middleware"
	"github.com/noteshare-io/noteshare/internal/services"
	"github.com/noteshare-io/noteshare/internal/utils"
	"gorm.io/gorm"
)

// ProfileHandler handles account mutations for the logged-in user
type ProfileHandler struct {
	DB       *gorm.DB
	Sessions *session.Store
	Blobs    media.BlobStore
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type updatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Update handles POST /api/profile
func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := services.UpdateProfile(h.DB, middleware.UserID(c), req.Name, req.Email)
	if err != nil {
		return utils.FailResponse(c, err)
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Profile updated", userPayload(user))
}

// UpdatePassword handles POST /api/profile/password
func (h *ProfileHandler) UpdatePassword(c *fiber.Ctx) error {
	var req updatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := services.UpdatePassword(h.DB, middleware.UserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return utils.FailResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Password updated", nil)
}

// DeleteAccount handles POST /api/profile/delete-account. Notes are removed
// first, then the account, then the session; stored blobs are cleaned up best
// effort at the end.
func (h *ProfileHandler) DeleteAccount(c *fiber.Ctx) error {
	notes, err := services.DeleteAccount(h.DB, middleware.UserID(c))
	if err != nil {
		return utils.FailResponse(c, err)
	}

	if err := middleware.DestroySession(c, h.Sessions); err != nil {
		log.Printf("Session destroy after account delete failed: %v", err)
	}

	if h.Blobs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for i := range notes {
			for _, key := range []string{notes[i].FileKey, notes[i].ThumbnailKey} {
				if key == "" {
					continue
				}
				if err := h.Blobs.Delete(ctx, key); err != nil {
					log.Printf("Blob cleanup failed for %s: %v", key, err)
				}
			}
		}
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Account deleted", nil)
}
