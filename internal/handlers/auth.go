package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/noteshare-io/noteshare/internal/middleware"
	"github.com/noteshare-io/noteshare/internal/models"
	"github.com/noteshare-io/noteshare/internal/services"
	"github.com/noteshare-io/noteshare/internal/utils"
	"gorm.io/gorm"
)

// AuthHandler handles registration, login and the OTP flows
type AuthHandler struct {
	DB       *gorm.DB
	OTP      *services.OTPService
	Sessions *session.Store
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type confirmResetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func userPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":       u.ID,
		"username": u.Username,
		"name":     u.Name,
		"email":    u.Email,
	}
}

// SendOTP handles POST /api/send-otp
// @Summary Request a signup verification code
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body emailRequest true "Email"
// @Success 200 {object} utils.Envelope
// @Failure 409 {object} utils.Envelope
// @Router /send-otp [post]
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email is required")
	}

	if err := h.OTP.RequestCode(req.Email, services.PurposeSignup); err != nil {
		return utils.FailResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Verification code sent", nil)
}

// VerifyOTP handles POST /api/verify-otp
// @Summary Verify a signup code
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body verifyOTPRequest true "Email and code"
// @Success 200 {object} utils.Envelope
// @Failure 400 {object} utils.Envelope
// @Router /verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.OTP == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email and otp are required")
	}

	if err := h.OTP.VerifyCode(req.Email, services.PurposeSignup, req.OTP); err != nil {
		return utils.FailResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Email verified", nil)
}

// SendResetOTP handles POST /api/password-reset/send-otp
func (h *AuthHandler) SendResetOTP(c *fiber.Ctx) error {
	var req emailRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email is required")
	}

	if err := h.OTP.RequestCode(req.Email, services.PurposeReset); err != nil {
		return utils.FailResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Password reset code sent", nil)
}

// VerifyResetOTP handles POST /api/password-reset/verify-otp
func (h *AuthHandler) VerifyResetOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.OTP == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email and otp are required")
	}

	if err := h.OTP.VerifyCode(req.Email, services.PurposeReset, req.OTP); err != nil {
		return utils.FailResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Code verified", nil)
}

// ConfirmReset handles POST /api/password-reset/confirm
func (h *AuthHandler) ConfirmReset(c *fiber.Ctx) error {
	var req confirmResetRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.OTP == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email, otp and newPassword are required")
	}

	if err := h.OTP.ConfirmReset(req.Email, req.OTP, req.NewPassword); err != nil {
		return utils.FailResponse(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Password updated", nil)
}

// Register handles POST /register. The email must have passed OTP
// verification beforehand; the verified entry is consumed only once the
// account exists, so a username conflict leaves it intact for a retry.
// @Summary Register an account
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "Account details"
// @Success 201 {object} utils.Envelope
// @Failure 409 {object} utils.Envelope
// @Router /register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.OTP.RequireVerified(req.Email, services.PurposeSignup); err != nil {
		return utils.FailResponse(c, err)
	}

	user, err := services.CreateUser(h.DB, req.Username, req.Name, req.Email, req.Password)
	if err != nil {
		return utils.FailResponse(c, err)
	}
	h.OTP.Consume(req.Email, services.PurposeSignup)

	if err := middleware.LoginSession(c, h.Sessions, user.ID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Could not start session")
	}

	return utils.SuccessResponse(c, fiber.StatusCreated, "Account created", userPayload(user))
}

// Login handles POST /login. Accepts JSON or form bodies; the username field
// also matches the account email.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil || req.Username == "" || req.Password == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Username and password are required")
	}

	user, err := services.Authenticate(h.DB, req.Username, req.Password)
	if err != nil {
		return utils.FailResponse(c, err)
	}

	if err := middleware.LoginSession(c, h.Sessions, user.ID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Could not start session")
	}

	return utils.SuccessResponse(c, fiber.StatusOK, "Logged in", userPayload(user))
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := middleware.DestroySession(c, h.Sessions); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Could not end session")
	}
	return utils.SuccessResponse(c, fiber.StatusOK, "Logged out", nil)
}
