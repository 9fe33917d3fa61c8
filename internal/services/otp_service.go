package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/noteshare-io/noteshare/internal/mailer"
	"github.com/noteshare-io/noteshare/internal/models"
	"github.com/noteshare-io/noteshare/internal/types"
	"gorm.io/gorm"
)

// OTP purposes. At most one live code exists per (email, purpose); requesting
// a new one overwrites the previous entry.
const (
	PurposeSignup = "signup"
	PurposeReset  = "reset"
)

// OTPService issues and checks short-lived numeric codes for signup and
// password reset.
type OTPService struct {
	DB     *gorm.DB
	Store  CodeStore
	Mailer mailer.Mailer
	TTL    time.Duration
}

func NewOTPService(db *gorm.DB, store CodeStore, m mailer.Mailer, ttl time.Duration) *OTPService {
	return &OTPService{DB: db, Store: store, Mailer: m, TTL: ttl}
}

func otpKey(email, purpose string) string {
	return purpose + ":" + email
}

// RequestCode generates a 6-digit code for the given purpose and dispatches it
// by email. For signup the email must not belong to an existing account; for
// reset it must. A send failure is reported to the caller (the code is useless
// undelivered) but the generated code stays stored.
func (s *OTPService) RequestCode(email, purpose string) error {
	if email == "" {
		return types.ValidationError("Email is required")
	}

	var count int64
	if err := s.DB.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}

	switch purpose {
	case PurposeSignup:
		if count > 0 {
			return types.ConflictError("An account with this email already exists")
		}
	case PurposeReset:
		if count == 0 {
			return types.NotFoundError("No account found for this email")
		}
	default:
		return types.ValidationError("Unknown OTP purpose")
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	entry := OTPEntry{Code: code, ExpiresAt: time.Now().Add(s.TTL)}
	if err := s.Store.Put(otpKey(email, purpose), entry); err != nil {
		return err
	}

	subject := "Your verification code"
	if purpose == PurposeReset {
		subject = "Your password reset code"
	}
	body := fmt.Sprintf("Your one-time code is %s. It expires in %d minutes.", code, int(s.TTL.Minutes()))

	if err := s.Mailer.Send(email, subject, body); err != nil {
		log.Printf("OTP mail delivery failed for %s: %v", email, err)
		return types.UpstreamError("Could not send the verification email")
	}

	return nil
}

// VerifyCode checks the submitted code and marks the entry verified. The entry
// is kept so a subsequent confirm step can re-check the verification state.
func (s *OTPService) VerifyCode(email, purpose, code string) error {
	entry, ok := s.Store.Get(otpKey(email, purpose))
	if !ok || entry.Code != code {
		return types.OTPError("Invalid or expired code")
	}
	return s.Store.MarkVerified(otpKey(email, purpose))
}

// RequireVerified checks for a previously verified entry without consuming
// it. Used by registration to prove the email was OTP-verified before the
// account exists; the entry survives so a failed registration (say, a taken
// username) can be retried without redoing the OTP flow.
func (s *OTPService) RequireVerified(email, purpose string) error {
	entry, ok := s.Store.Get(otpKey(email, purpose))
	if !ok || !entry.Verified {
		return types.OTPError("Email is not verified")
	}
	return nil
}

// Consume removes the entry once its verification has been used
func (s *OTPService) Consume(email, purpose string) {
	s.Store.Delete(otpKey(email, purpose))
}

// ConfirmReset re-validates the code and its verified mark, replaces the
// password hash, and consumes the entry.
func (s *OTPService) ConfirmReset(email, code, newPassword string) error {
	key := otpKey(email, PurposeReset)
	entry, ok := s.Store.Get(key)
	if !ok || entry.Code != code || !entry.Verified {
		return types.OTPError("Invalid or expired code")
	}

	if err := ResetPassword(s.DB, email, newPassword); err != nil {
		return err
	}

	s.Store.Delete(key)
	return nil
}

// generateCode returns a uniformly random 6-digit numeric code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
