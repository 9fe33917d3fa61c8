package services

import (
	"errors"
	"testing"
	"time"

	"github.com/noteshare-io/noteshare/internal/types"
)

// recordingMailer captures sent mail instead of delivering it
type recordingMailer struct {
	to      []string
	subject []string
	fail    bool
}

func (m *recordingMailer) Send(to, subject, body string) error {
	if m.fail {
		return errors.New("relay down")
	}
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	return nil
}

func assertOTPError(t *testing.T, err error, wantType string) {
	t.Helper()
	var ce *types.CustomError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected CustomError, got %v", err)
	}
	if ce.Type != wantType {
		t.Errorf("Expected error type %q, got %q", wantType, ce.Type)
	}
}

func TestRequestCodeSignupConflict(t *testing.T) {
	db := setupTestDB(t)
	if _, err := CreateUser(db, "ana", "Ana", "ana@example.com", "secret123"); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	svc := NewOTPService(db, NewMemoryCodeStore(), &recordingMailer{}, 10*time.Minute)

	err := svc.RequestCode("ana@example.com", PurposeSignup)
	assertOTPError(t, err, "conflict")
}

func TestRequestCodeResetUnknownEmail(t *testing.T) {
	db := setupTestDB(t)
	svc := NewOTPService(db, NewMemoryCodeStore(), &recordingMailer{}, 10*time.Minute)

	err := svc.RequestCode("nobody@example.com", PurposeReset)
	assertOTPError(t, err, "not_found")
}

func TestReissueInvalidatesPriorCode(t *testing.T) {
	db := setupTestDB(t)
	store := NewMemoryCodeStore()
	svc := NewOTPService(db, store, &recordingMailer{}, 10*time.Minute)

	if err := svc.RequestCode("new@example.com", PurposeSignup); err != nil {
		t.Fatalf("First request failed: %v", err)
	}
	first, _ := store.Get(otpKey("new@example.com", PurposeSignup))

	if err := svc.RequestCode("new@example.com", PurposeSignup); err != nil {
		t.Fatalf("Second request failed: %v", err)
	}
	second, _ := store.Get(otpKey("new@example.com", PurposeSignup))

	if first.Code == second.Code {
		t.Skip("codes collided; re-run")
	}

	if err := svc.VerifyCode("new@example.com", PurposeSignup, first.Code); err == nil {
		t.Error("Expected the overwritten code to be rejected")
	}
	if err := svc.VerifyCode("new@example.com", PurposeSignup, second.Code); err != nil {
		t.Errorf("Expected the latest code to verify, got %v", err)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	db := setupTestDB(t)
	store := NewMemoryCodeStore()
	svc := NewOTPService(db, store, &recordingMailer{}, 10*time.Minute)

	key := otpKey("late@example.com", PurposeSignup)
	if err := store.Put(key, OTPEntry{Code: "123456", ExpiresAt: time.Now().Add(-time.Second)}); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	err := svc.VerifyCode("late@example.com", PurposeSignup, "123456")
	assertOTPError(t, err, "otp.invalid_or_expired")
}

func TestVerifyWrongCode(t *testing.T) {
	db := setupTestDB(t)
	store := NewMemoryCodeStore()
	svc := NewOTPService(db, store, &recordingMailer{}, 10*time.Minute)

	if err := svc.RequestCode("x@example.com", PurposeSignup); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	err := svc.VerifyCode("x@example.com", PurposeSignup, "000000x")
	assertOTPError(t, err, "otp.invalid_or_expired")
}

func TestMailFailureKeepsCode(t *testing.T) {
	db := setupTestDB(t)
	store := NewMemoryCodeStore()
	svc := NewOTPService(db, store, &recordingMailer{fail: true}, 10*time.Minute)

	err := svc.RequestCode("held@example.com", PurposeSignup)
	assertOTPError(t, err, "upstream")

	// The generated code stays stored even though delivery failed
	if _, ok := store.Get(otpKey("held@example.com", PurposeSignup)); !ok {
		t.Error("Expected the code to remain stored after a send failure")
	}
}

func TestConfirmResetFlow(t *testing.T) {
	db := setupTestDB(t)
	store := NewMemoryCodeStore()
	svc := NewOTPService(db, store, &recordingMailer{}, 10*time.Minute)

	if _, err := CreateUser(db, "bea", "Bea", "bea@example.com", "oldpassword"); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	if err := svc.RequestCode("bea@example.com", PurposeReset); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	entry, _ := store.Get(otpKey("bea@example.com", PurposeReset))

	// Confirm before verify must fail: the entry is not marked verified yet
	err := svc.ConfirmReset("bea@example.com", entry.Code, "newpassword")
	assertOTPError(t, err, "otp.invalid_or_expired")

	if err := svc.VerifyCode("bea@example.com", PurposeReset, entry.Code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if err := svc.ConfirmReset("bea@example.com", entry.Code, "newpassword"); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	// Entry is consumed
	if _, ok := store.Get(otpKey("bea@example.com", PurposeReset)); ok {
		t.Error("Expected the entry to be deleted after confirm")
	}

	// Old password no longer works, new one does
	if _, err := Authenticate(db, "bea", "oldpassword"); err == nil {
		t.Error("Expected the old password to be rejected")
	}
	if _, err := Authenticate(db, "bea", "newpassword"); err != nil {
		t.Errorf("Expected the new password to authenticate, got %v", err)
	}
}

func TestRequireVerifiedAndConsume(t *testing.T) {
	db := setupTestDB(t)
	store := NewMemoryCodeStore()
	svc := NewOTPService(db, store, &recordingMailer{}, 10*time.Minute)

	if err := svc.RequestCode("c@example.com", PurposeSignup); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	err := svc.RequireVerified("c@example.com", PurposeSignup)
	assertOTPError(t, err, "otp.invalid_or_expired")

	entry, _ := store.Get(otpKey("c@example.com", PurposeSignup))
	if err := svc.VerifyCode("c@example.com", PurposeSignup, entry.Code); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// The check does not consume: it can be repeated until Consume is called
	if err := svc.RequireVerified("c@example.com", PurposeSignup); err != nil {
		t.Errorf("Expected the check to pass after verify, got %v", err)
	}
	if err := svc.RequireVerified("c@example.com", PurposeSignup); err != nil {
		t.Errorf("Expected a repeated check to pass, got %v", err)
	}

	svc.Consume("c@example.com", PurposeSignup)
	if err := svc.RequireVerified("c@example.com", PurposeSignup); err == nil {
		t.Error("Expected the check to fail once the entry is consumed")
	}
}
