package auth

import (
	"testing"
	"time"
)

func testService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return NewService("admin", hash, "test-secret", time.Hour)
}

func TestLoginAndValidate(t *testing.T) {
	service := testService(t)

	resp, err := service.Login(Credentials{Username: "admin", Password: "correct horse battery staple"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.TokenType != "Bearer" {
		t.Errorf("expected Bearer token type, got %s", resp.TokenType)
	}
	if resp.ExpiresIn != 3600 {
		t.Errorf("expected 3600s expiry, got %d", resp.ExpiresIn)
	}

	username, err := service.Validate(resp.AccessToken)
	if err != nil {
		t.Fatalf("token validation failed: %v", err)
	}
	if username != "admin" {
		t.Errorf("expected subject admin, got %s", username)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	service := testService(t)

	tests := []Credentials{
		{Username: "admin", Password: "wrong"},
		{Username: "intruder", Password: "correct horse battery staple"},
		{Username: "", Password: ""},
	}
	for _, creds := range tests {
		if _, err := service.Login(creds); err != ErrInvalidCredentials {
			t.Errorf("credentials %q/%q: expected ErrInvalidCredentials, got %v", creds.Username, creds.Password, err)
		}
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	service := testService(t)

	if _, err := service.Validate("not.a.token"); err == nil {
		t.Error("expected an error for a malformed token")
	}
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	service := testService(t)
	other := NewJWTManager("different-secret", time.Hour)

	token, err := other.GenerateAccessToken("admin")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if _, err := service.Validate(token); err == nil {
		t.Error("expected a token signed with a different secret to be rejected")
	}
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !VerifyPassword("s3cret-password", hash) {
		t.Error("correct password should verify")
	}
	if VerifyPassword("other", hash) {
		t.Error("wrong password should not verify")
	}
}
