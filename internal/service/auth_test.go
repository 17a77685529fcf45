package service_test

import (
	"testing"
	"time"

	"github.com/upclt/consignado-api/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func TestValidateAccessToken(t *testing.T) {
	svc := service.NewAuthService("secret")

	tok := mintToken(t, "secret", jwt.MapClaims{
		"sub":  "user-1",
		"role": "user",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})

	claims, err := svc.ValidateAccessToken(tok)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if claims.Sub != "user-1" {
		t.Errorf("sub = %q, want user-1", claims.Sub)
	}
	if claims.Role != "user" {
		t.Errorf("role = %q, want user", claims.Role)
	}
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	svc := service.NewAuthService("secret")

	tok := mintToken(t, "other-secret", jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := svc.ValidateAccessToken(tok); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestValidateAccessTokenExpired(t *testing.T) {
	svc := service.NewAuthService("secret")

	tok := mintToken(t, "secret", jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	if _, err := svc.ValidateAccessToken(tok); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidateAccessTokenMissingSubject(t *testing.T) {
	svc := service.NewAuthService("secret")

	tok := mintToken(t, "secret", jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	if _, err := svc.ValidateAccessToken(tok); err == nil {
		t.Error("expected error for token without sub")
	}
}
