package auth

import (
	"testing"
	"time"
)

func TestNewManagerAndTokenLifecycle(t *testing.T) {
	mgr, err := NewManager("test-secret", "issuer", time.Minute*30)
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}

	token, expiresAt, err := mgr.IssueToken("device-42")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if expiresAt.Before(time.Now()) {
		t.Fatal("expected future expiry time")
	}

	claims, err := mgr.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error parsing token: %v", err)
	}
	if claims.DeviceID != "device-42" {
		t.Fatalf("expected device id %q, got %q", "device-42", claims.DeviceID)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("   ", "", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestIssueTokenRequiresDeviceID(t *testing.T) {
	mgr, err := NewManager("secret", "issuer", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error creating manager: %v", err)
	}
	if _, _, err := mgr.IssueToken("  "); err == nil {
		t.Fatal("expected error for empty device id")
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	mgr, _ := NewManager("secret-a", "issuer", time.Hour)
	other, _ := NewManager("secret-b", "issuer", time.Hour)

	token, _, err := other.IssueToken("device-1")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}
	if _, err := mgr.ParseToken(token); err == nil {
		t.Fatal("expected error for token signed with a different secret")
	}
}
