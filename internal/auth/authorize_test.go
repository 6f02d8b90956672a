package auth

import (
	"testing"

	"github.com/google/uuid"

	"interprep/internal/errcode"
)

func TestAuthorize_OwnerAllowed(t *testing.T) {
	owner := uuid.New()
	if err := Authorize(Identity{UserID: owner, Role: RoleUser}, owner); err != nil {
		t.Fatalf("owner should be authorized, got %v", err)
	}
}

func TestAuthorize_NonOwnerDenied(t *testing.T) {
	err := Authorize(Identity{UserID: uuid.New(), Role: RoleUser}, uuid.New())
	if errcode.KindOf(err) != errcode.Forbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAuthorize_AdminGetsNoBypass(t *testing.T) {
	err := Authorize(Identity{UserID: uuid.New(), Role: RoleAdmin}, uuid.New())
	if errcode.KindOf(err) != errcode.Forbidden {
		t.Fatalf("admin must not bypass ownership, got %v", err)
	}
}
