package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:     1,
		Email:      "mom@kim.com",
		FamilyCode: "DADAM-KIM001",
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.Email != "mom@kim.com" {
		t.Errorf("Email = %q", got.Email)
	}
	if got.FamilyCode != "DADAM-KIM001" {
		t.Errorf("FamilyCode = %q", got.FamilyCode)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestUserID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{UserID: 7})
	if UserID(ctx) != 7 {
		t.Errorf("UserID = %d, want 7", UserID(ctx))
	}
}

func TestUserIDMissing(t *testing.T) {
	if UserID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestFamilyCode(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{FamilyCode: "DADAM-ABC123"})
	if FamilyCode(ctx) != "DADAM-ABC123" {
		t.Errorf("FamilyCode = %q", FamilyCode(ctx))
	}
	if FamilyCode(context.Background()) != "" {
		t.Error("expected empty code for missing context")
	}
}
