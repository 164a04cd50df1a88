package auth

import (
	"context"
	"testing"
	"time"
)

func TestWithAuthAndFromContext(t *testing.T) {
	exp := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)
	ctx := WithAuth(context.Background(), AuthContext{TokenID: 7, ExpiresAt: exp})

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.TokenID != 7 {
		t.Errorf("TokenID = %d, want 7", got.TokenID)
	}
	if !got.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, exp)
	}
}

func TestFromContextEmpty(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no AuthContext in empty context")
	}
}
