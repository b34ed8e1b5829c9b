package types

import (
	"context"
	"testing"
)

func TestWithActor_GetActor(t *testing.T) {
	actor := Actor{ID: "usr_1", Username: "ana", Role: RoleUser}
	ctx := WithActor(context.Background(), actor)

	got, ok := GetActor(ctx)
	if !ok {
		t.Fatal("expected ok to be true")
	}
	if got != actor {
		t.Errorf("GetActor() = %+v, want %+v", got, actor)
	}
}

func TestGetActor_Missing(t *testing.T) {
	if _, ok := GetActor(context.Background()); ok {
		t.Error("expected ok to be false on an empty context")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-42")
	if got := GetRequestID(ctx); got != "req-42" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty context = %q, want empty", got)
	}
}

func TestActor_HasRole(t *testing.T) {
	admin := Actor{ID: "usr_a", Role: RoleAdmin}
	user := Actor{ID: "usr_u", Role: RoleUser}

	if !admin.HasRole(RoleAdmin) {
		t.Error("admin should have admin role")
	}
	if admin.HasRole(RoleUser) {
		t.Error("admin should not match user-only role list")
	}
	if !user.HasRole(RoleAdmin, RoleUser) {
		t.Error("user should match a list containing user")
	}
	if (Actor{}).HasRole(RoleAdmin, RoleUser) {
		t.Error("zero actor should not match any role")
	}
}

func TestActor_IsOwner(t *testing.T) {
	a := Actor{ID: "usr_1"}
	if !a.IsOwner("usr_1") {
		t.Error("expected owner match")
	}
	if a.IsOwner("usr_2") {
		t.Error("expected owner mismatch")
	}
	if (Actor{}).IsOwner("") {
		t.Error("empty actor must never own anything")
	}
}
