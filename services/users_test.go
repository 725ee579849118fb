package services

import (
	"context"
	"errors"
	"testing"

	"github.com/cppla/newsboard/models"
	"github.com/cppla/newsboard/utils"
)

func TestUpsertFromClaims(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, func(email string) bool { return email == "boss@example.com" })
	ctx := context.Background()

	u, err := svc.UpsertFromClaims(ctx, utils.IdentityClaims{Email: "ann@example.com", Name: "Ann", Nickname: "ann", Picture: "p1"})
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	if u.ID == 0 || u.Role != models.RoleUser || u.Nickname != "ann" {
		t.Fatalf("unexpected user %+v", u)
	}

	again, err := svc.UpsertFromClaims(ctx, utils.IdentityClaims{Email: "ann@example.com", Name: "Ann B", Nickname: "", Picture: "p2"})
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if again.ID != u.ID {
		t.Fatalf("duplicate user created")
	}
	stored, _ := svc.ByEmail(ctx, "ann@example.com")
	if stored.Name != "Ann B" || stored.Nickname != "" || stored.Picture != "p2" {
		t.Fatalf("claims must overwrite profile fields, got %+v", stored)
	}
	if countRows(t, db, &models.User{}) != 1 {
		t.Fatalf("expected one user")
	}

	boss, _ := svc.UpsertFromClaims(ctx, utils.IdentityClaims{Email: "boss@example.com"})
	if boss.Role != models.RoleAdmin {
		t.Fatalf("admin bootstrap failed: %+v", boss)
	}

	if _, err := svc.UpsertFromClaims(ctx, utils.IdentityClaims{}); !errors.Is(err, ErrEmptyEmail) {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
}

func TestUpsertPartial(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil)
	ctx := context.Background()
	name, nick, role := "Bob", "bobby", models.RoleAdmin

	u, err := svc.Upsert(ctx, UserUpdate{Email: "bob@example.com", Name: &name})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Role != models.RoleUser || u.Name != "Bob" {
		t.Fatalf("unexpected created user %+v", u)
	}

	u, err = svc.Upsert(ctx, UserUpdate{Email: "bob@example.com", Nickname: &nick, Role: &role})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.Name != "Bob" || u.Nickname != "bobby" || u.Role != models.RoleAdmin {
		t.Fatalf("partial update lost fields: %+v", u)
	}

	bad := "Owner"
	if _, err := svc.Upsert(ctx, UserUpdate{Email: "bob@example.com", Role: &bad}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestUpdateProfileFields(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil)
	ctx := context.Background()
	seedUser(t, db, "c@example.com", models.RoleUser)

	if _, err := svc.UpdateNickname(ctx, "c@example.com", "cee"); err != nil {
		t.Fatalf("nickname: %v", err)
	}
	if _, err := svc.UpdateName(ctx, "c@example.com", "<b>Cee</b>"); err != nil {
		t.Fatalf("name: %v", err)
	}
	u, _ := svc.ByEmail(ctx, "c@example.com")
	if u.Nickname != "cee" || u.Name != "Cee" {
		t.Fatalf("unexpected user %+v", u)
	}

	u, err := svc.UpdateProfile(ctx, "c@example.com", "Full", "nick")
	if err != nil || u.Name != "Full" || u.Nickname != "nick" {
		t.Fatalf("profile: %+v %v", u, err)
	}

	if _, err := svc.UpdateName(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateNameKeepsPunctuation(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil)
	ctx := context.Background()
	seedUser(t, db, "d@example.com", models.RoleUser)

	if _, err := svc.UpdateName(ctx, "d@example.com", `Conan O'Brien & "Co"`); err != nil {
		t.Fatalf("name: %v", err)
	}
	if _, err := svc.UpdateNickname(ctx, "d@example.com", "a < b"); err != nil {
		t.Fatalf("nickname: %v", err)
	}
	u, _ := svc.ByEmail(ctx, "d@example.com")
	if u.Name != `Conan O'Brien & "Co"` || u.Nickname != "a < b" {
		t.Fatalf("stored name=%q nickname=%q", u.Name, u.Nickname)
	}
}
