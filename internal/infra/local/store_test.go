package local

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ecoquest-service/internal/domain"
)

func testProfile(id string) domain.UserProfile {
	return domain.NewUserProfile(id, id+"@example.com", "", "", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Create(ctx, testProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.ApplyDelta(ctx, "u1", domain.ProgressDelta{EcoPoints: 10, Experience: 10}); err != nil {
		t.Fatalf("delta: %v", err)
	}
	if err := store.FinalizeQuiz(ctx, "u1", 20); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	profile, err := reopened.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if profile.EcoPoints != 30 || profile.Experience != 10 || profile.QuizzesDone != 1 {
		t.Fatalf("unexpected persisted profile %+v", profile)
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := store.Create(ctx, testProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.ApplyDelta(ctx, "u1", domain.ProgressDelta{EcoPoints: 50}); err != nil {
		t.Fatalf("delta: %v", err)
	}
	// A second create for the same identity must not reset progress.
	if err := store.Create(ctx, testProfile("u1")); err != nil {
		t.Fatalf("second create: %v", err)
	}
	profile, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if profile.EcoPoints != 50 {
		t.Fatalf("progress reset by repeated create: %+v", profile)
	}
}

func TestDeltasAreAdditive(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Create(ctx, testProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := store.ApplyDelta(ctx, "u1", domain.ProgressDelta{EcoPoints: 10, Experience: 10}); err != nil {
			t.Fatalf("delta %d: %v", i, err)
		}
	}
	profile, _ := store.Get(ctx, "u1")
	if profile.EcoPoints != 30 || profile.Experience != 30 {
		t.Fatalf("expected 30/30, got %+v", profile)
	}
}

func TestDeltaRefreshesLevel(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Create(ctx, testProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.ApplyDelta(ctx, "u1", domain.ProgressDelta{Experience: domain.ExperiencePerLevel}); err != nil {
		t.Fatalf("delta: %v", err)
	}
	profile, _ := store.Get(ctx, "u1")
	if profile.Level != 2 {
		t.Fatalf("expected level 2, got %+v", profile)
	}
}

func TestAwardBadgeAppendOnly(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Create(ctx, testProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.AwardBadge(ctx, "u1", domain.BadgeFirstQuiz); err != nil {
		t.Fatalf("award: %v", err)
	}
	if err := store.AwardBadge(ctx, "u1", domain.BadgeFirstQuiz); err != nil {
		t.Fatalf("repeat award: %v", err)
	}
	profile, _ := store.Get(ctx, "u1")
	if len(profile.Badges) != 1 || profile.Badges[0] != string(domain.BadgeFirstQuiz) {
		t.Fatalf("expected single badge, got %v", profile.Badges)
	}
}

func TestSubscribeDeliversOnce(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Create(ctx, testProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	ch, cancel, err := store.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	profile, ok := <-ch
	if !ok || profile.ID != "u1" {
		t.Fatalf("expected initial snapshot, got %+v ok=%v", profile, ok)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after one delivery")
	}
}

func TestSubscribeUnknownProfileDeliversDefault(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ch, cancel, err := store.Subscribe(ctx, "ghost")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	profile := <-ch
	if profile.ID != "ghost" || profile.Level != 1 {
		t.Fatalf("expected default record, got %+v", profile)
	}
}

func TestGroupLifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	group := domain.Group{ID: "g1", Name: "Green Team", OwnerID: "u1", CreatedAt: time.Now()}
	if err := store.CreateGroup(ctx, group); err != nil {
		t.Fatalf("create group: %v", err)
	}
	if err := store.AppendMessage(ctx, domain.Message{ID: "m1", GroupID: "g1", AuthorID: "u1", Text: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendMessage(ctx, domain.Message{ID: "m2", GroupID: "missing", Text: "hi"}); err != domain.ErrGroupNotFound {
		t.Fatalf("expected ErrGroupNotFound, got %v", err)
	}

	if err := store.DeleteGroup(ctx, "g1", "intruder"); err != domain.ErrNotGroupOwner {
		t.Fatalf("expected ErrNotGroupOwner, got %v", err)
	}
	if err := store.DeleteGroup(ctx, "g1", "u1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	groups, _ := reopened.Groups(ctx)
	if len(groups) != 0 {
		t.Fatalf("expected group gone after delete, got %v", groups)
	}
	msgs, _ := reopened.Messages(ctx, "g1")
	if len(msgs) != 0 {
		t.Fatalf("expected messages gone with group, got %v", msgs)
	}
}

func TestCredentialsPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	cred := Credential{UserID: "u1", PasswordHash: []byte("hash"), Role: "student"}
	if err := store.SetCredential(ctx, "alice@example.com", cred); err != nil {
		t.Fatalf("set credential: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok, err := reopened.Credential(ctx, "alice@example.com")
	if err != nil || !ok {
		t.Fatalf("credential lookup: ok=%v err=%v", ok, err)
	}
	if got.UserID != "u1" || string(got.PasswordHash) != "hash" {
		t.Fatalf("unexpected credential %+v", got)
	}
}
