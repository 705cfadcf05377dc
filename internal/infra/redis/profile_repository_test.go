package redis

import (
	"context"
	"testing"
	"time"

	"ecoquest-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestProfileRepo(t *testing.T) (*ProfileRepository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewProfileRepository(client), mr
}

func newProfile(id string) domain.UserProfile {
	return domain.NewUserProfile(id, id+"@example.com", "", "", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
}

func TestCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestProfileRepo(t)

	if err := repo.Create(ctx, newProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.ApplyDelta(ctx, "u1", domain.ProgressDelta{EcoPoints: 40}); err != nil {
		t.Fatalf("delta: %v", err)
	}
	if err := repo.Create(ctx, newProfile("u1")); err != nil {
		t.Fatalf("second create: %v", err)
	}

	profile, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if profile.EcoPoints != 40 {
		t.Fatalf("repeated create reset progress: %+v", profile)
	}
}

func TestGetUnknownProfile(t *testing.T) {
	repo, _ := newTestProfileRepo(t)
	if _, err := repo.Get(context.Background(), "ghost"); err != domain.ErrProfileNotFound {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestDeltasSumViaHashIncrements(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestProfileRepo(t)

	if err := repo.Create(ctx, newProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.ApplyDelta(ctx, "u1", domain.ProgressDelta{EcoPoints: 10, Experience: 10}); err != nil {
			t.Fatalf("delta %d: %v", i, err)
		}
	}

	if got := mr.HGet("profile:u1", "ecoPoints"); got != "20" {
		t.Fatalf("expected ecoPoints hash field 20, got %q", got)
	}
	profile, _ := repo.Get(ctx, "u1")
	if profile.EcoPoints != 20 || profile.Experience != 20 {
		t.Fatalf("expected summed counters, got %+v", profile)
	}
}

func TestDeltaRefreshesDerivedLevel(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestProfileRepo(t)

	if err := repo.Create(ctx, newProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.ApplyDelta(ctx, "u1", domain.ProgressDelta{Experience: domain.ExperiencePerLevel + 5}); err != nil {
		t.Fatalf("delta: %v", err)
	}
	profile, _ := repo.Get(ctx, "u1")
	if profile.Level != 2 {
		t.Fatalf("expected derived level 2, got %+v", profile)
	}
}

func TestFinalizeQuizIncrements(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestProfileRepo(t)

	if err := repo.Create(ctx, newProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.FinalizeQuiz(ctx, "u1", 30); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := repo.FinalizeQuiz(ctx, "u1", 0); err != nil {
		t.Fatalf("finalize zero score: %v", err)
	}

	profile, _ := repo.Get(ctx, "u1")
	if profile.QuizzesDone != 2 || profile.EcoPoints != 30 {
		t.Fatalf("expected 2 quizzes and 30 points, got %+v", profile)
	}
}

func TestAwardBadgeIsSetSemantics(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestProfileRepo(t)

	if err := repo.Create(ctx, newProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.AwardBadge(ctx, "u1", domain.BadgeFirstQuiz); err != nil {
		t.Fatalf("award: %v", err)
	}
	if err := repo.AwardBadge(ctx, "u1", domain.BadgeFirstQuiz); err != nil {
		t.Fatalf("repeat award: %v", err)
	}
	profile, _ := repo.Get(ctx, "u1")
	if len(profile.Badges) != 1 {
		t.Fatalf("expected one badge, got %v", profile.Badges)
	}
}

func TestSubscribeDeliversInitialAndUpdates(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestProfileRepo(t)

	if err := repo.Create(ctx, newProfile("u1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	ch, cancel, err := repo.Subscribe(ctx, "u1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := waitProfile(t, ch)
	if initial.ID != "u1" || initial.EcoPoints != 0 {
		t.Fatalf("unexpected initial snapshot %+v", initial)
	}

	if err := repo.ApplyDelta(ctx, "u1", domain.ProgressDelta{EcoPoints: 10}); err != nil {
		t.Fatalf("delta: %v", err)
	}
	update := waitProfile(t, ch)
	if update.EcoPoints != 10 {
		t.Fatalf("expected pushed snapshot with 10 points, got %+v", update)
	}
}

func waitProfile(t *testing.T, ch <-chan domain.UserProfile) domain.UserProfile {
	t.Helper()
	select {
	case profile, ok := <-ch:
		if !ok {
			t.Fatalf("profile feed closed unexpectedly")
		}
		return profile
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for profile snapshot")
		return domain.UserProfile{}
	}
}
