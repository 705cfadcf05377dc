package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ecoquest-service/internal/domain"
)

// ProfileRepository abstracts the backing store for progress records
// (remote document store or the durable local fallback).
type ProfileRepository interface {
	// Create writes the default record unless a profile for the id already
	// exists, in which case it must leave the existing record untouched.
	Create(ctx context.Context, profile domain.UserProfile) error
	Get(ctx context.Context, id string) (domain.UserProfile, error)
	// ApplyDelta increments counters additively; concurrent deltas sum.
	ApplyDelta(ctx context.Context, id string, delta domain.ProgressDelta) error
	// FinalizeQuiz atomically increments quizzesCompleted by 1 and ecoPoints
	// by scoreIncrement.
	FinalizeQuiz(ctx context.Context, id string, scoreIncrement int) error
	AwardBadge(ctx context.Context, id string, badge domain.Badge) error
	RecordTreePlanted(ctx context.Context, id string) error
	// Subscribe delivers the current record immediately (when present) and on
	// every subsequent change. Implementations must degrade to a one-shot
	// read-and-deliver when live updates fail, never leave the caller empty.
	Subscribe(ctx context.Context, id string) (<-chan domain.UserProfile, func(), error)
}

const (
	defaultWriteRetries = 3
	defaultRetryBackoff = 50 * time.Millisecond
)

// ProfileService is the profile store adapter: validation, idempotent-create
// semantics, and bounded retry around the repository's write operations.
type ProfileService struct {
	repo    ProfileRepository
	retries int
	backoff time.Duration
	clock   func() time.Time
	sleep   func(time.Duration)
}

// ProfileOption tweaks service construction.
type ProfileOption func(*ProfileService)

// WithWriteRetry overrides the bounded retry policy for writes.
func WithWriteRetry(retries int, backoff time.Duration) ProfileOption {
	return func(s *ProfileService) {
		if retries > 0 {
			s.retries = retries
		}
		if backoff > 0 {
			s.backoff = backoff
		}
	}
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) ProfileOption {
	return func(s *ProfileService) { s.clock = now }
}

// WithSleep is test-only to avoid real backoff waits.
func WithSleep(sleep func(time.Duration)) ProfileOption {
	return func(s *ProfileService) { s.sleep = sleep }
}

func NewProfileService(repo ProfileRepository, opts ...ProfileOption) *ProfileService {
	s := &ProfileService{
		repo:    repo,
		retries: defaultWriteRetries,
		backoff: defaultRetryBackoff,
		clock:   time.Now,
		sleep:   time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProfile writes the default record for a new identity. Calling it for
// an identity that already has a profile is a no-op; existing progress is
// never reset.
func (s *ProfileService) CreateProfile(ctx context.Context, id, email, displayName, role string) error {
	profile := domain.NewUserProfile(id, email, displayName, role, s.clock())
	return s.withRetry(ctx, "create profile", func() error {
		return s.repo.Create(ctx, profile)
	})
}

// GetProfile reads the current record.
func (s *ProfileService) GetProfile(ctx context.Context, id string) (domain.UserProfile, error) {
	return s.repo.Get(ctx, id)
}

// ApplyDelta increments ecoPoints/experience additively.
func (s *ProfileService) ApplyDelta(ctx context.Context, id string, delta domain.ProgressDelta) error {
	if delta.IsZero() {
		return nil
	}
	return s.withRetry(ctx, "apply delta", func() error {
		return s.repo.ApplyDelta(ctx, id, delta)
	})
}

// FinalizeQuiz records quiz completion and the accumulated score.
func (s *ProfileService) FinalizeQuiz(ctx context.Context, id string, scoreIncrement int) error {
	return s.withRetry(ctx, "finalize quiz", func() error {
		return s.repo.FinalizeQuiz(ctx, id, scoreIncrement)
	})
}

// AwardBadge appends a badge to the profile's badge set. The badge must be a
// declared variant.
func (s *ProfileService) AwardBadge(ctx context.Context, id string, badge domain.Badge) error {
	if _, err := domain.BadgeInfo(badge); err != nil {
		return err
	}
	return s.withRetry(ctx, "award badge", func() error {
		return s.repo.AwardBadge(ctx, id, badge)
	})
}

// RecordTreePlanted bumps the treesPlanted counter.
func (s *ProfileService) RecordTreePlanted(ctx context.Context, id string) error {
	return s.withRetry(ctx, "record tree", func() error {
		return s.repo.RecordTreePlanted(ctx, id)
	})
}

// Subscribe returns a feed of profile snapshots for the identity.
// The caller must invoke the returned cancel function on teardown.
func (s *ProfileService) Subscribe(ctx context.Context, id string) (<-chan domain.UserProfile, func(), error) {
	return s.repo.Subscribe(ctx, id)
}

// withRetry runs a write with bounded backoff. Permanent domain errors are
// returned as-is without retrying; exhausted retries are logged and reported
// as ErrStoreUnavailable, which callers treat as a dropped write and stay
// interactive.
func (s *ProfileService) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := s.backoff
	var err error
	for attempt := 1; attempt <= s.retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if permanent(err) {
			return err
		}
		if attempt < s.retries {
			s.sleep(backoff)
			backoff *= 2
		}
		if ctx.Err() != nil {
			break
		}
	}
	log.Printf("%s failed after %d attempts: %v", op, s.retries, err)
	return fmt.Errorf("%w: %s: %v", domain.ErrStoreUnavailable, op, err)
}

// permanent reports whether an error cannot be cured by retrying the write.
func permanent(err error) bool {
	return errors.Is(err, domain.ErrProfileNotFound) ||
		errors.Is(err, domain.ErrUnknownBadge)
}
