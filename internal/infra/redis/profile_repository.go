package redis

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"ecoquest-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ProfileRepository stores progress records in Redis:
//
//	HSET  profile:{id}         field value...   (counters via HINCRBY)
//	SADD  profile:{id}:badges  badge
//	PUBLISH profile:updates:{id} {snapshot JSON}
//
// Counter updates go through HINCRBY so concurrent deltas from multiple
// in-flight writes sum instead of overwriting each other.
type ProfileRepository struct {
	client *redis.Client
	clock  func() time.Time
}

func NewProfileRepository(client *redis.Client) *ProfileRepository {
	return &ProfileRepository{client: client, clock: time.Now}
}

func (r *ProfileRepository) key(id string) string        { return "profile:" + id }
func (r *ProfileRepository) badgesKey(id string) string  { return "profile:" + id + ":badges" }
func (r *ProfileRepository) updatesKey(id string) string { return "profile:updates:" + id }

// Create writes the default record. The HSETNX guard on the id field makes
// creation idempotent: a second create for the same identity is a no-op and
// existing progress fields are never reset.
func (r *ProfileRepository) Create(ctx context.Context, profile domain.UserProfile) error {
	created, err := r.client.HSetNX(ctx, r.key(profile.ID), "id", profile.ID).Result()
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	err = r.client.HSet(ctx, r.key(profile.ID), map[string]interface{}{
		"email":            profile.Email,
		"displayName":      profile.DisplayName,
		"role":             profile.Role,
		"level":            profile.Level,
		"experience":       profile.Experience,
		"maxExperience":    profile.MaxExperience,
		"ecoPoints":        profile.EcoPoints,
		"treesPlanted":     profile.TreesPlanted,
		"quizzesCompleted": profile.QuizzesDone,
		"createdAt":        profile.CreatedAt.UTC().Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return err
	}
	r.publish(ctx, profile.ID)
	return nil
}

func (r *ProfileRepository) Get(ctx context.Context, id string) (domain.UserProfile, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return domain.UserProfile{}, err
	}
	if len(fields) == 0 {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	badges, err := r.client.SMembers(ctx, r.badgesKey(id)).Result()
	if err != nil {
		return domain.UserProfile{}, err
	}
	return profileFromHash(id, fields, badges), nil
}

// ApplyDelta increments ecoPoints/experience additively and refreshes the
// derived level from the resulting experience.
func (r *ProfileRepository) ApplyDelta(ctx context.Context, id string, delta domain.ProgressDelta) error {
	key := r.key(id)
	if delta.EcoPoints != 0 {
		if err := r.client.HIncrBy(ctx, key, "ecoPoints", int64(delta.EcoPoints)).Err(); err != nil {
			return err
		}
	}
	if delta.Experience != 0 {
		experience, err := r.client.HIncrBy(ctx, key, "experience", int64(delta.Experience)).Result()
		if err != nil {
			return err
		}
		if err := r.client.HSet(ctx, key, "level", domain.LevelForExperience(int(experience))).Err(); err != nil {
			return err
		}
	}
	r.publish(ctx, id)
	return nil
}

// FinalizeQuiz bumps quizzesCompleted and ecoPoints in one pipeline.
func (r *ProfileRepository) FinalizeQuiz(ctx context.Context, id string, scoreIncrement int) error {
	key := r.key(id)
	pipe := r.client.Pipeline()
	pipe.HIncrBy(ctx, key, "quizzesCompleted", 1)
	if scoreIncrement != 0 {
		pipe.HIncrBy(ctx, key, "ecoPoints", int64(scoreIncrement))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	r.publish(ctx, id)
	return nil
}

func (r *ProfileRepository) AwardBadge(ctx context.Context, id string, badge domain.Badge) error {
	if err := r.client.SAdd(ctx, r.badgesKey(id), string(badge)).Err(); err != nil {
		return err
	}
	r.publish(ctx, id)
	return nil
}

func (r *ProfileRepository) RecordTreePlanted(ctx context.Context, id string) error {
	if err := r.client.HIncrBy(ctx, r.key(id), "treesPlanted", 1).Err(); err != nil {
		return err
	}
	r.publish(ctx, id)
	return nil
}

// Subscribe delivers the current record immediately, then a snapshot on every
// published change. Any failure of the live feed degrades to a one-shot read
// so the caller still receives a value instead of silence.
func (r *ProfileRepository) Subscribe(ctx context.Context, id string) (<-chan domain.UserProfile, func(), error) {
	ch := make(chan domain.UserProfile, 8)

	pubsub := r.client.Subscribe(ctx, r.updatesKey(id))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		log.Printf("profile feed unavailable for %s, one-shot fallback: %v", id, err)
		if profile, rerr := r.Get(ctx, id); rerr == nil {
			ch <- profile
		}
		close(ch)
		return ch, func() {}, nil
	}

	if profile, err := r.Get(ctx, id); err == nil {
		ch <- profile
	}

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}

	go func() {
		defer close(ch)
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				select {
				case <-done:
					return
				default:
				}
				if ctx.Err() != nil {
					return
				}
				log.Printf("profile feed dropped for %s, one-shot fallback: %v", id, err)
				if profile, rerr := r.Get(ctx, id); rerr == nil {
					deliverProfile(ch, profile)
				}
				return
			}
			var profile domain.UserProfile
			if err := json.Unmarshal([]byte(msg.Payload), &profile); err != nil {
				log.Printf("bad profile snapshot payload: %v", err)
				continue
			}
			deliverProfile(ch, profile)
		}
	}()

	return ch, cancel, nil
}

// deliverProfile drops the stale buffered snapshot rather than block the feed
// on a slow consumer; only the latest state matters for rendering.
func deliverProfile(ch chan domain.UserProfile, profile domain.UserProfile) {
	select {
	case ch <- profile:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- profile
	}
}

// publish pushes the authoritative snapshot to subscribers, best-effort.
func (r *ProfileRepository) publish(ctx context.Context, id string) {
	profile, err := r.Get(ctx, id)
	if err != nil {
		log.Printf("snapshot read for publish failed: %v", err)
		return
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.client.Publish(ctx, r.updatesKey(id), payload).Err(); err != nil {
		log.Printf("profile publish failed for %s: %v", id, err)
	}
}

func profileFromHash(id string, fields map[string]string, badges []string) domain.UserProfile {
	profile := domain.UserProfile{
		ID:          id,
		Email:       fields["email"],
		DisplayName: fields["displayName"],
		Role:        fields["role"],
		Badges:      badges,
	}
	if profile.Badges == nil {
		profile.Badges = []string{}
	}
	profile.Level = atoi(fields["level"], 1)
	profile.Experience = atoi(fields["experience"], 0)
	profile.MaxExperience = atoi(fields["maxExperience"], domain.ExperiencePerLevel)
	profile.EcoPoints = atoi(fields["ecoPoints"], 0)
	profile.TreesPlanted = atoi(fields["treesPlanted"], 0)
	profile.QuizzesDone = atoi(fields["quizzesCompleted"], 0)
	if raw, ok := fields["createdAt"]; ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			profile.CreatedAt = ts
		}
	}
	return profile
}

func atoi(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
