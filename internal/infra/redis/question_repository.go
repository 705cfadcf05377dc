package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"ecoquest-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches a topic's question bank from the backing store.
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, topic domain.Topic) (domain.QuestionSet, error)
}

// QuestionRepository caches question banks in Redis (one JSON value per
// topic) and falls back to the loader on cache miss. Fills are coalesced with
// singleflight so a cold topic hits the loader once.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (r *QuestionRepository) key(topic domain.Topic) string {
	return "questions:" + string(topic)
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, topic domain.Topic) (domain.QuestionSet, error) {
	if set, ok := r.cached(ctx, topic); ok {
		return set, nil
	}

	result, err, _ := r.sf.Do(string(topic), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := r.cached(ctx, topic); ok {
			return set, nil
		}
		set, err := r.loader.LoadQuestionSet(ctx, topic)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		payload, err := json.Marshal(set)
		if err != nil {
			return domain.QuestionSet{}, err
		}
		_ = r.client.Set(ctx, r.key(topic), payload, r.ttlWithJitter()).Err()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (r *QuestionRepository) cached(ctx context.Context, topic domain.Topic) (domain.QuestionSet, bool) {
	raw, err := r.client.Get(ctx, r.key(topic)).Result()
	if err != nil {
		return domain.QuestionSet{}, false
	}
	var set domain.QuestionSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return domain.QuestionSet{}, false
	}
	return set, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations; the package-level source is
	// safe for the concurrent fills singleflight runs per topic
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
