package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"ecoquest-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches a topic's question bank from the backing store.
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, topic domain.Topic) (domain.QuestionSet, error)
}

// QuestionRepository caches question banks in-process with TTL to avoid
// repeated loader hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[domain.Topic]cachedSet
}

type cachedSet struct {
	set       domain.QuestionSet
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[domain.Topic]cachedSet),
	}
}

func (r *QuestionRepository) GetQuestionSet(ctx context.Context, topic domain.Topic) (domain.QuestionSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[topic]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(string(topic), func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[topic]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadQuestionSet(ctx, topic)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		r.mu.Lock()
		r.cache[topic] = cachedSet{set: set, expiresAt: now.Add(r.ttlWithJitter())}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

// StaticQuestionLoader serves banks from an in-memory map (demo/test loader).
type StaticQuestionLoader struct {
	sets map[domain.Topic]domain.QuestionSet
}

func NewStaticQuestionLoader(sets map[domain.Topic]domain.QuestionSet) *StaticQuestionLoader {
	return &StaticQuestionLoader{sets: sets}
}

func (l *StaticQuestionLoader) LoadQuestionSet(_ context.Context, topic domain.Topic) (domain.QuestionSet, error) {
	if set, ok := l.sets[topic]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrUnknownTopic
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations; the package-level source
	// is safe for the concurrent fills singleflight runs per topic
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
