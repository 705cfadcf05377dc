package redis

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"sync"

	"ecoquest-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// CommunityRepository stores the group and message collections in Redis:
//
//	HSET   community:groups {groupID} {group JSON}
//	RPUSH  community:messages:{groupID} {message JSON}
//
// Change notification is a ping on a pub/sub channel; subscribers re-read the
// full collection on every ping (listen and re-render).
type CommunityRepository struct {
	client *redis.Client
}

func NewCommunityRepository(client *redis.Client) *CommunityRepository {
	return &CommunityRepository{client: client}
}

const (
	groupsKey          = "community:groups"
	groupsUpdatesChan  = "community:groups:updates"
	messagesKeyPrefix  = "community:messages:"
	messagesChanPrefix = "community:messages:updates:"
)

func (r *CommunityRepository) CreateGroup(ctx context.Context, group domain.Group) error {
	payload, err := json.Marshal(group)
	if err != nil {
		return err
	}
	if err := r.client.HSet(ctx, groupsKey, group.ID, payload).Err(); err != nil {
		return err
	}
	r.ping(ctx, groupsUpdatesChan)
	return nil
}

// DeleteGroup enforces ownership in the store layer: only the recorded owner
// may delete, regardless of what the client claims.
func (r *CommunityRepository) DeleteGroup(ctx context.Context, groupID, callerID string) error {
	raw, err := r.client.HGet(ctx, groupsKey, groupID).Result()
	if err == redis.Nil {
		return domain.ErrGroupNotFound
	}
	if err != nil {
		return err
	}
	var group domain.Group
	if err := json.Unmarshal([]byte(raw), &group); err != nil {
		return err
	}
	if group.OwnerID != callerID {
		return domain.ErrNotGroupOwner
	}

	pipe := r.client.Pipeline()
	pipe.HDel(ctx, groupsKey, groupID)
	pipe.Del(ctx, messagesKeyPrefix+groupID)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	r.ping(ctx, groupsUpdatesChan)
	return nil
}

func (r *CommunityRepository) Groups(ctx context.Context) ([]domain.Group, error) {
	raw, err := r.client.HGetAll(ctx, groupsKey).Result()
	if err != nil {
		return nil, err
	}
	groups := make([]domain.Group, 0, len(raw))
	for _, payload := range raw {
		var group domain.Group
		if err := json.Unmarshal([]byte(payload), &group); err != nil {
			log.Printf("bad group payload skipped: %v", err)
			continue
		}
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })
	return groups, nil
}

func (r *CommunityRepository) SubscribeGroups(ctx context.Context) (<-chan []domain.Group, func(), error) {
	return subscribeCollection(ctx, r.client, groupsUpdatesChan, func(ctx context.Context) ([]domain.Group, error) {
		return r.Groups(ctx)
	})
}

func (r *CommunityRepository) AppendMessage(ctx context.Context, msg domain.Message) error {
	exists, err := r.client.HExists(ctx, groupsKey, msg.GroupID).Result()
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrGroupNotFound
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := r.client.RPush(ctx, messagesKeyPrefix+msg.GroupID, payload).Err(); err != nil {
		return err
	}
	r.ping(ctx, messagesChanPrefix+msg.GroupID)
	return nil
}

func (r *CommunityRepository) Messages(ctx context.Context, groupID string) ([]domain.Message, error) {
	raw, err := r.client.LRange(ctx, messagesKeyPrefix+groupID, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(raw))
	for _, payload := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			log.Printf("bad message payload skipped: %v", err)
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (r *CommunityRepository) SubscribeMessages(ctx context.Context, groupID string) (<-chan []domain.Message, func(), error) {
	return subscribeCollection(ctx, r.client, messagesChanPrefix+groupID, func(ctx context.Context) ([]domain.Message, error) {
		return r.Messages(ctx, groupID)
	})
}

func (r *CommunityRepository) ping(ctx context.Context, channel string) {
	if err := r.client.Publish(ctx, channel, "updated").Err(); err != nil {
		log.Printf("community ping failed on %s: %v", channel, err)
	}
}

// subscribeCollection delivers the current collection snapshot immediately,
// re-reads on every ping, and degrades to that one initial delivery when the
// live feed fails.
func subscribeCollection[T any](ctx context.Context, client *redis.Client, channel string, read func(context.Context) ([]T, error)) (<-chan []T, func(), error) {
	ch := make(chan []T, 8)

	pubsub := client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		log.Printf("feed unavailable on %s, one-shot fallback: %v", channel, err)
		if snapshot, rerr := read(ctx); rerr == nil {
			ch <- snapshot
		}
		close(ch)
		return ch, func() {}, nil
	}

	if snapshot, err := read(ctx); err == nil {
		ch <- snapshot
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
			if _, err := pubsub.ReceiveMessage(ctx); err != nil {
				select {
				case <-done:
					return
				default:
				}
				if ctx.Err() != nil {
					return
				}
				log.Printf("feed dropped on %s, one-shot fallback: %v", channel, err)
				if snapshot, rerr := read(ctx); rerr == nil {
					deliverSnapshot(ch, snapshot)
				}
				return
			}
			snapshot, err := read(ctx)
			if err != nil {
				log.Printf("re-read after ping failed on %s: %v", channel, err)
				continue
			}
			deliverSnapshot(ch, snapshot)
		}
	}()

	return ch, cancel, nil
}

func deliverSnapshot[T any](ch chan []T, snapshot []T) {
	select {
	case ch <- snapshot:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}
