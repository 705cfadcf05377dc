package app

import (
	"context"
	"strings"
	"time"

	"ecoquest-service/internal/domain"
	"github.com/google/uuid"
)

// CommunityRepository abstracts the group/message collections of the backing
// store. Ownership checks for deletion live here, in the store layer, not in
// the client-facing service.
type CommunityRepository interface {
	CreateGroup(ctx context.Context, group domain.Group) error
	// DeleteGroup removes the group and its messages; it must fail with
	// ErrNotGroupOwner unless callerID matches the stored owner.
	DeleteGroup(ctx context.Context, groupID, callerID string) error
	Groups(ctx context.Context) ([]domain.Group, error)
	SubscribeGroups(ctx context.Context) (<-chan []domain.Group, func(), error)
	AppendMessage(ctx context.Context, msg domain.Message) error
	Messages(ctx context.Context, groupID string) ([]domain.Message, error)
	SubscribeMessages(ctx context.Context, groupID string) (<-chan []domain.Message, func(), error)
}

// CommunityService validates input at the boundary and passes through to the
// repository. Malformed input is rejected here and never reaches the store.
type CommunityService struct {
	repo  CommunityRepository
	clock func() time.Time
	newID func() string
}

func NewCommunityService(repo CommunityRepository) *CommunityService {
	return &CommunityService{
		repo:  repo,
		clock: time.Now,
		newID: uuid.NewString,
	}
}

// NewCommunityServiceWithClock is test-only for deterministic ids/timestamps.
func NewCommunityServiceWithClock(repo CommunityRepository, now func() time.Time, newID func() string) *CommunityService {
	return &CommunityService{repo: repo, clock: now, newID: newID}
}

// CreateGroup creates a group owned by ownerID. The name must be non-empty
// after trimming.
func (s *CommunityService) CreateGroup(ctx context.Context, name, description, ownerID string) (domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Group{}, domain.ErrEmptyGroupName
	}
	group := domain.Group{
		ID:          s.newID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		OwnerID:     ownerID,
		Members:     1,
		Online:      1,
		CreatedAt:   s.clock(),
	}
	if err := s.repo.CreateGroup(ctx, group); err != nil {
		return domain.Group{}, err
	}
	return group, nil
}

// DeleteGroup deletes a group on behalf of callerID; only the owner may.
func (s *CommunityService) DeleteGroup(ctx context.Context, groupID, callerID string) error {
	return s.repo.DeleteGroup(ctx, groupID, callerID)
}

// Groups lists all groups ordered by creation time.
func (s *CommunityService) Groups(ctx context.Context) ([]domain.Group, error) {
	return s.repo.Groups(ctx)
}

// SubscribeGroups returns a feed of group-list snapshots.
func (s *CommunityService) SubscribeGroups(ctx context.Context) (<-chan []domain.Group, func(), error) {
	return s.repo.SubscribeGroups(ctx)
}

// SendMessage appends a message to a group. The text must be non-empty after
// trimming.
func (s *CommunityService) SendMessage(ctx context.Context, groupID, authorID, author, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, domain.ErrEmptyMessage
	}
	msg := domain.Message{
		ID:        s.newID(),
		GroupID:   groupID,
		AuthorID:  authorID,
		Author:    author,
		Text:      text,
		CreatedAt: s.clock(),
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// Messages lists a group's messages in append order.
func (s *CommunityService) Messages(ctx context.Context, groupID string) ([]domain.Message, error) {
	return s.repo.Messages(ctx, groupID)
}

// SubscribeMessages returns a feed of message-list snapshots for a group.
func (s *CommunityService) SubscribeMessages(ctx context.Context, groupID string) (<-chan []domain.Message, func(), error) {
	return s.repo.SubscribeMessages(ctx, groupID)
}
