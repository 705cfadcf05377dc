// Package local is the durable single-process fallback store: a JSON file
// mirroring the remote store's record shapes, used whenever the remote store
// is unavailable at startup. All operations are synchronous read-modify-write
// under one mutex; subscriptions deliver the current value exactly once since
// no external writer exists.
package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ecoquest-service/internal/domain"

	"context"
)

type fileData struct {
	Users       map[string]domain.UserProfile `json:"users"`
	Groups      []domain.Group                `json:"groups"`
	Messages    map[string][]domain.Message   `json:"messages"`
	Credentials map[string]Credential         `json:"credentials,omitempty"`
}

// Credential is a locally stored sign-in record (bcrypt hash, not plaintext).
type Credential struct {
	UserID       string `json:"userId"`
	PasswordHash []byte `json:"passwordHash"`
	Role         string `json:"role"`
}

// Store is a file-backed implementation of the profile and community
// repositories. Persistence survives process restart.
type Store struct {
	path  string
	clock func() time.Time

	mu   sync.Mutex
	data fileData
}

// Open loads the store file at path, creating an empty store (and parent
// directory) when it does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path:  path,
		clock: time.Now,
		data: fileData{
			Users:    make(map[string]domain.UserProfile),
			Messages: make(map[string][]domain.Message),
		},
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("decode local store: %w", err)
	}
	if s.data.Users == nil {
		s.data.Users = make(map[string]domain.UserProfile)
	}
	if s.data.Messages == nil {
		s.data.Messages = make(map[string][]domain.Message)
	}
	return s, nil
}

// saveLocked writes the whole document atomically (temp file + rename).
func (s *Store) saveLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Create writes the default record unless the identity already has one.
func (s *Store) Create(_ context.Context, profile domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.Users[profile.ID]; ok {
		return nil
	}
	s.data.Users[profile.ID] = profile
	return s.saveLocked()
}

func (s *Store) Get(_ context.Context, id string) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.data.Users[id]
	if !ok {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}

func (s *Store) ApplyDelta(_ context.Context, id string, delta domain.ProgressDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.data.Users[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	profile.EcoPoints += delta.EcoPoints
	profile.Experience += delta.Experience
	domain.ApplyLeveling(&profile)
	s.data.Users[id] = profile
	return s.saveLocked()
}

func (s *Store) FinalizeQuiz(_ context.Context, id string, scoreIncrement int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.data.Users[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	profile.QuizzesDone++
	profile.EcoPoints += scoreIncrement
	s.data.Users[id] = profile
	return s.saveLocked()
}

func (s *Store) AwardBadge(_ context.Context, id string, badge domain.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.data.Users[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	if profile.HasBadge(string(badge)) {
		return nil
	}
	profile.Badges = append(profile.Badges, string(badge))
	s.data.Users[id] = profile
	return s.saveLocked()
}

func (s *Store) RecordTreePlanted(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.data.Users[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	profile.TreesPlanted++
	s.data.Users[id] = profile
	return s.saveLocked()
}

// Subscribe delivers the current record exactly once; there is no external
// writer in local mode, so there are no push updates. Absent profiles get the
// default record so the caller always renders something.
func (s *Store) Subscribe(_ context.Context, id string) (<-chan domain.UserProfile, func(), error) {
	s.mu.Lock()
	profile, ok := s.data.Users[id]
	s.mu.Unlock()
	if !ok {
		profile = domain.NewUserProfile(id, "", "Explorer", "", s.clock())
	}

	ch := make(chan domain.UserProfile, 1)
	ch <- profile
	close(ch)
	return ch, func() {}, nil
}

// CreateGroup appends a group record.
func (s *Store) CreateGroup(_ context.Context, group domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Groups = append(s.data.Groups, group)
	s.data.Messages[group.ID] = []domain.Message{}
	return s.saveLocked()
}

// DeleteGroup removes a group and its messages; only the owner may delete.
func (s *Store) DeleteGroup(_ context.Context, groupID, callerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.data.Groups {
		if g.ID != groupID {
			continue
		}
		if g.OwnerID != callerID {
			return domain.ErrNotGroupOwner
		}
		s.data.Groups = append(s.data.Groups[:i], s.data.Groups[i+1:]...)
		delete(s.data.Messages, groupID)
		return s.saveLocked()
	}
	return domain.ErrGroupNotFound
}

func (s *Store) Groups(_ context.Context) ([]domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	groups := append([]domain.Group(nil), s.data.Groups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].CreatedAt.Before(groups[j].CreatedAt) })
	return groups, nil
}

func (s *Store) SubscribeGroups(ctx context.Context) (<-chan []domain.Group, func(), error) {
	groups, _ := s.Groups(ctx)
	ch := make(chan []domain.Group, 1)
	ch <- groups
	close(ch)
	return ch, func() {}, nil
}

func (s *Store) AppendMessage(_ context.Context, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.groupExistsLocked(msg.GroupID) {
		return domain.ErrGroupNotFound
	}
	s.data.Messages[msg.GroupID] = append(s.data.Messages[msg.GroupID], msg)
	return s.saveLocked()
}

func (s *Store) Messages(_ context.Context, groupID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.data.Messages[groupID]...), nil
}

func (s *Store) SubscribeMessages(ctx context.Context, groupID string) (<-chan []domain.Message, func(), error) {
	msgs, _ := s.Messages(ctx, groupID)
	ch := make(chan []domain.Message, 1)
	ch <- msgs
	close(ch)
	return ch, func() {}, nil
}

func (s *Store) groupExistsLocked(groupID string) bool {
	for _, g := range s.data.Groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}

// SetCredential stores a sign-in record keyed by email.
func (s *Store) SetCredential(_ context.Context, email string, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.Credentials == nil {
		s.data.Credentials = make(map[string]Credential)
	}
	s.data.Credentials[email] = cred
	return s.saveLocked()
}

// Credential looks up the sign-in record for an email.
func (s *Store) Credential(_ context.Context, email string) (Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.data.Credentials[email]
	return cred, ok, nil
}
