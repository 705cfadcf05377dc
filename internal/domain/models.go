package domain

import "time"

// UserProfile is the persisted per-user progress record, one per
// authenticated identity. Counters only move forward under normal flows.
type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"displayName"`
	Role          string    `json:"role"`
	Level         int       `json:"level"`
	Experience    int       `json:"experience"`
	MaxExperience int       `json:"maxExperience"`
	EcoPoints     int       `json:"ecoPoints"`
	TreesPlanted  int       `json:"treesPlanted"`
	QuizzesDone   int       `json:"quizzesCompleted"`
	Badges        []string  `json:"badges"`
	CreatedAt     time.Time `json:"createdAt"`
}

// NewUserProfile returns the default record written on first sign-in.
func NewUserProfile(id, email, displayName, role string, now time.Time) UserProfile {
	if displayName == "" {
		displayName = localPart(email)
	}
	if role == "" {
		role = "student"
	}
	return UserProfile{
		ID:            id,
		Email:         email,
		DisplayName:   displayName,
		Role:          role,
		Level:         1,
		Experience:    0,
		MaxExperience: ExperiencePerLevel,
		Badges:        []string{},
		CreatedAt:     now,
	}
}

func localPart(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}

// HasBadge reports whether the badge set already contains id.
func (p UserProfile) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// ProgressDelta is an additive update against a profile's counters.
// Concurrent deltas from multiple in-flight writes must sum, never overwrite.
type ProgressDelta struct {
	EcoPoints  int
	Experience int
}

// IsZero reports whether applying the delta would be a no-op.
func (d ProgressDelta) IsZero() bool {
	return d.EcoPoints == 0 && d.Experience == 0
}

// Option is a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with four options and one correct answer.
type Question struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Options     []Option `json:"options"`
	Explanation string   `json:"explanation,omitempty"`
}

// CorrectOption returns the first option flagged correct, or nil.
func (q Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].Correct {
			return &q.Options[i]
		}
	}
	return nil
}

// QuestionSet is the fixed question list for one topic.
type QuestionSet struct {
	Topic     Topic      `json:"topic"`
	Questions []Question `json:"questions"`
}

// AnswerRecord captures one answered question for the completion report.
type AnswerRecord struct {
	QuestionID    string `json:"questionId"`
	Prompt        string `json:"prompt"`
	GivenOption   string `json:"givenOption"` // empty when the timer expired
	CorrectOption string `json:"correctOption"`
	Correct       bool   `json:"correct"`
	Explanation   string `json:"explanation,omitempty"`
}

// Group is a community group. Member and online counts are display-only and
// are not kept consistent with real membership.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"ownerId"`
	Members     int       `json:"members"`
	Online      int       `json:"online"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Message belongs to exactly one group and is never edited, only appended.
type Message struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
