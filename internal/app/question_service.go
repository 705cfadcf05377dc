package app

import (
	"context"

	"ecoquest-service/internal/domain"
)

// QuestionRepository loads topic question banks (from cache/backing store).
type QuestionRepository interface {
	GetQuestionSet(ctx context.Context, topic domain.Topic) (domain.QuestionSet, error)
}

// QuestionService validates topics against the declared variant list before
// touching the repository.
type QuestionService struct {
	questions QuestionRepository
}

func NewQuestionService(questions QuestionRepository) *QuestionService {
	return &QuestionService{questions: questions}
}

// GetQuestionSet returns the question bank for a topic.
func (s *QuestionService) GetQuestionSet(ctx context.Context, topic domain.Topic) (domain.QuestionSet, error) {
	if !topic.Valid() {
		return domain.QuestionSet{}, domain.ErrUnknownTopic
	}
	set, err := s.questions.GetQuestionSet(ctx, topic)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	if len(set.Questions) == 0 {
		return domain.QuestionSet{}, domain.ErrEmptyQuestionSet
	}
	return set, nil
}
