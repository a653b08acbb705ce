package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"nonsense-quiz-service/internal/domain"
)

// QuizSearcher finds approved quizzes by question text.
type QuizSearcher interface {
	SearchQuizzes(ctx context.Context, text string) ([]domain.Quiz, error)
}

// SubmissionStore persists player-submitted quizzes and their moderation.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, submission domain.Submission) (domain.Submission, error)
	PendingSubmissions(ctx context.Context) ([]domain.Submission, error)
	// ApproveSubmission turns a pending submission into an approved quiz.
	ApproveSubmission(ctx context.Context, id string) (domain.Quiz, error)
	RejectSubmission(ctx context.Context, id string) error
}

// PoolInvalidator drops cached quiz pools so approvals show up immediately.
type PoolInvalidator interface {
	Invalidate(ctx context.Context) error
}

// CatalogService covers quiz search, player submissions and moderation.
type CatalogService struct {
	search      QuizSearcher
	submissions SubmissionStore
	cache       PoolInvalidator
	now         func() time.Time
}

// NewCatalogService builds the service; cache may be nil.
func NewCatalogService(search QuizSearcher, submissions SubmissionStore, cache PoolInvalidator) *CatalogService {
	return &CatalogService{
		search:      search,
		submissions: submissions,
		cache:       cache,
		now:         time.Now,
	}
}

// Search lists approved quizzes whose question contains text, most liked first.
func (s *CatalogService) Search(ctx context.Context, text string) ([]domain.Quiz, error) {
	return s.search.SearchQuizzes(ctx, strings.TrimSpace(text))
}

// SubmitQuiz queues a new quiz for moderation.
func (s *CatalogService) SubmitQuiz(ctx context.Context, question, answer, submittedBy string) (domain.Submission, error) {
	in := submissionInput{
		Question:    strings.TrimSpace(question),
		Answer:      strings.TrimSpace(answer),
		SubmittedBy: strings.TrimSpace(submittedBy),
	}
	if err := validateInput(in); err != nil {
		return domain.Submission{}, err
	}
	saved, err := s.submissions.CreateSubmission(ctx, domain.Submission{
		Question:    in.Question,
		Answer:      in.Answer,
		SubmittedBy: in.SubmittedBy,
		Status:      domain.SubmissionPending,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return domain.Submission{}, fmt.Errorf("create submission: %w", err)
	}
	return saved, nil
}

// PendingSubmissions lists submissions awaiting moderation, oldest first.
func (s *CatalogService) PendingSubmissions(ctx context.Context) ([]domain.Submission, error) {
	return s.submissions.PendingSubmissions(ctx)
}

// ApproveSubmission publishes a pending submission as a playable quiz.
func (s *CatalogService) ApproveSubmission(ctx context.Context, id string) (domain.Quiz, error) {
	quiz, err := s.submissions.ApproveSubmission(ctx, id)
	if err != nil {
		return domain.Quiz{}, err
	}
	log.WithFields(log.Fields{"submission": id, "quiz": quiz.ID}).Info("submission approved")
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			log.WithError(err).Warn("failed to invalidate quiz pool cache")
		}
	}
	return quiz, nil
}

// RejectSubmission marks a pending submission rejected.
func (s *CatalogService) RejectSubmission(ctx context.Context, id string) error {
	if err := s.submissions.RejectSubmission(ctx, id); err != nil {
		return err
	}
	log.WithField("submission", id).Info("submission rejected")
	return nil
}
