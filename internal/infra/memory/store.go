package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"nonsense-quiz-service/internal/domain"
)

// Store keeps quizzes, ratings, scores and submissions in process memory
// (useful for tests/demos and when no Postgres is configured).
type Store struct {
	clock func() time.Time

	mu          sync.RWMutex
	quizzes     []domain.Quiz
	ratings     []domain.QuizRating
	scores      []domain.Score
	submissions []domain.Submission
}

// NewStore seeds the store with quizzes; missing ids and timestamps are filled in.
func NewStore(seed []domain.Quiz) *Store {
	s := &Store{clock: time.Now}
	for _, q := range seed {
		s.quizzes = append(s.quizzes, s.fillQuiz(q))
	}
	return s
}

func (s *Store) fillQuiz(q domain.Quiz) domain.Quiz {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.clock().UTC()
	}
	return q
}

// AddQuiz stores a quiz as given.
func (s *Store) AddQuiz(_ context.Context, q domain.Quiz) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q = s.fillQuiz(q)
	s.quizzes = append(s.quizzes, q)
	return q, nil
}

// ApprovedQuizzes lists approved quizzes, newest first.
func (s *Store) ApprovedQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for i := len(s.quizzes) - 1; i >= 0; i-- {
		if s.quizzes[i].Approved {
			out = append(out, s.quizzes[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// SearchQuizzes matches question text case-insensitively, most liked first.
func (s *Store) SearchQuizzes(_ context.Context, text string) ([]domain.Quiz, error) {
	needle := strings.ToLower(text)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if q.Approved && strings.Contains(strings.ToLower(q.Question), needle) {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Likes > out[j].Likes
	})
	return out, nil
}

// RecordRating stores the rating and bumps the quiz's like/dislike counter.
func (s *Store) RecordRating(_ context.Context, rating domain.QuizRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.quizzes {
		if s.quizzes[i].ID != rating.QuizID {
			continue
		}
		switch rating.Rating {
		case domain.RatingLike:
			s.quizzes[i].Likes++
		case domain.RatingDislike:
			s.quizzes[i].Dislikes++
		}
		s.ratings = append(s.ratings, rating)
		return nil
	}
	return domain.ErrQuizNotFound
}

// Ratings returns every recorded rating.
func (s *Store) Ratings() []domain.QuizRating {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizRating(nil), s.ratings...)
}

func (s *Store) SaveScore(_ context.Context, score domain.Score) (domain.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score.ID = uuid.NewString()
	if score.CreatedAt.IsZero() {
		score.CreatedAt = s.clock().UTC()
	}
	s.scores = append(s.scores, score)
	return score, nil
}

// TopScores orders by score desc, then by who got there first.
func (s *Store) TopScores(_ context.Context, limit int) ([]domain.Score, error) {
	s.mu.RLock()
	out := append([]domain.Score(nil), s.scores...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateSubmission(_ context.Context, sub domain.Submission) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.ID = uuid.NewString()
	sub.Status = domain.SubmissionPending
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.clock().UTC()
	}
	s.submissions = append(s.submissions, sub)
	return sub, nil
}

// PendingSubmissions lists pending submissions, oldest first.
func (s *Store) PendingSubmissions(_ context.Context) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, 0)
	for _, sub := range s.submissions {
		if sub.Status == domain.SubmissionPending {
			out = append(out, sub)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ApproveSubmission(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.pendingLocked(id)
	if sub == nil {
		return domain.Quiz{}, domain.ErrSubmissionNotFound
	}
	quiz := s.fillQuiz(domain.Quiz{
		Question: sub.Question,
		Answer:   sub.Answer,
		Approved: true,
	})
	s.quizzes = append(s.quizzes, quiz)
	sub.Status = domain.SubmissionApproved
	return quiz, nil
}

func (s *Store) RejectSubmission(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := s.pendingLocked(id)
	if sub == nil {
		return domain.ErrSubmissionNotFound
	}
	sub.Status = domain.SubmissionRejected
	return nil
}

func (s *Store) pendingLocked(id string) *domain.Submission {
	for i := range s.submissions {
		if s.submissions[i].ID == id && s.submissions[i].Status == domain.SubmissionPending {
			return &s.submissions[i]
		}
	}
	return nil
}
