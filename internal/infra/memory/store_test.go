package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"nonsense-quiz-service/internal/domain"
)

func TestApprovedQuizzesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _ = store.AddQuiz(ctx, domain.Quiz{ID: "old", Answer: "가", Approved: true, CreatedAt: base})
	_, _ = store.AddQuiz(ctx, domain.Quiz{ID: "new", Answer: "나", Approved: true, CreatedAt: base.Add(time.Hour)})
	_, _ = store.AddQuiz(ctx, domain.Quiz{ID: "hidden", Answer: "다", CreatedAt: base.Add(2 * time.Hour)})

	quizzes, err := store.ApprovedQuizzes(ctx)
	if err != nil {
		t.Fatalf("approved: %v", err)
	}
	if len(quizzes) != 2 || quizzes[0].ID != "new" || quizzes[1].ID != "old" {
		t.Fatalf("unexpected order %+v", quizzes)
	}
}

func TestRecordRatingBumpsCounters(t *testing.T) {
	ctx := context.Background()
	store := NewStore(sampleQuizzes())

	for _, r := range []domain.Rating{domain.RatingLike, domain.RatingLike, domain.RatingDislike, domain.RatingPass} {
		if err := store.RecordRating(ctx, domain.QuizRating{QuizID: "q1", Rating: r, SessionID: "s1"}); err != nil {
			t.Fatalf("rate: %v", err)
		}
	}
	quizzes, _ := store.SearchQuizzes(ctx, "왕이")
	if len(quizzes) != 1 || quizzes[0].Likes != 2 || quizzes[0].Dislikes != 1 {
		t.Fatalf("unexpected counters %+v", quizzes)
	}
	if len(store.Ratings()) != 4 {
		t.Fatalf("expected 4 ratings, got %d", len(store.Ratings()))
	}

	err := store.RecordRating(ctx, domain.QuizRating{QuizID: "missing", Rating: domain.RatingLike})
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestSearchOrdersByLikes(t *testing.T) {
	store := NewStore(sampleQuizzes())
	quizzes, err := store.SearchQuizzes(context.Background(), "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(quizzes) != 2 || quizzes[0].ID != "q2" {
		t.Fatalf("expected approved quizzes with q2 first, got %+v", quizzes)
	}
}

func TestTopScoresTieBreak(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, _ = store.SaveScore(ctx, domain.Score{UserName: "late", Score: 7, CreatedAt: base.Add(time.Minute)})
	_, _ = store.SaveScore(ctx, domain.Score{UserName: "early", Score: 7, CreatedAt: base})
	_, _ = store.SaveScore(ctx, domain.Score{UserName: "low", Score: 2, CreatedAt: base})

	scores, err := store.TopScores(ctx, 2)
	if err != nil {
		t.Fatalf("top scores: %v", err)
	}
	if len(scores) != 2 || scores[0].UserName != "early" || scores[1].UserName != "late" {
		t.Fatalf("unexpected scoreboard %+v", scores)
	}
}

func TestSubmissionModeration(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil)

	approved, _ := store.CreateSubmission(ctx, domain.Submission{Question: "문제", Answer: "정답"})
	rejected, _ := store.CreateSubmission(ctx, domain.Submission{Question: "별로", Answer: "오답"})

	pending, _ := store.PendingSubmissions(ctx)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}

	quiz, err := store.ApproveSubmission(ctx, approved.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !quiz.Approved || quiz.Answer != "정답" {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if err := store.RejectSubmission(ctx, rejected.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := store.ApproveSubmission(ctx, rejected.ID); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected rejected submission to be final, got %v", err)
	}

	pending, _ = store.PendingSubmissions(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected no pending submissions, got %d", len(pending))
	}
	pool, _ := store.ApprovedQuizzes(ctx)
	if len(pool) != 1 || pool[0].ID != quiz.ID {
		t.Fatalf("expected approved quiz in pool, got %+v", pool)
	}
}
