package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"nonsense-quiz-service/internal/domain"
)

const quizColumns = `id::text, question, answer, likes, dislikes, approved, created_at`

// Store persists quizzes, ratings, scores and submissions in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ApprovedQuizzes lists approved quizzes, newest first.
func (s *Store) ApprovedQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE approved ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query approved quizzes: %w", err)
	}
	return scanQuizzes(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchQuizzes matches question text case-insensitively, most liked first.
func (s *Store) SearchQuizzes(ctx context.Context, text string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+quizColumns+` FROM quizzes
		WHERE approved AND question ILIKE '%' || $1 || '%'
		ORDER BY likes DESC, created_at DESC`, likeEscaper.Replace(text))
	if err != nil {
		return nil, fmt.Errorf("search quizzes: %w", err)
	}
	return scanQuizzes(rows)
}

// AddQuiz inserts a quiz and returns it with its generated id.
func (s *Store) AddQuiz(ctx context.Context, q domain.Quiz) (domain.Quiz, error) {
	row := s.pool.QueryRow(ctx, `INSERT INTO quizzes (question, answer, approved)
		VALUES ($1, $2, $3) RETURNING `+quizColumns, q.Question, q.Answer, q.Approved)
	quiz, err := scanQuiz(row)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return quiz, nil
}

// RecordRating stores the rating and bumps the like/dislike counter in one transaction.
func (s *Store) RecordRating(ctx context.Context, rating domain.QuizRating) error {
	if !validUUID(rating.QuizID) {
		return domain.ErrQuizNotFound
	}
	likes, dislikes := 0, 0
	switch rating.Rating {
	case domain.RatingLike:
		likes = 1
	case domain.RatingDislike:
		dislikes = 1
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rating: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE quizzes SET likes = likes + $2, dislikes = dislikes + $3 WHERE id = $1`,
		rating.QuizID, likes, dislikes)
	if err != nil {
		return fmt.Errorf("update quiz counters: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	if _, err := tx.Exec(ctx, `INSERT INTO quiz_ratings (quiz_id, rating, session_id, created_at) VALUES ($1, $2, $3, $4)`,
		rating.QuizID, string(rating.Rating), rating.SessionID, rating.CreatedAt); err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	return tx.Commit(ctx)
}

func scanQuizzes(rows pgx.Rows) ([]domain.Quiz, error) {
	defer rows.Close()
	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var q domain.Quiz
	err := row.Scan(&q.ID, &q.Question, &q.Answer, &q.Likes, &q.Dislikes, &q.Approved, &q.CreatedAt)
	return q, err
}
