package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"nonsense-quiz-service/internal/domain"
)

const submissionColumns = `id::text, question, answer, COALESCE(submitted_by, ''), status, created_at`

func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) (domain.Submission, error) {
	row := s.pool.QueryRow(ctx, `INSERT INTO quiz_submissions (question, answer, submitted_by, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4) RETURNING `+submissionColumns,
		sub.Question, sub.Answer, sub.SubmittedBy, sub.CreatedAt)
	saved, err := scanSubmission(row)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return saved, nil
}

// PendingSubmissions lists pending submissions, oldest first.
func (s *Store) PendingSubmissions(ctx context.Context) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+submissionColumns+` FROM quiz_submissions
		WHERE status = 'pending' ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// ApproveSubmission copies a pending submission into quizzes and marks it approved atomically.
func (s *Store) ApproveSubmission(ctx context.Context, id string) (domain.Quiz, error) {
	if !validUUID(id) {
		return domain.Quiz{}, domain.ErrSubmissionNotFound
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("begin approval: %w", err)
	}
	defer tx.Rollback(ctx)

	var question, answer string
	err = tx.QueryRow(ctx, `SELECT question, answer FROM quiz_submissions
		WHERE id = $1 AND status = 'pending' FOR UPDATE`, id).Scan(&question, &answer)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load submission: %w", err)
	}

	quiz, err := scanQuiz(tx.QueryRow(ctx, `INSERT INTO quizzes (question, answer, approved)
		VALUES ($1, $2, TRUE) RETURNING `+quizColumns, question, answer))
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("insert approved quiz: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE quiz_submissions SET status = 'approved' WHERE id = $1`, id); err != nil {
		return domain.Quiz{}, fmt.Errorf("mark submission approved: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Quiz{}, fmt.Errorf("commit approval: %w", err)
	}
	return quiz, nil
}

func (s *Store) RejectSubmission(ctx context.Context, id string) error {
	if !validUUID(id) {
		return domain.ErrSubmissionNotFound
	}
	tag, err := s.pool.Exec(ctx, `UPDATE quiz_submissions SET status = 'rejected' WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("reject submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

func scanSubmission(row pgx.Row) (domain.Submission, error) {
	var sub domain.Submission
	var status string
	err := row.Scan(&sub.ID, &sub.Question, &sub.Answer, &sub.SubmittedBy, &status, &sub.CreatedAt)
	sub.Status = domain.SubmissionStatus(status)
	return sub, err
}

func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
