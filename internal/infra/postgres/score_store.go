package postgres

import (
	"context"
	"fmt"

	"nonsense-quiz-service/internal/domain"
)

func (s *Store) SaveScore(ctx context.Context, score domain.Score) (domain.Score, error) {
	err := s.pool.QueryRow(ctx, `INSERT INTO scores (user_name, score, created_at) VALUES ($1, $2, $3)
		RETURNING id::text, created_at`, score.UserName, score.Score, score.CreatedAt).Scan(&score.ID, &score.CreatedAt)
	if err != nil {
		return domain.Score{}, fmt.Errorf("insert score: %w", err)
	}
	return score, nil
}

// TopScores orders by score desc, then by who got there first.
func (s *Store) TopScores(ctx context.Context, limit int) ([]domain.Score, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text, user_name, score, created_at FROM scores
		ORDER BY score DESC, created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	scores := make([]domain.Score, 0, limit)
	for rows.Next() {
		var sc domain.Score
		if err := rows.Scan(&sc.ID, &sc.UserName, &sc.Score, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}
