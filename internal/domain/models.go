package domain

import "time"

// Quiz is one approved riddle served to players.
type Quiz struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"` // spaces are display placeholders, ignored when matching
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
}

// Weight is the popularity weight used when sampling quizzes for a batch.
func (q Quiz) Weight() int {
	w := q.Likes - q.Dislikes + 1
	if w < 1 {
		return 1
	}
	return w
}

// Rating is the player's feedback on a quiz after answering it.
type Rating string

const (
	RatingLike    Rating = "like"
	RatingDislike Rating = "dislike"
	RatingPass    Rating = "pass"
)

// Valid reports whether r is one of the known ratings.
func (r Rating) Valid() bool {
	switch r {
	case RatingLike, RatingDislike, RatingPass:
		return true
	}
	return false
}

// QuizRating is a single recorded rating.
type QuizRating struct {
	QuizID    string    `json:"quizId"`
	Rating    Rating    `json:"rating"`
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Score is a leaderboard row.
type Score struct {
	ID        string    `json:"id"`
	UserName  string    `json:"userName"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubmissionStatus tracks moderation of a player-submitted quiz.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is a quiz proposed by a player and awaiting moderation.
type Submission struct {
	ID          string           `json:"id"`
	Question    string           `json:"question"`
	Answer      string           `json:"answer"`
	SubmittedBy string           `json:"submittedBy,omitempty"`
	Status      SubmissionStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt"`
}
