package domain

import "errors"

var (
	// ErrNoQuizzes is returned when not a single approved quiz can be supplied for a round.
	ErrNoQuizzes = errors.New("no quizzes available")
	// ErrSessionNotFound is returned when a game session has not been opened.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrRoundNotCompleted indicates a score was saved before the round finished.
	ErrRoundNotCompleted = errors.New("round not completed")
	// ErrRoundLoading is returned when a round is requested while another one is still being fetched.
	ErrRoundLoading = errors.New("round is already loading")
	// ErrScoreAlreadySaved indicates the completed round's score was stored before.
	ErrScoreAlreadySaved = errors.New("score already saved for this round")
	// ErrSubmissionNotFound indicates a moderation target does not exist or is no longer pending.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrQuizNotFound indicates a rating targets an unknown quiz.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidInput wraps validation failures on user-provided data.
	ErrInvalidInput = errors.New("invalid input")
)
