package game

import "fmt"

// Phase is the state of the round state machine.
type Phase int

const (
	// PhaseIdle means no round has been installed yet.
	PhaseIdle Phase = iota
	PhasePlaying
	PhaseAwaitingAdvance
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseAwaitingAdvance:
		return "awaiting_advance"
	case PhaseCompleted:
		return "completed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Outcome is the result of the question that just ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCorrect
	OutcomeWrong
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeCorrect:
		return "correct"
	case OutcomeWrong:
		return "wrong"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Notice is a non-fatal condition reported when a round starts.
type Notice string

const (
	NoticeNone Notice = ""
	// NoticeReusingQuizzes means no unseen quizzes were left, so already played ones are served again.
	NoticeReusingQuizzes Notice = "reusing_quizzes"
	// NoticeShortBatch means fewer quizzes than questions were supplied; some will repeat within the round.
	NoticeShortBatch Notice = "short_batch"
)
