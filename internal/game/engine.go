package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"nonsense-quiz-service/internal/domain"
)

const (
	DefaultRoundSize     = 10
	DefaultQuestionTime  = 60
	DefaultAdvanceDelay  = 3 * time.Second
	defaultRatingTimeout = 5 * time.Second
)

// Supply provides quizzes to the engine and receives ratings.
type Supply interface {
	FetchQuizBatch(ctx context.Context, count int, excludeIDs []string) ([]domain.Quiz, error)
	RecordRating(ctx context.Context, quizID string, rating domain.Rating, sessionID string) error
}

// Listener receives engine events. Methods are called with the engine locked,
// so implementations must not call back into the Engine.
type Listener interface {
	OnPhaseChange(Snapshot)
	OnRoundCompleted(finalScore int, perfect bool)
	OnTick(timeRemaining int)
}

// Options configures an Engine. Zero values fall back to defaults.
type Options struct {
	SessionID    string
	RoundSize    int
	QuestionTime int // seconds
	AdvanceDelay time.Duration
	Listener     Listener
	Scheduler    Scheduler
	Rand         *rand.Rand
	Logger       *log.Entry
	// Dispatch runs fire-and-forget work such as rating submission.
	Dispatch func(func())
}

// Snapshot is a render-ready copy of the engine state.
type Snapshot struct {
	Phase          Phase    `json:"phase"`
	Outcome        Outcome  `json:"outcome"`
	TimedOut       bool     `json:"timedOut,omitempty"`
	Round          int      `json:"round"`
	QuestionNumber int      `json:"questionNumber"`
	TotalQuestions int      `json:"totalQuestions"`
	Score          int      `json:"score"`
	TimeRemaining  int      `json:"timeRemaining"`
	QuizID         string   `json:"quizId,omitempty"`
	Question       string   `json:"question,omitempty"`
	WordLengths    []int    `json:"wordLengths,omitempty"`
	Grid           []string `json:"grid,omitempty"`
	Selection      []string `json:"selection"`
	UsedSlots      []int    `json:"usedSlots"`
	CorrectAnswer  string   `json:"correctAnswer,omitempty"`
	Perfect        bool     `json:"perfect,omitempty"`
}

// roundSession is the mutable state of one round.
type roundSession struct {
	quizzes        []domain.Quiz
	currentIndex   int
	questionNumber int
	round          int
	score          int
	usedQuizIDs    []string
	timeRemaining  int
	phase          Phase
	outcome        Outcome
	timedOut       bool
	perfect        bool
	grid           []string
	selection      []string
	selectionSlots []int
	usedSlots      map[int]struct{}
}

func newRoundSession(quizzes []domain.Quiz, round, score int, used []string) *roundSession {
	s := &roundSession{
		quizzes:        quizzes,
		questionNumber: 1,
		round:          round,
		score:          score,
		usedQuizIDs:    append([]string(nil), used...),
	}
	seen := make(map[string]struct{}, len(s.usedQuizIDs))
	for _, id := range s.usedQuizIDs {
		seen[id] = struct{}{}
	}
	for _, q := range quizzes {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		seen[q.ID] = struct{}{}
		s.usedQuizIDs = append(s.usedQuizIDs, q.ID)
	}
	return s
}

func (s *roundSession) currentQuiz() domain.Quiz {
	return s.quizzes[s.currentIndex]
}

// Engine is the round/question state machine for a single player.
// All exported methods are safe to call from any goroutine; calls that do
// not fit the current phase are ignored.
type Engine struct {
	supply        Supply
	listener      Listener
	sched         Scheduler
	rnd           *rand.Rand
	dispatch      func(func())
	logger        *log.Entry
	sessionID     string
	roundSize     int
	questionTime  int
	advanceDelay  time.Duration
	ratingTimeout time.Duration

	mu      sync.Mutex
	session *roundSession
	loading bool
	closed  bool
	seq     uint64
	tick    Timer
	advance Timer
}

func NewEngine(supply Supply, opts Options) *Engine {
	e := &Engine{
		supply:        supply,
		listener:      opts.Listener,
		sched:         opts.Scheduler,
		rnd:           opts.Rand,
		dispatch:      opts.Dispatch,
		logger:        opts.Logger,
		sessionID:     opts.SessionID,
		roundSize:     opts.RoundSize,
		questionTime:  opts.QuestionTime,
		advanceDelay:  opts.AdvanceDelay,
		ratingTimeout: defaultRatingTimeout,
	}
	if e.listener == nil {
		e.listener = nopListener{}
	}
	if e.sched == nil {
		e.sched = WallScheduler
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.dispatch == nil {
		e.dispatch = func(f func()) { go f() }
	}
	if e.logger == nil {
		e.logger = log.NewEntry(log.StandardLogger())
	}
	e.logger = e.logger.WithField("session", e.sessionID)
	if e.roundSize <= 0 {
		e.roundSize = DefaultRoundSize
	}
	if e.questionTime <= 0 {
		e.questionTime = DefaultQuestionTime
	}
	if e.advanceDelay <= 0 {
		e.advanceDelay = DefaultAdvanceDelay
	}
	return e
}

// SessionID identifies the player session ratings are recorded under.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// StartRound discards any current round and starts a fresh one with score 0.
// It returns domain.ErrNoQuizzes when the supply has nothing to offer; the
// engine is then left without a round and the call may be retried.
// While another round is loading it returns domain.ErrRoundLoading.
func (e *Engine) StartRound(ctx context.Context) (Notice, error) {
	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return NoticeNone, domain.ErrRoundLoading
	}
	if e.closed {
		e.mu.Unlock()
		return NoticeNone, nil
	}
	e.loading = true
	e.mu.Unlock()
	defer e.endLoading()

	quizzes, err := e.fetch(ctx, nil)
	if len(quizzes) == 0 {
		return NoticeNone, noQuizzes(err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return NoticeNone, nil
	}
	e.stopTimersLocked()
	e.session = newRoundSession(quizzes, 1, 0, nil)
	e.logger.WithFields(log.Fields{"round": 1, "quizzes": len(quizzes)}).Info("round started")
	e.beginQuestionLocked()
	return e.batchNotice(NoticeNone, len(quizzes)), nil
}

// ContinueChallenge chains a new round after a perfect one. The score is
// carried over and quizzes from earlier rounds are excluded; when none are
// left the supply is asked again without exclusions and NoticeReusingQuizzes
// is returned. If no quizzes are available at all the completed round is kept.
// Outside a completed perfect round the call is a no-op.
func (e *Engine) ContinueChallenge(ctx context.Context) (Notice, error) {
	e.mu.Lock()
	if e.loading {
		e.mu.Unlock()
		return NoticeNone, domain.ErrRoundLoading
	}
	prev := e.session
	if e.closed || prev == nil || prev.phase != PhaseCompleted || !prev.perfect {
		e.mu.Unlock()
		return NoticeNone, nil
	}
	exclude := append([]string(nil), prev.usedQuizIDs...)
	e.loading = true
	e.mu.Unlock()
	defer e.endLoading()

	notice := NoticeNone
	quizzes, err := e.fetch(ctx, exclude)
	if len(quizzes) == 0 {
		notice = NoticeReusingQuizzes
		e.logger.WithField("excluded", len(exclude)).Warn("no unseen quizzes left, reusing")
		quizzes, err = e.fetch(ctx, nil)
		if len(quizzes) == 0 {
			return notice, noQuizzes(err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.session != prev {
		return NoticeNone, nil
	}
	e.session = newRoundSession(quizzes, prev.round+1, prev.score, prev.usedQuizIDs)
	e.logger.WithFields(log.Fields{"round": prev.round + 1, "score": prev.score}).Info("challenge continued")
	e.beginQuestionLocked()
	return e.batchNotice(notice, len(quizzes)), nil
}

// SelectCharacter appends the grid character at slot to the selection.
func (e *Engine) SelectCharacter(slot int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.playingLocked()
	if s == nil || slot < 0 || slot >= len(s.grid) {
		return false
	}
	if _, used := s.usedSlots[slot]; used {
		return false
	}
	s.selection = append(s.selection, s.grid[slot])
	s.selectionSlots = append(s.selectionSlots, slot)
	s.usedSlots[slot] = struct{}{}
	return true
}

// UndoSelection removes the selected character at position and frees its grid slot.
func (e *Engine) UndoSelection(position int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.playingLocked()
	if s == nil || position < 0 || position >= len(s.selection) {
		return false
	}
	delete(s.usedSlots, s.selectionSlots[position])
	s.selection = append(s.selection[:position], s.selection[position+1:]...)
	s.selectionSlots = append(s.selectionSlots[:position], s.selectionSlots[position+1:]...)
	return true
}

// SubmitAnswer checks the current selection and shows the result until the
// auto-advance fires or RateAndAdvance is called.
func (e *Engine) SubmitAnswer() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.playingLocked()
	if s == nil {
		return false
	}
	e.stopTickLocked()
	if IsCorrect(strings.Join(s.selection, ""), s.currentQuiz().Answer) {
		s.score++
		s.outcome = OutcomeCorrect
	} else {
		s.outcome = OutcomeWrong
	}
	e.awaitAdvanceLocked()
	return true
}

// SkipQuestion moves on without scoring or rating the current quiz.
func (e *Engine) SkipQuestion() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.playingLocked() == nil {
		return false
	}
	e.stopTickLocked()
	e.endQuestionLocked()
	return true
}

// RateAndAdvance records rating for the answered quiz and advances
// immediately, cancelling the pending auto-advance.
func (e *Engine) RateAndAdvance(rating domain.Rating) bool {
	if !rating.Valid() {
		return false
	}
	e.mu.Lock()
	s := e.session
	if e.closed || s == nil || s.phase != PhaseAwaitingAdvance {
		e.mu.Unlock()
		return false
	}
	quizID := s.currentQuiz().ID
	e.stopAdvanceLocked()
	e.endQuestionLocked()
	e.mu.Unlock()

	e.recordRating(quizID, rating)
	return true
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// WithSnapshot calls f with the current state while holding the engine lock,
// so no transition or listener callback interleaves. f must not call the engine.
func (e *Engine) WithSnapshot(f func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f(e.snapshotLocked())
}

// Close cancels both timers. No scheduled callback mutates the engine afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.seq++
	e.stopTimersLocked()
}

func (e *Engine) endLoading() {
	e.mu.Lock()
	e.loading = false
	e.mu.Unlock()
}

func (e *Engine) fetch(ctx context.Context, exclude []string) ([]domain.Quiz, error) {
	quizzes, err := e.supply.FetchQuizBatch(ctx, e.roundSize, exclude)
	if err != nil {
		e.logger.WithError(err).WithField("excluded", len(exclude)).Warn("quiz batch fetch failed")
		return nil, err
	}
	return quizzes, nil
}

func noQuizzes(cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %w", domain.ErrNoQuizzes, cause)
	}
	return domain.ErrNoQuizzes
}

func (e *Engine) batchNotice(notice Notice, n int) Notice {
	if notice == NoticeNone && n < e.roundSize {
		return NoticeShortBatch
	}
	return notice
}

func (e *Engine) playingLocked() *roundSession {
	if e.closed || e.session == nil || e.session.phase != PhasePlaying {
		return nil
	}
	return e.session
}

func (e *Engine) beginQuestionLocked() {
	s := e.session
	s.grid = BuildGrid(s.currentQuiz().Answer, e.rnd)
	s.selection = nil
	s.selectionSlots = nil
	s.usedSlots = make(map[int]struct{})
	s.phase = PhasePlaying
	s.outcome = OutcomeNone
	s.timedOut = false
	s.timeRemaining = e.questionTime

	e.seq++
	e.scheduleTickLocked(e.seq)
	e.listener.OnPhaseChange(e.snapshotLocked())
}

func (e *Engine) scheduleTickLocked(seq uint64) {
	e.tick = e.sched.AfterFunc(time.Second, func() { e.onTick(seq) })
}

func (e *Engine) onTick(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if e.closed || s == nil || seq != e.seq || s.phase != PhasePlaying {
		return
	}
	s.timeRemaining--
	e.listener.OnTick(s.timeRemaining)
	if s.timeRemaining <= 0 {
		e.timeExpireLocked()
		return
	}
	e.scheduleTickLocked(seq)
}

// timeExpireLocked ends the question as wrong without looking at the selection.
func (e *Engine) timeExpireLocked() {
	s := e.playingLocked()
	if s == nil {
		return
	}
	e.stopTickLocked()
	s.outcome = OutcomeWrong
	s.timedOut = true
	e.logger.WithField("quiz", s.currentQuiz().ID).Debug("question timed out")
	e.awaitAdvanceLocked()
}

func (e *Engine) awaitAdvanceLocked() {
	s := e.session
	s.phase = PhaseAwaitingAdvance
	e.listener.OnPhaseChange(e.snapshotLocked())

	e.stopAdvanceLocked()
	seq := e.seq
	e.advance = e.sched.AfterFunc(e.advanceDelay, func() { e.onAutoAdvance(seq) })
}

func (e *Engine) onAutoAdvance(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	if e.closed || s == nil || seq != e.seq || s.phase != PhaseAwaitingAdvance {
		return
	}
	e.advance = nil
	e.endQuestionLocked()
}

func (e *Engine) endQuestionLocked() {
	if e.session.questionNumber >= e.roundSize {
		e.completeLocked()
		return
	}
	e.advanceToNextQuestionLocked()
}

// advanceToNextQuestionLocked moves to the next quiz in the batch, recycling
// from the start when the batch is shorter than the round.
func (e *Engine) advanceToNextQuestionLocked() {
	s := e.session
	served := s.questionNumber
	s.questionNumber++
	if s.currentIndex+1 < len(s.quizzes) {
		s.currentIndex++
	} else {
		s.currentIndex = served % len(s.quizzes)
	}
	e.beginQuestionLocked()
}

func (e *Engine) completeLocked() {
	e.stopTimersLocked()
	s := e.session
	s.phase = PhaseCompleted
	s.perfect = s.score == e.roundSize
	e.logger.WithFields(log.Fields{"round": s.round, "score": s.score, "perfect": s.perfect}).Info("round completed")
	e.listener.OnPhaseChange(e.snapshotLocked())
	e.listener.OnRoundCompleted(s.score, s.perfect)
}

func (e *Engine) stopTickLocked() {
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
}

func (e *Engine) stopAdvanceLocked() {
	if e.advance != nil {
		e.advance.Stop()
		e.advance = nil
	}
}

func (e *Engine) stopTimersLocked() {
	e.stopTickLocked()
	e.stopAdvanceLocked()
}

func (e *Engine) recordRating(quizID string, rating domain.Rating) {
	e.dispatch(func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.ratingTimeout)
		defer cancel()
		if err := e.supply.RecordRating(ctx, quizID, rating, e.sessionID); err != nil {
			e.logger.WithError(err).WithFields(log.Fields{"quiz": quizID, "rating": rating}).Warn("failed to record rating")
		}
	})
}

func (e *Engine) snapshotLocked() Snapshot {
	s := e.session
	if s == nil {
		return Snapshot{Phase: PhaseIdle, TotalQuestions: e.roundSize, Selection: []string{}, UsedSlots: []int{}}
	}
	quiz := s.currentQuiz()
	snap := Snapshot{
		Phase:          s.phase,
		Outcome:        s.outcome,
		TimedOut:       s.timedOut,
		Round:          s.round,
		QuestionNumber: s.questionNumber,
		TotalQuestions: e.roundSize,
		Score:          s.score,
		TimeRemaining:  s.timeRemaining,
		QuizID:         quiz.ID,
		Question:       quiz.Question,
		WordLengths:    wordLengths(quiz.Answer),
		Grid:           append([]string(nil), s.grid...),
		Selection:      append([]string{}, s.selection...),
		UsedSlots:      append([]int{}, s.selectionSlots...),
		Perfect:        s.perfect,
	}
	if s.phase == PhaseAwaitingAdvance && s.outcome == OutcomeWrong {
		snap.CorrectAnswer = quiz.Answer
	}
	return snap
}

// wordLengths describes the answer layout for rendering answer boxes.
func wordLengths(answer string) []int {
	fields := strings.Fields(answer)
	out := make([]int, len(fields))
	for i, f := range fields {
		out[i] = utf8.RuneCountInString(f)
	}
	return out
}

type nopListener struct{}

func (nopListener) OnPhaseChange(Snapshot) {}

func (nopListener) OnRoundCompleted(int, bool) {}

func (nopListener) OnTick(int) {}
