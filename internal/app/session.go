package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/scoring"
)

// Status is the lifecycle position of a session.
type Status string

const (
	StatusIntake     Status = "intake"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusFinalizing Status = "finalizing"
	StatusFinalized  Status = "finalized"
)

// FinalizeReason records what ended the attempt.
type FinalizeReason string

const (
	ReasonSubmitted FinalizeReason = "submitted"
	ReasonExpired   FinalizeReason = "time_expired"
)

// SessionConfig fixes the rules a session runs under.
type SessionConfig struct {
	TimeLimit    time.Duration
	TickInterval time.Duration
	HintBudget   int
	Intake       domain.IntakeProfile
	Scoring      scoring.Config
}

// DefaultSessionConfig is a 75 minute attempt with three lifelines.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TimeLimit:    75 * time.Minute,
		TickInterval: time.Second,
		HintBudget:   3,
		Intake:       domain.DefaultIntakeProfile(),
		Scoring:      scoring.DefaultConfig(),
	}
}

// QuestionView is a question as shown to the applicant, without its answer key.
type QuestionView struct {
	Index    int      `json:"index"`
	Text     string   `json:"question"`
	Category string   `json:"category"`
	Options  []string `json:"options"`
}

// SessionSnapshot is an immutable copy of session state for presentation layers.
type SessionSnapshot struct {
	ID                  string         `json:"id"`
	Status              Status         `json:"status"`
	Intake              domain.Intake  `json:"intake"`
	MissingFields       []string       `json:"missingFields,omitempty"`
	QuestionBankID      string         `json:"questionBankId"`
	TotalQuestions      int            `json:"totalQuestions"`
	CurrentIndex        int            `json:"currentIndex"`
	Current             *QuestionView  `json:"current,omitempty"`
	Answers             map[int]string `json:"answers"`
	RemainingSeconds    int            `json:"remainingSeconds"`
	HintBudgetRemaining int            `json:"hintBudgetRemaining"`
	HintsConsumed       int            `json:"hintsConsumed"`
	HintInFlight        bool           `json:"hintInFlight"`
	Explanations        map[int]string `json:"explanations,omitempty"`
	FinalizeReason      FinalizeReason `json:"finalizeReason,omitempty"`
	Result              *domain.Result `json:"result,omitempty"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

// Session owns one applicant attempt. All mutations are serialised on mu; the
// timer goroutine is armed per run segment and identified by tickGen so a tick
// from a cancelled segment never mutates state.
type Session struct {
	id     string
	bankID string
	cfg    SessionConfig
	now    func() time.Time

	// onExpire runs on the timer goroutine after the session finalized on time expiry.
	onExpire func(*Session)

	mu            sync.Mutex
	status        Status
	intake        domain.Intake
	questions     []domain.Question
	answers       map[int]string
	current       int
	remaining     int
	hintBudget    int
	hintsConsumed int
	hintInFlight  bool
	explanations  map[int]string
	reason        FinalizeReason
	result        *domain.Result
	tickGen       uint64
	stopTick      context.CancelFunc
	subscribers   map[chan SessionSnapshot]struct{}
	updatedAt     time.Time

	deliverMu sync.Mutex
	stored    *domain.StoredResult
}

// NewSession builds a session in the Intake state over an already filtered question list.
func NewSession(id, bankID string, questions []domain.Question, intake domain.Intake, cfg SessionConfig) *Session {
	return newSessionWithClock(id, bankID, questions, intake, cfg, time.Now)
}

// NewSessionWithClock is for deterministic timestamps in tests.
func NewSessionWithClock(id, bankID string, questions []domain.Question, intake domain.Intake, cfg SessionConfig, now func() time.Time) *Session {
	return newSessionWithClock(id, bankID, questions, intake, cfg, now)
}

func newSessionWithClock(id, bankID string, questions []domain.Question, intake domain.Intake, cfg SessionConfig, now func() time.Time) *Session {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	return &Session{
		id:           id,
		bankID:       bankID,
		cfg:          cfg,
		now:          now,
		status:       StatusIntake,
		intake:       intake,
		questions:    questions,
		answers:      make(map[int]string),
		remaining:    int(cfg.TimeLimit / time.Second),
		hintBudget:   cfg.HintBudget,
		explanations: make(map[int]string),
		subscribers:  make(map[chan SessionSnapshot]struct{}),
		updatedAt:    now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Snapshot returns the current state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// UpdateIntake replaces the intake fields. Only allowed before the session starts.
func (s *Session) UpdateIntake(in domain.Intake) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusIntake {
		return s.snapshotLocked(), fmt.Errorf("%w: intake is closed once the session starts", domain.ErrValidation)
	}
	in.QuestionBankID = s.bankID
	s.intake = in
	return s.broadcastLocked(), nil
}

// Start moves Intake to InProgress when every mandatory intake field is bound.
// In any other case it changes nothing and reports no error.
func (s *Session) Start() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusIntake || len(s.cfg.Intake.Missing(s.intake)) > 0 {
		return s.snapshotLocked()
	}
	s.status = StatusInProgress
	s.armTickLocked()
	return s.broadcastLocked()
}

// SelectAnswer records letter for question index, replacing any previous answer.
func (s *Session) SelectAnswer(index int, letter string) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return s.snapshotLocked(), domain.ErrNotInProgress
	}
	if index < 0 || index >= len(s.questions) {
		return s.snapshotLocked(), fmt.Errorf("%w: question index %d out of range", domain.ErrInvalidAnswer, index)
	}
	letter = domain.NormalizeLetter(letter)
	if !s.questions[index].HasOption(letter) {
		return s.snapshotLocked(), fmt.Errorf("%w: option %q not offered", domain.ErrInvalidAnswer, letter)
	}
	s.answers[index] = letter
	return s.broadcastLocked(), nil
}

// Advance moves the cursor forward, stopping at the last question.
func (s *Session) Advance() (SessionSnapshot, error) {
	return s.move(1)
}

// Retreat moves the cursor back, stopping at the first question.
func (s *Session) Retreat() (SessionSnapshot, error) {
	return s.move(-1)
}

func (s *Session) move(delta int) (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return s.snapshotLocked(), domain.ErrNotInProgress
	}
	next := s.current + delta
	if next < 0 {
		next = 0
	}
	if last := len(s.questions) - 1; next > last {
		next = last
	}
	s.current = next
	return s.broadcastLocked(), nil
}

// Pause stops the clock. Pausing a paused session is a no-op.
func (s *Session) Pause() (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusPaused:
		return s.snapshotLocked(), nil
	case StatusInProgress:
		s.stopTickLocked()
		s.status = StatusPaused
		return s.broadcastLocked(), nil
	default:
		return s.snapshotLocked(), domain.ErrNotInProgress
	}
}

// Resume restarts the clock. Resuming a running session is a no-op.
func (s *Session) Resume() (SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusInProgress:
		return s.snapshotLocked(), nil
	case StatusPaused:
		s.status = StatusInProgress
		s.armTickLocked()
		return s.broadcastLocked(), nil
	default:
		return s.snapshotLocked(), domain.ErrNotInProgress
	}
}

// Submit finalizes the attempt and returns its Result. Repeated calls return the
// same Result; the bool reports whether this call performed the finalization.
func (s *Session) Submit() (domain.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case StatusFinalized:
		return *s.result, false, nil
	case StatusInProgress, StatusPaused:
		s.finalizeLocked(ReasonSubmitted)
		s.broadcastLocked()
		return *s.result, true, nil
	default:
		return domain.Result{}, false, domain.ErrNotInProgress
	}
}

// Result returns the scored result once finalized.
func (s *Session) Result() (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.Result{}, domain.ErrNotFinalized
	}
	return *s.result, nil
}

// Discard stops the clock and closes every subscription. The session must not be used afterwards.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// RetentionPolicy bounds how long an unattended session stays in memory.
type RetentionPolicy struct {
	// Idle applies to sessions waiting on the applicant: intake, paused, or
	// finalized without a stored record.
	Idle time.Duration
	// Delivered applies to finalized sessions whose result has been stored.
	Delivered time.Duration
}

// Evictable reports whether the policy allows dropping the session at now.
// Running sessions and sessions with subscribers are never evictable.
func (s *Session) Evictable(now time.Time, p RetentionPolicy) bool {
	s.mu.Lock()
	status, idle, watched := s.status, now.Sub(s.updatedAt), len(s.subscribers) > 0
	s.mu.Unlock()
	if watched {
		return false
	}
	switch status {
	case StatusIntake, StatusPaused:
		return p.Idle > 0 && idle >= p.Idle
	case StatusFinalized:
		// a delivery in progress holds deliverMu
		if !s.deliverMu.TryLock() {
			return false
		}
		delivered := s.stored != nil
		s.deliverMu.Unlock()
		if delivered {
			return p.Delivered > 0 && idle >= p.Delivered
		}
		return p.Idle > 0 && idle >= p.Idle
	default:
		return false
	}
}

// reserveLifeline charges one lifeline and marks a hint in flight.
func (s *Session) reserveLifeline() (domain.Question, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusInProgress {
		return domain.Question{}, 0, domain.ErrNotInProgress
	}
	if s.hintInFlight {
		return domain.Question{}, 0, domain.ErrHintInFlight
	}
	if s.hintBudget <= 0 {
		return domain.Question{}, 0, domain.ErrBudgetExhausted
	}
	s.hintBudget--
	s.hintsConsumed++
	s.hintInFlight = true
	s.broadcastLocked()
	return s.questions[s.current], s.current, nil
}

// releaseLifeline clears the in-flight flag, refunding the unit when no oracle call was made.
func (s *Session) releaseLifeline(refund bool) SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hintInFlight = false
	// a lifeline reserved before finalization has already been frozen into the result
	if refund && s.result == nil {
		s.hintBudget++
		s.hintsConsumed--
	}
	return s.broadcastLocked()
}

// reserveExplanation marks a free explanation in flight for an answered question.
func (s *Session) reserveExplanation(index int) (domain.Question, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusFinalized {
		return domain.Question{}, "", domain.ErrNotFinalized
	}
	if index < 0 || index >= len(s.questions) {
		return domain.Question{}, "", fmt.Errorf("%w: question index %d out of range", domain.ErrInvalidAnswer, index)
	}
	chosen, ok := s.answers[index]
	if !ok {
		return domain.Question{}, "", domain.ErrQuestionNotAnswered
	}
	if s.hintInFlight {
		return domain.Question{}, "", domain.ErrHintInFlight
	}
	s.hintInFlight = true
	return s.questions[index], chosen, nil
}

func (s *Session) releaseExplanation(index int, text string, record bool) SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hintInFlight = false
	if record {
		s.explanations[index] = text
	}
	return s.broadcastLocked()
}

// deliverOnce hands the Result to deliver until it succeeds once; later calls
// return the stored record without delivering again.
func (s *Session) deliverOnce(ctx context.Context, deliver func(context.Context, domain.Result) (domain.StoredResult, error)) (domain.StoredResult, error) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.stored != nil {
		return *s.stored, nil
	}
	result, err := s.Result()
	if err != nil {
		return domain.StoredResult{}, err
	}
	stored, err := deliver(ctx, result)
	if err != nil {
		return domain.StoredResult{}, err
	}
	s.stored = &stored
	return stored, nil
}

// StoredResult returns the persisted record, if delivery has succeeded.
func (s *Session) StoredResult() (domain.StoredResult, bool) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.stored == nil {
		return domain.StoredResult{}, false
	}
	return *s.stored, true
}

func (s *Session) subscribe() (<-chan SessionSnapshot, func()) {
	ch := make(chan SessionSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// armTickLocked starts a new timer segment, invalidating any earlier one.
func (s *Session) armTickLocked() {
	s.stopTickLocked()
	s.tickGen++
	ctx, cancel := context.WithCancel(context.Background())
	s.stopTick = cancel
	go s.runTicker(ctx, s.tickGen)
}

func (s *Session) stopTickLocked() {
	if s.stopTick != nil {
		s.stopTick()
		s.stopTick = nil
	}
}

func (s *Session) runTicker(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.handleTick(gen) {
				return
			}
		}
	}
}

// handleTick reports whether timer segment gen should keep running.
func (s *Session) handleTick(gen uint64) bool {
	switch s.tick(gen) {
	case tickStale:
		return false
	case tickExpired:
		if s.onExpire != nil {
			s.onExpire(s)
		}
		return false
	}
	return true
}

type tickOutcome int

const (
	tickContinue tickOutcome = iota
	tickStale
	tickExpired
)

// tick consumes one second for timer segment gen.
func (s *Session) tick(gen uint64) tickOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.tickGen || s.status != StatusInProgress {
		return tickStale
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.finalizeLocked(ReasonExpired)
		s.broadcastLocked()
		return tickExpired
	}
	s.broadcastLocked()
	return tickContinue
}

// finalizeLocked freezes answers and hint usage and scores them.
func (s *Session) finalizeLocked(reason FinalizeReason) {
	s.status = StatusFinalizing
	s.stopTickLocked()
	s.reason = reason

	answers := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	res := scoring.Score(s.cfg.Scoring, scoring.Input{
		Questions:      s.questions,
		Answers:        answers,
		HintsConsumed:  s.hintsConsumed,
		SelfDeclared:   s.intake.SelfDeclared,
		Applicant:      s.intake.Applicant,
		Branch:         s.intake.Branch,
		QuestionBankID: s.bankID,
		Timestamp:      s.now().UTC(),
	})
	s.result = &res
	s.status = StatusFinalized
}

func (s *Session) broadcastLocked() SessionSnapshot {
	s.updatedAt = s.now()
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// drop the oldest pending snapshot for slow subscribers
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

func (s *Session) snapshotLocked() SessionSnapshot {
	answers := make(map[int]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	snap := SessionSnapshot{
		ID:                  s.id,
		Status:              s.status,
		Intake:              s.intake,
		MissingFields:       s.cfg.Intake.Missing(s.intake),
		QuestionBankID:      s.bankID,
		TotalQuestions:      len(s.questions),
		CurrentIndex:        s.current,
		Answers:             answers,
		RemainingSeconds:    s.remaining,
		HintBudgetRemaining: s.hintBudget,
		HintsConsumed:       s.hintsConsumed,
		HintInFlight:        s.hintInFlight,
		FinalizeReason:      s.reason,
		UpdatedAt:           s.updatedAt,
	}
	if s.status != StatusIntake && len(s.questions) > 0 {
		q := s.questions[s.current]
		snap.Current = &QuestionView{Index: s.current, Text: q.Text, Category: q.Category, Options: append([]string(nil), q.Options...)}
	}
	if len(s.explanations) > 0 {
		snap.Explanations = make(map[int]string, len(s.explanations))
		for k, v := range s.explanations {
			snap.Explanations[k] = v
		}
	}
	if s.result != nil {
		res := *s.result
		snap.Result = &res
	}
	return snap
}
