package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/hint"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis-backed, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
	// DeleteIf removes every session for which evict returns true and returns them.
	DeleteIf(evict func(*Session) bool) []*Session
}

// QuestionBankRepository loads question banks (from cache/backing store).
type QuestionBankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// Deliverer persists a result and notifies stakeholders.
type Deliverer interface {
	Deliver(ctx context.Context, result domain.Result) (domain.StoredResult, error)
}

// HintGateway answers lifelines and explanations. Errors still carry display text.
type HintGateway interface {
	Lifeline(ctx context.Context, ask string, q domain.Question) (string, error)
	Explain(ctx context.Context, q domain.Question, chosen string) (string, error)
}

// CertificateIssuer renders the completion artifact for a passing result.
type CertificateIssuer interface {
	Issue(result domain.Result, recordID string) (domain.Certificate, error)
}

// ServiceConfig tunes the assessment use cases.
type ServiceConfig struct {
	Session        SessionConfig
	DefaultBankID  string
	ExpiryDelivery time.Duration
	Retention      RetentionPolicy
}

// HintStatus tells the caller how a hint request resolved.
type HintStatus string

const (
	HintOK          HintStatus = "ok"
	HintUnavailable HintStatus = "unavailable"
	HintFailed      HintStatus = "failed"
)

// HintReply carries display text and the session state after the request.
type HintReply struct {
	Text     string          `json:"text"`
	Status   HintStatus      `json:"status"`
	Session  SessionSnapshot `json:"session"`
	Question int             `json:"questionIndex"`
}

// SubmitOutcome is the result of a submission. Record is nil when delivery failed.
type SubmitOutcome struct {
	Result domain.Result        `json:"result"`
	Record *domain.StoredResult `json:"record,omitempty"`
}

// AssessmentService contains the applicant-facing use cases.
type AssessmentService struct {
	sessions     SessionRepository
	banks        QuestionBankRepository
	hints        HintGateway
	deliverer    Deliverer
	certificates CertificateIssuer
	cfg          ServiceConfig
	now          func() time.Time
}

func NewAssessmentService(sessions SessionRepository, banks QuestionBankRepository, hints HintGateway, deliverer Deliverer, certificates CertificateIssuer, cfg ServiceConfig) *AssessmentService {
	if cfg.ExpiryDelivery <= 0 {
		cfg.ExpiryDelivery = 30 * time.Second
	}
	return &AssessmentService{
		sessions:     sessions,
		banks:        banks,
		hints:        hints,
		deliverer:    deliverer,
		certificates: certificates,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CreateSession loads the question bank, fixes the eligible question list and
// opens a session in the Intake state.
func (s *AssessmentService) CreateSession(ctx context.Context, intake domain.Intake) (SessionSnapshot, error) {
	intake, err := s.normalizeIntake(intake)
	if err != nil {
		return SessionSnapshot{}, err
	}

	bankID := strings.TrimSpace(intake.QuestionBankID)
	if bankID == "" {
		bankID = s.cfg.DefaultBankID
	}
	bank, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		return SessionSnapshot{}, err
	}
	questions := bank.EligibleQuestions()
	if len(questions) == 0 {
		return SessionSnapshot{}, domain.ErrEmptyQuestionBank
	}
	intake.QuestionBankID = bankID

	session := newSessionWithClock(uuid.NewString(), bankID, questions, intake, s.cfg.Session, s.now)
	session.onExpire = s.deliverExpired
	s.sessions.Save(session)
	log.Printf("assessment: session %s opened on bank %s with %d questions", session.id, bankID, len(questions))
	return session.Snapshot(), nil
}

// UpdateIntake rebinds intake fields before the session starts.
func (s *AssessmentService) UpdateIntake(_ context.Context, id string, intake domain.Intake) (SessionSnapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	intake, err = s.normalizeIntake(intake)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.UpdateIntake(intake)
}

func (s *AssessmentService) normalizeIntake(intake domain.Intake) (domain.Intake, error) {
	if intake.SelfDeclared != "" && !intake.SelfDeclared.Valid() {
		level, err := domain.ParseSkillLevel(string(intake.SelfDeclared))
		if err != nil {
			return domain.Intake{}, err
		}
		intake.SelfDeclared = level
	}
	if err := s.cfg.Session.Intake.Validate(intake); err != nil {
		return domain.Intake{}, err
	}
	return intake, nil
}

// Start begins the timed attempt if the intake is complete.
func (s *AssessmentService) Start(_ context.Context, id string) (SessionSnapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Start(), nil
}

// Answer records the applicant's choice for a question.
func (s *AssessmentService) Answer(_ context.Context, id string, index int, letter string) (SessionSnapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.SelectAnswer(index, letter)
}

func (s *AssessmentService) Advance(_ context.Context, id string) (SessionSnapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Advance()
}

func (s *AssessmentService) Retreat(_ context.Context, id string) (SessionSnapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Retreat()
}

func (s *AssessmentService) Pause(_ context.Context, id string) (SessionSnapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Pause()
}

func (s *AssessmentService) Resume(_ context.Context, id string) (SessionSnapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Resume()
}

// Lifeline spends one lifeline on the current question. The unit is charged
// before the oracle call and refunded only when no oracle is configured.
func (s *AssessmentService) Lifeline(ctx context.Context, id, ask string) (HintReply, error) {
	session, err := s.session(id)
	if err != nil {
		return HintReply{}, err
	}
	question, index, err := session.reserveLifeline()
	if err != nil {
		return HintReply{}, err
	}

	text, err := s.hints.Lifeline(ctx, ask, question)
	status := hintStatus(err)
	snap := session.releaseLifeline(status == HintUnavailable)
	return HintReply{Text: text, Status: status, Session: snap, Question: index}, nil
}

// Explain asks why the correct answer is correct for an answered question.
// Explanations are free and available once the session is finalized.
func (s *AssessmentService) Explain(ctx context.Context, id string, index int) (HintReply, error) {
	session, err := s.session(id)
	if err != nil {
		return HintReply{}, err
	}
	question, chosen, err := session.reserveExplanation(index)
	if err != nil {
		return HintReply{}, err
	}

	text, err := s.hints.Explain(ctx, question, chosen)
	status := hintStatus(err)
	snap := session.releaseExplanation(index, text, status == HintOK)
	return HintReply{Text: text, Status: status, Session: snap, Question: index}, nil
}

func hintStatus(err error) HintStatus {
	switch {
	case err == nil:
		return HintOK
	case errors.Is(err, hint.ErrUnavailable):
		return HintUnavailable
	default:
		return HintFailed
	}
}

// Submit finalizes the attempt and delivers the result. It is idempotent: the
// same Result is returned every time, and a submission whose delivery failed
// retries delivery of that Result.
func (s *AssessmentService) Submit(ctx context.Context, id string) (SubmitOutcome, error) {
	session, err := s.session(id)
	if err != nil {
		return SubmitOutcome{}, err
	}
	result, first, err := session.Submit()
	if err != nil {
		return SubmitOutcome{}, err
	}
	if first {
		log.Printf("assessment: session %s submitted: %d%% (%s)", id, result.Percentage, result.MeasuredLevel)
	}

	stored, err := session.deliverOnce(ctx, s.deliverer.Deliver)
	if err != nil {
		log.Printf("assessment: session %s delivery failed: %v", id, err)
		return SubmitOutcome{Result: result}, fmt.Errorf("%w: %v", domain.ErrResultNotSaved, err)
	}
	return SubmitOutcome{Result: result, Record: &stored}, nil
}

// deliverExpired runs on the session timer after time ran out.
func (s *AssessmentService) deliverExpired(session *Session) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ExpiryDelivery)
	defer cancel()

	result, err := session.Result()
	if err != nil {
		return
	}
	log.Printf("assessment: session %s expired: %d%% (%s)", session.id, result.Percentage, result.MeasuredLevel)
	if _, err := session.deliverOnce(ctx, s.deliverer.Deliver); err != nil {
		log.Printf("assessment: session %s delivery after expiry failed: %v", session.id, err)
	}
}

// Snapshot returns the current session state.
func (s *AssessmentService) Snapshot(_ context.Context, id string) (SessionSnapshot, error) {
	session, err := s.session(id)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return session.Snapshot(), nil
}

// Certificate renders the completion certificate for a passing, finalized session.
func (s *AssessmentService) Certificate(_ context.Context, id string) (domain.Certificate, error) {
	session, err := s.session(id)
	if err != nil {
		return domain.Certificate{}, err
	}
	result, err := session.Result()
	if err != nil {
		return domain.Certificate{}, err
	}
	if !result.Passed {
		return domain.Certificate{}, domain.ErrNotEligible
	}
	var recordID string
	if stored, ok := session.StoredResult(); ok {
		recordID = stored.RecordID
	}
	return s.certificates.Issue(result, recordID)
}

// Discard drops the session without persisting anything.
func (s *AssessmentService) Discard(_ context.Context, id string) error {
	session, err := s.session(id)
	if err != nil {
		return err
	}
	session.Discard()
	s.sessions.Delete(id)
	return nil
}

// Evict drops the sessions the retention policy no longer covers and reports how many went.
func (s *AssessmentService) Evict(_ context.Context) int {
	now := s.now()
	evicted := s.sessions.DeleteIf(func(session *Session) bool {
		return session.Evictable(now, s.cfg.Retention)
	})
	for _, session := range evicted {
		session.Discard()
		log.Printf("assessment: session %s evicted", session.id)
	}
	return len(evicted)
}

// RunEviction calls Evict on every interval until ctx is done.
func (s *AssessmentService) RunEviction(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict(ctx)
		}
	}
}

// Subscribe returns a channel that receives session snapshots.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AssessmentService) Subscribe(_ context.Context, id string) (<-chan SessionSnapshot, func(), error) {
	session, err := s.session(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

func (s *AssessmentService) session(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
