package domain

import "errors"

var (
	// ErrValidation marks malformed or incomplete intake and submission payloads.
	ErrValidation = errors.New("validation failed")
	// ErrSessionNotFound is returned when a session id is unknown or was discarded.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrQuestionBankNotFound indicates the question bank could not be loaded.
	ErrQuestionBankNotFound = errors.New("question bank not found")
	// ErrEmptyQuestionBank indicates no eligible question survived filtering.
	ErrEmptyQuestionBank = errors.New("question bank has no eligible questions")
	// ErrNotInProgress rejects answer capture, navigation and lifelines outside InProgress.
	ErrNotInProgress = errors.New("session is not in progress")
	// ErrNotFinalized rejects operations that need a scored result.
	ErrNotFinalized = errors.New("session is not finalized")
	// ErrInvalidAnswer rejects an out-of-range question index or unknown option letter.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrQuestionNotAnswered rejects explanations for questions the applicant skipped.
	ErrQuestionNotAnswered = errors.New("question was not answered")
	// ErrBudgetExhausted is returned once every lifeline has been spent.
	ErrBudgetExhausted = errors.New("lifeline budget exhausted")
	// ErrHintInFlight rejects a second hint request while one is outstanding.
	ErrHintInFlight = errors.New("hint request already in flight")
	// ErrResultNotSaved tells the applicant to retry submission.
	ErrResultNotSaved = errors.New("your result was not saved, retry submission")
	// ErrNotEligible is returned when a certificate is requested for a failing result.
	ErrNotEligible = errors.New("certificate is only issued for passing results")
	// ErrRecordNotFound is returned by result stores for unknown record ids.
	ErrRecordNotFound = errors.New("result record not found")
)
