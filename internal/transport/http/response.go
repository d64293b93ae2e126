package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"applicant-assessment-service/internal/domain"
)

type errorBody struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeDomainError maps engine errors onto status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("http: internal error: %v", err)
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrQuestionBankNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAnswer):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEmptyQuestionBank):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotInProgress),
		errors.Is(err, domain.ErrNotFinalized),
		errors.Is(err, domain.ErrQuestionNotAnswered),
		errors.Is(err, domain.ErrBudgetExhausted),
		errors.Is(err, domain.ErrNotEligible):
		return http.StatusConflict
	case errors.Is(err, domain.ErrHintInFlight):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}
