package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"applicant-assessment-service/internal/app"
	"applicant-assessment-service/internal/domain"
)

// SessionHandler exposes the assessment engine over REST.
type SessionHandler struct {
	service *app.AssessmentService
}

func NewSessionHandler(service *app.AssessmentService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Routes mounts under /api/sessions.
func (h *SessionHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.discard)
		r.Put("/intake", h.updateIntake)
		r.Post("/start", h.command(h.service.Start))
		r.Post("/advance", h.command(h.service.Advance))
		r.Post("/retreat", h.command(h.service.Retreat))
		r.Post("/pause", h.command(h.service.Pause))
		r.Post("/resume", h.command(h.service.Resume))
		r.Put("/answers/{index}", h.answer)
		r.Post("/lifeline", h.lifeline)
		r.Post("/explanations/{index}", h.explain)
		r.Post("/submit", h.submit)
		r.Get("/certificate", h.certificate)
	})
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var intake domain.Intake
	if err := decodeJSON(w, r, &intake); err != nil {
		writeError(w, http.StatusBadRequest, "invalid intake payload")
		return
	}
	snap, err := h.service.CreateSession(r.Context(), intake)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *SessionHandler) discard(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Discard(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) updateIntake(w http.ResponseWriter, r *http.Request) {
	var intake domain.Intake
	if err := decodeJSON(w, r, &intake); err != nil {
		writeError(w, http.StatusBadRequest, "invalid intake payload")
		return
	}
	snap, err := h.service.UpdateIntake(r.Context(), chi.URLParam(r, "sessionID"), intake)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type sessionCommand func(ctx context.Context, id string) (app.SessionSnapshot, error)

func (h *SessionHandler) command(fn sessionCommand) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := fn(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

type answerRequest struct {
	Letter string `json:"letter"`
}

func (h *SessionHandler) answer(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer payload")
		return
	}
	snap, err := h.service.Answer(r.Context(), chi.URLParam(r, "sessionID"), index, req.Letter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type lifelineRequest struct {
	Ask string `json:"ask"`
}

func (h *SessionHandler) lifeline(w http.ResponseWriter, r *http.Request) {
	var req lifelineRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid lifeline payload")
			return
		}
	}
	reply, err := h.service.Lifeline(r.Context(), chi.URLParam(r, "sessionID"), req.Ask)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *SessionHandler) explain(w http.ResponseWriter, r *http.Request) {
	index, err := indexParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	reply, err := h.service.Explain(r.Context(), chi.URLParam(r, "sessionID"), index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type notSavedBody struct {
	Error   string        `json:"error"`
	Details string        `json:"details"`
	Result  domain.Result `json:"result"`
}

func (h *SessionHandler) submit(w http.ResponseWriter, r *http.Request) {
	outcome, err := h.service.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, domain.ErrResultNotSaved) {
			writeJSON(w, http.StatusInternalServerError, notSavedBody{
				Error:   domain.ErrResultNotSaved.Error(),
				Details: err.Error(),
				Result:  outcome.Result,
			})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *SessionHandler) certificate(w http.ResponseWriter, r *http.Request) {
	cert, err := h.service.Certificate(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", cert.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.Filename))
	w.Header().Set("X-Certificate-Serial", cert.Serial)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(cert.Body); err != nil {
		log.Printf("http: write certificate: %v", err)
	}
}

func indexParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: question index %q", domain.ErrInvalidAnswer, raw)
	}
	return index, nil
}
