package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"applicant-assessment-service/internal/hint"
)

// Asker answers free-form study questions.
type Asker interface {
	Ask(ctx context.Context, ask, currentQuestion string) (string, error)
}

// HelpHandler serves POST /api/ai-help.
type HelpHandler struct {
	asker Asker
}

func NewHelpHandler(asker Asker) *HelpHandler {
	return &HelpHandler{asker: asker}
}

type helpRequest struct {
	Question        string `json:"question"`
	CurrentQuestion string `json:"currentQuestion"`
}

type helpResponse struct {
	Answer string `json:"answer"`
}

func (h *HelpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req helpRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "No question provided")
		return
	}

	answer, err := h.asker.Ask(r.Context(), req.Question, req.CurrentQuestion)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, helpResponse{Answer: answer})
	case errors.Is(err, hint.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, answer)
	default:
		writeError(w, http.StatusBadGateway, answer)
	}
}
