package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"applicant-assessment-service/internal/delivery"
	"applicant-assessment-service/internal/domain"
	"applicant-assessment-service/internal/scoring"
)

// ResultDeliverer persists a result and schedules its notifications.
type ResultDeliverer interface {
	Deliver(ctx context.Context, result domain.Result) (domain.StoredResult, error)
}

// SubmitHandler accepts results computed by a client-side test runner.
// The numbers are checked against the scoring rules before anything is stored.
type SubmitHandler struct {
	deliverer ResultDeliverer
	intake    domain.IntakeProfile
	scoring   scoring.Config
	now       func() time.Time
}

func NewSubmitHandler(deliverer ResultDeliverer, intake domain.IntakeProfile, cfg scoring.Config) *SubmitHandler {
	return &SubmitHandler{deliverer: deliverer, intake: intake, scoring: cfg, now: time.Now}
}

type submitRequest struct {
	ApplicantName    string                  `json:"applicantName"`
	ApplicantEmail   string                  `json:"applicantEmail"`
	ApplicantPhone   string                  `json:"applicantPhone"`
	Branch           string                  `json:"branch"`
	SkillLevel       string                  `json:"skillLevel"`
	Score            *int                    `json:"score"`
	TotalQuestions   *int                    `json:"totalQuestions"`
	Percentage       *int                    `json:"percentage"`
	PerformanceLevel string                  `json:"performanceLevel"`
	SelfEvaluation   string                  `json:"selfEvaluation"`
	Assessment       string                  `json:"assessment"`
	DetailedResults  []domain.BreakdownEntry `json:"detailedResults"`
	HintsConsumed    int                     `json:"hintsConsumed"`
}

type submitResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    domain.StoredResult `json:"data"`
}

func (h *SubmitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	intake := domain.Intake{
		Applicant: domain.Applicant{
			Name:  strings.TrimSpace(req.ApplicantName),
			Email: strings.TrimSpace(req.ApplicantEmail),
			Phone: strings.TrimSpace(req.ApplicantPhone),
		},
		Branch: strings.TrimSpace(req.Branch),
	}
	if lvl, err := domain.ParseSkillLevel(req.SkillLevel); err == nil {
		intake.SelfDeclared = lvl
	}
	missing := h.intake.Missing(intake)
	if req.Score == nil || req.TotalQuestions == nil || req.Percentage == nil || strings.TrimSpace(req.PerformanceLevel) == "" {
		missing = append(missing, "score")
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Missing required fields", Missing: missing})
		return
	}
	if err := h.intake.Validate(intake); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid applicant details", Details: err.Error()})
		return
	}

	result, err := h.buildResult(intake, req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Inconsistent test results", Details: err.Error()})
		return
	}

	stored, err := h.deliverer.Deliver(r.Context(), result)
	if err != nil {
		if !errors.Is(err, delivery.ErrPersistFailed) {
			err = fmt.Errorf("%w: %v", delivery.ErrPersistFailed, err)
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to save test results", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Success: true,
		Message: "Test results submitted successfully",
		Data:    stored,
	})
}

func (h *SubmitHandler) buildResult(intake domain.Intake, req submitRequest) (domain.Result, error) {
	score, total, pct := *req.Score, *req.TotalQuestions, *req.Percentage
	switch {
	case total <= 0:
		return domain.Result{}, fmt.Errorf("%w: totalQuestions must be positive", domain.ErrValidation)
	case score < 0 || score > total:
		return domain.Result{}, fmt.Errorf("%w: score %d outside [0,%d]", domain.ErrValidation, score, total)
	case req.HintsConsumed < 0:
		return domain.Result{}, fmt.Errorf("%w: hintsConsumed must not be negative", domain.ErrValidation)
	}
	if want := scoring.Percentage(score, total); pct != want {
		return domain.Result{}, fmt.Errorf("%w: percentage %d does not match %d/%d (%d)", domain.ErrValidation, pct, score, total, want)
	}
	measured, err := domain.ParseSkillLevel(req.PerformanceLevel)
	if err != nil {
		return domain.Result{}, err
	}
	if want := h.scoring.Ladder.Classify(pct); measured != want {
		return domain.Result{}, fmt.Errorf("%w: performanceLevel %s but %d%% classifies as %s", domain.ErrValidation, measured, pct, want)
	}

	raw := score + req.HintsConsumed
	if len(req.DetailedResults) > 0 {
		if len(req.DetailedResults) != total {
			return domain.Result{}, fmt.Errorf("%w: %d detailed results for %d questions", domain.ErrValidation, len(req.DetailedResults), total)
		}
		raw = 0
		for _, entry := range req.DetailedResults {
			if entry.IsCorrect {
				raw++
			}
		}
		if adjusted := max(raw-req.HintsConsumed, 0); adjusted != score {
			return domain.Result{}, fmt.Errorf("%w: score %d does not match %d correct answers less %d lifelines", domain.ErrValidation, score, raw, req.HintsConsumed)
		}
	}

	verdict := domain.CompareLevels(intake.SelfDeclared, measured)
	if req.SelfEvaluation != "" && !strings.EqualFold(req.SelfEvaluation, string(verdict)) {
		return domain.Result{}, fmt.Errorf("%w: selfEvaluation %q but levels imply %s", domain.ErrValidation, req.SelfEvaluation, verdict)
	}

	return domain.Result{
		Applicant:         intake.Applicant,
		Branch:            intake.Branch,
		RawCorrectCount:   raw,
		TotalQuestions:    total,
		HintPenalty:       raw - score,
		AdjustedScore:     score,
		Percentage:        pct,
		MeasuredLevel:     measured,
		SelfDeclaredLevel: intake.SelfDeclared,
		Verdict:           verdict,
		Passed:            pct >= h.scoring.PassThreshold,
		Breakdown:         req.DetailedResults,
		HintsConsumed:     req.HintsConsumed,
		Timestamp:         h.now().UTC(),
	}, nil
}
