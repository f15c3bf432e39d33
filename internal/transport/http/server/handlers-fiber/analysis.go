package handlers_fiber

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aneeshsharma72067/reposage/internal/entities"

	"github.com/gofiber/fiber/v2"
)

type findingResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Severity    string          `json:"severity"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
}

type analysisRunResponse struct {
	ID           string            `json:"id"`
	EventID      string            `json:"event_id"`
	Status       string            `json:"status"`
	StartedAt    *time.Time        `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at"`
	ErrorMessage *string           `json:"error_message"`
	CreatedAt    time.Time         `json:"created_at"`
	Findings     []findingResponse `json:"findings"`
}

func toAnalysisRunResponse(r entities.AnalysisRunReport) analysisRunResponse {
	findings := make([]findingResponse, 0, len(r.Findings))
	for _, f := range r.Findings {
		findings = append(findings, findingResponse{
			ID:          f.ID,
			Type:        string(f.Type),
			Severity:    string(f.Severity),
			Title:       f.Title,
			Description: f.Description,
			Metadata:    f.Metadata,
			CreatedAt:   f.CreatedAt,
		})
	}
	return analysisRunResponse{
		ID:           r.Run.ID,
		EventID:      r.Run.EventID,
		Status:       string(r.Run.Status),
		StartedAt:    r.Run.StartedAt,
		CompletedAt:  r.Run.CompletedAt,
		ErrorMessage: r.Run.ErrorMessage,
		CreatedAt:    r.Run.CreatedAt,
		Findings:     findings,
	}
}

// GetAnalysisRun returns a run with its findings.
func (h *Handler) GetAnalysisRun(c *fiber.Ctx) error {
	report, err := h.uc.AnalysisRun(c.UserContext(), c.Params("runId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toAnalysisRunResponse(*report))
}
