// Package analyzer produces the finding recorded when an analysis run completes.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aneeshsharma72067/reposage/internal/entities"
)

// Analyzer inspects the event behind a run and returns exactly one finding.
type Analyzer interface {
	Analyze(ctx context.Context, rc *entities.RunContext) (entities.FindingDraft, error)
}

// Baseline records which commit was analysed. It never raises severity above INFO,
// so repositories stay HEALTHY until a real analyzer is plugged in.
type Baseline struct{}

// NewBaseline returns the default analyzer.
func NewBaseline() *Baseline { return &Baseline{} }

// Analyze implements Analyzer.
func (Baseline) Analyze(ctx context.Context, rc *entities.RunContext) (entities.FindingDraft, error) {
	if err := ctx.Err(); err != nil {
		return entities.FindingDraft{}, err
	}
	if rc == nil {
		return entities.FindingDraft{}, fmt.Errorf("%w: nil run context", entities.ErrInvalidArgument)
	}

	var push entities.PushPayload
	if len(rc.Event.Payload) > 0 {
		if err := json.Unmarshal(rc.Event.Payload, &push); err != nil {
			return entities.FindingDraft{}, fmt.Errorf("decode event payload: %w", err)
		}
	}

	ref := deref(push.Ref)
	sha := deref(push.After)
	if sha == "" && rc.Event.ExternalEventID != nil {
		sha = *rc.Event.ExternalEventID
	}
	if sha == "" {
		return entities.FindingDraft{}, fmt.Errorf("%w: event %s carries no head commit", entities.ErrInvalidArgument, rc.Event.ID)
	}

	branch := strings.TrimPrefix(ref, "refs/heads/")
	desc := fmt.Sprintf("Analysed %s at %s", rc.FullName, shortSHA(sha))
	if branch != "" {
		desc += " on " + branch
	}
	if p := deref(push.PusherName); p != "" {
		desc += ", pushed by " + p
	}

	return entities.FindingDraft{
		Type:        entities.FindingCommitSummary,
		Severity:    entities.SeverityInfo,
		Title:       "Commit analysed",
		Description: desc + ".",
		Metadata: map[string]any{
			"source":  "baseline",
			"runId":   rc.Run.ID,
			"ref":     ref,
			"headSha": sha,
		},
	}, nil
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
