// Package domain contains application services orchestrating the analysis lifecycle.
package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/aneeshsharma72067/reposage/internal/entities"
	"github.com/aneeshsharma72067/reposage/internal/metrics"
)

// TriggerAnalysisFromPush creates a RUNNING run for a push on a tracked repository and publishes its job.
// A publish failure is logged only: the run is committed and stays RUNNING.
func (u *Usecase) TriggerAnalysisFromPush(ctx context.Context, trigger entities.PushTrigger) (*entities.TriggeredRun, error) {
	if trigger.ExternalRepoID == 0 {
		return nil, fmt.Errorf("%w: repository id is required", entities.ErrInvalidArgument)
	}

	repo, err := u.repo.FindRepositoryByExternalID(ctx, trigger.ExternalRepoID)
	if err != nil {
		return nil, err
	}

	run, err := u.repo.CreateAnalysisRun(ctx, repo.ID, trigger)
	metrics.AnalysisTransitions.WithLabelValues(string(entities.AnalysisRunning), metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	run.RepositoryName = repo.FullName

	job := entities.AnalysisJob{
		AnalysisRunID: run.AnalysisRunID,
		EventID:       run.EventID,
		RepositoryID:  run.RepositoryID,
	}
	if _, err := u.dispatcher.Publish(ctx, job); err != nil {
		u.log.Errorw("analysis job publish failed, run left RUNNING",
			"error", err,
			"analysis_run_id", run.AnalysisRunID,
			"event_id", run.EventID,
			"repository_id", run.RepositoryID,
		)
	}
	return run, nil
}

// ProcessAnalysisJob analyses the run and moves it to COMPLETED. On any failure it falls back to FAILED.
// The returned error wraps ErrRunFailed when the fallback succeeded, and the fallback error when it did not.
func (u *Usecase) ProcessAnalysisJob(ctx context.Context, job entities.AnalysisJob) error {
	if job.AnalysisRunID == "" {
		return fmt.Errorf("%w: analysisRunId is required", entities.ErrInvalidArgument)
	}
	log := u.log.With("analysis_run_id", job.AnalysisRunID, "event_id", job.EventID, "repository_id", job.RepositoryID)

	rc, err := u.repo.LoadRunContext(ctx, job.AnalysisRunID)
	if err != nil {
		log.Errorw("load run context failed", "error", err)
		return err
	}

	health, err := u.complete(ctx, rc)
	metrics.AnalysisTransitions.WithLabelValues(string(entities.AnalysisCompleted), metrics.Outcome(err)).Inc()
	if err == nil {
		log.Infow("analysis run completed", "repository_status", health)
		return nil
	}
	log.Warnw("analysis completion failed, marking run failed", "error", err)

	failErr := u.repo.FailAnalysisRun(ctx, job.AnalysisRunID, err.Error())
	metrics.AnalysisTransitions.WithLabelValues(string(entities.AnalysisFailed), metrics.Outcome(failErr)).Inc()
	if failErr != nil {
		log.Errorw("fallback FAILED transition failed", "error", failErr, "cause", err)
		return fmt.Errorf("complete run: %v; fail run: %w", err, failErr)
	}
	return fmt.Errorf("%w: %v", entities.ErrRunFailed, err)
}

func (u *Usecase) complete(ctx context.Context, rc *entities.RunContext) (entities.RepositoryStatus, error) {
	draft, err := u.analyzer.Analyze(ctx, rc)
	if err != nil {
		return "", fmt.Errorf("analyze: %w", err)
	}
	return u.repo.CompleteAnalysisRun(ctx, rc.Run.ID, draft)
}

// AnalysisRun returns a run with its findings.
func (u *Usecase) AnalysisRun(ctx context.Context, runID string) (*entities.AnalysisRunReport, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if runID == "" {
		return nil, fmt.Errorf("%w: run id is required", entities.ErrInvalidArgument)
	}
	run, err := u.repo.GetAnalysisRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	findings, err := u.repo.ListFindingsForRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &entities.AnalysisRunReport{Run: *run, Findings: findings}, nil
}

// IsTerminalJobError reports whether retrying the job cannot change the outcome.
func IsTerminalJobError(err error) bool {
	return errors.Is(err, entities.ErrRunFailed) ||
		errors.Is(err, entities.ErrInvalidLifecycleTransition) ||
		errors.Is(err, entities.ErrRunNotFound) ||
		errors.Is(err, entities.ErrInvalidArgument)
}
