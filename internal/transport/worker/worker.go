// Package worker delivers queued analysis jobs to the usecase layer.
package worker

import (
	"context"
	"fmt"
	"os"

	"github.com/aneeshsharma72067/reposage/internal/entities"
	"github.com/aneeshsharma72067/reposage/internal/queue"
	"github.com/aneeshsharma72067/reposage/internal/usecase"

	"go.uber.org/zap"
)

// Consumer pulls jobs for a named consumer until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, consumer string, handler queue.Handler) error
}

// Worker runs analysis jobs as a single queue consumer.
type Worker struct {
	log      *zap.SugaredLogger
	uc       usecase.AnalysisUsecaseInterface
	consumer Consumer
	name     string
}

// New builds a Worker named after the host and process id.
func New(log *zap.SugaredLogger, uc usecase.AnalysisUsecaseInterface, consumer Consumer) *Worker {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return &Worker{
		log:      log.Named("worker"),
		uc:       uc,
		consumer: consumer,
		name:     fmt.Sprintf("%s-%d", host, os.Getpid()),
	}
}

// Name is the consumer name used in the group.
func (w *Worker) Name() string { return w.name }

// Run blocks until ctx is cancelled and in-flight jobs have finished.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Infow("worker started", "consumer", w.name)
	err := w.consumer.Consume(ctx, w.name, w.Handle)
	if err != nil {
		w.log.Errorw("worker stopped with error", "consumer", w.name, "error", err)
		return err
	}
	w.log.Infow("worker shutdown completed", "consumer", w.name)
	return nil
}

// Handle processes one job. Errors redelivery cannot fix are marked permanent.
func (w *Worker) Handle(ctx context.Context, job entities.AnalysisJob) error {
	log := w.log.With("job_name", queue.JobName, "analysis_run_id", job.AnalysisRunID)
	log.Infow("analysis job received")

	err := w.uc.ProcessAnalysisJob(ctx, job)
	switch {
	case err == nil:
		log.Infow("analysis job completed")
		return nil
	case usecase.IsTerminalJobError(err):
		log.Errorw("analysis job failed", "error", err)
		return queue.Permanent(err)
	default:
		log.Warnw("analysis job failed, will be retried", "error", err)
		return err
	}
}
