// Package queue carries analysis jobs over a Redis stream with a consumer group.
// Delivery is at-least-once: an entry stays pending until its handler succeeds,
// is redelivered once idle past the visibility timeout, and is parked on the
// dead stream after max attempts or a permanent failure.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aneeshsharma72067/reposage/config"
	"github.com/aneeshsharma72067/reposage/internal/entities"
	"github.com/aneeshsharma72067/reposage/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobName tags every analysis entry on the stream.
const JobName = "process-analysis"

const readErrorPause = time.Second

// Handler processes one job. A nil return acknowledges it; an error wrapped with
// Permanent dead-letters it; any other error leaves it pending for redelivery.
type Handler func(ctx context.Context, job entities.AnalysisJob) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Queue is both the dispatcher and the consumer side of the analysis stream.
type Queue struct {
	client redis.UniversalClient
	cfg    config.QueueConfig
	stream string
	dead   string
	log    *zap.SugaredLogger
}

// New binds a Queue to an already constructed redis client; the caller owns the client.
func New(client redis.UniversalClient, cfg config.QueueConfig, log *zap.SugaredLogger) *Queue {
	stream := cfg.Prefix + cfg.Name
	return &Queue{
		client: client,
		cfg:    cfg,
		stream: stream,
		dead:   stream + ":dead",
		log:    log.Named("queue"),
	}
}

// Stream returns the stream key.
func (q *Queue) Stream() string { return q.stream }

// DeadStream returns the dead-letter stream key.
func (q *Queue) DeadStream() string { return q.dead }

// Publish appends a job, retrying transient redis errors for up to publish_retry_max_elapsed.
func (q *Queue) Publish(ctx context.Context, job entities.AnalysisJob) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = q.cfg.PublishRetryMaxElapsed

	var id string
	op := func() error {
		id, err = q.client.XAdd(ctx, &redis.XAddArgs{
			Stream: q.stream,
			Values: map[string]interface{}{
				"name": JobName,
				"data": string(data),
			},
		}).Result()
		return err
	}
	notify := func(err error, wait time.Duration) {
		q.log.Warnw("publish retry", "error", err, "wait", wait, "analysis_run_id", job.AnalysisRunID)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return "", fmt.Errorf("publish %s: %w", JobName, err)
	}
	return id, nil
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Consume runs handler for every entry until ctx is cancelled, at most queue.concurrency at a time.
// In-flight jobs are allowed to finish before Consume returns.
func (q *Queue) Consume(ctx context.Context, consumer string, handler Handler) error {
	if err := q.EnsureGroup(ctx); err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(q.cfg.Concurrency)
	dispatch := func(msgs []redis.XMessage) {
		for _, msg := range msgs {
			msg := msg
			g.Go(func() error {
				q.handle(ctx, msg, handler)
				return nil
			})
		}
	}

	q.log.Infow("consumer started", "stream", q.stream, "group", q.cfg.Group, "consumer", consumer)
	for ctx.Err() == nil {
		reclaimed, err := q.reclaim(ctx, consumer)
		if err != nil && ctx.Err() == nil {
			q.log.Warnw("reclaim failed", "error", err)
		}
		dispatch(reclaimed)

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.cfg.Group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    int64(q.cfg.Concurrency),
			Block:    q.cfg.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			q.log.Errorw("read group failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(readErrorPause):
			}
			continue
		}
		for _, s := range streams {
			dispatch(s.Messages)
		}
	}

	_ = g.Wait()
	q.log.Infow("consumer stopped", "consumer", consumer)
	return nil
}

func (q *Queue) handle(ctx context.Context, msg redis.XMessage, handler Handler) {
	// jobs finish even when shutdown has begun
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	job, err := decode(msg)
	if err != nil {
		q.log.Errorw("undecodable entry", "error", err, "entry_id", msg.ID)
		q.deadLetter(jobCtx, msg, err.Error())
		return
	}

	err = handler(jobCtx, job)
	metrics.QueueJobDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		if ackErr := q.client.XAck(jobCtx, q.stream, q.cfg.Group, msg.ID).Err(); ackErr != nil {
			q.log.Errorw("ack failed", "error", ackErr, "entry_id", msg.ID, "analysis_run_id", job.AnalysisRunID)
		}
		metrics.QueueJobs.WithLabelValues("completed").Inc()
	case IsPermanent(err):
		q.log.Errorw("job failed permanently", "error", err, "entry_id", msg.ID, "analysis_run_id", job.AnalysisRunID)
		q.deadLetter(jobCtx, msg, err.Error())
	default:
		q.log.Warnw("job failed, left for redelivery", "error", err, "entry_id", msg.ID, "analysis_run_id", job.AnalysisRunID)
		metrics.QueueJobs.WithLabelValues("failed").Inc()
	}
}

// reclaim claims entries idle past the visibility timeout and dead-letters those out of attempts.
func (q *Queue) reclaim(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.stream,
		Group:  q.cfg.Group,
		Idle:   q.cfg.VisibilityTimeout,
		Start:  "-",
		End:    "+",
		Count:  int64(q.cfg.Concurrency),
	}).Result()
	if err != nil || len(pending) == 0 {
		return nil, err
	}

	deliveries := make(map[string]int64, len(pending))
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		deliveries[p.ID] = p.RetryCount
		ids = append(ids, p.ID)
	}

	claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   q.stream,
		Group:    q.cfg.Group,
		Consumer: consumer,
		MinIdle:  q.cfg.VisibilityTimeout,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}

	retry := make([]redis.XMessage, 0, len(claimed))
	for _, msg := range claimed {
		if deliveries[msg.ID] >= q.cfg.MaxAttempts {
			q.log.Errorw("job out of attempts", "entry_id", msg.ID, "attempts", deliveries[msg.ID])
			q.deadLetter(ctx, msg, fmt.Sprintf("max attempts (%d) exceeded", q.cfg.MaxAttempts))
			continue
		}
		retry = append(retry, msg)
	}
	return retry, nil
}

func (q *Queue) deadLetter(ctx context.Context, msg redis.XMessage, reason string) {
	values := map[string]interface{}{
		"reason":      reason,
		"original_id": msg.ID,
	}
	for k, v := range msg.Values {
		values[k] = v
	}

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: q.dead, Values: values})
		pipe.XAck(ctx, q.stream, q.cfg.Group, msg.ID)
		return nil
	})
	if err != nil {
		q.log.Errorw("dead-letter failed", "error", err, "entry_id", msg.ID)
		return
	}
	metrics.QueueJobs.WithLabelValues("dead").Inc()
}

func decode(msg redis.XMessage) (entities.AnalysisJob, error) {
	var job entities.AnalysisJob
	if name, _ := msg.Values["name"].(string); name != JobName {
		return job, fmt.Errorf("unexpected job name %q", name)
	}
	data, ok := msg.Values["data"].(string)
	if !ok {
		return job, errors.New("entry without data")
	}
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return job, fmt.Errorf("decode job: %w", err)
	}
	if job.AnalysisRunID == "" {
		return job, errors.New("job without analysisRunId")
	}
	return job, nil
}
