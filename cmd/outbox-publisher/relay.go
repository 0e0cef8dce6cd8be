package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
	"github.com/vatavaran/vatavaran-backend/pkg/db/models"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/metrics"
	"github.com/vatavaran/vatavaran-backend/pkg/outbox"
	"github.com/vatavaran/vatavaran-backend/pkg/outbox/registry"
	"github.com/vatavaran/vatavaran-backend/pkg/pubsub"
)

const (
	publishTimeout = 15 * time.Second
	maxBackoff     = 10 * time.Second
	backoffJitter  = 250 * time.Millisecond

	resultPublished = "published"
	resultRetry     = "retry"
	resultTerminal  = "terminal"
)

type pinger interface {
	Ping(context.Context) error
}

type claimer interface {
	Claim(ctx context.Context, limit, maxAttempts int, handle outbox.BatchHandler) (int, error)
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, topic string, msg *gcppubsub.Message) (pubsub.Result, error)
	ResumePublish(topic, orderingKey string)
}

type RelayParams struct {
	Config   config.OutboxConfig
	Logger   *logger.Logger
	Rows     claimer
	Registry resolver
	Topics   topicPublisher
	// Checks must all pass before the first claim.
	Checks  map[string]pinger
	Metrics *metrics.OutboxMetrics
}

// Relay moves committed outbox rows to Pub/Sub. Each iteration claims a batch,
// publishes it pipelined and records per-row outcomes in the claiming
// transaction.
type Relay struct {
	logg        *logger.Logger
	rows        claimer
	registry    resolver
	topics      topicPublisher
	checks      map[string]pinger
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.Rows == nil:
		return nil, errors.New("outbox repository is required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	case p.Topics == nil:
		return nil, errors.New("topic publisher is required")
	case p.Config.BatchSize <= 0 || p.Config.PollIntervalMS <= 0 || p.Config.MaxAttempts <= 0:
		return nil, fmt.Errorf("invalid outbox config %+v", p.Config)
	}
	return &Relay{
		logg:        p.Logger,
		rows:        p.Rows,
		registry:    p.Registry,
		topics:      p.Topics,
		checks:      p.Checks,
		metrics:     p.Metrics,
		batchSize:   p.Config.BatchSize,
		maxAttempts: p.Config.MaxAttempts,
		poll:        time.Duration(p.Config.PollIntervalMS) * time.Millisecond,
	}, nil
}

// Run relays until ctx is cancelled. A full batch is followed immediately by
// the next one; claim or publish failures back off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.ready(ctx); err != nil {
		return err
	}

	backoff := r.newBackoff()
	for {
		claimed, retrying, err := r.iterate(ctx)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		wait := r.poll
		switch {
		case err != nil || retrying > 0:
			if err != nil {
				r.logg.Error(ctx, "outbox claim failed", err)
			}
			wait, _ = backoff.Next()
		case claimed == r.batchSize:
			backoff = r.newBackoff()
			wait = 0
		default:
			backoff = r.newBackoff()
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// iterate claims and publishes one batch. retrying counts rows left pending
// for another attempt.
func (r *Relay) iterate(ctx context.Context) (claimed, retrying int, err error) {
	claimed, err = r.rows.Claim(ctx, r.batchSize, r.maxAttempts, func(ctx context.Context, rows []models.OutboxEvent) []outbox.Outcome {
		outcomes := r.publishBatch(ctx, rows)
		for _, o := range outcomes {
			if o.Err != nil && !o.Terminal {
				retrying++
			}
		}
		return outcomes
	})
	if claimed > 0 {
		r.metrics.ObserveBatch(claimed)
	}
	return claimed, retrying, err
}

type inflight struct {
	row     models.OutboxEvent
	topic   string
	key     string
	result  pubsub.Result
	started time.Time
}

func (r *Relay) publishBatch(ctx context.Context, rows []models.OutboxEvent) []outbox.Outcome {
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	outcomes := make([]outbox.Outcome, 0, len(rows))
	pending := make([]inflight, 0, len(rows))
	for _, row := range rows {
		resolved, err := r.registry.Resolve(row)
		if err != nil {
			outcomes = append(outcomes, r.park(ctx, row, err))
			continue
		}
		msg := newMessage(row, resolved)
		result, err := r.topics.Publish(publishCtx, resolved.Descriptor.Topic, msg)
		if err != nil {
			outcomes = append(outcomes, r.fail(ctx, row, err))
			continue
		}
		pending = append(pending, inflight{
			row:     row,
			topic:   resolved.Descriptor.Topic,
			key:     msg.OrderingKey,
			result:  result,
			started: time.Now(),
		})
	}

	for _, p := range pending {
		serverID, err := p.result.Get(publishCtx)
		r.metrics.ObservePublish(time.Since(p.started))
		if err != nil {
			r.topics.ResumePublish(p.topic, p.key)
			outcomes = append(outcomes, r.fail(ctx, p.row, err))
			continue
		}
		r.metrics.IncProcessed(string(p.row.EventType), resultPublished)
		r.logg.Debug(r.logg.WithField(r.rowContext(ctx, p.row), "message_id", serverID), "outbox event published")
		outcomes = append(outcomes, outbox.Outcome{ID: p.row.ID})
	}
	return outcomes
}

// fail records a publish error, parking the row once it has used its last attempt.
func (r *Relay) fail(ctx context.Context, row models.OutboxEvent, err error) outbox.Outcome {
	if row.AttemptCount+1 >= r.maxAttempts {
		return r.park(ctx, row, fmt.Errorf("giving up after %d attempts: %w", r.maxAttempts, err))
	}
	logCtx := r.logg.WithFields(r.rowContext(ctx, row), map[string]any{
		"attempt": row.AttemptCount + 1,
		"error":   err.Error(),
	})
	r.logg.Warn(logCtx, "outbox publish failed, will retry")
	r.metrics.IncProcessed(string(row.EventType), resultRetry)
	return outbox.Outcome{ID: row.ID, Err: err}
}

func (r *Relay) park(ctx context.Context, row models.OutboxEvent, err error) outbox.Outcome {
	r.logg.Error(r.rowContext(ctx, row), "outbox event parked", err)
	r.metrics.IncProcessed(string(row.EventType), resultTerminal)
	return outbox.Outcome{ID: row.ID, Err: err, Terminal: true}
}

func (r *Relay) rowContext(ctx context.Context, row models.OutboxEvent) context.Context {
	return r.logg.WithFields(ctx, map[string]any{
		"outbox_id":    row.ID.String(),
		"event_type":   row.EventType,
		"aggregate_id": row.AggregateID.String(),
	})
}

func (r *Relay) ready(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for name, check := range r.checks {
		g.Go(func() error {
			if err := check.Ping(gctx); err != nil {
				r.logg.Error(r.logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Relay) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(maxBackoff, retry.WithJitter(backoffJitter, retry.NewExponential(r.poll)))
}

// newMessage forwards the stored envelope unchanged. The aggregate id is the
// ordering key so one pickup's events arrive in emission order.
func newMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: row.AggregateID.String(),
		Attributes: map[string]string{
			"event_id":         resolved.Envelope.EventID,
			"event_type":       string(row.EventType),
			"aggregate_type":   string(row.AggregateType),
			"aggregate_id":     row.AggregateID.String(),
			"envelope_version": fmt.Sprint(resolved.Envelope.Version),
			"occurred_at":      resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
