// Package relay ships committed audit outbox rows to Kafka.
//
// The outbox table is the durable hand-off point: services write events in
// the same transaction as the state change, and this relay drains the table
// on an interval. Kafka is at-least-once downstream; consumers dedupe on the
// event id embedded in the payload.
package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	outbox "volunteerhub/pkg/platform/audit/store/postgres"
	txcontext "volunteerhub/pkg/platform/tx"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Relay drains the audit outbox into a Kafka topic.
type Relay struct {
	db        *sql.DB
	store     *outbox.Store
	client    *kgo.Client
	topic     string
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// Option configures the Relay.
type Option func(*Relay)

// WithInterval overrides the drain interval.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

// WithBatchSize overrides how many rows one drain pass ships.
func WithBatchSize(n int) Option {
	return func(r *Relay) { r.batchSize = n }
}

// New constructs a Relay. The kgo client is owned by the caller.
func New(db *sql.DB, client *kgo.Client, topic string, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		store:     outbox.New(db),
		client:    client,
		topic:     topic,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (r *Relay) EnsureTopic(ctx context.Context) error {
	adm := kadm.NewClient(r.client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, r.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Run drains the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				// Transient broker or database failures just delay
				// delivery; rows stay in the outbox.
				r.logger.WarnContext(ctx, "audit relay drain failed", "error", err)
			}
		}
	}
}

// drainOnce ships one batch inside a transaction so SKIP LOCKED rows stay
// locked until they are marked published.
func (r *Relay) drainOnce(ctx context.Context) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox drain: %w", err)
	}
	defer func() {
		_ = dbtx.Rollback()
	}()

	txCtx := txcontext.WithTx(ctx, dbtx)
	entries, err := r.store.FetchUnpublished(txCtx, r.batchSize)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	shipped := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		record := &kgo.Record{
			Topic: r.topic,
			Key:   []byte(entry.Subject),
			Value: entry.Payload,
		}
		if err := r.client.ProduceSync(ctx, record).FirstErr(); err != nil {
			// Ship what succeeded; the rest retries next tick.
			break
		}
		shipped = append(shipped, entry.ID)
	}
	if len(shipped) == 0 {
		return errors.New("no outbox entries shipped")
	}

	if err := r.store.MarkPublished(txCtx, shipped, time.Now()); err != nil {
		return err
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit outbox drain: %w", err)
	}
	r.logger.DebugContext(ctx, "audit relay shipped batch", "count", len(shipped))
	return nil
}
