//go:build integration

package relay_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"volunteerhub/pkg/platform/audit"
	"volunteerhub/pkg/platform/audit/relay"
	outbox "volunteerhub/pkg/platform/audit/store/postgres"
	"volunteerhub/pkg/testutil/containers"
)

// TestRelayShipsOutbox drives the full outbox path: events appended to
// Postgres end up on the Kafka topic and the rows are marked published.
func TestRelayShipsOutbox(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	mgr := containers.GetManager()
	pg := mgr.GetPostgres(t)
	broker := mgr.GetRedpanda(t)

	require.NoError(t, pg.TruncateTables(ctx, "audit_outbox"))

	const topic = "volunteerhub.audit.test"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := outbox.New(pg.DB)
	require.NoError(t, store.Append(ctx, audit.Event{
		Action:  "task.close",
		Subject: "task-1",
	}))
	require.NoError(t, store.Append(ctx, audit.Event{
		Action:   "application.decide",
		Subject:  "application-1",
		Decision: "APPROVED",
	}))

	r := relay.New(pg.DB, broker.Client, topic, logger,
		relay.WithInterval(50*time.Millisecond))
	require.NoError(t, r.EnsureTopic(ctx))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = r.Run(runCtx) }()

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	actions := map[string]bool{}
	deadline := time.Now().Add(15 * time.Second)
	for len(actions) < 2 && time.Now().Before(deadline) {
		pollCtx, pollCancel := context.WithTimeout(ctx, time.Second)
		fetches := consumer.PollFetches(pollCtx)
		pollCancel()
		fetches.EachRecord(func(rec *kgo.Record) {
			var body struct {
				Action string `json:"action"`
			}
			require.NoError(t, json.Unmarshal(rec.Value, &body))
			actions[body.Action] = true
		})
	}
	require.True(t, actions["task.close"], "task.close event should reach the topic")
	require.True(t, actions["application.decide"], "application.decide event should reach the topic")

	// The drained rows must be stamped so they are not shipped twice.
	require.Eventually(t, func() bool {
		var unpublished int
		err := pg.DB.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM audit_outbox WHERE published_at IS NULL`).Scan(&unpublished)
		return err == nil && unpublished == 0
	}, 10*time.Second, 100*time.Millisecond)
}
