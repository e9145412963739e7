package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/veltor/bankledger/internal/domain"
	"github.com/veltor/bankledger/internal/usecase/mocks"
)

func newTestRelay(outboxRepo *mocks.MockOutboxRepository, publisher *mocks.MockBusPublisher, maxAttempts int) *Relay {
	return NewRelay(Config{
		TxManager:  mocks.NewMockTransactionManager(),
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Clock:      mocks.NewMockClock(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)),
		Logger:     zerolog.Nop(),
		Topics: map[string]string{
			domain.EventTransactionPosted:   "transaction-posted",
			domain.EventTransactionReversed: "transaction-reversed",
		},
		MaxAttempts:       maxAttempts,
		PerAttemptTimeout: time.Second,
	})
}

func pendingRecord(id, aggregateID, eventType string) *domain.OutboxRecord {
	return domain.NewOutboxRecord(id, aggregateID, eventType, []byte(`{"transactionId":"`+aggregateID+`"}`), time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC))
}

func TestRelay_ProcessBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes pending records with aggregate key and topic by type", func(t *testing.T) {
		outboxRepo := mocks.NewMockOutboxRepository()
		publisher := mocks.NewMockBusPublisher()
		relay := newTestRelay(outboxRepo, publisher, 5)

		outboxRepo.Create(ctx, nil, pendingRecord("rec-1", "txn-1", domain.EventTransactionPosted))
		outboxRepo.Create(ctx, nil, pendingRecord("rec-2", "txn-2", domain.EventTransactionReversed))

		if err := relay.ProcessBatch(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(publisher.Published) != 2 {
			t.Fatalf("expected 2 publishes, got %d", len(publisher.Published))
		}

		if publisher.Published[0].Topic != "transaction-posted" || publisher.Published[0].Key != "txn-1" {
			t.Errorf("unexpected first publish: %+v", publisher.Published[0])
		}
		if publisher.Published[1].Topic != "transaction-reversed" || publisher.Published[1].Key != "txn-2" {
			t.Errorf("unexpected second publish: %+v", publisher.Published[1])
		}

		for _, record := range outboxRepo.All() {
			if record.Status != domain.OutboxStatusProcessed {
				t.Errorf("expected PROCESSED, got %s", record.Status)
			}
			if record.ProcessedAt == nil {
				t.Error("expected processed instant to be set")
			}
		}
	})

	t.Run("failure increments attempts and stays pending below ceiling", func(t *testing.T) {
		outboxRepo := mocks.NewMockOutboxRepository()
		publisher := mocks.NewMockBusPublisher()
		publisher.PublishFunc = func(ctx context.Context, topic, key string, payload []byte) error {
			return errors.New("broker unavailable")
		}
		relay := newTestRelay(outboxRepo, publisher, 3)

		outboxRepo.Create(ctx, nil, pendingRecord("rec-1", "txn-1", domain.EventTransactionPosted))

		if err := relay.ProcessBatch(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		record := outboxRepo.All()[0]
		if record.Status != domain.OutboxStatusPending {
			t.Errorf("expected PENDING, got %s", record.Status)
		}
		if record.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", record.Attempts)
		}
		if record.LastError == "" {
			t.Error("expected last error recorded")
		}
	})

	t.Run("record fails permanently at max attempts and is not retried", func(t *testing.T) {
		outboxRepo := mocks.NewMockOutboxRepository()
		publisher := mocks.NewMockBusPublisher()
		publisher.PublishFunc = func(ctx context.Context, topic, key string, payload []byte) error {
			return errors.New("broker unavailable")
		}
		relay := newTestRelay(outboxRepo, publisher, 3)

		outboxRepo.Create(ctx, nil, pendingRecord("rec-1", "txn-1", domain.EventTransactionPosted))

		// Four ticks with a dead bus; the record must cap at 3 attempts.
		for i := 0; i < 4; i++ {
			if err := relay.ProcessBatch(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		record := outboxRepo.All()[0]
		if record.Status != domain.OutboxStatusFailed {
			t.Errorf("expected FAILED, got %s", record.Status)
		}
		if record.Attempts != 3 {
			t.Errorf("expected attempts capped at 3, got %d", record.Attempts)
		}

		// Bus recovers: FAILED rows stay dead, fresh records flow.
		publisher.PublishFunc = nil
		outboxRepo.Create(ctx, nil, pendingRecord("rec-2", "txn-2", domain.EventTransactionPosted))

		if err := relay.ProcessBatch(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		records := outboxRepo.All()
		if records[0].Status != domain.OutboxStatusFailed {
			t.Error("expected FAILED record untouched after recovery")
		}
		if records[1].Status != domain.OutboxStatusProcessed {
			t.Errorf("expected fresh record PROCESSED, got %s", records[1].Status)
		}
	})

	t.Run("unmapped event type counts as failure", func(t *testing.T) {
		outboxRepo := mocks.NewMockOutboxRepository()
		publisher := mocks.NewMockBusPublisher()
		relay := newTestRelay(outboxRepo, publisher, 3)

		outboxRepo.Create(ctx, nil, pendingRecord("rec-1", "txn-1", "SOMETHING_ELSE"))

		if err := relay.ProcessBatch(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		record := outboxRepo.All()[0]
		if record.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", record.Attempts)
		}
		if len(publisher.Published) != 0 {
			t.Error("expected nothing published")
		}
	})

	t.Run("repeated success mark keeps first processed instant", func(t *testing.T) {
		record := pendingRecord("rec-1", "txn-1", domain.EventTransactionPosted)

		first := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
		record.MarkProcessed(first)
		record.MarkProcessed(first.Add(time.Hour))

		if record.ProcessedAt == nil || !record.ProcessedAt.Equal(first) {
			t.Error("expected first success instant to be kept")
		}
	})
}

func TestRelay_StartStopsOnContextCancel(t *testing.T) {
	outboxRepo := mocks.NewMockOutboxRepository()
	publisher := mocks.NewMockBusPublisher()
	relay := newTestRelay(outboxRepo, publisher, 3)
	relay.cfg.PollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- relay.Start(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
