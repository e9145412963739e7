package domain

import "time"

// OutboxStatus is the delivery state of an outbox record.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// OutboxRecord is one durable event awaiting publication. It is created in
// the same store transaction as its aggregate, so the record exists iff the
// ledger data exists. Payload is opaque bytes; the relay parses nothing but
// the event type.
type OutboxRecord struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
	Attempts    int
	LastError   string
	Status      OutboxStatus
}

// NewOutboxRecord creates a PENDING record for an aggregate.
func NewOutboxRecord(id, aggregateID, eventType string, payload []byte, now time.Time) *OutboxRecord {
	return &OutboxRecord{
		ID:          id,
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   now,
		Status:      OutboxStatusPending,
	}
}

// MarkProcessed records a successful publish. Idempotent: the first success
// instant is kept on repeated marks.
func (r *OutboxRecord) MarkProcessed(at time.Time) {
	if r.Status == OutboxStatusProcessed {
		return
	}

	r.Status = OutboxStatusProcessed

	if r.ProcessedAt == nil {
		t := at
		r.ProcessedAt = &t
	}
}

// RecordFailure counts a failed publish attempt. Once attempts reach
// maxAttempts the record becomes FAILED and is never retried.
func (r *OutboxRecord) RecordFailure(errText string, maxAttempts int) {
	r.Attempts++
	r.LastError = errText

	if r.Attempts >= maxAttempts {
		r.Status = OutboxStatusFailed
	}
}
