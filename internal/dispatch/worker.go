package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Gateway is the outbound send capability the worker depends on
type Gateway interface {
	SendText(ctx context.Context, number, text string, linkPreview bool) (string, error)
	SendPresence(ctx context.Context, number string) error
}

// RecordStore appends delivery attempts to the audit log
type RecordStore interface {
	CreateRecord(ctx context.Context, groupID, participantID int64, status, rawResponse string) (*DeliveryRecord, error)
}

// Worker pulls delivery jobs off the queue and performs the actual sends.
// Several workers may run concurrently; job ordering across them is not
// guaranteed, only that every job eventually completes or exhausts retries.
type Worker struct {
	queue   Queue
	gateway Gateway
	records RecordStore
	settle  time.Duration
}

// NewWorker creates a delivery worker. settle is the pause between the
// presence signal and the message, mimicking typing time.
func NewWorker(queue Queue, gateway Gateway, records RecordStore, settle time.Duration) *Worker {
	return &Worker{queue: queue, gateway: gateway, records: records, settle: settle}
}

// Run processes jobs until ctx is cancelled
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[worker] started")
	for {
		job, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Printf("[worker] stopped")
				return
			}
			log.Printf("[worker] dequeue error: %v", err)
			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	var payload DeliveryPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Printf("[worker] job %s has invalid payload: %v", job.ID, err)
		if err := w.queue.Fail(ctx, job.ID, "invalid payload: "+err.Error()); err != nil {
			log.Printf("[worker] failed to fail job %s: %v", job.ID, err)
		}
		return
	}

	log.Printf("[worker] job %s: sending to %s (attempt %d/%d)", job.ID, payload.Name, job.Attempts, job.MaxAttempts)

	// Presence is best-effort; a failed typing signal never blocks the send
	if err := w.gateway.SendPresence(ctx, payload.Phone); err != nil {
		log.Printf("[worker] job %s: presence failed: %v", job.ID, err)
	}

	select {
	case <-ctx.Done():
		// ctx is already dead, so hand the job back on a fresh context;
		// the retry happens after the backoff, or on lease expiry if even
		// this write is lost
		failCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.queue.Fail(failCtx, job.ID, "worker stopped before send"); err != nil {
			log.Printf("[worker] failed to release job %s on shutdown: %v", job.ID, err)
		}
		return
	case <-time.After(w.settle):
	}

	raw, sendErr := w.gateway.SendText(ctx, payload.Phone, payload.Message, payload.LinkPreview)

	// The audit row is written regardless of outcome, one per physical attempt
	status := DeliveryStatusSent
	if sendErr != nil {
		status = DeliveryStatusFailed
	}
	if _, err := w.records.CreateRecord(ctx, payload.GroupID, payload.ParticipantID, status, raw); err != nil {
		log.Printf("[worker] job %s: failed to record delivery: %v", job.ID, err)
	}

	if sendErr != nil {
		log.Printf("[worker] job %s: send failed: %v", job.ID, sendErr)
		if err := w.queue.Fail(ctx, job.ID, sendErr.Error()); err != nil {
			log.Printf("[worker] failed to fail job %s: %v", job.ID, err)
		}
		return
	}

	log.Printf("[worker] job %s: delivered to %s", job.ID, payload.Name)
	if err := w.queue.Complete(ctx, job.ID, raw); err != nil {
		log.Printf("[worker] failed to complete job %s: %v", job.ID, err)
	}
}
