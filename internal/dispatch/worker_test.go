package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu          sync.Mutex
	sendErr     error
	presenceErr error
	sent        []string // phone numbers, one per SendText call
	presences   int
}

func (f *fakeGateway) SendText(_ context.Context, number, _ string, _ bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, number)
	if f.sendErr != nil {
		return `{"error":"send failed"}`, f.sendErr
	}
	return `{"key":{"id":"msg-1"}}`, nil
}

func (f *fakeGateway) SendPresence(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presences++
	return f.presenceErr
}

func (f *fakeGateway) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeGateway) sentNumbers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeRecords struct {
	mu      sync.Mutex
	records []*DeliveryRecord
}

func (f *fakeRecords) CreateRecord(_ context.Context, groupID, participantID int64, status, raw string) (*DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &DeliveryRecord{
		ID:            int64(len(f.records) + 1),
		GroupID:       groupID,
		ParticipantID: participantID,
		Status:        status,
		RawResponse:   raw,
		AttemptedAt:   time.Now(),
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeRecords) statuses() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.records))
	for i, rec := range f.records {
		out[i] = rec.Status
	}
	return out
}

func deliveryJob(id string) *Job {
	payload, _ := json.Marshal(&DeliveryPayload{
		GroupID:       1,
		ParticipantID: 10,
		Name:          "Alice",
		Phone:         "5548999990000",
		Message:       "your link",
		LinkPreview:   true,
	})
	return &Job{
		ID:          id,
		Kind:        JobKindSendMessage,
		Payload:     payload,
		MaxAttempts: 3,
	}
}

func startWorker(t *testing.T, q *RedisQueue, gw Gateway, records RecordStore) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	worker := NewWorker(q, gw, records, time.Millisecond)
	go worker.Run(ctx)
}

func waitForStatus(t *testing.T, q *RedisQueue, id string, want JobStatus) *Job {
	t.Helper()

	var job *Job
	require.Eventually(t, func() bool {
		var err error
		job, err = q.Get(context.Background(), id)
		return err == nil && job != nil && job.Status == want
	}, 2*time.Second, 10*time.Millisecond, "job %s never reached %s", id, want)
	return job
}

func TestWorkerDeliversAndRecords(t *testing.T) {
	q := newTestQueue(t, QueueOptions{})
	gw := &fakeGateway{}
	records := &fakeRecords{}
	startWorker(t, q, gw, records)

	_, err := q.Enqueue(context.Background(), deliveryJob("job-1"), 0)
	require.NoError(t, err)

	job := waitForStatus(t, q, "job-1", JobStatusCompleted)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, `{"key":{"id":"msg-1"}}`, job.Result)

	assert.Equal(t, []string{"5548999990000"}, gw.sentNumbers())
	assert.Equal(t, []string{DeliveryStatusSent}, records.statuses())
}

func TestWorkerRetriesThenFailsTerminally(t *testing.T) {
	q := newTestQueue(t, QueueOptions{BaseBackoff: 5 * time.Millisecond})
	gw := &fakeGateway{sendErr: errors.New("gateway unreachable")}
	records := &fakeRecords{}
	startWorker(t, q, gw, records)

	_, err := q.Enqueue(context.Background(), deliveryJob("job-2"), 0)
	require.NoError(t, err)

	job := waitForStatus(t, q, "job-2", JobStatusFailed)
	assert.Equal(t, 3, job.Attempts)
	assert.Equal(t, "gateway unreachable", job.LastError)

	// One audit row per physical attempt, all failed
	assert.Equal(t, []string{DeliveryStatusFailed, DeliveryStatusFailed, DeliveryStatusFailed}, records.statuses())
	assert.Equal(t, 3, gw.sendCount())
}

func TestWorkerIgnoresPresenceFailure(t *testing.T) {
	q := newTestQueue(t, QueueOptions{})
	gw := &fakeGateway{presenceErr: errors.New("presence unsupported")}
	records := &fakeRecords{}
	startWorker(t, q, gw, records)

	_, err := q.Enqueue(context.Background(), deliveryJob("job-3"), 0)
	require.NoError(t, err)

	waitForStatus(t, q, "job-3", JobStatusCompleted)
	assert.Equal(t, []string{DeliveryStatusSent}, records.statuses())
}

func TestWorkerReleasesJobOnShutdownMidSettle(t *testing.T) {
	q := newTestQueue(t, QueueOptions{})
	gw := &fakeGateway{}
	records := &fakeRecords{}

	ctx, cancel := context.WithCancel(context.Background())
	worker := NewWorker(q, gw, records, time.Hour) // park in the settle wait
	go worker.Run(ctx)

	_, err := q.Enqueue(context.Background(), deliveryJob("job-5"), 0)
	require.NoError(t, err)

	waitForStatus(t, q, "job-5", JobStatusActive)
	cancel()

	// The stopped worker must hand the job back for a later retry instead of
	// leaving it active forever
	job := waitForStatus(t, q, "job-5", JobStatusPending)
	assert.Equal(t, 1, job.Attempts)
	assert.Equal(t, "worker stopped before send", job.LastError)
	assert.Equal(t, 0, gw.sendCount())
}

func TestWorkerFailsJobWithBadPayload(t *testing.T) {
	q := newTestQueue(t, QueueOptions{})
	gw := &fakeGateway{}
	records := &fakeRecords{}
	startWorker(t, q, gw, records)

	bad := &Job{ID: "job-4", Kind: JobKindSendMessage, Payload: json.RawMessage(`not json`), MaxAttempts: 1}
	_, err := q.Enqueue(context.Background(), bad, 0)
	require.NoError(t, err)

	job := waitForStatus(t, q, "job-4", JobStatusFailed)
	assert.Contains(t, job.LastError, "invalid payload")
	assert.Equal(t, 0, gw.sendCount(), "no send should happen for a bad payload")
	assert.Empty(t, records.statuses())
}
