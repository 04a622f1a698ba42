package dispatch

import "time"

// Batch summarizes an accepted dispatch request
type Batch struct {
	ID      string
	GroupID int64
	Jobs    []*ScheduledJob
}

// ScheduledJob is one scheduled delivery within a batch
type ScheduledJob struct {
	JobID        string  `json:"job_id"`
	Participant  string  `json:"participant"`
	DelaySeconds float64 `json:"delay_seconds"`
}

// BatchResponse represents the response for a dispatch request
type BatchResponse struct {
	BatchID string          `json:"batch_id"`
	GroupID int64           `json:"group_id"`
	Jobs    []*ScheduledJob `json:"jobs"`
}

// ToResponse converts a Batch to its DTO
func (b *Batch) ToResponse() *BatchResponse {
	return &BatchResponse{
		BatchID: b.ID,
		GroupID: b.GroupID,
		Jobs:    b.Jobs,
	}
}

// JobResponse represents a job status query result
type JobResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Status      JobStatus `json:"status"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	LastError   string    `json:"last_error,omitempty"`
	Result      string    `json:"result,omitempty"`
	EnqueuedAt  string    `json:"enqueued_at"`
}

// DeliveryRecordResponse represents one audit log row
type DeliveryRecordResponse struct {
	ID              int64  `json:"id"`
	ParticipantID   int64  `json:"participant_id"`
	ParticipantName string `json:"participant_name"`
	Status          string `json:"status"`
	RawResponse     string `json:"raw_response,omitempty"`
	AttemptedAt     string `json:"attempted_at"`
}

// ToResponse converts a Job to its DTO
func (j *Job) ToResponse() *JobResponse {
	return &JobResponse{
		ID:          j.ID,
		Kind:        j.Kind,
		Status:      j.Status,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		LastError:   j.LastError,
		Result:      j.Result,
		EnqueuedAt:  j.EnqueuedAt.Format(time.RFC3339),
	}
}

// ToResponse converts a DeliveryRecord to its DTO
func (d *DeliveryRecord) ToResponse() *DeliveryRecordResponse {
	return &DeliveryRecordResponse{
		ID:              d.ID,
		ParticipantID:   d.ParticipantID,
		ParticipantName: d.ParticipantName,
		Status:          d.Status,
		RawResponse:     d.RawResponse,
		AttemptedAt:     d.AttemptedAt.Format(time.RFC3339),
	}
}
