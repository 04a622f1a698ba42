package dispatch

import (
	"encoding/json"
	"time"
)

// JobStatus represents where a delivery job is in its lifecycle
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is a unit of delivery work, owned by the queue until terminal
type Job struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	Status      JobStatus       `json:"status"`
	LastError   string          `json:"last_error,omitempty"`
	Result      string          `json:"result,omitempty"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// JobKindSendMessage is the only job kind the delivery worker handles today
const JobKindSendMessage = "send-message"

// DeliveryPayload is the body of a send-message job
type DeliveryPayload struct {
	GroupID       int64  `json:"group_id"`
	ParticipantID int64  `json:"participant_id"`
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Message       string `json:"message"`
	LinkPreview   bool   `json:"link_preview"`
}

// Delivery record statuses
const (
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

// DeliveryRecord is one row of the append-only send audit log
type DeliveryRecord struct {
	ID            int64     `json:"id"`
	GroupID       int64     `json:"group_id"`
	ParticipantID int64     `json:"participant_id"`
	Status        string    `json:"status"`
	RawResponse   string    `json:"raw_response,omitempty"`
	AttemptedAt   time.Time `json:"attempted_at"`

	// Populated from JOIN
	ParticipantName string `json:"participant_name,omitempty"`
}
