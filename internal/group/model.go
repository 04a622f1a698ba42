package group

import "time"

// Status represents where a group is in its exchange lifecycle
type Status string

const (
	StatusDrafting   Status = "drafting"
	StatusDrawn      Status = "drawn"
	StatusDispatched Status = "dispatched"
)

// Group represents a gift exchange group
type Group struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Participant represents a person registered in a group
type Participant struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}
