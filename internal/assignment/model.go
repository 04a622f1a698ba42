package assignment

import "time"

// Assignment represents one giver->recipient pairing produced by a draw.
// Rows are immutable except for the view_count/viewed_at pair, which
// transitions exactly once when the reveal token is consumed.
type Assignment struct {
	ID          int64      `json:"id"`
	GroupID     int64      `json:"group_id"`
	GiverID     int64      `json:"giver_id"`
	RecipientID int64      `json:"recipient_id"`
	Token       string     `json:"-"`
	RevealURL   string     `json:"reveal_url"`
	ViewCount   int        `json:"view_count"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Reveal is the payload handed out exactly once per token
type Reveal struct {
	GiverName     string
	RecipientName string
	ViewedAt      time.Time
}

// DrawEntry is an assignment joined with participant names, for the admin view
type DrawEntry struct {
	GiverID       int64
	GiverName     string
	RecipientName string
	RevealURL     string
	ViewCount     int
	ViewedAt      *time.Time
}

// DeliveryTarget is what the dispatch pipeline needs to notify one giver
type DeliveryTarget struct {
	ParticipantID int64
	Name          string
	Phone         string
	RevealURL     string
}
