package assignment

import "time"

// DrawEntryResponse represents one assignment in draw results and listings.
// The recipient is visible here because this is the organizer's surface; the
// public reveal link is what participants get.
type DrawEntryResponse struct {
	Giver     string     `json:"giver"`
	Recipient string     `json:"recipient"`
	Link      string     `json:"link"`
	Viewed    bool       `json:"viewed"`
	ViewedAt  *time.Time `json:"viewed_at,omitempty"`
}

// RevealResponse is the one-time payload behind a reveal link
type RevealResponse struct {
	GiverName     string    `json:"giver_name"`
	RecipientName string    `json:"recipient_name"`
	ViewedAt      time.Time `json:"viewed_at"`
}

// ToResponse converts a DrawEntry to its DTO
func (e *DrawEntry) ToResponse() *DrawEntryResponse {
	return &DrawEntryResponse{
		Giver:     e.GiverName,
		Recipient: e.RecipientName,
		Link:      e.RevealURL,
		Viewed:    e.ViewCount > 0,
		ViewedAt:  e.ViewedAt,
	}
}

// ToResponse converts a Reveal to its DTO
func (rv *Reveal) ToResponse() *RevealResponse {
	return &RevealResponse{
		GiverName:     rv.GiverName,
		RecipientName: rv.RecipientName,
		ViewedAt:      rv.ViewedAt,
	}
}
