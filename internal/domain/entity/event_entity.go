package entity

import "time"

const (
	EventAdoptionRequested = "adoption.requested"
	EventAdoptionApproved  = "adoption.approved"
	EventAdoptionRejected  = "adoption.rejected"
	EventAdoptionCancelled = "adoption.cancelled"
	EventAdoptionCompleted = "adoption.completed"
)

// AdoptionEvent is published after an adoption is created or changes status.
// Owner and pet details are copied in so consumers need no store access.
type AdoptionEvent struct {
	Type       string         `json:"type"`
	AdoptionID string         `json:"adoption_id"`
	From       AdoptionStatus `json:"from,omitempty"`
	Status     AdoptionStatus `json:"status"`
	Notes      string         `json:"notes,omitempty"`
	OwnerID    string         `json:"owner_id"`
	OwnerEmail string         `json:"owner_email,omitempty"`
	OwnerName  string         `json:"owner_name,omitempty"`
	PetID      string         `json:"pet_id"`
	PetName    string         `json:"pet_name,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventTypeFor returns the event type announcing a move into status.
func EventTypeFor(status AdoptionStatus) string {
	switch status {
	case AdoptionApproved:
		return EventAdoptionApproved
	case AdoptionRejected:
		return EventAdoptionRejected
	case AdoptionCancelled:
		return EventAdoptionCancelled
	case AdoptionCompleted:
		return EventAdoptionCompleted
	}
	return EventAdoptionRequested
}
