package entity

import "time"

type AdoptionStatus string

const (
	AdoptionPending   AdoptionStatus = "pending"
	AdoptionApproved  AdoptionStatus = "approved"
	AdoptionRejected  AdoptionStatus = "rejected"
	AdoptionCompleted AdoptionStatus = "completed"
	AdoptionCancelled AdoptionStatus = "cancelled"
)

var AllAdoptionStatuses = []AdoptionStatus{
	AdoptionPending, AdoptionApproved, AdoptionRejected, AdoptionCompleted, AdoptionCancelled,
}

func (s AdoptionStatus) Valid() bool {
	for _, v := range AllAdoptionStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// InFlight reports whether the status holds the pet's single in-flight slot.
func (s AdoptionStatus) InFlight() bool {
	return s == AdoptionPending || s == AdoptionApproved
}

// Terminal reports whether no further transition is allowed.
func (s AdoptionStatus) Terminal() bool {
	return s == AdoptionRejected || s == AdoptionCompleted || s == AdoptionCancelled
}

// Owns reports whether the status means the pet belongs to the adoption owner.
func (s AdoptionStatus) Owns() bool {
	return s == AdoptionApproved || s == AdoptionCompleted
}

// MaxNotesLength bounds Adoption.Notes in characters.
const MaxNotesLength = 500

type Adoption struct {
	ID           string
	Owner        string
	Pet          string
	Status       AdoptionStatus
	Notes        string
	AdoptionFee  *float64
	AdoptionDate time.Time
	ApprovedAt   *time.Time
	RejectedAt   *time.Time
	CancelledAt  *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
