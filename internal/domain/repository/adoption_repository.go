package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
)

type AdoptionFilter struct {
	Owner  string
	Pet    string
	Status entity.AdoptionStatus
}

// AdoptionPatch sets only the non-nil fields.
type AdoptionPatch struct {
	Status      *entity.AdoptionStatus
	Notes       *string
	AdoptionFee *float64
	ApprovedAt  *time.Time
	RejectedAt  *time.Time
	CancelledAt *time.Time
	CompletedAt *time.Time
}

// AdoptionRepository persists adoptions. Implementations enforce at most one
// adoption per pet in {pending, approved}; Insert and Transition report a
// violation as ErrDuplicate.
type AdoptionRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Adoption, error)
	FindOne(ctx context.Context, f AdoptionFilter) (*entity.Adoption, error)
	FindPaginated(ctx context.Context, f AdoptionFilter, p Page) (Paginated[*entity.Adoption], error)
	Insert(ctx context.Context, a *entity.Adoption) error
	Patch(ctx context.Context, id string, patch AdoptionPatch) (*entity.Adoption, error)
	// Transition applies patch only while the stored status equals from.
	// It returns ErrConditionFailed when the status moved on.
	Transition(ctx context.Context, id string, from entity.AdoptionStatus, patch AdoptionPatch) (*entity.Adoption, error)
	// Delete removes the adoption when its status is one of allowed (any status
	// when allowed is empty); ErrConditionFailed otherwise.
	Delete(ctx context.Context, id string, allowed ...entity.AdoptionStatus) error
	Count(ctx context.Context, f AdoptionFilter) (int64, error)

	FindInFlightForPet(ctx context.Context, petID string) (*entity.Adoption, error)
	FindUserAdoptions(ctx context.Context, userID string, status entity.AdoptionStatus, p Page) (Paginated[*entity.Adoption], error)
}
