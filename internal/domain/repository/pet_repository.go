package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
)

type PetFilter struct {
	Specie  entity.Species
	Status  entity.PetStatus
	Adopted *bool
	Owner   string
}

// PetPatch sets only the non-nil fields.
type PetPatch struct {
	Name        *string
	Specie      *entity.Species
	Breed       *string
	BirthDate   *time.Time
	Image       *string
	Description *string
	Location    *entity.Location
	Status      *entity.PetStatus
	Adopted     *bool
	Owner       *string
}

type PetRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Pet, error)
	FindOne(ctx context.Context, f PetFilter) (*entity.Pet, error)
	FindPaginated(ctx context.Context, f PetFilter, p Page) (Paginated[*entity.Pet], error)
	Insert(ctx context.Context, p *entity.Pet) error
	Patch(ctx context.Context, id string, patch PetPatch) (*entity.Pet, error)
	// Delete removes a pet that is not adopted; ErrConditionFailed otherwise.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, f PetFilter) (int64, error)
}
