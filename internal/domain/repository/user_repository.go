package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
)

type UserFilter struct {
	Email string
	Role  entity.Role
}

// UserPatch sets only the non-nil fields.
type UserPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *entity.Role
}

// UserRepository persists users. Emails are stored lowercased and unique.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindOne(ctx context.Context, f UserFilter) (*entity.User, error)
	FindPaginated(ctx context.Context, f UserFilter, p Page) (Paginated[*entity.User], error)
	Insert(ctx context.Context, u *entity.User) error
	Patch(ctx context.Context, id string, patch UserPatch) (*entity.User, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, f UserFilter) (int64, error)

	// PushPet appends petID to the owned-set when absent.
	PushPet(ctx context.Context, userID, petID string) error
	AddDocument(ctx context.Context, userID string, doc entity.Document) error
	RemoveDocument(ctx context.Context, userID, docID string) error
	TouchLastConnection(ctx context.Context, id string, at time.Time) error
	SetFailedLogins(ctx context.Context, id string, attempts int) error
}
