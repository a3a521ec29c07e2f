package application

import (
	"context"
	"io"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
)

// ObjectStore keeps uploaded files. Put returns the public reference.
type ObjectStore interface {
	Put(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

// PetIndexer mirrors pets into a full-text index. Search returns pet ids by relevance.
type PetIndexer interface {
	IndexPet(ctx context.Context, p *entity.Pet) error
	DeletePet(ctx context.Context, id string) error
	SearchPets(ctx context.Context, q string, size int) ([]string, error)
}

// Revoker remembers logged-out token ids until they expire.
type Revoker interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
}

// Upload is one file received from a client.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
