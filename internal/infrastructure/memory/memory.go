// Package memory is an in-process Entity Store. It keeps the same unique
// constraints as the Postgres schema so the adoption engine behaves the same
// against either backend.
package memory

import (
	"sort"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/repository"
)

// Store bundles the three repositories.
type Store struct {
	Users     *UserRepository
	Pets      *PetRepository
	Adoptions *AdoptionRepository
}

func NewStore() *Store {
	return &Store{
		Users:     NewUserRepository(),
		Pets:      NewPetRepository(),
		Adoptions: NewAdoptionRepository(),
	}
}

// paginate sorts items newest first and cuts one page out of them.
func paginate[T any](items []T, createdAt func(T) time.Time, p repository.Page) repository.Paginated[T] {
	p = p.Normalize()
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
	total := int64(len(items))
	start := p.Offset()
	if start < 0 || start > len(items) {
		start = len(items)
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return repository.Paginated[T]{Items: items[start:end], Total: total, Page: p}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
