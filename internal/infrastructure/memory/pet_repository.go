package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/repository"
)

type PetRepository struct {
	mu   sync.RWMutex
	byID map[string]*entity.Pet
}

func NewPetRepository() *PetRepository {
	return &PetRepository{byID: make(map[string]*entity.Pet)}
}

func clonePet(p *entity.Pet) *entity.Pet {
	c := *p
	c.BirthDate = cloneTime(p.BirthDate)
	return &c
}

func petMatches(f repository.PetFilter, p *entity.Pet) bool {
	if f.Specie != "" && p.Specie != f.Specie {
		return false
	}
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Adopted != nil && p.Adopted != *f.Adopted {
		return false
	}
	if f.Owner != "" && p.Owner != f.Owner {
		return false
	}
	return true
}

func (r *PetRepository) FindByID(ctx context.Context, id string) (*entity.Pet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePet(p), nil
}

func (r *PetRepository) FindOne(ctx context.Context, f repository.PetFilter) (*entity.Pet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.byID {
		if petMatches(f, p) {
			return clonePet(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *PetRepository) FindPaginated(ctx context.Context, f repository.PetFilter, p repository.Page) (repository.Paginated[*entity.Pet], error) {
	if err := ctx.Err(); err != nil {
		return repository.Paginated[*entity.Pet]{}, err
	}
	r.mu.RLock()
	out := make([]*entity.Pet, 0, len(r.byID))
	for _, pet := range r.byID {
		if petMatches(f, pet) {
			out = append(out, clonePet(pet))
		}
	}
	r.mu.RUnlock()
	return paginate(out, func(p *entity.Pet) time.Time { return p.CreatedAt }, p), nil
}

func (r *PetRepository) Insert(ctx context.Context, p *entity.Pet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[p.ID]; exists {
		return repository.ErrDuplicate
	}
	r.byID[p.ID] = clonePet(p)
	return nil
}

func (r *PetRepository) Patch(ctx context.Context, id string, patch repository.PetPatch) (*entity.Pet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Specie != nil {
		p.Specie = *patch.Specie
	}
	if patch.Breed != nil {
		p.Breed = *patch.Breed
	}
	if patch.BirthDate != nil {
		p.BirthDate = cloneTime(patch.BirthDate)
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Adopted != nil {
		p.Adopted = *patch.Adopted
	}
	if patch.Owner != nil {
		p.Owner = *patch.Owner
	}
	p.UpdatedAt = time.Now().UTC()
	return clonePet(p), nil
}

func (r *PetRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Adopted {
		return repository.ErrConditionFailed
	}
	delete(r.byID, id)
	return nil
}

func (r *PetRepository) Count(ctx context.Context, f repository.PetFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, p := range r.byID {
		if petMatches(f, p) {
			n++
		}
	}
	return n, nil
}

var _ repository.PetRepository = (*PetRepository)(nil)
