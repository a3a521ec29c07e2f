package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/repository"
)

// AdoptionRepository mirrors the partial unique index on pet for in-flight
// statuses with the inFlight map, guarded by the same mutex as the rows.
type AdoptionRepository struct {
	mu       sync.RWMutex
	byID     map[string]*entity.Adoption
	inFlight map[string]string // pet id -> adoption id
}

func NewAdoptionRepository() *AdoptionRepository {
	return &AdoptionRepository{
		byID:     make(map[string]*entity.Adoption),
		inFlight: make(map[string]string),
	}
}

func cloneAdoption(a *entity.Adoption) *entity.Adoption {
	c := *a
	if a.AdoptionFee != nil {
		fee := *a.AdoptionFee
		c.AdoptionFee = &fee
	}
	c.ApprovedAt = cloneTime(a.ApprovedAt)
	c.RejectedAt = cloneTime(a.RejectedAt)
	c.CancelledAt = cloneTime(a.CancelledAt)
	c.CompletedAt = cloneTime(a.CompletedAt)
	return &c
}

func adoptionMatches(f repository.AdoptionFilter, a *entity.Adoption) bool {
	if f.Owner != "" && a.Owner != f.Owner {
		return false
	}
	if f.Pet != "" && a.Pet != f.Pet {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

func (r *AdoptionRepository) FindByID(ctx context.Context, id string) (*entity.Adoption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAdoption(a), nil
}

func (r *AdoptionRepository) FindOne(ctx context.Context, f repository.AdoptionFilter) (*entity.Adoption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.byID {
		if adoptionMatches(f, a) {
			return cloneAdoption(a), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *AdoptionRepository) FindPaginated(ctx context.Context, f repository.AdoptionFilter, p repository.Page) (repository.Paginated[*entity.Adoption], error) {
	if err := ctx.Err(); err != nil {
		return repository.Paginated[*entity.Adoption]{}, err
	}
	r.mu.RLock()
	out := make([]*entity.Adoption, 0, len(r.byID))
	for _, a := range r.byID {
		if adoptionMatches(f, a) {
			out = append(out, cloneAdoption(a))
		}
	}
	r.mu.RUnlock()
	return paginate(out, func(a *entity.Adoption) time.Time { return a.CreatedAt }, p), nil
}

func (r *AdoptionRepository) Insert(ctx context.Context, a *entity.Adoption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[a.ID]; exists {
		return repository.ErrDuplicate
	}
	if a.Status.InFlight() {
		if _, taken := r.inFlight[a.Pet]; taken {
			return repository.ErrDuplicate
		}
		r.inFlight[a.Pet] = a.ID
	}
	r.byID[a.ID] = cloneAdoption(a)
	return nil
}

// apply must run with r.mu held.
func (r *AdoptionRepository) apply(a *entity.Adoption, patch repository.AdoptionPatch) error {
	if patch.Status != nil && *patch.Status != a.Status {
		next := *patch.Status
		if next.InFlight() && !a.Status.InFlight() {
			if owner, taken := r.inFlight[a.Pet]; taken && owner != a.ID {
				return repository.ErrDuplicate
			}
		}
		if a.Status.InFlight() && !next.InFlight() {
			delete(r.inFlight, a.Pet)
		}
		if next.InFlight() {
			r.inFlight[a.Pet] = a.ID
		}
		a.Status = next
	}
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	if patch.AdoptionFee != nil {
		fee := *patch.AdoptionFee
		a.AdoptionFee = &fee
	}
	if patch.ApprovedAt != nil {
		a.ApprovedAt = cloneTime(patch.ApprovedAt)
	}
	if patch.RejectedAt != nil {
		a.RejectedAt = cloneTime(patch.RejectedAt)
	}
	if patch.CancelledAt != nil {
		a.CancelledAt = cloneTime(patch.CancelledAt)
	}
	if patch.CompletedAt != nil {
		a.CompletedAt = cloneTime(patch.CompletedAt)
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *AdoptionRepository) Patch(ctx context.Context, id string, patch repository.AdoptionPatch) (*entity.Adoption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if err := r.apply(a, patch); err != nil {
		return nil, err
	}
	return cloneAdoption(a), nil
}

func (r *AdoptionRepository) Transition(ctx context.Context, id string, from entity.AdoptionStatus, patch repository.AdoptionPatch) (*entity.Adoption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if a.Status != from {
		return nil, repository.ErrConditionFailed
	}
	if err := r.apply(a, patch); err != nil {
		return nil, err
	}
	return cloneAdoption(a), nil
}

func (r *AdoptionRepository) Delete(ctx context.Context, id string, allowed ...entity.AdoptionStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if len(allowed) > 0 {
		permitted := false
		for _, s := range allowed {
			if a.Status == s {
				permitted = true
				break
			}
		}
		if !permitted {
			return repository.ErrConditionFailed
		}
	}
	if a.Status.InFlight() && r.inFlight[a.Pet] == a.ID {
		delete(r.inFlight, a.Pet)
	}
	delete(r.byID, id)
	return nil
}

func (r *AdoptionRepository) Count(ctx context.Context, f repository.AdoptionFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, a := range r.byID {
		if adoptionMatches(f, a) {
			n++
		}
	}
	return n, nil
}

func (r *AdoptionRepository) FindInFlightForPet(ctx context.Context, petID string) (*entity.Adoption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.inFlight[petID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAdoption(r.byID[id]), nil
}

func (r *AdoptionRepository) FindUserAdoptions(ctx context.Context, userID string, status entity.AdoptionStatus, p repository.Page) (repository.Paginated[*entity.Adoption], error) {
	return r.FindPaginated(ctx, repository.AdoptionFilter{Owner: userID, Status: status}, p)
}

var _ repository.AdoptionRepository = (*AdoptionRepository)(nil)
