package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
	}
}

func cloneUser(u *entity.User) *entity.User {
	c := *u
	c.Pets = append([]string(nil), u.Pets...)
	c.Documents = append([]entity.Document(nil), u.Documents...)
	c.LastConnection = cloneTime(u.LastConnection)
	c.LockUntil = cloneTime(u.LockUntil)
	return &c
}

type userMatch repository.UserFilter

func (f userMatch) match(u *entity.User) bool {
	if f.Email != "" && u.Email != entity.NormalizeEmail(f.Email) {
		return false
	}
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	return true
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindOne(ctx context.Context, f repository.UserFilter) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f.Email != "" {
		id, ok := r.byEmail[entity.NormalizeEmail(f.Email)]
		if !ok || !userMatch(f).match(r.byID[id]) {
			return nil, repository.ErrNotFound
		}
		return cloneUser(r.byID[id]), nil
	}
	for _, u := range r.byID {
		if userMatch(f).match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) FindPaginated(ctx context.Context, f repository.UserFilter, p repository.Page) (repository.Paginated[*entity.User], error) {
	if err := ctx.Err(); err != nil {
		return repository.Paginated[*entity.User]{}, err
	}
	r.mu.RLock()
	out := make([]*entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		if userMatch(f).match(u) {
			out = append(out, cloneUser(u))
		}
	}
	r.mu.RUnlock()
	return paginate(out, func(u *entity.User) time.Time { return u.CreatedAt }, p), nil
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = entity.NormalizeEmail(u.Email)
	if _, exists := r.byID[u.ID]; exists {
		return repository.ErrDuplicate
	}
	if _, taken := r.byEmail[u.Email]; taken {
		return repository.ErrDuplicate
	}
	r.byID[u.ID] = cloneUser(u)
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) Patch(ctx context.Context, id string, patch repository.UserPatch) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Email != nil {
		email := entity.NormalizeEmail(*patch.Email)
		if owner, taken := r.byEmail[email]; taken && owner != id {
			return nil, repository.ErrDuplicate
		}
		delete(r.byEmail, u.Email)
		u.Email = email
		r.byEmail[email] = id
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.Role != nil {
		u.Role = *patch.Role
	}
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

func (r *UserRepository) Count(ctx context.Context, f repository.UserFilter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, u := range r.byID {
		if userMatch(f).match(u) {
			n++
		}
	}
	return n, nil
}

func (r *UserRepository) PushPet(ctx context.Context, userID, petID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if !u.OwnsPet(petID) {
		u.Pets = append(u.Pets, petID)
		u.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *UserRepository) AddDocument(ctx context.Context, userID string, doc entity.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	if len(u.Documents) >= entity.MaxDocuments {
		return repository.ErrConditionFailed
	}
	u.Documents = append(u.Documents, doc)
	return nil
}

func (r *UserRepository) RemoveDocument(ctx context.Context, userID, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for i, d := range u.Documents {
		if d.ID == docID {
			u.Documents = append(u.Documents[:i], u.Documents[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *UserRepository) TouchLastConnection(ctx context.Context, id string, at time.Time) error {
	return r.mutate(ctx, id, func(u *entity.User) { u.LastConnection = &at })
}

func (r *UserRepository) SetFailedLogins(ctx context.Context, id string, attempts int) error {
	return r.mutate(ctx, id, func(u *entity.User) { u.FailedLoginAttempts = attempts })
}

func (r *UserRepository) mutate(ctx context.Context, id string, fn func(*entity.User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
