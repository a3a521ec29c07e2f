package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

func newAdoption(pet string, status entity.AdoptionStatus) *entity.Adoption {
	now := time.Now().UTC()
	return &entity.Adoption{ID: helpers.NewID(), Owner: helpers.NewID(), Pet: pet, Status: status, CreatedAt: now, UpdatedAt: now}
}

func TestAdoptionInFlightUniqueness(t *testing.T) {
	ctx := context.Background()
	r := NewAdoptionRepository()
	pet := helpers.NewID()

	first := newAdoption(pet, entity.AdoptionPending)
	if err := r.Insert(ctx, first); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := r.Insert(ctx, newAdoption(pet, entity.AdoptionPending)); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("second in-flight insert: got %v, want ErrDuplicate", err)
	}
	// a terminal adoption for the same pet does not take the slot
	if err := r.Insert(ctx, newAdoption(pet, entity.AdoptionRejected)); err != nil {
		t.Fatalf("terminal insert: %v", err)
	}

	cancelled := entity.AdoptionCancelled
	if _, err := r.Transition(ctx, first.ID, entity.AdoptionPending, repository.AdoptionPatch{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := r.FindInFlightForPet(ctx, pet); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("slot must be free after cancel, got %v", err)
	}
	if err := r.Insert(ctx, newAdoption(pet, entity.AdoptionPending)); err != nil {
		t.Fatalf("insert after cancel: %v", err)
	}
}

func TestAdoptionConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	r := NewAdoptionRepository()
	pet := helpers.NewID()

	const n = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, dup := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.Insert(ctx, newAdoption(pet, entity.AdoptionPending))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrDuplicate):
				dup++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 || dup != n-1 {
		t.Fatalf("ok=%d dup=%d", ok, dup)
	}
	if c, _ := r.Count(ctx, repository.AdoptionFilter{Pet: pet, Status: entity.AdoptionPending}); c != 1 {
		t.Fatalf("pending count = %d", c)
	}
}

func TestAdoptionTransitionGuard(t *testing.T) {
	ctx := context.Background()
	r := NewAdoptionRepository()
	a := newAdoption(helpers.NewID(), entity.AdoptionPending)
	_ = r.Insert(ctx, a)

	approved := entity.AdoptionApproved
	if _, err := r.Transition(ctx, a.ID, entity.AdoptionRejected, repository.AdoptionPatch{Status: &approved}); !errors.Is(err, repository.ErrConditionFailed) {
		t.Fatalf("got %v, want ErrConditionFailed", err)
	}
	if _, err := r.Transition(ctx, helpers.NewID(), entity.AdoptionPending, repository.AdoptionPatch{}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestAdoptionDeleteAllowedStatuses(t *testing.T) {
	ctx := context.Background()
	r := NewAdoptionRepository()
	a := newAdoption(helpers.NewID(), entity.AdoptionApproved)
	_ = r.Insert(ctx, a)

	if err := r.Delete(ctx, a.ID, entity.AdoptionPending, entity.AdoptionRejected); !errors.Is(err, repository.ErrConditionFailed) {
		t.Fatalf("got %v", err)
	}
	if err := r.Delete(ctx, a.ID); err != nil {
		t.Fatalf("unconditional delete: %v", err)
	}
	if _, err := r.FindInFlightForPet(ctx, a.Pet); !errors.Is(err, repository.ErrNotFound) {
		t.Fatal("slot must be released on delete")
	}
}

func TestUserEmailUniqueCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()
	u := &entity.User{ID: helpers.NewID(), Email: "Juan@Test.com", Role: entity.RoleUser}
	if err := r.Insert(ctx, u); err != nil {
		t.Fatal(err)
	}
	if u.Email != "juan@test.com" {
		t.Fatalf("email not normalized: %s", u.Email)
	}
	if err := r.Insert(ctx, &entity.User{ID: helpers.NewID(), Email: "JUAN@test.com"}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("got %v, want ErrDuplicate", err)
	}
	got, err := r.FindOne(ctx, repository.UserFilter{Email: " juan@TEST.com "})
	if err != nil || got.ID != u.ID {
		t.Fatalf("lookup by email: %v", err)
	}
}

func TestUserPushPetIdempotent(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepository()
	u := &entity.User{ID: helpers.NewID(), Email: "a@b.com"}
	_ = r.Insert(ctx, u)
	pet := helpers.NewID()
	for i := 0; i < 3; i++ {
		if err := r.PushPet(ctx, u.ID, pet); err != nil {
			t.Fatal(err)
		}
	}
	got, _ := r.FindByID(ctx, u.ID)
	if len(got.Pets) != 1 || got.Pets[0] != pet {
		t.Fatalf("pets = %v", got.Pets)
	}
}

func TestPetDeleteRefusesAdopted(t *testing.T) {
	ctx := context.Background()
	r := NewPetRepository()
	p := &entity.Pet{ID: helpers.NewID(), Name: "Firulais", Specie: entity.SpeciesDog, Status: entity.PetAvailable}
	_ = r.Insert(ctx, p)
	adopted := true
	if _, err := r.Patch(ctx, p.ID, repository.PetPatch{Adopted: &adopted}); err != nil {
		t.Fatal(err)
	}
	if err := r.Delete(ctx, p.ID); !errors.Is(err, repository.ErrConditionFailed) {
		t.Fatalf("got %v", err)
	}
}

func TestPaginationNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewPetRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_ = r.Insert(ctx, &entity.Pet{ID: helpers.NewID(), Name: "p", CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	page, err := r.FindPaginated(ctx, repository.PetFilter{}, repository.Page{Page: 2, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 5 || len(page.Items) != 2 || page.Pages() != 3 {
		t.Fatalf("total=%d items=%d pages=%d", page.Total, len(page.Items), page.Pages())
	}
	if !page.Items[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("unexpected order: %v", page.Items[0].CreatedAt)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewPetRepository().FindByID(ctx, helpers.NewID()); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v", err)
	}
}
