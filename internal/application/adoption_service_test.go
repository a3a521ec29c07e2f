package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/internal/infrastructure/memory"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.AdoptionEvent
}

func (p *recordingPublisher) PublishAdoption(_ context.Context, ev entity.AdoptionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	store  *memory.Store
	svc    *AdoptionService
	events *recordingPublisher
	admin  entity.Subject
	juan   entity.Subject
	maria  entity.Subject
	pet    *entity.Pet
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{store: store, events: &recordingPublisher{}}
	f.admin = addUser(t, store, "admin@test.com", entity.RoleAdmin)
	f.juan = addUser(t, store, "juan@test.com", entity.RoleUser)
	f.maria = addUser(t, store, "maria@test.com", entity.RoleUser)
	f.pet = &entity.Pet{ID: helpers.NewID(), Name: "Firulais", Specie: entity.SpeciesDog, Status: entity.PetAvailable, CreatedAt: fixedNow}
	if err := store.Pets.Insert(ctx, f.pet); err != nil {
		t.Fatal(err)
	}
	f.svc = NewAdoptionService(store.Adoptions, store.Pets, store.Users, f.events, nil).
		WithClock(func() time.Time { return fixedNow })
	return f
}

func addUser(t *testing.T, store *memory.Store, email string, role entity.Role) entity.Subject {
	t.Helper()
	u := &entity.User{ID: helpers.NewID(), FirstName: "Test", LastName: "User", Email: email, Role: role, CreatedAt: fixedNow}
	if err := store.Users.Insert(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return entity.Subject{ID: u.ID, Role: role, Email: email, Name: u.FullName()}
}

func (f *fixture) request(t *testing.T) *entity.Adoption {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.juan, f.juan.ID, f.pet.ID, CreateAdoptionInput{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return a
}

func wantKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", kind)
	}
	if got := apperror.KindOf(err); got != kind {
		t.Fatalf("expected %s, got %s (%v)", kind, got, err)
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreatePending(t *testing.T) {
	f := newFixture(t)
	a := f.request(t)
	if a.Status != entity.AdoptionPending {
		t.Fatalf("status = %s", a.Status)
	}
	pet, _ := f.store.Pets.FindByID(context.Background(), f.pet.ID)
	if pet.Adopted || pet.Owner != "" {
		t.Fatal("creating a request must not adopt the pet")
	}
	if got := f.events.types(); len(got) != 1 || got[0] != entity.EventAdoptionRequested {
		t.Fatalf("events = %v", got)
	}
}

func TestHappyPathApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.request(t)

	approved, err := f.svc.Update(ctx, f.admin, a.ID, UpdateAdoptionInput{Status: ptr(entity.AdoptionApproved)})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != entity.AdoptionApproved || approved.ApprovedAt == nil || approved.Notes != defaultApproveNote {
		t.Fatalf("unexpected adoption: %+v", approved)
	}
	pet, _ := f.store.Pets.FindByID(ctx, f.pet.ID)
	if !pet.Adopted || pet.Owner != f.juan.ID || pet.Status != entity.PetAdopted {
		t.Fatalf("pet not flipped: %+v", pet)
	}
	user, _ := f.store.Users.FindByID(ctx, f.juan.ID)
	if !user.OwnsPet(f.pet.ID) {
		t.Fatalf("user pets = %v", user.Pets)
	}

	// approving again is a no-op on the owned-set
	if _, err := f.svc.Approve(ctx, f.admin, a.ID, nil); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	user, _ = f.store.Users.FindByID(ctx, f.juan.ID)
	if len(user.Pets) != 1 {
		t.Fatalf("pets duplicated: %v", user.Pets)
	}

	completed, err := f.svc.Complete(ctx, f.admin, a.ID, nil)
	if err != nil || completed.Status != entity.AdoptionCompleted || completed.CompletedAt == nil {
		t.Fatalf("complete: %v %+v", err, completed)
	}
}

func TestConcurrentCreateSinglePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	subjects := make([]entity.Subject, 8)
	for i := range subjects {
		subjects[i] = addUser(t, f.store, helpers.NewID()+"@test.com", entity.RoleUser)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(subjects))
	for i, s := range subjects {
		wg.Add(1)
		go func(i int, s entity.Subject) {
			defer wg.Done()
			_, errs[i] = f.svc.Create(ctx, s, s.ID, f.pet.ID, CreateAdoptionInput{})
		}(i, s)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		wantKind(t, err, apperror.KindConflictInFlight)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	if _, err := f.store.Adoptions.FindInFlightForPet(ctx, f.pet.ID); err != nil {
		t.Fatalf("in-flight lookup: %v", err)
	}
}

func TestCreateRules(t *testing.T) {
	ctx := context.Background()
	t.Run("adopted pet", func(t *testing.T) {
		f := newFixture(t)
		_, _ = f.store.Pets.Patch(ctx, f.pet.ID, repo.PetPatch{Adopted: ptr(true), Owner: ptr(f.maria.ID)})
		_, err := f.svc.Create(ctx, f.juan, f.juan.ID, f.pet.ID, CreateAdoptionInput{})
		wantKind(t, err, apperror.KindPetAlreadyAdopted)
	})
	t.Run("other user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.maria, f.juan.ID, f.pet.ID, CreateAdoptionInput{})
		wantKind(t, err, apperror.KindForbidden)
	})
	t.Run("unknown pet", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.juan, f.juan.ID, helpers.NewID(), CreateAdoptionInput{})
		wantKind(t, err, apperror.KindNotFound)
	})
	t.Run("long notes", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.juan, f.juan.ID, f.pet.ID, CreateAdoptionInput{Notes: ptr(strings.Repeat("a", 501))})
		wantKind(t, err, apperror.KindValidation)
	})
	t.Run("notes at limit", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.svc.Create(ctx, f.juan, f.juan.ID, f.pet.ID, CreateAdoptionInput{Notes: ptr(strings.Repeat("ñ", 500))}); err != nil {
			t.Fatal(err)
		}
	})
	t.Run("negative fee", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Create(ctx, f.juan, f.juan.ID, f.pet.ID, CreateAdoptionInput{AdoptionFee: ptr(-1.0)})
		wantKind(t, err, apperror.KindValidation)
	})
	t.Run("after cancel", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		if _, err := f.svc.Cancel(ctx, f.juan, a.ID, nil); err != nil {
			t.Fatal(err)
		}
		if _, err := f.svc.Create(ctx, f.juan, f.juan.ID, f.pet.ID, CreateAdoptionInput{}); err != nil {
			t.Fatalf("new request after cancel: %v", err)
		}
	})
}

func TestStateMachine(t *testing.T) {
	type action func(f *fixture, a *entity.Adoption) error
	approve := func(f *fixture, a *entity.Adoption) error {
		_, err := f.svc.Approve(context.Background(), f.admin, a.ID, nil)
		return err
	}
	reject := func(f *fixture, a *entity.Adoption) error {
		_, err := f.svc.Reject(context.Background(), f.admin, a.ID, nil)
		return err
	}
	cancel := func(f *fixture, a *entity.Adoption) error {
		_, err := f.svc.Cancel(context.Background(), f.admin, a.ID, nil)
		return err
	}
	complete := func(f *fixture, a *entity.Adoption) error {
		_, err := f.svc.Complete(context.Background(), f.admin, a.ID, nil)
		return err
	}
	del := func(f *fixture, a *entity.Adoption) error {
		return f.svc.Delete(context.Background(), f.admin, a.ID)
	}
	// setup moves a fresh pending adoption into the starting state
	setups := map[entity.AdoptionStatus][]action{
		entity.AdoptionPending:   nil,
		entity.AdoptionApproved:  {approve},
		entity.AdoptionRejected:  {reject},
		entity.AdoptionCancelled: {cancel},
		entity.AdoptionCompleted: {approve, complete},
	}
	tests := []struct {
		from entity.AdoptionStatus
		name string
		act  action
		ok   bool
	}{
		{entity.AdoptionPending, "approve", approve, true},
		{entity.AdoptionPending, "reject", reject, true},
		{entity.AdoptionPending, "cancel", cancel, true},
		{entity.AdoptionPending, "complete", complete, false},
		{entity.AdoptionPending, "delete", del, true},
		{entity.AdoptionApproved, "approve", approve, true},
		{entity.AdoptionApproved, "reject", reject, false},
		{entity.AdoptionApproved, "cancel", cancel, false},
		{entity.AdoptionApproved, "complete", complete, true},
		{entity.AdoptionApproved, "delete", del, false},
		{entity.AdoptionRejected, "approve", approve, false},
		{entity.AdoptionRejected, "cancel", cancel, false},
		{entity.AdoptionRejected, "delete", del, true},
		{entity.AdoptionCancelled, "approve", approve, false},
		{entity.AdoptionCancelled, "reject", reject, false},
		{entity.AdoptionCancelled, "delete", del, false},
		{entity.AdoptionCompleted, "approve", approve, false},
		{entity.AdoptionCompleted, "cancel", cancel, false},
		{entity.AdoptionCompleted, "complete", complete, false},
		{entity.AdoptionCompleted, "delete", del, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+tt.name, func(t *testing.T) {
			f := newFixture(t)
			a := f.request(t)
			for _, step := range setups[tt.from] {
				if err := step(f, a); err != nil {
					t.Fatalf("setup: %v", err)
				}
			}
			before, _ := f.store.Adoptions.FindByID(context.Background(), a.ID)
			err := tt.act(f, a)
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			wantKind(t, err, apperror.KindInvalidTransition)
			after, _ := f.store.Adoptions.FindByID(context.Background(), a.ID)
			if after.Status != before.Status {
				t.Fatalf("status changed from %s to %s", before.Status, after.Status)
			}
		})
	}
}

func TestUpdateDispatch(t *testing.T) {
	ctx := context.Background()
	t.Run("owner cannot approve", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		_, err := f.svc.Update(ctx, f.juan, a.ID, UpdateAdoptionInput{Status: ptr(entity.AdoptionApproved)})
		wantKind(t, err, apperror.KindForbidden)
		got, _ := f.store.Adoptions.FindByID(ctx, a.ID)
		if got.Status != entity.AdoptionPending {
			t.Fatalf("status = %s", got.Status)
		}
	})
	t.Run("owner cancels through status", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		got, err := f.svc.Update(ctx, f.juan, a.ID, UpdateAdoptionInput{Status: ptr(entity.AdoptionCancelled)})
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != entity.AdoptionCancelled || got.Notes != defaultCancelNote || got.CancelledAt == nil {
			t.Fatalf("unexpected: %+v", got)
		}
		pet, _ := f.store.Pets.FindByID(ctx, f.pet.ID)
		user, _ := f.store.Users.FindByID(ctx, f.juan.ID)
		if pet.Adopted || len(user.Pets) != 0 {
			t.Fatal("cancel must not touch pet or user")
		}
	})
	t.Run("stranger cannot patch notes", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		_, err := f.svc.Update(ctx, f.maria, a.ID, UpdateAdoptionInput{Notes: ptr("hola")})
		wantKind(t, err, apperror.KindForbidden)
	})
	t.Run("owner patches notes", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		got, err := f.svc.Update(ctx, f.juan, a.ID, UpdateAdoptionInput{Notes: ptr("tengo jardín")})
		if err != nil || got.Notes != "tengo jardín" {
			t.Fatalf("%v %+v", err, got)
		}
	})
	t.Run("owner cannot set fee", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		_, err := f.svc.Update(ctx, f.juan, a.ID, UpdateAdoptionInput{AdoptionFee: ptr(10.0)})
		wantKind(t, err, apperror.KindForbidden)
	})
	t.Run("notes on terminal", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		_, _ = f.svc.Reject(ctx, f.admin, a.ID, nil)
		_, err := f.svc.Update(ctx, f.admin, a.ID, UpdateAdoptionInput{Notes: ptr("x")})
		wantKind(t, err, apperror.KindInvalidTransition)
	})
	t.Run("back to pending", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		_, err := f.svc.Update(ctx, f.admin, a.ID, UpdateAdoptionInput{Status: ptr(entity.AdoptionPending)})
		wantKind(t, err, apperror.KindInvalidTransition)
	})
	t.Run("unknown status", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		_, err := f.svc.Update(ctx, f.admin, a.ID, UpdateAdoptionInput{Status: ptr(entity.AdoptionStatus("archived"))})
		wantKind(t, err, apperror.KindValidation)
	})
	t.Run("empty body", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		_, err := f.svc.Update(ctx, f.admin, a.ID, UpdateAdoptionInput{})
		wantKind(t, err, apperror.KindValidation)
	})
	t.Run("fee with cancel or complete", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		_, err := f.svc.Update(ctx, f.admin, a.ID, UpdateAdoptionInput{Status: ptr(entity.AdoptionCancelled), AdoptionFee: ptr(5.0)})
		wantKind(t, err, apperror.KindValidation)
		if _, err := f.svc.Approve(ctx, f.admin, a.ID, nil); err != nil {
			t.Fatal(err)
		}
		_, err = f.svc.Update(ctx, f.admin, a.ID, UpdateAdoptionInput{Status: ptr(entity.AdoptionCompleted), AdoptionFee: ptr(5.0)})
		wantKind(t, err, apperror.KindValidation)
		got, _ := f.store.Adoptions.FindByID(ctx, a.ID)
		if got.Status != entity.AdoptionApproved || got.AdoptionFee != nil {
			t.Fatalf("unexpected: %+v", got)
		}
	})
	t.Run("fee with approve", func(t *testing.T) {
		f := newFixture(t)
		a := f.request(t)
		got, err := f.svc.Update(ctx, f.admin, a.ID, UpdateAdoptionInput{Status: ptr(entity.AdoptionApproved), AdoptionFee: ptr(5.0)})
		if err != nil || got.AdoptionFee == nil || *got.AdoptionFee != 5 {
			t.Fatalf("%v %+v", err, got)
		}
	})
}

func TestApproveWithoutOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.request(t)
	if err := f.store.Users.Delete(ctx, f.juan.ID); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Approve(ctx, f.admin, a.ID, nil)
	wantKind(t, err, apperror.KindNotFound)

	got, _ := f.store.Adoptions.FindByID(ctx, a.ID)
	pet, _ := f.store.Pets.FindByID(ctx, f.pet.ID)
	if got.Status != entity.AdoptionPending || pet.Adopted || pet.Owner != "" {
		t.Fatalf("adoption %s, pet adopted=%v owner=%q", got.Status, pet.Adopted, pet.Owner)
	}
}

func TestDeleteNamesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.request(t)
	_, _ = f.svc.Approve(ctx, f.admin, a.ID, nil)

	err := f.svc.Delete(ctx, f.admin, a.ID)
	wantKind(t, err, apperror.KindInvalidTransition)
	if !strings.Contains(err.Error(), "approved") {
		t.Fatalf("message should name the state: %v", err)
	}

	other := &entity.Pet{ID: helpers.NewID(), Name: "Michi", Specie: entity.SpeciesCat, Status: entity.PetAvailable}
	_ = f.store.Pets.Insert(ctx, other)
	p, err := f.svc.Create(ctx, f.maria, f.maria.ID, other.ID, CreateAdoptionInput{})
	if err != nil {
		t.Fatal(err)
	}
	wantKind(t, f.svc.Delete(ctx, f.maria, p.ID), apperror.KindForbidden)
	if err := f.svc.Delete(ctx, f.admin, p.ID); err != nil {
		t.Fatalf("delete pending: %v", err)
	}
	wantKind(t, f.svc.Delete(ctx, f.admin, p.ID), apperror.KindNotFound)
}

func TestReadAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.request(t)

	if _, err := f.svc.Get(ctx, f.juan, a.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	_, err := f.svc.Get(ctx, f.maria, a.ID)
	wantKind(t, err, apperror.KindForbidden)
	_, err = f.svc.Get(ctx, entity.Subject{}, a.ID)
	wantKind(t, err, apperror.KindUnauthenticated)

	_, err = f.svc.ListForUser(ctx, f.maria, f.juan.ID, ListAdoptionsInput{})
	wantKind(t, err, apperror.KindForbidden)
	page, err := f.svc.ListForUser(ctx, f.admin, f.juan.ID, ListAdoptionsInput{})
	if err != nil || page.Total != 1 {
		t.Fatalf("admin list: %v total=%d", err, page.Total)
	}
	_, err = f.svc.ListForUser(ctx, f.admin, helpers.NewID(), ListAdoptionsInput{})
	wantKind(t, err, apperror.KindNotFound)
	_, err = f.svc.List(ctx, f.juan, ListAdoptionsInput{Status: "archived"})
	wantKind(t, err, apperror.KindValidation)
}

// countingAdoptions fails the test if the engine touches the store.
type countingAdoptions struct {
	repo.AdoptionRepository
	calls int
}

func (c *countingAdoptions) FindByID(ctx context.Context, id string) (*entity.Adoption, error) {
	c.calls++
	return c.AdoptionRepository.FindByID(ctx, id)
}

func TestInvalidIDBeforeStore(t *testing.T) {
	f := newFixture(t)
	counting := &countingAdoptions{AdoptionRepository: f.store.Adoptions}
	f.svc.Adoptions = counting
	ctx := context.Background()

	_, err := f.svc.Get(ctx, f.admin, "not-an-id")
	wantKind(t, err, apperror.KindInvalidID)
	wantKind(t, f.svc.Delete(ctx, f.admin, "123"), apperror.KindInvalidID)
	_, err = f.svc.Update(ctx, f.admin, "zzzzzzzzzzzzzzzzzzzzzzzz", UpdateAdoptionInput{Notes: ptr("x")})
	wantKind(t, err, apperror.KindInvalidID)
	_, err = f.svc.Create(ctx, f.juan, f.juan.ID, "bad", CreateAdoptionInput{})
	wantKind(t, err, apperror.KindInvalidID)
	if counting.calls != 0 {
		t.Fatalf("store called %d times", counting.calls)
	}
}

// flakyPets fails Patch a fixed number of times.
type flakyPets struct {
	repo.PetRepository
	failures int
}

func (p *flakyPets) Patch(ctx context.Context, id string, patch repo.PetPatch) (*entity.Pet, error) {
	if p.failures > 0 {
		p.failures--
		return nil, errors.New("connection reset")
	}
	return p.PetRepository.Patch(ctx, id, patch)
}

func TestApprovalReadRepair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.request(t)
	f.svc.Pets = &flakyPets{PetRepository: f.store.Pets, failures: 1}

	_, err := f.svc.Approve(ctx, f.admin, a.ID, nil)
	wantKind(t, err, apperror.KindInternal)

	stored, _ := f.store.Adoptions.FindByID(ctx, a.ID)
	if stored.Status != entity.AdoptionApproved {
		t.Fatalf("adoption status = %s, the first write must stick", stored.Status)
	}
	pet, _ := f.store.Pets.FindByID(ctx, f.pet.ID)
	if pet.Adopted {
		t.Fatal("pet flip was expected to fail")
	}

	if _, err := f.svc.Get(ctx, f.juan, a.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	pet, _ = f.store.Pets.FindByID(ctx, f.pet.ID)
	user, _ := f.store.Users.FindByID(ctx, f.juan.ID)
	if !pet.Adopted || pet.Owner != f.juan.ID || !user.OwnsPet(pet.ID) {
		t.Fatalf("read-repair did not converge: pet=%+v pets=%v", pet, user.Pets)
	}
}

func TestCancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Create(ctx, f.juan, f.juan.ID, f.pet.ID, CreateAdoptionInput{})
	wantKind(t, err, apperror.KindInternal)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cause should be context.Canceled: %v", err)
	}
	n, _ := f.store.Adoptions.Count(context.Background(), repo.AdoptionFilter{})
	if n != 0 {
		t.Fatalf("adoptions = %d", n)
	}
}
