package application

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

func TestMockGeneration(t *testing.T) {
	f := newFixture(t)
	svc := NewMockService(f.store.Users, f.store.Pets, nil)
	svc.HashCost = bcrypt.MinCost

	pets, err := svc.MockPets(0)
	if err != nil || len(pets) != DefaultMockCount {
		t.Fatalf("default count: %v %d", err, len(pets))
	}
	for _, p := range pets {
		if p.Adopted || p.Owner != "" || !p.Specie.Valid() || !helpers.IsValidID(p.ID) {
			t.Fatalf("bad mock pet: %+v", p)
		}
	}
	_, err = svc.MockPets(MaxMockCount + 1)
	wantKind(t, err, apperror.KindValidation)

	users, err := svc.MockUsers(3)
	if err != nil || len(users) != 3 {
		t.Fatal(err)
	}
	for _, u := range users {
		if !helpers.CompareHashAndPassword(u.Password, MockPassword) || len(u.Pets) != 0 {
			t.Fatalf("bad mock user: %+v", u)
		}
		if u.Role != entity.RoleUser && u.Role != entity.RoleAdmin {
			t.Fatalf("role = %s", u.Role)
		}
	}
}

func TestGenerateData(t *testing.T) {
	f := newFixture(t)
	svc := NewMockService(f.store.Users, f.store.Pets, nil)
	svc.HashCost = bcrypt.MinCost
	ctx := context.Background()

	_, err := svc.GenerateData(ctx, f.admin, GenerateDataInput{})
	wantKind(t, err, apperror.KindValidation)
	_, err = svc.GenerateData(ctx, f.juan, GenerateDataInput{Pets: 1})
	wantKind(t, err, apperror.KindForbidden)

	res, err := svc.GenerateData(ctx, f.admin, GenerateDataInput{Users: 5, Pets: 7})
	if err != nil || res.Users != 5 || res.Pets != 7 {
		t.Fatalf("%v %+v", err, res)
	}
	n, _ := f.store.Pets.Count(ctx, repo.PetFilter{})
	if n != 8 {
		t.Fatalf("pets stored = %d", n)
	}
}
