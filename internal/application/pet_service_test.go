package application

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

var pageOne = repo.Page{Page: 1, Limit: 10}

type fakeIndex struct {
	docs map[string]*entity.Pet
}

func (x *fakeIndex) IndexPet(_ context.Context, p *entity.Pet) error {
	if x.docs == nil {
		x.docs = map[string]*entity.Pet{}
	}
	x.docs[p.ID] = p
	return nil
}

func (x *fakeIndex) DeletePet(_ context.Context, id string) error {
	delete(x.docs, id)
	return nil
}

func (x *fakeIndex) SearchPets(_ context.Context, q string, _ int) ([]string, error) {
	var ids []string
	for id, p := range x.docs {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(q)) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func TestPetCreateValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewPetService(f.store.Pets, nil, nil, nil)
	ctx := context.Background()
	future := time.Now().Add(48 * time.Hour)

	tests := []struct {
		name  string
		in    CreatePetInput
		field string
	}{
		{"short name", CreatePetInput{Name: "A", Specie: entity.SpeciesDog}, "name"},
		{"unknown specie", CreatePetInput{Name: "Rex", Specie: "dragón"}, "specie"},
		{"future birth", CreatePetInput{Name: "Rex", Specie: entity.SpeciesDog, BirthDate: &future}, "birthDate"},
		{"bad image", CreatePetInput{Name: "Rex", Specie: entity.SpeciesDog, Image: "ftp://x"}, "image"},
		{"long description", CreatePetInput{Name: "Rex", Specie: entity.SpeciesDog, Description: strings.Repeat("x", 501)}, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, f.admin, tt.in)
			wantKind(t, err, apperror.KindValidation)
			if _, ok := apperror.From(err).Fields[tt.field]; !ok {
				t.Fatalf("details %v missing %s", apperror.From(err).Fields, tt.field)
			}
		})
	}

	_, err := svc.Create(ctx, f.juan, CreatePetInput{Name: "Rex", Specie: entity.SpeciesDog})
	wantKind(t, err, apperror.KindForbidden)

	p, err := svc.Create(ctx, f.admin, CreatePetInput{Name: "Rex", Specie: entity.SpeciesDog, Image: "/uploads/rex.png"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Adopted || p.Status != entity.PetAvailable || p.Owner != "" {
		t.Fatalf("new pet = %+v", p)
	}
}

func TestPetUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	idx := &fakeIndex{}
	svc := NewPetService(f.store.Pets, nil, idx, nil)
	ctx := context.Background()

	reserved := entity.PetReserved
	p, err := svc.Update(ctx, f.admin, f.pet.ID, UpdatePetInput{Status: &reserved})
	if err != nil || p.Status != entity.PetReserved {
		t.Fatalf("%v %+v", err, p)
	}
	adopted := entity.PetAdopted
	_, err = svc.Update(ctx, f.admin, f.pet.ID, UpdatePetInput{Status: &adopted})
	wantKind(t, err, apperror.KindValidation)

	a := f.request(t)
	if _, err := f.svc.Approve(ctx, f.admin, a.ID, nil); err != nil {
		t.Fatal(err)
	}
	available := entity.PetAvailable
	_, err = svc.Update(ctx, f.admin, f.pet.ID, UpdatePetInput{Status: &available})
	wantKind(t, err, apperror.KindPetAlreadyAdopted)
	wantKind(t, svc.Delete(ctx, f.admin, f.pet.ID), apperror.KindPetAlreadyAdopted)

	other, _ := svc.Create(ctx, f.admin, CreatePetInput{Name: "Pelusa", Specie: entity.SpeciesRabbit})
	if _, ok := idx.docs[other.ID]; !ok {
		t.Fatal("created pet not indexed")
	}
	if err := svc.Delete(ctx, f.admin, other.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.docs[other.ID]; ok {
		t.Fatal("deleted pet still indexed")
	}
	wantKind(t, svc.Delete(ctx, f.admin, other.ID), apperror.KindNotFound)
}

func TestPetListAndSearch(t *testing.T) {
	f := newFixture(t)
	idx := &fakeIndex{}
	svc := NewPetService(f.store.Pets, nil, idx, nil)
	ctx := context.Background()
	michi, _ := svc.Create(ctx, f.admin, CreatePetInput{Name: "Michi", Specie: entity.SpeciesCat})

	page, err := svc.List(ctx, PetListInput{Specie: entity.SpeciesCat, Page: pageOne})
	if err != nil || page.Total != 1 || page.Items[0].ID != michi.ID {
		t.Fatalf("%v %+v", err, page)
	}
	_, err = svc.List(ctx, PetListInput{Specie: "dragón"})
	wantKind(t, err, apperror.KindValidation)

	hits, err := svc.Search(ctx, "mich", 10)
	if err != nil || len(hits) != 1 {
		t.Fatalf("search: %v %d", err, len(hits))
	}
	none, err := NewPetService(f.store.Pets, nil, nil, nil).Search(ctx, "mich", 10)
	if err != nil || len(none) != 0 {
		t.Fatal("search without an index returns nothing")
	}
	_, err = svc.Get(ctx, "nope")
	wantKind(t, err, apperror.KindInvalidID)
	_, err = svc.Get(ctx, helpers.NewID())
	wantKind(t, err, apperror.KindNotFound)
}

func TestPetWithImage(t *testing.T) {
	f := newFixture(t)
	files := &memFiles{}
	svc := NewPetService(f.store.Pets, files, nil, nil)
	ctx := context.Background()
	img := Upload{Name: "rex.PNG", ContentType: "image/png", Size: 3, Body: bytes.NewBufferString("png")}

	p, err := svc.CreateWithImage(ctx, f.admin, CreatePetInput{Name: "Rex", Specie: entity.SpeciesDog}, img)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(p.Image, "https://storage.test/pets/") || !strings.HasSuffix(p.Image, ".png") {
		t.Fatalf("image = %s", p.Image)
	}

	_, err = svc.CreateWithImage(ctx, f.admin, CreatePetInput{Name: "R", Specie: entity.SpeciesDog},
		Upload{Name: "x.png", ContentType: "image/png", Body: bytes.NewBufferString("png")})
	wantKind(t, err, apperror.KindValidation)
	if len(files.objects) != 1 {
		t.Fatalf("orphan image kept: %d objects", len(files.objects))
	}

	_, err = svc.CreateWithImage(ctx, f.admin, CreatePetInput{Name: "Rex", Specie: entity.SpeciesDog},
		Upload{Name: "x.txt", ContentType: "text/plain", Body: bytes.NewBufferString("txt")})
	wantKind(t, err, apperror.KindValidation)
}
