package application

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/policy"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
	"github.com/oksasatya/go-adoptme/pkg/validation"
)

const maxSearchResults = 50

// PetService manages the pet catalogue. Adoption state (adopted, owner) is
// left to AdoptionService.
type PetService struct {
	Pets    repo.PetRepository
	Files   ObjectStore
	Indexer PetIndexer
	Logger  logrus.FieldLogger

	now func() time.Time
}

func NewPetService(pets repo.PetRepository, files ObjectStore, indexer PetIndexer, logger logrus.FieldLogger) *PetService {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &PetService{Pets: pets, Files: files, Indexer: indexer, Logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

type CreatePetInput struct {
	Name        string           `json:"name" validate:"required,min=2,max=50"`
	Specie      entity.Species   `json:"specie" validate:"required,oneof=perro gato conejo ave roedor otro"`
	Breed       string           `json:"breed" validate:"max=100"`
	BirthDate   *time.Time       `json:"birthDate" validate:"omitempty,notfuture"`
	Image       string           `json:"image" validate:"imageref"`
	Description string           `json:"description" validate:"max=500"`
	Location    *entity.Location `json:"location"`
}

type UpdatePetInput struct {
	Name        *string           `json:"name" validate:"omitempty,min=2,max=50"`
	Breed       *string           `json:"breed" validate:"omitempty,max=100"`
	BirthDate   *time.Time        `json:"birthDate" validate:"omitempty,notfuture"`
	Image       *string           `json:"image" validate:"omitempty,imageref"`
	Description *string           `json:"description" validate:"omitempty,max=500"`
	Location    *entity.Location  `json:"location"`
	Status      *entity.PetStatus `json:"status" validate:"omitempty,oneof=available reserved pending"`
}

func (in UpdatePetInput) empty() bool {
	return in.Name == nil && in.Breed == nil && in.BirthDate == nil && in.Image == nil &&
		in.Description == nil && in.Location == nil && in.Status == nil
}

type PetListInput struct {
	Specie  entity.Species
	Status  entity.PetStatus
	Adopted *bool
	Page    repo.Page
}

func (s *PetService) List(ctx context.Context, in PetListInput) (repo.Paginated[*entity.Pet], error) {
	var empty repo.Paginated[*entity.Pet]
	fields := map[string]string{}
	if in.Specie != "" && !in.Specie.Valid() {
		fields["specie"] = "must be one of perro, gato, conejo, ave, roedor, otro"
	}
	if in.Status != "" && !in.Status.Valid() {
		fields["status"] = "must be one of available, adopted, reserved, pending"
	}
	if len(fields) > 0 {
		return empty, apperror.Validation("invalid filter", fields)
	}
	page, err := s.Pets.FindPaginated(ctx, repo.PetFilter{Specie: in.Specie, Status: in.Status, Adopted: in.Adopted}, in.Page)
	if err != nil {
		return empty, apperror.Internal(err)
	}
	return page, nil
}

func (s *PetService) Get(ctx context.Context, id string) (*entity.Pet, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	p, err := s.Pets.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "pet not found")
	}
	return p, nil
}

// Search queries the index and loads the hits from the store, skipping ids
// the store no longer has.
func (s *PetService) Search(ctx context.Context, q string, size int) ([]*entity.Pet, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.Validation("query is required", map[string]string{"q": "is required"})
	}
	if s.Indexer == nil {
		return []*entity.Pet{}, nil
	}
	if size <= 0 || size > maxSearchResults {
		size = 10
	}
	ids, err := s.Indexer.SearchPets(ctx, q, size)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	out := make([]*entity.Pet, 0, len(ids))
	for _, id := range ids {
		p, err := s.Pets.FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperror.Internal(err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *PetService) Create(ctx context.Context, subj entity.Subject, in CreatePetInput) (*entity.Pet, error) {
	if !policy.CanManagePets(subj) {
		return nil, deny(subj)
	}
	return s.create(ctx, in)
}

func (s *PetService) create(ctx context.Context, in CreatePetInput) (*entity.Pet, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Breed = strings.TrimSpace(in.Breed)
	if details := validation.Struct(in); details != nil {
		return nil, apperror.Validation("invalid payload", details)
	}
	now := s.now()
	p := &entity.Pet{
		ID:          helpers.NewID(),
		Name:        in.Name,
		Specie:      in.Specie,
		Breed:       in.Breed,
		BirthDate:   in.BirthDate,
		Status:      entity.PetAvailable,
		Image:       in.Image,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Location != nil {
		p.Location = *in.Location
	}
	if err := s.Pets.Insert(ctx, p); err != nil {
		return nil, apperror.Internal(err)
	}
	s.index(ctx, p)
	s.Logger.WithFields(logrus.Fields{"pet_id": p.ID, "specie": p.Specie}).Info("pet created")
	return p, nil
}

// CreateWithImage stores the image first and creates the pet pointing at it.
func (s *PetService) CreateWithImage(ctx context.Context, subj entity.Subject, in CreatePetInput, img Upload) (*entity.Pet, error) {
	if !policy.CanManagePets(subj) {
		return nil, deny(subj)
	}
	if img.Body == nil {
		return nil, apperror.Validation("image is required", map[string]string{"image": "is required"})
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return nil, apperror.Validation("image must be an image file", map[string]string{"image": "must be an image"})
	}
	if s.Files == nil {
		return nil, errStorageNotConfigured
	}
	objectPath := path.Join("pets", uuid.NewString()+strings.ToLower(path.Ext(SanitizeFileName(img.Name))))
	ref, err := s.Files.Put(ctx, objectPath, img.ContentType, img.Body)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("store pet image: %w", err))
	}
	in.Image = ref
	p, err := s.create(ctx, in)
	if err != nil {
		_ = s.Files.Delete(ctx, objectPath)
		return nil, err
	}
	return p, nil
}

func (s *PetService) Update(ctx context.Context, subj entity.Subject, id string, in UpdatePetInput) (*entity.Pet, error) {
	if err := checkIDs(id); err != nil {
		return nil, err
	}
	if !policy.CanManagePets(subj) {
		return nil, deny(subj)
	}
	if in.empty() {
		return nil, apperror.Validation("no fields to update", nil)
	}
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
	}
	if details := validation.Struct(in); details != nil {
		return nil, apperror.Validation("invalid payload", details)
	}
	current, err := s.Pets.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "pet not found")
	}
	if in.Status != nil && current.Adopted {
		return nil, apperror.PetAlreadyAdopted("status of an adopted pet cannot change")
	}
	p, err := s.Pets.Patch(ctx, id, repo.PetPatch{
		Name:        in.Name,
		Breed:       in.Breed,
		BirthDate:   in.BirthDate,
		Image:       in.Image,
		Description: in.Description,
		Location:    in.Location,
		Status:      in.Status,
	})
	if err != nil {
		return nil, storeErr(err, "pet not found")
	}
	s.index(ctx, p)
	return p, nil
}

func (s *PetService) Delete(ctx context.Context, subj entity.Subject, id string) error {
	if err := checkIDs(id); err != nil {
		return err
	}
	if !policy.CanManagePets(subj) {
		return deny(subj)
	}
	if err := s.Pets.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrConditionFailed) {
			return apperror.PetAlreadyAdopted("an adopted pet cannot be deleted")
		}
		return storeErr(err, "pet not found")
	}
	if s.Indexer != nil {
		if err := s.Indexer.DeletePet(ctx, id); err != nil {
			s.Logger.WithError(err).WithField("pet_id", id).Warn("remove pet from index failed")
		}
	}
	s.Logger.WithField("pet_id", id).Info("pet deleted")
	return nil
}

func (s *PetService) index(ctx context.Context, p *entity.Pet) {
	if s.Indexer == nil {
		return
	}
	if err := s.Indexer.IndexPet(ctx, p); err != nil {
		s.Logger.WithError(err).WithField("pet_id", p.ID).Warn("index pet failed")
	}
}
