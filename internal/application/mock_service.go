package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/go-adoptme/internal/domain/apperror"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/policy"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

const (
	MockPassword     = "coder123"
	DefaultMockCount = 50
	MaxMockCount     = 1000
)

// MockService generates fake users and pets, optionally persisting them.
type MockService struct {
	Users    repo.UserRepository
	Pets     repo.PetRepository
	Logger   logrus.FieldLogger
	HashCost int

	hashOnce sync.Once
	hash     string
	hashErr  error
	now      func() time.Time
}

func NewMockService(users repo.UserRepository, pets repo.PetRepository, logger logrus.FieldLogger) *MockService {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &MockService{
		Users:    users,
		Pets:     pets,
		Logger:   logger,
		HashCost: bcrypt.DefaultCost,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// MockCount applies the default and the upper bound to a requested count.
func MockCount(n int) (int, error) {
	if n <= 0 {
		return DefaultMockCount, nil
	}
	if n > MaxMockCount {
		return 0, apperror.Validation(fmt.Sprintf("count must be at most %d", MaxMockCount), map[string]string{"count": fmt.Sprintf("must be at most %d", MaxMockCount)})
	}
	return n, nil
}

// passwordHash hashes MockPassword once per service.
func (s *MockService) passwordHash() (string, error) {
	s.hashOnce.Do(func() {
		s.hash, s.hashErr = helpers.HashPasswordCost(MockPassword, s.HashCost)
	})
	return s.hash, s.hashErr
}

func (s *MockService) mockPet() *entity.Pet {
	now := s.now()
	birth := gofakeit.DateRange(now.AddDate(-10, 0, 0), now)
	return &entity.Pet{
		ID:          helpers.NewID(),
		Name:        gofakeit.PetName(),
		Specie:      entity.AllSpecies[gofakeit.Number(0, len(entity.AllSpecies)-1)],
		BirthDate:   &birth,
		Status:      entity.PetAvailable,
		Image:       fmt.Sprintf("https://loremflickr.com/640/480/animals?lock=%d", gofakeit.Number(1, 100000)),
		Description: gofakeit.Sentence(8),
		Location:    entity.Location{City: gofakeit.City(), State: gofakeit.State(), Country: gofakeit.Country()},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *MockService) mockUser(hash string) *entity.User {
	now := s.now()
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	return &entity.User{
		ID:        helpers.NewID(),
		FirstName: first,
		LastName:  last,
		Email:     entity.NormalizeEmail(gofakeit.Email()),
		Password:  hash,
		Role:      entity.Role(gofakeit.RandomString([]string{string(entity.RoleUser), string(entity.RoleAdmin)})),
		Pets:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MockPets returns count available, unadopted pets without storing them.
func (s *MockService) MockPets(count int) ([]*entity.Pet, error) {
	n, err := MockCount(count)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Pet, n)
	for i := range out {
		out[i] = s.mockPet()
	}
	return out, nil
}

// MockUsers returns count users with the shared mock password hashed.
func (s *MockService) MockUsers(count int) ([]*entity.User, error) {
	n, err := MockCount(count)
	if err != nil {
		return nil, err
	}
	hash, err := s.passwordHash()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	out := make([]*entity.User, n)
	for i := range out {
		out[i] = s.mockUser(hash)
	}
	return out, nil
}

type GenerateDataInput struct {
	Users int `json:"users" validate:"gte=0,lte=1000"`
	Pets  int `json:"pets" validate:"gte=0,lte=1000"`
}

type GenerateDataResult struct {
	Users int `json:"users"`
	Pets  int `json:"pets"`
}

// GenerateData inserts generated users and pets. A generated email that
// collides with a stored one is regenerated a few times before giving up.
func (s *MockService) GenerateData(ctx context.Context, subj entity.Subject, in GenerateDataInput) (GenerateDataResult, error) {
	var res GenerateDataResult
	if !policy.CanManagePets(subj) {
		return res, deny(subj)
	}
	if in.Users <= 0 && in.Pets <= 0 {
		return res, apperror.Validation("users or pets must be greater than 0", map[string]string{"users": "or pets must be > 0"})
	}
	if in.Users > MaxMockCount || in.Pets > MaxMockCount {
		return res, apperror.Validation(fmt.Sprintf("at most %d per kind", MaxMockCount), nil)
	}
	if in.Users > 0 {
		hash, err := s.passwordHash()
		if err != nil {
			return res, apperror.Internal(err)
		}
		for i := 0; i < in.Users; i++ {
			if err := s.insertUser(ctx, hash); err != nil {
				return res, err
			}
			res.Users++
		}
	}
	for i := 0; i < in.Pets; i++ {
		if err := s.Pets.Insert(ctx, s.mockPet()); err != nil {
			return res, apperror.Internal(err)
		}
		res.Pets++
	}
	s.Logger.WithFields(logrus.Fields{"users": res.Users, "pets": res.Pets}).Info("mock data generated")
	return res, nil
}

func (s *MockService) insertUser(ctx context.Context, hash string) error {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		err := s.Users.Insert(ctx, s.mockUser(hash))
		if err == nil {
			return nil
		}
		if !errors.Is(err, repo.ErrDuplicate) {
			return apperror.Internal(err)
		}
	}
	return apperror.Conflict("could not generate a unique email")
}
