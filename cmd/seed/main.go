package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/config"
	"github.com/oksasatya/go-adoptme/internal/application"
	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/internal/infrastructure/postgres"
	"github.com/oksasatya/go-adoptme/internal/infrastructure/search"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

type seedConfig struct {
	AdminEmail    string `env:"SEED_ADMIN_EMAIL" envDefault:"admin@adoptme.local"`
	AdminPassword string `env:"SEED_ADMIN_PASSWORD" envDefault:"coder123"`
}

var seedPets = []application.CreatePetInput{
	{Name: "Firulais", Specie: entity.SpeciesDog, Breed: "Mestizo", Description: "Juguetón y cariñoso"},
	{Name: "Michi", Specie: entity.SpeciesCat, Breed: "Siamés", Description: "Tranquila, ideal para departamento"},
	{Name: "Pelusa", Specie: entity.SpeciesRabbit, Description: "Come zanahorias todo el día"},
	{Name: "Piolín", Specie: entity.SpeciesBird, Breed: "Canario"},
	{Name: "Rocky", Specie: entity.SpeciesDog, Breed: "Labrador", Description: "Necesita patio"},
}

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	var sc seedConfig
	if err := env.Parse(&sc); err != nil {
		logrus.Fatalf("seed config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), cfg.AppName, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := postgres.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		logger.Fatalf("migration failed: %v", err)
	}
	store := postgres.NewStore(pool)

	admin, err := seedAdmin(ctx, store.Users, sc)
	if err != nil {
		logger.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("admin: id=%s email=%s password=%s\n", admin.ID, admin.Email, sc.AdminPassword)

	var indexer application.PetIndexer
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		logger.Fatalf("elasticsearch: %v", err)
	}
	if es != nil {
		indexer = search.NewPetIndex(es, cfg.ESPetsIndex)
	}
	pets := application.NewPetService(store.Pets, nil, indexer, logger)
	subj := entity.Subject{ID: admin.ID, Role: entity.RoleAdmin, Email: admin.Email}
	for _, in := range seedPets {
		p, err := pets.Create(ctx, subj, in)
		if err != nil {
			logger.Fatalf("failed to seed pet %s: %v", in.Name, err)
		}
		fmt.Printf("pet: id=%s name=%s specie=%s\n", p.ID, p.Name, p.Specie)
	}
}

// seedAdmin inserts the admin, or returns the existing user with that email.
func seedAdmin(ctx context.Context, users repo.UserRepository, sc seedConfig) (*entity.User, error) {
	email := entity.NormalizeEmail(sc.AdminEmail)
	existing, err := users.FindOne(ctx, repo.UserFilter{Email: email})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	hash, err := helpers.HashPassword(sc.AdminPassword)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &entity.User{
		ID:        helpers.NewID(),
		FirstName: "Admin",
		LastName:  "AdoptMe",
		Email:     email,
		Password:  hash,
		Role:      entity.RoleAdmin,
		Pets:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := users.Insert(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
