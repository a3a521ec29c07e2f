package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/repository"
)

const petColumns = `id, name, specie, breed, birth_date, adopted, status, owner_id, image, description,
	city, state, country, created_at, updated_at`

type PetRepository struct {
	pool *pgxpool.Pool
}

func NewPetRepository(pool *pgxpool.Pool) *PetRepository {
	return &PetRepository{pool: pool}
}

func scanPet(s scanner) (*entity.Pet, error) {
	p := &entity.Pet{}
	var specie, status string
	if err := s.Scan(&p.ID, &p.Name, &specie, &p.Breed, &p.BirthDate, &p.Adopted, &status, &p.Owner,
		&p.Image, &p.Description, &p.Location.City, &p.Location.State, &p.Location.Country,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	p.Specie = entity.Species(specie)
	p.Status = entity.PetStatus(status)
	return p, nil
}

func petQuery(f repository.PetFilter) *query {
	q := &query{}
	if f.Specie != "" {
		q.where("specie", string(f.Specie))
	}
	if f.Status != "" {
		q.where("status", string(f.Status))
	}
	if f.Adopted != nil {
		q.where("adopted", *f.Adopted)
	}
	if f.Owner != "" {
		q.where("owner_id", f.Owner)
	}
	return q
}

func (r *PetRepository) FindByID(ctx context.Context, id string) (*entity.Pet, error) {
	return scanPet(r.pool.QueryRow(ctx, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id))
}

func (r *PetRepository) FindOne(ctx context.Context, f repository.PetFilter) (*entity.Pet, error) {
	q := petQuery(f)
	return scanPet(r.pool.QueryRow(ctx, `SELECT `+petColumns+` FROM pets`+q.whereClause()+` LIMIT 1`, q.args...))
}

func (r *PetRepository) FindPaginated(ctx context.Context, f repository.PetFilter, p repository.Page) (repository.Paginated[*entity.Pet], error) {
	p = p.Normalize()
	out := repository.Paginated[*entity.Pet]{Page: p}
	total, err := r.Count(ctx, f)
	if err != nil {
		return out, err
	}
	out.Total = total

	q := petQuery(f)
	rows, err := r.pool.Query(ctx, `SELECT `+petColumns+` FROM pets`+q.whereClause()+q.page(p), q.args...)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		pet, err := scanPet(rows)
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, pet)
	}
	return out, rows.Err()
}

func (r *PetRepository) Insert(ctx context.Context, p *entity.Pet) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO pets (id, name, specie, breed, birth_date, adopted, status, owner_id, image, description,
			city, state, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, p.ID, p.Name, string(p.Specie), p.Breed, p.BirthDate, p.Adopted, string(p.Status), p.Owner,
		p.Image, p.Description, p.Location.City, p.Location.State, p.Location.Country)
	return translate(row.Scan(&p.CreatedAt, &p.UpdatedAt))
}

func (r *PetRepository) Patch(ctx context.Context, id string, patch repository.PetPatch) (*entity.Pet, error) {
	q := &query{}
	if patch.Name != nil {
		q.set("name", *patch.Name)
	}
	if patch.Specie != nil {
		q.set("specie", string(*patch.Specie))
	}
	if patch.Breed != nil {
		q.set("breed", *patch.Breed)
	}
	if patch.BirthDate != nil {
		q.set("birth_date", *patch.BirthDate)
	}
	if patch.Image != nil {
		q.set("image", *patch.Image)
	}
	if patch.Description != nil {
		q.set("description", *patch.Description)
	}
	if patch.Location != nil {
		q.set("city", patch.Location.City)
		q.set("state", patch.Location.State)
		q.set("country", patch.Location.Country)
	}
	if patch.Status != nil {
		q.set("status", string(*patch.Status))
	}
	if patch.Adopted != nil {
		q.set("adopted", *patch.Adopted)
	}
	if patch.Owner != nil {
		q.set("owner_id", *patch.Owner)
	}
	sql := `UPDATE pets SET ` + q.setClause() + ` WHERE id = ` + q.arg(id) + ` RETURNING ` + petColumns
	return scanPet(r.pool.QueryRow(ctx, sql, q.args...))
}

func (r *PetRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM pets WHERE id = $1 AND NOT adopted`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return repository.ErrConditionFailed
}

func (r *PetRepository) Count(ctx context.Context, f repository.PetFilter) (int64, error) {
	q := petQuery(f)
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM pets`+q.whereClause(), q.args...).Scan(&n)
	return n, err
}

var _ repository.PetRepository = (*PetRepository)(nil)
