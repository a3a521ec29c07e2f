package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/repository"
)

const adoptionColumns = `id, owner_id, pet_id, status, notes, adoption_fee, adoption_date,
	approved_at, rejected_at, cancelled_at, completed_at, created_at, updated_at`

// AdoptionRepository relies on adoptions_pet_in_flight_uidx for the
// one-in-flight-per-pet rule; violations surface as repository.ErrDuplicate.
type AdoptionRepository struct {
	pool *pgxpool.Pool
}

func NewAdoptionRepository(pool *pgxpool.Pool) *AdoptionRepository {
	return &AdoptionRepository{pool: pool}
}

func scanAdoption(s scanner) (*entity.Adoption, error) {
	a := &entity.Adoption{}
	var status string
	if err := s.Scan(&a.ID, &a.Owner, &a.Pet, &status, &a.Notes, &a.AdoptionFee, &a.AdoptionDate,
		&a.ApprovedAt, &a.RejectedAt, &a.CancelledAt, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	a.Status = entity.AdoptionStatus(status)
	return a, nil
}

func adoptionQuery(f repository.AdoptionFilter) *query {
	q := &query{}
	if f.Owner != "" {
		q.where("owner_id", f.Owner)
	}
	if f.Pet != "" {
		q.where("pet_id", f.Pet)
	}
	if f.Status != "" {
		q.where("status", string(f.Status))
	}
	return q
}

func adoptionSets(q *query, patch repository.AdoptionPatch) {
	if patch.Status != nil {
		q.set("status", string(*patch.Status))
	}
	if patch.Notes != nil {
		q.set("notes", *patch.Notes)
	}
	if patch.AdoptionFee != nil {
		q.set("adoption_fee", *patch.AdoptionFee)
	}
	if patch.ApprovedAt != nil {
		q.set("approved_at", *patch.ApprovedAt)
	}
	if patch.RejectedAt != nil {
		q.set("rejected_at", *patch.RejectedAt)
	}
	if patch.CancelledAt != nil {
		q.set("cancelled_at", *patch.CancelledAt)
	}
	if patch.CompletedAt != nil {
		q.set("completed_at", *patch.CompletedAt)
	}
}

func (r *AdoptionRepository) FindByID(ctx context.Context, id string) (*entity.Adoption, error) {
	return scanAdoption(r.pool.QueryRow(ctx, `SELECT `+adoptionColumns+` FROM adoptions WHERE id = $1`, id))
}

func (r *AdoptionRepository) FindOne(ctx context.Context, f repository.AdoptionFilter) (*entity.Adoption, error) {
	q := adoptionQuery(f)
	return scanAdoption(r.pool.QueryRow(ctx, `SELECT `+adoptionColumns+` FROM adoptions`+q.whereClause()+` LIMIT 1`, q.args...))
}

func (r *AdoptionRepository) FindPaginated(ctx context.Context, f repository.AdoptionFilter, p repository.Page) (repository.Paginated[*entity.Adoption], error) {
	p = p.Normalize()
	out := repository.Paginated[*entity.Adoption]{Page: p}
	total, err := r.Count(ctx, f)
	if err != nil {
		return out, err
	}
	out.Total = total

	q := adoptionQuery(f)
	rows, err := r.pool.Query(ctx, `SELECT `+adoptionColumns+` FROM adoptions`+q.whereClause()+q.page(p), q.args...)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAdoption(rows)
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, a)
	}
	return out, rows.Err()
}

func (r *AdoptionRepository) Insert(ctx context.Context, a *entity.Adoption) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO adoptions (id, owner_id, pet_id, status, notes, adoption_fee, adoption_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, a.ID, a.Owner, a.Pet, string(a.Status), a.Notes, a.AdoptionFee, a.AdoptionDate)
	return translate(row.Scan(&a.CreatedAt, &a.UpdatedAt))
}

func (r *AdoptionRepository) Patch(ctx context.Context, id string, patch repository.AdoptionPatch) (*entity.Adoption, error) {
	q := &query{}
	adoptionSets(q, patch)
	sql := `UPDATE adoptions SET ` + q.setClause() + ` WHERE id = ` + q.arg(id) + ` RETURNING ` + adoptionColumns
	return scanAdoption(r.pool.QueryRow(ctx, sql, q.args...))
}

func (r *AdoptionRepository) Transition(ctx context.Context, id string, from entity.AdoptionStatus, patch repository.AdoptionPatch) (*entity.Adoption, error) {
	q := &query{}
	adoptionSets(q, patch)
	q.where("id", id)
	q.where("status", string(from))
	sql := `UPDATE adoptions SET ` + q.setClause() + q.whereClause() + ` RETURNING ` + adoptionColumns
	a, err := scanAdoption(r.pool.QueryRow(ctx, sql, q.args...))
	if errors.Is(err, repository.ErrNotFound) {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, repository.ErrConditionFailed
	}
	return a, err
}

func (r *AdoptionRepository) Delete(ctx context.Context, id string, allowed ...entity.AdoptionStatus) error {
	q := &query{}
	q.where("id", id)
	if len(allowed) > 0 {
		statuses := make([]string, len(allowed))
		for i, s := range allowed {
			statuses[i] = string(s)
		}
		q.conds = append(q.conds, "status = ANY("+q.arg(statuses)+")")
	}
	res, err := r.pool.Exec(ctx, `DELETE FROM adoptions`+q.whereClause(), q.args...)
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

func (r *AdoptionRepository) Count(ctx context.Context, f repository.AdoptionFilter) (int64, error) {
	q := adoptionQuery(f)
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM adoptions`+q.whereClause(), q.args...).Scan(&n)
	return n, err
}

func (r *AdoptionRepository) FindInFlightForPet(ctx context.Context, petID string) (*entity.Adoption, error) {
	return scanAdoption(r.pool.QueryRow(ctx, `
		SELECT `+adoptionColumns+`
		FROM adoptions
		WHERE pet_id = $1 AND status IN ('pending', 'approved')
	`, petID))
}

func (r *AdoptionRepository) FindUserAdoptions(ctx context.Context, userID string, status entity.AdoptionStatus, p repository.Page) (repository.Paginated[*entity.Adoption], error) {
	return r.FindPaginated(ctx, repository.AdoptionFilter{Owner: userID, Status: status}, p)
}

var _ repository.AdoptionRepository = (*AdoptionRepository)(nil)
