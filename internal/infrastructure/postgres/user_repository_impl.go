package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-adoptme/internal/domain/entity"
	"github.com/oksasatya/go-adoptme/internal/domain/repository"
)

const userColumns = `id, first_name, last_name, email, password_hash, role, pets,
	last_connection, failed_login_attempts, lock_until, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(s scanner) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &role, &u.Pets,
		&u.LastConnection, &u.FailedLoginAttempts, &u.LockUntil, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	u.Role = entity.Role(role)
	return u, nil
}

func userQuery(f repository.UserFilter) *query {
	q := &query{}
	if f.Email != "" {
		q.where("lower(email)", entity.NormalizeEmail(f.Email))
	}
	if f.Role != "" {
		q.where("role", string(f.Role))
	}
	return q
}

// loadDocuments fills Documents for every user in one round trip.
func (r *UserRepository) loadDocuments(ctx context.Context, users ...*entity.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	byID := make(map[string]*entity.User, len(users))
	for i, u := range users {
		ids[i] = u.ID
		byID[u.ID] = u
	}
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, id, name, reference, file_type, file_size, uploaded_at
		FROM user_documents
		WHERE user_id = ANY($1)
		ORDER BY uploaded_at, id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		var d entity.Document
		if err := rows.Scan(&userID, &d.ID, &d.Name, &d.Reference, &d.FileType, &d.FileSize, &d.UploadedAt); err != nil {
			return err
		}
		if u, ok := byID[userID]; ok {
			u.Documents = append(u.Documents, d)
		}
	}
	return rows.Err()
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadDocuments(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindOne(ctx context.Context, f repository.UserFilter) (*entity.User, error) {
	q := userQuery(f)
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users`+q.whereClause()+` LIMIT 1`, q.args...))
	if err != nil {
		return nil, err
	}
	if err := r.loadDocuments(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) FindPaginated(ctx context.Context, f repository.UserFilter, p repository.Page) (repository.Paginated[*entity.User], error) {
	p = p.Normalize()
	out := repository.Paginated[*entity.User]{Page: p}
	total, err := r.Count(ctx, f)
	if err != nil {
		return out, err
	}
	out.Total = total

	q := userQuery(f)
	sql := `SELECT ` + userColumns + ` FROM users` + q.whereClause() + q.page(p)
	rows, err := r.pool.Query(ctx, sql, q.args...)
	if err != nil {
		return out, err
	}
	defer rows.Close()
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, u)
	}
	if err := rows.Err(); err != nil {
		return out, err
	}
	return out, r.loadDocuments(ctx, out.Items...)
}

func (r *UserRepository) Insert(ctx context.Context, u *entity.User) error {
	u.Email = entity.NormalizeEmail(u.Email)
	if u.Pets == nil {
		u.Pets = []string{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password_hash, role, pets)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, u.ID, u.FirstName, u.LastName, u.Email, u.Password, string(u.Role), u.Pets)
	return translate(row.Scan(&u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) Patch(ctx context.Context, id string, patch repository.UserPatch) (*entity.User, error) {
	q := &query{}
	if patch.FirstName != nil {
		q.set("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		q.set("last_name", *patch.LastName)
	}
	if patch.Email != nil {
		q.set("email", entity.NormalizeEmail(*patch.Email))
	}
	if patch.Role != nil {
		q.set("role", string(*patch.Role))
	}
	sql := `UPDATE users SET ` + q.setClause() + ` WHERE id = ` + q.arg(id) + ` RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, sql, q.args...))
	if err != nil {
		return nil, err
	}
	if err := r.loadDocuments(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Count(ctx context.Context, f repository.UserFilter) (int64, error) {
	q := userQuery(f)
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+q.whereClause(), q.args...).Scan(&n)
	return n, err
}

func (r *UserRepository) exists(ctx context.Context, id string) error {
	var one int
	return translate(r.pool.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1`, id).Scan(&one))
}

func (r *UserRepository) PushPet(ctx context.Context, userID, petID string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET pets = array_append(pets, $2::text), updated_at = now()
		WHERE id = $1 AND NOT ($2 = ANY(pets))
	`, userID, petID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		// already present, or no such user
		return r.exists(ctx, userID)
	}
	return nil
}

func (r *UserRepository) AddDocument(ctx context.Context, userID string, doc entity.Document) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var one int
		if err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&one); err != nil {
			return translate(err)
		}
		var n int
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM user_documents WHERE user_id = $1`, userID).Scan(&n); err != nil {
			return err
		}
		if n >= entity.MaxDocuments {
			return repository.ErrConditionFailed
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO user_documents (id, user_id, name, reference, file_type, file_size, uploaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, doc.ID, userID, doc.Name, doc.Reference, doc.FileType, doc.FileSize, doc.UploadedAt)
		if err != nil {
			return translate(err)
		}
		_, err = tx.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, userID)
		return err
	})
}

func (r *UserRepository) RemoveDocument(ctx context.Context, userID, docID string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM user_documents WHERE id = $1 AND user_id = $2`, docID, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) TouchLastConnection(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `UPDATE users SET last_connection = $2 WHERE id = $1`, id, at)
}

func (r *UserRepository) SetFailedLogins(ctx context.Context, id string, attempts int) error {
	return r.execOne(ctx, `UPDATE users SET failed_login_attempts = $2 WHERE id = $1`, id, attempts)
}

func (r *UserRepository) execOne(ctx context.Context, sql string, args ...any) error {
	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return translate(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
