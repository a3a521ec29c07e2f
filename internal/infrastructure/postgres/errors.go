package postgres

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/go-adoptme/internal/domain/repository"
)

const uniqueViolation = "23505"

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// query accumulates positional arguments for hand-written SQL.
type query struct {
	conds []string
	sets  []string
	args  []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) where(col string, v any) {
	q.conds = append(q.conds, col+" = "+q.arg(v))
}

func (q *query) set(col string, v any) {
	q.sets = append(q.sets, col+" = "+q.arg(v))
}

func (q *query) whereClause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

func (q *query) setClause() string {
	return strings.Join(append(q.sets, "updated_at = now()"), ", ")
}

func (q *query) page(p repository.Page) string {
	return " ORDER BY created_at DESC, id DESC LIMIT " + q.arg(p.Limit) + " OFFSET " + q.arg(p.Offset())
}

type scanner interface {
	Scan(dest ...any) error
}
