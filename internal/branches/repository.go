package branches

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anotherstories/storehq/internal/platform/db"
	"github.com/anotherstories/storehq/internal/platform/httpx"
)

// Repository persists branches.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Branch, int, error)
	Get(ctx context.Context, id string) (Branch, error)
	Create(ctx context.Context, branch Branch) (Branch, error)
	Update(ctx context.Context, branch Branch) (Branch, error)
	SetStatus(ctx context.Context, id string, status Status, updatedBy string) (Branch, error)
	Delete(ctx context.Context, id string) error
	IDs(ctx context.Context) ([]string, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const branchColumns = `id, name, manager, phone, email, address,
	COALESCE(to_char(founded, 'YYYY-MM-DD'), ''), status, created_at, updated_at, updated_by`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Branch, int, error) {
	where, args := listWhere(filters)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM branches`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("branches: count: %w", err)
	}

	query := `SELECT ` + branchColumns + ` FROM branches` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.PerPage > 0 {
		args = append(args, filters.PerPage, (max(filters.Page, 1)-1)*filters.PerPage)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("branches: list: %w", err)
	}
	defer rows.Close()

	out := make([]Branch, 0)
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func listWhere(filters ListFilters) (string, []any) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := `$` + strconv.Itoa(len(args))
		clauses = append(clauses, `(name ILIKE `+n+` OR manager ILIKE `+n+` OR address ILIKE `+n+`)`)
	}
	if filters.Status != "" {
		args = append(args, string(filters.Status))
		clauses = append(clauses, `status = $`+strconv.Itoa(len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

func (r *repository) Get(ctx context.Context, id string) (Branch, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id)
	b, err := scanBranch(row)
	return b, db.MapError(err)
}

func (r *repository) Create(ctx context.Context, b Branch) (Branch, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO branches (id, name, manager, phone, email, address, founded, status, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::date, $8, $9)
		RETURNING `+branchColumns,
		b.ID, b.Name, b.Manager, b.Phone, b.Email, b.Address, b.Founded, string(b.Status), b.UpdatedBy)
	created, err := scanBranch(row)
	return created, db.MapError(err)
}

func (r *repository) Update(ctx context.Context, b Branch) (Branch, error) {
	row := r.pool.QueryRow(ctx, `UPDATE branches SET name = $2, manager = $3, phone = $4, email = $5, address = $6,
			founded = NULLIF($7, '')::date, status = $8, updated_by = $9, updated_at = now()
		WHERE id = $1
		RETURNING `+branchColumns,
		b.ID, b.Name, b.Manager, b.Phone, b.Email, b.Address, b.Founded, string(b.Status), b.UpdatedBy)
	updated, err := scanBranch(row)
	return updated, db.MapError(err)
}

func (r *repository) SetStatus(ctx context.Context, id string, status Status, updatedBy string) (Branch, error) {
	row := r.pool.QueryRow(ctx, `UPDATE branches SET status = $2, updated_by = $3, updated_at = now()
		WHERE id = $1 RETURNING `+branchColumns, id, string(status), updatedBy)
	b, err := scanBranch(row)
	return b, db.MapError(err)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("branches: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM branches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("branches: ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func scanBranch(row pgx.Row) (Branch, error) {
	var (
		b       Branch
		status  string
		created time.Time
		updated time.Time
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Manager, &b.Phone, &b.Email, &b.Address,
		&b.Founded, &status, &created, &updated, &b.UpdatedBy); err != nil {
		return Branch{}, err
	}
	b.Status = Status(status)
	b.CreatedAt, b.UpdatedAt = created, updated
	return b, nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "founded":
		return "founded " + dir + " NULLS LAST, name ASC"
	case "manager":
		return "manager " + dir + ", name ASC"
	default:
		return "name " + dir
	}
}
