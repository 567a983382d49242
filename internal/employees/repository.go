package employees

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/anotherstories/storehq/internal/platform/db"
	"github.com/anotherstories/storehq/internal/platform/httpx"
	"github.com/anotherstories/storehq/internal/rbac"
)

// Repository persists employees in the users table.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Employee, int, error)
	Get(ctx context.Context, id string) (Employee, error)
	Create(ctx context.Context, e Employee, passwordHash string) (Employee, error)
	Update(ctx context.Context, e Employee) (Employee, error)
	SetAvatar(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
	Birthdays(ctx context.Context, month time.Month, day int) ([]Employee, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const employeeColumns = `id, first_name, last_name, email, branch_id, role,
	COALESCE(to_char(joined, 'YYYY-MM-DD'), ''), COALESCE(to_char(birthday, 'YYYY-MM-DD'), ''),
	phone, address, salary_type, salary_amount::text, bank_number, avatar, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Employee, int, error) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := `$` + strconv.Itoa(len(args))
		clauses = append(clauses, `(first_name ILIKE `+n+` OR last_name ILIKE `+n+` OR email ILIKE `+n+` OR branch_id ILIKE `+n+`)`)
	}
	if filters.Branch != "" {
		args = append(args, filters.Branch)
		clauses = append(clauses, `branch_id = $`+strconv.Itoa(len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = ` WHERE ` + strings.Join(clauses, ` AND `)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("employees: count: %w", err)
	}

	query := `SELECT ` + employeeColumns + ` FROM users` + where + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	if filters.PerPage > 0 {
		args = append(args, filters.PerPage, (max(filters.Page, 1)-1)*filters.PerPage)
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("employees: list: %w", err)
	}
	defer rows.Close()

	out := make([]Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM users WHERE id = $1`, id))
	return e, db.MapError(err)
}

func (r *repository) Create(ctx context.Context, e Employee, passwordHash string) (Employee, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (id, first_name, last_name, email, branch_id, role, joined, birthday,
			phone, address, salary_type, salary_amount, bank_number, avatar, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::date, NULLIF($8, '')::date, $9, $10, $11, $12::numeric, $13, $14, $15, $16)
		RETURNING `+employeeColumns,
		e.ID, e.FirstName, e.LastName, e.Email, e.BranchID, string(e.Role), e.Joined, e.Birthday,
		e.Phone, e.Address, e.SalaryType, e.SalaryAmount.String(), e.BankNumber, e.Avatar, passwordHash, e.IsActive)
	created, err := scanEmployee(row)
	return created, db.MapError(err)
}

func (r *repository) Update(ctx context.Context, e Employee) (Employee, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET first_name = $2, last_name = $3, email = $4, branch_id = $5, role = $6,
			joined = NULLIF($7, '')::date, birthday = NULLIF($8, '')::date, phone = $9, address = $10,
			salary_type = $11, salary_amount = $12::numeric, bank_number = $13, is_active = $14, updated_at = now()
		WHERE id = $1
		RETURNING `+employeeColumns,
		e.ID, e.FirstName, e.LastName, e.Email, e.BranchID, string(e.Role), e.Joined, e.Birthday,
		e.Phone, e.Address, e.SalaryType, e.SalaryAmount.String(), e.BankNumber, e.IsActive)
	updated, err := scanEmployee(row)
	return updated, db.MapError(err)
}

func (r *repository) SetAvatar(ctx context.Context, id, url string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET avatar = $2, updated_at = now() WHERE id = $1`, id, url)
	if err != nil {
		return fmt.Errorf("employees: set avatar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("employees: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (r *repository) Birthdays(ctx context.Context, month time.Month, day int) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+employeeColumns+` FROM users
		WHERE is_active AND EXTRACT(MONTH FROM birthday) = $1 AND EXTRACT(DAY FROM birthday) = $2
		ORDER BY first_name, last_name`, int(month), day)
	if err != nil {
		return nil, fmt.Errorf("employees: birthdays: %w", err)
	}
	defer rows.Close()
	out := make([]Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEmployee(row pgx.Row) (Employee, error) {
	var (
		e      Employee
		role   string
		salary string
	)
	if err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Email, &e.BranchID, &role,
		&e.Joined, &e.Birthday, &e.Phone, &e.Address, &e.SalaryType, &salary,
		&e.BankNumber, &e.Avatar, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return Employee{}, err
	}
	e.Role = rbac.Role(role)
	amount, err := decimal.NewFromString(salary)
	if err != nil {
		return Employee{}, fmt.Errorf("employees: salary %q: %w", salary, err)
	}
	e.SalaryAmount = amount
	return e, nil
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "joined":
		return "joined " + dir + " NULLS LAST, first_name ASC"
	case "branch":
		return "branch_id " + dir + ", first_name ASC"
	case "role":
		return "role " + dir + ", first_name ASC"
	default:
		return "first_name " + dir + ", last_name " + dir
	}
}
