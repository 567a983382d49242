package blog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anotherstories/storehq/internal/platform/db"
	"github.com/anotherstories/storehq/internal/platform/httpx"
)

// Repository persists posts.
type Repository interface {
	List(ctx context.Context, category string, limit, offset int) ([]Post, int, error)
	Get(ctx context.Context, id string) (Post, error)
	Create(ctx context.Context, p Post) (Post, error)
	Update(ctx context.Context, p Post) (Post, error)
	Delete(ctx context.Context, id string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const postColumns = `id, title, content, author, category, cover_image,
	COALESCE(to_char(written_date, 'YYYY-MM-DD'), ''), created_at, updated_at`

func (r *repository) List(ctx context.Context, category string, limit, offset int) ([]Post, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM blog_posts WHERE $1 = '' OR category = $1`, category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("blog: count: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM blog_posts
		WHERE $1 = '' OR category = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, category, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("blog: list: %w", err)
	}
	posts, err := pgx.CollectRows(rows, scanPost)
	if err != nil {
		return nil, 0, fmt.Errorf("blog: scan: %w", err)
	}
	return posts, total, nil
}

func (r *repository) Get(ctx context.Context, id string) (Post, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return Post{}, fmt.Errorf("blog: get: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPost)
	return p, db.MapError(err)
}

func (r *repository) Create(ctx context.Context, p Post) (Post, error) {
	rows, err := r.pool.Query(ctx, `INSERT INTO blog_posts (id, title, content, author, category, cover_image, written_date)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::date)
		RETURNING `+postColumns,
		p.ID, p.Title, p.Content, p.Author, p.Category, p.CoverImage, p.WrittenDate)
	if err != nil {
		return Post{}, db.MapError(err)
	}
	created, err := pgx.CollectExactlyOneRow(rows, scanPost)
	return created, db.MapError(err)
}

func (r *repository) Update(ctx context.Context, p Post) (Post, error) {
	rows, err := r.pool.Query(ctx, `UPDATE blog_posts SET title = $2, content = $3, author = $4, category = $5,
			cover_image = $6, written_date = NULLIF($7, '')::date, updated_at = now()
		WHERE id = $1
		RETURNING `+postColumns,
		p.ID, p.Title, p.Content, p.Author, p.Category, p.CoverImage, p.WrittenDate)
	if err != nil {
		return Post{}, db.MapError(err)
	}
	updated, err := pgx.CollectExactlyOneRow(rows, scanPost)
	return updated, db.MapError(err)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("blog: delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanPost(row pgx.CollectableRow) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.Category, &p.CoverImage,
		&p.WrittenDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
