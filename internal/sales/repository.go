package sales

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anotherstories/storehq/internal/platform/db"
)

// Repository persists sale records.
type Repository interface {
	ListRange(ctx context.Context, r DateRange, branch string) ([]SaleRecord, error)
	ListAll(ctx context.Context) ([]SaleRecord, error)
	DistinctBranches(ctx context.Context) ([]BranchRef, error)
	Insert(ctx context.Context, rec SaleRecord) (SaleRecord, error)
	InsertBatch(ctx context.Context, recs []SaleRecord) (int, error)
	DeleteByBranch(ctx context.Context, branchID string) (int64, error)
	DeleteOrphans(ctx context.Context, knownBranchIDs []string) (int64, error)
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectRecords = `SELECT s.id, s.branch_id, s.branch_name, to_char(s.sale_date, 'YYYY-MM-DD'),
		s.gross_sales::float8, s.cash_sales::float8, s.card_sales::float8, s.transactions, s.created_at,
		i.product_id, i.name, i.category, i.qty::float8, i.price::float8, i.image_url
	FROM sales s
	LEFT JOIN sale_items i ON i.sale_id = s.id`

const recordOrder = ` ORDER BY s.sale_date, s.branch_id, s.id, i.line_no`

// ListRange loads the records dated inside r, with their items, ordered by
// date then branch. The date filter runs in SQL.
func (r *PGRepository) ListRange(ctx context.Context, rng DateRange, branch string) ([]SaleRecord, error) {
	query := selectRecords + ` WHERE s.sale_date >= $1 AND s.sale_date <= $2`
	args := []any{rng.From, rng.To}
	if !IsAllBranches(branch) {
		args = append(args, branch)
		query += ` AND s.branch_id = $` + strconv.Itoa(len(args))
	}
	return r.query(ctx, query+recordOrder, args...)
}

// ListAll loads every stored record.
func (r *PGRepository) ListAll(ctx context.Context) ([]SaleRecord, error) {
	return r.query(ctx, selectRecords+recordOrder)
}

// DistinctBranches lists the branches that have sales, by id.
func (r *PGRepository) DistinctBranches(ctx context.Context) ([]BranchRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT branch_id, max(branch_name) FROM sales GROUP BY branch_id ORDER BY branch_id`)
	if err != nil {
		return nil, fmt.Errorf("sales: distinct branches: %w", err)
	}
	defer rows.Close()
	refs := make([]BranchRef, 0)
	for rows.Next() {
		var ref BranchRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("sales: scan branch: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *PGRepository) query(ctx context.Context, query string, args ...any) ([]SaleRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: list: %w", err)
	}
	defer rows.Close()

	records := make([]SaleRecord, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			rec       SaleRecord
			createdAt time.Time
			productID *string
			name      *string
			category  *string
			qty       *float64
			price     *float64
			imageURL  *string
		)
		if err := rows.Scan(&rec.ID, &rec.BranchID, &rec.BranchName, &rec.Date,
			&rec.GrossSales, &rec.CashSales, &rec.CardSales, &rec.Transactions, &createdAt,
			&productID, &name, &category, &qty, &price, &imageURL); err != nil {
			return nil, fmt.Errorf("sales: scan: %w", err)
		}
		i, seen := index[rec.ID]
		if !seen {
			rec.CreatedAt = &createdAt
			i = len(records)
			index[rec.ID] = i
			records = append(records, rec)
		}
		if name == nil {
			continue
		}
		records[i].Items = append(records[i].Items, SaleItem{
			ProductID: deref(productID),
			Name:      *name,
			Category:  deref(category),
			Qty:       derefFloat(qty),
			Price:     derefFloat(price),
			ImageURL:  deref(imageURL),
		})
	}
	return records, rows.Err()
}

// Insert stores one record and its items.
func (r *PGRepository) Insert(ctx context.Context, rec SaleRecord) (SaleRecord, error) {
	var stored []SaleRecord
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		stored, err = insertAll(ctx, tx, []SaleRecord{rec})
		return err
	})
	if err != nil {
		return SaleRecord{}, db.MapError(err)
	}
	return stored[0], nil
}

// InsertBatch stores all records in one transaction.
func (r *PGRepository) InsertBatch(ctx context.Context, recs []SaleRecord) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := insertAll(ctx, tx, recs)
		return err
	})
	if err != nil {
		return 0, db.MapError(err)
	}
	return len(recs), nil
}

func insertAll(ctx context.Context, tx pgx.Tx, recs []SaleRecord) ([]SaleRecord, error) {
	batch := &pgx.Batch{}
	out := make([]SaleRecord, len(recs))
	now := time.Now().UTC()
	for n, rec := range recs {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		day, ok := ParseDate(rec.Date)
		if !ok {
			return nil, fmt.Errorf("sales: record %s has invalid date %q", rec.ID, rec.Date)
		}
		rec.Date = FormatDate(day)
		if rec.CreatedAt == nil {
			rec.CreatedAt = &now
		}
		batch.Queue(`INSERT INTO sales (id, branch_id, branch_name, sale_date, gross_sales, cash_sales, card_sales, transactions, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rec.ID, rec.BranchID, rec.BranchName, day, rec.GrossSales, rec.CashSales, rec.CardSales, rec.Transactions, *rec.CreatedAt)
		for line, item := range rec.Items {
			batch.Queue(`INSERT INTO sale_items (sale_id, line_no, product_id, name, category, qty, price, image_url)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				rec.ID, line+1, item.ProductID, item.Name, item.Category, item.Qty, item.Price, item.ImageURL)
		}
		out[n] = rec
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByBranch removes every record of a branch and returns the count.
func (r *PGRepository) DeleteByBranch(ctx context.Context, branchID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales WHERE branch_id = $1`, branchID)
	if err != nil {
		return 0, fmt.Errorf("sales: delete branch %s: %w", branchID, err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOrphans removes records whose branch is not in knownBranchIDs.
func (r *PGRepository) DeleteOrphans(ctx context.Context, knownBranchIDs []string) (int64, error) {
	if len(knownBranchIDs) == 0 {
		return 0, fmt.Errorf("sales: refusing to delete orphans without known branches")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales WHERE NOT (branch_id = ANY($1))`, knownBranchIDs)
	if err != nil {
		return 0, fmt.Errorf("sales: delete orphans: %w", err)
	}
	return tag.RowsAffected(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

var _ Repository = (*PGRepository)(nil)
