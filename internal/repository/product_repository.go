package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/formation-market/internal/model"
)

const productColumns = "id,seller_id,title,price_cents,promo_price_cents,promo_starts_at,promo_ends_at,created_at,updated_at"

// ProductRepo provides access to the products catalogue.
type ProductRepo struct{ db *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// Create inserts p, assigning its id and timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	var promo any
	if p.PromoPriceCents != nil {
		promo = *p.PromoPriceCents
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, seller_id, title, price_cents, promo_price_cents, promo_starts_at, promo_ends_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.SellerID, p.Title, p.PriceCents, promo, utcPtr(p.PromoStartsAt), utcPtr(p.PromoEndsAt), now, now)
	return err
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func scanProduct(row interface{ Scan(...any) error }) (model.Product, error) {
	var (
		p      model.Product
		promo  sql.NullInt64
		starts sql.NullTime
		ends   sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.SellerID, &p.Title, &p.PriceCents, &promo, &starts, &ends, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	if promo.Valid {
		v := promo.Int64
		p.PromoPriceCents = &v
	}
	p.PromoStartsAt = timePtr(starts)
	p.PromoEndsAt = timePtr(ends)
	return p, nil
}

// GetByID returns one product or ErrProductNotFound.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrProductNotFound
	}
	return p, err
}

// GetByIDs returns the products matching ids keyed by id.  Unknown ids
// are simply absent from the map.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) (map[string]model.Product, error) {
	out := make(map[string]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}
