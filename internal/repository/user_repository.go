package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/utils"
)

const userColumns = "id,email,phone,password_hash,role,is_active,balance_cents,sale_count,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, phone, password, role string, cost int) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, phone, password_hash, role, is_active, balance_cents, sale_count, created_at, updated_at) VALUES (?,?,?,?,?,TRUE,0,0,?,?)",
		id, email, nullString(strings.TrimSpace(phone)), hash, role, now, now)
	if err != nil {
		if isDuplicate(err) {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u     model.User
		phone sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &phone, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.BalanceCents, &u.SaleCount, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	u.Phone = phone.String
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// AdjustBalanceTx moves the balance projection and settled sale count of
// a seller by the given deltas inside tx.  Both columns are floored at 0.
func (r *UserRepo) AdjustBalanceTx(ctx context.Context, tx *sql.Tx, userID string, deltaCents, deltaSales int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET
		   balance_cents = CASE WHEN balance_cents + ? < 0 THEN 0 ELSE balance_cents + ? END,
		   sale_count    = CASE WHEN sale_count + ? < 0 THEN 0 ELSE sale_count + ? END,
		   updated_at    = ?
		 WHERE id = ?`,
		deltaCents, deltaCents, deltaSales, deltaSales, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// BalanceTx reads the balance projection inside tx.
func (r *UserRepo) BalanceTx(ctx context.Context, q DBTX, userID string) (balanceCents, saleCount int64, err error) {
	err = q.QueryRowContext(ctx,
		"SELECT balance_cents, sale_count FROM users WHERE id=? LIMIT 1", userID).Scan(&balanceCents, &saleCount)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrUserNotFound
	}
	return balanceCents, saleCount, err
}
