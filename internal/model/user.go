package model

import "time"

// Account roles carried in the JWT "role" claim.
const (
	RoleBuyer  = "BUYER"
	RoleSeller = "SELLER"
	RoleAdmin  = "ADMIN"
)

// User represents an account as stored in the `users` table.  The
// balance columns are the seller balance projection maintained by the
// settlement, reversal and payout engines; nothing else writes them.
//
// Fields:
//
//	ID           – primary key (UUID).
//	Email        – unique email address.
//	Phone        – mobile number used for mobile-money payments (nullable).
//	PasswordHash – bcrypt hashed password.
//	Role         – BUYER, SELLER or ADMIN.
//	IsActive     – whether the account is active.
//	BalanceCents – available balance, a projection of paid commissions.
//	SaleCount    – number of settled sales credited to the seller.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    // users.id
	Email        string    // users.email
	Phone        string    // users.phone (empty when NULL)
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	BalanceCents int64     // users.balance_cents
	SaleCount    int64     // users.sale_count
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        string     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
