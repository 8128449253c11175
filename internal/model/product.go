package model

import "time"

// Product is a formation listed by a seller.  A promotion price applies
// while now is inside [PromoStartsAt, PromoEndsAt).
type Product struct {
	ID              string     // products.id
	SellerID        string     // products.seller_id
	Title           string     // products.title
	PriceCents      int64      // products.price_cents
	PromoPriceCents *int64     // products.promo_price_cents (nullable)
	PromoStartsAt   *time.Time // products.promo_starts_at (nullable)
	PromoEndsAt     *time.Time // products.promo_ends_at (nullable)
	CreatedAt       time.Time  // products.created_at
	UpdatedAt       time.Time  // products.updated_at
}

// PromoActive reports whether the promotion window contains now.
func (p Product) PromoActive(now time.Time) bool {
	if p.PromoPriceCents == nil || p.PromoStartsAt == nil || p.PromoEndsAt == nil {
		return false
	}
	return !now.Before(*p.PromoStartsAt) && now.Before(*p.PromoEndsAt)
}

// EffectivePriceCents returns the promotion price when active, else the list price.
func (p Product) EffectivePriceCents(now time.Time) int64 {
	if p.PromoActive(now) {
		return *p.PromoPriceCents
	}
	return p.PriceCents
}
