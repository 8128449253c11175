package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/formation-market/internal/apperr"
	"github.com/iliyamo/formation-market/internal/model"
	"github.com/iliyamo/formation-market/internal/money"
	"github.com/iliyamo/formation-market/internal/repository"
)

// ProductInput describes a new listing.  The promotion fields are all
// set or all empty.
type ProductInput struct {
	Title         string
	Price         decimal.Decimal
	PromoPrice    *decimal.Decimal
	PromoStartsAt *time.Time
	PromoEndsAt   *time.Time
}

// ProductView is a listing with the price that applies right now.
type ProductView struct {
	ID             string           `json:"id"`
	SellerID       string           `json:"sellerId"`
	Title          string           `json:"title"`
	Price          decimal.Decimal  `json:"price"`
	PromoPrice     *decimal.Decimal `json:"promoPrice,omitempty"`
	PromoStartsAt  *time.Time       `json:"promoStartsAt,omitempty"`
	PromoEndsAt    *time.Time       `json:"promoEndsAt,omitempty"`
	EffectivePrice decimal.Decimal  `json:"effectivePrice"`
	PromoActive    bool             `json:"promoActive"`
}

// Catalog manages seller listings.
type Catalog struct {
	products *repository.ProductRepo
	now      func() time.Time
}

func NewCatalog(l *repository.Ledger) *Catalog {
	return &Catalog{products: l.Products, now: utcNow}
}

// Create lists a formation for sellerID.
func (c *Catalog) Create(ctx context.Context, sellerID string, in ProductInput) (ProductView, error) {
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return ProductView{}, apperr.Validation("title is required")
	case !in.Price.IsPositive():
		return ProductView{}, apperr.Validation("price must be positive")
	case !money.HasValidScale(in.Price):
		return ProductView{}, apperr.Validation("price must have at most two decimals")
	}
	p := model.Product{SellerID: sellerID, Title: title, PriceCents: money.ToCents(in.Price)}

	promoFields := 0
	for _, set := range []bool{in.PromoPrice != nil, in.PromoStartsAt != nil, in.PromoEndsAt != nil} {
		if set {
			promoFields++
		}
	}
	switch promoFields {
	case 0:
	case 3:
		pp := *in.PromoPrice
		if !pp.IsPositive() || !money.HasValidScale(pp) || !pp.LessThan(in.Price) {
			return ProductView{}, apperr.Validation("promoPrice must be positive and below price")
		}
		if !in.PromoStartsAt.Before(*in.PromoEndsAt) {
			return ProductView{}, apperr.Validation("promoStartsAt must be before promoEndsAt")
		}
		cents := money.ToCents(pp)
		starts, ends := in.PromoStartsAt.UTC(), in.PromoEndsAt.UTC()
		p.PromoPriceCents, p.PromoStartsAt, p.PromoEndsAt = &cents, &starts, &ends
	default:
		return ProductView{}, apperr.Validation("promoPrice, promoStartsAt and promoEndsAt go together")
	}

	if err := c.products.Create(ctx, &p); err != nil {
		return ProductView{}, apperr.Settlement(err, "create product")
	}
	return c.view(p), nil
}

// Get returns one listing.
func (c *Catalog) Get(ctx context.Context, id string) (ProductView, error) {
	p, err := c.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ProductView{}, apperr.NotFound("product %s not found", id)
		}
		return ProductView{}, apperr.Settlement(err, "load product")
	}
	return c.view(p), nil
}

func (c *Catalog) view(p model.Product) ProductView {
	now := c.now()
	v := ProductView{
		ID:             p.ID,
		SellerID:       p.SellerID,
		Title:          p.Title,
		Price:          money.FromCents(p.PriceCents),
		PromoStartsAt:  p.PromoStartsAt,
		PromoEndsAt:    p.PromoEndsAt,
		EffectivePrice: money.FromCents(p.EffectivePriceCents(now)),
		PromoActive:    p.PromoActive(now),
	}
	if p.PromoPriceCents != nil {
		pp := money.FromCents(*p.PromoPriceCents)
		v.PromoPrice = &pp
	}
	return v
}
