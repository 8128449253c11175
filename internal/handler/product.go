package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/formation-market/internal/service"
)

// ProductHandler exposes seller listings.
type ProductHandler struct {
	Catalog *service.Catalog
}

func NewProductHandler(cat *service.Catalog) *ProductHandler {
	return &ProductHandler{Catalog: cat}
}

type productReq struct {
	Title         string           `json:"title" validate:"required"`
	Price         decimal.Decimal  `json:"price"`
	PromoPrice    *decimal.Decimal `json:"promoPrice"`
	PromoStartsAt *time.Time       `json:"promoStartsAt"`
	PromoEndsAt   *time.Time       `json:"promoEndsAt"`
}

// Create lists a formation owned by the caller.
func (h *ProductHandler) Create(c echo.Context) error {
	var req productReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	uid, err := getUserID(c)
	if err != nil {
		return err
	}
	v, err := h.Catalog.Create(c.Request().Context(), uid, service.ProductInput{
		Title:         req.Title,
		Price:         req.Price,
		PromoPrice:    req.PromoPrice,
		PromoStartsAt: req.PromoStartsAt,
		PromoEndsAt:   req.PromoEndsAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "product": v})
}

// Get returns a listing with its current effective price.
func (h *ProductHandler) Get(c echo.Context) error {
	v, err := h.Catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "product": v})
}
