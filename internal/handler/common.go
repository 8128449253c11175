package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/formation-market/internal/apperr"
	"github.com/iliyamo/formation-market/internal/middleware"
	"github.com/iliyamo/formation-market/internal/model"
)

// getUserID returns the authenticated subject.
func getUserID(c echo.Context) (string, error) {
	if uid := middleware.UserID(c); uid != "" {
		return uid, nil
	}
	return "", apperr.Unauthorized("authentication required")
}

func isAdmin(c echo.Context) bool { return middleware.Role(c) == model.RoleAdmin }

// actingAs resolves the account a request acts for.  An empty claimed id
// means the caller; only admins may act for someone else.
func actingAs(c echo.Context, claimed string) (string, error) {
	uid, err := getUserID(c)
	if err != nil {
		return "", err
	}
	if claimed == "" || claimed == uid {
		return uid, nil
	}
	if isAdmin(c) {
		return claimed, nil
	}
	return "", apperr.Permission("cannot act on behalf of another user")
}

// bindAndValidate decodes the body into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("invalid body")
	}
	return c.Validate(req)
}

// page reads limit and offset query parameters.
func page(c echo.Context) (limit, offset int, err error) {
	for name, dst := range map[string]*int{"limit": &limit, "offset": &offset} {
		raw := c.QueryParam(name)
		if raw == "" {
			continue
		}
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			return 0, 0, apperr.Validation("%s must be a non-negative integer", name)
		}
		*dst = n
	}
	return limit, offset, nil
}
