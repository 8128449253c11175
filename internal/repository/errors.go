// Package repository defines the data access layer and the sentinel
// errors reused across repositories.  Higher layers translate these into
// typed application errors: the not-found variants become 404 responses
// and ErrEmailExists a 409.
package repository

import (
	"errors"
	"strings"
)

var (
	// ErrSaleNotFound is returned when no sale matches a transaction reference.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrUserNotFound is returned when an account id or email is unknown.
	ErrUserNotFound = errors.New("user not found")

	// ErrProductNotFound is returned when a product id is unknown.
	ErrProductNotFound = errors.New("product not found")

	// ErrEmailExists is returned by UserRepo.Create on a duplicate email.
	ErrEmailExists = errors.New("email already exists")
)

// isDuplicate recognises unique-key violations from MySQL (1062) and SQLite.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "1062") || strings.Contains(msg, "unique constraint")
}
