// Package errors provides custom error types for inventory-related operations.
package errors

import "errors"

// Local persistence failures.
var (
	// ErrInventoryNotFound is returned when no inventory record exists for a product.
	ErrInventoryNotFound = errors.New("inventory not found")

	// ErrDuplicateInventory is returned when an inventory record already exists for a product.
	ErrDuplicateInventory = errors.New("inventory already exists for product")

	// ErrQuantityConflict is returned by the store when a compare-and-swap
	// quantity update lost a race against a concurrent writer.
	ErrQuantityConflict = errors.New("quantity changed concurrently")
)

// Remote product service failures, classified by the product client.
var (
	// ErrProductNotFound is returned when the product service answers 404.
	ErrProductNotFound = errors.New("product not found")

	// ErrProductServiceUnavailable is returned for transport failures and
	// non-404 error statuses, after retries are exhausted.
	ErrProductServiceUnavailable = errors.New("product service unavailable")

	// ErrProductResponseMalformed is returned when the product service answers
	// with a body that cannot be decoded into a complete product.
	ErrProductResponseMalformed = errors.New("product service response malformed")
)

// Validation and business-rule failures.
var (
	// ErrInvalidArgument is returned when a request carries a negative or missing quantity.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientStock is returned when a decrement asks for more than is available.
	ErrInsufficientStock = errors.New("insufficient stock")
)
