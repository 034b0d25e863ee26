package shop

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Use errors.Is to classify an error returned by this package.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrStockExceeded      = errors.New("stock exceeded")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNothingSelected    = errors.New("nothing selected")
	ErrCheckoutValidation = errors.New("checkout validation failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrAccountBanned      = errors.New("account banned")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrConflict           = errors.New("conflict")
)

// Error is a classified error with a message meant for the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// StockError reports a single product that cannot cover a requested quantity.
type StockError struct {
	ProductID uint
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%q only has %d unit(s) in stock, but %d were requested.", e.Name, e.Available, e.Requested)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// Violation describes one cart line that failed checkout validation.
type Violation struct {
	ItemID      uint   `json:"item_id"`
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Unavailable bool   `json:"unavailable"`
}

func (v Violation) String() string {
	if v.Unavailable {
		return fmt.Sprintf("%q is no longer available.", v.ProductName)
	}
	return fmt.Sprintf("%q only has %d unit(s) in stock, but you requested %d.", v.ProductName, v.Available, v.Requested)
}

// ValidationError aggregates every violation found before checkout mutates anything.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return strings.Join(msgs, " ")
}

// Unwrap makes a ValidationError match both ErrCheckoutValidation and ErrInsufficientStock.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrCheckoutValidation, ErrInsufficientStock}
}

// NotFound builds an ErrNotFound error naming the missing entity.
func NotFound(entity string) error {
	return newError(ErrNotFound, "%s not found.", entity)
}

// Conflict builds an ErrConflict error with the given message.
func Conflict(format string, args ...any) error {
	return newError(ErrConflict, format, args...)
}
