package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrInvalidStatus is returned when a status value is outside the review enumeration.
var ErrInvalidStatus = errors.New("invalid status")

// Status is the review state of a submitted product.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// ParseStatus converts raw input into a Status. Matching is exact, the wire
// format uses upper-case names.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", errors.Wrapf(ErrInvalidStatus, "%q", raw)
	}
	return s, nil
}

// Product is a submitted item awaiting or having received a review decision.
type Product struct {
	ID          string
	Title       string
	Description string
	ImageURLs   []string
	ProductURL  string
	// Price keeps the exact decimal text; it is parsed only for validation
	// and display.
	Price     string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for products.
type Repository interface {
	// List returns every product, newest first.
	List(ctx context.Context) ([]Product, error)
	// Create persists p and returns the stored record with server timestamps.
	Create(ctx context.Context, p Product) (*Product, error)
	// UpdateStatus sets the status of the product with the given id and
	// returns the updated record. Returns ErrNotFound for unknown ids.
	UpdateStatus(ctx context.Context, id string, status Status) (*Product, error)
	// Delete removes the product. Returns ErrNotFound for unknown ids.
	Delete(ctx context.Context, id string) error
}
