package product

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventType names a product lifecycle event.
type EventType string

const (
	EventCreated       EventType = "product.created"
	EventStatusChanged EventType = "product.status_changed"
	EventDeleted       EventType = "product.deleted"
)

// Event describes a committed product mutation.
type Event struct {
	Type       EventType
	ProductID  string
	Product    *Product // nil for EventDeleted
	OccurredAt time.Time
}

// Publisher delivers product events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Service encapsulates product review business logic.
type Service struct {
	repo   Repository
	events Publisher
	lg     *zap.Logger
	newID  func() string
	now    func() time.Time
}

// NewService creates a product Service. A nil publisher disables events.
func NewService(repo Repository, events Publisher, lg *zap.Logger) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		events: events,
		lg:     lg,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// List returns every product, newest first.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Create validates the input and stores a new product. The status is always
// PENDING regardless of what the caller wanted.
func (s *Service) Create(ctx context.Context, in Input) (*Product, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, Product{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		ImageURLs:   in.ImageURLs,
		ProductURL:  in.ProductURL,
		Price:       in.Price,
		Status:      StatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.publish(ctx, EventCreated, created.ID, created)
	return created, nil
}

// SetStatus moves a product to the given status. Any transition is allowed.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (*Product, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	s.publish(ctx, EventStatusChanged, updated.ID, updated)
	return updated, nil
}

// Delete removes a product permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.publish(ctx, EventDeleted, id, nil)
	return nil
}

// publish is best effort: the mutation is already committed, so delivery
// failures are logged and swallowed.
func (s *Service) publish(ctx context.Context, typ EventType, id string, p *Product) {
	ev := Event{
		Type:       typ,
		ProductID:  id,
		Product:    p,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.lg.Warn("Publish product event",
			zap.String("type", string(typ)),
			zap.String("product_id", id),
			zap.Error(err),
		)
	}
}
