package ledger

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no booking matches.
var ErrNotFound = errors.New("booking not found")

// DBPool hands out gorm handles. frame's datastore pool satisfies it.
type DBPool interface {
	DB(ctx context.Context, readOnly bool) *gorm.DB
}

// Repository provides persistence for finished bookings.
type Repository struct {
	pool DBPool
}

// NewRepository creates a new booking ledger repository.
func NewRepository(pool DBPool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) db(ctx context.Context, readOnly bool) *gorm.DB {
	return r.pool.DB(ctx, readOnly)
}

// Migrate creates or updates the ledger tables.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db(ctx, false).AutoMigrate(&Booking{})
}

// Record persists a finished booking. Recording an event id twice is a no-op,
// so redelivered queue messages do not duplicate rows.
func (r *Repository) Record(ctx context.Context, b *Booking) error {
	if b.EventID != "" {
		var existing Booking
		err := r.db(ctx, true).Where("event_id = ?", b.EventID).First(&existing).Error
		if err == nil {
			*b = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return r.db(ctx, false).Create(b).Error
}

// GetByID returns a booking by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*Booking, error) {
	var b Booking
	err := r.db(ctx, true).Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBySession returns the bookings recorded for a session, newest first.
func (r *Repository) GetBySession(ctx context.Context, sessionID string) ([]Booking, error) {
	var bookings []Booking
	err := r.db(ctx, true).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&bookings).Error
	return bookings, err
}

// List returns bookings newest first, optionally filtered by outcome.
func (r *Repository) List(ctx context.Context, outcome string, limit, offset int) ([]Booking, error) {
	var bookings []Booking
	q := r.db(ctx, true).Order("created_at DESC")
	if outcome != "" {
		q = q.Where("outcome = ?", outcome)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	err := q.Find(&bookings).Error
	return bookings, err
}
