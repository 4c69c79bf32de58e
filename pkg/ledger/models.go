package ledger

import (
	"time"

	"github.com/rs/xid"
	"gorm.io/gorm"

	"github.com/voicetyped/flightbot/pkg/booking"
)

// Outcomes stored in the ledger.
const (
	OutcomeConfirmed = "confirmed"
	OutcomeRejected  = "rejected"
)

// Booking is one finished booking flow.
type Booking struct {
	ID          string    `gorm:"type:varchar(50);primaryKey"                  json:"id"`
	EventID     string    `gorm:"type:varchar(50);uniqueIndex:idx_bk_event"    json:"event_id"`
	SessionID   string    `gorm:"type:varchar(100);not null;index:idx_bk_sess" json:"session_id"`
	Source      string    `gorm:"type:varchar(100)"                            json:"source"`
	Outcome     string    `gorm:"type:varchar(20);not null;index:idx_bk_out"   json:"outcome"`
	Origin      string    `gorm:"type:varchar(255)"                            json:"origin"`
	Destination string    `gorm:"type:varchar(255)"                            json:"destination"`
	StartDate   string    `gorm:"type:varchar(100)"                            json:"start_date"`
	EndDate     string    `gorm:"type:varchar(100)"                            json:"end_date"`
	Budget      string    `gorm:"type:varchar(255)"                            json:"budget"`
	Turns       int       `gorm:"default:0"                                    json:"turns"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Booking) TableName() string { return "bookings" }

// BeforeCreate assigns an id when none is set.
func (b *Booking) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = xid.New().String()
	}
	return nil
}

// Details returns the booking record the flow collected.
func (b *Booking) Details() booking.Details {
	return booking.Details{
		Origin:      b.Origin,
		Destination: b.Destination,
		StartDate:   b.StartDate,
		EndDate:     b.EndDate,
		Budget:      b.Budget,
	}
}

// SetDetails copies the booking record into the row.
func (b *Booking) SetDetails(d booking.Details) {
	b.Origin = d.Origin
	b.Destination = d.Destination
	b.StartDate = d.StartDate
	b.EndDate = d.EndDate
	b.Budget = d.Budget
}
