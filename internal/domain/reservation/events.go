package reservation

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topic and event types for the reservation lifecycle.
const (
	TopicReservationEvents = "reservation.events"

	EventCreated     = "reservation.created"
	EventConfirmed   = "reservation.confirmed"
	EventDepositPaid = "reservation.deposit_paid"
	EventCheckedIn   = "reservation.checked_in"
	EventCheckedOut  = "reservation.checked_out"
	EventCompleted   = "reservation.completed"
	EventCancelled   = "reservation.cancelled"
)

// Event is the payload published on every reservation state change.
type Event struct {
	ReservationID     uuid.UUID `json:"reservation_id"`
	ReservationNumber string    `json:"reservation_number"`
	TenantID          uuid.UUID `json:"tenant_id"`
	CustomerID        uuid.UUID `json:"customer_id"`
	ServiceID         uuid.UUID `json:"service_id"`
	SuiteType         string    `json:"suite_type"`
	Status            string    `json:"status"`
	StayStart         time.Time `json:"stay_start"`
	StayEnd           time.Time `json:"stay_end"`
	PetCount          int       `json:"pet_count"`
	TotalCents        int64     `json:"total_cents"`
	RefundCents       int64     `json:"refund_cents,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// NewEvent builds the event payload for a reservation's current state.
func NewEvent(r *Reservation) Event {
	return Event{
		ReservationID:     r.ID(),
		ReservationNumber: r.Number(),
		TenantID:          r.TenantID(),
		CustomerID:        r.CustomerID(),
		ServiceID:         r.ServiceID(),
		SuiteType:         r.SuiteType(),
		Status:            string(r.Status()),
		StayStart:         r.Stay().Start,
		StayEnd:           r.Stay().End,
		PetCount:          r.PetCount(),
		TotalCents:        r.TotalCents(),
		RefundCents:       r.RefundCents(),
		OccurredAt:        time.Now().UTC(),
	}
}
