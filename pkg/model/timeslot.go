package model

import "time"

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBlocked   SlotStatus = "blocked"
)

// TimeSlot is one bookable (date, hour) unit. Date is the canonical UTC
// instant of the slot's day and hour; Time is the matching 12-hour label.
// Booked mirrors "an active booking occupies this slot" for fast filtering;
// the booking record itself is the source of truth.
type TimeSlot struct {
	ID     string     `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Date   time.Time  `json:"date" bson:"date" validate:"required"`
	Time   string     `json:"time" bson:"time" validate:"required,slot_time"`
	Status SlotStatus `json:"status" bson:"status" validate:"required,oneof=available blocked"`
	Booked bool       `json:"booked" bson:"booked"`
}

// SlotStatusUpdate is the admin request body for forcing a slot's status.
type SlotStatusUpdate struct {
	Status SlotStatus `json:"status" validate:"required,oneof=available blocked"`
}

// ScheduleEntry is one hour of the read-only day-schedule projection.
type ScheduleEntry struct {
	Date   time.Time `json:"date"`
	Time   string    `json:"time"`
	Status string    `json:"status"` // "booked" or "available"
}
