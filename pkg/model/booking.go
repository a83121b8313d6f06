package model

import "time"

// BookingUser is the contact info embedded in a booking at creation time, so
// the record stays self-contained even if the account changes later.
type BookingUser struct {
	ID    string `json:"id" bson:"id" validate:"required"`
	Name  string `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Phone string `json:"phone" bson:"phone" validate:"required,min=7,max=20"`
}

// Booking occupies exactly one time slot. Date is the canonical UTC instant
// shared with the slot; (Date, Time) together are the slot identity.
type Booking struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	User      BookingUser `json:"user" bson:"user" validate:"required"`
	Date      time.Time   `json:"date" bson:"date" validate:"required"`
	Time      string      `json:"time" bson:"time" validate:"required,slot_time"`
	Service   string      `json:"service" bson:"service" validate:"required,min=2,max=100"`
	CreatedAt time.Time   `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// BookingRequest is the wire form of a create request. Date arrives as a
// calendar day and is normalized to the canonical instant before any store
// access.
type BookingRequest struct {
	Date    string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time    string  `json:"time" validate:"required,slot_time"`
	Service string  `json:"service" validate:"required,min=2,max=100"`
	User    Contact `json:"user" validate:"required"`
}

type Contact struct {
	Name  string `json:"name" validate:"required,min=2,max=100"`
	Phone string `json:"phone" validate:"required,min=7,max=20"`
}

// BookingUpdate carries a reschedule and/or contact-info change. Date and Time
// must be provided together when the booking is moving to a new slot.
type BookingUpdate struct {
	Date    string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Time    string `json:"time,omitempty" validate:"omitempty,slot_time"`
	Service string `json:"service,omitempty" validate:"omitempty,min=2,max=100"`
	Name    string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,min=7,max=20"`
}

// DateCount is one row of the per-day booking aggregate.
type DateCount struct {
	Date  string `json:"date" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}
