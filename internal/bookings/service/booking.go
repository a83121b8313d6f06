package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"clipbook/internal/auth"
	bookingerrors "clipbook/internal/bookings/errors"
	"clipbook/internal/bookings/repository"
	bookingvalidator "clipbook/internal/bookings/validator"
	"clipbook/internal/catalog"
	"clipbook/internal/notify"
	sloterrors "clipbook/internal/slots/errors"
	slotrepository "clipbook/internal/slots/repository"
	"clipbook/pkg/config"
	apperrors "clipbook/pkg/errors"
	"clipbook/pkg/model"
	"clipbook/pkg/timeutil"
)

// BookingService coordinates the booking and slot stores. It is the only
// component that mutates both in one logical operation; everything else reads.
type BookingService interface {
	Create(ctx context.Context, actor *auth.Identity, req *model.BookingRequest) (*model.Booking, error)
	GetByID(ctx context.Context, actor *auth.Identity, id string) (*model.Booking, error)
	List(ctx context.Context, actor *auth.Identity, limit int, offset int64) ([]*model.Booking, int64, error)
	ListOwn(ctx context.Context, actor *auth.Identity, limit int, offset int64) ([]*model.Booking, int64, error)
	Update(ctx context.Context, actor *auth.Identity, id string, update *model.BookingUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, actor *auth.Identity, id string) error
	SetSlotStatus(ctx context.Context, actor *auth.Identity, slotID string, status model.SlotStatus) (*model.TimeSlot, error)
	FullyBookedDates(ctx context.Context) ([]model.DateCount, error)
	BookedTimes(ctx context.Context, dateStr string) ([]string, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, int64, error)
}

type bookingService struct {
	bookingRepo repository.BookingRepository
	slotRepo    slotrepository.SlotRepository
	validator   *bookingvalidator.BookingValidator
	notifier    notify.Notifier
	cfg         *config.Config
	now         func() time.Time
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	slotRepo slotrepository.SlotRepository,
	v *bookingvalidator.BookingValidator,
	notifier notify.Notifier,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		bookingRepo: bookingRepo,
		slotRepo:    slotRepo,
		validator:   v,
		notifier:    notifier,
		cfg:         cfg,
		now:         time.Now,
	}
}

// Create books a slot atomically: the slot flips from available to blocked
// and the booking record is inserted in the same transaction. The conditional
// flip is what makes two concurrent requests for the same slot resolve to one
// winner and one SlotUnavailable.
func (s *bookingService) Create(ctx context.Context, actor *auth.Identity, req *model.BookingRequest) (*model.Booking, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationError(err)
	}
	if !catalog.Contains(req.Service) {
		return nil, apperrors.InvalidInput("Unknown service: " + req.Service)
	}

	date, err := timeutil.NormalizeSlot(req.Date, req.Time, s.cfg.Location)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}
	if date.Before(s.now()) {
		return nil, apperrors.InvalidInput("Cannot book a slot in the past")
	}

	booking := &model.Booking{
		User: model.BookingUser{
			ID:    actor.UserID,
			Name:  req.User.Name,
			Phone: req.User.Phone,
		},
		Date:      date,
		Time:      req.Time,
		Service:   req.Service,
		CreatedAt: s.now().UTC(),
	}

	err = s.slotRepo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.slotRepo.UpdateStatusWhere(txCtx, date, req.Time, model.SlotAvailable, model.SlotBlocked, true); err != nil {
			return s.resolveSlotConflict(txCtx, date, req.Time, err)
		}

		created, err := s.bookingRepo.Create(txCtx, booking)
		if err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		booking = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"user_id", booking.User.ID,
		"date", booking.Date,
		"time", booking.Time,
		"service", booking.Service,
	)
	s.sendNotification(ctx, s.notifier.BookingConfirmed, booking)

	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor *auth.Identity, id string) (*model.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapBookingError(err, id)
	}
	if !actor.IsAdmin() && booking.User.ID != actor.UserID {
		return nil, apperrors.Forbidden("You can only view your own bookings")
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, actor *auth.Identity, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Admin access required")
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.bookingRepo.Count(ctx)
	}()
	go func() {
		defer wg.Done()
		bookings, errFind = s.bookingRepo.FindAll(ctx, limit, offset)
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", errCount)
	}
	if errFind != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", errFind)
	}

	return bookings, count, nil
}

func (s *bookingService) ListOwn(ctx context.Context, actor *auth.Identity, limit int, offset int64) ([]*model.Booking, int64, error) {
	count, err := s.bookingRepo.CountByUser(ctx, actor.UserID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}

	bookings, err := s.bookingRepo.FindByUser(ctx, actor.UserID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return bookings, count, nil
}

// Update reschedules a booking and/or changes its service or contact info.
// Moving to a new slot claims the new slot and frees the old one in the same
// transaction as the booking update, so no interleaving can observe a booking
// holding zero or two slots.
func (s *bookingService) Update(ctx context.Context, actor *auth.Identity, id string, update *model.BookingUpdate) (*model.Booking, error) {
	if err := s.validator.ValidateUpdate(update); err != nil {
		return nil, validationError(err)
	}
	if update.Service != "" && !catalog.Contains(update.Service) {
		return nil, apperrors.InvalidInput("Unknown service: " + update.Service)
	}

	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapBookingError(err, id)
	}
	if !actor.IsAdmin() && booking.User.ID != actor.UserID {
		return nil, apperrors.Forbidden("You can only modify your own bookings")
	}

	patch := &repository.BookingPatch{}
	if update.Service != "" {
		patch.Service = &update.Service
	}
	if update.Name != "" {
		patch.Name = &update.Name
	}
	if update.Phone != "" {
		patch.Phone = &update.Phone
	}

	moving := update.Date != "" && update.Time != ""
	var newDate time.Time
	if moving {
		newDate, err = timeutil.NormalizeSlot(update.Date, update.Time, s.cfg.Location)
		if err != nil {
			return nil, apperrors.InvalidInput(err.Error())
		}
		if newDate.Before(s.now()) {
			return nil, apperrors.InvalidInput("Cannot reschedule to a slot in the past")
		}
		if newDate.Equal(booking.Date) && update.Time == booking.Time {
			moving = false
		} else {
			patch.Date = &newDate
			patch.Time = &update.Time
		}
	}

	err = s.slotRepo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if moving {
			if err := s.slotRepo.UpdateStatusWhere(txCtx, newDate, update.Time, model.SlotAvailable, model.SlotBlocked, true); err != nil {
				return s.resolveSlotConflict(txCtx, newDate, update.Time, err)
			}
			if err := s.slotRepo.UpdateStatusWhere(txCtx, booking.Date, booking.Time, model.SlotBlocked, model.SlotAvailable, false); err != nil {
				if errors.Is(err, sloterrors.ErrStatusConflict) {
					return apperrors.Inconsistent("Booking and slot records are out of sync", err)
				}
				return apperrors.Internal("Failed to free time slot", err)
			}
		}
		if err := s.bookingRepo.Update(txCtx, id, patch); err != nil {
			return mapBookingError(err, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, mapBookingError(err, id)
	}

	s.cfg.Log.Info("Booking updated",
		"booking_id", id,
		"rescheduled", moving,
		"date", updated.Date,
		"time", updated.Time,
	)

	return updated, nil
}

// Cancel deletes the booking and frees its slot in one transaction. The slot
// record must exist: a booking pointing at no slot is an integrity problem
// that cancellation must surface, not paper over.
func (s *bookingService) Cancel(ctx context.Context, actor *auth.Identity, id string) error {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		return mapBookingError(err, id)
	}
	if !actor.IsAdmin() && booking.User.ID != actor.UserID {
		return apperrors.Forbidden("You can only cancel your own bookings")
	}

	err = s.bookingRepo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.slotRepo.UpdateStatusWhere(txCtx, booking.Date, booking.Time, model.SlotBlocked, model.SlotAvailable, false); err != nil {
			if !errors.Is(err, sloterrors.ErrStatusConflict) {
				return apperrors.Internal("Failed to free time slot", err)
			}
			if _, findErr := s.slotRepo.FindByDateTime(txCtx, booking.Date, booking.Time); findErr != nil {
				if errors.Is(findErr, sloterrors.ErrNotFound) {
					return apperrors.NotFound("Time slot")
				}
				return apperrors.Internal("Failed to look up time slot", findErr)
			}
			// The slot exists but is already available; free-slot state is
			// what cancellation leaves behind anyway.
			s.cfg.Log.Warn("Slot was not blocked while cancelling its booking",
				"booking_id", id,
				"date", booking.Date,
				"time", booking.Time,
			)
		}
		if err := s.bookingRepo.Delete(txCtx, id); err != nil {
			return mapBookingError(err, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Booking cancelled",
		"booking_id", id,
		"user_id", booking.User.ID,
		"date", booking.Date,
		"time", booking.Time,
	)
	s.sendNotification(ctx, s.notifier.BookingCancelled, booking)

	return nil
}

// SetSlotStatus is the admin override. Blocking a slot that holds an active
// booking force-cancels that booking in the same transaction; marking a booked
// slot available is rejected, cancellation is the way to free it.
func (s *bookingService) SetSlotStatus(ctx context.Context, actor *auth.Identity, slotID string, status model.SlotStatus) (*model.TimeSlot, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}

	slot, err := s.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		return nil, mapSlotError(err, slotID)
	}

	if slot.Status == status && !slot.Booked {
		return slot, nil
	}

	if status == model.SlotAvailable && slot.Booked {
		return nil, apperrors.Conflict("Slot has an active booking; cancel the booking to free the slot")
	}

	var cancelled *model.Booking
	err = s.slotRepo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if slot.Booked {
			booking, err := s.bookingRepo.FindByDateTime(txCtx, slot.Date, slot.Time)
			switch {
			case err == nil:
				if err := s.bookingRepo.Delete(txCtx, booking.ID); err != nil {
					return apperrors.Internal("Failed to remove booking for blocked slot", err)
				}
				cancelled = booking
			case errors.Is(err, bookingerrors.ErrNotFound):
				s.cfg.Log.Warn("Slot marked booked but no booking found",
					"slot_id", slotID,
					"date", slot.Date,
					"time", slot.Time,
				)
			default:
				return apperrors.Internal("Failed to look up booking for slot", err)
			}
		}
		if err := s.slotRepo.SetStatusByID(txCtx, slotID, status, false); err != nil {
			return mapSlotError(err, slotID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cancelled != nil {
		s.cfg.Log.Warn("Booking force-cancelled by admin slot override",
			"booking_id", cancelled.ID,
			"user_id", cancelled.User.ID,
			"slot_id", slotID,
			"admin_id", actor.UserID,
		)
		s.sendNotification(ctx, s.notifier.BookingForceCancelled, cancelled)
	}

	updated, err := s.slotRepo.FindByID(ctx, slotID)
	if err != nil {
		return nil, mapSlotError(err, slotID)
	}

	return updated, nil
}

// FullyBookedDates lists every business-timezone day whose booking count has
// reached daily capacity. Calendars use it to grey out whole days; past days
// leave the view when the purge removes their bookings.
func (s *bookingService) FullyBookedDates(ctx context.Context) ([]model.DateCount, error) {
	days, err := s.bookingRepo.FullyBookedDays(ctx, s.cfg.DailyCapacity, s.cfg.BusinessTimeZone)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve fully booked dates", err)
	}

	return days, nil
}

// BookedTimes returns the occupied hour labels of one day, in day order.
func (s *bookingService) BookedTimes(ctx context.Context, dateStr string) ([]string, error) {
	day, err := timeutil.ParseDay(dateStr, s.cfg.Location)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid date format, expected YYYY-MM-DD")
	}

	from, to := timeutil.DayBounds(day, s.cfg.Location)
	bookings, err := s.bookingRepo.FindInRange(ctx, from, to)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve booked times", err)
	}

	times := make([]string, 0, len(bookings))
	for _, b := range bookings {
		times = append(times, b.Time)
	}

	return times, nil
}

// PurgeExpired removes slots and bookings dated before the start of the
// current business-timezone day. Both stores are swept in one transaction.
func (s *bookingService) PurgeExpired(ctx context.Context, now time.Time) (int64, int64, error) {
	cutoff := timeutil.StartOfDay(now, s.cfg.Location)

	var slotsDeleted, bookingsDeleted int64
	err := s.slotRepo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if slotsDeleted, err = s.slotRepo.DeleteBefore(txCtx, cutoff); err != nil {
			return apperrors.Internal("Failed to purge expired slots", err)
		}
		if bookingsDeleted, err = s.bookingRepo.DeleteBefore(txCtx, cutoff); err != nil {
			return apperrors.Internal("Failed to purge expired bookings", err)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	s.cfg.Log.Info("Expired records purged",
		"cutoff", cutoff,
		"slots_deleted", slotsDeleted,
		"bookings_deleted", bookingsDeleted,
	)

	return slotsDeleted, bookingsDeleted, nil
}

// resolveSlotConflict turns a failed conditional flip into the caller-facing
// error: the slot either does not exist or is already taken.
func (s *bookingService) resolveSlotConflict(ctx context.Context, date time.Time, timeLabel string, cause error) error {
	if !errors.Is(cause, sloterrors.ErrStatusConflict) {
		return apperrors.Internal("Failed to claim time slot", cause)
	}

	if _, err := s.slotRepo.FindByDateTime(ctx, date, timeLabel); err != nil {
		if errors.Is(err, sloterrors.ErrNotFound) {
			return apperrors.NotFound("Time slot")
		}
		return apperrors.Internal("Failed to look up time slot", err)
	}

	return apperrors.SlotUnavailable("Time slot is no longer available")
}

// sendNotification publishes a booking event. Delivery failure never fails
// the booking operation itself.
func (s *bookingService) sendNotification(ctx context.Context, send func(context.Context, notify.Event) error, booking *model.Booking) {
	ev := notify.Event{
		BookingID: booking.ID,
		UserID:    booking.User.ID,
		UserName:  booking.User.Name,
		UserPhone: booking.User.Phone,
		Service:   booking.Service,
		Date:      timeutil.DayKey(booking.Date, s.cfg.Location),
		Time:      booking.Time,
	}
	if err := send(ctx, ev); err != nil {
		s.cfg.Log.Warn("Failed to publish booking notification",
			"booking_id", booking.ID,
			"error", err,
		)
	}
}

func validationError(err error) error {
	var verrs bookingvalidator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]any, len(verrs))
		for _, ve := range verrs {
			details[ve.Field] = ve.Message
		}
		return apperrors.Validation("Validation failed", details)
	}
	return apperrors.InvalidInput(err.Error())
}

func mapBookingError(err error, id string) error {
	switch {
	case errors.Is(err, bookingerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID: " + id)
	case errors.Is(err, bookingerrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	default:
		return apperrors.Internal("Booking store operation failed", err)
	}
}

func mapSlotError(err error, id string) error {
	switch {
	case errors.Is(err, sloterrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid time slot ID: " + id)
	case errors.Is(err, sloterrors.ErrNotFound):
		return apperrors.NotFoundWithID("Time slot", id)
	default:
		return apperrors.Internal("Slot store operation failed", err)
	}
}
