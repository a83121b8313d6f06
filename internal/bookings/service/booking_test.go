package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"clipbook/internal/auth"
	bookingerrors "clipbook/internal/bookings/errors"
	"clipbook/internal/bookings/repository"
	bookingvalidator "clipbook/internal/bookings/validator"
	"clipbook/internal/notify"
	sloterrors "clipbook/internal/slots/errors"
	"clipbook/pkg/config"
	mongotx "clipbook/pkg/db/mongo"
	apperrors "clipbook/pkg/errors"
	"clipbook/pkg/logger"
	"clipbook/pkg/model"
	"clipbook/pkg/timeutil"
)

// --- stateful mocks ---

type mockSlotRepository struct {
	slots      map[string]*model.TimeSlot
	nextID     int
	updateErrs map[string]error
}

func newMockSlotRepository() *mockSlotRepository {
	return &mockSlotRepository{
		slots:      make(map[string]*model.TimeSlot),
		updateErrs: make(map[string]error),
	}
}

func slotKey(date time.Time, timeLabel string) string {
	return date.UTC().Format(time.RFC3339) + "|" + timeLabel
}

func (m *mockSlotRepository) addSlot(date time.Time, timeLabel string, status model.SlotStatus, booked bool) *model.TimeSlot {
	m.nextID++
	slot := &model.TimeSlot{
		ID:     fmt.Sprintf("slot-%d", m.nextID),
		Date:   date.UTC(),
		Time:   timeLabel,
		Status: status,
		Booked: booked,
	}
	m.slots[slotKey(date, timeLabel)] = slot
	return slot
}

func (m *mockSlotRepository) EnsureSlot(ctx context.Context, date time.Time, timeLabel string, status model.SlotStatus) (bool, error) {
	if _, ok := m.slots[slotKey(date, timeLabel)]; ok {
		return false, nil
	}
	m.addSlot(date, timeLabel, status, false)
	return true, nil
}

func (m *mockSlotRepository) FindByID(ctx context.Context, id string) (*model.TimeSlot, error) {
	for _, slot := range m.slots {
		if slot.ID == id {
			return slot, nil
		}
	}
	return nil, sloterrors.ErrNotFound
}

func (m *mockSlotRepository) FindByDateTime(ctx context.Context, date time.Time, timeLabel string) (*model.TimeSlot, error) {
	if slot, ok := m.slots[slotKey(date, timeLabel)]; ok {
		return slot, nil
	}
	return nil, sloterrors.ErrNotFound
}

func (m *mockSlotRepository) FindInRange(ctx context.Context, from, to time.Time) ([]*model.TimeSlot, error) {
	var out []*model.TimeSlot
	for _, slot := range m.slots {
		if !slot.Date.Before(from) && slot.Date.Before(to) {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (m *mockSlotRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.TimeSlot, error) {
	var out []*model.TimeSlot
	for _, slot := range m.slots {
		out = append(out, slot)
	}
	return out, nil
}

func (m *mockSlotRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.slots)), nil
}

func (m *mockSlotRepository) UpdateStatusWhere(ctx context.Context, date time.Time, timeLabel string, current, next model.SlotStatus, booked bool) error {
	if err := m.updateErrs[slotKey(date, timeLabel)]; err != nil {
		return err
	}
	slot, ok := m.slots[slotKey(date, timeLabel)]
	if !ok || slot.Status != current {
		return sloterrors.ErrStatusConflict
	}
	slot.Status = next
	slot.Booked = booked
	return nil
}

func (m *mockSlotRepository) SetStatusByID(ctx context.Context, id string, status model.SlotStatus, booked bool) error {
	for _, slot := range m.slots {
		if slot.ID == id {
			slot.Status = status
			slot.Booked = booked
			return nil
		}
	}
	return sloterrors.ErrNotFound
}

func (m *mockSlotRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for key, slot := range m.slots {
		if slot.Date.Before(cutoff) {
			delete(m.slots, key)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

type mockBookingRepository struct {
	bookings  map[string]*model.Booking
	nextID    int
	createErr error
}

func newMockBookingRepository() *mockBookingRepository {
	return &mockBookingRepository{bookings: make(map[string]*model.Booking)}
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) (*model.Booking, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	booking.ID = fmt.Sprintf("booking-%d", m.nextID)
	m.bookings[booking.ID] = booking
	return booking, nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if booking, ok := m.bookings[id]; ok {
		return booking, nil
	}
	return nil, bookingerrors.ErrNotFound
}

func (m *mockBookingRepository) FindByDateTime(ctx context.Context, date time.Time, timeLabel string) (*model.Booking, error) {
	for _, booking := range m.bookings {
		if booking.Date.Equal(date) && booking.Time == timeLabel {
			return booking, nil
		}
	}
	return nil, bookingerrors.ErrNotFound
}

func (m *mockBookingRepository) FindInRange(ctx context.Context, from, to time.Time) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, booking := range m.bookings {
		if !booking.Date.Before(from) && booking.Date.Before(to) {
			out = append(out, booking)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, booking := range m.bookings {
		out = append(out, booking)
	}
	return out, nil
}

func (m *mockBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	var out []*model.Booking
	for _, booking := range m.bookings {
		if booking.User.ID == userID {
			out = append(out, booking)
		}
	}
	return out, nil
}

func (m *mockBookingRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.bookings)), nil
}

func (m *mockBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	for _, booking := range m.bookings {
		if booking.User.ID == userID {
			count++
		}
	}
	return count, nil
}

func (m *mockBookingRepository) Update(ctx context.Context, id string, patch *repository.BookingPatch) error {
	booking, ok := m.bookings[id]
	if !ok {
		return bookingerrors.ErrNotFound
	}
	if patch.Date != nil {
		booking.Date = *patch.Date
	}
	if patch.Time != nil {
		booking.Time = *patch.Time
	}
	if patch.Service != nil {
		booking.Service = *patch.Service
	}
	if patch.Name != nil {
		booking.User.Name = *patch.Name
	}
	if patch.Phone != nil {
		booking.User.Phone = *patch.Phone
	}
	return nil
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.bookings[id]; !ok {
		return bookingerrors.ErrNotFound
	}
	delete(m.bookings, id)
	return nil
}

func (m *mockBookingRepository) FullyBookedDays(ctx context.Context, capacity int, tz string) ([]model.DateCount, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, booking := range m.bookings {
		counts[timeutil.DayKey(booking.Date, loc)]++
	}
	var out []model.DateCount
	for day, count := range counts {
		if count >= int64(capacity) {
			out = append(out, model.DateCount{Date: day, Count: count})
		}
	}
	return out, nil
}

func (m *mockBookingRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for id, booking := range m.bookings {
		if booking.Date.Before(cutoff) {
			delete(m.bookings, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

type mockNotifier struct {
	confirmed      []notify.Event
	cancelled      []notify.Event
	forceCancelled []notify.Event
	err            error
}

func (m *mockNotifier) BookingConfirmed(_ context.Context, ev notify.Event) error {
	m.confirmed = append(m.confirmed, ev)
	return m.err
}

func (m *mockNotifier) BookingCancelled(_ context.Context, ev notify.Event) error {
	m.cancelled = append(m.cancelled, ev)
	return m.err
}

func (m *mockNotifier) BookingForceCancelled(_ context.Context, ev notify.Event) error {
	m.forceCancelled = append(m.forceCancelled, ev)
	return m.err
}

// --- fixture ---

type fixture struct {
	svc      *bookingService
	slots    *mockSlotRepository
	bookings *mockBookingRepository
	notifier *mockNotifier
	cfg      *config.Config
	loc      *time.Location
}

var fixedNow = time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("Failed to load test timezone: %v", err)
	}

	log := logger.New(logger.Config{
		Level:  logger.LevelError,
		Format: logger.FormatJSON,
		Output: io.Discard,
	})
	cfg := &config.Config{
		Location:         loc,
		BusinessTimeZone: "America/New_York",
		HorizonDays:      7,
		DayStartHour:     9,
		DayEndHour:       17,
		DailyCapacity:    8,
		Log:              log,
	}

	slots := newMockSlotRepository()
	bookings := newMockBookingRepository()
	notifier := &mockNotifier{}

	svc := NewBookingService(bookings, slots, bookingvalidator.NewBookingValidator(log), notifier, cfg).(*bookingService)
	svc.now = func() time.Time { return fixedNow }

	return &fixture{
		svc:      svc,
		slots:    slots,
		bookings: bookings,
		notifier: notifier,
		cfg:      cfg,
		loc:      loc,
	}
}

func (f *fixture) seedSlot(t *testing.T, dateStr string, hour int, status model.SlotStatus, booked bool) *model.TimeSlot {
	t.Helper()
	day, err := timeutil.ParseDay(dateStr, f.loc)
	if err != nil {
		t.Fatalf("Failed to parse day %q: %v", dateStr, err)
	}
	return f.slots.addSlot(timeutil.SlotInstant(day, hour, f.loc), timeutil.HourLabel(hour), status, booked)
}

func user(id string) *auth.Identity  { return &auth.Identity{UserID: id, Role: auth.RoleUser} }
func admin(id string) *auth.Identity { return &auth.Identity{UserID: id, Role: auth.RoleAdmin} }

func createRequest(dateStr, timeLabel string) *model.BookingRequest {
	return &model.BookingRequest{
		Date:    dateStr,
		Time:    timeLabel,
		Service: "Haircut",
		User:    model.Contact{Name: "Dana Levi", Phone: "+12025550117"},
	}
}

func appErrorCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("Expected an error")
	}
	appErr := apperrors.AsAppError(err)
	return appErr.Code
}

// --- Create ---

func TestCreate_BooksAvailableSlot(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if booking.ID == "" {
		t.Error("Expected booking to have an ID")
	}
	if booking.User.ID != "u1" {
		t.Errorf("Expected booking owner u1, got %s", booking.User.ID)
	}

	slot, err := f.slots.FindByDateTime(context.Background(), booking.Date, booking.Time)
	if err != nil {
		t.Fatalf("Failed to find slot: %v", err)
	}
	if slot.Status != model.SlotBlocked || !slot.Booked {
		t.Errorf("Expected slot blocked and booked, got status=%s booked=%v", slot.Status, slot.Booked)
	}

	if len(f.notifier.confirmed) != 1 {
		t.Fatalf("Expected one confirmation event, got %d", len(f.notifier.confirmed))
	}
	if f.notifier.confirmed[0].Date != "2024-07-15" || f.notifier.confirmed[0].Time != "09:00AM" {
		t.Errorf("Unexpected event payload: %+v", f.notifier.confirmed[0])
	}
}

func TestCreate_SecondRequestLoses(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	if _, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM")); err != nil {
		t.Fatalf("First create failed: %v", err)
	}

	_, err := f.svc.Create(context.Background(), user("u2"), createRequest("2024-07-15", "09:00AM"))
	if code := appErrorCode(t, err); code != apperrors.CodeSlotUnavailable {
		t.Errorf("Expected slot unavailable, got %s", code)
	}

	if len(f.bookings.bookings) != 1 {
		t.Errorf("Expected exactly one booking to exist, got %d", len(f.bookings.bookings))
	}
	if len(f.notifier.confirmed) != 1 {
		t.Errorf("Expected exactly one confirmation event, got %d", len(f.notifier.confirmed))
	}
}

func TestCreate_MissingSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if code := appErrorCode(t, err); code != apperrors.CodeNotFound {
		t.Errorf("Expected not found for absent slot, got %s", code)
	}
}

func TestCreate_BlockedSlot(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotBlocked, false)

	_, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if code := appErrorCode(t, err); code != apperrors.CodeSlotUnavailable {
		t.Errorf("Expected slot unavailable for blocked slot, got %s", code)
	}
}

func TestCreate_UnknownService(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	req := createRequest("2024-07-15", "09:00AM")
	req.Service = "Perm"

	_, err := f.svc.Create(context.Background(), user("u1"), req)
	if code := appErrorCode(t, err); code != apperrors.CodeInvalidInput {
		t.Errorf("Expected invalid input for unknown service, got %s", code)
	}
}

func TestCreate_PastSlot(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-01", 9, model.SlotAvailable, false)

	_, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-01", "09:00AM"))
	if code := appErrorCode(t, err); code != apperrors.CodeInvalidInput {
		t.Errorf("Expected invalid input for past slot, got %s", code)
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	f := newFixture(t)

	req := createRequest("2024-07-15", "9am")
	_, err := f.svc.Create(context.Background(), user("u1"), req)
	if code := appErrorCode(t, err); code != apperrors.CodeValidation {
		t.Errorf("Expected validation error, got %s", code)
	}
}

func TestCreate_NoBookingOrEventWhenInsertFails(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)
	f.bookings.createErr = errors.New("insert failed")

	_, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err == nil {
		t.Fatal("Expected create to fail when insert fails")
	}
	if len(f.bookings.bookings) != 0 {
		t.Errorf("Expected no booking records, got %d", len(f.bookings.bookings))
	}
	if len(f.notifier.confirmed) != 0 {
		t.Error("Expected no confirmation event on failure")
	}
}

func TestCreate_NotificationFailureIsNonFatal(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)
	f.notifier.err = errors.New("broker down")

	if _, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM")); err != nil {
		t.Fatalf("Expected create to succeed despite notification failure: %v", err)
	}
}

// --- ownership and reads ---

func TestGetByID_Ownership(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := f.svc.GetByID(context.Background(), user("u1"), booking.ID); err != nil {
		t.Errorf("Owner should see their booking: %v", err)
	}
	if _, err := f.svc.GetByID(context.Background(), admin("a1"), booking.ID); err != nil {
		t.Errorf("Admin should see any booking: %v", err)
	}
	_, err = f.svc.GetByID(context.Background(), user("u2"), booking.ID)
	if code := appErrorCode(t, err); code != apperrors.CodeForbidden {
		t.Errorf("Expected forbidden for other user, got %s", code)
	}
}

func TestList_AdminOnly(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.List(context.Background(), user("u1"), 10, 0)
	if code := appErrorCode(t, err); code != apperrors.CodeForbidden {
		t.Errorf("Expected forbidden for non-admin list, got %s", code)
	}

	if _, _, err := f.svc.List(context.Background(), admin("a1"), 10, 0); err != nil {
		t.Errorf("Admin list failed: %v", err)
	}
}

func TestListOwn_FiltersByUser(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)
	f.seedSlot(t, "2024-07-15", 10, model.SlotAvailable, false)

	if _, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), user("u2"), createRequest("2024-07-15", "10:00AM")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	bookings, count, err := f.svc.ListOwn(context.Background(), user("u1"), 10, 0)
	if err != nil {
		t.Fatalf("ListOwn failed: %v", err)
	}
	if count != 1 || len(bookings) != 1 {
		t.Errorf("Expected one booking for u1, got count=%d len=%d", count, len(bookings))
	}
	if len(bookings) == 1 && bookings[0].User.ID != "u1" {
		t.Errorf("Expected u1's booking, got %s", bookings[0].User.ID)
	}
}

// --- Update ---

func TestUpdate_RescheduleMovesBothSlots(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)
	f.seedSlot(t, "2024-07-16", 10, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	oldDate, oldTime := booking.Date, booking.Time

	updated, err := f.svc.Update(context.Background(), user("u1"), booking.ID, &model.BookingUpdate{
		Date: "2024-07-16",
		Time: "10:00AM",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Time != "10:00AM" {
		t.Errorf("Expected booking moved to 10:00AM, got %s", updated.Time)
	}

	oldSlot, err := f.slots.FindByDateTime(context.Background(), oldDate, oldTime)
	if err != nil {
		t.Fatalf("Failed to find old slot: %v", err)
	}
	if oldSlot.Status != model.SlotAvailable || oldSlot.Booked {
		t.Errorf("Expected old slot freed, got status=%s booked=%v", oldSlot.Status, oldSlot.Booked)
	}

	newSlot, err := f.slots.FindByDateTime(context.Background(), updated.Date, updated.Time)
	if err != nil {
		t.Fatalf("Failed to find new slot: %v", err)
	}
	if newSlot.Status != model.SlotBlocked || !newSlot.Booked {
		t.Errorf("Expected new slot claimed, got status=%s booked=%v", newSlot.Status, newSlot.Booked)
	}
}

func TestUpdate_RescheduleToTakenSlot(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)
	f.seedSlot(t, "2024-07-15", 10, model.SlotAvailable, false)

	first, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), user("u2"), createRequest("2024-07-15", "10:00AM")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = f.svc.Update(context.Background(), user("u1"), first.ID, &model.BookingUpdate{
		Date: "2024-07-15",
		Time: "10:00AM",
	})
	if code := appErrorCode(t, err); code != apperrors.CodeSlotUnavailable {
		t.Errorf("Expected slot unavailable, got %s", code)
	}

	// The original claim must be intact.
	slot, err := f.slots.FindByDateTime(context.Background(), first.Date, first.Time)
	if err != nil {
		t.Fatalf("Failed to find original slot: %v", err)
	}
	if slot.Status != model.SlotBlocked || !slot.Booked {
		t.Errorf("Expected original slot still claimed, got status=%s booked=%v", slot.Status, slot.Booked)
	}
}

func TestUpdate_ContactOnly(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := f.svc.Update(context.Background(), user("u1"), booking.ID, &model.BookingUpdate{
		Name:  "New Name",
		Phone: "+12025550199",
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.User.Name != "New Name" || updated.User.Phone != "+12025550199" {
		t.Errorf("Expected contact updated, got %+v", updated.User)
	}
	if updated.Time != "09:00AM" {
		t.Errorf("Expected slot untouched, got %s", updated.Time)
	}
}

func TestUpdate_SameSlotIsNoMove(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Rescheduling onto the same slot must not conflict with itself.
	if _, err := f.svc.Update(context.Background(), user("u1"), booking.ID, &model.BookingUpdate{
		Date: "2024-07-15",
		Time: "09:00AM",
	}); err != nil {
		t.Errorf("Expected same-slot update to succeed, got: %v", err)
	}
}

func TestUpdate_OldSlotOutOfSync(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)
	f.seedSlot(t, "2024-07-16", 10, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The booking's own slot was freed behind its back.
	slot := f.slots.slots[slotKey(booking.Date, booking.Time)]
	slot.Status = model.SlotAvailable
	slot.Booked = false

	_, err = f.svc.Update(context.Background(), user("u1"), booking.ID, &model.BookingUpdate{
		Date: "2024-07-16",
		Time: "10:00AM",
	})
	if code := appErrorCode(t, err); code != apperrors.CodeInconsistent {
		t.Errorf("Expected data inconsistency, got %s", code)
	}
}

func TestUpdate_OldSlotStoreError(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)
	f.seedSlot(t, "2024-07-16", 10, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	f.slots.updateErrs[slotKey(booking.Date, booking.Time)] = errors.New("connection reset")

	_, err = f.svc.Update(context.Background(), user("u1"), booking.ID, &model.BookingUpdate{
		Date: "2024-07-16",
		Time: "10:00AM",
	})
	if code := appErrorCode(t, err); code != apperrors.CodeInternal {
		t.Errorf("Expected internal error for store failure, got %s", code)
	}
}

func TestUpdate_ForbiddenForOtherUser(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = f.svc.Update(context.Background(), user("u2"), booking.ID, &model.BookingUpdate{Service: "Lineup"})
	if code := appErrorCode(t, err); code != apperrors.CodeForbidden {
		t.Errorf("Expected forbidden, got %s", code)
	}
}

func TestUpdate_UnknownBooking(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), user("u1"), "missing", &model.BookingUpdate{Service: "Lineup"})
	if code := appErrorCode(t, err); code != apperrors.CodeNotFound {
		t.Errorf("Expected not found, got %s", code)
	}
}

// --- Cancel ---

func TestCancel_FreesSlotAndDeletesBooking(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := f.svc.Cancel(context.Background(), user("u1"), booking.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	if len(f.bookings.bookings) != 0 {
		t.Errorf("Expected booking deleted, %d remain", len(f.bookings.bookings))
	}

	slot, err := f.slots.FindByDateTime(context.Background(), booking.Date, booking.Time)
	if err != nil {
		t.Fatalf("Failed to find slot: %v", err)
	}
	if slot.Status != model.SlotAvailable || slot.Booked {
		t.Errorf("Expected slot freed, got status=%s booked=%v", slot.Status, slot.Booked)
	}

	if len(f.notifier.cancelled) != 1 {
		t.Errorf("Expected one cancellation event, got %d", len(f.notifier.cancelled))
	}
}

func TestCancel_MissingSlotFails(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Simulate a slot record lost to manual intervention.
	delete(f.slots.slots, slotKey(booking.Date, booking.Time))

	err = f.svc.Cancel(context.Background(), user("u1"), booking.ID)
	if code := appErrorCode(t, err); code != apperrors.CodeNotFound {
		t.Errorf("Expected not found for absent slot, got %s", code)
	}
	if len(f.bookings.bookings) != 1 {
		t.Error("Expected booking to survive the failed cancel")
	}
	if len(f.notifier.cancelled) != 0 {
		t.Error("Expected no cancellation event")
	}
}

func TestCancel_UnblockedSlotStillCancels(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// The slot record exists but is already free.
	slot := f.slots.slots[slotKey(booking.Date, booking.Time)]
	slot.Status = model.SlotAvailable
	slot.Booked = false

	if err := f.svc.Cancel(context.Background(), user("u1"), booking.ID); err != nil {
		t.Fatalf("Expected cancel to succeed on an already free slot: %v", err)
	}
	if len(f.bookings.bookings) != 0 {
		t.Errorf("Expected booking deleted, %d remain", len(f.bookings.bookings))
	}
}

func TestCancel_ForbiddenForOtherUser(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	err = f.svc.Cancel(context.Background(), user("u2"), booking.ID)
	if code := appErrorCode(t, err); code != apperrors.CodeForbidden {
		t.Errorf("Expected forbidden, got %s", code)
	}

	if err := f.svc.Cancel(context.Background(), admin("a1"), booking.ID); err != nil {
		t.Errorf("Admin should cancel any booking: %v", err)
	}
}

// --- SetSlotStatus ---

func TestSetSlotStatus_AdminGate(t *testing.T) {
	f := newFixture(t)
	slot := f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	_, err := f.svc.SetSlotStatus(context.Background(), user("u1"), slot.ID, model.SlotBlocked)
	if code := appErrorCode(t, err); code != apperrors.CodeForbidden {
		t.Errorf("Expected forbidden for non-admin, got %s", code)
	}
}

func TestSetSlotStatus_BlocksFreeSlot(t *testing.T) {
	f := newFixture(t)
	slot := f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	updated, err := f.svc.SetSlotStatus(context.Background(), admin("a1"), slot.ID, model.SlotBlocked)
	if err != nil {
		t.Fatalf("SetSlotStatus failed: %v", err)
	}
	if updated.Status != model.SlotBlocked || updated.Booked {
		t.Errorf("Expected blocked unbooked slot, got status=%s booked=%v", updated.Status, updated.Booked)
	}
}

func TestSetSlotStatus_ForceCancelsBooking(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	slot, err := f.slots.FindByDateTime(context.Background(), booking.Date, booking.Time)
	if err != nil {
		t.Fatalf("Failed to find slot: %v", err)
	}

	updated, err := f.svc.SetSlotStatus(context.Background(), admin("a1"), slot.ID, model.SlotBlocked)
	if err != nil {
		t.Fatalf("SetSlotStatus failed: %v", err)
	}

	if updated.Status != model.SlotBlocked || updated.Booked {
		t.Errorf("Expected admin-held slot, got status=%s booked=%v", updated.Status, updated.Booked)
	}
	if len(f.bookings.bookings) != 0 {
		t.Errorf("Expected booking force-cancelled, %d remain", len(f.bookings.bookings))
	}
	if len(f.notifier.forceCancelled) != 1 {
		t.Fatalf("Expected one force-cancel event, got %d", len(f.notifier.forceCancelled))
	}
	if f.notifier.forceCancelled[0].BookingID != booking.ID {
		t.Errorf("Expected event for %s, got %s", booking.ID, f.notifier.forceCancelled[0].BookingID)
	}
}

func TestSetSlotStatus_RejectsFreeingBookedSlot(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	booking, err := f.svc.Create(context.Background(), user("u1"), createRequest("2024-07-15", "09:00AM"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	slot, err := f.slots.FindByDateTime(context.Background(), booking.Date, booking.Time)
	if err != nil {
		t.Fatalf("Failed to find slot: %v", err)
	}

	_, err = f.svc.SetSlotStatus(context.Background(), admin("a1"), slot.ID, model.SlotAvailable)
	if code := appErrorCode(t, err); code != apperrors.CodeConflict {
		t.Errorf("Expected conflict, got %s", code)
	}
	if len(f.bookings.bookings) != 1 {
		t.Error("Expected booking to survive rejected status change")
	}
}

func TestSetSlotStatus_NoOpOnSameStatus(t *testing.T) {
	f := newFixture(t)
	slot := f.seedSlot(t, "2024-07-15", 9, model.SlotBlocked, false)

	updated, err := f.svc.SetSlotStatus(context.Background(), admin("a1"), slot.ID, model.SlotBlocked)
	if err != nil {
		t.Fatalf("SetSlotStatus failed: %v", err)
	}
	if updated.Status != model.SlotBlocked {
		t.Errorf("Expected blocked, got %s", updated.Status)
	}
}

func TestSetSlotStatus_UnknownSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SetSlotStatus(context.Background(), admin("a1"), "missing", model.SlotBlocked)
	if code := appErrorCode(t, err); code != apperrors.CodeNotFound {
		t.Errorf("Expected not found, got %s", code)
	}
}

// --- availability views ---

func TestFullyBookedDates(t *testing.T) {
	f := newFixture(t)
	f.cfg.DailyCapacity = 2

	for _, hour := range []int{9, 10} {
		f.seedSlot(t, "2024-07-15", hour, model.SlotAvailable, false)
		f.seedSlot(t, "2024-07-16", hour, model.SlotAvailable, false)
	}

	// Fill the 15th, half-fill the 16th.
	for i, hour := range []int{9, 10} {
		req := createRequest("2024-07-15", timeutil.HourLabel(hour))
		if _, err := f.svc.Create(context.Background(), user(fmt.Sprintf("u%d", i)), req); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	if _, err := f.svc.Create(context.Background(), user("u9"), createRequest("2024-07-16", "09:00AM")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	days, err := f.svc.FullyBookedDates(context.Background())
	if err != nil {
		t.Fatalf("FullyBookedDates failed: %v", err)
	}

	if len(days) != 1 {
		t.Fatalf("Expected one fully booked day, got %d", len(days))
	}
	if days[0].Date != "2024-07-15" || days[0].Count != 2 {
		t.Errorf("Unexpected day: %+v", days[0])
	}
}

func TestFullyBookedDates_IncludesPastDays(t *testing.T) {
	f := newFixture(t)
	f.cfg.DailyCapacity = 2

	// Bookings on a day before the fixture clock, not yet purged.
	day, _ := timeutil.ParseDay("2024-07-01", f.loc)
	for i, hour := range []int{9, 10} {
		id := fmt.Sprintf("past-%d", i)
		f.bookings.bookings[id] = &model.Booking{
			ID:   id,
			User: model.BookingUser{ID: "u1", Name: "Dana Levi", Phone: "+12025550117"},
			Date: timeutil.SlotInstant(day, hour, f.loc),
			Time: timeutil.HourLabel(hour),
		}
	}

	days, err := f.svc.FullyBookedDates(context.Background())
	if err != nil {
		t.Fatalf("FullyBookedDates failed: %v", err)
	}

	if len(days) != 1 {
		t.Fatalf("Expected one fully booked day, got %d", len(days))
	}
	if days[0].Date != "2024-07-01" || days[0].Count != 2 {
		t.Errorf("Unexpected day: %+v", days[0])
	}
}

func TestBookedTimes(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)
	f.seedSlot(t, "2024-07-15", 14, model.SlotAvailable, false)
	f.seedSlot(t, "2024-07-16", 9, model.SlotAvailable, false)

	for _, req := range []*model.BookingRequest{
		createRequest("2024-07-15", "09:00AM"),
		createRequest("2024-07-15", "02:00PM"),
		createRequest("2024-07-16", "09:00AM"),
	} {
		if _, err := f.svc.Create(context.Background(), user("u1"), req); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	times, err := f.svc.BookedTimes(context.Background(), "2024-07-15")
	if err != nil {
		t.Fatalf("BookedTimes failed: %v", err)
	}

	if len(times) != 2 {
		t.Fatalf("Expected two booked times, got %d: %v", len(times), times)
	}
	seen := map[string]bool{}
	for _, label := range times {
		seen[label] = true
	}
	if !seen["09:00AM"] || !seen["02:00PM"] {
		t.Errorf("Unexpected booked times: %v", times)
	}
}

func TestBookedTimes_InvalidDate(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.BookedTimes(context.Background(), "July 15"); err == nil {
		t.Error("Expected error for malformed date")
	}
}

// --- PurgeExpired ---

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t)
	f.seedSlot(t, "2024-07-08", 9, model.SlotBlocked, true)
	f.seedSlot(t, "2024-07-15", 9, model.SlotAvailable, false)

	day, _ := timeutil.ParseDay("2024-07-08", f.loc)
	f.bookings.bookings["old"] = &model.Booking{
		ID:   "old",
		User: model.BookingUser{ID: "u1", Name: "Dana Levi", Phone: "+12025550117"},
		Date: timeutil.SlotInstant(day, 9, f.loc),
		Time: "09:00AM",
	}

	slotsDeleted, bookingsDeleted, err := f.svc.PurgeExpired(context.Background(), fixedNow)
	if err != nil {
		t.Fatalf("PurgeExpired failed: %v", err)
	}

	if slotsDeleted != 1 || bookingsDeleted != 1 {
		t.Errorf("Expected 1 slot and 1 booking purged, got %d and %d", slotsDeleted, bookingsDeleted)
	}
	if len(f.slots.slots) != 1 {
		t.Errorf("Expected future slot to survive, %d slots remain", len(f.slots.slots))
	}
	if len(f.bookings.bookings) != 0 {
		t.Errorf("Expected old booking purged, %d remain", len(f.bookings.bookings))
	}
}
