package service

import (
	"context"
	"sync"
	"time"

	"clipbook/internal/slots/repository"
	"clipbook/pkg/config"
	apperrors "clipbook/pkg/errors"
	"clipbook/pkg/model"
	"clipbook/pkg/timeutil"
)

type SlotService interface {
	EnsureHorizon(ctx context.Context, start time.Time) error
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.TimeSlot, int64, error)
	GetByDate(ctx context.Context, dateStr string) ([]*model.TimeSlot, error)
	DaySchedule(ctx context.Context, dateStr string) ([]*model.ScheduleEntry, error)
}

type slotService struct {
	repo repository.SlotRepository
	cfg  *config.Config
}

func NewSlotService(repo repository.SlotRepository, cfg *config.Config) SlotService {
	return &slotService{
		repo: repo,
		cfg:  cfg,
	}
}

// EnsureHorizon seeds one slot per (day, hour) over the configured horizon,
// starting at the business-timezone day containing start. Re-running over an
// overlapping horizon creates nothing new. Individual failures are logged and
// skipped; the next sweep self-heals any gap.
func (s *slotService) EnsureHorizon(ctx context.Context, start time.Time) error {
	day := start.In(s.cfg.Location)
	created, failed := 0, 0

	for d := 0; d < s.cfg.HorizonDays; d++ {
		for hour := s.cfg.DayStartHour; hour < s.cfg.DayEndHour; hour++ {
			date := timeutil.SlotInstant(day.AddDate(0, 0, d), hour, s.cfg.Location)
			label := timeutil.HourLabel(hour)

			wasCreated, err := s.repo.EnsureSlot(ctx, date, label, model.SlotStatus(s.cfg.DefaultSlotStatus))
			if err != nil {
				failed++
				s.cfg.Log.Warn("Failed to seed time slot, continuing",
					"date", date,
					"time", label,
					"error", err,
				)
				continue
			}
			if wasCreated {
				created++
			}
		}
	}

	s.cfg.Log.Info("Slot horizon seeded",
		"start", timeutil.DayKey(start, s.cfg.Location),
		"horizon_days", s.cfg.HorizonDays,
		"created", created,
		"failed", failed,
	)
	return nil
}

func (s *slotService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.TimeSlot, int64, error) {
	var count int64
	var slots []*model.TimeSlot
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count slots", "error", errCount)
			errCount = apperrors.Internal("Failed to count time slots", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		slots, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list slots", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve time slots", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return slots, count, nil
}

func (s *slotService) GetByDate(ctx context.Context, dateStr string) ([]*model.TimeSlot, error) {
	day, err := timeutil.ParseDay(dateStr, s.cfg.Location)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid date format, expected YYYY-MM-DD")
	}

	from, to := timeutil.DayBounds(day, s.cfg.Location)
	slots, err := s.repo.FindInRange(ctx, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to find slots by date", "date", dateStr, "error", err)
		return nil, apperrors.Internal("Failed to retrieve time slots", err)
	}

	return slots, nil
}

// DaySchedule projects the configured daily window onto the given date: every
// hour is reported as booked or available, whether or not a slot record
// exists for it.
func (s *slotService) DaySchedule(ctx context.Context, dateStr string) ([]*model.ScheduleEntry, error) {
	day, err := timeutil.ParseDay(dateStr, s.cfg.Location)
	if err != nil {
		return nil, apperrors.InvalidInput("Invalid date format, expected YYYY-MM-DD")
	}

	from, to := timeutil.DayBounds(day, s.cfg.Location)
	slots, err := s.repo.FindInRange(ctx, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to find slots for day schedule", "date", dateStr, "error", err)
		return nil, apperrors.Internal("Failed to retrieve day schedule", err)
	}

	blocked := make(map[string]bool, len(slots))
	for _, slot := range slots {
		if slot.Status == model.SlotBlocked {
			blocked[slot.Time] = true
		}
	}

	entries := make([]*model.ScheduleEntry, 0, s.cfg.DayEndHour-s.cfg.DayStartHour)
	for hour := s.cfg.DayStartHour; hour < s.cfg.DayEndHour; hour++ {
		label := timeutil.HourLabel(hour)
		status := "available"
		if blocked[label] {
			status = "booked"
		}
		entries = append(entries, &model.ScheduleEntry{
			Date:   timeutil.SlotInstant(day, hour, s.cfg.Location),
			Time:   label,
			Status: status,
		})
	}

	return entries, nil
}
