// Command cleanup purges slots and bookings from past days. It exists for
// one-off runs and external schedulers; the server runs the same sweep on its
// own cron schedule.
package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	bookingrepository "clipbook/internal/bookings/repository"
	bookingservice "clipbook/internal/bookings/service"
	bookingvalidator "clipbook/internal/bookings/validator"
	"clipbook/internal/notify"
	slotrepository "clipbook/internal/slots/repository"
	"clipbook/pkg/config"
)

const ServiceName = "clipbook-cleanup"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	slotRepo := slotrepository.NewMongoSlotRepository(cfg)
	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)

	svc := bookingservice.NewBookingService(
		bookingRepo,
		slotRepo,
		bookingvalidator.NewBookingValidator(cfg.Log),
		notify.NewNoopNotifier(cfg.Log),
		cfg,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	slotsDeleted, bookingsDeleted, err := svc.PurgeExpired(ctx, time.Now())
	if err != nil {
		cfg.Log.Fatal("Cleanup failed", "error", err)
	}

	cfg.Log.Info("Cleanup completed",
		"slots_deleted", slotsDeleted,
		"bookings_deleted", bookingsDeleted,
	)
}
