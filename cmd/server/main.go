package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"clipbook/internal/auth"
	bookinghandler "clipbook/internal/bookings/handler"
	bookingrepository "clipbook/internal/bookings/repository"
	bookingservice "clipbook/internal/bookings/service"
	bookingvalidator "clipbook/internal/bookings/validator"
	"clipbook/internal/catalog"
	"clipbook/internal/notify"
	slothandler "clipbook/internal/slots/handler"
	slotrepository "clipbook/internal/slots/repository"
	slotservice "clipbook/internal/slots/service"
	"clipbook/pkg/app"
	"clipbook/pkg/config"
	"clipbook/pkg/kafka"
)

const ServiceName = "clipbook"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	if cfg.JWTSecret == "" {
		cfg.Log.Fatal("JWT_SECRET must be set")
	}
	cfg.SetMongo()

	cfg.Log.Info("Starting Clipbook service")

	slotRepo := slotrepository.NewMongoSlotRepository(cfg)
	bookingRepo := bookingrepository.NewMongoBookingRepository(cfg)

	notifier, producer := initNotifier(cfg)

	slotSvc := slotservice.NewSlotService(slotRepo, cfg)
	bookingSvc := bookingservice.NewBookingService(
		bookingRepo,
		slotRepo,
		bookingvalidator.NewBookingValidator(cfg.Log),
		notifier,
		cfg,
	)

	seedInitial(cfg, slotSvc)
	scheduler := startScheduler(cfg, slotSvc, bookingSvc)

	authMW := auth.NewMiddleware(auth.NewJWTAuthenticator(cfg.JWTSecret), cfg.Log)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		bookinghandler.NewBookingHandler(bookingSvc, authMW, cfg.Log),
		slothandler.NewSlotHandler(slotSvc, bookingSvc, authMW, cfg.Log),
		catalog.NewHandler(cfg.Log),
	)
	serverApp.OnShutdown(func() {
		ctx := scheduler.Stop()
		<-ctx.Done()
		cfg.Log.Info("Scheduler stopped")
	})
	if producer != nil {
		serverApp.OnShutdown(func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
	}

	serverApp.Run()
}

func initNotifier(cfg *config.Config) (notify.Notifier, *kafka.Producer) {
	if len(cfg.KafkaBrokers) == 0 {
		cfg.Log.Warn("No Kafka brokers configured, booking notifications disabled")
		return notify.NewNoopNotifier(cfg.Log), nil
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaMaxAttempts)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	cfg.Log.Info("Kafka notifier initialized", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	return notify.NewKafkaNotifier(producer, cfg.Log), producer
}

// seedInitial fills the slot horizon once at startup, so a fresh deployment
// serves availability before the first scheduled sweep.
func seedInitial(cfg *config.Config, slotSvc slotservice.SlotService) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := slotSvc.EnsureHorizon(ctx, time.Now()); err != nil {
		cfg.Log.Fatal("Initial slot seeding failed", "error", err)
	}
}

func startScheduler(cfg *config.Config, slotSvc slotservice.SlotService, bookingSvc bookingservice.BookingService) *cron.Cron {
	scheduler := cron.New(cron.WithLocation(cfg.Location))

	if _, err := scheduler.AddFunc(cfg.SeedCronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := slotSvc.EnsureHorizon(ctx, time.Now()); err != nil {
			cfg.Log.Error("Scheduled slot seeding failed", "error", err)
		}
	}); err != nil {
		cfg.Log.Fatal("Invalid seed cron spec", "spec", cfg.SeedCronSpec, "error", err)
	}

	if _, err := scheduler.AddFunc(cfg.PurgeCronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, _, err := bookingSvc.PurgeExpired(ctx, time.Now()); err != nil {
			cfg.Log.Error("Scheduled purge failed", "error", err)
		}
	}); err != nil {
		cfg.Log.Fatal("Invalid purge cron spec", "spec", cfg.PurgeCronSpec, "error", err)
	}

	scheduler.Start()
	cfg.Log.Info("Scheduler started", "seed_spec", cfg.SeedCronSpec, "purge_spec", cfg.PurgeCronSpec)

	return scheduler
}
