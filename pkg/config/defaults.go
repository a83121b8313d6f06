package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "clipbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBusinessTimeZone = "America/New_York"
	DefaultHorizonDays      = 7
	DefaultDayStartHour     = 9
	DefaultDayEndHour       = 17
	DefaultSlotStatus       = "available"

	// Seed shortly after midnight so the rolling horizon always covers a full
	// window; purge runs first so expired records never linger past the day.
	DefaultSeedCronSpec  = "30 0 * * *"
	DefaultPurgeCronSpec = "5 0 * * *"

	DefaultKafkaBrokers     = ""
	DefaultKafkaTopic       = "booking-events"
	DefaultKafkaMaxAttempts = 3
)
