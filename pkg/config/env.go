package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvBusinessTimeZone  = "BUSINESS_TIMEZONE"
	EnvHorizonDays       = "HORIZON_DAYS"
	EnvDayStartHour      = "DAY_START_HOUR"
	EnvDayEndHour        = "DAY_END_HOUR"
	EnvDailyCapacity     = "DAILY_CAPACITY"
	EnvDefaultSlotStatus = "DEFAULT_SLOT_STATUS"
	EnvSeedCronSpec      = "SEED_CRON_SPEC"
	EnvPurgeCronSpec     = "PURGE_CRON_SPEC"

	EnvJWTSecret = "JWT_SECRET"

	EnvKafkaBrokers     = "KAFKA_BROKERS"
	EnvKafkaTopic       = "KAFKA_TOPIC"
	EnvKafkaMaxAttempts = "KAFKA_PRODUCER_MAX_ATTEMPTS"
)
