package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"clipbook/pkg/client"
	"clipbook/pkg/logger"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BusinessTimeZone string
	Location         *time.Location

	HorizonDays       int
	DayStartHour      int
	DayEndHour        int
	DailyCapacity     int
	DefaultSlotStatus string

	SeedCronSpec  string
	PurgeCronSpec string

	JWTSecret string

	KafkaBrokers     []string
	KafkaTopic       string
	KafkaMaxAttempts int

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		BusinessTimeZone: getEnvStr(EnvBusinessTimeZone, DefaultBusinessTimeZone),

		HorizonDays:       getEnvNum(EnvHorizonDays, DefaultHorizonDays),
		DayStartHour:      getEnvNum(EnvDayStartHour, DefaultDayStartHour),
		DayEndHour:        getEnvNum(EnvDayEndHour, DefaultDayEndHour),
		DailyCapacity:     getEnvNum(EnvDailyCapacity, 0),
		DefaultSlotStatus: getEnvStr(EnvDefaultSlotStatus, DefaultSlotStatus),

		SeedCronSpec:  getEnvStr(EnvSeedCronSpec, DefaultSeedCronSpec),
		PurgeCronSpec: getEnvStr(EnvPurgeCronSpec, DefaultPurgeCronSpec),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		KafkaBrokers:     splitBrokers(getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers)),
		KafkaTopic:       getEnvStr(EnvKafkaTopic, DefaultKafkaTopic),
		KafkaMaxAttempts: getEnvNum(EnvKafkaMaxAttempts, DefaultKafkaMaxAttempts),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.FormatJSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	// The daily capacity defaults to the number of hour slots in the window,
	// so "every slot booked" and "fully booked" mean the same thing.
	if cfg.DailyCapacity == 0 {
		cfg.DailyCapacity = cfg.DayEndHour - cfg.DayStartHour
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", cfg.MongoURI))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errs = append(errs, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	loc, err := time.LoadLocation(cfg.BusinessTimeZone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("BusinessTimeZone is not a valid IANA zone: %s", cfg.BusinessTimeZone))
	} else {
		cfg.Location = loc
	}

	if cfg.HorizonDays < 1 {
		errs = append(errs, fmt.Sprintf("HorizonDays must be at least 1, got: %d", cfg.HorizonDays))
	}
	if cfg.DayStartHour < 0 || cfg.DayStartHour > 23 {
		errs = append(errs, fmt.Sprintf("DayStartHour must be between 0 and 23, got: %d", cfg.DayStartHour))
	}
	if cfg.DayEndHour < 1 || cfg.DayEndHour > 24 {
		errs = append(errs, fmt.Sprintf("DayEndHour must be between 1 and 24, got: %d", cfg.DayEndHour))
	}
	if cfg.DayEndHour <= cfg.DayStartHour {
		errs = append(errs, fmt.Sprintf("DayEndHour (%d) must be after DayStartHour (%d)", cfg.DayEndHour, cfg.DayStartHour))
	}
	if cfg.DailyCapacity < 1 {
		errs = append(errs, fmt.Sprintf("DailyCapacity must be at least 1, got: %d", cfg.DailyCapacity))
	}
	if cfg.DefaultSlotStatus != "available" && cfg.DefaultSlotStatus != "blocked" {
		errs = append(errs, fmt.Sprintf("DefaultSlotStatus must be 'available' or 'blocked', got: %s", cfg.DefaultSlotStatus))
	}

	if len(errs) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, e := range errs {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"business_timezone", cfg.BusinessTimeZone,
		"horizon_days", cfg.HorizonDays,
		"day_start_hour", cfg.DayStartHour,
		"day_end_hour", cfg.DayEndHour,
		"daily_capacity", cfg.DailyCapacity,
		"default_slot_status", cfg.DefaultSlotStatus,
		"seed_cron_spec", cfg.SeedCronSpec,
		"purge_cron_spec", cfg.PurgeCronSpec,
		"jwt_secret_set", cfg.JWTSecret != "",
		"kafka_brokers", cfg.KafkaBrokers,
		"kafka_topic", cfg.KafkaTopic,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func splitBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
