package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "dermsched"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultSlotsAPIBaseURL = "http://localhost:8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Scheduling domain defaults. Slots shorter than 5 minutes are never
	// bookable; availability may be published at most 30 days ahead and the
	// weekly repeat pattern is capped at 4 extra weeks.
	DefaultMinSlotDurationMin     = 5
	DefaultDefaultSlotDurationMin = 30
	DefaultMaxRepeatWeeks         = 4
	DefaultMaxAdvanceDays         = 30
	DefaultFetchWindowPastDays    = 30
	DefaultFetchWindowFutureDays  = 90

	// Repeating a date pattern weekly is only meaningful when the pattern
	// spans strictly less than one week.
	RepeatSpanLimitDays = 7
)
