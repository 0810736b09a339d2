package constants

import "time"

// RFC 3339 date-time format used for every serialized timestamp.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

const (
	DefaultRateLimitRequests      = 100
	DefaultRateLimitWindowMinutes = 1
)

func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}

// Roles granted to users.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Pagination bounds for list endpoints.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

const (
	DefaultTokenTTL = time.Hour
	DefaultCacheTTL = 5 * time.Minute
)
