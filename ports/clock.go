package ports

import "time"

// Clock is the single source of wall-clock time for TTL checks
type Clock interface {
	Now() time.Time
}
