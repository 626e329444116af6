package domain

import "time"

// SessionSchemaVersion is the version written with every session item.
// Items with any other version are read as absent.
const SessionSchemaVersion = 1

// Session is the durable per-user record of the last selected city.
type Session struct {
	UserID    int64
	City      string
	UpdatedAt time.Time
}
