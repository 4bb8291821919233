package model

import "time"

// Overview is a point-in-time summary of the dispatch pipeline. The *Today
// counters cover assignments created since Since.
type Overview struct {
	Timestamp            time.Time
	Since                time.Time
	Pending              int
	Accepted             int
	CreatedToday         int
	CompletedToday       int
	ExpiredToday         int
	CancelledToday       int
	RejectedOffersToday  int
	AverageAcceptSeconds float64
	ConnectedDrivers     int
}
