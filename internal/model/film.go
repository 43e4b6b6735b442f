package model

import "time"

// Film represents a title in the rental catalog.  The engine treats
// films as read-only reference data: rates and durations are set by
// catalog management and only consulted here when billing a return.
//
// Fields:
//  ID                 – primary key identifier.
//  Title              – film title.
//  Rating             – audience rating label (G, PG, R, ...).
//  RentalRateCents    – base price in cents charged per rental.
//  RentalDurationDays – number of days a copy may be kept before
//                       late fees start accruing.
//  CreatedAt          – creation timestamp.
type Film struct {
	ID                 uint64    // film.id
	Title              string    // film.title
	Rating             string    // film.rating
	RentalRateCents    uint32    // film.rental_rate_cents
	RentalDurationDays uint32    // film.rental_duration_days
	CreatedAt          time.Time // film.created_at
}
