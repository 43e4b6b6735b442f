package engine

import (
	"time"

	"github.com/dvdstore/rentals/internal/model"
)

// lateFeeCentsPerDay is the flat penalty accrued for each whole day a
// copy is kept past its due date.
const lateFeeCentsPerDay uint32 = 100

// Charges is the fee breakdown computed when a rental is returned.
// The engine hands it back alongside the payment so callers can render
// a receipt; it never formats messages itself.
type Charges struct {
	BaseRateCents uint32 `json:"base_rate_cents"`
	LateFeeCents  uint32 `json:"late_fee_cents"`
	DaysOverdue   int    `json:"days_overdue"`
	AmountCents   uint32 `json:"amount_cents"`
}

// computeCharges prices a return.  The due date is the checkout time
// plus the film's rental duration; days overdue counts whole elapsed
// 24h periods past the due date, never negative.  A return exactly at
// the due date, or any time before it, owes the base rate only.
func computeCharges(film *model.Film, rentedAt, returnedAt time.Time) Charges {
	due := rentedAt.Add(time.Duration(film.RentalDurationDays) * 24 * time.Hour)
	days := 0
	if returnedAt.After(due) {
		days = int(returnedAt.Sub(due) / (24 * time.Hour))
	}
	fee := uint32(days) * lateFeeCentsPerDay
	return Charges{
		BaseRateCents: film.RentalRateCents,
		LateFeeCents:  fee,
		DaysOverdue:   days,
		AmountCents:   film.RentalRateCents + fee,
	}
}
