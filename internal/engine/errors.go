// Package engine implements the rental inventory and billing engine:
// deciding whether a copy is available, atomically assigning a copy to
// a customer, and closing rentals with a computed payment.  The engine
// returns typed errors and never logs or formats user-facing messages;
// translating these sentinels into HTTP responses is the caller's job.
package engine

import "errors"

// ErrNoUnitsAvailable is returned by Checkout when every copy of the
// requested film at the requested store is already rented out.  This
// is an expected outcome, not a bug.
var ErrNoUnitsAvailable = errors.New("no units available")

// ErrFilmNotFound is returned when the requested film does not exist
// in the catalog.
var ErrFilmNotFound = errors.New("film not found")

// ErrRentalNotFound is returned by Return when no rental exists with
// the given identifier.
var ErrRentalNotFound = errors.New("rental not found")

// ErrAlreadyReturned is returned by Return when the rental has already
// been closed.  The losing side of a concurrent double-return sees
// this error; no second payment is ever written.
var ErrAlreadyReturned = errors.New("rental already returned")

// ErrNoStaffAtStore is returned when no staff identity was supplied
// and the store has no staff assigned to fall back on.  This is an
// operational misconfiguration: the request fails rather than being
// attributed to an arbitrary employee.
var ErrNoStaffAtStore = errors.New("no staff assigned to store")

// ErrContentionExhausted is returned when an operation kept losing
// lock or commit races and ran out of retries.  Callers may safely
// retry the whole operation.
var ErrContentionExhausted = errors.New("too much contention, retries exhausted")

// ErrUnitTaken is the signal a Tx implementation returns from
// InsertRental when another transaction has already opened a rental on
// the same unit.  The coordinator reacts by trying the next candidate;
// it never escapes to API callers.
var ErrUnitTaken = errors.New("unit already rented")

// ErrTxConflict is the signal a Tx implementation returns when a
// statement or commit failed due to a lock conflict that makes the
// whole transaction worth retrying (deadlock, lock wait timeout).
var ErrTxConflict = errors.New("transaction conflict")
