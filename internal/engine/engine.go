package engine

import (
	"context"
	"errors"
	"time"

	"github.com/dvdstore/rentals/internal/model"
)

// defaultMaxAttempts bounds how many times Checkout and Return restart
// their transaction after losing a lock race.  Conflicts are rare and
// short-lived, so retries are immediate.
const defaultMaxAttempts = 3

// Engine is the only writer of rental and payment rows.  It owns the
// checkout and return lifecycles and answers availability queries; all
// persistence goes through the injected Store so the logic can be
// exercised against an in-memory fake.
type Engine struct {
	store       Store
	maxAttempts int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxAttempts overrides the transaction retry bound.  Values
// below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.maxAttempts = n
		}
	}
}

// WithClock overrides the time source.  Used by tests to pin "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New constructs an Engine over the given store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		maxAttempts: defaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckoutRequest identifies who is renting what.  StaffID may be zero
// when the caller has no staff identity of its own; the engine then
// falls back to the first staff member assigned to the store and fails
// with ErrNoStaffAtStore if there is none.
type CheckoutRequest struct {
	CustomerID uint64
	FilmID     uint64
	StoreID    uint64
	StaffID    uint64
}

// Receipt is the result of a successful return: the payment that was
// recorded plus the fee breakdown behind it.
type Receipt struct {
	Payment model.Payment
	Charges Charges
}

// CountAvailable reports how many copies of the film are free at the
// store.  It is the read path behind every catalog browse: a single
// aggregate query outside any transaction, taking no locks.
func (e *Engine) CountAvailable(ctx context.Context, filmID, storeID uint64) (int, error) {
	return e.store.CountAvailable(ctx, filmID, storeID)
}

// IsAvailable reports whether at least one copy of the film is free at
// the store.
func (e *Engine) IsAvailable(ctx context.Context, filmID, storeID uint64) (bool, error) {
	n, err := e.store.CountAvailable(ctx, filmID, storeID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AvailableUnits lists the free copies of the film at the store,
// ordered by unit id ascending.
func (e *Engine) AvailableUnits(ctx context.Context, filmID, storeID uint64) ([]model.InventoryUnit, error) {
	return e.store.AvailableUnits(ctx, filmID, storeID)
}

// Checkout assigns a free copy of the film at the store to the
// customer and opens a rental on it.  Candidates are tried in unit-id
// order; when a concurrent checkout wins the race for a unit the next
// candidate is tried, and only once every candidate is taken does the
// call fail with ErrNoUnitsAvailable.  Lock-level conflicts restart
// the whole transaction up to the retry bound, after which
// ErrContentionExhausted is returned.  On success exactly one new open
// rental exists; on any failure, none.
func (e *Engine) Checkout(ctx context.Context, req CheckoutRequest) (*model.Rental, error) {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		rental, err := e.tryCheckout(ctx, req)
		if err == nil {
			return rental, nil
		}
		if errors.Is(err, ErrTxConflict) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, errors.Join(ErrContentionExhausted, lastErr)
}

func (e *Engine) tryCheckout(ctx context.Context, req CheckoutRequest) (*model.Rental, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.FilmByID(ctx, req.FilmID); err != nil {
		return nil, err
	}

	staffID := req.StaffID
	if staffID == 0 {
		staffID, err = tx.FirstStaffAtStore(ctx, req.StoreID)
		if err != nil {
			return nil, err
		}
	}

	unitIDs, err := tx.AvailableUnitIDs(ctx, req.FilmID, req.StoreID)
	if err != nil {
		return nil, err
	}

	for _, unitID := range unitIDs {
		rental := &model.Rental{
			InventoryID: unitID,
			CustomerID:  req.CustomerID,
			StaffID:     staffID,
			RentedAt:    e.now(),
		}
		err := tx.InsertRental(ctx, rental)
		if errors.Is(err, ErrUnitTaken) {
			// Another terminal got this copy between our snapshot
			// and the insert; the next candidate may still be free.
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return rental, nil
	}
	return nil, ErrNoUnitsAvailable
}

// Return closes an open rental and records its payment.  The rental
// row is locked for the duration so concurrent returns serialize: one
// caller closes and pays, the rest get ErrAlreadyReturned.  The close
// and the payment insert commit together or not at all.
func (e *Engine) Return(ctx context.Context, rentalID uint64) (*Receipt, error) {
	var lastErr error
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		receipt, err := e.tryReturn(ctx, rentalID)
		if err == nil {
			return receipt, nil
		}
		if errors.Is(err, ErrTxConflict) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, errors.Join(ErrContentionExhausted, lastErr)
}

func (e *Engine) tryReturn(ctx context.Context, rentalID uint64) (*Receipt, error) {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rental, err := tx.RentalForUpdate(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	if !rental.Open() {
		return nil, ErrAlreadyReturned
	}

	film, err := tx.FilmByInventory(ctx, rental.InventoryID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	charges := computeCharges(film, rental.RentedAt, now)

	if err := tx.CloseRental(ctx, rentalID, now); err != nil {
		return nil, err
	}
	payment := &model.Payment{
		RentalID:    rentalID,
		CustomerID:  rental.CustomerID,
		StaffID:     rental.StaffID,
		AmountCents: charges.AmountCents,
		PaidAt:      now,
	}
	if err := tx.InsertPayment(ctx, payment); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &Receipt{Payment: *payment, Charges: charges}, nil
}
