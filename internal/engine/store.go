package engine

import (
	"context"
	"time"

	"github.com/dvdstore/rentals/internal/model"
)

// Store is the persistence boundary the engine operates against.  The
// production implementation wraps a pooled *sql.DB (see
// internal/repository); tests use a mutex-guarded in-memory fake.
// Begin opens a transactional scope; CountAvailable serves the hot
// read path outside any transaction so browsing never takes locks.
type Store interface {
	// Begin starts a transaction with at least read-committed
	// semantics.  The caller must Commit or Rollback the returned Tx.
	Begin(ctx context.Context) (Tx, error)

	// CountAvailable reports how many copies of the film at the store
	// have no open rental.  Single aggregate read, no locking.
	CountAvailable(ctx context.Context, filmID, storeID uint64) (int, error)

	// AvailableUnits lists the available copies of the film at the
	// store ordered by unit id ascending.
	AvailableUnits(ctx context.Context, filmID, storeID uint64) ([]model.InventoryUnit, error)
}

// Tx is one transactional scope over the rental data set.  Methods
// translate storage-level failures into the engine's sentinel errors:
// missing rows become the corresponding *NotFound sentinel,
// double-booking a unit becomes ErrUnitTaken, and retryable lock
// conflicts become ErrTxConflict.
type Tx interface {
	// FilmByID loads a catalog entry.  Returns ErrFilmNotFound when
	// the film does not exist.
	FilmByID(ctx context.Context, filmID uint64) (*model.Film, error)

	// FilmByInventory loads the film a given inventory unit belongs to.
	FilmByInventory(ctx context.Context, inventoryID uint64) (*model.Film, error)

	// AvailableUnitIDs returns the ids of copies of the film at the
	// store with no open rental, ascending.  The snapshot may be
	// stale by commit time; InsertRental is what actually decides.
	AvailableUnitIDs(ctx context.Context, filmID, storeID uint64) ([]uint64, error)

	// FirstStaffAtStore returns the lowest-id staff member assigned
	// to the store, or ErrNoStaffAtStore when the store has none.
	FirstStaffAtStore(ctx context.Context, storeID uint64) (uint64, error)

	// InsertRental opens a rental on the given unit, populating the
	// record's ID.  Returns ErrUnitTaken when a concurrent
	// transaction already holds an open rental on the unit.
	InsertRental(ctx context.Context, r *model.Rental) error

	// RentalForUpdate loads a rental with an exclusive row lock so
	// concurrent returns serialize.  Returns ErrRentalNotFound when
	// the rental does not exist.
	RentalForUpdate(ctx context.Context, rentalID uint64) (*model.Rental, error)

	// CloseRental stamps returned_at on an open rental.
	CloseRental(ctx context.Context, rentalID uint64, at time.Time) error

	// InsertPayment appends a payment row, populating the record's ID.
	InsertPayment(ctx context.Context, p *model.Payment) error

	Commit() error
	Rollback() error
}
