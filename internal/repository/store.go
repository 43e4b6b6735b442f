package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dvdstore/rentals/internal/engine"
	"github.com/dvdstore/rentals/internal/model"
)

// MySQL server error numbers the engine cares about.
const (
	mysqlErrDupEntry    = 1062
	mysqlErrLockTimeout = 1205
	mysqlErrDeadlock    = 1213
)

// Store adapts the SQL repositories to the engine's persistence
// interfaces.  It is the production implementation of engine.Store:
// transactional scopes wrap *sql.Tx, and MySQL error numbers are
// translated into the engine's sentinel errors at this boundary so the
// engine itself never sees driver types.
type Store struct {
	db        *sql.DB
	films     *FilmRepo
	inventory *InventoryRepo
	staff     *StaffRepo
	rentals   *RentalRepo
	payments  *PaymentRepo
}

// NewStore builds a Store over a pooled database handle and the
// per-table repositories.
func NewStore(db *sql.DB, films *FilmRepo, inventory *InventoryRepo, staff *StaffRepo, rentals *RentalRepo, payments *PaymentRepo) *Store {
	return &Store{db: db, films: films, inventory: inventory, staff: staff, rentals: rentals, payments: payments}
}

// Begin opens a transaction at the connection's default isolation
// (REPEATABLE READ on MySQL, which satisfies the engine's
// read-committed floor).
func (s *Store) Begin(ctx context.Context) (engine.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translate(err)
	}
	return &storeTx{tx: tx, s: s}, nil
}

// CountAvailable implements the lock-free availability read path.
func (s *Store) CountAvailable(ctx context.Context, filmID, storeID uint64) (int, error) {
	return s.inventory.CountAvailable(ctx, filmID, storeID)
}

// AvailableUnits lists free copies outside any transaction.
func (s *Store) AvailableUnits(ctx context.Context, filmID, storeID uint64) ([]model.InventoryUnit, error) {
	return s.inventory.AvailableUnits(ctx, filmID, storeID)
}

// storeTx implements engine.Tx over a live *sql.Tx.
type storeTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *storeTx) FilmByID(ctx context.Context, filmID uint64) (*model.Film, error) {
	f, err := t.s.films.GetByIDTx(ctx, t.tx, filmID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrFilmNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (t *storeTx) FilmByInventory(ctx context.Context, inventoryID uint64) (*model.Film, error) {
	f, err := t.s.films.GetByInventoryTx(ctx, t.tx, inventoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrFilmNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (t *storeTx) AvailableUnitIDs(ctx context.Context, filmID, storeID uint64) ([]uint64, error) {
	ids, err := t.s.inventory.AvailableUnitIDsTx(ctx, t.tx, filmID, storeID)
	if err != nil {
		return nil, translate(err)
	}
	return ids, nil
}

func (t *storeTx) FirstStaffAtStore(ctx context.Context, storeID uint64) (uint64, error) {
	id, err := t.s.staff.FirstAtStoreTx(ctx, t.tx, storeID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, engine.ErrNoStaffAtStore
	}
	if err != nil {
		return 0, translate(err)
	}
	return id, nil
}

func (t *storeTx) InsertRental(ctx context.Context, r *model.Rental) error {
	err := t.s.rentals.CreateTx(ctx, t.tx, r)
	if isDupKey(err, "uk_rental_open_unit") {
		return engine.ErrUnitTaken
	}
	return translate(err)
}

func (t *storeTx) RentalForUpdate(ctx context.Context, rentalID uint64) (*model.Rental, error) {
	r, err := t.s.rentals.GetForUpdateTx(ctx, t.tx, rentalID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrRentalNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return r, nil
}

func (t *storeTx) CloseRental(ctx context.Context, rentalID uint64, at time.Time) error {
	err := t.s.rentals.CloseTx(ctx, t.tx, rentalID, at)
	if errors.Is(err, sql.ErrNoRows) {
		// Row vanished or was closed since our locked read.
		return engine.ErrAlreadyReturned
	}
	return translate(err)
}

func (t *storeTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	err := t.s.payments.CreateTx(ctx, t.tx, p)
	if isDupKey(err, "uk_payment_rental") {
		// A payment already exists, so the rental was already settled.
		return engine.ErrAlreadyReturned
	}
	return translate(err)
}

func (t *storeTx) Commit() error   { return translate(t.tx.Commit()) }
func (t *storeTx) Rollback() error { return t.tx.Rollback() }

// translate maps retryable MySQL failures onto engine.ErrTxConflict
// and passes everything else through untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDeadlock, mysqlErrLockTimeout:
			return engine.ErrTxConflict
		}
	}
	return err
}

// isDupKey reports whether err is a duplicate-entry violation of the
// named unique key.  The key name check matters: a rental insert and a
// payment insert can both raise 1062 but mean different things.
func isDupKey(err error, key string) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == mysqlErrDupEntry && strings.Contains(myErr.Message, key)
}
