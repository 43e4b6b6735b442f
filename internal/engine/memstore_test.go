package engine_test

// In-memory Store fake for exercising the engine without a database.
// It models the locking behavior the SQL store relies on: inserting a
// rental claims the unit until commit or rollback (the unique-index
// lock), and RentalForUpdate holds a per-row lock for the rest of the
// transaction.  Reads see committed state only, so a checkout's
// candidate snapshot can be stale by insert time exactly as it can be
// against MySQL.

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dvdstore/rentals/internal/engine"
	"github.com/dvdstore/rentals/internal/model"
)

type memStore struct {
	mu sync.Mutex

	films map[uint64]model.Film
	units map[uint64]model.InventoryUnit
	staff []model.Staff

	rentals  map[uint64]model.Rental
	payments map[uint64]model.Payment

	// claimed marks units with an uncommitted open rental.
	claimed map[uint64]bool
	// rowLocks serializes returns of the same rental.
	rowLocks map[uint64]*sync.Mutex

	nextRentalID  uint64
	nextPaymentID uint64

	// commitErrs is consumed one per Commit; a non-nil entry aborts
	// that commit and discards the transaction's writes.
	commitErrs []error
}

func newMemStore() *memStore {
	return &memStore{
		films:    make(map[uint64]model.Film),
		units:    make(map[uint64]model.InventoryUnit),
		rentals:  make(map[uint64]model.Rental),
		payments: make(map[uint64]model.Payment),
		claimed:  make(map[uint64]bool),
		rowLocks: make(map[uint64]*sync.Mutex),
	}
}

func (s *memStore) addFilm(f model.Film)          { s.films[f.ID] = f }
func (s *memStore) addUnit(u model.InventoryUnit) { s.units[u.ID] = u }
func (s *memStore) addStaff(st model.Staff)       { s.staff = append(s.staff, st) }

func (s *memStore) failCommits(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErrs = append(s.commitErrs, errs...)
}

// openRentalsFor counts committed open rentals on a unit.
func (s *memStore) openRentalsFor(unitID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rentals {
		if r.InventoryID == unitID && r.ReturnedAt == nil {
			n++
		}
	}
	return n
}

func (s *memStore) openRentalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rentals {
		if r.ReturnedAt == nil {
			n++
		}
	}
	return n
}

func (s *memStore) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *memStore) rental(id uint64) (model.Rental, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rentals[id]
	return r, ok
}

func (s *memStore) Begin(ctx context.Context) (engine.Tx, error) {
	return &memTx{s: s}, nil
}

func (s *memStore) CountAvailable(ctx context.Context, filmID, storeID uint64) (int, error) {
	return len(s.availableIDs(filmID, storeID)), nil
}

func (s *memStore) AvailableUnits(ctx context.Context, filmID, storeID uint64) ([]model.InventoryUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.InventoryUnit, 0)
	for _, id := range s.availableIDsLocked(filmID, storeID) {
		out = append(out, s.units[id])
	}
	return out, nil
}

func (s *memStore) availableIDs(filmID, storeID uint64) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.availableIDsLocked(filmID, storeID)
}

// availableIDsLocked lists units of (film, store) with no committed
// open rental, ascending.  Claimed-but-uncommitted units still appear,
// matching snapshot reads against the real database.
func (s *memStore) availableIDsLocked(filmID, storeID uint64) []uint64 {
	open := make(map[uint64]bool)
	for _, r := range s.rentals {
		if r.ReturnedAt == nil {
			open[r.InventoryID] = true
		}
	}
	var ids []uint64
	for id, u := range s.units {
		if u.FilmID == filmID && u.StoreID == storeID && !open[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type memTx struct {
	s *memStore

	stagedRentals  []model.Rental
	stagedCloses   map[uint64]time.Time
	stagedPayments []model.Payment
	claimedUnits   []uint64
	heldLocks      []*sync.Mutex
	done           bool
}

func (t *memTx) FilmByID(ctx context.Context, filmID uint64) (*model.Film, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	f, ok := t.s.films[filmID]
	if !ok {
		return nil, engine.ErrFilmNotFound
	}
	return &f, nil
}

func (t *memTx) FilmByInventory(ctx context.Context, inventoryID uint64) (*model.Film, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	u, ok := t.s.units[inventoryID]
	if !ok {
		return nil, engine.ErrFilmNotFound
	}
	f, ok := t.s.films[u.FilmID]
	if !ok {
		return nil, engine.ErrFilmNotFound
	}
	return &f, nil
}

func (t *memTx) AvailableUnitIDs(ctx context.Context, filmID, storeID uint64) ([]uint64, error) {
	return t.s.availableIDs(filmID, storeID), nil
}

func (t *memTx) FirstStaffAtStore(ctx context.Context, storeID uint64) (uint64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var best uint64
	for _, st := range t.s.staff {
		if st.StoreID != storeID {
			continue
		}
		if best == 0 || st.ID < best {
			best = st.ID
		}
	}
	if best == 0 {
		return 0, engine.ErrNoStaffAtStore
	}
	return best, nil
}

func (t *memTx) InsertRental(ctx context.Context, r *model.Rental) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.claimed[r.InventoryID] {
		return engine.ErrUnitTaken
	}
	for _, existing := range t.s.rentals {
		if existing.InventoryID == r.InventoryID && existing.ReturnedAt == nil {
			return engine.ErrUnitTaken
		}
	}
	t.s.claimed[r.InventoryID] = true
	t.claimedUnits = append(t.claimedUnits, r.InventoryID)
	t.s.nextRentalID++
	r.ID = t.s.nextRentalID
	t.stagedRentals = append(t.stagedRentals, *r)
	return nil
}

func (t *memTx) RentalForUpdate(ctx context.Context, rentalID uint64) (*model.Rental, error) {
	t.s.mu.Lock()
	if _, ok := t.s.rentals[rentalID]; !ok {
		t.s.mu.Unlock()
		return nil, engine.ErrRentalNotFound
	}
	lock, ok := t.s.rowLocks[rentalID]
	if !ok {
		lock = &sync.Mutex{}
		t.s.rowLocks[rentalID] = lock
	}
	t.s.mu.Unlock()

	// Block until any concurrent transaction on this row finishes, as
	// SELECT ... FOR UPDATE does.
	lock.Lock()
	t.heldLocks = append(t.heldLocks, lock)

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r := t.s.rentals[rentalID]
	return &r, nil
}

func (t *memTx) CloseRental(ctx context.Context, rentalID uint64, at time.Time) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.rentals[rentalID]
	if !ok || r.ReturnedAt != nil {
		return engine.ErrAlreadyReturned
	}
	if t.stagedCloses == nil {
		t.stagedCloses = make(map[uint64]time.Time)
	}
	t.stagedCloses[rentalID] = at
	return nil
}

func (t *memTx) InsertPayment(ctx context.Context, p *model.Payment) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, existing := range t.s.payments {
		if existing.RentalID == p.RentalID {
			return engine.ErrAlreadyReturned
		}
	}
	t.s.nextPaymentID++
	p.ID = t.s.nextPaymentID
	t.stagedPayments = append(t.stagedPayments, *p)
	return nil
}

func (t *memTx) Commit() error {
	t.s.mu.Lock()
	if len(t.s.commitErrs) > 0 {
		err := t.s.commitErrs[0]
		t.s.commitErrs = t.s.commitErrs[1:]
		if err != nil {
			t.s.mu.Unlock()
			t.discard()
			return err
		}
	}
	for _, r := range t.stagedRentals {
		t.s.rentals[r.ID] = r
	}
	for id, at := range t.stagedCloses {
		r := t.s.rentals[id]
		ts := at
		r.ReturnedAt = &ts
		t.s.rentals[id] = r
	}
	for _, p := range t.stagedPayments {
		t.s.payments[p.ID] = p
	}
	for _, unitID := range t.claimedUnits {
		delete(t.s.claimed, unitID)
	}
	t.s.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return nil
	}
	t.discard()
	return nil
}

// discard drops staged writes and releases claims and row locks.
func (t *memTx) discard() {
	t.s.mu.Lock()
	for _, unitID := range t.claimedUnits {
		delete(t.s.claimed, unitID)
	}
	t.s.mu.Unlock()
	t.stagedRentals = nil
	t.stagedCloses = nil
	t.stagedPayments = nil
	t.release()
}

func (t *memTx) release() {
	for _, l := range t.heldLocks {
		l.Unlock()
	}
	t.heldLocks = nil
	t.done = true
}
