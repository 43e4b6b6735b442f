package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvdstore/rentals/internal/engine"
	"github.com/dvdstore/rentals/internal/model"
)

var day0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fixture returns a store stocked with one film (rate 4.99, duration
// 3 days), the requested number of copies at store 1, and one staff
// member (id 9) at store 1.
func fixture(copies int) *memStore {
	s := newMemStore()
	s.addFilm(model.Film{ID: 1, Title: "ACADEMY DINOSAUR", RentalRateCents: 499, RentalDurationDays: 3})
	for i := 1; i <= copies; i++ {
		s.addUnit(model.InventoryUnit{ID: uint64(i), FilmID: 1, StoreID: 1})
	}
	s.addStaff(model.Staff{ID: 9, StoreID: 1, FullName: "Mike Hillyer"})
	return s
}

func at(t time.Time) engine.Option {
	return engine.WithClock(func() time.Time { return t })
}

func TestCheckoutAssignsLowestFreeUnit(t *testing.T) {
	s := fixture(3)
	e := engine.New(s, at(day0))

	r, err := e.Checkout(context.Background(), engine.CheckoutRequest{CustomerID: 5, FilmID: 1, StoreID: 1, StaffID: 9})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if r.InventoryID != 1 {
		t.Fatalf("got unit %d; want lowest-id unit 1", r.InventoryID)
	}
	if r.CustomerID != 5 || r.StaffID != 9 {
		t.Fatalf("rental attribution = customer %d staff %d; want 5/9", r.CustomerID, r.StaffID)
	}
	if !r.Open() {
		t.Fatal("new rental should be open")
	}

	r2, err := e.Checkout(context.Background(), engine.CheckoutRequest{CustomerID: 6, FilmID: 1, StoreID: 1, StaffID: 9})
	if err != nil {
		t.Fatalf("second checkout: %v", err)
	}
	if r2.InventoryID != 2 {
		t.Fatalf("got unit %d; want next unit 2", r2.InventoryID)
	}
}

func TestCheckoutNoCapacity(t *testing.T) {
	s := fixture(1)
	e := engine.New(s, at(day0))
	ctx := context.Background()

	if _, err := e.Checkout(ctx, engine.CheckoutRequest{CustomerID: 5, FilmID: 1, StoreID: 1, StaffID: 9}); err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	_, err := e.Checkout(ctx, engine.CheckoutRequest{CustomerID: 6, FilmID: 1, StoreID: 1, StaffID: 9})
	if !errors.Is(err, engine.ErrNoUnitsAvailable) {
		t.Fatalf("got %v; want ErrNoUnitsAvailable", err)
	}
	if got := s.openRentalCount(); got != 1 {
		t.Fatalf("open rentals = %d; want 1 (failed checkout must not write)", got)
	}
}

func TestCheckoutUnknownFilm(t *testing.T) {
	s := fixture(1)
	e := engine.New(s, at(day0))

	_, err := e.Checkout(context.Background(), engine.CheckoutRequest{CustomerID: 5, FilmID: 42, StoreID: 1, StaffID: 9})
	if !errors.Is(err, engine.ErrFilmNotFound) {
		t.Fatalf("got %v; want ErrFilmNotFound", err)
	}
}

func TestCheckoutStaffFallback(t *testing.T) {
	s := fixture(2)
	s.addStaff(model.Staff{ID: 4, StoreID: 1, FullName: "Jon Stephens"})
	e := engine.New(s, at(day0))

	r, err := e.Checkout(context.Background(), engine.CheckoutRequest{CustomerID: 5, FilmID: 1, StoreID: 1})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if r.StaffID != 4 {
		t.Fatalf("staff = %d; want first staff at store (4)", r.StaffID)
	}
}

func TestCheckoutNoStaffConfigured(t *testing.T) {
	s := newMemStore()
	s.addFilm(model.Film{ID: 1, Title: "ACADEMY DINOSAUR", RentalRateCents: 499, RentalDurationDays: 3})
	s.addUnit(model.InventoryUnit{ID: 1, FilmID: 1, StoreID: 2})
	e := engine.New(s, at(day0))

	_, err := e.Checkout(context.Background(), engine.CheckoutRequest{CustomerID: 5, FilmID: 1, StoreID: 2})
	if !errors.Is(err, engine.ErrNoStaffAtStore) {
		t.Fatalf("got %v; want ErrNoStaffAtStore", err)
	}
	if got := s.openRentalCount(); got != 0 {
		t.Fatalf("open rentals = %d; want 0", got)
	}
}

// TestConcurrentCheckoutInvariant drives more concurrent checkouts
// than there are free copies and verifies that no unit is ever
// double-booked and that exactly as many checkouts succeed as copies
// exist.
func TestConcurrentCheckoutInvariant(t *testing.T) {
	const copies = 3
	const callers = 8

	s := fixture(copies)
	e := engine.New(s, at(day0))

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Checkout(context.Background(), engine.CheckoutRequest{
				CustomerID: uint64(100 + i), FilmID: 1, StoreID: 1, StaffID: 9,
			})
		}(i)
	}
	wg.Wait()

	succeeded, capacity := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, engine.ErrNoUnitsAvailable):
			capacity++
		default:
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	if succeeded != copies {
		t.Fatalf("%d checkouts succeeded; want exactly %d", succeeded, copies)
	}
	if capacity != callers-copies {
		t.Fatalf("%d capacity errors; want %d", capacity, callers-copies)
	}
	for unit := uint64(1); unit <= copies; unit++ {
		if n := s.openRentalsFor(unit); n > 1 {
			t.Fatalf("unit %d has %d open rentals; invariant allows at most 1", unit, n)
		}
	}
	if got := s.openRentalCount(); got != copies {
		t.Fatalf("open rentals = %d; want %d", got, copies)
	}
}

// TestConcurrentCheckoutLiveness issues exactly as many concurrent
// checkouts as there are free copies; all of them must succeed.
func TestConcurrentCheckoutLiveness(t *testing.T) {
	const copies = 4

	s := fixture(copies)
	e := engine.New(s, at(day0))

	var wg sync.WaitGroup
	errs := make([]error, copies)
	for i := 0; i < copies; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Checkout(context.Background(), engine.CheckoutRequest{
				CustomerID: uint64(200 + i), FilmID: 1, StoreID: 1, StaffID: 9,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("checkout %d failed: %v (all %d should succeed)", i, err, copies)
		}
	}
	if got := s.openRentalCount(); got != copies {
		t.Fatalf("open rentals = %d; want %d", got, copies)
	}
}

func TestCheckoutRetriesTxConflicts(t *testing.T) {
	s := fixture(2)
	e := engine.New(s, at(day0))

	// First commit attempt loses a lock race; the engine must retry
	// and succeed on the second.
	s.failCommits(engine.ErrTxConflict)
	r, err := e.Checkout(context.Background(), engine.CheckoutRequest{CustomerID: 5, FilmID: 1, StoreID: 1, StaffID: 9})
	if err != nil {
		t.Fatalf("checkout after one conflict: %v", err)
	}
	if r.InventoryID != 1 {
		t.Fatalf("got unit %d; want unit 1", r.InventoryID)
	}
}

func TestCheckoutContentionExhausted(t *testing.T) {
	s := fixture(2)
	e := engine.New(s, at(day0), engine.WithMaxAttempts(3))

	s.failCommits(engine.ErrTxConflict, engine.ErrTxConflict, engine.ErrTxConflict)
	_, err := e.Checkout(context.Background(), engine.CheckoutRequest{CustomerID: 5, FilmID: 1, StoreID: 1, StaffID: 9})
	if !errors.Is(err, engine.ErrContentionExhausted) {
		t.Fatalf("got %v; want ErrContentionExhausted", err)
	}
	if got := s.openRentalCount(); got != 0 {
		t.Fatalf("open rentals = %d; want 0 after exhausted retries", got)
	}
}

func TestAvailabilityReflectsRentalState(t *testing.T) {
	s := fixture(2)
	e := engine.New(s, at(day0))
	ctx := context.Background()

	if n, _ := e.CountAvailable(ctx, 1, 1); n != 2 {
		t.Fatalf("available = %d; want 2", n)
	}
	r, err := e.Checkout(ctx, engine.CheckoutRequest{CustomerID: 5, FilmID: 1, StoreID: 1, StaffID: 9})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if n, _ := e.CountAvailable(ctx, 1, 1); n != 1 {
		t.Fatalf("available = %d; want 1 after checkout", n)
	}
	ok, _ := e.IsAvailable(ctx, 1, 1)
	if !ok {
		t.Fatal("IsAvailable = false; want true with one free copy")
	}

	e2 := engine.New(s, at(day0.Add(24*time.Hour)))
	if _, err := e2.Return(ctx, r.ID); err != nil {
		t.Fatalf("return: %v", err)
	}
	if n, _ := e.CountAvailable(ctx, 1, 1); n != 2 {
		t.Fatalf("available = %d; want 2 after return", n)
	}
}

func TestAvailableUnitsOrdered(t *testing.T) {
	s := fixture(3)
	e := engine.New(s, at(day0))

	units, err := e.AvailableUnits(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("available units: %v", err)
	}
	if len(units) != 3 {
		t.Fatalf("got %d units; want 3", len(units))
	}
	for i := 1; i < len(units); i++ {
		if units[i-1].ID >= units[i].ID {
			t.Fatalf("units not in ascending id order: %d before %d", units[i-1].ID, units[i].ID)
		}
	}
}
