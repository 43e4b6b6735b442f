package model

import "time"

// Rental tracks one copy checked out by one customer.  A rental is
// open while ReturnedAt is nil and closed once the return operation
// stamps it; a closed rental is immutable.  For any inventory unit at
// most one open rental may exist at a time.
//
// Fields:
//  ID          – primary key identifier.
//  InventoryID – copy that was checked out.
//  CustomerID  – customer who holds the copy.
//  StaffID     – staff member who processed the checkout.
//  RentedAt    – when the copy left the store.
//  ReturnedAt  – when the copy came back (nil while open).
type Rental struct {
	ID          uint64     // rental.id
	InventoryID uint64     // rental.inventory_id
	CustomerID  uint64     // rental.customer_id
	StaffID     uint64     // rental.staff_id
	RentedAt    time.Time  // rental.rented_at
	ReturnedAt  *time.Time // rental.returned_at (nullable)
}

// Open reports whether the rental has not yet been returned.
func (r *Rental) Open() bool { return r.ReturnedAt == nil }
