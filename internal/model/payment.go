package model

import "time"

// Payment records the money owed for a closed rental.  Exactly one
// payment exists per closed rental (created in the same transaction
// that closes it) and payments are append-only: the engine never
// mutates or deletes them once written.
//
// Fields:
//  ID          – primary key identifier.
//  RentalID    – rental this payment settles (unique).
//  CustomerID  – customer being charged.
//  StaffID     – staff member attributed with the transaction; this
//                is the staff member from the original checkout.
//  AmountCents – total charged in cents (base rate plus late fee).
//  PaidAt      – when the payment was recorded.
type Payment struct {
	ID          uint64    // payment.id
	RentalID    uint64    // payment.rental_id
	CustomerID  uint64    // payment.customer_id
	StaffID     uint64    // payment.staff_id
	AmountCents uint32    // payment.amount_cents
	PaidAt      time.Time // payment.paid_at
}
