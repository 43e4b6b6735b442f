// Package queue defines message payloads exchanged over the message broker.
package queue

// RentalOpenedEvent is published after a checkout commits.  It carries
// enough for downstream consumers to log or notify without querying
// the primary database.
type RentalOpenedEvent struct {
	RentalID    uint64 `json:"rental_id"`
	InventoryID uint64 `json:"inventory_id"`
	CustomerID  uint64 `json:"customer_id"`
	StaffID     uint64 `json:"staff_id"`
	StoreID     uint64 `json:"store_id"`
	FilmID      uint64 `json:"film_id"`
	FilmTitle   string `json:"film_title"`
	RentedAt    string `json:"rented_at"`
}

// RentalReturnedEvent is published after a return commits, including
// the fee breakdown that went into the payment.
type RentalReturnedEvent struct {
	RentalID      uint64 `json:"rental_id"`
	PaymentID     uint64 `json:"payment_id"`
	CustomerID    uint64 `json:"customer_id"`
	StaffID       uint64 `json:"staff_id"`
	AmountCents   uint32 `json:"amount_cents"`
	BaseRateCents uint32 `json:"base_rate_cents"`
	LateFeeCents  uint32 `json:"late_fee_cents"`
	DaysOverdue   int    `json:"days_overdue"`
	ReturnedAt    string `json:"returned_at"`
}
