package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dvdstore/rentals/internal/model"
)

// PaymentRepo provides data access to the payment ledger.  Payments
// are append-only: the only write is CreateTx, issued in the same
// transaction that closes the rental being paid for.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx appends a payment row within an existing transaction and
// populates the generated ID.  The unique key on rental_id enforces
// one payment per rental at the database level.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	const q = `INSERT INTO payment (rental_id, customer_id, staff_id, amount_cents, paid_at) VALUES (?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		p.RentalID, p.CustomerID, p.StaffID, p.AmountCents,
		p.PaidAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// PaymentDetail is a payment joined with its rental's film and store
// for display.
type PaymentDetail struct {
	ID          uint64    `json:"id"`
	RentalID    uint64    `json:"rental_id"`
	CustomerID  uint64    `json:"customer_id"`
	StaffID     uint64    `json:"staff_id"`
	AmountCents uint32    `json:"amount_cents"`
	PaidAt      time.Time `json:"paid_at"`
	FilmID      uint64    `json:"film_id"`
	Title       string    `json:"title"`
	StoreID     uint64    `json:"store_id"`
}

// PaymentFilter narrows a payment listing.  Zero values mean "no
// filter".  From and To bound paid_at inclusively.
type PaymentFilter struct {
	CustomerID uint64
	From       time.Time
	To         time.Time
	Limit      int
}

// List returns payments newest first, narrowed by the filter.
func (r *PaymentRepo) List(ctx context.Context, f PaymentFilter) ([]PaymentDetail, error) {
	q := `SELECT p.id, p.rental_id, p.customer_id, p.staff_id, p.amount_cents, p.paid_at,
	             f.id, f.title, i.store_id
	      FROM payment p
	      JOIN rental r ON r.id = p.rental_id
	      JOIN inventory i ON i.id = r.inventory_id
	      JOIN film f ON f.id = i.film_id
	      WHERE 1=1`
	args := make([]interface{}, 0, 4)
	if f.CustomerID != 0 {
		q += ` AND p.customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if !f.From.IsZero() {
		q += ` AND p.paid_at >= ?`
		args = append(args, f.From.UTC().Format("2006-01-02 15:04:05"))
	}
	if !f.To.IsZero() {
		q += ` AND p.paid_at <= ?`
		args = append(args, f.To.UTC().Format("2006-01-02 15:04:05"))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 500
	}
	q += ` ORDER BY p.paid_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]PaymentDetail, 0)
	for rows.Next() {
		var d PaymentDetail
		if err := rows.Scan(&d.ID, &d.RentalID, &d.CustomerID, &d.StaffID, &d.AmountCents, &d.PaidAt,
			&d.FilmID, &d.Title, &d.StoreID); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
