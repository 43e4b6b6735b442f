package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dvdstore/rentals/internal/model"
)

// RentalRepo provides data access to the rental table.  Writes only
// happen through the ...Tx methods so the checkout and return
// transactions stay atomic; list and detail queries run outside any
// transaction.  All timestamps are UTC.
type RentalRepo struct {
	db *sql.DB
}

// NewRentalRepo returns a new RentalRepo bound to the given database.
func NewRentalRepo(db *sql.DB) *RentalRepo { return &RentalRepo{db: db} }

// CreateTx opens a rental on a unit within an existing transaction and
// populates the generated ID on the record.  The unique key on the
// rental table's open-unit column makes this insert the race arbiter:
// when another transaction already holds an open rental on the same
// unit, the database rejects the row with a duplicate-key error, which
// the caller should translate and handle.
func (r *RentalRepo) CreateTx(ctx context.Context, tx *sql.Tx, rental *model.Rental) error {
	const q = `INSERT INTO rental (inventory_id, customer_id, staff_id, rented_at) VALUES (?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, q,
		rental.InventoryID, rental.CustomerID, rental.StaffID,
		rental.RentedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rental.ID = uint64(id)
	return nil
}

// GetForUpdateTx loads a rental with an exclusive row lock so that
// concurrent returns of the same rental serialize on the row.  Returns
// sql.ErrNoRows when the rental does not exist.
func (r *RentalRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, rentalID uint64) (*model.Rental, error) {
	const q = `SELECT id, inventory_id, customer_id, staff_id, rented_at, returned_at
	           FROM rental WHERE id = ? FOR UPDATE`
	var rec model.Rental
	var returned sql.NullTime
	err := tx.QueryRowContext(ctx, q, rentalID).Scan(
		&rec.ID, &rec.InventoryID, &rec.CustomerID, &rec.StaffID, &rec.RentedAt, &returned,
	)
	if err != nil {
		return nil, err
	}
	if returned.Valid {
		t := returned.Time
		rec.ReturnedAt = &t
	}
	return &rec, nil
}

// CloseTx stamps returned_at on an open rental within a transaction.
// The WHERE clause guards against closing twice even if the caller's
// own check was stale.
func (r *RentalRepo) CloseTx(ctx context.Context, tx *sql.Tx, rentalID uint64, at time.Time) error {
	const q = `UPDATE rental SET returned_at = ? WHERE id = ? AND returned_at IS NULL`
	res, err := tx.ExecContext(ctx, q, at.UTC().Format("2006-01-02 15:04:05"), rentalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RentalDetail is a rental joined with its film and store for display.
type RentalDetail struct {
	ID         uint64     `json:"id"`
	FilmID     uint64     `json:"film_id"`
	Title      string     `json:"title"`
	StoreID    uint64     `json:"store_id"`
	CustomerID uint64     `json:"customer_id"`
	StaffID    uint64     `json:"staff_id"`
	RentedAt   time.Time  `json:"rented_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
}

const rentalDetailSelect = `
	SELECT r.id, f.id, f.title, i.store_id, r.customer_id, r.staff_id, r.rented_at, r.returned_at
	FROM rental r
	JOIN inventory i ON i.id = r.inventory_id
	JOIN film f ON f.id = i.film_id`

func scanRentalDetails(rows *sql.Rows) ([]RentalDetail, error) {
	defer rows.Close()
	out := make([]RentalDetail, 0)
	for rows.Next() {
		var d RentalDetail
		var returned sql.NullTime
		if err := rows.Scan(&d.ID, &d.FilmID, &d.Title, &d.StoreID, &d.CustomerID, &d.StaffID, &d.RentedAt, &returned); err != nil {
			return nil, err
		}
		if returned.Valid {
			t := returned.Time
			d.ReturnedAt = &t
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDetail returns a single rental with film and store context, or
// sql.ErrNoRows when the rental does not exist.
func (r *RentalRepo) GetDetail(ctx context.Context, rentalID uint64) (*RentalDetail, error) {
	const q = rentalDetailSelect + ` WHERE r.id = ?`
	var d RentalDetail
	var returned sql.NullTime
	err := r.db.QueryRowContext(ctx, q, rentalID).Scan(
		&d.ID, &d.FilmID, &d.Title, &d.StoreID, &d.CustomerID, &d.StaffID, &d.RentedAt, &returned,
	)
	if err != nil {
		return nil, err
	}
	if returned.Valid {
		t := returned.Time
		d.ReturnedAt = &t
	}
	return &d, nil
}

// ListByCustomer returns a customer's rentals, newest first.
func (r *RentalRepo) ListByCustomer(ctx context.Context, customerID uint64) ([]RentalDetail, error) {
	const q = rentalDetailSelect + ` WHERE r.customer_id = ? ORDER BY r.rented_at DESC`
	rows, err := r.db.QueryContext(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	return scanRentalDetails(rows)
}

// List returns recent rentals across all customers, optionally
// filtered by a title substring, newest first and capped at limit.
func (r *RentalRepo) List(ctx context.Context, search string, limit int) ([]RentalDetail, error) {
	q := rentalDetailSelect
	args := make([]interface{}, 0, 2)
	if s := strings.TrimSpace(search); s != "" {
		q += ` WHERE f.title LIKE ?`
		args = append(args, "%"+s+"%")
	}
	q += ` ORDER BY r.rented_at DESC LIMIT ?`
	if limit <= 0 {
		limit = 500
	}
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanRentalDetails(rows)
}
