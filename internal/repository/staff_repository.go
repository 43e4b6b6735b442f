package repository

import (
	"context"
	"database/sql"

	"github.com/dvdstore/rentals/internal/model"
)

// StaffRepo provides lookups against the staff roster.  The engine
// only consults it to attribute a checkout when the caller carries no
// staff identity of its own.
type StaffRepo struct {
	db *sql.DB
}

// NewStaffRepo returns a new StaffRepo bound to the given database.
func NewStaffRepo(db *sql.DB) *StaffRepo { return &StaffRepo{db: db} }

// FirstAtStoreTx returns the lowest-id staff member assigned to the
// store, within a transaction.  Returns sql.ErrNoRows when the store
// has no staff; callers must treat that as a configuration problem
// rather than substituting an arbitrary employee.
func (r *StaffRepo) FirstAtStoreTx(ctx context.Context, tx *sql.Tx, storeID uint64) (uint64, error) {
	const q = `SELECT id FROM staff WHERE store_id = ? ORDER BY id LIMIT 1`
	var id uint64
	if err := tx.QueryRowContext(ctx, q, storeID).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetByID returns a single staff member, or sql.ErrNoRows.
func (r *StaffRepo) GetByID(ctx context.Context, staffID uint64) (*model.Staff, error) {
	const q = `SELECT id, store_id, full_name FROM staff WHERE id = ?`
	var s model.Staff
	if err := r.db.QueryRowContext(ctx, q, staffID).Scan(&s.ID, &s.StoreID, &s.FullName); err != nil {
		return nil, err
	}
	return &s, nil
}
