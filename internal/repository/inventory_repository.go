package repository

import (
	"context"
	"database/sql"

	"github.com/dvdstore/rentals/internal/model"
)

// InventoryRepo answers availability questions about physical copies.
// Availability is always derived from rental state with an anti-join
// against open rentals; there is no stored "available" flag to drift
// out of sync.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo returns a new InventoryRepo bound to the given database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// availableFilter matches inventory rows for (film, store) that no
// open rental references.  Shared by the count and listing queries so
// the two can never disagree on what "available" means.
const availableFilter = `
	FROM inventory i
	LEFT JOIN rental r ON r.inventory_id = i.id AND r.returned_at IS NULL
	WHERE i.film_id = ? AND i.store_id = ? AND r.id IS NULL`

// CountAvailable returns the number of free copies of the film at the
// store.  This backs the hot browse path: one aggregate query, plain
// read, no locks taken.
func (r *InventoryRepo) CountAvailable(ctx context.Context, filmID, storeID uint64) (int, error) {
	const q = `SELECT COUNT(*)` + availableFilter
	var n int
	if err := r.db.QueryRowContext(ctx, q, filmID, storeID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// AvailableUnits lists the free copies of the film at the store
// ordered by unit id ascending.  The ascending order is what makes
// checkout pick the lowest-id candidate first.
func (r *InventoryRepo) AvailableUnits(ctx context.Context, filmID, storeID uint64) ([]model.InventoryUnit, error) {
	const q = `SELECT i.id, i.film_id, i.store_id` + availableFilter + ` ORDER BY i.id`
	rows, err := r.db.QueryContext(ctx, q, filmID, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	units := make([]model.InventoryUnit, 0)
	for rows.Next() {
		var u model.InventoryUnit
		if err := rows.Scan(&u.ID, &u.FilmID, &u.StoreID); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return units, nil
}

// AvailableUnitIDsTx returns the ids of free copies within an existing
// transaction, ascending.  The snapshot is advisory: the insert into
// rental is what actually claims a copy, so no row locks are taken
// here either.
func (r *InventoryRepo) AvailableUnitIDsTx(ctx context.Context, tx *sql.Tx, filmID, storeID uint64) ([]uint64, error) {
	const q = `SELECT i.id` + availableFilter + ` ORDER BY i.id`
	rows, err := tx.QueryContext(ctx, q, filmID, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// StoreAvailability summarizes a film's stock at one store.
type StoreAvailability struct {
	StoreID     uint64 `json:"store_id"`
	TotalCopies int    `json:"total_copies"`
	Available   int    `json:"available"`
}

// AvailabilityByStore returns, for every store stocking the film, the
// total number of copies and how many are currently free.  Used by the
// film detail endpoint.
func (r *InventoryRepo) AvailabilityByStore(ctx context.Context, filmID uint64) ([]StoreAvailability, error) {
	const q = `SELECT i.store_id,
	                  COUNT(i.id),
	                  SUM(CASE WHEN r.id IS NULL THEN 1 ELSE 0 END)
	           FROM inventory i
	           LEFT JOIN rental r ON r.inventory_id = i.id AND r.returned_at IS NULL
	           WHERE i.film_id = ?
	           GROUP BY i.store_id
	           ORDER BY i.store_id`
	rows, err := r.db.QueryContext(ctx, q, filmID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]StoreAvailability, 0)
	for rows.Next() {
		var sa StoreAvailability
		if err := rows.Scan(&sa.StoreID, &sa.TotalCopies, &sa.Available); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
