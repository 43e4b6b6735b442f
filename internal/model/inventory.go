package model

// InventoryUnit is one physical rentable copy of a film held at a
// specific store.  Units are created by stocking operations and never
// deleted in normal operation.  Whether a unit is available is not a
// stored field: a unit is available exactly when no open rental
// references it, which keeps rental state the single source of truth.
//
// Fields:
//  ID      – primary key identifier.
//  FilmID  – film this copy belongs to.
//  StoreID – store where the copy lives.
type InventoryUnit struct {
	ID      uint64 // inventory.id
	FilmID  uint64 // inventory.film_id
	StoreID uint64 // inventory.store_id
}
