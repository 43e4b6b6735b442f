package model

// Staff is an employee assigned to a store.  The engine only needs
// staff rows to attribute rentals and payments; hiring and store
// assignment belong to other systems.
type Staff struct {
	ID       uint64 // staff.id
	StoreID  uint64 // staff.store_id
	FullName string // staff.full_name
}
