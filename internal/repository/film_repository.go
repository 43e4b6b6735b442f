package repository

import (
	"context"
	"database/sql"

	"github.com/dvdstore/rentals/internal/model"
)

// FilmRepo provides read access to the film catalog.  Films are
// reference data for this service: rows are inserted and maintained by
// catalog management elsewhere, so only queries live here.
type FilmRepo struct {
	db *sql.DB
}

// NewFilmRepo returns a new FilmRepo bound to the given database.
func NewFilmRepo(db *sql.DB) *FilmRepo { return &FilmRepo{db: db} }

const filmColumns = `id, title, rating, rental_rate_cents, rental_duration_days, created_at`

func scanFilm(row interface{ Scan(...interface{}) error }) (*model.Film, error) {
	var f model.Film
	if err := row.Scan(&f.ID, &f.Title, &f.Rating, &f.RentalRateCents, &f.RentalDurationDays, &f.CreatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// GetByID returns a single film.  When no film with the given ID
// exists, sql.ErrNoRows is returned.
func (r *FilmRepo) GetByID(ctx context.Context, filmID uint64) (*model.Film, error) {
	const q = `SELECT ` + filmColumns + ` FROM film WHERE id = ?`
	return scanFilm(r.db.QueryRowContext(ctx, q, filmID))
}

// GetByIDTx is GetByID within the scope of an existing transaction.
func (r *FilmRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, filmID uint64) (*model.Film, error) {
	const q = `SELECT ` + filmColumns + ` FROM film WHERE id = ?`
	return scanFilm(tx.QueryRowContext(ctx, q, filmID))
}

// GetByInventoryTx returns the film a given inventory unit belongs to,
// within a transaction.  Used when billing a return, where only the
// rental's inventory id is at hand.  Returns sql.ErrNoRows when the
// unit does not exist.
func (r *FilmRepo) GetByInventoryTx(ctx context.Context, tx *sql.Tx, inventoryID uint64) (*model.Film, error) {
	const q = `SELECT f.id, f.title, f.rating, f.rental_rate_cents, f.rental_duration_days, f.created_at
	           FROM film f
	           JOIN inventory i ON i.film_id = f.id
	           WHERE i.id = ?`
	return scanFilm(tx.QueryRowContext(ctx, q, inventoryID))
}

// List returns the whole catalog ordered by title.  The catalog is a
// fixed, modest set; no pagination is applied.
func (r *FilmRepo) List(ctx context.Context) ([]model.Film, error) {
	const q = `SELECT ` + filmColumns + ` FROM film ORDER BY title`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	films := make([]model.Film, 0)
	for rows.Next() {
		var f model.Film
		if err := rows.Scan(&f.ID, &f.Title, &f.Rating, &f.RentalRateCents, &f.RentalDurationDays, &f.CreatedAt); err != nil {
			return nil, err
		}
		films = append(films, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return films, nil
}
