package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dvdstore/rentals/internal/engine"
	"github.com/dvdstore/rentals/internal/repository"
)

// FilmHandler serves the catalog read endpoints: film listing, film
// detail with per-store stock, and the availability count that catalog
// browse pages poll.  All of these are plain reads and sit behind the
// response cache.
type FilmHandler struct {
	FilmRepo      *repository.FilmRepo
	InventoryRepo *repository.InventoryRepo
	Engine        *engine.Engine
}

// NewFilmHandler constructs a FilmHandler.  All dependencies must be
// non-nil.
func NewFilmHandler(filmRepo *repository.FilmRepo, inventoryRepo *repository.InventoryRepo, eng *engine.Engine) *FilmHandler {
	if filmRepo == nil || inventoryRepo == nil || eng == nil {
		panic("nil dependency passed to NewFilmHandler")
	}
	return &FilmHandler{FilmRepo: filmRepo, InventoryRepo: inventoryRepo, Engine: eng}
}

// List handles GET /v1/films and returns the catalog ordered by title.
func (h *FilmHandler) List(c echo.Context) error {
	films, err := h.FilmRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]echo.Map, 0, len(films))
	for _, f := range films {
		out = append(out, echo.Map{
			"id":                   f.ID,
			"title":                f.Title,
			"rating":               f.Rating,
			"rental_rate_cents":    f.RentalRateCents,
			"rental_duration_days": f.RentalDurationDays,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"films": out})
}

// Get handles GET /v1/films/:id and returns one film together with
// total and available copy counts per store.
func (h *FilmHandler) Get(c echo.Context) error {
	filmID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid film id"})
	}
	ctx := c.Request().Context()
	film, err := h.FilmRepo.GetByID(ctx, filmID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	stock, err := h.InventoryRepo.AvailabilityByStore(ctx, filmID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":                   film.ID,
		"title":                film.Title,
		"rating":               film.Rating,
		"rental_rate_cents":    film.RentalRateCents,
		"rental_duration_days": film.RentalDurationDays,
		"stores":               stock,
	})
}

// Availability handles GET /v1/inventory/:film_id/:store_id.  It
// returns how many copies of the film are free at the store right now.
// This is the hot read path: no transaction, no locks.
func (h *FilmHandler) Availability(c echo.Context) error {
	filmID, ok := pathID(c, "film_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid film id"})
	}
	storeID, ok := pathID(c, "store_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}
	n, err := h.Engine.CountAvailable(c.Request().Context(), filmID, storeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"available": n})
}
