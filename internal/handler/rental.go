package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dvdstore/rentals/internal/engine"
	"github.com/dvdstore/rentals/internal/queue"
	"github.com/dvdstore/rentals/internal/repository"
	queue_publisher "github.com/dvdstore/rentals/internal/service"
)

// RentalHandler exposes the engine's checkout and return operations
// plus rental listing.  The handler binds and validates input, maps
// the engine's typed errors onto HTTP statuses, and publishes domain
// events after successful commits; all invariants live in the engine.
type RentalHandler struct {
	Engine     *engine.Engine
	RentalRepo *repository.RentalRepo
	FilmRepo   *repository.FilmRepo
}

// NewRentalHandler constructs a RentalHandler.  All dependencies must
// be non-nil.
func NewRentalHandler(eng *engine.Engine, rentalRepo *repository.RentalRepo, filmRepo *repository.FilmRepo) *RentalHandler {
	if eng == nil || rentalRepo == nil || filmRepo == nil {
		panic("nil dependency passed to NewRentalHandler")
	}
	return &RentalHandler{Engine: eng, RentalRepo: rentalRepo, FilmRepo: filmRepo}
}

// Checkout handles POST /v1/rentals.  The body names the customer,
// film and store; the staff member defaults to the caller's own staff
// identity from the token.  On success it responds 201 with the open
// rental; when every copy is taken it responds 409 with a capacity
// error.
func (h *RentalHandler) Checkout(c echo.Context) error {
	var body struct {
		CustomerID uint64 `json:"customer_id"`
		FilmID     uint64 `json:"film_id"`
		StoreID    uint64 `json:"store_id"`
		StaffID    uint64 `json:"staff_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.CustomerID == 0 || body.FilmID == 0 || body.StoreID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_id, film_id and store_id are required"})
	}

	staffID := body.StaffID
	if staffID == 0 {
		// The staff terminal's own identity from the token, when present.
		staffID = claimUint64(c, "staff_id")
	}

	ctx := c.Request().Context()
	rental, err := h.Engine.Checkout(ctx, engine.CheckoutRequest{
		CustomerID: body.CustomerID,
		FilmID:     body.FilmID,
		StoreID:    body.StoreID,
		StaffID:    staffID,
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrFilmNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
		case errors.Is(err, engine.ErrNoUnitsAvailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "no copies available at this store"})
		case errors.Is(err, engine.ErrNoStaffAtStore):
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store has no staff configured"})
		case errors.Is(err, engine.ErrContentionExhausted):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "checkout contention, please retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	// Event publish is best effort; the rental already committed.
	ev := queue.RentalOpenedEvent{
		RentalID:    rental.ID,
		InventoryID: rental.InventoryID,
		CustomerID:  rental.CustomerID,
		StaffID:     rental.StaffID,
		StoreID:     body.StoreID,
		FilmID:      body.FilmID,
		RentedAt:    rental.RentedAt.Format(time.RFC3339),
	}
	if film, ferr := h.FilmRepo.GetByID(ctx, body.FilmID); ferr == nil {
		ev.FilmTitle = film.Title
	}
	_ = queue_publisher.PublishRentalOpened(ctx, ev)

	return c.JSON(http.StatusCreated, echo.Map{
		"id":           rental.ID,
		"inventory_id": rental.InventoryID,
		"customer_id":  rental.CustomerID,
		"staff_id":     rental.StaffID,
		"rented_at":    rental.RentedAt.Format(time.RFC3339),
	})
}

// Return handles POST /v1/rentals/:id/return.  It closes the rental,
// records the payment and responds with the fee breakdown.  A second
// return of the same rental gets 409; an unknown rental id gets 404.
func (h *RentalHandler) Return(c echo.Context) error {
	rentalID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rental id"})
	}
	ctx := c.Request().Context()
	receipt, err := h.Engine.Return(ctx, rentalID)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrRentalNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rental not found"})
		case errors.Is(err, engine.ErrAlreadyReturned):
			return c.JSON(http.StatusConflict, echo.Map{"error": "rental already returned"})
		case errors.Is(err, engine.ErrContentionExhausted):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "return contention, please retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	_ = queue_publisher.PublishRentalReturned(ctx, queue.RentalReturnedEvent{
		RentalID:      receipt.Payment.RentalID,
		PaymentID:     receipt.Payment.ID,
		CustomerID:    receipt.Payment.CustomerID,
		StaffID:       receipt.Payment.StaffID,
		AmountCents:   receipt.Payment.AmountCents,
		BaseRateCents: receipt.Charges.BaseRateCents,
		LateFeeCents:  receipt.Charges.LateFeeCents,
		DaysOverdue:   receipt.Charges.DaysOverdue,
		ReturnedAt:    receipt.Payment.PaidAt.Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"payment": echo.Map{
			"id":           receipt.Payment.ID,
			"rental_id":    receipt.Payment.RentalID,
			"customer_id":  receipt.Payment.CustomerID,
			"staff_id":     receipt.Payment.StaffID,
			"amount_cents": receipt.Payment.AmountCents,
			"paid_at":      receipt.Payment.PaidAt.Format(time.RFC3339),
		},
		"breakdown": receipt.Charges,
	})
}

// List handles GET /v1/rentals.  Customers see their own rentals only;
// staff and admins see recent rentals across customers and may narrow
// by ?customer_id or a ?search title substring.
func (h *RentalHandler) List(c echo.Context) error {
	ctx := c.Request().Context()
	role := roleOf(c)

	if role == RoleCustomer {
		customerID := claimUint64(c, "customer_id")
		if customerID == 0 {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		rentals, err := h.RentalRepo.ListByCustomer(ctx, customerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusOK, echo.Map{"rentals": rentals})
	}

	if cid := c.QueryParam("customer_id"); cid != "" {
		customerID, err := strconv.ParseUint(cid, 10, 64)
		if err != nil || customerID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
		}
		rentals, err := h.RentalRepo.ListByCustomer(ctx, customerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		return c.JSON(http.StatusOK, echo.Map{"rentals": rentals})
	}

	rentals, err := h.RentalRepo.List(ctx, c.QueryParam("search"), 500)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"rentals": rentals})
}

// Get handles GET /v1/rentals/:id.  Customers may only fetch their own
// rentals.
func (h *RentalHandler) Get(c echo.Context) error {
	rentalID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid rental id"})
	}
	detail, err := h.RentalRepo.GetDetail(c.Request().Context(), rentalID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "rental not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if roleOf(c) == RoleCustomer && detail.CustomerID != claimUint64(c, "customer_id") {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, detail)
}
