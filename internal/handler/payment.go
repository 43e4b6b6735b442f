package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dvdstore/rentals/internal/repository"
)

// PaymentHandler serves the payment ledger read endpoint.  Payments
// are written only by the engine at return time; this handler exists
// so staff can reconcile what was collected.
type PaymentHandler struct {
	PaymentRepo *repository.PaymentRepo
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(paymentRepo *repository.PaymentRepo) *PaymentHandler {
	if paymentRepo == nil {
		panic("nil repository passed to NewPaymentHandler")
	}
	return &PaymentHandler{PaymentRepo: paymentRepo}
}

// List handles GET /v1/payments.  Optional query parameters:
// customer_id narrows to one customer, date_from / date_to
// (YYYY-MM-DD) bound the payment date inclusively.  Results are newest
// first, capped at 500, with the total of the returned page included
// for convenience.
func (h *PaymentHandler) List(c echo.Context) error {
	var filter repository.PaymentFilter

	if cid := c.QueryParam("customer_id"); cid != "" {
		id, err := strconv.ParseUint(cid, 10, 64)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid customer id"})
		}
		filter.CustomerID = id
	}
	if from := c.QueryParam("date_from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_from"})
		}
		filter.From = t
	}
	if to := c.QueryParam("date_to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date_to"})
		}
		// Inclusive end of day.
		filter.To = t.Add(24*time.Hour - time.Second)
	}

	payments, err := h.PaymentRepo.List(c.Request().Context(), filter)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	var total uint64
	for _, p := range payments {
		total += uint64(p.AmountCents)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"payments":    payments,
		"total_cents": total,
	})
}
