package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/stagefront/ticketing/internal/repository"
	"github.com/stagefront/ticketing/internal/service"
	"github.com/stagefront/ticketing/internal/utils"
)

// ReservationHandler exposes the reservation lifecycle over HTTP.  It
// owns no business rules: every request is translated into one
// reservation manager call and the typed result mapped onto a status
// code.  Capacity races surface as 409 with the server-observed
// availability so the client can reconcile its optimistic view;
// operations on dead reservations surface as 410 so the client knows
// to reset its local state entirely.
type ReservationHandler struct {
	Manager   *service.ReservationManager
	JWTSecret string
	validate  *validator.Validate
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(manager *service.ReservationManager, jwtSecret string) *ReservationHandler {
	if manager == nil {
		panic("nil manager passed to NewReservationHandler")
	}
	return &ReservationHandler{
		Manager:   manager,
		JWTSecret: jwtSecret,
		validate:  validator.New(),
	}
}

// createRequest is the optional body of POST /v1/sessions/:id/reservations.
type createRequest struct {
	OwnerID string `json:"owner_id" validate:"omitempty,max=128"`
}

// itemRequest is the body of POST /v1/reservations/:id/items.  Exactly
// one of category_id and seat_id must be set; quantity applies to
// category items only.
type itemRequest struct {
	CategoryID *uint64 `json:"category_id" validate:"omitempty,gt=0"`
	SeatID     *uint64 `json:"seat_id" validate:"omitempty,gt=0"`
	Quantity   uint32  `json:"quantity" validate:"lte=100"`
}

// updateRequest is the body of PATCH /v1/reservations/:id/items/:itemID.
type updateRequest struct {
	Quantity uint32 `json:"quantity" validate:"lte=100"`
}

// CreateReservation handles POST /v1/sessions/:id/reservations.  On
// success it returns the new reservation together with the owner token
// the tab must present on every later mutation.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	sessionID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var body createRequest
	// The body is optional: anonymous tabs post without one.
	if err := c.Bind(&body); err != nil && c.Request().ContentLength > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Manager.Create(c.Request().Context(), sessionID, body.OwnerID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, service.ErrSessionNotSellable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "session_not_sellable"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}
	token, err := utils.NewOwnerToken(h.JWTSecret, res.ID, res.SessionID, body.OwnerID, res.ExpiresAt)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation":      reservationJSON(res),
		"token":            token.Token,
		"token_expires_at": token.Exp.Format(time.RFC3339),
	})
}

// GetReservation handles GET /v1/reservations/:id.
func (h *ReservationHandler) GetReservation(c echo.Context) error {
	res, err := h.Manager.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}

// AddItem handles POST /v1/reservations/:id/items.
func (h *ReservationHandler) AddItem(c echo.Context) error {
	var body itemRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	in := service.ItemInput{CategoryID: body.CategoryID, SeatID: body.SeatID, Quantity: body.Quantity}
	if body.SeatID != nil {
		in.Quantity = 1
	}
	res, err := h.Manager.AddItem(c.Request().Context(), c.Param("id"), in)
	if err != nil {
		return h.mapMutationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}

// UpdateItem handles PATCH /v1/reservations/:id/items/:itemID.  A
// quantity of zero removes the item.
func (h *ReservationHandler) UpdateItem(c echo.Context) error {
	itemID, err := strconv.ParseUint(c.Param("itemID"), 10, 64)
	if err != nil || itemID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	var body updateRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Manager.UpdateItem(c.Request().Context(), c.Param("id"), itemID, body.Quantity)
	if err != nil {
		return h.mapMutationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}

// RemoveItem handles DELETE /v1/reservations/:id/items/:itemID.
func (h *ReservationHandler) RemoveItem(c echo.Context) error {
	itemID, err := strconv.ParseUint(c.Param("itemID"), 10, 64)
	if err != nil || itemID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item id"})
	}
	res, err := h.Manager.RemoveItem(c.Request().Context(), c.Param("id"), itemID)
	if err != nil {
		return h.mapMutationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}

// Cancel handles POST /v1/reservations/:id/cancel and
// DELETE /v1/reservations/:id.  The POST form takes no body and is
// beacon-friendly: navigator.sendBeacon can only POST, fires while the
// page unloads, and never reads the response.  Cancel is idempotent;
// repeats and races with the sweeper all end in 204.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	err := h.Manager.Cancel(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Complete handles POST /v1/reservations/:id/complete.  Checkout
// success beyond this state transition is out of scope.
func (h *ReservationHandler) Complete(c echo.Context) error {
	res, err := h.Manager.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapMutationError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation": reservationJSON(res)})
}

// mapMutationError translates manager errors onto HTTP statuses.
func (h *ReservationHandler) mapMutationError(c echo.Context, err error) error {
	if ce, ok := service.AsCapacityError(err); ok {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "insufficient_capacity",
			"available": ce.Available,
		})
	}
	switch {
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation_not_active"})
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrItemNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "item not found"})
	case errors.Is(err, repository.ErrCategoryNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "category not found"})
	case errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
	case errors.Is(err, service.ErrInvalidItem):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid item"})
	case errors.Is(err, service.ErrOrderLimit):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "item limit exceeded"})
	case errors.Is(err, service.ErrCategoryLimit):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "category limit exceeded"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
}
