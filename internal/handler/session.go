package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/stagefront/ticketing/internal/model"
	"github.com/stagefront/ticketing/internal/repository"
)

// PublicHandler serves the unauthenticated browse surface: sessions,
// categories, blocks, seats and availability.  These endpoints are
// read-only and sit behind the response cache; the authoritative
// capacity answer at reservation time always comes from the ledger's
// conditional update, never from these reads.
type PublicHandler struct {
	SessionRepo   *repository.SessionRepo
	InventoryRepo *repository.InventoryRepo
}

// NewPublicHandler constructs a PublicHandler.  Both repositories must
// be non-nil.
func NewPublicHandler(sessionRepo *repository.SessionRepo, inventoryRepo *repository.InventoryRepo) *PublicHandler {
	if sessionRepo == nil || inventoryRepo == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{SessionRepo: sessionRepo, InventoryRepo: inventoryRepo}
}

// GetSession handles GET /v1/sessions/:id.
func (h *PublicHandler) GetSession(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	sess, err := h.SessionRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":                  sess.ID,
		"event_id":            sess.EventID,
		"status":              sess.Status,
		"layout_type":         sess.LayoutType,
		"available_capacity":  sess.AvailableCapacity,
		"reservation_minutes": sess.ReservationMinutes,
		"starts_at":           sess.StartsAt.Format(time.RFC3339),
	})
}

// GetCategories handles GET /v1/sessions/:id/categories.  Lists the
// priced tiers of a quantity-layout session with live remainders.
func (h *PublicHandler) GetCategories(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	if _, err := h.SessionRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	cats, err := h.SessionRepo.CategoriesBySession(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load categories"})
	}
	items := make([]echo.Map, 0, len(cats))
	for _, cat := range cats {
		items = append(items, echo.Map{
			"id":            cat.ID,
			"name":          cat.Name,
			"price_cents":   cat.PriceCents,
			"max_per_order": cat.MaxPerOrder,
			"remaining":     cat.Remaining,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBlocks handles GET /v1/sessions/:id/blocks.
func (h *PublicHandler) GetBlocks(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	ctx := c.Request().Context()
	if _, err := h.SessionRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	blocks, err := h.SessionRepo.BlocksBySession(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load blocks"})
	}
	items := make([]echo.Map, 0, len(blocks))
	for _, b := range blocks {
		items = append(items, echo.Map{
			"id":         b.ID,
			"name":       b.Name,
			"seat_count": b.SeatCount,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetBlockSeats handles GET /v1/blocks/:id/seats.  Seats load lazily
// per block so large venues never ship the whole map at once.
func (h *PublicHandler) GetBlockSeats(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid block id"})
	}
	ctx := c.Request().Context()
	if _, err := h.SessionRepo.GetBlock(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBlockNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "block not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	seats, err := h.SessionRepo.SeatsByBlock(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	items := make([]echo.Map, 0, len(seats))
	for _, s := range seats {
		items = append(items, echo.Map{
			"id":          s.ID,
			"row":         s.RowLabel,
			"number":      s.Number,
			"status":      s.Status,
			"price_cents": s.PriceCents,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetAvailability handles GET /v1/sessions/:id/availability.  Returns
// the aggregate counter plus per-category remainders; for seat layouts
// the categories list is empty and clients consult the block seat
// endpoints instead.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	capacity, cats, err := h.InventoryRepo.SessionAvailability(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load availability"})
	}
	categories := make([]echo.Map, 0, len(cats))
	for _, cat := range cats {
		categories = append(categories, echo.Map{
			"id":        cat.ID,
			"name":      cat.Name,
			"remaining": cat.Remaining,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"available_capacity": capacity,
		"categories":         categories,
	})
}

// parseID parses a positive uint64 path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// reservationJSON is the wire shape of a reservation shared by the
// public and mutation handlers.
func reservationJSON(res *model.Reservation) echo.Map {
	items := make([]echo.Map, 0, len(res.Items))
	for _, it := range res.Items {
		m := echo.Map{
			"id":               it.ID,
			"quantity":         it.Quantity,
			"unit_price_cents": it.UnitPriceCents,
		}
		if it.CategoryID != nil {
			m["category_id"] = *it.CategoryID
		}
		if it.SeatID != nil {
			m["seat_id"] = *it.SeatID
		}
		items = append(items, m)
	}
	return echo.Map{
		"id":                res.ID,
		"session_id":        res.SessionID,
		"status":            res.Status,
		"expires_at":        res.ExpiresAt.UTC().Format(time.RFC3339),
		"created_at":        res.CreatedAt.UTC().Format(time.RFC3339),
		"items":             items,
		"total_quantity":    res.TotalQuantity(),
		"total_price_cents": res.TotalPriceCents(),
	}
}
