package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagefront/ticketing/internal/utils"
)

const tokenSecret = "test-secret"

func ownerTokenRequest(t *testing.T, target string, header bool) *http.Request {
	t.Helper()
	tok, err := utils.NewOwnerToken(tokenSecret, "res-1", 1, "user-7", time.Now().Add(time.Minute))
	require.NoError(t, err)

	if header {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Authorization", "Bearer "+tok.Token)
		return req
	}
	return httptest.NewRequest(http.MethodGet, target+"?token="+tok.Token, nil)
}

func invokeOwnerToken(req *http.Request, reservationID string) (*httptest.ResponseRecorder, string) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(reservationID)

	var seenOwner string
	h := RequireOwnerToken(tokenSecret)(func(c echo.Context) error {
		seenOwner, _ = c.Get("owner_id").(string)
		return c.NoContent(http.StatusOK)
	})
	_ = h(c)
	return rec, seenOwner
}

func TestRequireOwnerTokenBearerHeader(t *testing.T) {
	rec, owner := invokeOwnerToken(ownerTokenRequest(t, "/v1/reservations/res-1", true), "res-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", owner)
}

func TestRequireOwnerTokenQueryParam(t *testing.T) {
	// sendBeacon cannot set headers, so the token also rides the query.
	rec, owner := invokeOwnerToken(ownerTokenRequest(t, "/v1/reservations/res-1", false), "res-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", owner)
}

func TestRequireOwnerTokenMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/reservations/res-1", nil)
	rec, _ := invokeOwnerToken(req, "res-1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireOwnerTokenWrongReservation(t *testing.T) {
	rec, _ := invokeOwnerToken(ownerTokenRequest(t, "/v1/reservations/res-2", true), "res-2")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireOwnerTokenGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/reservations/res-1", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec, _ := invokeOwnerToken(req, "res-1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
