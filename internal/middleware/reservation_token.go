package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/stagefront/ticketing/internal/utils"
)

// RequireOwnerToken returns an Echo middleware that authorizes
// reservation mutations.  The owner token minted at create time must be
// presented either as a Bearer token or as a `token` query parameter.
// The query form exists because navigator.sendBeacon, the transport the
// client uses for unload-time cancels, cannot set request headers.  The
// token's subject must match the :id path parameter, so a token for one
// reservation is useless against another.
func RequireOwnerToken(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := ""
            if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
                raw = strings.TrimPrefix(auth, "Bearer ")
            }
            if raw == "" {
                raw = c.QueryParam("token")
            }
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing reservation token"})
            }
            owner, err := utils.ParseOwnerToken(secret, raw, c.Param("id"))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid reservation token"})
            }
            // Expose the owner identifier (may be empty for anonymous
            // tabs) to handlers and the rate limiter key builder.
            c.Set("owner_id", owner)
            return next(c)
        }
    }
}
