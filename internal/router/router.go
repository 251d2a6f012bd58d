// Package router registers the HTTP routes and binds middleware to the
// route groups that need it.  Routes are grouped by audience: public
// browse and check-in endpoints, authenticated volunteer endpoints and
// the organizer/coordinator console.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/handler"
)

// RegisterRoutes registers routes that require no authentication and no
// other middleware.  Currently that is only the health check, used by
// load balancers to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated browse and check-in
// surface.  Catalog reads go through the response cache; the check-in
// processor is rate limited because kiosks post to it anonymously and
// the token is the only credential.
func RegisterPublic(e *echo.Echo, cat *handler.CatalogHandler, chk *handler.CheckinHandler,
	tg *handler.TelegramHandler, rateLimit, cache echo.MiddlewareFunc) {
	e.GET("/v1/events", cat.ListUpcoming, cache)
	e.GET("/v1/events/search", cat.Search, cache)
	e.GET("/v1/events/:id", cat.GetEvent, cache)
	e.GET("/v1/organizations", cat.ListOrganizations, cache)

	// Kiosk surface: the poster QR resolves the shift, scanned volunteer
	// tokens are posted for processing.
	e.GET("/v1/kiosk/:qr_id", chk.Kiosk)
	e.POST("/v1/checkin/process", chk.Process, rateLimit)

	// Telegram calls this with bot updates once a webhook is set.
	e.POST("/v1/telegram/webhook", tg.Webhook)
}
