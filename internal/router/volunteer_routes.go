package router

import (
	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/handler"
	"github.com/gulldan/volunteerhub/internal/middleware"
)

// RegisterAuth registers the session and account endpoints.  Register
// and login are rate limited; everything under /v1 behind JWTAuth is
// not, a valid token is gate enough.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register, rateLimit)
	g.POST("/login", a.Login, rateLimit)
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body, so it works without a
	// live access token.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.PATCH("/me", a.UpdateProfile)
	auth.PATCH("/me/notifications", a.UpdateNotificationPrefs)
	auth.POST("/me/telegram", a.LinkTelegram)
}

// RegisterVolunteer registers the application lifecycle endpoints a
// volunteer uses: apply, list, cancel, fetch the check-in pass and the
// calendar feed.
func RegisterVolunteer(e *echo.Echo, app *handler.ApplicationHandler, exp *handler.ExportHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.POST("/applications", app.Submit)
	g.DELETE("/applications/:id", app.Cancel)
	g.GET("/applications/:id/pass", app.CheckinPass)
	g.GET("/me/applications", app.ListMine)
	g.GET("/me/upcoming", app.ListUpcoming)
	g.GET("/me/calendar.ics", exp.CalendarICS)
}
