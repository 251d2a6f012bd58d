package router

import (
	"github.com/labstack/echo/v4"

	"github.com/gulldan/volunteerhub/internal/handler"
	"github.com/gulldan/volunteerhub/internal/middleware"
	"github.com/gulldan/volunteerhub/internal/model"
)

// RegisterOrg registers the organizer/coordinator console under
// /v1/org.  Every route requires a JWT with the ORGANIZER or
// COORDINATOR role; ownership of the touched event or application is
// checked per handler against the caller's organization.
func RegisterOrg(e *echo.Echo, org *handler.OrganizerHandler, chk *handler.CheckinHandler,
	exp *handler.ExportHandler, inc *handler.IncidentHandler, jwtSecret string) {
	g := e.Group("/v1/org",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer, model.RoleCoordinator))

	// Creating the organization itself is the organizer's first step;
	// coordinators always belong to an existing one.
	g.POST("/organization", org.CreateOrganization, middleware.RequireRole(model.RoleOrganizer))

	g.GET("/events", org.ListEvents)
	g.POST("/events", org.CreateEvent)
	g.PUT("/events/:id", org.UpdateEvent)
	g.POST("/events/:id/publish", org.PublishEvent)
	g.POST("/events/:id/close", org.CloseEvent)
	g.POST("/events/:id/roles", org.CreateRole)
	g.POST("/events/:id/shifts", org.CreateShift)
	g.GET("/events/:id/applications", org.ListApplications)
	g.GET("/events/:id/attendance.csv", exp.AttendanceCSV)

	g.PATCH("/applications/:id", org.DecideApplication)
	g.POST("/applications/:id/checkin", chk.ManualCheckIn)
	g.POST("/applications/:id/checkout", chk.CheckOut)
	g.POST("/applications/:id/verify", chk.Verify)
	g.POST("/checkin/bulk", chk.BulkCheckIn)
	g.POST("/checkout/bulk", chk.BulkCheckOut)
	g.POST("/verify/bulk", chk.BulkVerify)

	g.GET("/stats", org.Stats)
	g.GET("/top-volunteers", org.TopVolunteers)
	g.GET("/activity", org.RecentActivity)

	g.POST("/incidents", inc.Create)
	g.GET("/incidents", inc.List)
}
