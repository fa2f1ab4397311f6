package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-appointments-server/internal/handlers"
	"clinic-appointments-server/internal/middleware"
	"clinic-appointments-server/internal/models"
	"clinic-appointments-server/internal/scheduling"
	"clinic-appointments-server/internal/waitlist"
)

// Dependencies are the services the HTTP surface is built on.
type Dependencies struct {
	JWTSecret  string
	Scheduling *scheduling.Service
	Waitlist   *waitlist.Service
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	appointmentHandler := handlers.NewAppointmentHandler(deps.Scheduling)
	scheduleHandler := handlers.NewScheduleHandler(deps.Scheduling)
	waitingListHandler := handlers.NewWaitingListHandler(deps.Waitlist)

	staff := middleware.RoleAuthMiddleware(models.StaffRoles...)
	booking := middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleDoctor, models.RoleReceptionist)
	frontDesk := middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleNurse, models.RoleReceptionist)

	// A QR token holder may look at the appointment without logging in.
	public := router.Group("/api/v1")
	{
		public.GET("/appointments/checkin/:qrToken", appointmentHandler.GetCheckInView)
	}

	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.JWTSecret))
	{
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("/available-slots", staff, appointmentHandler.GetAvailableSlots)
			appointmentRoutes.POST("/checkin/:qrToken", frontDesk, appointmentHandler.CheckIn)

			// Patients only ever see their own; the service scopes the list.
			appointmentRoutes.GET("", appointmentHandler.ListAppointments)
			appointmentRoutes.POST("", booking, appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PUT("/:id", booking, appointmentHandler.UpdateAppointment)
			appointmentRoutes.POST("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.POST("/:id/reschedule", booking, appointmentHandler.RescheduleAppointment)
		}

		scheduleRoutes := private.Group("/schedule")
		scheduleRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleDoctor))
		{
			scheduleRoutes.GET("", scheduleHandler.GetWeeklySchedule)
			scheduleRoutes.PUT("/day", scheduleHandler.UpsertWeeklyDay)
			scheduleRoutes.GET("/exceptions", scheduleHandler.ListExceptions)
			scheduleRoutes.POST("/exceptions", scheduleHandler.CreateException)
			scheduleRoutes.DELETE("/exceptions/:id", scheduleHandler.DeleteException)
		}

		waitingListRoutes := private.Group("/waiting-list")
		waitingListRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleReceptionist))
		{
			waitingListRoutes.GET("", waitingListHandler.ListEntries)
			waitingListRoutes.POST("", waitingListHandler.AddEntry)
			waitingListRoutes.DELETE("/:id", waitingListHandler.RemoveEntry)
		}
	}

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
