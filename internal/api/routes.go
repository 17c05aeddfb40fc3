package api

import (
	"net/http"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	coachService service.CoachService,
	connectionService service.ConnectionService,
	sharingService service.SharingService,
	reminderService service.ReminderService,
	leadService service.LeadService,
	entryService service.EntryService,
) {
	coachHandler := NewCoachHandler(coachService, connectionService, sharingService, reminderService, leadService)
	clientHandler := NewClientHandler(connectionService, sharingService, entryService, reminderService, leadService)

	router.Use(RequestIDMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			userID, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userID.Hex(), "role": role})
		})

		// --- Coach Routes ---
		coachGroup := protected.Group("/coach")
		coachGroup.Use(RoleMiddleware(domain.RoleCoach))
		{
			// GET /api/v1/coach/connections?status=pending_request
			coachGroup.GET("/connections", coachHandler.ListConnections)
			coachGroup.POST("/connections/:id/approve", coachHandler.ApproveConnection)
			coachGroup.POST("/connections/:id/decline", coachHandler.DeclineConnection)
			coachGroup.POST("/connections/:id/disconnect", coachHandler.DisconnectConnection)

			coachGroup.GET("/capacity", coachHandler.GetCapacity)

			// Client data reads pass through the sharing gate.
			coachGroup.GET("/clients/:clientId/meals", coachHandler.GetClientMeals)
			coachGroup.GET("/clients/:clientId/weight", coachHandler.GetClientWeight)

			coachGroup.POST("/clients/:clientId/reminders", coachHandler.SendReminder)
			coachGroup.GET("/reminders", coachHandler.ListReminders)

			coachGroup.GET("/leads", coachHandler.ListLeads)
			coachGroup.PATCH("/leads/:id", coachHandler.UpdateLeadStatus)
		}

		// --- Client Routes ---
		clientGroup := protected.Group("/client")
		clientGroup.Use(RoleMiddleware(domain.RoleClient))
		{
			clientGroup.POST("/connections", clientHandler.CreateConnection)
			clientGroup.GET("/connections", clientHandler.ListConnections)
			clientGroup.POST("/connections/:id/verify", clientHandler.VerifyCode)
			clientGroup.POST("/connections/:id/disconnect", clientHandler.DisconnectConnection)

			clientGroup.GET("/sharing", clientHandler.GetSharingSettings)
			clientGroup.PUT("/sharing", clientHandler.UpdateSharingSettings)

			clientGroup.POST("/meals", clientHandler.LogMeal)
			clientGroup.GET("/meals", clientHandler.GetMyMeals)
			clientGroup.DELETE("/meals/:id", clientHandler.DeleteMeal)
			clientGroup.POST("/meals/photo-upload-url", clientHandler.RequestPhotoUploadURL)
			clientGroup.POST("/weight", clientHandler.LogWeight)
			clientGroup.GET("/weight", clientHandler.GetMyWeight)

			clientGroup.GET("/reminders", clientHandler.ListReminders)
			clientGroup.POST("/reminders/:id/complete", clientHandler.CompleteReminder)

			clientGroup.POST("/leads", clientHandler.SubmitLead)
		}
	}
}
