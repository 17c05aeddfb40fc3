package api

import (
	"errors"
	"net/http"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
)

// ClientHandler serves the client-facing routes: requesting and verifying
// connections, sharing toggles, logging and the lead form.
type ClientHandler struct {
	connectionService service.ConnectionService
	sharingService    service.SharingService
	entryService      service.EntryService
	reminderService   service.ReminderService
	leadService       service.LeadService
}

func NewClientHandler(
	connectionService service.ConnectionService,
	sharingService service.SharingService,
	entryService service.EntryService,
	reminderService service.ReminderService,
	leadService service.LeadService,
) *ClientHandler {
	return &ClientHandler{
		connectionService: connectionService,
		sharingService:    sharingService,
		entryService:      entryService,
		reminderService:   reminderService,
		leadService:       leadService,
	}
}

// --- DTOs ---

type CreateConnectionRequest struct {
	CoachEmail string `json:"coachEmail" binding:"required,email"`
}

type VerifyCodeRequest struct {
	Code string `json:"code" binding:"required,len=6"`
}

type UpdateSharingRequest struct {
	ShareMealsAuto  *bool `json:"shareMealsAuto" binding:"required"`
	ShareWeightAuto *bool `json:"shareWeightAuto" binding:"required"`
}

type LogMealRequest struct {
	Name           string     `json:"name" binding:"required"`
	Calories       int        `json:"calories" binding:"min=0"`
	ProteinGrams   float64    `json:"proteinGrams" binding:"min=0"`
	CarbsGrams     float64    `json:"carbsGrams" binding:"min=0"`
	FatGrams       float64    `json:"fatGrams" binding:"min=0"`
	PhotoObjectKey string     `json:"photoObjectKey"`
	LoggedAt       *time.Time `json:"loggedAt"`
}

type LogWeightRequest struct {
	WeightKg   float64    `json:"weightKg" binding:"required,gt=0"`
	RecordedAt *time.Time `json:"recordedAt"`
}

type PhotoUploadURLRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type SubmitLeadRequest struct {
	Goal              string   `json:"goal" binding:"required"`
	WeightRange       string   `json:"weightRange"`
	ContactPreference []string `json:"contactPreference"`
	BestTime          string   `json:"bestTime"`
	Message           string   `json:"message"`
}

// --- Connection lifecycle (client side) ---

// CreateConnection requests a connection to a coach by email.
func (h *ClientHandler) CreateConnection(c *gin.Context) {
	var req CreateConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}

	conn, err := h.connectionService.CreateRequest(c.Request.Context(), clientID, req.CoachEmail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCoachNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrConnectionConflict):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to create connection request.")
		}
		return
	}
	c.JSON(http.StatusCreated, MapConnectionToResponse(conn))
}

// VerifyCode submits an invite code against a pending connection. Invalid
// and expired codes collapse into one message so the error channel does not
// leak connection state.
func (h *ClientHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}
	connectionID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	conn, err := h.connectionService.VerifyCode(c.Request.Context(), clientID, connectionID, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCode) || errors.Is(err, service.ErrCodeExpired) {
			abortWithError(c, http.StatusUnprocessableEntity, "Invalid or expired code.")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to verify code.")
		return
	}
	c.JSON(http.StatusOK, MapConnectionToResponse(conn))
}

// DisconnectConnection ends an active connection from the client's side.
func (h *ClientHandler) DisconnectConnection(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}
	connectionID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.connectionService.Disconnect(c.Request.Context(), clientID, connectionID); err != nil {
		writeDisconnectError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListConnections returns every connection the client is party to.
func (h *ClientHandler) ListConnections(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}

	conns, err := h.connectionService.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list connections.")
		return
	}
	c.JSON(http.StatusOK, MapConnectionsToResponse(conns))
}

// --- Sharing settings ---

// GetSharingSettings returns the client's own toggles.
func (h *ClientHandler) GetSharingSettings(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}

	settings, err := h.sharingService.GetSettings(c.Request.Context(), clientID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read sharing settings.")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// UpdateSharingSettings overwrites the client's toggles.
func (h *ClientHandler) UpdateSharingSettings(c *gin.Context) {
	var req UpdateSharingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}

	settings, err := h.sharingService.UpdateSettings(c.Request.Context(), clientID, *req.ShareMealsAuto, *req.ShareWeightAuto)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to update sharing settings.")
		return
	}
	c.JSON(http.StatusOK, settings)
}

// --- Logging ---

// LogMeal stores a meal entry for the client.
func (h *ClientHandler) LogMeal(c *gin.Context) {
	var req LogMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}

	entry := &domain.MealEntry{
		Name:           req.Name,
		Calories:       req.Calories,
		ProteinGrams:   req.ProteinGrams,
		CarbsGrams:     req.CarbsGrams,
		FatGrams:       req.FatGrams,
		PhotoObjectKey: req.PhotoObjectKey,
	}
	if req.LoggedAt != nil {
		entry.LoggedAt = req.LoggedAt.UTC()
	}

	created, err := h.entryService.LogMeal(c.Request.Context(), clientID, entry)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to log meal.")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// LogWeight stores a weight entry for the client.
func (h *ClientHandler) LogWeight(c *gin.Context) {
	var req LogWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}

	entry := &domain.WeightEntry{WeightKg: req.WeightKg}
	if req.RecordedAt != nil {
		entry.RecordedAt = req.RecordedAt.UTC()
	}

	created, err := h.entryService.LogWeight(c.Request.Context(), clientID, entry)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to log weight.")
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteMeal removes one of the client's own entries along with its photo.
func (h *ClientHandler) DeleteMeal(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}
	entryID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.entryService.DeleteMeal(c.Request.Context(), clientID, entryID); err != nil {
		if errors.Is(err, service.ErrEntryNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to delete meal.")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMyMeals returns the client's own meals in range.
func (h *ClientHandler) GetMyMeals(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}
	from, to, ok := queryDateRange(c)
	if !ok {
		return
	}

	entries, err := h.entryService.GetMyMeals(c.Request.Context(), clientID, from, to)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read meals.")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetMyWeight returns the client's own weight entries in range.
func (h *ClientHandler) GetMyWeight(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}
	from, to, ok := queryDateRange(c)
	if !ok {
		return
	}

	entries, err := h.entryService.GetMyWeightEntries(c.Request.Context(), clientID, from, to)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read weight entries.")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// RequestPhotoUploadURL presigns a direct upload for a meal photo.
func (h *ClientHandler) RequestPhotoUploadURL(c *gin.Context) {
	var req PhotoUploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}

	resp, err := h.entryService.RequestPhotoUploadURL(c.Request.Context(), clientID, req.ContentType)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// --- Reminders ---

// ListReminders returns reminders addressed to the client.
func (h *ClientHandler) ListReminders(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}

	reminders, err := h.reminderService.ListByClient(c.Request.Context(), clientID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list reminders.")
		return
	}
	c.JSON(http.StatusOK, reminders)
}

// CompleteReminder marks a reminder done without a matching log entry, e.g.
// when the client dismisses it from the app. Reminders addressed to other
// clients are reported as not found.
func (h *ClientHandler) CompleteReminder(c *gin.Context) {
	clientID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify client from token.")
		return
	}
	reminderID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.reminderService.CompleteReminder(c.Request.Context(), clientID, reminderID); err != nil {
		if errors.Is(err, service.ErrReminderNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to complete reminder.")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Leads ---

// SubmitLead captures the "match me with a coach" form, throttled per user.
func (h *ClientHandler) SubmitLead(c *gin.Context) {
	var req SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	lead, err := h.leadService.SubmitLead(c.Request.Context(), userID, service.LeadInput{
		Goal:              req.Goal,
		WeightRange:       req.WeightRange,
		ContactPreference: req.ContactPreference,
		BestTime:          req.BestTime,
		Message:           req.Message,
	})
	if err != nil {
		if errors.Is(err, service.ErrRateLimited) {
			abortWithError(c, http.StatusTooManyRequests, "A coaching request was already submitted recently.")
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to submit coaching request.")
		return
	}
	c.JSON(http.StatusCreated, lead)
}
