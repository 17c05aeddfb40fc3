package api

import (
	"errors"
	"net/http"
	"time"

	"mealcoach/coaching-app/internal/domain"
	"mealcoach/coaching-app/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CoachHandler serves the coach-facing routes: connection review, capacity,
// gated client data reads, reminders and lead browsing.
type CoachHandler struct {
	coachService      service.CoachService
	connectionService service.ConnectionService
	sharingService    service.SharingService
	reminderService   service.ReminderService
	leadService       service.LeadService
}

func NewCoachHandler(
	coachService service.CoachService,
	connectionService service.ConnectionService,
	sharingService service.SharingService,
	reminderService service.ReminderService,
	leadService service.LeadService,
) *CoachHandler {
	return &CoachHandler{
		coachService:      coachService,
		connectionService: connectionService,
		sharingService:    sharingService,
		reminderService:   reminderService,
		leadService:       leadService,
	}
}

// --- DTOs ---

type SendReminderRequest struct {
	Kind    string `json:"kind" binding:"required,oneof=weigh_in log_meals"`
	Message string `json:"message"`
}

type UpdateLeadStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=new contacted converted"`
}

// ConnectionResponse is the wire shape for a connection row.
type ConnectionResponse struct {
	ID          string     `json:"id"`
	CoachID     string     `json:"coachId"`
	ClientID    string     `json:"clientId"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ConnectedAt *time.Time `json:"connectedAt,omitempty"`
}

// MapConnectionToResponse converts a domain.Connection to its DTO.
func MapConnectionToResponse(conn *domain.Connection) ConnectionResponse {
	if conn == nil {
		return ConnectionResponse{}
	}
	return ConnectionResponse{
		ID:          conn.ID.Hex(),
		CoachID:     conn.CoachID.Hex(),
		ClientID:    conn.ClientID.Hex(),
		Status:      string(conn.Status),
		CreatedAt:   conn.CreatedAt,
		ConnectedAt: conn.ConnectedAt,
	}
}

// MapConnectionsToResponse converts a slice of domain.Connection.
func MapConnectionsToResponse(conns []domain.Connection) []ConnectionResponse {
	responses := make([]ConnectionResponse, len(conns))
	for i, conn := range conns {
		responses[i] = MapConnectionToResponse(&conn)
	}
	return responses
}

// --- Handlers ---

// ListConnections returns the coach's connections, optionally filtered by
// ?status=.
func (h *CoachHandler) ListConnections(c *gin.Context) {
	coach, ok := h.resolveCoach(c)
	if !ok {
		return
	}

	status := domain.ConnectionStatus(c.Query("status"))
	conns, err := h.connectionService.ListByCoach(c.Request.Context(), coach.ID, status)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list connections.")
		return
	}
	c.JSON(http.StatusOK, MapConnectionsToResponse(conns))
}

// ApproveConnection approves a pending request and issues an invite code.
func (h *CoachHandler) ApproveConnection(c *gin.Context) {
	coach, ok := h.resolveCoach(c)
	if !ok {
		return
	}
	connectionID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	conn, err := h.connectionService.Approve(c.Request.Context(), coach.ID, connectionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConnectionNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotParticipant):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrCapacityExceeded):
			abortWithError(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrConnectionConflict):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to approve connection.")
		}
		return
	}
	c.JSON(http.StatusOK, MapConnectionToResponse(conn))
}

// DeclineConnection declines a pending or active connection.
func (h *CoachHandler) DeclineConnection(c *gin.Context) {
	coach, ok := h.resolveCoach(c)
	if !ok {
		return
	}
	connectionID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	err := h.connectionService.Decline(c.Request.Context(), coach.ID, connectionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConnectionNotFound):
			abortWithError(c, http.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrNotParticipant):
			abortWithError(c, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrConnectionConflict):
			abortWithError(c, http.StatusConflict, err.Error())
		default:
			abortWithError(c, http.StatusInternalServerError, "Failed to decline connection.")
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// DisconnectConnection ends an active connection from the coach's side.
func (h *CoachHandler) DisconnectConnection(c *gin.Context) {
	profileID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}
	connectionID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	err = h.connectionService.Disconnect(c.Request.Context(), profileID, connectionID)
	if err != nil {
		writeDisconnectError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetCapacity returns the coach's capacity ledger snapshot.
func (h *CoachHandler) GetCapacity(c *gin.Context) {
	profileID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return
	}

	snapshot, err := h.coachService.Capacity(c.Request.Context(), profileID)
	if err != nil {
		if errors.Is(err, service.ErrCoachNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to compute capacity.")
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetClientMeals returns a client's meals in range, gated by the client's
// sharing settings. A denied read is an empty list, same as no data.
func (h *CoachHandler) GetClientMeals(c *gin.Context) {
	coach, ok := h.resolveCoach(c)
	if !ok {
		return
	}
	clientID, ok := pathObjectID(c, "clientId")
	if !ok {
		return
	}
	from, to, ok := queryDateRange(c)
	if !ok {
		return
	}

	records, err := h.sharingService.GetClientMeals(c.Request.Context(), coach.ID, clientID, from, to)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read meals.")
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetClientWeight returns a client's weight entries in range, gated the same
// way as meals.
func (h *CoachHandler) GetClientWeight(c *gin.Context) {
	coach, ok := h.resolveCoach(c)
	if !ok {
		return
	}
	clientID, ok := pathObjectID(c, "clientId")
	if !ok {
		return
	}
	from, to, ok := queryDateRange(c)
	if !ok {
		return
	}

	entries, err := h.sharingService.GetClientWeightEntries(c.Request.Context(), coach.ID, clientID, from, to)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read weight entries.")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// SendReminder creates a nudge against an active connection.
func (h *CoachHandler) SendReminder(c *gin.Context) {
	var req SendReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	coach, ok := h.resolveCoach(c)
	if !ok {
		return
	}
	clientID, ok := pathObjectID(c, "clientId")
	if !ok {
		return
	}

	reminder, err := h.reminderService.SendReminder(c.Request.Context(), coach.ID, clientID, domain.ReminderKind(req.Kind), req.Message)
	if err != nil {
		if errors.Is(err, service.ErrConnectionNotActive) {
			abortWithError(c, http.StatusConflict, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to send reminder.")
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

// ListReminders returns the reminders the coach has sent.
func (h *CoachHandler) ListReminders(c *gin.Context) {
	coach, ok := h.resolveCoach(c)
	if !ok {
		return
	}

	reminders, err := h.reminderService.ListByCoach(c.Request.Context(), coach.ID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list reminders.")
		return
	}
	c.JSON(http.StatusOK, reminders)
}

// ListLeads returns the self-service coaching leads for review.
func (h *CoachHandler) ListLeads(c *gin.Context) {
	leads, err := h.leadService.ListLeads(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list leads.")
		return
	}
	c.JSON(http.StatusOK, leads)
}

// UpdateLeadStatus records back-office progress on a lead.
func (h *CoachHandler) UpdateLeadStatus(c *gin.Context) {
	var req UpdateLeadStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	leadID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}

	if err := h.leadService.UpdateLeadStatus(c.Request.Context(), leadID, domain.LeadStatus(req.Status)); err != nil {
		if errors.Is(err, service.ErrLeadNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to update lead.")
		return
	}
	c.Status(http.StatusNoContent)
}

// resolveCoach maps the authenticated profile to its coach account, writing
// the error response itself on failure.
func (h *CoachHandler) resolveCoach(c *gin.Context) (*domain.Coach, bool) {
	profileID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify coach from token.")
		return nil, false
	}

	coach, err := h.coachService.GetOwnCoach(c.Request.Context(), profileID)
	if err != nil {
		if errors.Is(err, service.ErrCoachNotFound) {
			abortWithError(c, http.StatusForbidden, "No coach account for this profile.")
			return nil, false
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to resolve coach account.")
		return nil, false
	}
	return coach, true
}

// pathObjectID parses an ObjectID path parameter.
func pathObjectID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid "+name+" format.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// queryDateRange parses optional ?from= and ?to= RFC 3339 bounds, defaulting
// to the last 30 days.
func queryDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp.")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp.")
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}

// writeDisconnectError maps Disconnect service errors onto HTTP statuses.
func writeDisconnectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrConnectionNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotParticipant):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrConnectionNotActive):
		abortWithError(c, http.StatusConflict, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Failed to disconnect.")
	}
}
