// Package webhook exposes the endpoints the messaging provider calls
// back into: button replies and delivery receipts. The provider-facing
// contract is strict: always 200 whatever happens internally, so a
// processing hiccup never turns into a provider retry storm. 500 is
// reserved for a request body we cannot even parse.
package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/pkg/logger"
)

// Lifecycle is the slice of the booking service the reply webhook
// drives.
type Lifecycle interface {
	Confirm(ctx context.Context, id uuid.UUID) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

// DeliveryTracker records provider delivery receipts.
type DeliveryTracker interface {
	Record(ctx context.Context, providerSID, status string) error
}

// Reply bodies the provider's interactive buttons produce.
const (
	bodyConfirm      = "CONFIRM"
	bodyCancel       = "CANCEL"
	bodyCancelLegacy = "Cancel appointment"
)

type Handler struct {
	lifecycle Lifecycle
	tracker   DeliveryTracker
	logger    *logger.Logger
}

func NewHandler(lifecycle Lifecycle, tracker DeliveryTracker, log *logger.Logger) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		tracker:   tracker,
		logger:    log,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	webhooks.POST("/reply", h.HandleReply)
	webhooks.POST("/delivery", h.HandleDeliveryStatus)
}

// HandleReply routes a doctor's button reply to the matching lifecycle
// action. Fails closed on any shape mismatch. Duplicate deliveries are
// harmless: the lifecycle's transitions are idempotent.
func (h *Handler) HandleReply(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	body := c.Request.PostForm.Get("Body")
	payload := c.Request.PostForm.Get("ButtonPayload")

	handled := h.dispatch(c, body, payload)
	c.JSON(http.StatusOK, gin.H{"handled": handled})
}

func (h *Handler) dispatch(c *gin.Context, body, payload string) bool {
	appointmentID, err := uuid.Parse(payload)
	if err != nil {
		h.logger.Warn("reply webhook with unparseable payload", "payload", payload)
		return false
	}

	switch body {
	case bodyConfirm:
		ok, err := h.lifecycle.Confirm(c.Request.Context(), appointmentID)
		if err != nil {
			h.logger.Error(err, "webhook confirm failed", "appointment_id", appointmentID.String())
			return false
		}
		return ok
	case bodyCancel, bodyCancelLegacy:
		ok, err := h.lifecycle.Cancel(c.Request.Context(), appointmentID)
		if err != nil {
			h.logger.Error(err, "webhook cancel failed", "appointment_id", appointmentID.String())
			return false
		}
		return ok
	default:
		h.logger.Warn("reply webhook with unknown body", "body", body)
		return false
	}
}

// HandleDeliveryStatus records a delivery receipt. Idempotent; repeat
// receipts for the same message change nothing.
func (h *Handler) HandleDeliveryStatus(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}

	sid := c.Request.PostForm.Get("MessageSid")
	status := c.Request.PostForm.Get("MessageStatus")

	if err := h.tracker.Record(c.Request.Context(), sid, status); err != nil {
		h.logger.Error(err, "delivery status processing failed", "message_sid", sid)
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
