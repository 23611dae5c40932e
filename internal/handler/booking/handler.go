package booking

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/httputil"
	"github.com/medbook/booking-api/pkg/validator"
)

// Service is the appointment lifecycle surface the HTTP layer exposes.
type Service interface {
	Create(ctx context.Context, req *model.BookingRequest) (*model.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	Reschedule(ctx context.Context, id uuid.UUID, req *model.RescheduleRequest) (*model.Appointment, error)
}

type Handler struct {
	service   Service
	validator *validator.Validator
}

func NewHandler(service Service, v *validator.Validator) *Handler {
	return &Handler{service: service, validator: v}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	appointments.POST("", h.CreateAppointment)
	appointments.GET("/:id", h.GetAppointment)
	appointments.GET("", h.ListAppointments)
	appointments.POST("/:id/confirm", h.ConfirmAppointment)
	appointments.POST("/:id/cancel", h.CancelAppointment)
	appointments.POST("/:id/reschedule", h.RescheduleAppointment)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid request body", err))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error(), err))
		return
	}

	appt, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment id", err))
		return
	}

	appt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	if v := c.Query("doctor_id"); v != "" {
		doctorID, err := uuid.Parse(v)
		if err != nil {
			httputil.RespondWithError(c, errors.Validation("invalid doctor id", err))
			return
		}
		filters.DoctorID = doctorID
	}
	if v := c.Query("status"); v != "" {
		filters.Status = model.AppointmentStatus(v)
	}

	appts, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appts)
}

func (h *Handler) ConfirmAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment id", err))
		return
	}

	ok, err := h.service.Confirm(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"confirmed": ok})
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment id", err))
		return
	}

	ok, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"cancelled": ok})
}

// RescheduleAppointment keeps the legacy caller contract: failures come
// back as a human-readable message in the body, success as the updated
// appointment. Callers check status == "success", not mere truthiness.
func (h *Handler) RescheduleAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid appointment id", err))
		return
	}

	var req model.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid request body", err))
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		httputil.RespondWithError(c, errors.Validation(err.Error(), err))
		return
	}

	appt, err := h.service.Reschedule(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(httputil.StatusFor(err), httputil.Response{
			Status:  "error",
			Message: httputil.MessageFor(err),
		})
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appt)
}
