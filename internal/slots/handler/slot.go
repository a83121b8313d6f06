package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"clipbook/internal/auth"
	"clipbook/internal/slots/service"
	apperrors "clipbook/pkg/errors"
	"clipbook/pkg/httputil"
	"clipbook/pkg/logger"
	"clipbook/pkg/model"
)

// StatusSetter is the coordinator-side operation that flips a slot's status,
// force-cancelling any booking that occupies it.
type StatusSetter interface {
	SetSlotStatus(ctx context.Context, actor *auth.Identity, slotID string, status model.SlotStatus) (*model.TimeSlot, error)
}

type SlotHandler struct {
	service      service.SlotService
	statusSetter StatusSetter
	authMW       *auth.Middleware
	log          *logger.Logger
}

func NewSlotHandler(svc service.SlotService, statusSetter StatusSetter, authMW *auth.Middleware, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service:      svc,
		statusSetter: statusSetter,
		authMW:       authMW,
		log:          log,
	}
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/timeslots", h.List)
	router.GET("/api/v1/timeslots/date/:date", h.GetByDate)
	router.GET("/api/v1/timeslots/day/:date", h.DaySchedule)
	router.PUT("/api/v1/timeslots/id/:id/status", h.authMW.AdminOnly(h.UpdateStatus))
}

func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}

	slots, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WritePaginated(w, slots, total, limit, offset); err != nil {
		h.log.Error("Failed to write paginated slots response", "error", err)
	}
}

func (h *SlotHandler) GetByDate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slots, err := h.service.GetByDate(r.Context(), ps.ByName("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("Failed to write slots response", "error", err)
	}
}

func (h *SlotHandler) DaySchedule(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entries, err := h.service.DaySchedule(r.Context(), ps.ByName("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("Failed to write day schedule response", "error", err)
	}
}

func (h *SlotHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	var req model.SlotStatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("Invalid JSON in request body"))
		return
	}
	if req.Status != model.SlotAvailable && req.Status != model.SlotBlocked {
		h.writeError(w, apperrors.InvalidInput("Status must be one of: available, blocked"))
		return
	}

	slot, err := h.statusSetter.SetSlotStatus(r.Context(), actor, ps.ByName("id"), req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("Failed to write slot status response", "error", err)
	}
}

func (h *SlotHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("Failed to write error response", "error", writeErr)
	}
}
