package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"clipbook/internal/auth"
	"clipbook/internal/bookings/service"
	apperrors "clipbook/pkg/errors"
	"clipbook/pkg/httputil"
	"clipbook/pkg/logger"
	"clipbook/pkg/model"
)

type BookingHandler struct {
	service service.BookingService
	authMW  *auth.Middleware
	log     *logger.Logger
}

func NewBookingHandler(svc service.BookingService, authMW *auth.Middleware, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: svc,
		authMW:  authMW,
		log:     log,
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.authMW.Authenticated(h.Create))
	router.GET("/api/v1/bookings", h.authMW.AdminOnly(h.List))
	router.GET("/api/v1/bookings/mine", h.authMW.Authenticated(h.ListOwn))
	router.GET("/api/v1/bookings/id/:id", h.authMW.Authenticated(h.GetByID))
	router.PATCH("/api/v1/bookings/id/:id", h.authMW.Authenticated(h.Update))
	router.DELETE("/api/v1/bookings/id/:id", h.authMW.Authenticated(h.Cancel))
	router.GET("/api/v1/bookings/fully-booked-dates", h.FullyBookedDates)
	router.GET("/api/v1/bookings/date/:date", h.BookedTimes)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("Invalid JSON in request body"))
		return
	}

	booking, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("Failed to write booking response", "error", err)
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}

	bookings, total, err := h.service.List(r.Context(), actor, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("Failed to write bookings response", "error", err)
	}
}

func (h *BookingHandler) ListOwn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, apperrors.InvalidInput(err.Error()))
		return
	}

	bookings, total, err := h.service.ListOwn(r.Context(), actor, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("Failed to write bookings response", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	booking, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("Failed to write booking response", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	var update model.BookingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, apperrors.InvalidInput("Invalid JSON in request body"))
		return
	}

	booking, err := h.service.Update(r.Context(), actor, ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("Failed to write booking response", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	if err := h.service.Cancel(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *BookingHandler) FullyBookedDates(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	days, err := h.service.FullyBookedDates(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, days); err != nil {
		h.log.Error("Failed to write fully booked dates response", "error", err)
	}
}

func (h *BookingHandler) BookedTimes(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	times, err := h.service.BookedTimes(r.Context(), ps.ByName("date"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, times); err != nil {
		h.log.Error("Failed to write booked times response", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("Failed to write error response", "error", writeErr)
	}
}
