package catalog

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"clipbook/pkg/httputil"
	"clipbook/pkg/logger"
)

type Handler struct {
	log *logger.Logger
}

func NewHandler(log *logger.Logger) *Handler {
	return &Handler{log: log}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/services", h.List)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteSuccess(w, Services()); err != nil {
		h.log.Error("Failed to write services response", "error", err)
	}
}
