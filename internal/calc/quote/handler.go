package quote

import (
	"errors"
	"net/http"

	"Shade/internal/catalog"
	"Shade/internal/repo"
	"Shade/internal/respond"
	"Shade/internal/units"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	Service *Service
	Log     *zap.Logger
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/calculator/convert/{unit}", h.Convert).Methods("POST")
	r.HandleFunc("/calculator/rollup/{unit}", h.RollUp).Methods("POST")
	r.HandleFunc("/calculator/system-limit/{unit}", h.SystemLimit).Methods("POST")
	r.HandleFunc("/calculator/deflection/{unit}", h.Deflection).Methods("POST")
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Fabric, tube, bottom rail or system not found")
	case errors.Is(err, ErrNoFeasible):
		respond.Error(w, http.StatusUnprocessableEntity, ErrNoFeasible.Error())
	case errors.Is(err, ErrBadRequest), errors.Is(err, catalog.ErrInvalid):
		respond.Error(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error("calculation failed", zap.String("path", r.URL.Path), zap.Error(err))
		respond.Error(w, http.StatusInternalServerError)
		return
	}
	h.Log.Debug("calculation rejected", zap.String("path", r.URL.Path), zap.Error(err))
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var m units.Measurement
	if err := respond.Decode(r, &m); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := h.Service.Convert(m, mux.Vars(r)["unit"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) RollUp(w http.ResponseWriter, r *http.Request) {
	var req RollUpRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := h.Service.RollUp(req, mux.Vars(r)["unit"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) SystemLimit(w http.ResponseWriter, r *http.Request) {
	var req SystemLimitRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := h.Service.SystemLimits(r.Context(), req, mux.Vars(r)["unit"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

func (h *Handler) Deflection(w http.ResponseWriter, r *http.Request) {
	var req DeflectionRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := h.Service.TubeDeflection(r.Context(), req, mux.Vars(r)["unit"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
