package recommend

import (
	"errors"
	"net/http"

	"Shade/internal/calc/quote"
	"Shade/internal/repo"
	"Shade/internal/respond"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	Service *Service
	Log     *zap.Logger
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/calculator/recommend/{unit}", h.Tubes).Methods("POST")
}

func (h *Handler) Tubes(w http.ResponseWriter, r *http.Request) {
	var p Proposal
	if err := respond.Decode(r, &p); err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	res, err := h.Service.Tubes(r.Context(), p, mux.Vars(r)["unit"])
	switch {
	case err == nil:
		respond.JSON(w, http.StatusOK, res)
	case errors.Is(err, repo.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "Fabric, bottom rail or system not found")
	case errors.Is(err, quote.ErrBadRequest):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, quote.ErrNoFeasible):
		respond.Error(w, http.StatusUnprocessableEntity, quote.ErrNoFeasible.Error())
	default:
		h.Log.Error("recommend failed", zap.Error(err))
		respond.Error(w, http.StatusInternalServerError)
	}
}
